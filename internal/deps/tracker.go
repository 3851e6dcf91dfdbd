// Package deps maintains the bidirectional include dependency graph: which
// includes each page uses, and which pages each include appears in. Pure
// in-memory graph maintenance, no I/O.
package deps

import (
	"sync"

	"git.home.luguber.info/inful/sitegen/internal/include"
	"git.home.luguber.info/inful/sitegen/internal/util/sets"
)

// Tracker holds the forward and inverse dependency indexes. The two maps are
// always exact inverses of one another; RecordDependencies is the single
// mutation entry point that replaces both sides for a page atomically, so the
// indexes cannot drift out of sync.
type Tracker struct {
	mu sync.RWMutex

	// includesInPage: page -> set of include paths it references.
	includesInPage map[string]sets.Set[string]
	// pagesByInclude: include path -> set of files referencing it.
	pagesByInclude map[string]sets.Set[string]
}

// NewTracker creates an empty dependency tracker.
func NewTracker() *Tracker {
	return &Tracker{
		includesInPage: make(map[string]sets.Set[string]),
		pagesByInclude: make(map[string]sets.Set[string]),
	}
}

// RecordDependencies replaces all of page's outgoing edges with includePaths.
// Stale inverse entries whose forward edge no longer exists are removed, and
// include paths whose inverse set becomes empty are pruned entirely.
func (t *Tracker) RecordDependencies(page string, includePaths []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := sets.New(includePaths...)

	// Drop inverse edges for includes this version of the page no longer uses.
	for old := range t.includesInPage[page] {
		if next.Has(old) {
			continue
		}
		if inv, ok := t.pagesByInclude[old]; ok {
			inv.Delete(page)
			if len(inv) == 0 {
				delete(t.pagesByInclude, old)
			}
		}
	}

	if len(next) == 0 {
		delete(t.includesInPage, page)
		return
	}
	t.includesInPage[page] = next

	for inc := range next {
		inv, ok := t.pagesByInclude[inc]
		if !ok {
			inv = sets.New[string]()
			t.pagesByInclude[inc] = inv
		}
		inv.Add(page)
	}
}

// RecordFromText computes page's dependencies by parsing directives only (no
// file reads) and records them. Used ahead of an actual expansion.
func (t *Tracker) RecordFromText(page, text, sourceRoot string) error {
	paths, err := include.DependencyPaths(text, page, sourceRoot)
	if err != nil {
		return err
	}
	t.RecordDependencies(page, paths)
	return nil
}

// AffectedPages returns every file that must be rebuilt if changedPath
// changes, transitively closed over nested includes. The walk is guarded with
// a visited set so cyclic include graphs terminate, and the result contains
// no duplicates. Ordering is lexical for determinism.
func (t *Tracker) AffectedPages(changedPath string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	visited := sets.New[string]()
	affected := sets.New[string]()
	t.walkDependents(changedPath, visited, affected)
	return sets.SortedStrings(affected)
}

func (t *Tracker) walkDependents(path string, visited, affected sets.Set[string]) {
	if visited.Has(path) {
		return
	}
	visited.Add(path)

	for dependent := range t.pagesByInclude[path] {
		affected.Add(dependent)
		t.walkDependents(dependent, visited, affected)
	}
}

// RemoveFile deletes all forward and inverse edges touching path. Used when a
// file is deleted on disk.
func (t *Tracker) RemoveFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for inc := range t.includesInPage[path] {
		if inv, ok := t.pagesByInclude[inc]; ok {
			inv.Delete(path)
			if len(inv) == 0 {
				delete(t.pagesByInclude, inc)
			}
		}
	}
	delete(t.includesInPage, path)

	for dependent := range t.pagesByInclude[path] {
		if fwd, ok := t.includesInPage[dependent]; ok {
			fwd.Delete(path)
			if len(fwd) == 0 {
				delete(t.includesInPage, dependent)
			}
		}
	}
	delete(t.pagesByInclude, path)
}

// IsIncludeFile reports whether anything currently depends on path.
func (t *Tracker) IsIncludeFile(path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pagesByInclude[path]) > 0
}

// IsMainPage reports whether path has dependencies recorded and is not itself
// depended upon.
func (t *Tracker) IsMainPage(path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.includesInPage[path]) > 0 && len(t.pagesByInclude[path]) == 0
}

// Includes returns the include paths recorded for page, sorted.
func (t *Tracker) Includes(page string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sets.SortedStrings(t.includesInPage[page])
}

// Dependents returns the files that directly reference includePath, sorted.
func (t *Tracker) Dependents(includePath string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sets.SortedStrings(t.pagesByInclude[includePath])
}

// Clear drops the whole graph. Full builds start from an empty graph so stale
// edges from removed files never survive a rebuild.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.includesInPage = make(map[string]sets.Set[string])
	t.pagesByInclude = make(map[string]sets.Set[string])
}
