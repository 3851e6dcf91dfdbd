// Package assets records which asset files each built page actually
// references, derived from final rendered content after include expansion, so
// assets referenced only inside a partial are attributed to every page that
// transitively includes it.
package assets

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"git.home.luguber.info/inful/sitegen/internal/resolve"
	"git.home.luguber.info/inful/sitegen/internal/util/sets"
)

// schemePrefix matches absolute URL schemes (http:, https:, data:, mailto:).
var schemePrefix = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.-]*:`)

// Tracker maintains page -> asset reference edges and their inverse.
type Tracker struct {
	mu sync.RWMutex

	assetsByPage map[string]sets.Set[string]
	pagesByAsset map[string]sets.Set[string]
}

// NewTracker creates an empty asset tracker.
func NewTracker() *Tracker {
	return &Tracker{
		assetsByPage: make(map[string]sets.Set[string]),
		pagesByAsset: make(map[string]sets.Set[string]),
	}
}

// RecordAssetReferences clears any previously recorded references for page
// and records the asset paths referenced by its final rendered content.
// References that are absolute URLs, data URIs, or escape the source root are
// discarded, not errors.
func (t *Tracker) RecordAssetReferences(page, finalContent, sourceRoot string) {
	root := filepath.Clean(sourceRoot)
	found := sets.New[string]()

	for _, raw := range extractReferences(finalContent) {
		if path, ok := resolveReference(raw, page, root); ok {
			found.Add(path)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropPageLocked(page)
	if len(found) == 0 {
		return
	}
	t.assetsByPage[page] = found
	for asset := range found {
		inv, ok := t.pagesByAsset[asset]
		if !ok {
			inv = sets.New[string]()
			t.pagesByAsset[asset] = inv
		}
		inv.Add(page)
	}
}

// RemovePage drops all references recorded for page. Called when a page fails
// to process or is deleted, so its assets no longer count as referenced.
func (t *Tracker) RemovePage(page string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropPageLocked(page)
}

func (t *Tracker) dropPageLocked(page string) {
	for asset := range t.assetsByPage[page] {
		if inv, ok := t.pagesByAsset[asset]; ok {
			inv.Delete(page)
			if len(inv) == 0 {
				delete(t.pagesByAsset, asset)
			}
		}
	}
	delete(t.assetsByPage, page)
}

// IsAssetReferenced reports whether at least one currently-recorded page
// references assetPath.
func (t *Tracker) IsAssetReferenced(assetPath string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pagesByAsset[assetPath]) > 0
}

// PagesThatReference returns the pages whose recorded reference set contains
// assetPath, sorted.
func (t *Tracker) PagesThatReference(assetPath string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sets.SortedStrings(t.pagesByAsset[assetPath])
}

// AssetsForPage returns the asset paths recorded for page, sorted.
func (t *Tracker) AssetsForPage(page string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sets.SortedStrings(t.assetsByPage[page])
}

// Clear drops all recorded references. Full builds start from scratch.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.assetsByPage = make(map[string]sets.Set[string])
	t.pagesByAsset = make(map[string]sets.Set[string])
}

// resolveReference maps one raw reference to an absolute path inside root.
// Returns ok=false for external URLs, data URIs, anchors, and root escapes.
func resolveReference(raw, page, root string) (string, bool) {
	ref := strings.TrimSpace(raw)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	if schemePrefix.MatchString(ref) || strings.HasPrefix(ref, "//") {
		return "", false
	}
	ref = stripQueryFragment(ref)
	if ref == "" {
		return "", false
	}

	var path string
	if strings.HasPrefix(ref, "/") {
		path = filepath.Join(root, strings.TrimLeft(ref, "/"))
	} else {
		path = filepath.Join(filepath.Dir(page), ref)
	}
	path = filepath.Clean(path)
	if !resolve.WithinRoot(path, root) {
		return "", false
	}
	return path, true
}
