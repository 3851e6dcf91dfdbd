package site

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/resolve"
)

// Inventory is the classified snapshot of the source tree produced by one
// scan. Path slices are sorted for deterministic processing order.
type Inventory struct {
	Pages    []string
	Partials []string
	Assets   []string
	Classes  map[string]FileClass
}

// All returns every inventoried path (pages, partials, assets).
func (inv *Inventory) All() []string {
	out := make([]string, 0, len(inv.Pages)+len(inv.Partials)+len(inv.Assets))
	out = append(out, inv.Pages...)
	out = append(out, inv.Partials...)
	out = append(out, inv.Assets...)
	return out
}

// scan enumerates the source tree and classifies each file. Hidden
// directories, excluded subtrees, and a nested output directory are skipped
// without descending.
func (b *Builder) scan() (*Inventory, error) {
	inv := &Inventory{Classes: make(map[string]FileClass)}
	root := b.classifier.root

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if resolve.WithinRoot(filepath.Clean(path), b.classifier.outputDir) {
				return filepath.SkipDir
			}
			if rel, relErr := filepath.Rel(root, path); relErr == nil && b.cfg.ShouldExclude(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		class := b.classifier.Classify(path)
		if class == ClassIgnored {
			return nil
		}
		inv.Classes[path] = class
		switch class {
		case ClassPage:
			inv.Pages = append(inv.Pages, path)
		case ClassPartial:
			inv.Partials = append(inv.Partials, path)
		case ClassAsset:
			inv.Assets = append(inv.Assets, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.FileSystem("scan", root, err)
	}

	sort.Strings(inv.Pages)
	sort.Strings(inv.Partials)
	sort.Strings(inv.Assets)
	return inv, nil
}
