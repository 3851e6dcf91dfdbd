package site

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// Rebuild performs an incremental build for one changed absolute path: a
// changed page rebuilds only itself, a changed partial rebuilds exactly the
// transitively affected pages, a changed asset is recopied, and a deleted
// file has its edges and output artifact removed. If anything in the
// incremental pass errors, the documented fallback is a full build that
// resynchronizes all state from scratch.
func (b *Builder) Rebuild(ctx context.Context, changedPath string) *Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := newResult(true)
	b.applyChange(changedPath, res)

	if res.Failed() {
		b.logger.Warn("incremental build failed, falling back to full build",
			logfields.Path(changedPath), logfields.Error(res.Err()))
		return b.fullBuildLocked(ctx)
	}
	return b.finish(res)
}

// RebuildModified diffs all known files' modification timestamps against the
// last-seen cache and applies every detected change: advanced or unseen
// timestamps rebuild, vanished files are treated as deletions.
func (b *Builder) RebuildModified(ctx context.Context) *Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := newResult(true)

	inv, err := b.scan()
	if err != nil {
		res.addError(b.cfg.Source.Root, err)
		return b.fullBuildLocked(ctx)
	}

	present := make(map[string]struct{}, len(inv.Classes))
	for _, path := range inv.All() {
		present[path] = struct{}{}
	}

	// Deletions first so a rename never processes a stale edge set.
	for _, known := range b.modCache.Known() {
		if _, ok := present[known]; !ok {
			b.applyChange(known, res)
		}
	}

	for _, path := range inv.All() {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if b.modCache.Changed(path, info.ModTime()) {
			b.applyChange(path, res)
		}
	}
	b.inventory = inv

	if res.Failed() {
		b.logger.Warn("incremental build failed, falling back to full build", logfields.Error(res.Err()))
		return b.fullBuildLocked(ctx)
	}
	return b.finish(res)
}

// applyChange routes one changed path to the appropriate handler.
func (b *Builder) applyChange(path string, res *Result) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		b.handleDelete(path, res)
		return
	}

	switch b.classifier.Classify(path) {
	case ClassPage:
		b.rebuildPage(path, res)
	case ClassPartial:
		b.rebuildDependents(path, res)
		b.touchModCache(path)
	case ClassAsset:
		// A direct edit is an explicit signal of intent; copy regardless of
		// prior referenced status.
		if err := b.copyAsset(path); err != nil {
			res.addError(path, err)
			return
		}
		res.Copied++
		b.touchModCache(path)
	default:
		res.Skipped++
	}
}

// rebuildDependents reprocesses every page transitively affected by a changed
// partial. Zero pages is a valid outcome when nothing depends on it.
func (b *Builder) rebuildDependents(partial string, res *Result) {
	affected := b.deps.AffectedPages(partial)
	b.logger.Info("partial changed",
		logfields.Include(partial), logfields.Count(len(affected)))

	for _, dependent := range affected {
		if b.classifier.Classify(dependent) != ClassPage {
			continue
		}
		b.rebuildPage(dependent, res)
	}
}

func (b *Builder) rebuildPage(page string, res *Result) {
	if err := b.processPage(page); err != nil {
		res.addError(page, err)
		return
	}
	res.Processed++
	b.copyMissingAssets(page, res)
}

// copyMissingAssets backfills output copies for assets the rebuilt page now
// references but no earlier build has copied. Full builds copy referenced
// assets after all pages; the incremental path must do it per page.
func (b *Builder) copyMissingAssets(page string, res *Result) {
	for _, asset := range b.assets.AssetsForPage(page) {
		rel, err := filepath.Rel(b.cfg.Source.Root, asset)
		if err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(b.cfg.Output.Directory, rel)); err == nil {
			continue
		}
		// Referenced but absent in source; the page serves a broken link
		// either way, not a build failure.
		if _, err := os.Stat(asset); err != nil {
			continue
		}
		if err := b.copyAsset(asset); err != nil {
			res.addError(asset, err)
			continue
		}
		res.Copied++
	}
}

// handleDelete removes all graph edges touching the deleted file and its
// output artifact, if one exists.
func (b *Builder) handleDelete(path string, res *Result) {
	class := b.classifier.Classify(path)
	b.logger.Info("file deleted", logfields.Path(path), slog.String("class", class.String()))

	b.deps.RemoveFile(path)
	b.assets.RemovePage(path)
	b.modCache.Remove(path)

	if class == ClassPage || class == ClassAsset {
		if err := b.removeOutput(path); err != nil {
			res.addError(path, err)
		}
	}
}
