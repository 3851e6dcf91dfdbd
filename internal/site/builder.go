// Package site contains the build orchestrator: it scans and classifies the
// source tree, drives include expansion for every page, keeps the dependency
// and asset graphs current, and writes the mirrored output tree for full and
// incremental builds.
package site

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/assets"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/deps"
	"git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/gitinfo"
	"git.home.luguber.info/inful/sitegen/internal/include"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
)

// Builder orchestrates full and incremental builds for one source/output
// pair. All graph structures are owned by the Builder session: rebuilt from
// scratch on every full build, mutated in place on incremental builds. Builds
// are serialized; concurrent callers block.
type Builder struct {
	cfg        *config.Config
	classifier *Classifier
	deps       *deps.Tracker
	assets     *assets.Tracker
	modCache   *ModCache
	converter  *markdown.Converter
	recorder   metrics.Recorder
	logger     *slog.Logger

	mu sync.Mutex
	// inventory from the most recent scan, used by incremental passes.
	inventory *Inventory
}

// NewBuilder creates a Builder session for cfg.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{
		cfg:        cfg,
		classifier: NewClassifier(cfg),
		deps:       deps.NewTracker(),
		assets:     assets.NewTracker(),
		modCache:   NewModCache(),
		converter:  markdown.NewConverter(cfg.Markdown.Title),
		recorder:   metrics.NoopRecorder{},
		logger:     slog.Default(),
	}
}

// WithRecorder sets the metrics recorder.
func (b *Builder) WithRecorder(r metrics.Recorder) *Builder {
	b.recorder = r
	return b
}

// WithLogger sets a custom logger.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Deps exposes the dependency tracker (read-mostly; used by serve status).
func (b *Builder) Deps() *deps.Tracker { return b.deps }

// Assets exposes the asset tracker.
func (b *Builder) Assets() *assets.Tracker { return b.assets }

// FullBuild scans the source tree, processes every page, and copies every
// referenced asset. Per-file errors are collected and processing continues;
// the returned Result reports failure if any were collected.
func (b *Builder) FullBuild(ctx context.Context) *Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fullBuildLocked(ctx)
}

func (b *Builder) fullBuildLocked(ctx context.Context) *Result {
	res := newResult(false)
	b.stampRevision(res)

	scanStart := time.Now()
	inv, err := b.scan()
	b.recorder.ObserveStageDuration("scan", time.Since(scanStart))
	if err != nil {
		res.addError(b.cfg.Source.Root, err)
		return b.finish(res)
	}
	b.inventory = inv

	// Graphs are rebuilt from scratch; stale edges never survive a full build.
	b.deps.Clear()
	b.assets.Clear()
	b.modCache.Clear()

	if b.cfg.Output.Clean {
		if err := os.RemoveAll(b.cfg.Output.Directory); err != nil {
			res.addError(b.cfg.Output.Directory, errors.FileSystem("clean", b.cfg.Output.Directory, err))
			return b.finish(res)
		}
	}

	processStart := time.Now()
	for _, page := range inv.Pages {
		if ctx.Err() != nil {
			// Abandoned between files; each file's writes are independent.
			b.logger.Warn("build abandoned", logfields.BuildID(res.BuildID))
			return b.finish(res)
		}
		if err := b.processPage(page); err != nil {
			res.addError(page, err)
			b.logger.Error("page failed", logfields.Page(page), logfields.Error(err))
			continue
		}
		res.Processed++
	}
	b.recorder.ObserveStageDuration("process", time.Since(processStart))

	copyStart := time.Now()
	for _, asset := range inv.Assets {
		if !b.assets.IsAssetReferenced(asset) {
			res.Skipped++
			continue
		}
		if err := b.copyAsset(asset); err != nil {
			res.addError(asset, err)
			continue
		}
		res.Copied++
	}
	b.recorder.ObserveStageDuration("copy", time.Since(copyStart))

	if err := b.writeSitemap(inv); err != nil {
		res.addError("sitemap.xml", err)
	}

	b.syncModCache(inv)
	return b.finish(res)
}

// processPage expands includes in one page, records its dependency and asset
// edges, and writes the output artifact. Dependency edges collected before a
// failure are still recorded so the graph reflects every successfully
// resolved include.
func (b *Builder) processPage(pagePath string) error {
	raw, err := os.ReadFile(pagePath)
	if err != nil {
		return errors.FileSystem("read", pagePath, err)
	}

	edges := make(map[string][]string)
	proc := include.NewProcessor(b.cfg.Source.Root).
		WithDependencyCallback(func(from, to string) {
			edges[from] = append(edges[from], to)
		})

	expanded, expandErr := proc.Expand(string(raw), pagePath)

	// Replace edges for every file visited in this expansion, including the
	// page itself even when it resolved nothing.
	if _, ok := edges[pagePath]; !ok {
		edges[pagePath] = nil
	}
	for from, tos := range edges {
		b.deps.RecordDependencies(from, tos)
	}

	if expandErr != nil {
		// Assets of a failed page are not considered referenced.
		b.assets.RemovePage(pagePath)
		return expandErr
	}

	final := []byte(expanded)
	if IsMarkdown(pagePath) && b.cfg.MarkdownEnabled() {
		converted, err := b.converter.Convert(final)
		if err != nil {
			b.assets.RemovePage(pagePath)
			return errors.Wrap(err, errors.KindInternal, errors.SeverityError, "markdown conversion failed")
		}
		final = converted
	}

	b.assets.RecordAssetReferences(pagePath, string(final), b.cfg.Source.Root)

	if err := b.writePage(pagePath, final); err != nil {
		return err
	}

	b.touchModCache(pagePath)
	b.recorder.AddPagesProcessed(1)
	return nil
}

// stampRevision records the source tree's git HEAD when available.
func (b *Builder) stampRevision(res *Result) {
	rev, ok, err := gitinfo.Head(b.cfg.Source.Root)
	if err != nil {
		b.logger.Debug("git revision unavailable", logfields.Error(err))
		return
	}
	if ok {
		res.Commit = rev.Commit
	}
}

// syncModCache resynchronizes the timestamp cache from the inventory.
func (b *Builder) syncModCache(inv *Inventory) {
	for _, path := range inv.All() {
		b.touchModCache(path)
	}
}

func (b *Builder) touchModCache(path string) {
	if info, err := os.Stat(path); err == nil {
		b.modCache.Update(path, info.ModTime())
	}
}

func (b *Builder) finish(res *Result) *Result {
	res.Duration = time.Since(res.StartedAt)
	b.recorder.ObserveBuildDuration(res.Duration, res.Incremental)
	b.recorder.AddFileErrors(len(res.Errors))
	outcome := metrics.OutcomeSuccess
	if res.Failed() {
		outcome = metrics.OutcomeFailed
	}
	b.recorder.IncBuildOutcome(outcome)

	b.logger.Info("build finished",
		logfields.BuildID(res.BuildID),
		slog.Bool("incremental", res.Incremental),
		slog.Int("processed", res.Processed),
		slog.Int("copied", res.Copied),
		slog.Int("skipped", res.Skipped),
		slog.Int("errors", len(res.Errors)),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res
}
