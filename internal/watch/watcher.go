// Package watch monitors the source tree for file changes and coalesces
// bursts of filesystem events into debounced change batches.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/resolve"
)

// Watcher monitors a source root recursively and forwards change events for
// relevant paths. Directories created while watching are added on the fly so
// new subtrees are covered without a restart.
type Watcher struct {
	root      string
	outputDir string
	watcher   *fsnotify.Watcher
	logger    *slog.Logger

	// Changes receives the absolute path of every relevant change event.
	changes chan string
}

// NewWatcher creates a recursive watcher over root. The output directory is
// never watched, even when nested inside the root.
func NewWatcher(root, outputDir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.FileSystem("watch", root, err)
	}

	w := &Watcher{
		root:      filepath.Clean(root),
		outputDir: filepath.Clean(outputDir),
		watcher:   fsw,
		logger:    slog.Default(),
		changes:   make(chan string, 256),
	}

	if err := w.addRecursive(w.root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// WithLogger sets a custom logger.
func (w *Watcher) WithLogger(l *slog.Logger) *Watcher {
	w.logger = l
	return w
}

// Changes returns the channel of changed absolute paths.
func (w *Watcher) Changes() <-chan string { return w.changes }

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error { return w.watcher.Close() }

// Run forwards filesystem events until ctx is cancelled or the watcher is
// closed. It must be called at most once.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.changes)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if w.skip(path) {
		return
	}

	// New directories must be watched before their contents change.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addRecursive(path); err != nil {
				w.logger.Warn("cannot watch new directory",
					logfields.Path(path), logfields.Error(err))
			}
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	select {
	case w.changes <- path:
	case <-ctx.Done():
	default:
		// A full channel means a massive burst; the batch already in flight
		// covers the tree via the modification-time pass.
		w.logger.Warn("change channel full, dropping event", logfields.Path(path))
	}
}

// skip filters paths that never participate in a build.
func (w *Watcher) skip(path string) bool {
	if !resolve.WithinRoot(path, w.root) {
		return true
	}
	if resolve.WithinRoot(path, w.outputDir) {
		return true
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return true
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.FileSystem("walk", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skip(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return errors.FileSystem("watch", path, err)
		}
		return nil
	})
}
