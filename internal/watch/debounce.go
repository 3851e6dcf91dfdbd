package watch

import (
	"context"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/util/sets"
)

// DebouncerConfig controls batch coalescing.
type DebouncerConfig struct {
	// QuietWindow is how long the path stream must stay silent before the
	// accumulated batch flushes.
	QuietWindow time.Duration

	// MaxDelay caps how long a continuously noisy stream can postpone a
	// flush. The first path in a batch starts the clock.
	MaxDelay time.Duration
}

// Debouncer coalesces bursts of changed paths into single flush callbacks.
//
// Behavior:
//   - quiet window debounce
//   - max delay (a noisy stream cannot postpone the flush indefinitely)
//   - each flush carries the deduplicated set of paths seen since the last one
//
// It is safe to run as a single goroutine.
type Debouncer struct {
	cfg   DebouncerConfig
	flush func(ctx context.Context, paths []string)

	mu      sync.Mutex
	pending sets.Set[string]
	firstAt time.Time
}

// NewDebouncer creates a Debouncer that invokes flush with each coalesced
// batch of paths.
func NewDebouncer(cfg DebouncerConfig, flush func(ctx context.Context, paths []string)) (*Debouncer, error) {
	if cfg.QuietWindow <= 0 {
		return nil, errors.ConfigError("quiet window must be > 0")
	}
	if cfg.MaxDelay <= 0 {
		return nil, errors.ConfigError("max delay must be > 0")
	}
	if flush == nil {
		return nil, errors.ConfigError("flush callback is required")
	}
	return &Debouncer{cfg: cfg, flush: flush, pending: sets.New[string]()}, nil
}

// Run consumes paths until the channel closes or ctx is cancelled. A batch
// still pending at shutdown is discarded.
func (d *Debouncer) Run(ctx context.Context, paths <-chan string) {
	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()

	var (
		quietC <-chan time.Time
		maxC   <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return

		case path, ok := <-paths:
			if !ok {
				return
			}
			first := d.add(path)

			resetTimer(quietTimer, d.cfg.QuietWindow)
			quietC = quietTimer.C
			if first {
				resetTimer(maxTimer, d.cfg.MaxDelay)
				maxC = maxTimer.C
			}

		case <-quietC:
			d.emit(ctx)
			quietC = nil
			maxC = nil

		case <-maxC:
			d.emit(ctx)
			quietC = nil
			maxC = nil
		}
	}
}

// add records path and reports whether it opened a new batch.
func (d *Debouncer) add(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	first := len(d.pending) == 0
	if first {
		d.firstAt = time.Now()
	}
	d.pending.Add(path)
	return first
}

func (d *Debouncer) emit(ctx context.Context) {
	d.mu.Lock()
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	batch := sets.SortedStrings(d.pending)
	d.pending = sets.New[string]()
	d.mu.Unlock()

	d.flush(ctx, batch)
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}
