package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flushCollector struct {
	mu      sync.Mutex
	batches [][]string
	notify  chan struct{}
}

func newFlushCollector() *flushCollector {
	return &flushCollector{notify: make(chan struct{}, 16)}
}

func (c *flushCollector) flush(_ context.Context, paths []string) {
	c.mu.Lock()
	c.batches = append(c.batches, paths)
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *flushCollector) all() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]string, len(c.batches))
	copy(out, c.batches)
	return out
}

func (c *flushCollector) waitForFlush(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-c.notify:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for flush")
	}
}

func TestNewDebouncer_Validation(t *testing.T) {
	_, err := NewDebouncer(DebouncerConfig{QuietWindow: 0, MaxDelay: time.Second},
		func(context.Context, []string) {})
	require.Error(t, err)

	_, err = NewDebouncer(DebouncerConfig{QuietWindow: time.Second, MaxDelay: 0},
		func(context.Context, []string) {})
	require.Error(t, err)

	_, err = NewDebouncer(DebouncerConfig{QuietWindow: time.Second, MaxDelay: time.Second}, nil)
	require.Error(t, err)
}

func TestDebouncer_BurstCoalescesToSingleBatch(t *testing.T) {
	collector := newFlushCollector()
	d, err := NewDebouncer(DebouncerConfig{
		QuietWindow: 25 * time.Millisecond,
		MaxDelay:    500 * time.Millisecond,
	}, collector.flush)
	require.NoError(t, err)

	paths := make(chan string, 16)
	ctx := t.Context()
	go d.Run(ctx, paths)

	paths <- "/site/a.html"
	paths <- "/site/b.html"
	paths <- "/site/a.html" // duplicate collapses

	collector.waitForFlush(t, time.Second)

	batches := collector.all()
	require.Len(t, batches, 1)
	require.Equal(t, []string{"/site/a.html", "/site/b.html"}, batches[0])
}

func TestDebouncer_MaxDelayForcesFlush(t *testing.T) {
	collector := newFlushCollector()
	d, err := NewDebouncer(DebouncerConfig{
		QuietWindow: 30 * time.Millisecond, // a noisy stream keeps resetting this
		MaxDelay:    100 * time.Millisecond,
	}, collector.flush)
	require.NoError(t, err)

	paths := make(chan string, 64)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx, paths)

	// Keep the stream noisy past the max delay.
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(250 * time.Millisecond)
		for time.Now().Before(deadline) {
			paths <- "/site/busy.html"
			time.Sleep(10 * time.Millisecond)
		}
	}()

	collector.waitForFlush(t, time.Second)
	<-done
	cancel()

	require.NotEmpty(t, collector.all())
}

func TestDebouncer_SeparateBurstsSeparateBatches(t *testing.T) {
	collector := newFlushCollector()
	d, err := NewDebouncer(DebouncerConfig{
		QuietWindow: 20 * time.Millisecond,
		MaxDelay:    500 * time.Millisecond,
	}, collector.flush)
	require.NoError(t, err)

	paths := make(chan string, 16)
	ctx := t.Context()
	go d.Run(ctx, paths)

	paths <- "/site/first.html"
	collector.waitForFlush(t, time.Second)

	paths <- "/site/second.html"
	collector.waitForFlush(t, time.Second)

	batches := collector.all()
	require.Len(t, batches, 2)
	require.Equal(t, []string{"/site/first.html"}, batches[0])
	require.Equal(t, []string{"/site/second.html"}, batches[1])
}
