// Package metrics defines observability hooks for build and rebuild activity.
package metrics

import "time"

// OutcomeLabel enumerates final build outcomes for counters.
type OutcomeLabel string

const (
	OutcomeSuccess OutcomeLabel = "success"
	OutcomeFailed  OutcomeLabel = "failed"
)

// Recorder defines observability hooks for build and stage metrics.
// Implementations may forward to Prometheus etc. All methods must be safe on
// the NoopRecorder so injection stays optional.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration, incremental bool)
	IncBuildOutcome(outcome OutcomeLabel)
	AddPagesProcessed(n int)
	AddAssetsCopied(n int)
	AddFileErrors(n int)
	SetLiveReloadClients(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration, bool)   {}
func (NoopRecorder) IncBuildOutcome(OutcomeLabel)               {}
func (NoopRecorder) AddPagesProcessed(int)                      {}
func (NoopRecorder) AddAssetsCopied(int)                        {}
func (NoopRecorder) AddFileErrors(int)                          {}
func (NoopRecorder) SetLiveReloadClients(int)                   {}
