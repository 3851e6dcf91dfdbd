package site

import (
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitegen/internal/errors"
)

// Result aggregates the outcome of one full or incremental build. It is
// immutable once returned by the Builder.
type Result struct {
	BuildID     string             `json:"build_id"`
	Incremental bool               `json:"incremental"`
	StartedAt   time.Time          `json:"started_at"`
	Duration    time.Duration      `json:"duration"`
	Processed   int                `json:"processed"`
	Copied      int                `json:"copied"`
	Skipped     int                `json:"skipped"`
	Errors      []errors.FileError `json:"errors,omitempty"`
	Commit      string             `json:"commit,omitempty"`
}

func newResult(incremental bool) *Result {
	return &Result{
		BuildID:     uuid.NewString(),
		Incremental: incremental,
		StartedAt:   time.Now(),
	}
}

// Failed reports whether any per-file error was collected. Partial output may
// still have been written; counts are exact either way.
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}

// Err returns the aggregate error, or nil when the build succeeded.
func (r *Result) Err() error {
	return errors.Aggregate(r.Errors)
}

func (r *Result) addError(file string, err error) {
	r.Errors = append(r.Errors, errors.FileError{File: file, Err: err})
}
