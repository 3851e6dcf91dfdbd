// Package errors provides the structured error type (BuildError) used across
// the build engine for kind-based classification of include, path, and
// filesystem failures.
package errors

import (
	"fmt"
	"strings"
)

// Kind classifies a build error.
type Kind string

const (
	// Include expansion errors
	KindIncludeNotFound    Kind = "include_not_found"
	KindCircularDependency Kind = "circular_dependency"
	KindMaxDepthExceeded   Kind = "max_depth_exceeded"
	KindMalformedDirective Kind = "malformed_directive"

	// Security errors
	KindPathTraversal Kind = "path_traversal"

	// I/O and aggregate errors
	KindFileSystem     Kind = "filesystem"
	KindBuildAggregate Kind = "build_aggregate"

	// Configuration and runtime errors
	KindConfig   Kind = "config"
	KindInternal Kind = "internal"
)

// Severity indicates how critical an error is.
type Severity string

const (
	SeverityFatal   Severity = "fatal"   // Stops execution
	SeverityError   Severity = "error"   // Error, but not fatal
	SeverityWarning Severity = "warning" // Continues with degraded functionality
)

// ContextFields carries structured context for BuildError.
type ContextFields map[string]any

// BuildError is a structured error with kind, severity, and context.
type BuildError struct {
	Kind     Kind          `json:"kind"`
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *BuildError) WithContext(key string, value any) *BuildError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new BuildError.
func New(kind Kind, severity Severity, message string) *BuildError {
	return &BuildError{
		Kind:     kind,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new BuildError that wraps an existing error.
func Wrap(err error, kind Kind, severity Severity, message string) *BuildError {
	return &BuildError{
		Kind:     kind,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsKind checks if an error belongs to a specific kind.
func IsKind(err error, kind Kind) bool {
	if be, ok := err.(*BuildError); ok {
		return be.Kind == kind
	}
	return false
}

// GetKind extracts the kind from an error, or returns KindInternal if not a BuildError.
func GetKind(err error) Kind {
	if be, ok := err.(*BuildError); ok {
		return be.Kind
	}
	return KindInternal
}

// FileError pairs a source file with the error that failed it.
type FileError struct {
	File string `json:"file"`
	Err  error  `json:"error"`
}

func (fe FileError) Error() string {
	return fmt.Sprintf("%s: %v", fe.File, fe.Err)
}

func (fe FileError) Unwrap() error { return fe.Err }

// AggregateError carries the full per-file error list at the end of a build.
type AggregateError struct {
	Files []FileError `json:"files"`
}

func (e *AggregateError) Error() string {
	if len(e.Files) == 1 {
		return fmt.Sprintf("build failed: 1 file: %v", e.Files[0])
	}
	parts := make([]string, 0, len(e.Files))
	for _, fe := range e.Files {
		parts = append(parts, fe.Error())
	}
	return fmt.Sprintf("build failed: %d files: %s", len(e.Files), strings.Join(parts, "; "))
}

// Aggregate returns nil when fileErrors is empty, otherwise an AggregateError.
func Aggregate(fileErrors []FileError) error {
	if len(fileErrors) == 0 {
		return nil
	}
	return &AggregateError{Files: fileErrors}
}
