package errors

import (
	"fmt"
	"strings"
)

// IncludeNotFound reports a directive whose target file does not exist.
func IncludeNotFound(target string, cause error) *BuildError {
	return Wrap(cause, KindIncludeNotFound, SeverityError, fmt.Sprintf("include target not found: %s", target)).
		WithContext("target", target)
}

// CircularDependency reports a file re-entering its own include chain.
// The chain names every file from the top-level document down to the repeat.
func CircularDependency(chain []string) *BuildError {
	return New(KindCircularDependency, SeverityError,
		fmt.Sprintf("circular include chain: %s", strings.Join(chain, " -> "))).
		WithContext("chain", chain)
}

// PathTraversal reports a resolved path escaping the source root. Always a
// hard failure with no fallback rendering.
func PathTraversal(rawPath, resolved, root string) *BuildError {
	return New(KindPathTraversal, SeverityFatal,
		fmt.Sprintf("include path escapes source root: %q resolves outside %s", rawPath, root)).
		WithContext("raw_path", rawPath).
		WithContext("resolved", resolved).
		WithContext("source_root", root)
}

// MaxDepthExceeded reports an include recursion deeper than the ceiling.
func MaxDepthExceeded(file string, limit int) *BuildError {
	return New(KindMaxDepthExceeded, SeverityError,
		fmt.Sprintf("include nesting exceeds depth limit %d at %s", limit, file)).
		WithContext("file", file).
		WithContext("limit", limit)
}

// MalformedDirective reports an include directive with unparseable attributes.
func MalformedDirective(detail string) *BuildError {
	return New(KindMalformedDirective, SeverityError,
		fmt.Sprintf("malformed include directive: %s", detail))
}

// FileSystem wraps an underlying I/O failure.
func FileSystem(op, path string, cause error) *BuildError {
	return Wrap(cause, KindFileSystem, SeverityError, fmt.Sprintf("%s %s", op, path)).
		WithContext("op", op).
		WithContext("path", path)
}

// ConfigError reports invalid or unloadable configuration.
func ConfigError(message string) *BuildError {
	return New(KindConfig, SeverityFatal, message)
}
