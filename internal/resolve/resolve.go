// Package resolve maps raw include references to absolute paths and enforces
// the source-root containment boundary. It performs no I/O.
package resolve

import (
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/errors"
)

// Kind is the closed set of include reference flavors.
type Kind string

const (
	// KindFile resolves relative to the including file's directory.
	KindFile Kind = "file"
	// KindVirtual resolves relative to the source root.
	KindVirtual Kind = "virtual"
)

// ParseKind normalizes a raw directive attribute name into a Kind.
// Anything other than the two recognized values is rejected.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(KindFile):
		return KindFile, nil
	case string(KindVirtual):
		return KindVirtual, nil
	default:
		return "", errors.MalformedDirective(fmt.Sprintf("unknown include kind %q", raw))
	}
}

// Resolve turns a raw include reference into an absolute path proven to lie
// within sourceRoot. Backslashes and percent-escapes are treated as literal
// filename characters: if the literal resolution stays inside the root it is
// allowed, otherwise rejected.
func Resolve(kind Kind, rawPath, currentFile, sourceRoot string) (string, error) {
	if rawPath == "" {
		return "", errors.MalformedDirective("empty include path")
	}

	root := filepath.Clean(sourceRoot)

	var resolved string
	switch kind {
	case KindFile:
		resolved = filepath.Join(filepath.Dir(currentFile), rawPath)
	case KindVirtual:
		resolved = filepath.Join(root, normalizeVirtual(rawPath))
	default:
		return "", errors.MalformedDirective(fmt.Sprintf("unknown include kind %q", kind))
	}

	resolved = filepath.Clean(resolved)
	if !WithinRoot(resolved, root) {
		return "", errors.PathTraversal(rawPath, resolved, root)
	}
	return resolved, nil
}

// normalizeVirtual strips any number of leading slashes and collapses
// repeated internal slashes to one.
func normalizeVirtual(raw string) string {
	s := strings.TrimLeft(raw, "/")
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	return s
}

// WithinRoot reports whether path equals root or has root as a proper path
// prefix. The check is boundary-aware: /srv/site-data is not inside /srv/site.
func WithinRoot(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
