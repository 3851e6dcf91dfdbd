// Package include expands server-side-include-style directives in document
// text, recursively and in source order, with cycle detection and a fixed
// depth ceiling.
package include

import (
	"fmt"
	"os"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/resolve"
)

// MaxDepth is the ceiling on include nesting. Exceeding it fails the whole
// expansion for the top-level file rather than truncating silently.
const MaxDepth = 10

// Processor expands include directives against one source root.
type Processor struct {
	sourceRoot string

	// onInclude, when set, is invoked for every successfully resolved
	// include edge (from, to) before recursing, so nested includes are
	// attributed even if a later directive in the same file fails.
	onInclude func(from, to string)

	// inlineErrors renders a visible HTML comment marker in place of a
	// failed directive instead of aborting. The expansion error is still
	// returned; this is a development preview aid, never an authoritative
	// success. Path traversal violations abort regardless.
	inlineErrors bool

	readFile func(string) ([]byte, error)
}

// NewProcessor creates a Processor for the given source root.
func NewProcessor(sourceRoot string) *Processor {
	return &Processor{
		sourceRoot: sourceRoot,
		readFile:   os.ReadFile,
	}
}

// WithDependencyCallback registers fn to receive every resolved include edge.
func (p *Processor) WithDependencyCallback(fn func(from, to string)) *Processor {
	p.onInclude = fn
	return p
}

// WithInlineErrors enables development-preview inline error markers.
func (p *Processor) WithInlineErrors() *Processor {
	p.inlineErrors = true
	return p
}

// WithReadFile overrides the file reader. Tests use this to inject failures.
func (p *Processor) WithReadFile(fn func(string) ([]byte, error)) *Processor {
	p.readFile = fn
	return p
}

// Expand recursively expands all include directives in text, which belongs to
// the document at filePath. Surrounding text is preserved byte-for-byte; each
// directive is replaced with the fully expanded content of its target.
func (p *Processor) Expand(text, filePath string) (string, error) {
	return p.expand(text, filePath, []string{filePath}, 0)
}

// expand walks one document. chain is the ordered "currently visiting" list
// from the top-level file down to filePath; it is chain-scoped (extended per
// recursive call, never shared between sibling branches), so the same file
// may legitimately appear twice in sibling subtrees of one document.
func (p *Processor) expand(text, filePath string, chain []string, depth int) (string, error) {
	if depth > MaxDepth {
		return "", errors.MaxDepthExceeded(filePath, MaxDepth)
	}

	directives, err := Parse(text)
	if err != nil {
		return "", err
	}
	if len(directives) == 0 {
		return text, nil
	}

	var out strings.Builder
	out.Grow(len(text))
	var firstErr error
	last := 0

	for _, d := range directives {
		out.WriteString(text[last:d.Start])
		last = d.End

		expanded, err := p.expandDirective(d, filePath, chain, depth)
		if err != nil {
			// Security violations are hard failures with no fallback rendering.
			if !p.inlineErrors || errors.IsKind(err, errors.KindPathTraversal) {
				return "", err
			}
			if firstErr == nil {
				firstErr = err
			}
			out.WriteString(errorMarker(d, err))
			continue
		}
		out.WriteString(expanded)
	}
	out.WriteString(text[last:])

	return out.String(), firstErr
}

func (p *Processor) expandDirective(d Directive, filePath string, chain []string, depth int) (string, error) {
	resolved, err := resolve.Resolve(d.Kind, d.RawPath, filePath, p.sourceRoot)
	if err != nil {
		return "", err
	}

	for _, visited := range chain {
		if visited == resolved {
			cycle := append(append([]string{}, chain...), resolved)
			return "", errors.CircularDependency(cycle)
		}
	}

	if p.onInclude != nil {
		p.onInclude(filePath, resolved)
	}

	content, err := p.readFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.IncludeNotFound(resolved, err)
		}
		return "", errors.FileSystem("read", resolved, err)
	}

	next := append(append([]string{}, chain...), resolved)
	return p.expand(string(content), resolved, next, depth+1)
}

// errorMarker renders the development-preview placeholder for a failed
// directive. Kept as an HTML comment so browsers never display it as content.
func errorMarker(d Directive, err error) string {
	return fmt.Sprintf("<!-- sitegen: include %s=%q failed: %s -->", d.Kind, d.RawPath, errors.GetKind(err))
}
