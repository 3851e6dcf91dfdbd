package include

import (
	"fmt"
	"regexp"

	"git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/resolve"
)

// Directive is one parsed include occurrence found in a document's text.
type Directive struct {
	Kind    resolve.Kind
	RawPath string

	// Byte offsets of the full directive comment within the scanned text.
	Start int
	End   int
}

// Directives are discovered via pattern matching over the raw text rather
// than a full HTML parse, so they are recognized anywhere in the byte stream.
var (
	// looseDirective catches anything that looks like an include directive,
	// well-formed or not, so malformed attributes can be reported instead of
	// silently passed through to output.
	looseDirective = regexp.MustCompile(`(?i)<!--\s*#include\b[^>]*?-->`)

	// strictDirective validates one loose match:
	// <!--#include file="PATH" --> or <!--#include virtual="PATH" -->,
	// case-insensitive keywords, arbitrary whitespace.
	strictDirective = regexp.MustCompile(`(?i)\A<!--\s*#include\s+(file|virtual)\s*=\s*"([^"]*)"\s*-->\z`)
)

// Parse finds every include directive in text, in source order. A comment
// that opens like an include but has unparseable attributes yields a
// MalformedDirective error.
func Parse(text string) ([]Directive, error) {
	locs := looseDirective.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil, nil
	}

	directives := make([]Directive, 0, len(locs))
	for _, loc := range locs {
		raw := text[loc[0]:loc[1]]
		m := strictDirective.FindStringSubmatch(raw)
		if m == nil {
			return nil, errors.MalformedDirective(fmt.Sprintf("cannot parse attributes in %q", raw))
		}
		kind, err := resolve.ParseKind(m[1])
		if err != nil {
			return nil, err
		}
		if m[2] == "" {
			return nil, errors.MalformedDirective(fmt.Sprintf("empty path in %q", raw))
		}
		directives = append(directives, Directive{
			Kind:    kind,
			RawPath: m[2],
			Start:   loc[0],
			End:     loc[1],
		})
	}
	return directives, nil
}

// DependencyPaths resolves every directive in text against filePath and
// sourceRoot without reading any target file. Used for dependency graph
// computation ahead of an actual expansion.
func DependencyPaths(text, filePath, sourceRoot string) ([]string, error) {
	directives, err := Parse(text)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(directives))
	for _, d := range directives {
		resolved, err := resolve.Resolve(d.Kind, d.RawPath, filePath, sourceRoot)
		if err != nil {
			return nil, err
		}
		paths = append(paths, resolved)
	}
	return paths, nil
}
