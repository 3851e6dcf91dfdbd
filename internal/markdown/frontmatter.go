package markdown

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates an opening --- without a closing one.
var ErrMissingClosingDelimiter = errors.New("frontmatter: missing closing delimiter")

var delim = []byte("---\n")

// SplitFrontmatter separates YAML frontmatter (`---` delimited) from the
// markdown body. If the document does not start with a delimiter, had is
// false and body is the full input.
func SplitFrontmatter(content []byte) (frontmatter, body []byte, had bool, err error) {
	if !bytes.HasPrefix(content, delim) {
		return nil, content, false, nil
	}

	rest := content[len(delim):]
	if bytes.HasPrefix(rest, delim) {
		return []byte{}, rest[len(delim):], true, nil
	}

	closeSeq := []byte("\n---\n")
	idx := bytes.Index(rest, closeSeq)
	if idx < 0 {
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	return rest[:idx+1], rest[idx+len(closeSeq):], true, nil
}

// ParseFrontmatter parses raw YAML frontmatter (without delimiters) into a map.
func ParseFrontmatter(frontmatter []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(frontmatter) == 0 {
		return out, nil
	}
	if err := yaml.Unmarshal(frontmatter, &out); err != nil {
		return nil, err
	}
	return out, nil
}
