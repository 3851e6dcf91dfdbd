// Package markdown converts markdown page sources to standalone HTML
// documents. Include expansion runs on the raw markdown body before
// conversion; this package never sees unexpanded directives.
package markdown

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Converter renders markdown bodies into full HTML documents.
type Converter struct {
	md            goldmark.Markdown
	fallbackTitle string
}

// NewConverter creates a Converter. fallbackTitle is used when a document's
// frontmatter carries no title.
func NewConverter(fallbackTitle string) *Converter {
	return &Converter{
		// Expanded includes can inject raw HTML into the body; rendering
		// must pass it through rather than escape it.
		md:            goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe())),
		fallbackTitle: fallbackTitle,
	}
}

// Convert splits frontmatter, renders the body, and wraps it in a minimal
// HTML5 shell titled from frontmatter (falling back to the configured title).
func (c *Converter) Convert(source []byte) ([]byte, error) {
	fm, body, had, err := SplitFrontmatter(source)
	if err != nil {
		return nil, err
	}

	title := c.fallbackTitle
	description := ""
	if had {
		meta, err := ParseFrontmatter(fm)
		if err != nil {
			return nil, fmt.Errorf("parse frontmatter: %w", err)
		}
		if v, ok := meta["title"].(string); ok && v != "" {
			title = v
		}
		if v, ok := meta["description"].(string); ok {
			description = v
		}
	}

	var rendered bytes.Buffer
	if err := c.md.Convert(body, &rendered); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", html.EscapeString(title))
	if description != "" {
		fmt.Fprintf(&out, "<meta name=\"description\" content=\"%s\">\n", html.EscapeString(description))
	}
	out.WriteString("</head>\n<body>\n")
	out.Write(rendered.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}
