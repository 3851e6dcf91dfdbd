// Package sitemap renders sitemap.xml from the set of built pages.
package sitemap

import (
	"encoding/xml"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Page is one built page to list.
type Page struct {
	// RelPath is the output path relative to the output root, e.g. "blog/post.html".
	RelPath string
	LastMod time.Time
}

type urlEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

// Generate renders a sitemap for pages under baseURL. Page paths are
// NFC-normalized and percent-escaped; ordering is lexical for stable output.
func Generate(baseURL string, pages []Page) ([]byte, error) {
	base := strings.TrimRight(baseURL, "/")

	entries := make([]urlEntry, 0, len(pages))
	for _, p := range pages {
		rel := norm.NFC.String(filepath.ToSlash(p.RelPath))
		loc := base + (&url.URL{Path: "/" + rel}).EscapedPath()
		entry := urlEntry{Loc: loc}
		if !p.LastMod.IsZero() {
			entry.LastMod = p.LastMod.UTC().Format("2006-01-02")
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Loc < entries[j].Loc })

	body, err := xml.MarshalIndent(urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  entries,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}
