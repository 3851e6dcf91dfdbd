package assets

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// assetExtensions is the fixed set of non-text extensions a generic href/src
// pointer is treated as an asset reference for.
var assetExtensions = map[string]struct{}{
	// Stylesheets and scripts
	".css": {}, ".js": {}, ".mjs": {},
	// Images
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {},
	".webp": {}, ".bmp": {}, ".ico": {}, ".avif": {},
	// Fonts
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {}, ".eot": {},
	// Media
	".mp4": {}, ".webm": {}, ".ogv": {}, ".mp3": {}, ".ogg": {}, ".wav": {},
	// Documents
	".pdf": {},
}

// cssURL matches url(...) references in stylesheets, <style> blocks, inline
// style attributes, and @font-face src lists. Quotes are optional in CSS.
var cssURL = regexp.MustCompile(`(?i)url\(\s*['"]?([^'")]+?)['"]?\s*\)`)

// HasAssetExtension reports whether path ends in one of the tracked asset
// extensions.
func HasAssetExtension(path string) bool {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return false
	}
	_, ok := assetExtensions[strings.ToLower(path[idx:])]
	return ok
}

// extractReferences scans rendered page content for asset-bearing constructs
// and returns the raw reference strings in document order. The HTML pass uses
// the streaming tokenizer; CSS url() references are collected with a regex
// pass over the full text so url(...) inside <style> blocks and inline style
// attributes is caught either way.
func extractReferences(content string) []string {
	var refs []string

	tok := html.NewTokenizer(strings.NewReader(content))
	for {
		tt := tok.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := tok.TagName()
		if !hasAttr {
			continue
		}
		refs = append(refs, tagReferences(string(name), attrMap(tok))...)
	}

	for _, m := range cssURL.FindAllStringSubmatch(content, -1) {
		refs = append(refs, strings.TrimSpace(m[1]))
	}
	return refs
}

func attrMap(tok *html.Tokenizer) map[string]string {
	attrs := make(map[string]string, 4)
	for {
		key, val, more := tok.TagAttr()
		attrs[strings.ToLower(string(key))] = string(val)
		if !more {
			break
		}
	}
	return attrs
}

// tagReferences applies per-element rules: stylesheet links, script sources,
// images, media sources and posters always count; plain anchors and other
// href/src carriers count only when they point at a known asset extension.
func tagReferences(tag string, attrs map[string]string) []string {
	var refs []string
	add := func(v string) {
		if v != "" {
			refs = append(refs, v)
		}
	}

	switch tag {
	case "link":
		rel := strings.ToLower(attrs["rel"])
		if strings.Contains(rel, "stylesheet") || strings.Contains(rel, "icon") ||
			strings.Contains(rel, "preload") || HasAssetExtension(stripQueryFragment(attrs["href"])) {
			add(attrs["href"])
		}
	case "script", "img", "embed", "iframe":
		add(attrs["src"])
		addSrcset(&refs, attrs["srcset"])
	case "audio", "video", "source", "track":
		add(attrs["src"])
		add(attrs["poster"])
		addSrcset(&refs, attrs["srcset"])
	case "object":
		add(attrs["data"])
	default:
		// Generic href/src pointers to known binary extensions.
		if h := attrs["href"]; HasAssetExtension(stripQueryFragment(h)) {
			add(h)
		}
		if s := attrs["src"]; HasAssetExtension(stripQueryFragment(s)) {
			add(s)
		}
	}
	return refs
}

// addSrcset splits a srcset attribute ("url 2x, url 640w") into its URLs.
func addSrcset(refs *[]string, srcset string) {
	if srcset == "" {
		return
	}
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(candidate))
		if len(fields) > 0 {
			*refs = append(*refs, fields[0])
		}
	}
}

func stripQueryFragment(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}
