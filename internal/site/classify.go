package site

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitegen/internal/assets"
	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/resolve"
)

// FileClass is the scan-time classification of a source file. Files are
// reclassified only by directory location and naming, never by content.
type FileClass int

const (
	ClassIgnored FileClass = iota
	ClassPage              // produces an output artifact
	ClassPartial           // include-only, excluded from output
	ClassAsset             // copied verbatim if referenced
)

func (c FileClass) String() string {
	switch c {
	case ClassPage:
		return "page"
	case ClassPartial:
		return "partial"
	case ClassAsset:
		return "asset"
	default:
		return "ignored"
	}
}

// contentExtensions mark files processed as pages (or partials, by location).
var contentExtensions = map[string]struct{}{
	".html": {}, ".htm": {}, ".shtml": {},
	".md": {}, ".markdown": {},
	".txt": {},
}

// Classifier assigns a FileClass to paths under one source root.
type Classifier struct {
	root        string
	includesDir string
	outputDir   string
	cfg         *config.Config
}

// NewClassifier builds a Classifier from the loaded configuration.
func NewClassifier(cfg *config.Config) *Classifier {
	return &Classifier{
		root:        filepath.Clean(cfg.Source.Root),
		includesDir: cfg.Source.IncludesDir,
		outputDir:   filepath.Clean(cfg.Output.Directory),
		cfg:         cfg,
	}
}

// Classify maps an absolute path to its FileClass.
func (c *Classifier) Classify(absPath string) FileClass {
	path := filepath.Clean(absPath)
	if !resolve.WithinRoot(path, c.root) {
		return ClassIgnored
	}
	// Output nested inside the source root must never be re-scanned as input.
	if resolve.WithinRoot(path, c.outputDir) {
		return ClassIgnored
	}

	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return ClassIgnored
	}

	segments := strings.Split(filepath.ToSlash(rel), "/")
	for _, seg := range segments {
		if strings.HasPrefix(seg, ".") {
			return ClassIgnored
		}
	}
	if c.cfg.ShouldExclude(rel) {
		return ClassIgnored
	}

	// Partial convention: inside the includes directory, or filename
	// prefixed with underscore.
	base := segments[len(segments)-1]
	for _, seg := range segments[:len(segments)-1] {
		if seg == c.includesDir {
			return ClassPartial
		}
	}
	if strings.HasPrefix(base, "_") {
		return ClassPartial
	}

	ext := strings.ToLower(filepath.Ext(base))
	if _, ok := contentExtensions[ext]; ok {
		return ClassPage
	}
	if assets.HasAssetExtension(base) {
		return ClassAsset
	}
	return ClassIgnored
}

// IsMarkdown reports whether path is converted to HTML at build time.
func IsMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

// OutputRelPath maps a source path to its output path relative to the output
// root. The output tree mirrors the source tree 1:1; markdown pages change
// extension to .html.
func (c *Classifier) OutputRelPath(absPath string) (string, error) {
	rel, err := filepath.Rel(c.root, filepath.Clean(absPath))
	if err != nil {
		return "", err
	}
	if IsMarkdown(rel) {
		rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ".html"
	}
	return rel, nil
}
