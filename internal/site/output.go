package site

import (
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/sitemap"
)

// writePage persists a page's final content to the mirrored output path.
func (b *Builder) writePage(pagePath string, content []byte) error {
	rel, err := b.classifier.OutputRelPath(pagePath)
	if err != nil {
		return errors.FileSystem("relpath", pagePath, err)
	}
	out := filepath.Join(b.cfg.Output.Directory, rel)
	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return errors.FileSystem("mkdir", filepath.Dir(out), err)
	}
	if err := os.WriteFile(out, content, 0o644); err != nil {
		return errors.FileSystem("write", out, err)
	}
	return nil
}

// copyAsset copies one asset file into the mirrored output location.
func (b *Builder) copyAsset(assetPath string) error {
	rel, err := filepath.Rel(b.cfg.Source.Root, assetPath)
	if err != nil {
		return errors.FileSystem("relpath", assetPath, err)
	}
	out := filepath.Join(b.cfg.Output.Directory, rel)
	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return errors.FileSystem("mkdir", filepath.Dir(out), err)
	}

	src, err := os.Open(assetPath)
	if err != nil {
		return errors.FileSystem("open", assetPath, err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(out)
	if err != nil {
		return errors.FileSystem("create", out, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return errors.FileSystem("copy", out, err)
	}
	if err := dst.Close(); err != nil {
		return errors.FileSystem("close", out, err)
	}
	b.recorder.AddAssetsCopied(1)
	return nil
}

// removeOutput deletes the output artifact for a deleted source file. A
// missing output file is not an error.
func (b *Builder) removeOutput(sourcePath string) error {
	rel, err := b.classifier.OutputRelPath(sourcePath)
	if err != nil {
		return nil
	}
	out := filepath.Join(b.cfg.Output.Directory, rel)
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return errors.FileSystem("remove", out, err)
	}
	return nil
}

// writeSitemap renders sitemap.xml for the inventoried pages when enabled.
func (b *Builder) writeSitemap(inv *Inventory) error {
	if !b.cfg.Sitemap.Enabled || b.cfg.Sitemap.BaseURL == "" {
		return nil
	}

	pages := make([]sitemap.Page, 0, len(inv.Pages))
	for _, p := range inv.Pages {
		rel, err := b.classifier.OutputRelPath(p)
		if err != nil {
			continue
		}
		entry := sitemap.Page{RelPath: rel}
		if info, err := os.Stat(p); err == nil {
			entry.LastMod = info.ModTime()
		}
		pages = append(pages, entry)
	}

	data, err := sitemap.Generate(b.cfg.Sitemap.BaseURL, pages)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, errors.SeverityError, "sitemap generation failed")
	}
	out := filepath.Join(b.cfg.Output.Directory, "sitemap.xml")
	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return errors.FileSystem("mkdir", filepath.Dir(out), err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return errors.FileSystem("write", out, err)
	}
	return nil
}
