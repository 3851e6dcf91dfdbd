package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func touchFuture(t *testing.T, path string) {
	t.Helper()
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))
}

func TestRebuild_ChangedPageRebuildsOnlyThatPage(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, map[string]string{
		"a.html": `<p>a1</p>`,
		"b.html": `<p>b1</p>`,
	})
	b := NewBuilder(cfg)
	require.False(t, b.FullBuild(context.Background()).Failed())

	aPath := filepath.Join(cfg.Source.Root, "a.html")
	require.NoError(t, os.WriteFile(aPath, []byte(`<p>a2</p>`), 0o600))

	res := b.Rebuild(context.Background(), aPath)
	require.False(t, res.Failed())
	require.True(t, res.Incremental)
	require.Equal(t, 1, res.Processed)
	require.Equal(t, "<p>a2</p>", readOutput(t, cfg, "a.html"))
	require.Equal(t, "<p>b1</p>", readOutput(t, cfg, "b.html"))
}

func TestRebuild_ChangedPartialRebuildsTransitivelyAffectedPages(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, map[string]string{
		"index.html":           `<!--#include virtual="/includes/header.html" -->`,
		"other.html":           `<p>independent</p>`,
		"includes/header.html": `<header><!--#include file="nav.html" --></header>`,
		"includes/nav.html":    `<nav>v1</nav>`,
	})
	b := NewBuilder(cfg)
	require.False(t, b.FullBuild(context.Background()).Failed())

	// Editing the nested partial must rebuild index.html (transitive) only.
	navPath := filepath.Join(cfg.Source.Root, "includes", "nav.html")
	require.NoError(t, os.WriteFile(navPath, []byte(`<nav>v2</nav>`), 0o600))

	res := b.Rebuild(context.Background(), navPath)
	require.False(t, res.Failed())
	require.Equal(t, 1, res.Processed)
	require.Contains(t, readOutput(t, cfg, "index.html"), "<nav>v2</nav>")
}

func TestRebuild_PartialWithNoDependentsRebuildsNothing(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, map[string]string{
		"index.html":           `<p>no includes</p>`,
		"includes/orphan.html": `<p>unused</p>`,
	})
	b := NewBuilder(cfg)
	require.False(t, b.FullBuild(context.Background()).Failed())

	res := b.Rebuild(context.Background(), filepath.Join(cfg.Source.Root, "includes", "orphan.html"))
	require.False(t, res.Failed())
	require.Equal(t, 0, res.Processed)
}

func TestRebuild_ChangedAssetCopiedRegardlessOfReferencedStatus(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, map[string]string{
		"index.html": `<p>no asset refs</p>`,
		"img/x.png":  "v1",
	})
	b := NewBuilder(cfg)
	require.False(t, b.FullBuild(context.Background()).Failed())
	require.False(t, outputExists(cfg, "img/x.png")) // unreferenced, skipped

	assetPath := filepath.Join(cfg.Source.Root, "img", "x.png")
	require.NoError(t, os.WriteFile(assetPath, []byte("v2"), 0o600))

	res := b.Rebuild(context.Background(), assetPath)
	require.False(t, res.Failed())
	require.Equal(t, 1, res.Copied)
	require.Equal(t, "v2", readOutput(t, cfg, "img/x.png"))
}

func TestRebuild_NewlyReferencedAssetCopiedToOutput(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, map[string]string{
		"index.html": `<p>plain</p>`,
		"style.css":  "body{}",
	})
	b := NewBuilder(cfg)
	require.False(t, b.FullBuild(context.Background()).Failed())
	require.False(t, outputExists(cfg, "style.css")) // unreferenced, skipped

	// Edit the page to reference the existing asset for the first time.
	idx := filepath.Join(cfg.Source.Root, "index.html")
	require.NoError(t, os.WriteFile(idx, []byte(`<link rel="stylesheet" href="/style.css">`), 0o600))

	res := b.Rebuild(context.Background(), idx)
	require.False(t, res.Failed())
	require.True(t, b.Assets().IsAssetReferenced(filepath.Join(cfg.Source.Root, "style.css")))
	require.True(t, outputExists(cfg, "style.css"))
	require.Equal(t, 1, res.Copied)

	// A second rebuild finds the copy in place and copies nothing.
	res = b.Rebuild(context.Background(), idx)
	require.False(t, res.Failed())
	require.Equal(t, 0, res.Copied)
}

func TestRebuild_PartialEditBackfillsNewAssetReference(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, map[string]string{
		"about.html":           `<!--#include virtual="/includes/footer.html" -->`,
		"includes/footer.html": `<footer>plain</footer>`,
		"footer.png":           "img",
	})
	b := NewBuilder(cfg)
	require.False(t, b.FullBuild(context.Background()).Failed())
	require.False(t, outputExists(cfg, "footer.png"))

	footer := filepath.Join(cfg.Source.Root, "includes", "footer.html")
	require.NoError(t, os.WriteFile(footer, []byte(`<footer><img src="/footer.png"></footer>`), 0o600))

	res := b.Rebuild(context.Background(), footer)
	require.False(t, res.Failed())
	require.True(t, outputExists(cfg, "footer.png"))
}

func TestRebuild_DeletedPartialRemovesEdgesWithoutDangling(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, map[string]string{
		"index.html":        `<!--#include virtual="/includes/nav.html" -->`,
		"includes/nav.html": `<nav>x</nav>`,
	})
	b := NewBuilder(cfg)
	require.False(t, b.FullBuild(context.Background()).Failed())

	navPath := filepath.Join(cfg.Source.Root, "includes", "nav.html")
	require.NoError(t, os.Remove(navPath))

	res := b.Rebuild(context.Background(), navPath)
	require.False(t, res.Failed())
	require.Empty(t, b.Deps().AffectedPages(navPath))
	require.Empty(t, b.Deps().Includes(filepath.Join(cfg.Source.Root, "index.html")))
}

func TestRebuild_DeletedPageRemovesOutputArtifact(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, map[string]string{
		"gone.html": `<p>bye</p>`,
	})
	b := NewBuilder(cfg)
	require.False(t, b.FullBuild(context.Background()).Failed())
	require.True(t, outputExists(cfg, "gone.html"))

	gonePath := filepath.Join(cfg.Source.Root, "gone.html")
	require.NoError(t, os.Remove(gonePath))

	res := b.Rebuild(context.Background(), gonePath)
	require.False(t, res.Failed())
	require.False(t, outputExists(cfg, "gone.html"))

	// Deleting again (missing output) is not an error.
	res = b.Rebuild(context.Background(), gonePath)
	require.False(t, res.Failed())
}

func TestRebuild_ErrorFallsBackToFullBuild(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, map[string]string{
		"index.html": `<p>v1</p>`,
		"ok.html":    `<p>fine</p>`,
	})
	b := NewBuilder(cfg)
	require.False(t, b.FullBuild(context.Background()).Failed())

	// Break index.html so its incremental rebuild errors.
	idxPath := filepath.Join(cfg.Source.Root, "index.html")
	require.NoError(t, os.WriteFile(idxPath, []byte(`<!--#include file="missing.html" -->`), 0o600))

	res := b.Rebuild(context.Background(), idxPath)
	// Fallback full build ran: result is a full-build result and still
	// reports the failing file.
	require.False(t, res.Incremental)
	require.True(t, res.Failed())
	require.Equal(t, 1, res.Processed) // ok.html rebuilt by the fallback
}

func TestRebuild_EditedPartialDropsStaleAssetReference(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, map[string]string{
		"about.html":           `<!--#include virtual="/includes/footer.html" -->`,
		"includes/footer.html": `<link rel="stylesheet" href="/style.css">`,
		"style.css":            "footer{}",
	})
	b := NewBuilder(cfg)
	require.False(t, b.FullBuild(context.Background()).Failed())
	require.True(t, outputExists(cfg, "style.css"))

	// Edit the footer to remove the stylesheet reference, rebuild about.html.
	footerPath := filepath.Join(cfg.Source.Root, "includes", "footer.html")
	require.NoError(t, os.WriteFile(footerPath, []byte(`<footer>plain</footer>`), 0o600))
	res := b.Rebuild(context.Background(), footerPath)
	require.False(t, res.Failed())

	stylePath := filepath.Join(cfg.Source.Root, "style.css")
	require.False(t, b.Assets().IsAssetReferenced(stylePath))

	// A subsequent full build no longer copies style.css.
	cfg.Output.Clean = true
	require.False(t, b.FullBuild(context.Background()).Failed())
	require.False(t, outputExists(cfg, "style.css"))
}

func TestRebuildModified_DetectsTimestampAdvance(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, map[string]string{
		"a.html": `<p>a1</p>`,
		"b.html": `<p>b1</p>`,
	})
	b := NewBuilder(cfg)
	require.False(t, b.FullBuild(context.Background()).Failed())

	aPath := filepath.Join(cfg.Source.Root, "a.html")
	require.NoError(t, os.WriteFile(aPath, []byte(`<p>a2</p>`), 0o600))
	touchFuture(t, aPath)

	res := b.RebuildModified(context.Background())
	require.False(t, res.Failed())
	require.Equal(t, 1, res.Processed)
	require.Equal(t, "<p>a2</p>", readOutput(t, cfg, "a.html"))
}

func TestRebuildModified_DetectsNewAndDeletedFiles(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, map[string]string{
		"old.html": `<p>old</p>`,
	})
	b := NewBuilder(cfg)
	require.False(t, b.FullBuild(context.Background()).Failed())

	require.NoError(t, os.Remove(filepath.Join(cfg.Source.Root, "old.html")))
	writeSource(t, cfg, map[string]string{"new.html": `<p>new</p>`})

	res := b.RebuildModified(context.Background())
	require.False(t, res.Failed())
	require.True(t, outputExists(cfg, "new.html"))
	require.False(t, outputExists(cfg, "old.html"))
}

func TestRebuild_NewPageDiscoveredWithoutPriorScan(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, map[string]string{
		"index.html": `<p>x</p>`,
	})
	b := NewBuilder(cfg)
	require.False(t, b.FullBuild(context.Background()).Failed())

	writeSource(t, cfg, map[string]string{"fresh.html": `<p>fresh</p>`})
	res := b.Rebuild(context.Background(), filepath.Join(cfg.Source.Root, "fresh.html"))
	require.False(t, res.Failed())
	require.Equal(t, "<p>fresh</p>", readOutput(t, cfg, "fresh.html"))
}
