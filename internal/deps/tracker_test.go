package deps

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordDependencies_ForwardAndInverseStayInSync(t *testing.T) {
	tr := NewTracker()
	tr.RecordDependencies("/s/index.html", []string{"/s/includes/header.html", "/s/includes/footer.html"})

	require.Equal(t, []string{"/s/includes/footer.html", "/s/includes/header.html"}, tr.Includes("/s/index.html"))
	require.Equal(t, []string{"/s/index.html"}, tr.Dependents("/s/includes/header.html"))
	require.Equal(t, []string{"/s/index.html"}, tr.Dependents("/s/includes/footer.html"))
}

func TestRecordDependencies_ReplacementDropsStaleEdges(t *testing.T) {
	tr := NewTracker()
	tr.RecordDependencies("/s/index.html", []string{"/s/includes/old.html"})
	tr.RecordDependencies("/s/index.html", []string{"/s/includes/new.html"})

	require.Empty(t, tr.Dependents("/s/includes/old.html"))
	require.False(t, tr.IsIncludeFile("/s/includes/old.html"))
	require.Equal(t, []string{"/s/index.html"}, tr.Dependents("/s/includes/new.html"))
}

func TestRecordDependencies_EmptyListPrunesPage(t *testing.T) {
	tr := NewTracker()
	tr.RecordDependencies("/s/index.html", []string{"/s/includes/a.html"})
	tr.RecordDependencies("/s/index.html", nil)

	require.Empty(t, tr.Includes("/s/index.html"))
	require.False(t, tr.IsIncludeFile("/s/includes/a.html"))
	require.False(t, tr.IsMainPage("/s/index.html"))
}

func TestAffectedPages_DirectDependents(t *testing.T) {
	tr := NewTracker()
	tr.RecordDependencies("/s/a.html", []string{"/s/includes/nav.html"})
	tr.RecordDependencies("/s/b.html", []string{"/s/includes/nav.html"})

	require.Equal(t, []string{"/s/a.html", "/s/b.html"}, tr.AffectedPages("/s/includes/nav.html"))
}

func TestAffectedPages_TransitivelyClosed(t *testing.T) {
	// A includes B, B includes C: changing C must return A and B.
	tr := NewTracker()
	tr.RecordDependencies("/s/a.html", []string{"/s/includes/b.html"})
	tr.RecordDependencies("/s/includes/b.html", []string{"/s/includes/c.html"})

	require.Equal(t,
		[]string{"/s/a.html", "/s/includes/b.html"},
		tr.AffectedPages("/s/includes/c.html"))
}

func TestAffectedPages_CyclicGraphTerminates(t *testing.T) {
	tr := NewTracker()
	tr.RecordDependencies("/s/x.html", []string{"/s/y.html"})
	tr.RecordDependencies("/s/y.html", []string{"/s/x.html"})
	tr.RecordDependencies("/s/page.html", []string{"/s/x.html"})

	got := tr.AffectedPages("/s/y.html")
	require.Contains(t, got, "/s/x.html")
	require.Contains(t, got, "/s/page.html")
}

func TestAffectedPages_NoDuplicates(t *testing.T) {
	// page reaches the changed file through two separate partials.
	tr := NewTracker()
	tr.RecordDependencies("/s/page.html", []string{"/s/left.html", "/s/right.html"})
	tr.RecordDependencies("/s/left.html", []string{"/s/deep.html"})
	tr.RecordDependencies("/s/right.html", []string{"/s/deep.html"})

	got := tr.AffectedPages("/s/deep.html")
	require.Equal(t, []string{"/s/left.html", "/s/page.html", "/s/right.html"}, got)
}

func TestAffectedPages_UnknownPathYieldsNothing(t *testing.T) {
	tr := NewTracker()
	require.Empty(t, tr.AffectedPages("/s/never-seen.html"))
}

func TestRemoveFile_DropsAllTouchingEdges(t *testing.T) {
	tr := NewTracker()
	tr.RecordDependencies("/s/a.html", []string{"/s/includes/nav.html"})
	tr.RecordDependencies("/s/b.html", []string{"/s/includes/nav.html"})
	tr.RecordDependencies("/s/includes/nav.html", []string{"/s/includes/icons.html"})

	tr.RemoveFile("/s/includes/nav.html")

	require.Empty(t, tr.AffectedPages("/s/includes/nav.html"))
	require.Empty(t, tr.Includes("/s/a.html"))
	require.Empty(t, tr.Includes("/s/b.html"))
	require.False(t, tr.IsIncludeFile("/s/includes/icons.html"))
}

func TestIsIncludeFileAndIsMainPage(t *testing.T) {
	tr := NewTracker()
	tr.RecordDependencies("/s/index.html", []string{"/s/includes/header.html"})
	tr.RecordDependencies("/s/includes/header.html", []string{"/s/includes/nav.html"})

	require.True(t, tr.IsIncludeFile("/s/includes/header.html"))
	require.True(t, tr.IsIncludeFile("/s/includes/nav.html"))
	require.False(t, tr.IsIncludeFile("/s/index.html"))

	require.True(t, tr.IsMainPage("/s/index.html"))
	require.False(t, tr.IsMainPage("/s/includes/header.html")) // depended upon
	require.False(t, tr.IsMainPage("/s/includes/nav.html"))    // no outgoing deps
}

func TestRecordFromText_ParsesWithoutReadingTargets(t *testing.T) {
	tr := NewTracker()
	root := t.TempDir()
	page := filepath.Join(root, "index.html")

	err := tr.RecordFromText(page,
		`<!--#include virtual="/includes/header.html" --><!--#include file="side.html" -->`,
		root)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "includes", "header.html"),
		filepath.Join(root, "side.html"),
	}, tr.Includes(page))
}

func TestRecordFromText_PropagatesParseErrors(t *testing.T) {
	tr := NewTracker()
	root := t.TempDir()
	err := tr.RecordFromText(filepath.Join(root, "index.html"),
		`<!--#include bogus -->`, root)
	require.Error(t, err)
}

func TestClear_EmptiesBothIndexes(t *testing.T) {
	tr := NewTracker()
	tr.RecordDependencies("/s/a.html", []string{"/s/b.html"})
	tr.Clear()
	require.Empty(t, tr.Includes("/s/a.html"))
	require.False(t, tr.IsIncludeFile("/s/b.html"))
}
