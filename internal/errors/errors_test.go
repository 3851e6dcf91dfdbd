package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildError_ErrorIncludesCause(t *testing.T) {
	cause := stderrors.New("no such file")
	err := Wrap(cause, KindFileSystem, SeverityError, "read index.html")
	require.Contains(t, err.Error(), "filesystem")
	require.Contains(t, err.Error(), "no such file")
	require.True(t, stderrors.Is(err, cause))
}

func TestIsKind_MatchesOnlySameKind(t *testing.T) {
	err := PathTraversal("../../etc/passwd", "/etc/passwd", "/srv/site")
	require.True(t, IsKind(err, KindPathTraversal))
	require.False(t, IsKind(err, KindIncludeNotFound))
	require.False(t, IsKind(stderrors.New("plain"), KindPathTraversal))
}

func TestGetKind_FallsBackToInternal(t *testing.T) {
	require.Equal(t, KindInternal, GetKind(stderrors.New("plain")))
	require.Equal(t, KindCircularDependency, GetKind(CircularDependency([]string{"a", "b", "a"})))
}

func TestCircularDependency_NamesFullChain(t *testing.T) {
	err := CircularDependency([]string{"a.html", "b.html", "a.html"})
	require.Contains(t, err.Error(), "a.html -> b.html -> a.html")
}

func TestAggregate_EmptyIsNil(t *testing.T) {
	require.NoError(t, Aggregate(nil))
	require.NoError(t, Aggregate([]FileError{}))
}

func TestAggregate_ReportsEveryFile(t *testing.T) {
	err := Aggregate([]FileError{
		{File: "a.html", Err: stderrors.New("boom")},
		{File: "b.html", Err: stderrors.New("bang")},
	})
	require.Error(t, err)
	var agg *AggregateError
	require.True(t, stderrors.As(err, &agg))
	require.Len(t, agg.Files, 2)
	require.Contains(t, err.Error(), "a.html")
	require.Contains(t, err.Error(), "b.html")
}

func TestWithContext_AccumulatesFields(t *testing.T) {
	err := New(KindConfig, SeverityFatal, "bad config").
		WithContext("path", "sitegen.yaml").
		WithContext("line", 4)
	require.Equal(t, "sitegen.yaml", err.Context["path"])
	require.Equal(t, 4, err.Context["line"])
}
