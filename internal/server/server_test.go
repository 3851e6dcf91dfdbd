package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/history"
	"git.home.luguber.info/inful/sitegen/internal/server/responses"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Source: config.SourceConfig{Root: t.TempDir(), IncludesDir: "includes"},
		Output: config.OutputConfig{Directory: filepath.Join(t.TempDir(), "public")},
	}
	srv, err := New(cfg, site.NewBuilder(cfg), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.store.Close() })
	return srv
}

func TestHandleStatus_BeforeAnyBuild(t *testing.T) {
	srv := testServer(t)

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var status responses.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "starting", status.Status)
	require.Nil(t, status.LastBuild)
}

func TestHandleStatus_ReflectsLastBuild(t *testing.T) {
	srv := testServer(t)

	res := srv.builder.FullBuild(context.Background())
	srv.recordResult(context.Background(), res)

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var status responses.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "ok", status.Status)
	require.NotNil(t, status.LastBuild)
	require.Equal(t, res.BuildID, status.LastBuild.BuildID)
}

func TestHandleBuilds_ReturnsRecordedHistory(t *testing.T) {
	srv := testServer(t)

	for i := 0; i < 3; i++ {
		res := srv.builder.FullBuild(context.Background())
		srv.recordResult(context.Background(), res)
	}

	rec := httptest.NewRecorder()
	srv.handleBuilds(rec, httptest.NewRequest(http.MethodGet, "/api/builds", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var entries []history.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
}
