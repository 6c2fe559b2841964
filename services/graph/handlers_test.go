// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphsvc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/buildgraph/pkg/logging"
)

func setupRouter(t *testing.T) (*Service, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := DefaultServiceConfig()
	cfg.KeepGenerations = 0
	svc := NewService(cfg, logging.New(logging.Config{Level: logging.LevelError, Quiet: true}))
	handlers := NewHandlers(svc)

	router := gin.New()
	router.Use(RequestIDMiddleware())
	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return svc, router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func ingestBody(commitID string, added, removed []string, addedEdges, removedEdges [][2]string) map[string]any {
	delta := map[string]any{"commit_id": commitID}
	if added != nil {
		delta["added_targets"] = added
	}
	if removed != nil {
		delta["removed_targets"] = removed
	}
	toEdges := func(pairs [][2]string) []map[string]string {
		out := make([]map[string]string, len(pairs))
		for i, p := range pairs {
			out[i] = map[string]string{"from": p[0], "to": p[1]}
		}
		return out
	}
	if addedEdges != nil {
		delta["added_edges"] = toEdges(addedEdges)
	}
	if removedEdges != nil {
		delta["removed_edges"] = toEdges(removedEdges)
	}
	return map[string]any{"delta": delta}
}

// seedRepo ingests the standard three-commit fixture into repo "demo".
func seedRepo(t *testing.T, router *gin.Engine) {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/commits",
		ingestBody("c1", []string{"//lib:base", "//lib:util"}, nil, nil, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/commits",
		ingestBody("c2", []string{"//app:main"}, nil,
			[][2]string{{"//app:main", "//lib:base"}, {"//app:main", "//lib:util"}}, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/commits",
		ingestBody("c3", nil, []string{"//lib:util"},
			nil, [][2]string{{"//app:main", "//lib:util"}}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHandleIngest(t *testing.T) {
	_, router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/commits",
		ingestBody("c1", []string{"//lib:base"}, nil, nil, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeBody[IngestResponse](t, w)
	assert.Equal(t, "c1", resp.CommitID)
	assert.Equal(t, uint64(1), resp.Generation)
}

func TestHandleIngest_DuplicateCommit(t *testing.T) {
	_, router := setupRouter(t)
	seedRepo(t, router)

	w := doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/commits",
		ingestBody("c1", []string{"//other:thing"}, nil, nil, nil))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_COMMIT", decodeBody[ErrorResponse](t, w).Code)
}

func TestHandleIngest_MalformedLabel(t *testing.T) {
	_, router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/commits",
		ingestBody("c1", []string{"no-slashes"}, nil, nil, nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MALFORMED_TARGET", decodeBody[ErrorResponse](t, w).Code)
}

func TestHandleIngest_MissingCommitID(t *testing.T) {
	_, router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/commits",
		map[string]any{"delta": map[string]any{"added_targets": []string{"//a:a"}}})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleIngest_InvariantViolation(t *testing.T) {
	_, router := setupRouter(t)
	seedRepo(t, router)

	// base is still depended on by main.
	w := doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/commits",
		ingestBody("c4", nil, []string{"//lib:base"}, nil, nil))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "UNKNOWN_TARGET", decodeBody[ErrorResponse](t, w).Code)
}

func TestHandleTargets(t *testing.T) {
	_, router := setupRouter(t)
	seedRepo(t, router)

	w := doJSON(t, router, http.MethodGet, "/v1/graph/repos/demo/commits/c2/targets", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody[TargetsResponse](t, w)
	assert.Equal(t, "c2", resp.CommitID)
	assert.Equal(t, []string{"//app:main", "//lib:base", "//lib:util"}, resp.Targets)

	// c3 removed util; c2's view is unchanged, c3's reflects the removal.
	w = doJSON(t, router, http.MethodGet, "/v1/graph/repos/demo/commits/c3/targets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"//app:main", "//lib:base"},
		decodeBody[TargetsResponse](t, w).Targets)
}

func TestHandleTargets_UnknownRepo(t *testing.T) {
	_, router := setupRouter(t)

	w := doJSON(t, router, http.MethodGet, "/v1/graph/repos/missing/commits/c1/targets", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "UNKNOWN_REPO", decodeBody[ErrorResponse](t, w).Code)
}

func TestHandleTargets_UnknownCommit(t *testing.T) {
	_, router := setupRouter(t)
	seedRepo(t, router)

	w := doJSON(t, router, http.MethodGet, "/v1/graph/repos/demo/commits/nope/targets", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "UNKNOWN_COMMIT", decodeBody[ErrorResponse](t, w).Code)
}

func TestHandleDeps_FirstOrder(t *testing.T) {
	_, router := setupRouter(t)
	seedRepo(t, router)

	w := doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/commits/c2/deps",
		map[string]any{"targets": []string{"//app:main"}})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody[DepsResponse](t, w)
	assert.False(t, resp.Transitive)
	assert.Equal(t, []string{"//lib:base", "//lib:util"}, resp.Deps["//app:main"])
}

func TestHandleDeps_Transitive(t *testing.T) {
	_, router := setupRouter(t)
	seedRepo(t, router)

	w := doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/commits/c3/deps",
		map[string]any{"targets": []string{"//app:main", "//lib:base"}, "transitive": true})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody[DepsResponse](t, w)
	assert.True(t, resp.Transitive)
	assert.Equal(t, []string{"//lib:base"}, resp.Deps["//app:main"])
	assert.Empty(t, resp.Deps["//lib:base"])
}

func TestHandleDeps_EmptyTargets(t *testing.T) {
	_, router := setupRouter(t)
	seedRepo(t, router)

	w := doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/commits/c1/deps",
		map[string]any{"targets": []string{}})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDeps_UnknownRoot(t *testing.T) {
	_, router := setupRouter(t)
	seedRepo(t, router)

	w := doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/commits/c1/deps",
		map[string]any{"targets": []string{"//no:such"}})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "UNKNOWN_TARGET", decodeBody[ErrorResponse](t, w).Code)
}

func TestHandleCompact(t *testing.T) {
	_, router := setupRouter(t)
	seedRepo(t, router)

	// No window supplied and none configured.
	w := doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/compact", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_RETENTION_WINDOW", decodeBody[ErrorResponse](t, w).Code)

	w = doJSON(t, router, http.MethodPost, "/v1/graph/repos/demo/compact",
		map[string]any{"keep_generations": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, decodeBody[CompactResponse](t, w).IntervalsDropped, 0)

	// Compacted commits answer 410; the retained one still works.
	w = doJSON(t, router, http.MethodGet, "/v1/graph/repos/demo/commits/c1/targets", nil)
	require.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "GENERATION_COMPACTED", decodeBody[ErrorResponse](t, w).Code)

	w = doJSON(t, router, http.MethodGet, "/v1/graph/repos/demo/commits/c3/targets", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleStats(t *testing.T) {
	_, router := setupRouter(t)
	seedRepo(t, router)

	w := doJSON(t, router, http.MethodGet, "/v1/graph/repos/demo/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody[StatsResponse](t, w)
	assert.Equal(t, "demo", resp.Repo)
	assert.Equal(t, "c3", resp.LatestCommit)
	assert.Equal(t, uint64(3), resp.LatestGeneration)
	assert.Equal(t, 3, resp.TrackedTargets)
	assert.Equal(t, 2, resp.LiveTargets)
}

func TestHandleListRepos(t *testing.T) {
	_, router := setupRouter(t)
	seedRepo(t, router)

	w := doJSON(t, router, http.MethodPost, "/v1/graph/repos/zoo/commits",
		ingestBody("z1", []string{"//z:z"}, nil, nil, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/graph/repos", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"demo", "zoo"}, decodeBody[ReposResponse](t, w).Repos)
}

func TestHandleHealth(t *testing.T) {
	_, router := setupRouter(t)

	w := doJSON(t, router, http.MethodGet, "/v1/graph/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeBody[HealthResponse](t, w).Status)
}

func TestRequestID_EchoedAndGenerated(t *testing.T) {
	_, router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/graph/health", nil)
	req.Header.Set("X-Request-ID", "client-chosen")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "client-chosen", w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/v1/graph/health", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(1, 2))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	// Burst of 2 admitted, the rest rejected.
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[3])
}
