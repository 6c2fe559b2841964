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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/buildgraph/services/graph/commits"
	"github.com/AleutianAI/buildgraph/services/graph/index"
	"github.com/AleutianAI/buildgraph/services/graph/ingest"
	"github.com/AleutianAI/buildgraph/services/graph/target"
	"github.com/AleutianAI/buildgraph/services/graph/vstore"
)

// Handlers contains the HTTP handlers for the graph service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleIngest handles POST /v1/graph/repos/:repo/commits.
//
// Description:
//
//	Applies one commit delta to the named repository index. The delta
//	is validated in full before any mutation; on rejection the index is
//	unchanged and the commit identifier stays unassigned.
//
// Request Body:
//
//	IngestRequest
//
// Response:
//
//	200 OK: IngestResponse
//	400 Bad Request: Malformed body or target label
//	409 Conflict: Commit identifier already ingested
//	422 Unprocessable Entity: Delta violates a graph invariant
func (h *Handlers) HandleIngest(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	repo := c.Param("repo")
	logger := slog.With("request_id", requestID, "handler", "HandleIngest", "repo", repo)

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if req.Delta.CommitID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "delta missing commit_id",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	resolved, err := ingest.Resolve(req.Delta)
	if err != nil {
		logger.Warn("Malformed delta", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "MALFORMED_TARGET",
		})
		return
	}

	ix := h.svc.Registry().GetOrCreate(repo)
	gen, err := ix.Ingest(resolved)
	if err != nil {
		status, code := statusFor(err)
		logger.Warn("Ingest rejected", "commit_id", resolved.CommitID, "error", err)
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	logger.Info("Commit ingested",
		"commit_id", resolved.CommitID,
		"generation", uint64(gen),
		"targets_added", len(resolved.Added),
		"targets_removed", len(resolved.Removed),
		"edges_added", len(resolved.AddedEdges),
		"edges_removed", len(resolved.RemovedEdges))

	c.JSON(http.StatusOK, IngestResponse{
		CommitID:   resolved.CommitID,
		Generation: uint64(gen),
	})
}

// HandleTargets handles GET /v1/graph/repos/:repo/commits/:id/targets.
//
// Description:
//
//	Lists every target alive at the named commit, as observed at its
//	generation regardless of later history.
//
// Response:
//
//	200 OK: TargetsResponse
//	404 Not Found: Unknown repository or commit
//	410 Gone: Commit's generation was compacted away
func (h *Handlers) HandleTargets(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	repo := c.Param("repo")
	commitID := c.Param("id")
	logger := slog.With("request_id", requestID, "handler", "HandleTargets", "repo", repo)

	ix, ok := h.svc.Registry().Get(repo)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "unknown repository: " + repo,
			Code:  "UNKNOWN_REPO",
		})
		return
	}

	handle := ix.AcquireReadLock()
	defer handle.Release()

	set, err := ix.Targets(handle, commitID)
	if err != nil {
		status, code := statusFor(err)
		logger.Warn("Targets query failed", "commit_id", commitID, "error", err)
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	c.JSON(http.StatusOK, TargetsResponse{
		CommitID: commitID,
		Targets:  labels(set),
	})
}

// HandleDeps handles POST /v1/graph/repos/:repo/commits/:id/deps.
//
// Description:
//
//	Resolves dependencies of the requested roots as of the named
//	commit. With transitive=false each root maps to its first-order
//	dependencies; with transitive=true each root maps to its full
//	closure (root excluded, cycles handled).
//
// Request Body:
//
//	DepsRequest
//
// Response:
//
//	200 OK: DepsResponse
//	400 Bad Request: Malformed body or target label
//	404 Not Found: Unknown repository or commit
//	410 Gone: Commit's generation was compacted away
//	422 Unprocessable Entity: A root does not exist at the commit
func (h *Handlers) HandleDeps(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	repo := c.Param("repo")
	commitID := c.Param("id")
	logger := slog.With("request_id", requestID, "handler", "HandleDeps", "repo", repo)

	var req DepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	roots := make([]target.Target, 0, len(req.Targets))
	for _, label := range req.Targets {
		t, err := target.Parse(label)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "MALFORMED_TARGET",
			})
			return
		}
		roots = append(roots, t)
	}

	ix, ok := h.svc.Registry().Get(repo)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "unknown repository: " + repo,
			Code:  "UNKNOWN_REPO",
		})
		return
	}

	handle := ix.AcquireReadLock()
	defer handle.Release()

	deps := make(map[string][]string, len(roots))
	if req.Transitive {
		closures, err := ix.TransitiveDepsMany(c.Request.Context(), handle, commitID, roots)
		if err != nil {
			status, code := statusFor(err)
			logger.Warn("Transitive deps query failed", "commit_id", commitID, "error", err)
			c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
			return
		}
		for root, closure := range closures {
			deps[root.String()] = labels(closure)
		}
	} else {
		for _, root := range roots {
			acc := target.NewSet()
			if err := ix.FwdDeps(handle, commitID, []target.Target{root}, acc); err != nil {
				status, code := statusFor(err)
				logger.Warn("Forward deps query failed",
					"commit_id", commitID, "target", root.String(), "error", err)
				c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
				return
			}
			deps[root.String()] = labels(acc)
		}
	}

	logger.Info("Deps resolved",
		"commit_id", commitID,
		"roots", len(roots),
		"transitive", req.Transitive)

	c.JSON(http.StatusOK, DepsResponse{
		CommitID:   commitID,
		Transitive: req.Transitive,
		Deps:       deps,
	})
}

// HandleCompact handles POST /v1/graph/repos/:repo/compact.
//
// Description:
//
//	Discards history below a retention floor so only the most recent
//	KeepGenerations generations stay queryable. Runs under the write
//	lock; concurrent readers see either the old history or the
//	compacted one, never a partial state.
//
// Request Body:
//
//	CompactRequest (optional; empty body uses the service default)
//
// Response:
//
//	200 OK: CompactResponse
//	400 Bad Request: No retention window configured or supplied
//	404 Not Found: Unknown repository
func (h *Handlers) HandleCompact(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	repo := c.Param("repo")
	logger := slog.With("request_id", requestID, "handler", "HandleCompact", "repo", repo)

	var req CompactRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "Invalid request body",
				Code:  "INVALID_REQUEST",
			})
			return
		}
	}

	keep := req.KeepGenerations
	if keep <= 0 {
		keep = h.svc.config.KeepGenerations
	}
	if keep <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "no retention window supplied and none configured",
			Code:  "NO_RETENTION_WINDOW",
		})
		return
	}

	ix, ok := h.svc.Registry().Get(repo)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "unknown repository: " + repo,
			Code:  "UNKNOWN_REPO",
		})
		return
	}

	dropped := ix.Compact(keep)
	logger.Info("Compaction finished", "keep_generations", keep, "intervals_dropped", dropped)

	c.JSON(http.StatusOK, CompactResponse{
		Repo:             repo,
		IntervalsDropped: dropped,
	})
}

// HandleStats handles GET /v1/graph/repos/:repo/stats.
func (h *Handlers) HandleStats(c *gin.Context) {
	repo := c.Param("repo")

	ix, ok := h.svc.Registry().Get(repo)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "unknown repository: " + repo,
			Code:  "UNKNOWN_REPO",
		})
		return
	}

	stats := ix.Stats()
	resp := StatsResponse{
		Repo:                repo,
		TrackedTargets:      stats.TrackedTargets,
		LiveTargets:         stats.LiveTargets,
		ExistenceIntervals:  stats.ExistenceIntervals,
		DependencyIntervals: stats.DependencyIntervals,
	}
	if commitID, gen, ok := ix.LatestCommit(); ok {
		resp.LatestCommit = commitID
		resp.LatestGeneration = uint64(gen)
	}

	c.JSON(http.StatusOK, resp)
}

// HandleListRepos handles GET /v1/graph/repos.
func (h *Handlers) HandleListRepos(c *gin.Context) {
	c.JSON(http.StatusOK, ReposResponse{Repos: h.svc.Registry().Names()})
}

// HandleHealth handles GET /v1/graph/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// statusFor maps domain sentinels to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, commits.ErrDuplicateCommit):
		return http.StatusConflict, "DUPLICATE_COMMIT"
	case errors.Is(err, commits.ErrUnknownCommit):
		return http.StatusNotFound, "UNKNOWN_COMMIT"
	case errors.Is(err, vstore.ErrGenerationCompacted):
		return http.StatusGone, "GENERATION_COMPACTED"
	case errors.Is(err, vstore.ErrUnknownTarget):
		return http.StatusUnprocessableEntity, "UNKNOWN_TARGET"
	case errors.Is(err, vstore.ErrTargetExists):
		return http.StatusUnprocessableEntity, "TARGET_EXISTS"
	case errors.Is(err, vstore.ErrMaxTargetsExceeded),
		errors.Is(err, vstore.ErrMaxEdgesExceeded):
		return http.StatusUnprocessableEntity, "LIMIT_EXCEEDED"
	case errors.Is(err, target.ErrMalformedTarget):
		return http.StatusBadRequest, "MALFORMED_TARGET"
	case errors.Is(err, index.ErrHandleReleased):
		return http.StatusInternalServerError, "HANDLE_RELEASED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// labels renders a target set as sorted label strings.
func labels(set target.Set) []string {
	members := set.Members()
	out := make([]string, len(members))
	for i, t := range members {
		out[i] = t.String()
	}
	return out
}

// getOrCreateRequestID returns the X-Request-ID header, generating one
// if the client did not send it. The ID is echoed on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
