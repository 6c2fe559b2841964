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
	"github.com/AleutianAI/buildgraph/services/graph/ingest"
)

// IngestRequest is the body of POST /v1/graph/repos/:repo/commits.
//
// The delta is applied atomically: either every listed mutation lands
// under one new generation or the commit is rejected unchanged.
type IngestRequest struct {
	// Delta is the commit delta in wire form.
	Delta ingest.CommitDelta `json:"delta" binding:"required"`
}

// IngestResponse is returned after a successful ingest.
type IngestResponse struct {
	// CommitID echoes the ingested commit identifier.
	CommitID string `json:"commit_id"`

	// Generation is the generation assigned to the commit.
	Generation uint64 `json:"generation"`
}

// TargetsResponse is returned by the as-of target listing.
type TargetsResponse struct {
	// CommitID echoes the queried commit.
	CommitID string `json:"commit_id"`

	// Targets lists all target labels alive at the commit, sorted.
	Targets []string `json:"targets"`
}

// DepsRequest is the body of POST /v1/graph/repos/:repo/commits/:id/deps.
type DepsRequest struct {
	// Targets lists the root target labels to resolve.
	Targets []string `json:"targets" binding:"required,min=1"`

	// Transitive selects full closure resolution instead of first-order
	// dependencies.
	Transitive bool `json:"transitive"`
}

// DepsResponse maps each requested root to its resolved dependencies.
type DepsResponse struct {
	// CommitID echoes the queried commit.
	CommitID string `json:"commit_id"`

	// Transitive echoes the requested resolution mode.
	Transitive bool `json:"transitive"`

	// Deps maps each root label to its dependency labels, sorted. The
	// root itself never appears in its own list.
	Deps map[string][]string `json:"deps"`
}

// CompactRequest is the body of POST /v1/graph/repos/:repo/compact.
type CompactRequest struct {
	// KeepGenerations is the number of most recent generations to keep
	// queryable. Zero falls back to the service default.
	KeepGenerations int `json:"keep_generations" binding:"omitempty,min=1"`
}

// CompactResponse reports the outcome of a compaction run.
type CompactResponse struct {
	// Repo echoes the compacted repository.
	Repo string `json:"repo"`

	// IntervalsDropped is the number of history intervals discarded.
	IntervalsDropped int `json:"intervals_dropped"`
}

// StatsResponse reports storage statistics for one repository index.
type StatsResponse struct {
	// Repo is the repository name.
	Repo string `json:"repo"`

	// LatestCommit is the most recently ingested commit, empty if none.
	LatestCommit string `json:"latest_commit,omitempty"`

	// LatestGeneration is the generation of the latest commit.
	LatestGeneration uint64 `json:"latest_generation"`

	// TrackedTargets is the number of targets with recorded history.
	TrackedTargets int `json:"tracked_targets"`

	// LiveTargets is the number of currently existing targets.
	LiveTargets int `json:"live_targets"`

	// ExistenceIntervals is the total existence interval count.
	ExistenceIntervals int `json:"existence_intervals"`

	// DependencyIntervals is the total dependency interval count.
	DependencyIntervals int `json:"dependency_intervals"`
}

// ReposResponse lists the known repository indexes.
type ReposResponse struct {
	Repos []string `json:"repos"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the JSON error envelope for all endpoints.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code"`
}
