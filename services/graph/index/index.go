// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/buildgraph/services/graph/commits"
	"github.com/AleutianAI/buildgraph/services/graph/ingest"
	"github.com/AleutianAI/buildgraph/services/graph/query"
	"github.com/AleutianAI/buildgraph/services/graph/target"
	"github.com/AleutianAI/buildgraph/services/graph/vstore"
)

// Index is one repository's versioned build-graph index: the commit
// allocator, the interval-stamped store, and the query engine behind a
// single reader/writer lock.
//
// Each Index is independently owned; tests and tenants create their own
// instances without cross-contamination.
type Index struct {
	name string

	mu     sync.RWMutex
	alloc  *commits.Allocator
	store  *vstore.Store
	engine *query.Engine
}

// New creates an empty index named name (the label used in metrics).
func New(name string, storeOpts ...vstore.Option) *Index {
	store := vstore.NewStore(storeOpts...)
	return &Index{
		name:   name,
		alloc:  commits.NewAllocator(),
		store:  store,
		engine: query.NewEngine(store, query.WithClosureCache(0)),
	}
}

// Name returns the index name.
func (ix *Index) Name() string { return ix.name }

// ReadHandle is a scoped shared acquisition of the index lock.
//
// Every query requires a live handle as proof that the caller holds the
// read side of the lock; Release must be called on all exit paths and is
// idempotent.
type ReadHandle struct {
	ix       *Index
	released atomic.Bool
}

// AcquireReadLock takes a shared acquisition of the index lock and returns
// its scoped handle.
//
// Example:
//
//	h := ix.AcquireReadLock()
//	defer h.Release()
//	targets, err := ix.Targets(h, commitID)
func (ix *Index) AcquireReadLock() *ReadHandle {
	ix.mu.RLock()
	return &ReadHandle{ix: ix}
}

// Release returns the shared acquisition. Safe to call more than once.
func (h *ReadHandle) Release() {
	if h.released.CompareAndSwap(false, true) {
		h.ix.mu.RUnlock()
	}
}

// checkHandle verifies h is a live handle on this index.
func (ix *Index) checkHandle(h *ReadHandle) error {
	if h == nil || h.ix != ix || h.released.Load() {
		return ErrHandleReleased
	}
	return nil
}

// Ingest applies one commit delta as a single atomic unit: the generation
// assignment and the delta application succeed or fail together.
//
// Description:
//
//	Runs under the exclusive lock. The commit identifier is checked for
//	replay before anything else; the delta is then applied under the next
//	generation, and only after it succeeds is the generation recorded in
//	the bijection. A failed delta therefore allocates no generation.
//
// Outputs:
//
//	vstore.Generation - The generation minted for this commit.
//	error - commits.ErrDuplicateCommit on replay; vstore sentinel errors
//	        on delta validation failure. Prior state is never corrupted.
func (ix *Index) Ingest(delta ingest.Resolved) (vstore.Generation, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.alloc.Has(delta.CommitID) {
		ingestFailuresTotal.WithLabelValues(ix.name).Inc()
		return 0, fmt.Errorf("%w: %q", commits.ErrDuplicateCommit, delta.CommitID)
	}

	gen := ix.alloc.Next()
	if err := ix.store.ApplyDelta(gen, delta.Added, delta.Removed, delta.AddedEdges, delta.RemovedEdges); err != nil {
		ingestFailuresTotal.WithLabelValues(ix.name).Inc()
		return 0, err
	}
	if _, err := ix.alloc.Assign(delta.CommitID); err != nil {
		// Unreachable: replay was checked above, under the same lock.
		return 0, err
	}

	commitsIngestedTotal.WithLabelValues(ix.name).Inc()
	deltaOpsTotal.WithLabelValues(ix.name, opTargetsAdded).Add(float64(len(delta.Added)))
	deltaOpsTotal.WithLabelValues(ix.name, opTargetsRemoved).Add(float64(len(delta.Removed)))
	deltaOpsTotal.WithLabelValues(ix.name, opEdgesAdded).Add(float64(len(delta.AddedEdges)))
	deltaOpsTotal.WithLabelValues(ix.name, opEdgesRemoved).Add(float64(len(delta.RemovedEdges)))
	generationsCurrent.WithLabelValues(ix.name).Set(float64(gen))

	return gen, nil
}

// Resolve maps a commit identifier to its generation.
//
// Errors:
//
//	commits.ErrUnknownCommit - commitID was never ingested
func (ix *Index) Resolve(h *ReadHandle, commitID string) (vstore.Generation, error) {
	if err := ix.checkHandle(h); err != nil {
		return 0, err
	}
	return ix.alloc.Resolve(commitID)
}

// Targets returns every target existing at the given commit.
func (ix *Index) Targets(h *ReadHandle, commitID string) (target.Set, error) {
	if err := ix.checkHandle(h); err != nil {
		return nil, err
	}
	defer observe(ix.name, "targets", time.Now())

	gen, err := ix.alloc.Resolve(commitID)
	if err != nil {
		return nil, err
	}
	return ix.engine.GetTargets(gen)
}

// FwdDeps accumulates the immediate forward dependencies of each input
// target at the given commit into acc. Pre-existing accumulator members
// are preserved.
func (ix *Index) FwdDeps(h *ReadHandle, commitID string, targets []target.Target, acc target.Set) error {
	if err := ix.checkHandle(h); err != nil {
		return err
	}
	defer observe(ix.name, "fwd_deps", time.Now())

	gen, err := ix.alloc.Resolve(commitID)
	if err != nil {
		return err
	}
	return ix.engine.GetFwdDeps(gen, targets, acc)
}

// TransitiveDeps returns the transitive closure of forward dependencies of
// t at the given commit, excluding t itself.
func (ix *Index) TransitiveDeps(ctx context.Context, h *ReadHandle, commitID string, t target.Target) (target.Set, error) {
	if err := ix.checkHandle(h); err != nil {
		return nil, err
	}
	defer observe(ix.name, "transitive_deps", time.Now())

	gen, err := ix.alloc.Resolve(commitID)
	if err != nil {
		return nil, err
	}
	return ix.engine.GetTransitiveDeps(ctx, gen, t)
}

// TransitiveDepsMany computes one closure per root concurrently.
func (ix *Index) TransitiveDepsMany(ctx context.Context, h *ReadHandle, commitID string, roots []target.Target) (map[target.Target]target.Set, error) {
	if err := ix.checkHandle(h); err != nil {
		return nil, err
	}
	defer observe(ix.name, "transitive_deps_many", time.Now())

	gen, err := ix.alloc.Resolve(commitID)
	if err != nil {
		return nil, err
	}
	return ix.engine.GetTransitiveDepsMany(ctx, gen, roots)
}

// Compact reclaims history, retaining only the last keepLast generations.
//
// Description:
//
//	Runs under the exclusive lock, so it can never overlap a reader that
//	might still resolve a query against a reclaimed generation. Queries
//	against compacted generations fail with vstore.ErrGenerationCompacted
//	afterwards. The commit bijection is retained in full.
//
// Inputs:
//
//	keepLast - Number of most recent generations to keep readable.
//	           Values below 1 keep only the latest.
//
// Outputs:
//
//	int - Number of intervals reclaimed.
func (ix *Index) Compact(keepLast int) int {
	if keepLast < 1 {
		keepLast = 1
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	latest := ix.alloc.Latest()
	if latest <= vstore.Generation(keepLast) {
		return 0
	}
	floor := latest - vstore.Generation(keepLast) + 1

	dropped := ix.store.Compact(floor)
	ix.engine.PurgeCache()

	compactionsTotal.WithLabelValues(ix.name).Inc()
	intervalsDroppedTotal.WithLabelValues(ix.name).Add(float64(dropped))
	return dropped
}

// LatestCommit returns the most recently ingested commit and its
// generation, or false if nothing was ingested yet.
func (ix *Index) LatestCommit() (string, vstore.Generation, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	latest := ix.alloc.Latest()
	if latest == 0 {
		return "", 0, false
	}
	id, _ := ix.alloc.CommitAt(latest)
	return id, latest, true
}

// Stats returns store statistics.
func (ix *Index) Stats() vstore.Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.store.Stats()
}

// observe records one query duration sample.
func observe(name, kind string, start time.Time) {
	queryDuration.WithLabelValues(name, kind).Observe(time.Since(start).Seconds())
}
