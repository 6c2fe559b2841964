// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package query implements the build-graph query engine: point-in-time
// target listings, forward-dependency lookups, and transitive closures
// against the versioned store.
//
// The engine assumes nothing about acyclicity. Transitive traversal tracks
// visited targets explicitly, so a cycle through the root terminates and
// the root is never a member of its own closure.
//
// # Thread Safety
//
// Engine methods only read the store. They are safe for concurrent use as
// long as every call happens under a read acquisition of the index lock;
// see the index package.
package query

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/buildgraph/services/graph/target"
	"github.com/AleutianAI/buildgraph/services/graph/vstore"
)

var tracer = otel.Tracer("aleutian.buildgraph.query")

// Engine runs graph queries against a versioned store for a given
// generation.
type Engine struct {
	store *vstore.Store

	// closures caches transitive closures keyed by (generation, target).
	// Committed generations are immutable, so entries never go stale;
	// only compaction purges them. Nil when caching is disabled.
	closures *lruCache[string, target.Set]

	// flight deduplicates concurrent closure computations for the same
	// (generation, target) pair.
	flight singleflight.Group
}

// EngineOption is a functional option for configuring an Engine.
type EngineOption func(*Engine)

// WithClosureCache enables transitive-closure caching with the given
// capacity. A capacity <= 0 picks a sensible default.
func WithClosureCache(capacity int) EngineOption {
	return func(e *Engine) {
		e.closures = newLRUCache[string, target.Set](capacity)
	}
}

// NewEngine creates an engine over the given store.
func NewEngine(store *vstore.Store, opts ...EngineOption) *Engine {
	e := &Engine{store: store}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetTargets returns every target existing at the given generation.
func (e *Engine) GetTargets(gen vstore.Generation) (target.Set, error) {
	return e.store.TargetsAsOf(gen)
}

// GetFwdDeps accumulates the immediate forward dependencies of each input
// target at the given generation into acc.
//
// Description:
//
//	Pre-existing members of acc are preserved, never removed; callers can
//	thread one accumulator through repeated calls (breadth-first frontier
//	expansion) without reallocation. All inputs are resolved before acc is
//	touched, so a failed call leaves the accumulator unchanged.
//
// Errors:
//
//	vstore.ErrUnknownTarget - any input target is absent at gen
//	vstore.ErrGenerationCompacted - gen is below the compaction floor
func (e *Engine) GetFwdDeps(gen vstore.Generation, targets []target.Target, acc target.Set) error {
	resolved := make([]target.Set, 0, len(targets))
	for _, t := range targets {
		deps, err := e.store.DepsAsOf(gen, t)
		if err != nil {
			return err
		}
		resolved = append(resolved, deps)
	}
	for _, deps := range resolved {
		acc.AddAll(deps)
	}
	return nil
}

// GetTransitiveDeps returns the full transitive closure of forward
// dependencies of t at the given generation, excluding t itself.
//
// Description:
//
//	Breadth-first frontier expansion: each discovered target is expanded
//	at most once, tracked by the visited set, so cycles in the dependency
//	graph terminate and the root never appears in its own closure. The
//	returned set is owned by the caller.
//
//	The context carries the trace span only; an admitted query runs to
//	completion.
//
// Errors:
//
//	vstore.ErrUnknownTarget - t is absent at gen
//	vstore.ErrGenerationCompacted - gen is below the compaction floor
func (e *Engine) GetTransitiveDeps(ctx context.Context, gen vstore.Generation, t target.Target) (target.Set, error) {
	_, span := tracer.Start(ctx, "query.GetTransitiveDeps")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("generation", int64(gen)),
		attribute.String("target", t.String()),
	)

	if e.closures == nil {
		return e.computeClosure(gen, t)
	}

	key := closureKey(gen, t)
	if cached, ok := e.closures.Get(key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached.Clone(), nil
	}

	v, err, _ := e.flight.Do(key, func() (any, error) {
		closure, err := e.computeClosure(gen, t)
		if err != nil {
			return nil, err
		}
		e.closures.Set(key, closure)
		return closure, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(target.Set).Clone(), nil
}

// PurgeCache drops all cached closures. The index calls this after
// compaction, which is the only event that can invalidate entries.
func (e *Engine) PurgeCache() {
	if e.closures != nil {
		e.closures.Purge()
	}
}

// computeClosure runs the frontier expansion. The accumulator doubles as
// the "already expanded" marker: a target enters the next frontier only the
// first time it is discovered.
func (e *Engine) computeClosure(gen vstore.Generation, t target.Target) (target.Set, error) {
	acc := target.NewSet()
	visited := target.NewSet()
	frontier := []target.Target{t}

	for len(frontier) > 0 {
		if err := e.GetFwdDeps(gen, frontier, acc); err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for d := range acc {
			if d == t || visited.Contains(d) {
				continue
			}
			visited.Add(d)
			frontier = append(frontier, d)
		}
	}
	return visited, nil
}

func closureKey(gen vstore.Generation, t target.Target) string {
	return fmt.Sprintf("%d|%s", gen, t)
}
