// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vstore

import (
	"fmt"

	"github.com/AleutianAI/buildgraph/services/graph/target"
)

// Store holds, per target, an interval-stamped history of existence and
// forward-dependency sets, enabling as-of-generation lookups with structural
// sharing across generations.
//
// Thread Safety:
//
//	NOT safe for concurrent use. The index package serializes one writer
//	against many readers; see the package documentation.
type Store struct {
	// records maps each target ever seen to its full history.
	records map[target.Target]*record

	// rdeps tracks, for the current (latest) generation only, which live
	// targets depend on each target. It lets a delta that removes a target
	// verify in O(delta) that no surviving edge still points at it.
	rdeps map[target.Target]target.Set

	// live counts targets with an open existence interval.
	live int

	// lastGen is the highest generation applied so far.
	lastGen Generation

	// floor is the compaction floor; generations below it were reclaimed.
	floor Generation

	options Options
}

// NewStore creates an empty store representing generation 0 (no targets,
// no edges).
func NewStore(opts ...Option) *Store {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Store{
		records: make(map[target.Target]*record),
		rdeps:   make(map[target.Target]target.Set),
		options: options,
	}
}

// LastGeneration returns the highest generation applied so far.
func (s *Store) LastGeneration() Generation { return s.lastGen }

// Floor returns the compaction floor. Generations below the floor are no
// longer queryable.
func (s *Store) Floor() Generation { return s.floor }

// ApplyDelta commits one graph delta under the given generation.
//
// Description:
//
//	Added targets open a new existence interval at gen with an empty
//	dependency set. Removed targets close their open interval at gen (the
//	target is absent from gen onward until re-added). An added edge (A,B)
//	closes A's open dependency interval at gen and opens a new one with B
//	included; a removed edge symmetrically excludes B. Edges may reference
//	targets added in the same delta.
//
//	The delta is atomic: every reference is validated before any interval
//	state is mutated, so a failed call retains no partial mutation.
//
// Inputs:
//
//	gen - The generation to commit under. Must be strictly greater than
//	      the last applied generation.
//	added, removed - Targets appearing in / disappearing from the graph.
//	addedEdges, removedEdges - Forward-dependency edge changes. Removing a
//	      target requires its surviving incoming edges to be named in
//	      removedEdges; a dangling reference fails the delta.
//
// Outputs:
//
//	error - Non-nil if validation fails; the store is unchanged.
//
// Errors:
//
//	ErrNonMonotonicGeneration - gen not strictly greater than the last
//	ErrTargetExists - added target already live, or duplicated in delta
//	ErrUnknownTarget - removal or edge references a target with no open
//	                   existence interval at gen
//	ErrMaxTargetsExceeded, ErrMaxEdgesExceeded - capacity
//
// Behavior notes:
//
//	Adding an edge already present, or removing one not present, is a
//	no-op: deltas are machine-generated diffs and duplicate edge facts
//	carry no information, so they create no interval churn.
func (s *Store) ApplyDelta(gen Generation, added, removed []target.Target, addedEdges, removedEdges []target.Edge) error {
	if gen <= s.lastGen {
		return fmt.Errorf("%w: got %d, last applied %d", ErrNonMonotonicGeneration, gen, s.lastGen)
	}

	// ---- Validation phase: no mutation below until every check passes ----

	addedSet := target.NewSet()
	for _, t := range added {
		if addedSet.Contains(t) {
			return fmt.Errorf("%w: %s duplicated in delta", ErrTargetExists, t)
		}
		if s.isLive(t) {
			return fmt.Errorf("%w: %s", ErrTargetExists, t)
		}
		addedSet.Add(t)
	}

	removedSet := target.NewSet()
	for _, t := range removed {
		if addedSet.Contains(t) {
			return fmt.Errorf("%w: %s added in the same delta cannot be removed", ErrUnknownTarget, t)
		}
		if removedSet.Contains(t) || !s.isLive(t) {
			return fmt.Errorf("%w: %s", ErrUnknownTarget, t)
		}
		removedSet.Add(t)
	}

	if s.live+addedSet.Len()-removedSet.Len() > s.options.MaxTargets {
		return fmt.Errorf("%w: limit %d", ErrMaxTargetsExceeded, s.options.MaxTargets)
	}

	liveAfter := func(t target.Target) bool {
		if removedSet.Contains(t) {
			return false
		}
		return s.isLive(t) || addedSet.Contains(t)
	}

	addsPerSource := make(map[target.Target]int)
	for _, e := range addedEdges {
		if !liveAfter(e.From) {
			return fmt.Errorf("%w: edge source %s", ErrUnknownTarget, e.From)
		}
		if !liveAfter(e.To) {
			return fmt.Errorf("%w: edge target %s", ErrUnknownTarget, e.To)
		}
		addsPerSource[e.From]++
	}
	for from, n := range addsPerSource {
		base := 0
		if rec, ok := s.records[from]; ok && rec.isLive() {
			base = rec.currentDeps().Len()
		}
		if base+n > s.options.MaxDepsPerTarget {
			return fmt.Errorf("%w: %s: limit %d", ErrMaxEdgesExceeded, from, s.options.MaxDepsPerTarget)
		}
	}

	removedEdgeSet := make(map[target.Edge]struct{}, len(removedEdges))
	for _, e := range removedEdges {
		removedEdgeSet[e] = struct{}{}
	}

	// A removed target must have no surviving dependents: every current
	// incoming edge must either be removed in this delta or originate from
	// a target removed in this delta.
	for t := range removedSet {
		for from := range s.rdeps[t] {
			if removedSet.Contains(from) {
				continue
			}
			if _, ok := removedEdgeSet[target.Edge{From: from, To: t}]; ok {
				continue
			}
			return fmt.Errorf("%w: %s removed while still depended on by %s", ErrUnknownTarget, t, from)
		}
	}

	// ---- Mutation phase ----

	for _, e := range removedEdges {
		rec, ok := s.records[e.From]
		if !ok || !rec.isLive() {
			continue
		}
		if !rec.currentDeps().Contains(e.To) {
			continue
		}
		delete(rec.mutableDeps(gen), e.To)
		s.dropDependent(e.To, e.From)
	}

	for t := range removedSet {
		rec := s.records[t]
		for dep := range rec.currentDeps() {
			s.dropDependent(dep, t)
		}
		rec.close(gen)
		s.live--
	}
	for t := range removedSet {
		delete(s.rdeps, t)
	}

	for t := range addedSet {
		rec, ok := s.records[t]
		if !ok {
			rec = &record{}
			s.records[t] = rec
		}
		rec.open(gen)
		s.live++
	}

	for _, e := range addedEdges {
		rec := s.records[e.From]
		if rec.currentDeps().Contains(e.To) {
			continue
		}
		rec.mutableDeps(gen).Add(e.To)
		dependents, ok := s.rdeps[e.To]
		if !ok {
			dependents = target.NewSet()
			s.rdeps[e.To] = dependents
		}
		dependents.Add(e.From)
	}

	s.lastGen = gen
	return nil
}

// TargetsAsOf returns every target whose existence interval covers gen.
//
// Errors:
//
//	ErrGenerationCompacted - gen is below the compaction floor
func (s *Store) TargetsAsOf(gen Generation) (target.Set, error) {
	if gen < s.floor {
		return nil, fmt.Errorf("%w: generation %d below floor %d", ErrGenerationCompacted, gen, s.floor)
	}
	out := target.NewSet()
	for t, rec := range s.records {
		if rec.coveringExistence(gen) >= 0 {
			out.Add(t)
		}
	}
	return out, nil
}

// DepsAsOf returns the forward-dependency set attached to the dependency
// interval covering gen for t. The result is a defensive copy; it is empty
// (not nil) when the target exists but has no recorded edges at gen.
//
// Errors:
//
//	ErrUnknownTarget - t has no existence interval covering gen
//	ErrGenerationCompacted - gen is below the compaction floor
func (s *Store) DepsAsOf(gen Generation, t target.Target) (target.Set, error) {
	if gen < s.floor {
		return nil, fmt.Errorf("%w: generation %d below floor %d", ErrGenerationCompacted, gen, s.floor)
	}
	rec, ok := s.records[t]
	if !ok || rec.coveringExistence(gen) < 0 {
		return nil, fmt.Errorf("%w: %s at generation %d", ErrUnknownTarget, t, gen)
	}
	if i := rec.coveringDeps(gen); i >= 0 {
		return rec.deps[i].deps.Clone(), nil
	}
	return target.NewSet(), nil
}

// Compact drops every interval that lies wholly below the retained floor.
//
// Description:
//
//	Intervals with End <= floor never cover a retained generation and are
//	discarded; intervals straddling the floor are kept whole. Targets left
//	with no history are forgotten entirely. Queries for generations below
//	the new floor fail with ErrGenerationCompacted afterwards.
//
//	The caller must exclude all readers while Compact runs: it reclaims
//	storage a reader might still be resolving a query against.
//
// Inputs:
//
//	floor - The lowest generation to retain. A floor at or below the
//	        current one is a no-op.
//
// Outputs:
//
//	int - Number of intervals dropped.
func (s *Store) Compact(floor Generation) int {
	if floor <= s.floor {
		return 0
	}
	dropped := 0
	for t, rec := range s.records {
		ex := rec.existence[:0]
		for _, iv := range rec.existence {
			if !iv.IsOpen() && iv.End <= floor {
				dropped++
				continue
			}
			ex = append(ex, iv)
		}
		rec.existence = ex

		ds := rec.deps[:0]
		for _, di := range rec.deps {
			if !di.span.IsOpen() && di.span.End <= floor {
				dropped++
				continue
			}
			ds = append(ds, di)
		}
		rec.deps = ds

		if len(rec.existence) == 0 && len(rec.deps) == 0 {
			delete(s.records, t)
		}
	}
	s.floor = floor
	return dropped
}

// Stats returns statistics about the store.
func (s *Store) Stats() Stats {
	st := Stats{
		TrackedTargets: len(s.records),
		LiveTargets:    s.live,
		LastGeneration: s.lastGen,
		Floor:          s.floor,
	}
	for _, rec := range s.records {
		st.ExistenceIntervals += len(rec.existence)
		st.DependencyIntervals += len(rec.deps)
	}
	return st
}

// isLive reports whether t has an open existence interval.
func (s *Store) isLive(t target.Target) bool {
	rec, ok := s.records[t]
	return ok && rec.isLive()
}

// dropDependent removes from from the dependent set of to, deleting the
// entry when it empties.
func (s *Store) dropDependent(to, from target.Target) {
	dependents, ok := s.rdeps[to]
	if !ok {
		return
	}
	delete(dependents, from)
	if dependents.Len() == 0 {
		delete(s.rdeps, to)
	}
}
