// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vstore implements the versioned graph store: per-target,
// interval-stamped histories of existence and forward-dependency sets,
// supporting as-of-generation queries with structural sharing across
// generations.
//
// Rather than mutating a live adjacency structure in place (which would
// destroy history), every change closes an old interval and opens a new one.
// A commit whose delta does not mention a target leaves that target's open
// intervals untouched, so per-commit storage cost is proportional to delta
// size, not graph size.
//
// # Append-Only Invariant
//
// Once a later generation has been committed, no recorded interval bound is
// ever mutated other than closing an open end. Already-committed generations
// are therefore immutable and safe to read concurrently with ingestion of
// newer generations; only Compact reclaims them, and the caller must exclude
// readers while it runs.
//
// # Thread Safety
//
// Store is NOT safe for concurrent use on its own. The index package wraps
// it in a reader/writer lock: one writer applies deltas and compacts, many
// readers query.
package vstore

import "errors"

// Sentinel errors for store operations.
var (
	// ErrUnknownTarget is returned when a delta or query references a
	// target with no open existence interval at the relevant generation.
	// For deltas this aborts the whole application; no partial mutation
	// is retained.
	ErrUnknownTarget = errors.New("unknown target at generation")

	// ErrTargetExists is returned when a delta adds a target that already
	// has an open existence interval.
	ErrTargetExists = errors.New("target already exists")

	// ErrNonMonotonicGeneration is returned when ApplyDelta is called with
	// a generation not strictly greater than the last applied one.
	ErrNonMonotonicGeneration = errors.New("generation not strictly increasing")

	// ErrGenerationCompacted is returned when a query references a
	// generation below the retained compaction floor.
	ErrGenerationCompacted = errors.New("generation compacted away")

	// ErrMaxTargetsExceeded is returned when a delta would push the number
	// of live targets past the configured capacity.
	ErrMaxTargetsExceeded = errors.New("maximum live target count exceeded")

	// ErrMaxEdgesExceeded is returned when a delta would push a single
	// target's forward-dependency set past the configured capacity.
	ErrMaxEdgesExceeded = errors.New("maximum dependency count exceeded")
)
