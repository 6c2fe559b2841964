// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package commits maintains the bijection between opaque commit identifiers
// and the store's strictly-increasing generations.
//
// Each ingested commit is assigned the next generation, starting at 1;
// generation 0 is reserved for the empty graph. The mapping is immutable
// once recorded: commits are never reassigned or renumbered, so a reader
// that resolves a commit to generation G is guaranteed that all of
// generations 0..G are fully applied.
//
// # Thread Safety
//
// Allocator is NOT safe for concurrent use on its own; the index package
// guards it with the same reader/writer lock as the store.
package commits

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/buildgraph/services/graph/vstore"
)

// Sentinel errors for commit resolution.
var (
	// ErrDuplicateCommit is returned when ingestion replays an already
	// assigned commit identifier. The prior assignment is untouched.
	ErrDuplicateCommit = errors.New("commit already assigned")

	// ErrUnknownCommit is returned when a query references a commit
	// identifier that was never ingested.
	ErrUnknownCommit = errors.New("unknown commit")
)

// Allocator assigns each ingested commit a generation and maintains the
// commit-identifier <-> generation bijection.
type Allocator struct {
	byID  map[string]vstore.Generation
	byGen []string // byGen[g-1] is the commit assigned generation g
}

// NewAllocator creates an empty allocator. The next assigned generation
// is 1.
func NewAllocator() *Allocator {
	return &Allocator{byID: make(map[string]vstore.Generation)}
}

// Has reports whether commitID has already been assigned a generation.
func (a *Allocator) Has(commitID string) bool {
	_, ok := a.byID[commitID]
	return ok
}

// Next returns the generation the next Assign call will mint.
func (a *Allocator) Next() vstore.Generation {
	return vstore.Generation(len(a.byGen)) + 1
}

// Latest returns the highest assigned generation, or 0 if none.
func (a *Allocator) Latest() vstore.Generation {
	return vstore.Generation(len(a.byGen))
}

// Assign mints the next generation for commitID.
//
// Description:
//
//	Extends the bijection with commitID -> Next(). Must be called under
//	the writer's exclusive section, paired atomically with the delta
//	application for the same commit: no generation may exist without a
//	corresponding graph mutation, and vice versa.
//
// Outputs:
//
//	vstore.Generation - The minted generation, strictly increasing and
//	gap-free across calls.
//	error - ErrDuplicateCommit if commitID was already assigned.
func (a *Allocator) Assign(commitID string) (vstore.Generation, error) {
	if g, ok := a.byID[commitID]; ok {
		return 0, fmt.Errorf("%w: %q already generation %d", ErrDuplicateCommit, commitID, g)
	}
	gen := a.Next()
	a.byID[commitID] = gen
	a.byGen = append(a.byGen, commitID)
	return gen, nil
}

// Resolve returns the generation assigned to commitID.
//
// Errors:
//
//	ErrUnknownCommit - commitID was never ingested.
func (a *Allocator) Resolve(commitID string) (vstore.Generation, error) {
	g, ok := a.byID[commitID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCommit, commitID)
	}
	return g, nil
}

// CommitAt returns the commit identifier assigned the given generation,
// the reverse side of the bijection.
func (a *Allocator) CommitAt(gen vstore.Generation) (string, bool) {
	if gen == 0 || gen > a.Latest() {
		return "", false
	}
	return a.byGen[gen-1], true
}
