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
	"math"
	"sort"

	"github.com/AleutianAI/buildgraph/services/graph/target"
)

// Default configuration values.
const (
	// DefaultMaxTargets is the default maximum number of live targets.
	DefaultMaxTargets = 1_000_000

	// DefaultMaxDepsPerTarget is the default maximum forward-dependency
	// set size for a single target.
	DefaultMaxDepsPerTarget = 100_000
)

// Generation is the store's strictly-increasing version number. Each
// ingested commit maps to exactly one generation. Generation 0 is the empty
// graph before any commit is applied.
type Generation uint64

// openGen marks the unbounded end of an interval that is still current.
const openGen = Generation(math.MaxUint64)

// Interval is a half-open generation range [Start, End) over which a fact
// holds. End is unbounded while the fact is still current.
type Interval struct {
	Start Generation
	End   Generation
}

// Covers reports whether g falls inside the interval.
func (iv Interval) Covers(g Generation) bool {
	return g >= iv.Start && g < iv.End
}

// IsOpen reports whether the interval's end is still unbounded.
func (iv Interval) IsOpen() bool {
	return iv.End == openGen
}

// String renders the interval as [start, end) or [start, ∞).
func (iv Interval) String() string {
	if iv.IsOpen() {
		return fmt.Sprintf("[%d, ∞)", iv.Start)
	}
	return fmt.Sprintf("[%d, %d)", iv.Start, iv.End)
}

// depInterval pairs an interval with the dependency set that held
// throughout it. The set changes only at interval boundaries, which are
// commit boundaries.
type depInterval struct {
	span Interval
	deps target.Set
}

// record holds one target's full history: the ordered, non-overlapping
// intervals during which it existed, and the ordered, non-overlapping
// (interval, dependency set) pairs. A target removed and later re-added has
// multiple disjoint existence intervals.
type record struct {
	existence []Interval
	deps      []depInterval
}

// coveringExistence returns the index of the existence interval covering g,
// or -1. Intervals are ordered by start, so this is a binary search.
func (r *record) coveringExistence(g Generation) int {
	i := sort.Search(len(r.existence), func(i int) bool {
		return r.existence[i].Start > g
	})
	if i == 0 {
		return -1
	}
	if r.existence[i-1].Covers(g) {
		return i - 1
	}
	return -1
}

// coveringDeps returns the index of the dependency interval covering g,
// or -1.
func (r *record) coveringDeps(g Generation) int {
	i := sort.Search(len(r.deps), func(i int) bool {
		return r.deps[i].span.Start > g
	})
	if i == 0 {
		return -1
	}
	if r.deps[i-1].span.Covers(g) {
		return i - 1
	}
	return -1
}

// isLive reports whether the target currently exists (last existence
// interval still open).
func (r *record) isLive() bool {
	n := len(r.existence)
	return n > 0 && r.existence[n-1].IsOpen()
}

// currentDeps returns the dependency set of the open dependency interval,
// or nil if the target is not live. The returned set is the live one, not a
// copy; callers must not hand it out.
func (r *record) currentDeps() target.Set {
	n := len(r.deps)
	if n == 0 || !r.deps[n-1].span.IsOpen() {
		return nil
	}
	return r.deps[n-1].deps
}

// open starts a new existence interval and an empty dependency interval at
// generation g. The caller guarantees the target is not currently live.
func (r *record) open(g Generation) {
	r.existence = append(r.existence, Interval{Start: g, End: openGen})
	r.deps = append(r.deps, depInterval{
		span: Interval{Start: g, End: openGen},
		deps: target.NewSet(),
	})
}

// close ends the open existence and dependency intervals at generation g.
// An interval opened at g itself never covered any generation and is
// dropped instead of being closed to zero width.
func (r *record) close(g Generation) {
	if n := len(r.existence); n > 0 && r.existence[n-1].IsOpen() {
		if r.existence[n-1].Start == g {
			r.existence = r.existence[:n-1]
		} else {
			r.existence[n-1].End = g
		}
	}
	if n := len(r.deps); n > 0 && r.deps[n-1].span.IsOpen() {
		if r.deps[n-1].span.Start == g {
			r.deps = r.deps[:n-1]
		} else {
			r.deps[n-1].span.End = g
		}
	}
}

// mutableDeps returns a dependency set that may be mutated at generation g.
// If the open interval already starts at g (opened earlier in the same
// delta), its set is returned directly; otherwise the open interval is
// closed at g and a new one opens carrying a copy of the prior set. Multiple
// edge changes to one target within one delta therefore coalesce into a
// single new interval.
func (r *record) mutableDeps(g Generation) target.Set {
	n := len(r.deps)
	last := &r.deps[n-1]
	if last.span.Start == g {
		return last.deps
	}
	next := depInterval{
		span: Interval{Start: g, End: openGen},
		deps: last.deps.Clone(),
	}
	last.span.End = g
	r.deps = append(r.deps, next)
	return r.deps[len(r.deps)-1].deps
}

// Options configures store capacity limits.
type Options struct {
	// MaxTargets caps the number of simultaneously live targets.
	MaxTargets int

	// MaxDepsPerTarget caps one target's forward-dependency set size.
	MaxDepsPerTarget int
}

// DefaultOptions returns sensible defaults for store configuration.
func DefaultOptions() Options {
	return Options{
		MaxTargets:       DefaultMaxTargets,
		MaxDepsPerTarget: DefaultMaxDepsPerTarget,
	}
}

// Option is a functional option for configuring a Store.
type Option func(*Options)

// WithMaxTargets sets the maximum number of live targets.
func WithMaxTargets(n int) Option {
	return func(o *Options) {
		o.MaxTargets = n
	}
}

// WithMaxDepsPerTarget sets the maximum dependency set size per target.
func WithMaxDepsPerTarget(n int) Option {
	return func(o *Options) {
		o.MaxDepsPerTarget = n
	}
}

// Stats contains statistics about the store.
type Stats struct {
	// TrackedTargets is the number of targets with any recorded history.
	TrackedTargets int

	// LiveTargets is the number of targets with an open existence interval.
	LiveTargets int

	// ExistenceIntervals is the total existence interval count.
	ExistenceIntervals int

	// DependencyIntervals is the total dependency interval count.
	DependencyIntervals int

	// LastGeneration is the highest generation applied so far.
	LastGeneration Generation

	// Floor is the compaction floor; generations below it are unreadable.
	Floor Generation
}
