// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package target

import "sort"

// Set is a hash set of targets.
//
// The query engine uses Set as its accumulator type: query operations only
// ever add members, so a caller can thread one Set through repeated calls
// (breadth-first frontier expansion) without reallocation.
//
// Thread Safety: NOT safe for concurrent mutation; callers must synchronize.
type Set map[Target]struct{}

// NewSet creates a set containing the given targets.
func NewSet(targets ...Target) Set {
	s := make(Set, len(targets))
	for _, t := range targets {
		s[t] = struct{}{}
	}
	return s
}

// Add inserts t into the set.
func (s Set) Add(t Target) {
	s[t] = struct{}{}
}

// AddAll inserts every member of other into the set.
func (s Set) AddAll(other Set) {
	for t := range other {
		s[t] = struct{}{}
	}
}

// Contains reports whether t is a member.
func (s Set) Contains(t Target) bool {
	_, ok := s[t]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int { return len(s) }

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for t := range s {
		c[t] = struct{}{}
	}
	return c
}

// Equal reports whether s and other hold exactly the same members.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for t := range s {
		if !other.Contains(t) {
			return false
		}
	}
	return true
}

// Members returns the members sorted by the total target order.
//
// Sorting keeps query output deterministic regardless of map iteration
// order; the copy also shields the set from external mutation.
func (s Set) Members() []Target {
	out := make([]Target, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	SortTargets(out)
	return out
}

// SortTargets sorts targets in place by the total target order.
func SortTargets(targets []Target) {
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Less(targets[j])
	})
}
