// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest is the thin boundary that decodes incoming commit
// descriptions into structured graph deltas.
//
// A commit feed is line-delimited JSON: one CommitDelta per line, in commit
// order. Target references are textual labels here; Resolve parses them
// into canonical identifiers, so malformed labels are rejected at this
// boundary and never reach the store.
package ingest

import (
	"fmt"

	"github.com/AleutianAI/buildgraph/services/graph/target"
)

// CommitDelta describes one commit's graph changes relative to the prior
// commit, in wire (label) form.
type CommitDelta struct {
	// CommitID is the opaque commit identifier (e.g., a hash).
	CommitID string `json:"commit_id"`

	// AddedTargets lists labels of targets appearing in this commit.
	AddedTargets []string `json:"added_targets,omitempty"`

	// RemovedTargets lists labels of targets disappearing in this commit.
	RemovedTargets []string `json:"removed_targets,omitempty"`

	// AddedEdges lists new forward-dependency edges.
	AddedEdges []EdgeDelta `json:"added_edges,omitempty"`

	// RemovedEdges lists dropped forward-dependency edges.
	RemovedEdges []EdgeDelta `json:"removed_edges,omitempty"`
}

// EdgeDelta is one directed edge in wire form: From depends on To.
type EdgeDelta struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Resolved is a CommitDelta with every label parsed into a canonical
// target identifier, the form the index consumes.
type Resolved struct {
	CommitID     string
	Added        []target.Target
	Removed      []target.Target
	AddedEdges   []target.Edge
	RemovedEdges []target.Edge
}

// Resolve parses every label in the delta.
//
// Errors:
//
//	target.ErrMalformedTarget - any label fails to parse; the error names
//	the offending field and label.
func Resolve(d CommitDelta) (Resolved, error) {
	r := Resolved{CommitID: d.CommitID}

	var err error
	if r.Added, err = parseLabels("added_targets", d.AddedTargets); err != nil {
		return Resolved{}, err
	}
	if r.Removed, err = parseLabels("removed_targets", d.RemovedTargets); err != nil {
		return Resolved{}, err
	}
	if r.AddedEdges, err = parseEdges("added_edges", d.AddedEdges); err != nil {
		return Resolved{}, err
	}
	if r.RemovedEdges, err = parseEdges("removed_edges", d.RemovedEdges); err != nil {
		return Resolved{}, err
	}
	return r, nil
}

func parseLabels(field string, labels []string) ([]target.Target, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	out := make([]target.Target, 0, len(labels))
	for _, label := range labels {
		t, err := target.Parse(label)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func parseEdges(field string, edges []EdgeDelta) ([]target.Edge, error) {
	if len(edges) == 0 {
		return nil, nil
	}
	out := make([]target.Edge, 0, len(edges))
	for _, e := range edges {
		from, err := target.Parse(e.From)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		to, err := target.Parse(e.To)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		out = append(out, target.Edge{From: from, To: to})
	}
	return out, nil
}
