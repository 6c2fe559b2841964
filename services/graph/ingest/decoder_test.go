// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/buildgraph/services/graph/target"
)

func TestDecode_ValidFeed(t *testing.T) {
	feed := `{"commit_id": "c1", "added_targets": ["//lib:base", "//lib:util"]}

{"commit_id": "c2", "added_targets": ["//app:main"], "added_edges": [{"from": "//app:main", "to": "//lib:base"}]}
{"commit_id": "c3", "removed_targets": ["//lib:util"]}
`

	deltas, err := Decode(strings.NewReader(feed))
	require.NoError(t, err)
	require.Len(t, deltas, 3, "blank lines are skipped")

	assert.Equal(t, "c1", deltas[0].CommitID)
	assert.Len(t, deltas[0].Added, 2)

	assert.Equal(t, "c2", deltas[1].CommitID)
	require.Len(t, deltas[1].AddedEdges, 1)
	assert.Equal(t, "//app:main", deltas[1].AddedEdges[0].From.String())
	assert.Equal(t, "//lib:base", deltas[1].AddedEdges[0].To.String())

	assert.Equal(t, "c3", deltas[2].CommitID)
	assert.Len(t, deltas[2].Removed, 1)
}

func TestDecode_EmptyFeed(t *testing.T) {
	deltas, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, deltas)
}

func TestDecode_MalformedJSON(t *testing.T) {
	feed := `{"commit_id": "c1"}
{not json}`

	_, err := Decode(strings.NewReader(feed))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestDecode_MissingCommitID(t *testing.T) {
	feed := `{"added_targets": ["//lib:base"]}`

	_, err := Decode(strings.NewReader(feed))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing commit_id")
	assert.Contains(t, err.Error(), "line 1")
}

func TestDecode_MalformedLabel(t *testing.T) {
	feed := `{"commit_id": "c1", "added_targets": ["not-a-label"]}`

	_, err := Decode(strings.NewReader(feed))
	require.ErrorIs(t, err, target.ErrMalformedTarget)
	assert.Contains(t, err.Error(), "added_targets")
}

func TestDecode_OversizedLine(t *testing.T) {
	line := `{"commit_id": "big", "added_targets": ["//lib:` +
		strings.Repeat("x", MaxLineSize) + `"]}`

	_, err := Decode(strings.NewReader(line))
	require.ErrorIs(t, err, ErrFeedTooLarge)
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.ndjson")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"commit_id": "c1", "added_targets": ["//a:a"]}`+"\n"), 0600))

	deltas, err := DecodeFile(path)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, "c1", deltas[0].CommitID)
}

func TestDecodeFile_Missing(t *testing.T) {
	_, err := DecodeFile(filepath.Join(t.TempDir(), "no-such.ndjson"))
	require.Error(t, err)
}

func TestResolve_FieldNamedInError(t *testing.T) {
	tests := []struct {
		name  string
		delta CommitDelta
		field string
	}{
		{
			name:  "added target",
			delta: CommitDelta{CommitID: "c", AddedTargets: []string{"bogus"}},
			field: "added_targets",
		},
		{
			name:  "removed target",
			delta: CommitDelta{CommitID: "c", RemovedTargets: []string{"bogus"}},
			field: "removed_targets",
		},
		{
			name: "edge source",
			delta: CommitDelta{CommitID: "c",
				AddedEdges: []EdgeDelta{{From: "bogus", To: "//a:a"}}},
			field: "added_edges",
		},
		{
			name: "edge destination",
			delta: CommitDelta{CommitID: "c",
				RemovedEdges: []EdgeDelta{{From: "//a:a", To: "bogus"}}},
			field: "removed_edges",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(tc.delta)
			require.ErrorIs(t, err, target.ErrMalformedTarget)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}
