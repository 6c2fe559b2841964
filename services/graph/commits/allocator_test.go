// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package commits

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/buildgraph/services/graph/vstore"
)

func TestAllocator_SequentialAssignment(t *testing.T) {
	a := NewAllocator()
	assert.Equal(t, vstore.Generation(0), a.Latest())
	assert.Equal(t, vstore.Generation(1), a.Next())

	for i := 1; i <= 5; i++ {
		commitID := fmt.Sprintf("commit-%d", i)
		gen, err := a.Assign(commitID)
		require.NoError(t, err)
		assert.Equal(t, vstore.Generation(i), gen, "generations must be gap-free")
	}

	assert.Equal(t, vstore.Generation(5), a.Latest())
	assert.Equal(t, vstore.Generation(6), a.Next())
}

func TestAllocator_DuplicateCommit(t *testing.T) {
	a := NewAllocator()

	gen, err := a.Assign("abc123")
	require.NoError(t, err)
	assert.Equal(t, vstore.Generation(1), gen)

	_, err = a.Assign("abc123")
	require.ErrorIs(t, err, ErrDuplicateCommit)

	// The prior assignment is untouched and the sequence has no gap.
	got, err := a.Resolve("abc123")
	require.NoError(t, err)
	assert.Equal(t, vstore.Generation(1), got)
	assert.Equal(t, vstore.Generation(2), a.Next())
}

func TestAllocator_Bijection(t *testing.T) {
	a := NewAllocator()
	ids := []string{"c1", "c2", "c3"}
	for _, id := range ids {
		_, err := a.Assign(id)
		require.NoError(t, err)
	}

	for i, id := range ids {
		gen := vstore.Generation(i + 1)

		resolved, err := a.Resolve(id)
		require.NoError(t, err)
		assert.Equal(t, gen, resolved)

		back, ok := a.CommitAt(gen)
		require.True(t, ok)
		assert.Equal(t, id, back)
	}
}

func TestAllocator_ResolveUnknown(t *testing.T) {
	a := NewAllocator()
	_, err := a.Resolve("never-seen")
	require.ErrorIs(t, err, ErrUnknownCommit)
}

func TestAllocator_CommitAtOutOfRange(t *testing.T) {
	a := NewAllocator()
	_, err := a.Assign("only")
	require.NoError(t, err)

	_, ok := a.CommitAt(0)
	assert.False(t, ok, "generation 0 is the empty graph, never a commit")
	_, ok = a.CommitAt(2)
	assert.False(t, ok)
}

func TestAllocator_Has(t *testing.T) {
	a := NewAllocator()
	assert.False(t, a.Has("x"))

	_, err := a.Assign("x")
	require.NoError(t, err)
	assert.True(t, a.Has("x"))
	assert.False(t, a.Has("y"))
}
