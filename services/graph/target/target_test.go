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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		in   string
		pkg  string
		name string
		str  string
	}{
		{"//lib/base:base", "lib/base", "base", "//lib/base:base"},
		{"//:root", "", "root", "//:root"},
		{"//app:main", "app", "main", "//app:main"},
		{"//lib/base", "lib/base", "base", "//lib/base:base"},
		{"//base", "base", "base", "//base:base"},
	}

	for _, tc := range tests {
		got, err := Parse(tc.in)
		require.NoError(t, err, "Parse(%q)", tc.in)
		assert.Equal(t, tc.pkg, got.PackagePath())
		assert.Equal(t, tc.name, got.Name())
		assert.Equal(t, tc.str, got.String())
		assert.False(t, got.IsZero())
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := []string{
		"",
		"base",
		"/lib:base",
		"//lib:",
		"//lib:a:b",
		"//lib/:x",
		"///lib:x",
		"//lib :x",
		"//",
		"//lib/",
	}

	for _, in := range cases {
		_, err := Parse(in)
		require.Error(t, err, "Parse(%q)", in)
		assert.ErrorIs(t, err, ErrMalformedTarget, "Parse(%q)", in)
	}
}

func TestTarget_Less(t *testing.T) {
	a := mustParse(t, "//a:x")
	b := mustParse(t, "//a:y")
	c := mustParse(t, "//b:a")

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.True(t, a.Less(c))
	assert.False(t, c.Less(a))
	assert.False(t, a.Less(a))
}

func TestTarget_MapKey(t *testing.T) {
	a1 := mustParse(t, "//lib:a")
	a2 := mustParse(t, "//lib:a")

	m := map[Target]int{a1: 1}
	m[a2]++
	assert.Equal(t, 1, len(m))
	assert.Equal(t, 2, m[a1])
}

func TestSet_Basics(t *testing.T) {
	a := mustParse(t, "//lib:a")
	b := mustParse(t, "//lib:b")
	c := mustParse(t, "//lib:c")

	s := NewSet(a, b)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(a))
	assert.False(t, s.Contains(c))

	s.Add(c)
	s.Add(c) // Idempotent
	assert.Equal(t, 3, s.Len())

	clone := s.Clone()
	clone.Add(mustParse(t, "//lib:d"))
	assert.Equal(t, 3, s.Len(), "clone must be independent")
	assert.Equal(t, 4, clone.Len())
}

func TestSet_Equal(t *testing.T) {
	a := mustParse(t, "//lib:a")
	b := mustParse(t, "//lib:b")

	assert.True(t, NewSet(a, b).Equal(NewSet(b, a)))
	assert.True(t, NewSet().Equal(NewSet()))
	assert.False(t, NewSet(a).Equal(NewSet(b)))
	assert.False(t, NewSet(a).Equal(NewSet(a, b)))
}

func TestSet_MembersSorted(t *testing.T) {
	s := NewSet(
		mustParse(t, "//b:x"),
		mustParse(t, "//a:y"),
		mustParse(t, "//a:x"),
	)

	members := s.Members()
	require.Len(t, members, 3)
	assert.Equal(t, "//a:x", members[0].String())
	assert.Equal(t, "//a:y", members[1].String())
	assert.Equal(t, "//b:x", members[2].String())
}

func mustParse(t *testing.T, text string) Target {
	t.Helper()
	tgt, err := Parse(text)
	require.NoError(t, err)
	return tgt
}
