// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package target defines the canonical build-target identifier used
// throughout the build-graph index.
//
// A Target names one build unit (a node in the dependency graph) in the
// `//path/to/pkg:name` label form. Targets are produced only by Parse at
// the ingestion boundary; the rest of the system treats them as opaque,
// immutable identifiers that can be compared, ordered, and used as map keys.
//
// # Ownership Model
//
// Target is a small value type. Copies are cheap and independent; there is
// no shared state to mutate.
//
// # Thread Safety
//
// Target and Edge are immutable values and safe for concurrent use. Set is
// NOT safe for concurrent mutation; callers must synchronize.
package target

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedTarget is returned when a textual target reference cannot be
// parsed into a canonical label. Malformed references are rejected at the
// boundary and never reach the store.
var ErrMalformedTarget = errors.New("malformed build target")

// Target is an opaque, immutable identifier for a build unit.
//
// The zero value is not a valid target; obtain instances through Parse.
type Target struct {
	pkg  string
	name string
}

// Parse converts a textual target reference into a canonical Target.
//
// Description:
//
//	Accepts fully qualified labels of the form `//path/to/pkg:name`. The
//	package path may be empty (`//:name`) for root-level targets. The
//	short form `//path/to/pkg` is accepted and expands to a target named
//	after the last path segment, matching common build-tool conventions.
//
// Inputs:
//
//	text - The textual reference to parse.
//
// Outputs:
//
//	Target - The canonical identifier.
//	error - ErrMalformedTarget (wrapped with detail) on invalid syntax.
func Parse(text string) (Target, error) {
	if !strings.HasPrefix(text, "//") {
		return Target{}, fmt.Errorf("%w: %q: must start with //", ErrMalformedTarget, text)
	}
	rest := text[2:]
	if strings.ContainsAny(rest, " \t\n") {
		return Target{}, fmt.Errorf("%w: %q: contains whitespace", ErrMalformedTarget, text)
	}

	pkg := rest
	name := ""
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		pkg, name = rest[:i], rest[i+1:]
		if name == "" {
			return Target{}, fmt.Errorf("%w: %q: empty target name", ErrMalformedTarget, text)
		}
		if strings.ContainsRune(name, ':') {
			return Target{}, fmt.Errorf("%w: %q: multiple colons", ErrMalformedTarget, text)
		}
	} else {
		// Short form: //path/to/pkg means //path/to/pkg:pkg.
		if pkg == "" {
			return Target{}, fmt.Errorf("%w: %q: empty label", ErrMalformedTarget, text)
		}
		if i := strings.LastIndexByte(pkg, '/'); i >= 0 {
			name = pkg[i+1:]
		} else {
			name = pkg
		}
		if name == "" {
			return Target{}, fmt.Errorf("%w: %q: trailing slash", ErrMalformedTarget, text)
		}
	}

	if strings.HasPrefix(pkg, "/") || strings.HasSuffix(pkg, "/") || strings.Contains(pkg, "//") {
		return Target{}, fmt.Errorf("%w: %q: malformed package path", ErrMalformedTarget, text)
	}

	return Target{pkg: pkg, name: name}, nil
}

// PackagePath returns the package path component (without the leading //).
func (t Target) PackagePath() string { return t.pkg }

// Name returns the target name component (after the colon).
func (t Target) Name() string { return t.name }

// IsZero reports whether t is the zero value rather than a parsed target.
func (t Target) IsZero() bool { return t.pkg == "" && t.name == "" }

// String renders the target in canonical `//path:name` form.
func (t Target) String() string {
	return "//" + t.pkg + ":" + t.name
}

// Less defines a total order over targets: by package path, then by name.
func (t Target) Less(other Target) bool {
	if t.pkg != other.pkg {
		return t.pkg < other.pkg
	}
	return t.name < other.name
}

// Edge is a directed dependency edge: From depends on To
// ("To is a forward dependency of From").
type Edge struct {
	From Target
	To   Target
}

// String renders the edge as `//a:a -> //b:b`.
func (e Edge) String() string {
	return e.From.String() + " -> " + e.To.String()
}
