// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index assembles the versioned store, generation allocator, and
// query engine into one lock-guarded build-graph index, and keeps a
// registry of independent per-repository indexes.
//
// # Concurrency Model
//
// One designated writer performs ingestion; an arbitrary number of readers
// execute queries concurrently with each other and with the writer. Every
// query runs under a shared acquisition of the index's reader/writer lock,
// obtained via AcquireReadLock and passed to the query as a liveness proof.
// Ingestion and compaction run under the exclusive acquisition.
//
// Committed generations are immutable, so the lock does not guard against
// data races on state already written; it exists so compaction, which
// reclaims storage for generations no longer retained, can never run while
// a reader might still resolve a query against them.
package index

import "errors"

// ErrHandleReleased is returned when a query is attempted with a nil,
// foreign, or already-released read handle.
var ErrHandleReleased = errors.New("read handle not held")
