// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package query

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/buildgraph/services/graph/target"
	"github.com/AleutianAI/buildgraph/services/graph/vstore"
)

// maxClosureWorkers caps the goroutines used for multi-root closures.
// Traversal is memory-bound; more workers than this just thrash caches.
const maxClosureWorkers = 8

// GetTransitiveDepsMany computes the transitive closure of each root at the
// given generation, one closure per root, concurrently.
//
// Description:
//
//	Roots are fanned out across min(NumCPU, 8) workers. The store is
//	read-only for the duration (the caller holds a read acquisition of
//	the index lock), so the traversals share it safely. The first error
//	cancels the remaining work; on error the result map is nil.
//
// Inputs:
//
//	ctx - Carries the trace span; admitted traversals run to completion.
//	gen - The generation to query.
//	roots - Targets to expand. Duplicates are computed once.
//
// Outputs:
//
//	map[target.Target]target.Set - Closure per root, excluding the root
//	itself.
//	error - First failure, typically vstore.ErrUnknownTarget.
func (e *Engine) GetTransitiveDepsMany(ctx context.Context, gen vstore.Generation, roots []target.Target) (map[target.Target]target.Set, error) {
	results := make(map[target.Target]target.Set, len(roots))
	if len(roots) == 0 {
		return results, nil
	}

	seen := target.NewSet()
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	workers := runtime.NumCPU()
	if workers > maxClosureWorkers {
		workers = maxClosureWorkers
	}
	g.SetLimit(workers)

	for _, root := range roots {
		if seen.Contains(root) {
			continue
		}
		seen.Add(root)

		g.Go(func() error {
			closure, err := e.GetTransitiveDeps(ctx, gen, root)
			if err != nil {
				return err
			}
			mu.Lock()
			results[root] = closure
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
