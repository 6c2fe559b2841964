// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"sort"
	"sync"

	"github.com/AleutianAI/buildgraph/services/graph/vstore"
)

// Registry holds independent per-repository indexes for a multi-tenant
// deployment. Each repository's history lives in its own Index with its own
// lock; tenants never contend with each other.
//
// Thread Safety: All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	indexes   map[string]*Index
	storeOpts []vstore.Option
}

// NewRegistry creates an empty registry. The store options are applied to
// every index it creates.
func NewRegistry(storeOpts ...vstore.Option) *Registry {
	return &Registry{
		indexes:   make(map[string]*Index),
		storeOpts: storeOpts,
	}
}

// Get returns the index for name, if it exists.
func (r *Registry) Get(name string) (*Index, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ix, ok := r.indexes[name]
	return ix, ok
}

// GetOrCreate returns the index for name, creating it on first use.
func (r *Registry) GetOrCreate(name string) *Index {
	r.mu.RLock()
	ix, ok := r.indexes[name]
	r.mu.RUnlock()
	if ok {
		return ix
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ix, ok := r.indexes[name]; ok {
		return ix
	}
	ix = New(name, r.storeOpts...)
	r.indexes[name] = ix
	return ix
}

// Names returns the registered index names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.indexes))
	for name := range r.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
