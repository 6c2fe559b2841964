// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphsvc exposes the versioned build-graph index over HTTP.
//
// The package is a thin layer: request decoding, validation, and
// sentinel-to-status mapping live here; all graph semantics live in the
// index, query, and vstore packages.
package graphsvc

import (
	"github.com/AleutianAI/buildgraph/pkg/logging"
	"github.com/AleutianAI/buildgraph/services/graph/index"
	"github.com/AleutianAI/buildgraph/services/graph/vstore"
)

// ServiceVersion is the build-graph service version.
const ServiceVersion = "0.1.0"

// ServiceConfig configures the graph service.
type ServiceConfig struct {
	// MaxTargets caps the live-target count per repository index.
	MaxTargets int

	// MaxDepsPerTarget caps the out-degree of any target.
	MaxDepsPerTarget int

	// KeepGenerations is the retention window applied by compaction
	// requests that do not name their own floor. Zero disables the
	// default window (compaction keeps everything unless asked).
	KeepGenerations int
}

// DefaultServiceConfig returns the default service configuration.
func DefaultServiceConfig() ServiceConfig {
	opts := vstore.DefaultOptions()
	return ServiceConfig{
		MaxTargets:       opts.MaxTargets,
		MaxDepsPerTarget: opts.MaxDepsPerTarget,
		KeepGenerations:  0,
	}
}

// Service owns the multi-repository index registry behind the HTTP
// surface.
//
// Thread Safety: Safe for concurrent use; the registry and each index
// coordinate their own locking.
type Service struct {
	registry *index.Registry
	config   ServiceConfig
	logger   *logging.Logger
}

// NewService creates a graph service with the given configuration.
func NewService(cfg ServiceConfig, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		registry: index.NewRegistry(
			vstore.WithMaxTargets(cfg.MaxTargets),
			vstore.WithMaxDepsPerTarget(cfg.MaxDepsPerTarget),
		),
		config: cfg,
		logger: logger,
	}
}

// Registry returns the underlying index registry.
//
// Exposed for embedding callers (the audit CLI loads feeds through it
// directly, without the HTTP layer).
func (s *Service) Registry() *index.Registry {
	return s.registry
}
