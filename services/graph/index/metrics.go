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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for ingestion and queries, labeled by index name so a
// multi-tenant deployment can tell repositories apart.
var (
	commitsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buildgraph",
		Name:      "commits_ingested_total",
		Help:      "Total commits ingested into the index.",
	}, []string{"index"})

	ingestFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buildgraph",
		Name:      "ingest_failures_total",
		Help:      "Total rejected delta applications.",
	}, []string{"index"})

	deltaOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buildgraph",
		Name:      "delta_ops_total",
		Help:      "Delta operations applied, by operation kind.",
	}, []string{"index", "op"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "buildgraph",
		Name:      "query_duration_seconds",
		Help:      "Query latency by query kind.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"index", "kind"})

	compactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buildgraph",
		Name:      "compactions_total",
		Help:      "Total compaction runs.",
	}, []string{"index"})

	intervalsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buildgraph",
		Name:      "compaction_intervals_dropped_total",
		Help:      "Intervals reclaimed by compaction.",
	}, []string{"index"})

	generationsCurrent = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "buildgraph",
		Name:      "generations",
		Help:      "Latest generation applied to the index.",
	}, []string{"index"})
)

// Delta operation kinds for deltaOpsTotal.
const (
	opTargetsAdded   = "targets_added"
	opTargetsRemoved = "targets_removed"
	opEdgesAdded     = "edges_added"
	opEdgesRemoved   = "edges_removed"
)
