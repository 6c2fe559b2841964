// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	feedPath   string
	commitID   string
	transitive bool
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:   "bgaudit",
		Short: "Inspect a versioned build graph from a commit feed",
		Long: `bgaudit replays an NDJSON commit feed into an in-memory
build-graph index and answers queries as of any ingested commit.`,
	}

	targetsCmd = &cobra.Command{
		Use:   "targets",
		Short: "List all targets alive as of a commit",
		Run:   runTargets, // Defined in cmd_audit.go
	}

	depsCmd = &cobra.Command{
		Use:   "deps [target...]",
		Short: "Resolve dependencies of one or more targets as of a commit",
		Args:  cobra.MinimumNArgs(1),
		Run:   runDeps, // Defined in cmd_audit.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&feedPath, "feed", "",
		"Path to the NDJSON commit feed (required)")
	rootCmd.PersistentFlags().StringVar(&commitID, "commit", "",
		"Commit to query as of (default: latest ingested)")
	_ = rootCmd.MarkPersistentFlagRequired("feed")

	depsCmd.Flags().BoolVar(&transitive, "transitive", false,
		"Resolve the full transitive closure instead of first-order deps")
	depsCmd.Flags().BoolVar(&jsonOutput, "json", false,
		"Emit JSON instead of plain lines")
	targetsCmd.Flags().BoolVar(&jsonOutput, "json", false,
		"Emit JSON instead of plain lines")

	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(depsCmd)
}
