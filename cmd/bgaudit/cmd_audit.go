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
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/buildgraph/services/graph/index"
	"github.com/AleutianAI/buildgraph/services/graph/ingest"
	"github.com/AleutianAI/buildgraph/services/graph/target"
)

// loadFeed replays the NDJSON feed into a fresh in-process index and
// resolves the commit to query as of.
func loadFeed() (*index.Index, string) {
	deltas, err := ingest.DecodeFile(feedPath)
	if err != nil {
		log.Fatalf("Failed to read feed: %v", err)
	}
	if len(deltas) == 0 {
		log.Fatalf("Feed %s contains no commits", feedPath)
	}

	ix := index.New("audit")
	for _, delta := range deltas {
		if _, err := ix.Ingest(delta); err != nil {
			log.Fatalf("Commit %s rejected: %v", delta.CommitID, err)
		}
	}

	commit := commitID
	if commit == "" {
		latest, _, ok := ix.LatestCommit()
		if !ok {
			log.Fatalf("Feed %s contains no commits", feedPath)
		}
		commit = latest
	}
	return ix, commit
}

func runTargets(cmd *cobra.Command, args []string) {
	ix, commit := loadFeed()

	handle := ix.AcquireReadLock()
	defer handle.Release()

	set, err := ix.Targets(handle, commit)
	if err != nil {
		log.Fatalf("Targets query failed: %v", err)
	}

	names := make([]string, 0, set.Len())
	for _, t := range set.Members() {
		names = append(names, t.String())
	}

	if jsonOutput {
		printJSON(map[string]any{
			"commit_id": commit,
			"targets":   names,
		})
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func runDeps(cmd *cobra.Command, args []string) {
	roots := make([]target.Target, 0, len(args))
	for _, label := range args {
		t, err := target.Parse(label)
		if err != nil {
			log.Fatalf("Bad target %q: %v", label, err)
		}
		roots = append(roots, t)
	}

	ix, commit := loadFeed()

	handle := ix.AcquireReadLock()
	defer handle.Release()

	deps := make(map[string][]string, len(roots))
	for _, root := range roots {
		var set target.Set
		var err error
		if transitive {
			set, err = ix.TransitiveDeps(context.Background(), handle, commit, root)
		} else {
			set = target.NewSet()
			err = ix.FwdDeps(handle, commit, []target.Target{root}, set)
		}
		if err != nil {
			log.Fatalf("Deps query for %s failed: %v", root.String(), err)
		}

		names := make([]string, 0, set.Len())
		for _, t := range set.Members() {
			names = append(names, t.String())
		}
		deps[root.String()] = names
	}

	if jsonOutput {
		printJSON(map[string]any{
			"commit_id":  commit,
			"transitive": transitive,
			"deps":       deps,
		})
		return
	}

	// Plain output: grouped per root when multiple roots are given,
	// bare lines for a single root (pipe-friendly, like buck audit).
	if len(roots) == 1 {
		for _, name := range deps[roots[0].String()] {
			fmt.Println(name)
		}
		return
	}
	for _, root := range roots {
		fmt.Printf("%s:\n", root.String())
		for _, name := range deps[root.String()] {
			fmt.Printf("  %s\n", name)
		}
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode JSON: %v", err)
	}
}
