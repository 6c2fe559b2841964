// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command bgaudit inspects a build-graph commit feed offline.
//
// The tool replays an NDJSON commit feed into an in-process index and
// answers as-of queries against it, without a running server:
//
//	# All targets at the latest commit
//	bgaudit targets --feed commits.ndjson
//
//	# Targets at a specific commit
//	bgaudit targets --feed commits.ndjson --commit abc123
//
//	# First-order dependencies of a target
//	bgaudit deps //app:main --feed commits.ndjson
//
//	# Full transitive closure, JSON output
//	bgaudit deps //app:main --feed commits.ndjson --transitive --json
package main

import (
	"log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
