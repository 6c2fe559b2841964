// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// MaxLineSize is the maximum allowed size of a single feed line (1MB).
	// Prevents memory issues from corrupt or adversarial feeds.
	MaxLineSize = 1024 * 1024
)

// ErrFeedTooLarge is returned when a feed line exceeds MaxLineSize.
var ErrFeedTooLarge = errors.New("feed line exceeds size limit")

// Decode reads a line-delimited JSON commit feed, resolving every delta.
//
// Description:
//
//	One CommitDelta per line, in commit order; blank lines are skipped.
//	Decoding stops at the first malformed line or label, returning its
//	line number in the error. Deltas are returned in feed order, which is
//	the required ingestion order.
//
// Outputs:
//
//	[]Resolved - The decoded deltas, labels parsed.
//	error - Wraps target.ErrMalformedTarget for bad labels,
//	        ErrFeedTooLarge for oversized lines, or the JSON error.
func Decode(r io.Reader) ([]Resolved, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxLineSize)

	var out []Resolved
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var delta CommitDelta
		if err := json.Unmarshal([]byte(text), &delta); err != nil {
			return nil, fmt.Errorf("feed line %d: %w", line, err)
		}
		if delta.CommitID == "" {
			return nil, fmt.Errorf("feed line %d: missing commit_id", line)
		}

		resolved, err := Resolve(delta)
		if err != nil {
			return nil, fmt.Errorf("feed line %d: %w", line, err)
		}
		out = append(out, resolved)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("feed line %d: %w", line+1, ErrFeedTooLarge)
		}
		return nil, err
	}
	return out, nil
}

// DecodeFile reads a commit feed from a file.
func DecodeFile(path string) ([]Resolved, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
