// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

// Package resolve locates the file backing a composition arc's asset
// path — a stage's own base directory, or a sublayer/reference/payload
// target named in metadata (spec §4.1's base directory, §4.3's
// composition-arc fields) — relative to one or more search roots.
//
// The search-multiple-roots-in-order idiom, trying each root in turn and
// only reporting an error once every root has missed, is adapted from the
// teacher's loader.SourceLoader (kdlc/loader/source.go); the reporting
// itself uses github.com/pkg/errors rather than the teacher's own
// parser/trace package, since resolve sits below diag (no context-chain
// diagnostic available here) and pkg/errors is the pack's own answer to
// wrapping an *os.PathError with the path that was actually tried.
package resolve

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// SourceLoader finds and reads asset-path-relative files under one or
// more search roots, in order.
type SourceLoader struct {
	Roots []string
}

// NewSourceLoader returns a SourceLoader that searches baseDir first,
// then any additional roots (e.g. configured import directories).
func NewSourceLoader(baseDir string, extraRoots ...string) *SourceLoader {
	return &SourceLoader{Roots: append([]string{baseDir}, extraRoots...)}
}

// Load reads the file at path (its separators normalized to the host
// platform) relative to the first root that has it. When no root has it,
// the error names every path that was tried; any other read error names
// the path that failed.
func (l *SourceLoader) Load(path string) ([]byte, error) {
	native := filepath.FromSlash(path)
	var tried []string
	for _, root := range l.Roots {
		full := filepath.Join(root, native)
		contents, err := os.ReadFile(full)
		if err == nil {
			return contents, nil
		}
		if os.IsNotExist(err) {
			tried = append(tried, full)
			continue
		}
		return nil, errors.Wrapf(err, "reading %q", full)
	}
	return nil, errors.Errorf("asset path %q not found under any search root: %v", path, tried)
}
