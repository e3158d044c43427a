// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

// Package composition tracks declared composition arcs (subLayers,
// references, payload — spec §3/§4.3) as a dependency graph so a caller
// can detect self-cycles and duplicate loads before resolving an arc's
// target file through package resolve. It deliberately goes no further
// than that bookkeeping: actually merging a referenced/sublayered Layer's
// contents into the composed Stage is explicitly out of scope (this
// reader's stated Non-goal is parsing and reconstruction, not
// composition evaluation).
//
// The cycle-avoidance idiom — recording a placeholder for a path before
// visiting its dependencies, so a path revisited before it finishes
// records as a cycle rather than a silent second load — is adapted from
// the teacher's passes/typecheck.Graph (kdlc/passes/typecheck/graph.go),
// simplified from its full type-reference graph down to the one
// operation this reader actually needs: "have I already started loading
// this asset path".
package composition

import "github.com/pkg/errors"

// ArcKind distinguishes the three declared-arc kinds.
type ArcKind int

const (
	SubLayerArc ArcKind = iota
	ReferenceArc
	PayloadArc
)

func (k ArcKind) String() string {
	switch k {
	case SubLayerArc:
		return "subLayer"
	case ReferenceArc:
		return "reference"
	case PayloadArc:
		return "payload"
	default:
		return "unknown"
	}
}

// state is a path's position in the graph: absent entirely, mid-visit
// (placeholder, not yet finished), or finished.
type state int

const (
	stateInProgress state = iota
	stateDone
)

// Graph records which asset paths are mid-visit or finished while
// following declared composition arcs out of one root layer.
type Graph struct {
	paths map[string]state
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{paths: map[string]state{}}
}

// Enter records that path is now being visited for the given arc kind.
// It fails if path is already mid-visit — a cycle back to a path that
// hasn't finished loading yet. Revisiting a path that already finished is
// not an error; the caller decides whether to skip or re-walk it (e.g.
// via Loaded).
func (g *Graph) Enter(kind ArcKind, path string) error {
	if s, exists := g.paths[path]; exists && s == stateInProgress {
		return errors.Errorf("%s arc cycle detected: %q is already being loaded", kind, path)
	}
	g.paths[path] = stateInProgress
	return nil
}

// Leave marks path fully loaded, clearing the in-progress placeholder
// Enter set.
func (g *Graph) Leave(path string) {
	g.paths[path] = stateDone
}

// Loaded reports whether path has already finished loading.
func (g *Graph) Loaded(path string) bool {
	return g.paths[path] == stateDone
}
