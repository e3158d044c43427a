// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

// Package diag provides the context-carried tracing and error-accumulation
// mechanism shared by the parser, meta, stage and reader packages.
//
// The approach — attaching a linked chain of "notes" to a context.Context
// and walking it back to front when a diagnostic fires — is carried over
// from the teacher's parser/trace package rather than reached for a
// third-party structured logger: the teacher hand-rolls this because a
// diagnostic needs to describe "where" (source position) and "why" (the
// nested operation in progress) without threading an explicit parameter
// through every call in the tree, and context.Context already gives us that
// for free.
package diag

import (
	"context"
	"fmt"
	"strings"
)

// Kind is the closed taxonomy of diagnostic kinds from the error handling
// design.
type Kind string

const (
	MalformedInput           Kind = "MalformedInput"
	InvalidName               Kind = "InvalidName"
	InvalidMetadataType       Kind = "InvalidMetadataType"
	UnknownMetadataKey        Kind = "UnknownMetadataKey"
	InvalidListEditQualifier  Kind = "InvalidListEditQualifier"
	UnknownEnumToken          Kind = "UnknownEnumToken"
	UnknownPrimType           Kind = "UnknownPrimType"
	SchemaReconstructFailed   Kind = "SchemaReconstructFailed"
	IndexOutOfRange           Kind = "IndexOutOfRange"
	DuplicateVariantChild     Kind = "DuplicateVariantChild"
	ResourceLimitExceeded     Kind = "ResourceLimitExceeded"
	StateViolation            Kind = "StateViolation"
	UnexpectedToken           Kind = "UnexpectedToken"
	UnexpectedEOF             Kind = "UnexpectedEOF"
	MissingMagicHeader        Kind = "MissingMagicHeader"
	InvalidNumericLiteral     Kind = "InvalidNumericLiteral"
)

// Position mirrors the handful of scanner.Position fields diagnostics need;
// kept distinct from text/scanner.Position so the lexer package is the only
// one that needs to import text/scanner.
type Position struct {
	Line, Column int
	Offset       int
}

func (p Position) String() string {
	if p.Line == 0 {
		return "<unknown>"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type ctxKey int

const (
	chainKey ctxKey = iota
)

type chain struct {
	parent *chain
	desc   string
	key    string
	value  interface{}
	pos    *Position
}

// Describe starts a new named scope (e.g. "Prim header", "metadata key").
func Describe(ctx context.Context, desc string) context.Context {
	parent, _ := ctx.Value(chainKey).(*chain)
	return context.WithValue(ctx, chainKey, &chain{parent: parent, desc: desc})
}

// Note attaches a key/value pair to the current scope for diagnostic output.
func Note(ctx context.Context, key string, value interface{}) context.Context {
	parent, _ := ctx.Value(chainKey).(*chain)
	return context.WithValue(ctx, chainKey, &chain{parent: parent, key: key, value: value})
}

// At attaches a source position to the current scope.
func At(ctx context.Context, pos Position) context.Context {
	parent, _ := ctx.Value(chainKey).(*chain)
	return context.WithValue(ctx, chainKey, &chain{parent: parent, pos: &pos})
}

func render(ctx context.Context, tag, msg string) string {
	var notes []string
	var pos *Position
	var desc string

	c, _ := ctx.Value(chainKey).(*chain)
	for cur := c; cur != nil; cur = cur.parent {
		switch {
		case cur.key != "":
			notes = append(notes, fmt.Sprintf("%s=%v", cur.key, cur.value))
		case cur.pos != nil && pos == nil:
			pos = cur.pos
		case cur.desc != "":
			if desc == "" {
				desc = cur.desc
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", tag, msg)
	if desc != "" {
		fmt.Fprintf(&b, " ...in %s", desc)
	}
	for _, n := range notes {
		fmt.Fprintf(&b, ", %s", n)
	}
	if pos != nil {
		fmt.Fprintf(&b, " @ %s", pos)
	}
	return b.String()
}

// Bag accumulates warnings, per-Prim errors, and the (at most one, first-wins)
// fatal error for a single Read/ReconstructStage call, per the three-channel
// error model: warnings never abort, per-Prim errors may or may not depending
// on configuration, fatal errors abort immediately.
type Bag struct {
	Tag string // subsystem tag, e.g. "USDA"

	warnings []string
	errors   []string
	fatal    string
	hasFatal bool
}

func (b *Bag) tag() string {
	if b.Tag == "" {
		return "USDA"
	}
	return b.Tag
}

// Warn records a non-fatal warning.
func (b *Bag) Warn(ctx context.Context, kind Kind, msg string) {
	b.warnings = append(b.warnings, render(ctx, b.tag(), string(kind)+": "+msg))
}

// Warnf is Warn with fmt-style formatting.
func (b *Bag) Warnf(ctx context.Context, kind Kind, format string, args ...interface{}) {
	b.Warn(ctx, kind, fmt.Sprintf(format, args...))
}

// Error records a per-Prim error. It does not, by itself, abort anything;
// callers decide whether a given Error also escalates to Fatal.
func (b *Bag) Error(ctx context.Context, kind Kind, msg string) {
	b.errors = append(b.errors, render(ctx, b.tag(), string(kind)+": "+msg))
}

func (b *Bag) Errorf(ctx context.Context, kind Kind, format string, args ...interface{}) {
	b.Error(ctx, kind, fmt.Sprintf(format, args...))
}

// Fatal records the fatal error that aborts the in-progress Read or
// ReconstructStage call. Only the first Fatal call sticks.
func (b *Bag) Fatal(ctx context.Context, kind Kind, msg string) {
	if b.hasFatal {
		return
	}
	b.hasFatal = true
	b.fatal = render(ctx, b.tag(), string(kind)+": "+msg)
}

func (b *Bag) Fatalf(ctx context.Context, kind Kind, format string, args ...interface{}) {
	b.Fatal(ctx, kind, fmt.Sprintf(format, args...))
}

// HasFatal reports whether a fatal error has been recorded.
func (b *Bag) HasFatal() bool { return b.hasFatal }

// GetWarning returns all accumulated warnings, newline-joined.
func (b *Bag) GetWarning() string {
	return strings.Join(b.warnings, "\n")
}

// GetError returns the fatal error if one occurred, else all accumulated
// per-Prim errors, newline-joined.
func (b *Bag) GetError() string {
	if b.hasFatal {
		return b.fatal
	}
	return strings.Join(b.errors, "\n")
}

// Reset clears all accumulated diagnostics. A fresh Bag should be used per
// Read call in practice (a Reader instance is single-use past a failure),
// but Reset exists for tests that want to reuse one Bag across cases.
func (b *Bag) Reset() {
	b.warnings = nil
	b.errors = nil
	b.fatal = ""
	b.hasFatal = false
}
