// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

// Package parser implements the push-based USDA grammar parser (spec §4).
// It owns no scene state of its own: every construct it recognizes is
// reported synchronously through one of a small set of callback fields,
// matching the teacher's habit (kdlc's own Parser) of a single recursive-
// descent walker driving callbacks/AST builders rather than returning a
// parsed tree itself.
package parser

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/YusakuNo1/tinyusdz/diag"
	"github.com/YusakuNo1/tinyusdz/lexer"
	"github.com/YusakuNo1/tinyusdz/token"
	"github.com/YusakuNo1/tinyusdz/value"
)

// LoadState selects which of Reader's two output shapes a Parse drives
// (spec §4.1): Toplevel materializes typed Prims via OnPrimConstruct*,
// Sublayer/Reference/Payload materialize opaque PrimSpecs via OnPrimSpec.
type LoadState int

const (
	Toplevel LoadState = iota
	SublayerLoad
	ReferenceLoad
	PayloadLoad
)

// NoParent is the sentinel parent index for a root-level Prim, mirroring
// store.NoParent without importing store (parser must not depend on it).
const NoParent = -1

// VariantBody is one variant's parsed body, handed up via PrimHeader's
// VariantSets before the reconstruction pass has split ordinary and variant
// children apart.
type VariantBody struct {
	RawMeta    []value.RawMetaEntry
	Properties value.PropertyMap
	// Children carries each nested Prim's already-assigned index, obtained
	// by recursively parsing that Prim's header through OnPrimIdxAssign.
	Children []int
}

// PrimHeader is everything the parser has synchronously determined about
// one Prim by the time its body closes: spec §4.4 step 0's inputs.
type PrimHeader struct {
	Idx         int
	Parent      int
	Specifier   value.Specifier
	TypeName    string // empty for an untyped def/over
	ElementName string
	RawMeta     []value.RawMetaEntry
	Properties  value.PropertyMap
	Children    []int
	VariantSets map[string]map[string]VariantBody
}

// Parser drives the USDA grammar, invoking the registered callbacks in
// source order. Every callback field is optional: a nil one is simply not
// invoked. Reader is responsible for wiring them (spec §6's four
// registration points).
type Parser struct {
	// OnStageMeta is invoked once, for the top-level `(...)` metadata
	// block, if present.
	OnStageMeta func(ctx context.Context, entries []value.RawMetaEntry)

	// OnPrimIdxAssign is invoked the moment a def/over/class keyword and
	// its parent are known, before its body is parsed, and must return the
	// index reserved for it (spec §4.2).
	OnPrimIdxAssign func(ctx context.Context, parent int) int

	// OnPrimConstruct holds one callback per recognized schema type name,
	// invoked once a typed Prim's header and body have fully closed.
	// Returns false to abort the parse.
	OnPrimConstruct map[string]func(ctx context.Context, h PrimHeader) bool

	// OnPrimConstructDefault is invoked for any TypeName not present in
	// OnPrimConstruct (the Model fallback, spec §4.4 "closed schema set").
	OnPrimConstructDefault func(ctx context.Context, h PrimHeader) bool

	// OnPrimSpec is invoked instead of OnPrimConstruct* when parsing in a
	// non-Toplevel LoadState (spec §4.5): the Prim is recorded opaquely,
	// without any schema interpretation.
	OnPrimSpec func(ctx context.Context, h PrimHeader) bool

	lex *lexer.Lexer
	cur lexer.Token

	maxNestLevel int
	lastChild    int
}

// SetMaxNestLevel sets the depth limit enforced during Parse (config's
// MaxPrimNestLevel, spec §6); zero or negative disables the check.
func (p *Parser) SetMaxNestLevel(n int) { p.maxNestLevel = n }

func (p *Parser) advance(ctx context.Context) lexer.Token {
	prev := p.cur
	p.cur = p.lex.Next(ctx)
	return prev
}

func (p *Parser) toDiagPos(pos lexer.Position) diag.Position {
	return diag.Position{Line: pos.Line, Column: pos.Column, Offset: pos.Offset}
}

func (p *Parser) errHere(ctx context.Context, bag *diag.Bag, kind diag.Kind, format string, args ...interface{}) {
	ctx = diag.At(ctx, p.toDiagPos(p.cur.Start))
	bag.Errorf(ctx, kind, format, args...)
}

// Parse reads one USDA document from src and drives the registered
// callbacks. It returns false if the parse stopped on an error: a grammar
// error recorded on bag, a callback returning false, or a Fatal on bag.
func (p *Parser) Parse(ctx context.Context, bag *diag.Bag, state LoadState, src io.Reader) bool {
	br := bufio.NewReader(src)

	if !p.parseMagic(ctx, bag, br) {
		return false
	}

	p.lex = lexer.New(br)
	p.advance(ctx)

	if p.cur.Kind == token.LParen {
		entries, ok := p.parseMetaBlock(ctx, bag)
		if !ok {
			return false
		}
		if p.OnStageMeta != nil {
			p.OnStageMeta(ctx, entries)
		}
	}

	for p.cur.Kind != token.EOF {
		if bag.HasFatal() {
			return false
		}
		if !p.parseSpecifierLine(ctx, bag, state, NoParent, 0) {
			return false
		}
	}
	return true
}

// parseMagic consumes the mandatory `#usda 1.0` cookie line directly off
// the bufio.Reader, before the token-level lexer exists: the cookie would
// otherwise be indistinguishable from an ordinary `#`-comment line that
// the lexer is built to skip, so it must be peeled off first.
func (p *Parser) parseMagic(ctx context.Context, bag *diag.Bag, br *bufio.Reader) bool {
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		bag.Errorf(ctx, diag.UnexpectedEOF, "empty input, expected #usda cookie")
		return false
	}
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "#usda" {
		bag.Errorf(ctx, diag.MissingMagicHeader, "expected '#usda <version>' as the first line, got %q", strings.TrimSpace(line))
		return false
	}
	return true
}

func (p *Parser) parseSpecifierLine(ctx context.Context, bag *diag.Bag, state LoadState, parent, depth int) bool {
	var spec value.Specifier
	switch p.cur.Kind {
	case token.KwDef:
		spec = value.Def
	case token.KwOver:
		spec = value.Over
	case token.KwClass:
		spec = value.Class
	default:
		p.errHere(ctx, bag, diag.UnexpectedToken, "expected 'def', 'over' or 'class', got %q", p.cur.Text)
		return false
	}
	p.advance(ctx)
	return p.parsePrim(ctx, bag, state, spec, parent, depth)
}

// parsePrim parses one Prim, starting just after its specifier keyword: an
// optional type name, its element name, an optional metadata block, and
// its `{ ... }` body. It implements spec §4.2's ordering contract: the
// index is assigned before the body (and hence before any children) is
// parsed.
func (p *Parser) parsePrim(ctx context.Context, bag *diag.Bag, state LoadState, spec value.Specifier, parent, depth int) bool {
	if p.maxNestLevel > 0 && depth > p.maxNestLevel {
		p.errHere(ctx, bag, diag.ResourceLimitExceeded, "prim nesting exceeds configured maximum of %d", p.maxNestLevel)
		return false
	}

	var typeName string
	if p.cur.Kind == token.TypeIdent {
		typeName = p.cur.Text
		p.advance(ctx)
	}

	if p.cur.Kind != token.String {
		p.errHere(ctx, bag, diag.UnexpectedToken, "expected prim name, got %q", p.cur.Text)
		return false
	}
	elementName := p.cur.Text
	p.advance(ctx)

	idx := NoParent
	if p.OnPrimIdxAssign != nil {
		idx = p.OnPrimIdxAssign(ctx, parent)
	}
	p.lastChild = idx
	primCtx := diag.Note(ctx, "prim", elementName)

	var rawMeta []value.RawMetaEntry
	if p.cur.Kind == token.LParen {
		var ok bool
		rawMeta, ok = p.parseMetaBlock(primCtx, bag)
		if !ok {
			return false
		}
	}

	if p.cur.Kind != token.LBrace {
		p.errHere(primCtx, bag, diag.UnexpectedToken, "expected '{' to open prim body, got %q", p.cur.Text)
		return false
	}
	p.advance(primCtx)

	h := PrimHeader{
		Idx:         idx,
		Parent:      parent,
		Specifier:   spec,
		TypeName:    typeName,
		ElementName: elementName,
		RawMeta:     rawMeta,
	}

	for p.cur.Kind != token.RBrace {
		if p.cur.Kind == token.EOF {
			p.errHere(primCtx, bag, diag.UnexpectedEOF, "unterminated prim body")
			return false
		}
		switch p.cur.Kind {
		case token.KwDef, token.KwOver, token.KwClass:
			if !p.parseSpecifierLine(primCtx, bag, state, idx, depth+1) {
				return false
			}
			h.Children = append(h.Children, p.lastChild)
		case token.KwVariantSet:
			if !p.parseVariantSet(primCtx, bag, state, &h, depth) {
				return false
			}
		case token.KwReorder:
			// reorder statements affect presentation order only; the
			// reconstructed tree preserves textual order instead, so the
			// statement is parsed just far enough to skip it (§9 open
			// question).
			if !p.skipReorder(primCtx, bag) {
				return false
			}
		default:
			if !p.parseProperty(primCtx, bag, &h) {
				return false
			}
		}
	}
	p.advance(primCtx) // consume '}'
	// nested prims overwrote lastChild while the body parsed; the caller
	// records this prim's own index as its child.
	p.lastChild = idx

	switch {
	case state != Toplevel:
		if p.OnPrimSpec != nil {
			return p.OnPrimSpec(primCtx, h)
		}
	case typeName != "":
		if fn, ok := p.OnPrimConstruct[typeName]; ok {
			return fn(primCtx, h)
		}
		fallthrough
	default:
		if p.OnPrimConstructDefault != nil {
			return p.OnPrimConstructDefault(primCtx, h)
		}
	}
	return true
}

func (p *Parser) parseVariantSet(ctx context.Context, bag *diag.Bag, state LoadState, h *PrimHeader, depth int) bool {
	p.advance(ctx) // 'variantSet'
	if p.cur.Kind != token.String {
		p.errHere(ctx, bag, diag.UnexpectedToken, "expected variant set name, got %q", p.cur.Text)
		return false
	}
	vsName := p.cur.Text
	p.advance(ctx)

	if p.cur.Kind != token.Equals {
		p.errHere(ctx, bag, diag.UnexpectedToken, "expected '=' after variant set name")
		return false
	}
	p.advance(ctx)
	if p.cur.Kind != token.LBrace {
		p.errHere(ctx, bag, diag.UnexpectedToken, "expected '{' to open variant set body")
		return false
	}
	p.advance(ctx)

	if h.VariantSets == nil {
		h.VariantSets = map[string]map[string]VariantBody{}
	}
	if h.VariantSets[vsName] == nil {
		h.VariantSets[vsName] = map[string]VariantBody{}
	}

	for p.cur.Kind != token.RBrace {
		if p.cur.Kind == token.EOF {
			p.errHere(ctx, bag, diag.UnexpectedEOF, "unterminated variant set body")
			return false
		}
		if p.cur.Kind != token.String {
			p.errHere(ctx, bag, diag.UnexpectedToken, "expected variant name, got %q", p.cur.Text)
			return false
		}
		variantName := p.cur.Text
		p.advance(ctx)
		if p.cur.Kind != token.LBrace {
			p.errHere(ctx, bag, diag.UnexpectedToken, "expected '{' to open variant body")
			return false
		}
		p.advance(ctx)

		var body VariantBody
		for p.cur.Kind != token.RBrace {
			if p.cur.Kind == token.EOF {
				p.errHere(ctx, bag, diag.UnexpectedEOF, "unterminated variant body")
				return false
			}
			switch p.cur.Kind {
			case token.KwDef, token.KwOver, token.KwClass:
				if !p.parseSpecifierLine(ctx, bag, state, h.Idx, depth+1) {
					return false
				}
				body.Children = append(body.Children, p.lastChild)
			case token.KwReorder:
				if !p.skipReorder(ctx, bag) {
					return false
				}
			default:
				tmp := PrimHeader{RawMeta: body.RawMeta, Properties: body.Properties}
				if !p.parseProperty(ctx, bag, &tmp) {
					return false
				}
				body.RawMeta, body.Properties = tmp.RawMeta, tmp.Properties
			}
		}
		p.advance(ctx) // consume '}'
		h.VariantSets[vsName][variantName] = body
	}
	p.advance(ctx) // consume '}'
	return true
}

// skipReorder consumes a `reorder <key> = [ ... ]` statement without
// recording anything: reordering affects presentation order only.
func (p *Parser) skipReorder(ctx context.Context, bag *diag.Bag) bool {
	p.advance(ctx) // 'reorder'
	if p.cur.Kind != token.Ident {
		p.errHere(ctx, bag, diag.UnexpectedToken, "expected identifier after 'reorder', got %q", p.cur.Text)
		return false
	}
	p.advance(ctx)
	if p.cur.Kind != token.Equals {
		p.errHere(ctx, bag, diag.UnexpectedToken, "expected '=' in reorder statement")
		return false
	}
	p.advance(ctx)
	_, ok := p.captureValueText(ctx, bag)
	return ok
}

// isTypeToken reports whether k can open a property's type name: a bare
// identifier (double, token, float3, ...) or the `rel` keyword.
func isTypeToken(k token.Kind) bool {
	return k == token.Ident || k == token.KwRel
}

// parseProperty handles one property/attribute declaration: an optional
// `uniform`/`custom` keyword, a type name (with an optional trailing `[]`
// array marker), a property name, an optional `= value`, and an optional
// trailing metadata block. USDA has no statement terminator — the next
// token simply starts the next declaration — so the core never interprets
// the value beyond capturing its balanced-bracket text (spec §4.4 step 3
// hands interpretation off to the schema reconstructor).
func (p *Parser) parseProperty(ctx context.Context, bag *diag.Bag, h *PrimHeader) bool {
	if p.cur.Kind == token.KwUniform || p.cur.Kind == token.KwCustom || p.cur.Kind == token.KwVarying {
		p.advance(ctx)
	}
	if !isTypeToken(p.cur.Kind) {
		p.errHere(ctx, bag, diag.UnexpectedToken, "expected property type, got %q", p.cur.Text)
		return false
	}
	p.advance(ctx) // type token; syntactic only, discarded
	if p.cur.Kind == token.LBracket {
		p.advance(ctx)
		if p.cur.Kind != token.RBracket {
			p.errHere(ctx, bag, diag.UnexpectedToken, "expected ']' to close array type marker")
			return false
		}
		p.advance(ctx)
	}

	if p.cur.Kind != token.Ident {
		p.errHere(ctx, bag, diag.UnexpectedToken, "expected property name, got %q", p.cur.Text)
		return false
	}
	name := p.cur.Text
	p.advance(ctx)

	// a dotted suffix (e.g. foo.timeSamples) is part of the
	// property's full name; the core treats it as opaque.
	for p.cur.Kind == token.Dot {
		p.advance(ctx)
		if p.cur.Kind != token.Ident {
			p.errHere(ctx, bag, diag.UnexpectedToken, "expected identifier after '.'")
			return false
		}
		name += "." + p.cur.Text
		p.advance(ctx)
	}

	var text string
	if p.cur.Kind == token.Equals {
		p.advance(ctx)
		var ok bool
		text, ok = p.captureValueText(ctx, bag)
		if !ok {
			return false
		}
	}
	h.Properties.Set(name, value.Raw{Text: text})

	if p.cur.Kind == token.LParen {
		// property-level metadata (interpolation, customData on an
		// attribute, ...) is out of scope for PrimMeta; parse it far
		// enough to stay well-formed and discard it.
		if _, ok := p.parseMetaBlock(ctx, bag); !ok {
			return false
		}
	}
	return true
}

// captureValueText captures the verbatim source text of one value: a
// single scalar token, or a bracket-delimited tuple/list/timeSamples block
// captured whole (tracking nested depth so inner commas don't get mistaken
// for the end).
func (p *Parser) captureValueText(ctx context.Context, bag *diag.Bag) (string, bool) {
	switch p.cur.Kind {
	case token.LParen, token.LBracket, token.LBrace:
		return p.captureBalanced(ctx, bag)
	case token.EOF:
		p.errHere(ctx, bag, diag.UnexpectedEOF, "unterminated value")
		return "", false
	default:
		text := p.cur.Text
		p.advance(ctx)
		return text, true
	}
}

func (p *Parser) captureBalanced(ctx context.Context, bag *diag.Bag) (string, bool) {
	var b strings.Builder
	depth := 0
	for {
		if p.cur.Kind == token.EOF {
			p.errHere(ctx, bag, diag.UnexpectedEOF, "unterminated value")
			return "", false
		}
		switch p.cur.Kind {
		case token.LParen, token.LBracket, token.LBrace:
			depth++
		case token.RParen, token.RBracket, token.RBrace:
			depth--
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.cur.Text)
		p.advance(ctx)
		if depth == 0 {
			return b.String(), true
		}
	}
}

// parseMetaBlock parses a `( key = value ... )` metadata block, present
// either at stage level or atop a single Prim/property.
func (p *Parser) parseMetaBlock(ctx context.Context, bag *diag.Bag) ([]value.RawMetaEntry, bool) {
	p.advance(ctx) // '('
	var entries []value.RawMetaEntry
	for p.cur.Kind != token.RParen {
		if p.cur.Kind == token.EOF {
			p.errHere(ctx, bag, diag.UnexpectedEOF, "unterminated metadata block")
			return nil, false
		}
		if p.cur.Kind == token.KwReorder {
			if !p.skipReorder(ctx, bag) {
				return nil, false
			}
			continue
		}
		e, ok := p.parseOneMetaEntry(ctx, bag)
		if !ok {
			return nil, false
		}
		entries = append(entries, e)
	}
	p.advance(ctx) // ')'
	return entries, true
}

// isMetaKeyToken reports whether k may head a metadata key. Nearly every
// key is a bare identifier; "variantSets" is the sole reserved word that
// also appears as a metadata key name.
func isMetaKeyToken(k token.Kind) bool {
	return k == token.Ident || k == token.KwVariantSets
}

func (p *Parser) parseOneMetaEntry(ctx context.Context, bag *diag.Bag) (value.RawMetaEntry, bool) {
	qual := value.Explicit
	switch p.cur.Kind {
	case token.KwAdd:
		qual = value.Add
		p.advance(ctx)
	case token.KwDelete:
		qual = value.Delete
		p.advance(ctx)
	case token.KwAppend:
		qual = value.Append
		p.advance(ctx)
	case token.KwPrepend:
		qual = value.Prepend
		p.advance(ctx)
	}

	if !isMetaKeyToken(p.cur.Kind) {
		p.errHere(ctx, bag, diag.UnexpectedToken, "expected metadata key, got %q", p.cur.Text)
		return value.RawMetaEntry{}, false
	}
	key := p.cur.Text
	p.advance(ctx)

	if p.cur.Kind != token.Equals {
		p.errHere(ctx, bag, diag.UnexpectedToken, "expected '=' after metadata key %q", key)
		return value.RawMetaEntry{}, false
	}
	p.advance(ctx)

	val, ok := p.parseMetaValue(ctx, bag)
	if !ok {
		return value.RawMetaEntry{}, false
	}
	return value.RawMetaEntry{Key: key, Qualifier: qual, Value: val}, true
}

// parseMetaValue parses one metadata value, dispatched on the current
// token's kind. Unlike property values, metadata values ARE interpreted
// here (spec §4.3's per-key decode happens downstream in package meta, but
// the syntactic shape — string/number/bool/path/reference/list/dict — is
// resolved at this layer).
func (p *Parser) parseMetaValue(ctx context.Context, bag *diag.Bag) (interface{}, bool) {
	switch p.cur.Kind {
	case token.KwNone:
		p.advance(ctx)
		return nil, true
	case token.KwTrue:
		p.advance(ctx)
		return true, true
	case token.KwFalse:
		p.advance(ctx)
		return false, true
	case token.String, token.TripleString:
		s := p.cur.Text
		p.advance(ctx)
		return s, true
	case token.Number:
		f, err := strconv.ParseFloat(p.cur.Text, 64)
		if err != nil {
			p.errHere(ctx, bag, diag.InvalidNumericLiteral, "invalid number %q: %v", p.cur.Text, err)
			return nil, false
		}
		p.advance(ctx)
		return f, true
	case token.PathLiteral:
		path := value.ParsePath(p.cur.Text)
		p.advance(ctx)
		return path, true
	case token.AssetPath:
		return p.parseReference(ctx, bag)
	case token.LBracket:
		return p.parseMetaList(ctx, bag)
	case token.LBrace:
		return p.parseMetaDict(ctx, bag)
	default:
		p.errHere(ctx, bag, diag.UnexpectedToken, "unexpected token %q in metadata value", p.cur.Text)
		return nil, false
	}
}

func (p *Parser) parseReference(ctx context.Context, bag *diag.Bag) (value.Reference, bool) {
	ref := value.Reference{AssetPath: p.cur.Text}
	p.advance(ctx)
	if p.cur.Kind == token.PathLiteral {
		ref.PrimPath = value.ParsePath(p.cur.Text)
		ref.HasPrimPath = true
		p.advance(ctx)
	}
	return ref, true
}

func (p *Parser) parseMetaList(ctx context.Context, bag *diag.Bag) ([]interface{}, bool) {
	p.advance(ctx) // '['
	var out []interface{}
	for p.cur.Kind != token.RBracket {
		if p.cur.Kind == token.EOF {
			p.errHere(ctx, bag, diag.UnexpectedEOF, "unterminated list")
			return nil, false
		}
		v, ok := p.parseMetaValue(ctx, bag)
		if !ok {
			return nil, false
		}
		out = append(out, v)
		if p.cur.Kind == token.Comma {
			p.advance(ctx)
		}
	}
	p.advance(ctx) // ']'
	return out, true
}

// parseMetaDict parses USDA's typed-dictionary syntax `{ <type> "key" =
// value ... }`, used uniformly for customData/assetInfo/variants/
// customLayerData. The type token is syntactic-only and discarded; the
// result is a generic map, converted to a typed shape by the consuming
// decoder (meta.Decode/stage.DecodeMetadata).
func (p *Parser) parseMetaDict(ctx context.Context, bag *diag.Bag) (map[string]interface{}, bool) {
	p.advance(ctx) // '{'
	out := map[string]interface{}{}
	for p.cur.Kind != token.RBrace {
		if p.cur.Kind == token.EOF {
			p.errHere(ctx, bag, diag.UnexpectedEOF, "unterminated dict")
			return nil, false
		}
		if p.cur.Kind != token.Ident && p.cur.Kind != token.KwDictionary {
			p.errHere(ctx, bag, diag.UnexpectedToken, "expected dict entry type, got %q", p.cur.Text)
			return nil, false
		}
		p.advance(ctx) // type token, discarded
		if p.cur.Kind == token.LBracket {
			p.advance(ctx)
			if p.cur.Kind != token.RBracket {
				p.errHere(ctx, bag, diag.UnexpectedToken, "expected ']' to close array type marker")
				return nil, false
			}
			p.advance(ctx)
		}

		if p.cur.Kind != token.String {
			p.errHere(ctx, bag, diag.UnexpectedToken, "expected dict key, got %q", p.cur.Text)
			return nil, false
		}
		key := p.cur.Text
		p.advance(ctx)

		if p.cur.Kind != token.Equals {
			p.errHere(ctx, bag, diag.UnexpectedToken, "expected '=' after dict key %q", key)
			return nil, false
		}
		p.advance(ctx)

		v, ok := p.parseMetaValue(ctx, bag)
		if !ok {
			return nil, false
		}
		out[key] = v

		if p.cur.Kind == token.Comma {
			p.advance(ctx)
		}
	}
	p.advance(ctx) // '}'
	return out, true
}
