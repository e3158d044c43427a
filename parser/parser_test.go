// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

package parser_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/tinyusdz/diag"
	"github.com/YusakuNo1/tinyusdz/parser"
	"github.com/YusakuNo1/tinyusdz/value"
)

// newTestParser wires minimal callbacks that record every construct call,
// mirroring how package reader drives the same Parser in production but
// without any schema reconstruction — this package only needs to prove the
// grammar and callback-ordering contract, not reconstruction semantics.
type recorder struct {
	stageMeta  []value.RawMetaEntry
	assigns    int
	constructs []parser.PrimHeader
	specs      []parser.PrimHeader
}

func newTestParser(rec *recorder) *parser.Parser {
	p := &parser.Parser{}
	p.OnStageMeta = func(ctx context.Context, entries []value.RawMetaEntry) {
		rec.stageMeta = entries
	}
	p.OnPrimIdxAssign = func(ctx context.Context, parent int) int {
		idx := rec.assigns
		rec.assigns++
		return idx
	}
	p.OnPrimConstructDefault = func(ctx context.Context, h parser.PrimHeader) bool {
		rec.constructs = append(rec.constructs, h)
		return true
	}
	p.OnPrimSpec = func(ctx context.Context, h parser.PrimHeader) bool {
		rec.specs = append(rec.specs, h)
		return true
	}
	return p
}

func TestParse_MissingMagicHeaderFails(t *testing.T) {
	var bag diag.Bag
	rec := &recorder{}
	p := newTestParser(rec)
	ok := p.Parse(context.Background(), &bag, parser.Toplevel, strings.NewReader(`def Xform "Foo" {}`))
	assert.False(t, ok)
	assert.NotEmpty(t, bag.GetError())
}

func TestParse_SimpleXform(t *testing.T) {
	src := "#usda 1.0\n" + `def Xform "Foo" {}`
	var bag diag.Bag
	rec := &recorder{}
	p := newTestParser(rec)
	ok := p.Parse(context.Background(), &bag, parser.Toplevel, strings.NewReader(src))
	require.True(t, ok, bag.GetError())
	require.Len(t, rec.constructs, 1)
	assert.Equal(t, "Xform", rec.constructs[0].TypeName)
	assert.Equal(t, "Foo", rec.constructs[0].ElementName)
	assert.Equal(t, value.Def, rec.constructs[0].Specifier)
}

func TestParse_NestedPrimAssignsParentBeforeChild(t *testing.T) {
	src := "#usda 1.0\n" + `
def Xform "Parent" {
	def Xform "Child" {
	}
}`
	var bag diag.Bag
	rec := &recorder{}
	p := newTestParser(rec)
	ok := p.Parse(context.Background(), &bag, parser.Toplevel, strings.NewReader(src))
	require.True(t, ok, bag.GetError())
	require.Len(t, rec.constructs, 2)

	// children construct before their parent (body closes bottom-up), but
	// their assigned index must still be numerically after the parent's.
	child := rec.constructs[0]
	par := rec.constructs[1]
	assert.Equal(t, "Child", child.ElementName)
	assert.Equal(t, "Parent", par.ElementName)
	assert.Less(t, par.Idx, child.Idx)
	assert.Equal(t, []int{child.Idx}, par.Children)
}

func TestParse_StageMetaBlock(t *testing.T) {
	src := "#usda 1.0\n" + `(
	upAxis = "Y"
	defaultPrim = "World"
)
`
	var bag diag.Bag
	rec := &recorder{}
	p := newTestParser(rec)
	ok := p.Parse(context.Background(), &bag, parser.Toplevel, strings.NewReader(src))
	require.True(t, ok, bag.GetError())
	require.Len(t, rec.stageMeta, 2)
	assert.Equal(t, "upAxis", rec.stageMeta[0].Key)
	assert.Equal(t, "Y", rec.stageMeta[0].Value)
}

func TestParse_MetaQualifierPrepend(t *testing.T) {
	src := "#usda 1.0\n" + `
def Xform "Foo" (
	prepend references = @./other.usda@
) {}`
	var bag diag.Bag
	rec := &recorder{}
	p := newTestParser(rec)
	ok := p.Parse(context.Background(), &bag, parser.Toplevel, strings.NewReader(src))
	require.True(t, ok, bag.GetError())
	require.Len(t, rec.constructs, 1)
	require.Len(t, rec.constructs[0].RawMeta, 1)
	entry := rec.constructs[0].RawMeta[0]
	assert.Equal(t, "references", entry.Key)
	assert.Equal(t, value.Prepend, entry.Qualifier)
}

func TestParse_VariantSet(t *testing.T) {
	src := "#usda 1.0\n" + `
def Xform "Foo" {
	variantSet "shadingVariant" = {
		"red" {
			def Xform "RedThing" {}
		}
		"blue" {
		}
	}
}`
	var bag diag.Bag
	rec := &recorder{}
	p := newTestParser(rec)
	ok := p.Parse(context.Background(), &bag, parser.Toplevel, strings.NewReader(src))
	require.True(t, ok, bag.GetError())
	require.Len(t, rec.constructs, 2, "the variant's nested prim plus the owning Foo prim")

	foo := rec.constructs[len(rec.constructs)-1]
	require.Contains(t, foo.VariantSets, "shadingVariant")
	variants := foo.VariantSets["shadingVariant"]
	require.Contains(t, variants, "red")
	require.Contains(t, variants, "blue")
	assert.Len(t, variants["red"].Children, 1)
	assert.Empty(t, variants["blue"].Children)
}

func TestParse_ReorderStatementIsSkipped(t *testing.T) {
	src := "#usda 1.0\n" + `
def Xform "Foo" {
	reorder nameChildren = ["A", "B"]
}`
	var bag diag.Bag
	rec := &recorder{}
	p := newTestParser(rec)
	ok := p.Parse(context.Background(), &bag, parser.Toplevel, strings.NewReader(src))
	require.True(t, ok, bag.GetError())
	require.Len(t, rec.constructs, 1)
	assert.Empty(t, rec.constructs[0].Children)
}

func TestParse_SublayerLoadUsesPrimSpecCallback(t *testing.T) {
	src := "#usda 1.0\n" + `def "Foo" {}`
	var bag diag.Bag
	rec := &recorder{}
	p := newTestParser(rec)
	ok := p.Parse(context.Background(), &bag, parser.SublayerLoad, strings.NewReader(src))
	require.True(t, ok, bag.GetError())
	assert.Empty(t, rec.constructs)
	require.Len(t, rec.specs, 1)
	assert.Equal(t, "Foo", rec.specs[0].ElementName)
}

func TestParse_MalformedInputReportsUnexpectedToken(t *testing.T) {
	src := "#usda 1.0\n" + `def Xform "Foo" }` // missing '{'
	var bag diag.Bag
	rec := &recorder{}
	p := newTestParser(rec)
	ok := p.Parse(context.Background(), &bag, parser.Toplevel, strings.NewReader(src))
	assert.False(t, ok)
	assert.NotEmpty(t, bag.GetError())
}

func TestParse_NestingDepthBoundary(t *testing.T) {
	src := "#usda 1.0\n" + `
def Xform "A" {
	def Xform "B" {
		def Xform "C" {
		}
	}
}`
	var bag diag.Bag
	rec := &recorder{}
	p := newTestParser(rec)
	p.SetMaxNestLevel(1)
	ok := p.Parse(context.Background(), &bag, parser.Toplevel, strings.NewReader(src))
	assert.False(t, ok, "nesting beyond the configured maximum must fail, not silently truncate")
	assert.NotEmpty(t, bag.GetError())
}
