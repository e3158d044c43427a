// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

package reader_test

import (
	"context"
	"strings"
	"testing"

	"github.com/iancoleman/strcase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/tinyusdz/config"
	"github.com/YusakuNo1/tinyusdz/parser"
	"github.com/YusakuNo1/tinyusdz/reader"
	"github.com/YusakuNo1/tinyusdz/schema"
	"github.com/YusakuNo1/tinyusdz/stage"
)

func mustRead(t *testing.T, cfg config.Config, src string) *reader.Reader {
	t.Helper()
	r := reader.NewReader(cfg)
	ok := r.Read(context.Background(), parser.Toplevel, strings.NewReader(src))
	require.True(t, ok, r.GetError())
	return r
}

func TestReconstructStage_EmptyStage(t *testing.T) {
	r := mustRead(t, config.Default(), "#usda 1.0\n")
	require.True(t, r.ReconstructStage(context.Background()))
	st := r.GetStage()
	assert.Empty(t, st.Root)
}

func TestReconstructStage_SingleXform(t *testing.T) {
	src := "#usda 1.0\n" + `def Xform "World" {}`
	r := mustRead(t, config.Default(), src)
	require.True(t, r.ReconstructStage(context.Background()))

	st := r.GetStage()
	require.Len(t, st.Root, 1)
	world := st.Root[0]
	assert.Equal(t, schema.KindXform, world.Kind)
	assert.Equal(t, "World", world.ElementName)
	assert.Equal(t, "/World", world.Path)
	assert.Equal(t, 0, world.StableID)
}

func TestReconstructStage_NestedXform(t *testing.T) {
	src := "#usda 1.0\n" + `
def Xform "World" {
	def Xform "Geo" {
	}
}`
	r := mustRead(t, config.Default(), src)
	require.True(t, r.ReconstructStage(context.Background()))

	st := r.GetStage()
	require.Len(t, st.Root, 1)
	world := st.Root[0]
	require.Len(t, world.Children, 1)
	geo := world.Children[0]
	assert.Equal(t, "/World/Geo", geo.Path)
	assert.Greater(t, geo.StableID, world.StableID, "children get later stable ids than their parent (pre-order)")
}

func TestReconstructStage_UnknownTypeFallsBackToModel(t *testing.T) {
	src := "#usda 1.0\n" + `def SomeVendorExtensionType "Thing" {}`
	r := mustRead(t, config.Default(), src)
	require.True(t, r.ReconstructStage(context.Background()))
	assert.NotEmpty(t, r.GetWarning())

	st := r.GetStage()
	require.Len(t, st.Root, 1)
	assert.Equal(t, schema.KindModel, st.Root[0].Kind)
	assert.Equal(t, "SomeVendorExtensionType", st.Root[0].PrimTypeName)
}

func TestReconstructStage_UnknownTypeFatalWhenDisallowed(t *testing.T) {
	cfg := config.Default()
	cfg.AllowUnknownPrims = false
	r := reader.NewReader(cfg)
	src := "#usda 1.0\n" + `def SomeVendorExtensionType "Thing" {}`
	ok := r.Read(context.Background(), parser.Toplevel, strings.NewReader(src))
	assert.False(t, ok)
	assert.NotEmpty(t, r.GetError())
}

func TestReconstructStage_VariantSplicing(t *testing.T) {
	src := "#usda 1.0\n" + `
def Xform "Foo" {
	variantSet "shadingVariant" = {
		"red" {
			def Xform "RedThing" {}
		}
		"blue" {
			def Xform "BlueThing" {}
		}
	}
}`
	r := mustRead(t, config.Default(), src)
	require.True(t, r.ReconstructStage(context.Background()))

	st := r.GetStage()
	require.Len(t, st.Root, 1)
	foo := st.Root[0]
	require.Contains(t, foo.VariantSets, "shadingVariant")
	variants := foo.VariantSets["shadingVariant"]
	require.Contains(t, variants, "red")
	require.Contains(t, variants, "blue")
	require.Len(t, variants["red"].Children, 1)
	assert.Equal(t, "RedThing", variants["red"].Children[0].ElementName)
	assert.Equal(t, "/Foo/RedThing", variants["red"].Children[0].Path)
	assert.Empty(t, foo.Children, "a child placed in a variant must not also appear as an ordinary child")
}

// TestReconstructStage_DistinctVariantsNeverCollide is the negative
// counterpart to the duplicate-child invariant enforced in
// constructPrimTree: since the grammar assigns every "def" a fresh store
// index, two variants can never legitimately share a child, and
// reconstruction must succeed without tripping the DuplicateVariantChild
// fatal added specifically to guard against that (otherwise impossible
// through normal parsing) case.
func TestReconstructStage_DistinctVariantsNeverCollide(t *testing.T) {
	src := "#usda 1.0\n" + `
def Xform "Foo" {
	variantSet "a" = {
		"x" {
			def Xform "Shared" {}
		}
	}
	variantSet "b" = {
		"y" {
		}
	}
}`
	r := mustRead(t, config.Default(), src)
	require.True(t, r.ReconstructStage(context.Background()))
}

func TestReconstructStage_ElementNameRejectsSlashAndDot(t *testing.T) {
	cases := []string{"Foo/Bar", "Foo.Bar", ""}
	for _, name := range cases {
		t.Run(strcase.ToSnake("rejects "+name), func(t *testing.T) {
			src := "#usda 1.0\n" + `def Xform "` + name + `" {}`
			r := reader.NewReader(config.Default())
			ok := r.Read(context.Background(), parser.Toplevel, strings.NewReader(src))
			assert.False(t, ok)
			assert.NotEmpty(t, r.GetError())
		})
	}
}

func TestReconstructStage_MaxNestingDepthBoundary(t *testing.T) {
	cfg := config.Default()
	cfg.MaxPrimNestLevel = 1
	src := "#usda 1.0\n" + `
def Xform "A" {
	def Xform "B" {
		def Xform "C" {
		}
	}
}`
	r := reader.NewReader(cfg)
	ok := r.Read(context.Background(), parser.Toplevel, strings.NewReader(src))
	assert.False(t, ok)
	assert.NotEmpty(t, r.GetError())
}

func TestGetAsLayer_IsOneShot(t *testing.T) {
	src := "#usda 1.0\n" + `def "Foo" {}`
	r := reader.NewReader(config.Default())
	ok := r.Read(context.Background(), parser.SublayerLoad, strings.NewReader(src))
	require.True(t, ok, r.GetError())

	var layer stage.Layer
	require.True(t, r.GetAsLayer(context.Background(), &layer))
	require.Len(t, layer.Root, 1)
	assert.Equal(t, "Foo", layer.Root[0].ElementName)

	var second stage.Layer
	assert.False(t, r.GetAsLayer(context.Background(), &second), "a second GetAsLayer call on the same Read must fail (one-shot contract)")
}

func TestReconstructStage_StageMetadata(t *testing.T) {
	src := "#usda 1.0\n" + `(
	upAxis = "Y"
	defaultPrim = "World"
	metersPerUnit = 0.01
)
def Xform "World" {}`
	r := mustRead(t, config.Default(), src)
	require.True(t, r.ReconstructStage(context.Background()))
	st := r.GetStage()
	assert.Equal(t, "World", st.Metadata.DefaultPrim)
	assert.Equal(t, 0.01, st.Metadata.MetersPerUnit)
}
