// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/tinyusdz/schema"
	"github.com/YusakuNo1/tinyusdz/value"
)

func TestRegistry_LookupAndNames(t *testing.T) {
	r := schema.NewRegistry()

	k, ok := r.Lookup("Sphere")
	require.True(t, ok)
	assert.Equal(t, schema.KindGeomSphere, k)

	k, ok = r.Lookup("Mesh")
	require.True(t, ok)
	assert.Equal(t, schema.KindGeomMesh, k)

	k, ok = r.Lookup("GeomMesh")
	require.True(t, ok)
	assert.Equal(t, schema.KindGeomMesh, k, "GeomMesh is accepted as an alias for the canonical Mesh type name")

	_, ok = r.Lookup("NotARealUSDType")
	assert.False(t, ok)

	names := r.Names()
	assert.Equal(t, schema.KindXform, names["Xform"])
	assert.Equal(t, schema.KindShader, names["Shader"])
}

func TestRegistry_ReconstructGeomSphere(t *testing.T) {
	r := schema.NewRegistry()
	var props value.PropertyMap
	props.Set("radius", value.Raw{Text: "2.5"})

	payload, warn, errStr, ok := r.Reconstruct(schema.KindGeomSphere, props, nil)
	require.True(t, ok)
	assert.Empty(t, warn)
	assert.Empty(t, errStr)

	f, ok := payload.(schema.GeomSphereFields)
	require.True(t, ok)
	assert.True(t, f.HasRadius)
	assert.Equal(t, "2.5", f.Radius.Text)
}

func TestRegistry_ReconstructModelIsEmptyAndOK(t *testing.T) {
	r := schema.NewRegistry()
	_, warn, errStr, ok := r.Reconstruct(schema.KindModel, value.PropertyMap{}, nil)
	assert.True(t, ok)
	assert.Empty(t, warn)
	assert.Empty(t, errStr)
}

func TestRegistry_ReconstructGPrimWarns(t *testing.T) {
	r := schema.NewRegistry()
	_, warn, _, ok := r.Reconstruct(schema.KindGPrim, value.PropertyMap{}, nil)
	assert.True(t, ok)
	assert.NotEmpty(t, warn)
}

func TestRegistry_ReconstructUnregisteredKindFails(t *testing.T) {
	r := schema.NewRegistry()
	_, _, errStr, ok := r.Reconstruct(schema.Kind(9999), value.PropertyMap{}, nil)
	assert.False(t, ok)
	assert.NotEmpty(t, errStr)
}

func TestKind_StringFallsBackToModel(t *testing.T) {
	assert.Equal(t, "Xform", schema.KindXform.String())
	assert.Equal(t, "Model", schema.KindModel.String())
	assert.Equal(t, "Model", schema.Kind(9999).String())
}

// recordingVisitor implements schema.PrimVisitor and records which method
// fired, mirroring the teacher's visitor-test style of asserting dispatch
// by recording a label rather than inspecting concrete types directly.
type recordingVisitor struct {
	called string
}

func (v *recordingVisitor) VisitGeomMesh(p *schema.Prim, f schema.GeomMeshFields) { v.called = "geomMesh" }
func (v *recordingVisitor) VisitLight(p *schema.Prim, f schema.LightFields)       { v.called = "light" }
func (v *recordingVisitor) VisitShader(p *schema.Prim, f schema.ShaderFields)     { v.called = "shader" }
func (v *recordingVisitor) VisitSkeleton(p *schema.Prim, f schema.SkeletonFields) { v.called = "skeleton" }
func (v *recordingVisitor) VisitOther(p *schema.Prim)                            { v.called = "other" }

func TestPrim_VisitDispatchesOnPayloadType(t *testing.T) {
	cases := []struct {
		name    string
		payload interface{}
		want    string
	}{
		{"geom mesh payload", schema.GeomMeshFields{}, "geomMesh"},
		{"light payload", schema.LightFields{}, "light"},
		{"shader payload", schema.ShaderFields{}, "shader"},
		{"skeleton payload", schema.SkeletonFields{}, "skeleton"},
		{"nil payload falls through to other", nil, "other"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &schema.Prim{Kind: schema.KindModel, Payload: tc.payload}
			v := &recordingVisitor{}
			p.Visit(v)
			assert.Equal(t, tc.want, v.called)
		})
	}
}
