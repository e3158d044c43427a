// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

package value_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/iancoleman/strcase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/tinyusdz/value"
)

func TestParsePath(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want value.Path
	}{
		{"bare prim", "/World/Geo", value.Path{Prim: "/World/Geo"}},
		{"prim with property", "/World/Geo.size", value.Path{Prim: "/World/Geo", Property: "size"}},
		{"prim with relationship target", "/World/Geo.binding[/Mat/Red]", value.Path{Prim: "/World/Geo", Property: "binding", Target: "/Mat/Red"}},
	}
	for _, tc := range cases {
		t.Run(strcase.ToSnake(tc.name), func(t *testing.T) {
			got := value.ParsePath(tc.raw)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.raw, got.String())
		})
	}
}

func TestPropertyMap_PreservesInsertionOrder(t *testing.T) {
	var pm value.PropertyMap
	pm.Set("points", value.Raw{Text: "[]"})
	pm.Set("radius", value.Raw{Text: "1"})
	pm.Set("points", value.Raw{Text: "[(0,0,0)]"}) // overwrite, must not duplicate in Names

	require.Equal(t, []string{"points", "radius"}, pm.Names)

	got, ok := pm.Get("points")
	require.True(t, ok)
	assert.Equal(t, "[(0,0,0)]", got.Text)

	_, ok = pm.Get("missing")
	assert.False(t, ok)
}

func TestDict_RoundTripsThroughProtoStruct(t *testing.T) {
	in := map[string]interface{}{
		"author":  "tester",
		"version": float64(2),
		"tags":    []interface{}{"a", "b"},
		"nested":  map[string]interface{}{"ok": true},
	}
	d := value.NewDictFromMap(in)
	out := d.ToGo()

	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("dict round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupKind(t *testing.T) {
	k, ok := value.LookupKind("component")
	require.True(t, ok)
	assert.Equal(t, value.KindComponent, k)

	_, ok = value.LookupKind("not-a-kind")
	assert.False(t, ok)
}

func TestLookupPlaybackMode(t *testing.T) {
	m, ok := value.LookupPlaybackMode("loop")
	require.True(t, ok)
	assert.Equal(t, value.PlaybackLoop, m)

	_, ok = value.LookupPlaybackMode("bogus")
	assert.False(t, ok)
}
