// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

package meta_test

import (
	"context"
	"testing"

	"github.com/iancoleman/strcase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/tinyusdz/diag"
	"github.com/YusakuNo1/tinyusdz/meta"
	"github.com/YusakuNo1/tinyusdz/value"
)

func TestDecode_KnownKeys(t *testing.T) {
	var bag diag.Bag
	entries := []value.RawMetaEntry{
		{Key: "active", Value: true},
		{Key: "hidden", Value: false},
		{Key: "kind", Value: "component"},
		{Key: "displayName", Value: "Nice Name"},
		{Key: "comment", Value: "a test prim"},
	}
	m, ok := meta.Decode(context.Background(), &bag, entries, meta.Options{})
	require.True(t, ok)
	assert.Empty(t, bag.GetWarning())
	assert.Empty(t, bag.GetError())

	assert.True(t, m.ActiveSet)
	assert.True(t, m.Active)
	assert.True(t, m.HiddenSet)
	assert.False(t, m.Hidden)
	assert.Equal(t, value.KindComponent, m.Kind)
	assert.Equal(t, "Nice Name", m.DisplayName)
	assert.Equal(t, "a test prim", m.Comment)
}

func TestDecode_UnknownKeyWarns(t *testing.T) {
	var bag diag.Bag
	entries := []value.RawMetaEntry{{Key: "notARealKey", Value: "x"}}
	m, ok := meta.Decode(context.Background(), &bag, entries, meta.Options{})
	require.True(t, ok)
	assert.Contains(t, bag.GetWarning(), "notARealKey")
	assert.Empty(t, m.Comment)
}

func TestDecode_ActiveTypeMismatchErrors(t *testing.T) {
	var bag diag.Bag
	entries := []value.RawMetaEntry{{Key: "active", Value: "not-a-bool"}}
	_, ok := meta.Decode(context.Background(), &bag, entries, meta.Options{})
	assert.False(t, ok)
	assert.Contains(t, bag.GetError(), "active")
}

func TestDecode_UnknownKindTokenErrors(t *testing.T) {
	var bag diag.Bag
	entries := []value.RawMetaEntry{{Key: "kind", Value: "not-a-real-kind"}}
	_, ok := meta.Decode(context.Background(), &bag, entries, meta.Options{})
	assert.False(t, ok)
	assert.Contains(t, bag.GetError(), "not-a-real-kind")
}

func TestDecode_APISchemas(t *testing.T) {
	cases := []struct {
		name      string
		qualifier value.ListEditQualifier
		values    []interface{}
		allowUnk  bool
		wantOK    bool
		wantWarn  bool
	}{
		{"prepend of known schema ok", value.Prepend, []interface{}{"CollectionAPI"}, false, true, false},
		{"append qualifier rejected", value.Append, []interface{}{"CollectionAPI"}, false, false, false},
		{"unknown schema dropped when allowed", value.Prepend, []interface{}{"TotallyMadeUpAPI"}, true, true, true},
		{"unknown schema errors when disallowed", value.Prepend, []interface{}{"TotallyMadeUpAPI"}, false, false, false},
	}
	for _, tc := range cases {
		t.Run(strcase.ToSnake(tc.name), func(t *testing.T) {
			var bag diag.Bag
			entries := []value.RawMetaEntry{{Key: "apiSchemas", Qualifier: tc.qualifier, Value: tc.values}}
			_, ok := meta.Decode(context.Background(), &bag, entries, meta.Options{AllowUnknownAPISchemas: tc.allowUnk})
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantWarn {
				assert.NotEmpty(t, bag.GetWarning())
			}
		})
	}
}

func TestDecode_ReferencesPromotesBareReferenceToList(t *testing.T) {
	var bag diag.Bag
	ref := value.Reference{AssetPath: "./other.usda"}
	entries := []value.RawMetaEntry{{Key: "references", Value: ref}}
	m, ok := meta.Decode(context.Background(), &bag, entries, meta.Options{})
	require.True(t, ok)
	require.Len(t, m.References.Refs, 1)
	assert.Equal(t, ref, m.References.Refs[0])
}

func TestDecodePlaybackMode(t *testing.T) {
	var bag diag.Bag
	mode, ok := meta.DecodePlaybackMode(context.Background(), &bag, "loop")
	require.True(t, ok)
	assert.Equal(t, value.PlaybackLoop, mode)

	_, ok = meta.DecodePlaybackMode(context.Background(), &bag, "sometimes")
	assert.False(t, ok)
}
