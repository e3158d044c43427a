// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

// Package meta decodes a Prim's raw metadata map into a structured
// PrimMeta record.
//
// The decoder dispatches on key name with a plain switch, the same idiom
// the teacher's passes/mods.go uses to validate cKDL node "modifiers" one
// key at a time — generalized here from cKDL's validator keys to USD's
// closed PrimMeta field set (§4.3).
package meta

import (
	"context"
	"fmt"

	"github.com/YusakuNo1/tinyusdz/diag"
	"github.com/YusakuNo1/tinyusdz/value"
)

// PrimMeta is the structured form of a Prim's metadata block (spec §3).
type PrimMeta struct {
	Active      bool
	ActiveSet   bool
	Hidden      bool
	HiddenSet   bool
	Kind        value.Kind
	SceneName   string
	DisplayName string
	CustomData  value.Dict
	AssetInfo   value.Dict

	// Variants holds the chosen variant per variant set, e.g.
	// Variants["shadingVariant"] == "red".
	Variants map[string]string

	Inherits    value.PathList
	Specializes value.PathList
	VariantSets value.StringList
	APISchemas  value.APISchemaList
	References  value.ReferenceList
	Payload     value.ReferenceList

	Comment string
}

// Options controls lenient-vs-strict behavior that depends on Config.
type Options struct {
	AllowUnknownAPISchemas bool
}

// Decode consumes entries in source order and populates a PrimMeta,
// recording warnings/errors on bag. It returns false only when a decode
// failure should count as this Prim's error (the caller decides whether
// that is fatal).
func Decode(ctx context.Context, bag *diag.Bag, entries []value.RawMetaEntry, opts Options) (PrimMeta, bool) {
	var m PrimMeta
	ok := true
	for _, e := range entries {
		entryCtx := diag.Note(ctx, "key", e.Key)
		if !decodeOne(entryCtx, bag, &m, e, opts) {
			ok = false
		}
	}
	return m, ok
}

func decodeOne(ctx context.Context, bag *diag.Bag, m *PrimMeta, e value.RawMetaEntry, opts Options) bool {
	switch e.Key {
	case "active":
		b, ok := e.Value.(bool)
		if !ok {
			return typeError(ctx, bag, e.Key, "bool", e.Value)
		}
		m.Active, m.ActiveSet = b, true

	case "hidden":
		b, ok := e.Value.(bool)
		if !ok {
			return typeError(ctx, bag, e.Key, "bool", e.Value)
		}
		m.Hidden, m.HiddenSet = b, true

	case "kind":
		s, ok := e.Value.(string)
		if !ok {
			return typeError(ctx, bag, e.Key, "string", e.Value)
		}
		k, known := value.LookupKind(s)
		if !known {
			bag.Errorf(ctx, diag.UnknownEnumToken, "unrecognized kind %q", s)
			return false
		}
		m.Kind = k

	case "sceneName":
		s, ok := e.Value.(string)
		if !ok {
			return typeError(ctx, bag, e.Key, "string", e.Value)
		}
		m.SceneName = s

	case "displayName":
		s, ok := e.Value.(string)
		if !ok {
			return typeError(ctx, bag, e.Key, "string", e.Value)
		}
		m.DisplayName = s

	case "customData":
		d, ok := asDict(e.Value)
		if !ok {
			return typeError(ctx, bag, e.Key, "dictionary", e.Value)
		}
		m.CustomData = d

	case "assetInfo":
		d, ok := asDict(e.Value)
		if !ok {
			return typeError(ctx, bag, e.Key, "dictionary", e.Value)
		}
		m.AssetInfo = d

	case "variants":
		vm, ok := e.Value.(map[string]interface{})
		if !ok {
			return typeError(ctx, bag, e.Key, "dictionary", e.Value)
		}
		if m.Variants == nil {
			m.Variants = map[string]string{}
		}
		for vsName, raw := range vm {
			s, ok := raw.(string)
			if !ok {
				bag.Errorf(ctx, diag.InvalidMetadataType,
					"variants[%s]: expected string, got %T", vsName, raw)
				return false
			}
			m.Variants[vsName] = s
		}

	case "inherits":
		paths, ok := asPathList(e.Value)
		if !ok {
			return typeError(ctx, bag, e.Key, "path list", e.Value)
		}
		m.Inherits = value.PathList{Paths: paths, Qualifier: e.Qualifier}

	case "specializes":
		paths, ok := asPathList(e.Value)
		if !ok {
			return typeError(ctx, bag, e.Key, "path list", e.Value)
		}
		m.Specializes = value.PathList{Paths: paths, Qualifier: e.Qualifier}

	case "variantSets":
		strs, ok := asStringList(e.Value)
		if !ok {
			return typeError(ctx, bag, e.Key, "string list", e.Value)
		}
		m.VariantSets = value.StringList{Values: strs, Qualifier: e.Qualifier}

	case "apiSchemas":
		if e.Qualifier != value.Prepend && e.Qualifier != value.Reset {
			bag.Errorf(ctx, diag.InvalidListEditQualifier,
				"apiSchemas: qualifier must be prepend or reset, got %s", e.Qualifier)
			return false
		}
		raw, ok := asAnyList(e.Value)
		if !ok {
			return typeError(ctx, bag, e.Key, "string list", e.Value)
		}
		var schemas []value.APISchema
		for _, item := range raw {
			s, ok := item.(string)
			if !ok {
				bag.Errorf(ctx, diag.InvalidMetadataType, "apiSchemas: expected string entries, got %T", item)
				return false
			}
			if !isKnownAPISchema(s) {
				if opts.AllowUnknownAPISchemas {
					bag.Warnf(ctx, diag.UnknownMetadataKey, "unknown API schema %q, dropped", s)
					continue
				}
				bag.Errorf(ctx, diag.UnknownEnumToken, "unknown API schema %q", s)
				return false
			}
			schemas = append(schemas, value.APISchema{Name: s})
		}
		m.APISchemas = value.APISchemaList{Schemas: schemas, Qualifier: e.Qualifier}

	case "references":
		refs, ok := asReferenceList(e.Value)
		if !ok {
			return typeError(ctx, bag, e.Key, "reference list", e.Value)
		}
		m.References = value.ReferenceList{Refs: refs, Qualifier: e.Qualifier}

	case "payload":
		refs, ok := asReferenceList(e.Value)
		if !ok {
			return typeError(ctx, bag, e.Key, "reference list", e.Value)
		}
		m.Payload = value.ReferenceList{Refs: refs, Qualifier: e.Qualifier}

	case "comment":
		s, ok := e.Value.(string)
		if !ok {
			return typeError(ctx, bag, e.Key, "string", e.Value)
		}
		m.Comment = s

	default:
		bag.Warnf(ctx, diag.UnknownMetadataKey, "unrecognized metadata key %q, ignored", e.Key)
	}
	return true
}

// DecodePlaybackMode validates the Stage-metadata playbackMode token.
func DecodePlaybackMode(ctx context.Context, bag *diag.Bag, tok string) (value.PlaybackMode, bool) {
	mode, ok := value.LookupPlaybackMode(tok)
	if !ok {
		bag.Errorf(ctx, diag.UnknownEnumToken, "unrecognized playbackMode %q", tok)
		return 0, false
	}
	return mode, true
}

func typeError(ctx context.Context, bag *diag.Bag, key, expected string, got interface{}) bool {
	bag.Errorf(ctx, diag.InvalidMetadataType, "%s: expected %s, got %T", key, expected, got)
	return false
}

func asDict(v interface{}) (value.Dict, bool) {
	switch t := v.(type) {
	case nil:
		return value.Dict{}, true
	case value.Dict:
		return t, true
	case map[string]interface{}:
		return value.NewDictFromMap(t), true
	default:
		return value.Dict{}, false
	}
}

func asPathList(v interface{}) ([]value.Path, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case value.Path:
		return []value.Path{t}, true
	case []value.Path:
		return t, true
	case []interface{}:
		var out []value.Path
		for _, item := range t {
			p, ok := item.(value.Path)
			if !ok {
				return nil, false
			}
			out = append(out, p)
		}
		return out, true
	default:
		return nil, false
	}
}

func asStringList(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		return []string{t}, true
	case []string:
		return t, true
	case []interface{}:
		var out []string
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func asAnyList(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case []interface{}:
		return t, true
	default:
		return []interface{}{t}, true
	}
}

// asReferenceList implements the single/list/blocked promotion rule from
// §4.3: a blocked value is an empty list, a bare Reference is promoted to a
// one-element list.
func asReferenceList(v interface{}) ([]value.Reference, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case value.Reference:
		return []value.Reference{t}, true
	case []value.Reference:
		return t, true
	case []interface{}:
		var out []value.Reference
		for _, item := range t {
			r, ok := item.(value.Reference)
			if !ok {
				return nil, false
			}
			out = append(out, r)
		}
		return out, true
	default:
		return nil, false
	}
}

var knownAPISchemas = map[string]bool{
	"CollectionAPI":       true,
	"MaterialBindingAPI":  true,
	"GeomModelAPI":        true,
	"ShapingAPI":          true,
	"SkelBindingAPI":      true,
	"PhysicsRigidBodyAPI": true,
	"PhysicsCollisionAPI": true,
}

func isKnownAPISchema(name string) bool {
	return knownAPISchemas[name]
}

// Describe renders a PrimMeta's key fields for diagnostics/tests.
func (m PrimMeta) Describe() string {
	return fmt.Sprintf("kind=%s active=%v hidden=%v variants=%d refs=%d",
		m.Kind, m.Active, m.Hidden, len(m.Variants), len(m.References.Refs))
}
