// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

package stage

import (
	"context"

	"github.com/YusakuNo1/tinyusdz/diag"
	"github.com/YusakuNo1/tinyusdz/meta"
	"github.com/YusakuNo1/tinyusdz/value"
)

// DecodeMetadata decodes the top-level metadata block into a Metadata
// bucket (spec §4.6), the stage-level counterpart of meta.Decode; it
// shares the same dispatch-on-key-name idiom.
func DecodeMetadata(ctx context.Context, bag *diag.Bag, entries []value.RawMetaEntry) (Metadata, bool) {
	var md Metadata
	ok := true
	for _, e := range entries {
		entryCtx := diag.Note(ctx, "key", e.Key)
		if !decodeStageKey(entryCtx, bag, &md, e) {
			ok = false
		}
	}
	return md, ok
}

func decodeStageKey(ctx context.Context, bag *diag.Bag, md *Metadata, e value.RawMetaEntry) bool {
	switch e.Key {
	case "doc":
		s, ok := e.Value.(string)
		if !ok {
			return stageTypeError(ctx, bag, e.Key, "string", e.Value)
		}
		md.Doc = s

	case "upAxis":
		s, ok := e.Value.(string)
		if !ok {
			return stageTypeError(ctx, bag, e.Key, "string", e.Value)
		}
		md.UpAxis, md.UpAxisSet = s, true

	case "comment":
		s, ok := e.Value.(string)
		if !ok {
			return stageTypeError(ctx, bag, e.Key, "string", e.Value)
		}
		md.Comment = s

	case "subLayers":
		strs, ok := asStrings(e.Value)
		if !ok {
			return stageTypeError(ctx, bag, e.Key, "string list", e.Value)
		}
		md.SubLayers = strs

	case "defaultPrim":
		s, ok := e.Value.(string)
		if !ok {
			return stageTypeError(ctx, bag, e.Key, "string", e.Value)
		}
		md.DefaultPrim = s

	case "metersPerUnit":
		f, ok := e.Value.(float64)
		if !ok {
			return stageTypeError(ctx, bag, e.Key, "number", e.Value)
		}
		md.MetersPerUnit, md.MetersPerUnitSet = f, true

	case "timeCodesPerSecond":
		f, ok := e.Value.(float64)
		if !ok {
			return stageTypeError(ctx, bag, e.Key, "number", e.Value)
		}
		md.TimeCodesPerSecond = f

	case "startTimeCode":
		f, ok := e.Value.(float64)
		if !ok {
			return stageTypeError(ctx, bag, e.Key, "number", e.Value)
		}
		md.StartTimeCode = f

	case "endTimeCode":
		f, ok := e.Value.(float64)
		if !ok {
			return stageTypeError(ctx, bag, e.Key, "number", e.Value)
		}
		md.EndTimeCode = f

	case "framesPerSecond":
		f, ok := e.Value.(float64)
		if !ok {
			return stageTypeError(ctx, bag, e.Key, "number", e.Value)
		}
		md.FramesPerSecond = f

	case "autoPlay":
		b, ok := e.Value.(bool)
		if !ok {
			return stageTypeError(ctx, bag, e.Key, "bool", e.Value)
		}
		md.AutoPlay, md.AutoPlaySet = b, true

	case "playbackMode":
		s, ok := e.Value.(string)
		if !ok {
			return stageTypeError(ctx, bag, e.Key, "string", e.Value)
		}
		mode, ok2 := meta.DecodePlaybackMode(ctx, bag, s)
		if !ok2 {
			return false
		}
		md.PlaybackMode = mode

	case "customLayerData":
		m, ok := e.Value.(map[string]interface{})
		if !ok {
			return stageTypeError(ctx, bag, e.Key, "dictionary", e.Value)
		}
		md.CustomLayerData = value.NewDictFromMap(m)

	default:
		bag.Warnf(ctx, diag.UnknownMetadataKey, "unrecognized stage metadata key %q, ignored", e.Key)
	}
	return true
}

func stageTypeError(ctx context.Context, bag *diag.Bag, key, expected string, got interface{}) bool {
	bag.Errorf(ctx, diag.InvalidMetadataType, "%s: expected %s, got %T", key, expected, got)
	return false
}

func asStrings(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		return []string{t}, true
	case value.Reference:
		return []string{t.AssetPath}, true
	case []interface{}:
		var out []string
		for _, item := range t {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case value.Reference:
				out = append(out, s.AssetPath)
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}
