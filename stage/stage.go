// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

// Package stage holds the final output shapes of a Read: the typed Stage
// tree and the untyped Layer tree, plus the StageMetadata bucket shared by
// both (spec §3, "Stage"/"Layer").
package stage

import (
	"github.com/YusakuNo1/tinyusdz/schema"
	"github.com/YusakuNo1/tinyusdz/store"
	"github.com/YusakuNo1/tinyusdz/value"
)

// Metadata is the stage-level metadata block (spec §3, "Stage").
type Metadata struct {
	Doc                string
	UpAxis             string
	UpAxisSet          bool
	Comment            string
	SubLayers          []string
	DefaultPrim        string
	MetersPerUnit      float64
	MetersPerUnitSet   bool
	TimeCodesPerSecond float64
	StartTimeCode      float64
	EndTimeCode        float64
	FramesPerSecond    float64
	AutoPlay           bool
	AutoPlaySet        bool
	PlaybackMode       value.PlaybackMode
	CustomLayerData    value.Dict
}

// Stage is the fully typed, reconstructed scene tree (spec §3, "Stage").
type Stage struct {
	Metadata Metadata
	Root     []*schema.Prim
}

// Layer is the untyped tree of PrimSpecs used as input to composition
// (spec §3, "Layer").
type Layer struct {
	Metadata Metadata
	Root     []*store.PrimSpec

	// Specs backs Root with the full flat store so callers can look up any
	// spec by index (e.g. to print an unresolved reference target).
	Specs *store.SpecStore
}
