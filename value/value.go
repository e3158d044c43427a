// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

// Package value holds the small leaf value types shared across the parser,
// metadata decoder and schema packages: paths, specifiers, list-edit
// qualifiers, composition-arc references, and the opaque nested-dictionary
// value used by customData/assetInfo.
package value

import (
	"strings"

	pstruct "github.com/golang/protobuf/ptypes/struct"
)

// Specifier is one of Def/Over/Class, present on every Prim header.
type Specifier int

const (
	Def Specifier = iota
	Over
	Class
)

func (s Specifier) String() string {
	switch s {
	case Def:
		return "def"
	case Over:
		return "over"
	case Class:
		return "class"
	default:
		return "unknown"
	}
}

// ListEditQualifier annotates how a list-valued metadata field composes.
type ListEditQualifier int

const (
	Explicit ListEditQualifier = iota
	Prepend
	Append
	Add
	Delete
	Reset
)

func (q ListEditQualifier) String() string {
	switch q {
	case Explicit:
		return "explicit"
	case Prepend:
		return "prepend"
	case Append:
		return "append"
	case Add:
		return "add"
	case Delete:
		return "delete"
	case Reset:
		return "reset"
	default:
		return "unknown"
	}
}

// Path is a USD-style path of the form /A/B.prop[target]. The core only
// ever inspects the prim part.
type Path struct {
	Prim     string
	Property string
	Target   string
}

// ParsePath splits a raw path literal's text into its prim/property/target
// parts. It does not validate the prim part's individual components — that
// is PrimNode/PrimMeta's job (element-name validation, §4.4).
func ParsePath(raw string) Path {
	p := Path{Prim: raw}
	if br := strings.IndexByte(raw, '['); br >= 0 && strings.HasSuffix(raw, "]") {
		p.Target = raw[br+1 : len(raw)-1]
		raw = raw[:br]
	}
	if dot := strings.IndexByte(raw, '.'); dot >= 0 {
		p.Property = raw[dot+1:]
		p.Prim = raw[:dot]
	} else {
		p.Prim = raw
	}
	return p
}

func (p Path) String() string {
	var b strings.Builder
	b.WriteString(p.Prim)
	if p.Property != "" {
		b.WriteByte('.')
		b.WriteString(p.Property)
	}
	if p.Target != "" {
		b.WriteByte('[')
		b.WriteString(p.Target)
		b.WriteByte(']')
	}
	return b.String()
}

// Reference is a composition arc naming another layer (possibly empty, for
// an internal reference) and a prim path within it.
type Reference struct {
	AssetPath string
	PrimPath  Path
	HasPrimPath bool
}

// Dict is the arbitrary nested dictionary value used by customData and
// assetInfo. It is backed by the protobuf well-known struct types (the same
// "arbitrary nested value" building block the teacher reaches for in
// toir.Value) rather than a hand-rolled map[string]interface{} tree, since
// that's the ecosystem type the pack already depends on for exactly this
// shape of data.
type Dict struct {
	Fields *pstruct.Struct
}

// NewDict wraps a ready-made protobuf Struct.
func NewDict(s *pstruct.Struct) Dict {
	return Dict{Fields: s}
}

// Get returns the value for key and whether it was present.
func (d Dict) Get(key string) (*pstruct.Value, bool) {
	if d.Fields == nil {
		return nil, false
	}
	v, ok := d.Fields.Fields[key]
	return v, ok
}

// Raw is the opaque representation of a single property's value: the core
// forwards it unchanged to the per-schema reconstructor (§4.4 step 3),
// which is the only component allowed to interpret it.
type Raw struct {
	Text string // verbatim source text of the value, including brackets/quotes
}

// PropertyMap is an ordered name->opaque-value map. The core never
// interprets values; it forwards them verbatim to the per-schema
// reconstructor. Lives here (rather than in package store) so schema can
// depend on it without importing store, and store can depend on it without
// schema needing to exist at all.
type PropertyMap struct {
	Names  []string
	Values map[string]Raw
}

// Set appends name (if new) and records its value.
func (p *PropertyMap) Set(name string, v Raw) {
	if p.Values == nil {
		p.Values = map[string]Raw{}
	}
	if _, exists := p.Values[name]; !exists {
		p.Names = append(p.Names, name)
	}
	p.Values[name] = v
}

// Get returns the property's value and whether it is present.
func (p PropertyMap) Get(name string) (Raw, bool) {
	v, ok := p.Values[name]
	return v, ok
}

// Kind is PrimMeta's "kind" field, a closed enum.
type Kind int

const (
	KindUnset Kind = iota
	KindSubcomponent
	KindComponent
	KindModel
	KindGroup
	KindAssembly
	KindSceneLibrary
)

var kindNames = map[string]Kind{
	"subcomponent": KindSubcomponent,
	"component":    KindComponent,
	"model":        KindModel,
	"group":        KindGroup,
	"assembly":     KindAssembly,
	"sceneLibrary": KindSceneLibrary,
}

// LookupKind maps a raw token to a Kind, reporting whether it is recognized.
func LookupKind(tok string) (Kind, bool) {
	k, ok := kindNames[tok]
	return k, ok
}

func (k Kind) String() string {
	for name, v := range kindNames {
		if v == k {
			return name
		}
	}
	return "unset"
}

// PlaybackMode is Stage metadata's "playbackMode" field. The closed set is
// exactly {none, loop} — any other token is a decode error, never a silent
// pass-through (§9 open question (c)).
type PlaybackMode int

const (
	PlaybackNone PlaybackMode = iota
	PlaybackLoop
)

var playbackNames = map[string]PlaybackMode{
	"none": PlaybackNone,
	"loop": PlaybackLoop,
}

// LookupPlaybackMode maps a raw token to a PlaybackMode.
func LookupPlaybackMode(tok string) (PlaybackMode, bool) {
	m, ok := playbackNames[tok]
	return m, ok
}

func (m PlaybackMode) String() string {
	for name, v := range playbackNames {
		if v == m {
			return name
		}
	}
	return "none"
}

// APISchema is one entry of PrimMeta.APISchemas: an applied API schema name
// plus its optional multi-apply instance name.
type APISchema struct {
	Name     string
	Instance string // empty unless the schema is a multi-apply schema
}

// PathList pairs a list of Paths with the qualifier that governs how they
// compose (used for inherits/specializes).
type PathList struct {
	Paths     []Path
	Qualifier ListEditQualifier
}

// ReferenceList pairs a list of References with the qualifier that governs
// how they compose (used for references/payload).
type ReferenceList struct {
	Refs      []Reference
	Qualifier ListEditQualifier
}

// StringList pairs a list of strings with a qualifier (used for
// variantSets).
type StringList struct {
	Values    []string
	Qualifier ListEditQualifier
}

// APISchemaList pairs a list of APISchemas with a qualifier (used for
// apiSchemas — the qualifier must be Prepend or Reset per §4.3).
type APISchemaList struct {
	Schemas   []APISchema
	Qualifier ListEditQualifier
}

// RawMetaEntry is one (key, list-edit-qualifier, value) triple as the parser
// hands it to the metadata decoder, in source order. Value holds whatever
// the parser already parsed for that value's syntactic shape: string, bool,
// float64, []interface{}, map[string]interface{} (a dictionary), Path,
// Reference, or nil for a block
// ("None"/blocked) value.
type RawMetaEntry struct {
	Key       string
	Qualifier ListEditQualifier
	Value     interface{}
}
