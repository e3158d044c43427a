// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

// Package reader implements the Reader facade (spec §4.1): it owns the
// intermediate PrimNode/PrimSpec stores, wires the parser's four callback
// registration points to them, and drives the bottom-up reconstruction pass
// that turns a flat, index-addressed store into either a typed Stage or an
// untyped Layer.
//
// The facade owns no parsing logic of its own — consistent with the
// teacher's own top-level driver, which wires a Parser's callbacks to a
// builder rather than re-implementing grammar handling at that layer.
package reader

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/YusakuNo1/tinyusdz/config"
	"github.com/YusakuNo1/tinyusdz/diag"
	"github.com/YusakuNo1/tinyusdz/meta"
	"github.com/YusakuNo1/tinyusdz/parser"
	"github.com/YusakuNo1/tinyusdz/schema"
	"github.com/YusakuNo1/tinyusdz/stage"
	"github.com/YusakuNo1/tinyusdz/store"
	"github.com/YusakuNo1/tinyusdz/value"
)

// Reader is a single-use facade over one Read call (spec §5,
// "Cancellation": a subsequent successful Read requires a fresh instance).
type Reader struct {
	cfg      config.Config
	bag      diag.Bag
	registry *schema.Registry
	baseDir  string

	nodes *store.NodeStore
	specs *store.SpecStore

	stageMeta stage.Metadata
	built     *stage.Stage
}

// NewReader constructs a Reader bound to cfg, with the default schema
// registry installed.
func NewReader(cfg config.Config) *Reader {
	return &Reader{cfg: cfg, registry: schema.NewRegistry()}
}

// SetBaseDir records the directory the external file resolver should
// treat as relative root for sublayer/reference/payload asset paths; pure
// bookkeeping, per spec §4.1.
func (r *Reader) SetBaseDir(dir string) { r.baseDir = dir }

// BaseDir returns the directory set by SetBaseDir.
func (r *Reader) BaseDir() string { return r.baseDir }

// Read parses one USDA document from src in the given load state, wiring
// the parser's four callback registration points (spec §6) to this
// Reader's stores. It returns false if the parse stopped on an error (a
// grammar error, a rejected Prim, or a fatal diagnostic).
func (r *Reader) Read(ctx context.Context, state parser.LoadState, src io.Reader) bool {
	var alloc *store.Allocator
	if state == parser.Toplevel {
		alloc, r.nodes = store.NewNodeAllocator()
	} else {
		alloc, r.specs = store.NewSpecAllocator()
	}

	p := &parser.Parser{}
	p.SetMaxNestLevel(r.cfg.MaxPrimNestLevel)

	p.OnPrimIdxAssign = func(ctx context.Context, parent int) int {
		return alloc.Assign(parent)
	}

	p.OnStageMeta = func(ctx context.Context, entries []value.RawMetaEntry) {
		md, _ := stage.DecodeMetadata(ctx, &r.bag, entries)
		r.stageMeta = md
	}

	if state == parser.Toplevel {
		constructors := map[string]func(ctx context.Context, h parser.PrimHeader) bool{}
		for name, kind := range r.registry.Names() {
			kind := kind
			constructors[name] = func(ctx context.Context, h parser.PrimHeader) bool {
				return r.constructTyped(ctx, h, kind)
			}
		}
		p.OnPrimConstruct = constructors
		p.OnPrimConstructDefault = r.constructModel
	} else {
		p.OnPrimSpec = r.constructSpec
	}

	return p.Parse(ctx, &r.bag, state, src)
}

// constructTyped implements spec §4.4 steps 1-6 for a recognized schema
// Kind: validates the element name, decodes metadata, invokes the
// per-type reconstructor, and stores the result into this Prim's
// already-reserved PrimNode slot.
func (r *Reader) constructTyped(ctx context.Context, h parser.PrimHeader, kind schema.Kind) bool {
	if !validElementName(h.ElementName) {
		r.bag.Errorf(ctx, diag.InvalidName, "invalid element name %q", h.ElementName)
		return false
	}

	m, _ := meta.Decode(ctx, &r.bag, h.RawMeta, meta.Options{AllowUnknownAPISchemas: r.cfg.AllowUnknownAPISchemas})

	payload, warn, errStr, ok := r.registry.Reconstruct(kind, h.Properties, m.References.Refs)
	if warn != "" {
		r.bag.Warn(ctx, diag.SchemaReconstructFailed, warn)
	}
	if !ok {
		r.bag.Error(ctx, diag.SchemaReconstructFailed, errStr)
	}

	node := r.nodes.At(h.Idx)
	node.TypeName = h.TypeName
	node.ElementName = h.ElementName
	node.Specifier = h.Specifier
	node.RawMeta = h.RawMeta
	node.Properties = h.Properties
	node.Meta = m
	node.SchemaKind = int(kind)
	node.Payload = payload

	r.buildVariantSets(h, node)
	return true
}

// constructModel is the Model fallback (spec §4.1, "Unknown Prim types"):
// fired both for an untyped def/over/class and for a declared type name
// with no registered reconstructor.
func (r *Reader) constructModel(ctx context.Context, h parser.PrimHeader) bool {
	if h.TypeName != "" {
		if !r.cfg.AllowUnknownPrims {
			r.bag.Fatalf(ctx, diag.UnknownPrimType, "unrecognized prim type %q", h.TypeName)
			return false
		}
		r.bag.Warnf(ctx, diag.UnknownPrimType, "unrecognized prim type %q, falling back to Model", h.TypeName)
	}
	return r.constructTyped(ctx, h, schema.KindModel)
}

// constructSpec implements spec §4.5: records the Prim opaquely, without
// any schema interpretation, into the PrimSpec store.
func (r *Reader) constructSpec(ctx context.Context, h parser.PrimHeader) bool {
	if !validElementName(h.ElementName) {
		r.bag.Errorf(ctx, diag.InvalidName, "invalid element name %q", h.ElementName)
		return false
	}

	spec := r.specs.At(h.Idx)
	spec.ElementName = h.ElementName
	spec.Specifier = h.Specifier
	spec.TypeName = h.TypeName
	spec.Properties = h.Properties
	spec.RawMeta = h.RawMeta

	if len(h.VariantSets) > 0 {
		spec.RawVariants = make(map[string]interface{}, len(h.VariantSets))
		for vsName, variants := range h.VariantSets {
			spec.RawVariants[vsName] = variants
		}
	}
	return true
}

// buildVariantSets implements spec §4.4 step 5: copies each variant's raw
// body into the PrimNode store and marks every variant-nested child so
// the reconstruction pass (§4.7) can tell it apart from an ordinary
// child.
func (r *Reader) buildVariantSets(h parser.PrimHeader, node *store.PrimNode) {
	for vsName, variants := range h.VariantSets {
		for variantName, body := range variants {
			vn := node.AddVariant(vsName, variantName)
			vn.RawMeta = body.RawMeta
			vn.Properties = body.Properties
			vn.PrimChildren = body.Children
			for _, childIdx := range body.Children {
				if child := r.nodes.At(childIdx); child != nil {
					child.ParentIsVariant = true
				}
			}
		}
	}
}

// ReconstructStage implements spec §4.7: bottom-up tree construction over
// the PrimNode store, valid only after a successful Read(Toplevel).
func (r *Reader) ReconstructStage(ctx context.Context) bool {
	if r.nodes == nil {
		r.bag.Fatal(ctx, diag.StateViolation, "ReconstructStage called without a successful Read(Toplevel)")
		return false
	}

	visited := map[int]bool{}
	var roots []*schema.Prim
	for _, idx := range r.nodes.TopLevel() {
		p, ok := r.constructPrimTree(ctx, idx, visited)
		if !ok {
			return false
		}
		roots = append(roots, p)
	}

	st := &stage.Stage{Metadata: r.stageMeta, Root: roots}
	assignPathsAndIDs(st)
	r.built = st
	return true
}

// constructPrimTree is spec §4.7's ConstructPrimTree. visited tracks every
// index reconstructed anywhere in the whole pass (the general reachability
// invariant); a per-Prim visitedVariantChildren set additionally catches a
// child index appearing in more than one variant of the same Prim.
func (r *Reader) constructPrimTree(ctx context.Context, idx int, visited map[int]bool) (*schema.Prim, bool) {
	node := r.nodes.At(idx)
	if node == nil {
		r.bag.Fatalf(ctx, diag.IndexOutOfRange, "prim index %d out of range", idx)
		return nil, false
	}
	if visited[idx] {
		r.bag.Fatalf(ctx, diag.DuplicateVariantChild, "prim index %d reconstructed more than once", idx)
		return nil, false
	}
	visited[idx] = true

	out := &schema.Prim{
		Kind:        schema.Kind(node.SchemaKind),
		ElementName: node.ElementName,
		Specifier:   node.Specifier,
		Meta:        node.Meta,
		Payload:     node.Payload,
	}
	if out.Kind == schema.KindModel {
		out.PrimTypeName = node.TypeName
	}

	visitedVariantChildren := map[int]bool{}
	if len(node.VariantSets) > 0 {
		out.VariantSets = make(map[string]map[string]*schema.Variant, len(node.VariantSets))
		for _, vsName := range sortedKeys(node.VariantSets) {
			variants := node.VariantSets[vsName]
			vset := make(map[string]*schema.Variant, len(variants))
			for _, variantName := range sortedVariantKeys(variants) {
				vn := variants[variantName]
				variantMeta, _ := meta.Decode(ctx, &r.bag, vn.RawMeta, meta.Options{AllowUnknownAPISchemas: r.cfg.AllowUnknownAPISchemas})
				variant := &schema.Variant{Meta: variantMeta}
				for _, childIdx := range vn.PrimChildren {
					if visitedVariantChildren[childIdx] {
						r.bag.Fatalf(ctx, diag.DuplicateVariantChild, "prim index %d appears in more than one variant", childIdx)
						return nil, false
					}
					child, ok := r.constructPrimTree(ctx, childIdx, visited)
					if !ok {
						return nil, false
					}
					variant.Children = append(variant.Children, child)
					visitedVariantChildren[childIdx] = true
				}
				vset[variantName] = variant
			}
			out.VariantSets[vsName] = vset
		}
	}

	for _, childIdx := range node.Children {
		if visitedVariantChildren[childIdx] {
			continue
		}
		child, ok := r.constructPrimTree(ctx, childIdx, visited)
		if !ok {
			return nil, false
		}
		out.Children = append(out.Children, child)
	}
	return out, true
}

func sortedKeys(m map[string]map[string]*store.VariantNode) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedVariantKeys(m map[string]*store.VariantNode) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// assignPathsAndIDs computes each Prim's absolute path and pre-order
// stable id, per spec §4.7's closing paragraph. It walks variant children
// too (every declared variant, not only whichever is selected), since
// neither the path nor the id computation depends on variant selection
// having happened yet — that stays the composition engine's job.
func assignPathsAndIDs(st *stage.Stage) {
	id := 0
	var walk func(p *schema.Prim, parentPath string)
	walk = func(p *schema.Prim, parentPath string) {
		p.Path = parentPath + "/" + p.ElementName
		p.StableID = id
		id++

		for _, vsName := range sortedPrimVariantSetKeys(p.VariantSets) {
			for _, variantName := range sortedPrimVariantKeys(p.VariantSets[vsName]) {
				for _, child := range p.VariantSets[vsName][variantName].Children {
					walk(child, p.Path)
				}
			}
		}
		for _, child := range p.Children {
			walk(child, p.Path)
		}
	}
	for _, root := range st.Root {
		walk(root, "")
	}
}

func sortedPrimVariantSetKeys(m map[string]map[string]*schema.Variant) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedPrimVariantKeys(m map[string]*schema.Variant) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// GetAsLayer implements spec §4.8: builds the untyped Layer tree from the
// PrimSpec store, valid after a successful Read(non-Toplevel). One-shot —
// the PrimSpec store is invalidated on success.
func (r *Reader) GetAsLayer(ctx context.Context, out *stage.Layer) bool {
	if r.specs == nil {
		r.bag.Fatal(ctx, diag.StateViolation, "GetAsLayer called without a successful non-Toplevel Read")
		return false
	}
	if r.specs.Invalidated() {
		r.bag.Fatal(ctx, diag.StateViolation, "GetAsLayer already consumed this Read's PrimSpec store")
		return false
	}

	// The Layer gets its own copy of the store so its specs stay reachable
	// by index after this Read's store is invalidated below.
	alloc, layerSpecs := store.NewSpecAllocator()
	for i := 0; i < r.specs.Len(); i++ {
		src := r.specs.At(i)
		dst := layerSpecs.At(alloc.Assign(src.Parent))
		dst.ElementName, dst.Specifier, dst.TypeName = src.ElementName, src.Specifier, src.TypeName
		dst.Properties, dst.RawMeta, dst.RawVariants = src.Properties, src.RawMeta, src.RawVariants
	}

	out.Metadata = r.stageMeta
	out.Specs = layerSpecs
	out.Root = nil
	for _, idx := range layerSpecs.TopLevel() {
		spec := layerSpecs.At(idx)
		if spec == nil {
			r.bag.Fatalf(ctx, diag.IndexOutOfRange, "prim spec index %d out of range", idx)
			return false
		}
		out.Root = append(out.Root, spec)
	}
	r.specs.Invalidate()
	return true
}

// GetStage returns the Stage built by a prior successful ReconstructStage,
// or nil.
func (r *Reader) GetStage() *stage.Stage { return r.built }

// GetError returns the fatal error, if any, else all accumulated per-Prim
// errors, newline-joined.
func (r *Reader) GetError() string { return r.bag.GetError() }

// GetWarning returns all accumulated warnings, newline-joined.
func (r *Reader) GetWarning() string { return r.bag.GetWarning() }

// validElementName implements spec §4.4 step 1: non-empty, no '/', no
// '.' — which also rejects an absolute or root path written where a bare
// element name belongs.
func validElementName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/.")
}
