// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

// Command usdaread reads a USDA file, reconstructs its Stage, and prints
// a summary of the tree plus every sublayer/reference/payload arc it
// declares — following the teacher's own kdlc/main.go shape (pflag for
// CLI flags, a single positional input file) adapted to this reader's
// facade instead of kdlc's importer/toir pipeline.
//
// Declared arcs are only located and reported here, never merged into
// the primary Stage: composition evaluation is explicitly out of scope
// (see DESIGN.md), so this command is the composition engine's
// bookkeeping, not the engine itself.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/YusakuNo1/tinyusdz/composition"
	"github.com/YusakuNo1/tinyusdz/config"
	"github.com/YusakuNo1/tinyusdz/parser"
	"github.com/YusakuNo1/tinyusdz/reader"
	"github.com/YusakuNo1/tinyusdz/resolve"
	"github.com/YusakuNo1/tinyusdz/schema"
	"github.com/YusakuNo1/tinyusdz/stage"
)

var (
	importPaths = flag.StringArrayP("import-dir", "I", nil, "additional search roots for sublayer/reference/payload asset paths")
	configPath  = flag.StringP("config", "c", "", "optional YAML file overriding the default Configuration")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [FLAGS...] FILE.usda\n", os.Args[0])
		flag.PrintDefaults()
	}
	cfg := config.Default()
	cfg.BindPFlags(flag.CommandLine)
	flag.Parse()

	if *configPath != "" {
		if err := cfg.LoadYAML(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	path := flag.Arg(0)
	baseDir := filepath.Dir(path)
	loader := resolve.NewSourceLoader(baseDir, *importPaths...)

	src, err := loader.Load(filepath.Base(path))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	r := reader.NewReader(cfg)
	r.SetBaseDir(baseDir)

	if !r.Read(ctx, parser.Toplevel, bytes.NewReader(src)) {
		fmt.Fprintln(os.Stderr, r.GetError())
		os.Exit(1)
	}
	if w := r.GetWarning(); w != "" {
		fmt.Fprintln(os.Stderr, w)
	}
	if !r.ReconstructStage(ctx) {
		fmt.Fprintln(os.Stderr, r.GetError())
		os.Exit(1)
	}

	st := r.GetStage()
	fmt.Printf("stage %q: upAxis=%s defaultPrim=%s metersPerUnit=%v\n", path, st.Metadata.UpAxis, st.Metadata.DefaultPrim, st.Metadata.MetersPerUnit)
	for _, root := range st.Root {
		printPrim(root, 1)
	}

	reportArcs(ctx, cfg, loader, st)
}

func printPrim(p *schema.Prim, depth int) {
	fmt.Printf("%s%s %s %s\n", strings.Repeat("  ", depth), p.Specifier, p.Path, p.Kind)
	for vsName, variants := range p.VariantSets {
		for variantName, variant := range variants {
			fmt.Printf("%svariantSet %s = %q\n", strings.Repeat("  ", depth+1), vsName, variantName)
			for _, child := range variant.Children {
				printPrim(child, depth+2)
			}
		}
	}
	for _, child := range p.Children {
		printPrim(child, depth+1)
	}
}

// reportArcs walks the reconstructed Stage for every declared
// sublayer/reference/payload asset path, resolves each one relative to
// the primary file's directory, and prints what it finds — guarding
// against a self-referential cycle with a composition.Graph rather than
// evaluating what the arc would contribute to the composed result.
func reportArcs(ctx context.Context, cfg config.Config, loader *resolve.SourceLoader, st *stage.Stage) {
	graph := composition.NewGraph()

	for _, sub := range st.Metadata.SubLayers {
		inspectArc(ctx, cfg, loader, graph, composition.SubLayerArc, sub, parser.SublayerLoad)
	}

	var walk func(p *schema.Prim)
	walk = func(p *schema.Prim) {
		for _, ref := range p.Meta.References.Refs {
			if ref.AssetPath != "" {
				inspectArc(ctx, cfg, loader, graph, composition.ReferenceArc, ref.AssetPath, parser.ReferenceLoad)
			}
		}
		for _, pl := range p.Meta.Payload.Refs {
			if pl.AssetPath != "" {
				inspectArc(ctx, cfg, loader, graph, composition.PayloadArc, pl.AssetPath, parser.PayloadLoad)
			}
		}
		for _, variants := range p.VariantSets {
			for _, variant := range variants {
				for _, child := range variant.Children {
					walk(child)
				}
			}
		}
		for _, child := range p.Children {
			walk(child)
		}
	}
	for _, root := range st.Root {
		walk(root)
	}
}

func inspectArc(ctx context.Context, cfg config.Config, loader *resolve.SourceLoader, graph *composition.Graph, kind composition.ArcKind, assetPath string, state parser.LoadState) {
	if graph.Loaded(assetPath) {
		return
	}
	if err := graph.Enter(kind, assetPath); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return
	}
	defer graph.Leave(assetPath)

	contents, err := loader.Load(assetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s arc %q: %v\n", kind, assetPath, err)
		return
	}

	arcReader := reader.NewReader(cfg)
	arcReader.SetBaseDir(filepath.Dir(assetPath))
	if !arcReader.Read(ctx, state, bytes.NewReader(contents)) {
		fmt.Fprintf(os.Stderr, "%s arc %q: %s\n", kind, assetPath, arcReader.GetError())
		return
	}

	var layer stage.Layer
	if !arcReader.GetAsLayer(ctx, &layer) {
		fmt.Fprintf(os.Stderr, "%s arc %q: %s\n", kind, assetPath, arcReader.GetError())
		return
	}
	fmt.Printf("%s arc %q: %d top-level prim spec(s)\n", kind, assetPath, len(layer.Root))
}
