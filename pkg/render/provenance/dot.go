package provenance

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/packmesh/pkg/bead"
	"github.com/matzehuels/packmesh/pkg/bed"
	"github.com/matzehuels/packmesh/pkg/geom"
)

// Options configures provenance rendering.
type Options struct {
	// Detailed adds bead centers and radii to node labels.
	Detailed bool
}

// ToDOT converts a stacking report to Graphviz DOT. beads are the bed's
// beads after stacking, so that every ghost index resolves. Beads that were
// neither cut nor created are left out.
func ToDOT(r *bed.StackReport, beads []bead.Bead, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=ellipse, style=filled, fillcolor=white, fontsize=18];\n")
	fmt.Fprintf(&buf, "  label=%q;\n", "stacking: "+string(r.Method))
	buf.WriteString("\n")

	sources := make([]int, 0, len(r.Cuts))
	for i := range r.Cuts {
		sources = append(sources, i)
	}
	for _, g := range r.Ghosts {
		if !slices.Contains(sources, g.Source) {
			sources = append(sources, g.Source)
		}
	}
	slices.Sort(sources)
	for _, i := range sources {
		label := fmtLabel(i, beads, opts.Detailed)
		if walls := r.Cuts[i]; len(walls) > 0 {
			label += "\ncut by " + fmtWalls(walls)
		}
		fmt.Fprintf(&buf, "  %q [label=%q];\n", nodeID(i), label)
	}
	for _, g := range r.Ghosts {
		label := fmtLabel(g.Index, beads, opts.Detailed)
		fmt.Fprintf(&buf, "  %q [label=%q, style=\"filled,dashed\", fillcolor=lightgrey];\n", nodeID(g.Index), label)
	}

	buf.WriteString("\n")
	for _, g := range r.Ghosts {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", nodeID(g.Source), nodeID(g.Index), fmtEdge(g))
	}
	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(i int) string { return "b" + strconv.Itoa(i) }

func fmtLabel(i int, beads []bead.Bead, detailed bool) string {
	if !detailed || i >= len(beads) {
		return nodeID(i)
	}
	b := beads[i]
	return fmt.Sprintf("%s\n(%.3g, %.3g, %.3g)\nr=%.3g", nodeID(i), b.Center.X, b.Center.Y, b.Center.Z, b.R)
}

func fmtWalls(walls []geom.Wall) string {
	parts := make([]string, len(walls))
	for i, w := range walls {
		parts[i] = w.String()
	}
	return strings.Join(parts, ",")
}

// fmtEdge labels a ghost with its wall subset, or with its offset for
// replicated ghosts that have none.
func fmtEdge(g bed.Ghost) string {
	if len(g.Walls) > 0 {
		return fmtWalls(g.Walls)
	}
	return fmt.Sprintf("%+g,%+g,%+g", g.Offset.X, g.Offset.Y, g.Offset.Z)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox moves the viewBox origin to zero and sets matching pixel
// dimensions.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
