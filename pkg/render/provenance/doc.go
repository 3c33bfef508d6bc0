// Package provenance renders the ghost provenance of a stacking pass as a
// directed graph.
//
// Every cut bead is a node with one edge per ghost created from it. Edges are
// labeled with the wall subset the ghost compensates, and ghosts are drawn
// dashed so they stand apart from the beads read from the packing.
//
//	dot := provenance.ToDOT(report, bed.Beads().All(), provenance.Options{})
//	svg, err := provenance.RenderSVG(dot)
//
// The DOT output is plain text and can also be fed to an external Graphviz.
package provenance
