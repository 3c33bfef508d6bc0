package provenance

import (
	"bytes"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/packmesh/pkg/bead"
	"github.com/matzehuels/packmesh/pkg/bed"
	"github.com/matzehuels/packmesh/pkg/geom"
)

func cornerReport() (*bed.StackReport, []bead.Bead) {
	beads := []bead.Bead{
		bead.New(2, 2, 2, 0.5),
		bead.New(0, 2, 4, 0.5),
		bead.New(4, 2, 4, 0.5),
		bead.New(0, 2, 0, 0.5),
		bead.New(4, 2, 0, 0.5),
	}
	r := &bed.StackReport{
		Method: bed.PlaneCut,
		Cuts:   map[int][]geom.Wall{1: {geom.XMinus, geom.ZPlus}},
		Ghosts: []bed.Ghost{
			{Source: 1, Walls: []geom.Wall{geom.XMinus}, Offset: r3.Vec{X: 4}, Index: 2},
			{Source: 1, Walls: []geom.Wall{geom.ZPlus}, Offset: r3.Vec{Z: -4}, Index: 3},
			{Source: 1, Walls: []geom.Wall{geom.XMinus, geom.ZPlus}, Offset: r3.Vec{X: 4, Z: -4}, Index: 4},
		},
	}
	return r, beads
}

func TestToDOT(t *testing.T) {
	r, beads := cornerReport()
	dot := ToDOT(r, beads, Options{})

	for _, want := range []string{
		`"b1" [label="b1\ncut by x-,z+"]`,
		`"b1" -> "b2" [label="x-"]`,
		`"b1" -> "b3" [label="z+"]`,
		`"b1" -> "b4" [label="x-,z+"]`,
		`label="stacking: planecut"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, `"b0"`) {
		t.Error("uncut bead should not appear")
	}
	if got := strings.Count(dot, "dashed"); got != 3 {
		t.Errorf("dashed ghosts = %d, want 3", got)
	}
}

func TestToDOTDetailedAndReplicated(t *testing.T) {
	beads := []bead.Bead{bead.New(1, 1, 1, 0.5), bead.New(5, 1, 1, 0.5)}
	r := &bed.StackReport{
		Method: bed.All,
		Cuts:   map[int][]geom.Wall{},
		Ghosts: []bed.Ghost{{Source: 0, Offset: r3.Vec{X: 4}, Index: 1}},
	}
	dot := ToDOT(r, beads, Options{Detailed: true})
	if !strings.Contains(dot, `label="+4,+0,+0"`) {
		t.Errorf("replicated ghost edge should carry its offset:\n%s", dot)
	}
	if !strings.Contains(dot, `(5, 1, 1)\nr=0.5`) {
		t.Errorf("detailed label missing geometry:\n%s", dot)
	}
}

func TestRenderSVG(t *testing.T) {
	r, beads := cornerReport()
	svg, err := RenderSVG(ToDOT(r, beads, Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) || !bytes.Contains(svg, []byte(`viewBox="0 0 `)) {
		t.Errorf("unexpected SVG:\n%s", svg)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" viewBox="0.00 0.00 120.50 80.00" xmlns="x"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 120.50 80.00" width="120" height="80"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox = %s, want %s", got, want)
	}
	if string(normalizeViewBox([]byte("<svg>"))) != "<svg>" {
		t.Error("SVG without viewBox should be unchanged")
	}
}
