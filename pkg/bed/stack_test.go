package bed

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"
	"pgregory.net/rapid"

	"github.com/matzehuels/packmesh/pkg/bead"
	"github.com/matzehuels/packmesh/pkg/container"
	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/kernel/analytic"
)

// fataler is satisfied by both *testing.T and *rapid.T.
type fataler interface {
	Helper()
	Fatal(args ...any)
}

func cube(t fataler, l float64) *container.Container {
	t.Helper()
	c, err := container.New(container.Box, []float64{0, 0, 0, l, l, l})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func stackers() map[string]func(*PackedBed, *analytic.Kernel, *container.Container) (*StackReport, error) {
	return map[string]func(*PackedBed, *analytic.Kernel, *container.Container) (*StackReport, error){
		"planecut": func(b *PackedBed, k *analytic.Kernel, c *container.Container) (*StackReport, error) {
			return b.StackByPlaneCuts(k, c)
		},
		"volumecut": func(b *PackedBed, k *analytic.Kernel, c *container.Container) (*StackReport, error) {
			return b.StackByVolumeCuts(k, c)
		},
	}
}

func TestStackInteriorBeadsHaveNoGhosts(t *testing.T) {
	for name, stack := range stackers() {
		t.Run(name, func(t *testing.T) {
			k := analytic.New()
			b, _ := FromBeads([]bead.Bead{bead.New(2, 2, 2, 0.5), bead.New(1, 3, 1, 0.4)})
			r, err := stack(b, k, cube(t, 4))
			if err != nil {
				t.Fatal(err)
			}
			if r.GhostCount() != 0 || len(r.Cuts) != 0 || b.Len() != 2 {
				t.Errorf("interior beads stacked: %d ghosts, %d cut, %d beads", r.GhostCount(), len(r.Cuts), b.Len())
			}
		})
	}
}

func TestStackBeadOnFace(t *testing.T) {
	for name, stack := range stackers() {
		t.Run(name, func(t *testing.T) {
			k := analytic.New()
			b, _ := FromBeads([]bead.Bead{bead.New(0, 2, 2, 0.5)})
			r, err := stack(b, k, cube(t, 4))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(map[int][]geom.Wall{0: {geom.XMinus}}, r.Cuts); diff != "" {
				t.Errorf("Cuts mismatch (-want +got):\n%s", diff)
			}
			want := []Ghost{{Source: 0, Walls: []geom.Wall{geom.XMinus}, Offset: r3.Vec{X: 4}, Index: 1}}
			if diff := cmp.Diff(want, r.Ghosts); diff != "" {
				t.Errorf("Ghosts mismatch (-want +got):\n%s", diff)
			}
			if got := b.Beads().At(1); got != bead.New(4, 2, 2, 0.5) {
				t.Errorf("ghost bead = %v", got)
			}
			if !b.Beads().Generated(1) {
				t.Error("ghost was not generated")
			}
		})
	}
}

func TestStackCornerBead(t *testing.T) {
	for name, stack := range stackers() {
		t.Run(name, func(t *testing.T) {
			k := analytic.New()
			b, _ := FromBeads([]bead.Bead{bead.New(4, 0, 4, 0.5)})
			r, err := stack(b, k, cube(t, 4))
			if err != nil {
				t.Fatal(err)
			}
			if r.GhostCount() != 7 {
				t.Fatalf("GhostCount() = %d, want 7", r.GhostCount())
			}
			got := make(map[r3.Vec]bool)
			for _, g := range r.Ghosts {
				got[g.Offset] = true
			}
			for _, off := range []r3.Vec{
				{X: -4}, {Y: 4}, {Z: -4},
				{X: -4, Y: 4}, {X: -4, Z: -4}, {Y: 4, Z: -4},
				{X: -4, Y: 4, Z: -4},
			} {
				if !got[off] {
					t.Errorf("missing ghost offset %v", off)
				}
			}
		})
	}
}

// The bead pokes through the x- wall near the x-/y- edge. Its section on the
// y = 0 plane lies entirely at x < 0, so the y- wall only cuts it once the
// face is extended past the edge.
func TestVolumeCutMissesExtendedWall(t *testing.T) {
	want := map[string]map[int][]geom.Wall{
		"planecut":  {0: {geom.XMinus, geom.YMinus}},
		"volumecut": {0: {geom.XMinus}},
	}
	for name, stack := range stackers() {
		t.Run(name, func(t *testing.T) {
			k := analytic.New()
			b, _ := FromBeads([]bead.Bead{bead.New(-0.3, 0.45, 2, 0.5)})
			r, err := stack(b, k, cube(t, 4))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(want[name], r.Cuts); diff != "" {
				t.Errorf("Cuts mismatch (-want +got):\n%s", diff)
			}
			if got, n := r.GhostCount(), 1<<len(want[name][0])-1; got != n {
				t.Errorf("GhostCount() = %d, want %d", got, n)
			}
		})
	}
}

func TestStackGhostCountProperty(t *testing.T) {
	const l = 10.0
	rapid.Check(t, func(t *rapid.T) {
		var center r3.Vec
		var walls []geom.Wall
		for _, a := range geom.Axes {
			var v float64
			switch rapid.IntRange(0, 2).Draw(t, fmt.Sprintf("side_%s", a)) {
			case 0:
				v = rapid.Float64Range(-0.3, 0.3).Draw(t, fmt.Sprintf("lo_%s", a))
				walls = append(walls, geom.WallOf(a, false))
			case 1:
				v = l + rapid.Float64Range(-0.3, 0.3).Draw(t, fmt.Sprintf("hi_%s", a))
				walls = append(walls, geom.WallOf(a, true))
			default:
				v = rapid.Float64Range(2, l-2).Draw(t, fmt.Sprintf("mid_%s", a))
			}
			center = geom.Set(center, a, v)
		}
		method := rapid.SampledFrom([]string{"planecut", "volumecut"}).Draw(t, "method")

		k := analytic.New()
		b, _ := FromBeads([]bead.Bead{{Center: center, R: 0.5}})
		r, err := stackers()[method](b, k, cube(t, l))
		if err != nil {
			t.Fatal(err)
		}
		if want := 1<<len(walls) - 1; r.GhostCount() != want {
			t.Fatalf("%d walls gave %d ghosts, want %d", len(walls), r.GhostCount(), want)
		}
		for _, g := range r.Ghosts {
			want := geom.Mul(r3.Scale(-1, geom.SumNormals(g.Walls)), r3.Vec{X: l, Y: l, Z: l})
			if g.Offset != want {
				t.Fatalf("ghost for %v offset %v, want %v", g.Walls, g.Offset, want)
			}
			if b.Beads().At(g.Index) != b.Beads().At(0).Translated(g.Offset) {
				t.Fatalf("ghost %d is not the translated source", g.Index)
			}
		}
	})
}

func TestWallSubsets(t *testing.T) {
	got := WallSubsets([]geom.Wall{geom.XMinus, geom.YPlus, geom.ZMinus})
	want := [][]geom.Wall{
		{geom.XMinus}, {geom.YPlus}, {geom.ZMinus},
		{geom.XMinus, geom.YPlus}, {geom.XMinus, geom.ZMinus}, {geom.YPlus, geom.ZMinus},
		{geom.XMinus, geom.YPlus, geom.ZMinus},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("WallSubsets mismatch (-want +got):\n%s", diff)
	}
	if WallSubsets(nil) != nil {
		t.Error("WallSubsets(nil) should be empty")
	}
}

func TestStackAll(t *testing.T) {
	k := analytic.New()
	b, _ := FromBeads([]bead.Bead{bead.New(1, 1, 1, 0.5), bead.New(3, 3, 3, 0.5)})
	r, err := b.StackAll(k, []geom.Axis{geom.X, geom.Y}, r3.Vec{X: 4, Y: 4, Z: 4})
	if err != nil {
		t.Fatal(err)
	}
	if r.GhostCount() != 16 || b.Len() != 18 {
		t.Fatalf("GhostCount() = %d, Len() = %d, want 16 and 18", r.GhostCount(), b.Len())
	}
	for _, g := range r.Ghosts {
		if g.Offset.Z != 0 || g.Offset == (r3.Vec{}) {
			t.Errorf("unexpected offset %v", g.Offset)
		}
	}
}

func TestStackDispatch(t *testing.T) {
	cyl, _ := container.New(container.Cylinder, []float64{0, 0, 0, 0, 0, 4, 2})
	for _, m := range Methods {
		b, _ := FromBeads([]bead.Bead{bead.New(0, 0, 0, 0.5)})
		if _, err := b.Stack(analytic.New(), cyl, m, geom.Axes[:]); !errors.Is(err, errors.ErrCodeUnsupportedShape) {
			t.Errorf("%s on cylinder: got %v, want UNSUPPORTED_SHAPE", m, err)
		}
	}
	if _, err := ParseMethod("random"); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("ParseMethod(random) = %v, want CONFIGURATION", err)
	}

	b, _ := FromBeads([]bead.Bead{bead.New(0, 2, 2, 0.5)})
	r, err := b.Stack(analytic.New(), cube(t, 4), PlaneCut, []geom.Axis{geom.X})
	if err != nil {
		t.Fatal(err)
	}
	if r.Method != PlaneCut || r.GhostCount() != 1 {
		t.Errorf("Stack(planecut) = %+v", r)
	}
}

func TestApplyGhosts(t *testing.T) {
	beads := []bead.Bead{bead.New(0, 0, 2, 0.5), bead.New(2, 2, 2, 0.5)}
	b, _ := FromBeads(beads)
	r, err := b.StackByPlaneCuts(analytic.New(), cube(t, 4))
	if err != nil {
		t.Fatal(err)
	}

	replay, _ := FromBeads(beads)
	k := analytic.New()
	if err := replay.ApplyGhosts(k, r); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(b.Beads().All(), replay.Beads().All()); diff != "" {
		t.Errorf("replayed beads mismatch (-want +got):\n%s", diff)
	}
	if len(replay.DimTags()) != replay.Len() {
		t.Errorf("replayed ghosts not generated: %d of %d", len(replay.DimTags()), replay.Len())
	}

	short, _ := FromBeads(beads[:1])
	if err := short.ApplyGhosts(analytic.New(), r); !errors.Is(err, errors.ErrCodeInternal) {
		t.Errorf("ApplyGhosts on a different bed = %v, want INTERNAL_ERROR", err)
	}
}
