package container

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/kernel/analytic"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		shape    Shape
		size     []float64
		wantCode errors.Code
	}{
		{"box", Box, []float64{0, 0, 0, 1, 2, 3}, ""},
		{"cylinder", Cylinder, []float64{0, 0, 0, 0, 0, 3, 1}, ""},
		{"sphere", Shape("sphere"), []float64{0, 0, 0, 1}, errors.ErrCodeUnsupportedShape},
		{"box arity", Box, []float64{0, 0, 0, 1, 2}, errors.ErrCodeConfiguration},
		{"cylinder arity", Cylinder, []float64{0, 0, 0, 0, 0, 3}, errors.ErrCodeConfiguration},
		{"flat box", Box, []float64{0, 0, 0, 1, 0, 3}, errors.ErrCodeConfiguration},
		{"zero radius", Cylinder, []float64{0, 0, 0, 0, 0, 3, 0}, errors.ErrCodeConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.shape, tt.size)
			if got := errors.GetCode(err); got != tt.wantCode {
				t.Fatalf("New() code = %q (err %v), want %q", got, err, tt.wantCode)
			}
			if err == nil {
				if diff := cmp.Diff(tt.size, c.SizeVector()); diff != "" {
					t.Errorf("SizeVector mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestDerivedQuantities(t *testing.T) {
	box, _ := New(Box, []float64{1, 2, 3, 2, 4, -6})
	if got := box.Extents(); got != (r3.Vec{X: 2, Y: 4, Z: 6}) {
		t.Errorf("box Extents = %v", got)
	}
	want := r3.Box{Min: r3.Vec{X: 1, Y: 2, Z: -3}, Max: r3.Vec{X: 3, Y: 6, Z: 3}}
	if got := box.Bounds(); got != want {
		t.Errorf("box Bounds = %v, want %v", got, want)
	}
	if box.Volume() != 48 || box.CrossSectionArea() != 8 {
		t.Errorf("box Volume = %v, CrossSectionArea = %v", box.Volume(), box.CrossSectionArea())
	}

	cyl, _ := New(Cylinder, []float64{0, 0, 0, 0, 0, 5, 2})
	if got := cyl.Extents(); got != (r3.Vec{X: 4, Y: 4, Z: 5}) {
		t.Errorf("cylinder Extents = %v", got)
	}
	want = r3.Box{Min: r3.Vec{X: -2, Y: -2, Z: 0}, Max: r3.Vec{X: 2, Y: 2, Z: 5}}
	if got := cyl.Bounds(); got != want {
		t.Errorf("cylinder Bounds = %v, want %v", got, want)
	}
	if math.Abs(cyl.Volume()-20*math.Pi) > 1e-12 || math.Abs(cyl.CrossSectionArea()-4*math.Pi) > 1e-12 {
		t.Errorf("cylinder Volume = %v, CrossSectionArea = %v", cyl.Volume(), cyl.CrossSectionArea())
	}
}

func TestGenerateOnce(t *testing.T) {
	k := analytic.New()
	c, _ := New(Box, []float64{0, 0, 0, 1, 1, 1})
	first, err := c.Generate(k)
	if err != nil {
		t.Fatal(err)
	}
	again, _ := c.Generate(k)
	if diff := cmp.Diff(first, again); diff != "" || len(first) != 1 {
		t.Errorf("Generate not idempotent: %v vs %v", first, again)
	}
	if err := k.Synchronize(); err != nil {
		t.Fatal(err)
	}
	bb, _ := k.BoundingBox(first[0])
	if bb != c.Bounds() {
		t.Errorf("kernel bounds %v != container bounds %v", bb, c.Bounds())
	}
}

func TestScale(t *testing.T) {
	k := analytic.New()
	c, _ := New(Box, []float64{1, 1, 1, 2, 2, 2})
	ents, _ := c.Generate(k)
	if err := c.Scale(k, 2, r3.Vec{}); err != nil {
		t.Fatal(err)
	}
	want := r3.Box{Min: r3.Vec{X: 2, Y: 2, Z: 2}, Max: r3.Vec{X: 6, Y: 6, Z: 6}}
	if c.Bounds() != want {
		t.Errorf("Bounds after Scale = %v, want %v", c.Bounds(), want)
	}
	if err := k.Synchronize(); err != nil {
		t.Fatal(err)
	}
	if bb, _ := k.BoundingBox(ents[0]); bb != want {
		t.Errorf("kernel bounds after Scale = %v, want %v", bb, want)
	}
}

func TestSection(t *testing.T) {
	c, _ := New(Box, []float64{-1, -1, 0, 2, 2, 10})
	inlet, err := c.Section(-3, 3)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{-1, -1, -3, 2, 2, 3}, inlet.SizeVector()); diff != "" {
		t.Errorf("inlet section mismatch (-want +got):\n%s", diff)
	}
	cyl, _ := New(Cylinder, []float64{0, 0, 0, 0, 0, 5, 2})
	if _, err := cyl.Section(5, 1); !errors.Is(err, errors.ErrCodeUnsupportedShape) {
		t.Errorf("cylinder Section: got %v, want UNSUPPORTED_SHAPE", err)
	}
}

func TestAuto(t *testing.T) {
	b := r3.Box{Min: r3.Vec{X: -1, Y: -2, Z: 0}, Max: r3.Vec{X: 1, Y: 2, Z: 5}}
	c := Auto(b)
	if c.Shape != Box || c.Bounds() != b {
		t.Errorf("Auto = %v with bounds %v", c, c.Bounds())
	}
}
