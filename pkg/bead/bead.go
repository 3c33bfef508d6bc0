// Package bead provides the spherical particle value type and the ordered bead
// collection with its kernel-identity side-table.
//
// A [Bead] is an immutable value. Kernel identities are not stored on the
// value: a [Set] keeps them in a side-table keyed by the stable bead index,
// filled once when the bead is generated in the kernel.
package bead

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Bead is a sphere given by its center and radius.
type Bead struct {
	Center r3.Vec
	R      float64
}

// New returns the bead centered at (x, y, z) with radius r.
func New(x, y, z, r float64) Bead {
	return Bead{Center: r3.Vec{X: x, Y: y, Z: z}, R: r}
}

// Validate rejects non-positive or non-finite radii and centers.
func (b Bead) Validate() error {
	if !(b.R > 0) || math.IsInf(b.R, 0) {
		return fmt.Errorf("bead radius must be positive and finite, got %g", b.R)
	}
	for _, c := range []float64{b.Center.X, b.Center.Y, b.Center.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("bead center must be finite, got %v", b.Center)
		}
	}
	return nil
}

// Volume returns 4/3 π r³.
func (b Bead) Volume() float64 { return 4.0 / 3.0 * math.Pi * b.R * b.R * b.R }

// SurfaceArea returns 4 π r².
func (b Bead) SurfaceArea() float64 { return 4 * math.Pi * b.R * b.R }

// Distance returns the distance between the centers of b and o.
func (b Bead) Distance(o Bead) float64 { return r3.Norm(r3.Sub(b.Center, o.Center)) }

// Min returns (x-r, y-r, z-r).
func (b Bead) Min() r3.Vec { return r3.Sub(b.Center, r3.Vec{X: b.R, Y: b.R, Z: b.R}) }

// Max returns (x+r, y+r, z+r).
func (b Bead) Max() r3.Vec { return r3.Add(b.Center, r3.Vec{X: b.R, Y: b.R, Z: b.R}) }

// Bounds returns the cardinal bounding box of b.
func (b Bead) Bounds() r3.Box { return r3.Box{Min: b.Min(), Max: b.Max()} }

// Translated returns b moved by d.
func (b Bead) Translated(d r3.Vec) Bead {
	b.Center = r3.Add(b.Center, d)
	return b
}

// PosXY returns the radial distance of the center from the z axis.
func (b Bead) PosXY() float64 { return math.Hypot(b.Center.X, b.Center.Y) }

func (b Bead) String() string {
	return fmt.Sprintf("bead(%g, %g, %g; r=%g)", b.Center.X, b.Center.Y, b.Center.Z, b.R)
}
