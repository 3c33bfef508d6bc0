// Package geom provides the small amount of vector geometry shared by the
// stacking and classification stages: cardinal axes, container walls and their
// outward normals, and bounding-box helpers.
//
// Vectors and boxes are gonum's r3 types so that every package speaks the same
// geometric vocabulary as the kernel interface.
package geom

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

// Axis is one of the three cartesian axes.
type Axis int

// Cartesian axes.
const (
	X Axis = iota
	Y
	Z
)

// Axes lists every axis in canonical order.
var Axes = [3]Axis{X, Y, Z}

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// Unit returns the positive unit vector along a.
func (a Axis) Unit() r3.Vec {
	return Set(r3.Vec{}, a, 1)
}

// ParseAxes parses a periodicity string such as "xz" into axes in canonical
// order. Repeated letters are accepted once; an empty string yields no axes.
func ParseAxes(s string) ([]Axis, error) {
	var seen [3]bool
	for _, r := range strings.ToLower(s) {
		switch r {
		case 'x':
			seen[X] = true
		case 'y':
			seen[Y] = true
		case 'z':
			seen[Z] = true
		default:
			return nil, fmt.Errorf("invalid axis %q in %q (must be a subset of xyz)", r, s)
		}
	}
	var out []Axis
	for _, a := range Axes {
		if seen[a] {
			out = append(out, a)
		}
	}
	return out, nil
}

// FormatAxes is the inverse of ParseAxes.
func FormatAxes(axes []Axis) string {
	var b strings.Builder
	for _, a := range axes {
		b.WriteString(a.String())
	}
	return b.String()
}

// Component returns the a-component of v.
func Component(v r3.Vec, a Axis) float64 {
	switch a {
	case X:
		return v.X
	case Y:
		return v.Y
	default:
		return v.Z
	}
}

// Set returns v with its a-component replaced by f.
func Set(v r3.Vec, a Axis, f float64) r3.Vec {
	switch a {
	case X:
		v.X = f
	case Y:
		v.Y = f
	default:
		v.Z = f
	}
	return v
}

// Mul is the component-wise product of u and v.
func Mul(u, v r3.Vec) r3.Vec {
	return r3.Vec{X: u.X * v.X, Y: u.Y * v.Y, Z: u.Z * v.Z}
}

// =============================================================================
// Walls
// =============================================================================

// Wall identifies one of the six cardinal faces of an axis-aligned container.
type Wall int

// Container walls, named by axis and outward direction.
const (
	XMinus Wall = iota
	XPlus
	YMinus
	YPlus
	ZMinus
	ZPlus
)

// Walls lists every wall in canonical order.
var Walls = [6]Wall{XMinus, XPlus, YMinus, YPlus, ZMinus, ZPlus}

// Axis returns the axis the wall is perpendicular to.
func (w Wall) Axis() Axis { return Axis(w / 2) }

// Sign is -1 for the lower wall of an axis and +1 for the upper one.
func (w Wall) Sign() float64 {
	if w%2 == 0 {
		return -1
	}
	return 1
}

// Normal returns the outward unit normal of the wall.
func (w Wall) Normal() r3.Vec {
	return Set(r3.Vec{}, w.Axis(), w.Sign())
}

// Opposite returns the wall on the other side of the same axis.
func (w Wall) Opposite() Wall { return w ^ 1 }

func (w Wall) String() string {
	if w < XMinus || w > ZPlus {
		return fmt.Sprintf("wall(%d)", int(w))
	}
	s := "-"
	if w.Sign() > 0 {
		s = "+"
	}
	return w.Axis().String() + s
}

// WallOf returns the lower or upper wall of axis a.
func WallOf(a Axis, upper bool) Wall {
	w := Wall(2 * a)
	if upper {
		w++
	}
	return w
}

// ClassifyNormal matches a unit normal against the six cardinal directions.
// The comparison is exact: the kernel reports normals of planar faces already
// normalized, and any deviation means the face is not a container wall.
func ClassifyNormal(n r3.Vec) (Wall, bool) {
	for _, w := range Walls {
		if n == w.Normal() {
			return w, true
		}
	}
	return 0, false
}

// SumNormals adds the outward normals of walls.
func SumNormals(walls []Wall) r3.Vec {
	var sum r3.Vec
	for _, w := range walls {
		sum = r3.Add(sum, w.Normal())
	}
	return sum
}

// =============================================================================
// Boxes
// =============================================================================

// EmptyBox returns a box that any Extend call will overwrite.
func EmptyBox() r3.Box {
	inf := math.Inf(1)
	return r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// Extend grows b to contain p.
func Extend(b r3.Box, p r3.Vec) r3.Box {
	b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	return b
}

// Union returns the smallest box containing a and b.
func Union(a, b r3.Box) r3.Box {
	return Extend(Extend(a, b.Min), b.Max)
}

// Size returns the edge lengths of b.
func Size(b r3.Box) r3.Vec { return r3.Sub(b.Max, b.Min) }

// Center returns the midpoint of b.
func Center(b r3.Box) r3.Vec { return r3.Scale(0.5, r3.Add(b.Min, b.Max)) }

// MaskAxis zeroes the a-component of both corners so boxes can be compared
// while ignoring their position along a.
func MaskAxis(b r3.Box, a Axis) r3.Box {
	b.Min = Set(b.Min, a, 0)
	b.Max = Set(b.Max, a, 0)
	return b
}

// BoxesClose reports whether every corner coordinate of a and b agrees
// within tol.
func BoxesClose(a, b r3.Box, tol float64) bool {
	for _, ax := range Axes {
		if !scalar.EqualWithinAbs(Component(a.Min, ax), Component(b.Min, ax), tol) ||
			!scalar.EqualWithinAbs(Component(a.Max, ax), Component(b.Max, ax), tol) {
			return false
		}
	}
	return true
}
