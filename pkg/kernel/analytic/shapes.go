package analytic

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/kernel"
)

type solidKind int

const (
	// ball is a sphere clipped to an axis-aligned region (infBox when whole).
	ball solidKind = iota
	// ballCut is a whole sphere minus an axis-aligned box.
	ballCut
	// box is an axis-aligned box minus the ball pieces listed in holes.
	box
	// cylinder is a right circular cylinder. It takes part in no booleans.
	cylinder
)

func (k solidKind) String() string {
	switch k {
	case ball:
		return "ball"
	case ballCut:
		return "ball_cut"
	case box:
		return "box"
	case cylinder:
		return "cylinder"
	}
	return "unknown"
}

type solid struct {
	kind   solidKind
	center r3.Vec
	radius float64
	clip   r3.Box // ball
	cut    r3.Box // ballCut
	bounds r3.Box // box
	holes  []int  // box
	axis   r3.Vec // cylinder, origin is center

	// faces is the boundary, rebuilt on Synchronize when nil.
	faces []int
}

func (s *solid) clone() *solid {
	c := *s
	c.holes = append([]int(nil), s.holes...)
	c.faces = nil
	return &c
}

func (s *solid) translate(d r3.Vec) {
	s.center = r3.Add(s.center, d)
	s.clip = translateBox(s.clip, d)
	s.cut = translateBox(s.cut, d)
	s.bounds = translateBox(s.bounds, d)
	s.faces = nil
}

// whole reports whether s is an unclipped sphere.
func (s *solid) whole() bool { return s.kind == ball && s.clip == infBox }

// bbox returns the exact bounding box of s. For ballCut pieces the box of the
// whole sphere is returned.
func (s *solid) bbox() r3.Box {
	switch s.kind {
	case ball:
		b, _ := ballBounds(s.center, s.radius, s.clip)
		return b
	case ballCut:
		b, _ := ballBounds(s.center, s.radius, infBox)
		return b
	case box:
		return s.bounds
	default:
		return cylinderBounds(s.center, s.axis, s.radius)
	}
}

func cylinderBounds(o, axis r3.Vec, r float64) r3.Box {
	end := r3.Add(o, axis)
	l := r3.Norm(axis)
	var ext r3.Vec
	for _, a := range geom.Axes {
		c := 0.0
		if l > 0 {
			c = geom.Component(axis, a) / l
		}
		ext = geom.Set(ext, a, r*math.Sqrt(math.Max(0, 1-c*c)))
	}
	b := geom.Extend(geom.Extend(geom.EmptyBox(), o), end)
	return r3.Box{Min: r3.Sub(b.Min, ext), Max: r3.Add(b.Max, ext)}
}

type faceKind int

const (
	// rect is a planar axis-aligned rectangle, possibly with disk holes.
	rect faceKind = iota
	// disk is a planar disk clipped to an axis-aligned rectangle.
	disk
	// patch is the part of a sphere inside region, or outside it when
	// exclude is set.
	patch
	// mantle is the curved side of a cylinder.
	mantle
)

func (k faceKind) String() string {
	switch k {
	case rect:
		return "rect"
	case disk:
		return "disk"
	case patch:
		return "sphere_patch"
	case mantle:
		return "cylinder_side"
	}
	return "unknown"
}

type face struct {
	kind faceKind
	// Planar faces: the plane is axis = coord and sign is the orientation of
	// the normal along axis.
	axis  geom.Axis
	coord float64
	sign  float64
	// rect: the rectangle. disk: the clipping rectangle.
	rect   r3.Box
	center r3.Vec
	radius float64
	// patch
	region  r3.Box
	exclude bool
	// rect: disk faces removed from the rectangle.
	holes []int
	// mantle
	axisVec r3.Vec
}

func (f *face) clone() *face {
	c := *f
	c.holes = append([]int(nil), f.holes...)
	return &c
}

func (f *face) translate(d r3.Vec) {
	f.coord += geom.Component(d, f.axis)
	f.rect = translateBox(f.rect, d)
	f.center = r3.Add(f.center, d)
	f.region = translateBox(f.region, d)
}

func (f *face) planar() bool { return f.kind == rect || f.kind == disk }

func (f *face) normal() r3.Vec { return geom.Set(r3.Vec{}, f.axis, f.sign) }

func (f *face) bbox() r3.Box {
	switch f.kind {
	case rect:
		return f.rect
	case disk:
		b, _ := diskBounds(f.axis, f.center, f.radius, f.rect)
		return b
	case patch:
		region := f.region
		if f.exclude {
			region = infBox
		}
		b, _ := ballBounds(f.center, f.radius, region)
		return b
	default:
		return cylinderBounds(f.center, f.axisVec, f.radius)
	}
}

// inPlane returns the in-plane bounds of r for a face perpendicular to a.
func inPlane(r r3.Box, a geom.Axis) (ulo, uhi, vlo, vhi float64) {
	u, v := others(a)
	return lo(r, u), hi(r, u), lo(r, v), hi(r, v)
}

func (f *face) area(faces map[int]*face) float64 {
	switch f.kind {
	case rect:
		s := geom.Size(f.rect)
		u, v := others(f.axis)
		a := geom.Component(s, u) * geom.Component(s, v)
		for _, h := range f.holes {
			if hf, ok := faces[h]; ok {
				a -= hf.area(faces)
			}
		}
		return a
	case disk:
		u, v := others(f.axis)
		ulo, uhi, vlo, vhi := inPlane(f.rect, f.axis)
		return diskArea(f.radius, geom.Component(f.center, u), geom.Component(f.center, v), ulo, uhi, vlo, vhi)
	case patch:
		return sphereArea(f.center, f.radius, f.region, f.exclude)
	default:
		return 2 * math.Pi * f.radius * r3.Norm(f.axisVec)
	}
}

// sampleDirs are the directions tried when looking for a point on a sphere patch.
var sampleDirs = func() []r3.Vec {
	var out []r3.Vec
	for _, x := range []float64{0, 1, -1} {
		for _, y := range []float64{0, 1, -1} {
			for _, z := range []float64{0, 1, -1} {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				out = append(out, r3.Unit(r3.Vec{X: x, Y: y, Z: z}))
			}
		}
	}
	return out
}()

func insideBox(p r3.Vec, b r3.Box, tol float64) bool {
	for _, a := range geom.Axes {
		c := geom.Component(p, a)
		if c < lo(b, a)-tol || c > hi(b, a)+tol {
			return false
		}
	}
	return true
}

func strictlyInsideBox(p r3.Vec, b r3.Box, tol float64) bool {
	for _, a := range geom.Axes {
		c := geom.Component(p, a)
		if c <= lo(b, a)+tol || c >= hi(b, a)-tol {
			return false
		}
	}
	return true
}

// samples returns points with normals and curvatures on f.
func (f *face) samples() []kernel.Sample {
	switch f.kind {
	case rect:
		c := geom.Center(f.rect)
		return []kernel.Sample{{Point: c, Normal: f.normal()}}
	case disk:
		c := geom.Center(f.bbox())
		return []kernel.Sample{{Point: c, Normal: f.normal()}}
	case patch:
		var out []kernel.Sample
		for _, d := range sampleDirs {
			p := r3.Add(f.center, r3.Scale(f.radius, d))
			var ok bool
			if f.exclude {
				ok = !insideBox(p, f.region, eps)
			} else {
				ok = strictlyInsideBox(p, f.region, eps)
			}
			if ok {
				out = append(out, kernel.Sample{Point: p, Normal: d, Curvature: 1 / f.radius})
			}
		}
		if len(out) == 0 {
			// Tiny slivers can miss every sample direction; fall back to the
			// point of the sphere closest to the region center.
			d := r3.Unit(r3.Sub(geom.Center(f.bbox()), f.center))
			out = append(out, kernel.Sample{Point: r3.Add(f.center, r3.Scale(f.radius, d)), Normal: d, Curvature: 1 / f.radius})
		}
		return out
	default:
		return []kernel.Sample{{Point: f.center, Normal: f.perpendicular(), Curvature: 1 / f.radius}}
	}
}

func (f *face) perpendicular() r3.Vec {
	ax := r3.Unit(f.axisVec)
	ref := r3.Vec{X: 1}
	if math.Abs(r3.Dot(ax, ref)) > 0.9 {
		ref = r3.Vec{Y: 1}
	}
	return r3.Unit(r3.Sub(ref, r3.Scale(r3.Dot(ax, ref), ax)))
}

// capOf returns the cap of the sphere (c, r) on plane a = l clipped to clip,
// or nil when the plane misses the clipped sphere.
func capOf(c r3.Vec, r float64, a geom.Axis, l, sign float64, clip r3.Box) *face {
	d := l - geom.Component(c, a)
	if math.Abs(d) >= r-eps {
		return nil
	}
	center := geom.Set(c, a, l)
	rho := math.Sqrt(r*r - d*d)
	plane := r3.Box{Min: geom.Set(clip.Min, a, l), Max: geom.Set(clip.Max, a, l)}
	if _, ok := diskBounds(a, center, rho, plane); !ok {
		return nil
	}
	return &face{kind: disk, axis: a, coord: l, sign: sign, rect: plane, center: center, radius: rho}
}

// boundary builds the faces of a non-box solid.
func (s *solid) boundary() []*face {
	switch s.kind {
	case ball:
		out := []*face{{kind: patch, center: s.center, radius: s.radius, region: s.clip}}
		for _, a := range geom.Axes {
			for _, upper := range []bool{false, true} {
				l, sign := lo(s.clip, a), -1.0
				if upper {
					l, sign = hi(s.clip, a), 1.0
				}
				if math.IsInf(l, 0) {
					continue
				}
				if f := capOf(s.center, s.radius, a, l, sign, s.clip); f != nil {
					out = append(out, f)
				}
			}
		}
		return out
	case ballCut:
		out := []*face{{kind: patch, center: s.center, radius: s.radius, region: s.cut, exclude: true}}
		for _, a := range geom.Axes {
			for _, upper := range []bool{false, true} {
				// Caps of a cut piece face into the removed box.
				l, sign := lo(s.cut, a), 1.0
				if upper {
					l, sign = hi(s.cut, a), -1.0
				}
				if f := capOf(s.center, s.radius, a, l, sign, s.cut); f != nil {
					out = append(out, f)
				}
			}
		}
		return out
	case cylinder:
		out := []*face{{kind: mantle, center: s.center, radius: s.radius, axisVec: s.axis}}
		if w, ok := geom.ClassifyNormal(r3.Unit(s.axis)); ok {
			a := w.Axis()
			for i, o := range []r3.Vec{s.center, r3.Add(s.center, s.axis)} {
				sign := -w.Sign()
				if i == 1 {
					sign = w.Sign()
				}
				l := geom.Component(o, a)
				ext := r3.Vec{X: s.radius, Y: s.radius, Z: s.radius}
				plane := r3.Box{Min: geom.Set(r3.Sub(o, ext), a, l), Max: geom.Set(r3.Add(o, ext), a, l)}
				out = append(out, &face{kind: disk, axis: a, coord: l, sign: sign, rect: plane, center: o, radius: s.radius})
			}
		}
		return out
	}
	return nil
}
