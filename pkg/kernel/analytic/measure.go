package analytic

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/packmesh/pkg/geom"
)

// eps is the absolute tolerance used for incidence tests.
const eps = 1e-9

// Integration resolution: every smooth sub-interval is split into panels of
// a fixed-order Gauss-Legendre rule.
const (
	panels      = 16
	legendreDeg = 8
)

var infBox = r3.Box{
	Min: r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	Max: r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
}

func lo(b r3.Box, a geom.Axis) float64 { return geom.Component(b.Min, a) }
func hi(b r3.Box, a geom.Axis) float64 { return geom.Component(b.Max, a) }

// others returns the two axes perpendicular to a in cyclic order.
func others(a geom.Axis) (geom.Axis, geom.Axis) {
	return (a + 1) % 3, (a + 2) % 3
}

func clamp(v, l, h float64) float64 { return math.Max(l, math.Min(h, v)) }

func intersectBox(a, b r3.Box) r3.Box {
	return r3.Box{
		Min: r3.Vec{X: math.Max(a.Min.X, b.Min.X), Y: math.Max(a.Min.Y, b.Min.Y), Z: math.Max(a.Min.Z, b.Min.Z)},
		Max: r3.Vec{X: math.Min(a.Max.X, b.Max.X), Y: math.Min(a.Max.Y, b.Max.Y), Z: math.Min(a.Max.Z, b.Max.Z)},
	}
}

func translateBox(b r3.Box, d r3.Vec) r3.Box {
	return r3.Box{Min: r3.Add(b.Min, d), Max: r3.Add(b.Max, d)}
}

// containsBox reports whether outer contains inner up to eps.
func containsBox(outer, inner r3.Box) bool {
	for _, a := range geom.Axes {
		if lo(inner, a) < lo(outer, a)-eps || hi(inner, a) > hi(outer, a)+eps {
			return false
		}
	}
	return true
}

// overlapVolume reports whether a and b share a region of positive volume.
func overlapVolume(a, b r3.Box) bool {
	in := intersectBox(a, b)
	for _, ax := range geom.Axes {
		if hi(in, ax)-lo(in, ax) <= eps {
			return false
		}
	}
	return true
}

// ballBounds returns the bounding box of the ball (c, r) clipped to clip, and
// false if the clipped region is empty.
func ballBounds(c r3.Vec, r float64, clip r3.Box) (r3.Box, bool) {
	var d2 float64
	for _, a := range geom.Axes {
		ca := geom.Component(c, a)
		d := ca - clamp(ca, lo(clip, a), hi(clip, a))
		d2 += d * d
	}
	if d2 >= r*r-eps*r {
		return r3.Box{}, false
	}
	var out r3.Box
	for _, a := range geom.Axes {
		u, v := others(a)
		cu, cv := geom.Component(c, u), geom.Component(c, v)
		du := cu - clamp(cu, lo(clip, u), hi(clip, u))
		dv := cv - clamp(cv, lo(clip, v), hi(clip, v))
		half := math.Sqrt(math.Max(0, r*r-du*du-dv*dv))
		ca := geom.Component(c, a)
		out.Min = geom.Set(out.Min, a, math.Max(lo(clip, a), ca-half))
		out.Max = geom.Set(out.Max, a, math.Min(hi(clip, a), ca+half))
	}
	return out, true
}

// diskBounds returns the bounding box of the disk of radius rho centred at c in
// the plane perpendicular to a, clipped to the in-plane bounds of clip. The
// a-component of the result is c's.
func diskBounds(a geom.Axis, c r3.Vec, rho float64, clip r3.Box) (r3.Box, bool) {
	u, v := others(a)
	cu, cv := geom.Component(c, u), geom.Component(c, v)
	du := cu - clamp(cu, lo(clip, u), hi(clip, u))
	dv := cv - clamp(cv, lo(clip, v), hi(clip, v))
	if du*du+dv*dv >= rho*rho-eps*rho {
		return r3.Box{}, false
	}
	out := r3.Box{Min: c, Max: c}
	hu := math.Sqrt(math.Max(0, rho*rho-dv*dv))
	hv := math.Sqrt(math.Max(0, rho*rho-du*du))
	out.Min = geom.Set(out.Min, u, math.Max(lo(clip, u), cu-hu))
	out.Max = geom.Set(out.Max, u, math.Min(hi(clip, u), cu+hu))
	out.Min = geom.Set(out.Min, v, math.Max(lo(clip, v), cv-hv))
	out.Max = geom.Set(out.Max, v, math.Min(hi(clip, v), cv+hv))
	return out, true
}

// arcInside returns the angular measure of the circle (cu, cv, rho) lying
// inside the rectangle [ulo,uhi]x[vlo,vhi].
func arcInside(rho, cu, cv, ulo, uhi, vlo, vhi float64) float64 {
	inside := func(u, v float64) bool {
		return u >= ulo && u <= uhi && v >= vlo && v <= vhi
	}
	if rho <= 0 {
		if inside(cu, cv) {
			return 2 * math.Pi
		}
		return 0
	}
	angles := []float64{0, 2 * math.Pi}
	norm := func(t float64) float64 {
		t = math.Mod(t, 2*math.Pi)
		if t < 0 {
			t += 2 * math.Pi
		}
		return t
	}
	for _, l := range []float64{ulo, uhi} {
		if d := (l - cu) / rho; math.Abs(d) < 1 {
			t := math.Acos(d)
			angles = append(angles, norm(t), norm(-t))
		}
	}
	for _, l := range []float64{vlo, vhi} {
		if d := (l - cv) / rho; math.Abs(d) < 1 {
			s := math.Asin(d)
			angles = append(angles, norm(s), norm(math.Pi-s))
		}
	}
	sort.Float64s(angles)
	var total float64
	for i := 1; i < len(angles); i++ {
		t0, t1 := angles[i-1], angles[i]
		if t1-t0 <= 0 {
			continue
		}
		m := 0.5 * (t0 + t1)
		if inside(cu+rho*math.Cos(m), cv+rho*math.Sin(m)) {
			total += t1 - t0
		}
	}
	return total
}

// integrate integrates f over [a, b], splitting at the given breakpoints so
// that each sub-interval is smooth.
func integrate(f func(float64) float64, a, b float64, breaks []float64) float64 {
	if b <= a {
		return 0
	}
	pts := []float64{a, b}
	for _, x := range breaks {
		if x > a && x < b {
			pts = append(pts, x)
		}
	}
	sort.Float64s(pts)
	var total float64
	for i := 1; i < len(pts); i++ {
		x0, l := pts[i-1], pts[i]-pts[i-1]
		// x = x0 + l(1-cos πt)/2 clusters nodes at both ends, which removes
		// the square-root endpoint behaviour of chords and arcs.
		g := func(t float64) float64 {
			x := x0 + 0.5*l*(1-math.Cos(math.Pi*t))
			return f(x) * 0.5 * l * math.Pi * math.Sin(math.Pi*t)
		}
		for p := 0; p < panels; p++ {
			total += quad.Fixed(g, float64(p)/panels, float64(p+1)/panels, legendreDeg, quad.Legendre{}, 0)
		}
	}
	return total
}

// chordBreaks returns the abscissae along the integration axis where a circle
// of radius rad centred at (cx, cy) meets the lines y = l.
func chordBreaks(rad, cx, cy float64, lines ...float64) []float64 {
	var out []float64
	for _, l := range lines {
		if d := l - cy; math.Abs(d) < rad && !math.IsInf(l, 0) {
			h := math.Sqrt(rad*rad - d*d)
			out = append(out, cx-h, cx+h)
		}
	}
	return out
}

// sphereArea returns the area of the sphere (c, r) lying inside region, or
// outside it when exclude is set. By Archimedes' theorem the area element is
// r·dθ·dx for slices perpendicular to x.
func sphereArea(c r3.Vec, r float64, region r3.Box, exclude bool) float64 {
	arc := func(x float64) float64 {
		rho := math.Sqrt(math.Max(0, r*r-(x-c.X)*(x-c.X)))
		in := 0.0
		if x >= region.Min.X && x <= region.Max.X {
			in = arcInside(rho, c.Y, c.Z, region.Min.Y, region.Max.Y, region.Min.Z, region.Max.Z)
		}
		if exclude {
			return 2*math.Pi - in
		}
		return in
	}
	a, b := c.X-r, c.X+r
	if !exclude {
		a, b = math.Max(a, region.Min.X), math.Min(b, region.Max.X)
	}
	var breaks []float64
	breaks = append(breaks, region.Min.X, region.Max.X)
	breaks = append(breaks, chordBreaks(r, c.X, c.Y, region.Min.Y, region.Max.Y)...)
	breaks = append(breaks, chordBreaks(r, c.X, c.Z, region.Min.Z, region.Max.Z)...)
	for _, y := range []float64{region.Min.Y, region.Max.Y} {
		for _, z := range []float64{region.Min.Z, region.Max.Z} {
			if math.IsInf(y, 0) || math.IsInf(z, 0) {
				continue
			}
			d2 := (y-c.Y)*(y-c.Y) + (z-c.Z)*(z-c.Z)
			if d2 < r*r {
				h := math.Sqrt(r*r - d2)
				breaks = append(breaks, c.X-h, c.X+h)
			}
		}
	}
	return r * integrate(arc, a, b, breaks)
}

// diskArea returns the area of the disk (cu, cv, rho) inside the rectangle.
func diskArea(rho, cu, cv, ulo, uhi, vlo, vhi float64) float64 {
	chord := func(u float64) float64 {
		h := math.Sqrt(math.Max(0, rho*rho-(u-cu)*(u-cu)))
		return math.Max(0, math.Min(cv+h, vhi)-math.Max(cv-h, vlo))
	}
	a, b := math.Max(cu-rho, ulo), math.Min(cu+rho, uhi)
	return integrate(chord, a, b, chordBreaks(rho, cu, cv, vlo, vhi))
}

// ballVolume returns the volume of the ball (c, r) clipped to clip.
func ballVolume(c r3.Vec, r float64, clip r3.Box) float64 {
	section := func(x float64) float64 {
		rho := math.Sqrt(math.Max(0, r*r-(x-c.X)*(x-c.X)))
		return diskArea(rho, c.Y, c.Z, clip.Min.Y, clip.Max.Y, clip.Min.Z, clip.Max.Z)
	}
	a, b := math.Max(c.X-r, clip.Min.X), math.Min(c.X+r, clip.Max.X)
	breaks := append(chordBreaks(r, c.X, c.Y, clip.Min.Y, clip.Max.Y), chordBreaks(r, c.X, c.Z, clip.Min.Z, clip.Max.Z)...)
	return integrate(section, a, b, breaks)
}
