package analytic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/kernel"
)

func (m *model) solidsOf(in []kernel.DimTag, role string) ([]*solid, error) {
	out := make([]*solid, len(in))
	for i, e := range in {
		if e.Dim != 3 {
			return nil, fmt.Errorf("analytic: %s %s is not a volume: %w", role, e, kernel.ErrUnsupported)
		}
		s, ok := m.solids[e.Tag]
		if !ok {
			return nil, noEntity(e)
		}
		out[i] = s
	}
	return out, nil
}

// singleBox returns the one box tool of a boolean.
func (m *model) singleBox(tool []kernel.DimTag) (*solid, error) {
	if len(tool) != 1 {
		return nil, fmt.Errorf("analytic: expected exactly one box tool, got %d: %w", len(tool), kernel.ErrUnsupported)
	}
	ts, err := m.solidsOf(tool, "tool")
	if err != nil {
		return nil, err
	}
	if ts[0].kind != box {
		return nil, fmt.Errorf("analytic: tool %s is a %s, not a box: %w", tool[0], ts[0].kind, kernel.ErrUnsupported)
	}
	return ts[0], nil
}

func requireBalls(objs []*solid, in []kernel.DimTag) error {
	for i, s := range objs {
		if s.kind != ball {
			return fmt.Errorf("analytic: object %s is a %s, not a sphere: %w", in[i], s.kind, kernel.ErrUnsupported)
		}
	}
	return nil
}

func (m *model) finish(object, tool []kernel.DimTag, opts kernel.BooleanOptions) {
	if opts.RemoveObject {
		m.removeAll(object)
	}
	if opts.RemoveTool {
		m.removeAll(tool)
	}
	m.dirty = true
}

// removeAll removes inputs of a boolean recursively, except tags that live on
// as one of its outputs.
func (m *model) removeAll(in []kernel.DimTag) {
	for _, e := range in {
		switch e.Dim {
		case 3:
			if s, ok := m.solids[e.Tag]; ok {
				delete(m.solids, e.Tag)
				for _, f := range s.faces {
					if len(m.owners(f)) == 0 {
						delete(m.faces, f)
					}
				}
			}
		case 2:
			if len(m.owners(e.Tag)) == 0 {
				delete(m.faces, e.Tag)
			}
		}
	}
}

// Intersect clips every sphere object to the box tool. Objects that miss the
// box produce nothing. Every piece is attributed to both its object and the
// tool.
func (k *Kernel) Intersect(object, tool []kernel.DimTag, opts kernel.BooleanOptions) (kernel.BooleanResult, error) {
	m := k.current
	b, err := m.singleBox(tool)
	if err != nil {
		return kernel.BooleanResult{}, err
	}
	objs, err := m.solidsOf(object, "object")
	if err != nil {
		return kernel.BooleanResult{}, err
	}
	if err := requireBalls(objs, object); err != nil {
		return kernel.BooleanResult{}, err
	}
	res := kernel.BooleanResult{Objects: make([][]kernel.DimTag, len(object)), Tools: make([][]kernel.DimTag, 1)}
	for i, s := range objs {
		clip := intersectBox(s.clip, b.bounds)
		if _, ok := ballBounds(s.center, s.radius, clip); !ok {
			continue
		}
		p := s.clone()
		p.clip = clip
		dt := kernel.DimTag{Dim: 3, Tag: m.addSolid(p)}
		res.Out = append(res.Out, dt)
		res.Objects[i] = []kernel.DimTag{dt}
		res.Tools[0] = append(res.Tools[0], dt)
	}
	m.finish(object, tool, opts)
	return res, nil
}

// Cut removes the box tool from every whole-sphere object. Objects inside the
// box produce nothing; the tool entry of the result is always empty.
func (k *Kernel) Cut(object, tool []kernel.DimTag, opts kernel.BooleanOptions) (kernel.BooleanResult, error) {
	m := k.current
	b, err := m.singleBox(tool)
	if err != nil {
		return kernel.BooleanResult{}, err
	}
	objs, err := m.solidsOf(object, "object")
	if err != nil {
		return kernel.BooleanResult{}, err
	}
	if err := requireBalls(objs, object); err != nil {
		return kernel.BooleanResult{}, err
	}
	res := kernel.BooleanResult{Objects: make([][]kernel.DimTag, len(object)), Tools: make([][]kernel.DimTag, 1)}
	for i, s := range objs {
		if bb := s.bbox(); containsBox(b.bounds, bb) {
			continue
		}
		if s.clip != infBox {
			return kernel.BooleanResult{}, fmt.Errorf("analytic: cut of clipped sphere %s: %w", object[i], kernel.ErrUnsupported)
		}
		dt := kernel.DimTag{Dim: 3, Tag: m.addSolid(&solid{kind: ballCut, center: s.center, radius: s.radius, cut: b.bounds})}
		res.Out = append(res.Out, dt)
		res.Objects[i] = []kernel.DimTag{dt}
	}
	m.finish(object, tool, opts)
	return res, nil
}

// Fragment supports two configurations:
//
//   - sphere pieces against one planar rectangle: a piece is split in two
//     when the rectangle transects it completely, otherwise it is returned
//     unchanged. The rectangle is returned with the split disks as extra
//     tool fragments.
//   - sphere pieces against one box: pieces inside the box keep their tag,
//     straddling whole spheres split into an inside and an outside piece,
//     and the box becomes one interstitial volume with the inside pieces as
//     holes. The tool entry lists the interstitial volume and every inside
//     piece.
//
// Overlapping sphere pieces inside the box are not supported.
func (k *Kernel) Fragment(object, tool []kernel.DimTag, opts kernel.BooleanOptions) (kernel.BooleanResult, error) {
	m := k.current
	if len(tool) == 1 && tool[0].Dim == 2 {
		return k.fragmentByFace(object, tool[0], opts)
	}
	b, err := m.singleBox(tool)
	if err != nil {
		return kernel.BooleanResult{}, err
	}
	objs, err := m.solidsOf(object, "object")
	if err != nil {
		return kernel.BooleanResult{}, err
	}
	if err := requireBalls(objs, object); err != nil {
		return kernel.BooleanResult{}, err
	}

	res := kernel.BooleanResult{Objects: make([][]kernel.DimTag, len(object)), Tools: make([][]kernel.DimTag, 1)}
	type inside struct {
		tag int
		s   *solid
	}
	var ins []inside
	var outs []kernel.DimTag
	for i, s := range objs {
		bb := s.bbox()
		switch {
		case containsBox(b.bounds, bb):
			t := object[i].Tag
			if !opts.RemoveObject {
				t = m.addSolid(s.clone())
			}
			ins = append(ins, inside{t, m.solids[t]})
			res.Objects[i] = []kernel.DimTag{{Dim: 3, Tag: t}}
		case !overlapVolume(b.bounds, bb):
			res.Objects[i] = []kernel.DimTag{object[i]}
			outs = append(outs, object[i])
		default:
			if s.clip != infBox {
				return kernel.BooleanResult{}, fmt.Errorf("analytic: fragment of clipped sphere %s straddling the box: %w", object[i], kernel.ErrUnsupported)
			}
			if _, ok := ballBounds(s.center, s.radius, b.bounds); !ok {
				res.Objects[i] = []kernel.DimTag{object[i]}
				outs = append(outs, object[i])
				continue
			}
			in := s.clone()
			in.clip = b.bounds
			it := m.addSolid(in)
			ot := m.addSolid(&solid{kind: ballCut, center: s.center, radius: s.radius, cut: b.bounds})
			ins = append(ins, inside{it, in})
			outs = append(outs, kernel.DimTag{Dim: 3, Tag: ot})
			res.Objects[i] = kernel.Volumes(it, ot)
		}
	}
	for i := range ins {
		for j := i + 1; j < len(ins); j++ {
			a, c := ins[i].s, ins[j].s
			if r3.Norm(r3.Sub(a.center, c.center)) < a.radius+c.radius-eps && overlapVolume(a.bbox(), c.bbox()) {
				return kernel.BooleanResult{}, fmt.Errorf("analytic: volumes %d and %d overlap: %w", ins[i].tag, ins[j].tag, kernel.ErrUnsupported)
			}
		}
	}

	inter := &solid{kind: box, bounds: b.bounds, holes: append([]int(nil), b.holes...)}
	for _, p := range ins {
		inter.holes = append(inter.holes, p.tag)
	}
	interTag := m.addSolid(inter)

	res.Tools[0] = append(res.Tools[0], kernel.DimTag{Dim: 3, Tag: interTag})
	res.Out = append(res.Out, kernel.DimTag{Dim: 3, Tag: interTag})
	for _, p := range ins {
		dt := kernel.DimTag{Dim: 3, Tag: p.tag}
		res.Tools[0] = append(res.Tools[0], dt)
		res.Out = append(res.Out, dt)
	}
	res.Out = append(res.Out, outs...)

	keep := make(map[kernel.DimTag]bool)
	for _, d := range res.Out {
		keep[d] = true
	}
	var drop []kernel.DimTag
	if opts.RemoveObject {
		for _, o := range object {
			if !keep[o] {
				drop = append(drop, o)
			}
		}
	}
	if opts.RemoveTool {
		drop = append(drop, tool...)
	}
	m.removeAll(drop)
	m.dirty = true
	return res, nil
}

// fragmentByFace splits sphere pieces along a free rectangle.
func (k *Kernel) fragmentByFace(object []kernel.DimTag, tool kernel.DimTag, opts kernel.BooleanOptions) (kernel.BooleanResult, error) {
	m := k.current
	f, ok := m.faces[tool.Tag]
	if !ok {
		return kernel.BooleanResult{}, noEntity(tool)
	}
	if f.kind != rect {
		return kernel.BooleanResult{}, fmt.Errorf("analytic: fragment by %s face: %w", f.kind, kernel.ErrUnsupported)
	}
	objs, err := m.solidsOf(object, "object")
	if err != nil {
		return kernel.BooleanResult{}, err
	}
	if err := requireBalls(objs, object); err != nil {
		return kernel.BooleanResult{}, err
	}

	res := kernel.BooleanResult{Objects: make([][]kernel.DimTag, len(object)), Tools: make([][]kernel.DimTag, 1)}
	rem := f.clone()
	remTag := m.addFace(rem)
	res.Tools[0] = []kernel.DimTag{{Dim: 2, Tag: remTag}}
	a, l := f.axis, f.coord
	for i, s := range objs {
		c := s.center
		lower := math.Max(geom.Component(c, a)-s.radius, lo(s.clip, a))
		upper := math.Min(geom.Component(c, a)+s.radius, hi(s.clip, a))
		cp := capOf(c, s.radius, a, l, f.sign, s.clip)
		split := l > lower+eps && l < upper-eps && cp != nil && containsBox(f.rect, cp.bbox())
		if !split {
			res.Objects[i] = []kernel.DimTag{object[i]}
			res.Out = append(res.Out, object[i])
			continue
		}
		below, above := s.clone(), s.clone()
		below.clip.Max = geom.Set(below.clip.Max, a, l)
		above.clip.Min = geom.Set(above.clip.Min, a, l)
		pieces := kernel.Volumes(m.addSolid(below), m.addSolid(above))
		res.Objects[i] = pieces
		res.Out = append(res.Out, pieces...)
		dt := kernel.DimTag{Dim: 2, Tag: m.addFace(cp)}
		res.Tools[0] = append(res.Tools[0], dt)
		rem.holes = append(rem.holes, dt.Tag)
	}
	res.Out = append(res.Out, res.Tools[0]...)

	var drop []kernel.DimTag
	if opts.RemoveObject {
		for i, o := range object {
			if len(res.Objects[i]) > 1 {
				drop = append(drop, o)
			}
		}
	}
	if opts.RemoveTool {
		drop = append(drop, tool)
	}
	m.removeAll(drop)
	m.dirty = true
	return res, nil
}
