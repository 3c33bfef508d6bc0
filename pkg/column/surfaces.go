package column

import (
	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/kernel"
)

// SeparateBoundingSurfaces classifies the boundary surfaces of the retained
// volumes. A surface that is curved where it is sampled is a particle surface.
// A flat surface goes to the wall whose outward normal equals its own. The
// inlet is z-, the outlet is z+ and the side walls are the x and y walls.
func (c *Column) SeparateBoundingSurfaces() (Surfaces, error) {
	if err := c.k.Synchronize(); err != nil {
		return Surfaces{}, errors.Wrap(errors.ErrCodeKernel, err, "synchronize")
	}
	faces, err := c.k.Boundary(c.entities, false, false)
	if err != nil {
		return Surfaces{}, errors.Wrap(errors.ErrCodeKernel, err, "%s: boundary", c.opts.Name)
	}
	seen := make(map[int]bool, len(faces))
	var walls [6][]int
	var curved []int
	for _, f := range faces {
		if seen[f.Tag] {
			continue
		}
		seen[f.Tag] = true
		samples, err := c.k.SampleSurface(f.Tag)
		if err != nil {
			return Surfaces{}, errors.Wrap(errors.ErrCodeKernel, err, "%s: sample surface %d", c.opts.Name, f.Tag)
		}
		if len(samples) == 0 {
			return Surfaces{}, errors.New(errors.ErrCodeClassification, "%s: surface %d has no sample point", c.opts.Name, f.Tag)
		}
		s := samples[0]
		if s.Curvature != 0 {
			curved = append(curved, f.Tag)
			continue
		}
		w, ok := geom.ClassifyNormal(s.Normal)
		if !ok {
			return Surfaces{}, errors.New(errors.ErrCodeClassification,
				"%s: flat surface %d has normal %v, which matches no container wall", c.opts.Name, f.Tag, s.Normal)
		}
		walls[w] = append(walls[w], f.Tag)
	}

	c.walls = walls
	c.surfaces = Surfaces{
		Inlet:     walls[geom.ZMinus],
		Outlet:    walls[geom.ZPlus],
		Particles: curved,
	}
	for _, w := range []geom.Wall{geom.XMinus, geom.XPlus, geom.YMinus, geom.YPlus} {
		c.surfaces.Walls = append(c.surfaces.Walls, walls[w]...)
	}
	c.opts.Logger.Debug("classified surfaces", "section", c.opts.Name,
		"inlet", len(c.surfaces.Inlet), "outlet", len(c.surfaces.Outlet),
		"walls", len(c.surfaces.Walls), "particles", len(curved))
	return c.surfaces, nil
}

// TouchingParticles returns the particle surfaces whose bounding box reaches
// the box bounds within tol.
func (c *Column) TouchingParticles(bounds kernel.DimTag, tol float64) ([]int, error) {
	outer, err := c.k.BoundingBox(bounds)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "%s: bounds", c.opts.Name)
	}
	var out []int
	for _, t := range c.surfaces.Particles {
		bb, err := c.k.BoundingBox(kernel.DimTag{Dim: 2, Tag: t})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernel, err, "%s: bounds of surface %d", c.opts.Name, t)
		}
		for _, a := range geom.Axes {
			if geom.Component(bb.Min, a) <= geom.Component(outer.Min, a)+tol ||
				geom.Component(bb.Max, a) >= geom.Component(outer.Max, a)-tol {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}
