// Package container describes the single convex volume that truncates a packed
// bed into one column section.
//
// Two shapes exist. A box is given by (x, y, z, dx, dy, dz): its origin
// corner and edge vectors. A cylinder is given by (x, y, z, dx, dy, dz, r):
// base center, axis and radius. Cylinders have minimal support: they can be
// generated and fragmented by a capable kernel, but never stacked against.
package container

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/kernel"
)

// Shape is the container geometry.
type Shape string

// Supported shapes.
const (
	Box      Shape = "box"
	Cylinder Shape = "cylinder"
)

// Container is one column section volume.
type Container struct {
	Shape  Shape
	Origin r3.Vec
	Size   r3.Vec // edge vector (box) or axis (cylinder)
	Radius float64

	entities []int
}

// New builds a container from its shape and size vector.
func New(shape Shape, size []float64) (*Container, error) {
	var want int
	switch shape {
	case Box:
		want = 6
	case Cylinder:
		want = 7
	default:
		return nil, errors.New(errors.ErrCodeUnsupportedShape, "container shape %q not implemented (want box or cylinder)", shape)
	}
	if len(size) != want {
		return nil, errors.New(errors.ErrCodeConfiguration, "container.size: %s needs %d values, got %d", shape, want, len(size))
	}
	c := &Container{
		Shape:  shape,
		Origin: r3.Vec{X: size[0], Y: size[1], Z: size[2]},
		Size:   r3.Vec{X: size[3], Y: size[4], Z: size[5]},
	}
	if shape == Cylinder {
		c.Radius = size[6]
		if !(c.Radius > 0) {
			return nil, errors.New(errors.ErrCodeConfiguration, "container.size: cylinder radius must be positive, got %g", c.Radius)
		}
		if r3.Norm(c.Size) == 0 {
			return nil, errors.New(errors.ErrCodeConfiguration, "container.size: cylinder axis is zero")
		}
		return c, nil
	}
	for _, a := range geom.Axes {
		if geom.Component(c.Size, a) == 0 {
			return nil, errors.New(errors.ErrCodeConfiguration, "container.size: box extent along %s is zero", a)
		}
	}
	return c, nil
}

// NewBox returns the box spanning bounds.
func NewBox(bounds r3.Box) *Container {
	return &Container{Shape: Box, Origin: bounds.Min, Size: geom.Size(bounds)}
}

// Auto returns a box enclosing a bed with the given bounds.
func Auto(bedBounds r3.Box) *Container { return NewBox(bedBounds) }

// SizeVector returns the size vector the container was built from.
func (c *Container) SizeVector() []float64 {
	v := []float64{c.Origin.X, c.Origin.Y, c.Origin.Z, c.Size.X, c.Size.Y, c.Size.Z}
	if c.Shape == Cylinder {
		v = append(v, c.Radius)
	}
	return v
}

// Extents returns the per-axis extent used as the periodic translation
// distance. For a cylinder the horizontal extents are its diameter.
func (c *Container) Extents() r3.Vec {
	if c.Shape == Cylinder {
		return r3.Vec{X: 2 * c.Radius, Y: 2 * c.Radius, Z: math.Abs(c.Size.Z)}
	}
	return r3.Vec{X: math.Abs(c.Size.X), Y: math.Abs(c.Size.Y), Z: math.Abs(c.Size.Z)}
}

// Bounds returns the axis-aligned bounds of the container.
func (c *Container) Bounds() r3.Box {
	b := geom.Extend(geom.Extend(geom.EmptyBox(), c.Origin), r3.Add(c.Origin, c.Size))
	if c.Shape != Cylinder {
		return b
	}
	l := r3.Norm(c.Size)
	var pad r3.Vec
	for _, a := range geom.Axes {
		cos := geom.Component(c.Size, a) / l
		pad = geom.Set(pad, a, c.Radius*math.Sqrt(math.Max(0, 1-cos*cos)))
	}
	return r3.Box{Min: r3.Sub(b.Min, pad), Max: r3.Add(b.Max, pad)}
}

// Volume returns the enclosed volume.
func (c *Container) Volume() float64 {
	if c.Shape == Cylinder {
		return math.Pi * c.Radius * c.Radius * r3.Norm(c.Size)
	}
	return math.Abs(c.Size.X * c.Size.Y * c.Size.Z)
}

// CrossSectionArea returns the area perpendicular to the z axis.
func (c *Container) CrossSectionArea() float64 {
	if c.Shape == Cylinder {
		return math.Pi * c.Radius * c.Radius
	}
	return math.Abs(c.Size.X * c.Size.Y)
}

// Generate creates the container volume in the kernel. Calling it again
// returns the existing entity.
func (c *Container) Generate(k kernel.Kernel) ([]kernel.DimTag, error) {
	if len(c.entities) > 0 {
		return c.Entities(), nil
	}
	var (
		tag int
		err error
	)
	switch c.Shape {
	case Box:
		tag, err = k.AddBox(c.Origin, c.Size)
	case Cylinder:
		tag, err = k.AddCylinder(c.Origin, c.Size, c.Radius)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "generate %s container", c.Shape)
	}
	c.entities = append(c.entities, tag)
	return c.Entities(), nil
}

// Entities returns the container volume, empty before Generate.
func (c *Container) Entities() []kernel.DimTag { return kernel.Volumes(c.entities...) }

// Forget drops the kernel identity, for example after the volume was consumed
// by a fragmentation.
func (c *Container) Forget() { c.entities = nil }

// Scale dilates the container by factor about center, in the kernel as well
// when it was generated.
func (c *Container) Scale(k kernel.Kernel, factor float64, center r3.Vec) error {
	c.Origin = r3.Add(center, r3.Scale(factor, r3.Sub(c.Origin, center)))
	c.Size = r3.Scale(factor, c.Size)
	c.Radius *= factor
	if len(c.entities) == 0 {
		return nil
	}
	if err := k.Dilate(c.Entities(), center, r3.Vec{X: factor, Y: factor, Z: factor}); err != nil {
		return errors.Wrap(errors.ErrCodeKernel, err, "scale container")
	}
	return nil
}

// Section returns a box with the horizontal footprint of c spanning
// [z, z+dz] along the column axis.
func (c *Container) Section(z, dz float64) (*Container, error) {
	if c.Shape != Box {
		return nil, errors.New(errors.ErrCodeUnsupportedShape, "linked sections need a box container, got %s", c.Shape)
	}
	return New(Box, []float64{c.Origin.X, c.Origin.Y, z, c.Size.X, c.Size.Y, dz})
}

func (c *Container) String() string {
	return fmt.Sprintf("%s%v", c.Shape, c.SizeVector())
}
