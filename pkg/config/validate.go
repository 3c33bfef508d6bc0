package config

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/packmesh/pkg/bed"
	"github.com/matzehuels/packmesh/pkg/container"
	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/packing"
)

// Validate checks every key. The first violation is returned as a
// CONFIGURATION error, or UNSUPPORTED_SHAPE for an unknown container shape
// or a periodic cylinder.
func (c *Config) Validate() error {
	pb := c.PackedBed
	if pb.PackingFile.Filename == "" {
		return configErr("packedbed.packing_file.filename is empty")
	}
	if _, err := packing.ParseFormat(pb.PackingFile.DataFormat); err != nil {
		return errors.Wrap(errors.ErrCodeConfiguration, err, "packedbed.packing_file.dataformat")
	}
	if err := c.BedParams().Validate(); err != nil {
		return err
	}

	ct := c.Container
	shape := container.Shape(ct.Shape)
	if shape != container.Box && shape != container.Cylinder {
		return errors.New(errors.ErrCodeUnsupportedShape, "container.shape %q not implemented (want box or cylinder)", ct.Shape)
	}
	if len(ct.Size) > 0 || shape == container.Cylinder {
		if _, err := container.New(shape, ct.Size); err != nil {
			return err
		}
	}
	if !(ct.ScalingFactor > 0) {
		return configErr("container.scaling_factor must be positive, got %g", ct.ScalingFactor)
	}
	axes, err := geom.ParseAxes(ct.Periodicity)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfiguration, err, "container.periodicity")
	}
	if _, err := bed.ParseMethod(ct.StackMethod); err != nil {
		return err
	}
	if shape == container.Cylinder && (len(axes) > 0 || ct.Linked) {
		return errors.New(errors.ErrCodeUnsupportedShape, "container.periodicity and container.linked need a box container")
	}
	if ct.Linked {
		if !(ct.InletLength > 0) || !(ct.OutletLength > 0) {
			return configErr("container.linked needs positive container.inlet_length and container.outlet_length, got %g and %g", ct.InletLength, ct.OutletLength)
		}
	}

	m := c.Mesh
	if !(m.Size > 0) {
		return configErr("mesh.size must be positive, got %g", m.Size)
	}
	if m.SizeMethod != SizeGlobal && m.SizeMethod != SizeField {
		return configErr("mesh.size_method %q not in {global, field}", m.SizeMethod)
	}
	if m.Generate < 0 || m.Generate > 3 {
		return configErr("mesh.generate %d not in 0..3", m.Generate)
	}
	th := m.Field.Threshold
	if !(th.SizeIn > 0) || !(th.SizeOut > 0) {
		return configErr("mesh.field.threshold sizes must be positive, got %g and %g", th.SizeIn, th.SizeOut)
	}
	if !(th.RadMinFactor >= 0) || th.RadMaxFactor < th.RadMinFactor {
		return configErr("mesh.field.threshold needs 0 <= rad_min_factor <= rad_max_factor, got %g and %g", th.RadMinFactor, th.RadMaxFactor)
	}

	if c.Output.Filename == "" {
		return configErr("output.filename is empty")
	}
	if p := c.Output.Provenance; p != "" && !slices.Contains([]string{".dot", ".svg"}, strings.ToLower(filepath.Ext(p))) {
		return configErr("output.provenance %q must end in .dot or .svg", p)
	}
	return nil
}

func configErr(format string, args ...any) error {
	return errors.New(errors.ErrCodeConfiguration, format, args...)
}

// BedParams converts the packedbed section.
func (c *Config) BedParams() bed.Params {
	p := bed.DefaultParams()
	p.Scaling = c.PackedBed.ScalingFactor
	p.ParticleScaling = c.PackedBed.Particles.ScalingFactor
	if c.PackedBed.ZBot != nil {
		p.ZBot = *c.PackedBed.ZBot
	}
	if c.PackedBed.ZTop != nil {
		p.ZTop = *c.PackedBed.ZTop
	}
	if c.PackedBed.NBeads >= 0 {
		p.Count = c.PackedBed.NBeads
	}
	return p
}

// Format returns the packing data format. It panics on a configuration
// that did not pass Validate.
func (c *Config) Format() packing.Format {
	return packing.MustParseFormat(c.PackedBed.PackingFile.DataFormat)
}

// Axes returns the configured periodic axes.
func (c *Config) Axes() []geom.Axis {
	axes, _ := geom.ParseAxes(c.Container.Periodicity)
	return axes
}

// ColumnAxes are the periodic axes of the main column. A linked column is
// always periodic along z.
func (c *Config) ColumnAxes() []geom.Axis {
	axes := c.Axes()
	if c.Container.Linked && !slices.Contains(axes, geom.Z) {
		axes = append(axes, geom.Z)
	}
	return axes
}

// SectionAxes are the periodic axes of the linked inlet and outlet
// sections, which are never periodic along z.
func (c *Config) SectionAxes() []geom.Axis {
	return slices.DeleteFunc(c.Axes(), func(a geom.Axis) bool { return a == geom.Z })
}

// StackMethod returns the validated stacking method.
func (c *Config) StackMethod() bed.Method {
	return bed.Method(c.Container.StackMethod)
}
