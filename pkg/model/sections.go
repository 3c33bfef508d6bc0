package model

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/packmesh/pkg/bed"
	"github.com/matzehuels/packmesh/pkg/column"
	"github.com/matzehuels/packmesh/pkg/config"
	"github.com/matzehuels/packmesh/pkg/container"
	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/kernel"
	"github.com/matzehuels/packmesh/pkg/observability"
)

// section is one column section to build.
type section struct {
	name string
	c    *container.Container
	// copy fragments copies of the beads, leaving them for later sections.
	copy bool
	axes []geom.Axis
}

// sections lists the sections in build order. Linked inlet and outlet come
// first since they consume copies of the beads.
func sections(cfg *config.Config, c *container.Container) ([]section, error) {
	var out []section
	if cfg.Container.Linked {
		ct := cfg.Container
		inlet, err := c.Section(c.Origin.Z-ct.InletLength, ct.InletLength)
		if err != nil {
			return nil, err
		}
		outlet, err := c.Section(c.Origin.Z+c.Size.Z, ct.OutletLength)
		if err != nil {
			return nil, err
		}
		out = append(out,
			section{name: SectionInlet, c: inlet, copy: true, axes: cfg.SectionAxes()},
			section{name: SectionOutlet, c: outlet, copy: true, axes: cfg.SectionAxes()},
		)
	}
	return append(out, section{name: SectionColumn, c: c, axes: cfg.ColumnAxes()}), nil
}

func (r *Runner) buildSections(ctx context.Context, cfg *config.Config, result *Result, logger *log.Logger) ([]*column.Column, error) {
	secs, err := sections(cfg, result.Container)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(cfg.Output.Filename, filepath.Ext(cfg.Output.Filename))
	var cols []*column.Column
	for _, s := range secs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		col, err := r.buildSection(ctx, s, result.Bed, prefix, logger)
		if err != nil {
			return nil, err
		}
		sum := col.Summary()
		result.Sections = append(result.Sections, sum)
		logger.Info("built section", "section", s.name, "particles", sum.Particles,
			"surfaces", sum.Surfaces, "periodic", geom.FormatAxes(s.axes))
		cols = append(cols, col)
	}
	return cols, nil
}

// buildSection fragments the beads against the section container, then
// classifies and pairs the retained geometry.
func (r *Runner) buildSection(ctx context.Context, s section, b *bed.PackedBed, prefix string, logger *log.Logger) (*column.Column, error) {
	tool, err := s.c.Generate(r.Kernel)
	if err != nil {
		return nil, err
	}
	col := column.New(r.Kernel, column.Options{
		Name:             s.name,
		DiagnosticPrefix: prefix + "_" + s.name,
		Logger:           logger,
	})

	start := time.Now()
	retained, err := col.Fragment(b.DimTags(), tool, column.FragmentOptions{
		CopyObject:     s.copy,
		RemoveObject:   true,
		RemoveTool:     true,
		CleanFragments: true,
	})
	if err == nil {
		_, err = col.SeparateVolumes()
	}
	observability.Stage().OnFragmentComplete(ctx, s.name, len(retained), time.Since(start), err)
	s.c.Forget()
	if err != nil {
		logger.Error("fragmentation failed", "section", s.name, "error", err)
		return nil, err
	}
	if _, err := col.SeparateBoundingSurfaces(); err != nil {
		logger.Error("surface classification failed", "section", s.name, "error", err)
		return nil, err
	}

	err = col.PairWalls(s.axes, s.c.Extents())
	pairs := 0
	for _, n := range col.Pairs() {
		pairs += n
	}
	observability.Stage().OnPairComplete(ctx, s.name, pairs, err)
	if err != nil {
		return nil, err
	}
	return col, nil
}

// mesh applies the configured sizing and generates the mesh.
func (r *Runner) mesh(cfg *config.Config, b *bed.PackedBed) error {
	k := r.Kernel
	if err := k.Synchronize(); err != nil {
		return errors.Wrap(errors.ErrCodeKernel, err, "synchronize")
	}
	switch cfg.Mesh.SizeMethod {
	case config.SizeField:
		th := cfg.Mesh.Field.Threshold
		fields, err := b.SizeFields(k, th.SizeIn, th.SizeOut, th.RadMinFactor, th.RadMaxFactor)
		if err != nil {
			return err
		}
		if err := k.SetBackgroundMin(fields); err != nil {
			return errors.Wrap(errors.ErrCodeKernel, err, "background field")
		}
		if err := k.Synchronize(); err != nil {
			return errors.Wrap(errors.ErrCodeKernel, err, "synchronize")
		}
	default:
		var all []kernel.DimTag
		for dim := 0; dim <= 3; dim++ {
			es, err := k.Entities(dim)
			if err != nil {
				return errors.Wrap(errors.ErrCodeKernel, err, "entities of dimension %d", dim)
			}
			all = append(all, es...)
		}
		if err := k.SetMeshSize(all, cfg.Mesh.Size); err != nil {
			return errors.Wrap(errors.ErrCodeKernel, err, "mesh size")
		}
	}
	if err := k.GenerateMesh(cfg.Mesh.Generate); err != nil {
		return errors.Wrap(errors.ErrCodeKernel, err, "generate mesh")
	}
	return nil
}

// write writes the full model without groups, then each section with its
// physical groups.
func (r *Runner) write(path string, cols []*column.Column) ([]string, error) {
	if err := r.Kernel.RemovePhysicalGroups(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "remove physical groups")
	}
	if err := r.Kernel.Write(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	files := []string{path}
	for _, col := range cols {
		p := SectionPath(path, col.Name())
		if err := col.Write(p); err != nil {
			return nil, err
		}
		files = append(files, p)
	}
	return files, nil
}

// SectionPath returns the file a section is written to: path with
// "_<section>" inserted before the extension.
func SectionPath(path, name string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + name + ext
}
