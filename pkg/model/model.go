// Package model runs a complete build: it turns a configuration into the
// written column model.
//
// # Stages
//
//  1. Read: select and scale the beads of the packing file, optionally
//     moving the bed to the origin.
//  2. Container: the configured container, or a box around the bed.
//  3. Stack: add periodic ghosts when the column is periodic. The result is
//     cached under the bed contents, the container and the method.
//  4. Sections: with a linked container, an inlet below and an outlet above
//     the column are built from copies of the beads; then the column itself.
//     Each section is fragmented, classified and periodically paired.
//  5. Mesh: global sizes or per-bead threshold fields, then generation.
//  6. Write: the full model, then one file per section named
//     <stem>_<section><ext>.
//
// # Usage
//
//	runner := model.NewRunner(analytic.New(), cache, nil, logger)
//	result, err := runner.Execute(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Sections[0])
//
// A Runner drives one kernel session and must not be shared between
// goroutines. Every run works in a fresh kernel model.
package model

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/packmesh/pkg/bed"
	"github.com/matzehuels/packmesh/pkg/cache"
	"github.com/matzehuels/packmesh/pkg/column"
	"github.com/matzehuels/packmesh/pkg/config"
	"github.com/matzehuels/packmesh/pkg/container"
	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/kernel"
	"github.com/matzehuels/packmesh/pkg/kernel/analytic"
)

// Section names.
const (
	SectionInlet  = "inlet"
	SectionOutlet = "outlet"
	SectionColumn = "column"
)

// Runner executes builds against one kernel session.
type Runner struct {
	Kernel kernel.Kernel
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner.
// If k is nil, an analytic kernel is used.
// If keyer is nil, a DefaultKeyer is used. Either way the keyer is scoped to
// the kernel name, so a cache shared by several kernels keeps their stacking
// results apart.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(k kernel.Kernel, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if k == nil {
		k = analytic.New()
	}
	keyer = cache.NewScopedKeyer(keyer, k.Name()+":")
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Kernel: k,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Result contains the outputs of a run.
type Result struct {
	// RunID identifies the run in logs and names its kernel model.
	RunID string

	Bed       *bed.PackedBed
	Container *container.Container
	// Stack is nil when the column is not periodic.
	Stack *bed.StackReport

	// Sections summarizes each built section in build order.
	Sections []column.Summary

	// Files lists every written file.
	Files []string

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains run statistics.
type Stats struct {
	Beads       int
	Ghosts      int
	ReadTime    time.Duration
	StackTime   time.Duration
	SectionTime time.Duration
	MeshTime    time.Duration
	WriteTime   time.Duration
}

// CacheInfo tracks which stages hit the cache.
type CacheInfo struct {
	StackHit bool
}

// begin validates the configuration and assigns a run ID.
func (r *Runner) begin(cfg *config.Config) (*Result, *log.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	id := uuid.NewString()
	return &Result{RunID: id}, r.Logger.With("run", id[:8]), nil
}

// Execute runs every stage and writes the model.
func (r *Runner) Execute(ctx context.Context, cfg *config.Config) (*Result, error) {
	result, logger, err := r.begin(cfg)
	if err != nil {
		return nil, err
	}
	if err := r.prepare(ctx, cfg, result, logger); err != nil {
		return nil, err
	}

	sectionStart := time.Now()
	cols, err := r.buildSections(ctx, cfg, result, logger)
	if err != nil {
		return nil, err
	}
	result.Stats.SectionTime = time.Since(sectionStart)

	meshStart := time.Now()
	if err := r.mesh(cfg, result.Bed); err != nil {
		return nil, err
	}
	result.Stats.MeshTime = time.Since(meshStart)
	logger.Info("prepared mesh",
		"method", cfg.Mesh.SizeMethod,
		"dimension", cfg.Mesh.Generate,
		"duration", result.Stats.MeshTime)

	writeStart := time.Now()
	files, err := r.write(cfg.Output.Filename, cols)
	if err != nil {
		return nil, err
	}
	result.Files = append(result.Files, files...)
	result.Stats.WriteTime = time.Since(writeStart)
	logger.Info("wrote model", "files", len(files), "duration", result.Stats.WriteTime)
	return result, nil
}

// Stack runs the read, container and stacking stages only and writes the
// optional packing and provenance outputs.
func (r *Runner) Stack(ctx context.Context, cfg *config.Config) (*Result, error) {
	result, logger, err := r.begin(cfg)
	if err != nil {
		return nil, err
	}
	if err := r.prepare(ctx, cfg, result, logger); err != nil {
		return nil, err
	}
	return result, nil
}

// prepare runs the read, container and stacking stages.
func (r *Runner) prepare(ctx context.Context, cfg *config.Config, result *Result, logger *log.Logger) error {
	readStart := time.Now()
	b, err := bed.Read(cfg.PackedBed.PackingFile.Filename, cfg.Format(), cfg.BedParams())
	if err != nil {
		return err
	}
	b.Logger = logger
	if cfg.PackedBed.AutoTranslate {
		if err := b.MoveToCenter(nil); err != nil {
			return err
		}
	}
	if err := r.Kernel.AddModel("packmesh-" + result.RunID); err != nil {
		return errors.Wrap(errors.ErrCodeKernel, err, "add model")
	}
	result.Bed = b
	result.Stats.Beads = b.Len()
	result.Stats.ReadTime = time.Since(readStart)
	logger.Info("read packed bed",
		"beads", b.Len(),
		"rmin", b.Bounds().RMin,
		"rmax", b.Bounds().RMax,
		"duration", result.Stats.ReadTime)

	c, err := containerFor(r.Kernel, cfg, b)
	if err != nil {
		return err
	}
	result.Container = c
	logger.Debug("container", "container", c)

	if err := ctx.Err(); err != nil {
		return err
	}

	stackStart := time.Now()
	if len(cfg.ColumnAxes()) == 0 {
		if err := b.Generate(r.Kernel); err != nil {
			return err
		}
	} else {
		report, hit, err := r.stack(ctx, cfg, b, c, logger)
		if err != nil {
			return err
		}
		result.Stack = report
		result.Stats.Ghosts = report.GhostCount()
		result.CacheInfo.StackHit = hit
	}
	result.Stats.StackTime = time.Since(stackStart)

	files, err := writeStackOutputs(cfg, b, result.Stack)
	if err != nil {
		return err
	}
	result.Files = append(result.Files, files...)
	return nil
}

// containerFor builds the configured container. A box without a size spans
// the bed bounds; an explicit size is scaled by container.scaling_factor.
func containerFor(k kernel.Kernel, cfg *config.Config, b *bed.PackedBed) (*container.Container, error) {
	shape := container.Shape(cfg.Container.Shape)
	if shape == container.Box && len(cfg.Container.Size) == 0 {
		return container.Auto(b.Bounds().Box()), nil
	}
	c, err := container.New(shape, cfg.Container.Size)
	if err != nil {
		return nil, err
	}
	if f := cfg.Container.ScalingFactor; f != 1 {
		if err := c.Scale(k, f, r3.Vec{}); err != nil {
			return nil, err
		}
	}
	return c, nil
}
