// Package column builds one meshable column section from a packed bed and its
// container.
//
// A section is derived from a single fragmentation of the (stacked) beads
// against the container. The retained volumes are the fragments the kernel
// attributes to the container tool: exactly one interstitial volume and one
// volume per particle piece. Their boundary surfaces are classified into the
// inlet (z-), outlet (z+), side walls and curved particle surfaces, the
// opposite wall sets are paired for periodicity, and fixed physical groups
// are assigned before writing.
//
// Every query is preceded by a kernel synchronization, and every mutation
// leaves the kernel unsynchronized.
package column

import (
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/kernel"
)

// Physical group tags. They never depend on the geometry.
const (
	GroupInlet            = 1
	GroupOutlet           = 2
	GroupWalls            = 3
	GroupParticleSurfaces = 4
	GroupInterstitial     = 5
	GroupParticleVolumes  = 6
)

// DefaultPairingTolerance is the absolute coordinate tolerance of periodic
// surface matching.
const DefaultPairingTolerance = 1e-6

// Group is one physical group definition.
type Group struct {
	Dim  int
	Tag  int
	Name string
}

// Groups lists the physical groups in assignment order.
var Groups = []Group{
	{2, GroupInlet, "inlet"},
	{2, GroupOutlet, "outlet"},
	{2, GroupWalls, "walls"},
	{2, GroupParticleSurfaces, "particles"},
	{3, GroupInterstitial, "interstitial"},
	{3, GroupParticleVolumes, "particles"},
}

// Volumes partitions the retained 3D entities.
type Volumes struct {
	Interstitial int
	Particles    []int
}

// Surfaces are the classified 2D entities of a section.
type Surfaces struct {
	Inlet     []int
	Outlet    []int
	Walls     []int
	Particles []int
}

// FragmentOptions control the two-step fragmentation. Copy flags fragment
// copies instead of the inputs; Remove flags delete the inputs consumed by
// the final fragmentation; CleanFragments removes every output fragment the
// container does not own.
type FragmentOptions struct {
	CopyObject     bool
	CopyTool       bool
	RemoveObject   bool
	RemoveTool     bool
	CleanFragments bool
}

// Options configure a column.
type Options struct {
	// Name identifies the section in logs and output file names.
	Name string
	// Tolerance bounds the coordinate mismatch of paired surfaces.
	Tolerance float64
	// DiagnosticPrefix is prepended to diagnostic dumps of failed pairings.
	// Empty disables dumping.
	DiagnosticPrefix string
	Logger           *log.Logger
}

// Column is one fragmented section.
type Column struct {
	opts Options
	k    kernel.Kernel

	entities []kernel.DimTag
	volumes  Volumes
	walls    [6][]int
	surfaces Surfaces
	pairs    map[geom.Axis]int
}

// New returns an empty column bound to k.
func New(k kernel.Kernel, opts Options) *Column {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultPairingTolerance
	}
	if opts.Name == "" {
		opts.Name = "column"
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Column{opts: opts, k: k, pairs: make(map[geom.Axis]int)}
}

// Name returns the section name.
func (c *Column) Name() string { return c.opts.Name }

// Entities returns the retained volumes in tool-entry order.
func (c *Column) Entities() []kernel.DimTag { return slices.Clone(c.entities) }

// Volumes returns the volume partition from SeparateVolumes.
func (c *Column) Volumes() Volumes { return c.volumes }

// Surfaces returns the classification from SeparateBoundingSurfaces.
func (c *Column) Surfaces() Surfaces { return c.surfaces }

// Wall returns the surfaces bucketed under w.
func (c *Column) Wall(w geom.Wall) []int { return slices.Clone(c.walls[w]) }

// Fragment runs the two-step protocol: the objects are intersected with the
// tool, consuming the objects and keeping the tool, and the intersection is
// then fragmented against the tool. The retained entities are the tool entry
// of the second fragmentation.
func (c *Column) Fragment(object, tool []kernel.DimTag, opts FragmentOptions) ([]kernel.DimTag, error) {
	var err error
	if opts.CopyObject {
		if object, err = c.k.Copy(object); err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernel, err, "%s: copy objects", c.opts.Name)
		}
	}
	if opts.CopyTool {
		if tool, err = c.k.Copy(tool); err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernel, err, "%s: copy tool", c.opts.Name)
		}
	}
	inter, err := c.k.Intersect(object, tool, kernel.BooleanOptions{RemoveObject: true, RemoveTool: false})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "%s: intersect beads with container", c.opts.Name)
	}
	res, err := c.k.Fragment(inter.Out, tool, kernel.BooleanOptions{RemoveObject: opts.RemoveObject, RemoveTool: opts.RemoveTool})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "%s: fragment beads against container", c.opts.Name)
	}
	if len(res.Tools) != 1 {
		return nil, errors.New(errors.ErrCodeGeometryProvenance, "%s: fragmentation returned %d tool entries, want 1", c.opts.Name, len(res.Tools))
	}
	c.entities = slices.Clone(res.Tools[0])
	c.volumes = Volumes{}

	if opts.CleanFragments {
		var drop []kernel.DimTag
		for _, e := range res.Out {
			if !slices.Contains(c.entities, e) {
				drop = append(drop, e)
			}
		}
		if err := c.k.Remove(drop, true); err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernel, err, "%s: clean fragments", c.opts.Name)
		}
	}
	if err := c.identify(res); err != nil {
		return nil, err
	}
	c.opts.Logger.Debug("fragmented section", "section", c.opts.Name, "objects", len(object), "pieces", len(inter.Out), "retained", len(c.entities))
	return c.Entities(), nil
}

// identify finds the interstitial volume: the only tool fragment the kernel
// attributes to no object.
func (c *Column) identify(res kernel.BooleanResult) error {
	fromObjects := make(map[kernel.DimTag]bool)
	for _, e := range res.ObjectChildren() {
		fromObjects[e] = true
	}
	var bulk []kernel.DimTag
	for _, e := range c.entities {
		if e.Dim == 3 && !fromObjects[e] {
			bulk = append(bulk, e)
		}
	}
	if len(bulk) != 1 {
		return errors.New(errors.ErrCodeGeometryProvenance,
			"%s: fragmentation produced %d container-only volumes %v, want exactly 1", c.opts.Name, len(bulk), bulk)
	}
	c.volumes.Interstitial = bulk[0].Tag
	return nil
}

// SeparateVolumes partitions the retained volumes into the interstitial
// volume and the particle volumes. Disjoint pieces of one bead stay separate.
func (c *Column) SeparateVolumes() (Volumes, error) {
	if c.volumes.Interstitial == 0 {
		return Volumes{}, errors.New(errors.ErrCodeGeometryProvenance, "%s: no interstitial volume; call Fragment first", c.opts.Name)
	}
	c.volumes.Particles = nil
	for _, e := range c.entities {
		if e.Dim == 3 && e.Tag != c.volumes.Interstitial {
			c.volumes.Particles = append(c.volumes.Particles, e.Tag)
		}
	}
	c.opts.Logger.Debug("separated volumes", "section", c.opts.Name, "interstitial", c.volumes.Interstitial, "particles", len(c.volumes.Particles))
	return c.volumes, nil
}

// SetPhysicalGroups replaces the kernel's groups with the fixed section
// groups.
func (c *Column) SetPhysicalGroups() error {
	if err := c.k.RemovePhysicalGroups(); err != nil {
		return errors.Wrap(errors.ErrCodeKernel, err, "remove physical groups")
	}
	members := map[int][]int{
		GroupInlet:            c.surfaces.Inlet,
		GroupOutlet:           c.surfaces.Outlet,
		GroupWalls:            c.surfaces.Walls,
		GroupParticleSurfaces: c.surfaces.Particles,
		GroupInterstitial:     {c.volumes.Interstitial},
		GroupParticleVolumes:  c.volumes.Particles,
	}
	for _, g := range Groups {
		if err := c.k.AddPhysicalGroup(g.Dim, members[g.Tag], g.Tag, g.Name); err != nil {
			return errors.Wrap(errors.ErrCodeKernel, err, "physical group %s", g.Name)
		}
	}
	return nil
}

// Write assigns the physical groups and writes the section.
func (c *Column) Write(path string) error {
	if err := c.SetPhysicalGroups(); err != nil {
		return err
	}
	if err := c.k.Write(path); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	c.opts.Logger.Info("wrote section", "section", c.opts.Name, "path", path)
	return nil
}

// Summary counts the entities of a section.
type Summary struct {
	Name         string         `json:"name"`
	Interstitial int            `json:"interstitial"`
	Particles    int            `json:"particle_volumes"`
	Surfaces     map[string]int `json:"surfaces"`
	Periodic     map[string]int `json:"periodic_pairs,omitempty"`
}

// Summary returns the entity counts.
func (c *Column) Summary() Summary {
	s := Summary{
		Name:         c.opts.Name,
		Interstitial: c.volumes.Interstitial,
		Particles:    len(c.volumes.Particles),
		Surfaces: map[string]int{
			"inlet":     len(c.surfaces.Inlet),
			"outlet":    len(c.surfaces.Outlet),
			"walls":     len(c.surfaces.Walls),
			"particles": len(c.surfaces.Particles),
		},
	}
	if len(c.pairs) > 0 {
		s.Periodic = make(map[string]int, len(c.pairs))
		for a, n := range c.pairs {
			s.Periodic[a.String()] = n
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: 1 interstitial, %d particle volumes, surfaces inlet=%d outlet=%d walls=%d particles=%d",
		s.Name, s.Particles, s.Surfaces["inlet"], s.Surfaces["outlet"], s.Surfaces["walls"], s.Surfaces["particles"])
}
