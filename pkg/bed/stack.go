package bed

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/matzehuels/packmesh/pkg/container"
	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/kernel"
)

// Method selects a stacking strategy.
type Method string

// Stacking strategies.
const (
	PlaneCut  Method = "planecut"
	VolumeCut Method = "volumecut"
	All       Method = "all"
)

// Methods lists every stacking strategy.
var Methods = []Method{PlaneCut, VolumeCut, All}

// ParseMethod validates a stacking strategy name.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", errors.New(errors.ErrCodeConfiguration, "container.stack_method: %q not in {planecut, volumecut, all}", s)
}

// DilationFactor scales each container face about its centroid before it
// scans the beads, so that faces fully transect beads near their edges.
const DilationFactor = 2

// Ghost is one periodic image created by stacking.
type Ghost struct {
	Source int         `json:"source"`          // index of the original bead
	Walls  []geom.Wall `json:"walls,omitempty"` // wall subset the image was made for
	Offset r3.Vec      `json:"offset"`
	Index  int         `json:"index"` // index of the ghost in the bed
}

// StackReport records what a stacking pass did.
type StackReport struct {
	Method Method `json:"method"`
	// Cuts maps the index of every cut bead to the walls cutting it, in
	// wall order.
	Cuts   map[int][]geom.Wall `json:"cuts"`
	Ghosts []Ghost             `json:"ghosts"`
}

// GhostCount returns the number of ghosts created.
func (r *StackReport) GhostCount() int { return len(r.Ghosts) }

// Stack dispatches to the strategy named by m. Plane and volume cuts scan
// every wall regardless of axes; All replicates along axes only. Stacking
// against a cylinder is unsupported.
func (b *PackedBed) Stack(k kernel.Kernel, c *container.Container, m Method, axes []geom.Axis) (*StackReport, error) {
	if c.Shape != container.Box {
		return nil, errors.New(errors.ErrCodeUnsupportedShape, "stacking requires a box container, got %s", c.Shape)
	}
	switch m {
	case PlaneCut:
		return b.StackByPlaneCuts(k, c)
	case VolumeCut:
		return b.StackByVolumeCuts(k, c)
	case All:
		return b.StackAll(k, axes, c.Extents())
	}
	return nil, errors.New(errors.ErrCodeConfiguration, "unknown stacking method %q", m)
}

// wallScan is a container face prepared for cut detection.
type wallScan struct {
	face   kernel.DimTag
	wall   geom.Wall
	center r3.Vec
}

// StackByPlaneCuts detects the beads cut by each container wall and adds one
// ghost per non-empty subset of the walls cutting each bead.
//
// Each face is dilated about its centroid and fragmented against the beads on
// its own, since fragmenting against all faces at once corrupts the normals
// the kernel reports. The scanning fragments are discarded. The cost is one
// fragmentation per face over the whole bed.
func (b *PackedBed) StackByPlaneCuts(k kernel.Kernel, c *container.Container) (*StackReport, error) {
	if c.Shape != container.Box {
		return nil, errors.New(errors.ErrCodeUnsupportedShape, "plane-cut stacking requires a box container, got %s", c.Shape)
	}
	if err := b.Generate(k); err != nil {
		return nil, err
	}
	box, err := scanBox(k, c)
	if err != nil {
		return nil, err
	}
	if err := k.Synchronize(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "synchronize")
	}
	faces, err := k.Boundary(box, false, false)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "container boundary")
	}

	// Query every face before the first dilation invalidates the model.
	scans := make([]wallScan, 0, len(faces))
	for _, f := range faces {
		w, err := wallOf(k, f)
		if err != nil {
			return nil, err
		}
		center, err := k.CenterOfMass(f)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernel, err, "centroid of %s", f)
		}
		scans = append(scans, wallScan{face: f, wall: w, center: center})
	}
	df := r3.Vec{X: DilationFactor, Y: DilationFactor, Z: DilationFactor}
	for _, p := range scans {
		if err := k.Dilate([]kernel.DimTag{p.face}, p.center, df); err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernel, err, "dilate %s", p.face)
		}
	}

	cuts := make(map[int][]geom.Wall)
	beads := b.DimTags()
	for _, p := range scans {
		res, err := k.Fragment(beads, []kernel.DimTag{p.face}, kernel.BooleanOptions{RemoveObject: false, RemoveTool: true})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernel, err, "scan wall %s", p.wall)
		}
		var n int
		for i, pieces := range res.Objects {
			if len(pieces) <= 1 {
				continue
			}
			idx, ok := b.beads.IndexOf(beads[i].Tag)
			if !ok {
				return nil, errors.New(errors.ErrCodeInternal, "fragment returned unknown bead %s", beads[i])
			}
			cuts[idx] = append(cuts[idx], p.wall)
			n++
			if err := k.Remove(pieces, true); err != nil {
				return nil, errors.Wrap(errors.ErrCodeKernel, err, "remove scan pieces")
			}
		}
		var flat []kernel.DimTag
		for _, e := range res.Out {
			if e.Dim == 2 {
				flat = append(flat, e)
			}
		}
		if err := k.Remove(flat, true); err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernel, err, "remove scan faces")
		}
		b.log().Debug("scanned wall", "wall", p.wall, "cut", n)
	}
	if err := k.Remove(box, true); err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "remove scan box")
	}
	return b.finishStack(k, PlaneCut, cuts, c.Extents())
}

// scanBox adds a throwaway copy of the container volume. Scanning deforms
// it, so the container itself is never generated here.
func scanBox(k kernel.Kernel, c *container.Container) ([]kernel.DimTag, error) {
	tag, err := k.AddBox(c.Origin, c.Size)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "generate scan box")
	}
	return kernel.Volumes(tag), nil
}

// wallOf classifies a planar container face by its normal.
func wallOf(k kernel.Kernel, f kernel.DimTag) (geom.Wall, error) {
	samples, err := k.SampleSurface(f.Tag)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeKernel, err, "normal of %s", f)
	}
	if len(samples) == 0 || samples[0].Curvature != 0 {
		return 0, errors.New(errors.ErrCodeClassification, "container face %s is not planar", f)
	}
	w, ok := geom.ClassifyNormal(samples[0].Normal)
	if !ok {
		return 0, errors.New(errors.ErrCodeClassification, "container face %s has non-cardinal normal %v", f, samples[0].Normal)
	}
	return w, nil
}

// StackByVolumeCuts cuts the beads by the container once and derives the
// cutting walls from the flat faces of the cut pieces, which face into the
// container. The cut pieces are removed afterwards.
func (b *PackedBed) StackByVolumeCuts(k kernel.Kernel, c *container.Container) (*StackReport, error) {
	if c.Shape != container.Box {
		return nil, errors.New(errors.ErrCodeUnsupportedShape, "volume-cut stacking requires a box container, got %s", c.Shape)
	}
	if err := b.Generate(k); err != nil {
		return nil, err
	}
	box, err := scanBox(k, c)
	if err != nil {
		return nil, err
	}
	beads := b.DimTags()
	res, err := k.Cut(beads, box, kernel.BooleanOptions{RemoveTool: true})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "cut beads by container")
	}
	if err := k.Synchronize(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "synchronize")
	}
	cuts := make(map[int][]geom.Wall)
	for i, pieces := range res.Objects {
		if len(pieces) == 0 {
			continue
		}
		idx, ok := b.beads.IndexOf(beads[i].Tag)
		if !ok {
			return nil, errors.New(errors.ErrCodeInternal, "cut returned unknown bead %s", beads[i])
		}
		var seen [6]bool
		for _, p := range pieces {
			faces, err := k.Boundary([]kernel.DimTag{p}, false, false)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeKernel, err, "boundary of %s", p)
			}
			for _, f := range faces {
				n, ok, err := flatNormal(k, f)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				if w, ok := geom.ClassifyNormal(r3.Scale(-1, n)); ok {
					seen[w] = true
				}
			}
		}
		for _, w := range geom.Walls {
			if seen[w] {
				cuts[idx] = append(cuts[idx], w)
			}
		}
	}
	if err := k.Remove(res.Out, true); err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "remove cut pieces")
	}
	return b.finishStack(k, VolumeCut, cuts, c.Extents())
}

// flatNormal returns the normal of f when every sample of it is uncurved and
// shares one normal.
func flatNormal(k kernel.Kernel, f kernel.DimTag) (r3.Vec, bool, error) {
	samples, err := k.SampleSurface(f.Tag)
	if err != nil {
		return r3.Vec{}, false, errors.Wrap(errors.ErrCodeKernel, err, "normal of %s", f)
	}
	if len(samples) == 0 {
		return r3.Vec{}, false, nil
	}
	n := samples[0].Normal
	for _, s := range samples {
		if s.Curvature != 0 || s.Normal != n {
			return r3.Vec{}, false, nil
		}
	}
	return n, true, nil
}

// finishStack creates the ghosts for the detected cuts.
func (b *PackedBed) finishStack(k kernel.Kernel, m Method, cuts map[int][]geom.Wall, ext r3.Vec) (*StackReport, error) {
	report := &StackReport{Method: m, Cuts: cuts}
	sources := make([]int, 0, len(cuts))
	for i := range cuts {
		sources = append(sources, i)
	}
	sort.Ints(sources)
	for _, src := range sources {
		walls := cuts[src]
		sort.Slice(walls, func(i, j int) bool { return walls[i] < walls[j] })
		for _, subset := range WallSubsets(walls) {
			off := geom.Mul(r3.Scale(-1, geom.SumNormals(subset)), ext)
			g, err := b.addGhost(k, src, off)
			if err != nil {
				return nil, err
			}
			g.Walls = subset
			report.Ghosts = append(report.Ghosts, g)
		}
	}
	b.UpdateBounds()
	if err := k.Synchronize(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "synchronize")
	}
	b.log().Info("stacked beads", "method", m, "cut", len(cuts), "ghosts", len(report.Ghosts))
	return report, nil
}

func (b *PackedBed) addGhost(k kernel.Kernel, src int, off r3.Vec) (Ghost, error) {
	idx := b.beads.Append(b.beads.At(src).Translated(off))
	if _, err := b.beads.Generate(k, idx); err != nil {
		return Ghost{}, errors.Wrap(errors.ErrCodeKernel, err, "generate ghost of bead %d", src)
	}
	return Ghost{Source: src, Offset: off, Index: idx}, nil
}

// WallSubsets returns every non-empty subset of walls, smallest first.
func WallSubsets(walls []geom.Wall) [][]geom.Wall {
	var out [][]geom.Wall
	for size := 1; size <= len(walls); size++ {
		for _, idx := range combin.Combinations(len(walls), size) {
			s := make([]geom.Wall, size)
			for i, j := range idx {
				s[i] = walls[j]
			}
			out = append(out, s)
		}
	}
	return out
}

// StackAll replicates every original bead at each offset in {-1,0,1}^axes
// scaled by the extents, skipping the zero offset.
func (b *PackedBed) StackAll(k kernel.Kernel, axes []geom.Axis, ext r3.Vec) (*StackReport, error) {
	if err := b.Generate(k); err != nil {
		return nil, err
	}
	report := &StackReport{Method: All, Cuts: map[int][]geom.Wall{}}
	n := b.beads.Len()
	for _, steps := range offsets(len(axes)) {
		var off r3.Vec
		for i, a := range axes {
			off = geom.Set(off, a, float64(steps[i])*geom.Component(ext, a))
		}
		for src := 0; src < n; src++ {
			g, err := b.addGhost(k, src, off)
			if err != nil {
				return nil, err
			}
			report.Ghosts = append(report.Ghosts, g)
		}
	}
	b.UpdateBounds()
	if err := k.Synchronize(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "synchronize")
	}
	b.log().Info("stacked beads", "method", All, "axes", geom.FormatAxes(axes), "ghosts", len(report.Ghosts))
	return report, nil
}

// offsets enumerates {-1,0,1}^n without the all-zero tuple.
func offsets(n int) [][]int {
	if n == 0 {
		return nil
	}
	var out [][]int
	for _, idx := range combin.Cartesian([]int{3, 3, 3}[:n]) {
		steps := make([]int, n)
		zero := true
		for i, v := range idx {
			steps[i] = v - 1
			zero = zero && steps[i] == 0
		}
		if !zero {
			out = append(out, steps)
		}
	}
	return out
}

// ApplyGhosts re-creates the ghosts of a report computed earlier for the same
// bed, without querying the kernel.
func (b *PackedBed) ApplyGhosts(k kernel.Kernel, r *StackReport) error {
	if err := b.Generate(k); err != nil {
		return err
	}
	for _, g := range r.Ghosts {
		if g.Source < 0 || g.Source >= b.beads.Len() {
			return errors.New(errors.ErrCodeInternal, "ghost source %d out of range", g.Source)
		}
		got, err := b.addGhost(k, g.Source, g.Offset)
		if err != nil {
			return err
		}
		if got.Index != g.Index {
			return errors.New(errors.ErrCodeInternal, "stack report does not match the bed: ghost %d landed at %d", g.Index, got.Index)
		}
	}
	b.UpdateBounds()
	if err := k.Synchronize(); err != nil {
		return errors.Wrap(errors.ErrCodeKernel, err, "synchronize")
	}
	b.log().Info("applied cached stacking", "method", r.Method, "ghosts", len(r.Ghosts))
	return nil
}

func (g Ghost) String() string {
	return fmt.Sprintf("ghost %d of %d via %v", g.Index, g.Source, g.Walls)
}
