// Package bed implements the packed bed: the bead collection read from a
// packing file, its preprocessing (selection, scaling, recentering) and the
// periodic stacking algorithms that add ghost beads across container walls.
//
// # Stacking
//
// A bead cut by k walls of a box container gets one ghost per non-empty
// subset of those walls, 2^k-1 in total. The ghost for subset S is the bead
// translated by -Σ_{w∈S} n_w ⊙ extent, where n_w is the outward normal of
// wall w. Three strategies exist:
//
//   - [PackedBed.StackByPlaneCuts] scans each dilated container face with a
//     separate fragmentation and records which beads it splits.
//   - [PackedBed.StackByVolumeCuts] cuts the beads by the container once and
//     reads the walls from the flat faces of the cut pieces. A bead cut by a
//     flat wall and, in a second clean cut, by the extension of another wall
//     is not detected; prefer plane cuts when corners matter.
//   - [PackedBed.StackAll] replicates the whole bed at every {-1,0,1} offset
//     along the periodic axes. Slow, and the ghosts carry no size fields.
package bed

import (
	"io"
	"math"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/packmesh/pkg/bead"
	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/kernel"
	"github.com/matzehuels/packmesh/pkg/packing"
)

// Params control how packing records become beads.
type Params struct {
	// Scaling multiplies every coordinate and radius.
	Scaling float64
	// ParticleScaling additionally multiplies radii.
	ParticleScaling float64
	// ZBot and ZTop bound the z window in model units. They apply only when
	// Count is negative.
	ZBot, ZTop float64
	// Count keeps the first Count records when non-negative.
	Count int
}

// DefaultParams keeps every record unscaled.
func DefaultParams() Params {
	return Params{Scaling: 1, ParticleScaling: 1, ZBot: math.Inf(-1), ZTop: math.Inf(1), Count: -1}
}

// Validate checks the scaling factors.
func (p Params) Validate() error {
	if !(p.Scaling > 0) {
		return errors.New(errors.ErrCodeConfiguration, "packedbed.scaling_factor must be positive, got %g", p.Scaling)
	}
	if !(p.ParticleScaling > 0) {
		return errors.New(errors.ErrCodeConfiguration, "packedbed.particles.scaling_factor must be positive, got %g", p.ParticleScaling)
	}
	if p.Count < 0 && p.ZBot > p.ZTop {
		return errors.New(errors.ErrCodeConfiguration, "packedbed.zbot (%g) is above packedbed.ztop (%g)", p.ZBot, p.ZTop)
	}
	return nil
}

// Bounds are the aggregate extrema of a bed, taken from bead centers ± radius.
type Bounds struct {
	Min, Max         r3.Vec
	RMin, RMax, RAvg float64
}

// Box returns the bounds as a box.
func (b Bounds) Box() r3.Box { return r3.Box{Min: b.Min, Max: b.Max} }

// PackedBed owns the beads of one packing.
type PackedBed struct {
	Params Params
	Logger *log.Logger

	beads  *bead.Set
	bounds Bounds
}

// Read reads the packing file at path and selects beads per p. An
// unreadable file or an empty selection is a configuration error.
func Read(path string, f packing.Format, p Params) (*PackedBed, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	recs, err := packing.ReadFile(path, f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "packedbed.packing_file %s is unreadable", path)
	}
	b, err := FromRecords(recs, p)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "packedbed.packing_file %s", path)
	}
	return b, nil
}

// FromRecords selects and scales records. With a negative Count, records
// whose raw z lies in [ZBot, ZTop]/Scaling are kept; otherwise the first
// Count records are kept regardless of position. Diameters are halved.
func FromRecords(recs []packing.Record, p Params) (*PackedBed, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var beads []bead.Bead
	for i, rec := range recs {
		if p.Count >= 0 {
			if i == p.Count {
				break
			}
		} else if rec.Z < p.ZBot/p.Scaling || rec.Z > p.ZTop/p.Scaling {
			continue
		}
		beads = append(beads, bead.New(
			rec.X*p.Scaling,
			rec.Y*p.Scaling,
			rec.Z*p.Scaling,
			rec.D/2*p.Scaling*p.ParticleScaling,
		))
	}
	b, err := FromBeads(beads)
	if err != nil {
		return nil, err
	}
	b.Params = p
	return b, nil
}

// FromBeads builds a bed from bead values. At least one bead with a positive
// radius is required.
func FromBeads(beads []bead.Bead) (*PackedBed, error) {
	if len(beads) == 0 {
		return nil, errors.New(errors.ErrCodeConfiguration, "packed bed is empty after selection")
	}
	for i, b := range beads {
		if err := b.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "bead %d", i)
		}
	}
	b := &PackedBed{Params: DefaultParams(), beads: bead.NewSet(beads)}
	b.UpdateBounds()
	return b, nil
}

func (b *PackedBed) log() *log.Logger {
	if b.Logger == nil {
		b.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return b.Logger
}

// Beads returns the bead set, ghosts included.
func (b *PackedBed) Beads() *bead.Set { return b.beads }

// Len returns the number of beads, ghosts included.
func (b *PackedBed) Len() int { return b.beads.Len() }

// Bounds returns the cached aggregate bounds.
func (b *PackedBed) Bounds() Bounds { return b.bounds }

// UpdateBounds recomputes the cached bounds.
func (b *PackedBed) UpdateBounds() {
	box := geom.EmptyBox()
	bounds := Bounds{RMin: math.Inf(1), RMax: math.Inf(-1)}
	var sum float64
	for _, bd := range b.beads.All() {
		box = geom.Union(box, bd.Bounds())
		bounds.RMin = math.Min(bounds.RMin, bd.R)
		bounds.RMax = math.Max(bounds.RMax, bd.R)
		sum += bd.R
	}
	bounds.Min, bounds.Max = box.Min, box.Max
	bounds.RAvg = sum / float64(b.beads.Len())
	b.bounds = bounds
}

// R returns the larger horizontal half-extent of the bed.
func (b *PackedBed) R() float64 {
	s := geom.Size(b.bounds.Box())
	return math.Max(s.X/2, s.Y/2)
}

// Height returns the vertical extent of the bed.
func (b *PackedBed) Height() float64 { return b.bounds.Max.Z - b.bounds.Min.Z }

// CylinderVolume returns the volume of the cylinder of radius R and height
// Height enclosing the bed.
func (b *PackedBed) CylinderVolume() float64 {
	r := b.R()
	return math.Pi * r * r * b.Height()
}

// BeadVolume returns the summed volume of all beads.
func (b *PackedBed) BeadVolume() float64 {
	var v float64
	for _, bd := range b.beads.All() {
		v += bd.Volume()
	}
	return v
}

// MoveToCenter translates the bed so that the center of its horizontal
// bounds is on the z axis and its lowest point is at z=0. Generated beads are
// moved in k too; k may be nil when nothing was generated.
func (b *PackedBed) MoveToCenter(k kernel.Kernel) error {
	b.UpdateBounds()
	c := geom.Center(b.bounds.Box())
	d := r3.Vec{X: -c.X, Y: -c.Y, Z: -b.bounds.Min.Z}
	if err := b.beads.TranslateAll(k, d); err != nil {
		return errors.Wrap(errors.ErrCodeKernel, err, "move bed to center")
	}
	b.UpdateBounds()
	b.log().Debug("moved bed to center", "offset", d)
	return nil
}

// Generate instantiates every bead in k.
func (b *PackedBed) Generate(k kernel.Kernel) error {
	if err := b.beads.GenerateAll(k); err != nil {
		return errors.Wrap(errors.ErrCodeKernel, err, "generate beads")
	}
	return nil
}

// DimTags returns the kernel entities of the generated beads.
func (b *PackedBed) DimTags() []kernel.DimTag { return b.beads.DimTags() }

// Copy duplicates the generated beads in k and returns the copies, leaving
// the bed untouched. Linked sections fragment copies so the column keeps the
// originals.
func (b *PackedBed) Copy(k kernel.Kernel) ([]kernel.DimTag, error) {
	out, err := k.Copy(b.DimTags())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernel, err, "copy beads")
	}
	return out, nil
}

// Records returns the beads as packing records. With raw set, the scaling
// applied on read is undone.
func (b *PackedBed) Records(raw bool) []packing.Record {
	s, ps := 1.0, 1.0
	if raw {
		s, ps = b.Params.Scaling, b.Params.ParticleScaling
	}
	out := make([]packing.Record, 0, b.beads.Len())
	for _, bd := range b.beads.All() {
		out = append(out, packing.Record{
			X: bd.Center.X / s,
			Y: bd.Center.Y / s,
			Z: bd.Center.Z / s,
			D: 2 * bd.R / (s * ps),
		})
	}
	return out
}

// WritePacking writes the beads, ghosts included, as a packing file.
func (b *PackedBed) WritePacking(path string, f packing.Format, raw bool) error {
	return packing.WriteFile(path, f, b.Records(raw))
}

// SizeFields anchors a mesh-size point at each generated bead center and
// adds one threshold field per bead grading the size from sizeIn at
// minFactor·r to sizeOut at maxFactor·r. It returns the field tags.
func (b *PackedBed) SizeFields(k kernel.Kernel, sizeIn, sizeOut, minFactor, maxFactor float64) ([]int, error) {
	var fields []int
	for i := 0; i < b.beads.Len(); i++ {
		id, ok := b.beads.Identity(i)
		if !ok {
			continue
		}
		bd := b.beads.At(i)
		pt := id.Anchor
		if pt == 0 {
			var err error
			if pt, err = k.AddPoint(bd.Center, sizeIn); err != nil {
				return nil, errors.Wrap(errors.ErrCodeKernel, err, "anchor bead %d", i)
			}
			b.beads.SetAnchor(i, pt)
		}
		f, err := k.AddSizeField(kernel.SizeField{
			Kind:    kernel.FieldThreshold,
			Points:  []int{pt},
			SizeIn:  sizeIn,
			SizeOut: sizeOut,
			DistMin: minFactor * bd.R,
			DistMax: maxFactor * bd.R,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernel, err, "size field for bead %d", i)
		}
		fields = append(fields, f)
	}
	return fields, nil
}
