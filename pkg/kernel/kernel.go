// Package kernel defines the geometry-kernel capability surface that packmesh
// builds on: primitive creation, boolean operations with provenance, boundary
// and normal queries, periodicity constraints, physical groups, mesh sizing and
// output.
//
// The kernel holds mutable session state (the current model). Callers pass a
// Kernel explicitly to every component instead of relying on a process-wide
// session, which lets tests substitute the analytic kernel in
// [github.com/matzehuels/packmesh/pkg/kernel/analytic].
//
// # Ordering contract
//
// Query methods (Boundary, BoundingBox, CenterOfMass, SampleSurface, Mass,
// Entities) observe geometry only after Synchronize has been called following
// the last mutating call. Implementations either return ErrNotSynchronized or,
// like some production kernels, silently return stale data; callers must
// synchronize in both cases.
//
// # Concurrency
//
// A Kernel is a single session. It must not be used from more than one
// goroutine; independent sessions belong in separate OS processes.
package kernel

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNotSynchronized is returned by queries issued after a mutating call
// without an intervening Synchronize.
var ErrNotSynchronized = errors.New("kernel: query before synchronize")

// ErrUnsupported is returned for operations an implementation cannot perform.
var ErrUnsupported = errors.New("kernel: unsupported operation")

// ErrNoEntity is returned when a tag does not name a live entity.
var ErrNoEntity = errors.New("kernel: no such entity")

// DimTag identifies a kernel entity by topological dimension and tag.
// Tags are unique per dimension.
type DimTag struct {
	Dim int
	Tag int
}

func (d DimTag) String() string { return fmt.Sprintf("(%d,%d)", d.Dim, d.Tag) }

// Volumes wraps 3D tags as DimTags.
func Volumes(tags ...int) []DimTag { return withDim(3, tags) }

// Surfaces wraps 2D tags as DimTags.
func Surfaces(tags ...int) []DimTag { return withDim(2, tags) }

func withDim(dim int, tags []int) []DimTag {
	out := make([]DimTag, len(tags))
	for i, t := range tags {
		out[i] = DimTag{Dim: dim, Tag: t}
	}
	return out
}

// Tags returns the tags of dts, dropping dimension information.
func Tags(dts []DimTag) []int {
	out := make([]int, len(dts))
	for i, d := range dts {
		out[i] = d.Tag
	}
	return out
}

// BooleanOptions control whether the inputs of a boolean survive it.
type BooleanOptions struct {
	RemoveObject bool
	RemoveTool   bool
}

// BooleanResult is the output of a boolean operation with its provenance
// split explicitly into the object side and the tool side. Objects[i] lists the
// entities derived from the i-th object input, Tools[j] those derived from the
// j-th tool input. An entity lying inside both an object and a tool appears in
// both entries.
type BooleanResult struct {
	Out     []DimTag
	Objects [][]DimTag
	Tools   [][]DimTag
}

// ToolChildren returns every entity attributed to a tool input, in order and
// without duplicates.
func (r BooleanResult) ToolChildren() []DimTag { return flatten(r.Tools) }

// ObjectChildren returns every entity attributed to an object input, in order
// and without duplicates.
func (r BooleanResult) ObjectChildren() []DimTag { return flatten(r.Objects) }

func flatten(groups [][]DimTag) []DimTag {
	seen := make(map[DimTag]bool)
	var out []DimTag
	for _, g := range groups {
		for _, d := range g {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}

// Sample is the local geometry of a surface at one point on it.
type Sample struct {
	Point     r3.Vec
	Normal    r3.Vec
	Curvature float64
}

// Affine is a row-major 4x4 affine transform as used by periodicity
// constraints.
type Affine [16]float64

// Translation returns the affine transform translating by d.
func Translation(d r3.Vec) Affine {
	return Affine{
		1, 0, 0, d.X,
		0, 1, 0, d.Y,
		0, 0, 1, d.Z,
		0, 0, 0, 1,
	}
}

// Offset returns the translation part of a.
func (a Affine) Offset() r3.Vec { return r3.Vec{X: a[3], Y: a[7], Z: a[11]} }

// FieldKind selects how a size field computes the element size.
type FieldKind string

// Size field kinds.
const (
	// FieldThreshold grades the size from SizeIn at DistMin to SizeOut at
	// DistMax of the distance to Points/Surfaces.
	FieldThreshold FieldKind = "threshold"
	// FieldConstant applies SizeIn on Surfaces and SizeOut elsewhere.
	FieldConstant FieldKind = "constant"
)

// SizeField describes a mesh sizing field.
type SizeField struct {
	Kind     FieldKind
	Points   []int
	Surfaces []int
	SizeIn   float64
	SizeOut  float64
	DistMin  float64
	DistMax  float64
}

// Kernel is the geometry kernel consumed by packmesh.
type Kernel interface {
	// Name identifies the implementation. Results computed by different
	// kernels are never interchangeable.
	Name() string

	// Primitives. Each returns the tag of the new entity.
	AddSphere(center r3.Vec, r float64) (int, error)
	AddBox(origin, size r3.Vec) (int, error)
	AddCylinder(origin, axis r3.Vec, r float64) (int, error)
	AddPoint(p r3.Vec, meshSize float64) (int, error)

	// Transformations.
	Copy(in []DimTag) ([]DimTag, error)
	Translate(in []DimTag, d r3.Vec) error
	Dilate(in []DimTag, center, factor r3.Vec) error
	Remove(in []DimTag, recursive bool) error

	// Booleans.
	Intersect(object, tool []DimTag, opts BooleanOptions) (BooleanResult, error)
	Cut(object, tool []DimTag, opts BooleanOptions) (BooleanResult, error)
	Fragment(object, tool []DimTag, opts BooleanOptions) (BooleanResult, error)

	// Synchronize makes pending geometry visible to queries.
	Synchronize() error

	// Queries.
	Boundary(in []DimTag, combined, oriented bool) ([]DimTag, error)
	BoundingBox(e DimTag) (r3.Box, error)
	CenterOfMass(e DimTag) (r3.Vec, error)
	Mass(e DimTag) (float64, error)
	SampleSurface(surface int) ([]Sample, error)
	Entities(dim int) ([]DimTag, error)

	// Periodicity and tagging.
	SetPeriodic(dim int, tags, masters []int, t Affine) error
	AddPhysicalGroup(dim int, tags []int, tag int, name string) error
	RemovePhysicalGroups() error

	// Meshing.
	SetMeshSize(in []DimTag, size float64) error
	AddSizeField(f SizeField) (int, error)
	SetBackgroundMin(fields []int) error
	GenerateMesh(dim int) error

	// Output.
	Write(path string) error
	WriteEntities(path string, in []DimTag) error

	// Models.
	AddModel(name string) error
	SetCurrentModel(name string) error
	CurrentModel() string
	RemoveModel() error
}
