// Package analytic implements [kernel.Kernel] with exact geometry for the
// shapes a packed-bed column is made of: spheres, spheres clipped to or cut by
// axis-aligned boxes, boxes with spherical holes and planar rectangles.
//
// It is not a CAD kernel. Booleans are implemented for exactly the
// configurations the stacking and column stages produce; anything else
// returns [kernel.ErrUnsupported]. Queries issued after a mutation without an
// intervening Synchronize return [kernel.ErrNotSynchronized] instead of stale
// data.
//
// GenerateMesh does not discretize. It records the requested dimension and
// the sizing setup, and Write emits them together with the exact geometry as
// a JSON document.
//
// A Kernel is not safe for concurrent use.
package analytic

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/packmesh/pkg/geom"
	"github.com/matzehuels/packmesh/pkg/kernel"
)

// DefaultModel is the name of the model a new Kernel starts with.
const DefaultModel = "default"

type point struct {
	p    r3.Vec
	size float64
}

type periodicLink struct {
	dim     int
	tags    []int
	masters []int
	affine  kernel.Affine
}

type physicalGroup struct {
	dim  int
	tag  int
	name string
	tags []int
}

type model struct {
	name   string
	next   [4]int
	points map[int]point
	faces  map[int]*face
	solids map[int]*solid
	dirty  bool

	periodic   []periodicLink
	groups     []physicalGroup
	sizes      map[kernel.DimTag]float64
	fields     map[int]kernel.SizeField
	nextField  int
	background []int
	meshDim    int
}

func newModel(name string) *model {
	return &model{
		name:   name,
		points: make(map[int]point),
		faces:  make(map[int]*face),
		solids: make(map[int]*solid),
		sizes:  make(map[kernel.DimTag]float64),
		fields: make(map[int]kernel.SizeField),
	}
}

func (m *model) newTag(dim int) int {
	m.next[dim]++
	return m.next[dim]
}

func (m *model) addSolid(s *solid) int {
	t := m.newTag(3)
	m.solids[t] = s
	m.dirty = true
	return t
}

func (m *model) addFace(f *face) int {
	t := m.newTag(2)
	m.faces[t] = f
	m.dirty = true
	return t
}

// Kernel is an in-process analytic geometry kernel.
type Kernel struct {
	models  map[string]*model
	order   []string
	current *model
}

var _ kernel.Kernel = (*Kernel)(nil)

// New returns a kernel with one empty model named DefaultModel.
func New() *Kernel {
	m := newModel(DefaultModel)
	return &Kernel{
		models:  map[string]*model{DefaultModel: m},
		order:   []string{DefaultModel},
		current: m,
	}
}

// Name implements [kernel.Kernel].
func (k *Kernel) Name() string { return "analytic" }

// =============================================================================
// Primitives
// =============================================================================

// AddSphere adds a whole sphere.
func (k *Kernel) AddSphere(center r3.Vec, r float64) (int, error) {
	if !(r > 0) {
		return 0, fmt.Errorf("analytic: sphere radius must be positive, got %g", r)
	}
	return k.current.addSolid(&solid{kind: ball, center: center, radius: r, clip: infBox}), nil
}

// AddBox adds the box spanned by origin and origin+size. Negative sizes are
// normalized.
func (k *Kernel) AddBox(origin, size r3.Vec) (int, error) {
	b := geom.Extend(geom.Extend(geom.EmptyBox(), origin), r3.Add(origin, size))
	for _, a := range geom.Axes {
		if hi(b, a)-lo(b, a) <= 0 {
			return 0, fmt.Errorf("analytic: degenerate box %v", size)
		}
	}
	return k.current.addSolid(&solid{kind: box, bounds: b}), nil
}

// AddCylinder adds a cylinder with base center origin, extending along axis.
func (k *Kernel) AddCylinder(origin, axis r3.Vec, r float64) (int, error) {
	if !(r > 0) || r3.Norm(axis) == 0 {
		return 0, fmt.Errorf("analytic: degenerate cylinder r=%g axis=%v", r, axis)
	}
	return k.current.addSolid(&solid{kind: cylinder, center: origin, axis: axis, radius: r}), nil
}

// AddPoint adds a point carrying a mesh size.
func (k *Kernel) AddPoint(p r3.Vec, meshSize float64) (int, error) {
	m := k.current
	t := m.newTag(0)
	m.points[t] = point{p: p, size: meshSize}
	m.dirty = true
	return t, nil
}

// =============================================================================
// Transformations
// =============================================================================

// Copy duplicates entities. Copies of solids get fresh boundaries.
func (k *Kernel) Copy(in []kernel.DimTag) ([]kernel.DimTag, error) {
	m := k.current
	out := make([]kernel.DimTag, 0, len(in))
	for _, e := range in {
		switch e.Dim {
		case 0:
			p, ok := m.points[e.Tag]
			if !ok {
				return nil, noEntity(e)
			}
			t := m.newTag(0)
			m.points[t] = p
			out = append(out, kernel.DimTag{Dim: 0, Tag: t})
		case 2:
			f, ok := m.faces[e.Tag]
			if !ok {
				return nil, noEntity(e)
			}
			out = append(out, kernel.DimTag{Dim: 2, Tag: m.addFace(f.clone())})
		case 3:
			s, ok := m.solids[e.Tag]
			if !ok {
				return nil, noEntity(e)
			}
			if len(s.holes) > 0 {
				return nil, fmt.Errorf("analytic: copy of %s with holes: %w", e, kernel.ErrUnsupported)
			}
			out = append(out, kernel.DimTag{Dim: 3, Tag: m.addSolid(s.clone())})
		default:
			return nil, fmt.Errorf("analytic: copy of %s: %w", e, kernel.ErrUnsupported)
		}
	}
	m.dirty = true
	return out, nil
}

// Translate moves entities by d.
func (k *Kernel) Translate(in []kernel.DimTag, d r3.Vec) error {
	m := k.current
	for _, e := range in {
		switch e.Dim {
		case 0:
			p, ok := m.points[e.Tag]
			if !ok {
				return noEntity(e)
			}
			p.p = r3.Add(p.p, d)
			m.points[e.Tag] = p
		case 2:
			f, ok := m.faces[e.Tag]
			if !ok {
				return noEntity(e)
			}
			m.detach(e.Tag)
			f.translate(d)
		case 3:
			s, ok := m.solids[e.Tag]
			if !ok {
				return noEntity(e)
			}
			if len(s.holes) > 0 {
				return fmt.Errorf("analytic: translate of %s with holes: %w", e, kernel.ErrUnsupported)
			}
			m.dropFaces(e.Tag)
			s.translate(d)
		default:
			return fmt.Errorf("analytic: translate of %s: %w", e, kernel.ErrUnsupported)
		}
	}
	m.dirty = true
	return nil
}

// Dilate scales entities about center. Spheres only accept uniform factors.
func (k *Kernel) Dilate(in []kernel.DimTag, center, factor r3.Vec) error {
	m := k.current
	uniform := factor.X == factor.Y && factor.Y == factor.Z
	scale := func(p r3.Vec) r3.Vec { return r3.Add(center, geom.Mul(factor, r3.Sub(p, center))) }
	scaleBox := func(b r3.Box) r3.Box {
		return geom.Extend(geom.Extend(geom.EmptyBox(), scale(b.Min)), scale(b.Max))
	}
	for _, e := range in {
		switch e.Dim {
		case 0:
			p, ok := m.points[e.Tag]
			if !ok {
				return noEntity(e)
			}
			p.p = scale(p.p)
			m.points[e.Tag] = p
		case 2:
			f, ok := m.faces[e.Tag]
			if !ok {
				return noEntity(e)
			}
			if f.kind != rect || len(f.holes) > 0 {
				return fmt.Errorf("analytic: dilate of %s face %s: %w", f.kind, e, kernel.ErrUnsupported)
			}
			m.detach(e.Tag)
			f.rect = scaleBox(f.rect)
			f.coord = geom.Component(f.rect.Min, f.axis)
		case 3:
			s, ok := m.solids[e.Tag]
			if !ok {
				return noEntity(e)
			}
			switch {
			case s.kind == box && len(s.holes) == 0:
				s.bounds = scaleBox(s.bounds)
			case s.kind == ball && s.clip == infBox && uniform:
				s.center = scale(s.center)
				s.radius *= math.Abs(factor.X)
			default:
				return fmt.Errorf("analytic: dilate of %s %s: %w", s.kind, e, kernel.ErrUnsupported)
			}
			m.dropFaces(e.Tag)
			s.faces = nil
		default:
			return fmt.Errorf("analytic: dilate of %s: %w", e, kernel.ErrUnsupported)
		}
	}
	m.dirty = true
	return nil
}

// Remove deletes entities. Recursive removal of a solid also deletes the
// faces no other solid is bounded by. Faces still bounding a solid are kept.
func (k *Kernel) Remove(in []kernel.DimTag, recursive bool) error {
	m := k.current
	for _, e := range in {
		switch e.Dim {
		case 0:
			delete(m.points, e.Tag)
		case 2:
			if len(m.owners(e.Tag)) == 0 {
				delete(m.faces, e.Tag)
			}
		case 3:
			s, ok := m.solids[e.Tag]
			if !ok {
				continue
			}
			delete(m.solids, e.Tag)
			if recursive {
				for _, f := range s.faces {
					if len(m.owners(f)) == 0 {
						delete(m.faces, f)
					}
				}
			}
		default:
			return fmt.Errorf("analytic: remove of %s: %w", e, kernel.ErrUnsupported)
		}
	}
	m.dirty = true
	return nil
}

// owners returns the solids whose boundary contains face.
func (m *model) owners(face int) []int {
	var out []int
	for t, s := range m.solids {
		for _, f := range s.faces {
			if f == face {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// detach turns a bounding face into a free face. Its former owners lose the
// face from their boundary and are not rebuilt.
func (m *model) detach(face int) {
	for _, t := range m.owners(face) {
		s := m.solids[t]
		kept := make([]int, 0, len(s.faces))
		for _, f := range s.faces {
			if f != face {
				kept = append(kept, f)
			}
		}
		s.faces = kept
	}
}

// dropFaces clears the boundary of solid t, deleting faces that bound no
// other solid and are not holes of a free face.
func (m *model) dropFaces(t int) {
	s := m.solids[t]
	faces := s.faces
	s.faces = nil
	for _, f := range faces {
		if len(m.owners(f)) == 0 && !m.holeOfFreeFace(f) {
			delete(m.faces, f)
		}
	}
}

func (m *model) holeOfFreeFace(tag int) bool {
	for _, f := range m.faces {
		for _, h := range f.holes {
			if h == tag {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// Synchronization and queries
// =============================================================================

// Synchronize rebuilds stale boundaries and makes geometry visible to queries.
func (k *Kernel) Synchronize() error {
	m := k.current
	tags := make([]int, 0, len(m.solids))
	for t := range m.solids {
		tags = append(tags, t)
	}
	sort.Ints(tags)
	// Boxes reference the boundaries of their holes, so they come last.
	for _, t := range tags {
		if s := m.solids[t]; s.faces == nil && s.kind != box {
			for _, f := range s.boundary() {
				s.faces = append(s.faces, m.addFace(f))
			}
		}
	}
	for _, t := range tags {
		if s := m.solids[t]; s.faces == nil && s.kind == box {
			m.buildBox(s)
		}
	}
	m.dirty = false
	return nil
}

func (m *model) buildBox(s *solid) {
	var walls [6]*face
	for _, w := range geom.Walls {
		a := w.Axis()
		l := lo(s.bounds, a)
		if w.Sign() > 0 {
			l = hi(s.bounds, a)
		}
		walls[w] = &face{
			kind:  rect,
			axis:  a,
			coord: l,
			sign:  w.Sign(),
			rect:  r3.Box{Min: geom.Set(s.bounds.Min, a, l), Max: geom.Set(s.bounds.Max, a, l)},
		}
	}
	var shared []int
	for _, h := range s.holes {
		hs, ok := m.solids[h]
		if !ok {
			continue
		}
		for _, ft := range hs.faces {
			f := m.faces[ft]
			if !f.planar() {
				shared = append(shared, ft)
				continue
			}
			for _, w := range geom.Walls {
				if walls[w].axis == f.axis && math.Abs(walls[w].coord-f.coord) < eps && walls[w].sign == f.sign {
					walls[w].holes = append(walls[w].holes, ft)
				}
			}
		}
	}
	for _, w := range walls {
		s.faces = append(s.faces, m.addFace(w))
	}
	s.faces = append(s.faces, shared...)
}

func (k *Kernel) synced() error {
	if k.current.dirty {
		return kernel.ErrNotSynchronized
	}
	return nil
}

func noEntity(e kernel.DimTag) error {
	return fmt.Errorf("analytic: %s: %w", e, kernel.ErrNoEntity)
}

// Boundary returns the faces bounding the given solids. With combined set,
// faces shared by two of the inputs cancel out.
func (k *Kernel) Boundary(in []kernel.DimTag, combined, oriented bool) ([]kernel.DimTag, error) {
	if err := k.synced(); err != nil {
		return nil, err
	}
	m := k.current
	var all []int
	for _, e := range in {
		if e.Dim != 3 {
			return nil, fmt.Errorf("analytic: boundary of %s: %w", e, kernel.ErrUnsupported)
		}
		s, ok := m.solids[e.Tag]
		if !ok {
			return nil, noEntity(e)
		}
		all = append(all, s.faces...)
	}
	if combined {
		count := make(map[int]int)
		for _, f := range all {
			count[f]++
		}
		var kept []int
		seen := make(map[int]bool)
		for _, f := range all {
			if count[f]%2 == 1 && !seen[f] {
				seen[f] = true
				kept = append(kept, f)
			}
		}
		all = kept
	}
	return kernel.Surfaces(all...), nil
}

// BoundingBox returns the bounding box of an entity.
func (k *Kernel) BoundingBox(e kernel.DimTag) (r3.Box, error) {
	if err := k.synced(); err != nil {
		return r3.Box{}, err
	}
	m := k.current
	switch e.Dim {
	case 0:
		if p, ok := m.points[e.Tag]; ok {
			return r3.Box{Min: p.p, Max: p.p}, nil
		}
	case 2:
		if f, ok := m.faces[e.Tag]; ok {
			return f.bbox(), nil
		}
	case 3:
		if s, ok := m.solids[e.Tag]; ok {
			return s.bbox(), nil
		}
	}
	return r3.Box{}, noEntity(e)
}

// CenterOfMass is exact for rectangles, whole disks, whole spheres, boxes
// without holes and cylinders.
func (k *Kernel) CenterOfMass(e kernel.DimTag) (r3.Vec, error) {
	if err := k.synced(); err != nil {
		return r3.Vec{}, err
	}
	m := k.current
	switch e.Dim {
	case 0:
		if p, ok := m.points[e.Tag]; ok {
			return p.p, nil
		}
	case 2:
		f, ok := m.faces[e.Tag]
		if !ok {
			break
		}
		switch {
		case f.kind == rect && len(f.holes) == 0:
			return geom.Center(f.rect), nil
		case f.kind == disk && geom.BoxesClose(f.bbox(), wholeDisk(f), eps):
			return f.center, nil
		}
		return r3.Vec{}, fmt.Errorf("analytic: center of mass of %s face: %w", f.kind, kernel.ErrUnsupported)
	case 3:
		s, ok := m.solids[e.Tag]
		if !ok {
			break
		}
		switch {
		case s.kind == ball && s.effectivelyWhole():
			return s.center, nil
		case s.kind == box && len(s.holes) == 0:
			return geom.Center(s.bounds), nil
		case s.kind == cylinder:
			return r3.Add(s.center, r3.Scale(0.5, s.axis)), nil
		}
		return r3.Vec{}, fmt.Errorf("analytic: center of mass of %s: %w", s.kind, kernel.ErrUnsupported)
	}
	return r3.Vec{}, noEntity(e)
}

func wholeDisk(f *face) r3.Box {
	b, _ := diskBounds(f.axis, f.center, f.radius, infBox)
	return b
}

// effectivelyWhole reports whether no clipping plane touches the sphere.
func (s *solid) effectivelyWhole() bool {
	whole, _ := ballBounds(s.center, s.radius, infBox)
	return containsBox(s.clip, whole) && geom.BoxesClose(s.bbox(), whole, eps)
}

// Mass returns the volume of a solid or the area of a face.
func (k *Kernel) Mass(e kernel.DimTag) (float64, error) {
	if err := k.synced(); err != nil {
		return 0, err
	}
	m := k.current
	switch e.Dim {
	case 2:
		if f, ok := m.faces[e.Tag]; ok {
			return f.area(m.faces), nil
		}
	case 3:
		if s, ok := m.solids[e.Tag]; ok {
			return m.volume(s), nil
		}
	}
	return 0, noEntity(e)
}

func (m *model) volume(s *solid) float64 {
	whole := 4.0 / 3.0 * math.Pi * s.radius * s.radius * s.radius
	switch s.kind {
	case ball:
		if s.effectivelyWhole() {
			return whole
		}
		return ballVolume(s.center, s.radius, s.clip)
	case ballCut:
		return whole - ballVolume(s.center, s.radius, s.cut)
	case box:
		sz := geom.Size(s.bounds)
		v := sz.X * sz.Y * sz.Z
		for _, h := range s.holes {
			if hs, ok := m.solids[h]; ok {
				v -= m.volume(hs)
			}
		}
		return v
	default:
		return math.Pi * s.radius * s.radius * r3.Norm(s.axis)
	}
}

// SampleSurface returns points of a face with their normal and curvature.
// Planar faces have a constant normal and zero curvature.
func (k *Kernel) SampleSurface(surface int) ([]kernel.Sample, error) {
	if err := k.synced(); err != nil {
		return nil, err
	}
	f, ok := k.current.faces[surface]
	if !ok {
		return nil, noEntity(kernel.DimTag{Dim: 2, Tag: surface})
	}
	return f.samples(), nil
}

// Entities lists the entities of one dimension in tag order.
func (k *Kernel) Entities(dim int) ([]kernel.DimTag, error) {
	if err := k.synced(); err != nil {
		return nil, err
	}
	m := k.current
	var tags []int
	switch dim {
	case 0:
		for t := range m.points {
			tags = append(tags, t)
		}
	case 2:
		for t := range m.faces {
			tags = append(tags, t)
		}
	case 3:
		for t := range m.solids {
			tags = append(tags, t)
		}
	}
	sort.Ints(tags)
	out := make([]kernel.DimTag, len(tags))
	for i, t := range tags {
		out[i] = kernel.DimTag{Dim: dim, Tag: t}
	}
	return out, nil
}

// =============================================================================
// Periodicity, groups and meshing
// =============================================================================

// SetPeriodic registers tags as periodic copies of masters under t.
func (k *Kernel) SetPeriodic(dim int, tags, masters []int, t kernel.Affine) error {
	if len(tags) != len(masters) {
		return fmt.Errorf("analytic: periodic tags/masters length mismatch: %d != %d", len(tags), len(masters))
	}
	k.current.periodic = append(k.current.periodic, periodicLink{
		dim:     dim,
		tags:    append([]int(nil), tags...),
		masters: append([]int(nil), masters...),
		affine:  t,
	})
	return nil
}

// Periodic returns the registered (slave, master) surface pairs and their
// translations, in registration order.
func (k *Kernel) Periodic() []PeriodicPair {
	var out []PeriodicPair
	for _, l := range k.current.periodic {
		for i := range l.tags {
			out = append(out, PeriodicPair{Slave: l.tags[i], Master: l.masters[i], Translation: l.affine.Offset()})
		}
	}
	return out
}

// PeriodicPair is one registered periodicity constraint.
type PeriodicPair struct {
	Slave, Master int
	Translation   r3.Vec
}

// AddPhysicalGroup records a named group.
func (k *Kernel) AddPhysicalGroup(dim int, tags []int, tag int, name string) error {
	k.current.groups = append(k.current.groups, physicalGroup{dim: dim, tag: tag, name: name, tags: append([]int(nil), tags...)})
	return nil
}

// RemovePhysicalGroups clears every group of the current model.
func (k *Kernel) RemovePhysicalGroups() error {
	k.current.groups = nil
	return nil
}

// PhysicalGroup returns the members and name of a group.
func (k *Kernel) PhysicalGroup(dim, tag int) ([]int, string, bool) {
	for _, g := range k.current.groups {
		if g.dim == dim && g.tag == tag {
			return g.tags, g.name, true
		}
	}
	return nil, "", false
}

// SetMeshSize records a mesh size on entities.
func (k *Kernel) SetMeshSize(in []kernel.DimTag, size float64) error {
	for _, e := range in {
		k.current.sizes[e] = size
	}
	return nil
}

// AddSizeField records a sizing field and returns its tag.
func (k *Kernel) AddSizeField(f kernel.SizeField) (int, error) {
	m := k.current
	m.nextField++
	m.fields[m.nextField] = f
	return m.nextField, nil
}

// SetBackgroundMin combines fields into the background size field.
func (k *Kernel) SetBackgroundMin(fields []int) error {
	for _, f := range fields {
		if _, ok := k.current.fields[f]; !ok {
			return fmt.Errorf("analytic: size field %d: %w", f, kernel.ErrNoEntity)
		}
	}
	k.current.background = append([]int(nil), fields...)
	return nil
}

// GenerateMesh records the requested mesh dimension.
func (k *Kernel) GenerateMesh(dim int) error {
	if err := k.synced(); err != nil {
		return err
	}
	if dim < 0 || dim > 3 {
		return fmt.Errorf("analytic: mesh dimension %d out of range", dim)
	}
	k.current.meshDim = dim
	return nil
}

// =============================================================================
// Models
// =============================================================================

// AddModel creates a model and makes it current.
func (k *Kernel) AddModel(name string) error {
	if _, ok := k.models[name]; ok {
		return fmt.Errorf("analytic: model %q already exists", name)
	}
	m := newModel(name)
	k.models[name] = m
	k.order = append(k.order, name)
	k.current = m
	return nil
}

// SetCurrentModel switches the current model.
func (k *Kernel) SetCurrentModel(name string) error {
	m, ok := k.models[name]
	if !ok {
		return fmt.Errorf("analytic: model %q: %w", name, kernel.ErrNoEntity)
	}
	k.current = m
	return nil
}

// CurrentModel returns the name of the current model.
func (k *Kernel) CurrentModel() string { return k.current.name }

// RemoveModel deletes the current model and switches to the most recently
// added remaining one. The last model cannot be removed.
func (k *Kernel) RemoveModel() error {
	if len(k.order) == 1 {
		return fmt.Errorf("analytic: cannot remove the only model %q", k.current.name)
	}
	name := k.current.name
	delete(k.models, name)
	for i, n := range k.order {
		if n == name {
			k.order = append(k.order[:i], k.order[i+1:]...)
			break
		}
	}
	k.current = k.models[k.order[len(k.order)-1]]
	return nil
}
