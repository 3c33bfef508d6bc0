package bead

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/packmesh/pkg/kernel"
)

// Identity is the kernel state of a generated bead.
type Identity struct {
	Entity int // 3D tag of the sphere
	Anchor int // 0D tag of the mesh-size anchor point, 0 if none
}

// Set is an ordered bead collection. The index of a bead never changes, so it
// is the key of the identity side-table.
type Set struct {
	beads []Bead
	ids   map[int]Identity
	byTag map[int]int
}

// NewSet returns a set holding beads in order.
func NewSet(beads []Bead) *Set {
	s := &Set{ids: make(map[int]Identity), byTag: make(map[int]int)}
	s.beads = append(s.beads, beads...)
	return s
}

// Append adds b and returns its index.
func (s *Set) Append(b Bead) int {
	s.beads = append(s.beads, b)
	return len(s.beads) - 1
}

// Len returns the number of beads.
func (s *Set) Len() int { return len(s.beads) }

// At returns the bead at index i.
func (s *Set) At(i int) Bead { return s.beads[i] }

// All returns a copy of the beads in index order.
func (s *Set) All() []Bead { return append([]Bead(nil), s.beads...) }

// Identity returns the kernel identity of bead i, if it was generated.
func (s *Set) Identity(i int) (Identity, bool) {
	id, ok := s.ids[i]
	return id, ok
}

// Generated reports whether bead i exists in the kernel.
func (s *Set) Generated(i int) bool {
	_, ok := s.ids[i]
	return ok
}

// Generate creates bead i in the kernel. It is a no-op when the bead was
// already generated.
func (s *Set) Generate(k kernel.Kernel, i int) (int, error) {
	if id, ok := s.ids[i]; ok {
		return id.Entity, nil
	}
	b := s.beads[i]
	tag, err := k.AddSphere(b.Center, b.R)
	if err != nil {
		return 0, fmt.Errorf("generate %s: %w", b, err)
	}
	s.bind(i, Identity{Entity: tag})
	return tag, nil
}

// GenerateAll generates every bead not yet in the kernel.
func (s *Set) GenerateAll(k kernel.Kernel) error {
	for i := range s.beads {
		if _, err := s.Generate(k, i); err != nil {
			return err
		}
	}
	return nil
}

// Bind records that bead i is represented by an existing kernel entity,
// such as a translated copy of another bead.
func (s *Set) Bind(i, entity int) error {
	if _, ok := s.ids[i]; ok {
		return fmt.Errorf("bead %d is already bound to entity %d", i, s.ids[i].Entity)
	}
	s.bind(i, Identity{Entity: entity})
	return nil
}

func (s *Set) bind(i int, id Identity) {
	s.ids[i] = id
	s.byTag[id.Entity] = i
}

// SetAnchor records the mesh-size anchor point of bead i.
func (s *Set) SetAnchor(i, point int) {
	id := s.ids[i]
	id.Anchor = point
	s.ids[i] = id
}

// Translate moves bead i by d, together with its kernel entity when it
// exists.
func (s *Set) Translate(k kernel.Kernel, i int, d r3.Vec) error {
	if id, ok := s.ids[i]; ok {
		if err := k.Translate(kernel.Volumes(id.Entity), d); err != nil {
			return fmt.Errorf("translate bead %d: %w", i, err)
		}
	}
	s.beads[i] = s.beads[i].Translated(d)
	return nil
}

// TranslateAll moves every bead by d.
func (s *Set) TranslateAll(k kernel.Kernel, d r3.Vec) error {
	for i := range s.beads {
		if err := s.Translate(k, i, d); err != nil {
			return err
		}
	}
	return nil
}

// IndexOf returns the index of the bead generated as entity tag.
func (s *Set) IndexOf(tag int) (int, bool) {
	i, ok := s.byTag[tag]
	return i, ok
}

// DimTags returns the entities of the generated beads in index order.
func (s *Set) DimTags() []kernel.DimTag {
	out := make([]kernel.DimTag, 0, len(s.ids))
	for i := range s.beads {
		if id, ok := s.ids[i]; ok {
			out = append(out, kernel.DimTag{Dim: 3, Tag: id.Entity})
		}
	}
	return out
}
