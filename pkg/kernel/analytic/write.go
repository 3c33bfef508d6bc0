package analytic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/packmesh/pkg/kernel"
)

// Document is the JSON form written by Write and WriteEntities.
type Document struct {
	Model    string        `json:"model"`
	Volumes  []VolumeDoc   `json:"volumes"`
	Surfaces []SurfaceDoc  `json:"surfaces"`
	Points   []PointDoc    `json:"points,omitempty"`
	Groups   []GroupDoc    `json:"physical_groups,omitempty"`
	Periodic []PeriodicDoc `json:"periodic,omitempty"`
	Mesh     *MeshDoc      `json:"mesh,omitempty"`
}

// VolumeDoc describes one solid.
type VolumeDoc struct {
	Tag      int     `json:"tag"`
	Kind     string  `json:"kind"`
	Min      r3.Vec  `json:"min"`
	Max      r3.Vec  `json:"max"`
	Volume   float64 `json:"volume"`
	Surfaces []int   `json:"surfaces"`
}

// SurfaceDoc describes one face.
type SurfaceDoc struct {
	Tag    int     `json:"tag"`
	Kind   string  `json:"kind"`
	Min    r3.Vec  `json:"min"`
	Max    r3.Vec  `json:"max"`
	Area   float64 `json:"area"`
	Normal *r3.Vec `json:"normal,omitempty"`
}

// PointDoc describes one point.
type PointDoc struct {
	Tag      int     `json:"tag"`
	At       r3.Vec  `json:"at"`
	MeshSize float64 `json:"mesh_size"`
}

// GroupDoc describes one physical group.
type GroupDoc struct {
	Dim     int    `json:"dim"`
	Tag     int    `json:"tag"`
	Name    string `json:"name"`
	Members []int  `json:"members"`
}

// PeriodicDoc describes one periodic surface pair.
type PeriodicDoc struct {
	Slave       int    `json:"slave"`
	Master      int    `json:"master"`
	Translation r3.Vec `json:"translation"`
}

// MeshDoc records the requested meshing setup.
type MeshDoc struct {
	Dimension  int                `json:"dimension"`
	Sizes      int                `json:"sized_entities"`
	Fields     []kernel.SizeField `json:"fields,omitempty"`
	Background []int              `json:"background,omitempty"`
}

// Write writes the current model as JSON. When physical groups exist only
// their members are written.
func (k *Kernel) Write(path string) error {
	if err := k.synced(); err != nil {
		return err
	}
	m := k.current
	var in []kernel.DimTag
	if len(m.groups) > 0 {
		seen := make(map[kernel.DimTag]bool)
		for _, g := range m.groups {
			for _, t := range g.tags {
				dt := kernel.DimTag{Dim: g.dim, Tag: t}
				if !seen[dt] {
					seen[dt] = true
					in = append(in, dt)
				}
			}
		}
	} else {
		for _, dim := range []int{3, 2} {
			es, _ := k.Entities(dim)
			in = append(in, es...)
		}
	}
	doc, err := k.document(in)
	if err != nil {
		return err
	}
	for _, t := range sortedKeys(m.points) {
		doc.Points = append(doc.Points, PointDoc{Tag: t, At: m.points[t].p, MeshSize: m.points[t].size})
	}
	for _, g := range m.groups {
		doc.Groups = append(doc.Groups, GroupDoc{Dim: g.dim, Tag: g.tag, Name: g.name, Members: g.tags})
	}
	for _, p := range k.Periodic() {
		doc.Periodic = append(doc.Periodic, PeriodicDoc{Slave: p.Slave, Master: p.Master, Translation: p.Translation})
	}
	doc.Mesh = &MeshDoc{Dimension: m.meshDim, Sizes: len(m.sizes), Background: m.background}
	for _, t := range sortedKeys(m.fields) {
		doc.Mesh.Fields = append(doc.Mesh.Fields, m.fields[t])
	}
	return writeJSON(path, doc)
}

// WriteEntities writes only the given entities, without groups or mesh
// settings.
func (k *Kernel) WriteEntities(path string, in []kernel.DimTag) error {
	if err := k.synced(); err != nil {
		return err
	}
	doc, err := k.document(in)
	if err != nil {
		return err
	}
	return writeJSON(path, doc)
}

func (k *Kernel) document(in []kernel.DimTag) (*Document, error) {
	m := k.current
	doc := &Document{Model: m.name, Volumes: []VolumeDoc{}, Surfaces: []SurfaceDoc{}}
	for _, e := range in {
		switch e.Dim {
		case 3:
			s, ok := m.solids[e.Tag]
			if !ok {
				return nil, noEntity(e)
			}
			bb := s.bbox()
			doc.Volumes = append(doc.Volumes, VolumeDoc{
				Tag: e.Tag, Kind: s.kind.String(), Min: bb.Min, Max: bb.Max,
				Volume: m.volume(s), Surfaces: append([]int{}, s.faces...),
			})
		case 2:
			f, ok := m.faces[e.Tag]
			if !ok {
				return nil, noEntity(e)
			}
			bb := f.bbox()
			sd := SurfaceDoc{Tag: e.Tag, Kind: f.kind.String(), Min: bb.Min, Max: bb.Max, Area: f.area(m.faces)}
			if f.planar() {
				n := f.normal()
				sd.Normal = &n
			}
			doc.Surfaces = append(doc.Surfaces, sd)
		}
	}
	return doc, nil
}

func writeJSON(path string, doc *Document) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("analytic: create %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("analytic: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("analytic: write %s: %w", path, err)
	}
	return nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
