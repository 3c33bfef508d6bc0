package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/packmesh/pkg/errors"
	"github.com/matzehuels/packmesh/pkg/geom"
)

const sampleYAML = `
packedbed:
  packing_file:
    filename: beads.xyzd
    dataformat: ">f"
  zbot: 1
  ztop: 9
  scaling_factor: 2
  particles:
    scaling_factor: 0.99
container:
  size: [-2, -2, 0, 4, 4, 10]
  periodicity: XY
  linked: true
  inlet_length: 1
  outlet_length: 2
  stack_method: volumecut
mesh:
  size: 0.5
  size_method: field
  field:
    threshold:
      size_in: 0.1
output:
  filename: column.json
  provenance: stack.svg
`

const sampleTOML = `
[packedbed]
nbeads = 100

[packedbed.packing_file]
filename = "beads.xyzd"

[container]
shape = "box"
periodicity = "z"
stack_method = "all"

[mesh]
generate = 2
`

func TestParseYAML(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML), ".yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PackedBed.PackingFile.DataFormat != ">f" || *cfg.PackedBed.ZTop != 9 {
		t.Errorf("packedbed = %+v", cfg.PackedBed)
	}
	if diff := cmp.Diff([]geom.Axis{geom.X, geom.Y}, cfg.Axes()); diff != "" {
		t.Errorf("Axes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]geom.Axis{geom.X, geom.Y, geom.Z}, cfg.ColumnAxes()); diff != "" {
		t.Errorf("ColumnAxes mismatch (-want +got):\n%s", diff)
	}
	want := Threshold{SizeIn: 0.1, SizeOut: 0.5, RadMinFactor: 1, RadMaxFactor: 1}
	if diff := cmp.Diff(want, cfg.Mesh.Field.Threshold); diff != "" {
		t.Errorf("threshold mismatch (-want +got):\n%s", diff)
	}
	if cfg.Mesh.Generate != 3 || cfg.Container.Shape != "box" {
		t.Errorf("defaults not kept: generate=%d shape=%q", cfg.Mesh.Generate, cfg.Container.Shape)
	}

	p := cfg.BedParams()
	if p.Scaling != 2 || p.ParticleScaling != 0.99 || p.ZBot != 1 || p.ZTop != 9 || p.Count != -1 {
		t.Errorf("BedParams() = %+v", p)
	}
}

func TestParseTOML(t *testing.T) {
	cfg, err := Parse([]byte(sampleTOML), ".toml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StackMethod() != "all" || cfg.Mesh.Generate != 2 {
		t.Errorf("container/mesh = %+v %+v", cfg.Container, cfg.Mesh)
	}
	if cfg.Format().Width != 8 {
		t.Errorf("default data format width = %d", cfg.Format().Width)
	}
	p := cfg.BedParams()
	if p.Count != 100 || !math.IsInf(p.ZBot, -1) || !math.IsInf(p.ZTop, 1) {
		t.Errorf("BedParams() = %+v", p)
	}
	if len(cfg.SectionAxes()) != 0 {
		t.Errorf("SectionAxes() = %v, want none", cfg.SectionAxes())
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		data string
		code errors.Code
	}{
		{"extension", ".json", `{}`, errors.ErrCodeConfiguration},
		{"unknown toml key", ".toml", "[mesh]\nsise = 1\n", errors.ErrCodeConfiguration},
		{"unknown yaml key", ".yaml", "mesh:\n  sise: 1\n", errors.ErrCodeConfiguration},
		{"data format", ".yaml", "packedbed:\n  packing_file:\n    dataformat: q\n", errors.ErrCodeConfiguration},
		{"scaling", ".yaml", "packedbed:\n  scaling_factor: 0\n", errors.ErrCodeConfiguration},
		{"window", ".yaml", "packedbed:\n  zbot: 5\n  ztop: 1\n", errors.ErrCodeConfiguration},
		{"shape", ".yaml", "container:\n  shape: sphere\n", errors.ErrCodeUnsupportedShape},
		{"periodic cylinder", ".yaml", "container:\n  shape: cylinder\n  size: [0, 0, 0, 0, 0, 1, 1]\n  periodicity: x\n", errors.ErrCodeUnsupportedShape},
		{"box size", ".yaml", "container:\n  size: [0, 0, 1]\n", errors.ErrCodeConfiguration},
		{"container scaling", ".yaml", "container:\n  scaling_factor: -2\n", errors.ErrCodeConfiguration},
		{"periodicity", ".yaml", "container:\n  periodicity: xw\n", errors.ErrCodeConfiguration},
		{"stack method", ".yaml", "container:\n  stack_method: random\n", errors.ErrCodeConfiguration},
		{"linked lengths", ".yaml", "container:\n  linked: true\n  inlet_length: 1\n", errors.ErrCodeConfiguration},
		{"mesh size", ".yaml", "mesh:\n  size: -1\n", errors.ErrCodeConfiguration},
		{"size method", ".yaml", "mesh:\n  size_method: adaptive\n", errors.ErrCodeConfiguration},
		{"generate", ".yaml", "mesh:\n  generate: 4\n", errors.ErrCodeConfiguration},
		{"factors", ".yaml", "mesh:\n  field:\n    threshold:\n      rad_min_factor: 2\n", errors.ErrCodeConfiguration},
		{"provenance", ".yaml", "output:\n  provenance: graph.png\n", errors.ErrCodeConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.ext)
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("Parse() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestBedParamsSelection(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantCount int
		wantBot   float64
	}{
		{"default selects by window", "packedbed:\n  zbot: 1\n", -1, 1},
		{"zero keeps no records", "packedbed:\n  nbeads: 0\n  zbot: 1\n", 0, 1},
		{"count overrides window", "packedbed:\n  nbeads: 12\n", 12, math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.data), ".yaml")
			if err != nil {
				t.Fatal(err)
			}
			p := cfg.BedParams()
			if p.Count != tt.wantCount || p.ZBot != tt.wantBot {
				t.Errorf("BedParams() = %+v, want count %d and zbot %g", p, tt.wantCount, tt.wantBot)
			}
		})
	}
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil, ".yml")
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.normalize()
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("empty config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadResolvesPackingPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "case.toml")
	if err := os.WriteFile(path, []byte(sampleTOML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := cfg.PackedBed.PackingFile.Filename, filepath.Join(dir, "beads.xyzd"); got != want {
		t.Errorf("packing path = %s, want %s", got, want)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, errors.ErrCodeConfiguration) {
		t.Errorf("Load(missing) = %v, want CONFIGURATION", err)
	}
}
