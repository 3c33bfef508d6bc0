// Package config loads and validates the build configuration.
//
// A configuration file is TOML (.toml) or YAML (.yaml, .yml) with four
// sections: packedbed, container, mesh and output. Keys missing from the file
// keep the values of [Default]. [Config.Validate] checks every choice and
// range before any geometry is built, so a bad key fails the run immediately
// with a CONFIGURATION error naming it.
//
//	packedbed:
//	  packing_file:
//	    filename: packing.xyzd
//	    dataformat: "<d"
//	  zbot: 0
//	  ztop: 10
//	container:
//	  shape: box
//	  size: [-2, -2, 0, 4, 4, 10]
//	  periodicity: xy
//	  stack_method: planecut
//	mesh:
//	  size: 0.2
//	output:
//	  filename: output.json
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/packmesh/pkg/errors"
)

// Config is the complete build configuration.
type Config struct {
	PackedBed PackedBed `toml:"packedbed" yaml:"packedbed"`
	Container Container `toml:"container" yaml:"container"`
	Mesh      Mesh      `toml:"mesh" yaml:"mesh"`
	Output    Output    `toml:"output" yaml:"output"`
}

// PackingFile locates the binary packing.
type PackingFile struct {
	Filename   string `toml:"filename" yaml:"filename"`
	DataFormat string `toml:"dataformat" yaml:"dataformat"`
}

// Particles holds per-particle adjustments.
type Particles struct {
	ScalingFactor float64 `toml:"scaling_factor" yaml:"scaling_factor"`
}

// PackedBed selects and scales the beads.
type PackedBed struct {
	PackingFile PackingFile `toml:"packing_file" yaml:"packing_file"`
	// ZBot and ZTop bound the z window in model units. Unset means
	// unbounded on that side.
	ZBot *float64 `toml:"zbot" yaml:"zbot"`
	ZTop *float64 `toml:"ztop" yaml:"ztop"`
	// NBeads keeps the first NBeads records when non-negative, ignoring the
	// window. The default -1 selects by window.
	NBeads        int       `toml:"nbeads" yaml:"nbeads"`
	ScalingFactor float64   `toml:"scaling_factor" yaml:"scaling_factor"`
	Particles     Particles `toml:"particles" yaml:"particles"`
	AutoTranslate bool      `toml:"auto_translate" yaml:"auto_translate"`
}

// Container describes the column and its linked sections.
type Container struct {
	Shape string `toml:"shape" yaml:"shape"`
	// Size is {x0,y0,z0,dx,dy,dz} for a box and {x0,y0,z0,ax,ay,az,r} for a
	// cylinder. An empty box size is derived from the bed bounds.
	Size []float64 `toml:"size" yaml:"size"`
	// ScalingFactor scales an explicit size about the origin, so a size
	// written in packing units follows packedbed.scaling_factor.
	ScalingFactor float64   `toml:"scaling_factor" yaml:"scaling_factor"`
	Periodicity   string    `toml:"periodicity" yaml:"periodicity"`
	Linked        bool      `toml:"linked" yaml:"linked"`
	StackMethod   string    `toml:"stack_method" yaml:"stack_method"`
	InletLength   float64   `toml:"inlet_length" yaml:"inlet_length"`
	OutletLength  float64   `toml:"outlet_length" yaml:"outlet_length"`
}

// Threshold grades the element size around each bead.
type Threshold struct {
	SizeIn       float64 `toml:"size_in" yaml:"size_in"`
	SizeOut      float64 `toml:"size_out" yaml:"size_out"`
	RadMinFactor float64 `toml:"rad_min_factor" yaml:"rad_min_factor"`
	RadMaxFactor float64 `toml:"rad_max_factor" yaml:"rad_max_factor"`
}

// Field groups the size field settings.
type Field struct {
	Threshold Threshold `toml:"threshold" yaml:"threshold"`
}

// Mesh controls sizing and generation.
type Mesh struct {
	Size       float64 `toml:"size" yaml:"size"`
	SizeMethod string  `toml:"size_method" yaml:"size_method"`
	Generate   int     `toml:"generate" yaml:"generate"`
	Field      Field   `toml:"field" yaml:"field"`
}

// Output names the files written by a build.
type Output struct {
	Filename string `toml:"filename" yaml:"filename"`
	// Packing, when set, receives the stacked packing.
	Packing string `toml:"packing" yaml:"packing"`
	// Provenance, when set, receives the stacking provenance graph as .dot
	// or .svg.
	Provenance string `toml:"provenance" yaml:"provenance"`
}

// Mesh size methods.
const (
	SizeGlobal = "global"
	SizeField  = "field"
)

// Default returns the configuration used for keys a file leaves out.
func Default() *Config {
	return &Config{
		PackedBed: PackedBed{
			PackingFile:   PackingFile{Filename: "packing.xyzd", DataFormat: "<d"},
			NBeads:        -1,
			ScalingFactor: 1,
			Particles:     Particles{ScalingFactor: 1},
		},
		Container: Container{Shape: "box", ScalingFactor: 1, StackMethod: "planecut"},
		Mesh: Mesh{
			Size:       0.2,
			SizeMethod: SizeGlobal,
			Generate:   3,
			Field:      Field{Threshold: Threshold{RadMinFactor: 1, RadMaxFactor: 1}},
		},
		Output: Output{Filename: "output.json"},
	}
}

// Load reads the file at path, choosing the decoder by extension.
// Relative packing paths are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "read config %s", path)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if p := cfg.PackedBed.PackingFile.Filename; p != "" && !filepath.IsAbs(p) {
		cfg.PackedBed.PackingFile.Filename = filepath.Join(filepath.Dir(path), p)
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext (".toml", ".yaml" or
// ".yml") over the defaults and validates the result.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "parse TOML")
		}
		if undec := md.Undecoded(); len(undec) > 0 {
			return nil, errors.New(errors.ErrCodeConfiguration, "unknown key %s", undec[0])
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "parse YAML")
		}
	default:
		return nil, errors.New(errors.ErrCodeConfiguration, "unsupported config format %q (want .toml, .yaml or .yml)", ext)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize fills the values that default to other keys.
func (c *Config) normalize() {
	if c.Container.Shape == "" {
		c.Container.Shape = "box"
	}
	c.Container.Periodicity = strings.ToLower(c.Container.Periodicity)
	th := &c.Mesh.Field.Threshold
	if th.SizeIn == 0 {
		th.SizeIn = c.Mesh.Size
	}
	if th.SizeOut == 0 {
		th.SizeOut = c.Mesh.Size
	}
}
