// Package config holds the immutable run configuration for a detector
// build. A Config starts from Default, is optionally overlaid by a YAML
// file and a macro file, and is then passed by value to the construction
// root. Nothing mutates it after Validate succeeds.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layout kinds.
const (
	LayoutWedge = "wedge"
	LayoutGrid  = "grid"
)

// Secondary-layer addressing modes.
const (
	AddressingCoordinate = "coordinate"
	AddressingIndex      = "index"
)

// Config is the full set of inputs that shape a build.
type Config struct {
	Layout  Layout  `yaml:"layout"`
	Tower   Tower   `yaml:"tower"`
	Fiber   Fiber   `yaml:"fiber"`
	Layers  Layers  `yaml:"layers"`
	Toggles Toggles `yaml:"toggles"`
	Sensor  Sensor  `yaml:"sensor"`
	Workers int     `yaml:"workers"`
	Log     Log     `yaml:"log"`
}

// Layout selects the module arrangement. Rows, Columns and the module
// footprint only apply to the grid layout; the wedge layout carries its
// own fixed module table.
type Layout struct {
	Kind         string  `yaml:"kind"`
	Rows         int     `yaml:"rows"`
	Columns      int     `yaml:"columns"`
	ModuleWidth  float64 `yaml:"module_width"`
	ModuleHeight float64 `yaml:"module_height"`
}

// Tower describes the longitudinal extent of every module.
type Tower struct {
	Depth       float64 `yaml:"depth"`
	Front       float64 `yaml:"front"`
	HalfOffsetA float64 `yaml:"half_offset_a"`
	HalfOffsetB float64 `yaml:"half_offset_b"`
}

// Fiber describes the channel lattice and the clad/core tubes.
type Fiber struct {
	Pitch               float64 `yaml:"pitch"`
	CladRadius          float64 `yaml:"clad_radius"`
	CherenkovCoreRadius float64 `yaml:"cherenkov_core_radius"`
	ScintCoreRadius     float64 `yaml:"scint_core_radius"`
	Length              float64 `yaml:"length"`
	SampleInset         float64 `yaml:"sample_inset"`
	InvertClasses       bool    `yaml:"invert_classes"`
	CheckOverlap        bool    `yaml:"check_overlap"`
}

// Layers holds the thicknesses of the secondary layers.
type Layers struct {
	PMT       float64 `yaml:"pmt"`
	Filter    float64 `yaml:"filter"`
	Reflector float64 `yaml:"reflector"`
	Cell      float64 `yaml:"cell"`
}

// Toggles switch whole stages of the build on or off.
type Toggles struct {
	Fiber     bool `yaml:"fiber"`
	Reflector bool `yaml:"reflector"`
	Sensor    bool `yaml:"sensor"`
	Place     bool `yaml:"place"`
}

// Sensor selects how secondary layer sites are addressed. Columns and
// Rows size the fixed grid used by the index addressing mode.
type Sensor struct {
	Addressing string `yaml:"addressing"`
	Columns    int    `yaml:"columns"`
	Rows       int    `yaml:"rows"`
}

// Log configures the zap logger.
type Log struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

// Default returns the configuration of the studied wedge prototype.
func Default() Config {
	return Config{
		Layout: Layout{
			Kind:         LayoutWedge,
			Rows:         2,
			Columns:      2,
			ModuleWidth:  24,
			ModuleHeight: 24,
		},
		Tower: Tower{
			Depth:       500,
			Front:       0,
			HalfOffsetA: 7.5,
			HalfOffsetB: 15,
		},
		Fiber: Fiber{
			Pitch:               1.5,
			CladRadius:          0.5,
			CherenkovCoreRadius: 0.49,
			ScintCoreRadius:     0.485,
			Length:              1000,
			SampleInset:         0.1,
			CheckOverlap:        true,
		},
		Layers: Layers{
			PMT:       0.3,
			Filter:    0.01,
			Reflector: 0.03,
			Cell:      1.2,
		},
		Toggles: Toggles{
			Fiber: true,
			Place: true,
		},
		Sensor: Sensor{
			Addressing: AddressingCoordinate,
			Columns:    14,
			Rows:       11,
		},
		Workers: 4,
		Log: Log{
			Mode:  "dev",
			Level: "info",
		},
	}
}

// Load reads a YAML file and overlays it onto base. Keys missing from the
// file keep their base values.
func Load(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, base)
}

// Parse overlays YAML data onto base.
func Parse(data []byte, base Config) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Layout.Kind {
	case LayoutWedge:
	case LayoutGrid:
		if c.Layout.Rows <= 0 || c.Layout.Columns <= 0 {
			add("layout: grid needs positive rows and columns, got %dx%d", c.Layout.Rows, c.Layout.Columns)
		}
		if c.Layout.ModuleWidth <= 0 || c.Layout.ModuleHeight <= 0 {
			add("layout: module footprint must be positive, got %gx%g", c.Layout.ModuleWidth, c.Layout.ModuleHeight)
		}
	default:
		add("layout: unknown kind %q", c.Layout.Kind)
	}

	if c.Tower.Depth <= 0 {
		add("tower: depth must be positive, got %g", c.Tower.Depth)
	}
	if c.Tower.HalfOffsetA < 0 || c.Tower.HalfOffsetB < 0 {
		add("tower: half offsets must not be negative")
	}

	f := c.Fiber
	if f.Pitch <= 0 {
		add("fiber: pitch must be positive, got %g", f.Pitch)
	}
	if f.CladRadius <= 0 {
		add("fiber: clad radius must be positive, got %g", f.CladRadius)
	}
	if f.CherenkovCoreRadius <= 0 || f.CherenkovCoreRadius > f.CladRadius {
		add("fiber: cherenkov core radius %g must be in (0, %g]", f.CherenkovCoreRadius, f.CladRadius)
	}
	if f.ScintCoreRadius <= 0 || f.ScintCoreRadius > f.CladRadius {
		add("fiber: scintillation core radius %g must be in (0, %g]", f.ScintCoreRadius, f.CladRadius)
	}
	if f.Length < c.Tower.Depth {
		add("fiber: length %g is shorter than the tower depth %g", f.Length, c.Tower.Depth)
	}
	if f.SampleInset <= 0 || f.SampleInset >= c.Tower.Depth/2 {
		add("fiber: sample inset %g must be in (0, %g)", f.SampleInset, c.Tower.Depth/2)
	}

	l := c.Layers
	if l.PMT <= 0 || l.Filter <= 0 || l.Reflector <= 0 || l.Cell <= 0 {
		add("layers: thicknesses and cell size must be positive")
	}
	if l.Filter >= l.PMT {
		add("layers: filter thickness %g must be below the pmt thickness %g", l.Filter, l.PMT)
	}

	switch c.Sensor.Addressing {
	case AddressingCoordinate:
	case AddressingIndex:
		if c.Sensor.Columns <= 0 || c.Sensor.Rows <= 0 {
			add("sensor: index addressing needs positive columns and rows, got %dx%d", c.Sensor.Columns, c.Sensor.Rows)
		}
	default:
		add("sensor: unknown addressing %q", c.Sensor.Addressing)
	}

	if c.Workers <= 0 {
		add("workers must be positive, got %d", c.Workers)
	}

	return errors.Join(errs...)
}
