package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, LayoutWedge, cfg.Layout.Kind)
	assert.Equal(t, 1.5, cfg.Fiber.Pitch)
	assert.True(t, cfg.Toggles.Fiber)
	assert.True(t, cfg.Toggles.Place)
	assert.False(t, cfg.Toggles.Sensor)
	assert.False(t, cfg.Toggles.Reflector)
}

func TestParseOverlaysDefaults(t *testing.T) {
	data := []byte(`
layout:
  kind: grid
  rows: 3
  columns: 4
tower:
  depth: 400
toggles:
  sensor: true
`)
	cfg, err := Parse(data, Default())
	require.NoError(t, err)

	assert.Equal(t, LayoutGrid, cfg.Layout.Kind)
	assert.Equal(t, 3, cfg.Layout.Rows)
	assert.Equal(t, 4, cfg.Layout.Columns)
	assert.Equal(t, 24.0, cfg.Layout.ModuleWidth, "untouched keys keep defaults")
	assert.Equal(t, 400.0, cfg.Tower.Depth)
	assert.Equal(t, 7.5, cfg.Tower.HalfOffsetA)
	assert.True(t, cfg.Toggles.Sensor)
	assert.True(t, cfg.Toggles.Fiber)
	require.NoError(t, cfg.Validate())
}

func TestParseDoesNotMutateBase(t *testing.T) {
	base := Default()
	_, err := Parse([]byte("fiber:\n  pitch: 2\n"), base)
	require.NoError(t, err)
	assert.Equal(t, 1.5, base.Fiber.Pitch)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("layout: [unterminated"), Default())
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 8\n"), 0o644))

	cfg, err := Load(path, Default())
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), Default())
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown layout", func(c *Config) { c.Layout.Kind = "hex" }, `unknown kind "hex"`},
		{"grid without rows", func(c *Config) { c.Layout.Kind = LayoutGrid; c.Layout.Rows = 0 }, "positive rows and columns"},
		{"zero pitch", func(c *Config) { c.Fiber.Pitch = 0 }, "pitch must be positive"},
		{"core wider than clad", func(c *Config) { c.Fiber.ScintCoreRadius = 0.6 }, "scintillation core radius"},
		{"short fiber", func(c *Config) { c.Fiber.Length = 100 }, "shorter than the tower depth"},
		{"sample point outside module", func(c *Config) { c.Fiber.SampleInset = 300 }, "sample inset"},
		{"thick filter", func(c *Config) { c.Layers.Filter = 0.5 }, "filter thickness"},
		{"bad addressing", func(c *Config) { c.Sensor.Addressing = "hash" }, `unknown addressing "hash"`},
		{"index without grid", func(c *Config) { c.Sensor.Addressing = AddressingIndex; c.Sensor.Rows = 0 }, "index addressing"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateJoinsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Fiber.Pitch = -1
	cfg.Workers = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pitch")
	assert.Contains(t, err.Error(), "workers")
}
