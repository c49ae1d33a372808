package detector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chazu/drcal/pkg/config"
	"github.com/chazu/drcal/pkg/kernel"
	"github.com/chazu/drcal/pkg/kernel/sdfx"
	"github.com/chazu/drcal/pkg/lattice"
	"github.com/chazu/drcal/pkg/logger"
	"github.com/chazu/drcal/pkg/placement"
	"github.com/chazu/drcal/pkg/volume"
)

func gridConfig() config.Config {
	cfg := config.Default()
	cfg.Layout.Kind = config.LayoutGrid
	return cfg
}

func build(t *testing.T, cfg config.Config) *Result {
	t.Helper()
	c, err := New(cfg, sdfx.New(), nil, nil)
	require.NoError(t, err)
	res, err := c.Build(context.Background())
	require.NoError(t, err)
	return res
}

func TestWedgeModuleTable(t *testing.T) {
	mods := WedgeModules()
	require.Len(t, mods, 12)

	k := sdfx.New()
	for i, m := range mods {
		assert.Equal(t, i, m.Index)
		assert.Equal(t, moduleName(i), m.Name)

		s, err := m.Build(k)
		require.NoError(t, err, m.Name)
		lat, err := lattice.Generate(m.Footprint(), s, lattice.DefaultOptions())
		require.NoError(t, err, m.Name)
		assert.Positive(t, len(lat.Sites), m.Name)
	}

	assert.InDelta(t, 500.225051, mods[4].Depth, 1e-6)
	assert.Equal(t, 60.0, mods[9].Height)
	assert.Equal(t, 45.0, mods[9].Width)
}

func TestWingCuts(t *testing.T) {
	k := sdfx.New()
	z := 249.9
	tests := []struct {
		name  string
		build func(kernel.Kernel) (kernel.Solid, error)
		p     [3]float64
		want  kernel.Containment
	}{
		{"top keeps right flank", wingTop, [3]float64{25, 10, z}, kernel.Inside},
		{"top removes centre column", wingTop, [3]float64{0, 20, z}, kernel.Outside},
		{"top removes left of -15", wingTop, [3]float64{-20, -20, z}, kernel.Outside},
		{"top notch", wingTop, [3]float64{9, -16.5, z}, kernel.Outside},
		{"left keeps low side", wingLeft, [3]float64{0, -20, z}, kernel.Inside},
		{"left removes high side", wingLeft, [3]float64{0, 20, z}, kernel.Outside},
		{"right keeps high side", wingRight, [3]float64{0, 20, z}, kernel.Inside},
		{"right removes low side", wingRight, [3]float64{0, -20, z}, kernel.Outside},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := tt.build(k)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Inside(tt.p))
		})
	}
}

func TestGridModules(t *testing.T) {
	cfg := gridConfig()
	cfg.Layout.Rows, cfg.Layout.Columns = 2, 3
	cfg.Layout.ModuleHeight, cfg.Layout.ModuleWidth = 30, 24
	mods := GridModules(cfg)
	require.Len(t, mods, 6)

	s, err := mods[5].Build(sdfx.New())
	require.NoError(t, err)
	lo, hi := s.BoundingBox()
	assert.InDelta(t, -15.0, lo[0], 1e-9)
	assert.InDelta(t, 12.0, hi[1], 1e-9)
	for _, m := range mods {
		assert.Equal(t, 24.0, m.Width)
		assert.Equal(t, 30.0, m.Height)
		assert.Equal(t, cfg.Tower.Depth, m.Depth)
	}

	_, err = ModulesFor(config.Config{Layout: config.Layout{Kind: "ring"}})
	assert.Error(t, err)
}

func TestDefaultWedgeBuild(t *testing.T) {
	res := build(t, config.Default())
	require.Len(t, res.Modules, 12)

	world := res.Geometry.World.Logical
	assert.Len(t, world.Daughters, 12)
	for _, m := range res.Modules {
		require.NotNil(t, m.Placement, m.Name)
		assert.Len(t, m.Logical.Daughters, len(m.Lattice.Sites), m.Name)
		assert.Len(t, m.Channels, len(m.Lattice.Sites), m.Name)
		assert.Equal(t, "Copper", m.Material.Name)
	}
	assert.Len(t, res.Modules[0].Lattice.Sites, 400)
	assert.Len(t, res.Modules[1].Lattice.Sites, 720)
	assert.Zero(t, res.Registry.Len())
}

// Channels are clipped to a tapering outer solid, so their origins can
// fall outside the module while the clad itself stays inside.
func TestWedgeBuildHasNoWarnings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"default", func(*config.Config) {}},
		{"with readout layers", func(c *config.Config) {
			c.Toggles.Sensor = true
			c.Toggles.Reflector = true
		}},
		{"index addressed layers", func(c *config.Config) {
			c.Toggles.Sensor = true
			c.Toggles.Reflector = true
			c.Sensor.Addressing = config.AddressingIndex
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)

			core, logs := observer.New(zapcore.WarnLevel)
			c, err := New(cfg, sdfx.New(), nil, logger.FromZap(zap.New(core)))
			require.NoError(t, err)
			res, err := c.Build(context.Background())
			require.NoError(t, err)

			assert.Empty(t, res.Warnings)
			assert.Zero(t, logs.FilterMessage("validation").Len())
		})
	}
}

func TestGridBuildIsClean(t *testing.T) {
	cfg := gridConfig()
	cfg.Toggles.Sensor = true
	cfg.Toggles.Reflector = true
	res := build(t, cfg)

	require.Len(t, res.Modules, 4)
	assert.Empty(t, res.Warnings)
	for _, m := range res.Modules {
		assert.Len(t, m.Lattice.Sites, 256)
	}
}

func TestSensorLayerCoordinateAddressing(t *testing.T) {
	cfg := gridConfig()
	cfg.Toggles.Sensor = true
	res := build(t, cfg)

	require.Equal(t, 4, res.Registry.Len())
	for _, m := range res.Modules {
		s := m.Sensor
		require.NotNil(t, s)
		lat := m.Lattice
		assert.Equal(t, len(lat.Sites), s.Cells.Count)
		assert.Equal(t, lat.Count(lattice.Scintillation), s.Filters.Count)
		assert.Equal(t, "SiPMSurf", s.Cathode.SkinSurface.Name)

		want := m.Pose.Translation.Z + m.Depth/2 + (cfg.Layers.PMT+cfg.Layers.Filter)/2
		assert.InDelta(t, want, s.Placement.Pose.Translation.Z, 1e-9)

		sd, ok := res.Registry.Lookup(m.Name)
		require.True(t, ok)
		assert.Same(t, s.Cathode, sd.Logical)
		assert.Equal(t, [2]int{16, 16}, sd.Property.TowerXY)
		assert.Equal(t, m.Index, sd.Property.ModuleNum)
	}

	require.Len(t, res.Geometry.BorderSurfaces, 4)
	assert.Equal(t, "FilterSurf", res.Geometry.BorderSurfaces[0].Surface.Name)

	sd, _ := res.Registry.Lookup("Module3")
	assert.Equal(t, "ModuleC3", sd.Collection)
}

func TestSensorRegistersOnePerWedgeModule(t *testing.T) {
	cfg := config.Default()
	cfg.Toggles.Sensor = true
	cfg.Toggles.Fiber = false
	res := build(t, cfg)

	dets := res.Registry.Detectors()
	require.Len(t, dets, 12)
	for i, d := range dets {
		assert.Equal(t, moduleName(i), d.Name)
	}
	sd, ok := res.Registry.Lookup("Module3")
	require.True(t, ok)
	assert.Equal(t, [2]int{30, 24}, sd.Property.TowerXY)
}

func TestIndexAddressing(t *testing.T) {
	cfg := gridConfig()
	cfg.Toggles.Sensor = true
	cfg.Toggles.Reflector = true
	cfg.Sensor.Addressing = config.AddressingIndex
	res := build(t, cfg)

	cells := cfg.Sensor.Columns * cfg.Sensor.Rows
	for _, m := range res.Modules {
		assert.Equal(t, cells, m.Sensor.Cells.Count)
		assert.Equal(t, cells, m.Sensor.Filters.Count+m.Reflector.Mirrors.Count)
	}
}

func TestReflectorLayer(t *testing.T) {
	cfg := gridConfig()
	cfg.Toggles.Reflector = true
	res := build(t, cfg)

	for _, m := range res.Modules {
		r := m.Reflector
		require.NotNil(t, r)
		assert.Equal(t, m.Lattice.Count(lattice.Cherenkov), r.Mirrors.Count)
		assert.Equal(t, "MirrorSurf", r.Mirror.SkinSurface.Name)
		assert.Equal(t, "G4_Galactic", r.Layer.Material.Name)
		want := m.Pose.Translation.Z - m.Depth/2 - cfg.Layers.Reflector/2
		assert.InDelta(t, want, r.Placement.Pose.Translation.Z, 1e-9)
	}
}

func TestPlaceToggleOff(t *testing.T) {
	cfg := gridConfig()
	cfg.Toggles.Place = false
	cfg.Toggles.Sensor = true
	res := build(t, cfg)

	assert.Empty(t, res.Geometry.World.Logical.Daughters)
	for _, m := range res.Modules {
		assert.Nil(t, m.Placement)
		assert.Nil(t, m.Sensor.Placement)
		assert.NotEmpty(t, m.Lattice.Sites)
	}
	n, err := res.Geometry.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFiberToggleOff(t *testing.T) {
	cfg := gridConfig()
	cfg.Toggles.Fiber = false
	res := build(t, cfg)
	for _, m := range res.Modules {
		assert.Empty(t, m.Logical.Daughters)
		assert.Nil(t, m.Channels)
	}
}

func TestBuildErrors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		cfg := config.Default()
		cfg.Fiber.Pitch = 0
		_, err := New(cfg, sdfx.New(), nil, nil)
		assert.Error(t, err)
	})

	t.Run("no kernel", func(t *testing.T) {
		_, err := New(config.Default(), nil, nil, nil)
		assert.Error(t, err)
	})

	t.Run("empty lattice", func(t *testing.T) {
		cfg := gridConfig()
		cfg.Layout.ModuleWidth, cfg.Layout.ModuleHeight = 1, 1
		c, err := New(cfg, sdfx.New(), nil, nil)
		require.NoError(t, err)
		_, err = c.Build(context.Background())
		assert.ErrorIs(t, err, lattice.ErrEmptyLattice)
	})

	t.Run("overlapping channels", func(t *testing.T) {
		cfg := gridConfig()
		cfg.Fiber.Pitch = 0.8
		c, err := New(cfg, sdfx.New(), nil, nil)
		require.NoError(t, err)
		_, err = c.Build(context.Background())
		var overlap *lattice.OverlapError
		assert.True(t, errors.As(err, &overlap))
	})

	t.Run("cancelled", func(t *testing.T) {
		c, err := New(gridConfig(), sdfx.New(), nil, nil)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = c.Build(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("second build duplicates detectors", func(t *testing.T) {
		cfg := gridConfig()
		cfg.Toggles.Sensor = true
		c, err := New(cfg, sdfx.New(), nil, nil)
		require.NoError(t, err)
		_, err = c.Build(context.Background())
		require.NoError(t, err)
		_, err = c.Build(context.Background())
		assert.ErrorIs(t, err, ErrDuplicateDetector)
	})
}

func TestModuleLattice(t *testing.T) {
	c, err := New(config.Default(), sdfx.New(), nil, nil)
	require.NoError(t, err)

	spec, lat, err := c.ModuleLattice(1)
	require.NoError(t, err)
	assert.Equal(t, "Module1", spec.Name)
	assert.Len(t, lat.Sites, 720)
	assert.Zero(t, c.Registry().Len())

	_, _, err = c.ModuleLattice(12)
	assert.ErrorIs(t, err, placement.ErrIndexOutOfRange)
	_, _, err = c.ModuleLattice(-1)
	assert.ErrorIs(t, err, placement.ErrIndexOutOfRange)
}

func TestRegistry(t *testing.T) {
	r := NewSensitiveRegistry()
	l := volume.NewLogical("cathode", nil, nil)
	require.NoError(t, r.Register(SensitiveDetector{Name: "Module0", Collection: "ModuleC0", Logical: l}))
	assert.ErrorIs(t, r.Register(SensitiveDetector{Name: "Module0", Logical: l}), ErrDuplicateDetector)
	assert.Error(t, r.Register(SensitiveDetector{Name: "Module1"}))

	_, ok := r.Lookup("Module1")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestBuildLogsEveryModule(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	c, err := New(gridConfig(), sdfx.New(), nil, logger.FromZap(zap.New(core)))
	require.NoError(t, err)
	_, err = c.Build(context.Background())
	require.NoError(t, err)

	built := logs.FilterMessage("module built").All()
	require.Len(t, built, 4)
	for i, e := range built {
		fields := e.ContextMap()
		assert.Equal(t, int64(i), fields["module"])
		assert.Equal(t, "grid", fields["layout"])
		assert.Equal(t, int64(256), fields["sites"])
	}
}
