// Package detector is the construction root. It turns an immutable
// config.Config into a volume tree: one outer solid per module placed in
// a vacuum world, the module's fiber channels, and the optional sensor
// and reflector layers, with the sensor cathodes registered as sensitive
// detectors.
package detector

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/drcal/pkg/config"
	"github.com/chazu/drcal/pkg/kernel"
	"github.com/chazu/drcal/pkg/lattice"
	"github.com/chazu/drcal/pkg/logger"
	"github.com/chazu/drcal/pkg/material"
	"github.com/chazu/drcal/pkg/placement"
	"github.com/chazu/drcal/pkg/volume"
)

// WorldSize is the edge length of the cubic world volume.
const WorldSize = 20000.0

// maxLoggedWarnings bounds the validation warnings logged one by one.
const maxLoggedWarnings = 20

// Module is one built module.
type Module struct {
	Index    int
	Name     string
	Width    float64
	Height   float64
	Depth    float64
	Solid    kernel.Solid
	Pose     placement.Pose
	Material *material.Material
	Logical  *volume.Logical
	// Placement is nil when placement is toggled off.
	Placement *volume.Physical
	Lattice   *lattice.Lattice
	Channels  []lattice.Channel
	Sensor    *SensorLayer
	Reflector *ReflectorLayer
}

// Result is the outcome of a successful build.
type Result struct {
	Geometry *volume.Geometry
	Modules  []*Module
	Registry *SensitiveRegistry
	Warnings []volume.ValidationError
}

// Construction owns everything one build needs. It is built once: Build
// registers into the construction's registry, so a second Build with the
// sensor layer on fails with ErrDuplicateDetector.
type Construction struct {
	cfg      config.Config
	kernel   kernel.Kernel
	catalog  *material.Catalog
	registry *SensitiveRegistry
	log      *logger.Logger
}

// New validates cfg and returns a construction. A nil catalog selects
// material.Default and a nil logger discards output.
func New(cfg config.Config, k kernel.Kernel, cat *material.Catalog, log *logger.Logger) (*Construction, error) {
	if k == nil {
		return nil, errors.New("detector: no geometry kernel")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("detector: invalid config: %w", err)
	}
	if cat == nil {
		cat = material.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Construction{
		cfg:      cfg,
		kernel:   k,
		catalog:  cat,
		registry: NewSensitiveRegistry(),
		log:      log.With("layout", cfg.Layout.Kind),
	}, nil
}

// Registry returns the sensitive detectors registered so far.
func (c *Construction) Registry() *SensitiveRegistry {
	return c.registry
}

// Build assembles the geometry. Outer solids and lattices are computed
// concurrently, at most cfg.Workers modules at a time; volumes are then
// emitted in module order. Any error aborts the build and no partial
// geometry is returned.
func (c *Construction) Build(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	specs, err := ModulesFor(c.cfg)
	if err != nil {
		return nil, err
	}
	layout, err := placement.New(c.cfg)
	if err != nil {
		return nil, err
	}
	if layout.Count() != len(specs) {
		return nil, fmt.Errorf("detector: %s layout places %d modules, table has %d", layout.Name(), layout.Count(), len(specs))
	}

	galactic, err := c.catalog.Find(material.Galactic)
	if err != nil {
		return nil, fmt.Errorf("detector: world: %w", err)
	}
	copper, err := c.catalog.Find(material.Copper)
	if err != nil {
		return nil, fmt.Errorf("detector: module: %w", err)
	}
	var channels lattice.ChannelSpec
	if c.cfg.Toggles.Fiber {
		if channels, err = lattice.NewChannelSpec(c.catalog, c.cfg.Fiber); err != nil {
			return nil, fmt.Errorf("detector: %w", err)
		}
	}

	modules, err := c.generate(ctx, specs)
	if err != nil {
		return nil, err
	}

	world := volume.NewLogical("world", c.kernel.Box(WorldSize, WorldSize, WorldSize), galactic)
	geo := volume.NewGeometry(world)
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.Material = copper
		if err := c.assemble(geo, layout, m, channels); err != nil {
			return nil, fmt.Errorf("detector: module %d: %w", m.Index, err)
		}
	}

	result := volume.ValidateAll(geo)
	for i, w := range result.Warnings {
		if i == maxLoggedWarnings {
			c.log.Warn("further validation warnings suppressed", "total", len(result.Warnings))
			break
		}
		c.log.Warn("validation", "volume", w.Volume, "message", w.Message)
	}
	if !result.OK() {
		errs := make([]error, len(result.Errors))
		for i, e := range result.Errors {
			errs[i] = e
		}
		return nil, fmt.Errorf("detector: geometry validation: %w", errors.Join(errs...))
	}

	return &Result{
		Geometry: geo,
		Modules:  modules,
		Registry: c.registry,
		Warnings: result.Warnings,
	}, nil
}

// generate builds every module's outer solid and lattice.
func (c *Construction) generate(ctx context.Context, specs []ModuleSpec) ([]*Module, error) {
	opts := c.latticeOptions()
	modules := make([]*Module, len(specs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i, spec := range specs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			solid, err := spec.Build(c.kernel)
			if err != nil {
				return fmt.Errorf("detector: module %d: outer solid: %w", spec.Index, err)
			}
			lat, err := lattice.Generate(spec.Footprint(), solid, opts)
			if err != nil {
				return fmt.Errorf("detector: module %d: %w", spec.Index, err)
			}
			modules[i] = &Module{
				Index:   spec.Index,
				Name:    spec.Name,
				Width:   spec.Width,
				Height:  spec.Height,
				Depth:   spec.Depth,
				Solid:   solid,
				Lattice: lat,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return modules, nil
}

// ModuleLattice builds the outer solid and lattice of module i alone,
// without assembling any volumes.
func (c *Construction) ModuleLattice(i int) (ModuleSpec, *lattice.Lattice, error) {
	specs, err := ModulesFor(c.cfg)
	if err != nil {
		return ModuleSpec{}, nil, err
	}
	if i < 0 || i >= len(specs) {
		return ModuleSpec{}, nil, fmt.Errorf("detector: module %d not in [0, %d): %w", i, len(specs), placement.ErrIndexOutOfRange)
	}
	spec := specs[i]
	solid, err := spec.Build(c.kernel)
	if err != nil {
		return ModuleSpec{}, nil, fmt.Errorf("detector: module %d: outer solid: %w", i, err)
	}
	lat, err := lattice.Generate(spec.Footprint(), solid, c.latticeOptions())
	if err != nil {
		return ModuleSpec{}, nil, fmt.Errorf("detector: module %d: %w", i, err)
	}
	return spec, lat, nil
}

func (c *Construction) latticeOptions() lattice.Options {
	opts := lattice.Options{
		Pitch:         c.cfg.Fiber.Pitch,
		SampleInset:   c.cfg.Fiber.SampleInset,
		InvertClasses: c.cfg.Fiber.InvertClasses,
	}
	if c.cfg.Fiber.CheckOverlap {
		opts.ChannelDiameter = 2 * c.cfg.Fiber.CladRadius
	}
	return opts
}

// assemble places module m and everything it carries.
func (c *Construction) assemble(geo *volume.Geometry, layout placement.Layout, m *Module, channels lattice.ChannelSpec) error {
	pose, err := layout.Pose(m.Index)
	if err != nil {
		return err
	}
	m.Pose = pose
	m.Logical = volume.NewLogical(m.Name, m.Solid, m.Material)
	if c.cfg.Toggles.Place {
		m.Placement = geo.World.Logical.Place(m.Name, m.Logical, pose, 0)
	}

	lat := m.Lattice
	log := c.log.With("module", m.Index)
	log.Info("module built",
		"name", m.Name,
		"fibers", lat.FibersPerPlate,
		"plates", lat.PlateCount,
		"sites", len(lat.Sites),
	)

	if c.cfg.Toggles.Fiber {
		if m.Channels, err = lattice.EmitChannels(c.kernel, m.Logical, m.Solid, lat, channels); err != nil {
			return err
		}
		log.Debug("channels emitted",
			"cherenkov", lat.Count(lattice.Cherenkov),
			"scintillation", lat.Count(lattice.Scintillation),
		)
	}
	if c.cfg.Toggles.Sensor {
		if m.Sensor, err = c.buildSensor(geo, m); err != nil {
			return fmt.Errorf("sensor layer: %w", err)
		}
		plates, fibers := lat.TowerXY()
		if err := c.registry.Register(SensitiveDetector{
			Name:       m.Name,
			Collection: fmt.Sprintf("ModuleC%d", m.Index),
			Logical:    m.Sensor.Cathode,
			Property:   ModuleProperty{TowerXY: [2]int{plates, fibers}, ModuleNum: m.Index},
		}); err != nil {
			return err
		}
	}
	if c.cfg.Toggles.Reflector {
		if m.Reflector, err = c.buildReflector(geo, m); err != nil {
			return fmt.Errorf("reflector layer: %w", err)
		}
	}
	return nil
}
