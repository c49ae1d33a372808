package detector

import (
	"fmt"

	"github.com/chazu/drcal/pkg/config"
	"github.com/chazu/drcal/pkg/kernel"
	"github.com/chazu/drcal/pkg/lattice"
)

// ModuleSpec describes one module before it is built: its lattice
// footprint and a recipe for its outer solid in the module frame.
type ModuleSpec struct {
	Index  int
	Name   string
	Width  float64 // along y
	Height float64 // along x
	Depth  float64
	Build  func(k kernel.Kernel) (kernel.Solid, error)
}

// Footprint returns the lattice footprint of the module.
func (s ModuleSpec) Footprint() lattice.Footprint {
	return lattice.Footprint{Width: s.Width, Height: s.Height, Depth: s.Depth}
}

func moduleName(i int) string {
	return fmt.Sprintf("Module%d", i)
}

const (
	wedgeDepth = 500.0
	// Half depth of the tilted trapezoid, long enough for its slanted
	// faces to meet the neighbouring boxes.
	trapHalfDepth = 250.1125255
	// Cut boxes run past both faces of every module.
	cutDepth = 600.0
	wingUnit = 1.5
)

func boxModule(index int, height, width float64) ModuleSpec {
	return ModuleSpec{
		Index:  index,
		Name:   moduleName(index),
		Width:  width,
		Height: height,
		Depth:  wedgeDepth,
		Build: func(k kernel.Kernel) (kernel.Solid, error) {
			return k.Box(height, width, wedgeDepth), nil
		},
	}
}

// WedgeModules returns the twelve modules of the wedge prototype: a
// central box, its box and trapezoid neighbours, and three wing
// composites cut from a common widening trapezoid.
func WedgeModules() []ModuleSpec {
	mods := []ModuleSpec{
		boxModule(0, 30, 30),
		boxModule(1, 36, 45),
		boxModule(2, 45, 36),
		boxModule(3, 45, 36),
		{
			Index:  4,
			Name:   moduleName(4),
			Width:  45,
			Height: 45,
			Depth:  2 * trapHalfDepth,
			Build: func(k kernel.Kernel) (kernel.Solid, error) {
				return k.Trap(trapVertices(22.5, 15, 22.5, 22.5, trapHalfDepth))
			},
		},
		boxModule(5, 24, 24),
		boxModule(6, 24, 24),
		boxModule(7, 24, 24),
		boxModule(8, 24, 24),
	}
	for i, build := range []func(kernel.Kernel) (kernel.Solid, error){wingTop, wingLeft, wingRight} {
		mods = append(mods, ModuleSpec{
			Index:  9 + i,
			Name:   moduleName(9 + i),
			Width:  45,
			Height: 60,
			Depth:  wedgeDepth,
			Build:  build,
		})
	}
	return mods
}

// GridModules returns Rows x Columns identical boxes sized by the
// configured module footprint and tower depth.
func GridModules(cfg config.Config) []ModuleSpec {
	n := cfg.Layout.Rows * cfg.Layout.Columns
	mods := make([]ModuleSpec, 0, n)
	h, w, d := cfg.Layout.ModuleHeight, cfg.Layout.ModuleWidth, cfg.Tower.Depth
	for i := 0; i < n; i++ {
		mods = append(mods, ModuleSpec{
			Index:  i,
			Name:   moduleName(i),
			Width:  w,
			Height: h,
			Depth:  d,
			Build: func(k kernel.Kernel) (kernel.Solid, error) {
				return k.Box(h, w, d), nil
			},
		})
	}
	return mods
}

// ModulesFor returns the module table matching cfg.Layout.Kind.
func ModulesFor(cfg config.Config) ([]ModuleSpec, error) {
	switch cfg.Layout.Kind {
	case config.LayoutWedge:
		return WedgeModules(), nil
	case config.LayoutGrid:
		return GridModules(cfg), nil
	}
	return nil, fmt.Errorf("detector: unknown layout %q", cfg.Layout.Kind)
}

// trapVertices returns the corners of a hexahedron whose back (-z) face
// is 2*bx by 2*by and whose front (+z) face is 2*fx by 2*fy.
func trapVertices(bx, by, fx, fy, halfDepth float64) [8][3]float64 {
	return [8][3]float64{
		{-bx, -by, -halfDepth}, {bx, -by, -halfDepth}, {-bx, by, -halfDepth}, {bx, by, -halfDepth},
		{-fx, -fy, halfDepth}, {fx, -fy, halfDepth}, {-fx, fy, halfDepth}, {fx, fy, halfDepth},
	}
}

// wingOrigin is the trapezoid shared by the wings, with the centre
// module's column and everything left of x = -15 removed.
func wingOrigin(k kernel.Kernel) (kernel.Solid, error) {
	trap, err := k.Trap(trapVertices(15, 15, 30, 22.5, wedgeDepth/2))
	if err != nil {
		return nil, fmt.Errorf("wing origin: %w", err)
	}
	s := k.Difference(trap, k.Translate(k.Box(100, 100, cutDepth), -65, 0, 0))
	return k.Difference(s, k.Box(30, 30, cutDepth)), nil
}

// notch removes a 15x3 slot at every (column, row) pair, given in units
// of wingUnit.
func notch(k kernel.Kernel, s kernel.Solid, at [][2]float64) kernel.Solid {
	slot := k.Box(15, 3, cutDepth)
	for _, p := range at {
		s = k.Difference(s, k.Translate(slot, wingUnit*p[0], wingUnit*p[1], 0))
	}
	return s
}

func wingTop(k kernel.Kernel) (kernel.Solid, error) {
	s, err := wingOrigin(k)
	if err != nil {
		return nil, err
	}
	s = k.Difference(s, k.Box(30, 70, cutDepth))
	return notch(k, s, [][2]float64{
		{6, -11}, {8, -12}, {10, -13}, {12, -14}, {14, -15},
		{6, 11}, {8, 12}, {10, 13}, {12, 14}, {14, 15},
	}), nil
}

func wingLeft(k kernel.Kernel) (kernel.Solid, error) {
	s, err := wingOrigin(k)
	if err != nil {
		return nil, err
	}
	s = k.Difference(s, k.Translate(k.Box(70, 70, cutDepth), 0, 20, 0))
	return notch(k, s, [][2]float64{{16, -10}, {18, -11}, {20, -12}, {22, -13}, {24, -14}, {24, -15}}), nil
}

func wingRight(k kernel.Kernel) (kernel.Solid, error) {
	s, err := wingOrigin(k)
	if err != nil {
		return nil, err
	}
	s = k.Difference(s, k.Translate(k.Box(70, 70, cutDepth), 0, -20, 0))
	return notch(k, s, [][2]float64{{16, 10}, {18, 11}, {20, 12}, {22, 13}, {24, 14}, {24, 15}}), nil
}
