package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/chazu/drcal/pkg/config"
	"github.com/chazu/drcal/pkg/detector"
	"github.com/chazu/drcal/pkg/engine"
	"github.com/chazu/drcal/pkg/kernel"
	"github.com/chazu/drcal/pkg/kernel/sdfx"
	"github.com/chazu/drcal/pkg/lattice"
	"github.com/chazu/drcal/pkg/logger"
	"github.com/chazu/drcal/pkg/tessellate"
)

// colorPalette is used for meshes whose volume carries no colour.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App wires the macro engine, the geometry kernel and the construction
// root together. The cobra commands are thin wrappers around it.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	log    *logger.Logger
}

// MeshData is the JSON mesh format written by build --mesh-out.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Volume   string    `json:"volume"`
	Material string    `json:"material,omitempty"`
	Color    string    `json:"color"`
}

// NewApp creates an App with a fresh engine and the sdfx kernel.
func NewApp(log *logger.Logger) *App {
	if log == nil {
		log = logger.Nop()
	}
	return &App{
		engine: engine.NewEngine(),
		kernel: sdfx.New(),
		log:    log,
	}
}

// LoadConfig starts from the defaults, overlays the YAML file at
// configPath and then runs the macro at macroPath. Empty paths are
// skipped. Macro errors are joined and carry their line numbers.
func (a *App) LoadConfig(configPath, macroPath string) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath, cfg); err != nil {
			return config.Config{}, err
		}
	}
	if macroPath == "" {
		return cfg, nil
	}

	out, evalErrs, err := a.engine.EvaluateFile(macroPath, cfg)
	if err != nil {
		return config.Config{}, err
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = e
		}
		return config.Config{}, fmt.Errorf("macro %s: %w", macroPath, errors.Join(errs...))
	}
	return out, nil
}

// Build runs the construction for cfg.
func (a *App) Build(ctx context.Context, cfg config.Config) (*detector.Result, error) {
	c, err := detector.New(cfg, a.kernel, nil, a.log)
	if err != nil {
		return nil, err
	}
	res, err := c.Build(ctx)
	if err != nil {
		return nil, err
	}
	a.log.Info("build complete",
		"modules", len(res.Modules),
		"detectors", res.Registry.Len(),
		"warnings", len(res.Warnings))
	return res, nil
}

// Meshes tessellates res down to maxDepth and converts the kernel meshes
// to MeshData.
func (a *App) Meshes(res *detector.Result, maxDepth int) ([]MeshData, error) {
	meshes, err := tessellate.Tessellate(res.Geometry, a.kernel, tessellate.Options{MaxDepth: maxDepth})
	if err != nil {
		return nil, fmt.Errorf("tessellation failed: %w", err)
	}
	out := make([]MeshData, 0, len(meshes))
	for i, m := range meshes {
		out = append(out, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Volume:   m.Volume,
			Material: m.Material,
			Color:    meshColor(m.Color, i),
		})
	}
	return out, nil
}

// WriteMeshes encodes meshes to w as JSON.
func WriteMeshes(w io.Writer, meshes []MeshData) error {
	return json.NewEncoder(w).Encode(meshes)
}

// meshColor renders an RGBA colour as #rrggbb. A fully transparent
// colour means unset and falls back to the palette.
func meshColor(c [4]float64, i int) string {
	if c[3] == 0 {
		return colorPalette[i%len(colorPalette)]
	}
	ch := func(v float64) int {
		return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return fmt.Sprintf("#%02X%02X%02X", ch(c[0]), ch(c[1]), ch(c[2]))
}

// LatticeReport writes the site counts and class map of module i. Rows
// of the map are plates, columns are fibers; C marks a Cherenkov site,
// S a scintillation site and . a rejected candidate.
func (a *App) LatticeReport(w io.Writer, cfg config.Config, i int) error {
	c, err := detector.New(cfg, a.kernel, nil, a.log)
	if err != nil {
		return err
	}
	spec, lat, err := c.ModuleLattice(i)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s  %gx%gx%g\n", spec.Name, spec.Height, spec.Width, spec.Depth)
	fmt.Fprintf(w, "plates %d  fibers/plate %d  candidates %d  accepted %d\n",
		lat.PlateCount, lat.FibersPerPlate, lat.Candidates(), len(lat.Sites))
	fmt.Fprintf(w, "cherenkov %d  scintillation %d\n",
		lat.Count(lattice.Cherenkov), lat.Count(lattice.Scintillation))
	for _, row := range classMap(lat) {
		fmt.Fprintln(w, row)
	}
	return nil
}

// classMap renders the lattice as one string per plate.
func classMap(lat *lattice.Lattice) []string {
	grid := make([][]byte, lat.PlateCount)
	for p := range grid {
		grid[p] = []byte(strings.Repeat(".", lat.FibersPerPlate))
	}
	for _, s := range lat.Sites {
		mark := byte('S')
		if s.Class == lattice.Cherenkov {
			mark = 'C'
		}
		grid[s.Plate][s.Fiber] = mark
	}
	rows := make([]string, len(grid))
	for p, g := range grid {
		rows[p] = string(g)
	}
	return rows
}
