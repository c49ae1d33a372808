package placement

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/drcal/pkg/config"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrIndexOutOfRange is returned when a module index has no entry in the
// active layout.
var ErrIndexOutOfRange = errors.New("module index out of range")

// Layout maps module indices to poses. Implementations are pure: the same
// index always yields the same pose.
type Layout interface {
	Name() string
	Count() int
	Pose(index int) (Pose, error)
}

// New returns the layout selected by cfg.Layout.Kind.
func New(cfg config.Config) (Layout, error) {
	switch cfg.Layout.Kind {
	case config.LayoutWedge:
		return Wedge{
			FrontOffset: cfg.Tower.Front,
			TowerDepth:  cfg.Tower.Depth,
			HalfOffsetA: cfg.Tower.HalfOffsetA,
			HalfOffsetB: cfg.Tower.HalfOffsetB,
		}, nil
	case config.LayoutGrid:
		return Grid{
			Rows:         cfg.Layout.Rows,
			Columns:      cfg.Layout.Columns,
			ModuleWidth:  cfg.Layout.ModuleWidth,
			ModuleHeight: cfg.Layout.ModuleHeight,
			FrontOffset:  cfg.Tower.Front,
			TowerDepth:   cfg.Tower.Depth,
		}, nil
	}
	return nil, fmt.Errorf("placement: unknown layout %q", cfg.Layout.Kind)
}

func outOfRange(l Layout, index int) error {
	return fmt.Errorf("%s layout: index %d not in [0, %d): %w", l.Name(), index, l.Count(), ErrIndexOutOfRange)
}

// WedgeModuleCount is the number of modules in the wedge table.
const WedgeModuleCount = 12

// Wedge is the hand-specified arrangement of irregular modules around a
// central wedge. Modules 2, 3, 7 and 8 tilt about X by thetaA; module 4
// tilts about Y by thetaB, so that their slanted faces abut the centre.
type Wedge struct {
	FrontOffset float64
	TowerDepth  float64
	HalfOffsetA float64
	HalfOffsetB float64
}

func (w Wedge) Name() string { return config.LayoutWedge }

func (w Wedge) Count() int { return WedgeModuleCount }

// Tilts returns the two derived tilt angles in radians.
func (w Wedge) Tilts() (thetaA, thetaB float64) {
	return math.Atan(w.HalfOffsetA / w.TowerDepth), math.Atan(w.HalfOffsetB / w.TowerDepth)
}

func (w Wedge) Pose(index int) (Pose, error) {
	if index < 0 || index >= w.Count() {
		return Pose{}, outOfRange(w, index)
	}

	thetaA, thetaB := w.Tilts()
	half := w.TowerDepth / 2
	z := w.FrontOffset + half

	// Lateral offset of a module tilted by theta that sits next to the
	// 15-wide centre, measured at mid depth.
	side := func(theta, halfWidth float64) float64 {
		return 15 + half*math.Tan(theta) + halfWidth/math.Cos(theta)
	}

	switch index {
	case 0:
		return At(v3.Vec{X: 0, Y: 0, Z: z}), nil
	case 1:
		return At(v3.Vec{X: -33, Y: 0, Z: z}), nil
	case 2:
		return Pose{Translation: v3.Vec{X: 7.5, Y: -side(thetaA, 18), Z: z}, Axis: AxisX, Angle: -thetaA}, nil
	case 3:
		return Pose{Translation: v3.Vec{X: 7.5, Y: side(thetaA, 18), Z: z}, Axis: AxisX, Angle: thetaA}, nil
	case 4:
		return Pose{Translation: v3.Vec{X: side(thetaB, 22.5), Y: 0, Z: z}, Axis: AxisY, Angle: -thetaB}, nil
	case 5:
		return At(v3.Vec{X: -27, Y: 34.5, Z: z}), nil
	case 6:
		return At(v3.Vec{X: -27, Y: -34.5, Z: z}), nil
	case 7:
		return Pose{Translation: v3.Vec{X: 42, Y: -side(thetaA, 12), Z: z}, Axis: AxisX, Angle: -thetaA}, nil
	case 8:
		return Pose{Translation: v3.Vec{X: 42, Y: side(thetaA, 12), Z: z}, Axis: AxisX, Angle: thetaA}, nil
	default:
		// 9, 10 and 11 are the wing composites; they share the centre frame.
		return At(v3.Vec{X: 0, Y: 0, Z: z}), nil
	}
}

// Grid is a Rows x Columns array of identical cuboid modules, none of
// them rotated. Index i sits at row i/Columns, column i%Columns; rows
// advance along x by ModuleHeight and columns along y by ModuleWidth.
type Grid struct {
	Rows         int
	Columns      int
	ModuleWidth  float64
	ModuleHeight float64
	FrontOffset  float64
	TowerDepth   float64
}

func (g Grid) Name() string { return config.LayoutGrid }

func (g Grid) Count() int { return g.Rows * g.Columns }

// Cell returns the row and column of index.
func (g Grid) Cell(index int) (row, col int, err error) {
	if index < 0 || index >= g.Count() {
		return 0, 0, outOfRange(g, index)
	}
	return index / g.Columns, index % g.Columns, nil
}

func (g Grid) center(row, col int) (x, y float64) {
	h, w := g.ModuleHeight, g.ModuleWidth
	x = -h*float64(g.Rows)/2 + float64(row)*h + h/2
	y = -w*float64(g.Columns)/2 + float64(col)*w + w/2
	return x, y
}

func (g Grid) at(index int, z float64) (Pose, error) {
	row, col, err := g.Cell(index)
	if err != nil {
		return Pose{}, err
	}
	x, y := g.center(row, col)
	return At(v3.Vec{X: x, Y: y, Z: z}), nil
}

func (g Grid) Pose(index int) (Pose, error) {
	return g.at(index, g.FrontOffset+g.TowerDepth/2)
}

// SensorOrigin returns the pose of a sensor layer of the given thickness
// laid against the back face of module index.
func (g Grid) SensorOrigin(index int, thickness float64) (Pose, error) {
	return g.at(index, g.FrontOffset+g.TowerDepth+thickness/2)
}

// ReflectorOrigin returns the pose of a reflector layer of the given
// thickness laid against the front face of module index.
func (g Grid) ReflectorOrigin(index int, thickness float64) (Pose, error) {
	return g.at(index, g.FrontOffset-thickness/2)
}
