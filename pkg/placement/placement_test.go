package placement

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/drcal/pkg/config"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func defaultWedge() Wedge {
	return Wedge{FrontOffset: 0, TowerDepth: 500, HalfOffsetA: 7.5, HalfOffsetB: 15}
}

func assertVec(t *testing.T, want, got v3.Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
	assert.InDelta(t, want.Z, got.Z, tol, "z")
}

func TestNewSelectsLayout(t *testing.T) {
	cfg := config.Default()
	l, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, Wedge{}, l)
	assert.Equal(t, 12, l.Count())

	cfg.Layout.Kind = config.LayoutGrid
	cfg.Layout.Rows, cfg.Layout.Columns = 3, 5
	l, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, Grid{}, l)
	assert.Equal(t, 15, l.Count())

	cfg.Layout.Kind = "spiral"
	_, err = New(cfg)
	require.Error(t, err)
}

func TestWedgeOutOfRange(t *testing.T) {
	w := defaultWedge()
	for _, i := range []int{-1, 12, 100} {
		_, err := w.Pose(i)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange), "index %d", i)
		assert.Contains(t, err.Error(), "wedge")
	}
}

func TestWedgeTable(t *testing.T) {
	w := defaultWedge()
	thetaA := math.Atan(7.5 / 500)
	thetaB := math.Atan(15.0 / 500)
	sideA18 := 15 + 250*math.Tan(thetaA) + 18/math.Cos(thetaA)
	sideB := 15 + 250*math.Tan(thetaB) + 22.5/math.Cos(thetaB)
	sideA12 := 15 + 250*math.Tan(thetaA) + 12/math.Cos(thetaA)

	tests := []struct {
		index int
		want  Pose
	}{
		{0, Pose{Translation: v3.Vec{X: 0, Y: 0, Z: 250}}},
		{1, Pose{Translation: v3.Vec{X: -33, Y: 0, Z: 250}}},
		{2, Pose{Translation: v3.Vec{X: 7.5, Y: -sideA18, Z: 250}, Axis: AxisX, Angle: -thetaA}},
		{3, Pose{Translation: v3.Vec{X: 7.5, Y: sideA18, Z: 250}, Axis: AxisX, Angle: thetaA}},
		{4, Pose{Translation: v3.Vec{X: sideB, Y: 0, Z: 250}, Axis: AxisY, Angle: -thetaB}},
		{5, Pose{Translation: v3.Vec{X: -27, Y: 34.5, Z: 250}}},
		{6, Pose{Translation: v3.Vec{X: -27, Y: -34.5, Z: 250}}},
		{7, Pose{Translation: v3.Vec{X: 42, Y: -sideA12, Z: 250}, Axis: AxisX, Angle: -thetaA}},
		{8, Pose{Translation: v3.Vec{X: 42, Y: sideA12, Z: 250}, Axis: AxisX, Angle: thetaA}},
		{9, Pose{Translation: v3.Vec{X: 0, Y: 0, Z: 250}}},
		{10, Pose{Translation: v3.Vec{X: 0, Y: 0, Z: 250}}},
		{11, Pose{Translation: v3.Vec{X: 0, Y: 0, Z: 250}}},
	}
	for _, tt := range tests {
		got, err := w.Pose(tt.index)
		require.NoError(t, err, "index %d", tt.index)
		assertVec(t, tt.want.Translation, got.Translation)
		assert.Equal(t, tt.want.Axis, got.Axis, "index %d axis", tt.index)
		assert.InDelta(t, tt.want.Angle, got.Angle, tol, "index %d angle", tt.index)
	}

	// Spot check the literal value so a formula slip cannot hide behind
	// the same slip in the table above.
	p2, _ := w.Pose(2)
	assert.InDelta(t, -36.7520248, p2.Translation.Y, 1e-6)
}

func TestWedgeMirrorPairs(t *testing.T) {
	w := defaultWedge()
	for _, pair := range [][2]int{{2, 3}, {7, 8}, {5, 6}} {
		a, err := w.Pose(pair[0])
		require.NoError(t, err)
		b, err := w.Pose(pair[1])
		require.NoError(t, err)

		assert.InDelta(t, a.Translation.X, b.Translation.X, tol)
		assert.InDelta(t, -a.Translation.Y, b.Translation.Y, tol)
		assert.InDelta(t, a.Translation.Z, b.Translation.Z, tol)
		assert.Equal(t, a.Axis, b.Axis)
		assert.InDelta(t, -a.Angle, b.Angle, tol)
	}
}

func TestWedgeTiltsFollowTowerDepth(t *testing.T) {
	w := Wedge{FrontOffset: 100, TowerDepth: 1000, HalfOffsetA: 7.5, HalfOffsetB: 15}
	a, b := w.Tilts()
	assert.InDelta(t, math.Atan(0.0075), a, tol)
	assert.InDelta(t, math.Atan(0.015), b, tol)

	p, err := w.Pose(0)
	require.NoError(t, err)
	assert.InDelta(t, 600, p.Translation.Z, tol)
}

func TestWedgeModule4TiltsAboutY(t *testing.T) {
	p, err := defaultWedge().Pose(4)
	require.NoError(t, err)
	assert.Equal(t, AxisY, p.Axis)
	assert.True(t, p.IsRotated())

	x, y, z := p.EulerDegrees()
	assert.Zero(t, x)
	assert.Zero(t, z)
	assert.InDelta(t, math.Atan(0.03)*180/math.Pi, y, tol)
}

func TestGridTilesPlane(t *testing.T) {
	g := Grid{Rows: 3, Columns: 4, ModuleWidth: 24, ModuleHeight: 30, TowerDepth: 500}
	seen := make(map[[2]float64]bool)
	for i := 0; i < g.Count(); i++ {
		p, err := g.Pose(i)
		require.NoError(t, err)
		assert.False(t, p.IsRotated())
		assert.InDelta(t, 250, p.Translation.Z, tol)

		key := [2]float64{p.Translation.X, p.Translation.Y}
		assert.False(t, seen[key], "index %d duplicates a centre", i)
		seen[key] = true

		row, col, err := g.Cell(i)
		require.NoError(t, err)
		if col+1 < g.Columns {
			next, err := g.Pose(i + 1)
			require.NoError(t, err)
			assert.InDelta(t, g.ModuleWidth, next.Translation.Y-p.Translation.Y, tol)
			assert.InDelta(t, 0, next.Translation.X-p.Translation.X, tol)
		}
		if row+1 < g.Rows {
			below, err := g.Pose(i + g.Columns)
			require.NoError(t, err)
			assert.InDelta(t, g.ModuleHeight, below.Translation.X-p.Translation.X, tol)
		}
	}

	// The array is centred on the beam axis.
	var sx, sy float64
	for i := 0; i < g.Count(); i++ {
		p, _ := g.Pose(i)
		sx += p.Translation.X
		sy += p.Translation.Y
	}
	assert.InDelta(t, 0, sx, 1e-9)
	assert.InDelta(t, 0, sy, 1e-9)
}

func TestGridOutOfRange(t *testing.T) {
	g := Grid{Rows: 2, Columns: 2, ModuleWidth: 24, ModuleHeight: 24, TowerDepth: 500}
	_, err := g.Pose(4)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = g.SensorOrigin(-1, 0.3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = g.ReflectorOrigin(4, 0.03)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestGridLayerOriginsMatchOffsets(t *testing.T) {
	g := Grid{Rows: 2, Columns: 2, ModuleWidth: 24, ModuleHeight: 24, FrontOffset: 10, TowerDepth: 500}
	const pmt, refl = 0.31, 0.03
	for i := 0; i < g.Count(); i++ {
		p, err := g.Pose(i)
		require.NoError(t, err)

		sensor, err := g.SensorOrigin(i, pmt)
		require.NoError(t, err)
		assertVec(t, p.Offset(v3.Vec{Z: 250 + pmt/2}).Translation, sensor.Translation)
		assert.InDelta(t, 510+pmt/2, sensor.Translation.Z, tol)

		reflector, err := g.ReflectorOrigin(i, refl)
		require.NoError(t, err)
		assertVec(t, p.Offset(v3.Vec{Z: -250 - refl/2}).Translation, reflector.Translation)
		assert.InDelta(t, 10-refl/2, reflector.Translation.Z, tol)
	}
}

func TestPoseApply(t *testing.T) {
	theta := 0.1
	tests := []struct {
		name  string
		pose  Pose
		local v3.Vec
		want  v3.Vec
	}{
		{"identity", Identity, v3.Vec{X: 1, Y: 2, Z: 3}, v3.Vec{X: 1, Y: 2, Z: 3}},
		{"translation", At(v3.Vec{X: 10, Y: -5, Z: 250}), v3.Vec{X: 1, Y: 1, Z: 0}, v3.Vec{X: 11, Y: -4, Z: 250}},
		{
			// A frame rotation of -theta about X turns the solid by +theta.
			"frame rotation about x",
			Pose{Axis: AxisX, Angle: -theta},
			v3.Vec{Z: 250},
			v3.Vec{X: 0, Y: -250 * math.Sin(theta), Z: 250 * math.Cos(theta)},
		},
		{
			"frame rotation about y",
			Pose{Axis: AxisY, Angle: -theta},
			v3.Vec{Z: 250},
			v3.Vec{X: 250 * math.Sin(theta), Y: 0, Z: 250 * math.Cos(theta)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertVec(t, tt.want, tt.pose.Apply(tt.local))
		})
	}
}

func TestPoseOffsetKeepsRotation(t *testing.T) {
	p := Pose{Translation: v3.Vec{X: 7.5, Y: -36, Z: 250}, Axis: AxisX, Angle: -0.015}
	o := p.Offset(v3.Vec{Z: 250.15})
	assert.Equal(t, p.Axis, o.Axis)
	assert.Equal(t, p.Angle, o.Angle)
	assertVec(t, p.Apply(v3.Vec{Z: 250.15}), o.Translation)
}

func TestPoseCompose(t *testing.T) {
	parent := Pose{Translation: v3.Vec{Z: 100}, Axis: AxisX, Angle: 0.2}
	child := At(v3.Vec{X: 1})

	got, err := parent.Compose(child)
	require.NoError(t, err)
	assert.Equal(t, AxisX, got.Axis)
	assert.InDelta(t, 0.2, got.Angle, tol)
	assertVec(t, parent.Apply(v3.Vec{X: 1}), got.Translation)

	got, err = parent.Compose(Pose{Axis: AxisX, Angle: 0.1})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, got.Angle, tol)

	_, err = parent.Compose(Pose{Axis: AxisY, Angle: 0.1})
	require.Error(t, err)
}

func TestAxisString(t *testing.T) {
	assert.Equal(t, "none", AxisNone.String())
	assert.Equal(t, "x", AxisX.String())
	assert.Equal(t, "y", AxisY.String())
	assert.Equal(t, "Axis(7)", Axis(7).String())
}
