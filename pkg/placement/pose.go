// Package placement computes where each detector module sits in the world.
//
// A Layout maps a module index to a Pose. Two layouts exist: Wedge, the
// hand-specified table of irregular modules around a central wedge, and
// Grid, a regular array of identical cuboid modules. A layout is chosen
// once from configuration; the two are never mixed.
package placement

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Axis names the single axis a module may be tilted about.
type Axis int

const (
	AxisNone Axis = iota
	AxisX
	AxisY
)

func (a Axis) String() string {
	switch a {
	case AxisNone:
		return "none"
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Pose is a module's translation plus at most one axis rotation.
//
// Angle is a frame rotation in radians: the rotation that takes the
// mother frame into the module frame, which is what a placement host
// expects to receive. The solid itself turns by -Angle.
type Pose struct {
	Translation v3.Vec
	Axis        Axis
	Angle       float64
}

// Identity is the pose of an unrotated volume at the origin.
var Identity = Pose{}

// At returns an unrotated pose at t.
func At(t v3.Vec) Pose {
	return Pose{Translation: t}
}

// IsRotated reports whether the pose carries a non-zero rotation.
func (p Pose) IsRotated() bool {
	return p.Axis != AxisNone && p.Angle != 0
}

// Rotation returns the object rotation matrix.
func (p Pose) Rotation() sdf.M44 {
	switch p.Axis {
	case AxisX:
		return sdf.RotateX(-p.Angle)
	case AxisY:
		return sdf.RotateY(-p.Angle)
	}
	return sdf.Identity3d()
}

// Transform returns the object transform: rotate about the module centre,
// then translate.
func (p Pose) Transform() sdf.M44 {
	return sdf.Translate3d(p.Translation).Mul(p.Rotation())
}

// Apply maps a point from the module frame into the mother frame.
func (p Pose) Apply(local v3.Vec) v3.Vec {
	return p.Transform().MulPosition(local)
}

// Offset returns the pose of a frame displaced by local along the
// module's own axes. The rotation is inherited.
func (p Pose) Offset(local v3.Vec) Pose {
	return Pose{
		Translation: p.Apply(local),
		Axis:        p.Axis,
		Angle:       p.Angle,
	}
}

// Compose returns the pose of a child placed at child inside a volume
// placed at p. Both poses must rotate about the same axis, or one of them
// must be unrotated.
func (p Pose) Compose(child Pose) (Pose, error) {
	out := Pose{Translation: p.Apply(child.Translation)}
	switch {
	case !child.IsRotated():
		out.Axis, out.Angle = p.Axis, p.Angle
	case !p.IsRotated():
		out.Axis, out.Angle = child.Axis, child.Angle
	case p.Axis == child.Axis:
		out.Axis, out.Angle = p.Axis, p.Angle+child.Angle
	default:
		return Pose{}, fmt.Errorf("compose %s rotation with %s rotation: mixed axes", p.Axis, child.Axis)
	}
	return out, nil
}

// EulerDegrees returns the object rotation as (x, y, z) Euler angles in
// degrees, the form kernel.Kernel.Rotate takes.
func (p Pose) EulerDegrees() (x, y, z float64) {
	deg := -p.Angle * 180 / math.Pi
	switch p.Axis {
	case AxisX:
		return deg, 0, 0
	case AxisY:
		return 0, deg, 0
	}
	return 0, 0, 0
}

func (p Pose) String() string {
	t := p.Translation
	if !p.IsRotated() {
		return fmt.Sprintf("(%.4f, %.4f, %.4f)", t.X, t.Y, t.Z)
	}
	return fmt.Sprintf("(%.4f, %.4f, %.4f) rot%s(%.6f)", t.X, t.Y, t.Z, p.Axis, p.Angle)
}
