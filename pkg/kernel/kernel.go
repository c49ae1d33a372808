// Package kernel defines the abstract geometry kernel interface.
// Implementations provide primitive solids, boolean operations and
// point containment behind this interface, so that the detector
// construction never depends on a particular solid-modeling backend.
package kernel

import "fmt"

// Containment is the result of a point-in-solid query.
type Containment int

const (
	Outside Containment = iota
	Surface
	Inside
)

func (c Containment) String() string {
	switch c {
	case Outside:
		return "outside"
	case Surface:
		return "surface"
	case Inside:
		return "inside"
	default:
		return fmt.Sprintf("Containment(%d)", int(c))
	}
}

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// Inside classifies p against the solid's boundary.
	Inside(p [3]float64) Containment
}

// Kernel is the abstract geometry kernel interface.
// All primitives are centred on the origin.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid
	// Trap builds a convex hexahedron from eight vertices: the four
	// corners of the -z face followed by the four corners of the +z face,
	// each ordered (-x,-y), (+x,-y), (-x,+y), (+x,+y).
	Trap(vertices [8][3]float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
