package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// planarityTolerance bounds how far a face's fourth vertex may sit off
// the plane through its first three.
const planarityTolerance = 1e-6

// hexFaces lists the vertex indices of each face of a hexahedron whose
// vertices are ordered as described on kernel.Kernel.Trap.
var hexFaces = [6][4]int{
	{0, 1, 3, 2}, // -z
	{4, 5, 7, 6}, // +z
	{0, 1, 5, 4}, // -y
	{2, 3, 7, 6}, // +y
	{0, 2, 6, 4}, // -x
	{1, 3, 7, 5}, // +x
}

type plane struct {
	point  v3.Vec
	normal v3.Vec // unit, pointing out of the solid
}

// hexahedron is the intersection of six half-spaces. Evaluate returns the
// largest signed plane distance: exact in sign, and a lower bound on the
// true distance outside the solid.
type hexahedron struct {
	planes [6]plane
	bb     sdf.Box3
}

func newHexahedron(vertices [8][3]float64) (*hexahedron, error) {
	var pts [8]v3.Vec
	var centroid v3.Vec
	for i, p := range vertices {
		pts[i] = v3.Vec{X: p[0], Y: p[1], Z: p[2]}
		centroid = centroid.Add(pts[i])
	}
	centroid = centroid.MulScalar(1.0 / 8)

	h := &hexahedron{}
	for f, idx := range hexFaces {
		a, b, c, d := pts[idx[0]], pts[idx[1]], pts[idx[2]], pts[idx[3]]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Length() == 0 {
			n = c.Sub(a).Cross(d.Sub(a))
		}
		if n.Length() == 0 {
			return nil, fmt.Errorf("face %d is degenerate", f)
		}
		n = n.Normalize()
		if n.Dot(centroid.Sub(a)) > 0 {
			n = n.MulScalar(-1)
		}
		if off := math.Abs(n.Dot(d.Sub(a))); off > planarityTolerance {
			return nil, fmt.Errorf("face %d is not planar (vertex off by %g)", f, off)
		}
		h.planes[f] = plane{point: a, normal: n}
	}

	for _, p := range pts {
		for f, pl := range h.planes {
			if pl.normal.Dot(p.Sub(pl.point)) > planarityTolerance {
				return nil, fmt.Errorf("vertex %v lies outside face %d", p, f)
			}
		}
	}

	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		lo = v3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = v3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	if hi.X <= lo.X || hi.Y <= lo.Y || hi.Z <= lo.Z {
		return nil, errors.New("hexahedron has zero volume")
	}
	h.bb = sdf.Box3{Min: lo, Max: hi}
	return h, nil
}

// Evaluate returns the signed distance estimate for p.
func (h *hexahedron) Evaluate(p v3.Vec) float64 {
	d := math.Inf(-1)
	for _, pl := range h.planes {
		d = math.Max(d, pl.normal.Dot(p.Sub(pl.point)))
	}
	return d
}

// BoundingBox returns the bounding box of the eight vertices.
func (h *hexahedron) BoundingBox() sdf.Box3 {
	return h.bb
}
