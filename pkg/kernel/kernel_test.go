package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			assert.Equal(t, tt.want, m.VertexCount())
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			assert.Equal(t, tt.want, m.TriangleCount())
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	assert.True(t, (&Mesh{}).IsEmpty())
	assert.False(t, (&Mesh{Vertices: []float32{1, 2, 3}}).IsEmpty())
}

func TestContainmentString(t *testing.T) {
	tests := []struct {
		c    Containment
		want string
	}{
		{Outside, "outside"},
		{Surface, "surface"},
		{Inside, "inside"},
		{Containment(7), "Containment(7)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.c.String())
	}
}

// --- Compile-time interface check with a stub kernel ---

// stubSolid is an axis-aligned box used to prove the interface is satisfiable.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

func (s *stubSolid) Inside(p [3]float64) Containment {
	result := Inside
	for i := 0; i < 3; i++ {
		switch {
		case p[i] < s.minBB[i] || p[i] > s.maxBB[i]:
			return Outside
		case p[i] == s.minBB[i] || p[i] == s.maxBB[i]:
			result = Surface
		}
	}
	return result
}

// stubKernel is a minimal Kernel implementation. Booleans and transforms
// return their first operand unchanged.
type stubKernel struct{}

func (k *stubKernel) Box(x, y, z float64) Solid {
	return &stubSolid{
		minBB: [3]float64{-x / 2, -y / 2, -z / 2},
		maxBB: [3]float64{x / 2, y / 2, z / 2},
	}
}

func (k *stubKernel) Cylinder(height, radius float64, _ int) Solid {
	return &stubSolid{
		minBB: [3]float64{-radius, -radius, -height / 2},
		maxBB: [3]float64{radius, radius, height / 2},
	}
}

func (k *stubKernel) Trap(v [8][3]float64) (Solid, error) {
	s := &stubSolid{minBB: v[0], maxBB: v[0]}
	for _, p := range v[1:] {
		for i := 0; i < 3; i++ {
			s.minBB[i] = min(s.minBB[i], p[i])
			s.maxBB[i] = max(s.maxBB[i], p[i])
		}
	}
	return s, nil
}

func (k *stubKernel) Union(a, _ Solid) Solid        { return a }
func (k *stubKernel) Difference(a, _ Solid) Solid   { return a }
func (k *stubKernel) Intersection(a, _ Solid) Solid { return a }

func (k *stubKernel) Translate(s Solid, _, _, _ float64) Solid { return s }
func (k *stubKernel) Rotate(s Solid, _, _, _ float64) Solid    { return s }

func (k *stubKernel) ToMesh(_ Solid) (*Mesh, error) {
	return &Mesh{}, nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBoxBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s := k.Box(10, 20, 30)
	lo, hi := s.BoundingBox()
	assert.Equal(t, [3]float64{-5, -10, -15}, lo)
	assert.Equal(t, [3]float64{5, 10, 15}, hi)
}

func TestStubKernelInside(t *testing.T) {
	var k Kernel = &stubKernel{}
	s := k.Box(2, 2, 2)
	tests := []struct {
		p    [3]float64
		want Containment
	}{
		{[3]float64{0, 0, 0}, Inside},
		{[3]float64{1, 0, 0}, Surface},
		{[3]float64{0, 3, 0}, Outside},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Inside(tt.p), "Inside(%v)", tt.p)
	}
}
