// Package volume is the host-side volume tree the detector is assembled
// into: logical volumes bind a solid to a material, physical volumes
// place a logical volume inside a mother, optionally replicated through a
// parameterisation.
package volume

import (
	"fmt"

	"github.com/chazu/drcal/pkg/kernel"
	"github.com/chazu/drcal/pkg/material"
	"github.com/chazu/drcal/pkg/placement"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Colour is an RGBA visualisation tint.
type Colour [4]float64

var (
	Gray   = Colour{0.3, 0.3, 0.3, 0.3}
	Blue   = Colour{0, 0, 1, 1}
	Orange = Colour{1, 0.5, 0, 1}
	Green  = Colour{0.3, 0.7, 0.3, 1}
)

// Replicator supplies per-copy translations for a replicated placement.
type Replicator interface {
	Count() int
	Transform(copyNo int) (v3.Vec, error)
}

// Logical binds a solid to a material.
type Logical struct {
	Name        string
	Solid       kernel.Solid
	Material    *material.Material
	Vis         Colour
	SkinSurface *material.Surface
	Daughters   []*Physical
}

// NewLogical returns a logical volume with no daughters.
func NewLogical(name string, solid kernel.Solid, mat *material.Material) *Logical {
	return &Logical{Name: name, Solid: solid, Material: mat}
}

// Place adds a single placement of child inside l and returns it.
func (l *Logical) Place(name string, child *Logical, pose placement.Pose, copyNo int) *Physical {
	p := &Physical{Name: name, Logical: child, Mother: l, Pose: pose, CopyNo: copyNo}
	l.Daughters = append(l.Daughters, p)
	return p
}

// Replicate adds count copies of child inside l, each translated by
// param. Copy numbers run from 0 to count-1.
func (l *Logical) Replicate(name string, child *Logical, param Replicator, count int) *Physical {
	p := &Physical{Name: name, Logical: child, Mother: l, Param: param, Count: count}
	l.Daughters = append(l.Daughters, p)
	return p
}

// Physical is a placement of a logical volume inside its mother.
// When Param is set the placement stands for Count copies whose
// translations come from Param; Pose and CopyNo are then unused.
type Physical struct {
	Name    string
	Logical *Logical
	Mother  *Logical
	Pose    placement.Pose
	CopyNo  int
	Param   Replicator
	Count   int
}

// Replicated reports whether p stands for a parameterised set of copies.
func (p *Physical) Replicated() bool {
	return p.Param != nil
}

// Copies returns the number of concrete volumes p stands for.
func (p *Physical) Copies() int {
	if p.Replicated() {
		return p.Count
	}
	return 1
}

// CopyPose returns the local pose and copy number of the i-th copy.
func (p *Physical) CopyPose(i int) (placement.Pose, int, error) {
	if !p.Replicated() {
		if i != 0 {
			return placement.Pose{}, 0, fmt.Errorf("%s: copy %d of a single placement", p.Name, i)
		}
		return p.Pose, p.CopyNo, nil
	}
	t, err := p.Param.Transform(i)
	if err != nil {
		return placement.Pose{}, 0, fmt.Errorf("%s: %w", p.Name, err)
	}
	return placement.At(t), i, nil
}

// BorderSurface is an optical surface on the boundary between two
// placements.
type BorderSurface struct {
	Name    string
	From    *Physical
	To      *Physical
	Surface *material.Surface
}

// Geometry is the complete tree handed to the host.
type Geometry struct {
	World          *Physical
	BorderSurfaces []BorderSurface
}

// NewGeometry wraps a world logical volume in an unplaced world physical
// volume at the origin.
func NewGeometry(world *Logical) *Geometry {
	return &Geometry{World: &Physical{Name: world.Name, Logical: world}}
}

// AddBorderSurface records a surface between from and to.
func (g *Geometry) AddBorderSurface(name string, from, to *Physical, s *material.Surface) {
	g.BorderSurfaces = append(g.BorderSurfaces, BorderSurface{Name: name, From: from, To: to, Surface: s})
}
