package lattice

import (
	"errors"
	"fmt"

	"github.com/chazu/drcal/pkg/config"
	"github.com/chazu/drcal/pkg/kernel"
	"github.com/chazu/drcal/pkg/material"
	"github.com/chazu/drcal/pkg/placement"
	"github.com/chazu/drcal/pkg/volume"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// FiberKind holds the per-class core radius, the clad and core materials
// and the core tint.
type FiberKind struct {
	CoreRadius float64
	Clad       *material.Material
	Core       *material.Material
	CoreTint   volume.Colour
}

// ChannelSpec describes the tubes every channel is cut from.
type ChannelSpec struct {
	CladRadius    float64
	Length        float64
	CladTint      volume.Colour
	Cherenkov     FiberKind
	Scintillation FiberKind
}

// Kind returns the fiber description for class c.
func (s ChannelSpec) Kind(c Class) FiberKind {
	if c == Cherenkov {
		return s.Cherenkov
	}
	return s.Scintillation
}

// NewChannelSpec resolves the channel materials from cat: Cherenkov
// fibers are FluorinatedPolymer around PMMA, scintillating fibers are
// PMMA around Polystyrene.
func NewChannelSpec(cat *material.Catalog, f config.Fiber) (ChannelSpec, error) {
	find := func(names ...string) ([]*material.Material, error) {
		out := make([]*material.Material, len(names))
		for i, n := range names {
			m, err := cat.Find(n)
			if err != nil {
				return nil, err
			}
			out[i] = m
		}
		return out, nil
	}
	m, err := find(material.FluorinatedPolymer, material.PMMA, material.Polystyrene)
	if err != nil {
		return ChannelSpec{}, fmt.Errorf("channel spec: %w", err)
	}
	return ChannelSpec{
		CladRadius: f.CladRadius,
		Length:     f.Length,
		CladTint:   volume.Gray,
		Cherenkov: FiberKind{
			CoreRadius: f.CherenkovCoreRadius,
			Clad:       m[0],
			Core:       m[1],
			CoreTint:   volume.Blue,
		},
		Scintillation: FiberKind{
			CoreRadius: f.ScintCoreRadius,
			Clad:       m[1],
			Core:       m[2],
			CoreTint:   volume.Orange,
		},
	}, nil
}

// Channel is one emitted clad and core pair.
type Channel struct {
	Site      Site
	Clad      *volume.Logical
	Core      *volume.Logical
	Placement *volume.Physical
}

// EmitChannels places one clad+core channel in module for every site of
// lat. Each tube is intersected with outer shifted by the negated site
// centre, so the channel is cut to the module boundary in its own frame.
// The clad of site j is placed at the site centre with copy number j;
// its core sits inside it at the origin.
func EmitChannels(k kernel.Kernel, module *volume.Logical, outer kernel.Solid, lat *Lattice, spec ChannelSpec) ([]Channel, error) {
	if module == nil || outer == nil {
		return nil, errors.New("emit channels: missing module volume or outer solid")
	}
	if _, err := lat.First(); err != nil {
		return nil, fmt.Errorf("emit channels in %s: %w", module.Name, err)
	}
	for _, c := range []Class{Cherenkov, Scintillation} {
		fk := spec.Kind(c)
		if fk.Clad == nil || fk.Core == nil {
			return nil, fmt.Errorf("emit channels: %s fiber has no materials", c)
		}
		if fk.CoreRadius <= 0 || fk.CoreRadius > spec.CladRadius {
			return nil, fmt.Errorf("emit channels: %s core radius %g outside (0, %g]", c, fk.CoreRadius, spec.CladRadius)
		}
	}

	cladTube := k.Cylinder(spec.Length, spec.CladRadius, 0)
	coreTube := map[Class]kernel.Solid{
		Cherenkov:     k.Cylinder(spec.Length, spec.Cherenkov.CoreRadius, 0),
		Scintillation: k.Cylinder(spec.Length, spec.Scintillation.CoreRadius, 0),
	}

	channels := make([]Channel, 0, len(lat.Sites))
	for j, s := range lat.Sites {
		fk := spec.Kind(s.Class)
		cut := k.Translate(outer, -s.X, -s.Y, 0)

		clad := volume.NewLogical("fiberClad", k.Intersection(cladTube, cut), fk.Clad)
		clad.Vis = spec.CladTint
		core := volume.NewLogical("fiberCore", k.Intersection(coreTube[s.Class], cut), fk.Core)
		core.Vis = fk.CoreTint

		pv := module.Place(module.Name, clad, placement.At(v3.Vec{X: s.X, Y: s.Y}), j)
		clad.Place(module.Name, core, placement.Identity, j)

		channels = append(channels, Channel{Site: s, Clad: clad, Core: core, Placement: pv})
	}
	return channels, nil
}
