package detector

import (
	"fmt"

	"github.com/chazu/drcal/pkg/classify"
	"github.com/chazu/drcal/pkg/config"
	"github.com/chazu/drcal/pkg/material"
	"github.com/chazu/drcal/pkg/param"
	"github.com/chazu/drcal/pkg/placement"
	"github.com/chazu/drcal/pkg/volume"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// SensorLayer is the readout stack laid against the back face of a
// module. The envelope holds a SiPM layer of glass cells, each with a
// silicon cathode, and a filter layer carrying gelatin filters on the
// scintillation sites.
type SensorLayer struct {
	Envelope    *volume.Logical
	SiPM        *volume.Logical
	FilterLayer *volume.Logical
	Cell        *volume.Logical
	Cathode     *volume.Logical
	Filter      *volume.Logical

	Placement *volume.Physical
	Cells     *volume.Physical
	Filters   *volume.Physical

	CellParam   param.Parameterisation
	FilterParam param.Parameterisation
}

// ReflectorLayer is the vacuum layer on the front face of a module with
// aluminium mirrors on the Cherenkov sites.
type ReflectorLayer struct {
	Layer       *volume.Logical
	Mirror      *volume.Logical
	Placement   *volume.Physical
	Mirrors     *volume.Physical
	MirrorParam param.Parameterisation
}

func (c *Construction) materials(names ...string) ([]*material.Material, error) {
	out := make([]*material.Material, len(names))
	for i, n := range names {
		m, err := c.catalog.Find(n)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// parameterise returns the copies of a secondary element selected by sel,
// addressed as configured.
func (c *Construction) parameterise(m *Module, sel classify.Selector) (param.Parameterisation, error) {
	if c.cfg.Sensor.Addressing == config.AddressingIndex {
		s := c.cfg.Sensor
		return param.NewIndexMapped(s.Columns, s.Rows, classify.Bounded(classify.Checkerboard, s.Columns, s.Rows), sel, param.DefaultGridPitch())
	}
	return param.NewCoordinateList(m.Lattice.Sites, sel), nil
}

// replicate places the copies of p in mother, skipping empty sets.
func (c *Construction) replicate(mother *volume.Logical, child *volume.Logical, p param.Parameterisation) *volume.Physical {
	if p.Count() == 0 {
		c.log.Warn("no copies to place", "mother", mother.Name, "volume", child.Name)
		return nil
	}
	return mother.Replicate(child.Name, child, p, p.Count())
}

// place puts a layer envelope in the world when placement is on.
func (c *Construction) place(geo *volume.Geometry, l *volume.Logical, pose placement.Pose, m *Module) *volume.Physical {
	if !c.cfg.Toggles.Place {
		return nil
	}
	return geo.World.Logical.Place(l.Name, l, pose, m.Index)
}

func (c *Construction) buildSensor(geo *volume.Geometry, m *Module) (*SensorLayer, error) {
	mats, err := c.materials(material.Air, material.Glass, material.Silicon, material.Gelatin)
	if err != nil {
		return nil, err
	}
	air, glass, silicon, gelatin := mats[0], mats[1], mats[2], mats[3]
	sipmSurf, err := c.catalog.FindSurface(material.SiPMSurf)
	if err != nil {
		return nil, err
	}
	filterSurf, err := c.catalog.FindSurface(material.FilterSurf)
	if err != nil {
		return nil, err
	}

	k := c.kernel
	l := c.cfg.Layers
	pmtT, filterT, cell := l.PMT, l.Filter, l.Cell
	t := pmtT + filterT

	s := &SensorLayer{
		Envelope:    volume.NewLogical(fmt.Sprintf("sensor%d", m.Index), k.Box(m.Height, m.Width, t), air),
		SiPM:        volume.NewLogical("sipmLayer", k.Box(m.Height, m.Width, pmtT), air),
		FilterLayer: volume.NewLogical("filterLayer", k.Box(m.Height, m.Width, filterT), glass),
		Cell:        volume.NewLogical("sensorCell", k.Box(cell, cell, pmtT), glass),
		Cathode:     volume.NewLogical("cathode", k.Box(cell, cell, filterT), silicon),
		Filter:      volume.NewLogical("filter", k.Box(cell, cell, filterT), gelatin),
	}
	s.Cathode.SkinSurface = sipmSurf
	s.Cathode.Vis = volume.Green
	s.Filter.Vis = volume.Orange

	s.Envelope.Place(s.SiPM.Name, s.SiPM, placement.At(v3.Vec{Z: filterT / 2}), 0)
	s.Envelope.Place(s.FilterLayer.Name, s.FilterLayer, placement.At(v3.Vec{Z: -pmtT / 2}), 0)
	s.Cell.Place(s.Cathode.Name, s.Cathode, placement.At(v3.Vec{Z: (pmtT - filterT) / 2}), 0)

	if s.CellParam, err = c.parameterise(m, classify.All); err != nil {
		return nil, err
	}
	if s.FilterParam, err = c.parameterise(m, classify.OnlyA); err != nil {
		return nil, err
	}
	s.Cells = c.replicate(s.SiPM, s.Cell, s.CellParam)
	s.Filters = c.replicate(s.FilterLayer, s.Filter, s.FilterParam)
	if s.Cells != nil && s.Filters != nil {
		geo.AddBorderSurface(material.FilterSurf, s.Filters, s.Cells, filterSurf)
	}

	s.Placement = c.place(geo, s.Envelope, m.Pose.Offset(v3.Vec{Z: m.Depth/2 + t/2}), m)
	return s, nil
}

func (c *Construction) buildReflector(geo *volume.Geometry, m *Module) (*ReflectorLayer, error) {
	mats, err := c.materials(material.Galactic, material.Aluminum)
	if err != nil {
		return nil, err
	}
	mirrorSurf, err := c.catalog.FindSurface(material.MirrorSurf)
	if err != nil {
		return nil, err
	}

	k := c.kernel
	t, cell := c.cfg.Layers.Reflector, c.cfg.Layers.Cell
	r := &ReflectorLayer{
		Layer:  volume.NewLogical(fmt.Sprintf("reflector%d", m.Index), k.Box(m.Height, m.Width, t), mats[0]),
		Mirror: volume.NewLogical("mirror", k.Box(cell, cell, t), mats[1]),
	}
	r.Mirror.SkinSurface = mirrorSurf
	r.Mirror.Vis = volume.Gray

	if r.MirrorParam, err = c.parameterise(m, classify.OnlyB); err != nil {
		return nil, err
	}
	r.Mirrors = c.replicate(r.Layer, r.Mirror, r.MirrorParam)
	r.Placement = c.place(geo, r.Layer, m.Pose.Offset(v3.Vec{Z: -m.Depth/2 - t/2}), m)
	return r, nil
}
