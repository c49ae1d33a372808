// Package lattice fills a module footprint with a checkerboard of fiber
// sites, keeps the sites whose sample point lies inside the module's outer
// solid, and turns the accepted sites into clad and core channel volumes.
package lattice

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/drcal/pkg/kernel"
)

// ErrEmptyLattice is returned when no candidate site survives clipping.
var ErrEmptyLattice = errors.New("lattice has no accepted sites")

// Class is the material class of a fiber site.
type Class int

const (
	// Cherenkov is class B: clear-core fibers.
	Cherenkov Class = iota
	// Scintillation is class A: scintillating-core fibers.
	Scintillation
)

func (c Class) String() string {
	switch c {
	case Cherenkov:
		return "cherenkov"
	case Scintillation:
		return "scintillation"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// IsClassB reports whether c is the Cherenkov class.
func (c Class) IsClassB() bool {
	return c == Cherenkov
}

// Site is one accepted fiber position in the module frame. Plate indexes
// the x axis and Fiber the position within the plate along y.
type Site struct {
	Plate int     `json:"plate"`
	Fiber int     `json:"fiber"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Class Class   `json:"class"`
}

// Footprint is the cross-section and depth of a module. Height runs along
// x and Width along y.
type Footprint struct {
	Width  float64
	Height float64
	Depth  float64
}

// Options tune lattice generation.
type Options struct {
	// Pitch is the centre-to-centre spacing of adjacent sites.
	Pitch float64
	// SampleInset places the containment sample this far inside the back
	// face of the module.
	SampleInset float64
	// ChannelDiameter enables the overlap check when positive.
	ChannelDiameter float64
	// InvertClasses swaps the class assigned to each parity.
	InvertClasses bool
}

// DefaultOptions returns the options of the studied design.
func DefaultOptions() Options {
	return Options{Pitch: 1.5, SampleInset: 0.1, ChannelDiameter: 1.0}
}

// Lattice is the set of accepted sites of one module, in generation
// order: plate by plate, fiber by fiber.
type Lattice struct {
	FibersPerPlate int
	PlateCount     int
	EdgeH          float64
	EdgeV          float64
	Pitch          float64
	SampleZ        float64
	Sites          []Site
}

// Candidates returns the number of sites tested before clipping.
func (l *Lattice) Candidates() int {
	return l.FibersPerPlate * l.PlateCount
}

// First returns the first accepted site.
func (l *Lattice) First() (Site, error) {
	if l == nil || len(l.Sites) == 0 {
		return Site{}, ErrEmptyLattice
	}
	return l.Sites[0], nil
}

// Count returns the number of accepted sites of class c.
func (l *Lattice) Count(c Class) int {
	n := 0
	for _, s := range l.Sites {
		if s.Class == c {
			n++
		}
	}
	return n
}

// Filter returns the accepted sites of class c, in order.
func (l *Lattice) Filter(c Class) []Site {
	var out []Site
	for _, s := range l.Sites {
		if s.Class == c {
			out = append(out, s)
		}
	}
	return out
}

// TowerXY returns the plate and fiber counts, the pair recorded on the
// module's sensitive detector.
func (l *Lattice) TowerXY() (plates, fibers int) {
	return l.PlateCount, l.FibersPerPlate
}

// Generate builds the lattice of a module with footprint fp whose outer
// solid, in the module frame, is outer.
//
// The classification flag starts false and flips before every candidate,
// accepted or not. When a plate holds an even number of fibers it flips
// once more after the plate, so both parities yield a checkerboard. A set
// flag is Scintillation unless opts.InvertClasses is set.
func Generate(fp Footprint, outer kernel.Solid, opts Options) (*Lattice, error) {
	if fp.Width <= 0 || fp.Height <= 0 || fp.Depth <= 0 {
		return nil, fmt.Errorf("lattice: footprint %gx%gx%g must be positive", fp.Width, fp.Height, fp.Depth)
	}
	if opts.Pitch <= 0 {
		return nil, fmt.Errorf("lattice: pitch %g must be positive", opts.Pitch)
	}
	if outer == nil {
		return nil, errors.New("lattice: no outer solid")
	}

	p := opts.Pitch
	l := &Lattice{
		FibersPerPlate: int(math.Floor(fp.Width / p)),
		PlateCount:     int(math.Floor(fp.Height / p)),
		EdgeH:          math.Mod(fp.Width, p) / 2,
		EdgeV:          math.Mod(fp.Height, p) / 2,
		Pitch:          p,
		SampleZ:        fp.Depth/2 - opts.SampleInset,
	}

	flag := false
	for k := 0; k < l.PlateCount; k++ {
		x := fp.Height/2 - float64(k)*p - p/2 + l.EdgeV
		for j := 0; j < l.FibersPerPlate; j++ {
			y := fp.Width/2 - float64(j)*p - p/2 + l.EdgeH
			flag = !flag
			if outer.Inside([3]float64{x, y, l.SampleZ}) == kernel.Outside {
				continue
			}
			l.Sites = append(l.Sites, Site{Plate: k, Fiber: j, X: x, Y: y, Class: classOf(flag, opts.InvertClasses)})
		}
		if l.FibersPerPlate%2 == 0 {
			flag = !flag
		}
	}

	if len(l.Sites) == 0 {
		return nil, fmt.Errorf("lattice: %d candidates on %gx%g: %w", l.Candidates(), fp.Height, fp.Width, ErrEmptyLattice)
	}
	if opts.ChannelDiameter > 0 {
		if err := checkOverlap(l.Sites, opts.ChannelDiameter); err != nil {
			return nil, fmt.Errorf("lattice: %w", err)
		}
	}
	return l, nil
}

func classOf(flag, invert bool) Class {
	if flag != invert {
		return Scintillation
	}
	return Cherenkov
}
