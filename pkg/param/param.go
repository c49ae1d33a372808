// Package param computes the translations of replicated secondary
// elements (sensor cells, filters, mirrors) over a module's lattice.
//
// Two addressing modes exist. IndexMapped walks a fixed rectangular grid
// and asks a classification oracle about every cell. CoordinateList reuses
// the sites of a generated lattice directly. Both keep only the cells a
// classify.Selector accepts and number them densely from zero.
package param

import (
	"errors"
	"fmt"

	"github.com/chazu/drcal/pkg/classify"
	"github.com/chazu/drcal/pkg/lattice"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrCopyOutOfRange is returned by Transform for a copy number outside
// [0, Count()).
var ErrCopyOutOfRange = errors.New("copy number out of range")

// Parameterisation maps a copy number to a translation in the mother
// frame. Copies carry no rotation.
type Parameterisation interface {
	Count() int
	Transform(copyNo int) (v3.Vec, error)
}

var (
	_ Parameterisation = (*IndexMapped)(nil)
	_ Parameterisation = (*CoordinateList)(nil)
)

// IndexToCell splits a linear copy number into its grid cell.
func IndexToCell(copyNo, rows int) (column, row int) {
	return copyNo / rows, copyNo % rows
}

// GridPitch fixes the cell spacing and the grid origin of the index
// mapped mode. The origin is given in cells, so a cell at (column, row)
// sits at ((column-XOrigin)*RowInterval, (row-YOrigin)*ColumnInterval).
type GridPitch struct {
	ColumnInterval float64
	RowInterval    float64
	XOrigin        float64
	YOrigin        float64
}

// DefaultGridPitch returns the fixed spacing of the prototype readout.
func DefaultGridPitch() GridPitch {
	return GridPitch{
		ColumnInterval: 2 * 23.0 / 21,
		RowInterval:    23.0 / 14,
		XOrigin:        6.5,
		YOrigin:        5,
	}
}

// At returns the centre of cell (column, row).
func (p GridPitch) At(column, row int) v3.Vec {
	return v3.Vec{
		X: -p.RowInterval*p.XOrigin + float64(column)*p.RowInterval,
		Y: -p.ColumnInterval*p.YOrigin + float64(row)*p.ColumnInterval,
	}
}

type positions []v3.Vec

func (ps positions) Count() int { return len(ps) }

func (ps positions) Transform(copyNo int) (v3.Vec, error) {
	if copyNo < 0 || copyNo >= len(ps) {
		return v3.Vec{}, fmt.Errorf("copy %d of %d: %w", copyNo, len(ps), ErrCopyOutOfRange)
	}
	return ps[copyNo], nil
}

// IndexMapped is the fixed-grid parameterisation.
type IndexMapped struct {
	positions
	Columns  int
	Rows     int
	Selector classify.Selector
	Cells    [][2]int // accepted (column, row) pairs, in copy order
}

// NewIndexMapped walks every copy number of a columns x rows grid, maps
// it to its cell and keeps the cells whose oracle answer passes sel.
func NewIndexMapped(columns, rows int, oracle classify.Checked, sel classify.Selector, pitch GridPitch) (*IndexMapped, error) {
	if columns <= 0 || rows <= 0 {
		return nil, fmt.Errorf("param: grid %dx%d must be positive", columns, rows)
	}
	if oracle == nil {
		return nil, errors.New("param: no classification oracle")
	}
	m := &IndexMapped{Columns: columns, Rows: rows, Selector: sel}
	for copyNo := 0; copyNo < columns*rows; copyNo++ {
		column, row := IndexToCell(copyNo, rows)
		isB, err := oracle(column, row)
		if err != nil {
			return nil, fmt.Errorf("param: copy %d: %w", copyNo, err)
		}
		if !sel.Accepts(isB) {
			continue
		}
		m.positions = append(m.positions, pitch.At(column, row))
		m.Cells = append(m.Cells, [2]int{column, row})
	}
	return m, nil
}

// CoordinateList is the lattice-driven parameterisation.
type CoordinateList struct {
	positions
	Selector classify.Selector
	Sites    []lattice.Site
}

// NewCoordinateList keeps the sites whose class passes sel.
func NewCoordinateList(sites []lattice.Site, sel classify.Selector) *CoordinateList {
	c := &CoordinateList{Selector: sel}
	for _, s := range sites {
		if !sel.Accepts(s.Class.IsClassB()) {
			continue
		}
		c.positions = append(c.positions, v3.Vec{X: s.X, Y: s.Y})
		c.Sites = append(c.Sites, s)
	}
	return c
}
