// Package classify decides which of the two fiber classes a lattice cell
// belongs to, and which secondary element a cell may host.
package classify

import (
	"errors"
	"fmt"
)

// ErrOutOfDomain is returned when an oracle is queried outside the grid
// it was bounded to.
var ErrOutOfDomain = errors.New("cell outside oracle domain")

// Oracle reports whether the cell at (column, row) is class B, the
// Cherenkov class.
type Oracle func(column, row int) bool

// Checkerboard classifies cells with an even column+row sum as class B.
func Checkerboard(column, row int) bool {
	return (column+row)%2 == 0
}

// Checked is an oracle query that can fail.
type Checked func(column, row int) (bool, error)

// Bounded wraps o so that queries outside [0,columns) x [0,rows) fail with
// ErrOutOfDomain instead of being answered.
func Bounded(o Oracle, columns, rows int) Checked {
	return func(column, row int) (bool, error) {
		if column < 0 || column >= columns || row < 0 || row >= rows {
			return false, fmt.Errorf("query (%d, %d) on %dx%d grid: %w", column, row, columns, rows, ErrOutOfDomain)
		}
		return o(column, row), nil
	}
}

// Selector picks the subset of cells a secondary element is placed on.
type Selector int

const (
	// All keeps every cell. Sensor cells use it.
	All Selector = iota
	// OnlyA keeps class A (scintillation) cells. Filters use it.
	OnlyA
	// OnlyB keeps class B (Cherenkov) cells. Mirrors use it.
	OnlyB
)

func (s Selector) String() string {
	switch s {
	case All:
		return "all"
	case OnlyA:
		return "only-a"
	case OnlyB:
		return "only-b"
	default:
		return fmt.Sprintf("Selector(%d)", int(s))
	}
}

// Accepts reports whether a cell of the given class passes the selector.
func (s Selector) Accepts(isClassB bool) bool {
	switch s {
	case All:
		return true
	case OnlyA:
		return !isClassB
	case OnlyB:
		return isClassB
	}
	return false
}
