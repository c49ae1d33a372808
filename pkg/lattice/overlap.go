package lattice

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"
)

// OverlapError reports two accepted sites closer than one channel
// diameter.
type OverlapError struct {
	A, B     Site
	Distance float64
	Diameter float64
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("sites (%d,%d) and (%d,%d) are %.4f apart, closer than the channel diameter %.4f",
		e.A.Plate, e.A.Fiber, e.B.Plate, e.B.Fiber, e.Distance, e.Diameter)
}

// overlapSlack absorbs rounding when sites sit exactly one diameter apart.
const overlapSlack = 1e-9

// siteEntry is a site stored in the R-tree as a tiny box around its
// centre.
type siteEntry struct {
	site Site
	rect rtreego.Rect
}

func (e *siteEntry) Bounds() rtreego.Rect {
	return e.rect
}

// checkOverlap inserts the sites one at a time into an R-tree and, before
// each insert, searches the square of half-side diameter around the new
// site for an earlier site within one diameter.
func checkOverlap(sites []Site, diameter float64) error {
	tree := rtreego.NewTree(2, 25, 50)
	for _, s := range sites {
		p := rtreego.Point{s.X, s.Y}
		for _, hit := range tree.SearchIntersect(p.ToRect(diameter)) {
			other := hit.(*siteEntry).site
			d := math.Hypot(s.X-other.X, s.Y-other.Y)
			if d < diameter-overlapSlack {
				return &OverlapError{A: other, B: s, Distance: d, Diameter: diameter}
			}
		}
		tree.Insert(&siteEntry{site: s, rect: p.ToRect(overlapSlack)})
	}
	return nil
}
