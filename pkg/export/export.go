// Package export writes a volume tree as a flat JSON list of placements,
// one record per concrete volume with replicas expanded.
package export

import (
	"fmt"
	"io"
	"math"

	json "github.com/goccy/go-json"

	"github.com/chazu/drcal/pkg/volume"
)

// Rotation is a single-axis frame rotation in degrees.
type Rotation struct {
	Axis  string  `json:"axis"`
	Angle float64 `json:"angle"`
}

// Record is one placed volume.
type Record struct {
	Path        string     `json:"path"`
	Depth       int        `json:"depth"`
	Logical     string     `json:"logical"`
	Material    string     `json:"material,omitempty"`
	CopyNo      int        `json:"copy"`
	Translation [3]float64 `json:"translation"`
	Rotation    *Rotation  `json:"rotation,omitempty"`
	BoundsMin   [3]float64 `json:"bboxMin"`
	BoundsMax   [3]float64 `json:"bboxMax"`
}

// Border is an optical surface between two placements.
type Border struct {
	Name    string `json:"name"`
	From    string `json:"from"`
	To      string `json:"to"`
	Surface string `json:"surface"`
}

// Document is the top-level JSON object written by Write.
type Document struct {
	Volumes        []Record `json:"volumes"`
	BorderSurfaces []Border `json:"borderSurfaces,omitempty"`
}

// Records walks g and returns one record per concrete volume. Translation
// and rotation are given in the world frame; the bounding box is the
// solid's, in its own frame.
func Records(g *volume.Geometry) ([]Record, error) {
	var out []Record
	err := g.Walk(func(v volume.Visit) error {
		l := v.Physical.Logical
		if l == nil {
			return fmt.Errorf("%s: no logical volume", v.Path)
		}
		t := v.World.Translation
		r := Record{
			Path:        v.Path,
			Depth:       v.Depth,
			Logical:     l.Name,
			CopyNo:      v.CopyNo,
			Translation: [3]float64{t.X, t.Y, t.Z},
		}
		if l.Material != nil {
			r.Material = l.Material.Name
		}
		if v.World.IsRotated() {
			r.Rotation = &Rotation{Axis: v.World.Axis.String(), Angle: v.World.Angle * 180 / math.Pi}
		}
		if l.Solid != nil {
			r.BoundsMin, r.BoundsMax = l.Solid.BoundingBox()
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return out, nil
}

// Write encodes g to w as an indented Document.
func Write(w io.Writer, g *volume.Geometry) error {
	recs, err := Records(g)
	if err != nil {
		return err
	}
	doc := Document{Volumes: recs}
	for _, b := range g.BorderSurfaces {
		border := Border{Name: b.Name}
		if b.From != nil {
			border.From = b.From.Name
		}
		if b.To != nil {
			border.To = b.To.Name
		}
		if b.Surface != nil {
			border.Surface = b.Surface.Name
		}
		doc.BorderSurfaces = append(doc.BorderSurfaces, border)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}
	return nil
}
