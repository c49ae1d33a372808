package volume

import (
	"fmt"

	"github.com/chazu/drcal/pkg/kernel"
	"github.com/chazu/drcal/pkg/placement"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ValidationSeverity indicates whether a finding blocks the build or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks the build
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Volume   string             // logical or physical volume name, empty if geometry-level
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Volume == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] volume %s: %s", e.Severity, e.Volume, e.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory)
// from all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no blocking error was found.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Validate runs all structural checks on g and returns the findings. An
// empty slice means the tree is consistent. Validate never mutates g.
func Validate(g *Geometry) []ValidationError {
	if g == nil || g.World == nil || g.World.Logical == nil {
		return []ValidationError{{Message: "geometry has no world volume", Severity: SeverityError}}
	}
	var errs []ValidationError
	errs = append(errs, validateLogicals(g)...)
	errs = append(errs, validateReplicas(g)...)
	errs = append(errs, validateBorderSurfaces(g)...)
	return errs
}

// ValidateAll runs the structural and geometric tiers and separates
// errors from warnings.
func ValidateAll(g *Geometry) ValidationResult {
	var result ValidationResult
	for _, e := range Validate(g) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, e)
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	if !result.OK() {
		// Geometric checks need resolvable solids and copies.
		return result
	}
	result.Warnings = append(result.Warnings, validateContainment(g)...)
	return result
}

// logicals returns every logical volume reachable from the world, each
// once, in first-visit order.
func logicals(g *Geometry) []*Logical {
	seen := make(map[*Logical]bool)
	var out []*Logical
	var visit func(l *Logical)
	visit = func(l *Logical) {
		if l == nil || seen[l] {
			return
		}
		seen[l] = true
		out = append(out, l)
		for _, d := range l.Daughters {
			visit(d.Logical)
		}
	}
	visit(g.World.Logical)
	return out
}

// validateLogicals checks that every logical volume has a solid and a
// material, and that every placement names a logical volume.
func validateLogicals(g *Geometry) []ValidationError {
	var errs []ValidationError
	for _, l := range logicals(g) {
		if l.Solid == nil {
			errs = append(errs, ValidationError{Volume: l.Name, Message: "no solid", Severity: SeverityError})
		}
		if l.Material == nil {
			errs = append(errs, ValidationError{Volume: l.Name, Message: "no material", Severity: SeverityError})
		}
		for _, d := range l.Daughters {
			if d.Logical == nil {
				errs = append(errs, ValidationError{
					Volume:   d.Name,
					Message:  fmt.Sprintf("placement in %s has no logical volume", l.Name),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateReplicas checks replica counts and that every copy resolves.
func validateReplicas(g *Geometry) []ValidationError {
	var errs []ValidationError
	for _, l := range logicals(g) {
		for _, d := range l.Daughters {
			if !d.Replicated() {
				continue
			}
			if d.Count <= 0 {
				errs = append(errs, ValidationError{
					Volume:   d.Name,
					Message:  fmt.Sprintf("replica count is %d, must be positive", d.Count),
					Severity: SeverityError,
				})
				continue
			}
			if n := d.Param.Count(); d.Count > n {
				errs = append(errs, ValidationError{
					Volume:   d.Name,
					Message:  fmt.Sprintf("replica count %d exceeds the %d positions of its parameterisation", d.Count, n),
					Severity: SeverityError,
				})
				continue
			}
			for i := 0; i < d.Count; i++ {
				if _, _, err := d.CopyPose(i); err != nil {
					errs = append(errs, ValidationError{
						Volume:   d.Name,
						Message:  fmt.Sprintf("copy %d does not resolve: %v", i, err),
						Severity: SeverityError,
					})
					break
				}
			}
		}
	}
	return errs
}

// validateBorderSurfaces checks that every border surface joins two
// placements and carries a surface.
func validateBorderSurfaces(g *Geometry) []ValidationError {
	var errs []ValidationError
	for _, b := range g.BorderSurfaces {
		if b.From == nil || b.To == nil {
			errs = append(errs, ValidationError{
				Volume:   b.Name,
				Message:  "border surface is missing a placement",
				Severity: SeverityError,
			})
		}
		if b.Surface == nil {
			errs = append(errs, ValidationError{
				Volume:   b.Name,
				Message:  "border surface has no optical surface",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// containmentSamples is the number of points sampled along the z axis of
// a daughter's bounding box.
const containmentSamples = 16

// validateContainment warns about daughters whose solid reaches outside
// their mother's solid.
func validateContainment(g *Geometry) []ValidationError {
	var warnings []ValidationError
	for _, l := range logicals(g) {
		for _, d := range l.Daughters {
			for i := 0; i < d.Copies(); i++ {
				pose, copyNo, err := d.CopyPose(i)
				if err != nil {
					continue
				}
				if p, ok := protrusion(l.Solid, d.Logical.Solid, pose); ok {
					warnings = append(warnings, ValidationError{
						Volume:   d.Name,
						Message:  fmt.Sprintf("copy %d point (%.4f, %.4f, %.4f) lies outside mother %s", copyNo, p.X, p.Y, p.Z, l.Name),
						Severity: SeverityWarning,
					})
				}
			}
		}
	}
	return warnings
}

// protrusion samples child along the z axis through the centre of its
// bounding box. Each sample strictly inside child is mapped through pose
// into the mother frame; the first one outside mother is returned. A
// child clipped to its mother therefore passes even when its origin lies
// outside the mother.
func protrusion(mother, child kernel.Solid, pose placement.Pose) (v3.Vec, bool) {
	lo, hi := child.BoundingBox()
	cx, cy := (lo[0]+hi[0])/2, (lo[1]+hi[1])/2
	step := (hi[2] - lo[2]) / containmentSamples
	for i := 0; i < containmentSamples; i++ {
		z := lo[2] + (float64(i)+0.5)*step
		if child.Inside([3]float64{cx, cy, z}) != kernel.Inside {
			continue
		}
		p := pose.Apply(v3.Vec{X: cx, Y: cy, Z: z})
		if mother.Inside([3]float64{p.X, p.Y, p.Z}) == kernel.Outside {
			return p, true
		}
	}
	return v3.Vec{}, false
}
