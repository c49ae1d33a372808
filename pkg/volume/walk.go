package volume

import (
	"errors"
	"fmt"

	"github.com/chazu/drcal/pkg/placement"
)

// SkipChildren may be returned by a WalkFunc to skip the daughters of the
// visited volume.
var SkipChildren = errors.New("skip children")

// Visit describes one concrete volume reached during a walk.
type Visit struct {
	Path     string
	Depth    int
	Physical *Physical
	CopyNo   int
	Local    placement.Pose
	World    placement.Pose
}

// WalkFunc is called once per concrete volume, replicas expanded.
type WalkFunc func(v Visit) error

// Walk visits the world and every volume below it depth first, in
// placement order. Poses are accumulated on a stack as the walk descends.
func (g *Geometry) Walk(fn WalkFunc) error {
	if g == nil || g.World == nil {
		return nil
	}
	root := Visit{
		Path:     g.World.Name,
		Physical: g.World,
		Local:    placement.Identity,
		World:    placement.Identity,
	}
	return walk(root, fn)
}

func walk(v Visit, fn WalkFunc) error {
	if err := fn(v); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}
	if v.Physical.Logical == nil {
		return nil
	}
	for _, d := range v.Physical.Logical.Daughters {
		for i := 0; i < d.Copies(); i++ {
			local, copyNo, err := d.CopyPose(i)
			if err != nil {
				return err
			}
			world, err := v.World.Compose(local)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", v.Path, d.Name, err)
			}
			child := Visit{
				Path:     fmt.Sprintf("%s/%s:%d", v.Path, d.Name, copyNo),
				Depth:    v.Depth + 1,
				Physical: d,
				CopyNo:   copyNo,
				Local:    local,
				World:    world,
			}
			if err := walk(child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Count returns the number of concrete volumes in the tree, the world
// included.
func (g *Geometry) Count() (int, error) {
	n := 0
	err := g.Walk(func(Visit) error {
		n++
		return nil
	})
	return n, err
}
