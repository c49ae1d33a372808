// Package tessellate walks a volume tree and produces triangle meshes
// using a geometry kernel. One mesh is produced per placed volume, with
// replicas expanded.
package tessellate

import (
	"fmt"

	"github.com/chazu/drcal/pkg/kernel"
	"github.com/chazu/drcal/pkg/placement"
	"github.com/chazu/drcal/pkg/volume"
)

// Options limit what is meshed.
type Options struct {
	// MaxDepth is the deepest level meshed; the world is depth 0 and the
	// modules depth 1. Zero or less means no limit.
	MaxDepth int
	// IncludeWorld meshes the world volume itself.
	IncludeWorld bool
}

// poseStack accumulates world poses during the tree traversal.
type poseStack struct {
	poses []placement.Pose
}

func newPoseStack() *poseStack {
	return &poseStack{}
}

func (ps *poseStack) top() placement.Pose {
	if len(ps.poses) == 0 {
		return placement.Identity
	}
	return ps.poses[len(ps.poses)-1]
}

// push composes local onto the current top.
func (ps *poseStack) push(local placement.Pose) error {
	world, err := ps.top().Compose(local)
	if err != nil {
		return err
	}
	ps.poses = append(ps.poses, world)
	return nil
}

func (ps *poseStack) pop() {
	if len(ps.poses) > 0 {
		ps.poses = ps.poses[:len(ps.poses)-1]
	}
}

// Tessellate walks the volume tree and produces one triangle mesh per
// placed volume using the provided geometry kernel. The tessellator is
// read-only and never mutates the tree.
func Tessellate(g *volume.Geometry, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if g == nil || g.World == nil || g.World.Logical == nil {
		return nil, nil
	}

	var meshes []*kernel.Mesh
	ts := newPoseStack()
	world := g.World.Logical
	if opts.IncludeWorld {
		m, err := meshVolume(k, world, g.World.Name, ts.top())
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, m)
	}

	collected, err := walkDaughters(k, world, g.World.Name, 1, ts, opts)
	if err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	return append(meshes, collected...), nil
}

// walkDaughters meshes every copy of every daughter of l, then recurses.
func walkDaughters(k kernel.Kernel, l *volume.Logical, path string, depth int, ts *poseStack, opts Options) ([]*kernel.Mesh, error) {
	if opts.MaxDepth > 0 && depth > opts.MaxDepth {
		return nil, nil
	}
	var meshes []*kernel.Mesh
	for _, d := range l.Daughters {
		if d.Logical == nil {
			return nil, fmt.Errorf("%s/%s: no logical volume", path, d.Name)
		}
		for i := 0; i < d.Copies(); i++ {
			local, copyNo, err := d.CopyPose(i)
			if err != nil {
				return nil, err
			}
			collected, err := handleCopy(k, d.Logical, fmt.Sprintf("%s/%s:%d", path, d.Name, copyNo), depth, local, ts, opts)
			if err != nil {
				return nil, err
			}
			meshes = append(meshes, collected...)
		}
	}
	return meshes, nil
}

// handleCopy pushes the copy's pose, meshes it, recurses, then pops.
func handleCopy(k kernel.Kernel, l *volume.Logical, path string, depth int, local placement.Pose, ts *poseStack, opts Options) ([]*kernel.Mesh, error) {
	if err := ts.push(local); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer ts.pop()

	m, err := meshVolume(k, l, path, ts.top())
	if err != nil {
		return nil, err
	}
	rest, err := walkDaughters(k, l, path, depth+1, ts, opts)
	if err != nil {
		return nil, err
	}
	return append([]*kernel.Mesh{m}, rest...), nil
}

// meshVolume places the volume's solid at pose and meshes it.
func meshVolume(k kernel.Kernel, l *volume.Logical, path string, pose placement.Pose) (*kernel.Mesh, error) {
	if l.Solid == nil {
		return nil, fmt.Errorf("%s: no solid", path)
	}
	solid := l.Solid

	// Apply rotation first, then translation.
	if pose.IsRotated() {
		x, y, z := pose.EulerDegrees()
		solid = k.Rotate(solid, x, y, z)
	}
	t := pose.Translation
	if t.X != 0 || t.Y != 0 || t.Z != 0 {
		solid = k.Translate(solid, t.X, t.Y, t.Z)
	}

	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("ToMesh failed for %s: %w", path, err)
	}
	mesh.Volume = path
	if l.Material != nil {
		mesh.Material = l.Material.Name
	}
	mesh.Color = l.Vis
	return mesh, nil
}
