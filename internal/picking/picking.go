// Package picking maps screen coordinates to registry entries by casting a
// ray from the camera through the scene. Queries never mutate state.
package picking

import (
	"math"
	"sort"

	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/philipparndt/arstudio/pkg/geometry"
	"github.com/philipparndt/arstudio/pkg/scene"
	"github.com/philipparndt/arstudio/pkg/viewer"
)

// Hit is one intersected mesh part
type Hit struct {
	Entry    *registry.Entry
	Node     *scene.Node // the mesh node that was hit
	Distance float64
	Point    geometry.Vector3
}

// Service answers pick queries against a registry as seen by a camera
type Service struct {
	reg *registry.Registry
	cam *viewer.Camera
}

// New creates a picking service
func New(reg *registry.Registry, cam *viewer.Camera) *Service {
	return &Service{reg: reg, cam: cam}
}

// Pick returns every mesh part under the screen point, nearest first
func (s *Service) Pick(screenX, screenY float64) []Hit {
	ray := s.cam.Unproject(screenX, screenY)
	root := s.reg.Root()

	var hits []Hit
	root.Walk(func(n *scene.Node) bool {
		if !n.Visible {
			return false
		}
		if n.Mesh == nil || n.Mesh.Released() {
			return true
		}

		world := n.WorldMatrix()
		if _, ok := ray.IntersectBox(n.Mesh.Bounds().Transform(world)); !ok {
			return true
		}

		nearest := math.MaxFloat64
		for i := 0; i < n.Mesh.TriangleCount(); i++ {
			tri := n.Mesh.Triangle(i, world)
			if d, ok := ray.IntersectTriangle(tri.V1, tri.V2, tri.V3); ok && d < nearest {
				nearest = d
			}
		}
		if nearest == math.MaxFloat64 {
			return true
		}

		if top := topLevel(root, n); top != nil {
			if entry := s.reg.EntryFor(top); entry != nil {
				hits = append(hits, Hit{
					Entry:    entry,
					Node:     n,
					Distance: nearest,
					Point:    ray.At(nearest),
				})
			}
		}
		return true
	})

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits
}

// PickTop returns the entry owning the nearest hit, or nil
func (s *Service) PickTop(screenX, screenY float64) *registry.Entry {
	hits := s.Pick(screenX, screenY)
	if len(hits) == 0 {
		return nil
	}
	return hits[0].Entry
}

// topLevel walks up from n to the direct child of root
func topLevel(root, n *scene.Node) *scene.Node {
	for n != nil {
		p := n.Parent()
		if p == root {
			return n
		}
		n = p
	}
	return nil
}
