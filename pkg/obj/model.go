package obj

import (
	"github.com/philipparndt/arstudio/pkg/geometry"
	"github.com/philipparndt/arstudio/pkg/scene"
)

// Group is one object/group + material run of faces, triangulated and
// de-indexed into its own vertex arrays
type Group struct {
	Name      string
	Material  string
	Positions []geometry.Vector3
	UVs       []geometry.Vector2
	Indices   []uint32
}

// Model is a parsed Wavefront OBJ file
type Model struct {
	Name         string
	MaterialLibs []string // mtllib references in file order
	Groups       []*Group
}

// TriangleCount returns the number of triangles across all groups
func (m *Model) TriangleCount() int {
	count := 0
	for _, g := range m.Groups {
		count += len(g.Indices) / 3
	}
	return count
}

// Node builds a scene node with one mesh child per group. Groups whose
// material is missing from materials get the placeholder material, so a
// nil map flags every surface.
func (m *Model) Node(materials map[string]*scene.Material) *scene.Node {
	root := scene.NewNode(m.Name)
	var placeholder *scene.Material

	for _, g := range m.Groups {
		mat, ok := materials[g.Material]
		if !ok || mat == nil {
			if placeholder == nil {
				placeholder = scene.NewPlaceholderMaterial()
			}
			mat = placeholder
		}

		mesh := &scene.Mesh{
			Positions: g.Positions,
			Indices:   g.Indices,
			Material:  mat,
		}
		if len(g.UVs) == len(g.Positions) {
			mesh.UVs = g.UVs
		}
		root.Add(scene.NewMeshNode(g.Name, mesh))
	}
	return root
}
