package scene

import "github.com/philipparndt/arstudio/pkg/geometry"

// Mesh is an indexed triangle list in local coordinates
type Mesh struct {
	Positions []geometry.Vector3
	UVs       []geometry.Vector2 // optional, parallel to Positions
	Indices   []uint32           // nil means consecutive triples of Positions
	Material  *Material

	released bool
}

// TriangleCount returns the number of triangles in the mesh
func (m *Mesh) TriangleCount() int {
	if m.Indices != nil {
		return len(m.Indices) / 3
	}
	return len(m.Positions) / 3
}

// TriangleIndices returns the vertex indices of triangle i
func (m *Mesh) TriangleIndices(i int) (uint32, uint32, uint32) {
	if m.Indices != nil {
		return m.Indices[i*3], m.Indices[i*3+1], m.Indices[i*3+2]
	}
	base := uint32(i * 3)
	return base, base + 1, base + 2
}

// Triangle returns triangle i transformed by m
func (m *Mesh) Triangle(i int, world geometry.Matrix4) geometry.Triangle {
	a, b, c := m.TriangleIndices(i)
	return geometry.Triangle{
		V1: m.Positions[a],
		V2: m.Positions[b],
		V3: m.Positions[c],
	}.Transform(world)
}

// Bounds returns the local-space bounding box of all vertices
func (m *Mesh) Bounds() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for _, p := range m.Positions {
		bbox.Extend(p)
	}
	return bbox
}

// Release drops the vertex data. A released mesh no longer draws or picks.
func (m *Mesh) Release() {
	m.Positions = nil
	m.UVs = nil
	m.Indices = nil
	m.released = true
}

// Released reports whether Release has been called
func (m *Mesh) Released() bool {
	return m.released
}
