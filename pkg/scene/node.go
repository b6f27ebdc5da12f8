package scene

import "github.com/philipparndt/arstudio/pkg/geometry"

// Node is an element of the scene graph. Transforms compose from the root
// down: world = parent.world * translate * rotate * scale.
type Node struct {
	Name     string
	Position geometry.Vector3
	Rotation geometry.Vector3 // Euler XYZ, radians
	Scale    geometry.Vector3
	Visible  bool
	Mesh     *Mesh

	parent   *Node
	children []*Node
}

// NewNode creates an empty visible node with unit scale
func NewNode(name string) *Node {
	return &Node{
		Name:    name,
		Scale:   geometry.NewVector3(1, 1, 1),
		Visible: true,
	}
}

// NewMeshNode creates a node carrying a mesh
func NewMeshNode(name string, mesh *Mesh) *Node {
	n := NewNode(name)
	n.Mesh = mesh
	return n
}

// Parent returns the node this node is attached to, or nil
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the attached child nodes
func (n *Node) Children() []*Node {
	return n.children
}

// Add attaches child, detaching it from any previous parent first
func (n *Node) Add(child *Node) {
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

// Remove detaches child. It reports false if child was not attached here.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			child.parent = nil
			return true
		}
	}
	return false
}

// LocalMatrix returns the node transform relative to its parent
func (n *Node) LocalMatrix() geometry.Matrix4 {
	return geometry.Compose(n.Position, n.Rotation, n.Scale)
}

// WorldMatrix returns the node transform relative to the graph root
func (n *Node) WorldMatrix() geometry.Matrix4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul(m)
	}
	return m
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the subtree below that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// Bounds returns the world-space bounding box of every mesh below n
func (n *Node) Bounds() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	n.Walk(func(node *Node) bool {
		if node.Mesh != nil {
			bbox.Union(node.Mesh.Bounds().Transform(node.WorldMatrix()))
		}
		return true
	})
	return bbox
}

// Materials returns every distinct material used below n
func (n *Node) Materials() []*Material {
	seen := make(map[*Material]bool)
	var out []*Material
	n.Walk(func(node *Node) bool {
		if node.Mesh != nil && node.Mesh.Material != nil && !seen[node.Mesh.Material] {
			seen[node.Mesh.Material] = true
			out = append(out, node.Mesh.Material)
		}
		return true
	})
	return out
}

// TriangleCount returns the number of triangles below n
func (n *Node) TriangleCount() int {
	count := 0
	n.Walk(func(node *Node) bool {
		if node.Mesh != nil {
			count += node.Mesh.TriangleCount()
		}
		return true
	})
	return count
}

// Release frees every mesh below n
func (n *Node) Release() {
	n.Walk(func(node *Node) bool {
		if node.Mesh != nil {
			node.Mesh.Release()
		}
		return true
	})
}
