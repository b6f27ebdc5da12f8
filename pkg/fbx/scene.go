package fbx

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/philipparndt/arstudio/pkg/geometry"
	"github.com/philipparndt/arstudio/pkg/scene"
)

// ktimeSecond is the number of FBX time ticks per second
const ktimeSecond = 46186158000

// Scene is the renderable content of a document
type Scene struct {
	Root  *scene.Node
	Clips []*scene.Clip // one per animation stack
}

type object struct {
	id   int64
	name string
	node *Node
}

// link is one entry of the Connections section. prop is set for
// object-property (OP) connections.
type link struct {
	child, parent int64
	prop          string
}

// BuildScene extracts meshes, their materials and local transforms, and the
// animation stacks with their curves. Geometry connected to a Model inherits
// its transform.
func BuildScene(doc *Document, name string) (*Scene, error) {
	objects := doc.Find("Objects")
	if objects == nil {
		return nil, fmt.Errorf("fbx: missing Objects section")
	}

	byID := make(map[int64]object)
	var geometries, models, stacks []object

	for _, n := range objects.Children {
		obj := object{id: propInt(n, 0), name: objectName(n), node: n}
		byID[obj.id] = obj
		switch n.Name {
		case "Geometry":
			geometries = append(geometries, obj)
		case "Model":
			models = append(models, obj)
		case "AnimationStack":
			stacks = append(stacks, obj)
		}
	}

	// child id -> parent ids, object-object connections only
	parents := make(map[int64][]int64)
	var links []link
	if conns := doc.Find("Connections"); conns != nil {
		for _, c := range conns.ChildrenNamed("C") {
			if len(c.Properties) < 3 {
				continue
			}
			l := link{child: propInt(c, 1), parent: propInt(c, 2)}
			switch c.Properties[0] {
			case "OO":
				parents[l.child] = append(parents[l.child], l.parent)
			case "OP":
				if len(c.Properties) >= 4 {
					l.prop, _ = c.Properties[3].(string)
				}
			default:
				continue
			}
			links = append(links, l)
		}
	}

	modelNodes := make(map[int64]*scene.Node)
	for _, m := range models {
		node := scene.NewNode(m.name)
		applyTransform(node, m.node)
		modelNodes[m.id] = node
	}

	// material per model: the first Material object connected to it
	materials := make(map[int64]*scene.Material)
	for id, ps := range parents {
		obj, ok := byID[id]
		if !ok || obj.node.Name != "Material" {
			continue
		}
		for _, p := range ps {
			if _, seen := materials[p]; !seen {
				materials[p] = buildMaterial(obj)
			}
		}
	}

	root := scene.NewNode(name)
	for _, g := range geometries {
		mesh, err := buildMesh(g.node)
		if err != nil {
			return nil, fmt.Errorf("geometry %s: %w", g.name, err)
		}

		attached := false
		for _, p := range parents[g.id] {
			model, ok := modelNodes[p]
			if !ok {
				continue
			}
			if mat, ok := materials[p]; ok {
				mesh.Material = mat
			}
			model.Add(scene.NewMeshNode(g.name, mesh))
			attached = true
			break
		}
		if !attached {
			root.Add(scene.NewMeshNode(g.name, mesh))
		}
	}

	// Model hierarchy; models parented to the root (id 0) or unknown ids go
	// under the scene root
	for _, m := range models {
		node := modelNodes[m.id]
		parent := root
		for _, p := range parents[m.id] {
			if pn, ok := modelNodes[p]; ok {
				parent = pn
				break
			}
		}
		parent.Add(node)
	}

	if root.TriangleCount() == 0 {
		return nil, fmt.Errorf("fbx: no mesh geometry")
	}
	clips := buildClips(stacks, byID, links, modelNodes)
	return &Scene{Root: root, Clips: clips}, nil
}

func buildMesh(n *Node) (*scene.Mesh, error) {
	verts := n.Child("Vertices")
	polys := n.Child("PolygonVertexIndex")
	if verts == nil || polys == nil || len(verts.Properties) == 0 || len(polys.Properties) == 0 {
		return nil, fmt.Errorf("missing Vertices or PolygonVertexIndex")
	}

	coords, ok := floatArray(verts.Properties[0])
	if !ok {
		return nil, fmt.Errorf("unexpected Vertices type %T", verts.Properties[0])
	}
	indices, ok := intArray(polys.Properties[0])
	if !ok {
		return nil, fmt.Errorf("unexpected PolygonVertexIndex type %T", polys.Properties[0])
	}

	positions := make([]geometry.Vector3, len(coords)/3)
	for i := range positions {
		positions[i] = geometry.NewVector3(coords[i*3], coords[i*3+1], coords[i*3+2])
	}

	mesh := &scene.Mesh{Positions: positions, Material: scene.DefaultMaterial()}
	var polygon []uint32
	for _, raw := range indices {
		last := raw < 0
		if last {
			raw = ^raw
		}
		if int(raw) >= len(positions) {
			return nil, fmt.Errorf("vertex index %d out of range", raw)
		}
		polygon = append(polygon, uint32(raw))
		if last {
			for i := 1; i+1 < len(polygon); i++ {
				mesh.Indices = append(mesh.Indices, polygon[0], polygon[i], polygon[i+1])
			}
			polygon = polygon[:0]
		}
	}
	return mesh, nil
}

func buildMaterial(obj object) *scene.Material {
	mat := scene.DefaultMaterial()
	mat.Name = obj.name
	if c, ok := property70(obj.node, "DiffuseColor"); ok && len(c) >= 3 {
		mat.Color = color.RGBA{R: unit8(c[0]), G: unit8(c[1]), B: unit8(c[2]), A: 255}
	}
	if o, ok := property70(obj.node, "Opacity"); ok && len(o) >= 1 {
		mat.Opacity = o[0]
		mat.Transparent = o[0] < 1
	}
	return mat
}

func applyTransform(node *scene.Node, model *Node) {
	if t, ok := property70(model, "Lcl Translation"); ok && len(t) >= 3 {
		node.Position = geometry.NewVector3(t[0], t[1], t[2])
	}
	if r, ok := property70(model, "Lcl Rotation"); ok && len(r) >= 3 {
		const deg = math.Pi / 180
		node.Rotation = geometry.NewVector3(r[0]*deg, r[1]*deg, r[2]*deg)
	}
	if s, ok := property70(model, "Lcl Scaling"); ok && len(s) >= 3 {
		node.Scale = geometry.NewVector3(s[0], s[1], s[2])
	}
}

func stackDuration(n *Node) float64 {
	props := n.Child("Properties70")
	if props == nil {
		return 0
	}
	for _, p := range props.ChildrenNamed("P") {
		if len(p.Properties) >= 5 && p.Properties[0] == "LocalStop" {
			return float64(propInt(p, 4)) / ktimeSecond
		}
	}
	return 0
}

// property70 returns the numeric values of a Properties70 P record
func property70(n *Node, name string) ([]float64, bool) {
	props := n.Child("Properties70")
	if props == nil {
		return nil, false
	}
	for _, p := range props.ChildrenNamed("P") {
		if len(p.Properties) < 4 || p.Properties[0] != name {
			continue
		}
		var values []float64
		for _, v := range p.Properties[4:] {
			if f, ok := toFloat(v); ok {
				values = append(values, f)
			}
		}
		return values, true
	}
	return nil, false
}

// objectName strips the "\x00\x01Class" suffix from an object name
func objectName(n *Node) string {
	if len(n.Properties) < 2 {
		return n.Name
	}
	s, _ := n.Properties[1].(string)
	if i := strings.Index(s, "\x00\x01"); i >= 0 {
		s = s[:i]
	}
	return s
}

func propInt(n *Node, i int) int64 {
	if i >= len(n.Properties) {
		return 0
	}
	switch v := n.Properties[i].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	}
	return 0, false
}

func floatArray(v any) ([]float64, bool) {
	switch v := v.(type) {
	case []float64:
		return v, true
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, true
	}
	return nil, false
}

func intArray(v any) ([]int32, bool) {
	switch v := v.(type) {
	case []int32:
		return v, true
	case []int64:
		out := make([]int32, len(v))
		for i, x := range v {
			out[i] = int32(x)
		}
		return out, true
	}
	return nil, false
}

func unit8(f float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, f)) * 255))
}
