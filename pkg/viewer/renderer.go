package viewer

import (
	"image"
	"image/color"
	"math"

	"github.com/philipparndt/arstudio/pkg/geometry"
	"github.com/philipparndt/arstudio/pkg/scene"
)

// Overlay is a wireframe box drawn on top of the shaded scene
type Overlay struct {
	Box   geometry.BoundingBox
	Color color.RGBA
}

// Renderer rasterizes a scene graph into an RGBA image with a transparent
// background, so it can be composited over a camera frame
type Renderer struct {
	LightDir geometry.Vector3
	Ambient  float64
}

// NewRenderer creates a renderer with a single directional light
func NewRenderer() *Renderer {
	return &Renderer{
		LightDir: geometry.NewVector3(0, -5, -5).Normalize(),
		Ambient:  0.35,
	}
}

// Render draws every visible mesh below root as seen by cam, then the overlays
func (r *Renderer) Render(root *scene.Node, cam *Camera, overlays []Overlay) *image.RGBA {
	width := int(cam.Width)
	height := int(cam.Height)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if width <= 0 || height <= 0 {
		return img
	}

	zbuffer := make([]float64, width*height)
	for i := range zbuffer {
		zbuffer[i] = math.MaxFloat64
	}

	if root != nil {
		root.Walk(func(node *scene.Node) bool {
			if !node.Visible {
				return false
			}
			if node.Mesh != nil && !node.Mesh.Released() {
				r.drawMesh(img, zbuffer, node.Mesh, node.WorldMatrix(), cam)
			}
			return true
		})
	}

	for _, o := range overlays {
		r.drawBox(img, o, cam)
	}
	return img
}

func (r *Renderer) drawMesh(img *image.RGBA, zbuffer []float64, mesh *scene.Mesh, world geometry.Matrix4, cam *Camera) {
	mat := mesh.Material
	if mat == nil {
		mat = scene.DefaultMaterial()
	}

	for i := 0; i < mesh.TriangleCount(); i++ {
		ia, ib, ic := mesh.TriangleIndices(i)
		tri := mesh.Triangle(i, world)

		toCamera := cam.Position.Sub(tri.V1)
		facing := tri.Normal.Dot(toCamera)
		if !mat.DoubleSided && facing <= 0 {
			continue
		}

		var verts [3]screenVertex
		behind := false
		for k, p := range [3]geometry.Vector3{tri.V1, tri.V2, tri.V3} {
			x, y, z := cam.Project(p)
			if z <= cam.Near {
				behind = true
				break
			}
			verts[k] = screenVertex{x: x, y: y, z: z}
		}
		if behind {
			continue
		}

		if len(mesh.UVs) == len(mesh.Positions) {
			for k, idx := range [3]uint32{ia, ib, ic} {
				verts[k].u = mesh.UVs[idx].X
				verts[k].v = mesh.UVs[idx].Y
			}
		}

		normal := tri.Normal
		if facing < 0 {
			normal = normal.Mul(-1)
		}
		intensity := math.Max(r.Ambient, -normal.Dot(r.LightDir))
		intensity = math.Min(1, intensity)

		fillTriangleWithDepth(img, zbuffer, verts[0], verts[1], verts[2], mat.DepthWrite, r.shader(mat, intensity))
	}
}

func (r *Renderer) shader(mat *scene.Material, intensity float64) shadeFunc {
	if mat.Texture != nil {
		// Textured surfaces are unlit; pixels below half alpha are cut out
		return func(u, v float64) (color.RGBA, bool) {
			c := sampleTexture(mat.Texture, u, v)
			if c.A < 128 {
				return color.RGBA{}, false
			}
			c.A = 255
			return c, true
		}
	}

	lit := color.RGBA{
		R: uint8(float64(mat.Color.R) * intensity),
		G: uint8(float64(mat.Color.G) * intensity),
		B: uint8(float64(mat.Color.B) * intensity),
		A: 255,
	}
	return func(float64, float64) (color.RGBA, bool) {
		return lit, true
	}
}

func (r *Renderer) drawBox(img *image.RGBA, o Overlay, cam *Camera) {
	if o.Box.IsEmpty() {
		return
	}
	for _, e := range o.Box.Edges() {
		x1, y1, z1 := cam.Project(e[0])
		x2, y2, z2 := cam.Project(e[1])
		if z1 <= cam.Near || z2 <= cam.Near {
			continue
		}
		drawLine(img, int(math.Round(x1)), int(math.Round(y1)), int(math.Round(x2)), int(math.Round(y2)), o.Color)
	}
}
