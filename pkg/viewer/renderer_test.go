package viewer

import (
	"image"
	"image/color"
	"testing"

	"github.com/philipparndt/arstudio/pkg/geometry"
	"github.com/philipparndt/arstudio/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quadNode(z float64, col color.RGBA) *scene.Node {
	mat := scene.DefaultMaterial()
	mat.Color = col
	mat.DoubleSided = true
	mesh := &scene.Mesh{
		Positions: []geometry.Vector3{
			{X: -1, Y: -1, Z: z}, {X: 1, Y: -1, Z: z}, {X: 1, Y: 1, Z: z}, {X: -1, Y: 1, Z: z},
		},
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
		Material: mat,
	}
	return scene.NewMeshNode("quad", mesh)
}

func TestRenderTransparentBackground(t *testing.T) {
	cam := NewCamera(75, 5, 64, 48)
	img := NewRenderer().Render(scene.NewNode("root"), cam, nil)

	require.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())
	assert.Equal(t, uint8(0), img.RGBAAt(32, 24).A)
}

func TestRenderDepthOrder(t *testing.T) {
	root := scene.NewNode("root")
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	root.Add(quadNode(-1, blue))
	root.Add(quadNode(1, red)) // nearer to the camera at z=5

	r := NewRenderer()
	r.Ambient = 1
	img := r.Render(root, NewCamera(75, 5, 64, 48), nil)

	c := img.RGBAAt(32, 24)
	assert.Equal(t, uint8(255), c.R)
	assert.Equal(t, uint8(0), c.B)
}

func TestRenderSkipsHiddenNodes(t *testing.T) {
	root := scene.NewNode("root")
	node := quadNode(0, color.RGBA{G: 255, A: 255})
	node.Visible = false
	root.Add(node)

	img := NewRenderer().Render(root, NewCamera(75, 5, 32, 32), nil)
	assert.Equal(t, uint8(0), img.RGBAAt(16, 16).A)
}

func TestRenderOverlay(t *testing.T) {
	box := geometry.NewBoundingBox()
	box.Extend(geometry.NewVector3(-1, -1, -1))
	box.Extend(geometry.NewVector3(1, 1, 1))
	yellow := color.RGBA{R: 255, G: 255, A: 255}

	img := NewRenderer().Render(nil, NewCamera(75, 5, 64, 64), []Overlay{{Box: box, Color: yellow}})

	found := false
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] == 255 && img.Pix[i+1] == 255 && img.Pix[i+3] == 255 {
			found = true
			break
		}
	}
	assert.True(t, found, "overlay edges should be drawn")
}

func TestRenderTexture(t *testing.T) {
	tex := image.NewRGBA(image.Rect(0, 0, 2, 2))
	green := color.RGBA{G: 200, A: 255}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			tex.SetRGBA(x, y, green)
		}
	}
	node := quadNode(0, color.RGBA{A: 255})
	node.Mesh.Material.Texture = tex
	node.Mesh.UVs = []geometry.Vector2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

	root := scene.NewNode("root")
	root.Add(node)
	img := NewRenderer().Render(root, NewCamera(75, 5, 32, 32), nil)

	assert.Equal(t, green, img.RGBAAt(16, 16))
}
