package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/philipparndt/arstudio/internal/video"
	"github.com/philipparndt/arstudio/pkg/geometry"
	"github.com/philipparndt/arstudio/pkg/scene"
	"github.com/philipparndt/arstudio/pkg/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenderer returns an empty or solid layer and records what it was asked
// to draw
type fakeRenderer struct {
	fill          color.RGBA
	overlays      []viewer.Overlay
	visibleDuring []bool
	reg           *registry.Registry
}

func (f *fakeRenderer) Render(root *scene.Node, cam *viewer.Camera, overlays []viewer.Overlay) *image.RGBA {
	f.overlays = overlays
	f.visibleDuring = nil
	if f.reg != nil {
		for _, e := range f.reg.Entries() {
			f.visibleDuring = append(f.visibleDuring, e.OutlineVisible())
		}
	}
	img := image.NewRGBA(image.Rect(0, 0, int(cam.Width), int(cam.Height)))
	if f.fill.A > 0 {
		for y := 0; y < img.Bounds().Dy(); y++ {
			for x := 0; x < img.Bounds().Dx(); x++ {
				img.SetRGBA(x, y, f.fill)
			}
		}
	}
	return img
}

func newRegistry() *registry.Registry {
	return registry.New(registry.Options{Capacity: 2, TargetSize: 2, MinScale: 0.1, MaxScale: 5})
}

func quad() registry.Asset {
	mesh := &scene.Mesh{
		Positions: []geometry.Vector3{
			geometry.NewVector3(-1, -1, 0),
			geometry.NewVector3(1, -1, 0),
			geometry.NewVector3(1, 1, 0),
		},
		Material: scene.DefaultMaterial(),
	}
	return registry.Asset{Name: "q", Node: scene.NewMeshNode("q", mesh)}
}

func TestComposeMirrorsVideo(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	frame := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			frame.SetRGBA(x, y, blue)
		}
		frame.SetRGBA(0, y, red)
	}

	cam := viewer.NewCamera(75, 5, 8, 4)
	c := New(newRegistry(), &fakeRenderer{}, cam, video.NewStillSource(frame), nil)

	out := c.Compose(Options{})
	require.Equal(t, image.Rect(0, 0, 4, 2), out.Bounds())
	assert.Equal(t, red, out.RGBAAt(3, 0))
	assert.Equal(t, blue, out.RGBAAt(0, 0))
}

func TestComposeWithoutVideoUsesViewport(t *testing.T) {
	cam := viewer.NewCamera(75, 5, 64, 48)
	c := New(newRegistry(), &fakeRenderer{}, cam, nil, nil)

	out := c.Compose(Options{})
	assert.Equal(t, image.Rect(0, 0, 64, 48), out.Bounds())

	c.SetVideo(&video.StillSource{})
	assert.Equal(t, image.Rect(0, 0, 64, 48), c.Compose(Options{}).Bounds())
}

func TestComposeScalesSceneToVideo(t *testing.T) {
	green := color.RGBA{G: 255, A: 255}
	cam := viewer.NewCamera(75, 5, 32, 24)
	frame := image.NewRGBA(image.Rect(0, 0, 64, 48))
	c := New(newRegistry(), &fakeRenderer{fill: green}, cam, video.NewStillSource(frame), nil)

	out := c.Compose(Options{})
	assert.Equal(t, image.Rect(0, 0, 64, 48), out.Bounds())
	assert.Equal(t, green, out.RGBAAt(32, 24))
	assert.Equal(t, green, out.RGBAAt(63, 47))
}

func TestPreviewIncludesOutlines(t *testing.T) {
	reg := newRegistry()
	e := reg.Insert(quad())
	reg.Select(e.ID)
	r := &fakeRenderer{reg: reg}
	c := New(reg, r, viewer.NewCamera(75, 5, 32, 24), nil, nil)

	c.Compose(Options{Outlines: true, Message: "3"})
	require.Len(t, r.overlays, 1)
	assert.Equal(t, OutlineColor, r.overlays[0].Color)
}

func TestCaptureSuppressesAndRestoresOutlines(t *testing.T) {
	reg := newRegistry()
	a := reg.Insert(quad())
	b := reg.Insert(quad())
	reg.Select(a.ID)
	posBefore := a.Position()

	r := &fakeRenderer{reg: reg}
	c := New(reg, r, viewer.NewCamera(75, 5, 32, 24), nil, nil)

	photo, err := c.Capture("self-studio", time.UnixMilli(1700000000123))
	require.NoError(t, err)

	assert.Empty(t, r.overlays)
	assert.Equal(t, []bool{false, false}, r.visibleDuring)

	assert.True(t, a.OutlineVisible())
	assert.False(t, b.OutlineVisible())
	assert.Equal(t, a, reg.Selected())
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, posBefore, a.Position())

	assert.Equal(t, "self-studio-ar-1700000000123.png", photo.Filename)
	decoded, err := png.Decode(bytes.NewReader(photo.PNG))
	require.NoError(t, err)
	assert.Equal(t, photo.Image.Bounds(), decoded.Bounds())
}

func TestPhotoSave(t *testing.T) {
	c := New(newRegistry(), &fakeRenderer{}, viewer.NewCamera(75, 5, 16, 16), nil, nil)
	photo, err := c.Capture("booth", time.UnixMilli(42))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "nested", "captures")
	path, err := photo.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "booth-ar-42.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, photo.PNG, data)
}

func TestDrawMessage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 160))
	drawMessage(img, "SMILE!")

	drawn := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			drawn++
		}
	}
	assert.Greater(t, drawn, 0)
}
