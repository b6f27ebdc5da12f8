// Package capture composites the mirrored camera frame with the rendered
// scene, both for the live preview and for saved photos.
package capture

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync"

	"github.com/anthonynsimon/bild/transform"
	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/philipparndt/arstudio/internal/video"
	"github.com/philipparndt/arstudio/pkg/scene"
	"github.com/philipparndt/arstudio/pkg/viewer"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// OutlineColor is the selection highlight color
var OutlineColor = color.RGBA{R: 255, G: 221, B: 0, A: 255}

// Renderer draws a scene graph with a transparent background
type Renderer interface {
	Render(root *scene.Node, cam *viewer.Camera, overlays []viewer.Overlay) *image.RGBA
}

// Options selects what a composite includes
type Options struct {
	Outlines bool   // draw selection outlines
	Message  string // countdown text drawn on top; empty for none
}

// Compositor merges the video frame and the rendered scene
type Compositor struct {
	reg      *registry.Registry
	renderer Renderer
	cam      *viewer.Camera
	log      *slog.Logger

	mu    sync.RWMutex
	video video.Source
}

// New creates a compositor. src may be nil for a scene-only composite.
func New(reg *registry.Registry, renderer Renderer, cam *viewer.Camera, src video.Source, log *slog.Logger) *Compositor {
	if log == nil {
		log = slog.Default()
	}
	return &Compositor{reg: reg, renderer: renderer, cam: cam, video: src, log: log}
}

// SetVideo replaces the frame source
func (c *Compositor) SetVideo(src video.Source) {
	c.mu.Lock()
	c.video = src
	c.mu.Unlock()
}

// Compose builds one frame. The output has the native video resolution, or
// the viewport size when no frame is available. The video is mirrored
// horizontally; the scene is rendered at viewport size and scaled on top.
func (c *Compositor) Compose(opts Options) *image.RGBA {
	frame := c.frame()

	size := image.Rect(0, 0, int(c.cam.Width), int(c.cam.Height))
	if frame != nil {
		size = image.Rect(0, 0, frame.Bounds().Dx(), frame.Bounds().Dy())
	}
	out := image.NewRGBA(size)

	if frame != nil {
		draw.Draw(out, size, transform.FlipH(frame), image.Point{}, draw.Src)
	}

	if !opts.Outlines {
		restore := c.reg.HideOutlines()
		defer restore()
	}

	var overlays []viewer.Overlay
	for _, box := range c.reg.Outlines() {
		overlays = append(overlays, viewer.Overlay{Box: box, Color: OutlineColor})
	}

	layer := c.renderer.Render(c.reg.Root(), c.cam, overlays)
	if layer.Bounds().Size() == size.Size() {
		draw.Draw(out, size, layer, layer.Bounds().Min, draw.Over)
	} else {
		xdraw.ApproxBiLinear.Scale(out, size, layer, layer.Bounds(), xdraw.Over, nil)
	}

	if opts.Message != "" {
		drawMessage(out, opts.Message)
	}
	return out
}

func (c *Compositor) frame() image.Image {
	c.mu.RLock()
	src := c.video
	c.mu.RUnlock()
	if src == nil {
		return nil
	}

	frame, err := src.Frame()
	if err != nil {
		if !errors.Is(err, video.ErrNoFrame) {
			c.log.Warn("video frame unavailable", "err", err)
		}
		return nil
	}
	return frame
}

// drawMessage renders text centered in the upper third, scaled up from the
// fixed bitmap face
func drawMessage(dst *image.RGBA, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()
	if width <= 0 || height <= 0 {
		return
	}

	const padding = 2
	label := image.NewRGBA(image.Rect(0, 0, width+padding*2, height+padding*2))
	draw.Draw(label, label.Bounds(), image.NewUniform(color.RGBA{A: 160}), image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  label,
		Src:  image.White,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(padding), Y: fixed.I(padding) + face.Metrics().Ascent},
	}
	d.DrawString(text)

	bounds := dst.Bounds()
	scale := bounds.Dy() / 8 / label.Bounds().Dy()
	if scale < 1 {
		scale = 1
	}
	w := label.Bounds().Dx() * scale
	h := label.Bounds().Dy() * scale
	if w > bounds.Dx() {
		w = bounds.Dx()
	}

	x := bounds.Min.X + (bounds.Dx()-w)/2
	y := bounds.Min.Y + bounds.Dy()/3 - h/2
	xdraw.NearestNeighbor.Scale(dst, image.Rect(x, y, x+w, y+h), label, label.Bounds(), xdraw.Over, nil)
}
