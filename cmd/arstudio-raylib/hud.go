package main

import (
	"fmt"
	"image"
	"image/color"
	"time"
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/philipparndt/arstudio/internal/app"
)

const noticeDuration = 4 * time.Second

// previewTexture holds the GPU copy of the engine preview
type previewTexture struct {
	texture rl.Texture2D
	width   int
	height  int
	loaded  bool
}

// update uploads frame, recreating the texture when its size changes
func (p *previewTexture) update(frame *image.RGBA) {
	w, h := frame.Bounds().Dx(), frame.Bounds().Dy()
	if w == 0 || h == 0 {
		return
	}
	if !p.loaded || w != p.width || h != p.height {
		p.unload()
		p.texture = rl.LoadTextureFromImage(&rl.Image{
			Data:    unsafe.Pointer(&frame.Pix[0]),
			Width:   int32(w),
			Height:  int32(h),
			Mipmaps: 1,
			Format:  rl.UncompressedR8g8b8a8,
		})
		p.width, p.height, p.loaded = w, h, true
		return
	}
	pixels := unsafe.Slice((*color.RGBA)(unsafe.Pointer(&frame.Pix[0])), w*h)
	rl.UpdateTexture(p.texture, pixels)
}

// draw stretches the preview over the window
func (p *previewTexture) draw() {
	if !p.loaded {
		return
	}
	src := rl.Rectangle{Width: float32(p.width), Height: float32(p.height)}
	dst := rl.Rectangle{Width: float32(rl.GetScreenWidth()), Height: float32(rl.GetScreenHeight())}
	rl.DrawTexturePro(p.texture, src, dst, rl.Vector2{}, 0, rl.White)
}

func (p *previewTexture) unload() {
	if p.loaded {
		rl.UnloadTexture(p.texture)
		p.loaded = false
	}
}

// hud draws status text over the preview
type hud struct {
	text  string
	until time.Time
}

func (h *hud) notice(msg string) {
	h.text = msg
	h.until = time.Now().Add(noticeDuration)
}

func (h *hud) draw(e *app.Engine) {
	status := fmt.Sprintf("Mode: %s  Models: %d/%d", e.Mode(), e.Registry().Len(), e.Registry().Capacity())
	if n := e.InFlight(); n > 0 {
		status += fmt.Sprintf("  Loading: %d", n)
	}
	if sel := e.Selected(); sel != nil {
		status += fmt.Sprintf("  Selected: %s (scale %.2f)", sel.Name, sel.Scale())
	}

	screenW := int32(rl.GetScreenWidth())
	screenH := int32(rl.GetScreenHeight())

	rl.DrawRectangle(0, 0, screenW, 28, rl.NewColor(0, 0, 0, 150))
	rl.DrawText(status, 10, 6, 16, rl.LightGray)

	if h.text != "" && time.Now().Before(h.until) {
		y := screenH - 34
		rl.DrawRectangle(0, y, screenW, 34, rl.NewColor(0, 0, 0, 150))
		rl.DrawText(h.text, 10, y+8, 18, rl.Yellow)
	}

	help := "Drop files to load | C capture | X clear | Del remove | D deselect | M mode | Q/E rotate | +/- scale"
	width := rl.MeasureText(help, 14)
	rl.DrawText(help, screenW-width-10, 34, 14, rl.NewColor(200, 200, 200, 200))
}
