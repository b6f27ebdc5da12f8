package main

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/philipparndt/arstudio/internal/config"
	"github.com/philipparndt/arstudio/internal/gesture"
	"github.com/philipparndt/arstudio/internal/registry"
)

const (
	mousePointer = -1 // touch ids are non-negative
	rotateStep   = math.Pi / 12
	scaleStep    = 0.1
)

// handleInput samples pointers and keys once per frame
func (w *Window) handleInput() {
	e := w.engine

	if rl.IsWindowResized() {
		e.Resize(int(rl.GetScreenWidth()), int(rl.GetScreenHeight()))
	}

	e.Pointers(w.pointers())

	mouse := rl.GetMousePosition()
	e.Hover(float64(mouse.X), float64(mouse.Y))

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		e.ScaleBy(float64(wheel) * scaleStep)
	}

	if rl.IsFileDropped() {
		for _, path := range rl.LoadDroppedFiles() {
			e.Load(path)
		}
		rl.UnloadDroppedFiles()
	}

	switch {
	case rl.IsKeyPressed(rl.KeyC), rl.IsKeyPressed(rl.KeySpace):
		e.RequestCapture()
	case rl.IsKeyPressed(rl.KeyX):
		e.Clear()
	case rl.IsKeyPressed(rl.KeyDelete), rl.IsKeyPressed(rl.KeyBackspace):
		if sel := e.Selected(); sel != nil {
			e.Remove(sel.ID)
		}
	case rl.IsKeyPressed(rl.KeyM):
		mode := config.ModeReplace
		if e.Mode() == config.ModeReplace {
			mode = config.ModeAdd
		}
		if err := e.SetMode(mode); err != nil {
			w.hud.notice(err.Error())
		}
	case rl.IsKeyPressed(rl.KeyQ):
		e.RotateRelative(gesture.AxisY, -rotateStep)
	case rl.IsKeyPressed(rl.KeyE):
		e.RotateRelative(gesture.AxisY, rotateStep)
	case rl.IsKeyPressed(rl.KeyT):
		e.RotateRelative(gesture.AxisX, rotateStep)
	case rl.IsKeyPressed(rl.KeyR):
		e.RotateAbsolute(0)
	case rl.IsKeyPressed(rl.KeyEqual), rl.IsKeyPressed(rl.KeyKpAdd):
		e.ScaleBy(scaleStep)
	case rl.IsKeyPressed(rl.KeyMinus), rl.IsKeyPressed(rl.KeyKpSubtract):
		e.ScaleBy(-scaleStep)
	case rl.IsKeyPressed(rl.KeyD):
		e.Select(registry.NoID)
	}
}

// pointers returns the active touch points, or the mouse when the left
// button is held and no touch is active
func (w *Window) pointers() []gesture.Pointer {
	count := rl.GetTouchPointCount()
	if count > 0 {
		ps := make([]gesture.Pointer, 0, count)
		for i := int32(0); i < count; i++ {
			pos := rl.GetTouchPosition(i)
			ps = append(ps, gesture.Pointer{
				ID: int(rl.GetTouchPointId(i)),
				X:  float64(pos.X),
				Y:  float64(pos.Y),
			})
		}
		return ps
	}

	if rl.IsMouseButtonDown(rl.MouseLeftButton) {
		pos := rl.GetMousePosition()
		return []gesture.Pointer{{ID: mousePointer, X: float64(pos.X), Y: float64(pos.Y)}}
	}
	return nil
}
