package main

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/philipparndt/arstudio/internal/app"
)

const mousePointer = 0

// SceneView shows the engine preview and turns mouse input into pointer
// events
type SceneView struct {
	widget.BaseWidget
	engine  *app.Engine
	image   *canvas.Image
	pressed bool
	hovered bool
	size    fyne.Size
}

// NewSceneView creates a view for engine
func NewSceneView(engine *app.Engine) *SceneView {
	v := &SceneView{engine: engine}
	v.image = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	v.image.FillMode = canvas.ImageFillStretch
	v.image.ScaleMode = canvas.ImageScaleFastest
	v.ExtendBaseWidget(v)
	return v
}

// Show displays a new preview frame
func (v *SceneView) Show(frame image.Image) {
	v.image.Image = frame
	v.image.Refresh()
}

// CreateRenderer creates the renderer for the widget
func (v *SceneView) CreateRenderer() fyne.WidgetRenderer {
	return &sceneViewRenderer{view: v}
}

// toViewport maps widget coordinates to render viewport pixels
func (v *SceneView) toViewport(pos fyne.Position) (float64, float64) {
	cam := v.engine.Camera()
	if v.size.Width <= 0 || v.size.Height <= 0 {
		return float64(pos.X), float64(pos.Y)
	}
	return float64(pos.X) / float64(v.size.Width) * cam.Width,
		float64(pos.Y) / float64(v.size.Height) * cam.Height
}

// MouseDown starts a press on the scene
func (v *SceneView) MouseDown(event *desktop.MouseEvent) {
	if event.Button != desktop.MouseButtonPrimary {
		return
	}
	x, y := v.toViewport(event.Position)
	v.pressed = true
	v.engine.PointerDown(mousePointer, x, y)
}

// MouseUp ends the press
func (v *SceneView) MouseUp(event *desktop.MouseEvent) {
	v.release()
}

// Dragged moves the pressed pointer
func (v *SceneView) Dragged(event *fyne.DragEvent) {
	if !v.pressed {
		return
	}
	x, y := v.toViewport(event.Position)
	v.engine.PointerMove(mousePointer, x, y)
}

// DragEnd ends the drag
func (v *SceneView) DragEnd() {
	v.release()
}

func (v *SceneView) release() {
	if v.pressed {
		v.pressed = false
		v.engine.PointerUp(mousePointer)
	}
}

// MouseIn implements desktop.Hoverable
func (v *SceneView) MouseIn(event *desktop.MouseEvent) {
	v.MouseMoved(event)
}

// MouseMoved updates the hover cue
func (v *SceneView) MouseMoved(event *desktop.MouseEvent) {
	x, y := v.toViewport(event.Position)
	v.hovered = v.engine.Hover(x, y)
}

// MouseOut implements desktop.Hoverable
func (v *SceneView) MouseOut() {
	v.hovered = false
}

// Cursor shows a pointer over models
func (v *SceneView) Cursor() desktop.Cursor {
	if v.hovered {
		return desktop.PointerCursor
	}
	return desktop.DefaultCursor
}

// Scrolled scales the selection
func (v *SceneView) Scrolled(event *fyne.ScrollEvent) {
	v.engine.Wheel(float64(event.Scrolled.DY))
}

// sceneViewRenderer implements fyne.WidgetRenderer
type sceneViewRenderer struct {
	view *SceneView
}

func (r *sceneViewRenderer) Layout(size fyne.Size) {
	r.view.size = size
	r.view.image.Resize(size)
	if size.Width >= 1 && size.Height >= 1 {
		r.view.engine.Resize(int(size.Width), int(size.Height))
	}
}

func (r *sceneViewRenderer) MinSize() fyne.Size {
	return fyne.NewSize(640, 360)
}

func (r *sceneViewRenderer) Refresh() {
	canvas.Refresh(r.view.image)
}

func (r *sceneViewRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.view.image}
}

func (r *sceneViewRenderer) Destroy() {}
