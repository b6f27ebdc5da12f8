// Package gesture turns pointer and touch streams into selection and
// transform changes on the registry.
//
// The pointer count decides the mode: one pointer pressed on an entry drags
// it, two pointers pinch-scale the selection, anything else is idle. A change
// in pointer count always ends the current session.
package gesture

import (
	"log/slog"
	"math"

	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/philipparndt/arstudio/pkg/geometry"
)

// State is the active interaction mode
type State int

const (
	Idle State = iota
	Dragging
	Pinching
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Pinching:
		return "pinching"
	}
	return "idle"
}

// Axis names a rotation axis
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Picker resolves a screen point to the entry under it
type Picker interface {
	PickTop(screenX, screenY float64) *registry.Entry
}

// DistanceFunc returns the camera distance along its forward axis
type DistanceFunc func() float64

// Options tunes the input mapping
type Options struct {
	DragSensitivity  float64 // world units per pixel per unit of camera distance
	WheelSensitivity float64 // scale change per wheel unit
	Logger           *slog.Logger
}

// session is the state of one press-to-release interaction
type session struct {
	mode            State
	entry           registry.ID
	pointer         int
	last            geometry.Vector2
	initialScale    float64
	initialDistance float64
}

// Controller is the gesture state machine. It is not safe for concurrent
// use; feed it from the frame loop.
type Controller struct {
	reg      *registry.Registry
	pick     Picker
	distance DistanceFunc
	opts     Options
	log      *slog.Logger

	pointers map[int]geometry.Vector2
	order    []int
	session  *session

	// OnSelect is called after a press selects an entry
	OnSelect func(*registry.Entry)
	// OnHover is called when the hover result flips between hit and miss
	OnHover func(hit bool)
	hovered bool
}

// New creates a controller
func New(reg *registry.Registry, pick Picker, distance DistanceFunc, opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		reg:      reg,
		pick:     pick,
		distance: distance,
		opts:     opts,
		log:      log,
		pointers: make(map[int]geometry.Vector2),
	}
}

// State returns the current mode
func (c *Controller) State() State {
	if c.session == nil {
		return Idle
	}
	return c.session.mode
}

// ActivePointers returns how many pointers are down
func (c *Controller) ActivePointers() int {
	return len(c.pointers)
}

// PointerDown registers a press
func (c *Controller) PointerDown(id int, x, y float64) {
	if _, down := c.pointers[id]; !down {
		c.order = append(c.order, id)
	}
	c.pointers[id] = geometry.NewVector2(x, y)
	c.begin()
}

// PointerMove updates a pressed pointer and applies drag or pinch
func (c *Controller) PointerMove(id int, x, y float64) {
	if _, down := c.pointers[id]; !down {
		return
	}
	pos := geometry.NewVector2(x, y)
	c.pointers[id] = pos

	s := c.session
	if s == nil {
		return
	}

	switch s.mode {
	case Dragging:
		if id != s.pointer {
			return
		}
		if c.reg.Get(s.entry) == nil {
			c.end()
			return
		}
		dx := pos.X - s.last.X
		dy := pos.Y - s.last.Y
		s.last = pos

		factor := c.opts.DragSensitivity * c.distance()
		// Screen Y grows downward, world Y upward
		c.reg.Translate(s.entry, geometry.NewVector3(dx*factor, -dy*factor, 0))

	case Pinching:
		if s.entry == registry.NoID || s.initialDistance <= 0 {
			return
		}
		if c.reg.Get(s.entry) == nil {
			c.end()
			return
		}
		d := c.pointerDistance()
		c.reg.SetScale(s.entry, s.initialScale*(d/s.initialDistance))
	}
}

// PointerUp releases a pointer. Any pointer count change ends the session.
func (c *Controller) PointerUp(id int) {
	if _, down := c.pointers[id]; !down {
		return
	}
	delete(c.pointers, id)
	for i, p := range c.order {
		if p == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.end()
}

// Reset drops all pointers and the session
func (c *Controller) Reset() {
	c.pointers = make(map[int]geometry.Vector2)
	c.order = nil
	c.end()
}

// begin starts the session matching the new pointer count
func (c *Controller) begin() {
	c.end()

	switch len(c.pointers) {
	case 1:
		id := c.order[0]
		pos := c.pointers[id]
		entry := c.pick.PickTop(pos.X, pos.Y)
		if entry == nil {
			// Empty space keeps the current selection
			return
		}
		c.reg.Select(entry.ID)
		if c.OnSelect != nil {
			c.OnSelect(entry)
		}
		c.session = &session{mode: Dragging, entry: entry.ID, pointer: id, last: pos}

	case 2:
		s := &session{mode: Pinching, initialDistance: c.pointerDistance()}
		if sel := c.reg.Selected(); sel != nil {
			s.entry = sel.ID
			s.initialScale = sel.Scale()
		}
		c.session = s
	}

	if c.session != nil {
		c.log.Debug("gesture started", "mode", c.session.mode, "entry", c.session.entry)
	}
}

func (c *Controller) end() {
	c.session = nil
}

// pointerDistance returns the distance between the first two pointers
func (c *Controller) pointerDistance() float64 {
	if len(c.order) < 2 {
		return 0
	}
	return c.pointers[c.order[0]].Distance(c.pointers[c.order[1]])
}

// Hover reports whether an entry is under the point and fires OnHover when
// that changes. It never mutates the scene.
func (c *Controller) Hover(x, y float64) bool {
	hit := c.pick.PickTop(x, y) != nil
	if hit != c.hovered {
		c.hovered = hit
		if c.OnHover != nil {
			c.OnHover(hit)
		}
	}
	return hit
}

// Wheel scales the selection by a wheel delta; positive grows
func (c *Controller) Wheel(delta float64) {
	c.ScaleBy(delta * c.opts.WheelSensitivity)
}

// ScaleBy adds delta to the selected entry's scale
func (c *Controller) ScaleBy(delta float64) {
	if sel := c.reg.Selected(); sel != nil {
		c.reg.SetScale(sel.ID, sel.Scale()+delta)
	}
}

// SetScale sets the selected entry's scale
func (c *Controller) SetScale(v float64) {
	if sel := c.reg.Selected(); sel != nil {
		c.reg.SetScale(sel.ID, v)
	}
}

// RotateAbsolute sets the selected entry's yaw
func (c *Controller) RotateAbsolute(angle float64) {
	if sel := c.reg.Selected(); sel != nil {
		r := sel.Rotation()
		r.Y = angle
		c.reg.SetRotation(sel.ID, r)
	}
}

// RotateRelative adds angle to the selected entry's rotation about axis
func (c *Controller) RotateRelative(axis Axis, angle float64) {
	sel := c.reg.Selected()
	if sel == nil {
		return
	}
	r := sel.Rotation()
	switch axis {
	case AxisX:
		r.X = wrapAngle(r.X + angle)
	case AxisY:
		r.Y = wrapAngle(r.Y + angle)
	case AxisZ:
		r.Z = wrapAngle(r.Z + angle)
	}
	c.reg.SetRotation(sel.ID, r)
}

// wrapAngle keeps an angle in (-pi, pi]
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
