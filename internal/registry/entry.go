package registry

import (
	"github.com/philipparndt/arstudio/pkg/geometry"
	"github.com/philipparndt/arstudio/pkg/scene"
)

// ID identifies an entry for the lifetime of a registry. The zero ID never
// names an entry.
type ID uint64

// NoID is the null selection
const NoID ID = 0

// Kind distinguishes 3D meshes from flat image sprites
type Kind int

const (
	KindMesh Kind = iota
	KindSprite
)

func (k Kind) String() string {
	if k == KindSprite {
		return "sprite"
	}
	return "mesh"
}

// Asset is a loaded model ready for insertion
type Asset struct {
	Name   string
	Source string
	Kind   Kind
	Node   *scene.Node
	Clips  []*scene.Clip
}

// Entry is one placed object. Node carries the user transform; the
// normalization (centering and auto-scale) lives on an inner pivot node.
type Entry struct {
	ID     ID
	Kind   Kind
	Name   string
	Source string
	Node   *scene.Node

	pivot     *scene.Node
	content   *scene.Node
	normScale float64
	anim      *AnimationController
	outline   *Outline
}

// Position returns the entry position in world space
func (e *Entry) Position() geometry.Vector3 {
	return e.Node.Position
}

// Rotation returns the entry Euler rotation
func (e *Entry) Rotation() geometry.Vector3 {
	return e.Node.Rotation
}

// Scale returns the uniform user scale. 1 means the normalized size.
func (e *Entry) Scale() float64 {
	return e.Node.Scale.X
}

// NormalizationScale returns the auto-scale factor applied at insertion
func (e *Entry) NormalizationScale() float64 {
	return e.normScale
}

// Animation returns the animation controller, or nil
func (e *Entry) Animation() *AnimationController {
	return e.anim
}

// OutlineVisible reports whether the selection outline is shown
func (e *Entry) OutlineVisible() bool {
	return e.outline != nil && e.outline.Visible
}

// Bounds returns the world-space bounds of the entry
func (e *Entry) Bounds() geometry.BoundingBox {
	return e.Node.Bounds()
}

// Outline is the bounding-box selection highlight of an entry
type Outline struct {
	Visible bool
	Box     geometry.BoundingBox

	disposed bool
}

// Update fits the outline to the current bounds of node
func (o *Outline) Update(node *scene.Node) {
	if o.disposed {
		return
	}
	o.Box = node.Bounds()
}

// Dispose releases the outline geometry
func (o *Outline) Dispose() {
	o.Visible = false
	o.Box = geometry.NewBoundingBox()
	o.disposed = true
}

// Disposed reports whether Dispose has been called
func (o *Outline) Disposed() bool {
	return o.disposed
}
