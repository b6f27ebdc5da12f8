// Package registry owns every placed model: normalization on insert, the
// capacity policy, selection and outlines, and per-frame animation.
//
// A Registry is not safe for concurrent use. All mutation happens on the
// frame loop.
package registry

import (
	"log/slog"
	"math"
	"slices"

	"github.com/philipparndt/arstudio/pkg/geometry"
	"github.com/philipparndt/arstudio/pkg/scene"
)

// Options configures normalization and the capacity policy
type Options struct {
	Capacity         int
	TargetSize       float64
	SpriteTargetSize float64
	MinScale         float64
	MaxScale         float64
	LateralOffset    float64
	FacingYaw        float64
	Logger           *slog.Logger
}

// Registry holds the placed entries in insertion order
type Registry struct {
	opts     Options
	log      *slog.Logger
	root     *scene.Node
	entries  []*Entry
	animated []*Entry
	selected *Entry
	nextID   ID
}

// New creates an empty registry
func New(opts Options) *Registry {
	if opts.Capacity < 1 {
		opts.Capacity = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		opts:   opts,
		log:    log,
		root:   scene.NewNode("scene"),
		nextID: 1,
	}
}

// Root returns the scene root all entry nodes are attached to
func (r *Registry) Root() *scene.Node {
	return r.root
}

// Capacity returns the maximum number of entries
func (r *Registry) Capacity() int {
	return r.opts.Capacity
}

// SetCapacity changes the maximum number of entries. Existing entries are
// kept; the policy applies on the next insert.
func (r *Registry) SetCapacity(n int) {
	if n < 1 {
		n = 1
	}
	r.opts.Capacity = n
}

// Len returns the number of entries
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns the entries in insertion order
func (r *Registry) Entries() []*Entry {
	return slices.Clone(r.entries)
}

// Get returns the entry with id, or nil
func (r *Registry) Get(id ID) *Entry {
	for _, e := range r.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// EntryFor returns the entry whose top node is node, or nil
func (r *Registry) EntryFor(node *scene.Node) *Entry {
	for _, e := range r.entries {
		if e.Node == node {
			return e
		}
	}
	return nil
}

// Selected returns the selected entry, or nil
func (r *Registry) Selected() *Entry {
	return r.selected
}

// Insert normalizes asset and adds it as a new entry, evicting first if the
// registry is full: the selected entry, else the oldest.
func (r *Registry) Insert(asset Asset) *Entry {
	for len(r.entries) >= r.opts.Capacity {
		victim := r.selected
		if victim == nil {
			victim = r.entries[0]
		}
		r.log.Debug("evicting entry", "id", victim.ID, "name", victim.Name)
		r.Remove(victim.ID)
	}

	e := &Entry{
		ID:     r.nextID,
		Kind:   asset.Kind,
		Name:   asset.Name,
		Source: asset.Source,
		Node:   scene.NewNode(asset.Name),
		pivot:  scene.NewNode("pivot"),
	}
	r.nextID++

	e.Node.Add(e.pivot)
	r.attachContent(e, asset.Node)

	e.Node.Rotation = geometry.NewVector3(0, r.opts.FacingYaw, 0)
	if len(r.entries) > 0 {
		e.Node.Position = r.freeSlot()
	}

	if len(asset.Clips) > 0 && asset.Clips[0] != nil {
		e.anim = NewAnimationController(asset.Clips[0])
		r.animated = append(r.animated, e)
	}

	r.entries = append(r.entries, e)
	r.root.Add(e.Node)

	r.log.Debug("inserted entry", "id", e.ID, "name", e.Name, "kind", e.Kind, "norm_scale", e.normScale)
	return e
}

// freeSlot returns the first lateral slot (LateralOffset × k, k >= 1) that
// no current entry sits on. Entries within half an offset of a slot occupy it.
func (r *Registry) freeSlot() geometry.Vector3 {
	step := r.opts.LateralOffset
	for k := 1; ; k++ {
		slot := geometry.NewVector3(step*float64(k), 0, 0)
		if step == 0 || !r.occupied(slot, math.Abs(step)/2) {
			return slot
		}
	}
}

func (r *Registry) occupied(slot geometry.Vector3, radius float64) bool {
	for _, e := range r.entries {
		if e.Node.Position.Distance(slot) < radius {
			return true
		}
	}
	return false
}

// attachContent centers content inside the pivot and scales its largest
// dimension to the target size
func (r *Registry) attachContent(e *Entry, content *scene.Node) {
	for _, mat := range content.Materials() {
		mat.ForceOpaque()
	}

	content.Position = geometry.Vector3{}
	content.Rotation = geometry.Vector3{}
	content.Scale = geometry.NewVector3(1, 1, 1)
	if p := content.Parent(); p != nil {
		p.Remove(content)
	}

	bounds := content.Bounds()
	target := r.opts.TargetSize
	if e.Kind == KindSprite {
		target = r.opts.SpriteTargetSize
	}

	norm := 1.0
	center := geometry.Vector3{}
	if !bounds.IsEmpty() {
		center = bounds.Center()
		if largest := bounds.Size().MaxComponent(); largest > 0 {
			norm = target / largest
		}
	}

	e.normScale = norm
	e.content = content
	e.pivot.Scale = geometry.NewVector3(norm, norm, norm)
	e.pivot.Position = center.Mul(-norm)
	e.pivot.Add(content)
}

// Reload swaps the content of entry id for asset, keeping the user
// transform and selection. It returns false when id is unknown.
func (r *Registry) Reload(id ID, asset Asset) bool {
	e := r.Get(id)
	if e == nil {
		return false
	}

	if e.content != nil {
		e.pivot.Remove(e.content)
		e.content.Release()
	}
	if e.anim != nil {
		r.animated = slices.DeleteFunc(r.animated, func(a *Entry) bool { return a == e })
		e.anim = nil
	}

	e.Kind = asset.Kind
	r.attachContent(e, asset.Node)
	if len(asset.Clips) > 0 && asset.Clips[0] != nil {
		e.anim = NewAnimationController(asset.Clips[0])
		r.animated = append(r.animated, e)
	}
	if e.outline != nil {
		e.outline.Update(e.Node)
	}
	return true
}

// Remove detaches and releases entry id. Removing an unknown id is a no-op.
func (r *Registry) Remove(id ID) {
	idx := slices.IndexFunc(r.entries, func(e *Entry) bool { return e.ID == id })
	if idx < 0 {
		return
	}
	e := r.entries[idx]

	r.root.Remove(e.Node)
	if e.outline != nil {
		e.outline.Dispose()
		e.outline = nil
	}
	if e.anim != nil {
		r.animated = slices.DeleteFunc(r.animated, func(a *Entry) bool { return a == e })
		e.anim = nil
	}
	if r.selected == e {
		r.selected = nil
	}
	e.Node.Release()

	r.entries = slices.Delete(r.entries, idx, idx+1)
}

// Clear removes every entry
func (r *Registry) Clear() {
	for len(r.entries) > 0 {
		r.Remove(r.entries[0].ID)
	}
}

// Select makes id the only selected entry and shows its outline. NoID or an
// unknown id deselects everything; the result reports whether an entry is
// selected.
func (r *Registry) Select(id ID) bool {
	target := r.Get(id)
	for _, e := range r.entries {
		if e != target && e.outline != nil {
			e.outline.Visible = false
		}
	}

	r.selected = target
	if target == nil {
		return false
	}
	if target.outline == nil {
		target.outline = &Outline{}
	}
	target.outline.Update(target.Node)
	target.outline.Visible = true
	return true
}

// Tick advances every animation by dt seconds
func (r *Registry) Tick(dt float64) {
	for _, e := range r.animated {
		e.anim.Advance(dt)
		if e.OutlineVisible() {
			e.outline.Update(e.Node)
		}
	}
}

// ClampScale limits v to the configured scale range
func (r *Registry) ClampScale(v float64) float64 {
	return math.Max(r.opts.MinScale, math.Min(r.opts.MaxScale, v))
}

// SetScale sets the uniform user scale of id, clamped to the configured
// range, and returns the stored value
func (r *Registry) SetScale(id ID, v float64) float64 {
	e := r.Get(id)
	if e == nil {
		return 0
	}
	v = r.ClampScale(v)
	e.Node.Scale = geometry.NewVector3(v, v, v)
	r.refreshOutline(e)
	return v
}

// Translate moves id by delta
func (r *Registry) Translate(id ID, delta geometry.Vector3) {
	if e := r.Get(id); e != nil {
		e.Node.Position = e.Node.Position.Add(delta)
		r.refreshOutline(e)
	}
}

// SetRotation replaces the Euler rotation of id
func (r *Registry) SetRotation(id ID, rotation geometry.Vector3) {
	if e := r.Get(id); e != nil {
		e.Node.Rotation = rotation
		r.refreshOutline(e)
	}
}

func (r *Registry) refreshOutline(e *Entry) {
	if e.outline != nil {
		e.outline.Update(e.Node)
	}
}

// Outlines returns the boxes of all visible outlines
func (r *Registry) Outlines() []geometry.BoundingBox {
	var boxes []geometry.BoundingBox
	for _, e := range r.entries {
		if e.OutlineVisible() {
			boxes = append(boxes, e.outline.Box)
		}
	}
	return boxes
}

// HideOutlines hides every outline and returns a function restoring the
// previous visibility
func (r *Registry) HideOutlines() (restore func()) {
	var shown []*Outline
	for _, e := range r.entries {
		if e.OutlineVisible() {
			shown = append(shown, e.outline)
			e.outline.Visible = false
		}
	}
	return func() {
		for _, o := range shown {
			if !o.Disposed() {
				o.Visible = true
			}
		}
	}
}
