package gesture

import (
	"sort"

	"github.com/philipparndt/arstudio/pkg/geometry"
)

// Pointer is one active touch point or the pressed mouse
type Pointer struct {
	ID   int
	X, Y float64
}

// Sampler turns polled pointer sets into controller events, for frontends
// that read input state once per frame
type Sampler struct {
	ctrl *Controller
	prev map[int]geometry.Vector2
}

// NewSampler creates a sampler feeding ctrl
func NewSampler(ctrl *Controller) *Sampler {
	return &Sampler{ctrl: ctrl, prev: make(map[int]geometry.Vector2)}
}

// Update diffs current against the previous frame: releases first, then
// moves, then presses in id order
func (s *Sampler) Update(current []Pointer) {
	seen := make(map[int]geometry.Vector2, len(current))
	for _, p := range current {
		seen[p.ID] = geometry.NewVector2(p.X, p.Y)
	}

	var ups []int
	for id := range s.prev {
		if _, ok := seen[id]; !ok {
			ups = append(ups, id)
		}
	}
	sort.Ints(ups)
	for _, id := range ups {
		s.ctrl.PointerUp(id)
	}

	sorted := append([]Pointer(nil), current...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, p := range sorted {
		if old, ok := s.prev[p.ID]; ok && (old.X != p.X || old.Y != p.Y) {
			s.ctrl.PointerMove(p.ID, p.X, p.Y)
		}
	}
	for _, p := range sorted {
		if _, ok := s.prev[p.ID]; !ok {
			s.ctrl.PointerDown(p.ID, p.X, p.Y)
		}
	}

	s.prev = seen
}
