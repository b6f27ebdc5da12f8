package registry

import (
	"github.com/philipparndt/arstudio/pkg/scene"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// AnimationController plays one clip in a loop
type AnimationController struct {
	clip  *scene.Clip
	clock *gween.Tween
	time  float64
}

// NewAnimationController creates a controller posed at the clip start
func NewAnimationController(clip *scene.Clip) *AnimationController {
	a := &AnimationController{clip: clip}
	if clip.Duration > 0 {
		d := float32(clip.Duration)
		a.clock = gween.New(0, d, d, ease.Linear)
	}
	clip.Apply(0)
	return a
}

// Clip returns the clip being played
func (a *AnimationController) Clip() *scene.Clip {
	return a.clip
}

// Time returns the playhead in seconds
func (a *AnimationController) Time() float64 {
	return a.time
}

// Advance moves the playhead by dt seconds, wrapping at the clip end
func (a *AnimationController) Advance(dt float64) {
	if a.clock == nil || dt <= 0 {
		return
	}

	current, finished := a.clock.Update(float32(dt))
	if finished {
		overflow := a.time + dt - a.clip.Duration
		for overflow > a.clip.Duration {
			overflow -= a.clip.Duration
		}
		a.clock.Reset()
		current, _ = a.clock.Update(float32(overflow))
	}
	a.time = float64(current)
	a.clip.Apply(a.time)
}
