package scene

import (
	"sort"

	"github.com/philipparndt/arstudio/pkg/geometry"
)

// TrackPath names the node property a track animates
type TrackPath int

const (
	PathTranslation TrackPath = iota
	PathRotation              // values are quaternions (x, y, z, w)
	PathScale
	PathEuler // values are Euler XYZ angles in radians
)

// Track is a linearly interpolated keyframe channel on one node
type Track struct {
	Target *Node
	Path   TrackPath
	Times  []float64
	Values [][4]float64
}

// Clip is a named animation. A clip with no tracks still has a duration.
type Clip struct {
	Name     string
	Duration float64
	Tracks   []Track
}

// Apply poses every track target at time t seconds
func (c *Clip) Apply(t float64) {
	for i := range c.Tracks {
		c.Tracks[i].apply(t)
	}
}

func (tr *Track) apply(t float64) {
	if tr.Target == nil || len(tr.Times) == 0 || len(tr.Values) < len(tr.Times) {
		return
	}

	// first keyframe strictly after t
	next := sort.SearchFloat64s(tr.Times, t)
	for next < len(tr.Times) && tr.Times[next] <= t {
		next++
	}

	var a, b [4]float64
	f := 0.0
	switch {
	case next == 0:
		a, b = tr.Values[0], tr.Values[0]
	case next >= len(tr.Times):
		last := len(tr.Times) - 1
		a, b = tr.Values[last], tr.Values[last]
	default:
		t0, t1 := tr.Times[next-1], tr.Times[next]
		a, b = tr.Values[next-1], tr.Values[next]
		if t1 > t0 {
			f = (t - t0) / (t1 - t0)
		}
	}

	switch tr.Path {
	case PathTranslation:
		tr.Target.Position = lerp3(a, b, f)
	case PathScale:
		tr.Target.Scale = lerp3(a, b, f)
	case PathEuler:
		tr.Target.Rotation = lerp3(a, b, f)
	case PathRotation:
		qa := geometry.Quaternion{X: a[0], Y: a[1], Z: a[2], W: a[3]}
		qb := geometry.Quaternion{X: b[0], Y: b[1], Z: b[2], W: b[3]}
		tr.Target.Rotation = qa.Slerp(qb, f).Euler()
	}
}

func lerp3(a, b [4]float64, f float64) geometry.Vector3 {
	return geometry.NewVector3(
		a[0]+(b[0]-a[0])*f,
		a[1]+(b[1]-a[1])*f,
		a[2]+(b[2]-a[2])*f,
	)
}
