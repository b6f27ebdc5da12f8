package fbx

import (
	"math"
	"sort"

	"github.com/philipparndt/arstudio/pkg/scene"
)

// curveNodePaths maps the Model property an AnimationCurveNode drives to
// the track it becomes. FBX rotations are Euler degrees.
var curveNodePaths = map[string]scene.TrackPath{
	"Lcl Translation": scene.PathTranslation,
	"Lcl Rotation":    scene.PathEuler,
	"Lcl Scaling":     scene.PathScale,
}

var curveAxes = map[string]int{"d|X": 0, "d|Y": 1, "d|Z": 2}

// curve is one AnimationCurve with key times in seconds
type curve struct {
	times  []float64
	values []float64
}

func buildCurve(n *Node) (curve, bool) {
	kt, kv := n.Child("KeyTime"), n.Child("KeyValueFloat")
	if kt == nil || kv == nil || len(kt.Properties) == 0 || len(kv.Properties) == 0 {
		return curve{}, false
	}
	ticks, ok := int64Array(kt.Properties[0])
	if !ok {
		return curve{}, false
	}
	values, ok := floatArray(kv.Properties[0])
	if !ok || len(ticks) == 0 || len(ticks) != len(values) {
		return curve{}, false
	}

	c := curve{times: make([]float64, len(ticks)), values: values}
	for i, t := range ticks {
		c.times[i] = float64(t) / ktimeSecond
	}
	return c, true
}

// at samples the curve linearly, holding the end values outside its range
func (c curve) at(t float64) float64 {
	i := sort.SearchFloat64s(c.times, t)
	switch {
	case i == 0:
		return c.values[0]
	case i >= len(c.times):
		return c.values[len(c.values)-1]
	}
	t0, t1 := c.times[i-1], c.times[i]
	if t1 <= t0 {
		return c.values[i]
	}
	f := (t - t0) / (t1 - t0)
	return c.values[i-1] + (c.values[i]-c.values[i-1])*f
}

// curveNode is an AnimationCurveNode bound to a model property
type curveNode struct {
	target   *scene.Node
	path     scene.TrackPath
	defaults [3]float64
	curves   [3]*curve
}

// buildClips turns every animation stack into a clip. A stack owns layers,
// layers own curve nodes (OO links); curve nodes drive model properties and
// own per-axis curves (OP links).
func buildClips(stacks []object, byID map[int64]object, links []link, models map[int64]*scene.Node) []*scene.Clip {
	children := make(map[int64][]int64)
	bound := make(map[int64]*curveNode)
	for _, l := range links {
		if l.prop == "" {
			children[l.parent] = append(children[l.parent], l.child)
			continue
		}
		obj, ok := byID[l.child]
		if !ok || obj.node.Name != "AnimationCurveNode" {
			continue
		}
		path, ok := curveNodePaths[l.prop]
		target, isModel := models[l.parent]
		if !ok || !isModel {
			continue
		}
		bound[l.child] = &curveNode{
			target:   target,
			path:     path,
			defaults: curveNodeDefaults(obj.node, currentValue(target, path)),
		}
	}

	for _, l := range links {
		axis, ok := curveAxes[l.prop]
		cn := bound[l.parent]
		if !ok || cn == nil {
			continue
		}
		obj, ok := byID[l.child]
		if !ok || obj.node.Name != "AnimationCurve" {
			continue
		}
		if c, ok := buildCurve(obj.node); ok {
			cn.curves[axis] = &c
		}
	}

	var clips []*scene.Clip
	for _, stack := range stacks {
		clip := &scene.Clip{Name: stack.name, Duration: stackDuration(stack.node)}
		for _, layer := range children[stack.id] {
			if byID[layer].node == nil || byID[layer].node.Name != "AnimationLayer" {
				continue
			}
			for _, id := range children[layer] {
				cn := bound[id]
				if cn == nil {
					continue
				}
				track, ok := cn.track()
				if !ok {
					continue
				}
				clip.Tracks = append(clip.Tracks, track)
				if last := track.Times[len(track.Times)-1]; last > clip.Duration {
					clip.Duration = last
				}
			}
		}
		clips = append(clips, clip)
	}
	return clips
}

// track merges the axis curves onto the union of their key times
func (cn *curveNode) track() (scene.Track, bool) {
	var times []float64
	for _, c := range cn.curves {
		if c != nil {
			times = append(times, c.times...)
		}
	}
	if len(times) == 0 {
		return scene.Track{}, false
	}
	sort.Float64s(times)
	times = compactFloats(times)

	scale := 1.0
	if cn.path == scene.PathEuler {
		scale = math.Pi / 180
	}

	track := scene.Track{Target: cn.target, Path: cn.path, Times: times}
	for _, t := range times {
		var v [4]float64
		for axis, c := range cn.curves {
			v[axis] = cn.defaults[axis]
			if c != nil {
				v[axis] = c.at(t)
			}
			v[axis] *= scale
		}
		track.Values = append(track.Values, v)
	}
	return track, true
}

// currentValue returns the model property in FBX units
func currentValue(n *scene.Node, path scene.TrackPath) [3]float64 {
	switch path {
	case scene.PathTranslation:
		return [3]float64{n.Position.X, n.Position.Y, n.Position.Z}
	case scene.PathScale:
		return [3]float64{n.Scale.X, n.Scale.Y, n.Scale.Z}
	}
	const deg = 180 / math.Pi
	return [3]float64{n.Rotation.X * deg, n.Rotation.Y * deg, n.Rotation.Z * deg}
}

// curveNodeDefaults reads the d|X, d|Y, d|Z values of a curve node, keeping
// base for axes it does not set
func curveNodeDefaults(n *Node, base [3]float64) [3]float64 {
	for name, axis := range curveAxes {
		if v, ok := property70(n, name); ok && len(v) > 0 {
			base[axis] = v[0]
		}
	}
	return base
}

func compactFloats(s []float64) []float64 {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func int64Array(v any) ([]int64, bool) {
	switch v := v.(type) {
	case []int64:
		return v, true
	case []int32:
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}
		return out, true
	}
	return nil, false
}
