package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClipApplyTranslation(t *testing.T) {
	node := NewNode("arm")
	clip := &Clip{Name: "wave", Duration: 2, Tracks: []Track{{
		Target: node,
		Path:   PathTranslation,
		Times:  []float64{0, 2},
		Values: [][4]float64{{0, 0, 0}, {4, 2, 0}},
	}}}

	clip.Apply(1)
	assert.InDelta(t, 2.0, node.Position.X, 1e-9)
	assert.InDelta(t, 1.0, node.Position.Y, 1e-9)

	clip.Apply(5)
	assert.InDelta(t, 4.0, node.Position.X, 1e-9)

	clip.Apply(-1)
	assert.InDelta(t, 0.0, node.Position.X, 1e-9)
}

func TestClipApplyRotation(t *testing.T) {
	node := NewNode("head")
	s := math.Sin(math.Pi / 4)
	clip := &Clip{Duration: 1, Tracks: []Track{{
		Target: node,
		Path:   PathRotation,
		Times:  []float64{0, 1},
		Values: [][4]float64{{0, 0, 0, 1}, {0, s, 0, s}},
	}}}

	clip.Apply(1)
	assert.InDelta(t, math.Pi/2, node.Rotation.Y, 1e-6)
}

func TestClipApplyEuler(t *testing.T) {
	node := NewNode("lid")
	clip := &Clip{Duration: 2, Tracks: []Track{{
		Target: node,
		Path:   PathEuler,
		Times:  []float64{0, 2},
		Values: [][4]float64{{0, 0, 0}, {math.Pi, 0, -1}},
	}}}

	clip.Apply(1)
	assert.InDelta(t, math.Pi/2, node.Rotation.X, 1e-9)
	assert.InDelta(t, -0.5, node.Rotation.Z, 1e-9)
}
