package geometry

import (
	"math"
	"testing"
)

func TestBoundingBoxExtend(t *testing.T) {
	bbox := NewBoundingBox()

	bbox.Extend(NewVector3(1, 2, 3))
	bbox.Extend(NewVector3(4, 5, 6))
	bbox.Extend(NewVector3(-1, 0, 2))

	expectedMin := NewVector3(-1, 0, 2)
	expectedMax := NewVector3(4, 5, 6)

	if bbox.Min != expectedMin {
		t.Errorf("Min failed: expected %v, got %v", expectedMin, bbox.Min)
	}
	if bbox.Max != expectedMax {
		t.Errorf("Max failed: expected %v, got %v", expectedMax, bbox.Max)
	}
}

func TestBoundingBoxEmpty(t *testing.T) {
	bbox := NewBoundingBox()
	if !bbox.IsEmpty() {
		t.Errorf("new box should be empty")
	}
	if bbox.Size() != (Vector3{}) {
		t.Errorf("empty box size should be zero, got %v", bbox.Size())
	}

	other := NewBoundingBox()
	other.Extend(NewVector3(1, 1, 1))
	bbox.Union(other)
	if bbox.IsEmpty() {
		t.Errorf("union with non-empty box should not be empty")
	}
}

func TestBoundingBoxCenter(t *testing.T) {
	bbox := NewBoundingBox()
	bbox.Extend(NewVector3(0, 0, 0))
	bbox.Extend(NewVector3(10, 20, 30))

	center := bbox.Center()
	expected := NewVector3(5, 10, 15)

	if center != expected {
		t.Errorf("Center failed: expected %v, got %v", expected, center)
	}
}

func TestBoundingBoxVolume(t *testing.T) {
	bbox := NewBoundingBox()
	bbox.Extend(NewVector3(0, 0, 0))
	bbox.Extend(NewVector3(2, 3, 4))

	volume := bbox.Volume()
	expected := 24.0 // 2 * 3 * 4 = 24

	if math.Abs(volume-expected) > 1e-10 {
		t.Errorf("Volume failed: expected %v, got %v", expected, volume)
	}
}

func TestBoundingBoxTransform(t *testing.T) {
	bbox := NewBoundingBox()
	bbox.Extend(NewVector3(-1, -1, -1))
	bbox.Extend(NewVector3(1, 1, 1))

	m := Compose(NewVector3(5, 0, 0), Vector3{}, NewVector3(2, 2, 2))
	out := bbox.Transform(m)

	if out.Min != NewVector3(3, -2, -2) || out.Max != NewVector3(7, 2, 2) {
		t.Errorf("Transform failed: got %v", out)
	}
}

func TestBoundingBoxEdges(t *testing.T) {
	bbox := NewBoundingBox()
	bbox.Extend(NewVector3(0, 0, 0))
	bbox.Extend(NewVector3(1, 2, 3))

	for i, e := range bbox.Edges() {
		d := e[1].Sub(e[0])
		nonZero := 0
		for axis := 0; axis < 3; axis++ {
			if d.Component(axis) != 0 {
				nonZero++
			}
		}
		if nonZero != 1 {
			t.Errorf("edge %d should be axis aligned, got delta %v", i, d)
		}
	}
}
