package geometry

import "math"

// Ray is a half-line starting at Origin. Direction is expected to be normalized
// so that intersection parameters are distances.
type Ray struct {
	Origin    Vector3
	Direction Vector3
}

// NewRay creates a ray and normalizes its direction
func NewRay(origin, direction Vector3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize()}
}

// At returns the point at distance t along the ray
func (r Ray) At(t float64) Vector3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectBox returns the entry distance into b using the slab method.
// A ray starting inside the box reports 0.
func (r Ray) IntersectBox(b BoundingBox) (float64, bool) {
	if b.IsEmpty() {
		return 0, false
	}

	tMin := 0.0
	tMax := math.MaxFloat64
	for axis := 0; axis < 3; axis++ {
		o := r.Origin.Component(axis)
		d := r.Direction.Component(axis)
		lo := b.Min.Component(axis)
		hi := b.Max.Component(axis)

		if math.Abs(d) < 1e-12 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}

		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// IntersectTriangle returns the distance to the triangle (a, b, c) using the
// Moller-Trumbore algorithm. Both faces are hit.
func (r Ray) IntersectTriangle(a, b, c Vector3) (float64, bool) {
	const epsilon = 1e-12

	edge1 := b.Sub(a)
	edge2 := c.Sub(a)
	p := r.Direction.Cross(edge2)
	det := edge1.Dot(p)
	if math.Abs(det) < epsilon {
		return 0, false
	}

	inv := 1.0 / det
	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(edge1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := edge2.Dot(q) * inv
	if t <= epsilon {
		return 0, false
	}
	return t, true
}
