package geometry

import (
	"math"
	"testing"
)

func TestQuaternionEulerRoundTrip(t *testing.T) {
	angles := []Vector3{
		NewVector3(0, 0, 0),
		NewVector3(0.3, 0, 0),
		NewVector3(0, 0.7, 0),
		NewVector3(0, 0, -1.2),
		NewVector3(0.2, -0.4, 0.9),
	}

	for _, e := range angles {
		// Build the quaternion for Rx*Ry*Rz
		qx := Quaternion{X: math.Sin(e.X / 2), W: math.Cos(e.X / 2)}
		qy := Quaternion{Y: math.Sin(e.Y / 2), W: math.Cos(e.Y / 2)}
		qz := Quaternion{Z: math.Sin(e.Z / 2), W: math.Cos(e.Z / 2)}
		q := mulQuat(mulQuat(qx, qy), qz)

		got := q.Euler()
		if got.Distance(e) > 1e-9 {
			t.Errorf("Euler round trip failed: expected %v, got %v", e, got)
		}
	}
}

func TestQuaternionSlerpEndpoints(t *testing.T) {
	a := Quaternion{W: 1}
	b := Quaternion{Z: math.Sin(math.Pi / 4), W: math.Cos(math.Pi / 4)}

	if got := a.Slerp(b, 0); math.Abs(got.W-1) > 1e-9 {
		t.Errorf("Slerp(0) should return start, got %v", got)
	}
	mid := a.Slerp(b, 0.5).Euler()
	if math.Abs(mid.Z-math.Pi/4) > 1e-9 {
		t.Errorf("Slerp(0.5) expected yaw pi/4, got %v", mid.Z)
	}
}

func mulQuat(a, b Quaternion) Quaternion {
	return Quaternion{
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
	}
}
