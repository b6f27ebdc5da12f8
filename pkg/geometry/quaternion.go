package geometry

import "math"

// Quaternion is a rotation stored as (X, Y, Z, W)
type Quaternion struct {
	X, Y, Z, W float64
}

// Normalize returns the unit quaternion, or identity for a zero quaternion
func (q Quaternion) Normalize() Quaternion {
	l := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if l == 0 {
		return Quaternion{W: 1}
	}
	return Quaternion{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

// Slerp interpolates along the shortest arc from q to other
func (q Quaternion) Slerp(other Quaternion, t float64) Quaternion {
	cos := q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
	if cos < 0 {
		other = Quaternion{-other.X, -other.Y, -other.Z, -other.W}
		cos = -cos
	}

	a, b := 1-t, t
	if cos < 0.9995 {
		theta := math.Acos(cos)
		sin := math.Sin(theta)
		a = math.Sin((1-t)*theta) / sin
		b = math.Sin(t*theta) / sin
	}
	return Quaternion{
		a*q.X + b*other.X,
		a*q.Y + b*other.Y,
		a*q.Z + b*other.Z,
		a*q.W + b*other.W,
	}.Normalize()
}

// Euler returns XYZ Euler angles matching RotationEuler
func (q Quaternion) Euler() Vector3 {
	q = q.Normalize()
	r00 := 1 - 2*(q.Y*q.Y+q.Z*q.Z)
	r01 := 2 * (q.X*q.Y - q.Z*q.W)
	r02 := 2 * (q.X*q.Z + q.Y*q.W)
	r11 := 1 - 2*(q.X*q.X+q.Z*q.Z)
	r12 := 2 * (q.Y*q.Z - q.X*q.W)
	r21 := 2 * (q.Y*q.Z + q.X*q.W)
	r22 := 1 - 2*(q.X*q.X+q.Y*q.Y)

	y := math.Asin(math.Max(-1, math.Min(1, r02)))
	if math.Abs(r02) < 0.9999999 {
		return Vector3{X: math.Atan2(-r12, r22), Y: y, Z: math.Atan2(-r01, r00)}
	}
	return Vector3{X: math.Atan2(r21, r11), Y: y, Z: 0}
}
