package viewer

import (
	"math"

	"github.com/philipparndt/arstudio/pkg/geometry"
)

// Camera is a fixed perspective camera looking from Position at Target.
// Width and Height are the viewport size in pixels.
type Camera struct {
	Position geometry.Vector3
	Target   geometry.Vector3
	Up       geometry.Vector3
	FOV      float64 // Vertical field of view in radians
	Near     float64
	Far      float64
	Width    float64
	Height   float64
}

// NewCamera creates a camera on the +Z axis at distance, looking at the origin
func NewCamera(fovDegrees, distance float64, width, height int) *Camera {
	return &Camera{
		Position: geometry.NewVector3(0, 0, distance),
		Target:   geometry.NewVector3(0, 0, 0),
		Up:       geometry.NewVector3(0, 1, 0),
		FOV:      fovDegrees * math.Pi / 180,
		Near:     0.1,
		Far:      1000,
		Width:    float64(width),
		Height:   float64(height),
	}
}

// SetViewport updates the viewport size
func (c *Camera) SetViewport(width, height int) {
	c.Width = float64(width)
	c.Height = float64(height)
}

// Aspect returns width / height
func (c *Camera) Aspect() float64 {
	if c.Height == 0 {
		return 1
	}
	return c.Width / c.Height
}

// basis returns the camera forward, right and up unit vectors
func (c *Camera) basis() (forward, right, up geometry.Vector3) {
	forward = c.Target.Sub(c.Position).Normalize()
	right = forward.Cross(c.Up).Normalize()
	up = right.Cross(forward).Normalize()
	return forward, right, up
}

// ForwardDistance returns the distance from the camera to its target along the
// viewing axis
func (c *Camera) ForwardDistance() float64 {
	forward, _, _ := c.basis()
	return math.Abs(c.Target.Sub(c.Position).Dot(forward))
}

// Project projects a 3D point to screen coordinates. The third value is the
// depth along the viewing axis; points with depth <= Near are behind the
// near plane.
func (c *Camera) Project(point geometry.Vector3) (float64, float64, float64) {
	forward, right, up := c.basis()

	// Transform to camera space
	relative := point.Sub(c.Position)
	x := relative.Dot(right)
	y := relative.Dot(up)
	z := relative.Dot(forward)

	if z <= 1e-9 {
		return 0, 0, z
	}

	fovScale := math.Tan(c.FOV / 2)
	screenX := (x/(z*fovScale*c.Aspect()))*(c.Width/2) + (c.Width / 2)
	screenY := (-y/(z*fovScale))*(c.Height/2) + (c.Height / 2)

	return screenX, screenY, z
}

// NDC converts screen coordinates to normalized device coordinates (-1 to 1,
// y up)
func (c *Camera) NDC(screenX, screenY float64) (float64, float64) {
	return (2.0 * screenX / c.Width) - 1.0, 1.0 - (2.0 * screenY / c.Height)
}

// Unproject converts screen coordinates to a world-space ray through that pixel
func (c *Camera) Unproject(screenX, screenY float64) geometry.Ray {
	ndcX, ndcY := c.NDC(screenX, screenY)
	forward, right, up := c.basis()
	fovScale := math.Tan(c.FOV / 2)

	dir := forward.
		Add(right.Mul(ndcX * fovScale * c.Aspect())).
		Add(up.Mul(ndcY * fovScale))

	return geometry.NewRay(c.Position, dir)
}
