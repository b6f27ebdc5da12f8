package scene

import (
	"image"
	"image/color"
)

// Material describes how a mesh surface is shaded
type Material struct {
	Name        string
	Color       color.RGBA
	Opacity     float64
	Transparent bool
	DoubleSided bool
	DepthWrite  bool
	Texture     image.Image // sampled with the mesh UVs when present
	Placeholder bool        // set when the real material could not be loaded
}

// PlaceholderColor flags surfaces whose material library failed to load
var PlaceholderColor = color.RGBA{R: 255, G: 0, B: 255, A: 255}

// DefaultMaterial returns a plain opaque grey material
func DefaultMaterial() *Material {
	return &Material{
		Name:       "default",
		Color:      color.RGBA{R: 200, G: 200, B: 200, A: 255},
		Opacity:    1,
		DepthWrite: true,
	}
}

// NewPlaceholderMaterial returns the magenta material used when a mesh loads
// without its material library
func NewPlaceholderMaterial() *Material {
	return &Material{
		Name:        "placeholder",
		Color:       PlaceholderColor,
		Opacity:     1,
		DoubleSided: true,
		DepthWrite:  true,
		Placeholder: true,
	}
}

// ForceOpaque makes the material opaque, double-sided and depth-writing.
// Blended one-sided materials render with see-through artifacts over video.
func (m *Material) ForceOpaque() {
	m.Opacity = 1
	m.Transparent = false
	m.DoubleSided = true
	m.DepthWrite = true
	m.Color.A = 255
}
