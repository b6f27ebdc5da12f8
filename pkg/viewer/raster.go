package viewer

import (
	"image"
	"image/color"
	"math"
)

// screenVertex is a projected vertex with its depth and texture coordinate
type screenVertex struct {
	x, y, z float64
	u, v    float64
}

// shadeFunc returns the color at texture coordinate (u, v). ok=false discards
// the fragment.
type shadeFunc func(u, v float64) (col color.RGBA, ok bool)

// edge returns twice the signed area of (a, b, p)
func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// fillTriangleWithDepth fills a triangle with depth testing using barycentric
// coordinates sampled at pixel centers
func fillTriangleWithDepth(img *image.RGBA, zbuffer []float64, a, b, c screenVertex, depthWrite bool, shade shadeFunc) {
	area := edge(a.x, a.y, b.x, b.y, c.x, c.y)
	if math.Abs(area) < 1e-12 {
		return
	}

	bounds := img.Bounds()
	width := bounds.Dx()

	minX := int(math.Max(0, math.Floor(math.Min(a.x, math.Min(b.x, c.x)))))
	maxX := int(math.Min(float64(bounds.Max.X-1), math.Ceil(math.Max(a.x, math.Max(b.x, c.x)))))
	minY := int(math.Max(0, math.Floor(math.Min(a.y, math.Min(b.y, c.y)))))
	maxY := int(math.Min(float64(bounds.Max.Y-1), math.Ceil(math.Max(a.y, math.Max(b.y, c.y)))))

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5

			w0 := edge(b.x, b.y, c.x, c.y, px, py) / area
			w1 := edge(c.x, c.y, a.x, a.y, px, py) / area
			w2 := edge(a.x, a.y, b.x, b.y, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			// Depth test - draw if closer (smaller z)
			z := w0*a.z + w1*b.z + w2*c.z
			idx := y*width + x
			if z >= zbuffer[idx] {
				continue
			}

			col, ok := shade(w0*a.u+w1*b.u+w2*c.u, w0*a.v+w1*b.v+w2*c.v)
			if !ok {
				continue
			}
			if depthWrite {
				zbuffer[idx] = z
			}
			img.SetRGBA(x, y, col)
		}
	}
}

// drawLine draws a line on an image using Bresenham's algorithm
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, col color.RGBA) {
	bounds := img.Bounds()

	dx := abs(x2 - x1)
	dy := abs(y2 - y1)

	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy

	for {
		if x1 >= 0 && x1 < bounds.Max.X && y1 >= 0 && y1 < bounds.Max.Y {
			img.SetRGBA(x1, y1, col)
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// sampleTexture returns the nearest texel at (u, v), v pointing up
func sampleTexture(tex image.Image, u, v float64) color.RGBA {
	b := tex.Bounds()
	x := b.Min.X + int(clamp01(u)*float64(b.Dx()-1)+0.5)
	y := b.Min.Y + int((1-clamp01(v))*float64(b.Dy()-1)+0.5)
	return color.RGBAModel.Convert(tex.At(x, y)).(color.RGBA)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
