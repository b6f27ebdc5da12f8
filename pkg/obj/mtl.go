package obj

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/philipparndt/arstudio/pkg/scene"
)

// MaterialDef is one newmtl block of a material library
type MaterialDef struct {
	Name       string
	Diffuse    [3]float64
	Opacity    float64
	DiffuseMap string // map_Kd path, relative to the library
}

// ParseMTL reads a material library
func ParseMTL(r io.Reader) (map[string]*MaterialDef, error) {
	defs := make(map[string]*MaterialDef)
	var current *MaterialDef

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)

		if fields[0] == "newmtl" {
			current = &MaterialDef{
				Name:    strings.Join(fields[1:], " "),
				Diffuse: [3]float64{0.8, 0.8, 0.8},
				Opacity: 1,
			}
			defs[current.Name] = current
			continue
		}
		if current == nil {
			continue
		}

		switch fields[0] {
		case "Kd":
			kd, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current.Diffuse = kd
		case "d":
			if len(fields) > 1 {
				d, err := strconv.ParseFloat(fields[len(fields)-1], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				current.Opacity = d
			}
		case "Tr":
			if len(fields) > 1 {
				tr, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				current.Opacity = 1 - tr
			}
		case "map_Kd":
			if len(fields) > 1 {
				// Options such as -s or -o precede the file name
				current.DiffuseMap = fields[len(fields)-1]
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading MTL: %w", err)
	}
	return defs, nil
}

// Material converts the definition into a scene material, with tex as the
// diffuse texture when non-nil
func (d *MaterialDef) Material(tex image.Image) *scene.Material {
	to8 := func(f float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, f)) * 255))
	}
	return &scene.Material{
		Name:        d.Name,
		Color:       color.RGBA{R: to8(d.Diffuse[0]), G: to8(d.Diffuse[1]), B: to8(d.Diffuse[2]), A: to8(d.Opacity)},
		Opacity:     d.Opacity,
		Transparent: d.Opacity < 1,
		DepthWrite:  true,
		Texture:     tex,
	}
}
