package obj

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/philipparndt/arstudio/pkg/geometry"
)

// ErrNoGeometry is returned when a file parses but contains no faces
var ErrNoGeometry = errors.New("obj: no faces")

type vertexKey struct {
	v, vt int
}

type parser struct {
	model     *Model
	positions []geometry.Vector3
	uvs       []geometry.Vector2

	objectName string
	groupName  string
	material   string

	current *Group
	lookup  map[vertexKey]uint32
}

// Parse reads an OBJ stream. Faces are fan-triangulated; negative indices are
// resolved relative to the end of the current vertex list.
func Parse(r io.Reader, name string) (*Model, error) {
	p := &parser{model: &Model{Name: name}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)

		var err error
		switch fields[0] {
		case "v":
			var v [3]float64
			v, err = parseFloats3(fields[1:])
			p.positions = append(p.positions, geometry.NewVector3(v[0], v[1], v[2]))
		case "vt":
			var uv [2]float64
			uv, err = parseFloats2(fields[1:])
			p.uvs = append(p.uvs, geometry.NewVector2(uv[0], uv[1]))
		case "f":
			err = p.face(fields[1:])
		case "o":
			p.objectName = strings.Join(fields[1:], " ")
			p.current = nil
		case "g":
			p.groupName = strings.Join(fields[1:], " ")
			p.current = nil
		case "usemtl":
			p.material = strings.Join(fields[1:], " ")
			p.current = nil
		case "mtllib":
			p.model.MaterialLibs = append(p.model.MaterialLibs, fields[1:]...)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading OBJ: %w", err)
	}
	if p.model.TriangleCount() == 0 {
		return nil, ErrNoGeometry
	}
	return p.model, nil
}

func (p *parser) group() *Group {
	if p.current != nil {
		return p.current
	}
	name := p.groupName
	if name == "" {
		name = p.objectName
	}
	p.current = &Group{Name: name, Material: p.material}
	p.model.Groups = append(p.model.Groups, p.current)
	p.lookup = make(map[vertexKey]uint32)
	return p.current
}

func (p *parser) face(corners []string) error {
	if len(corners) < 3 {
		return fmt.Errorf("face needs at least 3 vertices, got %d", len(corners))
	}

	g := p.group()
	indices := make([]uint32, len(corners))
	for i, corner := range corners {
		key, err := p.resolve(corner)
		if err != nil {
			return err
		}
		idx, ok := p.lookup[key]
		if !ok {
			idx = uint32(len(g.Positions))
			g.Positions = append(g.Positions, p.positions[key.v])
			if key.vt >= 0 {
				g.UVs = append(g.UVs, p.uvs[key.vt])
			} else {
				g.UVs = append(g.UVs, geometry.Vector2{})
			}
			p.lookup[key] = idx
		}
		indices[i] = idx
	}

	for i := 1; i+1 < len(indices); i++ {
		g.Indices = append(g.Indices, indices[0], indices[i], indices[i+1])
	}
	return nil
}

// resolve parses a v, v/vt, v//vn or v/vt/vn corner into zero-based indices.
// vt is -1 when absent.
func (p *parser) resolve(corner string) (vertexKey, error) {
	parts := strings.Split(corner, "/")
	v, err := resolveIndex(parts[0], len(p.positions))
	if err != nil {
		return vertexKey{}, fmt.Errorf("vertex %q: %w", corner, err)
	}
	key := vertexKey{v: v, vt: -1}
	if len(parts) > 1 && parts[1] != "" {
		vt, err := resolveIndex(parts[1], len(p.uvs))
		if err != nil {
			return vertexKey{}, fmt.Errorf("texcoord %q: %w", corner, err)
		}
		key.vt = vt
	}
	return key, nil
}

func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i = count + i
	} else {
		i--
	}
	if i < 0 || i >= count {
		return 0, fmt.Errorf("index out of range (%d elements)", count)
	}
	return i, nil
}

func parseFloats3(fields []string) ([3]float64, error) {
	var out [3]float64
	if len(fields) < 3 {
		return out, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return out, err
		}
		out[i] = f
	}
	return out, nil
}

func parseFloats2(fields []string) ([2]float64, error) {
	var out [2]float64
	if len(fields) < 2 {
		// "vt u" is legal; v defaults to 0
		if len(fields) == 1 {
			f, err := strconv.ParseFloat(fields[0], 64)
			out[0] = f
			return out, err
		}
		return out, fmt.Errorf("expected 2 components, got %d", len(fields))
	}
	for i := 0; i < 2; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return out, err
		}
		out[i] = f
	}
	return out, nil
}
