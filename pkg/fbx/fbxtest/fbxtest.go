// Package fbxtest builds version 7400 binary FBX documents for tests.
package fbxtest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
)

const magic = "Kaydara FBX Binary  \x00\x1a\x00"

// KTimeSecond is the number of FBX time ticks per second
const KTimeSecond int64 = 46186158000

// Node is a record to encode
type Node struct {
	Name       string
	Properties []any
	Children   []*Node
}

// P70 returns a Properties70 P record carrying values
func P70(name string, values ...any) *Node {
	props := []any{name, "", "", ""}
	return &Node{Name: "P", Properties: append(props, values...)}
}

// Props wraps records in a Properties70 node
func Props(records ...*Node) *Node {
	return &Node{Name: "Properties70", Children: records}
}

// Encode writes a document holding nodes. With compress, array properties
// are zlib encoded.
func Encode(compress bool, nodes ...*Node) []byte {
	w := &writer{compress: compress}
	w.buf.WriteString(magic)
	w.u32(7400)
	for _, n := range nodes {
		w.node(n)
	}
	w.buf.Write(make([]byte, 13))
	return w.buf.Bytes()
}

type writer struct {
	buf      bytes.Buffer
	compress bool
}

func (w *writer) u32(v uint32) {
	binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *writer) property(p any) {
	switch v := p.(type) {
	case string:
		w.buf.WriteByte('S')
		w.u32(uint32(len(v)))
		w.buf.WriteString(v)
	case int64:
		w.buf.WriteByte('L')
		binary.Write(&w.buf, binary.LittleEndian, v)
	case int32:
		w.buf.WriteByte('I')
		binary.Write(&w.buf, binary.LittleEndian, v)
	case float64:
		w.buf.WriteByte('D')
		binary.Write(&w.buf, binary.LittleEndian, v)
	case []float64:
		w.buf.WriteByte('d')
		w.array(len(v), v)
	case []float32:
		w.buf.WriteByte('f')
		w.array(len(v), v)
	case []int32:
		w.buf.WriteByte('i')
		w.array(len(v), v)
	case []int64:
		w.buf.WriteByte('l')
		w.array(len(v), v)
	default:
		panic(fmt.Sprintf("fbxtest: unsupported property %T", p))
	}
}

func (w *writer) array(n int, values any) {
	var raw bytes.Buffer
	binary.Write(&raw, binary.LittleEndian, values)
	data := raw.Bytes()
	encoding := uint32(0)
	if w.compress {
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		zw.Write(data)
		zw.Close()
		data = z.Bytes()
		encoding = 1
	}
	w.u32(uint32(n))
	w.u32(encoding)
	w.u32(uint32(len(data)))
	w.buf.Write(data)
}

func (w *writer) node(n *Node) {
	start := w.buf.Len()
	w.u32(0) // end offset, patched below
	w.u32(uint32(len(n.Properties)))
	w.u32(0) // property list length, patched below
	w.buf.WriteByte(byte(len(n.Name)))
	w.buf.WriteString(n.Name)

	propStart := w.buf.Len()
	for _, p := range n.Properties {
		w.property(p)
	}
	propLen := w.buf.Len() - propStart

	for _, c := range n.Children {
		w.node(c)
	}
	if len(n.Children) > 0 {
		w.buf.Write(make([]byte, 13))
	}

	out := w.buf.Bytes()
	binary.LittleEndian.PutUint32(out[start:], uint32(w.buf.Len()))
	binary.LittleEndian.PutUint32(out[start+8:], uint32(propLen))
}

// AnimatedQuad returns a document with a 2x2 quad on model "Body" and one
// two second stack "Wave". Body translates from (0,0,0) to (4,2,0) and
// rotates from 0 to 90 degrees about Z.
func AnimatedQuad() []*Node {
	obj := func(name string, id int64, title, class string, children ...*Node) *Node {
		return &Node{Name: name, Properties: []any{id, title + "\x00\x01" + class, ""}, Children: children}
	}
	keys := func(id int64, values ...float32) *Node {
		ticks := make([]int64, len(values))
		for i := range ticks {
			ticks[i] = int64(i) * 2 * KTimeSecond / int64(max(len(values)-1, 1))
		}
		return obj("AnimationCurve", id, "", "AnimCurve",
			&Node{Name: "KeyTime", Properties: []any{ticks}},
			&Node{Name: "KeyValueFloat", Properties: []any{values}},
		)
	}
	oo := func(child, parent int64) *Node {
		return &Node{Name: "C", Properties: []any{"OO", child, parent}}
	}
	op := func(child, parent int64, prop string) *Node {
		return &Node{Name: "C", Properties: []any{"OP", child, parent, prop}}
	}

	return []*Node{
		{Name: "Objects", Children: []*Node{
			{Name: "Geometry", Properties: []any{int64(10), "Quad\x00\x01Geometry", "Mesh"}, Children: []*Node{
				{Name: "Vertices", Properties: []any{[]float64{-1, -1, 0, 1, -1, 0, 1, 1, 0, -1, 1, 0}}},
				{Name: "PolygonVertexIndex", Properties: []any{[]int32{0, 1, 2, ^3}}},
			}},
			{Name: "Model", Properties: []any{int64(20), "Body\x00\x01Model", "Mesh"}},
			obj("AnimationStack", 40, "Wave", "AnimStack", Props(P70("LocalStop", 2*KTimeSecond))),
			obj("AnimationLayer", 50, "Base", "AnimLayer"),
			obj("AnimationCurveNode", 60, "T", "AnimCurveNode", Props(P70("d|X", 0.0), P70("d|Y", 0.0), P70("d|Z", 0.0))),
			keys(70, 0, 4),
			keys(71, 0, 2),
			obj("AnimationCurveNode", 80, "R", "AnimCurveNode"),
			keys(90, 0, 90),
		}},
		{Name: "Connections", Children: []*Node{
			oo(10, 20),
			oo(20, 0),
			oo(50, 40),
			oo(60, 50),
			oo(80, 50),
			op(60, 20, "Lcl Translation"),
			op(70, 60, "d|X"),
			op(71, 60, "d|Y"),
			op(80, 20, "Lcl Rotation"),
			op(90, 80, "d|Z"),
		}},
	}
}
