package fbx

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrNotBinary is returned for ASCII FBX files or anything without the binary
// FBX magic
var ErrNotBinary = errors.New("fbx: not a binary FBX file")

const magic = "Kaydara FBX Binary  \x00\x1a\x00"

// Node is one record of the FBX node tree
type Node struct {
	Name       string
	Properties []any
	Children   []*Node
}

// Document is a parsed binary FBX file
type Document struct {
	Version uint32
	Nodes   []*Node
}

// Child returns the first child called name, or nil
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every child called name
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the top-level node called name, or nil
func (d *Document) Find(name string) *Node {
	for _, n := range d.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

type reader struct {
	r       *bufio.Reader
	pos     uint64
	version uint32
}

// Read parses a binary FBX stream
func Read(r io.Reader) (*Document, error) {
	rd := &reader{r: bufio.NewReader(r)}

	header := make([]byte, len(magic))
	if _, err := io.ReadFull(rd.r, header); err != nil {
		return nil, ErrNotBinary
	}
	if string(header) != magic {
		return nil, ErrNotBinary
	}
	rd.pos = uint64(len(magic))

	version, err := rd.uint32()
	if err != nil {
		return nil, fmt.Errorf("failed to read version: %w", err)
	}
	rd.version = version

	doc := &Document{Version: version}
	for {
		node, err := rd.node()
		if err != nil {
			return nil, err
		}
		if node == nil {
			break
		}
		doc.Nodes = append(doc.Nodes, node)
	}
	return doc, nil
}

func (rd *reader) read(buf []byte) error {
	n, err := io.ReadFull(rd.r, buf)
	rd.pos += uint64(n)
	return err
}

func (rd *reader) uint32() (uint32, error) {
	var b [4]byte
	if err := rd.read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (rd *reader) offset() (uint64, error) {
	if rd.version >= 7500 {
		var b [8]byte
		if err := rd.read(b[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b[:]), nil
	}
	v, err := rd.uint32()
	return uint64(v), err
}

// node reads one node record. A nil node marks the null record that ends a
// node list.
func (rd *reader) node() (*Node, error) {
	endOffset, err := rd.offset()
	if err != nil {
		return nil, fmt.Errorf("failed to read node header: %w", err)
	}
	numProperties, err := rd.offset()
	if err != nil {
		return nil, fmt.Errorf("failed to read node header: %w", err)
	}
	if _, err := rd.offset(); err != nil { // property list length
		return nil, fmt.Errorf("failed to read node header: %w", err)
	}
	var nameLen [1]byte
	if err := rd.read(nameLen[:]); err != nil {
		return nil, fmt.Errorf("failed to read node header: %w", err)
	}

	if endOffset == 0 {
		return nil, nil
	}

	name := make([]byte, nameLen[0])
	if err := rd.read(name); err != nil {
		return nil, fmt.Errorf("failed to read node name: %w", err)
	}
	node := &Node{Name: string(name)}

	for i := uint64(0); i < numProperties; i++ {
		prop, err := rd.property()
		if err != nil {
			return nil, fmt.Errorf("node %s property %d: %w", node.Name, i, err)
		}
		node.Properties = append(node.Properties, prop)
	}

	for rd.pos < endOffset {
		child, err := rd.node()
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}
		node.Children = append(node.Children, child)
	}
	if rd.pos != endOffset {
		return nil, fmt.Errorf("node %s: end offset mismatch (at %d, expected %d)", node.Name, rd.pos, endOffset)
	}
	return node, nil
}

func (rd *reader) property() (any, error) {
	var code [1]byte
	if err := rd.read(code[:]); err != nil {
		return nil, err
	}

	switch code[0] {
	case 'Y':
		var b [2]byte
		err := rd.read(b[:])
		return int16(binary.LittleEndian.Uint16(b[:])), err
	case 'C':
		var b [1]byte
		err := rd.read(b[:])
		return b[0] != 0, err
	case 'I':
		var b [4]byte
		err := rd.read(b[:])
		return int32(binary.LittleEndian.Uint32(b[:])), err
	case 'F':
		var b [4]byte
		err := rd.read(b[:])
		return math.Float32frombits(binary.LittleEndian.Uint32(b[:])), err
	case 'D':
		var b [8]byte
		err := rd.read(b[:])
		return math.Float64frombits(binary.LittleEndian.Uint64(b[:])), err
	case 'L':
		var b [8]byte
		err := rd.read(b[:])
		return int64(binary.LittleEndian.Uint64(b[:])), err
	case 'S', 'R':
		length, err := rd.uint32()
		if err != nil {
			return nil, err
		}
		data := make([]byte, length)
		if err := rd.read(data); err != nil {
			return nil, err
		}
		if code[0] == 'S' {
			return string(data), nil
		}
		return data, nil
	case 'f', 'd', 'l', 'i', 'b':
		return rd.array(code[0])
	}
	return nil, fmt.Errorf("unknown property type %q", code[0])
}

func (rd *reader) array(code byte) (any, error) {
	length, err := rd.uint32()
	if err != nil {
		return nil, err
	}
	encoding, err := rd.uint32()
	if err != nil {
		return nil, err
	}
	compressedLength, err := rd.uint32()
	if err != nil {
		return nil, err
	}

	raw := make([]byte, compressedLength)
	if err := rd.read(raw); err != nil {
		return nil, err
	}

	var data []byte
	switch encoding {
	case 0:
		data = raw
	case 1:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to inflate array: %w", err)
		}
		data, err = io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to inflate array: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown array encoding %d", encoding)
	}

	elem := map[byte]int{'f': 4, 'd': 8, 'l': 8, 'i': 4, 'b': 1}[code]
	if len(data) < int(length)*elem {
		return nil, fmt.Errorf("array too short: %d bytes for %d elements", len(data), length)
	}

	switch code {
	case 'f':
		out := make([]float32, length)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return out, nil
	case 'd':
		out := make([]float64, length)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		}
		return out, nil
	case 'l':
		out := make([]int64, length)
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
		}
		return out, nil
	case 'i':
		out := make([]int32, length)
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return out, nil
	default:
		out := make([]bool, length)
		for i := range out {
			out[i] = data[i] != 0
		}
		return out, nil
	}
}
