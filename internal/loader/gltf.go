package loader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/philipparndt/arstudio/pkg/geometry"
	"github.com/philipparndt/arstudio/pkg/scene"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func (l *Loader) loadGLTF(ctx context.Context, ref string) (registry.Asset, error) {
	var doc *gltf.Document
	var err error

	if isRemote(ref) {
		var data []byte
		data, err = readAll(ctx, l.fetch, ref)
		if err != nil {
			return registry.Asset{}, err
		}
		doc = new(gltf.Document)
		fsys := refFS{ctx: ctx, fetch: l.fetch, base: ref}
		err = gltf.NewDecoderFS(bytes.NewReader(data), fsys).Decode(doc)
	} else {
		doc, err = gltf.Open(localPath(ref))
	}
	if err != nil {
		return registry.Asset{}, fmt.Errorf("failed to parse glTF: %w", err)
	}

	b := &gltfBuilder{
		ctx:   ctx,
		l:     l,
		ref:   ref,
		doc:   doc,
		nodes: make(map[int]*scene.Node),
		mats:  make(map[int]*scene.Material),
	}
	root, err := b.scene(baseName(ref))
	if err != nil {
		return registry.Asset{}, err
	}
	if root.TriangleCount() == 0 {
		return registry.Asset{}, fmt.Errorf("glTF contains no triangle meshes")
	}

	return registry.Asset{Kind: registry.KindMesh, Node: root, Clips: b.clips()}, nil
}

type gltfBuilder struct {
	ctx   context.Context
	l     *Loader
	ref   string
	doc   *gltf.Document
	nodes map[int]*scene.Node
	mats  map[int]*scene.Material
}

func (b *gltfBuilder) scene(name string) (*scene.Node, error) {
	root := scene.NewNode(name)

	var roots []int
	if len(b.doc.Scenes) > 0 {
		idx := 0
		if b.doc.Scene != nil && *b.doc.Scene < len(b.doc.Scenes) {
			idx = *b.doc.Scene
		}
		roots = b.doc.Scenes[idx].Nodes
	} else {
		// No scene list: every node that is nobody's child
		isChild := make(map[int]bool)
		for _, n := range b.doc.Nodes {
			for _, c := range n.Children {
				isChild[c] = true
			}
		}
		for i := range b.doc.Nodes {
			if !isChild[i] {
				roots = append(roots, i)
			}
		}
	}

	for _, idx := range roots {
		child, err := b.node(idx, 0)
		if err != nil {
			return nil, err
		}
		root.Add(child)
	}
	return root, nil
}

func (b *gltfBuilder) node(idx, depth int) (*scene.Node, error) {
	if idx < 0 || idx >= len(b.doc.Nodes) || depth > 64 {
		return nil, fmt.Errorf("invalid glTF node %d", idx)
	}
	src := b.doc.Nodes[idx]
	node := scene.NewNode(src.Name)
	b.nodes[idx] = node
	applyNodeTransform(node, src)

	if src.Mesh != nil {
		if *src.Mesh >= len(b.doc.Meshes) {
			return nil, fmt.Errorf("node %d references missing mesh %d", idx, *src.Mesh)
		}
		mesh := b.doc.Meshes[*src.Mesh]
		for i, prim := range mesh.Primitives {
			m, err := b.primitive(prim)
			if err != nil {
				return nil, fmt.Errorf("mesh %q primitive %d: %w", mesh.Name, i, err)
			}
			if m != nil {
				node.Add(scene.NewMeshNode(mesh.Name, m))
			}
		}
	}

	for _, c := range src.Children {
		child, err := b.node(c, depth+1)
		if err != nil {
			return nil, err
		}
		node.Add(child)
	}
	return node, nil
}

// primitive converts a triangle primitive; other topologies return nil
func (b *gltfBuilder) primitive(prim *gltf.Primitive) (*scene.Mesh, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, nil
	}
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}

	positions, err := modeler.ReadPosition(b.doc, b.doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	mesh := &scene.Mesh{Positions: make([]geometry.Vector3, len(positions))}
	for i, p := range positions {
		mesh.Positions[i] = geometry.NewVector3(float64(p[0]), float64(p[1]), float64(p[2]))
	}

	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(b.doc, b.doc.Accessors[uvIdx], nil)
		if err == nil && len(uvs) == len(positions) {
			mesh.UVs = make([]geometry.Vector2, len(uvs))
			for i, uv := range uvs {
				// glTF texture space has v pointing down
				mesh.UVs[i] = geometry.NewVector2(float64(uv[0]), 1-float64(uv[1]))
			}
		}
	}

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(b.doc, b.doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		for _, i := range indices {
			if int(i) >= len(positions) {
				return nil, fmt.Errorf("index %d out of range", i)
			}
		}
		mesh.Indices = indices
	}

	mesh.Material = scene.DefaultMaterial()
	if prim.Material != nil {
		mesh.Material = b.material(*prim.Material)
	}
	return mesh, nil
}

func (b *gltfBuilder) material(idx int) *scene.Material {
	if m, ok := b.mats[idx]; ok {
		return m
	}
	mat := scene.DefaultMaterial()
	b.mats[idx] = mat
	if idx < 0 || idx >= len(b.doc.Materials) {
		return mat
	}

	src := b.doc.Materials[idx]
	mat.Name = src.Name
	mat.DoubleSided = src.DoubleSided
	mat.Transparent = src.AlphaMode == gltf.AlphaBlend

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		f := pbr.BaseColorFactorOrDefault()
		mat.Color = color.RGBA{R: unit8(f[0]), G: unit8(f[1]), B: unit8(f[2]), A: unit8(f[3])}
		mat.Opacity = f[3]
		if pbr.BaseColorTexture != nil {
			tex, err := b.texture(pbr.BaseColorTexture.Index)
			if err != nil {
				b.l.log.Warn("texture unavailable", "url", b.ref, "texture", pbr.BaseColorTexture.Index, "err", err)
			} else {
				mat.Texture = tex
			}
		}
	}
	return mat
}

func (b *gltfBuilder) texture(idx int) (image.Image, error) {
	if idx < 0 || idx >= len(b.doc.Textures) || b.doc.Textures[idx].Source == nil {
		return nil, fmt.Errorf("missing texture %d", idx)
	}
	imgIdx := *b.doc.Textures[idx].Source
	if imgIdx >= len(b.doc.Images) {
		return nil, fmt.Errorf("missing image %d", imgIdx)
	}
	src := b.doc.Images[imgIdx]

	var data []byte
	switch {
	case src.BufferView != nil:
		bv := b.doc.BufferViews[*src.BufferView]
		buf := b.doc.Buffers[bv.Buffer].Data
		if bv.ByteOffset+bv.ByteLength > len(buf) {
			return nil, fmt.Errorf("image %d buffer view out of range", imgIdx)
		}
		data = buf[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
	case src.IsEmbeddedResource():
		var err error
		data, err = src.MarshalData()
		if err != nil {
			return nil, err
		}
	default:
		return b.l.loadImage(b.ctx, resolve(b.ref, src.URI))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// clips converts the animations; channels on unknown nodes, weights or
// non-float outputs are skipped
func (b *gltfBuilder) clips() []*scene.Clip {
	var clips []*scene.Clip
	for i, anim := range b.doc.Animations {
		clip := &scene.Clip{Name: anim.Name}
		if clip.Name == "" {
			clip.Name = fmt.Sprintf("animation%d", i)
		}

		for _, ch := range anim.Channels {
			if ch.Target.Node == nil || ch.Sampler >= len(anim.Samplers) {
				continue
			}
			target, ok := b.nodes[*ch.Target.Node]
			if !ok {
				continue
			}
			sampler := anim.Samplers[ch.Sampler]
			input := b.doc.Accessors[sampler.Input]
			if len(input.Max) > 0 && input.Max[0] > clip.Duration {
				clip.Duration = input.Max[0]
			}

			track, ok := b.track(target, ch.Target.Path, sampler)
			if ok {
				clip.Tracks = append(clip.Tracks, track)
				if n := len(track.Times); n > 0 && track.Times[n-1] > clip.Duration {
					clip.Duration = track.Times[n-1]
				}
			}
		}
		clips = append(clips, clip)
	}
	return clips
}

func (b *gltfBuilder) track(target *scene.Node, trs gltf.TRSProperty, sampler *gltf.AnimationSampler) (scene.Track, bool) {
	track := scene.Track{Target: target}
	switch trs {
	case gltf.TRSTranslation:
		track.Path = scene.PathTranslation
	case gltf.TRSRotation:
		track.Path = scene.PathRotation
	case gltf.TRSScale:
		track.Path = scene.PathScale
	default:
		return track, false
	}

	in, err := modeler.ReadAccessor(b.doc, b.doc.Accessors[sampler.Input], nil)
	if err != nil {
		return track, false
	}
	times, ok := in.([]float32)
	if !ok {
		return track, false
	}
	for _, t := range times {
		track.Times = append(track.Times, float64(t))
	}

	out, err := modeler.ReadAccessor(b.doc, b.doc.Accessors[sampler.Output], nil)
	if err != nil {
		return track, false
	}
	switch v := out.(type) {
	case [][3]float32:
		for _, x := range v {
			track.Values = append(track.Values, [4]float64{float64(x[0]), float64(x[1]), float64(x[2])})
		}
	case [][4]float32:
		for _, x := range v {
			track.Values = append(track.Values, [4]float64{float64(x[0]), float64(x[1]), float64(x[2]), float64(x[3])})
		}
	default:
		return track, false
	}

	// Cubic spline outputs carry in/out tangents around each value
	if sampler.Interpolation == gltf.InterpolationCubicSpline && len(track.Values) == 3*len(track.Times) {
		values := make([][4]float64, len(track.Times))
		for i := range values {
			values[i] = track.Values[i*3+1]
		}
		track.Values = values
	}
	return track, len(track.Values) >= len(track.Times)
}

func applyNodeTransform(node *scene.Node, src *gltf.Node) {
	m := src.MatrixOrDefault()
	if m != gltf.DefaultMatrix {
		// column-major
		t := geometry.NewVector3(m[12], m[13], m[14])
		sx := math.Sqrt(m[0]*m[0] + m[1]*m[1] + m[2]*m[2])
		sy := math.Sqrt(m[4]*m[4] + m[5]*m[5] + m[6]*m[6])
		sz := math.Sqrt(m[8]*m[8] + m[9]*m[9] + m[10]*m[10])
		node.Position = t
		node.Scale = geometry.NewVector3(sx, sy, sz)
		if sx > 0 && sy > 0 && sz > 0 {
			r00, r01, r02 := m[0]/sx, m[4]/sy, m[8]/sz
			r11, r12 := m[5]/sy, m[9]/sz
			r21, r22 := m[6]/sy, m[10]/sz
			y := math.Asin(math.Max(-1, math.Min(1, r02)))
			if math.Abs(r02) < 0.9999999 {
				node.Rotation = geometry.NewVector3(math.Atan2(-r12, r22), y, math.Atan2(-r01, r00))
			} else {
				node.Rotation = geometry.NewVector3(math.Atan2(r21, r11), y, 0)
			}
		}
		return
	}

	t := src.TranslationOrDefault()
	r := src.RotationOrDefault()
	s := src.ScaleOrDefault()
	node.Position = geometry.NewVector3(t[0], t[1], t[2])
	node.Rotation = geometry.Quaternion{X: r[0], Y: r[1], Z: r[2], W: r[3]}.Euler()
	node.Scale = geometry.NewVector3(s[0], s[1], s[2])
}

func unit8(f float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, f)) * 255))
}
