package loader

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/philipparndt/arstudio/pkg/fbx/fbxtest"
	"github.com/philipparndt/arstudio/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadOBJ = `mtllib other.mtl
o quad
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
usemtl red
f 1 2 3 4
`

const redMTL = "newmtl red\nKd 1 0 0\nd 0.3\n"

const triangleGLTF = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"name": "tri", "mesh": 0}],
  "meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}, "material": 0}]}],
  "materials": [{"name": "red", "pbrMetallicRoughness": {"baseColorFactor": [1, 0, 0, 1]}}],
  "buffers": [{"byteLength": 68, "uri": "data:application/octet-stream;base64,AAAAAAAAAAAAAAAAAACAPwAAAAAAAAAAAAAAAAAAgD8AAAAAAAAAAAAAwD8AAAAAAAAAAAAAAAAAAABAAAAAAAAAAAA="}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 8},
    {"buffer": 0, "byteOffset": 44, "byteLength": 24}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5126, "count": 2, "type": "SCALAR", "min": [0], "max": [1.5]},
    {"bufferView": 2, "componentType": 5126, "count": 2, "type": "VEC3"}
  ],
  "animations": [{
    "name": "slide",
    "channels": [{"sampler": 0, "target": {"node": 0, "path": "translation"}}],
    "samplers": [{"input": 1, "output": 2}]
  }]
}`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		ref  string
		want Format
	}{
		{"model.glb", FormatGLTF},
		{"dir/Model.GLTF", FormatGLTF},
		{"chair.obj", FormatOBJ},
		{"dance.fbx", FormatFBX},
		{"logo.png", FormatSprite},
		{"photo.jpeg", FormatSprite},
		{"https://cdn.example.com/a/b/part.stl?v=3", FormatSTL},
		{"bracket.scad", FormatSCAD},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.ref)
		require.NoError(t, err, tt.ref)
		assert.Equal(t, tt.want, got, tt.ref)
	}

	_, err := DetectFormat("notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeOnce(t *testing.T) {
	ref, err := Decode("my%2520chair.obj")
	require.NoError(t, err)
	assert.Equal(t, "my%20chair.obj", ref)

	ref, err = Decode("my%20chair.obj")
	require.NoError(t, err)
	assert.Equal(t, "my chair.obj", ref)
}

func TestLoadOBJWithSiblingMaterial(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "my chair.obj", []byte(quadOBJ))
	writeFile(t, dir, "my chair.mtl", []byte(redMTL))

	res := New(nil, nil).Load(context.Background(), filepath.Join(dir, "my%20chair.obj"))
	require.NoError(t, res.Err)
	assert.Equal(t, FormatOBJ, res.Format)
	assert.Equal(t, "my chair", res.Asset.Name)
	assert.Equal(t, registry.KindMesh, res.Asset.Kind)

	mats := res.Asset.Node.Materials()
	require.Len(t, mats, 1)
	assert.False(t, mats[0].Placeholder)
	assert.Equal(t, uint8(255), mats[0].Color.R)
}

func TestLoadOBJFallsBackToMtllib(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "quad.obj", []byte(quadOBJ))
	writeFile(t, dir, "other.mtl", []byte(redMTL))

	res := New(nil, nil).Load(context.Background(), p)
	require.NoError(t, res.Err)
	assert.False(t, res.Asset.Node.Materials()[0].Placeholder)
}

func TestLoadOBJWithoutMaterialUsesPlaceholder(t *testing.T) {
	p := writeFile(t, t.TempDir(), "quad.obj", []byte(quadOBJ))

	res := New(nil, nil).Load(context.Background(), p)
	require.NoError(t, res.Err)

	mats := res.Asset.Node.Materials()
	require.Len(t, mats, 1)
	assert.True(t, mats[0].Placeholder)
	assert.Equal(t, scene.PlaceholderColor, mats[0].Color)
}

func TestLoadOBJBadGeometryFails(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "broken.obj", []byte("v 0 0 0\nf 1 2 3\n"))
	writeFile(t, dir, "broken.mtl", []byte(redMTL))

	res := New(nil, nil).Load(context.Background(), p)
	assert.Error(t, res.Err)
	assert.Nil(t, res.Asset.Node)
}

func TestLoadSprite(t *testing.T) {
	p := writeFile(t, t.TempDir(), "logo.png", pngBytes(t, 40, 20))

	res := New(nil, nil).Load(context.Background(), p)
	require.NoError(t, res.Err)
	assert.Equal(t, registry.KindSprite, res.Asset.Kind)

	size := res.Asset.Node.Bounds().Size()
	assert.InDelta(t, 1.0, size.X, 1e-9)
	assert.InDelta(t, 0.5, size.Y, 1e-9)
	assert.Equal(t, 0.0, size.Z)
	require.NotNil(t, res.Asset.Node.Mesh.Material.Texture)
}

func TestLoadSpriteRejectsMislabelledContent(t *testing.T) {
	p := writeFile(t, t.TempDir(), "fake.png", []byte("definitely not an image"))

	res := New(nil, nil).Load(context.Background(), p)
	assert.ErrorIs(t, res.Err, ErrUnsupportedFormat)
}

func TestLoadGLTF(t *testing.T) {
	p := writeFile(t, t.TempDir(), "tri.gltf", []byte(triangleGLTF))

	res := New(nil, nil).Load(context.Background(), p)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Asset.Node.TriangleCount())

	mats := res.Asset.Node.Materials()
	require.Len(t, mats, 1)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, mats[0].Color)

	require.Len(t, res.Asset.Clips, 1)
	clip := res.Asset.Clips[0]
	assert.Equal(t, "slide", clip.Name)
	assert.InDelta(t, 1.5, clip.Duration, 1e-6)
	require.Len(t, clip.Tracks, 1)

	clip.Apply(0.75)
	tri := res.Asset.Node.Children()[0]
	assert.InDelta(t, 1.0, tri.Position.X, 1e-6)
}

func TestLoadSTL(t *testing.T) {
	stl := "solid s\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nvertex 0 1 0\nendloop\nendfacet\nendsolid s\n"
	p := writeFile(t, t.TempDir(), "part.stl", []byte(stl))

	res := New(nil, nil).Load(context.Background(), p)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Asset.Node.TriangleCount())
}

func TestLoadFBX(t *testing.T) {
	p := writeFile(t, t.TempDir(), "wave.fbx", fbxtest.Encode(true, fbxtest.AnimatedQuad()...))

	res := New(nil, nil).Load(context.Background(), p)
	require.NoError(t, res.Err)
	assert.Equal(t, FormatFBX, res.Format)
	assert.Equal(t, registry.KindMesh, res.Asset.Kind)
	require.Len(t, res.Asset.Clips, 1)
	assert.NotEmpty(t, res.Asset.Clips[0].Tracks)

	var body *scene.Node
	res.Asset.Node.Walk(func(n *scene.Node) bool {
		if n.Name == "Body" {
			body = n
		}
		return true
	})
	require.NotNil(t, body)

	reg := registry.New(registry.Options{Capacity: 1, TargetSize: 2, SpriteTargetSize: 3, MinScale: 0.1, MaxScale: 5})
	entry := reg.Insert(res.Asset)
	require.NotNil(t, entry.Animation())
	start := body.Position

	reg.Tick(1)
	assert.InDelta(t, start.X+2, body.Position.X, 1e-6)
	assert.InDelta(t, start.Y+1, body.Position.Y, 1e-6)
	assert.InDelta(t, 1.0, entry.Animation().Time(), 1e-6)
}

func TestLoadRefSkipsDecoding(t *testing.T) {
	stl := "solid s\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nvertex 0 1 0\nendloop\nendfacet\nendsolid s\n"
	dir := t.TempDir()
	writeFile(t, dir, "100%.stl", []byte(stl))
	l := New(nil, nil)

	res := l.Load(context.Background(), filepath.Join(dir, "100%25.stl"))
	require.NoError(t, res.Err)
	assert.Equal(t, filepath.Join(dir, "100%.stl"), res.Asset.Source)

	again := l.LoadRef(context.Background(), res.Asset.Source)
	require.NoError(t, again.Err)
	assert.Equal(t, res.Asset.Source, again.Asset.Source)
	assert.Equal(t, 1, again.Asset.Node.TriangleCount())
}

func TestLoadRemoteOBJ(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/big chair.obj":
			w.Write([]byte(quadOBJ))
		case "/models/big chair.mtl":
			w.Write([]byte(redMTL))
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	res := New(nil, nil).Load(context.Background(), srv.URL+"/models/big%20chair.obj")
	require.NoError(t, res.Err)
	assert.Equal(t, srv.URL+"/models/big chair.obj", res.Asset.Source)
	assert.False(t, res.Asset.Node.Materials()[0].Placeholder)
}

func TestLoadRemoteNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	res := New(nil, nil).Load(context.Background(), srv.URL+"/missing.glb")
	assert.Error(t, res.Err)
}

func TestLoadRemoteSCADRejected(t *testing.T) {
	res := New(nil, nil).Load(context.Background(), "https://example.com/bracket.scad")
	assert.ErrorIs(t, res.Err, ErrRemoteSource)
	assert.Equal(t, FormatSCAD, res.Format)
}

func TestStartCancelled(t *testing.T) {
	p := writeFile(t, t.TempDir(), "quad.obj", []byte(quadOBJ))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := <-New(nil, nil).Start(ctx, p)
	assert.ErrorIs(t, res.Err, ErrCancelled)
}

func TestResolveAndSibling(t *testing.T) {
	assert.Equal(t, "https://h/a/b.mtl", sibling("https://h/a/b.obj", ".mtl"))
	assert.Equal(t, "https://h/a/tex/c.png", resolve("https://h/a/b.mtl", "tex/c.png"))
	assert.Equal(t, filepath.Join("dir", "c.png"), resolve(filepath.Join("dir", "b.mtl"), "c.png"))

	u, err := encodeURL("http://h/a b.obj?x=1")
	require.NoError(t, err)
	assert.Equal(t, "http://h/a%20b.obj?x=1", u)
}
