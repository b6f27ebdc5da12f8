package loader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/philipparndt/arstudio/pkg/geometry"
	"github.com/philipparndt/arstudio/pkg/scene"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var spriteTypes = map[string]bool{
	"png":  true,
	"jpg":  true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
}

// loadImage fetches and decodes an image, checking its magic bytes rather
// than trusting the extension
func (l *Loader) loadImage(ctx context.Context, ref string) (image.Image, error) {
	data, err := readAll(ctx, l.fetch, ref)
	if err != nil {
		return nil, err
	}

	kind, err := filetype.Match(data)
	if err != nil {
		return nil, fmt.Errorf("failed to sniff image type: %w", err)
	}
	if !spriteTypes[kind.Extension] {
		return nil, fmt.Errorf("%w: content is %q", ErrUnsupportedFormat, kind.MIME.Value)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", kind.Extension, err)
	}
	return img, nil
}

func (l *Loader) loadSprite(ctx context.Context, ref string) (registry.Asset, error) {
	img, err := l.loadImage(ctx, ref)
	if err != nil {
		return registry.Asset{}, err
	}
	return registry.Asset{Kind: registry.KindSprite, Node: SpriteNode(baseName(ref), img)}, nil
}

// SpriteNode builds a textured quad in the XY plane facing +Z, with the
// image aspect ratio
func SpriteNode(name string, img image.Image) *scene.Node {
	b := img.Bounds()
	w, h := 1.0, 1.0
	if b.Dx() > 0 && b.Dy() > 0 {
		if b.Dx() >= b.Dy() {
			h = float64(b.Dy()) / float64(b.Dx())
		} else {
			w = float64(b.Dx()) / float64(b.Dy())
		}
	}

	mat := scene.DefaultMaterial()
	mat.Name = name
	mat.DoubleSided = true
	mat.Texture = img

	mesh := &scene.Mesh{
		Positions: []geometry.Vector3{
			geometry.NewVector3(-w/2, -h/2, 0),
			geometry.NewVector3(w/2, -h/2, 0),
			geometry.NewVector3(w/2, h/2, 0),
			geometry.NewVector3(-w/2, h/2, 0),
		},
		UVs: []geometry.Vector2{
			geometry.NewVector2(0, 0),
			geometry.NewVector2(1, 0),
			geometry.NewVector2(1, 1),
			geometry.NewVector2(0, 1),
		},
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
		Material: mat,
	}
	return scene.NewMeshNode(name, mesh)
}
