package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"path"
	"path/filepath"

	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/philipparndt/arstudio/pkg/fbx"
	"github.com/philipparndt/arstudio/pkg/obj"
	"github.com/philipparndt/arstudio/pkg/openscad"
	"github.com/philipparndt/arstudio/pkg/scene"
	"github.com/philipparndt/arstudio/pkg/stl"
)

func (l *Loader) loadOBJ(ctx context.Context, ref string) (registry.Asset, error) {
	data, err := readAll(ctx, l.fetch, ref)
	if err != nil {
		return registry.Asset{}, err
	}
	model, err := obj.Parse(bytes.NewReader(data), baseName(ref))
	if err != nil {
		return registry.Asset{}, fmt.Errorf("failed to parse OBJ: %w", err)
	}

	// The sibling library with the same base name comes first, then any
	// mtllib the file names itself
	candidates := []string{sibling(ref, ".mtl")}
	for _, lib := range model.MaterialLibs {
		candidates = append(candidates, resolve(ref, lib))
	}

	var materials map[string]*scene.Material
	var mtlErr error
	for _, mtl := range candidates {
		materials, err = l.loadMTL(ctx, mtl)
		if err == nil {
			break
		}
		mtlErr = errors.Join(mtlErr, err)
		if ctx.Err() != nil {
			return registry.Asset{}, ctx.Err()
		}
	}
	if materials == nil {
		l.log.Warn("material library unavailable, using placeholder", "mtl", candidates[0], "err", mtlErr)
	}

	return registry.Asset{Kind: registry.KindMesh, Node: model.Node(materials)}, nil
}

func (l *Loader) loadMTL(ctx context.Context, ref string) (map[string]*scene.Material, error) {
	data, err := readAll(ctx, l.fetch, ref)
	if err != nil {
		return nil, err
	}
	defs, err := obj.ParseMTL(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MTL %s: %w", path.Base(refPath(ref)), err)
	}

	materials := make(map[string]*scene.Material, len(defs))
	for name, def := range defs {
		var tex image.Image
		if def.DiffuseMap != "" {
			texRef := resolve(ref, def.DiffuseMap)
			tex, err = l.loadImage(ctx, texRef)
			if err != nil {
				l.log.Warn("texture unavailable", "texture", texRef, "err", err)
				tex = nil
			}
		}
		materials[name] = def.Material(tex)
	}
	return materials, nil
}

func (l *Loader) loadFBX(ctx context.Context, ref string) (registry.Asset, error) {
	rc, err := l.fetch.Open(ctx, ref)
	if err != nil {
		return registry.Asset{}, err
	}
	defer rc.Close()

	doc, err := fbx.Read(rc)
	if err != nil {
		return registry.Asset{}, fmt.Errorf("failed to parse FBX: %w", err)
	}
	sc, err := fbx.BuildScene(doc, baseName(ref))
	if err != nil {
		return registry.Asset{}, err
	}

	return registry.Asset{Kind: registry.KindMesh, Node: sc.Root, Clips: sc.Clips}, nil
}

func (l *Loader) loadSTL(ctx context.Context, ref string) (registry.Asset, error) {
	rc, err := l.fetch.Open(ctx, ref)
	if err != nil {
		return registry.Asset{}, err
	}
	defer rc.Close()

	model, err := stl.ParseReader(rc)
	if err != nil {
		return registry.Asset{}, fmt.Errorf("failed to parse STL: %w", err)
	}
	if model.TriangleCount() == 0 {
		return registry.Asset{}, fmt.Errorf("STL contains no triangles")
	}
	return registry.Asset{Kind: registry.KindMesh, Node: model.Node()}, nil
}

// ErrRemoteSource is returned for OpenSCAD references that are not local
// files; rendering needs the source and its includes on disk
var ErrRemoteSource = errors.New("OpenSCAD sources must be local files")

func (l *Loader) loadSCAD(ctx context.Context, ref string) (registry.Asset, error) {
	p, ok := LocalPath(ref)
	if !ok {
		return registry.Asset{}, ErrRemoteSource
	}
	model, err := openscad.NewRenderer(filepath.Dir(p)).Render(ctx, p)
	if err != nil {
		return registry.Asset{}, err
	}
	if model.TriangleCount() == 0 {
		return registry.Asset{}, fmt.Errorf("rendered model contains no triangles")
	}
	return registry.Asset{Kind: registry.KindMesh, Node: model.Node()}, nil
}
