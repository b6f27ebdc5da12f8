// Package loader dispatches a model reference to the parser for its format
// and returns an asset ready for registry insertion.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/philipparndt/arstudio/internal/registry"
)

var (
	// ErrUnsupportedFormat is returned for extensions no loader handles
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrCancelled is the result of a load abandoned by a clear
	ErrCancelled = errors.New("load cancelled")
)

// Format identifies a loader path
type Format int

const (
	FormatUnknown Format = iota
	FormatGLTF           // glTF / GLB, meshes with animation
	FormatOBJ            // Wavefront OBJ with sibling MTL
	FormatFBX            // binary FBX, meshes with animation stacks
	FormatSprite         // flat image shown as a camera-facing quad
	FormatSTL
	FormatSCAD // OpenSCAD source rendered to STL
)

func (f Format) String() string {
	switch f {
	case FormatGLTF:
		return "gltf"
	case FormatOBJ:
		return "obj"
	case FormatFBX:
		return "fbx"
	case FormatSprite:
		return "sprite"
	case FormatSTL:
		return "stl"
	case FormatSCAD:
		return "scad"
	}
	return "unknown"
}

var extensions = map[string]Format{
	".gltf": FormatGLTF,
	".glb":  FormatGLTF,
	".obj":  FormatOBJ,
	".fbx":  FormatFBX,
	".png":  FormatSprite,
	".jpg":  FormatSprite,
	".jpeg": FormatSprite,
	".gif":  FormatSprite,
	".webp": FormatSprite,
	".bmp":  FormatSprite,
	".stl":  FormatSTL,
	".scad": FormatSCAD,
}

// Decode percent-decodes a reference exactly once
func Decode(raw string) (string, error) {
	ref, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", raw, err)
	}
	return ref, nil
}

// DetectFormat picks the loader path from the extension of a decoded
// reference
func DetectFormat(ref string) (Format, error) {
	ext := strings.ToLower(path.Ext(refPath(ref)))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// Result is the outcome of one load
type Result struct {
	Ref    string
	Format Format
	Asset  registry.Asset
	Err    error
}

// Loader turns references into assets
type Loader struct {
	fetch Fetcher
	log   *slog.Logger
}

// New creates a loader. A nil fetcher uses NewHTTPFetcher, a nil logger
// slog.Default.
func New(fetch Fetcher, log *slog.Logger) *Loader {
	if fetch == nil {
		fetch = NewHTTPFetcher()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Loader{fetch: fetch, log: log}
}

// Load decodes raw, detects its format and runs exactly one loader path
func (l *Loader) Load(ctx context.Context, raw string) Result {
	ref, err := Decode(raw)
	if err != nil {
		return Result{Ref: raw, Err: err}
	}
	return l.LoadRef(ctx, ref)
}

// LoadRef loads an already decoded reference, such as the Source of a
// loaded asset
func (l *Loader) LoadRef(ctx context.Context, ref string) Result {
	format, err := DetectFormat(ref)
	if err != nil {
		l.log.Warn("load failed", "url", ref, "err", err)
		return Result{Ref: ref, Err: err}
	}

	res := Result{Ref: ref, Format: format}
	switch format {
	case FormatGLTF:
		res.Asset, res.Err = l.loadGLTF(ctx, ref)
	case FormatOBJ:
		res.Asset, res.Err = l.loadOBJ(ctx, ref)
	case FormatFBX:
		res.Asset, res.Err = l.loadFBX(ctx, ref)
	case FormatSprite:
		res.Asset, res.Err = l.loadSprite(ctx, ref)
	case FormatSTL:
		res.Asset, res.Err = l.loadSTL(ctx, ref)
	case FormatSCAD:
		res.Asset, res.Err = l.loadSCAD(ctx, ref)
	}

	if res.Err == nil && ctx.Err() != nil {
		res.Err = ErrCancelled
	}
	if res.Err != nil {
		if errors.Is(res.Err, context.Canceled) {
			res.Err = ErrCancelled
		}
		res.Asset = registry.Asset{}
		if errors.Is(res.Err, ErrCancelled) {
			l.log.Debug("load cancelled", "url", ref, "format", format)
		} else {
			l.log.Warn("load failed", "url", ref, "format", format, "err", res.Err)
		}
		return res
	}

	res.Asset.Source = ref
	if res.Asset.Name == "" {
		res.Asset.Name = baseName(ref)
	}
	return res
}

// Start runs Load in the background. The channel receives exactly one
// result.
func (l *Loader) Start(ctx context.Context, raw string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		ch <- l.Load(ctx, raw)
	}()
	return ch
}

func baseName(ref string) string {
	p := refPath(ref)
	p = strings.ReplaceAll(p, "\\", "/")
	b := path.Base(p)
	return strings.TrimSuffix(b, path.Ext(b))
}
