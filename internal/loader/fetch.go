package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher opens a decoded resource reference: a local path, a file:// URL or
// an http(s) URL
type Fetcher interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// HTTPFetcher reads local files directly and remote files over HTTP
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher with a bounded request timeout
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: 60 * time.Second}}
}

// Open implements Fetcher
func (f *HTTPFetcher) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if !isRemote(ref) {
		file, err := os.Open(localPath(ref))
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		return file, nil
	}

	target, err := encodeURL(ref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", ref, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch %s: %s", ref, resp.Status)
	}
	return resp.Body, nil
}

func readAll(ctx context.Context, f Fetcher, ref string) ([]byte, error) {
	rc, err := f.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return data, nil
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// LocalPath returns the filesystem path of a local reference. ok is false
// for http(s) references.
func LocalPath(ref string) (path string, ok bool) {
	if isRemote(ref) {
		return "", false
	}
	return localPath(ref), true
}

func localPath(ref string) string {
	return strings.TrimPrefix(ref, "file://")
}

// splitRemote splits a decoded http(s) reference into scheme://host, path
// and query
func splitRemote(ref string) (origin, p, query string) {
	scheme, rest, _ := strings.Cut(ref, "://")
	host, p, found := strings.Cut(rest, "/")
	if found {
		p = "/" + p
	}
	p, query, _ = strings.Cut(p, "?")
	return scheme + "://" + host, p, query
}

// encodeURL re-escapes a decoded http(s) reference for the wire
func encodeURL(ref string) (string, error) {
	origin, p, query := splitRemote(ref)
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", ref, err)
	}
	u.Path = p
	u.RawQuery = query
	return u.String(), nil
}

// refPath returns the path component of a reference, without query
func refPath(ref string) string {
	if isRemote(ref) {
		_, p, _ := splitRemote(ref)
		return p
	}
	return localPath(ref)
}

// sibling replaces the extension of ref with ext, keeping its directory
func sibling(ref, ext string) string {
	if isRemote(ref) {
		origin, p, _ := splitRemote(ref)
		return origin + strings.TrimSuffix(p, path.Ext(p)) + ext
	}
	p := localPath(ref)
	return strings.TrimSuffix(p, filepath.Ext(p)) + ext
}

// resolve returns rel relative to the directory of base
func resolve(base, rel string) string {
	if isRemote(rel) || filepath.IsAbs(rel) {
		return rel
	}
	if isRemote(base) {
		origin, p, _ := splitRemote(base)
		return origin + path.Join(path.Dir(p), rel)
	}
	return filepath.Join(filepath.Dir(localPath(base)), filepath.FromSlash(rel))
}

// refFS exposes the directory of a reference as an fs.FS, so decoders can
// pull sibling resources through the fetcher
type refFS struct {
	ctx   context.Context
	fetch Fetcher
	base  string
}

func (r refFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	rc, err := r.fetch.Open(r.ctx, resolve(r.base, name))
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return refFile{ReadCloser: rc, name: name}, nil
}

type refFile struct {
	io.ReadCloser
	name string
}

var errNoStat = errors.New("stat not supported")

func (f refFile) Stat() (fs.FileInfo, error) {
	return nil, &fs.PathError{Op: "stat", Path: f.name, Err: errNoStat}
}
