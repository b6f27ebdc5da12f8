package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Photo is an encoded capture
type Photo struct {
	Image    *image.RGBA
	PNG      []byte
	Filename string
	Taken    time.Time
}

// Filename returns "<product>-ar-<unix millis>.png"
func Filename(product string, t time.Time) string {
	return fmt.Sprintf("%s-ar-%d.png", product, t.UnixMilli())
}

// Capture composites the current frame without selection outlines or
// overlay text and encodes it. Registry state is unchanged afterwards.
func (c *Compositor) Capture(product string, now time.Time) (*Photo, error) {
	img := c.Compose(Options{})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode capture: %w", err)
	}

	return &Photo{
		Image:    img,
		PNG:      buf.Bytes(),
		Filename: Filename(product, now),
		Taken:    now,
	}, nil
}

// Save writes the photo into dir, creating it if needed, and returns the
// file path
func (p *Photo) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create capture directory: %w", err)
	}
	path := filepath.Join(dir, p.Filename)
	if err := os.WriteFile(path, p.PNG, 0o644); err != nil {
		return "", fmt.Errorf("failed to write capture: %w", err)
	}
	return path, nil
}
