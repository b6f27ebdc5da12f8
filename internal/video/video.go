// Package video provides camera frames for compositing: a fixed still image
// or the latest frame of an MJPEG stream.
package video

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// ErrNoFrame is returned until a source has a frame to show
var ErrNoFrame = errors.New("no video frame available")

// Source yields the current camera frame at its native resolution
type Source interface {
	Frame() (image.Image, error)
}

// StillSource always returns the same image
type StillSource struct {
	img image.Image
}

// NewStillSource wraps img
func NewStillSource(img image.Image) *StillSource {
	return &StillSource{img: img}
}

// LoadStill decodes an image file into a StillSource
func LoadStill(path string) (*StillSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video still: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode video still: %w", err)
	}
	return NewStillSource(img), nil
}

// Frame implements Source
func (s *StillSource) Frame() (image.Image, error) {
	if s == nil || s.img == nil {
		return nil, ErrNoFrame
	}
	return s.img, nil
}
