package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestStillSource(t *testing.T) {
	var empty *StillSource
	_, err := empty.Frame()
	assert.ErrorIs(t, err, ErrNoFrame)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(8, 4, color.RGBA{R: 255, A: 255})))
	p := filepath.Join(t.TempDir(), "still.png")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))

	src, err := LoadStill(p)
	require.NoError(t, err)
	frame, err := src.Frame()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), frame.Bounds())

	_, err = LoadStill(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestMJPEGSource(t *testing.T) {
	var frame bytes.Buffer
	require.NoError(t, jpeg.Encode(&frame, solid(32, 16, color.RGBA{G: 200, A: 255}), nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		for i := 0; i < 3; i++ {
			fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", frame.Len())
			w.Write(frame.Bytes())
			w.Write([]byte("\r\n"))
			w.(http.Flusher).Flush()
		}
		w.Write([]byte("--frame--\r\n"))
	}))
	defer srv.Close()

	src := NewMJPEGSource(srv.URL, nil)
	src.Retry = time.Hour
	_, err := src.Frame()
	assert.ErrorIs(t, err, ErrNoFrame)

	src.Start(context.Background())
	defer src.Close()

	require.Eventually(t, func() bool { return src.Frames() >= 3 }, 2*time.Second, 10*time.Millisecond)
	img, err := src.Frame()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 16), img.Bounds())
}

func TestMJPEGSourceReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "camera busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	errs := make(chan error, 4)
	src := NewMJPEGSource(srv.URL, nil)
	src.Retry = time.Hour
	src.OnError = func(err error) { errs <- err }
	src.Start(context.Background())
	defer src.Close()

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "503")
	case <-time.After(2 * time.Second):
		t.Fatal("expected an error report")
	}
}
