package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"
)

// MJPEGSource reads a multipart/x-mixed-replace JPEG stream in the
// background and keeps the latest frame
type MJPEGSource struct {
	url    string
	client *http.Client
	log    *slog.Logger

	// Retry is the delay before reconnecting after the stream ends
	Retry time.Duration
	// OnError is called from the reader goroutine when connecting or
	// decoding fails
	OnError func(error)

	mu     sync.RWMutex
	frame  image.Image
	frames uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMJPEGSource creates a source for url. Call Start to connect.
func NewMJPEGSource(url string, log *slog.Logger) *MJPEGSource {
	if log == nil {
		log = slog.Default()
	}
	return &MJPEGSource{
		url:    url,
		client: &http.Client{},
		log:    log,
		Retry:  2 * time.Second,
	}
}

// Start launches the reader goroutine
func (m *MJPEGSource) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		for {
			err := m.stream(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				m.log.Error("camera stream failed", "url", m.url, "err", err)
				if m.OnError != nil {
					m.OnError(err)
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.Retry):
			}
		}
	}()
}

// Close stops the reader and waits for it to exit
func (m *MJPEGSource) Close() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// Frame implements Source
func (m *MJPEGSource) Frame() (image.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.frame == nil {
		return nil, ErrNoFrame
	}
	return m.frame, nil
}

// Frames returns how many frames have been decoded
func (m *MJPEGSource) Frames() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frames
}

func (m *MJPEGSource) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("invalid content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return fmt.Errorf("not a multipart stream: %s", mediaType)
	}
	boundary := strings.TrimPrefix(params["boundary"], "--")
	if boundary == "" {
		return errors.New("missing multipart boundary")
	}

	reader := multipart.NewReader(resp.Body, boundary)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read part: %w", err)
		}

		img, err := jpeg.Decode(part)
		part.Close()
		if err != nil {
			// A corrupt frame is skipped; the next one may be fine
			m.log.Debug("skipping undecodable frame", "err", err)
			continue
		}

		m.mu.Lock()
		m.frame = img
		m.frames++
		m.mu.Unlock()
	}
}
