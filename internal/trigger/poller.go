package trigger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Poller fetches the status document at a fixed interval
type Poller struct {
	url      string
	interval time.Duration
	client   *http.Client
	log      *slog.Logger
	d        *dispatcher
}

// NewPoller creates a poller for url
func NewPoller(url string, interval time.Duration, sink Sink, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: interval * 10},
		log:      log,
		d:        &dispatcher{sink: sink},
	}
}

// Run polls until ctx is done. Failed polls are logged and leave the edge
// state unchanged.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.log.Debug("status poll failed", "url", p.url, "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll performs a single fetch
func (p *Poller) Poll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return err
	}
	status, err := ParseStatus(data)
	if err != nil {
		return err
	}
	p.d.handle(status)
	return nil
}
