package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketSource receives status documents pushed over a WebSocket
type WebSocketSource struct {
	url   string
	log   *slog.Logger
	d     *dispatcher
	Retry time.Duration
}

// NewWebSocketSource creates a push source for url (ws:// or wss://)
func NewWebSocketSource(url string, sink Sink, log *slog.Logger) *WebSocketSource {
	if log == nil {
		log = slog.Default()
	}
	return &WebSocketSource{
		url:   url,
		log:   log,
		d:     &dispatcher{sink: sink},
		Retry: 2 * time.Second,
	}
}

// Run reads messages until ctx is done, reconnecting after failures
func (w *WebSocketSource) Run(ctx context.Context) error {
	for {
		if err := w.session(ctx); err != nil && ctx.Err() == nil {
			w.log.Warn("status socket failed", "url", w.url, "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.Retry):
		}
	}
}

func (w *WebSocketSource) session(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	// Unblock the read loop when ctx ends
	stop := context.AfterFunc(ctx, func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		status, err := ParseStatus(msg)
		if err != nil {
			w.log.Debug("ignoring malformed status", "err", err)
			continue
		}
		w.d.handle(status)
	}
}
