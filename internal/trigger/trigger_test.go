package trigger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeDetector(t *testing.T) {
	var e EdgeDetector
	seq := []bool{false, true, true, false, true, false, false}
	want := []bool{false, true, false, false, true, false, false}
	for i, flash := range seq {
		assert.Equal(t, want[i], e.Observe(flash), "sample %d", i)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus([]byte(`{"message":"3","flash":false}`))
	require.NoError(t, err)
	assert.Equal(t, Status{Message: "3"}, s)

	_, err = ParseStatus([]byte("<html>"))
	assert.Error(t, err)
}

type recorder struct {
	mu       sync.Mutex
	messages []string
	triggers atomic.Int32
}

func (r *recorder) sink() Sink {
	return Sink{
		OnMessage: func(m string) {
			r.mu.Lock()
			r.messages = append(r.messages, m)
			r.mu.Unlock()
		},
		OnTrigger: func() { r.triggers.Add(1) },
	}
}

func TestPollerRisingEdge(t *testing.T) {
	statuses := []Status{
		{Message: "3"},
		{Message: "3"},
		{Message: "SMILE!", Flash: true},
		{Message: "SMILE!", Flash: true},
		{Message: "Saved Locally!"},
	}
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(calls.Add(1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		json.NewEncoder(w).Encode(statuses[i])
	}))
	defer srv.Close()

	rec := &recorder{}
	p := NewPoller(srv.URL, time.Millisecond, rec.sink(), nil)
	for range statuses {
		require.NoError(t, p.Poll(context.Background()))
	}

	assert.Equal(t, int32(1), rec.triggers.Load())
	assert.Equal(t, []string{"3", "SMILE!", "Saved Locally!"}, rec.messages)
}

func TestPollerErrorKeepsState(t *testing.T) {
	fail := atomic.Bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"message":"","flash":true}`))
	}))
	defer srv.Close()

	rec := &recorder{}
	p := NewPoller(srv.URL, time.Millisecond, rec.sink(), nil)
	require.NoError(t, p.Poll(context.Background()))
	fail.Store(true)
	assert.Error(t, p.Poll(context.Background()))
	fail.Store(false)
	require.NoError(t, p.Poll(context.Background()))

	// flash stayed high across the failure, so only one edge
	assert.Equal(t, int32(1), rec.triggers.Load())
}

func TestPollerRunStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"","flash":false}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := NewPoller(srv.URL, 5*time.Millisecond, Sink{}, nil).Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWebSocketSource(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, s := range []string{
			`{"message":"2","flash":false}`,
			`not json`,
			`{"message":"SMILE!","flash":true}`,
			`{"message":"SMILE!","flash":false}`,
			`{"message":"SMILE!","flash":true}`,
		} {
			conn.WriteMessage(websocket.TextMessage, []byte(s))
		}
		conn.ReadMessage() // wait for the client to close
	}))
	defer srv.Close()

	rec := &recorder{}
	src := NewWebSocketSource("ws"+strings.TrimPrefix(srv.URL, "http"), rec.sink(), nil)
	src.Retry = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.triggers.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"2", "SMILE!"}, rec.messages)
}
