// Package trigger watches a remote gesture detector and asks for a capture on
// every rising edge of its flash flag.
package trigger

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Status is the detector state as published by the backend
type Status struct {
	Message string `json:"message"`
	Flash   bool   `json:"flash"`
}

// ParseStatus decodes a status document
func ParseStatus(data []byte) (Status, error) {
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("invalid status: %w", err)
	}
	return s, nil
}

// EdgeDetector reports transitions from not triggered to triggered
type EdgeDetector struct {
	prev bool
}

// Observe records flash and reports whether it is a rising edge
func (e *EdgeDetector) Observe(flash bool) bool {
	rising := flash && !e.prev
	e.prev = flash
	return rising
}

// Sink receives the interpreted status stream. Both callbacks run on the
// source goroutine and must not block.
type Sink struct {
	OnMessage func(string) // called when the message text changes
	OnTrigger func()       // called on every rising edge
}

// dispatcher applies edge detection and message de-duplication
type dispatcher struct {
	sink Sink

	mu      sync.Mutex
	edge    EdgeDetector
	message string
}

func (d *dispatcher) handle(s Status) {
	d.mu.Lock()
	rising := d.edge.Observe(s.Flash)
	changed := s.Message != d.message
	d.message = s.Message
	d.mu.Unlock()

	if changed && d.sink.OnMessage != nil {
		d.sink.OnMessage(s.Message)
	}
	if rising && d.sink.OnTrigger != nil {
		d.sink.OnTrigger()
	}
}
