package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/casualjim/relay/events"
)

var errStreamingUnsupported = errors.New("streaming unsupported")

// sseEmitter writes relay events as server-sent events.
type sseEmitter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

func newSSEEmitter(w http.ResponseWriter) (*sseEmitter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	return &sseEmitter{w: w, flusher: flusher}, nil
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func (e *sseEmitter) Emit(ctx context.Context, ev events.Event) error {
	data, err := frameData(ev)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New("response already ended")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", ev.Name(), data); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

// frameData is the data line of ev. The done frame carries the bare [DONE] marker.
func frameData(ev events.Event) ([]byte, error) {
	if _, ok := ev.(events.Done); ok {
		return []byte(events.DoneData), nil
	}
	data, err := ev.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.Name(), err)
	}
	return data, nil
}

func (e *sseEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
