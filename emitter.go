package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/casualjim/relay/events"
	"github.com/casualjim/relay/pkg/slogx"
)

// Emitter delivers relay events downstream. Close signals the end of the response
// and is called exactly once per exchange.
type Emitter interface {
	Emit(context.Context, events.Event) error
	Close() error
}

// Tee sends every event to primary and then to each mirror. Only the primary's
// errors are returned; mirror failures are logged.
func Tee(primary Emitter, mirrors ...Emitter) Emitter {
	if len(mirrors) == 0 {
		return primary
	}
	return &tee{primary: primary, mirrors: mirrors}
}

type tee struct {
	primary Emitter
	mirrors []Emitter
}

func (t *tee) Emit(ctx context.Context, ev events.Event) error {
	if err := t.primary.Emit(ctx, ev); err != nil {
		return err
	}
	for _, m := range t.mirrors {
		if err := m.Emit(ctx, ev); err != nil {
			slog.WarnContext(ctx, "mirror emit failed", slog.String("event", ev.Name()), slogx.Error(err))
		}
	}
	return nil
}

func (t *tee) Close() error {
	err := t.primary.Close()
	for _, m := range t.mirrors {
		if merr := m.Close(); merr != nil {
			slog.Warn("mirror close failed", slogx.Error(merr))
		}
	}
	return err
}

// ErrEmitterClosed is returned when emitting on a closed ChanEmitter.
var ErrEmitterClosed = errors.New("emitter closed")

// ChanEmitter exposes the events of an exchange as a channel. The channel is closed
// by Close.
type ChanEmitter struct {
	mu     sync.Mutex
	ch     chan events.Event
	closed bool
}

func NewChanEmitter(buffer int) *ChanEmitter {
	return &ChanEmitter{ch: make(chan events.Event, buffer)}
}

func (c *ChanEmitter) Events() <-chan events.Event { return c.ch }

func (c *ChanEmitter) Emit(ctx context.Context, ev events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrEmitterClosed
	}
	select {
	case c.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ChanEmitter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
	return nil
}

// EmitterFunc adapts a function to an Emitter with a no-op Close.
type EmitterFunc func(context.Context, events.Event) error

func (f EmitterFunc) Emit(ctx context.Context, ev events.Event) error { return f(ctx, ev) }
func (EmitterFunc) Close() error                                      { return nil }
