package session

import (
	"context"
	"sync"

	"github.com/casualjim/relay/provider"
)

// Coordinator carries the cancellation signal of a single exchange. It can be
// triggered before the exchange is bound to a context, in which case the context is
// cancelled as soon as it is bound.
type Coordinator struct {
	once   sync.Once
	mu     sync.Mutex
	cancel context.CancelCauseFunc
	fired  bool
}

// bind derives the exchange context from parent.
func (c *Coordinator) bind(parent context.Context) context.Context {
	ctx, cancel := context.WithCancelCause(parent)
	c.mu.Lock()
	c.cancel = cancel
	fired := c.fired
	c.mu.Unlock()
	if fired {
		cancel(provider.ErrCancelled)
	}
	return ctx
}

// Cancel triggers the signal. Only the first call has an effect.
func (c *Coordinator) Cancel() {
	c.once.Do(func() {
		c.mu.Lock()
		c.fired = true
		cancel := c.cancel
		c.mu.Unlock()
		if cancel != nil {
			cancel(provider.ErrCancelled)
		}
	})
}

// Cancelled reports whether Cancel has been called.
func (c *Coordinator) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// release frees the exchange context once the session has settled.
func (c *Coordinator) release() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel(context.Canceled)
	}
}
