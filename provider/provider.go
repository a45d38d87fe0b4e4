package provider

import (
	"context"

	"github.com/casualjim/relay/messages"
	"github.com/google/uuid"
)

// Provider opens one exchange with an upstream assistant service.
//
// ChatCompletion returns a channel of normalized events. The implementation owns the
// upstream connection, emits events in upstream arrival order and closes the channel
// when the exchange is over. At most one terminal event (Completed or Failed) is sent;
// when ctx is cancelled the channel is closed without a terminal event.
type Provider interface {
	ChatCompletion(context.Context, CompletionParams) (<-chan StreamEvent, error)
}

// CompletionParams carries everything a provider needs for one upstream call.
type CompletionParams struct {
	// SessionID identifies the session the events belong to.
	SessionID uuid.UUID

	// Request is the caller's chat request.
	Request messages.ChatRequest

	// Stream selects server-sent events over a single JSON body.
	Stream bool

	// Model overrides the provider's default upstream model when set.
	Model string

	// Prevents unkeyed literals
	_ struct{}
}
