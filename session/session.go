package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/casualjim/relay/messages"
	"github.com/casualjim/relay/pkg/slogx"
	"github.com/casualjim/relay/pkg/uuidx"
	"github.com/casualjim/relay/provider"
	"github.com/google/uuid"
)

var errSessionUsed = errors.New("session already used")

func newSessionID() uuid.UUID { return uuidx.New() }

// Session is one outstanding exchange.
type Session struct {
	id       uuid.UUID
	request  messages.ChatRequest
	provider provider.Provider
	model    string
	log      *slog.Logger
	coord    *Coordinator

	mu    sync.Mutex
	state State
	text  string
	err   error
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Text returns the text accumulated so far.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Err returns the error the session settled with, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stream reports whether the session asks upstream for an event stream.
func (s *Session) Stream() bool { return s.request.Stream }

// Coordinator returns the cancellation signal of the session.
func (s *Session) Coordinator() *Coordinator { return s.coord }

// Cancel settles the session as Cancelled and closes the upstream connection. It is
// a no-op once the session is terminal.
func (s *Session) Cancel() {
	if s.settle(Cancelled, "", provider.ErrCancelled) {
		s.log.Debug("session cancelled")
	}
	s.coord.Cancel()
}

// ChatCompletion runs the exchange and blocks until it settles. It returns the full
// answer on success. On failure or cancellation it returns the text accumulated so
// far together with the error; cancellation is reported as provider.ErrCancelled.
func (s *Session) ChatCompletion(ctx context.Context, onProgress ProgressFunc) (string, error) {
	if err := s.begin(); err != nil {
		return "", err
	}

	ctx = s.coord.bind(ctx)
	defer s.coord.release()

	events, err := s.provider.ChatCompletion(ctx, provider.CompletionParams{
		SessionID: s.id,
		Request:   s.request,
		Stream:    s.request.Stream,
		Model:     s.model,
	})
	if err != nil {
		return s.finish(Failed, "", err)
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return s.closed(ctx)
			}
			switch ev := ev.(type) {
			case provider.Started:
				s.transition(AwaitingUpstream, Streaming)
			case provider.Delta:
				text, live := s.apply(ev)
				if !live {
					return s.result()
				}
				if onProgress != nil {
					onProgress(text)
				}
			case provider.Completed:
				return s.finish(Completed, ev.Text, nil)
			case provider.Failed:
				return s.finish(Failed, "", ev.Err)
			}
		case <-ctx.Done():
			return s.interrupted(ctx)
		}
	}
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Idle:
	case Cancelled:
		return provider.ErrCancelled
	default:
		return fmt.Errorf("%w: %w", provider.ErrInvalidRequest, errSessionUsed)
	}

	if err := s.request.Validate(); err != nil {
		s.state = Failed
		s.err = fmt.Errorf("%w: %w", provider.ErrInvalidRequest, err)
		return s.err
	}
	s.state = AwaitingUpstream
	s.log.Debug("session started", slog.Bool("stream", s.request.Stream))
	return nil
}

func (s *Session) transition(from, to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == from {
		s.state = to
	}
}

// apply folds a delta into the accumulated text. It reports false when the session
// has already settled.
func (s *Session) apply(d provider.Delta) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return "", false
	}
	s.state = Streaming
	s.text = d.Mode.Apply(s.text, d.Text)
	return s.text, true
}

// settle performs the first terminal transition and reports whether this call won.
// Later calls leave the session untouched.
func (s *Session) settle(to State, text string, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return false
	}
	s.state = to
	s.err = err
	if to == Completed {
		s.text = text
	}
	return true
}

func (s *Session) finish(to State, text string, err error) (string, error) {
	won := s.settle(to, text, err)
	text, err = s.result()
	if won {
		switch to {
		case Completed:
			s.log.Debug("session completed", slog.Int("length", len(text)))
		case Failed:
			s.log.Warn("session failed", slog.String("kind", provider.Kind(err)), slogx.Error(err))
		}
	}
	return text, err
}

func (s *Session) result() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, s.err
}

func (s *Session) interrupted(ctx context.Context) (string, error) {
	cause := context.Cause(ctx)
	if errors.Is(cause, context.DeadlineExceeded) {
		return s.finish(Failed, "", &provider.StreamTransportError{Err: cause})
	}
	return s.finish(Cancelled, "", provider.ErrCancelled)
}

// closed handles a provider channel that closed without a terminal event.
func (s *Session) closed(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return s.interrupted(ctx)
	}
	return s.finish(Failed, "", &provider.StreamTransportError{Err: io.ErrUnexpectedEOF})
}
