package provider

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks empty or malformed input. Upstream is never contacted.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrMissingCredential is returned when no API key can be resolved. Upstream is never contacted.
	ErrMissingCredential = errors.New("api key is required")
	// ErrCancelled marks an exchange that was cancelled explicitly or by its caller's context.
	ErrCancelled = errors.New("request aborted")
)

// UpstreamError is a non-2xx HTTP answer from the upstream assistant service.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream api error: %d - %s", e.Status, e.Body)
}

// StreamTransportError is a connection level failure while an event stream is open.
type StreamTransportError struct {
	Err error
}

func (e *StreamTransportError) Error() string {
	if e.Err == nil {
		return "streaming error: unknown error"
	}
	return "streaming error: " + e.Err.Error()
}

func (e *StreamTransportError) Unwrap() error { return e.Err }

// MalformedEventError describes a single streaming event that could not be interpreted.
// It is only ever logged; the stream continues.
type MalformedEventError struct {
	Data []byte
	Err  error
}

func (e *MalformedEventError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unrecognized event payload: %q", e.Data)
	}
	return fmt.Sprintf("malformed event payload %q: %v", e.Data, e.Err)
}

func (e *MalformedEventError) Unwrap() error { return e.Err }

// IsCancelled reports whether err represents a cancellation rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// Kind returns the taxonomy name of err, used in debug error details.
func Kind(err error) string {
	var (
		upstream  *UpstreamError
		transport *StreamTransportError
		malformed *MalformedEventError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return "InvalidRequestError"
	case errors.Is(err, ErrMissingCredential):
		return "MissingCredentialError"
	case IsCancelled(err):
		return "CancelledError"
	case errors.As(err, &upstream):
		return "UpstreamError"
	case errors.As(err, &transport):
		return "StreamTransportError"
	case errors.As(err, &malformed):
		return "MalformedEventWarning"
	default:
		return "Error"
	}
}
