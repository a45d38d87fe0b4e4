package provider

import (
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tidwall/sjson"
)

var (
	startedJSON   = []byte(`{"type":"started"}`)
	deltaJSON     = []byte(`{"type":"delta"}`)
	completedJSON = []byte(`{"type":"completed"}`)
	failedJSON    = []byte(`{"type":"failed"}`)
)

// StreamEvent is the normalized event produced by a provider: one of Started,
// Delta, Completed or Failed.
type StreamEvent interface {
	streamEvent()
}

// DeltaMode says how a Delta combines with the text accumulated so far.
type DeltaMode uint8

const (
	// Append concatenates the delta to the accumulated text.
	Append DeltaMode = iota
	// Replace substitutes the accumulated text with the delta.
	Replace
)

func (m DeltaMode) String() string {
	if m == Replace {
		return "replace"
	}
	return "append"
}

// Apply combines acc with text according to the mode.
func (m DeltaMode) Apply(acc, text string) string {
	if m == Replace {
		return text
	}
	return acc + text
}

// Started is sent once the upstream response has been established.
type Started struct {
	SessionID uuid.UUID       `json:"session_id"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Started) streamEvent() {}

// Delta carries an incremental fragment or, in Replace mode, the entire answer so far.
type Delta struct {
	SessionID uuid.UUID       `json:"session_id"`
	Text      string          `json:"text"`
	Mode      DeltaMode       `json:"mode"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Delta) streamEvent() {}

// Completed carries the full answer text.
type Completed struct {
	SessionID  uuid.UUID       `json:"session_id"`
	Text       string          `json:"text"`
	UpstreamID string          `json:"upstream_id,omitempty"`
	Timestamp  strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Completed) streamEvent() {}

// Failed terminates the exchange with an error.
type Failed struct {
	SessionID uuid.UUID       `json:"session_id"`
	Err       error           `json:"error"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
}

func (Failed) streamEvent() {}

func (f Failed) Error() string {
	if f.Err == nil {
		return "failed"
	}
	return f.Err.Error()
}

func (f Failed) Unwrap() error { return f.Err }

func setHeader(result []byte, id uuid.UUID, ts strfmt.DateTime) ([]byte, error) {
	result, err := sjson.SetBytes(result, "session_id", id.String())
	if err != nil {
		return nil, err
	}
	if !ts.IsZero() {
		return sjson.SetBytes(result, "timestamp", ts.String())
	}
	return result, nil
}

// MarshalJSON implements custom JSON marshaling for Started
func (s Started) MarshalJSON() ([]byte, error) {
	return setHeader(startedJSON, s.SessionID, s.Timestamp)
}

// MarshalJSON implements custom JSON marshaling for Delta
func (d Delta) MarshalJSON() ([]byte, error) {
	result, err := setHeader(deltaJSON, d.SessionID, d.Timestamp)
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "mode", d.Mode.String())
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "text", d.Text)
}

// MarshalJSON implements custom JSON marshaling for Completed
func (c Completed) MarshalJSON() ([]byte, error) {
	result, err := setHeader(completedJSON, c.SessionID, c.Timestamp)
	if err != nil {
		return nil, err
	}
	if c.UpstreamID != "" {
		result, err = sjson.SetBytes(result, "upstream_id", c.UpstreamID)
		if err != nil {
			return nil, err
		}
	}
	return sjson.SetBytes(result, "text", c.Text)
}

// MarshalJSON implements custom JSON marshaling for Failed
func (f Failed) MarshalJSON() ([]byte, error) {
	result, err := setHeader(failedJSON, f.SessionID, f.Timestamp)
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "kind", Kind(f.Err))
	if err != nil {
		return nil, err
	}
	if f.Err != nil {
		return sjson.SetBytes(result, "error", f.Err.Error())
	}
	return result, nil
}
