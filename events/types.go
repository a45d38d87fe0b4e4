package events

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	NameMessage = "message"
	NameText    = "text"
	NameError   = "error"
	NameDone    = "done"
)

// DoneData is the payload of the Done event.
const DoneData = "[DONE]"

// FinishReasonStop marks the closing Message of a successful exchange.
const FinishReasonStop = "stop"

// ErrorTypeAPI is the generic error type exposed to downstream callers.
const ErrorTypeAPI = "api_error"

var errWrongShape = errors.New("payload has the wrong shape")

// Event is a downstream relay event.
type Event interface {
	Name() string
	MarshalJSON() ([]byte, error)
	event()
}

// Message opens an exchange with empty text and closes it with the full answer and a
// finish reason.
type Message struct {
	MessageID       string
	ConversationID  string
	ParentMessageID string
	Text            string
	Sender          string
	Model           string
	IsCreatedByUser bool
	FinishReason    string
}

func (Message) event()       {}
func (Message) Name() string { return NameMessage }

// Final reports whether m closes the exchange.
func (m Message) Final() bool { return m.FinishReason != "" }

func (m Message) MarshalJSON() ([]byte, error) {
	result := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err != nil {
			return
		}
		result, err = sjson.SetBytes(result, path, value)
	}

	set("messageId", m.MessageID)
	if m.ConversationID != "" {
		set("conversationId", m.ConversationID)
	}
	set("text", m.Text)
	set("sender", m.Sender)
	set("isCreatedByUser", m.IsCreatedByUser)
	if m.ParentMessageID != "" {
		set("parentMessageId", m.ParentMessageID)
	}
	set("model", m.Model)
	if m.FinishReason != "" {
		set("finish_reason", m.FinishReason)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Message) UnmarshalJSON(data []byte) error {
	r, err := parseObject(data)
	if err != nil {
		return err
	}
	*m = Message{
		MessageID:       r.Get("messageId").String(),
		ConversationID:  r.Get("conversationId").String(),
		ParentMessageID: r.Get("parentMessageId").String(),
		Text:            r.Get("text").String(),
		Sender:          r.Get("sender").String(),
		Model:           r.Get("model").String(),
		IsCreatedByUser: r.Get("isCreatedByUser").Bool(),
		FinishReason:    r.Get("finish_reason").String(),
	}
	return nil
}

// Text carries the cumulative answer so far.
type Text struct {
	MessageID string
	Text      string
}

func (Text) event()       {}
func (Text) Name() string { return NameText }

func (t Text) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes([]byte(`{}`), "text", t.Text)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "messageId", t.MessageID)
}

func (t *Text) UnmarshalJSON(data []byte) error {
	r, err := parseObject(data)
	if err != nil {
		return err
	}
	*t = Text{
		MessageID: r.Get("messageId").String(),
		Text:      r.Get("text").String(),
	}
	return nil
}

// ErrorDetails is internal diagnostic data, only attached in debug mode.
type ErrorDetails struct {
	ErrorName    string
	ErrorMessage string
	Endpoint     string
}

// Error terminates an exchange. No Done follows it.
type Error struct {
	Message string
	Type    string
	Details *ErrorDetails
}

func (Error) event()       {}
func (Error) Name() string { return NameError }

func (e Error) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes([]byte(`{}`), "message", e.Message)
	if err != nil {
		return nil, err
	}
	typ := e.Type
	if typ == "" {
		typ = ErrorTypeAPI
	}
	if result, err = sjson.SetBytes(result, "type", typ); err != nil {
		return nil, err
	}
	if e.Details == nil {
		return result, nil
	}
	details := map[string]string{
		"errorName":    e.Details.ErrorName,
		"errorMessage": e.Details.ErrorMessage,
	}
	if e.Details.Endpoint != "" {
		details["endpoint"] = e.Details.Endpoint
	}
	return sjson.SetBytes(result, "details", details)
}

func (e *Error) UnmarshalJSON(data []byte) error {
	r, err := parseObject(data)
	if err != nil {
		return err
	}
	*e = Error{
		Message: r.Get("message").String(),
		Type:    r.Get("type").String(),
	}
	if d := r.Get("details"); d.IsObject() {
		e.Details = &ErrorDetails{
			ErrorName:    d.Get("errorName").String(),
			ErrorMessage: d.Get("errorMessage").String(),
			Endpoint:     d.Get("endpoint").String(),
		}
	}
	return nil
}

// Done marks the end of a successful exchange.
type Done struct{}

func (Done) event()       {}
func (Done) Name() string { return NameDone }

func (Done) MarshalJSON() ([]byte, error) {
	return []byte(`"` + DoneData + `"`), nil
}

func (d *Done) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	if r.Type != gjson.String || r.Str != DoneData {
		return fmt.Errorf("done event: %w", errWrongShape)
	}
	return nil
}

func parseObject(data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("invalid json: %w", errWrongShape)
	}
	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		return gjson.Result{}, fmt.Errorf("expected an object: %w", errWrongShape)
	}
	return r, nil
}
