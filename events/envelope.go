package events

import (
	"fmt"

	"github.com/tidwall/sjson"
)

// ToJSON wraps ev into {"event":<name>,"data":<payload>}.
func ToJSON(ev Event) ([]byte, error) {
	data, err := ev.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.Name(), err)
	}
	result, err := sjson.SetBytes([]byte(`{}`), "event", ev.Name())
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(result, "data", data)
}

// FromJSON reads an envelope produced by ToJSON.
func FromJSON(input []byte) (Event, error) {
	r, err := parseObject(input)
	if err != nil {
		return nil, err
	}
	name := r.Get("event").String()
	data := r.Get("data")
	if !data.Exists() {
		return nil, fmt.Errorf("%s event without data: %w", name, errWrongShape)
	}
	raw := []byte(data.Raw)

	var ev interface {
		Event
		UnmarshalJSON([]byte) error
	}
	switch name {
	case NameMessage:
		ev = &Message{}
	case NameText:
		ev = &Text{}
	case NameError:
		ev = &Error{}
	case NameDone:
		ev = &Done{}
	default:
		return nil, fmt.Errorf("unknown event %q: %w", name, errWrongShape)
	}
	if err := ev.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return deref(ev), nil
}

func deref(ev Event) Event {
	switch ev := ev.(type) {
	case *Message:
		return *ev
	case *Text:
		return *ev
	case *Error:
		return *ev
	case *Done:
		return *ev
	default:
		return ev
	}
}
