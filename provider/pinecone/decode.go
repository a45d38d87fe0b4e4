package pinecone

import (
	"errors"

	"github.com/casualjim/relay/provider"
	"github.com/tidwall/gjson"
)

// doneSentinel is the data value that terminates an upstream event stream.
const doneSentinel = "[DONE]"

// answerFields is the priority list used to find the answer in a non-streaming
// response. The first non-empty string wins.
var answerFields = [...]string{
	"message",
	"message.content",
	"content",
	"choices.0.message.content",
}

var (
	errInvalidJSON = errors.New("payload is not valid json")
	errNotAnObject = errors.New("payload is not a json object")
)

type shape uint8

const (
	shapeUnknown shape = iota
	shapeChoiceDelta
	shapeContent
	shapeMessage
)

func (s shape) String() string {
	switch s {
	case shapeChoiceDelta:
		return "choice_delta"
	case shapeContent:
		return "content"
	case shapeMessage:
		return "message"
	default:
		return "unknown"
	}
}

// chunkShape is one structural predicate over a streaming payload. Predicates are
// evaluated in order and the first match decides how the payload is read.
type chunkShape struct {
	shape shape
	match func(gjson.Result) bool
	path  string
	mode  provider.DeltaMode
}

var chunkShapes = [...]chunkShape{
	{
		shape: shapeChoiceDelta,
		match: func(r gjson.Result) bool { return r.Get("choices.0").IsObject() },
		path:  "choices.0.delta.content",
		mode:  provider.Append,
	},
	{
		shape: shapeContent,
		match: func(r gjson.Result) bool { return isText(r.Get("content")) },
		path:  "content",
		mode:  provider.Append,
	},
	{
		shape: shapeMessage,
		match: func(r gjson.Result) bool { return isText(r.Get("message")) },
		path:  "message",
		mode:  provider.Replace,
	},
}

// chunk is a classified streaming payload. An empty text with a known shape (a
// role-only OpenAI delta for example) is valid and produces no event.
type chunk struct {
	shape shape
	text  string
	mode  provider.DeltaMode
	id    string
}

func isText(r gjson.Result) bool {
	return r.Type == gjson.String && r.Str != ""
}

func decodeChunk(data []byte) (chunk, error) {
	if !gjson.ValidBytes(data) {
		return chunk{}, &provider.MalformedEventError{Data: data, Err: errInvalidJSON}
	}
	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		return chunk{}, &provider.MalformedEventError{Data: data, Err: errNotAnObject}
	}

	id := r.Get("id").String()
	for _, cs := range chunkShapes {
		if !cs.match(r) {
			continue
		}
		c := chunk{shape: cs.shape, mode: cs.mode, id: id}
		if v := r.Get(cs.path); v.Type == gjson.String {
			c.text = v.Str
		}
		return c, nil
	}
	return chunk{shape: shapeUnknown, id: id}, &provider.MalformedEventError{Data: data}
}

// extractAnswer reads the answer of a non-streaming response. A body without any
// recognized field yields an empty answer.
func extractAnswer(body []byte) (text string, id string, err error) {
	if !gjson.ValidBytes(body) {
		return "", "", errInvalidJSON
	}
	r := gjson.ParseBytes(body)
	id = r.Get("id").String()
	for _, path := range answerFields {
		if v := r.Get(path); isText(v) {
			return v.Str, id, nil
		}
	}
	return "", id, nil
}
