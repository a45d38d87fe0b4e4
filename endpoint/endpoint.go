// Package endpoint builds the per-request endpoint options from a chat request body.
package endpoint

import (
	"errors"
	"fmt"

	"github.com/casualjim/relay/messages"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	DefaultModel       = "thrive-coach"
	DefaultTemperature = 0.7
	DefaultTopP        = 1.0
	DefaultMaxTokens   = 2000
	DefaultStream      = true
)

// PineconeAssistant is the custom endpoint name that routes to the assistant relay.
const PineconeAssistant = "Pinecone Assistant"

var ErrInvalidBody = errors.New("request body must be a json object")

// extracted keys never end up in the free-form option bag
var extracted = map[string]struct{}{
	"model":       {},
	"temperature": {},
	"top_p":       {},
	"max_tokens":  {},
	"stream":      {},
	"messages":    {},
}

// Options are the endpoint options of one request.
type Options struct {
	Endpoint    string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int64
	Stream      bool
	Messages    []messages.Message

	// ModelOptions holds the model parameters followed by every other top-level key
	// of the body, in body order.
	ModelOptions *orderedmap.OrderedMap[string, any]

	// Overrides of the upstream configuration. The upstream URL always comes from
	// configuration so a caller supplied key is only ever sent to the configured host.
	APIKey        string
	AssistantName string
}

// Build extracts the endpoint options from body and applies the defaults.
func Build(endpoint string, body []byte) (Options, error) {
	if !gjson.ValidBytes(body) {
		return Options{}, ErrInvalidBody
	}
	r := gjson.ParseBytes(body)
	if !r.IsObject() {
		return Options{}, ErrInvalidBody
	}

	o := Options{
		Endpoint:      endpoint,
		Model:         DefaultModel,
		Temperature:   DefaultTemperature,
		TopP:          DefaultTopP,
		MaxTokens:     DefaultMaxTokens,
		Stream:        DefaultStream,
		APIKey:        r.Get("apiKey").String(),
		AssistantName: r.Get("customEndpoint.assistantName").String(),
	}
	if v := r.Get("model"); v.Type == gjson.String && v.Str != "" {
		o.Model = v.Str
	}
	if v := r.Get("temperature"); present(v) {
		o.Temperature = v.Float()
	}
	if v := r.Get("top_p"); present(v) {
		o.TopP = v.Float()
	}
	if v := r.Get("max_tokens"); present(v) {
		o.MaxTokens = v.Int()
	}
	if v := r.Get("stream"); present(v) {
		o.Stream = v.Bool()
	}
	if v := r.Get("messages"); present(v) {
		if err := json.Unmarshal([]byte(v.Raw), &o.Messages); err != nil {
			return Options{}, fmt.Errorf("decode messages: %w", err)
		}
	}

	o.ModelOptions = orderedmap.New[string, any]()
	o.ModelOptions.Set("model", o.Model)
	o.ModelOptions.Set("temperature", o.Temperature)
	o.ModelOptions.Set("top_p", o.TopP)
	o.ModelOptions.Set("max_tokens", o.MaxTokens)
	r.ForEach(func(key, value gjson.Result) bool {
		if _, skip := extracted[key.Str]; !skip {
			o.ModelOptions.Set(key.Str, value.Value())
		}
		return true
	})
	return o, nil
}

func present(v gjson.Result) bool {
	return v.Exists() && v.Type != gjson.Null
}

// Request builds the chat request described by the options.
func (o Options) Request() messages.ChatRequest {
	req := messages.NewRequest(o.Stream, o.Messages...)
	req.Options = make(map[string]any, o.ModelOptions.Len())
	for pair := o.ModelOptions.Oldest(); pair != nil; pair = pair.Next() {
		req.Options[pair.Key] = pair.Value
	}
	return req
}

// RoutesToAssistant reports whether a custom endpoint request is served by the
// assistant relay.
func (o Options) RoutesToAssistant(assistantName string) bool {
	return o.Endpoint == PineconeAssistant || (o.AssistantName != "" && o.AssistantName == assistantName)
}
