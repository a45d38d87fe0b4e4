package endpoint

import "github.com/invopop/jsonschema"

// Body documents the edit request body accepted by the relay routes. Build reads
// the body with gjson; this type only feeds the published JSON schema.
type Body struct {
	Endpoint          string        `json:"endpoint,omitempty" jsonschema:"description=custom endpoint name; only used by the custom route"`
	Model             string        `json:"model,omitempty" jsonschema:"default=thrive-coach"`
	Temperature       float64       `json:"temperature,omitempty" jsonschema:"default=0.7,minimum=0,maximum=2"`
	TopP              float64       `json:"top_p,omitempty" jsonschema:"default=1,minimum=0,maximum=1"`
	MaxTokens         int64         `json:"max_tokens,omitempty" jsonschema:"default=2000,minimum=1"`
	Stream            *bool         `json:"stream,omitempty" jsonschema:"default=true"`
	Messages          []BodyMessage `json:"messages"`
	MessageID         string        `json:"messageId,omitempty"`
	ConversationID    string        `json:"conversationId,omitempty"`
	ParentMessageID   string        `json:"parentMessageId,omitempty"`
	IsNewConversation bool          `json:"isNewConversation,omitempty"`
	APIKey            string        `json:"apiKey,omitempty" jsonschema:"description=overrides the configured upstream api key"`
	CustomEndpoint    *struct {
		AssistantName string `json:"assistantName,omitempty"`
	} `json:"customEndpoint,omitempty"`
}

type BodyMessage struct {
	Role    string `json:"role" jsonschema:"enum=user,enum=assistant,enum=system"`
	Content string `json:"content"`
}

var bodyReflector = jsonschema.Reflector{
	AllowAdditionalProperties: true,
	DoNotReference:            true,
}

// Schema returns the JSON schema of Body.
func Schema() *jsonschema.Schema {
	return bodyReflector.Reflect(&Body{})
}
