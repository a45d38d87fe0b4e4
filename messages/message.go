package messages

import (
	"errors"
	"slices"
)

// ErrNoMessages is returned by Validate when a request carries no messages.
var ErrNoMessages = errors.New("messages are required for chat completion")

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry of a conversation.
type Message struct {
	Role    Role           `json:"role"`
	Content ContentOrParts `json:"content"`
}

// User creates a user message with plain text content.
func User(text string) Message {
	return Message{Role: RoleUser, Content: ContentOrParts{Content: text}}
}

// Assistant creates an assistant message with plain text content.
func Assistant(text string) Message {
	return Message{Role: RoleAssistant, Content: ContentOrParts{Content: text}}
}

// ChatRequest is the input of one exchange.
type ChatRequest struct {
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Model    string         `json:"model,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// NewRequest copies msgs so that later changes by the caller do not leak into the request.
func NewRequest(stream bool, msgs ...Message) ChatRequest {
	return ChatRequest{Messages: slices.Clone(msgs), Stream: stream}
}

// Validate checks the request preconditions for a chat completion.
func (r ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return ErrNoMessages
	}
	return nil
}

// Latest returns the last message of the request.
func (r ChatRequest) Latest() (Message, bool) {
	if len(r.Messages) == 0 {
		return Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}

// LatestText returns the flattened text of the last message, or "" for an empty request.
func (r ChatRequest) LatestText() string {
	msg, ok := r.Latest()
	if !ok {
		return ""
	}
	return msg.Content.Text()
}
