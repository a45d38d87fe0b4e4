// Package title names new conversations after the prompt that started them.
package title

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casualjim/relay/pkg/slogx"
	"github.com/casualjim/relay/session"
)

// MaxRunes is the length after which a title is cut and suffixed with an ellipsis.
const MaxRunes = 50

var ErrMissingConversation = errors.New("conversation id is required")

// Store persists conversation titles.
type Store interface {
	UpdateTitle(ctx context.Context, conversationID, title string) error
}

// Request asks for a title for the conversation started by Text.
type Request struct {
	Text           string
	ConversationID string
	// Client is the session client that served the exchange. The truncating
	// generator does not call it.
	Client *session.Client
}

type Result struct {
	Title string
}

// Generator derives titles from the first prompt of a conversation.
type Generator struct {
	store Store
	log   *slog.Logger
}

func NewGenerator(store Store, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{store: store, log: logger.With(slogx.LoggerName("title"))}
}

// AddTitle computes the title and stores it.
func (g *Generator) AddTitle(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.ConversationID) == "" {
		return Result{}, ErrMissingConversation
	}
	title := Truncate(req.Text)
	if err := g.store.UpdateTitle(ctx, req.ConversationID, title); err != nil {
		return Result{}, fmt.Errorf("update title of %s: %w", req.ConversationID, err)
	}
	g.log.DebugContext(ctx, "conversation titled", slog.String("conversation_id", req.ConversationID), slog.String("title", title))
	return Result{Title: title}, nil
}

// Truncate shortens text to MaxRunes runes followed by "..." when it is longer.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxRunes {
		return text
	}
	return string(runes[:MaxRunes]) + "..."
}
