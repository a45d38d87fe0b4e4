package title

import (
	"context"

	"github.com/casualjim/relay/internal/registry"
)

// MemoryStore keeps titles in process memory.
type MemoryStore struct {
	titles registry.Registry[string]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{titles: registry.New[string]()}
}

func (m *MemoryStore) UpdateTitle(_ context.Context, conversationID, title string) error {
	m.titles.Set(conversationID, title)
	return nil
}

// Title returns the stored title of a conversation.
func (m *MemoryStore) Title(conversationID string) (string, bool) {
	return m.titles.Get(conversationID)
}
