package registry

import (
	"github.com/alphadose/haxmap"
	"github.com/casualjim/relay/pkg/uuidx"
)

// Canceler stops an in-flight exchange. Cancel must be idempotent.
type Canceler interface {
	Cancel()
}

type trackedExchange struct {
	conversationID string
	canceler       Canceler
}

// Exchanges tracks in-flight exchanges by conversation so an out-of-band abort can
// reach them. Several exchanges may be tracked for the same conversation.
type Exchanges struct {
	entries *haxmap.Map[string, trackedExchange]
}

func NewExchanges() *Exchanges {
	return &Exchanges{entries: haxmap.New[string, trackedExchange]()}
}

// Track registers c under conversationID. The returned func removes the entry and is
// safe to call more than once.
func (e *Exchanges) Track(conversationID string, c Canceler) (untrack func()) {
	token := uuidx.NewString()
	e.entries.Set(token, trackedExchange{conversationID: conversationID, canceler: c})
	return func() { e.entries.Del(token) }
}

// Cancel cancels every exchange tracked for conversationID and reports how many were
// found.
func (e *Exchanges) Cancel(conversationID string) int {
	var found []Canceler
	e.entries.ForEach(func(_ string, x trackedExchange) bool {
		if x.conversationID == conversationID {
			found = append(found, x.canceler)
		}
		return true
	})
	for _, c := range found {
		c.Cancel()
	}
	return len(found)
}

// Len returns the number of tracked exchanges.
func (e *Exchanges) Len() int {
	return int(e.entries.Len())
}
