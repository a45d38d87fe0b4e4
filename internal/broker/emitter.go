package broker

import (
	"context"

	"github.com/casualjim/relay/events"
)

// TopicEmitter publishes relayed events on a topic. Close leaves the topic open.
type TopicEmitter struct {
	topic Topic
}

func Emitter(topic Topic) *TopicEmitter {
	return &TopicEmitter{topic: topic}
}

func (e *TopicEmitter) Emit(ctx context.Context, ev events.Event) error {
	return e.topic.Publish(ctx, ev)
}

func (e *TopicEmitter) Close() error { return nil }

// ExchangeTopic names the topic that mirrors the exchanges of a conversation.
func ExchangeTopic(subject, conversationID string) string {
	if conversationID == "" {
		conversationID = "anonymous"
	}
	return subject + "." + conversationID
}
