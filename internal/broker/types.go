package broker

import (
	"context"

	"github.com/casualjim/relay/events"
)

type Broker interface {
	Topic(context.Context, string) Topic
}

type Topic interface {
	Publish(context.Context, events.Event) error
	Subscribe(context.Context, Hook) (Subscription, error)
}

type Subscription interface {
	ID() string
	Unsubscribe()
}

// Hook receives the events delivered to a subscription, in publish order.
type Hook interface {
	OnEvent(ctx context.Context, topic string, ev events.Event)
}

// HookFunc adapts a function to a Hook.
type HookFunc func(ctx context.Context, topic string, ev events.Event)

func (f HookFunc) OnEvent(ctx context.Context, topic string, ev events.Event) {
	f(ctx, topic, ev)
}
