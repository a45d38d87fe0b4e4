package broker

import (
	"context"
	"log/slog"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/relay/events"
	"github.com/casualjim/relay/pkg/slogx"
	"github.com/casualjim/relay/pkg/uuidx"
	"github.com/nats-io/nats.go"
)

type natsBroker struct {
	client *nats.Conn
	topics *haxmap.Map[string, *natsTopic]
}

// NATS publishes every topic on the subject of the same name. Subscribing to a
// wildcard subject such as "relay.exchanges.>" receives all matching topics.
func NATS(client *nats.Conn) Broker {
	return &natsBroker{
		client: client,
		topics: haxmap.New[string, *natsTopic](),
	}
}

func (b *natsBroker) Topic(ctx context.Context, id string) Topic {
	top, _ := b.topics.GetOrCompute(id, func() *natsTopic {
		return &natsTopic{
			subject: id,
			client:  b.client,
		}
	})
	return top
}

type natsTopic struct {
	client  *nats.Conn
	subject string
}

func (t *natsTopic) Publish(ctx context.Context, event events.Event) error {
	eb, err := events.ToJSON(event)
	if err != nil {
		return err
	}
	return t.client.Publish(t.subject, eb)
}

func (t *natsTopic) Subscribe(ctx context.Context, hook Hook) (Subscription, error) {
	if hook == nil {
		return nil, errHookRequired
	}

	type delivery struct {
		subject string
		event   events.Event
	}
	sub := make(chan delivery, 50)
	nsub, err := t.client.Subscribe(t.subject, func(msg *nats.Msg) {
		event, err := events.FromJSON(msg.Data)
		if err != nil {
			slog.Error("failed to unmarshal event", slogx.Error(err), slog.String("subject", msg.Subject))
			return
		}
		select {
		case sub <- delivery{subject: msg.Subject, event: event}:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case d := <-sub:
				hook.OnEvent(ctx, d.subject, d.event)
			case <-ctx.Done():
				return
			}
		}
	}()

	s := &natsSubscription{id: uuidx.NewString(), sub: nsub}
	context.AfterFunc(ctx, s.Unsubscribe)
	return s, nil
}

type natsSubscription struct {
	id  string
	sub *nats.Subscription
}

func (n *natsSubscription) ID() string {
	return n.id
}

func (n *natsSubscription) Unsubscribe() {
	if !n.sub.IsValid() {
		return
	}
	if err := n.sub.Unsubscribe(); err != nil {
		slog.Error("failed to unsubscribe", slogx.Error(err), slog.String("subscription", n.id))
	}
}
