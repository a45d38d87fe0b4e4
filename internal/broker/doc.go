// Package broker mirrors relay events onto named topics so other processes can
// watch exchanges as they happen.
//
// Two implementations share the same contract: Local keeps topics in process and
// drops slow subscribers, NATS publishes the events as {"event","data"} envelopes on
// a subject per topic.
//
//	b := broker.Local()
//	topic := b.Topic(ctx, "relay.exchanges.c1")
//	sub, err := topic.Subscribe(ctx, broker.HookFunc(func(ctx context.Context, topic string, ev events.Event) {
//		fmt.Println(topic, ev.Name())
//	}))
//	if err != nil {
//		return err
//	}
//	defer sub.Unsubscribe()
//
// Emitter adapts a topic to relay.Emitter so it can be teed next to the primary
// downstream.
package broker
