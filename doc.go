/*
Package relay bridges a chat client protocol to an upstream assistant service.

A Relay runs one Exchange at a time per call: it acknowledges the exchange with an
empty message event, runs a session against the upstream provider, and forwards the
growing answer as text events. A successful exchange ends with a closing message
and a done marker; a failed one ends with a single error event. Cancelled exchanges
end silently.

# Basic Usage

	client, err := session.New(cfg.Upstream)
	if err != nil {
		return err
	}

	r, err := relay.New(client,
		relay.WithSender("ThriveCoach"),
		relay.WithTitles(title.NewGenerator(title.NewMemoryStore(), nil)),
	)
	if err != nil {
		return err
	}

	em := relay.NewChanEmitter(16)
	go func() {
		_ = r.Run(ctx, relay.Exchange{
			Request:        messages.NewRequest(true, messages.User("Hi")),
			ConversationID: "c1",
		}, em)
	}()
	for ev := range em.Events() {
		fmt.Println(ev.Name())
	}

# Architecture

1. Sessions (package session)
  - Own the upstream exchange and its state machine
  - Report the cumulative answer through a progress callback

2. Emitters (emitter.go)
  - Deliver events downstream: server-sent events, channels, brokers
  - Tee fans one exchange out to a primary emitter and best-effort mirrors

3. Hooks (hook.go)
  - Run after a successful exchange has been closed, such as titling a new conversation
*/
package relay
