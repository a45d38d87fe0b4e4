package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/relay/config"
	"github.com/casualjim/relay/events"
	"github.com/casualjim/relay/internal/registry"
	"github.com/casualjim/relay/messages"
	"github.com/casualjim/relay/provider"
	"github.com/casualjim/relay/session"
	"github.com/casualjim/relay/title"
	"github.com/fogfish/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
	closed int
	failOn string
}

func (r *recorder) Emit(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn != "" && ev.Name() == r.failOn {
		return errors.New("broken pipe")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, ev := range r.events {
		names[i] = ev.Name()
	}
	return names
}

type recordingTitler struct {
	mu       sync.Mutex
	requests []title.Request
	err      error
}

func (t *recordingTitler) AddTitle(_ context.Context, req title.Request) (title.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
	return title.Result{Title: title.Truncate(req.Text)}, t.err
}

func pineconeClient(t *testing.T, handler http.HandlerFunc) *session.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := session.New(config.Upstream{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func mustNew(t *testing.T, client *session.Client, options ...opts.Option[Relay]) *Relay {
	t.Helper()
	r, err := New(client, options...)
	require.NoError(t, err)
	return r
}

func streamFrames(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			w.(http.Flusher).Flush()
		}
	}
}

func TestRun_StreamingExchange(t *testing.T) {
	client := pineconeClient(t, streamFrames(
		`{"choices":[{"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
		`[DONE]`,
	))
	rec := &recorder{}
	r, err := New(client)
	require.NoError(t, err)

	err = r.Run(context.Background(), Exchange{
		Request:         messages.NewRequest(true, messages.User("Hi")),
		MessageID:       "m1",
		ConversationID:  "c1",
		ParentMessageID: "p1",
	}, rec)
	require.NoError(t, err)

	require.Equal(t, []string{"message", "text", "text", "message", "done"}, rec.names())
	assert.Equal(t, events.Message{
		MessageID:       "m1",
		ConversationID:  "c1",
		ParentMessageID: "p1",
		Sender:          config.DefaultSender,
		Model:           config.DefaultModel,
	}, rec.events[0])
	assert.Equal(t, events.Text{MessageID: "m1", Text: "Hel"}, rec.events[1])
	assert.Equal(t, events.Text{MessageID: "m1", Text: "Hello"}, rec.events[2])

	final, ok := rec.events[3].(events.Message)
	require.True(t, ok)
	assert.Equal(t, "Hello", final.Text)
	assert.Equal(t, events.FinishReasonStop, final.FinishReason)
	assert.Equal(t, events.Done{}, rec.events[4])
	assert.Equal(t, 1, rec.closed)
}

func TestRun_NonStreamingUpstreamError(t *testing.T) {
	client := pineconeClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})
	rec := &recorder{}
	titler := &recordingTitler{}
	r, err := New(client, WithTitles(titler))
	require.NoError(t, err)

	err = r.Run(context.Background(), Exchange{
		Request:           messages.NewRequest(false, messages.User("Hi")),
		ConversationID:    "c1",
		IsNewConversation: true,
	}, rec)
	var upstream *provider.UpstreamError
	require.ErrorAs(t, err, &upstream)

	require.Equal(t, []string{"message", "error"}, rec.names())
	ev, ok := rec.events[1].(events.Error)
	require.True(t, ok)
	assert.Equal(t, "upstream api error: 500 - internal", ev.Message)
	assert.Equal(t, events.ErrorTypeAPI, ev.Type)
	assert.Nil(t, ev.Details)
	assert.Equal(t, 1, rec.closed)
	assert.Empty(t, titler.requests)
}

func TestRun_NonStreamingSingleText(t *testing.T) {
	client := pineconeClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"All good"}`))
	})
	rec := &recorder{}

	require.NoError(t, mustNew(t, client).Run(context.Background(), Exchange{
		Request: messages.NewRequest(false, messages.User("Hi")),
	}, rec))

	require.Equal(t, []string{"message", "text", "message", "done"}, rec.names())
	assert.Equal(t, PrelimMessageID, rec.events[0].(events.Message).MessageID)
	assert.Equal(t, events.Text{MessageID: PrelimMessageID, Text: "All good"}, rec.events[1])
	assert.Equal(t, "All good", rec.events[2].(events.Message).Text)
}

func TestRun_DebugDetails(t *testing.T) {
	client := pineconeClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})
	rec := &recorder{}

	err := mustNew(t, client, WithDebug(true)).Run(context.Background(), Exchange{
		Request:  messages.NewRequest(true, messages.User("Hi")),
		Endpoint: "pinecone",
	}, rec)
	require.Error(t, err)

	ev := rec.events[len(rec.events)-1].(events.Error)
	require.NotNil(t, ev.Details)
	assert.Equal(t, "UpstreamError", ev.Details.ErrorName)
	assert.Equal(t, "pinecone", ev.Details.Endpoint)
}

func TestRun_EmptyMessages(t *testing.T) {
	client := pineconeClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be contacted")
	})
	rec := &recorder{}

	err := mustNew(t, client).Run(context.Background(), Exchange{Request: messages.NewRequest(true)}, rec)
	require.ErrorIs(t, err, provider.ErrInvalidRequest)
	assert.Equal(t, []string{"message", "error"}, rec.names())
}

func TestRun_TitleForNewConversation(t *testing.T) {
	client := pineconeClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Sure"}`))
	})
	titler := &recordingTitler{err: errors.New("store down")}
	rec := &recorder{}
	r, err := New(client, WithTitles(titler))
	require.NoError(t, err)

	err = r.Run(context.Background(), Exchange{
		Request:           messages.NewRequest(false, messages.User("first"), messages.Assistant("a"), messages.User("Plan my week")),
		ConversationID:    "c1",
		IsNewConversation: true,
	}, rec)
	require.NoError(t, err)

	require.Len(t, titler.requests, 1)
	assert.Equal(t, "Plan my week", titler.requests[0].Text)
	assert.Equal(t, "c1", titler.requests[0].ConversationID)
	assert.Same(t, client, titler.requests[0].Client)
	assert.Equal(t, "done", rec.names()[len(rec.names())-1])
	assert.Equal(t, 1, rec.closed)

	require.NoError(t, r.Run(context.Background(), Exchange{
		Request:        messages.NewRequest(false, messages.User("again")),
		ConversationID: "c1",
	}, &recorder{}))
	assert.Len(t, titler.requests, 1)
}

type titlerFunc func(context.Context, title.Request) (title.Result, error)

func (f titlerFunc) AddTitle(ctx context.Context, req title.Request) (title.Result, error) {
	return f(ctx, req)
}

func TestRun_TitleAfterStreamClosed(t *testing.T) {
	client := pineconeClient(t, streamFrames(`{"content":"ok"}`, `[DONE]`))

	t.Run("emitter closed before the hook", func(t *testing.T) {
		rec := &recorder{}
		closedDuringTitle := -1
		r := mustNew(t, client, WithTitles(titlerFunc(func(_ context.Context, req title.Request) (title.Result, error) {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			closedDuringTitle = rec.closed
			return title.Result{Title: req.Text}, nil
		})))

		require.NoError(t, r.Run(context.Background(), Exchange{
			Request:           messages.NewRequest(true, messages.User("Hi")),
			ConversationID:    "c1",
			IsNewConversation: true,
		}, rec))
		assert.Equal(t, 1, closedDuringTitle)
		assert.Equal(t, 1, rec.closed)
	})

	t.Run("channel consumers see the end before the hook", func(t *testing.T) {
		em := NewChanEmitter(8)
		var drained []string
		var sawEnd bool
		r := mustNew(t, client, WithTitles(titlerFunc(func(context.Context, title.Request) (title.Result, error) {
			for {
				select {
				case ev, ok := <-em.Events():
					if !ok {
						sawEnd = true
						return title.Result{}, nil
					}
					drained = append(drained, ev.Name())
				default:
					return title.Result{}, nil
				}
			}
		})))

		require.NoError(t, r.Run(context.Background(), Exchange{
			Request:           messages.NewRequest(true, messages.User("Hi")),
			ConversationID:    "c2",
			IsNewConversation: true,
		}, em))
		assert.True(t, sawEnd)
		assert.Equal(t, []string{"message", "text", "message", "done"}, drained)
	})
}

func TestRun_AbortWhileStreaming(t *testing.T) {
	release := make(chan struct{})
	client := pineconeClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":\"partial\"}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	exchanges := registry.NewExchanges()
	r, err := New(client, WithExchanges(exchanges))
	require.NoError(t, err)
	em := NewChanEmitter(8)

	done := make(chan error, 1)
	go func() {
		done <- r.Run(context.Background(), Exchange{
			Request:        messages.NewRequest(true, messages.User("Hi")),
			ConversationID: "c1",
		}, em)
	}()

	var names []string
	for ev := range em.Events() {
		names = append(names, ev.Name())
		if ev.Name() == events.NameText {
			assert.Equal(t, 1, r.Abort("c1"))
		}
	}

	select {
	case err := <-done:
		require.ErrorIs(t, err, provider.ErrCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not settle after abort")
	}
	assert.Equal(t, []string{"message", "text"}, names)
	assert.Zero(t, exchanges.Len())
	assert.Zero(t, r.Abort("c1"))
}

func TestRun_DownstreamGone(t *testing.T) {
	client := pineconeClient(t, streamFrames(`{"content":"a"}`, `{"content":"b"}`, `[DONE]`))
	rec := &recorder{failOn: events.NameText}

	err := mustNew(t, client).Run(context.Background(), Exchange{
		Request: messages.NewRequest(true, messages.User("Hi")),
	}, rec)
	require.EqualError(t, err, "broken pipe")
	assert.Equal(t, []string{"message"}, rec.names())
	assert.Equal(t, 1, rec.closed)
}

func TestTee(t *testing.T) {
	primary, mirror := &recorder{}, &recorder{failOn: events.NameDone}
	em := Tee(primary, mirror)

	ctx := context.Background()
	require.NoError(t, em.Emit(ctx, events.Text{Text: "a"}))
	require.NoError(t, em.Emit(ctx, events.Done{}))
	require.NoError(t, em.Close())

	assert.Equal(t, []string{"text", "done"}, primary.names())
	assert.Equal(t, []string{"text"}, mirror.names())
	assert.Equal(t, 1, primary.closed)
	assert.Equal(t, 1, mirror.closed)

	failing := &recorder{failOn: events.NameText}
	require.Error(t, Tee(failing, mirror).Emit(ctx, events.Text{}))
	assert.Same(t, primary, Tee(primary))
}

func TestChanEmitter(t *testing.T) {
	em := NewChanEmitter(1)
	require.NoError(t, em.Emit(context.Background(), events.Done{}))
	require.NoError(t, em.Close())
	require.NoError(t, em.Close())
	require.ErrorIs(t, em.Emit(context.Background(), events.Done{}), ErrEmitterClosed)

	ev, ok := <-em.Events()
	require.True(t, ok)
	assert.Equal(t, events.Done{}, ev)
	_, ok = <-em.Events()
	assert.False(t, ok)
}

func TestReject(t *testing.T) {
	rec := &recorder{}
	err := Reject(context.Background(), Exchange{ConversationID: "c1", Endpoint: "pinecone"}, rec, provider.ErrMissingCredential, true)
	require.NoError(t, err)

	require.Equal(t, []string{"message", "error"}, rec.names())
	assert.Equal(t, PrelimMessageID, rec.events[0].(events.Message).MessageID)
	ev := rec.events[1].(events.Error)
	assert.Equal(t, "api key is required", ev.Message)
	require.NotNil(t, ev.Details)
	assert.Equal(t, "MissingCredentialError", ev.Details.ErrorName)
	assert.Equal(t, 1, rec.closed)
}
