package broker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/relay/events"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokerFactory is a function that creates a new broker instance for testing
type brokerFactory func(t *testing.T) Broker

// acceptanceTest represents a single acceptance test case
type acceptanceTest struct {
	name string
	test func(t *testing.T, createBroker brokerFactory)
}

// runAcceptanceTests runs all acceptance tests against a broker implementation
func runAcceptanceTests(t *testing.T, name string, factory brokerFactory) {
	tests := []acceptanceTest{
		{"creates unique topics", testUniqueTopics},
		{"reuses existing topics", testReuseTopics},
		{"publishes events to all subscribers", testPublishToAllSubscribers},
		{"handles subscription lifecycle", testSubscriptionLifecycle},
		{"handles context cancellation", testContextCancellation},
		{"handles concurrent operations", testConcurrentOperations},
		{"validates hook requirement", testHookValidation},
		{"handles slow subscribers", testSlowSubscribers},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", name, tt.name), func(t *testing.T) {
			tt.test(t, factory)
		})
	}
}

func TestBrokerImplementations(t *testing.T) {
	t.Run("Local", func(t *testing.T) {
		runAcceptanceTests(t, "Local", func(t *testing.T) Broker {
			return Local()
		})
	})

	t.Run("NATS", func(t *testing.T) {
		conn, err := nats.Connect(nats.DefaultURL)
		if err != nil {
			t.Skipf("nats server not available: %v", err)
		}
		conn.Close()

		runAcceptanceTests(t, "NATS", func(t *testing.T) Broker {
			nc, err := nats.Connect(nats.DefaultURL)
			require.NoError(t, err)
			t.Cleanup(func() { nc.Close() })
			return NATS(nc)
		})
	})
}

type recordingHook struct {
	mu     sync.Mutex
	events []events.Event
	topics []string
	wg     *sync.WaitGroup
	delay  time.Duration
}

func newRecordingHook() *recordingHook {
	return &recordingHook{}
}

func (h *recordingHook) OnEvent(_ context.Context, topic string, ev events.Event) {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.topics = append(h.topics, topic)
	h.mu.Unlock()
	if h.wg != nil {
		h.wg.Done()
	}
}

func (h *recordingHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

// uniqueTopic keeps NATS subjects of parallel runs apart.
func uniqueTopic(t *testing.T) string {
	return fmt.Sprintf("relay.test.%d", time.Now().UnixNano())
}

func testUniqueTopics(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic1 := broker.Topic(context.Background(), "test1")
	topic2 := broker.Topic(context.Background(), "test2")
	assert.NotEqual(t, topic1, topic2)
}

func testReuseTopics(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic1 := broker.Topic(context.Background(), "test")
	topic2 := broker.Topic(context.Background(), "test")
	assert.Same(t, topic1, topic2)
}

func testPublishToAllSubscribers(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	name := uniqueTopic(t)
	topic := broker.Topic(context.Background(), name)

	var wg sync.WaitGroup
	recorder1 := newRecordingHook()
	recorder2 := newRecordingHook()
	wg.Add(6) // 2 recorders * 3 events
	recorder1.wg = &wg
	recorder2.wg = &wg

	ctx := context.Background()
	sub1, err := topic.Subscribe(ctx, recorder1)
	require.NoError(t, err)
	sub2, err := topic.Subscribe(ctx, recorder2)
	require.NoError(t, err)
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()
	assert.NotEqual(t, sub1.ID(), sub2.ID())
	time.Sleep(50 * time.Millisecond)

	published := []events.Event{
		events.Message{MessageID: "m1", ConversationID: "c1", Sender: "ThriveCoach", Model: "gpt-4o"},
		events.Text{MessageID: "m1", Text: "Hel"},
		events.Done{},
	}
	for _, ev := range published {
		require.NoError(t, topic.Publish(ctx, ev))
	}

	wg.Wait()
	for _, recorder := range []*recordingHook{recorder1, recorder2} {
		recorder.mu.Lock()
		assert.Equal(t, published, recorder.events)
		assert.Equal(t, []string{name, name, name}, recorder.topics)
		recorder.mu.Unlock()
	}
}

func testSubscriptionLifecycle(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic := broker.Topic(context.Background(), uniqueTopic(t))

	ctx := context.Background()
	recorder := newRecordingHook()
	sub, err := topic.Subscribe(ctx, recorder)
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, topic.Publish(ctx, events.Text{Text: "late"}))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, recorder.count())
}

func testContextCancellation(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic := broker.Topic(context.Background(), uniqueTopic(t))

	ctx, cancel := context.WithCancel(context.Background())
	recorder := newRecordingHook()
	sub, err := topic.Subscribe(ctx, recorder)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	cancel()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, topic.Publish(context.Background(), events.Text{Text: "late"}))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, recorder.count())
}

func testConcurrentOperations(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic := broker.Topic(context.Background(), uniqueTopic(t))
	ctx := context.Background()

	const numSubscribers = 10
	const numEvents = 100
	recorders := make([]*recordingHook, numSubscribers)
	subs := make([]Subscription, numSubscribers)
	var processWg sync.WaitGroup
	processWg.Add(numSubscribers * numEvents)

	for i := range numSubscribers {
		recorders[i] = newRecordingHook()
		recorders[i].wg = &processWg
		sub, err := topic.Subscribe(ctx, recorders[i])
		require.NoError(t, err)
		subs[i] = sub
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()
	time.Sleep(50 * time.Millisecond)

	var publishWg sync.WaitGroup
	publishWg.Add(numEvents)
	for i := range numEvents {
		go func(i int) {
			defer publishWg.Done()
			assert.NoError(t, topic.Publish(ctx, events.Text{MessageID: "m1", Text: fmt.Sprintf("chunk-%d", i)}))
		}(i)
	}

	publishWg.Wait()
	processWg.Wait()

	for _, recorder := range recorders {
		assert.Equal(t, numEvents, recorder.count())
	}
}

func testHookValidation(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic := broker.Topic(context.Background(), "test")

	_, err := topic.Subscribe(context.Background(), nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "hook is required")
}

func testSlowSubscribers(t *testing.T, createBroker brokerFactory) {
	broker := createBroker(t)
	topic := broker.Topic(context.Background(), uniqueTopic(t))
	ctx := context.Background()

	recorder := newRecordingHook()
	recorder.delay = 200 * time.Millisecond
	sub, err := topic.Subscribe(ctx, recorder)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	const numEvents = 10
	for i := range numEvents {
		require.NoError(t, topic.Publish(ctx, events.Text{Text: fmt.Sprintf("chunk-%d", i)}))
	}

	time.Sleep(500 * time.Millisecond)
	assert.Less(t, recorder.count(), numEvents)
}
