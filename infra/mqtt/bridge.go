package mqtt

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/harborops/berthd/core/events"
	corelogger "github.com/harborops/berthd/core/logger"
	"github.com/harborops/berthd/infra/logger"
	"github.com/harborops/berthd/internal/eventbus"
)

// Bridge forwards engine events from the internal bus to broker topics so
// terminal operators and external systems can subscribe to schedule changes
// and conflict alerts.
type Bridge struct {
	pub    Publisher
	topics TopicsConfig
	bus    eventbus.EventBus
	log    corelogger.Logger
}

// NewBridge wires a publisher to the event bus.
func NewBridge(pub Publisher, topics TopicsConfig, bus eventbus.EventBus) *Bridge {
	return &Bridge{pub: pub, topics: topics, bus: bus, log: logger.New("mqtt_bridge")}
}

// Run consumes bus events until the context is canceled. Payloads are JSON
// encodings of the event structs; events without a configured topic are
// dropped.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.bus.Subscribe()
	defer b.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			b.forward(e)
		}
	}
}

func (b *Bridge) forward(e eventbus.Event) {
	var topic string
	switch e.(type) {
	case events.ConflictEvent:
		topic = b.topics.Conflicts
	case events.ReoptEvent:
		topic = b.topics.Reopt
	case events.CommitEvent:
		topic = b.topics.Commits
	case events.SuggestionEvent:
		topic = b.topics.Suggestions
	case events.LifecycleEvent:
		topic = b.topics.Lifecycle
	}
	if topic == "" {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		b.log.Errorf("encode event: %v", err)
		return
	}
	if err := b.pub.Publish(topic, payload); err != nil {
		b.log.Errorf("forward to %s: %v", topic, err)
	}
}

// MockPublisher records published payloads per topic, for tests.
type MockPublisher struct {
	mu       sync.Mutex
	Messages map[string][][]byte
	closed   bool
}

// NewMockPublisher creates an empty MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Messages: make(map[string][][]byte)}
}

func (m *MockPublisher) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages[topic] = append(m.Messages[topic], append([]byte(nil), payload...))
	return nil
}

func (m *MockPublisher) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Published returns the payloads seen on a topic.
func (m *MockPublisher) Published(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.Messages[topic]...)
}
