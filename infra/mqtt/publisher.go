package mqtt

import (
	"encoding/json"
	"sync"

	"github.com/microgrid-lab/mgsim/core/metrics"
	"github.com/microgrid-lab/mgsim/core/microgrid"
	coremqtt "github.com/microgrid-lab/mgsim/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// ResultPublisher pushes the outcomes of a live run to the broker.
type ResultPublisher struct {
	client Client
	topic  string
}

// NewResultPublisher creates a publisher writing to the given topic.
func NewResultPublisher(client Client, topic string) *ResultPublisher {
	return &ResultPublisher{client: client, topic: topic}
}

// PublishStep sends the step outcome as JSON.
func (p *ResultPublisher) PublishStep(out microgrid.StepOutcome) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return p.client.Publish(p.topic, payload)
}

// RecordStep sends the flat step event as JSON. It makes the publisher a
// metrics sink, so a step collector can feed it from an event bus.
func (p *ResultPublisher) RecordStep(ev metrics.StepEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(p.topic, payload)
}

// MockClient is an in-process broker substitute used in tests. Published
// payloads are recorded and delivered to matching subscribers.
type MockClient struct {
	mu       sync.Mutex
	Messages map[string][][]byte
	handlers map[string]func(topic string, payload []byte)
}

// NewMockClient creates an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		Messages: make(map[string][][]byte),
		handlers: make(map[string]func(string, []byte)),
	}
}

// Publish records the payload and delivers it to a matching subscriber.
func (m *MockClient) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	m.Messages[topic] = append(m.Messages[topic], payload)
	h := m.handlers[topic]
	m.mu.Unlock()
	if h != nil {
		h(topic, payload)
	}
	return nil
}

// Subscribe registers the handler for the topic.
func (m *MockClient) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	m.handlers[topic] = handler
	m.mu.Unlock()
	return nil
}

// Disconnect is a no-op.
func (m *MockClient) Disconnect() {}
