package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/microgrid-lab/mgsim/core/model"
	coremqtt "github.com/microgrid-lab/mgsim/core/mqtt"
	"github.com/microgrid-lab/mgsim/infra/logger"
)

// MQTTSource receives live samples pushed over MQTT. Samples are
// JSON-decoded and buffered; when the buffer is full the incoming
// sample is dropped.
type MQTTSource struct {
	client coremqtt.Client
	topic  string
	ch     chan model.PowerSample
	done   chan struct{}
	once   sync.Once
	log    logger.Logger
}

// NewMQTTSource subscribes to the sample topic and starts buffering.
func NewMQTTSource(client coremqtt.Client, topic string, buffer int) (*MQTTSource, error) {
	if client == nil {
		return nil, fmt.Errorf("mqtt source: client required")
	}
	if topic == "" {
		return nil, fmt.Errorf("mqtt source: topic required")
	}
	if buffer <= 0 {
		buffer = 64
	}
	s := &MQTTSource{
		client: client,
		topic:  topic,
		ch:     make(chan model.PowerSample, buffer),
		done:   make(chan struct{}),
		log:    logger.New("mqtt-source"),
	}
	if err := client.Subscribe(topic, s.onSample); err != nil {
		return nil, fmt.Errorf("mqtt source: subscribing %s: %w", topic, err)
	}
	return s, nil
}

func (s *MQTTSource) onSample(topic string, payload []byte) {
	var sample model.PowerSample
	if err := json.Unmarshal(payload, &sample); err != nil {
		s.log.Warnf("dropping malformed sample on %s: %v", topic, err)
		return
	}
	select {
	case s.ch <- sample:
	default:
		s.log.Warnf("sample buffer full, dropping sample")
	}
}

// Next blocks until a sample arrives, the source is closed or the
// context ends. A closed source reports io.EOF.
func (s *MQTTSource) Next(ctx context.Context) (model.PowerSample, error) {
	select {
	case sample := <-s.ch:
		return sample, nil
	default:
	}
	select {
	case <-ctx.Done():
		return model.PowerSample{}, ctx.Err()
	case <-s.done:
		return model.PowerSample{}, io.EOF
	case sample := <-s.ch:
		return sample, nil
	}
}

// Close stops the feed. Pending Next calls return io.EOF once the
// buffer is drained.
func (s *MQTTSource) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
