package mqtt

// Client is the messaging surface of a live simulation run: power samples
// arrive on subscriptions and step results are published back to the
// broker.
type Client interface {
	// Publish sends the payload to the given topic.
	Publish(topic string, payload []byte) error
	// Subscribe registers a handler for messages on the given topic. The
	// subscription survives reconnects.
	Subscribe(topic string, handler func(topic string, payload []byte)) error
	// Disconnect gracefully closes the connection.
	Disconnect()
}
