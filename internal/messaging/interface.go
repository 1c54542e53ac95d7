package messaging

import "context"

// PublisherInterface defines the contract for event publishing
// This allows for easy mocking in tests
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, eventData interface{}) error
	Close() error
}

// Ensure the publishers implement PublisherInterface
var (
	_ PublisherInterface = (*Publisher)(nil)
	_ PublisherInterface = (*BreakerPublisher)(nil)
	_ PublisherInterface = NopPublisher{}
)

// NopPublisher drops every event. It is used when RabbitMQ is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }

func (NopPublisher) Close() error { return nil }
