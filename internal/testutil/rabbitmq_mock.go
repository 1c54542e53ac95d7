package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

// PublishedEvent is an event captured by MockPublisher
type PublishedEvent struct {
	RoutingKey string
	RawJSON    []byte
}

// Decode unmarshals the captured payload into v
func (e PublishedEvent) Decode(t *testing.T, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(e.RawJSON, v); err != nil {
		t.Fatalf("failed to decode %s event: %v", e.RoutingKey, err)
	}
}

// MockPublisher records published events in memory. When Err is set every
// Publish fails with it and nothing is recorded.
type MockPublisher struct {
	mu     sync.RWMutex
	events []PublishedEvent
	calls  int
	Err    error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.Err != nil {
		return m.Err
	}

	raw, err := json.Marshal(eventData)
	if err != nil {
		return err
	}
	m.events = append(m.events, PublishedEvent{RoutingKey: routingKey, RawJSON: raw})
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// Calls returns how many times Publish was invoked, failed calls included
func (m *MockPublisher) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// GetEventsByKey returns all events with the specified routing key
func (m *MockPublisher) GetEventsByKey(routingKey string) []PublishedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []PublishedEvent
	for _, event := range m.events {
		if event.RoutingKey == routingKey {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// GetEventCount returns the total number of events published
func (m *MockPublisher) GetEventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// AssertEventCount asserts the exact number of events with the given routing key
func (m *MockPublisher) AssertEventCount(t *testing.T, routingKey string, expected int) {
	t.Helper()

	if count := len(m.GetEventsByKey(routingKey)); count != expected {
		t.Errorf("Expected %d events with routing key '%s', got %d", expected, routingKey, count)
	}
}

// LastEventByKey returns the most recent event with the given routing key
func (m *MockPublisher) LastEventByKey(t *testing.T, routingKey string) PublishedEvent {
	t.Helper()

	events := m.GetEventsByKey(routingKey)
	if len(events) == 0 {
		t.Fatalf("Expected event with routing key '%s' to be published, but found none", routingKey)
	}
	return events[len(events)-1]
}
