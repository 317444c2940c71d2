// Package bus fans persisted canonical events out to in-process consumers
// (the widget websocket hub) and, when configured, to Kafka for external
// consumers.
package bus

import (
	"time"

	"github.com/google/uuid"

	"github.com/notiproof/backend/internal/event"
)

// Topic constants for bus messages.
const (
	TopicEventCreated = "events.created"
)

// Message is the envelope published for every persisted canonical event.
type Message struct {
	ID        string               `json:"id"`
	Topic     string               `json:"topic"`
	Provider  string               `json:"provider"`
	WebsiteID string               `json:"website_id,omitempty"`
	Event     event.CanonicalEvent `json:"event"`
	Timestamp time.Time            `json:"timestamp"`
}

// NewEventCreated builds an events.created message for a persisted event.
func NewEventCreated(websiteID string, ev event.CanonicalEvent) Message {
	return Message{
		ID:        uuid.New().String(),
		Topic:     TopicEventCreated,
		Provider:  ev.Provider,
		WebsiteID: websiteID,
		Event:     ev,
		Timestamp: time.Now().UTC(),
	}
}

// Handler is a callback invoked for each message on a subscribed topic.
type Handler func(msg Message)

// Broker publishes and subscribes to event messages. Implementations are
// InMemoryBroker for single-node deployments and KafkaBroker for
// distributed ones.
type Broker interface {
	// Publish sends a message to the given topic. Subscribers receive it
	// asynchronously.
	Publish(topic string, msg Message) error

	// Subscribe registers a handler for every message published to the
	// topic and returns a subscription id.
	Subscribe(topic string, handler Handler) (string, error)

	// Close shuts the broker down. Publish and Subscribe must not be
	// called afterwards.
	Close() error
}
