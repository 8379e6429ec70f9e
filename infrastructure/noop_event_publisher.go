package infrastructure

import (
	"drawpool/domain/events"

	log "github.com/sirupsen/logrus"
)

// NoopEventPublisher is an event publisher that does nothing. It backs operator
// commands and deployments with NATS disabled.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish does nothing with the event
func (n *NoopEventPublisher) Publish(event events.Event) error {
	log.WithField("eventType", event.Type()).Debug("Dropping event, no bus configured")
	return nil
}
