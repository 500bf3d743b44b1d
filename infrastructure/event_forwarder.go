package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"splitledger/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const sourceService = "splitledger"

// EventEnvelope wraps a ledger event for external consumers
type EventEnvelope struct {
	EventID       string           `json:"event_id"`
	EventType     events.EventType `json:"event_type"`
	Timestamp     time.Time        `json:"timestamp"`
	SourceService string           `json:"source_service"`
	Payload       json.RawMessage  `json:"payload"`
}

// NewEventEnvelope serializes event into an envelope with a fresh id
func NewEventEnvelope(event events.Event, now time.Time) (*EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     event.Type(),
		Timestamp:     now.UTC(),
		SourceService: sourceService,
		Payload:       payload,
	}, nil
}

// EventForwarder republishes committed ledger events to a message bus
type EventForwarder struct {
	publisher MessagePublisher
	now       func() time.Time
}

// NewEventForwarder creates a forwarder publishing through publisher
func NewEventForwarder(publisher MessagePublisher) *EventForwarder {
	return &EventForwarder{
		publisher: publisher,
		now:       time.Now,
	}
}

// Register subscribes the forwarder to every ledger event type on bus
func (f *EventForwarder) Register(bus *events.Bus) {
	for _, eventType := range events.AllEventTypes() {
		bus.Subscribe(eventType, f.handle)
	}
	log.WithField("eventTypes", len(events.AllEventTypes())).Info("Registered NATS event forwarder")
}

// Forward publishes a single event
func (f *EventForwarder) Forward(ctx context.Context, event events.Event) error {
	envelope, err := NewEventEnvelope(event, f.now())
	if err != nil {
		return err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := SubjectForEventType(event.Type())
	if err := f.publisher.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to forward event: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Forwarded event to NATS")
	return nil
}

// handle adapts Forward to the bus handler signature; the ledger write already committed,
// so a failed forward is logged and dropped
func (f *EventForwarder) handle(ctx context.Context, event events.Event) {
	if err := f.Forward(ctx, event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to forward event")
	}
}
