package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lending/domain/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// ErrPublisherUnavailable is returned while the circuit around the bus is open
var ErrPublisherUnavailable = errors.New("event bus unavailable")

// EventEnvelope is the wire format of every published ledger event
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// PublishMetrics counts published events
type PublishMetrics interface {
	RecordNATSMessagePublished(eventType string)
}

// NATSEventPublisher implements the EventPublisher interface using NATS.
// The subject of an event is its type.
type NATSEventPublisher struct {
	bus           MessagePublisher
	breaker       *gobreaker.CircuitBreaker
	metrics       PublishMetrics
	publishWait   time.Duration
	localHandlers map[events.EventType][]func(context.Context, events.Event) error
}

// NewNATSEventPublisher creates a new NATS event publisher. metrics may be nil.
func NewNATSEventPublisher(bus MessagePublisher, metrics PublishMetrics) *NATSEventPublisher {
	p := &NATSEventPublisher{
		bus:           bus,
		metrics:       metrics,
		publishWait:   5 * time.Second,
		localHandlers: make(map[events.EventType][]func(context.Context, events.Event) error),
	}

	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nats-event-publisher",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Event publisher circuit breaker state changed")
		},
	})

	return p
}

// Publish publishes an event to NATS using its type as the subject
func (p *NATSEventPublisher) Publish(event events.Event) error {
	ctx := context.Background()
	eventType := event.Type()

	// Local handlers run first and never block the bus
	for _, handler := range p.localHandlers[eventType] {
		if err := handler(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": eventType,
				"error":     err,
			}).Error("Local event handler failed")
		}
	}

	envelopeData, envelope, err := encodeEnvelope(event)
	if err != nil {
		return err
	}

	subject := string(eventType)

	ctx, cancel := context.WithTimeout(ctx, p.publishWait)
	defer cancel()

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.bus.Publish(ctx, subject, envelopeData)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s dropped", ErrPublisherUnavailable, eventType)
	}
	if err != nil {
		// No stream bound to the subject, nothing is listening
		if strings.Contains(err.Error(), "no response from stream") {
			return nil
		}
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	if p.metrics != nil {
		p.metrics.RecordNATSMessagePublished(string(eventType))
	}

	log.WithFields(log.Fields{
		"eventType": eventType,
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}

// RegisterLocalHandler registers a handler that will be invoked locally for events
func (p *NATSEventPublisher) RegisterLocalHandler(eventType events.EventType, handler func(context.Context, events.Event) error) {
	p.localHandlers[eventType] = append(p.localHandlers[eventType], handler)
	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(p.localHandlers[eventType]),
	}).Info("Registered local event handler")
}

func encodeEnvelope(event events.Event) ([]byte, *EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: "lending",
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	return data, envelope, nil
}
