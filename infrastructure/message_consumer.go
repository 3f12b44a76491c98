package infrastructure

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// MessageHandler defines a function that handles raw message bytes
type MessageHandler func(ctx context.Context, data []byte) error

// MessageSubscriber is the subscribing side of the bus
type MessageSubscriber interface {
	Subscribe(subject string, handler func([]byte) error) error
}

// ReceiveMetrics counts consumed messages
type ReceiveMetrics interface {
	RecordNATSMessageReceived(subject string)
}

// MessageConsumer routes messages from bus subscriptions to handlers
type MessageConsumer struct {
	subscriber MessageSubscriber
	metrics    ReceiveMetrics
	handlers   map[string]MessageHandler
	mu         sync.RWMutex
}

// NewMessageConsumer creates a message consumer on top of a subscriber. metrics may be nil.
func NewMessageConsumer(subscriber MessageSubscriber, metrics ReceiveMetrics) *MessageConsumer {
	return &MessageConsumer{
		subscriber: subscriber,
		metrics:    metrics,
		handlers:   make(map[string]MessageHandler),
	}
}

// RegisterHandler registers a handler for a specific subject pattern
func (mc *MessageConsumer) RegisterHandler(subject string, handler MessageHandler) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.handlers[subject] = handler
	log.WithField("subject", subject).Info("Registered message handler")
}

// Start subscribes every registered subject. Handlers run with ctx, so
// cancelling it stops in-flight work at its next checkpoint.
func (mc *MessageConsumer) Start(ctx context.Context) error {
	mc.mu.RLock()
	subjects := make([]string, 0, len(mc.handlers))
	for subject := range mc.handlers {
		subjects = append(subjects, subject)
	}
	mc.mu.RUnlock()

	for _, subject := range subjects {
		if err := mc.subscribe(ctx, subject); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
	}

	log.WithField("subjects", subjects).Info("Message consumer started")
	return nil
}

func (mc *MessageConsumer) subscribe(ctx context.Context, subject string) error {
	return mc.subscriber.Subscribe(subject, func(data []byte) error {
		return mc.dispatch(ctx, subject, data)
	})
}

// dispatch hands one message to the handler of its subject
func (mc *MessageConsumer) dispatch(ctx context.Context, subject string, data []byte) error {
	mc.mu.RLock()
	handler, exists := mc.handlers[subject]
	mc.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no handler registered for subject: %s", subject)
	}

	if mc.metrics != nil {
		mc.metrics.RecordNATSMessageReceived(subject)
	}

	if err := handler(ctx, data); err != nil {
		log.WithFields(log.Fields{
			"subject": subject,
			"error":   err,
		}).Error("Failed to handle message")
		return err
	}

	return nil
}
