package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"lending/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMessagePublisher struct {
	mock.Mock
}

func (m *mockMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type countingPublishMetrics struct {
	published map[string]int
}

func (c *countingPublishMetrics) RecordNATSMessagePublished(eventType string) {
	if c.published == nil {
		c.published = make(map[string]int)
	}
	c.published[eventType]++
}

func TestNATSEventPublisher_PublishesEnvelopeOnEventSubject(t *testing.T) {
	bus := new(mockMessagePublisher)
	metrics := &countingPublishMetrics{}
	publisher := NewNATSEventPublisher(bus, metrics)

	var sent []byte
	bus.On("Publish", mock.Anything, "ledger.yield.paid", mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(2).([]byte) }).
		Return(nil).Once()

	event := testYieldPaidEvent(3)
	require.NoError(t, publisher.Publish(event))

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(sent, &envelope))
	assert.Equal(t, "ledger.yield.paid", envelope.EventType)
	assert.Equal(t, "lending", envelope.SourceService)
	assert.NotEmpty(t, envelope.EventID)
	assert.False(t, envelope.Timestamp.IsZero())

	var payload events.YieldPaidEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, event.DepositID, payload.DepositID)
	assert.True(t, event.Amount.Equal(payload.Amount))
	assert.Equal(t, "2024-03-10", payload.PayoutDate.String())

	assert.Equal(t, 1, metrics.published["ledger.yield.paid"])
	bus.AssertExpectations(t)
}

func TestNATSEventPublisher_LocalHandlersRunBeforeBus(t *testing.T) {
	bus := new(mockMessagePublisher)
	publisher := NewNATSEventPublisher(bus, nil)

	var order []string
	publisher.RegisterLocalHandler(events.EventTypeDepositClosed, func(ctx context.Context, event events.Event) error {
		order = append(order, "local")
		return errors.New("handler failure is logged only")
	})
	bus.On("Publish", mock.Anything, "ledger.deposit.closed", mock.Anything).
		Run(func(mock.Arguments) { order = append(order, "bus") }).
		Return(nil).Once()

	require.NoError(t, publisher.Publish(events.DepositClosedEvent{DepositID: 1, OwnerID: 2, Reason: "deleted"}))
	assert.Equal(t, []string{"local", "bus"}, order)
}

func TestNATSEventPublisher_NoStreamIsNotAnError(t *testing.T) {
	bus := new(mockMessagePublisher)
	publisher := NewNATSEventPublisher(bus, nil)

	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("nats: no response from stream")).Once()

	assert.NoError(t, publisher.Publish(testYieldPaidEvent(1)))
}

func TestNATSEventPublisher_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	bus := new(mockMessagePublisher)
	publisher := NewNATSEventPublisher(bus, nil)

	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection refused")).Times(5)

	for i := 0; i < 5; i++ {
		err := publisher.Publish(testYieldPaidEvent(int64(i)))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPublisherUnavailable)
	}

	// The sixth attempt is rejected without touching the bus
	err := publisher.Publish(testYieldPaidEvent(6))
	assert.ErrorIs(t, err, ErrPublisherUnavailable)
	bus.AssertNumberOfCalls(t, "Publish", 5)
}
