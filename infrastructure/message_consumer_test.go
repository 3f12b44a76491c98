package infrastructure

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubscriber keeps the bus callbacks so tests can deliver messages
type fakeSubscriber struct {
	callbacks map[string]func([]byte) error
	failOn    string
}

func (f *fakeSubscriber) Subscribe(subject string, handler func([]byte) error) error {
	if subject == f.failOn {
		return errors.New("subscription refused")
	}
	if f.callbacks == nil {
		f.callbacks = make(map[string]func([]byte) error)
	}
	f.callbacks[subject] = handler
	return nil
}

type countingReceiveMetrics struct {
	received map[string]int
}

func (c *countingReceiveMetrics) RecordNATSMessageReceived(subject string) {
	if c.received == nil {
		c.received = make(map[string]int)
	}
	c.received[subject]++
}

func TestMessageConsumer_RoutesToHandler(t *testing.T) {
	subscriber := &fakeSubscriber{}
	metrics := &countingReceiveMetrics{}
	consumer := NewMessageConsumer(subscriber, metrics)

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "service")

	var got []byte
	var gotCtx context.Context
	consumer.RegisterHandler("ledger.import.requested", func(ctx context.Context, data []byte) error {
		got = data
		gotCtx = ctx
		return nil
	})

	require.NoError(t, consumer.Start(ctx))
	require.Contains(t, subscriber.callbacks, "ledger.import.requested")

	require.NoError(t, subscriber.callbacks["ledger.import.requested"]([]byte(`{"rows":[]}`)))
	assert.Equal(t, `{"rows":[]}`, string(got))
	assert.Equal(t, "service", gotCtx.Value(ctxKey{}))
	assert.Equal(t, 1, metrics.received["ledger.import.requested"])
}

func TestMessageConsumer_HandlerErrorPropagatesForRedelivery(t *testing.T) {
	subscriber := &fakeSubscriber{}
	consumer := NewMessageConsumer(subscriber, nil)

	consumer.RegisterHandler("ledger.import.requested", func(ctx context.Context, data []byte) error {
		return errors.New("store unavailable")
	})
	require.NoError(t, consumer.Start(context.Background()))

	err := subscriber.callbacks["ledger.import.requested"]([]byte(`{}`))
	assert.EqualError(t, err, "store unavailable")
}

func TestMessageConsumer_SubscribeFailure(t *testing.T) {
	subscriber := &fakeSubscriber{failOn: "ledger.import.requested"}
	consumer := NewMessageConsumer(subscriber, nil)

	consumer.RegisterHandler("ledger.import.requested", func(ctx context.Context, data []byte) error {
		return nil
	})

	err := consumer.Start(context.Background())
	assert.ErrorContains(t, err, "failed to subscribe to ledger.import.requested")
}
