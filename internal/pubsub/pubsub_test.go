package pubsub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_DeliversInRegistrationOrder(t *testing.T) {
	ps := New(8)
	var order []int
	ps.Subscribe("topic", func(m Message) error { order = append(order, 1); return nil })
	ps.Subscribe("topic", func(m Message) error { order = append(order, 2); return nil })
	ps.Subscribe("other", func(m Message) error { order = append(order, 99); return nil })

	err := ps.Publish(NewMessage(context.Background(), "topic", "", nil))

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, order)
}

func TestPublish_CollectsErrorsAndRecoversPanics(t *testing.T) {
	ps := New(8)
	called := false
	ps.Subscribe("topic", func(m Message) error { return errors.New("boom") })
	ps.Subscribe("topic", func(m Message) error { panic("kaboom") })
	ps.Subscribe("topic", func(m Message) error { called = true; return nil })

	err := ps.Publish(NewMessage(context.Background(), "topic", "", nil))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 handler(s) failed")
	assert.Contains(t, err.Error(), "kaboom")
	assert.True(t, called)
	assert.Equal(t, int64(2), ps.Stats()["failed"])
}

func TestPublish_CancelledContext(t *testing.T) {
	ps := New(8)
	called := false
	ps.Subscribe("topic", func(m Message) error { called = true; return nil })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ps.Publish(NewMessage(ctx, "topic", "", nil))

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestUnsubscribe(t *testing.T) {
	ps := New(8)
	calls := 0
	unsubscribe := ps.Subscribe("topic", func(m Message) error { calls++; return nil })
	require.Equal(t, 1, ps.Subscribers("topic"))

	unsubscribe()
	unsubscribe()

	require.NoError(t, ps.Publish(NewMessage(context.Background(), "topic", "", nil)))
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, ps.Subscribers("topic"))
}

func TestSubscribeTyped_SkipsOtherPayloads(t *testing.T) {
	ps := New(8)
	var received []TransactionDeleted
	SubscribeTyped(ps, TopicTransactionDeleted, func(m MessageT[TransactionDeleted]) error {
		received = append(received, m.Data)
		return nil
	})

	require.NoError(t, ps.Publish(NewMessage(context.Background(), TopicTransactionDeleted, "", "not a payload")))
	require.NoError(t, ps.Publish(NewMessage(context.Background(), TopicTransactionDeleted, "", nil)))
	require.NoError(t, ps.Publish(NewMessage(context.Background(), TopicTransactionDeleted, "", TransactionDeleted{UserId: 1, Uid: "abc"})))

	require.Len(t, received, 1)
	assert.Equal(t, "abc", received[0].Uid)
}

func TestBroadcast_DeliveredByServe(t *testing.T) {
	ps := New(8)
	var wg sync.WaitGroup
	wg.Add(1)
	var got Message
	ps.Subscribe(UserTopic(7), func(m Message) error {
		got = m
		wg.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ps.Serve(ctx) }()

	requestCtx, requestCancel := context.WithCancel(context.Background())
	require.NoError(t, ps.Broadcast(NewMessage(requestCtx, UserTopic(7), "ping", 42)))
	requestCancel()

	wg.Wait()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, Topic("user:7"), got.Topic)
	assert.Equal(t, "ping", got.Type)
	assert.Equal(t, 42, got.Data)
	assert.Equal(t, int64(1), ps.Stats()["broadcast"])
}

func TestBroadcast_QueueFull(t *testing.T) {
	ps := New(1)

	require.NoError(t, ps.Broadcast(NewMessage(context.Background(), "topic", "", nil)))
	err := ps.Broadcast(NewMessage(context.Background(), "topic", "", nil))

	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, int64(1), ps.Stats()["dropped"])
	assert.Equal(t, 1, ps.Stats()["queued"])
}

func TestNewMessage_DefaultsTypeToTopic(t *testing.T) {
	m := NewMessage(nil, TopicTransactionRecorded, "", nil)

	assert.Equal(t, "transaction.recorded", m.Type)
	assert.NotNil(t, m.Context())
	assert.WithinDuration(t, time.Now(), m.Timestamp, time.Second)
}
