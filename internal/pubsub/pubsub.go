package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

var ErrQueueFull = errors.New("pubsub queue is full")

// Topic identifies a stream of messages, e.g. "transaction.recorded" or "user:42".
type Topic string

// UserTopic is the per-user topic used for live updates.
func UserTopic(userId int) Topic {
	return Topic("user:" + strconv.Itoa(userId))
}

// Message is the generic envelope used by the bus. Data is kept as any so that
// different payload types travel on the same bus.
type Message struct {
	ctx       context.Context
	Topic     Topic
	Type      string
	Timestamp time.Time
	Data      any
}

// NewMessage creates a Message stamped with the current time. Type defaults to the topic.
func NewMessage(ctx context.Context, topic Topic, messageType string, data any) Message {
	if messageType == "" {
		messageType = string(topic)
	}
	return Message{
		ctx:       ctx,
		Topic:     topic,
		Type:      messageType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// Context returns the context the message was published with.
// Handlers should use it for cancellation and request-scoped values like the current user.
func (m Message) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

// MessageT is a typed envelope used by typed handlers.
type MessageT[T any] struct {
	ctx       context.Context
	Topic     Topic
	Type      string
	Timestamp time.Time
	Data      T
}

func (m MessageT[T]) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

type handler func(Message) error

type subscription struct {
	id uint64
	h  handler
}

// PubSub is a concurrency-safe topic bus. Publish delivers synchronously;
// Broadcast enqueues and the message is delivered by Serve.
type PubSub struct {
	mu          sync.RWMutex
	subscribers map[Topic][]subscription
	nextID      uint64

	queue chan Message

	published atomic.Int64
	broadcast atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

func New(bufferSize int) *PubSub {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &PubSub{
		subscribers: make(map[Topic][]subscription),
		queue:       make(chan Message, bufferSize),
	}
}

// Subscribe registers a handler for the topic and returns a function removing it.
func (ps *PubSub) Subscribe(topic Topic, h func(Message) error) (unsubscribe func()) {
	ps.mu.Lock()
	ps.nextID++
	id := ps.nextID
	ps.subscribers[topic] = append(ps.subscribers[topic], subscription{id: id, h: h})
	ps.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			ps.mu.Lock()
			defer ps.mu.Unlock()

			subs := ps.subscribers[topic]
			for i, s := range subs {
				if s.id == id {
					subs = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
			if len(subs) == 0 {
				delete(ps.subscribers, topic)
			} else {
				ps.subscribers[topic] = subs
			}
		})
	}
}

// SubscribeTyped registers a handler that expects payload type T. Messages whose
// payload is nil or of another type are skipped.
// It is a free function because methods cannot declare type parameters.
func SubscribeTyped[T any](ps *PubSub, topic Topic, h func(MessageT[T]) error) (unsubscribe func()) {
	wrapper := func(m Message) error {
		if m.Data == nil {
			log.Debugf("PubSub: nil data for topic %s, skipping typed handler", topic)
			return nil
		}
		payload, ok := m.Data.(T)
		if !ok {
			log.Debugf("PubSub: type mismatch for topic %s: expected %T, got %T", topic, *new(T), m.Data)
			return nil
		}
		return h(MessageT[T]{
			ctx:       m.ctx,
			Topic:     m.Topic,
			Type:      m.Type,
			Timestamp: m.Timestamp,
			Data:      payload,
		})
	}
	return ps.Subscribe(topic, wrapper)
}

// Subscribers returns the number of handlers currently registered for the topic.
func (ps *PubSub) Subscribers(topic Topic) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}

// Publish delivers the message to all handlers of its topic synchronously, in
// registration order. Handler errors do not stop delivery; they are collected and
// returned together. Panics are recovered and reported as errors. If the message
// context is cancelled, remaining handlers are skipped.
func (ps *PubSub) Publish(m Message) error {
	ps.published.Add(1)
	return ps.deliver(m)
}

// Broadcast enqueues the message for asynchronous delivery by Serve. The message
// keeps its context values but not its cancellation, since the publishing request
// usually finishes before delivery.
func (ps *PubSub) Broadcast(m Message) error {
	m.ctx = context.WithoutCancel(m.Context())
	select {
	case ps.queue <- m:
		ps.broadcast.Add(1)
		return nil
	default:
		ps.dropped.Add(1)
		log.Warnf("PubSub: dropping message for topic %s, queue full", m.Topic)
		return ErrQueueFull
	}
}

// Serve drains the broadcast queue until ctx is done.
func (ps *PubSub) Serve(ctx context.Context) error {
	log.Debug("pubsub dispatcher started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-ps.queue:
			if err := ps.deliver(m); err != nil {
				log.Debugf("PubSub: broadcast on %s finished with errors: %v", m.Topic, err)
			}
		}
	}
}

func (ps *PubSub) String() string {
	return "pubsub"
}

// Stats reports bus counters for telemetry.
func (ps *PubSub) Stats() map[string]any {
	ps.mu.RLock()
	topics := len(ps.subscribers)
	ps.mu.RUnlock()
	return map[string]any{
		"published": ps.published.Load(),
		"broadcast": ps.broadcast.Load(),
		"dropped":   ps.dropped.Load(),
		"failed":    ps.failed.Load(),
		"queued":    len(ps.queue),
		"topics":    topics,
	}
}

func (ps *PubSub) deliver(m Message) error {
	if err := m.Context().Err(); err != nil {
		return fmt.Errorf("topic %s: context cancelled before publish: %w", m.Topic, err)
	}

	ps.mu.RLock()
	subs := make([]subscription, len(ps.subscribers[m.Topic]))
	copy(subs, ps.subscribers[m.Topic])
	ps.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := m.Context().Err(); err != nil {
			errs = append(errs, fmt.Errorf("context cancelled during delivery: %w", err))
			break
		}

		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("handler panic (ID %d) for topic %s: %v", sub.id, m.Topic, r)
					log.Error(err)
				}
			}()
			return sub.h(m)
		}()

		if err != nil {
			log.Errorf("PubSub: handler error (ID %d) for topic %s: %v", sub.id, m.Topic, err)
			ps.failed.Add(1)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("topic %s: %d handler(s) failed: %w", m.Topic, len(errs), errors.Join(errs...))
	}
	return nil
}
