package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus publishes events onto a Redis list and hands consumed events to
// subscribed handlers. Consumption is driven by the worker calling Consume.
type RedisBus struct {
	client   *redis.Client
	queueKey string

	mu        sync.RWMutex
	listeners map[EventType][]Handler
}

// NewRedisBus creates a Redis-backed bus.
func NewRedisBus(client *redis.Client, queueKey string) *RedisBus {
	return &RedisBus{
		client:    client,
		queueKey:  queueKey,
		listeners: make(map[EventType][]Handler),
	}
}

// Publish pushes the envelope onto the queue.
func (b *RedisBus) Publish(ctx context.Context, eventType EventType, payload any) error {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.LPush(ctx, b.queueKey, raw).Err()
}

// Subscribe registers a handler for the given event type.
func (b *RedisBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], handler)
}

// ErrNoEvent signals an empty queue within the poll window.
var ErrNoEvent = errors.New("no event available")

// Next blocks for up to timeout waiting for the next queued event.
func (b *RedisBus) Next(ctx context.Context, timeout time.Duration) (Event, error) {
	res, err := b.client.BRPop(ctx, timeout, b.queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Event{}, ErrNoEvent
		}
		return Event{}, err
	}
	// BRPop returns [key, value]
	if len(res) != 2 {
		return Event{}, ErrNoEvent
	}

	var event Event
	if err := json.Unmarshal([]byte(res[1]), &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// HandlersFor returns the registered handlers for an event type.
func (b *RedisBus) HandlersFor(eventType EventType) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler{}, b.listeners[eventType]...)
}
