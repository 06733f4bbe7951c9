package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler processes a consumed event.
type Handler func(context.Context, Event) error

// Bus decouples event emission from consumption. Publish is fire-and-forget
// from the caller's perspective; delivery happens on the consumer side.
type Bus interface {
	Publish(ctx context.Context, eventType EventType, payload any) error
	Subscribe(eventType EventType, handler Handler)
}

// NewEvent builds an envelope with a fresh id and timestamp.
func NewEvent(eventType EventType, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   raw,
	}, nil
}

// inMemoryBus dispatches synchronously in-process. Used in tests and as a
// fallback when no queue transport is configured.
type inMemoryBus struct {
	mu        sync.RWMutex
	listeners map[EventType][]Handler
}

// NewInMemoryBus creates a synchronous bus instance.
func NewInMemoryBus() Bus {
	return &inMemoryBus{listeners: make(map[EventType][]Handler)}
}

func (b *inMemoryBus) Publish(ctx context.Context, eventType EventType, payload any) error {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	handlers := append([]Handler{}, b.listeners[event.Type]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		// handler errors do not stop delivery to the remaining handlers
		_ = handler(ctx, event)
	}
	return nil
}

func (b *inMemoryBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], handler)
}
