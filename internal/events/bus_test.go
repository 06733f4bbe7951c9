package events

import (
	"context"
	"errors"
	"testing"
)

func TestNewEventEnvelope(t *testing.T) {
	event, err := NewEvent(EventTicketCreated, TicketCreatedPayload{TicketID: "t1"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if event.ID == "" || event.Type != EventTicketCreated || event.Timestamp.IsZero() {
		t.Fatalf("incomplete envelope: %+v", event)
	}

	var payload TicketCreatedPayload
	if err := event.DecodePayload(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.TicketID != "t1" {
		t.Fatalf("expected t1, got %q", payload.TicketID)
	}
}

func TestInMemoryBusRoutesByType(t *testing.T) {
	bus := NewInMemoryBus()

	ticketCalls := 0
	signupCalls := 0
	bus.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		ticketCalls++
		return nil
	})
	bus.Subscribe(EventUserSignedUp, func(context.Context, Event) error {
		signupCalls++
		return nil
	})

	if err := bus.Publish(context.Background(), EventTicketCreated, TicketCreatedPayload{TicketID: "t1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if ticketCalls != 1 || signupCalls != 0 {
		t.Fatalf("expected routing by type, got ticket=%d signup=%d", ticketCalls, signupCalls)
	}
}

func TestInMemoryBusContinuesPastFailingHandler(t *testing.T) {
	bus := NewInMemoryBus()

	second := 0
	bus.Subscribe(EventUserSignedUp, func(context.Context, Event) error {
		return errors.New("boom")
	})
	bus.Subscribe(EventUserSignedUp, func(context.Context, Event) error {
		second++
		return nil
	})

	if err := bus.Publish(context.Background(), EventUserSignedUp, UserSignedUpPayload{Email: "a@example.com"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if second != 1 {
		t.Fatalf("expected second handler to run, got %d", second)
	}
}

func TestRedisBusHandlerRegistry(t *testing.T) {
	bus := NewRedisBus(nil, "test:events")

	bus.Subscribe(EventTicketCreated, func(context.Context, Event) error { return nil })
	bus.Subscribe(EventTicketCreated, func(context.Context, Event) error { return nil })

	if got := len(bus.HandlersFor(EventTicketCreated)); got != 2 {
		t.Fatalf("expected 2 handlers, got %d", got)
	}
	if got := len(bus.HandlersFor(EventUserSignedUp)); got != 0 {
		t.Fatalf("expected no handlers, got %d", got)
	}
}
