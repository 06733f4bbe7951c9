package events

import (
	"encoding/json"
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket.created"
	EventUserSignedUp  EventType = "user.signedup"
)

// Event is the envelope published to the queue.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// TicketCreatedPayload identifies the ticket the pipeline must process.
type TicketCreatedPayload struct {
	TicketID string `json:"ticket_id"`
}

// UserSignedUpPayload identifies a freshly registered user.
type UserSignedUpPayload struct {
	Email string `json:"email"`
}

// DecodePayload unmarshals the envelope payload into out.
func (e Event) DecodePayload(out any) error {
	return json.Unmarshal(e.Payload, out)
}
