package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusTodo       TicketStatus = "TODO"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// NormalizePriority uppercases the raw value and falls back to LOW when it
// is not one of the enumerated priorities.
func NormalizePriority(raw string) TicketPriority {
	switch TicketPriority(strings.ToUpper(strings.TrimSpace(raw))) {
	case TicketPriorityLow:
		return TicketPriorityLow
	case TicketPriorityMedium:
		return TicketPriorityMedium
	case TicketPriorityHigh:
		return TicketPriorityHigh
	}
	return TicketPriorityLow
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            string
	Title         string
	Description   string
	Status        TicketStatus
	Priority      TicketPriority
	CreatedBy     string
	AssignedTo    *string
	HelpfulNotes  *string
	RelatedSkills []string
	Deadline      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
