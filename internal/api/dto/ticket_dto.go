package dto

import (
	"time"

	"github.com/intakehq/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TicketSummary response for listings.
type TicketSummary struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	Status    domain.TicketStatus   `json:"status"`
	Priority  domain.TicketPriority `json:"priority"`
	CreatedBy string                `json:"created_by"`
	CreatedAt time.Time             `json:"created_at"`
}

// TicketDetailResponse provides full ticket info with the populated assignee.
type TicketDetailResponse struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	CreatedBy     string                `json:"created_by"`
	AssignedTo    *UserResponse         `json:"assigned_to"`
	HelpfulNotes  *string               `json:"helpful_notes"`
	RelatedSkills []string              `json:"related_skills"`
	Deadline      *time.Time            `json:"deadline"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// HistoryEntryResponse is one audit trail entry.
type HistoryEntryResponse struct {
	ID         string                  `json:"id"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	ChangedBy  string                  `json:"changed_by"`
	OldValue   map[string]any          `json:"old_value"`
	NewValue   map[string]any          `json:"new_value"`
	CreatedAt  time.Time               `json:"created_at"`
}

// NewTicketSummary maps a domain ticket to its listing view.
func NewTicketSummary(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:        ticket.ID,
		Title:     ticket.Title,
		Status:    ticket.Status,
		Priority:  ticket.Priority,
		CreatedBy: ticket.CreatedBy,
		CreatedAt: ticket.CreatedAt,
	}
}

// NewTicketDetail maps a ticket and optional assignee to the detail view.
func NewTicketDetail(ticket *domain.Ticket, assignee *domain.User) TicketDetailResponse {
	skills := ticket.RelatedSkills
	if skills == nil {
		skills = []string{}
	}
	resp := TicketDetailResponse{
		ID:            ticket.ID,
		Title:         ticket.Title,
		Description:   ticket.Description,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		CreatedBy:     ticket.CreatedBy,
		HelpfulNotes:  ticket.HelpfulNotes,
		RelatedSkills: skills,
		Deadline:      ticket.Deadline,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
	if assignee != nil {
		view := NewUserResponse(assignee)
		resp.AssignedTo = &view
	}
	return resp
}
