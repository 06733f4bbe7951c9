package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/intakehq/helpdesk/internal/api/dto"
	"github.com/intakehq/helpdesk/internal/auth"
	"github.com/intakehq/helpdesk/internal/service"
	apperrors "github.com/intakehq/helpdesk/pkg/util"
)

// TicketsHandler exposes ticket intake endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService}
}

// Create handles POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	principal, _ := auth.PrincipalFromContext(c)

	ticket, err := h.tickets.Create(c.Context(), principal.User, req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"ticket": dto.NewTicketDetail(ticket, nil),
	})
}

// List handles GET /tickets, scoped by the caller's role.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	tickets, err := h.tickets.List(c.Context(), principal.User)
	if err != nil {
		return err
	}

	out := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		out = append(out, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"tickets": out})
}

// Get handles GET /tickets/:id with the populated assignee.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	detail, err := h.tickets.Get(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"ticket": dto.NewTicketDetail(detail.Ticket, detail.Assignee),
	})
}

// History handles GET /tickets/:id/history (admin only).
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	entries, err := h.tickets.History(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}

	out := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.HistoryEntryResponse{
			ID:         entry.ID,
			ChangeType: entry.ChangeType,
			ChangedBy:  entry.ChangedBy,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"history": out})
}
