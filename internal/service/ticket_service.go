package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/intakehq/helpdesk/internal/domain"
	"github.com/intakehq/helpdesk/internal/events"
	"github.com/intakehq/helpdesk/internal/repository"
	apperrors "github.com/intakehq/helpdesk/pkg/util"
)

// TicketService owns ticket creation and read access; mutation after
// creation belongs to the assignment pipeline.
type TicketService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	history repository.TicketHistoryRepository
	bus     events.Bus
	logger  *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Bus         events.Bus
	Logger      *zap.Logger
}

// TicketDetail pairs a ticket with its assignee's public identity.
type TicketDetail struct {
	Ticket   *domain.Ticket
	Assignee *domain.User
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets: deps.TicketRepo,
		users:   deps.UserRepo,
		history: deps.HistoryRepo,
		bus:     deps.Bus,
		logger:  deps.Logger,
	}
}

// Create persists a ticket and emits the creation event that triggers the
// assignment pipeline. Persistence and emission are not transactional: when
// emission fails the ticket exists but stays unprocessed (logged).
func (s *TicketService) Create(ctx context.Context, creator *domain.User, title, description string) (*domain.Ticket, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}

	ticket := &domain.Ticket{
		Title:         title,
		Description:   description,
		Status:        domain.TicketStatusTodo,
		Priority:      domain.TicketPriorityLow,
		CreatedBy:     creator.ID,
		RelatedSkills: []string{},
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.bus.Publish(ctx, events.EventTicketCreated, events.TicketCreatedPayload{TicketID: ticket.ID}); err != nil {
		s.logger.Error("failed to publish ticket.created; ticket will stay unprocessed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}
	return ticket, nil
}

// List returns tickets scoped by role: admins see everything, everyone else
// only what they created.
func (s *TicketService) List(ctx context.Context, caller *domain.User) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{Limit: 100}
	if caller.Role != domain.RoleAdmin {
		filter.CreatedBy = &caller.ID
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Get returns full ticket detail with the assignee's public fields. A
// non-admin asking for someone else's ticket gets NotFound, so ticket ids
// cannot be probed.
func (s *TicketService) Get(ctx context.Context, caller *domain.User, ticketID string) (*TicketDetail, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if caller.Role != domain.RoleAdmin && ticket.CreatedBy != caller.ID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}

	detail := &TicketDetail{Ticket: ticket}
	if ticket.AssignedTo != nil {
		assignee, err := s.users.GetByID(ctx, *ticket.AssignedTo)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		detail.Assignee = assignee
	}
	return detail, nil
}

// History returns the pipeline's audit trail for a ticket. Admin only.
func (s *TicketService) History(ctx context.Context, caller *domain.User, ticketID string) ([]domain.TicketHistory, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins can view ticket history")
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, 100, 0)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}
