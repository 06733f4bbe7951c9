package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/intakehq/helpdesk/internal/domain"
	"github.com/intakehq/helpdesk/internal/events"
	"github.com/intakehq/helpdesk/internal/repository"
)

type memTicketRepo struct {
	tickets []domain.Ticket
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = fmt.Sprintf("t%d", len(r.tickets)+1)
	r.tickets = append(r.tickets, *ticket)
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	for i := range r.tickets {
		if r.tickets[i].ID == ticket.ID {
			r.tickets[i] = *ticket
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	for i := range r.tickets {
		if r.tickets[i].ID == id {
			copied := r.tickets[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		out = append(out, ticket)
	}
	return out, nil
}

type memHistoryRepo struct {
	entries []domain.TicketHistory
}

func (r *memHistoryRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	entry.ID = fmt.Sprintf("h%d", len(r.entries)+1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memHistoryRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	var out []domain.TicketHistory
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func newTestTicketService(tickets *memTicketRepo, users *memUserRepo, history *memHistoryRepo, bus events.Bus) *TicketService {
	if bus == nil {
		bus = events.NewInMemoryBus()
	}
	return NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		UserRepo:    users,
		HistoryRepo: history,
		Bus:         bus,
		Logger:      zap.NewNop(),
	})
}

func TestCreateTicketEmitsCreationEvent(t *testing.T) {
	bus := events.NewInMemoryBus()
	var got events.TicketCreatedPayload
	bus.Subscribe(events.EventTicketCreated, func(_ context.Context, event events.Event) error {
		return event.DecodePayload(&got)
	})

	svc := newTestTicketService(&memTicketRepo{}, &memUserRepo{}, &memHistoryRepo{}, bus)
	creator := &domain.User{ID: "u1", Role: domain.RoleUser}

	ticket, err := svc.Create(context.Background(), creator, "Printer jam", "Tray 2 keeps jamming")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ticket.Status != domain.TicketStatusTodo || ticket.Priority != domain.TicketPriorityLow {
		t.Fatalf("expected TODO/LOW defaults, got %s/%s", ticket.Status, ticket.Priority)
	}
	if got.TicketID != ticket.ID {
		t.Fatalf("expected event for %s, got %q", ticket.ID, got.TicketID)
	}
}

func TestCreateTicketRejectsBlankFields(t *testing.T) {
	svc := newTestTicketService(&memTicketRepo{}, &memUserRepo{}, &memHistoryRepo{}, nil)
	creator := &domain.User{ID: "u1", Role: domain.RoleUser}

	for _, tc := range []struct{ title, description string }{
		{"", "body"},
		{"title", ""},
		{"   ", "body"},
	} {
		_, err := svc.Create(context.Background(), creator, tc.title, tc.description)
		if status := statusOf(t, err); status != 400 {
			t.Fatalf("title=%q description=%q: expected 400, got %d", tc.title, tc.description, status)
		}
	}
}

func TestListScopesNonAdminsToOwnTickets(t *testing.T) {
	repo := &memTicketRepo{tickets: []domain.Ticket{
		{ID: "t1", CreatedBy: "u1"},
		{ID: "t2", CreatedBy: "u2"},
		{ID: "t3", CreatedBy: "u1"},
	}}
	svc := newTestTicketService(repo, &memUserRepo{}, &memHistoryRepo{}, nil)

	mine, err := svc.List(context.Background(), &domain.User{ID: "u1", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 own tickets, got %d", len(mine))
	}

	all, err := svc.List(context.Background(), &domain.User{ID: "a1", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected admin to see 3 tickets, got %d", len(all))
	}
}

func TestGetHidesForeignTicketsFromNonAdmins(t *testing.T) {
	repo := &memTicketRepo{tickets: []domain.Ticket{{ID: "t1", CreatedBy: "u1"}}}
	svc := newTestTicketService(repo, &memUserRepo{}, &memHistoryRepo{}, nil)

	_, err := svc.Get(context.Background(), &domain.User{ID: "u2", Role: domain.RoleUser}, "t1")
	if status := statusOf(t, err); status != 404 {
		t.Fatalf("expected 404 for foreign ticket, got %d", status)
	}

	if _, err := svc.Get(context.Background(), &domain.User{ID: "a1", Role: domain.RoleAdmin}, "t1"); err != nil {
		t.Fatalf("admin should see any ticket: %v", err)
	}
}

func TestGetUnknownTicketIsNotFound(t *testing.T) {
	svc := newTestTicketService(&memTicketRepo{}, &memUserRepo{}, &memHistoryRepo{}, nil)

	_, err := svc.Get(context.Background(), &domain.User{ID: "u1", Role: domain.RoleUser}, "missing")
	if status := statusOf(t, err); status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestGetPopulatesAssignee(t *testing.T) {
	assignee := "m1"
	tickets := &memTicketRepo{tickets: []domain.Ticket{
		{ID: "t1", CreatedBy: "u1", AssignedTo: &assignee},
	}}
	users := &memUserRepo{users: []domain.User{
		{ID: "m1", Email: "mod@example.com", Role: domain.RoleModerator},
	}}
	svc := newTestTicketService(tickets, users, &memHistoryRepo{}, nil)

	detail, err := svc.Get(context.Background(), &domain.User{ID: "u1", Role: domain.RoleUser}, "t1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if detail.Assignee == nil || detail.Assignee.Email != "mod@example.com" {
		t.Fatalf("expected assignee mod@example.com, got %+v", detail.Assignee)
	}
}

func TestHistoryIsAdminOnly(t *testing.T) {
	tickets := &memTicketRepo{tickets: []domain.Ticket{{ID: "t1", CreatedBy: "u1"}}}
	history := &memHistoryRepo{entries: []domain.TicketHistory{
		{ID: "h1", TicketID: "t1", ChangeType: domain.ChangeTypeStatus},
	}}
	svc := newTestTicketService(tickets, &memUserRepo{}, history, nil)

	_, err := svc.History(context.Background(), &domain.User{ID: "u1", Role: domain.RoleUser}, "t1")
	if status := statusOf(t, err); status != 403 {
		t.Fatalf("expected 403, got %d", status)
	}

	entries, err := svc.History(context.Background(), &domain.User{ID: "a1", Role: domain.RoleAdmin}, "t1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(entries) != 1 || entries[0].ChangeType != domain.ChangeTypeStatus {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestHistoryForUnknownTicketIsNotFound(t *testing.T) {
	svc := newTestTicketService(&memTicketRepo{}, &memUserRepo{}, &memHistoryRepo{}, nil)

	_, err := svc.History(context.Background(), &domain.User{ID: "a1", Role: domain.RoleAdmin}, "missing")
	if status := statusOf(t, err); status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
}
