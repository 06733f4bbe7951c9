package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/intakehq/helpdesk/internal/classifier"
	"github.com/intakehq/helpdesk/internal/domain"
	"github.com/intakehq/helpdesk/internal/events"
	"github.com/intakehq/helpdesk/internal/mailer"
	"github.com/intakehq/helpdesk/internal/repository"
)

const pipelineActor = "assignment-pipeline"

// AssignmentFlow reacts to ticket creation: classify, pick an assignee by
// skill match, notify. Runs asynchronously, decoupled from the creating
// request.
type AssignmentFlow struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	classifier classifier.Classifier
	mail       mailer.Sender
	runner     *Runner
	logger     *zap.Logger
}

// AssignmentDependencies bundles collaborators for the flow.
type AssignmentDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Classifier  classifier.Classifier
	Mailer      mailer.Sender
	Runner      *Runner
	Logger      *zap.Logger
}

// NewAssignmentFlow creates the flow.
func NewAssignmentFlow(deps AssignmentDependencies) *AssignmentFlow {
	return &AssignmentFlow{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		classifier: deps.Classifier,
		mail:       deps.Mailer,
		runner:     deps.Runner,
		logger:     deps.Logger,
	}
}

// Register subscribes the flow to ticket creation events.
func (f *AssignmentFlow) Register(bus events.Bus) {
	bus.Subscribe(events.EventTicketCreated, f.HandleTicketCreated)
}

// HandleTicketCreated runs the assignment pipeline for one creation event.
func (f *AssignmentFlow) HandleTicketCreated(ctx context.Context, event events.Event) error {
	var payload events.TicketCreatedPayload
	if err := event.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decode ticket.created payload: %w", err)
	}

	run := f.runner.NewRun("ticket-assignment", event.ID)

	ticket, err := Step(ctx, run, "fetch-ticket", func(ctx context.Context) (*domain.Ticket, error) {
		ticket, err := f.tickets.GetByID(ctx, payload.TicketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// a missing ticket is a data error, retrying cannot help
				return nil, NonRetriable(fmt.Errorf("ticket %s not found", payload.TicketID))
			}
			return nil, err
		}
		return ticket, nil
	})
	if err != nil {
		return err
	}

	relatedSkills, err := Step(ctx, run, "classify", func(ctx context.Context) ([]string, error) {
		return f.classify(ctx, ticket)
	})
	if err != nil {
		return err
	}

	assignee, err := Step(ctx, run, "assign-moderator", func(ctx context.Context) (*domain.User, error) {
		return f.assign(ctx, ticket, relatedSkills)
	})
	if err != nil {
		return err
	}

	_, err = Step(ctx, run, "send-notification", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.notify(ticket, assignee)
	})
	return err
}

// classify asks the provider for priority, notes and related skills, then
// advances the ticket to IN_PROGRESS. Provider failure is not fatal: the
// ticket proceeds unclassified with an empty skill list.
func (f *AssignmentFlow) classify(ctx context.Context, ticket *domain.Ticket) ([]string, error) {
	result, err := f.classifier.Classify(ctx, ticket.Title, ticket.Description)
	if err != nil || result == nil {
		f.logger.Warn("classification unavailable; continuing without it",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		return []string{}, nil
	}

	oldStatus := ticket.Status
	oldPriority := ticket.Priority

	ticket.Priority = domain.NormalizePriority(result.Priority)
	if result.HelpfulNotes != "" {
		notes := result.HelpfulNotes
		ticket.HelpfulNotes = &notes
	}
	ticket.RelatedSkills = result.RelatedSkills
	if ticket.RelatedSkills == nil {
		ticket.RelatedSkills = []string{}
	}
	ticket.Status = domain.TicketStatusInProgress

	if err := f.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	f.recordChange(ctx, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": ticket.Status})
	f.recordChange(ctx, ticket.ID, domain.ChangeTypePriority,
		map[string]any{"priority": oldPriority},
		map[string]any{"priority": ticket.Priority})

	return ticket.RelatedSkills, nil
}

// assign picks the first moderator with a skill matching any related skill,
// falling back to the first admin, and writes the choice on the ticket.
func (f *AssignmentFlow) assign(ctx context.Context, ticket *domain.Ticket, relatedSkills []string) (*domain.User, error) {
	assignee, err := f.findModerator(ctx, relatedSkills)
	if err != nil {
		return nil, err
	}
	if assignee == nil {
		assignee, err = f.findAdmin(ctx)
		if err != nil {
			return nil, err
		}
	}

	oldAssignee := ticket.AssignedTo
	if assignee != nil {
		ticket.AssignedTo = &assignee.ID
	} else {
		ticket.AssignedTo = nil
	}

	if err := f.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	f.recordChange(ctx, ticket.ID, domain.ChangeTypeAssignee,
		map[string]any{"assigned_to": oldAssignee},
		map[string]any{"assigned_to": ticket.AssignedTo})

	return assignee, nil
}

// notify emails the chosen assignee. No assignee means nothing to do.
func (f *AssignmentFlow) notify(ticket *domain.Ticket, assignee *domain.User) error {
	if assignee == nil {
		return nil
	}
	subject := fmt.Sprintf("New Ticket Assigned: %s", ticket.Title)
	body := fmt.Sprintf(
		"A new ticket has been assigned to you:\n\nTitle: %s\nDescription: %s\nPriority: %s\n\nPlease check the ticket for more details.",
		ticket.Title, ticket.Description, ticket.Priority)
	return f.mail.Send(assignee.Email, subject, body)
}

func (f *AssignmentFlow) findModerator(ctx context.Context, relatedSkills []string) (*domain.User, error) {
	if len(relatedSkills) == 0 {
		return nil, nil
	}

	role := domain.RoleModerator
	moderators, err := f.users.List(ctx, repository.UserFilter{Role: &role, Limit: 1000})
	if err != nil {
		return nil, err
	}

	for i := range moderators {
		if skillsMatch(moderators[i].Skills, relatedSkills) {
			return &moderators[i], nil
		}
	}
	return nil, nil
}

func (f *AssignmentFlow) findAdmin(ctx context.Context) (*domain.User, error) {
	role := domain.RoleAdmin
	admins, err := f.users.List(ctx, repository.UserFilter{Role: &role, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(admins) == 0 {
		return nil, nil
	}
	return &admins[0], nil
}

// skillsMatch reports whether any user skill contains any related skill,
// case-insensitively.
func skillsMatch(userSkills, relatedSkills []string) bool {
	for _, have := range userSkills {
		haveLower := strings.ToLower(have)
		for _, want := range relatedSkills {
			want = strings.ToLower(strings.TrimSpace(want))
			if want == "" {
				continue
			}
			if strings.Contains(haveLower, want) {
				return true
			}
		}
	}
	return false
}

// recordChange appends an audit entry; audit failure never fails the run.
func (f *AssignmentFlow) recordChange(ctx context.Context, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if f.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:   ticketID,
		ChangedBy:  pipelineActor,
		ChangeType: changeType,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
	if err := f.history.Create(ctx, entry); err != nil {
		f.logger.Warn("failed to record ticket history",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(changeType)),
			zap.Error(err))
	}
}
