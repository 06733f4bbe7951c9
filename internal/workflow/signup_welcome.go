package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/intakehq/helpdesk/internal/domain"
	"github.com/intakehq/helpdesk/internal/events"
	"github.com/intakehq/helpdesk/internal/mailer"
	"github.com/intakehq/helpdesk/internal/repository"
)

// WelcomeFlow greets freshly signed-up users by email.
type WelcomeFlow struct {
	users  repository.UserRepository
	mail   mailer.Sender
	runner *Runner
}

// NewWelcomeFlow creates the flow.
func NewWelcomeFlow(users repository.UserRepository, mail mailer.Sender, runner *Runner) *WelcomeFlow {
	return &WelcomeFlow{users: users, mail: mail, runner: runner}
}

// Register subscribes the flow to signup events.
func (f *WelcomeFlow) Register(bus events.Bus) {
	bus.Subscribe(events.EventUserSignedUp, f.HandleUserSignedUp)
}

// HandleUserSignedUp sends the welcome mail for one signup event.
func (f *WelcomeFlow) HandleUserSignedUp(ctx context.Context, event events.Event) error {
	var payload events.UserSignedUpPayload
	if err := event.DecodePayload(&payload); err != nil {
		return fmt.Errorf("decode user.signedup payload: %w", err)
	}

	run := f.runner.NewRun("signup-welcome", event.ID)

	user, err := Step(ctx, run, "fetch-user", func(ctx context.Context) (*domain.User, error) {
		user, err := f.users.GetByEmail(ctx, payload.Email)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, NonRetriable(fmt.Errorf("user %s not found", payload.Email))
			}
			return nil, err
		}
		return user, nil
	})
	if err != nil {
		return err
	}

	_, err = Step(ctx, run, "send-welcome-email", func(ctx context.Context) (struct{}, error) {
		subject := "Welcome to the Ticketing System"
		body := fmt.Sprintf("Hello %s,\n\nThank you for signing up! We're excited to have you on board.", user.Email)
		return struct{}{}, f.mail.Send(user.Email, subject, body)
	})
	return err
}
