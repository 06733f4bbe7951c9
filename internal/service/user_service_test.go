package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/intakehq/helpdesk/internal/config"
	"github.com/intakehq/helpdesk/internal/domain"
	"github.com/intakehq/helpdesk/internal/events"
	"github.com/intakehq/helpdesk/internal/repository"
	apperrors "github.com/intakehq/helpdesk/pkg/util"
)

type memUserRepo struct {
	users       []domain.User
	createCalls int
	updateCalls int
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.createCalls++
	user.ID = fmt.Sprintf("u%d", len(r.users)+1)
	r.users = append(r.users, *user)
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.updateCalls++
	for i := range r.users {
		if r.users[i].ID == user.ID {
			r.users[i] = *user
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for i := range r.users {
		if r.users[i].ID == id {
			copied := r.users[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for i := range r.users {
		if r.users[i].Email == email {
			copied := r.users[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 5,
			BcryptCost:            4,
		},
	}
}

func newTestUserService(repo *memUserRepo) *UserService {
	return NewUserService(testConfig(), UserDependencies{
		UserRepo: repo,
		Bus:      events.NewInMemoryBus(),
		Logger:   zap.NewNop(),
	})
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return domainErr.HTTPStatus
}

func TestSignupIssuesRoleBearingToken(t *testing.T) {
	repo := &memUserRepo{}
	svc := newTestUserService(repo)

	user, token, _, err := svc.Signup(context.Background(), "alice@example.com", "hunter2", []string{"linux"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected default role user, got %s", user.Role)
	}
	if user.PasswordHash == "hunter2" {
		t.Fatal("password stored unhashed")
	}

	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != domain.RoleUser {
		t.Fatalf("token claims mismatch: %+v", claims)
	}
}

func TestSignupDuplicateEmailWritesNothing(t *testing.T) {
	repo := &memUserRepo{}
	svc := newTestUserService(repo)

	if _, _, _, err := svc.Signup(context.Background(), "alice@example.com", "hunter2", nil); err != nil {
		t.Fatalf("first signup failed: %v", err)
	}
	createsBefore := repo.createCalls

	_, _, _, err := svc.Signup(context.Background(), "alice@example.com", "other", nil)
	if err == nil {
		t.Fatal("expected duplicate signup to fail")
	}
	if status := statusOf(t, err); status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if repo.createCalls != createsBefore {
		t.Fatalf("duplicate signup performed a write: %d -> %d", createsBefore, repo.createCalls)
	}
}

func TestSignupPublishesEvent(t *testing.T) {
	repo := &memUserRepo{}
	bus := events.NewInMemoryBus()

	var got events.UserSignedUpPayload
	delivered := false
	bus.Subscribe(events.EventUserSignedUp, func(_ context.Context, event events.Event) error {
		delivered = true
		return event.DecodePayload(&got)
	})

	svc := NewUserService(testConfig(), UserDependencies{UserRepo: repo, Bus: bus, Logger: zap.NewNop()})
	if _, _, _, err := svc.Signup(context.Background(), "bob@example.com", "pw", nil); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	if !delivered || got.Email != "bob@example.com" {
		t.Fatalf("expected signup event for bob@example.com, delivered=%v payload=%+v", delivered, got)
	}
}

func TestLoginWrongPasswordNeverYieldsToken(t *testing.T) {
	repo := &memUserRepo{}
	svc := newTestUserService(repo)

	if _, _, _, err := svc.Signup(context.Background(), "alice@example.com", "correct", nil); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	_, token, _, err := svc.Login(context.Background(), "alice@example.com", "wrong")
	if err == nil {
		t.Fatal("expected login failure")
	}
	if status := statusOf(t, err); status != 401 {
		t.Fatalf("expected 401, got %d", status)
	}
	if token != "" {
		t.Fatal("token issued despite bad password")
	}
}

func TestLoginUnknownEmailIsNotFound(t *testing.T) {
	svc := newTestUserService(&memUserRepo{})

	_, _, _, err := svc.Login(context.Background(), "ghost@example.com", "pw")
	if status := statusOf(t, err); status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestLoginTokenEmbedsStoredRole(t *testing.T) {
	repo := &memUserRepo{users: []domain.User{}}
	svc := newTestUserService(repo)

	user, _, _, err := svc.Signup(context.Background(), "mod@example.com", "pw", nil)
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	// promote, then login again: the fresh token must carry the new role
	for i := range repo.users {
		if repo.users[i].ID == user.ID {
			repo.users[i].Role = domain.RoleModerator
		}
	}

	_, token, _, err := svc.Login(context.Background(), "mod@example.com", "pw")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	claims, err := svc.TokenManager().ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != domain.RoleModerator {
		t.Fatalf("expected moderator role in token, got %s", claims.Role)
	}
}

func TestUpdateUserRequiresAdmin(t *testing.T) {
	repo := &memUserRepo{users: []domain.User{
		{ID: "u1", Email: "target@example.com", Role: domain.RoleUser},
	}}
	svc := newTestUserService(repo)

	caller := &domain.User{ID: "u2", Role: domain.RoleModerator}
	role := domain.RoleModerator
	_, err := svc.UpdateUser(context.Background(), caller, "target@example.com", &role, nil)
	if status := statusOf(t, err); status != 403 {
		t.Fatalf("expected 403, got %d", status)
	}
	if repo.updateCalls != 0 {
		t.Fatalf("forbidden update performed a write")
	}
}

func TestUpdateUserEmptySkillsLeavesSkillsUntouched(t *testing.T) {
	repo := &memUserRepo{users: []domain.User{
		{ID: "u1", Email: "target@example.com", Role: domain.RoleUser, Skills: []string{"linux", "smtp"}},
	}}
	svc := newTestUserService(repo)
	admin := &domain.User{ID: "a1", Role: domain.RoleAdmin}

	role := domain.RoleModerator
	updated, err := svc.UpdateUser(context.Background(), admin, "target@example.com", &role, []string{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if updated.Role != domain.RoleModerator {
		t.Fatalf("expected role change, got %s", updated.Role)
	}
	if len(updated.Skills) != 2 || updated.Skills[0] != "linux" {
		t.Fatalf("empty skill list must not clear skills, got %v", updated.Skills)
	}
}

func TestUpdateUserNonEmptySkillsReplaces(t *testing.T) {
	repo := &memUserRepo{users: []domain.User{
		{ID: "u1", Email: "target@example.com", Role: domain.RoleModerator, Skills: []string{"linux"}},
	}}
	svc := newTestUserService(repo)
	admin := &domain.User{ID: "a1", Role: domain.RoleAdmin}

	updated, err := svc.UpdateUser(context.Background(), admin, "target@example.com", nil, []string{"networking", "dns"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(updated.Skills) != 2 || updated.Skills[0] != "networking" || updated.Skills[1] != "dns" {
		t.Fatalf("expected full replacement, got %v", updated.Skills)
	}
	if updated.Role != domain.RoleModerator {
		t.Fatalf("role must be unchanged when not provided, got %s", updated.Role)
	}
}

func TestUpdateUserUnknownTargetIsNotFound(t *testing.T) {
	svc := newTestUserService(&memUserRepo{})
	admin := &domain.User{ID: "a1", Role: domain.RoleAdmin}

	_, err := svc.UpdateUser(context.Background(), admin, "ghost@example.com", nil, nil)
	if status := statusOf(t, err); status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestListUsersIsAdminGated(t *testing.T) {
	repo := &memUserRepo{users: []domain.User{
		{ID: "u1", Email: "a@example.com", Role: domain.RoleUser},
		{ID: "u2", Email: "b@example.com", Role: domain.RoleModerator},
	}}
	svc := newTestUserService(repo)

	if _, err := svc.ListUsers(context.Background(), &domain.User{Role: domain.RoleUser}); err == nil {
		t.Fatal("expected non-admin listing to be forbidden")
	}

	users, err := svc.ListUsers(context.Background(), &domain.User{Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestGetUserValidation(t *testing.T) {
	svc := newTestUserService(&memUserRepo{})

	_, err := svc.GetUser(context.Background(), "")
	if status := statusOf(t, err); status != 400 {
		t.Fatalf("expected 400 for missing email, got %d", status)
	}

	_, err = svc.GetUser(context.Background(), "ghost@example.com")
	if status := statusOf(t, err); status != 404 {
		t.Fatalf("expected 404 for unknown email, got %d", status)
	}
}
