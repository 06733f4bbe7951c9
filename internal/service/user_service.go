package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/intakehq/helpdesk/internal/auth"
	"github.com/intakehq/helpdesk/internal/config"
	"github.com/intakehq/helpdesk/internal/domain"
	"github.com/intakehq/helpdesk/internal/events"
	"github.com/intakehq/helpdesk/internal/repository"
	apperrors "github.com/intakehq/helpdesk/pkg/util"
)

// UserService coordinates signup, login and admin role/skill management.
type UserService struct {
	users      repository.UserRepository
	bus        events.Bus
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo repository.UserRepository
	Bus      events.Bus
	Logger   *zap.Logger
}

// NewUserService builds the service.
func NewUserService(cfg config.Config, deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		bus:        deps.Bus,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     deps.Logger,
	}
}

// Signup creates a new account with role "user" and issues a token.
func (s *UserService) Signup(ctx context.Context, email, password string, skills []string) (*domain.User, string, time.Time, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("email and password required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewDomainError(
			"USER_EXISTS", "user already exists", http.StatusBadRequest,
			map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	if skills == nil {
		skills = []string{}
	}
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Skills:       skills,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	// fire-and-forget: a lost signup event only costs the welcome mail
	if err := s.bus.Publish(ctx, events.EventUserSignedUp, events.UserSignedUpPayload{Email: user.Email}); err != nil {
		s.logger.Warn("failed to publish signup event", zap.String("email", user.Email), zap.Error(err))
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// Login authenticates by email and password.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// Logout is a stateless acknowledgment; token invalidation is the caller's
// responsibility.
func (s *UserService) Logout(_ context.Context) error {
	return nil
}

// ListUsers returns all users. Admin only.
func (s *UserService) ListUsers(ctx context.Context, caller *domain.User) ([]domain.User, error) {
	if caller == nil || caller.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins can list users")
	}
	return s.users.List(ctx, repository.UserFilter{Limit: 1000})
}

// GetUser looks a user up by email.
func (s *UserService) GetUser(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, apperrors.NewValidationError("email is required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateUser sets role and skills on the target. Admin only. An empty skill
// list leaves the existing skills untouched; a non-empty list replaces them.
func (s *UserService) UpdateUser(ctx context.Context, caller *domain.User, email string, role *domain.UserRole, skills []string) (*domain.User, error) {
	if caller == nil || caller.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins can update users")
	}

	user, err := s.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	if role != nil {
		if !domain.ValidRole(*role) {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *role})
		}
		user.Role = *role
	}
	if len(skills) > 0 {
		user.Skills = skills
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *UserService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
