package dto

import (
	"time"

	"github.com/intakehq/helpdesk/internal/domain"
)

// SignupRequest payload for new users.
type SignupRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Skills   []string `json:"skills"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest payload for admin role/skill updates.
type UpdateUserRequest struct {
	Email  string           `json:"email"`
	Role   *domain.UserRole `json:"role"`
	Skills []string         `json:"skills"`
}

// UserResponse exposes a user's public fields (never the credential hash).
type UserResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Role      domain.UserRole `json:"role"`
	Skills    []string        `json:"skills"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewUserResponse maps a domain user to its public view.
func NewUserResponse(user *domain.User) UserResponse {
	skills := user.Skills
	if skills == nil {
		skills = []string{}
	}
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		Skills:    skills,
		CreatedAt: user.CreatedAt,
	}
}
