package domain

import "time"

// UserRole enumerates the roles a user can hold.
type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
)

// ValidRole reports whether role is one of the enumerated values.
func ValidRole(role UserRole) bool {
	switch role {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User is the domain model for everyone in the system: requesters,
// moderators eligible for ticket assignment, and admins.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         UserRole
	Skills       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
