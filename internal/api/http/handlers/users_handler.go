package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/intakehq/helpdesk/internal/api/dto"
	"github.com/intakehq/helpdesk/internal/auth"
	"github.com/intakehq/helpdesk/internal/service"
	apperrors "github.com/intakehq/helpdesk/pkg/util"
)

// UsersHandler exposes signup, login and admin user management endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// Signup handles POST /user/signup.
func (h *UsersHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, token, exp, err := h.users.Signup(c.Context(), req.Email, req.Password, req.Skills)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user": dto.NewUserResponse(user),
		"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
	})
}

// Login handles POST /user/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, token, exp, err := h.users.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"user": dto.NewUserResponse(user),
		"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
	})
}

// Logout handles GET /user/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	if err := h.users.Logout(c.Context()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "logout successful"})
}

// List handles GET /user/users (admin only).
func (h *UsersHandler) List(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	users, err := h.users.ListUsers(c.Context(), principal.User)
	if err != nil {
		return err
	}

	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"users": out})
}

// Get handles GET /user/user?email=.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.GetUser(c.Context(), c.Query("email"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": dto.NewUserResponse(user)})
}

// Update handles POST /user/update (admin only).
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	principal, _ := auth.PrincipalFromContext(c)

	user, err := h.users.UpdateUser(c.Context(), principal.User, req.Email, req.Role, req.Skills)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "user updated successfully",
		"user":    dto.NewUserResponse(user),
	})
}
