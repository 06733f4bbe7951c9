package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/intakehq/helpdesk/internal/api/http/handlers"
	"github.com/intakehq/helpdesk/internal/auth"
	"github.com/intakehq/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	userGroup := app.Group("/user")
	userGroup.Post("/signup", cfg.Users.Signup)
	userGroup.Post("/login", cfg.Users.Login)

	userProtected := userGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	userProtected.Get("/logout", cfg.Users.Logout)
	userProtected.Get("/user", cfg.Users.Get)
	userProtected.Get("/users", auth.RequireRole(domain.RoleAdmin), cfg.Users.List)
	userProtected.Post("/update", auth.RequireRole(domain.RoleAdmin), cfg.Users.Update)

	ticketGroup := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	ticketGroup.Post("/", cfg.Tickets.Create)
	ticketGroup.Get("/", cfg.Tickets.List)
	ticketGroup.Get("/:id", cfg.Tickets.Get)
	ticketGroup.Get("/:id/history", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.History)
}
