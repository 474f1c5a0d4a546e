package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/access-portal/internal/api/http/handlers"
	"github.com/spec-kit/access-portal/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Requests       *handlers.RequestsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireSession())
	protected.Post("/auth/logout", cfg.Auth.Logout)
	protected.Get("/auth/me", cfg.Auth.Me)

	protected.Get("/catalog", cfg.Requests.Catalog)
	protected.Post("/requests", cfg.Requests.Submit)
	protected.Get("/requests/status", cfg.Requests.Status)

	admin := protected.Group("/admin", auth.RequireAdmin())
	admin.Get("/requests/pending", cfg.Admin.ListPending)
	admin.Post("/requests/approve-all", cfg.Admin.ApproveAll)
	admin.Post("/requests/approve-all/:role_class", cfg.Admin.ApproveByRoleClass)
	admin.Post("/requests/:id/approve", cfg.Admin.ApproveOne)
	admin.Post("/requests/:id/allocation", cfg.Admin.EditAllocation)
}
