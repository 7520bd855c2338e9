package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/redemption-queue/internal/api/http/handlers"
	"github.com/spec-kit/redemption-queue/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Queue          *handlers.QueueHandler
	Admin          *handlers.AdminTicketsHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	queue := app.Group("/queue")
	queue.Post("", cfg.Queue.AddToQueue)
	queue.Get("/display", cfg.Queue.Display)
	queue.Get("/lookup", cfg.Queue.Lookup)

	authGroup := app.Group("/auth")
	authGroup.Post("/admin/login", cfg.Auth.AdminLogin)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(auth.RoleAdmin))
	tickets := admin.Group("/tickets")
	tickets.Get("", cfg.Admin.ListTickets)
	tickets.Get("/stats/problems", cfg.Admin.ProblemStats)
	tickets.Post("/bulk-status", cfg.Admin.BulkStatus)
	tickets.Post("/backfill-links", cfg.Admin.BackfillLinks)
	tickets.Get("/:id", cfg.Admin.GetTicket)
	tickets.Get("/:id/history", cfg.Admin.History)
	tickets.Patch("/:id/status", cfg.Admin.UpdateStatus)
	tickets.Patch("/:id/notes", cfg.Admin.UpdateNotes)
	tickets.Post("/:id/move", cfg.Admin.Move)
	tickets.Delete("/:id", cfg.Admin.Delete)
}
