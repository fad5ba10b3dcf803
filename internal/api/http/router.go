package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/intranet-hub/portal-service/internal/api/http/handlers"
	"github.com/intranet-hub/portal-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	Reports        *handlers.ReportsHandler
	Settings       *handlers.SettingsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Patch("/:id/priority", cfg.Tickets.ChangePriority)
	tickets.Patch("/:id/category", cfg.Tickets.ChangeCategory)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/assignees", cfg.Tickets.Assign)
	tickets.Delete("/:id/assignees/:userId", cfg.Tickets.Unassign)
	tickets.Patch("/:id/sla/resolution-due", cfg.Tickets.OverrideDue)
	tickets.Get("/:id/events", cfg.Tickets.ListEvents)

	notifications := api.Group("/notifications")
	notifications.Get("/", cfg.Notifications.List)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)

	reports := api.Group("/reports", auth.RequireAnyCoordinator())
	reports.Get("/dashboard", cfg.Reports.Dashboard)
	reports.Get("/wip", cfg.Reports.WIP)
	reports.Get("/throughput", cfg.Reports.Throughput)
	reports.Get("/backlog", cfg.Reports.Backlog)

	admin := api.Group("/admin", auth.RequireGlobalAdmin())
	admin.Get("/settings", cfg.Settings.List)
	admin.Put("/settings/notifications", cfg.Settings.NotificationToggle)
	admin.Put("/settings/:key", cfg.Settings.Put)
	admin.Get("/sla-policies", cfg.Settings.SLAPolicies)
	admin.Get("/audit-log", cfg.Settings.AuditLog)
}
