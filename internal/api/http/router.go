package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Metrics     *handlers.MetricsHandler
	Tickets     *handlers.TicketsHandler
	Assignments *handlers.AssignmentsHandler
	Feedback    *handlers.FeedbackHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Snapshot)

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/submit", cfg.Tickets.SubmitTicket)
	tickets.Post("/:id/transition", cfg.Tickets.Transition)
	tickets.Post("/:id/escalate", cfg.Tickets.EscalatePriority)
	tickets.Post("/:id/parts", cfg.Tickets.AddPartUsage)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)

	tickets.Post("/:id/assign", cfg.Assignments.Assign)
	tickets.Post("/:id/unassign", cfg.Assignments.Unassign)

	tickets.Post("/:id/feedback", cfg.Feedback.Submit)
	tickets.Get("/:id/feedback", cfg.Feedback.Get)

	app.Get("/technicians/available", cfg.Assignments.FindAvailable)
}
