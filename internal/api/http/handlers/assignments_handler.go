package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/service"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// AssignmentsHandler exposes technician assignment endpoints.
type AssignmentsHandler struct {
	service     *service.LifecycleService
	coordinator *service.AssignmentCoordinator
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(lifecycle *service.LifecycleService, coordinator *service.AssignmentCoordinator) *AssignmentsHandler {
	return &AssignmentsHandler{service: lifecycle, coordinator: coordinator}
}

// Assign POST /tickets/:id/assign.
func (h *AssignmentsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.AssignInput{
		TechnicianID:  req.TechnicianID,
		ScheduledDate: req.ScheduledDate,
		TimeSlot:      req.TimeSlot,
		PerformedBy:   req.PerformedBy,
	}
	ticket, err := h.service.Assign(c.Context(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Unassign POST /tickets/:id/unassign returns the ticket to the pending
// queue.
func (h *AssignmentsHandler) Unassign(c *fiber.Ctx) error {
	var req dto.UnassignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Unassign(c.Context(), c.Params("id"), req.PerformedBy)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// FindAvailable GET /technicians/available?postal_code=...
func (h *AssignmentsHandler) FindAvailable(c *fiber.Ctx) error {
	postalCode := c.Query("postal_code")
	if postalCode == "" {
		return apperrors.NewValidationError("postal_code required", nil)
	}
	technicians, err := h.coordinator.FindAvailable(c.Context(), postalCode)
	if err != nil {
		return err
	}
	items := make([]dto.TechnicianResponse, 0, len(technicians))
	for _, tech := range technicians {
		items = append(items, dto.NewTechnicianResponse(tech))
	}
	return c.JSON(fiber.Map{"data": items})
}
