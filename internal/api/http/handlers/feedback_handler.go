package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/service"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// FeedbackHandler exposes the one-time customer feedback endpoint.
type FeedbackHandler struct {
	service *service.LifecycleService
}

// NewFeedbackHandler constructs handler.
func NewFeedbackHandler(lifecycle *service.LifecycleService) *FeedbackHandler {
	return &FeedbackHandler{service: lifecycle}
}

// Submit POST /tickets/:id/feedback.
func (h *FeedbackHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.FeedbackInput{
		OverallRating:      req.OverallRating,
		ServiceQuality:     req.ServiceQuality,
		TechnicianBehavior: req.TechnicianBehavior,
		IssueResolved:      req.IssueResolved,
		WouldRecommend:     req.WouldRecommend,
		Comments:           req.Comments,
		PerformedBy:        req.PerformedBy,
	}
	ticket, err := h.service.SubmitFeedback(c.Context(), c.Params("id"), input)
	if err != nil {
		return err
	}
	fb := dto.NewFeedbackResponse(ticket.Feedback)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fb})
}

// Get GET /tickets/:id/feedback.
func (h *FeedbackHandler) Get(c *fiber.Ctx) error {
	snap, err := h.service.GetSnapshot(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if snap.Ticket.Feedback == nil {
		return apperrors.NewNotFound("feedback", nil)
	}
	return c.JSON(fiber.Map{"data": dto.NewFeedbackResponse(snap.Ticket.Feedback)})
}
