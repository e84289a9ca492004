package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	"github.com/spec-kit/field-service/internal/service"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// TicketsHandler manages the ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.LifecycleService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService) *TicketsHandler {
	return &TicketsHandler{service: lifecycle}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.TicketCreateInput{
		Type:               req.ServiceType,
		Priority:           req.Priority,
		CustomerID:         req.CustomerID,
		CustomerName:       req.CustomerName,
		Phone:              req.Phone,
		Address:            req.Address,
		PostalCode:         req.PostalCode,
		ProblemDescription: req.ProblemDescription,
		Draft:              req.Draft,
		TechnicianID:       req.TechnicianID,
		PerformedBy:        req.PerformedBy,
	}
	ticket, err := h.service.CreateTicket(c.Context(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	tickets, err := h.service.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id. A raw ticket number (SRV-...) is accepted in
// place of the id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ref := c.Params("id")
	var (
		snap *service.TicketSnapshot
		err  error
	)
	if strings.HasPrefix(ref, "SRV-") {
		snap, err = h.service.GetSnapshotByNumber(c.Context(), ref)
	} else {
		snap, err = h.service.GetSnapshot(c.Context(), ref)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(snap)})
}

// SubmitTicket POST /tickets/:id/submit moves a draft into the live queue.
func (h *TicketsHandler) SubmitTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Submit(c.Context(), c.Params("id"), performedBy(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Transition POST /tickets/:id/transition.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.TransitionInput{
		To:            req.ToStatus,
		PerformedBy:   req.PerformedBy,
		Notes:         req.Notes,
		Reason:        req.Reason,
		Diagnosis:     req.Diagnosis,
		Resolution:    req.Resolution,
		ActualCost:    req.ActualCost,
		TechnicianID:  req.TechnicianID,
		ScheduledDate: req.ScheduledDate,
		TimeSlot:      req.TimeSlot,
	}
	ticket, err := h.service.Transition(c.Context(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// EscalatePriority POST /tickets/:id/escalate.
func (h *TicketsHandler) EscalatePriority(c *fiber.Ctx) error {
	var req dto.EscalatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.service.EscalatePriority(c.Context(), c.Params("id"), req.Priority, req.PerformedBy)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// AddPartUsage POST /tickets/:id/parts.
func (h *TicketsHandler) AddPartUsage(c *fiber.Ctx) error {
	var req dto.PartUsageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.PartUsageInput{
		PartID:      req.PartID,
		PartName:    req.PartName,
		PartCode:    req.PartCode,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		IsWarranty:  req.IsWarranty,
		PerformedBy: req.PerformedBy,
	}
	ticket, err := h.service.AddPartUsage(c.Context(), c.Params("id"), input)
	if err != nil {
		return err
	}
	snap, err := h.service.GetSnapshot(c.Context(), ticket.ID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketDetail(snap)})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	entries, err := h.service.ListHistory(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewHistoryResponse(entry))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if typeStr := c.Query("service_type"); typeStr != "" {
		for _, part := range strings.Split(typeStr, ",") {
			filter.Types = append(filter.Types, domain.ServiceType(strings.TrimSpace(part)))
		}
	}
	if techID := c.Query("technician_id"); techID != "" {
		filter.TechnicianID = &techID
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		filter.CustomerID = &customerID
	}
	if postalCode := c.Query("postal_code"); postalCode != "" {
		filter.PostalCode = &postalCode
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func performedBy(c *fiber.Ctx) string {
	var body struct {
		PerformedBy string `json:"performed_by"`
	}
	if err := c.BodyParser(&body); err != nil {
		return ""
	}
	return body.PerformedBy
}
