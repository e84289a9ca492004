package dto

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/service"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ServiceType        domain.ServiceType    `json:"service_type" validate:"required"`
	Priority           domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT CRITICAL"`
	CustomerID         string                `json:"customer_id"`
	CustomerName       string                `json:"customer_name" validate:"required"`
	Phone              string                `json:"phone" validate:"required"`
	Address            string                `json:"address"`
	PostalCode         string                `json:"postal_code" validate:"required"`
	ProblemDescription string                `json:"problem_description"`
	Draft              bool                  `json:"draft"`
	TechnicianID       string                `json:"technician_id"`
	PerformedBy        string                `json:"performed_by"`
}

// TransitionRequest payload for POST /tickets/:id/transition.
type TransitionRequest struct {
	ToStatus      domain.TicketStatus `json:"to_status" validate:"required"`
	Notes         string              `json:"notes"`
	Reason        string              `json:"reason"`
	Diagnosis     string              `json:"diagnosis"`
	Resolution    string              `json:"resolution"`
	ActualCost    float64             `json:"actual_cost" validate:"gte=0"`
	TechnicianID  string              `json:"technician_id"`
	ScheduledDate *time.Time          `json:"scheduled_date"`
	TimeSlot      *string             `json:"time_slot"`
	PerformedBy   string              `json:"performed_by"`
}

// EscalatePriorityRequest payload.
type EscalatePriorityRequest struct {
	Priority    domain.TicketPriority `json:"priority" validate:"required,oneof=LOW NORMAL HIGH URGENT CRITICAL"`
	PerformedBy string                `json:"performed_by"`
}

// PartUsageRequest payload.
type PartUsageRequest struct {
	PartID      string  `json:"part_id" validate:"required"`
	PartName    string  `json:"part_name"`
	PartCode    string  `json:"part_code"`
	Quantity    int     `json:"quantity" validate:"required"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	IsWarranty  bool    `json:"is_warranty"`
	PerformedBy string  `json:"performed_by"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string                `json:"id"`
	TicketNumber string                `json:"ticket_number"`
	ServiceType  domain.ServiceType    `json:"service_type"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	CustomerName string                `json:"customer_name"`
	PostalCode   string                `json:"postal_code"`
	TechnicianID *string               `json:"technician_id,omitempty"`
	SLADueAt     *time.Time            `json:"sla_due_at,omitempty"`
	VisitCount   int                   `json:"visit_count"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info plus derived read state.
type TicketDetailResponse struct {
	TicketSummary
	Phone              string                `json:"phone"`
	Address            string                `json:"address"`
	ProblemDescription string                `json:"problem_description"`
	ScheduledDate      *time.Time            `json:"scheduled_date,omitempty"`
	TimeSlot           *string               `json:"time_slot,omitempty"`
	SLABreached        bool                  `json:"sla_breached"`
	Diagnosis          string                `json:"diagnosis,omitempty"`
	Resolution         string                `json:"resolution,omitempty"`
	ActualCost         float64               `json:"actual_cost"`
	ChargeableTotal    float64               `json:"chargeable_total"`
	AllowedTransitions []domain.TicketStatus `json:"allowed_transitions"`
	PartsUsed          []PartUsageResponse   `json:"parts_used"`
	Feedback           *FeedbackResponse     `json:"feedback,omitempty"`
	History            []HistoryResponse     `json:"history"`
}

// PartUsageResponse is one ledger line.
type PartUsageResponse struct {
	ID         string    `json:"id"`
	PartID     string    `json:"part_id"`
	PartName   string    `json:"part_name"`
	PartCode   string    `json:"part_code"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	IsWarranty bool      `json:"is_warranty"`
	LineTotal  float64   `json:"line_total"`
	RecordedAt time.Time `json:"recorded_at"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID          string               `json:"id"`
	Action      domain.HistoryAction `json:"action"`
	FromStatus  domain.TicketStatus  `json:"from_status,omitempty"`
	ToStatus    domain.TicketStatus  `json:"to_status,omitempty"`
	Notes       string               `json:"notes,omitempty"`
	PerformedBy string               `json:"performed_by,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

// NewTicketSummary maps a domain ticket to its summary projection.
func NewTicketSummary(ticket *domain.ServiceTicket) TicketSummary {
	return TicketSummary{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		ServiceType:  ticket.Type,
		Priority:     ticket.Priority,
		Status:       ticket.Status,
		CustomerName: ticket.CustomerName,
		PostalCode:   ticket.PostalCode,
		TechnicianID: ticket.AssignedTechnicianID,
		SLADueAt:     ticket.SLADueAt,
		VisitCount:   ticket.VisitCount,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

// NewTicketDetail maps an engine snapshot to the detail projection.
func NewTicketDetail(snap *service.TicketSnapshot) TicketDetailResponse {
	ticket := snap.Ticket
	detail := TicketDetailResponse{
		TicketSummary:      NewTicketSummary(ticket),
		Phone:              ticket.Phone,
		Address:            ticket.Address,
		ProblemDescription: ticket.ProblemDescription,
		ScheduledDate:      ticket.ScheduledDate,
		TimeSlot:           ticket.TimeSlot,
		SLABreached:        snap.SLABreached,
		Diagnosis:          ticket.Diagnosis,
		Resolution:         ticket.Resolution,
		ActualCost:         ticket.ActualCost,
		ChargeableTotal:    snap.ChargeableTotal,
		AllowedTransitions: snap.AllowedTransitions,
		PartsUsed:          make([]PartUsageResponse, 0, len(ticket.PartsUsed)),
		History:            make([]HistoryResponse, 0, len(ticket.History)),
	}
	for _, usage := range ticket.PartsUsed {
		detail.PartsUsed = append(detail.PartsUsed, PartUsageResponse{
			ID:         usage.ID,
			PartID:     usage.PartID,
			PartName:   usage.PartName,
			PartCode:   usage.PartCode,
			Quantity:   usage.Quantity,
			UnitPrice:  usage.UnitPrice,
			IsWarranty: usage.IsWarranty,
			LineTotal:  usage.LineTotal(),
			RecordedAt: usage.RecordedAt,
		})
	}
	if ticket.Feedback != nil {
		fb := NewFeedbackResponse(ticket.Feedback)
		detail.Feedback = &fb
	}
	for _, entry := range ticket.History {
		detail.History = append(detail.History, NewHistoryResponse(entry))
	}
	return detail
}

// NewHistoryResponse maps one audit entry.
func NewHistoryResponse(entry domain.HistoryEntry) HistoryResponse {
	return HistoryResponse{
		ID:          entry.ID,
		Action:      entry.Action,
		FromStatus:  entry.FromStatus,
		ToStatus:    entry.ToStatus,
		Notes:       entry.Notes,
		PerformedBy: entry.PerformedBy,
		Timestamp:   entry.Timestamp,
	}
}
