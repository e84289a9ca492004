package events

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated           EventType = "ticket_created"
	EventTicketStatusChanged     EventType = "ticket_status_changed"
	EventTicketAssigned          EventType = "ticket_assigned"
	EventTicketPriorityEscalated EventType = "ticket_priority_escalated"
	EventTicketPartsAdded        EventType = "ticket_parts_added"
	EventTicketFeedbackSubmitted EventType = "ticket_feedback_submitted"
)

// Event represents a domain event emitted after a successful mutation.
// Dispatch is best-effort; delivery failures never fail the mutation.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	TicketID     string      `json:"ticket_id"`
	TicketNumber string      `json:"ticket_number"`
	PerformedBy  string      `json:"performed_by"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ServiceType   domain.ServiceType    `json:"service_type"`
	Priority      domain.TicketPriority `json:"priority"`
	Status        domain.TicketStatus   `json:"status"`
	CustomerPhone string                `json:"customer_phone"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus     domain.TicketStatus `json:"old_status"`
	NewStatus     domain.TicketStatus `json:"new_status"`
	Notes         string              `json:"notes,omitempty"`
	CustomerPhone string              `json:"customer_phone"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	TechnicianID  string     `json:"technician_id"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	TimeSlot      *string    `json:"time_slot,omitempty"`
	CustomerPhone string     `json:"customer_phone"`
}

// TicketPriorityEscalatedPayload payload.
type TicketPriorityEscalatedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketPartsAddedPayload payload.
type TicketPartsAddedPayload struct {
	PartID          string  `json:"part_id"`
	PartName        string  `json:"part_name"`
	Quantity        int     `json:"quantity"`
	IsWarranty      bool    `json:"is_warranty"`
	ChargeableTotal float64 `json:"chargeable_total"`
}

// TicketFeedbackSubmittedPayload payload.
type TicketFeedbackSubmittedPayload struct {
	OverallRating int  `json:"overall_rating"`
	IssueResolved bool `json:"issue_resolved"`
}
