package domain

import "time"

// HistoryAction labels what a history entry records.
type HistoryAction string

const (
	HistoryActionCreated           HistoryAction = "CREATED"
	HistoryActionSubmitted         HistoryAction = "SUBMITTED"
	HistoryActionStatusChanged     HistoryAction = "STATUS_CHANGED"
	HistoryActionAssigned          HistoryAction = "ASSIGNED"
	HistoryActionUnassigned        HistoryAction = "UNASSIGNED"
	HistoryActionPriorityEscalated HistoryAction = "PRIORITY_ESCALATED"
	HistoryActionPartAdded         HistoryAction = "PART_ADDED"
	HistoryActionFeedbackSubmitted HistoryAction = "FEEDBACK_SUBMITTED"
)

// HistoryEntry is one immutable record in a ticket's append-only audit trail.
type HistoryEntry struct {
	ID          string
	TicketID    string
	Action      HistoryAction
	FromStatus  TicketStatus
	ToStatus    TicketStatus
	Notes       string
	PerformedBy string
	Timestamp   time.Time
}
