package domain

import "time"

// TicketStatus enumerates lifecycle states for service tickets.
type TicketStatus string

const (
	TicketStatusDraft         TicketStatus = "DRAFT"
	TicketStatusPending       TicketStatus = "PENDING"
	TicketStatusAssigned      TicketStatus = "ASSIGNED"
	TicketStatusScheduled     TicketStatus = "SCHEDULED"
	TicketStatusEnRoute       TicketStatus = "EN_ROUTE"
	TicketStatusInProgress    TicketStatus = "IN_PROGRESS"
	TicketStatusPartsRequired TicketStatus = "PARTS_REQUIRED"
	TicketStatusOnHold        TicketStatus = "ON_HOLD"
	TicketStatusCompleted     TicketStatus = "COMPLETED"
	TicketStatusClosed        TicketStatus = "CLOSED"
	TicketStatusCancelled     TicketStatus = "CANCELLED"
	TicketStatusReopened      TicketStatus = "REOPENED"
)

// IsTerminal reports whether no outgoing transitions are defined for s.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed || s == TicketStatusCancelled
}

// ServiceType enumerates the kinds of field-service work a ticket covers.
type ServiceType string

const (
	ServiceTypeInstallation          ServiceType = "INSTALLATION"
	ServiceTypeWarrantyRepair        ServiceType = "WARRANTY_REPAIR"
	ServiceTypePaidRepair            ServiceType = "PAID_REPAIR"
	ServiceTypeAMCService            ServiceType = "AMC_SERVICE"
	ServiceTypeDemo                  ServiceType = "DEMO"
	ServiceTypePreventiveMaintenance ServiceType = "PREVENTIVE_MAINTENANCE"
	ServiceTypeComplaint             ServiceType = "COMPLAINT"
	ServiceTypeFilterChange          ServiceType = "FILTER_CHANGE"
	ServiceTypeInspection            ServiceType = "INSPECTION"
	ServiceTypeUninstallation        ServiceType = "UNINSTALLATION"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityNormal   TicketPriority = "NORMAL"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityUrgent   TicketPriority = "URGENT"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

var priorityRank = map[TicketPriority]int{
	TicketPriorityLow:      0,
	TicketPriorityNormal:   1,
	TicketPriorityHigh:     2,
	TicketPriorityUrgent:   3,
	TicketPriorityCritical: 4,
}

// Outranks reports whether p is strictly more urgent than other.
func (p TicketPriority) Outranks(other TicketPriority) bool {
	return priorityRank[p] > priorityRank[other]
}

// IsValid reports whether p is a known priority.
func (p TicketPriority) IsValid() bool {
	_, ok := priorityRank[p]
	return ok
}

// ServiceTicket is the aggregate root for one field-service request.
// The ticket store owns it; the lifecycle engine is the only writer.
type ServiceTicket struct {
	ID           string
	TicketNumber string
	Type         ServiceType
	Priority     TicketPriority
	Status       TicketStatus

	CustomerID         string
	CustomerName       string
	Phone              string
	Address            string
	PostalCode         string
	ProblemDescription string

	AssignedTechnicianID *string
	ScheduledDate        *time.Time
	TimeSlot             *string

	SLAStartedAt *time.Time
	SLADueAt     *time.Time
	SLABreached  bool
	SLAFrozen    bool

	VisitCount int

	Diagnosis  string
	Resolution string
	ActualCost float64

	PartsUsed []PartUsage
	Feedback  *Feedback
	History   []HistoryEntry

	// Version guards against concurrent writers; the store rejects a save
	// whose version does not match the stored row.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasReachedWorkSite reports whether a technician already started work on this
// ticket at least once. Used to count repeat visits when the ticket loops back
// through SCHEDULED.
func (t *ServiceTicket) HasReachedWorkSite() bool {
	for _, entry := range t.History {
		switch entry.ToStatus {
		case TicketStatusInProgress, TicketStatusPartsRequired, TicketStatusOnHold:
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the ticket for use as a read snapshot or as the
// working copy during a transition.
func (t *ServiceTicket) Clone() *ServiceTicket {
	copied := *t
	if t.AssignedTechnicianID != nil {
		id := *t.AssignedTechnicianID
		copied.AssignedTechnicianID = &id
	}
	if t.ScheduledDate != nil {
		d := *t.ScheduledDate
		copied.ScheduledDate = &d
	}
	if t.TimeSlot != nil {
		slot := *t.TimeSlot
		copied.TimeSlot = &slot
	}
	if t.SLAStartedAt != nil {
		started := *t.SLAStartedAt
		copied.SLAStartedAt = &started
	}
	if t.SLADueAt != nil {
		due := *t.SLADueAt
		copied.SLADueAt = &due
	}
	if t.Feedback != nil {
		fb := *t.Feedback
		copied.Feedback = &fb
	}
	copied.PartsUsed = append([]PartUsage(nil), t.PartsUsed...)
	copied.History = append([]HistoryEntry(nil), t.History...)
	return &copied
}
