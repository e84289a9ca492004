package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/locks"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// LifecycleService is the single mutation gateway for service tickets. Every
// command (status change, assignment, parts usage, feedback) passes through
// it, is validated against the guard table, and commits atomically or not at
// all.
type LifecycleService struct {
	tickets     repository.TicketRepository
	coordinator *AssignmentCoordinator
	locker      locks.TicketLocker
	dispatcher  events.Dispatcher
	now         func() time.Time
}

// LifecycleDependencies bundles collaborators for the engine.
type LifecycleDependencies struct {
	TicketRepo  repository.TicketRepository
	Coordinator *AssignmentCoordinator
	Locker      locks.TicketLocker
	Dispatcher  events.Dispatcher
	// Clock overrides the wall clock; tests use it to pin SLA evaluation.
	Clock func() time.Time
}

// NewLifecycleService constructs the engine.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	locker := deps.Locker
	if locker == nil {
		locker = locks.NewKeyedMutex()
	}
	return &LifecycleService{
		tickets:     deps.TicketRepo,
		coordinator: deps.Coordinator,
		locker:      locker,
		dispatcher:  deps.Dispatcher,
		now:         now,
	}
}

// TicketCreateInput describes intake payload.
type TicketCreateInput struct {
	Type               domain.ServiceType
	Priority           domain.TicketPriority
	CustomerID         string
	CustomerName       string
	Phone              string
	Address            string
	PostalCode         string
	ProblemDescription string
	// Draft intakes stay editable until submitted.
	Draft bool
	// TechnicianID assigns directly at creation; the SLA clock then starts
	// at the creation timestamp.
	TechnicianID string
	PerformedBy  string
}

// TransitionInput carries a status-change command and its payload.
type TransitionInput struct {
	To          domain.TicketStatus
	PerformedBy string
	Notes       string

	// Cancellation.
	Reason string

	// Completion.
	Diagnosis  string
	Resolution string
	ActualCost float64

	// Assignment.
	TechnicianID string

	// Scheduling.
	ScheduledDate *time.Time
	TimeSlot      *string
}

// TicketSnapshot is an immutable read model of one ticket. The SLA breach
// flag is evaluated at read time while the clock is running and frozen after
// completion or cancellation.
type TicketSnapshot struct {
	Ticket             *domain.ServiceTicket
	SLABreached        bool
	ChargeableTotal    float64
	AllowedTransitions []domain.TicketStatus
}

// CreateTicket registers a new service request. Intake starts at PENDING, or
// DRAFT for not-yet-submitted requests.
func (s *LifecycleService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.ServiceTicket, error) {
	if input.Type == "" {
		return nil, apperrors.NewValidationError("service type required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityNormal
	}
	if !priority.IsValid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	if input.Draft && input.TechnicianID != "" {
		return nil, apperrors.NewValidationError("draft tickets cannot be assigned", nil)
	}

	now := s.now()
	ticket := &domain.ServiceTicket{
		TicketNumber:       generateTicketNumber(),
		Type:               input.Type,
		Priority:           priority,
		Status:             domain.TicketStatusPending,
		CustomerID:         input.CustomerID,
		CustomerName:       input.CustomerName,
		Phone:              strings.TrimSpace(input.Phone),
		Address:            strings.TrimSpace(input.Address),
		PostalCode:         strings.TrimSpace(input.PostalCode),
		ProblemDescription: strings.TrimSpace(input.ProblemDescription),
		VisitCount:         1,
	}
	if input.Draft {
		ticket.Status = domain.TicketStatusDraft
	}
	s.appendHistory(ticket, domain.HistoryActionCreated, "", ticket.Status, "", input.PerformedBy)

	if input.TechnicianID != "" {
		if err := s.coordinator.Vet(ctx, input.TechnicianID, ticket.PostalCode); err != nil {
			return nil, err
		}
		techID := input.TechnicianID
		ticket.AssignedTechnicianID = &techID
		ticket.Status = domain.TicketStatusAssigned
		s.startSLAClock(ticket, now)
		s.appendHistory(ticket, domain.HistoryActionAssigned, domain.TicketStatusPending, domain.TicketStatusAssigned, "assigned at intake", input.PerformedBy)
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.Event{
		Type:         events.EventTicketCreated,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		PerformedBy:  input.PerformedBy,
		Payload: events.TicketCreatedPayload{
			ServiceType:   ticket.Type,
			Priority:      ticket.Priority,
			Status:        ticket.Status,
			CustomerPhone: ticket.Phone,
		},
	})
	return ticket, nil
}

// Submit moves a DRAFT ticket into the guarded lifecycle. This is the one
// unguarded transition: drafts are intake artifacts, not work items.
func (s *LifecycleService) Submit(ctx context.Context, ticketID, performedBy string) (*domain.ServiceTicket, error) {
	release, err := s.locker.Lock(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer release()

	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusDraft {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(domain.TicketStatusPending))
	}
	working := ticket.Clone()
	working.Status = domain.TicketStatusPending
	s.appendHistory(working, domain.HistoryActionSubmitted, domain.TicketStatusDraft, domain.TicketStatusPending, "", performedBy)

	if err := s.save(ctx, working); err != nil {
		return nil, err
	}
	s.publishStatusChange(ctx, working, domain.TicketStatusDraft, "", performedBy)
	return working, nil
}

// Transition validates and applies one status change. Guard evaluation, side
// effects and the history append commit as a single unit; a failed transition
// leaves the persisted ticket untouched.
func (s *LifecycleService) Transition(ctx context.Context, ticketID string, input TransitionInput) (*domain.ServiceTicket, error) {
	release, err := s.locker.Lock(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer release()

	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if input.To == ticket.Status {
		return nil, apperrors.NewNoOpTransition(string(ticket.Status))
	}
	if !isAllowedTransition(ticket.Status, input.To) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(input.To))
	}

	working := ticket.Clone()
	from := working.Status
	action := domain.HistoryActionStatusChanged
	notes := strings.TrimSpace(input.Notes)

	switch input.To {
	case domain.TicketStatusAssigned:
		if from == domain.TicketStatusPending || from == domain.TicketStatusReopened {
			if err := s.applyAssignment(ctx, working, input); err != nil {
				return nil, err
			}
			action = domain.HistoryActionAssigned
		}
		// SCHEDULED -> ASSIGNED is a reschedule: drop the booked slot so the
		// next scheduling supplies a fresh one.
		if from == domain.TicketStatusScheduled {
			working.ScheduledDate = nil
			working.TimeSlot = nil
		}

	case domain.TicketStatusPending:
		// ASSIGNED -> PENDING is an unassign.
		working.AssignedTechnicianID = nil
		action = domain.HistoryActionUnassigned

	case domain.TicketStatusScheduled:
		if input.ScheduledDate != nil {
			working.ScheduledDate = input.ScheduledDate
		}
		if input.TimeSlot != nil {
			working.TimeSlot = input.TimeSlot
		}
		if working.ScheduledDate == nil {
			return nil, apperrors.NewValidationError("scheduled_date required", map[string]any{"to_status": input.To})
		}

	case domain.TicketStatusEnRoute:
		if working.HasReachedWorkSite() {
			working.VisitCount++
		}

	case domain.TicketStatusCompleted:
		if strings.TrimSpace(input.Diagnosis) == "" {
			return nil, apperrors.NewMissingCompletionData("diagnosis")
		}
		if strings.TrimSpace(input.Resolution) == "" {
			return nil, apperrors.NewMissingCompletionData("resolution")
		}
		working.Diagnosis = strings.TrimSpace(input.Diagnosis)
		working.Resolution = strings.TrimSpace(input.Resolution)
		working.ActualCost = input.ActualCost
		if working.ActualCost == 0 {
			working.ActualCost = working.ChargeableTotal()
		}
		s.freezeSLAClock(working)

	case domain.TicketStatusCancelled:
		if strings.TrimSpace(input.Reason) == "" {
			return nil, apperrors.NewValidationError("cancellation reason required", map[string]any{"to_status": input.To})
		}
		notes = strings.TrimSpace(input.Reason)
		s.freezeSLAClock(working)

	case domain.TicketStatusReopened:
		// Diagnosis, recorded cost and any feedback are retained as audit
		// evidence of the disputed closure; only the resolution is cleared
		// for re-diagnosis.
		working.Resolution = ""
	}

	working.Status = input.To
	s.appendHistory(working, action, from, input.To, notes, input.PerformedBy)

	if err := s.save(ctx, working); err != nil {
		return nil, err
	}

	if action == domain.HistoryActionAssigned && working.AssignedTechnicianID != nil {
		s.publish(ctx, events.Event{
			Type:         events.EventTicketAssigned,
			TicketID:     working.ID,
			TicketNumber: working.TicketNumber,
			PerformedBy:  input.PerformedBy,
			Payload: events.TicketAssignedPayload{
				TechnicianID:  *working.AssignedTechnicianID,
				ScheduledDate: working.ScheduledDate,
				TimeSlot:      working.TimeSlot,
				CustomerPhone: working.Phone,
			},
		})
	}
	s.publishStatusChange(ctx, working, from, notes, input.PerformedBy)
	return working, nil
}

// applyAssignment runs the PENDING/REOPENED -> ASSIGNED side effects: the
// coordinator vets the technician and the SLA clock starts if it has not.
func (s *LifecycleService) applyAssignment(ctx context.Context, working *domain.ServiceTicket, input TransitionInput) error {
	if strings.TrimSpace(input.TechnicianID) == "" {
		return apperrors.NewValidationError("technician_id required", map[string]any{"to_status": domain.TicketStatusAssigned})
	}
	if err := s.coordinator.Vet(ctx, input.TechnicianID, working.PostalCode); err != nil {
		return err
	}
	techID := input.TechnicianID
	working.AssignedTechnicianID = &techID
	if input.ScheduledDate != nil {
		working.ScheduledDate = input.ScheduledDate
	}
	if input.TimeSlot != nil {
		working.TimeSlot = input.TimeSlot
	}
	if working.SLADueAt == nil {
		s.startSLAClock(working, s.now())
	}
	return nil
}

// EscalatePriority raises urgency. The engine never downgrades a priority;
// de-escalation requests are rejected outright.
func (s *LifecycleService) EscalatePriority(ctx context.Context, ticketID string, newPriority domain.TicketPriority, performedBy string) (*domain.ServiceTicket, error) {
	if !newPriority.IsValid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": newPriority})
	}

	release, err := s.locker.Lock(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer release()

	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket is in a terminal state", map[string]any{"status": ticket.Status})
	}
	if !newPriority.Outranks(ticket.Priority) {
		return nil, apperrors.NewValidationError("priority can only be escalated", map[string]any{
			"current_priority":   ticket.Priority,
			"requested_priority": newPriority,
		})
	}

	working := ticket.Clone()
	oldPriority := working.Priority
	working.Priority = newPriority
	// A running clock tightens to the new priority's window, measured from
	// the original clock start.
	if working.SLADueAt != nil && !working.SLAFrozen && working.SLAStartedAt != nil {
		due := domain.ComputeSLADueAt(working.Type, newPriority, *working.SLAStartedAt)
		working.SLADueAt = &due
	}
	s.appendHistory(working, domain.HistoryActionPriorityEscalated, working.Status, working.Status,
		string(oldPriority)+" -> "+string(newPriority), performedBy)

	if err := s.save(ctx, working); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:         events.EventTicketPriorityEscalated,
		TicketID:     working.ID,
		TicketNumber: working.TicketNumber,
		PerformedBy:  performedBy,
		Payload: events.TicketPriorityEscalatedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return working, nil
}

// GetSnapshot returns an immutable read model. Callers may hold it without
// locking; it never aliases stored state.
func (s *LifecycleService) GetSnapshot(ctx context.Context, ticketID string) (*TicketSnapshot, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ticket), nil
}

// GetSnapshotByNumber resolves the human-readable ticket number.
func (s *LifecycleService) GetSnapshotByNumber(ctx context.Context, number string) (*TicketSnapshot, error) {
	ticket, err := s.tickets.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_number": number})
		}
		return nil, apperrors.MapError(err)
	}
	return s.snapshot(ticket), nil
}

// ListTickets returns filtered ticket summaries.
func (s *LifecycleService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.ServiceTicket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListHistory returns the append-only audit trail for one ticket.
func (s *LifecycleService) ListHistory(ctx context.Context, ticketID string) ([]domain.HistoryEntry, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return ticket.History, nil
}

func (s *LifecycleService) snapshot(ticket *domain.ServiceTicket) *TicketSnapshot {
	snap := ticket.Clone()
	breached := snap.SLABreachedAt(s.now())
	snap.SLABreached = breached
	return &TicketSnapshot{
		Ticket:             snap,
		SLABreached:        breached,
		ChargeableTotal:    snap.ChargeableTotal(),
		AllowedTransitions: AllowedTransitions(snap.Status),
	}
}

func (s *LifecycleService) load(ctx context.Context, ticketID string) (*domain.ServiceTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *LifecycleService) save(ctx context.Context, ticket *domain.ServiceTicket) error {
	if err := s.tickets.Save(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperrors.NewConflict("ticket was modified concurrently; reload and retry", map[string]any{"ticket_id": ticket.ID})
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *LifecycleService) startSLAClock(ticket *domain.ServiceTicket, reference time.Time) {
	started := reference
	due := domain.ComputeSLADueAt(ticket.Type, ticket.Priority, reference)
	ticket.SLAStartedAt = &started
	ticket.SLADueAt = &due
}

// freezeSLAClock pins the breach flag at its value as of now. Work has
// concluded; the flag must not keep flapping with wall-clock time.
func (s *LifecycleService) freezeSLAClock(ticket *domain.ServiceTicket) {
	ticket.SLABreached = ticket.SLABreachedAt(s.now())
	ticket.SLAFrozen = true
}

func (s *LifecycleService) appendHistory(ticket *domain.ServiceTicket, action domain.HistoryAction, from, to domain.TicketStatus, notes, performedBy string) {
	ticket.History = append(ticket.History, domain.HistoryEntry{
		TicketID:    ticket.ID,
		Action:      action,
		FromStatus:  from,
		ToStatus:    to,
		Notes:       notes,
		PerformedBy: performedBy,
		Timestamp:   s.now(),
	})
}

func (s *LifecycleService) publishStatusChange(ctx context.Context, ticket *domain.ServiceTicket, from domain.TicketStatus, notes, performedBy string) {
	s.publish(ctx, events.Event{
		Type:         events.EventTicketStatusChanged,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		PerformedBy:  performedBy,
		Payload: events.TicketStatusChangedPayload{
			OldStatus:     from,
			NewStatus:     ticket.Status,
			Notes:         notes,
			CustomerPhone: ticket.Phone,
		},
	})
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketNumber() string {
	return "SRV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// allowedTransitions is the authoritative guard table. UI affordances are a
// projection of this map, never an enforcement point of their own.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusPending:       {domain.TicketStatusAssigned, domain.TicketStatusCancelled},
	domain.TicketStatusAssigned:      {domain.TicketStatusScheduled, domain.TicketStatusPending},
	domain.TicketStatusScheduled:     {domain.TicketStatusEnRoute, domain.TicketStatusAssigned},
	domain.TicketStatusEnRoute:       {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress:    {domain.TicketStatusCompleted, domain.TicketStatusPartsRequired, domain.TicketStatusOnHold},
	domain.TicketStatusPartsRequired: {domain.TicketStatusInProgress, domain.TicketStatusScheduled},
	domain.TicketStatusOnHold:        {domain.TicketStatusInProgress, domain.TicketStatusCancelled},
	domain.TicketStatusCompleted:     {domain.TicketStatusClosed, domain.TicketStatusReopened},
	domain.TicketStatusReopened:      {domain.TicketStatusAssigned},
	domain.TicketStatusClosed:        {},
	domain.TicketStatusCancelled:     {},
}

// AllowedTransitions returns the permitted next states for a status. The
// slice is a copy; callers may not mutate the table through it.
func AllowedTransitions(current domain.TicketStatus) []domain.TicketStatus {
	return append([]domain.TicketStatus(nil), allowedTransitions[current]...)
}

func isAllowedTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
