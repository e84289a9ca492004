package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// AssignmentCoordinator mediates technician selection against the external
// directory. It is consulted only during the ASSIGNED transition; the
// directory call is the single I/O-latent step in the state machine, so it is
// timeout-bounded and cancellable.
type AssignmentCoordinator struct {
	directory repository.TechnicianDirectory
	timeout   time.Duration
}

const defaultDirectoryTimeout = 5 * time.Second

// NewAssignmentCoordinator constructs the coordinator.
func NewAssignmentCoordinator(directory repository.TechnicianDirectory, timeout time.Duration) *AssignmentCoordinator {
	if timeout <= 0 {
		timeout = defaultDirectoryTimeout
	}
	return &AssignmentCoordinator{directory: directory, timeout: timeout}
}

// Vet checks the technician against the directory for the ticket's postal
// code. A timed-out lookup fails the whole transition with AssignmentTimeout;
// the caller leaves the ticket unchanged.
func (c *AssignmentCoordinator) Vet(ctx context.Context, technicianID, postalCode string) error {
	lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	verdict, err := c.directory.CheckAssignable(lookupCtx, technicianID, postalCode)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return apperrors.NewAssignmentTimeout(technicianID)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
		}
		return apperrors.MapError(err)
	}
	if !verdict.OK {
		return apperrors.NewTechnicianUnavailable(technicianID, verdict.Reason)
	}
	return nil
}

// FindAvailable lists technicians serving the given postal code.
func (c *AssignmentCoordinator) FindAvailable(ctx context.Context, postalCode string) ([]domain.TechnicianSummary, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	technicians, err := c.directory.FindAvailable(lookupCtx, postalCode)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return technicians, nil
}

// AssignInput carries an assignment command.
type AssignInput struct {
	TechnicianID  string
	ScheduledDate *time.Time
	TimeSlot      *string
	PerformedBy   string
}

// Assign vets and assigns a technician. Valid only from PENDING (initial
// assignment) or REOPENED (reassignment); racing callers on the same ticket
// resolve to exactly one winner, the loser seeing InvalidTransition or a
// version conflict.
func (s *LifecycleService) Assign(ctx context.Context, ticketID string, input AssignInput) (*domain.ServiceTicket, error) {
	release, err := s.locker.Lock(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	defer release()

	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusPending && ticket.Status != domain.TicketStatusReopened {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(domain.TicketStatusAssigned))
	}

	working := ticket.Clone()
	from := working.Status
	transition := TransitionInput{
		To:            domain.TicketStatusAssigned,
		TechnicianID:  input.TechnicianID,
		ScheduledDate: input.ScheduledDate,
		TimeSlot:      input.TimeSlot,
		PerformedBy:   input.PerformedBy,
	}
	if err := s.applyAssignment(ctx, working, transition); err != nil {
		return nil, err
	}
	working.Status = domain.TicketStatusAssigned
	s.appendHistory(working, domain.HistoryActionAssigned, from, domain.TicketStatusAssigned, "", input.PerformedBy)

	if err := s.save(ctx, working); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:         events.EventTicketAssigned,
		TicketID:     working.ID,
		TicketNumber: working.TicketNumber,
		PerformedBy:  input.PerformedBy,
		Payload: events.TicketAssignedPayload{
			TechnicianID:  input.TechnicianID,
			ScheduledDate: working.ScheduledDate,
			TimeSlot:      working.TimeSlot,
			CustomerPhone: working.Phone,
		},
	})
	s.publishStatusChange(ctx, working, from, "", input.PerformedBy)
	return working, nil
}

// Unassign releases the technician and returns the ticket to PENDING. Valid
// only from ASSIGNED; the guard table enforces it.
func (s *LifecycleService) Unassign(ctx context.Context, ticketID, performedBy string) (*domain.ServiceTicket, error) {
	return s.Transition(ctx, ticketID, TransitionInput{
		To:          domain.TicketStatusPending,
		PerformedBy: performedBy,
	})
}
