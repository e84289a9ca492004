package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// testClock is a controllable wall clock shared by the engine and the test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testTechnician() domain.TechnicianSummary {
	return domain.TechnicianSummary{
		ID:          "tech-1",
		Name:        "Ravi Kumar",
		Phone:       "+919800000001",
		SkillLevel:  "senior",
		Rating:      4.6,
		Available:   true,
		PostalCodes: []string{"560001", "560002"},
	}
}

func newTestEngine(techs ...domain.TechnicianSummary) (*LifecycleService, *testClock) {
	clock := newTestClock()
	directory := repository.NewMemoryTechnicianDirectory(techs...)
	svc := NewLifecycleService(LifecycleDependencies{
		TicketRepo:  repository.NewMemoryTicketRepository(),
		Coordinator: NewAssignmentCoordinator(directory, 0),
		Dispatcher:  events.NewInMemoryDispatcher(),
		Clock:       clock.Now,
	})
	return svc, clock
}

func createPendingTicket(t *testing.T, svc *LifecycleService) *domain.ServiceTicket {
	t.Helper()
	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Type:               domain.ServiceTypeWarrantyRepair,
		CustomerName:       "Asha Mehta",
		Phone:              "+919800000002",
		Address:            "14 MG Road",
		PostalCode:         "560001",
		ProblemDescription: "unit not cooling",
		PerformedBy:        "intake",
	})
	require.NoError(t, err)
	return ticket
}

// driveTo walks a ticket through the given statuses, supplying whatever
// payload each step requires.
func driveTo(t *testing.T, svc *LifecycleService, ticketID string, statuses ...domain.TicketStatus) *domain.ServiceTicket {
	t.Helper()
	var ticket *domain.ServiceTicket
	var err error
	scheduled := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	slot := "10:00-12:00"
	for _, status := range statuses {
		input := TransitionInput{To: status, PerformedBy: "dispatcher"}
		switch status {
		case domain.TicketStatusAssigned:
			input.TechnicianID = "tech-1"
		case domain.TicketStatusScheduled:
			input.ScheduledDate = &scheduled
			input.TimeSlot = &slot
		case domain.TicketStatusCompleted:
			input.Diagnosis = "clogged filter"
			input.Resolution = "filter replaced"
		case domain.TicketStatusCancelled:
			input.Reason = "customer request"
		}
		ticket, err = svc.Transition(context.Background(), ticketID, input)
		require.NoError(t, err, "transition to %s", status)
	}
	return ticket
}

func TestCreateTicketDefaults(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := createPendingTicket(t, svc)

	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Equal(t, domain.TicketPriorityNormal, ticket.Priority)
	assert.Equal(t, 1, ticket.VisitCount)
	assert.True(t, strings.HasPrefix(ticket.TicketNumber, "SRV-"))
	assert.Nil(t, ticket.SLADueAt, "SLA clock must not run before assignment")
	require.Len(t, ticket.History, 1)
	assert.Equal(t, domain.HistoryActionCreated, ticket.History[0].Action)
}

func TestCreateTicketValidation(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ctx := context.Background()

	t.Run("missing service type", func(t *testing.T) {
		_, err := svc.CreateTicket(ctx, TicketCreateInput{CustomerName: "x"})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("unknown priority", func(t *testing.T) {
		_, err := svc.CreateTicket(ctx, TicketCreateInput{
			Type:     domain.ServiceTypeDemo,
			Priority: domain.TicketPriority("EXTREME"),
		})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("draft cannot carry a technician", func(t *testing.T) {
		_, err := svc.CreateTicket(ctx, TicketCreateInput{
			Type:         domain.ServiceTypeDemo,
			Draft:        true,
			TechnicianID: "tech-1",
		})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})
}

func TestCreateTicketDirectAssignmentStartsSLA(t *testing.T) {
	svc, clock := newTestEngine(testTechnician())
	ticket, err := svc.CreateTicket(context.Background(), TicketCreateInput{
		Type:         domain.ServiceTypeWarrantyRepair,
		CustomerName: "Asha Mehta",
		Phone:        "+919800000002",
		PostalCode:   "560001",
		TechnicianID: "tech-1",
		PerformedBy:  "intake",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	require.NotNil(t, ticket.AssignedTechnicianID)
	assert.Equal(t, "tech-1", *ticket.AssignedTechnicianID)
	require.NotNil(t, ticket.SLADueAt)
	assert.Equal(t, clock.Now().Add(24*time.Hour), *ticket.SLADueAt)
	require.Len(t, ticket.History, 2)
	assert.Equal(t, domain.HistoryActionAssigned, ticket.History[1].Action)
}

func TestDraftSubmit(t *testing.T) {
	svc, _ := newTestEngine()
	ctx := context.Background()

	draft, err := svc.CreateTicket(ctx, TicketCreateInput{
		Type:         domain.ServiceTypeInstallation,
		CustomerName: "Asha Mehta",
		Phone:        "+919800000002",
		PostalCode:   "560001",
		Draft:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDraft, draft.Status)
	assert.Nil(t, draft.SLADueAt)

	submitted, err := svc.Submit(ctx, draft.ID, "customer")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, submitted.Status)
	last := submitted.History[len(submitted.History)-1]
	assert.Equal(t, domain.HistoryActionSubmitted, last.Action)

	_, err = svc.Submit(ctx, draft.ID, "customer")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestFullLifecycleHappyPath(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := createPendingTicket(t, svc)

	final := driveTo(t, svc, ticket.ID,
		domain.TicketStatusAssigned,
		domain.TicketStatusScheduled,
		domain.TicketStatusEnRoute,
		domain.TicketStatusInProgress,
		domain.TicketStatusCompleted,
		domain.TicketStatusClosed,
	)

	assert.Equal(t, domain.TicketStatusClosed, final.Status)
	assert.Equal(t, "clogged filter", final.Diagnosis)
	assert.Equal(t, "filter replaced", final.Resolution)
	assert.True(t, final.SLAFrozen)
	assert.Equal(t, 1, final.VisitCount)
}

func TestTransitionGuardTable(t *testing.T) {
	tests := []struct {
		name    string
		path    []domain.TicketStatus
		attempt domain.TicketStatus
	}{
		{name: "pending cannot complete", attempt: domain.TicketStatusCompleted},
		{name: "pending cannot schedule", attempt: domain.TicketStatusScheduled},
		{
			name:    "en_route cannot go back to scheduled",
			path:    []domain.TicketStatus{domain.TicketStatusAssigned, domain.TicketStatusScheduled, domain.TicketStatusEnRoute},
			attempt: domain.TicketStatusScheduled,
		},
		{
			name:    "closed is terminal",
			path:    []domain.TicketStatus{domain.TicketStatusAssigned, domain.TicketStatusScheduled, domain.TicketStatusEnRoute, domain.TicketStatusInProgress, domain.TicketStatusCompleted, domain.TicketStatusClosed},
			attempt: domain.TicketStatusReopened,
		},
		{
			name:    "cancelled is terminal",
			path:    []domain.TicketStatus{domain.TicketStatusCancelled},
			attempt: domain.TicketStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestEngine(testTechnician())
			ticket := createPendingTicket(t, svc)
			driveTo(t, svc, ticket.ID, tt.path...)

			_, err := svc.Transition(context.Background(), ticket.ID, TransitionInput{To: tt.attempt})
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "got %v", err)
		})
	}
}

func TestTransitionNoOpIsDistinct(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := createPendingTicket(t, svc)

	_, err := svc.Transition(context.Background(), ticket.ID, TransitionInput{To: domain.TicketStatusPending})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoOpTransition))
	assert.False(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestCompletionRequiresDiagnosisAndResolution(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := createPendingTicket(t, svc)
	driveTo(t, svc, ticket.ID,
		domain.TicketStatusAssigned,
		domain.TicketStatusScheduled,
		domain.TicketStatusEnRoute,
		domain.TicketStatusInProgress,
	)
	ctx := context.Background()

	_, err := svc.Transition(ctx, ticket.ID, TransitionInput{
		To:         domain.TicketStatusCompleted,
		Resolution: "filter replaced",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeMissingCompletionData))

	_, err = svc.Transition(ctx, ticket.ID, TransitionInput{
		To:        domain.TicketStatusCompleted,
		Diagnosis: "clogged filter",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeMissingCompletionData))

	// A rejected completion leaves the stored ticket untouched.
	snap, err := svc.GetSnapshot(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, snap.Ticket.Status)
	assert.Empty(t, snap.Ticket.Resolution)
	assert.Equal(t, domain.TicketStatusInProgress, snap.Ticket.History[len(snap.Ticket.History)-1].ToStatus)
}

func TestCompletionDefaultsActualCostToChargeableTotal(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := createPendingTicket(t, svc)
	driveTo(t, svc, ticket.ID,
		domain.TicketStatusAssigned,
		domain.TicketStatusScheduled,
		domain.TicketStatusEnRoute,
		domain.TicketStatusInProgress,
	)
	ctx := context.Background()

	_, err := svc.AddPartUsage(ctx, ticket.ID, PartUsageInput{
		PartID: "p-1", PartName: "filter", Quantity: 2, UnitPrice: 100,
	})
	require.NoError(t, err)
	_, err = svc.AddPartUsage(ctx, ticket.ID, PartUsageInput{
		PartID: "p-2", PartName: "compressor", Quantity: 1, UnitPrice: 500, IsWarranty: true,
	})
	require.NoError(t, err)

	completed, err := svc.Transition(ctx, ticket.ID, TransitionInput{
		To:         domain.TicketStatusCompleted,
		Diagnosis:  "clogged filter",
		Resolution: "filter replaced",
	})
	require.NoError(t, err)
	assert.Equal(t, 200.0, completed.ActualCost)
	assert.True(t, completed.SLAFrozen)
}

func TestCancelRecordsReasonInHistory(t *testing.T) {
	svc, _ := newTestEngine()
	ticket := createPendingTicket(t, svc)
	ctx := context.Background()

	_, err := svc.Transition(ctx, ticket.ID, TransitionInput{To: domain.TicketStatusCancelled})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed), "cancellation requires a reason")

	cancelled, err := svc.Transition(ctx, ticket.ID, TransitionInput{
		To:     domain.TicketStatusCancelled,
		Reason: "customer relocated outside service area",
	})
	require.NoError(t, err)
	assert.True(t, cancelled.SLAFrozen)
	last := cancelled.History[len(cancelled.History)-1]
	assert.Equal(t, "customer relocated outside service area", last.Notes)
}

func TestReopenClearsResolutionKeepsEvidence(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := createPendingTicket(t, svc)
	driveTo(t, svc, ticket.ID,
		domain.TicketStatusAssigned,
		domain.TicketStatusScheduled,
		domain.TicketStatusEnRoute,
		domain.TicketStatusInProgress,
		domain.TicketStatusCompleted,
	)
	ctx := context.Background()

	_, err := svc.SubmitFeedback(ctx, ticket.ID, FeedbackInput{
		OverallRating: 2, ServiceQuality: 2, TechnicianBehavior: 4,
	})
	require.NoError(t, err)

	reopened, err := svc.Transition(ctx, ticket.ID, TransitionInput{To: domain.TicketStatusReopened})
	require.NoError(t, err)
	assert.Empty(t, reopened.Resolution)
	assert.Equal(t, "clogged filter", reopened.Diagnosis)
	require.NotNil(t, reopened.Feedback)
	assert.Equal(t, 2, reopened.Feedback.OverallRating)
	assert.True(t, reopened.SLAFrozen, "reopen does not restart the SLA clock")
}

func TestRepeatVisitIncrementsVisitCount(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := createPendingTicket(t, svc)

	second := driveTo(t, svc, ticket.ID,
		domain.TicketStatusAssigned,
		domain.TicketStatusScheduled,
		domain.TicketStatusEnRoute,
		domain.TicketStatusInProgress,
		domain.TicketStatusPartsRequired,
		domain.TicketStatusScheduled,
		domain.TicketStatusEnRoute,
	)
	assert.Equal(t, 2, second.VisitCount)
}

func TestEscalatePriority(t *testing.T) {
	ctx := context.Background()

	t.Run("tightens a running clock from its original start", func(t *testing.T) {
		svc, clock := newTestEngine(testTechnician())
		ticket := createPendingTicket(t, svc)
		start := clock.Now()
		driveTo(t, svc, ticket.ID, domain.TicketStatusAssigned)
		clock.Advance(2 * time.Hour)

		escalated, err := svc.EscalatePriority(ctx, ticket.ID, domain.TicketPriorityUrgent, "supervisor")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketPriorityUrgent, escalated.Priority)
		require.NotNil(t, escalated.SLADueAt)
		assert.Equal(t, start.Add(12*time.Hour), *escalated.SLADueAt)
		last := escalated.History[len(escalated.History)-1]
		assert.Equal(t, domain.HistoryActionPriorityEscalated, last.Action)
	})

	t.Run("rejects de-escalation and same priority", func(t *testing.T) {
		svc, _ := newTestEngine(testTechnician())
		ticket := createPendingTicket(t, svc)

		_, err := svc.EscalatePriority(ctx, ticket.ID, domain.TicketPriorityLow, "supervisor")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

		_, err = svc.EscalatePriority(ctx, ticket.ID, domain.TicketPriorityNormal, "supervisor")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("rejects terminal tickets", func(t *testing.T) {
		svc, _ := newTestEngine(testTechnician())
		ticket := createPendingTicket(t, svc)
		driveTo(t, svc, ticket.ID, domain.TicketStatusCancelled)

		_, err := svc.EscalatePriority(ctx, ticket.ID, domain.TicketPriorityCritical, "supervisor")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	})
}

func TestSnapshotEvaluatesBreachAtReadTime(t *testing.T) {
	svc, clock := newTestEngine(testTechnician())
	ticket := createPendingTicket(t, svc)
	driveTo(t, svc, ticket.ID, domain.TicketStatusAssigned)
	ctx := context.Background()

	snap, err := svc.GetSnapshot(ctx, ticket.ID)
	require.NoError(t, err)
	assert.False(t, snap.SLABreached)
	assert.ElementsMatch(t,
		[]domain.TicketStatus{domain.TicketStatusScheduled, domain.TicketStatusPending},
		snap.AllowedTransitions)

	clock.Advance(25 * time.Hour)
	snap, err = svc.GetSnapshot(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, snap.SLABreached)
}

func TestGetSnapshotByNumber(t *testing.T) {
	svc, _ := newTestEngine()
	ticket := createPendingTicket(t, svc)
	ctx := context.Background()

	snap, err := svc.GetSnapshotByNumber(ctx, ticket.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, snap.Ticket.ID)

	_, err = svc.GetSnapshotByNumber(ctx, "SRV-MISSING1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestConcurrentAssignSingleWinner(t *testing.T) {
	svc, _ := newTestEngine(testTechnician(), domain.TechnicianSummary{
		ID:          "tech-2",
		Name:        "Sunil Rao",
		Available:   true,
		PostalCodes: []string{"560001"},
	})
	ticket := createPendingTicket(t, svc)
	ctx := context.Background()

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			techID := "tech-1"
			if n%2 == 1 {
				techID = "tech-2"
			}
			_, errs[n] = svc.Assign(ctx, ticket.ID, AssignInput{TechnicianID: techID})
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		ok := apperrors.HasCode(err, apperrors.CodeInvalidTransition) ||
			apperrors.HasCode(err, apperrors.CodeConflict)
		assert.True(t, ok, "loser saw unexpected error: %v", err)
	}
	assert.Equal(t, 1, wins, "exactly one assignment must win")

	snap, err := svc.GetSnapshot(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, snap.Ticket.Status)
	require.NotNil(t, snap.Ticket.AssignedTechnicianID)
}
