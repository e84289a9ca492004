package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-service/internal/domain"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

func completedTicket(t *testing.T, svc *LifecycleService) *domain.ServiceTicket {
	t.Helper()
	ticket := createPendingTicket(t, svc)
	return driveTo(t, svc, ticket.ID,
		domain.TicketStatusAssigned,
		domain.TicketStatusScheduled,
		domain.TicketStatusEnRoute,
		domain.TicketStatusInProgress,
		domain.TicketStatusCompleted,
	)
}

func feedbackCause(err error) string {
	domainErr := apperrors.ToDomainError(err)
	if domainErr == nil {
		return ""
	}
	cause, _ := domainErr.Details["cause"].(string)
	return cause
}

func TestSubmitFeedbackRatingBounds(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := completedTicket(t, svc)
	ctx := context.Background()

	tests := []struct {
		name  string
		input FeedbackInput
	}{
		{name: "zero overall rating", input: FeedbackInput{OverallRating: 0, ServiceQuality: 3, TechnicianBehavior: 3}},
		{name: "rating above five", input: FeedbackInput{OverallRating: 4, ServiceQuality: 6, TechnicianBehavior: 3}},
		{name: "negative rating", input: FeedbackInput{OverallRating: 4, ServiceQuality: 3, TechnicianBehavior: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitFeedback(ctx, ticket.ID, tt.input)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
		})
	}
}

func TestSubmitFeedbackOnlyWhenCompleted(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := createPendingTicket(t, svc)

	_, err := svc.SubmitFeedback(context.Background(), ticket.ID, FeedbackInput{
		OverallRating: 5, ServiceQuality: 5, TechnicianBehavior: 5,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeFeedbackNotAllowed))
	assert.Equal(t, apperrors.FeedbackCauseWrongStatus, feedbackCause(err))
}

func TestSubmitFeedbackOnce(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := completedTicket(t, svc)
	ctx := context.Background()

	first, err := svc.SubmitFeedback(ctx, ticket.ID, FeedbackInput{
		OverallRating: 4, ServiceQuality: 4, TechnicianBehavior: 5,
		IssueResolved: true, WouldRecommend: true, Comments: "quick fix",
	})
	require.NoError(t, err)
	require.NotNil(t, first.Feedback)
	assert.Equal(t, "quick fix", first.Feedback.Comments)
	last := first.History[len(first.History)-1]
	assert.Equal(t, domain.HistoryActionFeedbackSubmitted, last.Action)

	_, err = svc.SubmitFeedback(ctx, ticket.ID, FeedbackInput{
		OverallRating: 1, ServiceQuality: 1, TechnicianBehavior: 1,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeFeedbackNotAllowed))
	assert.Equal(t, apperrors.FeedbackCauseAlreadySubmitted, feedbackCause(err))
}

func TestFeedbackSurvivesReopenRoundTrip(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := completedTicket(t, svc)
	ctx := context.Background()

	_, err := svc.SubmitFeedback(ctx, ticket.ID, FeedbackInput{
		OverallRating: 2, ServiceQuality: 2, TechnicianBehavior: 3, Comments: "issue came back",
	})
	require.NoError(t, err)

	// Reopen, rework and complete again.
	driveTo(t, svc, ticket.ID,
		domain.TicketStatusReopened,
		domain.TicketStatusAssigned,
		domain.TicketStatusScheduled,
		domain.TicketStatusEnRoute,
		domain.TicketStatusInProgress,
		domain.TicketStatusCompleted,
	)

	// The original record is evidence of the disputed closure; a second
	// submission is rejected even though the ticket is COMPLETED again.
	_, err = svc.SubmitFeedback(ctx, ticket.ID, FeedbackInput{
		OverallRating: 5, ServiceQuality: 5, TechnicianBehavior: 5,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeFeedbackNotAllowed))
	assert.Equal(t, apperrors.FeedbackCauseAlreadySubmitted, feedbackCause(err))

	snap, err := svc.GetSnapshot(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, snap.Ticket.Feedback)
	assert.Equal(t, "issue came back", snap.Ticket.Feedback.Comments)
}
