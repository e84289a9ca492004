package service

import (
	"context"
	"strings"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// FeedbackInput carries the one-time post-completion rating.
type FeedbackInput struct {
	OverallRating      int
	ServiceQuality     int
	TechnicianBehavior int
	IssueResolved      bool
	WouldRecommend     bool
	Comments           string
	PerformedBy        string
}

// SubmitFeedback records customer feedback. Allowed exactly once per ticket
// lifetime, and only while the ticket sits in COMPLETED. A reopened ticket
// keeps any existing feedback as evidence of the disputed closure and never
// accepts a second record, even after it completes again.
func (s *LifecycleService) SubmitFeedback(ctx context.Context, ticketID string, input FeedbackInput) (*domain.ServiceTicket, error) {
	for field, rating := range map[string]int{
		"overall_rating":      input.OverallRating,
		"service_quality":     input.ServiceQuality,
		"technician_behavior": input.TechnicianBehavior,
	} {
		if rating < 1 || rating > 5 {
			return nil, apperrors.NewValidationError("ratings must be between 1 and 5", map[string]any{"field": field})
		}
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
	if ticket.Feedback != nil {
		return nil, apperrors.NewFeedbackNotAllowed(apperrors.FeedbackCauseAlreadySubmitted, string(ticket.Status))
	}
	if ticket.Status != domain.TicketStatusCompleted {
		return nil, apperrors.NewFeedbackNotAllowed(apperrors.FeedbackCauseWrongStatus, string(ticket.Status))
	}

	working := ticket.Clone()
	working.Feedback = &domain.Feedback{
		TicketID:           working.ID,
		OverallRating:      input.OverallRating,
		ServiceQuality:     input.ServiceQuality,
		TechnicianBehavior: input.TechnicianBehavior,
		IssueResolved:      input.IssueResolved,
		WouldRecommend:     input.WouldRecommend,
		Comments:           strings.TrimSpace(input.Comments),
		SubmittedAt:        s.now(),
	}
	s.appendHistory(working, domain.HistoryActionFeedbackSubmitted, working.Status, working.Status, "", input.PerformedBy)

	if err := s.save(ctx, working); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:         events.EventTicketFeedbackSubmitted,
		TicketID:     working.ID,
		TicketNumber: working.TicketNumber,
		PerformedBy:  input.PerformedBy,
		Payload: events.TicketFeedbackSubmittedPayload{
			OverallRating: input.OverallRating,
			IssueResolved: input.IssueResolved,
		},
	})
	return working, nil
}
