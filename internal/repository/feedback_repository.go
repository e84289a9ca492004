package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
)

func insertFeedback(ctx context.Context, tx pgx.Tx, feedback *domain.Feedback) error {
	const query = `
        INSERT INTO ticket_feedback (ticket_id, overall_rating, service_quality, technician_behavior,
            issue_resolved, would_recommend, comments, submitted_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return tx.QueryRow(ctx, query,
		feedback.TicketID,
		feedback.OverallRating,
		feedback.ServiceQuality,
		feedback.TechnicianBehavior,
		feedback.IssueResolved,
		feedback.WouldRecommend,
		feedback.Comments,
		feedback.SubmittedAt,
	).Scan(&feedback.ID)
}

func loadFeedback(ctx context.Context, q queryer, ticketID string) (*domain.Feedback, error) {
	const query = `
        SELECT id, ticket_id, overall_rating, service_quality, technician_behavior,
               issue_resolved, would_recommend, comments, submitted_at
        FROM ticket_feedback WHERE ticket_id=$1`
	var feedback domain.Feedback
	err := q.QueryRow(ctx, query, ticketID).Scan(
		&feedback.ID,
		&feedback.TicketID,
		&feedback.OverallRating,
		&feedback.ServiceQuality,
		&feedback.TechnicianBehavior,
		&feedback.IssueResolved,
		&feedback.WouldRecommend,
		&feedback.Comments,
		&feedback.SubmittedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &feedback, nil
}
