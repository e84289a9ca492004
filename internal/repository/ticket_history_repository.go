package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
)

// queryer covers both pool and transaction handles.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertHistoryEntry(ctx context.Context, tx pgx.Tx, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, action, from_status, to_status, notes, performed_by, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return tx.QueryRow(ctx, query,
		entry.TicketID,
		entry.Action,
		entry.FromStatus,
		entry.ToStatus,
		entry.Notes,
		entry.PerformedBy,
		entry.Timestamp,
	).Scan(&entry.ID)
}

func loadHistory(ctx context.Context, q queryer, ticketID string) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT id, ticket_id, action, from_status, to_status, notes, performed_by, occurred_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY occurred_at ASC, id ASC`
	rows, err := q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Action,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.Notes,
			&entry.PerformedBy,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
