package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
)

func insertPartUsage(ctx context.Context, tx pgx.Tx, usage *domain.PartUsage) error {
	const query = `
        INSERT INTO part_usages (ticket_id, part_id, part_name, part_code, quantity, unit_price, is_warranty, recorded_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return tx.QueryRow(ctx, query,
		usage.TicketID,
		usage.PartID,
		usage.PartName,
		usage.PartCode,
		usage.Quantity,
		usage.UnitPrice,
		usage.IsWarranty,
		usage.RecordedAt,
	).Scan(&usage.ID)
}

func loadPartsUsed(ctx context.Context, q queryer, ticketID string) ([]domain.PartUsage, error) {
	const query = `
        SELECT id, ticket_id, part_id, part_name, part_code, quantity, unit_price, is_warranty, recorded_at
        FROM part_usages WHERE ticket_id=$1 ORDER BY recorded_at ASC, id ASC`
	rows, err := q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PartUsage
	for rows.Next() {
		var usage domain.PartUsage
		if err := rows.Scan(
			&usage.ID,
			&usage.TicketID,
			&usage.PartID,
			&usage.PartName,
			&usage.PartCode,
			&usage.Quantity,
			&usage.UnitPrice,
			&usage.IsWarranty,
			&usage.RecordedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, usage)
	}
	return result, rows.Err()
}
