package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/domain"
)

// Assignability is the directory's verdict on one proposed assignment.
type Assignability struct {
	OK     bool
	Reason string
}

// TechnicianDirectory is the external collaborator the assignment coordinator
// consults. The engine treats it as an interface it calls into.
type TechnicianDirectory interface {
	FindAvailable(ctx context.Context, postalCode string) ([]domain.TechnicianSummary, error)
	CheckAssignable(ctx context.Context, technicianID, postalCode string) (Assignability, error)
}

type technicianRepository struct {
	pool *pgxpool.Pool
}

// NewTechnicianDirectory instantiates the postgres-backed directory.
func NewTechnicianDirectory(pool *pgxpool.Pool) TechnicianDirectory {
	return &technicianRepository{pool: pool}
}

func (r *technicianRepository) FindAvailable(ctx context.Context, postalCode string) ([]domain.TechnicianSummary, error) {
	const query = `
        SELECT id, name, phone, skill_level, rating, available_flag, postal_codes, created_at
        FROM technicians
        WHERE available_flag = TRUE AND $1 = ANY(postal_codes)
        ORDER BY rating DESC, created_at ASC`
	rows, err := r.pool.Query(ctx, query, postalCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TechnicianSummary
	for rows.Next() {
		var tech domain.TechnicianSummary
		if err := rows.Scan(
			&tech.ID,
			&tech.Name,
			&tech.Phone,
			&tech.SkillLevel,
			&tech.Rating,
			&tech.Available,
			&tech.PostalCodes,
			&tech.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, tech)
	}
	return result, rows.Err()
}

func (r *technicianRepository) CheckAssignable(ctx context.Context, technicianID, postalCode string) (Assignability, error) {
	const query = `
        SELECT id, name, phone, skill_level, rating, available_flag, postal_codes, created_at
        FROM technicians WHERE id=$1`
	var tech domain.TechnicianSummary
	if err := r.pool.QueryRow(ctx, query, technicianID).Scan(
		&tech.ID,
		&tech.Name,
		&tech.Phone,
		&tech.SkillLevel,
		&tech.Rating,
		&tech.Available,
		&tech.PostalCodes,
		&tech.CreatedAt,
	); err != nil {
		return Assignability{}, err
	}
	return evaluateAssignability(tech, postalCode), nil
}

// evaluateAssignability applies the shared directory rules: the technician
// must be marked available and must serve the ticket's postal code.
func evaluateAssignability(tech domain.TechnicianSummary, postalCode string) Assignability {
	if !tech.Available {
		return Assignability{Reason: "technician marked unavailable"}
	}
	if !tech.Serves(postalCode) {
		return Assignability{Reason: fmt.Sprintf("postal code %s outside service area", postalCode)}
	}
	return Assignability{OK: true}
}
