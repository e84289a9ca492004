package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/domain"
)

// ErrVersionConflict signals an optimistic-concurrency failure: another
// writer saved the ticket between load and save. Callers reload and retry.
var ErrVersionConflict = errors.New("ticket version conflict")

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Types        []domain.ServiceType
	TechnicianID *string
	CustomerID   *string
	PostalCode   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// TicketRepository is the durable store for service tickets and their
// append-only child collections.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.ServiceTicket) error
	// Save persists the full aggregate. It fails with ErrVersionConflict when
	// the stored version no longer matches ticket.Version, and with
	// pgx.ErrNoRows when the ticket does not exist.
	Save(ctx context.Context, ticket *domain.ServiceTicket) error
	GetByID(ctx context.Context, id string) (*domain.ServiceTicket, error)
	GetByNumber(ctx context.Context, number string) (*domain.ServiceTicket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.ServiceTicket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, service_type, priority, status,
               customer_id, customer_name, phone, address, postal_code,
               problem_description, assigned_technician_id, scheduled_date, time_slot,
               sla_started_at, sla_due_at, sla_breached, sla_frozen,
               visit_count, diagnosis, resolution, actual_cost,
               version, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.ServiceTicket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO service_tickets (ticket_number, service_type, priority, status,
            customer_id, customer_name, phone, address, postal_code, problem_description,
            assigned_technician_id, scheduled_date, time_slot,
            sla_started_at, sla_due_at, sla_breached, sla_frozen,
            visit_count, diagnosis, resolution, actual_cost, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,1)
        RETURNING id, version, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Type,
		ticket.Priority,
		ticket.Status,
		ticket.CustomerID,
		ticket.CustomerName,
		ticket.Phone,
		ticket.Address,
		ticket.PostalCode,
		ticket.ProblemDescription,
		ticket.AssignedTechnicianID,
		ticket.ScheduledDate,
		ticket.TimeSlot,
		ticket.SLAStartedAt,
		ticket.SLADueAt,
		ticket.SLABreached,
		ticket.SLAFrozen,
		ticket.VisitCount,
		ticket.Diagnosis,
		ticket.Resolution,
		ticket.ActualCost,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	if err := r.persistChildren(ctx, tx, ticket); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) Save(ctx context.Context, ticket *domain.ServiceTicket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE service_tickets SET priority=$1, status=$2,
            assigned_technician_id=$3, scheduled_date=$4, time_slot=$5,
            sla_started_at=$6, sla_due_at=$7, sla_breached=$8, sla_frozen=$9,
            visit_count=$10, diagnosis=$11, resolution=$12, actual_cost=$13,
            version=version+1, updated_at=NOW()
        WHERE id=$14 AND version=$15`
	cmd, err := tx.Exec(ctx, query,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedTechnicianID,
		ticket.ScheduledDate,
		ticket.TimeSlot,
		ticket.SLAStartedAt,
		ticket.SLADueAt,
		ticket.SLABreached,
		ticket.SLAFrozen,
		ticket.VisitCount,
		ticket.Diagnosis,
		ticket.Resolution,
		ticket.ActualCost,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM service_tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return ErrVersionConflict
	}
	ticket.Version++

	if err := r.persistChildren(ctx, tx, ticket); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// persistChildren inserts aggregate children that have no id yet. Existing
// rows are never touched; the collections are append-only.
func (r *ticketRepository) persistChildren(ctx context.Context, tx pgx.Tx, ticket *domain.ServiceTicket) error {
	for i := range ticket.History {
		if ticket.History[i].ID != "" {
			continue
		}
		ticket.History[i].TicketID = ticket.ID
		if err := insertHistoryEntry(ctx, tx, &ticket.History[i]); err != nil {
			return err
		}
	}
	for i := range ticket.PartsUsed {
		if ticket.PartsUsed[i].ID != "" {
			continue
		}
		ticket.PartsUsed[i].TicketID = ticket.ID
		if err := insertPartUsage(ctx, tx, &ticket.PartsUsed[i]); err != nil {
			return err
		}
	}
	if ticket.Feedback != nil && ticket.Feedback.ID == "" {
		ticket.Feedback.TicketID = ticket.ID
		if err := insertFeedback(ctx, tx, ticket.Feedback); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.ServiceTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.ServiceTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_tickets WHERE ticket_number=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ServiceTicket, error) {
	var ticket domain.ServiceTicket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	history, err := loadHistory(ctx, r.pool, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.History = history
	parts, err := loadPartsUsed(ctx, r.pool, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.PartsUsed = parts
	feedback, err := loadFeedback(ctx, r.pool, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.Feedback = feedback
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.ServiceTicket, error) {
	base := fmt.Sprintf(`SELECT %s FROM service_tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, st := range filter.Types {
			args = append(args, st)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("service_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("assigned_technician_id=$%d", len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.PostalCode != nil {
		args = append(args, *filter.PostalCode)
		clauses = append(clauses, fmt.Sprintf("postal_code=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceTicket
	for rows.Next() {
		var ticket domain.ServiceTicket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.ServiceTicket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Type,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CustomerID,
		&ticket.CustomerName,
		&ticket.Phone,
		&ticket.Address,
		&ticket.PostalCode,
		&ticket.ProblemDescription,
		&ticket.AssignedTechnicianID,
		&ticket.ScheduledDate,
		&ticket.TimeSlot,
		&ticket.SLAStartedAt,
		&ticket.SLADueAt,
		&ticket.SLABreached,
		&ticket.SLAFrozen,
		&ticket.VisitCount,
		&ticket.Diagnosis,
		&ticket.Resolution,
		&ticket.ActualCost,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}
