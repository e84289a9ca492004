package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
)

// memoryTicketRepository keeps the aggregate in process memory. It backs the
// engine when no POSTGRES_DSN is configured and the service-level tests.
type memoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.ServiceTicket
}

// NewMemoryTicketRepository instantiates the in-memory store.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{tickets: make(map[string]*domain.ServiceTicket)}
}

func (r *memoryTicketRepository) Create(ctx context.Context, ticket *domain.ServiceTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	ticket.ID = uuid.NewString()
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	assignChildIDs(ticket)
	r.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r *memoryTicketRepository) Save(ctx context.Context, ticket *domain.ServiceTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	assignChildIDs(ticket)
	r.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r *memoryTicketRepository) GetByID(ctx context.Context, id string) (*domain.ServiceTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ticket.Clone(), nil
}

func (r *memoryTicketRepository) GetByNumber(ctx context.Context, number string) (*domain.ServiceTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ticket := range r.tickets {
		if ticket.TicketNumber == number {
			return ticket.Clone(), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryTicketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.ServiceTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.ServiceTicket
	for _, ticket := range r.tickets {
		if !matchesFilter(ticket, filter) {
			continue
		}
		result = append(result, *ticket.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func matchesFilter(ticket *domain.ServiceTicket, filter TicketFilter) bool {
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
		return false
	}
	if len(filter.Types) > 0 && !containsType(filter.Types, ticket.Type) {
		return false
	}
	if filter.TechnicianID != nil {
		if ticket.AssignedTechnicianID == nil || *ticket.AssignedTechnicianID != *filter.TechnicianID {
			return false
		}
	}
	if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
		return false
	}
	if filter.PostalCode != nil && ticket.PostalCode != *filter.PostalCode {
		return false
	}
	if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	return true
}

func containsStatus(list []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, v domain.TicketPriority) bool {
	for _, p := range list {
		if p == v {
			return true
		}
	}
	return false
}

func containsType(list []domain.ServiceType, v domain.ServiceType) bool {
	for _, t := range list {
		if t == v {
			return true
		}
	}
	return false
}

func assignChildIDs(ticket *domain.ServiceTicket) {
	for i := range ticket.History {
		if ticket.History[i].ID == "" {
			ticket.History[i].ID = uuid.NewString()
			ticket.History[i].TicketID = ticket.ID
		}
	}
	for i := range ticket.PartsUsed {
		if ticket.PartsUsed[i].ID == "" {
			ticket.PartsUsed[i].ID = uuid.NewString()
			ticket.PartsUsed[i].TicketID = ticket.ID
		}
	}
	if ticket.Feedback != nil && ticket.Feedback.ID == "" {
		ticket.Feedback.ID = uuid.NewString()
		ticket.Feedback.TicketID = ticket.ID
	}
}

// memoryTechnicianDirectory is the in-process directory used without postgres.
type memoryTechnicianDirectory struct {
	mu          sync.RWMutex
	technicians map[string]domain.TechnicianSummary
}

// NewMemoryTechnicianDirectory instantiates the in-memory directory.
func NewMemoryTechnicianDirectory(technicians ...domain.TechnicianSummary) TechnicianDirectory {
	dir := &memoryTechnicianDirectory{technicians: make(map[string]domain.TechnicianSummary)}
	for _, tech := range technicians {
		dir.technicians[tech.ID] = tech
	}
	return dir
}

func (d *memoryTechnicianDirectory) FindAvailable(ctx context.Context, postalCode string) ([]domain.TechnicianSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []domain.TechnicianSummary
	for _, tech := range d.technicians {
		if tech.Available && tech.Serves(postalCode) {
			result = append(result, tech)
		}
	}
	return result, nil
}

func (d *memoryTechnicianDirectory) CheckAssignable(ctx context.Context, technicianID, postalCode string) (Assignability, error) {
	if err := ctx.Err(); err != nil {
		return Assignability{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	tech, ok := d.technicians[technicianID]
	if !ok {
		return Assignability{}, pgx.ErrNoRows
	}
	return evaluateAssignability(tech, postalCode), nil
}
