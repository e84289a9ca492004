package service

import (
	"context"
	"strings"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

// PartUsageInput describes one consumed part. A negative quantity records a
// reversal of an earlier entry; the ledger itself is never edited in place.
type PartUsageInput struct {
	PartID      string
	PartName    string
	PartCode    string
	Quantity    int
	UnitPrice   float64
	IsWarranty  bool
	PerformedBy string
}

// AddPartUsage appends one entry to the parts ledger. Permitted only while
// the technician is on site (IN_PROGRESS) or waiting on parts
// (PARTS_REQUIRED).
func (s *LifecycleService) AddPartUsage(ctx context.Context, ticketID string, input PartUsageInput) (*domain.ServiceTicket, error) {
	if strings.TrimSpace(input.PartID) == "" {
		return nil, apperrors.NewValidationError("part_id required", nil)
	}
	if input.Quantity == 0 {
		return nil, apperrors.NewValidationError("quantity must be non-zero", map[string]any{"part_id": input.PartID})
	}
	if !input.IsWarranty && input.UnitPrice < 0 {
		return nil, apperrors.NewValidationError("unit_price must be non-negative for chargeable parts", map[string]any{"part_id": input.PartID})
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
	if ticket.Status != domain.TicketStatusInProgress && ticket.Status != domain.TicketStatusPartsRequired {
		return nil, apperrors.NewConflict("parts can only be recorded during active service", map[string]any{
			"status": ticket.Status,
		})
	}

	working := ticket.Clone()
	usage := domain.PartUsage{
		TicketID:   working.ID,
		PartID:     input.PartID,
		PartName:   input.PartName,
		PartCode:   input.PartCode,
		Quantity:   input.Quantity,
		UnitPrice:  input.UnitPrice,
		IsWarranty: input.IsWarranty,
		RecordedAt: s.now(),
	}
	working.PartsUsed = append(working.PartsUsed, usage)
	s.appendHistory(working, domain.HistoryActionPartAdded, working.Status, working.Status,
		usage.PartName, input.PerformedBy)

	if err := s.save(ctx, working); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:         events.EventTicketPartsAdded,
		TicketID:     working.ID,
		TicketNumber: working.TicketNumber,
		PerformedBy:  input.PerformedBy,
		Payload: events.TicketPartsAddedPayload{
			PartID:          usage.PartID,
			PartName:        usage.PartName,
			Quantity:        usage.Quantity,
			IsWarranty:      usage.IsWarranty,
			ChargeableTotal: working.ChargeableTotal(),
		},
	})
	return working, nil
}
