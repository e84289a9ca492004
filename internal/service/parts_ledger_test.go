package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-service/internal/domain"
	apperrors "github.com/spec-kit/field-service/pkg/util"
)

func inProgressTicket(t *testing.T, svc *LifecycleService) *domain.ServiceTicket {
	t.Helper()
	ticket := createPendingTicket(t, svc)
	return driveTo(t, svc, ticket.ID,
		domain.TicketStatusAssigned,
		domain.TicketStatusScheduled,
		domain.TicketStatusEnRoute,
		domain.TicketStatusInProgress,
	)
}

func TestAddPartUsageValidation(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := inProgressTicket(t, svc)
	ctx := context.Background()

	tests := []struct {
		name  string
		input PartUsageInput
	}{
		{name: "missing part id", input: PartUsageInput{Quantity: 1, UnitPrice: 50}},
		{name: "zero quantity", input: PartUsageInput{PartID: "p-1", Quantity: 0, UnitPrice: 50}},
		{name: "negative price on chargeable part", input: PartUsageInput{PartID: "p-1", Quantity: 1, UnitPrice: -50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddPartUsage(ctx, ticket.ID, tt.input)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
		})
	}
}

func TestAddPartUsageOnlyDuringActiveService(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := createPendingTicket(t, svc)

	_, err := svc.AddPartUsage(context.Background(), ticket.ID, PartUsageInput{
		PartID: "p-1", PartName: "filter", Quantity: 1, UnitPrice: 100,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestAddPartUsageAppendsLedger(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := inProgressTicket(t, svc)
	ctx := context.Background()

	updated, err := svc.AddPartUsage(ctx, ticket.ID, PartUsageInput{
		PartID: "p-1", PartName: "filter", PartCode: "FLT-220", Quantity: 2, UnitPrice: 100,
		PerformedBy: "tech-1",
	})
	require.NoError(t, err)
	require.Len(t, updated.PartsUsed, 1)
	assert.Equal(t, 200.0, updated.ChargeableTotal())
	last := updated.History[len(updated.History)-1]
	assert.Equal(t, domain.HistoryActionPartAdded, last.Action)
	assert.Equal(t, "filter", last.Notes)

	// Warranty line adds a ledger entry but no charge.
	updated, err = svc.AddPartUsage(ctx, ticket.ID, PartUsageInput{
		PartID: "p-2", PartName: "compressor", Quantity: 1, UnitPrice: 900, IsWarranty: true,
	})
	require.NoError(t, err)
	require.Len(t, updated.PartsUsed, 2)
	assert.Equal(t, 200.0, updated.ChargeableTotal())
}

func TestAddPartUsageReversalEntry(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := inProgressTicket(t, svc)
	ctx := context.Background()

	_, err := svc.AddPartUsage(ctx, ticket.ID, PartUsageInput{
		PartID: "p-1", PartName: "filter", Quantity: 2, UnitPrice: 100,
	})
	require.NoError(t, err)

	updated, err := svc.AddPartUsage(ctx, ticket.ID, PartUsageInput{
		PartID: "p-1", PartName: "filter", Quantity: -1, UnitPrice: 100,
	})
	require.NoError(t, err)
	require.Len(t, updated.PartsUsed, 2, "reversal appends, never edits in place")
	assert.Equal(t, 100.0, updated.ChargeableTotal())
}

func TestPartsAllowedWhileWaitingOnParts(t *testing.T) {
	svc, _ := newTestEngine(testTechnician())
	ticket := inProgressTicket(t, svc)
	ctx := context.Background()

	driveTo(t, svc, ticket.ID, domain.TicketStatusPartsRequired)
	updated, err := svc.AddPartUsage(ctx, ticket.ID, PartUsageInput{
		PartID: "p-3", PartName: "thermostat", Quantity: 1, UnitPrice: 450,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPartsRequired, updated.Status)
	assert.Equal(t, 450.0, updated.ChargeableTotal())
}
