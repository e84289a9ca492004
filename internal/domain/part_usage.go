package domain

import "time"

// PartUsage is one consumed spare part on a ticket. Entries are append-only;
// corrections are recorded as reversal entries, never in-place edits.
type PartUsage struct {
	ID         string
	TicketID   string
	PartID     string
	PartName   string
	PartCode   string
	Quantity   int
	UnitPrice  float64
	IsWarranty bool
	RecordedAt time.Time
}

// LineTotal is the chargeable amount this entry contributes. Warranty lines
// contribute zero regardless of unit price.
func (p PartUsage) LineTotal() float64 {
	if p.IsWarranty {
		return 0
	}
	return p.UnitPrice * float64(p.Quantity)
}

// ChargeableTotal sums the non-warranty part lines. Derived on demand from
// the ledger so it can never drift from the underlying entries.
func (t *ServiceTicket) ChargeableTotal() float64 {
	var total float64
	for _, usage := range t.PartsUsed {
		total += usage.LineTotal()
	}
	return total
}
