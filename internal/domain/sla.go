package domain

import "time"

// Base turnaround window per service type, before priority scaling.
var slaBaseHours = map[ServiceType]float64{
	ServiceTypeInstallation:          48,
	ServiceTypeWarrantyRepair:        24,
	ServiceTypePaidRepair:            48,
	ServiceTypeAMCService:            72,
	ServiceTypeDemo:                  72,
	ServiceTypePreventiveMaintenance: 96,
	ServiceTypeComplaint:             24,
	ServiceTypeFilterChange:          48,
	ServiceTypeInspection:            72,
	ServiceTypeUninstallation:        48,
}

// Priority multiplier applied to the base window. CRITICAL and URGENT shrink
// it, LOW extends it.
var slaPriorityFactor = map[TicketPriority]float64{
	TicketPriorityCritical: 0.25,
	TicketPriorityUrgent:   0.5,
	TicketPriorityHigh:     0.75,
	TicketPriorityNormal:   1.0,
	TicketPriorityLow:      1.5,
}

const defaultSLAHours = 48

// ComputeSLADueAt returns the due-by deadline for a ticket of the given type
// and priority, counted from the reference time. Pure function; the engine
// decides when the clock starts.
func ComputeSLADueAt(serviceType ServiceType, priority TicketPriority, reference time.Time) time.Time {
	hours, ok := slaBaseHours[serviceType]
	if !ok {
		hours = defaultSLAHours
	}
	factor, ok := slaPriorityFactor[priority]
	if !ok {
		factor = 1.0
	}
	window := time.Duration(hours * factor * float64(time.Hour))
	return reference.Add(window)
}

// SLABreachedAt evaluates the breach flag at the given instant. Once the
// clock is frozen (completion or cancellation) the recorded value is returned
// no matter how far the wall clock has advanced.
func (t *ServiceTicket) SLABreachedAt(now time.Time) bool {
	if t.SLAFrozen {
		return t.SLABreached
	}
	if t.SLADueAt == nil {
		return false
	}
	return now.After(*t.SLADueAt)
}
