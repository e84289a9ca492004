package dto

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
)

// AssignRequest payload for POST /tickets/:id/assign.
type AssignRequest struct {
	TechnicianID  string     `json:"technician_id" validate:"required"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	TimeSlot      *string    `json:"time_slot"`
	PerformedBy   string     `json:"performed_by"`
}

// UnassignRequest payload for POST /tickets/:id/unassign.
type UnassignRequest struct {
	PerformedBy string `json:"performed_by"`
}

// TechnicianResponse is the directory projection exposed to clients.
type TechnicianResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	SkillLevel string  `json:"skill_level"`
	Rating     float64 `json:"rating"`
	Available  bool    `json:"available"`
}

// NewTechnicianResponse maps a directory summary.
func NewTechnicianResponse(tech domain.TechnicianSummary) TechnicianResponse {
	return TechnicianResponse{
		ID:         tech.ID,
		Name:       tech.Name,
		SkillLevel: tech.SkillLevel,
		Rating:     tech.Rating,
		Available:  tech.Available,
	}
}
