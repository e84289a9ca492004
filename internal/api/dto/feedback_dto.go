package dto

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
)

// SubmitFeedbackRequest payload for POST /tickets/:id/feedback.
type SubmitFeedbackRequest struct {
	OverallRating      int    `json:"overall_rating" validate:"required,min=1,max=5"`
	ServiceQuality     int    `json:"service_quality" validate:"required,min=1,max=5"`
	TechnicianBehavior int    `json:"technician_behavior" validate:"required,min=1,max=5"`
	IssueResolved      bool   `json:"issue_resolved"`
	WouldRecommend     bool   `json:"would_recommend"`
	Comments           string `json:"comments" validate:"max=2000"`
	PerformedBy        string `json:"performed_by"`
}

// FeedbackResponse is the customer feedback projection.
type FeedbackResponse struct {
	OverallRating      int       `json:"overall_rating"`
	ServiceQuality     int       `json:"service_quality"`
	TechnicianBehavior int       `json:"technician_behavior"`
	IssueResolved      bool      `json:"issue_resolved"`
	WouldRecommend     bool      `json:"would_recommend"`
	Comments           string    `json:"comments,omitempty"`
	SubmittedAt        time.Time `json:"submitted_at"`
}

// NewFeedbackResponse maps domain feedback to its API projection.
func NewFeedbackResponse(fb *domain.Feedback) FeedbackResponse {
	return FeedbackResponse{
		OverallRating:      fb.OverallRating,
		ServiceQuality:     fb.ServiceQuality,
		TechnicianBehavior: fb.TechnicianBehavior,
		IssueResolved:      fb.IssueResolved,
		WouldRecommend:     fb.WouldRecommend,
		Comments:           fb.Comments,
		SubmittedAt:        fb.SubmittedAt,
	}
}
