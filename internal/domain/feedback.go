package domain

import "time"

// Feedback is the one-time customer rating collected after completion.
// Immutable once created; at most one record exists per ticket lifetime.
type Feedback struct {
	ID                 string
	TicketID           string
	OverallRating      int
	ServiceQuality     int
	TechnicianBehavior int
	IssueResolved      bool
	WouldRecommend     bool
	Comments           string
	SubmittedAt        time.Time
}
