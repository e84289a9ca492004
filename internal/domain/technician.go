package domain

import "time"

// TechnicianSummary is the directory's view of one field technician.
type TechnicianSummary struct {
	ID          string
	Name        string
	Phone       string
	SkillLevel  string
	Rating      float64
	Available   bool
	PostalCodes []string
	CreatedAt   time.Time
}

// Serves reports whether the technician covers the given postal code.
func (t TechnicianSummary) Serves(postalCode string) bool {
	for _, code := range t.PostalCodes {
		if code == postalCode {
			return true
		}
	}
	return false
}
