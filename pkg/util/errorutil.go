package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

// Error codes for the lifecycle engine taxonomy. Every rejection is explicit
// and recoverable by the caller.
const (
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeNoOpTransition        = "NOOP_TRANSITION"
	CodeMissingCompletionData = "MISSING_COMPLETION_DATA"
	CodeTechnicianUnavailable = "TECHNICIAN_UNAVAILABLE"
	CodeAssignmentTimeout     = "ASSIGNMENT_TIMEOUT"
	CodeFeedbackNotAllowed    = "FEEDBACK_NOT_ALLOWED"
	CodeConflict              = "CONFLICT"
	CodeNotFound              = "NOT_FOUND"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeInternalError         = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewInvalidTransition rejects a (from, to) pair absent from the guard table.
func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("transition from %s to %s is not allowed", from, to),
		http.StatusConflict,
		map[string]any{"from_status": from, "to_status": to})
}

// NewNoOpTransition rejects a transition request where to == from. Kept
// distinct from INVALID_TRANSITION since racing UI re-submissions hit it.
func NewNoOpTransition(status string) error {
	return NewDomainError(CodeNoOpTransition,
		fmt.Sprintf("ticket is already %s", status),
		http.StatusConflict,
		map[string]any{"status": status})
}

// NewMissingCompletionData rejects a completion without diagnosis/resolution.
func NewMissingCompletionData(field string) error {
	return NewDomainError(CodeMissingCompletionData,
		fmt.Sprintf("%s is required to complete a ticket", field),
		http.StatusBadRequest,
		map[string]any{"missing_field": field})
}

// NewTechnicianUnavailable rejects an assignment the directory turned down.
func NewTechnicianUnavailable(technicianID, reason string) error {
	return NewDomainError(CodeTechnicianUnavailable,
		"technician is not available for this ticket",
		http.StatusConflict,
		map[string]any{"technician_id": technicianID, "reason": reason})
}

// NewAssignmentTimeout reports a timed-out directory lookup. The ticket is
// left unchanged.
func NewAssignmentTimeout(technicianID string) error {
	return NewDomainError(CodeAssignmentTimeout,
		"technician directory did not respond in time",
		http.StatusGatewayTimeout,
		map[string]any{"technician_id": technicianID})
}

// Feedback rejection causes. The two have different user-facing remedies.
const (
	FeedbackCauseWrongStatus      = "ticket_not_completed"
	FeedbackCauseAlreadySubmitted = "already_submitted"
)

// NewFeedbackNotAllowed rejects a feedback submission, carrying the cause.
func NewFeedbackNotAllowed(cause, status string) error {
	return NewDomainError(CodeFeedbackNotAllowed,
		"feedback cannot be submitted for this ticket",
		http.StatusConflict,
		map[string]any{"cause": cause, "status": status})
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
