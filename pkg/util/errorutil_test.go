package util

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		code       string
		httpStatus int
	}{
		{name: "invalid transition", err: NewInvalidTransition("PENDING", "COMPLETED"), code: CodeInvalidTransition, httpStatus: http.StatusConflict},
		{name: "no-op transition", err: NewNoOpTransition("ASSIGNED"), code: CodeNoOpTransition, httpStatus: http.StatusConflict},
		{name: "missing completion data", err: NewMissingCompletionData("diagnosis"), code: CodeMissingCompletionData, httpStatus: http.StatusBadRequest},
		{name: "technician unavailable", err: NewTechnicianUnavailable("tech-1", "off duty"), code: CodeTechnicianUnavailable, httpStatus: http.StatusConflict},
		{name: "assignment timeout", err: NewAssignmentTimeout("tech-1"), code: CodeAssignmentTimeout, httpStatus: http.StatusGatewayTimeout},
		{name: "feedback not allowed", err: NewFeedbackNotAllowed(FeedbackCauseWrongStatus, "PENDING"), code: CodeFeedbackNotAllowed, httpStatus: http.StatusConflict},
		{name: "not found", err: NewNotFound("ticket", nil), code: CodeNotFound, httpStatus: http.StatusNotFound},
		{name: "conflict", err: NewConflict("stale version", nil), code: CodeConflict, httpStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domainErr := ToDomainError(tt.err)
			require.NotNil(t, domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
			assert.Equal(t, tt.httpStatus, domainErr.HTTPStatus)
			assert.True(t, HasCode(tt.err, tt.code))
		})
	}
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("connection refused")
	domainErr := ToDomainError(cause)
	require.NotNil(t, domainErr)
	assert.Equal(t, CodeInternalError, domainErr.Code)
	assert.ErrorIs(t, domainErr, cause)
}

func TestHasCodeDistinguishesNoOpFromInvalid(t *testing.T) {
	err := NewNoOpTransition("PENDING")
	assert.True(t, HasCode(err, CodeNoOpTransition))
	assert.False(t, HasCode(err, CodeInvalidTransition))
	assert.False(t, HasCode(nil, CodeNoOpTransition))
}
