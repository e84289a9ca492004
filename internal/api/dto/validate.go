package dto

import (
	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/field-service/pkg/util"
)

var validate = validator.New()

// Validate runs struct-tag validation and maps failures to the shared
// validation error shape.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		details := map[string]any{}
		for _, fe := range fieldErrors {
			details[fe.Field()] = fe.Tag()
		}
		return apperrors.NewValidationError("invalid payload", details)
	}
	return apperrors.NewValidationError("invalid payload", nil)
}
