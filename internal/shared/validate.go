package shared

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is the shared struct validator instance.
var Validator = validator.New()

// ValidateStruct validates a request DTO and flattens field errors into a
// single operator-readable message.
func ValidateStruct(v any) error {
	err := Validator.Struct(v)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fe.Field()+" is invalid ("+fe.Tag()+")")
	}
	return &FieldError{Message: strings.Join(parts, "; ")}
}

// FieldError wraps validator failures as a validation error.
type FieldError struct {
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// Unwrap allows errors.Is(err, ErrValidation).
func (e *FieldError) Unwrap() error { return ErrValidation }
