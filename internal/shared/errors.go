package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateCode indicates a code collision on insert.
	ErrDuplicateCode = errors.New("code already exists")
	// ErrValidation indicates rejected input.
	ErrValidation = errors.New("validation failed")
)

// safe marks error values whose message may be shown to the operator as-is.
var safe = []error{ErrNotFound, ErrDuplicateCode, ErrValidation}

// RegisterSafeError adds module sentinels to the operator-safe set.
func RegisterSafeError(errs ...error) {
	safe = append(safe, errs...)
}

// UserSafeMessage returns the error text when it is safe to surface,
// otherwise a generic message.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, s := range safe {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return "An unexpected error occurred. Please try again."
}
