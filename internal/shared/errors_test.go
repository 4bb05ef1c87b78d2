package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserSafeMessage(t *testing.T) {
	require.Empty(t, UserSafeMessage(nil))
	require.Equal(t, "not found", UserSafeMessage(ErrNotFound))

	// Wrapped sentinels keep their full text.
	wrapped := fmt.Errorf("item WIDGET: %w", ErrNotFound)
	require.Equal(t, "item WIDGET: not found", UserSafeMessage(wrapped))

	// Anything unregistered hides the internals.
	require.Equal(t, "An unexpected error occurred. Please try again.",
		UserSafeMessage(errors.New("pq: connection refused")))
}

func TestRegisterSafeError(t *testing.T) {
	sentinel := errors.New("widget: out of season")
	require.Equal(t, "An unexpected error occurred. Please try again.", UserSafeMessage(sentinel))

	RegisterSafeError(sentinel)
	require.Equal(t, "widget: out of season", UserSafeMessage(sentinel))
	require.Equal(t, "june: widget: out of season", UserSafeMessage(fmt.Errorf("june: %w", sentinel)))
}

func TestValidateStructFlattensFieldErrors(t *testing.T) {
	type payload struct {
		Code string `validate:"required"`
	}
	err := ValidateStruct(payload{})
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, UserSafeMessage(err), "Code is invalid")

	require.NoError(t, ValidateStruct(payload{Code: "WIDGET"}))
}
