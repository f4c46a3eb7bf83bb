package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationError_CollectsFirstMessagePerField(t *testing.T) {
	v := NewValidation()
	require.NoError(t, v.OrNil())

	v.Add("price", "must be > 0")
	v.Add("price", "ignored")
	v.Add("brand", "required")

	err := v.OrNil()
	require.Error(t, err)
	require.Equal(t, "validation: brand: required; price: must be > 0", err.Error())

	var ve *ValidationError
	require.True(t, errors.As(fmt.Errorf("wrap: %w", err), &ve))
	require.Equal(t, "must be > 0", ve.Fields["price"])
}

func TestDispatchError_Unwraps(t *testing.T) {
	cause := errors.New("smtp down")
	err := fmt.Errorf("send: %w", &DispatchError{Err: cause})

	require.ErrorIs(t, err, cause)
	var de *DispatchError
	require.ErrorAs(t, err, &de)
}

func TestMismatchError_IsSentinel(t *testing.T) {
	err := error(&MismatchError{Remaining: 2})
	require.ErrorIs(t, err, ErrCodeMismatch)
	require.NotErrorIs(t, err, ErrCodeExpired)
	require.Contains(t, err.Error(), "2 attempts remaining")
}
