package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("finds the code on the error itself", func(t *testing.T) {
		err := New(CodeConflict, "already enrolled")
		require.True(t, HasCode(err, CodeConflict))
		require.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("walks wrapped domain errors", func(t *testing.T) {
		inner := New(CodeTransient, "transaction aborted")
		outer := Wrap(inner, CodeInternal, "request failed")
		require.True(t, HasCode(outer, CodeTransient))
		require.True(t, HasCode(outer, CodeInternal))
	})

	t.Run("sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodeNotFound, "course not found"))
		require.True(t, HasCode(err, CodeNotFound))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		require.False(t, HasCode(errors.New("boom"), CodeInternal))
		require.False(t, HasCode(nil, CodeInternal))
	})
}

func TestCodeOfAndMessageOf(t *testing.T) {
	t.Run("outermost domain error wins", func(t *testing.T) {
		inner := New(CodeConflict, "duplicate")
		outer := Wrap(inner, CodeTransient, "please retry")
		require.Equal(t, CodeTransient, CodeOf(outer))
		require.Equal(t, "please retry", MessageOf(outer))
	})

	t.Run("non-domain errors default to internal", func(t *testing.T) {
		err := errors.New("boom")
		require.Equal(t, CodeInternal, CodeOf(err))
		require.Equal(t, "internal error", MessageOf(err))
	})
}

func TestErrorFormatting(t *testing.T) {
	plain := New(CodeInvalidInput, "user id is required")
	require.Equal(t, "invalid_input: user id is required", plain.Error())

	wrapped := Wrap(errors.New("pq: duplicate key"), CodeConflict, "already enrolled")
	require.Equal(t, "conflict: already enrolled: pq: duplicate key", wrapped.Error())
	require.Equal(t, "pq: duplicate key", errors.Unwrap(wrapped).Error())
}
