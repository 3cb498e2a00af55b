package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorFormatting(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := NewNotFoundError("city not found")
		assert.Equal(t, "NOT_FOUND_ERROR: city not found", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := fmt.Errorf("connection refused")
		err := NewFetchError("failed to get weather data", cause)
		assert.Contains(t, err.Error(), "FETCH_ERROR")
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("dial timeout")
	err := NewStorageError("redis set failed", cause)

	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.True(t, stderrors.Is(err, cause))
}

func TestIsType(t *testing.T) {
	err := NewPermissionDeniedError("location access refused")

	assert.True(t, IsType(err, PermissionDeniedError))
	assert.False(t, IsType(err, NotFoundError))

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("initialize: %w", err)
		assert.True(t, IsType(wrapped, PermissionDeniedError))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.False(t, IsType(fmt.Errorf("plain"), FetchError))
	})
}
