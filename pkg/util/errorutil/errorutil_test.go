package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("passes through domain errors", func(t *testing.T) {
		original := NewForbidden("nope")
		got := ToDomainError(fmt.Errorf("wrapped: %w", original))
		require.NotNil(t, got)
		assert.Equal(t, "FORBIDDEN", got.Code)
		assert.Equal(t, http.StatusForbidden, got.HTTPStatus)
	})

	t.Run("maps storage sentinels", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, ToDomainError(fmt.Errorf("user 4: %w", ErrNotFound)).HTTPStatus)
		assert.Equal(t, http.StatusConflict, ToDomainError(ErrConflict).HTTPStatus)
	})

	t.Run("defaults to internal", func(t *testing.T) {
		got := ToDomainError(errors.New("boom"))
		assert.Equal(t, "INTERNAL_ERROR", got.Code)
		assert.Equal(t, "internal server error", got.Message)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
		assert.NoError(t, MapError(nil))
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsNotFound(NewNotFound("meeting", nil)))
	assert.False(t, IsNotFound(NewForbidden("x")))
	assert.False(t, IsNotFound(nil))
}
