package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	supplyGone := Derive(ErrNotFound, "supply unavailable")
	orderGone := Derive(ErrNotFound, "order not found")

	t.Run("keeps parent code", func(t *testing.T) {
		assert.Equal(t, "NOT_FOUND", supplyGone.Code)
		assert.Equal(t, "supply unavailable", supplyGone.Error())
	})

	t.Run("matches parent kind through wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("scan: %w", supplyGone)
		assert.True(t, errors.Is(wrapped, ErrNotFound))
		assert.True(t, errors.Is(wrapped, supplyGone))
	})

	t.Run("siblings stay distinct", func(t *testing.T) {
		assert.False(t, errors.Is(orderGone, supplyGone))
		assert.False(t, errors.Is(supplyGone, ErrForbidden))
	})
}
