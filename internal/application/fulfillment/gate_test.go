package fulfillment

import (
	"context"
	"testing"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/supply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSupplyGate_Active(t *testing.T) {
	ctx := context.Background()

	newGate := func(env *testEnv) supplyGate {
		return supplyGate{settings: env.settings, access: env.access, feed: env.feed, logger: zap.NewNop()}
	}

	t.Run("supply without a store skips the check", func(t *testing.T) {
		env := newTestEnv(t)
		settings, err := env.settings.Ensure(ctx, "S-LOOSE", "Без магазина", nil)
		require.NoError(t, err)
		require.Empty(t, settings.StoreID)

		assert.NoError(t, newGate(env).active(ctx, settings))
		env.api.AssertNotCalled(t, "Supplies", mock.Anything, mock.Anything)
	})

	t.Run("closed supply of a known store is unavailable", func(t *testing.T) {
		env := newTestEnv(t)
		env.api.On("Supplies", mock.Anything, testStore).Return([]supply.RemoteSupply{}, nil)
		settings, err := env.settings.Ensure(ctx, "S-DONE", "Закрыта", &testStore)
		require.NoError(t, err)

		assert.ErrorIs(t, newGate(env).active(ctx, settings), supply.ErrSupplyUnavailable)
	})
}
