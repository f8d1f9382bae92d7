package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormAccessRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAccessRepository(setupFulfillmentTestDB(t))

	t.Run("replace stores sorted unique users", func(t *testing.T) {
		require.NoError(t, repo.Replace(ctx, "s1", []int64{7, 3, 7, 5}))

		ids, err := repo.UserIDs(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 5, 7}, ids)
	})

	t.Run("replace overwrites the previous list", func(t *testing.T) {
		require.NoError(t, repo.Replace(ctx, "s1", []int64{9}))

		ids, err := repo.UserIDs(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, []int64{9}, ids)
	})

	t.Run("replace with nothing clears the list", func(t *testing.T) {
		require.NoError(t, repo.Replace(ctx, "s2", []int64{1}))
		require.NoError(t, repo.Replace(ctx, "s2", nil))

		ids, err := repo.UserIDs(ctx, "s2")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("lookups by user and counts by supply", func(t *testing.T) {
		require.NoError(t, repo.Replace(ctx, "s3", []int64{9, 10}))

		supplies, err := repo.SupplyIDsForUser(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s3"}, supplies)

		counts, err := repo.CountBySupply(ctx, []string{"s1", "s2", "s3"})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"s1": 1, "s3": 2}, counts)

		empty, err := repo.CountBySupply(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}
