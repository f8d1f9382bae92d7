package cache

import (
	"context"
	"testing"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryProductCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryProductCache()

	_, ok := c.Get(ctx, "main", "ART-1")
	assert.False(t, ok)

	info := product.Info{CachedAt: time.Now(), Title: "Mug", Barcodes: []string{"1"}}
	c.Set(ctx, "main", " ART-1 ", info)

	got, ok := c.Get(ctx, "main", "ART-1")
	require.True(t, ok)
	assert.Equal(t, "Mug", got.Title)

	_, ok = c.Get(ctx, "second", "ART-1")
	assert.False(t, ok, "entries are scoped by store")
	assert.Equal(t, 1, c.Len())
}

func TestTieredProductCache(t *testing.T) {
	ctx := context.Background()
	l1 := NewInMemoryProductCache()
	l2 := NewInMemoryProductCache()
	c := NewTieredProductCache(l1, l2)

	l2.Set(ctx, "main", "ART-1", product.Info{Title: "From shared"})

	got, ok := c.Get(ctx, "main", "ART-1")
	require.True(t, ok)
	assert.Equal(t, "From shared", got.Title)

	_, ok = l1.Get(ctx, "main", "ART-1")
	assert.True(t, ok, "shared hit populates the local tier")

	c.Set(ctx, "main", "ART-2", product.Info{Missing: true})
	_, ok = l1.Get(ctx, "main", "ART-2")
	assert.True(t, ok)
	_, ok = l2.Get(ctx, "main", "ART-2")
	assert.True(t, ok)
}

func TestRedisProductCache_Key(t *testing.T) {
	c := NewRedisProductCache(nil, time.Hour, nil)
	assert.Equal(t, "fulfillment:product:main:ART-1", c.key("main", " ART-1 "))
}
