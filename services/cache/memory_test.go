package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asm/core"
)

type cached struct {
	Name string          `json:"name"`
	Pct  decimal.Decimal `json:"pct"`
}

func TestMemoryCache(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	origNow := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = origNow })

	ctx := context.Background()
	c := NewMemoryCache()

	var dst cached
	found, err := c.Get(ctx, "k", &dst)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", cached{Name: "Alice", Pct: decimal.RequireFromString("66.67")}, time.Minute))
	found, err = c.Get(ctx, "k", &dst)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Alice", dst.Name)
	assert.Equal(t, "66.67", dst.Pct.StringFixed(2))

	now = now.Add(2 * time.Minute)
	found, err = c.Get(ctx, "k", &dst)
	require.NoError(t, err)
	assert.False(t, found, "expired entries are dropped")

	require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, c.Delete(ctx, "a", "missing"))
	var n int
	found, _ = c.Get(ctx, "a", &n)
	assert.False(t, found)
}

func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	var c core.Cache = NoopCache{}
	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	var n int
	found, err := c.Get(ctx, "k", &n)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not a url", "asm")
	assert.Error(t, err)
}
