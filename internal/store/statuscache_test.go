package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/payment"
)

func TestStatusCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	cache := NewStatusCache(rdb, 5*time.Second)

	_, ok := cache.Get(ctx, "T1")
	assert.False(t, ok)

	want := payment.StatusResult{Status: payment.StatusPending, Code: "PAYMENT_PENDING"}
	require.NoError(t, cache.Set(ctx, "T1", want))

	got, ok := cache.Get(ctx, "T1")
	require.True(t, ok)
	assert.Equal(t, want, got)

	mr.FastForward(6 * time.Second)
	_, ok = cache.Get(ctx, "T1")
	assert.False(t, ok)
}

func TestStatusCache_Nil(t *testing.T) {
	var cache *StatusCache

	_, ok := cache.Get(context.Background(), "T1")
	assert.False(t, ok)
	assert.NoError(t, cache.Set(context.Background(), "T1", payment.StatusResult{}))
}
