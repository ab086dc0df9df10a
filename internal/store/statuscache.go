package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/payment"
)

const statusKeyPrefix = "payment_status:"

// StatusCache keeps the last gateway status answer for a transaction so that
// client polling does not hit the gateway on every request. A nil cache never hits.
type StatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatusCache(rdb *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{rdb: rdb, ttl: ttl}
}

func (c *StatusCache) Get(ctx context.Context, merchantTransactionID string) (payment.StatusResult, bool) {
	if c == nil || c.rdb == nil {
		return payment.StatusResult{}, false
	}

	raw, err := c.rdb.Get(ctx, statusKeyPrefix+merchantTransactionID).Bytes()
	if err != nil {
		return payment.StatusResult{}, false
	}

	var res payment.StatusResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return payment.StatusResult{}, false
	}
	return res, true
}

func (c *StatusCache) Set(ctx context.Context, merchantTransactionID string, res payment.StatusResult) error {
	if c == nil || c.rdb == nil {
		return nil
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, statusKeyPrefix+merchantTransactionID, raw, c.ttl).Err()
}

func (c *StatusCache) Delete(ctx context.Context, merchantTransactionID string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, statusKeyPrefix+merchantTransactionID).Err()
}
