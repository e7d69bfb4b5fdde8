package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

// putIfNewer writes the view only when its version is not older than the
// cached one, so a slow writer cannot roll the cache back.
var putIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// StatusCache keeps order status projections in Redis. Redis errors degrade
// to cache misses.
type StatusCache struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewStatusCache(rdb *redis.Client, log *zap.Logger) *StatusCache {
	return &StatusCache{rdb: rdb, log: log}
}

func (c *StatusCache) Get(ctx context.Context, orderID string) (orders.StatusView, bool) {
	raw, err := c.rdb.HGet(ctx, fmt.Sprintf(KeyOrderStatus, orderID), "data").Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("status cache get", zap.String("order_id", orderID), zap.Error(err))
		}
		return orders.StatusView{}, false
	}
	var v orders.StatusView
	if err := json.Unmarshal(raw, &v); err != nil {
		c.log.Warn("status cache decode", zap.String("order_id", orderID), zap.Error(err))
		return orders.StatusView{}, false
	}
	return v, true
}

func (c *StatusCache) Put(ctx context.Context, view orders.StatusView, version int) {
	b, err := json.Marshal(view)
	if err != nil {
		c.log.Warn("status cache encode", zap.String("order_id", view.ID), zap.Error(err))
		return
	}
	key := fmt.Sprintf(KeyOrderStatus, view.ID)
	if err := putIfNewer.Run(ctx, c.rdb, []string{key}, version, b, TTLStatusCache.Milliseconds()).Err(); err != nil {
		c.log.Warn("status cache put", zap.String("order_id", view.ID), zap.Error(err))
	}
}
