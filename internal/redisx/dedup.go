package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers processed event ids per consumer.
type Deduper struct {
	rdb      *redis.Client
	consumer string
}

func NewDeduper(rdb *redis.Client, consumer string) *Deduper {
	return &Deduper{rdb: rdb, consumer: consumer}
}

// First marks eventID as seen and reports whether this call was the first.
func (d *Deduper) First(ctx context.Context, eventID string) (bool, error) {
	return d.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, d.consumer, eventID), "1", TTLDedup).Result()
}

// Forget clears the mark so a failed event can be processed again.
func (d *Deduper) Forget(ctx context.Context, eventID string) error {
	return d.rdb.Del(ctx, fmt.Sprintf(KeyDedup, d.consumer, eventID)).Err()
}
