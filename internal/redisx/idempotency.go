package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

// ErrInFlight means another request holding the same key has not finished.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

// Idempotency guards order creation keyed by a client supplied token.
type Idempotency struct {
	rdb        *redis.Client
	pendingTTL time.Duration
}

// NewIdempotency holds unfinished claims for pendingTTL, which should cover
// the longest create request. Zero uses TTLIdempotencyPending.
func NewIdempotency(rdb *redis.Client, pendingTTL time.Duration) *Idempotency {
	if pendingTTL <= 0 {
		pendingTTL = TTLIdempotencyPending
	}
	return &Idempotency{rdb: rdb, pendingTTL: pendingTTL}
}

// Claim reserves key for the caller. When the key was already completed it
// returns the stored order id and claimed=false; a key still pending yields
// ErrInFlight.
func (i *Idempotency) Claim(ctx context.Context, key string) (orderID string, claimed bool, err error) {
	k := fmt.Sprintf(KeyIdemOrderCreate, key)
	ok, err := i.rdb.SetNX(ctx, k, pendingMarker, i.pendingTTL).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}

	v, err := i.rdb.Get(ctx, k).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// expired between SETNX and GET; try once more
		ok, err = i.rdb.SetNX(ctx, k, pendingMarker, i.pendingTTL).Result()
		if err != nil {
			return "", false, err
		}
		if ok {
			return "", true, nil
		}
		return "", false, ErrInFlight
	case err != nil:
		return "", false, err
	case v == pendingMarker:
		return "", false, ErrInFlight
	}
	return v, false, nil
}

// Complete stores the created order id for TTLIdempotency.
func (i *Idempotency) Complete(ctx context.Context, key, orderID string) error {
	return i.rdb.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, key), orderID, TTLIdempotency).Err()
}

// Release drops a claim whose request failed so the client may retry.
func (i *Idempotency) Release(ctx context.Context, key string) error {
	return i.rdb.Del(ctx, fmt.Sprintf(KeyIdemOrderCreate, key)).Err()
}
