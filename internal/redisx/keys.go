package redisx

import "time"

const (
	// Idempotent create order: idem:order:create:{idempotency_key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// Status cache: hash order_status:{order_id} {v: version, data: StatusView json}
	KeyOrderStatus = "order_status:%s"

	// Dedup of consumed events: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	// pending claims expire quickly so a crashed request frees its key
	TTLIdempotencyPending = 30 * time.Second
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
