package redisx

import "time"

const (
	// Cache of an order's current status: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Cache of a bargain's current status: bargain_status:{bargain_id} -> {"status": "..."}
	KeyBargainStatus = "bargain_status:%s"

	// Dedup for event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
