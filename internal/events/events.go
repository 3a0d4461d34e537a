package events

import (
	"encoding/json"
	"time"
)

const (
	EventBargainCreated     = "BargainCreated"
	EventBargainResolved    = "BargainResolved"
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderRemoved       = "OrderRemoved"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "marketplace-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // bargain_id or order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload types per event ----

type BargainCreatedPayload struct {
	BargainID     string `json:"bargain_id"`
	UserID        string `json:"user_id"`
	ProductID     string `json:"product_id,omitempty"`
	Scope         string `json:"scope"` // product | order
	OriginalCents int64  `json:"original_cents"`
	ProposedCents int64  `json:"proposed_cents"`
}

type BargainResolvedPayload struct {
	BargainID     string `json:"bargain_id"`
	UserID        string `json:"user_id"`
	ProductID     string `json:"product_id,omitempty"`
	Scope         string `json:"scope"`
	Status        string `json:"status"` // accepted | rejected | countered
	ProposedCents int64  `json:"proposed_cents"`
	CounterCents  int64  `json:"counter_cents,omitempty"`
	Note          string `json:"note,omitempty"`
}

type OrderCreatedPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	Status      string `json:"status"`
	TotalCents  int64  `json:"total_cents"`
}

type OrderStatusChangedPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	From        string `json:"from"`
	To          string `json:"to"`
}

type OrderRemovedPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	Reason      string `json:"reason"` // e.g., BARGAIN_REJECTED
}
