package bargains

import "time"

// Scope says what a bargain covers: one product, or a whole order's
// snapshotted item set.
type Scope string

const (
	ScopeProduct Scope = "product"
	ScopeOrder   Scope = "order"
)

type Item struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type Bargain struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	// ProductID is empty for order-scope bargains; Items is empty for
	// product-scope ones.
	ProductID     string    `json:"product_id,omitempty"`
	Scope         Scope     `json:"scope"`
	Items         []Item    `json:"items,omitempty"`
	OriginalCents int64     `json:"original_cents"`
	ProposedCents int64     `json:"proposed_cents"`
	CounterCents  int64     `json:"counter_cents,omitempty"`
	Status        Status    `json:"status"`
	ResponseNote  string    `json:"response_note,omitempty"`
	RespondedBy   string    `json:"responded_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
