package notifications

import "time"

const (
	TypeBargain = "bargain"
	TypeOrder   = "order"
)

// Notification is append-only; only the read flag is ever mutated.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
