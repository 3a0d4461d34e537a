package orders

import (
	"fmt"
	"time"
)

// FormatNumber builds the human-readable order identifier,
// ORD-YYMMDD-<n>. The sequence value comes from a database sequence so
// concurrent checkouts never collide; uniqueness is still backed by a
// constraint on the column.
func FormatNumber(t time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%d", t.UTC().Format("060102"), seq)
}
