package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nirajanoli4567/era-sub000/internal/domain"
)

type Repo struct{ DB *pgxpool.Pool }

// InsertForEvent writes a notification keyed by the event that produced
// it; redelivered events hit the unique constraint and insert nothing.
func (r *Repo) InsertForEvent(ctx context.Context, eventID string, n *Notification) (bool, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO notifications(id, user_id, message, type, link, event_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING
	`, n.ID, n.UserID, n.Message, n.Type, n.Link, eventID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Notification, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, message, type, COALESCE(link, ''), read, created_at
		FROM notifications WHERE user_id=$1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Type, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flips one notification for its owner.
func (r *Repo) MarkRead(ctx context.Context, id, userID string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE notifications SET read=true WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *Repo) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `UPDATE notifications SET read=true WHERE user_id=$1 AND read=false`, userID)
	return err
}
