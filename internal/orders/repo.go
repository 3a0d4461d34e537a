package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nirajanoli4567/era-sub000/internal/bargains"
	"github.com/Nirajanoli4567/era-sub000/internal/domain"
)

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, order_number, user_id, status, payment_status, total_cents,
	COALESCE(proposed_total_cents, 0), COALESCE(bargain_id, ''),
	full_name, email, phone, address, payment_method, created_at, updated_at`

// Create persists the order, its lines and, when present, the whole-order
// bargain in one transaction. The order number is allocated from a
// sequence; a unique-violation on it is retried once before surfacing as
// a conflict.
func (r *Repo) Create(ctx context.Context, o *Order, ob *bargains.Bargain) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = r.createOnce(ctx, o, ob)
		if err == nil || !isUniqueViolation(err) {
			return err
		}
	}
	return fmt.Errorf("order number collision: %w", domain.ErrConflict)
}

func (r *Repo) createOnce(ctx context.Context, o *Order, ob *bargains.Bargain) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if ob != nil {
		if err := bargains.InsertTx(ctx, tx, ob); err != nil {
			return err
		}
		o.BargainID = ob.ID
	}

	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
		return err
	}
	o.OrderNumber = FormatNumber(time.Now(), seq)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, order_number, user_id, status, payment_status, total_cents,
			proposed_total_cents, bargain_id, full_name, email, phone, address, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, o.ID, o.OrderNumber, o.UserID, o.Status, o.PaymentStatus, o.TotalCents,
		nullint(o.ProposedTotalCents), nullstr(o.BargainID),
		o.Shipping.FullName, o.Shipping.Email, o.Shipping.Phone, o.Shipping.Address, o.Shipping.PaymentMethod)
	if err != nil {
		return err
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.OrderID = o.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, qty, price_cents, bargain_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, it.ID, it.OrderID, it.ProductID, it.Qty, it.PriceCents, nullstr(it.BargainID))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	items, err := r.itemsFor(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repo) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderCols+` FROM orders ORDER BY created_at DESC`)
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *Repo) list(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repo) itemsFor(ctx context.Context, orderIDs []string) (map[string][]OrderItem, error) {
	out := map[string][]OrderItem{}
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, qty, price_cents, COALESCE(bargain_id, '')
		FROM order_items WHERE order_id = ANY($1)
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &it.PriceCents, &it.BargainID); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

// UpdateStatus is a conditional write: the row must still be in the status
// the caller validated the transition from.
func (r *Repo) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=now() WHERE id=$1 AND status=$2
	`, id, from, to)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var cur Status
	err = r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("order %s moved to %s concurrently: %w", id, cur, domain.ErrInvalidState)
}

func (r *Repo) UpdatePaymentStatus(ctx context.Context, id string, ps PaymentStatus) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET payment_status=$2, updated_at=now() WHERE id=$1`, id, ps)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ReconcileBargain implements bargains.ReconcileFunc. Only orders still
// blocked on the bargain are touched, which makes reruns no-ops: an
// accepted bargain releases them to fulfillment with the negotiated total,
// a rejected one removes them outright.
func (r *Repo) ReconcileBargain(ctx context.Context, tx pgx.Tx, bargainID string, accepted bool, proposedCents int64) (bargains.ReconcileResult, error) {
	var rec bargains.ReconcileResult
	var rows pgx.Rows
	var err error

	if accepted {
		rows, err = tx.Query(ctx, `
			UPDATE orders
			SET total_cents=$2, status='pending', updated_at=now()
			WHERE bargain_id=$1 AND status='awaiting_bargain_approval'
			RETURNING id, order_number, user_id
		`, bargainID, proposedCents)
	} else {
		rows, err = tx.Query(ctx, `
			DELETE FROM orders
			WHERE bargain_id=$1 AND status='awaiting_bargain_approval'
			RETURNING id, order_number, user_id
		`, bargainID)
	}
	if err != nil {
		return rec, err
	}
	defer rows.Close()

	for rows.Next() {
		var o bargains.ReconciledOrder
		if err := rows.Scan(&o.OrderID, &o.OrderNumber, &o.UserID); err != nil {
			return bargains.ReconcileResult{}, err
		}
		if accepted {
			rec.Released = append(rec.Released, o)
		} else {
			rec.Removed = append(rec.Removed, o)
		}
	}
	return rec, rows.Err()
}

func scanOrder(row interface{ Scan(dest ...any) error }) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.PaymentStatus, &o.TotalCents,
		&o.ProposedTotalCents, &o.BargainID,
		&o.Shipping.FullName, &o.Shipping.Email, &o.Shipping.Phone, &o.Shipping.Address,
		&o.Shipping.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func nullstr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullint(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
