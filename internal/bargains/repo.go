package bargains

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nirajanoli4567/era-sub000/internal/domain"
)

// ReconciledOrder identifies an order touched by dependent-order
// reconciliation, with enough context to build outcome events.
type ReconciledOrder struct {
	OrderID     string
	OrderNumber string
	UserID      string
}

type ReconcileResult struct {
	Released []ReconciledOrder // awaiting_bargain_approval -> pending
	Removed  []ReconciledOrder // deleted after rejection
}

// ReconcileFunc updates orders blocked on the given bargain, inside the
// same transaction as the bargain's status flip. The orders package
// supplies the implementation; wiring happens in main.
type ReconcileFunc func(ctx context.Context, tx pgx.Tx, bargainID string, accepted bool, proposedCents int64) (ReconcileResult, error)

type Repo struct {
	DB        *pgxpool.Pool
	Reconcile ReconcileFunc
}

const bargainCols = `id, user_id, COALESCE(product_id, ''), scope, items, original_cents,
	proposed_cents, counter_cents, status, response_note, responded_by, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanBargain(row rowScanner) (*Bargain, error) {
	var b Bargain
	var itemsJSON []byte
	err := row.Scan(&b.ID, &b.UserID, &b.ProductID, &b.Scope, &itemsJSON, &b.OriginalCents,
		&b.ProposedCents, &b.CounterCents, &b.Status, &b.ResponseNote, &b.RespondedBy,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &b.Items); err != nil {
			return nil, fmt.Errorf("decode bargain items: %w", err)
		}
	}
	return &b, nil
}

// InsertTx writes a bargain inside a caller-owned transaction. Order
// creation uses this to keep the whole-order bargain in the same commit
// as the order itself.
func InsertTx(ctx context.Context, tx pgx.Tx, b *Bargain) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	var itemsJSON any
	if len(b.Items) > 0 {
		raw, err := json.Marshal(b.Items)
		if err != nil {
			return err
		}
		itemsJSON = raw
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO bargains(id, user_id, product_id, scope, items, original_cents, proposed_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, b.ID, b.UserID, nullstr(b.ProductID), b.Scope, itemsJSON, b.OriginalCents, b.ProposedCents, b.Status)
	if isUniqueViolation(err) {
		return fmt.Errorf("pending bargain already exists for this product: %w", domain.ErrConflict)
	}
	return err
}

func (r *Repo) Insert(ctx context.Context, b *Bargain) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := InsertTx(ctx, tx, b); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Bargain, error) {
	b, err := scanBargain(r.DB.QueryRow(ctx, `SELECT `+bargainCols+` FROM bargains WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("bargain %s: %w", id, domain.ErrNotFound)
	}
	return b, err
}

func (r *Repo) ListAll(ctx context.Context) ([]Bargain, error) {
	return r.list(ctx, `SELECT `+bargainCols+` FROM bargains ORDER BY created_at DESC`)
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Bargain, error) {
	return r.list(ctx, `SELECT `+bargainCols+` FROM bargains WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

// ListByVendor returns bargains on products the vendor owns. Order-scope
// bargains have no product reference and stay admin-only.
func (r *Repo) ListByVendor(ctx context.Context, vendorID string) ([]Bargain, error) {
	return r.list(ctx, `
		SELECT b.id, b.user_id, COALESCE(b.product_id, ''), b.scope, b.items, b.original_cents,
			b.proposed_cents, b.counter_cents, b.status, b.response_note, b.responded_by,
			b.created_at, b.updated_at
		FROM bargains b
		JOIN products p ON p.id = b.product_id
		WHERE p.vendor_id = $1
		ORDER BY b.created_at DESC`, vendorID)
}

func (r *Repo) list(ctx context.Context, sql string, args ...any) ([]Bargain, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bargain
	for rows.Next() {
		b, err := scanBargain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Resolve flips a pending bargain to its terminal status and runs
// dependent-order reconciliation in the same transaction. The status flip
// is a conditional update, so two concurrent resolvers cannot both win.
func (r *Repo) Resolve(ctx context.Context, id string, to Status, note, responder string, counterCents int64) (*Bargain, ReconcileResult, error) {
	var rec ReconcileResult

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, rec, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := scanBargain(tx.QueryRow(ctx, `
		UPDATE bargains
		SET status=$2, response_note=$3, responded_by=$4, counter_cents=$5, updated_at=now()
		WHERE id=$1 AND status='pending'
		RETURNING `+bargainCols,
		id, to, note, responder, counterCents))
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race or never pending: report which.
		var cur Status
		if err2 := r.DB.QueryRow(ctx, `SELECT status FROM bargains WHERE id=$1`, id).Scan(&cur); err2 != nil {
			if errors.Is(err2, pgx.ErrNoRows) {
				return nil, rec, fmt.Errorf("bargain %s: %w", id, domain.ErrNotFound)
			}
			return nil, rec, err2
		}
		return nil, rec, fmt.Errorf("bargain %s is %s, not pending: %w", id, cur, domain.ErrInvalidState)
	}
	if err != nil {
		return nil, rec, err
	}

	// countered keeps dependent orders waiting; only a definitive outcome
	// releases or removes them.
	if r.Reconcile != nil && (to == StatusAccepted || to == StatusRejected) {
		rec, err = r.Reconcile(ctx, tx, b.ID, to == StatusAccepted, b.ProposedCents)
		if err != nil {
			return nil, ReconcileResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, ReconcileResult{}, err
	}
	return b, rec, nil
}

// DeletePending removes a bargain if the caller owns it and it is still
// open. On a miss the current row is inspected to name the right error.
func (r *Repo) DeletePending(ctx context.Context, id, userID string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM bargains WHERE id=$1 AND user_id=$2 AND status='pending'`, id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var owner string
	var status Status
	err = r.DB.QueryRow(ctx, `SELECT user_id, status FROM bargains WHERE id=$1`, id).Scan(&owner, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("bargain %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return fmt.Errorf("bargain %s belongs to another user: %w", id, domain.ErrUnauthorized)
	}
	return fmt.Errorf("bargain %s is %s, not pending: %w", id, status, domain.ErrInvalidState)
}

func nullstr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
