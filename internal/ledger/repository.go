package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidRefundTarget = errors.New("refund must reference a completed transaction")
	ErrIllegalTransition   = errors.New("illegal transaction status transition")
	ErrDuplicateReference  = errors.New("reference number already recorded")
	ErrMissingRefundTarget = errors.New("refund requires an original transaction id")
	ErrNonPositiveAmount   = errors.New("transaction amount must be positive")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Record(ctx context.Context, t *Transaction) (string, error) {
	if t.AmountCents <= 0 {
		return "", ErrNonPositiveAmount
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if t.Type == TypeRefund {
		if t.OriginalTransactionID == nil || *t.OriginalTransactionID == "" {
			return "", ErrMissingRefundTarget
		}
		var originalStatus Status
		err := tx.GetContext(ctx, &originalStatus,
			`SELECT status FROM transactions WHERE id = $1 FOR UPDATE`,
			*t.OriginalTransactionID,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidRefundTarget
		}
		if err != nil {
			return "", err
		}
		if originalStatus != StatusCompleted {
			return "", ErrInvalidRefundTarget
		}
	}

	query := `
		INSERT INTO transactions
			(id, user_id, amount_cents, currency, status, type, party,
			 reference_number, related_booking_id, original_transaction_id,
			 description, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowxContext(ctx, query,
		t.ID, t.UserID, t.AmountCents, t.Currency, t.Status, t.Type, t.Party,
		t.ReferenceNumber, t.RelatedBookingID, t.OriginalTransactionID,
		t.Description, t.CreatedBy,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return "", ErrDuplicateReference
		}
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return t.ID, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id string, newStatus Status) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current Status
	err = tx.GetContext(ctx, &current,
		`SELECT status FROM transactions WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTransactionNotFound
	}
	if err != nil {
		return err
	}

	if !transitionAllowed(current, newStatus) {
		return ErrIllegalTransition
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2`,
		newStatus, id,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

const selectColumns = `
	id, user_id, amount_cents, currency, status, type, party,
	reference_number, related_booking_id, original_transaction_id,
	description, created_by, created_at, updated_at
`

func (r *repository) FindByID(ctx context.Context, id string) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t,
		`SELECT `+selectColumns+` FROM transactions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) FindByReference(ctx context.Context, referenceNumber string) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t,
		`SELECT `+selectColumns+` FROM transactions WHERE reference_number = $1`, referenceNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindCustomerChargeForBooking returns the live customer charge for a
// booking, if one exists. Failed charges do not count: a payment may be
// retried after a failed confirmation.
func (r *repository) FindCustomerChargeForBooking(ctx context.Context, bookingID int) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `
		SELECT `+selectColumns+`
		FROM transactions
		WHERE related_booking_id = $1
		  AND party = 'customer'
		  AND type IN ('event_payment', 'ticket_booking', 'vendor_booking')
		  AND status IN ('pending', 'completed', 'refunded', 'partially_refunded')
		ORDER BY created_at DESC
		LIMIT 1
	`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) ListByBooking(ctx context.Context, bookingID int) ([]Transaction, error) {
	var txs []Transaction
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+selectColumns+`
		FROM transactions
		WHERE related_booking_id = $1
		ORDER BY created_at ASC
	`, bookingID)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var txs []Transaction
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+selectColumns+`
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return txs, nil
}
