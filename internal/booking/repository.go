package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrStatusConflict  = errors.New("booking status changed concurrently")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const selectColumns = `
	id, user_id, vendor_id, kind, amount_cents, currency, status,
	transaction_id, refund_transaction_id, refund_amount_cents, refund_status,
	scheduled_at, cancelled_at, cancelled_by, created_at, updated_at
`

func (r *repository) Create(ctx context.Context, b *Booking) (*Booking, error) {
	query := `
		INSERT INTO bookings (user_id, vendor_id, kind, amount_cents, currency, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6)
		RETURNING ` + selectColumns + `
	`

	var created Booking
	err := r.db.GetContext(ctx, &created, query,
		b.UserID, b.VendorID, b.Kind, b.AmountCents, b.Currency, b.ScheduledAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *repository) FindByID(ctx context.Context, id int) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b,
		`SELECT `+selectColumns+` FROM bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+selectColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) SetTransactionID(ctx context.Context, id int, transactionID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET transaction_id = $1, updated_at = NOW() WHERE id = $2
	`, transactionID, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *repository) MarkConfirmed(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'confirmed', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'rescheduled')
	`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *repository) MarkCancelled(ctx context.Context, id int, from Status, refundAmountCents int64, refundStatus RefundStatus, refundTransactionID *string, cancelledBy int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
		    refund_amount_cents = $1,
		    refund_status = $2,
		    refund_transaction_id = $3,
		    cancelled_at = NOW(),
		    cancelled_by = $4,
		    updated_at = NOW()
		WHERE id = $5 AND status = $6
	`, refundAmountCents, refundStatus, refundTransactionID, cancelledBy, id, from)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *repository) MarkRescheduled(ctx context.Context, id int, from Status, scheduledAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'rescheduled', scheduled_at = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, scheduledAt, id, from)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrStatusConflict
	}
	return nil
}
