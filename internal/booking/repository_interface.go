package booking

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) (*Booking, error)
	FindByID(ctx context.Context, id int) (*Booking, error)
	ListByUser(ctx context.Context, userID int) ([]Booking, error)
	SetTransactionID(ctx context.Context, id int, transactionID string) error
	// MarkConfirmed moves a pending or rescheduled booking to confirmed.
	MarkConfirmed(ctx context.Context, id int) error
	// MarkCancelled is a compare-and-swap on the prior status so only one
	// of two racing cancellations wins.
	MarkCancelled(ctx context.Context, id int, from Status, refundAmountCents int64, refundStatus RefundStatus, refundTransactionID *string, cancelledBy int) error
	MarkRescheduled(ctx context.Context, id int, from Status, scheduledAt time.Time) error
}
