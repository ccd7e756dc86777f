package ledger

import "context"

type Repository interface {
	Record(ctx context.Context, tx *Transaction) (string, error)
	UpdateStatus(ctx context.Context, id string, newStatus Status) error
	FindByID(ctx context.Context, id string) (*Transaction, error)
	FindByReference(ctx context.Context, referenceNumber string) (*Transaction, error)
	FindCustomerChargeForBooking(ctx context.Context, bookingID int) (*Transaction, error)
	ListByBooking(ctx context.Context, bookingID int) ([]Transaction, error)
	ListByUser(ctx context.Context, userID int, limit, offset int) ([]Transaction, error)
}
