package booking

import "time"

type Kind string
type Status string
type RefundStatus string

const (
	KindVendorBooking Kind = "vendor_booking"
	KindTicketOrder   Kind = "ticket_order"
	KindEventPayment  Kind = "event_payment"

	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"

	RefundNone      RefundStatus = "none"
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
)

// Booking is either a vendor booking or a ticket order. AmountCents is
// the base price owed to the vendor, before the platform fee.
type Booking struct {
	ID                  int          `db:"id" json:"id"`
	UserID              int          `db:"user_id" json:"user_id"`
	VendorID            int          `db:"vendor_id" json:"vendor_id"`
	Kind                Kind         `db:"kind" json:"kind"`
	AmountCents         int64        `db:"amount_cents" json:"amount_cents"`
	Currency            string       `db:"currency" json:"currency"`
	Status              Status       `db:"status" json:"status"`
	TransactionID       *string      `db:"transaction_id" json:"transaction_id,omitempty"`
	RefundTransactionID *string      `db:"refund_transaction_id" json:"refund_transaction_id,omitempty"`
	RefundAmountCents   int64        `db:"refund_amount_cents" json:"refund_amount_cents"`
	RefundStatus        RefundStatus `db:"refund_status" json:"refund_status"`
	ScheduledAt         time.Time    `db:"scheduled_at" json:"scheduled_at"`
	CancelledAt         *time.Time   `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy         *int         `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CreatedAt           time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time    `db:"updated_at" json:"updated_at"`
}
