package ledger

import "time"

type Status string
type Type string
type Party string

const (
	StatusPending           Status = "pending"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
	StatusRefunded          Status = "refunded"
	StatusPartiallyRefunded Status = "partially_refunded"

	TypeEventPayment  Type = "event_payment"
	TypeTicketBooking Type = "ticket_booking"
	TypeVendorBooking Type = "vendor_booking"
	TypeRefund        Type = "refund"
	TypeCancellation  Type = "cancellation"

	// Party marks which side of the marketplace a row settles: the paying
	// customer, the host/vendor being credited, or the platform's fee cut.
	PartyCustomer Party = "customer"
	PartyHost     Party = "host"
	PartyPlatform Party = "platform"
)

// Transaction is one append-only money movement. Amount is immutable
// after creation; only status and the audit timestamps ever change.
type Transaction struct {
	ID                    string    `db:"id" json:"id"`
	UserID                int       `db:"user_id" json:"user_id"`
	AmountCents           int64     `db:"amount_cents" json:"amount_cents"`
	Currency              string    `db:"currency" json:"currency"`
	Status                Status    `db:"status" json:"status"`
	Type                  Type      `db:"type" json:"type"`
	Party                 Party     `db:"party" json:"party"`
	ReferenceNumber       string    `db:"reference_number" json:"reference_number,omitempty"`
	RelatedBookingID      *int      `db:"related_booking_id" json:"related_booking_id,omitempty"`
	OriginalTransactionID *string   `db:"original_transaction_id" json:"original_transaction_id,omitempty"`
	Description           string    `db:"description" json:"description,omitempty"`
	CreatedBy             int       `db:"created_by" json:"created_by"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// allowedTransitions is the only legal status lattice. Everything else is
// rejected with ErrIllegalTransition.
var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusFailed},
	StatusCompleted: {StatusRefunded, StatusPartiallyRefunded},
}

func transitionAllowed(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
