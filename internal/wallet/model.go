package wallet

import "time"

// Wallet is a user's internal balance, credited by refunds and debited
// by reschedule charges. It is only ever mutated by the settlement
// service, never directly by request handlers.
type Wallet struct {
	ID           int       `db:"id" json:"id"`
	UserID       int       `db:"user_id" json:"user_id"`
	BalanceCents int64     `db:"balance_cents" json:"balance_cents"`
	Currency     string    `db:"currency" json:"currency"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Entry is the audit trail for one balance change. Every entry carries
// the ledger transaction that explains it.
type Entry struct {
	ID                  int       `db:"id" json:"id"`
	WalletID            int       `db:"wallet_id" json:"wallet_id"`
	AmountCents         int64     `db:"amount_cents" json:"amount_cents"`
	BalanceAfter        int64     `db:"balance_after" json:"balance_after"`
	LedgerTransactionID string    `db:"ledger_transaction_id" json:"ledger_transaction_id"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}
