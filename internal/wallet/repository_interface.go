package wallet

import "context"

type Repository interface {
	GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error)
	// Credit and Debit require the id of an already-committed ledger
	// transaction so every balance change is explained by the ledger.
	Credit(ctx context.Context, userID int, amountCents int64, ledgerTransactionID string) error
	// Debit clamps at zero; when the balance cannot cover the full
	// amount it debits what is there and returns the shortfall alongside
	// ErrInsufficientFunds, which callers treat as a warning.
	Debit(ctx context.Context, userID int, amountCents int64, ledgerTransactionID string) (int64, error)
	GetEntries(ctx context.Context, userID int, limit, offset int) ([]Entry, error)
}
