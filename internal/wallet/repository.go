package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrMissingLedgerRef  = errors.New("wallet mutation requires a ledger transaction id")
	ErrNonPositiveAmount = errors.New("wallet amount must be positive")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w, `SELECT * FROM wallets WHERE user_id = $1`, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 RETURNING id, user_id, balance_cents, currency, created_at, updated_at`,
		userID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// Credit increments the balance in a single atomic statement, creating
// the wallet on first use, then records the paired entry.
func (r *repository) Credit(ctx context.Context, userID int, amountCents int64, ledgerTransactionID string) error {
	if amountCents <= 0 {
		return ErrNonPositiveAmount
	}
	if ledgerTransactionID == "" {
		return ErrMissingLedgerRef
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var walletID int
	var newBalance int64
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO wallets (user_id, balance_cents)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET balance_cents = wallets.balance_cents + $2, updated_at = NOW()
		RETURNING id, balance_cents
	`, userID, amountCents).Scan(&walletID, &newBalance)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_entries (wallet_id, amount_cents, balance_after, ledger_transaction_id)
		VALUES ($1, $2, $3, $4)
	`, walletID, amountCents, newBalance, ledgerTransactionID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Debit takes the row lock, clamps the deduction at zero, and reports a
// shortfall as ErrInsufficientFunds without blocking the settlement.
// Returns the amount actually debited.
func (r *repository) Debit(ctx context.Context, userID int, amountCents int64, ledgerTransactionID string) (int64, error) {
	if amountCents <= 0 {
		return 0, ErrNonPositiveAmount
	}
	if ledgerTransactionID == "" {
		return 0, ErrMissingLedgerRef
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var w Wallet
	err = tx.QueryRowxContext(ctx, `
		SELECT id, user_id, balance_cents, currency, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`, userID).StructScan(&w)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO wallets (user_id)
			VALUES ($1)
			RETURNING id, user_id, balance_cents, currency, created_at, updated_at
		`, userID).StructScan(&w)
	}
	if err != nil {
		return 0, err
	}

	debited := amountCents
	if debited > w.BalanceCents {
		debited = w.BalanceCents
	}
	newBalance := w.BalanceCents - debited

	_, err = tx.ExecContext(ctx, `
		UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2
	`, newBalance, w.ID)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_entries (wallet_id, amount_cents, balance_after, ledger_transaction_id)
		VALUES ($1, $2, $3, $4)
	`, w.ID, -debited, newBalance, ledgerTransactionID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	if debited < amountCents {
		return debited, ErrInsufficientFunds
	}
	return debited, nil
}

func (r *repository) GetEntries(ctx context.Context, userID int, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	var walletID int
	err := r.db.GetContext(ctx, &walletID, `SELECT id FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Entry{}, nil
		}
		return nil, err
	}

	var entries []Entry
	err = r.db.SelectContext(ctx, &entries, `
		SELECT id, wallet_id, amount_cents, balance_after, ledger_transaction_id, created_at
		FROM wallet_entries
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
