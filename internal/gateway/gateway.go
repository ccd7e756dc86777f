// Package gateway abstracts the external card-payment processor behind a
// capability-set interface: create customer, create/confirm/retrieve
// payment intents, refund. Callers never see vendor types.
package gateway

import (
	"context"
	"fmt"
)

type IntentStatus string

const (
	IntentStatusRequiresConfirmation IntentStatus = "requires_confirmation"
	IntentStatusProcessing           IntentStatus = "processing"
	IntentStatusSucceeded            IntentStatus = "succeeded"
	IntentStatusCanceled             IntentStatus = "canceled"
	IntentStatusFailed               IntentStatus = "failed"
)

type CustomerProfile struct {
	Name  string
	Email string
	Phone string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	AmountCents  int64
	Currency     string
}

type ConfirmResult struct {
	Status IntentStatus
	// AlreadyConfirmed marks a confirm call against an intent that had
	// already succeeded. It is an outcome, not an error.
	AlreadyConfirmed bool
}

type RefundResult struct {
	RefundID  string
	Succeeded bool
}

type Gateway interface {
	// CreateCustomer registers the payer with the processor. Failures are
	// recoverable: callers proceed without a customer ref in degraded mode.
	CreateCustomer(ctx context.Context, profile CustomerProfile) (string, error)
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)
	ConfirmPaymentIntent(ctx context.Context, intentID, paymentMethod string) (*ConfirmResult, error)
	// GetPaymentIntent is a read and may be retried transparently.
	GetPaymentIntent(ctx context.Context, intentID string) (*Intent, error)
	Refund(ctx context.Context, intentID string, amountCents int64, reason string) (*RefundResult, error)
}

// Error wraps any processor failure with the operation that produced it.
type Error struct {
	Op     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("gateway %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IntentCreationError aborts a payment before any ledger write; handlers
// surface it as a client error.
type IntentCreationError struct {
	Reason string
}

func (e *IntentCreationError) Error() string {
	return "payment intent creation failed: " + e.Reason
}

// RefundError signals that the processor rejected a refund; the caller
// falls back to a manually-tracked pending refund rather than losing the
// obligation.
type RefundError struct {
	Reason string
	Err    error
}

func (e *RefundError) Error() string {
	if e.Reason != "" {
		return "refund failed: " + e.Reason
	}
	return fmt.Sprintf("refund failed: %v", e.Err)
}

func (e *RefundError) Unwrap() error { return e.Err }
