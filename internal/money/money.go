// Package money holds the pure fee-split and refund arithmetic for the
// settlement engine. All amounts are integer minor units (cents); the
// split and refund helpers are constructed so that totals always balance
// exactly, with no rounding drift.
package money

import "errors"

var (
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrInvalidPercent = errors.New("percent must be between 0 and 100")
)

// Split is the breakdown of a customer charge.
type Split struct {
	CustomerTotalCents int64 `json:"customer_total_cents"`
	HostAmountCents    int64 `json:"host_amount_cents"`
	PlatformFeeCents   int64 `json:"platform_fee_cents"`
}

// RefundCalculation is the breakdown of a cancellation refund.
type RefundCalculation struct {
	OriginalAmountCents   int64 `json:"original_amount_cents"`
	CancellationFeeCents  int64 `json:"cancellation_fee_cents"`
	RefundableAmountCents int64 `json:"refundable_amount_cents"`
	RefundAmountCents     int64 `json:"refund_amount_cents"`
	RetainedAmountCents   int64 `json:"retained_amount_cents"`
	CancellationChargePct int64 `json:"cancellation_charge_pct"`
	RefundPct             int64 `json:"refund_pct"`
}

// ComputeCustomerCharge computes the total a customer pays for a base
// amount plus the platform fee skimmed on top. The host is owed exactly
// the base amount, so CustomerTotal == HostAmount + PlatformFee holds by
// construction.
func ComputeCustomerCharge(baseAmountCents, platformFeePct int64) (*Split, error) {
	if baseAmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if platformFeePct < 0 || platformFeePct > 100 {
		return nil, ErrInvalidPercent
	}

	fee := percentOf(baseAmountCents, platformFeePct)
	return &Split{
		CustomerTotalCents: baseAmountCents + fee,
		HostAmountCents:    baseAmountCents,
		PlatformFeeCents:   fee,
	}, nil
}

// ComputeRefund computes how much of an original charge is returned to
// the customer when a booking is cancelled. The cancellation charge is
// taken off the top, then the vendor's refund percent applies to the
// remainder. RefundAmount + RetainedAmount == OriginalAmount always.
func ComputeRefund(originalAmountCents, cancellationChargePct, refundPct int64) (*RefundCalculation, error) {
	if originalAmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if cancellationChargePct < 0 || cancellationChargePct > 100 {
		return nil, ErrInvalidPercent
	}
	refundPct = clampPct(refundPct)

	fee := percentOf(originalAmountCents, cancellationChargePct)
	refundable := originalAmountCents - fee
	refund := percentOf(refundable, refundPct)

	return &RefundCalculation{
		OriginalAmountCents:   originalAmountCents,
		CancellationFeeCents:  fee,
		RefundableAmountCents: refundable,
		RefundAmountCents:     refund,
		RetainedAmountCents:   originalAmountCents - refund,
		CancellationChargePct: cancellationChargePct,
		RefundPct:             refundPct,
	}, nil
}

// ComputeCancellationFee is the reschedule charge: the cancellation
// percentage of the original amount, with no refund leg.
func ComputeCancellationFee(originalAmountCents, cancellationChargePct int64) (int64, error) {
	if originalAmountCents <= 0 {
		return 0, ErrInvalidAmount
	}
	if cancellationChargePct < 0 || cancellationChargePct > 100 {
		return 0, ErrInvalidPercent
	}
	return percentOf(originalAmountCents, cancellationChargePct), nil
}

// percentOf rounds half-up in integer minor units.
func percentOf(amountCents, pct int64) int64 {
	return (amountCents*pct + 50) / 100
}

func clampPct(pct int64) int64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
