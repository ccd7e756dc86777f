package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vibes/internal/booking"
	"vibes/internal/gateway"
	"vibes/internal/ledger"
	"vibes/internal/logger"
	"vibes/internal/metrics"
	"vibes/internal/money"
	"vibes/internal/user"
	"vibes/internal/vendor"
	"vibes/internal/wallet"
)

var (
	ErrAlreadyPaid      = errors.New("booking already has a completed payment")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrForbidden        = errors.New("not allowed to act on this booking")
	ErrNotPaid          = errors.New("booking has no completed payment")
)

// platformAccountID owns the platform-fee ledger rows. It is a synthetic
// account, not a registered user.
const platformAccountID = 0

// Actor is the authenticated caller, as established by the auth
// middleware. The service trusts it.
type Actor struct {
	UserID int
	Role   string
}

type PayResult struct {
	IntentID      string       `json:"intent_id"`
	ClientSecret  string       `json:"client_secret"`
	TransactionID string       `json:"transaction_id"`
	Split         *money.Split `json:"split"`
	// Degraded means gateway customer registration failed and the
	// payment proceeded without a customer ref.
	Degraded bool `json:"degraded,omitempty"`
}

type ConfirmOutcome struct {
	Status           ledger.Status       `json:"status"`
	Transaction      *ledger.Transaction `json:"transaction"`
	AlreadyConfirmed bool                `json:"already_confirmed,omitempty"`
}

type StatusResult struct {
	GatewayStatus gateway.IntentStatus `json:"gateway_status"`
	Transaction   *ledger.Transaction  `json:"transaction,omitempty"`
}

type CancelResult struct {
	Booking           *booking.Booking         `json:"booking"`
	Calculation       *money.RefundCalculation `json:"refund_calculation,omitempty"`
	RefundTransaction *ledger.Transaction      `json:"refund_transaction,omitempty"`
	// ManualRefund means the gateway rejected the refund and a pending
	// transaction tracks the obligation for manual settlement.
	ManualRefund bool `json:"manual_refund,omitempty"`
}

type RescheduleResult struct {
	Booking        *booking.Booking    `json:"booking"`
	FeeCents       int64               `json:"fee_cents"`
	FeeTransaction *ledger.Transaction `json:"fee_transaction,omitempty"`
	// InsufficientFunds means the wallet could not cover the full fee
	// and was clamped at zero. A warning, not a failure.
	InsufficientFunds bool `json:"insufficient_funds,omitempty"`
}

// Notifier is the post-settlement notification hook, satisfied by
// *email.Service. May be nil; settlement never depends on it.
type Notifier interface {
	SendPaymentReceipt(ctx context.Context, email, name string, totalCents int64, currency, reference string) error
	SendRefundNotice(ctx context.Context, email, name string, refundCents int64, currency string, manual bool) error
	SendRescheduleNotice(ctx context.Context, email, name string, when time.Time, feeCents int64, currency string) error
	SendCancellation(ctx context.Context, email, name, details string) error
}

type Service interface {
	Pay(ctx context.Context, actor Actor, bookingID int, paymentMethod string) (*PayResult, error)
	ConfirmPay(ctx context.Context, intentID, paymentMethod string) (*ConfirmOutcome, error)
	CheckStatus(ctx context.Context, intentID string) (*StatusResult, error)
	Cancel(ctx context.Context, actor Actor, bookingID int, reason string, processRefund bool) (*CancelResult, error)
	Reschedule(ctx context.Context, actor Actor, bookingID int, newSchedule time.Time, reason string) (*RescheduleResult, error)
	GetRefundQuote(ctx context.Context, actor Actor, bookingID int) (*money.RefundCalculation, error)
}

type service struct {
	bookingRepo    booking.Repository
	ledgerRepo     ledger.Repository
	walletRepo     wallet.Repository
	vendorRepo     vendor.Repository
	userRepo       user.Repository
	gw             gateway.Gateway
	emails         Notifier
	platformFeePct int64
	adminRole      string

	locks bookingLocks
}

func NewService(
	bookingRepo booking.Repository,
	ledgerRepo ledger.Repository,
	walletRepo wallet.Repository,
	vendorRepo vendor.Repository,
	userRepo user.Repository,
	gw gateway.Gateway,
	emails Notifier,
	platformFeePct int64,
	adminRole string,
) Service {
	return &service{
		bookingRepo:    bookingRepo,
		ledgerRepo:     ledgerRepo,
		walletRepo:     walletRepo,
		vendorRepo:     vendorRepo,
		userRepo:       userRepo,
		gw:             gw,
		emails:         emails,
		platformFeePct: platformFeePct,
		adminRole:      adminRole,
	}
}

func ledgerTypeFor(kind booking.Kind) ledger.Type {
	switch kind {
	case booking.KindTicketOrder:
		return ledger.TypeTicketBooking
	case booking.KindEventPayment:
		return ledger.TypeEventPayment
	default:
		return ledger.TypeVendorBooking
	}
}

// authorize allows the booking owner, the booking's vendor, and admins.
func (s *service) authorize(actor Actor, b *booking.Booking) error {
	if actor.UserID == b.UserID || actor.UserID == b.VendorID || actor.Role == s.adminRole {
		return nil
	}
	return ErrForbidden
}

func (s *service) Pay(ctx context.Context, actor Actor, bookingID int, paymentMethod string) (*PayResult, error) {
	unlock := s.locks.lock(bookingID)
	defer unlock()

	b, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != b.UserID && actor.Role != s.adminRole {
		return nil, ErrForbidden
	}
	if b.Status == booking.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	// One live customer charge per booking. A completed one means the
	// booking is paid; a pending one means an intent is already out
	// there, so hand the same intent back instead of minting another.
	existing, err := s.ledgerRepo.FindCustomerChargeForBooking(ctx, bookingID)
	if err != nil && !errors.Is(err, ledger.ErrTransactionNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Status == ledger.StatusPending {
			intent, err := s.gw.GetPaymentIntent(ctx, existing.ReferenceNumber)
			if err != nil {
				metrics.RecordGatewayError("get_intent")
				return nil, err
			}
			logger.Info("Reusing pending payment intent",
				"booking_id", bookingID, "intent_id", intent.ID)
			return &PayResult{
				IntentID:      intent.ID,
				ClientSecret:  intent.ClientSecret,
				TransactionID: existing.ID,
				Split:         splitFromCharge(b, existing),
			}, nil
		}
		return nil, ErrAlreadyPaid
	}

	split, err := money.ComputeCustomerCharge(b.AmountCents, s.platformFeePct)
	if err != nil {
		return nil, err
	}

	degraded := false
	payer, err := s.userRepo.FindByID(ctx, b.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gw.CreateCustomer(ctx, gateway.CustomerProfile{
		Name:  payer.Name,
		Email: payer.Email,
	}); err != nil {
		degraded = true
		metrics.DegradedCustomerCreations.Inc()
		logger.Error("Gateway customer creation failed, continuing degraded",
			"booking_id", bookingID, "error", err)
	}

	intent, err := s.gw.CreatePaymentIntent(ctx, split.CustomerTotalCents, b.Currency, map[string]string{
		"booking_id":   fmt.Sprintf("%d", b.ID),
		"booking_kind": string(b.Kind),
	})
	if err != nil {
		metrics.RecordGatewayError("create_intent")
		return nil, err
	}

	tx := &ledger.Transaction{
		UserID:           b.UserID,
		AmountCents:      split.CustomerTotalCents,
		Currency:         b.Currency,
		Status:           ledger.StatusPending,
		Type:             ledgerTypeFor(b.Kind),
		Party:            ledger.PartyCustomer,
		ReferenceNumber:  intent.ID,
		RelatedBookingID: &b.ID,
		Description:      fmt.Sprintf("Customer charge for booking %d", b.ID),
		CreatedBy:        actor.UserID,
	}
	txID, err := s.ledgerRepo.Record(ctx, tx)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateReference) {
			// Lost a cross-process race; the other writer's intent wins.
			return nil, ErrAlreadyPaid
		}
		return nil, err
	}

	if err := s.bookingRepo.SetTransactionID(ctx, b.ID, txID); err != nil {
		return nil, err
	}

	metrics.RecordPayment("initiated")
	logger.Info("Payment intent created",
		"booking_id", b.ID, "intent_id", intent.ID, "amount_cents", split.CustomerTotalCents)

	return &PayResult{
		IntentID:      intent.ID,
		ClientSecret:  intent.ClientSecret,
		TransactionID: txID,
		Split:         split,
		Degraded:      degraded,
	}, nil
}

// splitFromCharge rebuilds the fee breakdown of an already-recorded
// charge from the booking base amount, without re-consulting config.
func splitFromCharge(b *booking.Booking, tx *ledger.Transaction) *money.Split {
	return &money.Split{
		CustomerTotalCents: tx.AmountCents,
		HostAmountCents:    b.AmountCents,
		PlatformFeeCents:   tx.AmountCents - b.AmountCents,
	}
}

func (s *service) ConfirmPay(ctx context.Context, intentID, paymentMethod string) (*ConfirmOutcome, error) {
	tx, err := s.ledgerRepo.FindByReference(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if tx.Status == ledger.StatusCompleted {
		return &ConfirmOutcome{Status: tx.Status, Transaction: tx, AlreadyConfirmed: true}, nil
	}
	if tx.Status != ledger.StatusPending {
		return nil, ledger.ErrIllegalTransition
	}
	if tx.RelatedBookingID == nil {
		return nil, booking.ErrBookingNotFound
	}

	unlock := s.locks.lock(*tx.RelatedBookingID)
	defer unlock()

	// Re-read under the lock; a concurrent confirm may have finished.
	tx, err = s.ledgerRepo.FindByReference(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if tx.Status == ledger.StatusCompleted {
		return &ConfirmOutcome{Status: tx.Status, Transaction: tx, AlreadyConfirmed: true}, nil
	}

	res, err := s.gw.ConfirmPaymentIntent(ctx, intentID, paymentMethod)
	if err != nil {
		metrics.RecordGatewayError("confirm_intent")
		return nil, err
	}

	if res.Status != gateway.IntentStatusSucceeded && !res.AlreadyConfirmed {
		if err := s.ledgerRepo.UpdateStatus(ctx, tx.ID, ledger.StatusFailed); err != nil {
			return nil, err
		}
		tx.Status = ledger.StatusFailed
		metrics.RecordPayment("failed")
		logger.Error("Payment confirmation failed",
			"intent_id", intentID, "gateway_status", string(res.Status))
		return &ConfirmOutcome{Status: tx.Status, Transaction: tx}, nil
	}

	if err := s.ledgerRepo.UpdateStatus(ctx, tx.ID, ledger.StatusCompleted); err != nil {
		return nil, err
	}
	tx.Status = ledger.StatusCompleted

	b, err := s.bookingRepo.FindByID(ctx, *tx.RelatedBookingID)
	if err != nil {
		return nil, err
	}

	// The split was fixed when the intent was created; deriving the fee
	// from the recorded charge keeps it immune to config changes between
	// Pay and ConfirmPay.
	hostAmount := b.AmountCents
	platformFee := tx.AmountCents - b.AmountCents

	if _, err := s.ledgerRepo.Record(ctx, &ledger.Transaction{
		UserID:           b.VendorID,
		AmountCents:      hostAmount,
		Currency:         tx.Currency,
		Status:           ledger.StatusCompleted,
		Type:             tx.Type,
		Party:            ledger.PartyHost,
		ReferenceNumber:  intentID + ":host",
		RelatedBookingID: &b.ID,
		Description:      fmt.Sprintf("Host credit for booking %d", b.ID),
		CreatedBy:        tx.CreatedBy,
	}); err != nil {
		return nil, err
	}

	if platformFee > 0 {
		if _, err := s.ledgerRepo.Record(ctx, &ledger.Transaction{
			UserID:           platformAccountID,
			AmountCents:      platformFee,
			Currency:         tx.Currency,
			Status:           ledger.StatusCompleted,
			Type:             tx.Type,
			Party:            ledger.PartyPlatform,
			ReferenceNumber:  intentID + ":platform",
			RelatedBookingID: &b.ID,
			Description:      fmt.Sprintf("Platform fee for booking %d", b.ID),
			CreatedBy:        tx.CreatedBy,
		}); err != nil {
			return nil, err
		}
	}

	if err := s.bookingRepo.MarkConfirmed(ctx, b.ID); err != nil {
		return nil, err
	}

	metrics.RecordPayment("completed")
	logger.Info("Payment settled",
		"booking_id", b.ID, "intent_id", intentID,
		"host_cents", hostAmount, "platform_cents", platformFee)

	s.notifyReceipt(b, tx)

	return &ConfirmOutcome{Status: tx.Status, Transaction: tx}, nil
}

func (s *service) CheckStatus(ctx context.Context, intentID string) (*StatusResult, error) {
	intent, err := s.gw.GetPaymentIntent(ctx, intentID)
	if err != nil {
		metrics.RecordGatewayError("get_intent")
		return nil, err
	}

	result := &StatusResult{GatewayStatus: intent.Status}

	tx, err := s.ledgerRepo.FindByReference(ctx, intentID)
	if err != nil && !errors.Is(err, ledger.ErrTransactionNotFound) {
		return nil, err
	}
	result.Transaction = tx

	return result, nil
}

func (s *service) Cancel(ctx context.Context, actor Actor, bookingID int, reason string, processRefund bool) (*CancelResult, error) {
	unlock := s.locks.lock(bookingID)
	defer unlock()

	b, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == booking.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if err := s.authorize(actor, b); err != nil {
		return nil, err
	}

	terms, err := s.vendorRepo.FindTerms(ctx, b.VendorID)
	if err != nil {
		return nil, err
	}

	var calc *money.RefundCalculation
	charge, err := s.ledgerRepo.FindCustomerChargeForBooking(ctx, bookingID)
	if err != nil && !errors.Is(err, ledger.ErrTransactionNotFound) {
		return nil, err
	}
	if charge != nil && charge.Status == ledger.StatusCompleted {
		calc, err = money.ComputeRefund(charge.AmountCents, terms.CancellationChargePct, terms.RefundPct)
		if err != nil {
			return nil, err
		}
	}

	var (
		refundTx     *ledger.Transaction
		refundTxID   *string
		refundAmount int64
		refundStatus = booking.RefundNone
		manual       bool
	)

	if processRefund && calc != nil && calc.RefundAmountCents > 0 {
		refundAmount = calc.RefundAmountCents

		res, gwErr := s.gw.Refund(ctx, charge.ReferenceNumber, refundAmount, reason)
		if gwErr != nil || !res.Succeeded {
			// The obligation survives the gateway. A non-success refund
			// status (canceled, requires_action) lands here too: money
			// did not move back, so the ledger must not say it did.
			// Track a pending refund for manual settlement and still
			// credit the wallet, but only once the ledger row is durable.
			metrics.RecordGatewayError("refund")
			logger.Error("Gateway refund not completed, falling back to manual settlement",
				"booking_id", bookingID, "intent_id", charge.ReferenceNumber, "error", gwErr)

			refundTx = &ledger.Transaction{
				UserID:                b.UserID,
				AmountCents:           refundAmount,
				Currency:              charge.Currency,
				Status:                ledger.StatusPending,
				Type:                  ledger.TypeRefund,
				Party:                 ledger.PartyCustomer,
				ReferenceNumber:       "manual-refund:" + charge.ReferenceNumber,
				RelatedBookingID:      &b.ID,
				OriginalTransactionID: &charge.ID,
				Description:           fmt.Sprintf("Manual refund for booking %d: %s", b.ID, reason),
				CreatedBy:             actor.UserID,
			}
			id, err := s.ledgerRepo.Record(ctx, refundTx)
			if err != nil {
				return nil, err
			}
			refundTxID = &id

			if err := s.walletRepo.Credit(ctx, b.UserID, refundAmount, id); err != nil {
				return nil, err
			}
			metrics.WalletCreditsTotal.Inc()
			metrics.RecordRefund("manual")
			refundStatus = booking.RefundPending
			manual = true
		} else {
			refundTx = &ledger.Transaction{
				UserID:                b.UserID,
				AmountCents:           refundAmount,
				Currency:              charge.Currency,
				Status:                ledger.StatusCompleted,
				Type:                  ledger.TypeRefund,
				Party:                 ledger.PartyCustomer,
				ReferenceNumber:       res.RefundID,
				RelatedBookingID:      &b.ID,
				OriginalTransactionID: &charge.ID,
				Description:           fmt.Sprintf("Refund for booking %d: %s", b.ID, reason),
				CreatedBy:             actor.UserID,
			}
			id, err := s.ledgerRepo.Record(ctx, refundTx)
			if err != nil {
				return nil, err
			}
			refundTxID = &id

			newStatus := ledger.StatusPartiallyRefunded
			if refundAmount == charge.AmountCents {
				newStatus = ledger.StatusRefunded
			}
			if err := s.ledgerRepo.UpdateStatus(ctx, charge.ID, newStatus); err != nil {
				return nil, err
			}

			if err := s.walletRepo.Credit(ctx, b.UserID, refundAmount, id); err != nil {
				return nil, err
			}
			metrics.WalletCreditsTotal.Inc()
			metrics.RecordRefund("gateway")
			refundStatus = booking.RefundProcessed
		}
		refundTx.ID = *refundTxID
	}

	if err := s.bookingRepo.MarkCancelled(ctx, b.ID, b.Status, refundAmount, refundStatus, refundTxID, actor.UserID); err != nil {
		if errors.Is(err, booking.ErrStatusConflict) {
			return nil, ErrAlreadyCancelled
		}
		return nil, err
	}

	metrics.RecordCancellation()
	logger.Info("Booking cancelled",
		"booking_id", b.ID, "refund_cents", refundAmount, "manual", manual)

	cancelled, err := s.bookingRepo.FindByID(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	s.notifyCancellation(cancelled, refundAmount, manual, reason)

	return &CancelResult{
		Booking:           cancelled,
		Calculation:       calc,
		RefundTransaction: refundTx,
		ManualRefund:      manual,
	}, nil
}

func (s *service) Reschedule(ctx context.Context, actor Actor, bookingID int, newSchedule time.Time, reason string) (*RescheduleResult, error) {
	unlock := s.locks.lock(bookingID)
	defer unlock()

	b, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == booking.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if err := s.authorize(actor, b); err != nil {
		return nil, err
	}

	terms, err := s.vendorRepo.FindTerms(ctx, b.VendorID)
	if err != nil {
		return nil, err
	}

	var (
		feeTx        *ledger.Transaction
		feeCents     int64
		insufficient bool
	)

	// The fee only applies once money actually moved for this booking.
	charge, err := s.ledgerRepo.FindCustomerChargeForBooking(ctx, bookingID)
	if err != nil && !errors.Is(err, ledger.ErrTransactionNotFound) {
		return nil, err
	}
	if charge != nil && charge.Status == ledger.StatusCompleted && terms.CancellationChargePct > 0 {
		feeCents, err = money.ComputeCancellationFee(charge.AmountCents, terms.CancellationChargePct)
		if err != nil {
			return nil, err
		}
	}

	if feeCents > 0 {
		feeTx = &ledger.Transaction{
			UserID:                b.UserID,
			AmountCents:           feeCents,
			Currency:              charge.Currency,
			Status:                ledger.StatusCompleted,
			Type:                  ledger.TypeCancellation,
			Party:                 ledger.PartyCustomer,
			ReferenceNumber:       fmt.Sprintf("reschedule:%s:%s", charge.ReferenceNumber, uuid.NewString()),
			RelatedBookingID:      &b.ID,
			OriginalTransactionID: &charge.ID,
			Description:           fmt.Sprintf("Reschedule fee for booking %d: %s", b.ID, reason),
			CreatedBy:             actor.UserID,
		}
		id, err := s.ledgerRepo.Record(ctx, feeTx)
		if err != nil {
			return nil, err
		}
		feeTx.ID = id

		debited, err := s.walletRepo.Debit(ctx, b.UserID, feeCents, id)
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			insufficient = true
			metrics.InsufficientFundsTotal.Inc()
			logger.Error("Reschedule fee clamped by wallet balance",
				"booking_id", b.ID, "fee_cents", feeCents, "debited_cents", debited)
		} else if err != nil {
			return nil, err
		}
		metrics.WalletDebitsTotal.Inc()
	}

	if err := s.bookingRepo.MarkRescheduled(ctx, b.ID, b.Status, newSchedule); err != nil {
		if errors.Is(err, booking.ErrStatusConflict) {
			return nil, ErrAlreadyCancelled
		}
		return nil, err
	}

	metrics.RecordReschedule()
	logger.Info("Booking rescheduled",
		"booking_id", b.ID, "fee_cents", feeCents, "scheduled_at", newSchedule)

	rescheduled, err := s.bookingRepo.FindByID(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	s.notifyReschedule(rescheduled, feeCents)

	return &RescheduleResult{
		Booking:           rescheduled,
		FeeCents:          feeCents,
		FeeTransaction:    feeTx,
		InsufficientFunds: insufficient,
	}, nil
}

func (s *service) GetRefundQuote(ctx context.Context, actor Actor, bookingID int) (*money.RefundCalculation, error) {
	b, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == booking.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if err := s.authorize(actor, b); err != nil {
		return nil, err
	}

	charge, err := s.ledgerRepo.FindCustomerChargeForBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if charge.Status != ledger.StatusCompleted {
		return nil, ErrNotPaid
	}

	terms, err := s.vendorRepo.FindTerms(ctx, b.VendorID)
	if err != nil {
		return nil, err
	}

	return money.ComputeRefund(charge.AmountCents, terms.CancellationChargePct, terms.RefundPct)
}

// Notifications are fire-and-forget: a failed email never unwinds a
// completed settlement.

func (s *service) notifyReceipt(b *booking.Booking, tx *ledger.Transaction) {
	if s.emails == nil {
		return
	}
	u, err := s.userRepo.FindByID(context.Background(), b.UserID)
	if err != nil {
		logger.Errorf("Receipt email skipped, user lookup failed: %v", err)
		return
	}
	if err := s.emails.SendPaymentReceipt(context.Background(), u.Email, u.Name, tx.AmountCents, tx.Currency, tx.ReferenceNumber); err != nil {
		logger.Errorf("Receipt email enqueue failed: %v", err)
	}
}

func (s *service) notifyCancellation(b *booking.Booking, refundCents int64, manual bool, reason string) {
	if s.emails == nil {
		return
	}
	u, err := s.userRepo.FindByID(context.Background(), b.UserID)
	if err != nil {
		logger.Errorf("Cancellation email skipped, user lookup failed: %v", err)
		return
	}
	if refundCents > 0 {
		err = s.emails.SendRefundNotice(context.Background(), u.Email, u.Name, refundCents, b.Currency, manual)
	} else {
		err = s.emails.SendCancellation(context.Background(), u.Email, u.Name, reason)
	}
	if err != nil {
		logger.Errorf("Cancellation email enqueue failed: %v", err)
	}
}

func (s *service) notifyReschedule(b *booking.Booking, feeCents int64) {
	if s.emails == nil {
		return
	}
	u, err := s.userRepo.FindByID(context.Background(), b.UserID)
	if err != nil {
		logger.Errorf("Reschedule email skipped, user lookup failed: %v", err)
		return
	}
	if err := s.emails.SendRescheduleNotice(context.Background(), u.Email, u.Name, b.ScheduledAt, feeCents, b.Currency); err != nil {
		logger.Errorf("Reschedule email enqueue failed: %v", err)
	}
}
