package settlement

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"vibes/internal/booking"
	"vibes/internal/gateway"
	"vibes/internal/ledger"
	"vibes/internal/logger"
	"vibes/internal/user"
	"vibes/internal/vendor"
	"vibes/internal/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) Create(ctx context.Context, b *booking.Booking) (*booking.Booking, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepo) FindByID(ctx context.Context, id int) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepo) ListByUser(ctx context.Context, userID int) ([]booking.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.Booking), args.Error(1)
}

func (m *MockBookingRepo) SetTransactionID(ctx context.Context, id int, transactionID string) error {
	args := m.Called(ctx, id, transactionID)
	return args.Error(0)
}

func (m *MockBookingRepo) MarkConfirmed(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingRepo) MarkCancelled(ctx context.Context, id int, from booking.Status, refundAmountCents int64, refundStatus booking.RefundStatus, refundTransactionID *string, cancelledBy int) error {
	args := m.Called(ctx, id, from, refundAmountCents, refundStatus, refundTransactionID, cancelledBy)
	return args.Error(0)
}

func (m *MockBookingRepo) MarkRescheduled(ctx context.Context, id int, from booking.Status, scheduledAt time.Time) error {
	args := m.Called(ctx, id, from, scheduledAt)
	return args.Error(0)
}

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Record(ctx context.Context, t *ledger.Transaction) (string, error) {
	args := m.Called(ctx, t)
	return args.String(0), args.Error(1)
}

func (m *MockLedgerRepo) UpdateStatus(ctx context.Context, id string, newStatus ledger.Status) error {
	args := m.Called(ctx, id, newStatus)
	return args.Error(0)
}

func (m *MockLedgerRepo) FindByID(ctx context.Context, id string) (*ledger.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepo) FindByReference(ctx context.Context, referenceNumber string) (*ledger.Transaction, error) {
	args := m.Called(ctx, referenceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepo) FindCustomerChargeForBooking(ctx context.Context, bookingID int) (*ledger.Transaction, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepo) ListByBooking(ctx context.Context, bookingID int) ([]ledger.Transaction, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepo) ListByUser(ctx context.Context, userID int, limit, offset int) ([]ledger.Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

type MockWalletRepo struct {
	mock.Mock
}

func (m *MockWalletRepo) GetOrCreateWallet(ctx context.Context, userID int) (*wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockWalletRepo) Credit(ctx context.Context, userID int, amountCents int64, ledgerTransactionID string) error {
	args := m.Called(ctx, userID, amountCents, ledgerTransactionID)
	return args.Error(0)
}

func (m *MockWalletRepo) Debit(ctx context.Context, userID int, amountCents int64, ledgerTransactionID string) (int64, error) {
	args := m.Called(ctx, userID, amountCents, ledgerTransactionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletRepo) GetEntries(ctx context.Context, userID int, limit, offset int) ([]wallet.Entry, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.Entry), args.Error(1)
}

type MockVendorRepo struct {
	mock.Mock
}

func (m *MockVendorRepo) FindTerms(ctx context.Context, vendorID int) (*vendor.Terms, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.Terms), args.Error(1)
}

func (m *MockVendorRepo) UpsertTerms(ctx context.Context, terms *vendor.Terms) (*vendor.Terms, error) {
	args := m.Called(ctx, terms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.Terms), args.Error(1)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCustomer(ctx context.Context, profile gateway.CustomerProfile) (string, error) {
	args := m.Called(ctx, profile)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*gateway.Intent, error) {
	args := m.Called(ctx, amountCents, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Intent), args.Error(1)
}

func (m *MockGateway) ConfirmPaymentIntent(ctx context.Context, intentID, paymentMethod string) (*gateway.ConfirmResult, error) {
	args := m.Called(ctx, intentID, paymentMethod)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ConfirmResult), args.Error(1)
}

func (m *MockGateway) GetPaymentIntent(ctx context.Context, intentID string) (*gateway.Intent, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Intent), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, intentID string, amountCents int64, reason string) (*gateway.RefundResult, error) {
	args := m.Called(ctx, intentID, amountCents, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RefundResult), args.Error(1)
}

type fixture struct {
	bookings *MockBookingRepo
	ledgers  *MockLedgerRepo
	wallets  *MockWalletRepo
	vendors  *MockVendorRepo
	users    *MockUserRepo
	gw       *MockGateway
	svc      Service
}

func newFixture(platformFeePct int64) *fixture {
	f := &fixture{
		bookings: new(MockBookingRepo),
		ledgers:  new(MockLedgerRepo),
		wallets:  new(MockWalletRepo),
		vendors:  new(MockVendorRepo),
		users:    new(MockUserRepo),
		gw:       new(MockGateway),
	}
	f.svc = NewService(f.bookings, f.ledgers, f.wallets, f.vendors, f.users, f.gw, nil, platformFeePct, "admin")
	return f
}

func pendingBooking() *booking.Booking {
	return &booking.Booking{
		ID:          42,
		UserID:      7,
		VendorID:    3,
		Kind:        booking.KindVendorBooking,
		AmountCents: 1000,
		Currency:    "INR",
		Status:      booking.StatusPending,
		ScheduledAt: time.Now().Add(48 * time.Hour),
	}
}

func confirmedBooking() *booking.Booking {
	b := pendingBooking()
	b.Status = booking.StatusConfirmed
	return b
}

var owner = Actor{UserID: 7, Role: "customer"}

func TestPay(t *testing.T) {
	ctx := context.Background()

	t.Run("creates intent and pending charge with correct split", func(t *testing.T) {
		f := newFixture(7)
		b := pendingBooking()

		f.bookings.On("FindByID", ctx, 42).Return(b, nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).Return(nil, ledger.ErrTransactionNotFound)
		f.users.On("FindByID", ctx, 7).Return(&user.User{ID: 7, Name: "Asha", Email: "asha@example.com"}, nil)
		f.gw.On("CreateCustomer", ctx, mock.Anything).Return("cus_1", nil)
		f.gw.On("CreatePaymentIntent", ctx, int64(1070), "INR", mock.Anything).
			Return(&gateway.Intent{ID: "pi_1", ClientSecret: "secret_1", Status: gateway.IntentStatusRequiresConfirmation}, nil)

		var recorded *ledger.Transaction
		f.ledgers.On("Record", ctx, mock.AnythingOfType("*ledger.Transaction")).
			Run(func(args mock.Arguments) { recorded = args.Get(1).(*ledger.Transaction) }).
			Return("tx_1", nil)
		f.bookings.On("SetTransactionID", ctx, 42, "tx_1").Return(nil)

		result, err := f.svc.Pay(ctx, owner, 42, "pm_card")
		require.NoError(t, err)

		assert.Equal(t, "pi_1", result.IntentID)
		assert.Equal(t, "secret_1", result.ClientSecret)
		assert.Equal(t, int64(1070), result.Split.CustomerTotalCents)
		assert.Equal(t, int64(1000), result.Split.HostAmountCents)
		assert.Equal(t, int64(70), result.Split.PlatformFeeCents)
		assert.False(t, result.Degraded)

		require.NotNil(t, recorded)
		assert.Equal(t, ledger.StatusPending, recorded.Status)
		assert.Equal(t, ledger.PartyCustomer, recorded.Party)
		assert.Equal(t, "pi_1", recorded.ReferenceNumber)
		assert.Equal(t, int64(1070), recorded.AmountCents)

		f.ledgers.AssertExpectations(t)
		f.bookings.AssertExpectations(t)
	})

	t.Run("already paid", func(t *testing.T) {
		f := newFixture(7)
		f.bookings.On("FindByID", ctx, 42).Return(pendingBooking(), nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).
			Return(&ledger.Transaction{ID: "tx_1", Status: ledger.StatusCompleted, ReferenceNumber: "pi_1"}, nil)

		_, err := f.svc.Pay(ctx, owner, 42, "pm_card")
		assert.ErrorIs(t, err, ErrAlreadyPaid)
		f.gw.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reuses pending intent", func(t *testing.T) {
		f := newFixture(7)
		f.bookings.On("FindByID", ctx, 42).Return(pendingBooking(), nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).
			Return(&ledger.Transaction{ID: "tx_1", Status: ledger.StatusPending, ReferenceNumber: "pi_1", AmountCents: 1070}, nil)
		f.gw.On("GetPaymentIntent", ctx, "pi_1").
			Return(&gateway.Intent{ID: "pi_1", ClientSecret: "secret_1", Status: gateway.IntentStatusRequiresConfirmation}, nil)

		result, err := f.svc.Pay(ctx, owner, 42, "pm_card")
		require.NoError(t, err)
		assert.Equal(t, "pi_1", result.IntentID)
		assert.Equal(t, "tx_1", result.TransactionID)
		f.gw.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.ledgers.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("degraded mode on customer creation failure", func(t *testing.T) {
		f := newFixture(7)
		f.bookings.On("FindByID", ctx, 42).Return(pendingBooking(), nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).Return(nil, ledger.ErrTransactionNotFound)
		f.users.On("FindByID", ctx, 7).Return(&user.User{ID: 7, Name: "Asha", Email: "asha@example.com"}, nil)
		f.gw.On("CreateCustomer", ctx, mock.Anything).Return("", &gateway.Error{Op: "create_customer", Reason: "network"})
		f.gw.On("CreatePaymentIntent", ctx, int64(1070), "INR", mock.Anything).
			Return(&gateway.Intent{ID: "pi_2", ClientSecret: "secret_2"}, nil)
		f.ledgers.On("Record", ctx, mock.AnythingOfType("*ledger.Transaction")).Return("tx_2", nil)
		f.bookings.On("SetTransactionID", ctx, 42, "tx_2").Return(nil)

		result, err := f.svc.Pay(ctx, owner, 42, "pm_card")
		require.NoError(t, err)
		assert.True(t, result.Degraded)
	})

	t.Run("intent creation failure leaves no ledger entry", func(t *testing.T) {
		f := newFixture(7)
		f.bookings.On("FindByID", ctx, 42).Return(pendingBooking(), nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).Return(nil, ledger.ErrTransactionNotFound)
		f.users.On("FindByID", ctx, 7).Return(&user.User{ID: 7, Name: "Asha", Email: "asha@example.com"}, nil)
		f.gw.On("CreateCustomer", ctx, mock.Anything).Return("cus_1", nil)
		f.gw.On("CreatePaymentIntent", ctx, int64(1070), "INR", mock.Anything).
			Return(nil, &gateway.IntentCreationError{Reason: "amount too small"})

		_, err := f.svc.Pay(ctx, owner, 42, "pm_card")
		var intentErr *gateway.IntentCreationError
		assert.ErrorAs(t, err, &intentErr)
		f.ledgers.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("stranger forbidden", func(t *testing.T) {
		f := newFixture(7)
		f.bookings.On("FindByID", ctx, 42).Return(pendingBooking(), nil)

		_, err := f.svc.Pay(ctx, Actor{UserID: 99, Role: "customer"}, 42, "pm_card")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestConfirmPay(t *testing.T) {
	ctx := context.Background()

	bookingID := 42
	pendingTx := func() *ledger.Transaction {
		return &ledger.Transaction{
			ID:               "tx_1",
			UserID:           7,
			AmountCents:      1070,
			Currency:         "INR",
			Status:           ledger.StatusPending,
			Type:             ledger.TypeVendorBooking,
			Party:            ledger.PartyCustomer,
			ReferenceNumber:  "pi_1",
			RelatedBookingID: &bookingID,
			CreatedBy:        7,
		}
	}

	t.Run("settles host and platform entries on success", func(t *testing.T) {
		f := newFixture(7)
		tx := pendingTx()

		f.ledgers.On("FindByReference", ctx, "pi_1").Return(tx, nil)
		f.gw.On("ConfirmPaymentIntent", ctx, "pi_1", "pm_card").
			Return(&gateway.ConfirmResult{Status: gateway.IntentStatusSucceeded}, nil)
		f.ledgers.On("UpdateStatus", ctx, "tx_1", ledger.StatusCompleted).Return(nil)
		f.bookings.On("FindByID", ctx, 42).Return(pendingBooking(), nil)

		var settled []*ledger.Transaction
		f.ledgers.On("Record", ctx, mock.AnythingOfType("*ledger.Transaction")).
			Run(func(args mock.Arguments) { settled = append(settled, args.Get(1).(*ledger.Transaction)) }).
			Return("tx_side", nil)
		f.bookings.On("MarkConfirmed", ctx, 42).Return(nil)

		outcome, err := f.svc.ConfirmPay(ctx, "pi_1", "pm_card")
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusCompleted, outcome.Status)
		assert.False(t, outcome.AlreadyConfirmed)

		require.Len(t, settled, 2)
		host, platform := settled[0], settled[1]
		assert.Equal(t, ledger.PartyHost, host.Party)
		assert.Equal(t, int64(1000), host.AmountCents)
		assert.Equal(t, 3, host.UserID)
		assert.Equal(t, ledger.StatusCompleted, host.Status)
		assert.Equal(t, ledger.PartyPlatform, platform.Party)
		assert.Equal(t, int64(70), platform.AmountCents)
		assert.Equal(t, platformAccountID, platform.UserID)
		assert.Equal(t, int64(1070), host.AmountCents+platform.AmountCents)

		f.bookings.AssertExpectations(t)
	})

	t.Run("second confirm is a no-op", func(t *testing.T) {
		f := newFixture(7)
		tx := pendingTx()
		tx.Status = ledger.StatusCompleted

		f.ledgers.On("FindByReference", ctx, "pi_1").Return(tx, nil)

		outcome, err := f.svc.ConfirmPay(ctx, "pi_1", "pm_card")
		require.NoError(t, err)
		assert.True(t, outcome.AlreadyConfirmed)
		assert.Equal(t, ledger.StatusCompleted, outcome.Status)
		f.gw.AssertNotCalled(t, "ConfirmPaymentIntent", mock.Anything, mock.Anything, mock.Anything)
		f.ledgers.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("gateway decline marks transaction failed only", func(t *testing.T) {
		f := newFixture(7)
		tx := pendingTx()

		f.ledgers.On("FindByReference", ctx, "pi_1").Return(tx, nil)
		f.gw.On("ConfirmPaymentIntent", ctx, "pi_1", "pm_card").
			Return(&gateway.ConfirmResult{Status: gateway.IntentStatusFailed}, nil)
		f.ledgers.On("UpdateStatus", ctx, "tx_1", ledger.StatusFailed).Return(nil)

		outcome, err := f.svc.ConfirmPay(ctx, "pi_1", "pm_card")
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusFailed, outcome.Status)
		f.ledgers.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
		f.bookings.AssertNotCalled(t, "MarkConfirmed", mock.Anything, mock.Anything)
	})

	t.Run("unknown intent", func(t *testing.T) {
		f := newFixture(7)
		f.ledgers.On("FindByReference", ctx, "pi_nope").Return(nil, ledger.ErrTransactionNotFound)

		_, err := f.svc.ConfirmPay(ctx, "pi_nope", "pm_card")
		assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	completedCharge := func() *ledger.Transaction {
		id := 42
		return &ledger.Transaction{
			ID:               "tx_1",
			UserID:           7,
			AmountCents:      1070,
			Currency:         "INR",
			Status:           ledger.StatusCompleted,
			Type:             ledger.TypeVendorBooking,
			Party:            ledger.PartyCustomer,
			ReferenceNumber:  "pi_1",
			RelatedBookingID: &id,
		}
	}

	t.Run("full flow with gateway refund", func(t *testing.T) {
		f := newFixture(7)
		b := confirmedBooking()

		f.bookings.On("FindByID", ctx, 42).Return(b, nil).Once()
		f.vendors.On("FindTerms", ctx, 3).
			Return(&vendor.Terms{VendorID: 3, CancellationChargePct: 10, RefundPct: 100}, nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).Return(completedCharge(), nil)
		f.gw.On("Refund", ctx, "pi_1", int64(963), "change of plans").
			Return(&gateway.RefundResult{RefundID: "re_1", Succeeded: true}, nil)

		var refundTx *ledger.Transaction
		f.ledgers.On("Record", ctx, mock.AnythingOfType("*ledger.Transaction")).
			Run(func(args mock.Arguments) { refundTx = args.Get(1).(*ledger.Transaction) }).
			Return("tx_refund", nil)
		f.ledgers.On("UpdateStatus", ctx, "tx_1", ledger.StatusPartiallyRefunded).Return(nil)
		f.wallets.On("Credit", ctx, 7, int64(963), "tx_refund").Return(nil)

		refundID := "tx_refund"
		f.bookings.On("MarkCancelled", ctx, 42, booking.StatusConfirmed, int64(963), booking.RefundProcessed, &refundID, 7).Return(nil)

		cancelled := confirmedBooking()
		cancelled.Status = booking.StatusCancelled
		cancelled.RefundAmountCents = 963
		cancelled.RefundStatus = booking.RefundProcessed
		f.bookings.On("FindByID", ctx, 42).Return(cancelled, nil).Once()

		result, err := f.svc.Cancel(ctx, owner, 42, "change of plans", true)
		require.NoError(t, err)

		assert.Equal(t, booking.StatusCancelled, result.Booking.Status)
		assert.Equal(t, int64(107), result.Calculation.CancellationFeeCents)
		assert.Equal(t, int64(963), result.Calculation.RefundAmountCents)
		assert.Equal(t, int64(107), result.Calculation.RetainedAmountCents)
		assert.False(t, result.ManualRefund)

		require.NotNil(t, refundTx)
		assert.Equal(t, ledger.TypeRefund, refundTx.Type)
		assert.Equal(t, ledger.StatusCompleted, refundTx.Status)
		assert.Equal(t, "tx_1", *refundTx.OriginalTransactionID)

		f.wallets.AssertExpectations(t)
		f.bookings.AssertExpectations(t)
	})

	t.Run("gateway refund failure degrades to manual pending", func(t *testing.T) {
		f := newFixture(7)
		b := confirmedBooking()

		f.bookings.On("FindByID", ctx, 42).Return(b, nil).Once()
		f.vendors.On("FindTerms", ctx, 3).
			Return(&vendor.Terms{VendorID: 3, CancellationChargePct: 10, RefundPct: 100}, nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).Return(completedCharge(), nil)
		f.gw.On("Refund", ctx, "pi_1", int64(963), "no show").
			Return(nil, &gateway.RefundError{Reason: "processor down"})

		var refundTx *ledger.Transaction
		f.ledgers.On("Record", ctx, mock.AnythingOfType("*ledger.Transaction")).
			Run(func(args mock.Arguments) { refundTx = args.Get(1).(*ledger.Transaction) }).
			Return("tx_manual", nil)
		f.wallets.On("Credit", ctx, 7, int64(963), "tx_manual").Return(nil)

		refundID := "tx_manual"
		f.bookings.On("MarkCancelled", ctx, 42, booking.StatusConfirmed, int64(963), booking.RefundPending, &refundID, 7).Return(nil)

		cancelled := confirmedBooking()
		cancelled.Status = booking.StatusCancelled
		f.bookings.On("FindByID", ctx, 42).Return(cancelled, nil).Once()

		result, err := f.svc.Cancel(ctx, owner, 42, "no show", true)
		require.NoError(t, err)
		assert.True(t, result.ManualRefund)

		require.NotNil(t, refundTx)
		assert.Equal(t, ledger.StatusPending, refundTx.Status)

		// Original stays completed until the manual refund settles.
		f.ledgers.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		f.wallets.AssertExpectations(t)
	})

	t.Run("unsuccessful refund result degrades to manual pending", func(t *testing.T) {
		f := newFixture(7)
		b := confirmedBooking()

		f.bookings.On("FindByID", ctx, 42).Return(b, nil).Once()
		f.vendors.On("FindTerms", ctx, 3).
			Return(&vendor.Terms{VendorID: 3, CancellationChargePct: 10, RefundPct: 100}, nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).Return(completedCharge(), nil)

		// The processor answered without an error but did not move the
		// money back. The ledger must not say it did.
		f.gw.On("Refund", ctx, "pi_1", int64(963), "card expired").
			Return(&gateway.RefundResult{RefundID: "re_dead", Succeeded: false}, nil)

		var refundTx *ledger.Transaction
		f.ledgers.On("Record", ctx, mock.AnythingOfType("*ledger.Transaction")).
			Run(func(args mock.Arguments) { refundTx = args.Get(1).(*ledger.Transaction) }).
			Return("tx_manual", nil)
		f.wallets.On("Credit", ctx, 7, int64(963), "tx_manual").Return(nil)

		refundID := "tx_manual"
		f.bookings.On("MarkCancelled", ctx, 42, booking.StatusConfirmed, int64(963), booking.RefundPending, &refundID, 7).Return(nil)

		cancelled := confirmedBooking()
		cancelled.Status = booking.StatusCancelled
		f.bookings.On("FindByID", ctx, 42).Return(cancelled, nil).Once()

		result, err := f.svc.Cancel(ctx, owner, 42, "card expired", true)
		require.NoError(t, err)
		assert.True(t, result.ManualRefund)

		require.NotNil(t, refundTx)
		assert.Equal(t, ledger.StatusPending, refundTx.Status)
		assert.Equal(t, "manual-refund:pi_1", refundTx.ReferenceNumber)

		f.ledgers.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		f.wallets.AssertExpectations(t)
	})

	t.Run("ledger failure aborts before wallet credit", func(t *testing.T) {
		f := newFixture(7)
		b := confirmedBooking()

		f.bookings.On("FindByID", ctx, 42).Return(b, nil)
		f.vendors.On("FindTerms", ctx, 3).
			Return(&vendor.Terms{VendorID: 3, CancellationChargePct: 10, RefundPct: 100}, nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).Return(completedCharge(), nil)
		f.gw.On("Refund", ctx, "pi_1", int64(963), "oops").
			Return(nil, &gateway.RefundError{Reason: "processor down"})
		f.ledgers.On("Record", ctx, mock.AnythingOfType("*ledger.Transaction")).
			Return("", assert.AnError)

		_, err := f.svc.Cancel(ctx, owner, 42, "oops", true)
		assert.Error(t, err)
		f.wallets.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.bookings.AssertNotCalled(t, "MarkCancelled", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("processRefund false skips refund leg", func(t *testing.T) {
		f := newFixture(7)
		b := confirmedBooking()

		f.bookings.On("FindByID", ctx, 42).Return(b, nil).Once()
		f.vendors.On("FindTerms", ctx, 3).
			Return(&vendor.Terms{VendorID: 3, CancellationChargePct: 10, RefundPct: 100}, nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).Return(completedCharge(), nil)
		f.bookings.On("MarkCancelled", ctx, 42, booking.StatusConfirmed, int64(0), booking.RefundNone, (*string)(nil), 7).Return(nil)

		cancelled := confirmedBooking()
		cancelled.Status = booking.StatusCancelled
		f.bookings.On("FindByID", ctx, 42).Return(cancelled, nil).Once()

		result, err := f.svc.Cancel(ctx, owner, 42, "admin override", false)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, result.Booking.Status)
		assert.Nil(t, result.RefundTransaction)

		f.gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.wallets.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already cancelled", func(t *testing.T) {
		f := newFixture(7)
		b := confirmedBooking()
		b.Status = booking.StatusCancelled
		f.bookings.On("FindByID", ctx, 42).Return(b, nil)

		_, err := f.svc.Cancel(ctx, owner, 42, "again", true)
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
		f.wallets.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("vendor may cancel", func(t *testing.T) {
		f := newFixture(7)
		b := confirmedBooking()

		f.bookings.On("FindByID", ctx, 42).Return(b, nil).Once()
		f.vendors.On("FindTerms", ctx, 3).Return(vendor.DefaultTerms(3), nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).Return(nil, ledger.ErrTransactionNotFound)
		f.bookings.On("MarkCancelled", ctx, 42, booking.StatusConfirmed, int64(0), booking.RefundNone, (*string)(nil), 3).Return(nil)

		cancelled := confirmedBooking()
		cancelled.Status = booking.StatusCancelled
		f.bookings.On("FindByID", ctx, 42).Return(cancelled, nil).Once()

		_, err := f.svc.Cancel(ctx, Actor{UserID: 3, Role: "vendor"}, 42, "venue closed", true)
		assert.NoError(t, err)
	})

	t.Run("stranger forbidden", func(t *testing.T) {
		f := newFixture(7)
		f.bookings.On("FindByID", ctx, 42).Return(confirmedBooking(), nil)

		_, err := f.svc.Cancel(ctx, Actor{UserID: 99, Role: "customer"}, 42, "not mine", true)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()
	newTime := time.Now().Add(96 * time.Hour)

	completedCharge := func() *ledger.Transaction {
		id := 42
		return &ledger.Transaction{
			ID:               "tx_1",
			AmountCents:      1070,
			Currency:         "INR",
			Status:           ledger.StatusCompleted,
			ReferenceNumber:  "pi_1",
			RelatedBookingID: &id,
		}
	}

	t.Run("debits wallet by rounded fee", func(t *testing.T) {
		f := newFixture(7)
		b := confirmedBooking()

		f.bookings.On("FindByID", ctx, 42).Return(b, nil).Once()
		f.vendors.On("FindTerms", ctx, 3).
			Return(&vendor.Terms{VendorID: 3, CancellationChargePct: 5, RefundPct: 100}, nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).Return(completedCharge(), nil)

		var feeTx *ledger.Transaction
		f.ledgers.On("Record", ctx, mock.AnythingOfType("*ledger.Transaction")).
			Run(func(args mock.Arguments) { feeTx = args.Get(1).(*ledger.Transaction) }).
			Return("tx_fee", nil)
		// 5% of 1070 is 53.5, rounded half-up to 54.
		f.wallets.On("Debit", ctx, 7, int64(54), "tx_fee").Return(int64(54), nil)
		f.bookings.On("MarkRescheduled", ctx, 42, booking.StatusConfirmed, newTime).Return(nil)

		rescheduled := confirmedBooking()
		rescheduled.Status = booking.StatusRescheduled
		rescheduled.ScheduledAt = newTime
		f.bookings.On("FindByID", ctx, 42).Return(rescheduled, nil).Once()

		result, err := f.svc.Reschedule(ctx, owner, 42, newTime, "rain")
		require.NoError(t, err)

		assert.Equal(t, int64(54), result.FeeCents)
		assert.False(t, result.InsufficientFunds)
		assert.Equal(t, booking.StatusRescheduled, result.Booking.Status)

		require.NotNil(t, feeTx)
		assert.Equal(t, ledger.TypeCancellation, feeTx.Type)
		assert.Equal(t, ledger.StatusCompleted, feeTx.Status)

		f.wallets.AssertExpectations(t)
	})

	t.Run("repeated reschedules record distinct fee references", func(t *testing.T) {
		f := newFixture(7)
		b := confirmedBooking()
		rescheduled := confirmedBooking()
		rescheduled.Status = booking.StatusRescheduled

		f.bookings.On("FindByID", ctx, 42).Return(b, nil).Once()
		f.bookings.On("FindByID", ctx, 42).Return(rescheduled, nil)
		f.vendors.On("FindTerms", ctx, 3).
			Return(&vendor.Terms{VendorID: 3, CancellationChargePct: 5, RefundPct: 100}, nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).Return(completedCharge(), nil)

		var refs []string
		f.ledgers.On("Record", ctx, mock.AnythingOfType("*ledger.Transaction")).
			Run(func(args mock.Arguments) {
				refs = append(refs, args.Get(1).(*ledger.Transaction).ReferenceNumber)
			}).
			Return("tx_fee", nil)
		f.wallets.On("Debit", ctx, 7, int64(54), "tx_fee").Return(int64(54), nil)
		f.bookings.On("MarkRescheduled", ctx, 42, booking.StatusConfirmed, newTime).Return(nil).Once()
		f.bookings.On("MarkRescheduled", ctx, 42, booking.StatusRescheduled, newTime).Return(nil).Once()

		_, err := f.svc.Reschedule(ctx, owner, 42, newTime, "rain")
		require.NoError(t, err)
		_, err = f.svc.Reschedule(ctx, owner, 42, newTime, "more rain")
		require.NoError(t, err)

		require.Len(t, refs, 2)
		assert.NotEqual(t, refs[0], refs[1])
		for _, ref := range refs {
			assert.True(t, strings.HasPrefix(ref, "reschedule:pi_1:"), "unexpected reference %q", ref)
		}
	})

	t.Run("insufficient funds is a warning", func(t *testing.T) {
		f := newFixture(7)
		b := confirmedBooking()

		f.bookings.On("FindByID", ctx, 42).Return(b, nil).Once()
		f.vendors.On("FindTerms", ctx, 3).
			Return(&vendor.Terms{VendorID: 3, CancellationChargePct: 5, RefundPct: 100}, nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).Return(completedCharge(), nil)
		f.ledgers.On("Record", ctx, mock.AnythingOfType("*ledger.Transaction")).Return("tx_fee", nil)
		f.wallets.On("Debit", ctx, 7, int64(54), "tx_fee").Return(int64(20), wallet.ErrInsufficientFunds)
		f.bookings.On("MarkRescheduled", ctx, 42, booking.StatusConfirmed, newTime).Return(nil)

		rescheduled := confirmedBooking()
		rescheduled.Status = booking.StatusRescheduled
		f.bookings.On("FindByID", ctx, 42).Return(rescheduled, nil).Once()

		result, err := f.svc.Reschedule(ctx, owner, 42, newTime, "rain")
		require.NoError(t, err)
		assert.True(t, result.InsufficientFunds)
	})

	t.Run("no fee without completed charge", func(t *testing.T) {
		f := newFixture(7)
		b := pendingBooking()

		f.bookings.On("FindByID", ctx, 42).Return(b, nil).Once()
		f.vendors.On("FindTerms", ctx, 3).
			Return(&vendor.Terms{VendorID: 3, CancellationChargePct: 5, RefundPct: 100}, nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).Return(nil, ledger.ErrTransactionNotFound)
		f.bookings.On("MarkRescheduled", ctx, 42, booking.StatusPending, newTime).Return(nil)

		rescheduled := pendingBooking()
		rescheduled.Status = booking.StatusRescheduled
		f.bookings.On("FindByID", ctx, 42).Return(rescheduled, nil).Once()

		result, err := f.svc.Reschedule(ctx, owner, 42, newTime, "rain")
		require.NoError(t, err)
		assert.Zero(t, result.FeeCents)
		f.wallets.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelled booking cannot be rescheduled", func(t *testing.T) {
		f := newFixture(7)
		b := confirmedBooking()
		b.Status = booking.StatusCancelled
		f.bookings.On("FindByID", ctx, 42).Return(b, nil)

		_, err := f.svc.Reschedule(ctx, owner, 42, newTime, "rain")
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
	})
}

func TestGetRefundQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("returns breakdown without side effects", func(t *testing.T) {
		f := newFixture(7)
		id := 42
		f.bookings.On("FindByID", ctx, 42).Return(confirmedBooking(), nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).
			Return(&ledger.Transaction{ID: "tx_1", AmountCents: 1070, Status: ledger.StatusCompleted, RelatedBookingID: &id}, nil)
		f.vendors.On("FindTerms", ctx, 3).
			Return(&vendor.Terms{VendorID: 3, CancellationChargePct: 10, RefundPct: 100}, nil)

		quote, err := f.svc.GetRefundQuote(ctx, owner, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(107), quote.CancellationFeeCents)
		assert.Equal(t, int64(963), quote.RefundAmountCents)
		assert.Equal(t, quote.OriginalAmountCents, quote.RefundAmountCents+quote.RetainedAmountCents)

		f.gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.wallets.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unpaid booking", func(t *testing.T) {
		f := newFixture(7)
		f.bookings.On("FindByID", ctx, 42).Return(confirmedBooking(), nil)
		f.ledgers.On("FindCustomerChargeForBooking", ctx, 42).
			Return(&ledger.Transaction{ID: "tx_1", Status: ledger.StatusPending}, nil)

		_, err := f.svc.GetRefundQuote(ctx, owner, 42)
		assert.ErrorIs(t, err, ErrNotPaid)
	})

	t.Run("cancelled booking has nothing left to quote", func(t *testing.T) {
		f := newFixture(7)
		b := confirmedBooking()
		b.Status = booking.StatusCancelled
		f.bookings.On("FindByID", ctx, 42).Return(b, nil)

		_, err := f.svc.GetRefundQuote(ctx, owner, 42)
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
		f.ledgers.AssertNotCalled(t, "FindCustomerChargeForBooking", mock.Anything, mock.Anything)
	})
}

// raceLedger is a minimal stateful ledger double for concurrency tests;
// mocks cannot express "second caller sees the first caller's write".
type raceLedger struct {
	MockLedgerRepo
	mu     sync.Mutex
	charge *ledger.Transaction
}

func (r *raceLedger) FindCustomerChargeForBooking(ctx context.Context, bookingID int) (*ledger.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.charge == nil {
		return nil, ledger.ErrTransactionNotFound
	}
	return r.charge, nil
}

func (r *raceLedger) Record(ctx context.Context, t *ledger.Transaction) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.charge != nil {
		return "", ledger.ErrDuplicateReference
	}
	t.ID = "tx_1"
	r.charge = t
	return t.ID, nil
}

func TestPayConcurrent(t *testing.T) {
	ctx := context.Background()

	bookings := new(MockBookingRepo)
	wallets := new(MockWalletRepo)
	vendors := new(MockVendorRepo)
	users := new(MockUserRepo)
	gw := new(MockGateway)
	ledgers := &raceLedger{}

	bookings.On("FindByID", ctx, 42).Return(pendingBooking(), nil)
	bookings.On("SetTransactionID", ctx, 42, "tx_1").Return(nil)
	users.On("FindByID", ctx, 7).Return(&user.User{ID: 7, Name: "Asha", Email: "asha@example.com"}, nil)
	gw.On("CreateCustomer", ctx, mock.Anything).Return("cus_1", nil)
	gw.On("CreatePaymentIntent", ctx, int64(1070), "INR", mock.Anything).
		Return(&gateway.Intent{ID: "pi_1", ClientSecret: "secret_1"}, nil)
	gw.On("GetPaymentIntent", ctx, "pi_1").
		Return(&gateway.Intent{ID: "pi_1", ClientSecret: "secret_1"}, nil)

	svc := NewService(bookings, ledgers, wallets, vendors, users, gw, nil, 7, "admin")

	var wg sync.WaitGroup
	results := make([]*PayResult, 4)
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Pay(ctx, owner, 42, "pm_card")
		}(i)
	}
	wg.Wait()

	created := 0
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "pi_1", results[i].IntentID)
		if results[i].Degraded || results[i].Split == nil {
			continue
		}
		created++
	}
	assert.Equal(t, 4, created)

	// Exactly one pending customer transaction exists.
	require.NotNil(t, ledgers.charge)
	assert.Equal(t, ledger.StatusPending, ledgers.charge.Status)
	assert.Equal(t, int64(1070), ledgers.charge.AmountCents)
}
