package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/policy"
	"carshare-settlement/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockReconciler
type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, booking *domain.Booking, req ReconcileRequest) (*ReconcileResult, error) {
	args := m.Called(ctx, booking, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReconcileResult), args.Error(1)
}

type settlementFixture struct {
	bookings    *MockBookingRepo
	charges     *MockTripChargeRepo
	ledger      *MockLedgerRepo
	adjustments *MockAdjustmentRepo
	refunds     *MockRefundRepo
	notes       *MockNotificationRepo
	activity    *MockActivityRepo
	reconciler  *MockReconciler
	email       *MockEmailService
	sms         *MockSmsService
	svc         SettlementService
}

func newSettlementFixture() *settlementFixture {
	f := &settlementFixture{
		bookings:    new(MockBookingRepo),
		charges:     new(MockTripChargeRepo),
		ledger:      new(MockLedgerRepo),
		adjustments: new(MockAdjustmentRepo),
		refunds:     new(MockRefundRepo),
		notes:       new(MockNotificationRepo),
		activity:    new(MockActivityRepo),
		reconciler:  new(MockReconciler),
		email:       new(MockEmailService),
		sms:         new(MockSmsService),
	}
	f.svc = NewSettlementService(
		f.bookings, f.charges, f.ledger, f.adjustments, f.refunds, f.notes, f.activity,
		f.reconciler, f.email, f.sms,
		Settings{
			HoldWindowHours:       72,
			MaxChargeRetries:      3,
			BatchLimit:            100,
			GatewayTimeout:        time.Second,
			ValidationChargeCents: 100,
			AdminUserID:           1,
			AdminEmail:            "ops@example.com",
		},
	)
	return f
}

// cancellableBooking is a 3-day $300 trip starting 48 hours out, funded by
// $50 credits and $250 card, with a $20 wallet deposit and $30 card deposit.
func cancellableBooking() *domain.Booking {
	start := time.Now().Add(48 * time.Hour)
	end := start.Add(72 * time.Hour)
	return &domain.Booking{
		ID:                     42,
		GuestID:                7,
		HostID:                 8,
		Status:                 domain.BookingStatusConfirmed,
		PaymentStatus:          domain.PaymentStatusPaid,
		StartDate:              start,
		EndDate:                end,
		DailyRateCents:         10000,
		SubtotalCents:          30000,
		ServiceFeeCents:        3000,
		TaxCents:               2000,
		CreditsAppliedCents:    5000,
		BonusAppliedCents:      0,
		ChargeAmountCents:      30000,
		DepositFromWalletCents: 2000,
		DepositFromCardCents:   3000,
		GatewayCustomerRef:     "cus_1",
		PaymentMethodRef:       "pm_1",
		PaymentIntentRef:       "pi_123",
		GuestEmail:             "guest@example.com",
		GuestPhone:             "+15551234567",
		HostEmail:              "host@example.com",
	}
}

func (f *settlementFixture) allowNotifications() {
	f.email.On("SendHostCancellationNotice", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.sms.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notes.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.activity.On("Record", mock.Anything, mock.Anything).Return(nil)
}

func TestCancelBooking_RejectsNonOwner(t *testing.T) {
	f := newSettlementFixture()
	f.bookings.On("GetByID", mock.Anything, int64(42)).Return(cancellableBooking(), nil)

	_, err := f.svc.CancelBooking(context.Background(), 999, 42, "plans changed")
	assert.ErrorIs(t, err, ErrUnauthorized)
	f.bookings.AssertNotCalled(t, "MarkCancelled", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelBooking_SecondCancellationConflicts(t *testing.T) {
	f := newSettlementFixture()
	f.bookings.On("GetByID", mock.Anything, int64(42)).Return(cancellableBooking(), nil)
	f.bookings.On("MarkCancelled", mock.Anything, int64(42), int64(7), "plans changed").Return(false, nil)

	_, err := f.svc.CancelBooking(context.Background(), 7, 42, "plans changed")
	assert.ErrorIs(t, err, ErrBookingConflict)
	f.reconciler.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelBooking_ModerateTierSplitsPenaltyAndRestores(t *testing.T) {
	f := newSettlementFixture()
	booking := cancellableBooking()

	f.bookings.On("GetByID", mock.Anything, int64(42)).Return(booking, nil)
	f.bookings.On("MarkCancelled", mock.Anything, int64(42), int64(7), "plans changed").Return(true, nil)

	// Moderate tier on a 3-day $300 base: $100 penalty. Credits absorb $50,
	// the card the remaining $50; the card refund is $200 plus the $30 card
	// deposit.
	f.reconciler.On("Reconcile", mock.Anything, booking, mock.MatchedBy(func(req ReconcileRequest) bool {
		return req.KeepCents == 5000 && req.RefundCents == 23000
	})).Return(&ReconcileResult{Action: "captured_partial", PaymentStatus: domain.PaymentStatusPaid}, nil)

	f.ledger.On("GetAccountByGuest", mock.Anything, int64(7)).
		Return(&domain.GuestAccount{ID: 70, GuestID: 7}, nil)
	f.ledger.On("ApplyTransaction", mock.Anything, int64(70), mock.Anything,
		domain.BalanceKindDeposit, domain.LedgerDirectionAdd, int64(2000), mock.Anything).
		Return(&domain.LedgerTransaction{AmountCents: 2000}, nil)
	f.allowNotifications()

	res, err := f.svc.CancelBooking(context.Background(), 7, 42, "plans changed")
	require.NoError(t, err)

	assert.Equal(t, policy.TierModerate, res.Tier)
	assert.Equal(t, int64(10000), res.PenaltyCents)
	assert.Equal(t, int64(5000), res.PenaltyFromCreditsCents)
	assert.Equal(t, int64(5000), res.PenaltyFromCardCents)
	assert.Equal(t, int64(20000), res.CardRefundCents)
	assert.Equal(t, int64(23000), res.TotalCardRefundCents)
	assert.Equal(t, int64(0), res.CreditsRestoredCents)
	assert.Equal(t, int64(2000), res.DepositWalletRestoredCents)
	assert.False(t, res.RefundPending)

	f.ledger.AssertExpectations(t)
	f.reconciler.AssertExpectations(t)
}

func TestCancelBooking_FreeTierRestoresEverything(t *testing.T) {
	f := newSettlementFixture()
	booking := cancellableBooking()
	booking.StartDate = time.Now().Add(200 * time.Hour)
	booking.EndDate = booking.StartDate.Add(72 * time.Hour)

	f.bookings.On("GetByID", mock.Anything, int64(42)).Return(booking, nil)
	f.bookings.On("MarkCancelled", mock.Anything, int64(42), int64(7), mock.Anything).Return(true, nil)
	f.reconciler.On("Reconcile", mock.Anything, booking, mock.MatchedBy(func(req ReconcileRequest) bool {
		return req.KeepCents == 0 && req.RefundCents == 28000
	})).Return(&ReconcileResult{Action: "voided", PaymentStatus: domain.PaymentStatusRefunded}, nil)

	f.ledger.On("GetAccountByGuest", mock.Anything, int64(7)).
		Return(&domain.GuestAccount{ID: 70, GuestID: 7}, nil)
	f.ledger.On("ApplyTransaction", mock.Anything, int64(70), mock.Anything,
		domain.BalanceKindCredit, domain.LedgerDirectionAdd, int64(5000), mock.Anything).
		Return(&domain.LedgerTransaction{}, nil)
	f.ledger.On("ApplyTransaction", mock.Anything, int64(70), mock.Anything,
		domain.BalanceKindDeposit, domain.LedgerDirectionAdd, int64(2000), mock.Anything).
		Return(&domain.LedgerTransaction{}, nil)
	f.allowNotifications()

	res, err := f.svc.CancelBooking(context.Background(), 7, 42, "found another car")
	require.NoError(t, err)

	assert.Equal(t, policy.TierFree, res.Tier)
	assert.Equal(t, int64(0), res.PenaltyCents)
	assert.Equal(t, int64(5000), res.CreditsRestoredCents)
	f.ledger.AssertExpectations(t)
}

func TestCancelBooking_ValidationChargeFullyReleased(t *testing.T) {
	f := newSettlementFixture()
	booking := cancellableBooking()
	// Credits covered the whole trip; the card only saw a $1 validation hold.
	booking.IsValidationOnly = true
	booking.CreditsAppliedCents = 35000
	booking.BonusAppliedCents = 0
	booking.ChargeAmountCents = 100
	booking.DepositFromCardCents = 0
	booking.DepositFromWalletCents = 0
	booking.StartDate = time.Now().Add(10 * time.Hour) // strict tier

	f.bookings.On("GetByID", mock.Anything, int64(42)).Return(booking, nil)
	f.bookings.On("MarkCancelled", mock.Anything, int64(42), int64(7), mock.Anything).Return(true, nil)

	// The full validation amount is released even though the penalty is
	// non-zero; the penalty comes out of credits.
	f.reconciler.On("Reconcile", mock.Anything, booking, mock.MatchedBy(func(req ReconcileRequest) bool {
		return req.KeepCents == 0 && req.RefundCents == 100
	})).Return(&ReconcileResult{Action: "voided", PaymentStatus: domain.PaymentStatusRefunded}, nil)

	f.ledger.On("GetAccountByGuest", mock.Anything, int64(7)).
		Return(&domain.GuestAccount{ID: 70, GuestID: 7}, nil)
	// Strict tier: $200 of the $300 base forfeited, $100 restored to credits.
	f.ledger.On("ApplyTransaction", mock.Anything, int64(70), mock.Anything,
		domain.BalanceKindCredit, domain.LedgerDirectionAdd, int64(10000), mock.Anything).
		Return(&domain.LedgerTransaction{}, nil)
	f.allowNotifications()

	res, err := f.svc.CancelBooking(context.Background(), 7, 42, "")
	require.NoError(t, err)
	assert.Equal(t, int64(20000), res.PenaltyCents)
	assert.Equal(t, int64(10000), res.CreditsRestoredCents)
	f.reconciler.AssertExpectations(t)
}

func TestCancelBooking_FailedRestoreBecomesAdjustment(t *testing.T) {
	f := newSettlementFixture()
	booking := cancellableBooking()
	booking.StartDate = time.Now().Add(200 * time.Hour)
	booking.EndDate = booking.StartDate.Add(72 * time.Hour)

	f.bookings.On("GetByID", mock.Anything, int64(42)).Return(booking, nil)
	f.bookings.On("MarkCancelled", mock.Anything, int64(42), int64(7), mock.Anything).Return(true, nil)
	f.reconciler.On("Reconcile", mock.Anything, booking, mock.Anything).
		Return(&ReconcileResult{Action: "voided", PaymentStatus: domain.PaymentStatusRefunded}, nil)

	f.ledger.On("GetAccountByGuest", mock.Anything, int64(7)).
		Return(&domain.GuestAccount{ID: 70, GuestID: 7}, nil)
	f.ledger.On("ApplyTransaction", mock.Anything, int64(70), mock.Anything,
		domain.BalanceKindCredit, domain.LedgerDirectionAdd, int64(5000), mock.Anything).
		Return(nil, errors.New("deadlock"))
	f.ledger.On("ApplyTransaction", mock.Anything, int64(70), mock.Anything,
		domain.BalanceKindDeposit, domain.LedgerDirectionAdd, int64(2000), mock.Anything).
		Return(&domain.LedgerTransaction{}, nil)

	f.adjustments.On("Create", mock.Anything, mock.MatchedBy(func(adj *domain.LedgerAdjustment) bool {
		return adj.AccountID == 70 && adj.Kind == domain.BalanceKindCredit &&
			adj.AmountCents == 5000 && adj.Status == domain.AdjustmentStatusPending
	})).Return(nil)
	f.allowNotifications()

	res, err := f.svc.CancelBooking(context.Background(), 7, 42, "")
	require.NoError(t, err)

	// The failed restore is not reported as restored, but the cancellation
	// still succeeds and the deposit release went through.
	assert.Equal(t, int64(0), res.CreditsRestoredCents)
	assert.Equal(t, int64(2000), res.DepositWalletRestoredCents)
	f.adjustments.AssertExpectations(t)
}

func TestCancelBooking_GatewayOutageLeavesRefundPending(t *testing.T) {
	f := newSettlementFixture()
	booking := cancellableBooking()

	f.bookings.On("GetByID", mock.Anything, int64(42)).Return(booking, nil)
	f.bookings.On("MarkCancelled", mock.Anything, int64(42), int64(7), mock.Anything).Return(true, nil)
	f.reconciler.On("Reconcile", mock.Anything, booking, mock.Anything).
		Return(&ReconcileResult{RefundPending: true}, errors.New("gateway unreachable"))

	f.ledger.On("GetAccountByGuest", mock.Anything, int64(7)).
		Return(&domain.GuestAccount{ID: 70, GuestID: 7}, nil)
	f.ledger.On("ApplyTransaction", mock.Anything, int64(70), mock.Anything,
		domain.BalanceKindDeposit, domain.LedgerDirectionAdd, int64(2000), mock.Anything).
		Return(&domain.LedgerTransaction{}, nil)
	f.allowNotifications()

	res, err := f.svc.CancelBooking(context.Background(), 7, 42, "")
	require.NoError(t, err)
	assert.True(t, res.RefundPending)
	// The reconciler already holds the PENDING row; no duplicate is written.
	f.refunds.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// The outage hits the very first gateway call, before the reconciler can
// record anything. The orchestrator itself must leave the PENDING obligation
// behind, with the keep/refund split intact for the retry sweep.
func TestCancelBooking_StatusFetchOutageStillRecordsObligation(t *testing.T) {
	f := newSettlementFixture()
	booking := cancellableBooking()

	gw := new(MockPaymentGateway)
	gw.On("RetrieveStatus", mock.Anything, "pi_123").
		Return(nil, errors.New("gateway unreachable"))

	f.svc = NewSettlementService(
		f.bookings, f.charges, f.ledger, f.adjustments, f.refunds, f.notes, f.activity,
		NewPaymentReconciler(gw, f.bookings, f.refunds, time.Second),
		f.email, f.sms,
		Settings{ValidationChargeCents: 100, GatewayTimeout: time.Second, AdminUserID: 1},
	)

	f.bookings.On("GetByID", mock.Anything, int64(42)).Return(booking, nil)
	f.bookings.On("MarkCancelled", mock.Anything, int64(42), int64(7), mock.Anything).Return(true, nil)
	f.refunds.On("Create", mock.Anything, mock.MatchedBy(func(req *domain.RefundRequest) bool {
		return req.BookingID == 42 && req.IntentRef == "pi_123" &&
			req.AmountCents == 23000 && req.KeepCents == 5000 &&
			req.Status == domain.RefundStatusPending
	})).Return(nil)

	f.ledger.On("GetAccountByGuest", mock.Anything, int64(7)).
		Return(&domain.GuestAccount{ID: 70, GuestID: 7}, nil)
	f.ledger.On("ApplyTransaction", mock.Anything, int64(70), mock.Anything,
		domain.BalanceKindDeposit, domain.LedgerDirectionAdd, int64(2000), mock.Anything).
		Return(&domain.LedgerTransaction{}, nil)
	f.allowNotifications()

	res, err := f.svc.CancelBooking(context.Background(), 7, 42, "plans changed")
	require.NoError(t, err)
	assert.True(t, res.RefundPending)
	f.refunds.AssertExpectations(t)
}

func TestClearCharges_NothingToClear(t *testing.T) {
	f := newSettlementFixture()
	booking := cancellableBooking()
	booking.PendingChargesCents = 0
	f.bookings.On("GetByID", mock.Anything, int64(42)).Return(booking, nil)

	_, err := f.svc.ClearCharges(context.Background(), 1, 42, "goodwill")
	assert.ErrorIs(t, err, ErrNothingToClear)
}

func TestClearCharges_WaivesActiveCharge(t *testing.T) {
	f := newSettlementFixture()
	booking := cancellableBooking()
	booking.PendingChargesCents = 4500
	f.bookings.On("GetByID", mock.Anything, int64(42)).Return(booking, nil)

	charge := &domain.TripCharge{ID: 5, BookingID: 42, TotalCents: 4500, Status: domain.ChargeStatusFailed}
	f.charges.On("GetActiveByBooking", mock.Anything, int64(42)).Return(charge, nil)
	f.charges.On("RecordOutcome", mock.Anything, mock.MatchedBy(func(c *domain.TripCharge) bool {
		return c.Status == domain.ChargeStatusCleared && c.ClearedAt != nil
	}), domain.PaymentStatusChargesCleared, mock.Anything, mock.Anything).Return(nil)
	f.notes.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.activity.On("Record", mock.Anything, mock.MatchedBy(func(entry *domain.ActivityLog) bool {
		return entry.ActorID != nil && *entry.ActorID == 1 && entry.Action == "CHARGES_CLEARED"
	})).Return(nil)

	res, err := f.svc.ClearCharges(context.Background(), 1, 42, "goodwill")
	require.NoError(t, err)
	assert.Equal(t, int64(4500), res.ClearedCents)
	assert.Equal(t, int64(5), res.TripChargeID)
	f.charges.AssertExpectations(t)
	f.activity.AssertExpectations(t)
}

func TestClearCharges_NoChargeRowClearsBookingOnly(t *testing.T) {
	f := newSettlementFixture()
	booking := cancellableBooking()
	booking.PendingChargesCents = 4500
	f.bookings.On("GetByID", mock.Anything, int64(42)).Return(booking, nil)
	f.charges.On("GetActiveByBooking", mock.Anything, int64(42)).Return(nil, repository.ErrNotFound)
	f.bookings.On("SetPendingCharges", mock.Anything, int64(42), int64(0)).Return(nil)
	f.bookings.On("UpdatePaymentStatus", mock.Anything, int64(42), domain.PaymentStatusChargesCleared).Return(nil)
	f.notes.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.activity.On("Record", mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.ClearCharges(context.Background(), 1, 42, "goodwill")
	require.NoError(t, err)
	assert.Equal(t, int64(4500), res.ClearedCents)
	assert.Equal(t, int64(0), res.TripChargeID)
	f.bookings.AssertExpectations(t)
}
