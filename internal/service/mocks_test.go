package service

import (
	"context"
	"time"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/gateway"

	"github.com/stretchr/testify/mock"
)

// MockBookingRepo
type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) MarkCancelled(ctx context.Context, id, cancelledBy int64, reason string) (bool, error) {
	args := m.Called(ctx, id, cancelledBy, reason)
	return args.Bool(0), args.Error(1)
}
func (m *MockBookingRepo) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
func (m *MockBookingRepo) SetPendingCharges(ctx context.Context, id int64, amountCents int64) error {
	args := m.Called(ctx, id, amountCents)
	return args.Error(0)
}
func (m *MockBookingRepo) AppendGuestMessage(ctx context.Context, id int64, message string) error {
	args := m.Called(ctx, id, message)
	return args.Error(0)
}

// MockTripChargeRepo
type MockTripChargeRepo struct {
	mock.Mock
}

func (m *MockTripChargeRepo) Create(ctx context.Context, charge *domain.TripCharge) error {
	args := m.Called(ctx, charge)
	return args.Error(0)
}
func (m *MockTripChargeRepo) GetByID(ctx context.Context, id int64) (*domain.TripCharge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TripCharge), args.Error(1)
}
func (m *MockTripChargeRepo) GetActiveByBooking(ctx context.Context, bookingID int64) (*domain.TripCharge, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TripCharge), args.Error(1)
}
func (m *MockTripChargeRepo) ListEligible(ctx context.Context, holdCutoff time.Time, maxRetries, limit int) ([]domain.TripCharge, error) {
	args := m.Called(ctx, holdCutoff, maxRetries, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TripCharge), args.Error(1)
}
func (m *MockTripChargeRepo) ListByStatus(ctx context.Context, statuses []domain.ChargeStatus, olderThan *time.Time, limit int) ([]domain.TripCharge, error) {
	args := m.Called(ctx, statuses, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TripCharge), args.Error(1)
}
func (m *MockTripChargeRepo) QueueStats(ctx context.Context) (*domain.ChargeQueueStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChargeQueueStats), args.Error(1)
}
func (m *MockTripChargeRepo) RecordOutcome(ctx context.Context, charge *domain.TripCharge, paymentStatus domain.PaymentStatus, bookingStatus *domain.BookingStatus, guestMessage string) error {
	args := m.Called(ctx, charge, paymentStatus, bookingStatus, guestMessage)
	return args.Error(0)
}

// MockLedgerRepo
type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) GetAccountByGuest(ctx context.Context, guestID int64) (*domain.GuestAccount, error) {
	args := m.Called(ctx, guestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GuestAccount), args.Error(1)
}
func (m *MockLedgerRepo) ApplyTransaction(ctx context.Context, accountID int64, bookingID *int64, kind domain.BalanceKind, direction domain.LedgerDirection, amountCents int64, reason string) (*domain.LedgerTransaction, error) {
	args := m.Called(ctx, accountID, bookingID, kind, direction, amountCents, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerTransaction), args.Error(1)
}
func (m *MockLedgerRepo) ListTransactions(ctx context.Context, accountID int64, page, pageSize int) ([]domain.LedgerTransaction, int64, error) {
	args := m.Called(ctx, accountID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]domain.LedgerTransaction), args.Get(1).(int64), args.Error(2)
}

// MockRefundRepo
type MockRefundRepo struct {
	mock.Mock
}

func (m *MockRefundRepo) Create(ctx context.Context, req *domain.RefundRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
func (m *MockRefundRepo) MarkCompleted(ctx context.Context, id int64, gatewayRefundRef string) error {
	args := m.Called(ctx, id, gatewayRefundRef)
	return args.Error(0)
}
func (m *MockRefundRepo) ListPending(ctx context.Context, limit int) ([]domain.RefundRequest, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RefundRequest), args.Error(1)
}

// MockAdjustmentRepo
type MockAdjustmentRepo struct {
	mock.Mock
}

func (m *MockAdjustmentRepo) Create(ctx context.Context, adj *domain.LedgerAdjustment) error {
	args := m.Called(ctx, adj)
	return args.Error(0)
}
func (m *MockAdjustmentRepo) MarkCompleted(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockAdjustmentRepo) ListPending(ctx context.Context, limit int) ([]domain.LedgerAdjustment, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerAdjustment), args.Error(1)
}

// MockNotificationRepo
type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}
func (m *MockNotificationRepo) List(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]domain.Notification), args.Get(1).(int64), args.Error(2)
}
func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id, userID int64) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// MockActivityRepo
type MockActivityRepo struct {
	mock.Mock
}

func (m *MockActivityRepo) Record(ctx context.Context, entry *domain.ActivityLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockPaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Authorize(ctx context.Context, customerRef, methodRef string, amountCents int64, metadata map[string]string) (string, error) {
	args := m.Called(ctx, customerRef, methodRef, amountCents, metadata)
	return args.String(0), args.Error(1)
}
func (m *MockPaymentGateway) RetrieveStatus(ctx context.Context, intentRef string) (*gateway.IntentStatus, error) {
	args := m.Called(ctx, intentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.IntentStatus), args.Error(1)
}
func (m *MockPaymentGateway) Capture(ctx context.Context, intentRef string, amountCents int64) error {
	args := m.Called(ctx, intentRef, amountCents)
	return args.Error(0)
}
func (m *MockPaymentGateway) Cancel(ctx context.Context, intentRef, reason string) error {
	args := m.Called(ctx, intentRef, reason)
	return args.Error(0)
}
func (m *MockPaymentGateway) Refund(ctx context.Context, intentRef string, amountCents int64, metadata map[string]string) (string, error) {
	args := m.Called(ctx, intentRef, amountCents, metadata)
	return args.String(0), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendHostCancellationNotice(ctx context.Context, hostEmail string, bookingID int64, reason string) error {
	args := m.Called(ctx, hostEmail, bookingID, reason)
	return args.Error(0)
}
func (m *MockEmailService) SendChargeConfirmation(ctx context.Context, guestEmail string, bookingID, amountCents int64, category string) error {
	args := m.Called(ctx, guestEmail, bookingID, amountCents, category)
	return args.Error(0)
}
func (m *MockEmailService) SendChargeFailureNotice(ctx context.Context, guestEmail string, bookingID, amountCents int64, final bool) error {
	args := m.Called(ctx, guestEmail, bookingID, amountCents, final)
	return args.Error(0)
}
func (m *MockEmailService) SendAdminChargeReview(ctx context.Context, adminEmail string, bookingID, amountCents int64, failureReason string) error {
	args := m.Called(ctx, adminEmail, bookingID, amountCents, failureReason)
	return args.Error(0)
}

// MockSmsService
type MockSmsService struct {
	mock.Mock
}

func (m *MockSmsService) Send(ctx context.Context, phone, event string, data map[string]string) error {
	args := m.Called(ctx, phone, event, data)
	return args.Error(0)
}
