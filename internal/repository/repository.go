package repository

import (
	"context"
	"errors"
	"time"

	"carshare-settlement/internal/domain"
)

var (
	// ErrInsufficientBalance is returned when a ledger debit would drive a
	// balance negative. The conditional update refuses the write.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
)

type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)

	// MarkCancelled transitions the booking to CANCELLED if and only if it is
	// still PENDING or CONFIRMED. The conditional update is the mutual
	// exclusion gate for concurrent cancellations: it returns false when
	// another caller already won the transition.
	MarkCancelled(ctx context.Context, id, cancelledBy int64, reason string) (bool, error)

	UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error
	SetPendingCharges(ctx context.Context, id int64, amountCents int64) error
	AppendGuestMessage(ctx context.Context, id int64, message string) error
}

type TripChargeRepository interface {
	Create(ctx context.Context, charge *domain.TripCharge) error
	GetByID(ctx context.Context, id int64) (*domain.TripCharge, error)

	// GetActiveByBooking returns the booking's current non-terminal charge,
	// or ErrNotFound when no charge row backs the pending amount.
	GetActiveByBooking(ctx context.Context, bookingID int64) (*domain.TripCharge, error)

	// ListEligible selects charges ready for an automatic capture attempt:
	// PENDING past the hold cutoff, or FAILED with retries remaining. Ordered
	// oldest trip end first, largest amount as tiebreak.
	ListEligible(ctx context.Context, holdCutoff time.Time, maxRetries, limit int) ([]domain.TripCharge, error)

	ListByStatus(ctx context.Context, statuses []domain.ChargeStatus, olderThan *time.Time, limit int) ([]domain.TripCharge, error)
	QueueStats(ctx context.Context) (*domain.ChargeQueueStats, error)

	// RecordOutcome persists one processing attempt atomically: the charge
	// row, the booking's payment status (and optional lifecycle status), and
	// the guest-facing message commit or roll back together.
	RecordOutcome(ctx context.Context, charge *domain.TripCharge, paymentStatus domain.PaymentStatus, bookingStatus *domain.BookingStatus, guestMessage string) error
}

type LedgerRepository interface {
	GetAccountByGuest(ctx context.Context, guestID int64) (*domain.GuestAccount, error)

	// ApplyTransaction is the sole writer of guest balances. It performs an
	// atomic conditional update (refusing negative balances) and inserts the
	// paired LedgerTransaction in the same database transaction, returning
	// the written record with its balance-after snapshot.
	ApplyTransaction(ctx context.Context, accountID int64, bookingID *int64, kind domain.BalanceKind, direction domain.LedgerDirection, amountCents int64, reason string) (*domain.LedgerTransaction, error)

	ListTransactions(ctx context.Context, accountID int64, page, pageSize int) ([]domain.LedgerTransaction, int64, error)
}

type RefundRequestRepository interface {
	Create(ctx context.Context, req *domain.RefundRequest) error
	MarkCompleted(ctx context.Context, id int64, gatewayRefundRef string) error
	ListPending(ctx context.Context, limit int) ([]domain.RefundRequest, error)
}

type LedgerAdjustmentRepository interface {
	Create(ctx context.Context, adj *domain.LedgerAdjustment) error
	MarkCompleted(ctx context.Context, id int64) error
	ListPending(ctx context.Context, limit int) ([]domain.LedgerAdjustment, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID int64, limit, offset int) ([]domain.Notification, int64, error)
	MarkAsRead(ctx context.Context, id, userID int64) error
}

type ActivityLogRepository interface {
	Record(ctx context.Context, entry *domain.ActivityLog) error
}
