package service

import (
	"context"
	"errors"

	"carshare-settlement/internal/domain"
)

var (
	// ErrUnauthorized is returned when the caller does not own the booking
	// they are trying to settle.
	ErrUnauthorized = errors.New("caller does not own this booking")

	// ErrBookingConflict is returned when the booking is already in a state
	// that forbids the requested transition, e.g. a second cancellation of an
	// already cancelled booking.
	ErrBookingConflict = errors.New("booking is not in a state that allows this operation")

	// ErrNothingToClear is returned when an admin clears a booking that has
	// no pending charges.
	ErrNothingToClear = errors.New("booking has no pending charges to clear")
)

// CancellationResult is the itemized response returned to a guest after
// cancelling a booking.
type CancellationResult struct {
	BookingID        int64   `json:"booking_id"`
	Tier             string  `json:"tier"`
	Label            string  `json:"label"`
	HoursUntilPickup float64 `json:"hours_until_pickup"`

	PenaltyCents            int64 `json:"penalty_cents"`
	PenaltyFromCardCents    int64 `json:"penalty_from_card_cents"`
	PenaltyFromCreditsCents int64 `json:"penalty_from_credits_cents"`
	PenaltyFromBonusCents   int64 `json:"penalty_from_bonus_cents"`

	CardRefundCents            int64 `json:"card_refund_cents"`
	DepositFromCardRefundCents int64 `json:"deposit_from_card_refund_cents"`
	TotalCardRefundCents       int64 `json:"total_card_refund_cents"`

	CreditsRestoredCents       int64 `json:"credits_restored_cents"`
	BonusRestoredCents         int64 `json:"bonus_restored_cents"`
	DepositWalletRestoredCents int64 `json:"deposit_wallet_restored_cents"`

	// RefundPending is set when the gateway could not be reached and the card
	// refund is recorded as a durable pending obligation instead.
	RefundPending bool `json:"refund_pending"`
}

// ClearResult summarizes an admin clearing a booking's pending charges.
type ClearResult struct {
	BookingID     int64 `json:"booking_id"`
	ClearedCents  int64 `json:"cleared_cents"`
	TripChargeID  int64 `json:"trip_charge_id,omitempty"`
	WasChargeable bool  `json:"was_chargeable"`
}

type SettlementService interface {
	CancelBooking(ctx context.Context, guestID, bookingID int64, reason string) (*CancellationResult, error)
	ClearCharges(ctx context.Context, adminID, bookingID int64, reason string) (*ClearResult, error)
}

// ReconcileRequest states the financial end-state the caller wants:
// KeepCents is what the platform should retain from the card authorization,
// RefundCents is what must flow back to the guest if funds were captured.
type ReconcileRequest struct {
	KeepCents   int64
	RefundCents int64
	Reason      string

	// Obligation, when set, is an already recorded PENDING RefundRequest
	// this pass settles. The reconciler completes it instead of recording a
	// new one, so retries never duplicate the obligation.
	Obligation *domain.RefundRequest
}

// ReconcileResult reports what the reconciler actually did.
type ReconcileResult struct {
	Action        string
	PaymentStatus domain.PaymentStatus
	RefundRef     string
	RefundPending bool
}

type PaymentReconciler interface {
	// Reconcile re-fetches the authoritative intent state and drives exactly
	// one gateway operation toward the requested end-state.
	Reconcile(ctx context.Context, booking *domain.Booking, req ReconcileRequest) (*ReconcileResult, error)
}

type ProcessMode string

const (
	ProcessModeExpired  ProcessMode = "expired"
	ProcessModeAll      ProcessMode = "all"
	ProcessModeSpecific ProcessMode = "specific"
)

type ProcessOutcome string

const (
	OutcomeSuccessful ProcessOutcome = "successful"
	OutcomeFailed     ProcessOutcome = "failed"
	OutcomeSkipped    ProcessOutcome = "skipped"
)

type ChargeQuery struct {
	Status         string // pending | failed | expired | all
	OlderThanHours int
	Limit          int
}

type ChargeQueueReport struct {
	Charges []domain.TripCharge     `json:"charges"`
	Stats   domain.ChargeQueueStats `json:"stats"`
}

type ProcessRequest struct {
	Mode       ProcessMode
	BookingIDs []int64
	DryRun     bool
	MaxRetries int // 0 means configured default
	HoldHours  int // 0 means configured default
}

type BookingProcessResult struct {
	BookingID    int64          `json:"booking_id"`
	TripChargeID int64          `json:"trip_charge_id"`
	Outcome      ProcessOutcome `json:"outcome"`
	Reason       string         `json:"reason,omitempty"`
	AmountCents  int64          `json:"amount_cents"`
	ChargeRef    string         `json:"charge_ref,omitempty"`
}

type ProcessReport struct {
	DryRun            bool                   `json:"dry_run"`
	Results           []BookingProcessResult `json:"results"`
	Processed         int                    `json:"processed"`
	Successful        int                    `json:"successful"`
	Failed            int                    `json:"failed"`
	Skipped           int                    `json:"skipped"`
	TotalChargedCents int64                  `json:"total_charged_cents"`
}

type ChargeService interface {
	QueryCharges(ctx context.Context, q ChargeQuery) (*ChargeQueueReport, error)
	ProcessCharges(ctx context.Context, req ProcessRequest) (*ProcessReport, error)
}

type LedgerService interface {
	GetAccount(ctx context.Context, guestID int64) (*domain.GuestAccount, error)
	GetTransactions(ctx context.Context, guestID int64, page, pageSize int) ([]domain.LedgerTransaction, int64, error)
}

type EmailService interface {
	SendHostCancellationNotice(ctx context.Context, hostEmail string, bookingID int64, reason string) error
	SendChargeConfirmation(ctx context.Context, guestEmail string, bookingID, amountCents int64, category string) error
	SendChargeFailureNotice(ctx context.Context, guestEmail string, bookingID, amountCents int64, final bool) error
	SendAdminChargeReview(ctx context.Context, adminEmail string, bookingID, amountCents int64, failureReason string) error
}

type SmsService interface {
	Send(ctx context.Context, phone, event string, data map[string]string) error
}
