package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/logger"
	"carshare-settlement/internal/policy"
	"carshare-settlement/internal/repository"

	"github.com/google/uuid"
)

type settlementService struct {
	bookingRepo    repository.BookingRepository
	chargeRepo     repository.TripChargeRepository
	ledgerRepo     repository.LedgerRepository
	adjustmentRepo repository.LedgerAdjustmentRepository
	refundRepo     repository.RefundRequestRepository
	noteRepo       repository.NotificationRepository
	activityRepo   repository.ActivityLogRepository
	reconciler     PaymentReconciler
	emailSvc       EmailService
	smsSvc         SmsService
	settings       Settings
}

func NewSettlementService(
	bookingRepo repository.BookingRepository,
	chargeRepo repository.TripChargeRepository,
	ledgerRepo repository.LedgerRepository,
	adjustmentRepo repository.LedgerAdjustmentRepository,
	refundRepo repository.RefundRequestRepository,
	noteRepo repository.NotificationRepository,
	activityRepo repository.ActivityLogRepository,
	reconciler PaymentReconciler,
	emailSvc EmailService,
	smsSvc SmsService,
	settings Settings,
) SettlementService {
	return &settlementService{
		bookingRepo:    bookingRepo,
		chargeRepo:     chargeRepo,
		ledgerRepo:     ledgerRepo,
		adjustmentRepo: adjustmentRepo,
		refundRepo:     refundRepo,
		noteRepo:       noteRepo,
		activityRepo:   activityRepo,
		reconciler:     reconciler,
		emailSvc:       emailSvc,
		smsSvc:         smsSvc,
		settings:       settings,
	}
}

// CancelBooking executes a guest cancellation end to end: policy evaluation,
// penalty distribution, payment reconciliation, balance restores, and
// notifications. The conditional status transition at the start is the
// concurrency gate; everything after it is idempotent or durably recorded.
func (s *settlementService) CancelBooking(ctx context.Context, guestID, bookingID int64, reason string) (*CancellationResult, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.GuestID != guestID {
		return nil, ErrUnauthorized
	}

	// The assessment is computed before the transition so a policy error
	// never strands the booking in CANCELLED with no settlement.
	assessment, err := policy.EvaluateCancellation(booking.StartDate, time.Now(), booking.SubtotalCents, booking.TripDays())
	if err != nil {
		return nil, err
	}
	split := policy.DistributePenalty(assessment.PenaltyCents, booking.SubtotalCents,
		booking.CreditsAppliedCents, booking.BonusAppliedCents, booking.ChargeAmountCents)

	won, err := s.bookingRepo.MarkCancelled(ctx, bookingID, guestID, reason)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrBookingConflict
	}

	logger.Info("Booking cancellation started",
		"booking_id", bookingID, "guest_id", guestID,
		"tier", assessment.Tier, "penalty_cents", assessment.PenaltyCents)

	keepCents := split.PenaltyFromCardCents
	refundCents := split.CardRefundCents + booking.DepositFromCardCents

	// A validation-only authorization is nominal: it carries no real trip
	// funds, so the full card amount is released regardless of penalty. The
	// card-borne penalty share is zero by construction when credits and bonus
	// covered the whole base, but the flag decides, not the arithmetic.
	if s.isValidationCharge(booking) {
		keepCents = 0
		refundCents = booking.ChargeAmountCents + booking.DepositFromCardCents
	}

	reconReason := fmt.Sprintf("booking %d cancelled: %s", bookingID, assessment.Label)
	recon, reconErr := s.reconciler.Reconcile(ctx, booking, ReconcileRequest{
		KeepCents:   keepCents,
		RefundCents: refundCents,
		Reason:      reconReason,
	})
	result := &CancellationResult{
		BookingID:        bookingID,
		Tier:             assessment.Tier,
		Label:            assessment.Label,
		HoursUntilPickup: assessment.HoursUntilPickup,

		PenaltyCents:            assessment.PenaltyCents,
		PenaltyFromCardCents:    split.PenaltyFromCardCents,
		PenaltyFromCreditsCents: split.PenaltyFromCreditsCents,
		PenaltyFromBonusCents:   split.PenaltyFromBonusCents,

		CardRefundCents:            split.CardRefundCents,
		DepositFromCardRefundCents: booking.DepositFromCardCents,
		TotalCardRefundCents:       refundCents,
	}
	if reconErr != nil {
		// The cancellation proceeds; the sweep re-drives the refund later.
		// When the reconciler failed before it could record the obligation
		// itself (an outage on the status fetch), it is recorded here, so a
		// PENDING row exists no matter where the gateway call died.
		if recon == nil || !recon.RefundPending {
			s.recordRefundObligation(ctx, booking, keepCents, refundCents, reconReason)
		}
		logger.Error("Payment reconciliation deferred",
			"booking_id", bookingID, "error", reconErr)
		result.RefundPending = true
	} else if recon != nil {
		result.RefundPending = recon.RefundPending
	}

	s.restoreBalances(ctx, booking, split, result)

	s.notifyCancellation(ctx, booking, result, reason)
	s.recordActivity(ctx, &guestID, "BOOKING_CANCELLED", bookingID, map[string]string{
		"tier":          assessment.Tier,
		"penalty_cents": fmt.Sprintf("%d", assessment.PenaltyCents),
		"refund_cents":  fmt.Sprintf("%d", refundCents),
		"reason":        reason,
	})

	return result, nil
}

// isValidationCharge reports whether the booking's card authorization was a
// nominal validation charge. Bookings written before the flag existed fall
// back to the amount heuristic.
func (s *settlementService) isValidationCharge(b *domain.Booking) bool {
	if b.IsValidationOnly {
		return true
	}
	return b.ChargeAmountCents > 0 &&
		b.ChargeAmountCents <= s.settings.ValidationChargeCents &&
		b.CreditsAppliedCents+b.BonusAppliedCents >= b.TripCostCents()
}

// recordRefundObligation writes the PENDING RefundRequest the reconciler
// never got to record. Failure is logged, not returned: the cancellation
// already committed and must not roll back.
func (s *settlementService) recordRefundObligation(ctx context.Context, booking *domain.Booking, keepCents, refundCents int64, reason string) {
	if refundCents <= 0 || booking.PaymentIntentRef == "" {
		return
	}
	req := &domain.RefundRequest{
		BookingID:   booking.ID,
		Reference:   uuid.NewString(),
		IntentRef:   booking.PaymentIntentRef,
		AmountCents: refundCents,
		KeepCents:   keepCents,
		Reason:      reason,
		Status:      domain.RefundStatusPending,
	}
	if err := s.refundRepo.Create(ctx, req); err != nil {
		logger.Error("Failed to record refund obligation after reconcile failure",
			"booking_id", booking.ID, "amount_cents", refundCents, "error", err)
	}
}

// restoreBalances returns the unforfeited wallet funds. Each restore that
// fails is converted into a PENDING LedgerAdjustment so the money is never
// lost; the cancellation does not roll back.
func (s *settlementService) restoreBalances(ctx context.Context, booking *domain.Booking, split policy.PenaltySplit, result *CancellationResult) {
	account, err := s.ledgerRepo.GetAccountByGuest(ctx, booking.GuestID)
	if err != nil {
		logger.Error("Guest account lookup failed during cancellation",
			"booking_id", booking.ID, "guest_id", booking.GuestID, "error", err)
		return
	}

	restores := []struct {
		kind   domain.BalanceKind
		amount int64
		reason string
		out    *int64
	}{
		{domain.BalanceKindCredit, split.CreditsRestoredCents,
			fmt.Sprintf("credits restored on cancellation of booking %d (penalty absorbed %d cents)", booking.ID, split.PenaltyFromCreditsCents),
			&result.CreditsRestoredCents},
		{domain.BalanceKindBonus, split.BonusRestoredCents,
			fmt.Sprintf("bonus restored on cancellation of booking %d (penalty absorbed %d cents)", booking.ID, split.PenaltyFromBonusCents),
			&result.BonusRestoredCents},
		{domain.BalanceKindDeposit, booking.DepositFromWalletCents,
			fmt.Sprintf("deposit released on cancellation of booking %d", booking.ID),
			&result.DepositWalletRestoredCents},
	}

	for _, r := range restores {
		if r.amount <= 0 {
			continue
		}
		_, err := s.ledgerRepo.ApplyTransaction(ctx, account.ID, &booking.ID, r.kind, domain.LedgerDirectionAdd, r.amount, r.reason)
		if err != nil {
			logger.Error("Balance restore failed, recording adjustment",
				"booking_id", booking.ID, "kind", r.kind, "amount_cents", r.amount, "error", err)
			adjErr := s.adjustmentRepo.Create(ctx, &domain.LedgerAdjustment{
				AccountID:   account.ID,
				BookingID:   booking.ID,
				Kind:        r.kind,
				AmountCents: r.amount,
				Reason:      r.reason,
				Status:      domain.AdjustmentStatusPending,
			})
			if adjErr != nil {
				logger.Error("Failed to record ledger adjustment",
					"booking_id", booking.ID, "kind", r.kind, "error", adjErr)
			}
			continue
		}
		*r.out = r.amount
	}
}

func (s *settlementService) notifyCancellation(ctx context.Context, booking *domain.Booking, result *CancellationResult, reason string) {
	_ = s.emailSvc.SendHostCancellationNotice(ctx, booking.HostEmail, booking.ID, reason)
	if booking.GuestPhone != "" {
		_ = s.smsSvc.Send(ctx, booking.GuestPhone, "booking_cancelled", map[string]string{
			"booking_id":   fmt.Sprintf("%d", booking.ID),
			"refund_cents": fmt.Sprintf("%d", result.TotalCardRefundCents),
		})
	}
	_ = s.noteRepo.Create(ctx, &domain.Notification{
		UserID:  booking.HostID,
		Title:   "Booking cancelled",
		Message: fmt.Sprintf("Booking %d was cancelled by the guest (%s).", booking.ID, result.Label),
		Attributes: map[string]string{
			"type":       "BOOKING_CANCELLED",
			"booking_id": fmt.Sprintf("%d", booking.ID),
		},
	})
}

// ClearCharges waives a booking's pending post-trip charges. Admin only; the
// caller's role is checked at the transport layer, the actor id recorded here.
func (s *settlementService) ClearCharges(ctx context.Context, adminID, bookingID int64, reason string) (*ClearResult, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PendingChargesCents <= 0 {
		return nil, ErrNothingToClear
	}

	result := &ClearResult{BookingID: bookingID, ClearedCents: booking.PendingChargesCents}

	charge, err := s.chargeRepo.GetActiveByBooking(ctx, bookingID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// No charge row behind the amount: clear the booking-level state only.
		if err := s.bookingRepo.SetPendingCharges(ctx, bookingID, 0); err != nil {
			return nil, err
		}
		if err := s.bookingRepo.UpdatePaymentStatus(ctx, bookingID, domain.PaymentStatusChargesCleared); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		now := time.Now()
		charge.Status = domain.ChargeStatusCleared
		charge.ClearedAt = &now
		completed := domain.BookingStatusCompleted
		message := fmt.Sprintf("Your pending post-trip charges of $%.2f were waived: %s",
			float64(booking.PendingChargesCents)/100, reason)
		if err := s.chargeRepo.RecordOutcome(ctx, charge, domain.PaymentStatusChargesCleared, &completed, message); err != nil {
			return nil, err
		}
		result.TripChargeID = charge.ID
		result.WasChargeable = !charge.Terminal()
	}

	logger.Info("Pending charges cleared",
		"booking_id", bookingID, "admin_id", adminID,
		"cleared_cents", result.ClearedCents, "reason", reason)

	_ = s.noteRepo.Create(ctx, &domain.Notification{
		UserID:  booking.GuestID,
		Title:   "Charges waived",
		Message: fmt.Sprintf("Your pending charges of $%.2f on booking %d were waived.", float64(result.ClearedCents)/100, bookingID),
		Attributes: map[string]string{
			"type":       "CHARGES_CLEARED",
			"booking_id": fmt.Sprintf("%d", bookingID),
		},
	})
	s.recordActivity(ctx, &adminID, "CHARGES_CLEARED", bookingID, map[string]string{
		"cleared_cents": fmt.Sprintf("%d", result.ClearedCents),
		"reason":        reason,
	})

	return result, nil
}

func (s *settlementService) recordActivity(ctx context.Context, actorID *int64, action string, bookingID int64, metadata map[string]string) {
	if err := s.activityRepo.Record(ctx, &domain.ActivityLog{
		ActorID:   actorID,
		Action:    action,
		BookingID: &bookingID,
		Metadata:  metadata,
	}); err != nil {
		logger.Error("Failed to record activity", "action", action, "booking_id", bookingID, "error", err)
	}
}
