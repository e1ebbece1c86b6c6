package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/gateway"
	"carshare-settlement/internal/logger"
	"carshare-settlement/internal/repository"
)

// Settings carries the settlement knobs threaded in from configuration.
// Nothing in the services reads ambient global state, so tests can inject
// deterministic values.
type Settings struct {
	HoldWindowHours       int
	MaxChargeRetries      int
	BatchLimit            int
	GatewayTimeout        time.Duration
	ValidationChargeCents int64
	AdminUserID           int64
	AdminEmail            string
}

type chargeService struct {
	chargeRepo  repository.TripChargeRepository
	bookingRepo repository.BookingRepository
	noteRepo    repository.NotificationRepository
	gw          gateway.PaymentGateway
	emailSvc    EmailService
	settings    Settings
}

func NewChargeService(
	chargeRepo repository.TripChargeRepository,
	bookingRepo repository.BookingRepository,
	noteRepo repository.NotificationRepository,
	gw gateway.PaymentGateway,
	emailSvc EmailService,
	settings Settings,
) ChargeService {
	return &chargeService{
		chargeRepo:  chargeRepo,
		bookingRepo: bookingRepo,
		noteRepo:    noteRepo,
		gw:          gw,
		emailSvc:    emailSvc,
		settings:    settings,
	}
}

func (s *chargeService) QueryCharges(ctx context.Context, q ChargeQuery) (*ChargeQueueReport, error) {
	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = s.settings.BatchLimit
	}

	var olderThan *time.Time
	if q.OlderThanHours > 0 {
		cutoff := time.Now().Add(-time.Duration(q.OlderThanHours) * time.Hour)
		olderThan = &cutoff
	}

	var statuses []domain.ChargeStatus
	switch q.Status {
	case "", "all":
		// no status filter
	case "pending":
		statuses = []domain.ChargeStatus{domain.ChargeStatusPending}
	case "failed":
		statuses = []domain.ChargeStatus{domain.ChargeStatusFailed, domain.ChargeStatusReviewRequested}
	case "expired":
		statuses = []domain.ChargeStatus{domain.ChargeStatusPending}
		cutoff := time.Now().Add(-time.Duration(s.settings.HoldWindowHours) * time.Hour)
		if olderThan == nil || cutoff.Before(*olderThan) {
			olderThan = &cutoff
		}
	default:
		return nil, fmt.Errorf("unknown status filter %q", q.Status)
	}

	charges, err := s.chargeRepo.ListByStatus(ctx, statuses, olderThan, limit)
	if err != nil {
		return nil, err
	}
	stats, err := s.chargeRepo.QueueStats(ctx)
	if err != nil {
		return nil, err
	}

	ready, err := s.chargeRepo.ListEligible(ctx,
		time.Now().Add(-time.Duration(s.settings.HoldWindowHours)*time.Hour),
		s.settings.MaxChargeRetries, s.settings.BatchLimit)
	if err != nil {
		return nil, err
	}
	stats.ReadyToProcess = int64(len(ready))

	return &ChargeQueueReport{Charges: charges, Stats: *stats}, nil
}

func (s *chargeService) ProcessCharges(ctx context.Context, req ProcessRequest) (*ProcessReport, error) {
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = s.settings.MaxChargeRetries
	}
	holdHours := req.HoldHours
	if holdHours <= 0 {
		holdHours = s.settings.HoldWindowHours
	}

	charges, err := s.selectCharges(ctx, req, holdHours, maxRetries)
	if err != nil {
		return nil, err
	}

	report := &ProcessReport{DryRun: req.DryRun}
	for i := range charges {
		result := s.processOne(ctx, &charges[i], maxRetries, req.DryRun)
		report.Results = append(report.Results, result)
		report.Processed++
		switch result.Outcome {
		case OutcomeSuccessful:
			report.Successful++
			report.TotalChargedCents += result.AmountCents
		case OutcomeFailed:
			report.Failed++
		case OutcomeSkipped:
			report.Skipped++
		}
	}

	logger.Info("Charge batch processed",
		"mode", req.Mode, "dry_run", req.DryRun,
		"processed", report.Processed, "successful", report.Successful,
		"failed", report.Failed, "skipped", report.Skipped,
		"total_charged_cents", report.TotalChargedCents)
	return report, nil
}

func (s *chargeService) selectCharges(ctx context.Context, req ProcessRequest, holdHours, maxRetries int) ([]domain.TripCharge, error) {
	switch req.Mode {
	case ProcessModeExpired:
		cutoff := time.Now().Add(-time.Duration(holdHours) * time.Hour)
		return s.chargeRepo.ListEligible(ctx, cutoff, maxRetries, s.settings.BatchLimit)
	case ProcessModeAll:
		// Trip ends are always in the past, so a cutoff of now selects every
		// pending charge regardless of the hold window.
		return s.chargeRepo.ListEligible(ctx, time.Now(), maxRetries, s.settings.BatchLimit)
	case ProcessModeSpecific:
		var charges []domain.TripCharge
		for _, bookingID := range req.BookingIDs {
			charge, err := s.chargeRepo.GetActiveByBooking(ctx, bookingID)
			if errors.Is(err, repository.ErrNotFound) {
				// A pending amount with no charge row is "nothing to process",
				// never inferred from the amount alone.
				charges = append(charges, domain.TripCharge{BookingID: bookingID})
				continue
			}
			if err != nil {
				return nil, err
			}
			charges = append(charges, *charge)
		}
		return charges, nil
	}
	return nil, fmt.Errorf("unknown processing mode %q", req.Mode)
}

// processOne runs a single capture attempt. The identifying key for the
// attempt is (booking id, trip charge id); a missing charge row is a skip,
// so a sweep racing itself cannot double-capture.
func (s *chargeService) processOne(ctx context.Context, charge *domain.TripCharge, maxRetries int, dryRun bool) BookingProcessResult {
	result := BookingProcessResult{BookingID: charge.BookingID, TripChargeID: charge.ID, AmountCents: charge.TotalCents}

	if charge.ID == 0 {
		result.Outcome = OutcomeSkipped
		result.Reason = "no trip charge to process"
		return result
	}

	booking, err := s.bookingRepo.GetByID(ctx, charge.BookingID)
	if err != nil {
		result.Outcome = OutcomeSkipped
		result.Reason = fmt.Sprintf("booking lookup failed: %v", err)
		return result
	}

	switch {
	case charge.Terminal():
		result.Outcome = OutcomeSkipped
		result.Reason = fmt.Sprintf("charge already %s", charge.Status)
		return result
	case booking.PendingChargesCents <= 0:
		result.Outcome = OutcomeSkipped
		result.Reason = "no pending charges on booking"
		return result
	case booking.GatewayCustomerRef == "" || booking.PaymentMethodRef == "":
		result.Outcome = OutcomeSkipped
		result.Reason = "no payment method on file"
		return result
	case charge.RetryCount >= maxRetries:
		result.Outcome = OutcomeSkipped
		result.Reason = fmt.Sprintf("exceeded max retries (%d/%d)", charge.RetryCount, maxRetries)
		return result
	}

	if dryRun {
		result.Outcome = OutcomeSuccessful
		result.Reason = "dry run"
		return result
	}

	chargeRef, captureErr := s.capture(ctx, booking, charge)
	if captureErr != nil {
		s.recordFailure(ctx, booking, charge, maxRetries, captureErr)
		result.Outcome = OutcomeFailed
		result.Reason = captureErr.Error()
		return result
	}

	now := time.Now()
	charge.Status = domain.ChargeStatusCharged
	charge.GatewayChargeRef = chargeRef
	charge.ChargedAt = &now
	completed := domain.BookingStatusCompleted
	message := fmt.Sprintf("Your post-trip %s charge of $%.2f was processed successfully.",
		charge.Category(), float64(charge.TotalCents)/100)
	if err := s.chargeRepo.RecordOutcome(ctx, charge, domain.PaymentStatusChargesPaid, &completed, message); err != nil {
		// The gateway charge went through; the local write is retried by
		// re-reconciling, never by charging again.
		logger.Error("Charged at gateway but local commit failed",
			"booking_id", booking.ID, "trip_charge_id", charge.ID,
			"charge_ref", chargeRef, "error", err)
		result.Outcome = OutcomeFailed
		result.Reason = fmt.Sprintf("charged but local commit failed: %v", err)
		return result
	}

	_ = s.emailSvc.SendChargeConfirmation(ctx, booking.GuestEmail, booking.ID, charge.TotalCents, charge.Category())
	_ = s.noteRepo.Create(ctx, &domain.Notification{
		UserID:  booking.GuestID,
		Title:   "Trip charge processed",
		Message: message,
		Attributes: map[string]string{
			"type":           "TRIP_CHARGE_PAID",
			"booking_id":     fmt.Sprintf("%d", booking.ID),
			"trip_charge_id": fmt.Sprintf("%d", charge.ID),
		},
	})

	result.Outcome = OutcomeSuccessful
	result.ChargeRef = chargeRef
	return result
}

// capture charges the stored payment method for the deferred amount: a fresh
// off-session authorization followed by an immediate full capture.
func (s *chargeService) capture(ctx context.Context, booking *domain.Booking, charge *domain.TripCharge) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, s.settings.GatewayTimeout)
	defer cancel()

	intentRef, err := s.gw.Authorize(gctx, booking.GatewayCustomerRef, booking.PaymentMethodRef, charge.TotalCents, map[string]string{
		"booking_id":     fmt.Sprintf("%d", booking.ID),
		"trip_charge_id": fmt.Sprintf("%d", charge.ID),
		"category":       charge.Category(),
	})
	if err != nil {
		return "", fmt.Errorf("authorize: %w", err)
	}
	if err := s.gw.Capture(gctx, intentRef, 0); err != nil {
		// Void the fresh hold so a retry does not stack another
		// authorization on the guest's card.
		if cancelErr := s.gw.Cancel(gctx, intentRef, "capture failed"); cancelErr != nil {
			logger.Error("Failed to void authorization after capture failure",
				"booking_id", booking.ID, "trip_charge_id", charge.ID,
				"intent_ref", intentRef, "error", cancelErr)
		}
		return "", fmt.Errorf("capture: %w", err)
	}
	return intentRef, nil
}

func (s *chargeService) recordFailure(ctx context.Context, booking *domain.Booking, charge *domain.TripCharge, maxRetries int, captureErr error) {
	charge.RetryCount++
	charge.FailureReason = captureErr.Error()

	final := charge.RetryCount >= maxRetries
	escalating := final && charge.Status != domain.ChargeStatusReviewRequested
	if final {
		charge.Status = domain.ChargeStatusReviewRequested
	} else {
		charge.Status = domain.ChargeStatusFailed
	}

	var message string
	if final {
		message = fmt.Sprintf("We could not process your post-trip charge of $%.2f. Our support team will contact you to settle it.",
			float64(charge.TotalCents)/100)
	} else {
		message = fmt.Sprintf("We could not process your post-trip charge of $%.2f. We will retry automatically.",
			float64(charge.TotalCents)/100)
	}

	if err := s.chargeRepo.RecordOutcome(ctx, charge, domain.PaymentStatusPaymentFailed, nil, message); err != nil {
		logger.Error("Failed to record charge failure",
			"booking_id", booking.ID, "trip_charge_id", charge.ID, "error", err)
	}

	// The escalation notification fires exactly once, at the transition into
	// REVIEW_REQUESTED, not on every later skipped attempt.
	if escalating {
		_ = s.noteRepo.Create(ctx, &domain.Notification{
			UserID:   s.settings.AdminUserID,
			Title:    "Trip charge needs manual review",
			Message:  fmt.Sprintf("Booking %d: charge of $%.2f failed %d times (%s)", booking.ID, float64(charge.TotalCents)/100, charge.RetryCount, charge.FailureReason),
			Priority: domain.NotificationPriorityHigh,
			Attributes: map[string]string{
				"type":           "TRIP_CHARGE_REVIEW",
				"booking_id":     fmt.Sprintf("%d", booking.ID),
				"trip_charge_id": fmt.Sprintf("%d", charge.ID),
				"action_url":     fmt.Sprintf("/admin/bookings/%d/charges", booking.ID),
			},
		})
		_ = s.emailSvc.SendAdminChargeReview(ctx, s.settings.AdminEmail, booking.ID, charge.TotalCents, charge.FailureReason)
		_ = s.emailSvc.SendChargeFailureNotice(ctx, booking.GuestEmail, booking.ID, charge.TotalCents, true)
	} else {
		_ = s.emailSvc.SendChargeFailureNotice(ctx, booking.GuestEmail, booking.ID, charge.TotalCents, false)
	}
}
