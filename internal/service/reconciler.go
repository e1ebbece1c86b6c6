package service

import (
	"context"
	"fmt"
	"time"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/gateway"
	"carshare-settlement/internal/logger"
	"carshare-settlement/internal/repository"

	"github.com/google/uuid"
)

type paymentReconciler struct {
	gw          gateway.PaymentGateway
	bookingRepo repository.BookingRepository
	refundRepo  repository.RefundRequestRepository
	timeout     time.Duration
}

func NewPaymentReconciler(
	gw gateway.PaymentGateway,
	bookingRepo repository.BookingRepository,
	refundRepo repository.RefundRequestRepository,
	gatewayTimeout time.Duration,
) PaymentReconciler {
	return &paymentReconciler{
		gw:          gw,
		bookingRepo: bookingRepo,
		refundRepo:  refundRepo,
		timeout:     gatewayTimeout,
	}
}

// Reconcile drives a payment intent toward the requested end-state, keyed on
// the gateway's authoritative view rather than the locally cached
// paymentStatus. Whenever money is owed back to the guest, the PENDING
// RefundRequest exists before the gateway mutation is attempted, so a
// gateway failure can always be recovered from stored state alone.
func (r *paymentReconciler) Reconcile(ctx context.Context, booking *domain.Booking, req ReconcileRequest) (*ReconcileResult, error) {
	if booking.PaymentIntentRef == "" {
		return &ReconcileResult{Action: "none", PaymentStatus: booking.PaymentStatus}, nil
	}

	gctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	status, err := r.gw.RetrieveStatus(gctx, booking.PaymentIntentRef)
	if err != nil {
		return nil, fmt.Errorf("retrieve intent %s: %w", booking.PaymentIntentRef, err)
	}

	switch {
	case status.State == gateway.IntentRequiresCapture:
		return r.settleAuthorized(ctx, booking, req, status)

	case status.State == gateway.IntentSucceeded:
		return r.refundCaptured(ctx, booking, req, status)

	case status.State.NeverConfirmed():
		// Nothing was ever charged; voiding is always safe.
		if err := r.cancelIntent(ctx, booking, "never confirmed"); err != nil {
			return &ReconcileResult{RefundPending: req.Obligation != nil}, err
		}
		r.completeObligation(ctx, req.Obligation, "released_on_void")
		return r.finish(ctx, booking, &ReconcileResult{Action: "voided_unconfirmed", PaymentStatus: domain.PaymentStatusRefunded})

	case status.State == gateway.IntentCanceled:
		// Already voided: no funds are held, so a carried obligation is
		// settled by the void itself.
		r.completeObligation(ctx, req.Obligation, "released_on_void")
		if booking.PaymentStatus == domain.PaymentStatusRefunded {
			return &ReconcileResult{Action: "noop", PaymentStatus: booking.PaymentStatus}, nil
		}
		return r.finish(ctx, booking, &ReconcileResult{Action: "status_realigned", PaymentStatus: domain.PaymentStatusRefunded})
	}

	return nil, fmt.Errorf("intent %s in unexpected state %q", booking.PaymentIntentRef, status.State)
}

func (r *paymentReconciler) settleAuthorized(ctx context.Context, booking *domain.Booking, req ReconcileRequest, status *gateway.IntentStatus) (*ReconcileResult, error) {
	if req.KeepCents <= 0 {
		obligation, err := r.recordObligation(ctx, booking, req, req.RefundCents)
		if err != nil {
			return nil, err
		}
		if err := r.cancelIntent(ctx, booking, req.Reason); err != nil {
			return &ReconcileResult{RefundPending: obligation != nil}, err
		}
		r.completeObligation(ctx, obligation, "released_on_void")
		return r.finish(ctx, booking, &ReconcileResult{Action: "voided", PaymentStatus: domain.PaymentStatusRefunded})
	}

	if req.KeepCents >= status.AuthorizedCents {
		gctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		if err := r.gw.Capture(gctx, booking.PaymentIntentRef, 0); err != nil {
			return &ReconcileResult{RefundPending: req.Obligation != nil}, fmt.Errorf("capture intent %s: %w", booking.PaymentIntentRef, err)
		}
		// The full authorization was owed; nothing is left to refund from
		// this intent.
		r.completeObligation(ctx, req.Obligation, "absorbed_by_full_capture")
		return r.finish(ctx, booking, &ReconcileResult{Action: "captured_full", PaymentStatus: domain.PaymentStatusPaid})
	}

	// Partial capture: the gateway releases the uncaptured remainder on its
	// own, but the obligation is still recorded first so a failed capture
	// leaves a durable trace of what the guest is owed.
	obligation, err := r.recordObligation(ctx, booking, req, req.RefundCents)
	if err != nil {
		return nil, err
	}
	gctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.gw.Capture(gctx, booking.PaymentIntentRef, req.KeepCents); err != nil {
		return &ReconcileResult{RefundPending: obligation != nil}, fmt.Errorf("partial capture intent %s: %w", booking.PaymentIntentRef, err)
	}
	r.completeObligation(ctx, obligation, "released_on_partial_capture")
	return r.finish(ctx, booking, &ReconcileResult{Action: "captured_partial", PaymentStatus: domain.PaymentStatusPaid})
}

func (r *paymentReconciler) refundCaptured(ctx context.Context, booking *domain.Booking, req ReconcileRequest, status *gateway.IntentStatus) (*ReconcileResult, error) {
	if booking.PaymentStatus == domain.PaymentStatusRefunded {
		// The refund already went out; a carried obligation only missed its
		// completion write.
		r.completeObligation(ctx, req.Obligation, "already_refunded")
		return &ReconcileResult{Action: "noop", PaymentStatus: booking.PaymentStatus}, nil
	}
	amount := req.RefundCents
	if amount > status.CapturedCents {
		amount = status.CapturedCents
	}
	if amount <= 0 {
		return &ReconcileResult{Action: "noop", PaymentStatus: booking.PaymentStatus}, nil
	}

	obligation, err := r.recordObligation(ctx, booking, req, amount)
	if err != nil {
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	refundRef, err := r.gw.Refund(gctx, booking.PaymentIntentRef, amount, map[string]string{
		"booking_id": fmt.Sprintf("%d", booking.ID),
		"reference":  obligation.Reference,
	})
	if err != nil {
		// The PENDING RefundRequest stays behind; the retry sweep or an
		// operator re-drives it from the stored amount, never re-derived.
		logger.Error("Gateway refund failed, obligation left pending",
			"booking_id", booking.ID, "intent_ref", booking.PaymentIntentRef,
			"amount_cents", amount, "error", err)
		return &ReconcileResult{RefundPending: true}, fmt.Errorf("refund intent %s: %w", booking.PaymentIntentRef, err)
	}
	r.completeObligation(ctx, obligation, refundRef)
	return r.finish(ctx, booking, &ReconcileResult{Action: "refunded", PaymentStatus: domain.PaymentStatusRefunded, RefundRef: refundRef})
}

func (r *paymentReconciler) cancelIntent(ctx context.Context, booking *domain.Booking, reason string) error {
	gctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.gw.Cancel(gctx, booking.PaymentIntentRef, reason); err != nil {
		return fmt.Errorf("cancel intent %s: %w", booking.PaymentIntentRef, err)
	}
	return nil
}

// recordObligation durably records the amount owed back to the guest before
// any gateway mutation is attempted. A carried obligation is reused as is,
// never re-recorded. Returns nil when nothing is owed.
func (r *paymentReconciler) recordObligation(ctx context.Context, booking *domain.Booking, req ReconcileRequest, amountCents int64) (*domain.RefundRequest, error) {
	if req.Obligation != nil {
		return req.Obligation, nil
	}
	if amountCents <= 0 {
		return nil, nil
	}
	obligation := &domain.RefundRequest{
		BookingID:   booking.ID,
		Reference:   uuid.NewString(),
		IntentRef:   booking.PaymentIntentRef,
		AmountCents: amountCents,
		KeepCents:   req.KeepCents,
		Reason:      req.Reason,
		Status:      domain.RefundStatusPending,
	}
	if err := r.refundRepo.Create(ctx, obligation); err != nil {
		return nil, fmt.Errorf("record refund obligation for booking %d: %w", booking.ID, err)
	}
	return obligation, nil
}

func (r *paymentReconciler) completeObligation(ctx context.Context, obligation *domain.RefundRequest, gatewayRef string) {
	if obligation == nil {
		return
	}
	if err := r.refundRepo.MarkCompleted(ctx, obligation.ID, gatewayRef); err != nil {
		logger.Error("Failed to mark refund obligation completed",
			"refund_request_id", obligation.ID, "error", err)
	}
}

func (r *paymentReconciler) finish(ctx context.Context, booking *domain.Booking, result *ReconcileResult) (*ReconcileResult, error) {
	if err := r.bookingRepo.UpdatePaymentStatus(ctx, booking.ID, result.PaymentStatus); err != nil {
		// The gateway already moved; local state is re-alignable from
		// authoritative intent state on the next reconcile.
		logger.Error("Failed to update cached payment status",
			"booking_id", booking.ID, "payment_status", result.PaymentStatus, "error", err)
	}
	booking.PaymentStatus = result.PaymentStatus
	return result, nil
}
