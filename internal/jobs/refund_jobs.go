package jobs

import (
	"context"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/logger"
	"carshare-settlement/internal/service"
)

// RetryPendingRefunds re-drives refund obligations that were recorded but not
// completed, typically because the gateway was unreachable mid-cancellation.
// Each obligation goes back through the reconciler with its stored keep and
// refund amounts, never re-derived, so a partially captured penalty is never
// voided along with the guest's share.
func (jr *JobRunner) RetryPendingRefunds() {
	jr.runWithRecovery("RetryPendingRefunds", func() {
		ctx := context.Background()

		pending, err := jr.store.RefundRequestRepository.ListPending(ctx, jr.config.Settlement.BatchLimit)
		if err != nil {
			logger.Error("Failed to list pending refunds", "error", err)
			return
		}

		completed := 0
		for i := range pending {
			if jr.redriveRefund(ctx, &pending[i]) {
				completed++
			}
		}

		logger.Info("Pending refunds retried", "pending", len(pending), "completed", completed)
	})
}

func (jr *JobRunner) redriveRefund(ctx context.Context, req *domain.RefundRequest) bool {
	booking, err := jr.store.BookingRepository.GetByID(ctx, req.BookingID)
	if err != nil {
		logger.Error("Refund retry: booking lookup failed",
			"refund_id", req.ID, "booking_id", req.BookingID, "error", err)
		return false
	}

	result, err := jr.services.Reconciler.Reconcile(ctx, booking, service.ReconcileRequest{
		KeepCents:   req.KeepCents,
		RefundCents: req.AmountCents,
		Reason:      req.Reason,
		Obligation:  req,
	})
	if err != nil {
		logger.Error("Refund retry: reconcile failed, obligation stays pending",
			"refund_id", req.ID, "booking_id", req.BookingID, "error", err)
		return false
	}

	logger.Info("Pending refund settled",
		"refund_id", req.ID, "booking_id", req.BookingID,
		"amount_cents", req.AmountCents, "action", result.Action)
	return true
}

// RetryLedgerAdjustments re-applies wallet restores that failed after their
// cancellation already committed.
func (jr *JobRunner) RetryLedgerAdjustments() {
	jr.runWithRecovery("RetryLedgerAdjustments", func() {
		ctx := context.Background()

		pending, err := jr.store.LedgerAdjustmentRepository.ListPending(ctx, jr.config.Settlement.BatchLimit)
		if err != nil {
			logger.Error("Failed to list pending ledger adjustments", "error", err)
			return
		}

		completed := 0
		for _, adj := range pending {
			_, err := jr.store.LedgerRepository.ApplyTransaction(ctx, adj.AccountID, &adj.BookingID,
				adj.Kind, domain.LedgerDirectionAdd, adj.AmountCents, adj.Reason)
			if err != nil {
				logger.Error("Ledger adjustment retry failed",
					"adjustment_id", adj.ID, "account_id", adj.AccountID, "error", err)
				continue
			}
			if err := jr.store.LedgerAdjustmentRepository.MarkCompleted(ctx, adj.ID); err != nil {
				logger.Error("Failed to mark ledger adjustment completed",
					"adjustment_id", adj.ID, "error", err)
				continue
			}
			completed++
		}

		logger.Info("Ledger adjustments retried", "pending", len(pending), "completed", completed)
	})
}
