package jobs

import (
	"context"

	"carshare-settlement/internal/logger"
	"carshare-settlement/internal/service"
)

// ProcessExpiredCharges captures deferred trip charges whose dispute hold
// window has elapsed, plus failed charges with retries remaining.
func (jr *JobRunner) ProcessExpiredCharges() {
	jr.runWithRecovery("ProcessExpiredCharges", func() {
		ctx := context.Background()

		report, err := jr.services.Charge.ProcessCharges(ctx, service.ProcessRequest{
			Mode: service.ProcessModeExpired,
		})
		if err != nil {
			logger.Error("Failed to process expired charges", "error", err)
			return
		}

		logger.Info("Expired charges processed",
			"processed", report.Processed,
			"successful", report.Successful,
			"failed", report.Failed,
			"skipped", report.Skipped,
			"total_charged_cents", report.TotalChargedCents)
	})
}
