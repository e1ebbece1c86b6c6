package jobs

import (
	"database/sql"

	"carshare-settlement/internal/config"
	"carshare-settlement/internal/logger"
	"carshare-settlement/internal/repository/postgres"
	"carshare-settlement/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	db       *sql.DB
	store    *postgres.Store
	services *Services
	config   *config.Config
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Charge     service.ChargeService
	Reconciler service.PaymentReconciler
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(db *sql.DB, store *postgres.Store, services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		db:       db,
		store:    store,
		services: services,
		config:   cfg,
	}
}

// Config exposes the configuration for the scheduler's job registration.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	log := logger.WithService("jobs")
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	log.Info("Starting job", "job", jobName)
	jobFunc()
	log.Info("Job completed", "job", jobName)
}

// RunAllSweeps runs every scheduled sweep once (for manual execution)
func (jr *JobRunner) RunAllSweeps() {
	jr.ProcessExpiredCharges()
	jr.RetryPendingRefunds()
	jr.RetryLedgerAdjustments()
}
