package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"carshare-settlement/internal/config"
	"carshare-settlement/internal/gateway"
	"carshare-settlement/internal/jobs"
	"carshare-settlement/internal/logger"
	"carshare-settlement/internal/repository/postgres"
	"carshare-settlement/internal/scheduler"
	"carshare-settlement/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'process-expired-charges', 'all')")
	flag.Parse()

	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting settlement cronjob runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Payment Gateway
	var gw gateway.PaymentGateway
	switch cfg.Gateway.Type {
	case "", "mock":
		logger.Info("Using mock payment gateway")
		gw = gateway.NewMockGateway()
	default:
		logger.Error("Unsupported gateway type", "type", cfg.Gateway.Type)
		log.Fatalf("Gateway type '%s' not yet implemented", cfg.Gateway.Type)
	}

	// Initialize Services
	emailSvc := service.NewEmailService(
		cfg.SMTP.Host,
		fmt.Sprintf("%d", cfg.SMTP.Port),
		cfg.SMTP.User,
		cfg.SMTP.Password,
		cfg.SMTP.From,
	)

	settings := service.Settings{
		HoldWindowHours:       cfg.Settlement.HoldWindowHours,
		MaxChargeRetries:      cfg.Settlement.MaxChargeRetries,
		BatchLimit:            cfg.Settlement.BatchLimit,
		GatewayTimeout:        time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second,
		ValidationChargeCents: cfg.Settlement.ValidationChargeCents,
		AdminUserID:           cfg.Settlement.AdminUserID,
		AdminEmail:            cfg.Settlement.AdminEmail,
	}

	chargeSvc := service.NewChargeService(
		store.TripChargeRepository,
		store.BookingRepository,
		store.NotificationRepository,
		gw,
		emailSvc,
		settings,
	)

	reconciler := service.NewPaymentReconciler(gw, store.BookingRepository, store.RefundRequestRepository, settings.GatewayTimeout)

	jobServices := &jobs.Services{
		Charge:     chargeSvc,
		Reconciler: reconciler,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(db, store, jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "process-expired-charges":
		jobRunner.ProcessExpiredCharges()
	case "retry-pending-refunds":
		jobRunner.RetryPendingRefunds()
	case "retry-ledger-adjustments":
		jobRunner.RetryLedgerAdjustments()
	case "all":
		jobRunner.RunAllSweeps()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - process-expired-charges\n")
		fmt.Printf("  - retry-pending-refunds\n")
		fmt.Printf("  - retry-ledger-adjustments\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
