package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	httpapi "carshare-settlement/internal/api/http"
	"carshare-settlement/internal/config"
	"carshare-settlement/internal/gateway"
	"carshare-settlement/internal/logger"
	"carshare-settlement/internal/repository/postgres"
	"carshare-settlement/internal/security"
	"carshare-settlement/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting settlement server...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
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

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	authMiddleware := httpapi.NewAuthMiddleware(tokenManager)

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
	smsSvc := service.NewLogSmsService()

	settings := service.Settings{
		HoldWindowHours:       cfg.Settlement.HoldWindowHours,
		MaxChargeRetries:      cfg.Settlement.MaxChargeRetries,
		BatchLimit:            cfg.Settlement.BatchLimit,
		GatewayTimeout:        time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second,
		ValidationChargeCents: cfg.Settlement.ValidationChargeCents,
		AdminUserID:           cfg.Settlement.AdminUserID,
		AdminEmail:            cfg.Settlement.AdminEmail,
	}

	reconciler := service.NewPaymentReconciler(gw, store.BookingRepository, store.RefundRequestRepository, settings.GatewayTimeout)
	settlementSvc := service.NewSettlementService(
		store.BookingRepository,
		store.TripChargeRepository,
		store.LedgerRepository,
		store.LedgerAdjustmentRepository,
		store.RefundRequestRepository,
		store.NotificationRepository,
		store.ActivityLogRepository,
		reconciler,
		emailSvc,
		smsSvc,
		settings,
	)
	chargeSvc := service.NewChargeService(
		store.TripChargeRepository,
		store.BookingRepository,
		store.NotificationRepository,
		gw,
		emailSvc,
		settings,
	)
	ledgerSvc := service.NewLedgerService(store.LedgerRepository)

	// Router
	handler := httpapi.NewHandler(settlementSvc, chargeSvc, ledgerSvc)
	router := httpapi.NewRouter(handler, authMiddleware)

	logger.Info("Settlement server listening", "address", cfg.GetServerAddress())
	if err := http.ListenAndServe(cfg.GetServerAddress(), router); err != nil {
		logger.Error("Server stopped", "error", err)
		log.Fatalf("Server stopped: %v", err)
	}
}
