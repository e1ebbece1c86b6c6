package postgres

import (
	"database/sql"

	"carshare-settlement/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.BookingRepository
	repository.TripChargeRepository
	repository.LedgerRepository
	repository.RefundRequestRepository
	repository.LedgerAdjustmentRepository
	repository.NotificationRepository
	repository.ActivityLogRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                         db,
		BookingRepository:          NewBookingRepository(db),
		TripChargeRepository:       NewTripChargeRepository(db),
		LedgerRepository:           NewLedgerRepository(db),
		RefundRequestRepository:    NewRefundRequestRepository(db),
		LedgerAdjustmentRepository: NewLedgerAdjustmentRepository(db),
		NotificationRepository:     NewNotificationRepository(db),
		ActivityLogRepository:      NewActivityLogRepository(db),
	}
}
