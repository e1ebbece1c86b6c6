package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/repository"
)

type activityLogRepository struct {
	db *sql.DB
}

func NewActivityLogRepository(db *sql.DB) repository.ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Record(ctx context.Context, entry *domain.ActivityLog) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return err
	}
	query := `INSERT INTO activity_log (actor_id, action, booking_id, metadata, created_on)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	entry.CreatedOn = time.Now()
	return r.db.QueryRowContext(ctx, query,
		entry.ActorID, entry.Action, entry.BookingID, metadata, entry.CreatedOn).Scan(&entry.ID)
}
