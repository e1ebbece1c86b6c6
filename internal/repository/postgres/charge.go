package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/repository"

	"github.com/lib/pq"
)

type tripChargeRepository struct {
	db *sql.DB
}

func NewTripChargeRepository(db *sql.DB) repository.TripChargeRepository {
	return &tripChargeRepository{db: db}
}

const chargeColumns = `c.id, c.booking_id, c.total_cents, c.mileage_cents, c.fuel_cents, c.late_fee_cents,
	c.damage_cents, c.cleaning_cents, c.other_cents, c.status, c.retry_count,
	COALESCE(c.failure_reason, ''), COALESCE(c.gateway_charge_ref, ''), c.created_on, c.charged_at, c.cleared_at`

func scanCharge(scan func(dest ...interface{}) error) (*domain.TripCharge, error) {
	c := &domain.TripCharge{}
	err := scan(
		&c.ID, &c.BookingID, &c.TotalCents, &c.MileageCents, &c.FuelCents, &c.LateFeeCents,
		&c.DamageCents, &c.CleaningCents, &c.OtherCents, &c.Status, &c.RetryCount,
		&c.FailureReason, &c.GatewayChargeRef, &c.CreatedOn, &c.ChargedAt, &c.ClearedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *tripChargeRepository) Create(ctx context.Context, c *domain.TripCharge) error {
	query := `INSERT INTO trip_charges (booking_id, total_cents, mileage_cents, fuel_cents, late_fee_cents,
	          damage_cents, cleaning_cents, other_cents, status, retry_count, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		c.BookingID, c.TotalCents, c.MileageCents, c.FuelCents, c.LateFeeCents,
		c.DamageCents, c.CleaningCents, c.OtherCents, c.Status, c.RetryCount, time.Now()).Scan(&c.ID)
}

func (r *tripChargeRepository) GetByID(ctx context.Context, id int64) (*domain.TripCharge, error) {
	query := `SELECT ` + chargeColumns + ` FROM trip_charges c WHERE c.id = $1`
	return scanCharge(r.db.QueryRowContext(ctx, query, id).Scan)
}

func (r *tripChargeRepository) GetActiveByBooking(ctx context.Context, bookingID int64) (*domain.TripCharge, error) {
	query := `SELECT ` + chargeColumns + ` FROM trip_charges c
	          WHERE c.booking_id = $1 AND c.status IN ($2, $3, $4)
	          ORDER BY c.created_on DESC LIMIT 1`
	return scanCharge(r.db.QueryRowContext(ctx, query, bookingID,
		domain.ChargeStatusPending, domain.ChargeStatusFailed, domain.ChargeStatusReviewRequested).Scan)
}

func (r *tripChargeRepository) ListEligible(ctx context.Context, holdCutoff time.Time, maxRetries, limit int) ([]domain.TripCharge, error) {
	// Eligibility mirrors the sweep contract: a PENDING charge whose booking's
	// trip ended before the hold cutoff, or a FAILED charge with retries left.
	// Oldest trip end first bounds guest-visible latency; the amount tiebreak
	// recovers the largest sums first.
	query := `SELECT ` + chargeColumns + ` FROM trip_charges c
	          JOIN bookings b ON b.id = c.booking_id
	          WHERE b.pending_charges_cents > 0
	            AND b.gateway_customer_ref IS NOT NULL AND b.payment_method_ref IS NOT NULL
	            AND ((c.status = $1 AND b.trip_ended_at <= $2) OR (c.status = $3 AND c.retry_count < $4))
	          ORDER BY b.trip_ended_at ASC, c.total_cents DESC
	          LIMIT $5`
	rows, err := r.db.QueryContext(ctx, query,
		domain.ChargeStatusPending, holdCutoff, domain.ChargeStatusFailed, maxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCharges(rows)
}

func (r *tripChargeRepository) ListByStatus(ctx context.Context, statuses []domain.ChargeStatus, olderThan *time.Time, limit int) ([]domain.TripCharge, error) {
	query := `SELECT ` + chargeColumns + ` FROM trip_charges c JOIN bookings b ON b.id = c.booking_id WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if len(statuses) > 0 {
		query += fmt.Sprintf(" AND c.status = ANY($%d)", idx)
		list := make([]string, len(statuses))
		for i, s := range statuses {
			list[i] = string(s)
		}
		args = append(args, pq.Array(list))
		idx++
	}
	if olderThan != nil {
		query += fmt.Sprintf(" AND b.trip_ended_at <= $%d", idx)
		args = append(args, *olderThan)
		idx++
	}
	query += fmt.Sprintf(" ORDER BY b.trip_ended_at ASC, c.total_cents DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCharges(rows)
}

func collectCharges(rows *sql.Rows) ([]domain.TripCharge, error) {
	var charges []domain.TripCharge
	for rows.Next() {
		c, err := scanCharge(rows.Scan)
		if err != nil {
			return nil, err
		}
		charges = append(charges, *c)
	}
	return charges, rows.Err()
}

func (r *tripChargeRepository) QueueStats(ctx context.Context) (*domain.ChargeQueueStats, error) {
	stats := &domain.ChargeQueueStats{}
	query := `SELECT
	            count(*) FILTER (WHERE c.status = 'PENDING'),
	            COALESCE(sum(c.total_cents) FILTER (WHERE c.status = 'PENDING'), 0),
	            min(b.trip_ended_at) FILTER (WHERE c.status = 'PENDING'),
	            count(*) FILTER (WHERE c.status = 'FAILED')
	          FROM trip_charges c JOIN bookings b ON b.id = c.booking_id`
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalPendingCount, &stats.TotalPendingCents, &stats.OldestPendingSince, &stats.FailedCount)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *tripChargeRepository) RecordOutcome(ctx context.Context, charge *domain.TripCharge, paymentStatus domain.PaymentStatus, bookingStatus *domain.BookingStatus, guestMessage string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	chargeUpdate := `UPDATE trip_charges SET status = $1, retry_count = $2, failure_reason = $3,
	                 gateway_charge_ref = $4, charged_at = $5, cleared_at = $6 WHERE id = $7`
	if _, err := tx.ExecContext(ctx, chargeUpdate,
		charge.Status, charge.RetryCount, charge.FailureReason,
		charge.GatewayChargeRef, charge.ChargedAt, charge.ClearedAt, charge.ID); err != nil {
		return err
	}

	// A terminal charge settles the booking's pending amount in the same
	// transaction, so the queue never shows money that was already collected
	// or waived.
	pendingClause := ""
	if charge.Terminal() {
		pendingClause = ", pending_charges_cents = 0"
	}
	if bookingStatus != nil {
		bookingUpdate := `UPDATE bookings SET payment_status = $1, status = $2, updated_on = $3` + pendingClause + ` WHERE id = $4`
		if _, err := tx.ExecContext(ctx, bookingUpdate, paymentStatus, *bookingStatus, now, charge.BookingID); err != nil {
			return err
		}
	} else {
		bookingUpdate := `UPDATE bookings SET payment_status = $1, updated_on = $2` + pendingClause + ` WHERE id = $3`
		if _, err := tx.ExecContext(ctx, bookingUpdate, paymentStatus, now, charge.BookingID); err != nil {
			return err
		}
	}

	if guestMessage != "" {
		messageInsert := `INSERT INTO booking_messages (booking_id, body, created_on) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, messageInsert, charge.BookingID, guestMessage, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}
