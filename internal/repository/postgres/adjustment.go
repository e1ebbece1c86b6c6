package postgres

import (
	"context"
	"database/sql"
	"time"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/repository"
)

type ledgerAdjustmentRepository struct {
	db *sql.DB
}

func NewLedgerAdjustmentRepository(db *sql.DB) repository.LedgerAdjustmentRepository {
	return &ledgerAdjustmentRepository{db: db}
}

func (r *ledgerAdjustmentRepository) Create(ctx context.Context, adj *domain.LedgerAdjustment) error {
	query := `INSERT INTO ledger_adjustments (account_id, booking_id, kind, amount_cents, reason, status, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	adj.CreatedOn = time.Now()
	return r.db.QueryRowContext(ctx, query,
		adj.AccountID, adj.BookingID, adj.Kind, adj.AmountCents, adj.Reason, adj.Status, adj.CreatedOn).Scan(&adj.ID)
}

func (r *ledgerAdjustmentRepository) MarkCompleted(ctx context.Context, id int64) error {
	query := `UPDATE ledger_adjustments SET status = $1, completed_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query,
		domain.AdjustmentStatusCompleted, time.Now(), id, domain.AdjustmentStatusPending)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ledgerAdjustmentRepository) ListPending(ctx context.Context, limit int) ([]domain.LedgerAdjustment, error) {
	query := `SELECT id, account_id, booking_id, kind, amount_cents, COALESCE(reason, ''), status, created_on, completed_at
	          FROM ledger_adjustments WHERE status = $1 ORDER BY created_on ASC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, domain.AdjustmentStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var adjs []domain.LedgerAdjustment
	for rows.Next() {
		var adj domain.LedgerAdjustment
		if err := rows.Scan(&adj.ID, &adj.AccountID, &adj.BookingID, &adj.Kind, &adj.AmountCents,
			&adj.Reason, &adj.Status, &adj.CreatedOn, &adj.CompletedAt); err != nil {
			return nil, err
		}
		adjs = append(adjs, adj)
	}
	return adjs, rows.Err()
}
