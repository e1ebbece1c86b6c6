package postgres

import (
	"context"
	"database/sql"
	"time"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/repository"
)

type refundRequestRepository struct {
	db *sql.DB
}

func NewRefundRequestRepository(db *sql.DB) repository.RefundRequestRepository {
	return &refundRequestRepository{db: db}
}

func (r *refundRequestRepository) Create(ctx context.Context, req *domain.RefundRequest) error {
	query := `INSERT INTO refund_requests (booking_id, reference, intent_ref, amount_cents, keep_cents, reason, status, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	req.CreatedOn = time.Now()
	return r.db.QueryRowContext(ctx, query,
		req.BookingID, req.Reference, req.IntentRef, req.AmountCents, req.KeepCents, req.Reason, req.Status, req.CreatedOn).Scan(&req.ID)
}

func (r *refundRequestRepository) MarkCompleted(ctx context.Context, id int64, gatewayRefundRef string) error {
	query := `UPDATE refund_requests SET status = $1, gateway_refund_ref = $2, completed_at = $3
	          WHERE id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query,
		domain.RefundStatusCompleted, gatewayRefundRef, time.Now(), id, domain.RefundStatusPending)
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

func (r *refundRequestRepository) ListPending(ctx context.Context, limit int) ([]domain.RefundRequest, error) {
	query := `SELECT id, booking_id, reference, intent_ref, amount_cents, keep_cents, COALESCE(reason, ''), status,
	          COALESCE(gateway_refund_ref, ''), created_on, completed_at
	          FROM refund_requests WHERE status = $1 ORDER BY created_on ASC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, domain.RefundStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []domain.RefundRequest
	for rows.Next() {
		var req domain.RefundRequest
		if err := rows.Scan(&req.ID, &req.BookingID, &req.Reference, &req.IntentRef, &req.AmountCents,
			&req.KeepCents, &req.Reason, &req.Status, &req.GatewayRefundRef, &req.CreatedOn, &req.CompletedAt); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}
