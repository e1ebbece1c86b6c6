package postgres

import (
	"context"
	"testing"
	"time"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestRefundRequestRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewRefundRequestRepository(db)

	req := &domain.RefundRequest{
		BookingID:   42,
		Reference:   "rf_abc123",
		IntentRef:   "pi_123",
		AmountCents: 20000,
		KeepCents:   5000,
		Reason:      "guest cancellation",
		Status:      domain.RefundStatusPending,
	}
	mock.ExpectQuery("INSERT INTO refund_requests").
		WithArgs(int64(42), "rf_abc123", "pi_123", int64(20000), int64(5000), "guest cancellation",
			domain.RefundStatusPending, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	err = repo.Create(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, int64(9), req.ID)
	assert.False(t, req.CreatedOn.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefundRequestRepository_MarkCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewRefundRequestRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE refund_requests SET status").
			WithArgs(domain.RefundStatusCompleted, "re_55", sqlmock.AnyArg(), int64(9), domain.RefundStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkCompleted(ctx, 9, "re_55"))
	})

	t.Run("AlreadyCompleted", func(t *testing.T) {
		// The status guard keeps a concurrent redrive from completing the
		// same obligation twice.
		mock.ExpectExec("UPDATE refund_requests SET status").
			WithArgs(domain.RefundStatusCompleted, "re_56", sqlmock.AnyArg(), int64(9), domain.RefundStatusPending).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.MarkCompleted(ctx, 9, "re_56")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestRefundRequestRepository_ListPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewRefundRequestRepository(db)

	rows := sqlmock.NewRows([]string{"id", "booking_id", "reference", "intent_ref", "amount_cents",
		"keep_cents", "reason", "status", "gateway_refund_ref", "created_on", "completed_at"}).
		AddRow(9, 42, "rf_abc123", "pi_123", 20000, 5000, "guest cancellation",
			domain.RefundStatusPending, "", time.Now(), nil)
	mock.ExpectQuery("SELECT (.+) FROM refund_requests WHERE status").
		WithArgs(domain.RefundStatusPending, 50).
		WillReturnRows(rows)

	reqs, err := repo.ListPending(context.Background(), 50)
	assert.NoError(t, err)
	assert.Len(t, reqs, 1)
	assert.Equal(t, "rf_abc123", reqs[0].Reference)
	assert.Equal(t, int64(5000), reqs[0].KeepCents)
	assert.Nil(t, reqs[0].CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
