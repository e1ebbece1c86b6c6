package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/repository"
)

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) GetAccountByGuest(ctx context.Context, guestID int64) (*domain.GuestAccount, error) {
	a := &domain.GuestAccount{}
	query := `SELECT id, guest_id, credit_balance_cents, bonus_balance_cents, deposit_wallet_cents, created_on, updated_on
	          FROM guest_accounts WHERE guest_id = $1`
	err := r.db.QueryRowContext(ctx, query, guestID).Scan(
		&a.ID, &a.GuestID, &a.CreditBalanceCents, &a.BonusBalanceCents, &a.DepositWalletCents, &a.CreatedOn, &a.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func balanceColumn(kind domain.BalanceKind) (string, error) {
	switch kind {
	case domain.BalanceKindCredit:
		return "credit_balance_cents", nil
	case domain.BalanceKindBonus:
		return "bonus_balance_cents", nil
	case domain.BalanceKindDeposit:
		return "deposit_wallet_cents", nil
	}
	return "", fmt.Errorf("unknown balance kind %q", kind)
}

func (r *ledgerRepository) ApplyTransaction(ctx context.Context, accountID int64, bookingID *int64, kind domain.BalanceKind, direction domain.LedgerDirection, amountCents int64, reason string) (*domain.LedgerTransaction, error) {
	if amountCents < 0 {
		return nil, fmt.Errorf("ledger amount must not be negative, got %d", amountCents)
	}
	column, err := balanceColumn(kind)
	if err != nil {
		return nil, err
	}
	delta := amountCents
	if direction == domain.LedgerDirectionSubtract {
		delta = -amountCents
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Conditional read-modify-write: the WHERE clause refuses the update when
	// it would drive the balance negative, so two concurrently settling
	// bookings cannot lose each other's writes.
	update := fmt.Sprintf(`UPDATE guest_accounts SET %s = %s + $1, updated_on = $2
	          WHERE id = $3 AND %s + $1 >= 0 RETURNING %s`, column, column, column, column)
	var balanceAfter int64
	err = tx.QueryRowContext(ctx, update, delta, time.Now(), accountID).Scan(&balanceAfter)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrInsufficientBalance
	}
	if err != nil {
		return nil, err
	}

	record := &domain.LedgerTransaction{
		AccountID:         accountID,
		BookingID:         bookingID,
		Kind:              kind,
		Direction:         direction,
		AmountCents:       amountCents,
		BalanceAfterCents: balanceAfter,
		Reason:            reason,
		CreatedOn:         time.Now(),
	}
	insert := `INSERT INTO ledger_transactions (account_id, booking_id, kind, direction, amount_cents, balance_after_cents, reason, created_on)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err = tx.QueryRowContext(ctx, insert,
		record.AccountID, record.BookingID, record.Kind, record.Direction,
		record.AmountCents, record.BalanceAfterCents, record.Reason, record.CreatedOn).Scan(&record.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, accountID int64, page, pageSize int) ([]domain.LedgerTransaction, int64, error) {
	offset := (page - 1) * pageSize
	query := `SELECT id, account_id, booking_id, kind, direction, amount_cents, balance_after_cents, COALESCE(reason, ''), created_on
	          FROM ledger_transactions WHERE account_id = $1 ORDER BY created_on DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, accountID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var count int64
	countQuery := `SELECT count(*) FROM ledger_transactions WHERE account_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, accountID).Scan(&count); err != nil {
		return nil, 0, err
	}

	var txs []domain.LedgerTransaction
	for rows.Next() {
		var t domain.LedgerTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.BookingID, &t.Kind, &t.Direction, &t.AmountCents, &t.BalanceAfterCents, &t.Reason, &t.CreatedOn); err != nil {
			return nil, 0, err
		}
		txs = append(txs, t)
	}
	return txs, count, rows.Err()
}
