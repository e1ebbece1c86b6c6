package domain

import "time"

type BalanceKind string

const (
	BalanceKindCredit  BalanceKind = "CREDIT"
	BalanceKindBonus   BalanceKind = "BONUS"
	BalanceKindDeposit BalanceKind = "DEPOSIT"
)

type LedgerDirection string

const (
	LedgerDirectionAdd      LedgerDirection = "ADD"
	LedgerDirectionSubtract LedgerDirection = "SUBTRACT"
)

// GuestAccount holds platform-side balances for one guest. Balances are
// mutated only through LedgerRepository.ApplyTransaction, never directly.
type GuestAccount struct {
	ID                 int64     `json:"id"`
	GuestID            int64     `json:"guest_id"`
	CreditBalanceCents int64     `json:"credit_balance_cents"`
	BonusBalanceCents  int64     `json:"bonus_balance_cents"`
	DepositWalletCents int64     `json:"deposit_wallet_cents"`
	CreatedOn          time.Time `json:"created_on"`
	UpdatedOn          time.Time `json:"updated_on"`
}

// LedgerTransaction is the append-only audit record of one balance mutation.
// Created once, never updated or deleted.
type LedgerTransaction struct {
	ID                int64           `json:"id"`
	AccountID         int64           `json:"account_id"`
	BookingID         *int64          `json:"booking_id,omitempty"`
	Kind              BalanceKind     `json:"kind"`
	Direction         LedgerDirection `json:"direction"`
	AmountCents       int64           `json:"amount_cents"`
	BalanceAfterCents int64           `json:"balance_after_cents"`
	Reason            string          `json:"reason"`
	CreatedOn         time.Time       `json:"created_on"`
}

// SignedAmountCents folds the direction into the amount: positive for ADD,
// negative for SUBTRACT.
func (t *LedgerTransaction) SignedAmountCents() int64 {
	if t.Direction == LedgerDirectionSubtract {
		return -t.AmountCents
	}
	return t.AmountCents
}
