package domain

import "time"

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusCompleted RefundStatus = "COMPLETED"
)

// RefundRequest records money owed back to a guest. It is created PENDING
// before the gateway call it covers is attempted, so a gateway outage can
// never silently lose the obligation. KeepCents preserves the platform's
// side of the split so a retry can settle the intent without voiding the
// penalty share.
type RefundRequest struct {
	ID               int64        `json:"id"`
	BookingID        int64        `json:"booking_id"`
	Reference        string       `json:"reference"` // client-generated, doubles as the idempotency key
	IntentRef        string       `json:"intent_ref"`
	AmountCents      int64        `json:"amount_cents"`
	KeepCents        int64        `json:"keep_cents"`
	Reason           string       `json:"reason"`
	Status           RefundStatus `json:"status"`
	GatewayRefundRef string       `json:"gateway_refund_ref"`
	CreatedOn        time.Time    `json:"created_on"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
}

type AdjustmentStatus string

const (
	AdjustmentStatusPending   AdjustmentStatus = "PENDING"
	AdjustmentStatusCompleted AdjustmentStatus = "COMPLETED"
)

// LedgerAdjustment is the durable counterpart of RefundRequest for wallet
// balances: a balance restore that failed after a cancellation already
// committed is recorded here and retried by the sweep.
type LedgerAdjustment struct {
	ID          int64            `json:"id"`
	AccountID   int64            `json:"account_id"`
	BookingID   int64            `json:"booking_id"`
	Kind        BalanceKind      `json:"kind"`
	AmountCents int64            `json:"amount_cents"`
	Reason      string           `json:"reason"`
	Status      AdjustmentStatus `json:"status"`
	CreatedOn   time.Time        `json:"created_on"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}
