package domain

import "time"

type ChargeStatus string

const (
	ChargeStatusPending         ChargeStatus = "PENDING"
	ChargeStatusCharged         ChargeStatus = "CHARGED"
	ChargeStatusFailed          ChargeStatus = "FAILED"
	ChargeStatusReviewRequested ChargeStatus = "REVIEW_REQUESTED"
	ChargeStatusCleared         ChargeStatus = "CLEARED"
)

// TripCharge is one deferred post-trip charge tied to a booking. It is held
// for the configured dispute window before capture is attempted.
type TripCharge struct {
	ID        int64 `json:"id"`
	BookingID int64 `json:"booking_id"`

	TotalCents    int64 `json:"total_cents"`
	MileageCents  int64 `json:"mileage_cents"`
	FuelCents     int64 `json:"fuel_cents"`
	LateFeeCents  int64 `json:"late_fee_cents"`
	DamageCents   int64 `json:"damage_cents"`
	CleaningCents int64 `json:"cleaning_cents"`
	OtherCents    int64 `json:"other_cents"`

	Status           ChargeStatus `json:"status"`
	RetryCount       int          `json:"retry_count"`
	FailureReason    string       `json:"failure_reason"`
	GatewayChargeRef string       `json:"gateway_charge_ref"`

	CreatedOn time.Time  `json:"created_on"`
	ChargedAt *time.Time `json:"charged_at,omitempty"`
	ClearedAt *time.Time `json:"cleared_at,omitempty"`
}

// Category returns the display category derived from the largest itemized
// component.
func (c *TripCharge) Category() string {
	category := "other"
	max := c.OtherCents
	components := []struct {
		name  string
		cents int64
	}{
		{"mileage", c.MileageCents},
		{"fuel", c.FuelCents},
		{"late_fee", c.LateFeeCents},
		{"damage", c.DamageCents},
		{"cleaning", c.CleaningCents},
	}
	for _, comp := range components {
		if comp.cents > max {
			max = comp.cents
			category = comp.name
		}
	}
	return category
}

// Terminal reports whether the charge can never be processed again.
func (c *TripCharge) Terminal() bool {
	return c.Status == ChargeStatusCharged || c.Status == ChargeStatusCleared
}

// ChargeQueueStats aggregates the state of the deferred charge queue.
type ChargeQueueStats struct {
	TotalPendingCount  int64      `json:"total_pending_count"`
	TotalPendingCents  int64      `json:"total_pending_cents"`
	OldestPendingSince *time.Time `json:"oldest_pending_since,omitempty"`
	ReadyToProcess     int64      `json:"ready_to_process"`
	FailedCount        int64      `json:"failed_count"`
}
