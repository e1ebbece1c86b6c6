package policy

import (
	"fmt"
	"time"
)

// Cancellation tiers, keyed by how far ahead of the scheduled pickup the
// cancellation happens. Penalty is expressed in forfeited trip days.
const (
	TierFree     = "free"
	TierModerate = "moderate"
	TierStrict   = "strict"
	TierLate     = "late"
)

const (
	freeCancellationHours     = 72
	moderateCancellationHours = 24
)

// CancellationAssessment is the outcome of evaluating the cancellation policy
// for one booking at one point in time.
type CancellationAssessment struct {
	Tier                  string
	Label                 string
	HoursUntilPickup      float64
	PenaltyDays           int
	AverageDailyCostCents int64
	PenaltyCents          int64
	RefundCents           int64
}

// EvaluateCancellation maps (scheduled start, now, refundable base, trip days)
// to a policy tier and the penalty/refund split. Only the refundable base is
// ever at risk; fees and taxes must be excluded by the caller.
//
// The function is deterministic and side-effect free so it can be safely
// re-evaluated after a partial failure.
func EvaluateCancellation(scheduledStart, now time.Time, refundableBaseCents int64, tripDays int) (CancellationAssessment, error) {
	if tripDays <= 0 {
		return CancellationAssessment{}, fmt.Errorf("trip days must be positive, got %d", tripDays)
	}
	if refundableBaseCents < 0 {
		return CancellationAssessment{}, fmt.Errorf("refundable base must not be negative, got %d", refundableBaseCents)
	}

	hoursUntil := scheduledStart.Sub(now).Hours()

	var tier, label string
	var penaltyDays int
	switch {
	case hoursUntil >= freeCancellationHours:
		tier, label, penaltyDays = TierFree, "Free cancellation", 0
	case hoursUntil >= moderateCancellationHours:
		tier, label, penaltyDays = TierModerate, "One day penalty", 1
	case hoursUntil >= 0:
		tier, label, penaltyDays = TierStrict, "Two day penalty", 2
	default:
		tier, label, penaltyDays = TierLate, "Late cancellation / no-show", 3
	}

	averageDaily := refundableBaseCents / int64(tripDays)
	penalty := int64(penaltyDays) * averageDaily
	// Forfeiting every trip day forfeits the whole base; the integer-division
	// remainder folds into the penalty rather than leaking back as a refund.
	if penaltyDays >= tripDays || penalty > refundableBaseCents {
		penalty = refundableBaseCents
	}

	return CancellationAssessment{
		Tier:                  tier,
		Label:                 label,
		HoursUntilPickup:      hoursUntil,
		PenaltyDays:           penaltyDays,
		AverageDailyCostCents: averageDaily,
		PenaltyCents:          penalty,
		RefundCents:           refundableBaseCents - penalty,
	}, nil
}
