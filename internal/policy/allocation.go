package policy

// PenaltySplit describes how a cancellation penalty is absorbed by the three
// funding sources the refundable base was drawn from, and the symmetric
// amounts restored or refunded to the guest.
//
// Invariants, exact to the cent:
//
//	PenaltyFromCredits + PenaltyFromBonus + PenaltyFromCard == penalty
//	CreditsRestored + BonusRestored + CardRefund == base - penalty
type PenaltySplit struct {
	PenaltyFromCreditsCents int64
	PenaltyFromBonusCents   int64
	PenaltyFromCardCents    int64
	CreditsRestoredCents    int64
	BonusRestoredCents      int64
	CardRefundCents         int64
}

// DistributePenalty spreads a penalty across the funding sources in fixed
// order: credits absorb first, then bonus, then card. Promotional balances are
// depleted before any card refund is reduced.
//
// Applied amounts are defensively clamped so they sum to the refundable base.
// Security-deposit funds are outside this function entirely; deposits are
// always released in full.
func DistributePenalty(penaltyCents, baseCents, creditsApplied, bonusApplied, cardApplied int64) PenaltySplit {
	if baseCents < 0 {
		baseCents = 0
	}
	if penaltyCents < 0 {
		penaltyCents = 0
	}
	if penaltyCents > baseCents {
		penaltyCents = baseCents
	}

	// Clamp the sources so credits + bonus + card == base.
	credits := min64(max64(creditsApplied, 0), baseCents)
	bonus := min64(max64(bonusApplied, 0), baseCents-credits)
	card := baseCents - credits - bonus

	fromCredits := min64(penaltyCents, credits)
	remaining := penaltyCents - fromCredits
	fromBonus := min64(remaining, bonus)
	remaining -= fromBonus
	fromCard := min64(remaining, card)

	return PenaltySplit{
		PenaltyFromCreditsCents: fromCredits,
		PenaltyFromBonusCents:   fromBonus,
		PenaltyFromCardCents:    fromCard,
		CreditsRestoredCents:    credits - fromCredits,
		BonusRestoredCents:      bonus - fromBonus,
		CardRefundCents:         card - fromCard,
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
