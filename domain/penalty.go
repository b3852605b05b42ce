package domain

import "fmt"

// BasisPointsDenominator converts basis points to a fraction (10000 = 100%).
const BasisPointsDenominator = 10000

// RuneSwitch is the outcome of applying the rune-switch penalty to a
// participant's accumulated bid weight. The deltas reconcile the per-rune
// aggregates and the lot total: the prior rune loses the full prior weight,
// the new rune gains the discounted weight, and the lot total absorbs the
// difference. The truncated fraction is a one-time burn, credited nowhere.
type RuneSwitch struct {
	Penalized      bool
	WeightAfter    int64
	PriorRuneDelta int64
	NewRuneDelta   int64
	TotalDelta     int64
}

// ApplyRunePenalty computes the effect of a participant moving from
// priorRune to newRune while holding priorBids of weight. A switch is
// penalizable only when the auction has runes enabled, a rune was already
// selected, the selection actually changes, and there is weight to discount.
// First selections and re-selections pass through untouched.
func ApplyRunePenalty(priorBids int64, priorRune, newRune uint8, runesEnabled bool, penaltyBP int64) (RuneSwitch, error) {
	if priorBids < 0 {
		return RuneSwitch{}, fmt.Errorf("negative prior bid weight: %d", priorBids)
	}

	if !runesEnabled || priorRune == NoRune || priorRune == newRune || priorBids == 0 {
		return RuneSwitch{Penalized: false, WeightAfter: priorBids}, nil
	}

	weightAfter := priorBids * (BasisPointsDenominator - penaltyBP) / BasisPointsDenominator
	if weightAfter < 0 {
		return RuneSwitch{}, fmt.Errorf("penalty of %dbp on weight %d yields negative result", penaltyBP, priorBids)
	}

	return RuneSwitch{
		Penalized:      true,
		WeightAfter:    weightAfter,
		PriorRuneDelta: -priorBids,
		NewRuneDelta:   weightAfter,
		TotalDelta:     weightAfter - priorBids,
	}, nil
}
