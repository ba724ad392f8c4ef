/*
thresholds.go - Legal and contractual constants of the distribution

These are policy values, not implementation details: the 44-hour weekly
ceiling comes from the teacher statute, the deviation tolerances from the
authority's review practice. They are injected (normally from the config
file) so policy changes never require a code change.
*/
package brp

import "github.com/shopspring/decimal"

// Thresholds carries every tunable constant of a run.
type Thresholds struct {
	// MaxWeeklyHours is the legal contract-hour ceiling (44). Hours above
	// it still count in the proportion base; the ceiling only raises alerts.
	MaxWeeklyHours decimal.Decimal

	// HoursTolerance is the absolute tolerance when reconciling the
	// roster-implied hour total against the liquidation-summed total.
	HoursTolerance decimal.Decimal

	// DivergencePct is the relative per-hour-rate tolerance (percent)
	// between establishments of a multi-establishment teacher.
	DivergencePct decimal.Decimal

	// MonthDeltaPct is the relative month-over-month BRP change (percent)
	// above which a teacher is flagged.
	MonthDeltaPct decimal.Decimal

	// SponsorSharePct is the nominal sponsor share (percent) used to split
	// a concept that carries no real sponsor/transfer breakdown. Display
	// only; it never participates in the conservation invariant.
	SponsorSharePct decimal.Decimal
}

// DefaultThresholds returns the statutory defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxWeeklyHours:  decimal.NewFromInt(44),
		HoursTolerance:  decimal.NewFromInt(1),
		DivergencePct:   decimal.NewFromInt(15),
		MonthDeltaPct:   decimal.NewFromInt(10),
		SponsorSharePct: decimal.NewFromInt(60),
	}
}
