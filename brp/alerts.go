/*
alerts.go - Cross-source consistency checks

The distributor only looks at one teacher's liquidation records; the checks
here compare ACROSS sources and across time:

  - hour reconciliation: roster contract hours vs liquidation hours (and
    REM hours, when a REM sheet was supplied)
  - legal ceiling over liquidated teachers the roster never names
    (replacements still draw hours and still have a ceiling)
  - per-hour-rate divergence between the establishments of a
    multi-establishment teacher
  - month-over-month BRP total drift against a stored prior run

Every finding is a WARNING: the sources disagree with each other, not with
the law, so a human decides. The one ERROR of the pipeline
(TEACHER_WITHOUT_LIQUIDATION) is emitted by the distributor, never here.
*/
package brp

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// CheckConsistency runs every cross-source check over the distribution
// result and appends findings to log.
func CheckConsistency(roster []RosterRow, records []LiquidationRecord, rem []REMRecord, shares []Share, prior *PriorMonth, th Thresholds, log *Log) {
	checkHourTotals(roster, records, rem, th, log)
	checkNonRosterCeiling(roster, records, th, log)
	checkEstablishmentDivergence(shares, th, log)
	if prior != nil {
		checkMonthOverMonth(shares, prior, th, log)
	}
}

// checkHourTotals reconciles the roster-declared contract hours of each
// teacher against the hours summed from the liquidation sheets, and against
// the REM sheet when one was supplied. Absolute tolerance; the exports
// round hours differently.
func checkHourTotals(roster []RosterRow, records []LiquidationRecord, rem []REMRecord, th Thresholds, log *Log) {
	liqHours := make(map[TeacherKey]decimal.Decimal)
	for _, r := range records {
		liqHours[r.Teacher] = liqHours[r.Teacher].Add(r.Hours)
	}

	teachers := rosterTeachers(roster)
	for _, key := range teachers.order {
		declared := decimal.Zero
		for _, row := range teachers.rows[key] {
			declared = declared.Add(row.ContractHours)
		}
		liquidated, ok := liqHours[key]
		if !ok || declared.IsZero() {
			// no-liquidation already errored by the distributor; a roster
			// without hour columns has nothing to reconcile
			continue
		}
		if diff := declared.Sub(liquidated).Abs(); diff.GreaterThan(th.HoursTolerance) {
			log.Warning(CategoryHoursMismatch,
				fmt.Sprintf("roster declares %s contract hours but liquidations sum to %s",
					declared.String(), liquidated.String()),
				ForTeacher(key),
				WithDetail(
					"name", rosterName(teachers.rows[key]),
					"roster_hours", declared.String(),
					"liquidation_hours", liquidated.String(),
					"difference", diff.String(),
				))
		}
	}

	if len(rem) == 0 {
		return
	}
	remHours := make(map[TeacherKey]decimal.Decimal)
	for _, r := range rem {
		remHours[r.Teacher] = remHours[r.Teacher].Add(r.Hours)
	}
	for key, liquidated := range liqHours {
		declared, ok := remHours[key]
		if !ok {
			continue
		}
		if diff := declared.Sub(liquidated).Abs(); diff.GreaterThan(th.HoursTolerance) {
			log.Warning(CategoryHoursMismatch,
				fmt.Sprintf("REM declares %s hours but liquidations sum to %s",
					declared.String(), liquidated.String()),
				ForTeacher(key),
				WithDetail(
					"source", "REM",
					"rem_hours", declared.String(),
					"liquidation_hours", liquidated.String(),
					"difference", diff.String(),
				))
		}
	}
}

// checkNonRosterCeiling re-derives hour totals straight from the
// liquidation records for teachers the roster never names. The distributor
// only walks roster teachers, so a liquidated replacement over the legal
// ceiling would otherwise go unflagged.
func checkNonRosterCeiling(roster []RosterRow, records []LiquidationRecord, th Thresholds, log *Log) {
	inRoster := make(map[TeacherKey]struct{}, len(roster))
	for _, row := range roster {
		inRoster[row.Teacher] = struct{}{}
	}

	totals := make(map[TeacherKey]decimal.Decimal)
	names := make(map[TeacherKey]string)
	for _, r := range records {
		if _, ok := inRoster[r.Teacher]; ok {
			continue
		}
		totals[r.Teacher] = totals[r.Teacher].Add(r.Hours)
		if names[r.Teacher] == "" {
			names[r.Teacher] = r.Name
		}
	}

	keys := make([]TeacherKey, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, key := range keys {
		total := totals[key]
		if !total.GreaterThan(th.MaxWeeklyHours) {
			continue
		}
		log.Warning(CategoryExceedsLegalHours,
			fmt.Sprintf("liquidated hours %s exceed the legal ceiling %s for a teacher absent from the roster",
				total.String(), th.MaxWeeklyHours.String()),
			ForTeacher(key),
			WithDetail(
				"name", names[key],
				"total_hours", total.String(),
				"excess", total.Sub(th.MaxWeeklyHours).String(),
				"in_roster", "no",
			))
	}
}

// checkEstablishmentDivergence compares the per-hour BRP rate across the
// establishments of every multi-establishment teacher. Hour-proportional
// allocation keeps rates identical by construction, so a spread above the
// threshold means roster sub-amounts or categories pull money unevenly and
// the case deserves a human look.
func checkEstablishmentDivergence(shares []Share, th Thresholds, log *Log) {
	type estTotal struct {
		amount Money
		hours  decimal.Decimal
	}
	perTeacher := make(map[TeacherKey]map[EstablishmentID]*estTotal)
	order := make([]TeacherKey, 0)
	for _, s := range shares {
		if !s.MultiEstablishment {
			continue
		}
		ests, ok := perTeacher[s.Teacher]
		if !ok {
			ests = make(map[EstablishmentID]*estTotal)
			perTeacher[s.Teacher] = ests
			order = append(order, s.Teacher)
		}
		t, ok := ests[s.Establishment]
		if !ok {
			t = &estTotal{amount: NewMoney(0)}
			ests[s.Establishment] = t
		}
		t.amount = t.amount.Add(s.Total())
		t.hours = t.hours.Add(s.Hours)
	}

	for _, key := range order {
		ests := make([]EstablishmentID, 0, len(perTeacher[key]))
		for est := range perTeacher[key] {
			ests = append(ests, est)
		}
		sort.Slice(ests, func(i, j int) bool { return ests[i] < ests[j] })

		var minRate, maxRate decimal.Decimal
		var minEst, maxEst EstablishmentID
		first := true
		for _, est := range ests {
			t := perTeacher[key][est]
			if t.hours.IsZero() {
				continue
			}
			rate := t.amount.Value.Div(t.hours)
			if first || rate.LessThan(minRate) {
				minRate, minEst = rate, est
			}
			if first || rate.GreaterThan(maxRate) {
				maxRate, maxEst = rate, est
			}
			first = false
		}
		if first || !maxRate.IsPositive() {
			continue
		}
		spreadPct := maxRate.Sub(minRate).Div(maxRate).Mul(oneHundred)
		if spreadPct.GreaterThan(th.DivergencePct) {
			log.Warning(CategoryEstablishmentSpread,
				fmt.Sprintf("per-hour BRP rate differs %s%% between establishments",
					spreadPct.Round(1).String()),
				ForTeacher(key),
				WithDetail(
					"max_rate_rbd", string(maxEst),
					"max_rate", maxRate.Round(2).String(),
					"min_rate_rbd", string(minEst),
					"min_rate", minRate.Round(2).String(),
					"spread_pct", spreadPct.Round(1).String(),
				))
		}
	}
}

// checkMonthOverMonth flags teachers whose total BRP moved more than the
// threshold relative to the prior stored month. Teachers absent from either
// month are the comparator's business, not an alert.
func checkMonthOverMonth(shares []Share, prior *PriorMonth, th Thresholds, log *Log) {
	current := make(map[TeacherKey]Money)
	order := make([]TeacherKey, 0)
	for _, s := range shares {
		if _, seen := current[s.Teacher]; !seen {
			order = append(order, s.Teacher)
			current[s.Teacher] = NewMoney(0)
		}
		current[s.Teacher] = current[s.Teacher].Add(s.Total())
	}

	for _, key := range order {
		before, ok := prior.Totals[key]
		if !ok || !before.IsPositive() {
			continue
		}
		now := current[key]
		deltaPct := now.Sub(before).Value.Div(before.Value).Mul(oneHundred)
		if deltaPct.Abs().GreaterThan(th.MonthDeltaPct) {
			log.Warning(CategoryMonthOverMonth,
				fmt.Sprintf("BRP moved %s%% against %s", deltaPct.Round(1).String(), prior.Month),
				ForTeacher(key),
				WithDetail(
					"prior_month", prior.Month,
					"prior_total", before.String(),
					"current_total", now.String(),
					"delta_pct", deltaPct.Round(1).String(),
				))
		}
	}
}
