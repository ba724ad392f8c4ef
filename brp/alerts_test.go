package brp_test

import (
	"testing"

	"github.com/leftra123/remupro-v3/brp"
)

func runChecks(t *testing.T, roster []brp.RosterRow, records []brp.LiquidationRecord, rem []brp.REMRecord, prior *brp.PriorMonth) ([]brp.Share, *brp.Log) {
	t.Helper()
	log := brp.NewLog()
	th := brp.DefaultThresholds()
	shares := brp.Distribute(roster, records, th, log)
	brp.CheckConsistency(roster, records, rem, shares, prior, th, log)
	return shares, log
}

func TestCheckConsistency_HoursMismatch(t *testing.T) {
	// GIVEN: Roster declares 44 contract hours, liquidations sum to 30
	// THEN: One HOURS_MISMATCH warning carrying both values

	row := rosterRow("12345678-5", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 100000})
	row.ContractHours = hours("44")
	records := []brp.LiquidationRecord{liq("12345678-5", "1001", brp.CategorySEP, "30")}

	_, log := runChecks(t, []brp.RosterRow{row}, records, nil, nil)

	warns := log.ByCategory(brp.CategoryHoursMismatch)
	if len(warns) != 1 {
		t.Fatalf("expected 1 HOURS_MISMATCH, got %d", len(warns))
	}
	if warns[0].Detail["roster_hours"] != "44" || warns[0].Detail["liquidation_hours"] != "30" {
		t.Errorf("detail missing both hour totals: %+v", warns[0].Detail)
	}
}

func TestCheckConsistency_HoursWithinTolerance(t *testing.T) {
	// GIVEN: Declared 30, liquidated 30.5; tolerance is 1 hour absolute
	row := rosterRow("12345678-5", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 100000})
	row.ContractHours = hours("30")
	records := []brp.LiquidationRecord{liq("12345678-5", "1001", brp.CategorySEP, "30.5")}

	_, log := runChecks(t, []brp.RosterRow{row}, records, nil, nil)
	if got := len(log.ByCategory(brp.CategoryHoursMismatch)); got != 0 {
		t.Errorf("half-hour difference raised %d mismatches, want 0", got)
	}
}

func TestCheckConsistency_REMHoursMismatch(t *testing.T) {
	// GIVEN: A REM sheet declaring 44 hours against 30 liquidated
	roster := []brp.RosterRow{
		rosterRow("12345678-5", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 100000}),
	}
	records := []brp.LiquidationRecord{liq("12345678-5", "1001", brp.CategorySEP, "30")}
	rem := []brp.REMRecord{{
		Teacher:       "123456785",
		Establishment: "1001",
		Category:      brp.CategorySEP,
		Hours:         hours("44"),
	}}

	_, log := runChecks(t, roster, records, rem, nil)

	warns := log.ByCategory(brp.CategoryHoursMismatch)
	if len(warns) != 1 {
		t.Fatalf("expected 1 REM mismatch, got %d", len(warns))
	}
	if warns[0].Detail["source"] != "REM" {
		t.Errorf("mismatch not attributed to REM: %+v", warns[0].Detail)
	}
}

func TestCheckConsistency_NonRosterTeacherOverCeiling(t *testing.T) {
	// GIVEN: A teacher liquidated for 60h who never appears on the roster,
	//        likely a replacement
	// THEN: EXCEEDS_LEGAL_HOURS fires from the re-derived liquidation
	//       totals even though the distributor never walked the teacher

	roster := []brp.RosterRow{
		rosterRow("12345678-5", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 100000}),
	}
	records := []brp.LiquidationRecord{
		liq("12345678-5", "1001", brp.CategorySEP, "30"),
		liq("98765432-1", "1001", brp.CategorySEP, "40"),
		liq("98765432-1", "2002", brp.CategoryPIE, "20"),
	}

	_, log := runChecks(t, roster, records, nil, nil)

	warns := log.ByCategory(brp.CategoryExceedsLegalHours)
	if len(warns) != 1 {
		t.Fatalf("expected 1 EXCEEDS_LEGAL_HOURS, got %d", len(warns))
	}
	w := warns[0]
	if w.Teacher != "987654321" {
		t.Errorf("flagged teacher = %s, want the non-roster 987654321", w.Teacher)
	}
	if w.Detail["total_hours"] != "60" || w.Detail["in_roster"] != "no" {
		t.Errorf("detail missing the re-derived totals: %+v", w.Detail)
	}
}

func TestCheckConsistency_NonRosterTeacherUnderCeilingSilent(t *testing.T) {
	// GIVEN: A non-roster teacher liquidated for 40h
	// THEN: Nothing; below the ceiling a replacement is routine

	records := []brp.LiquidationRecord{liq("98765432-1", "1001", brp.CategorySEP, "40")}

	_, log := runChecks(t, nil, records, nil, nil)
	if got := len(log.ByCategory(brp.CategoryExceedsLegalHours)); got != 0 {
		t.Errorf("40h non-roster teacher raised %d ceiling warnings, want 0", got)
	}
}

func TestCheckConsistency_NoDivergenceFromProportionalSplit(t *testing.T) {
	// GIVEN: A clean multi-establishment teacher
	// THEN: Hour-proportional allocation keeps the per-hour rate equal
	//       across establishments, so no divergence warning

	roster := []brp.RosterRow{
		rosterRow("12345678-5", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 100000}),
	}
	records := []brp.LiquidationRecord{
		liq("12345678-5", "1001", brp.CategorySEP, "40"),
		liq("12345678-5", "2002", brp.CategoryPIE, "2"),
	}

	_, log := runChecks(t, roster, records, nil, nil)
	if got := len(log.ByCategory(brp.CategoryEstablishmentSpread)); got != 0 {
		t.Fatalf("proportional allocation raised %d divergence warnings, want 0", got)
	}
}

func TestCheckConsistency_EstablishmentDivergence(t *testing.T) {
	// GIVEN: Shares whose per-hour rate differs far past 15% between
	//        establishments. Rounding at tiny amounts produces this: 10
	//        pesos over 40h and 1h rounds to 10 and 0.
	// THEN: One ESTABLISHMENT_DIVERGENCE warning

	shares := []brp.Share{
		{
			Teacher: "123456785", Establishment: "1001",
			Category: brp.CategorySEP, Hours: hours("40"),
			Concepts:           []brp.ConceptShare{{Code: brp.ConceptRecognition, Amount: brp.NewMoney(10)}},
			MultiEstablishment: true,
		},
		{
			Teacher: "123456785", Establishment: "2002",
			Category: brp.CategoryPIE, Hours: hours("1"),
			Concepts:           []brp.ConceptShare{{Code: brp.ConceptRecognition, Amount: brp.NewMoney(0)}},
			MultiEstablishment: true,
		},
	}

	log := brp.NewLog()
	brp.CheckConsistency(nil, nil, nil, shares, nil, brp.DefaultThresholds(), log)

	warns := log.ByCategory(brp.CategoryEstablishmentSpread)
	if len(warns) != 1 {
		t.Fatalf("expected 1 divergence warning, got %d", len(warns))
	}
	if warns[0].Detail["max_rate_rbd"] != "1001" || warns[0].Detail["min_rate_rbd"] != "2002" {
		t.Errorf("detail missing the divergent establishments: %+v", warns[0].Detail)
	}
}

func TestCheckConsistency_DivergenceTieBreaksByRBD(t *testing.T) {
	// GIVEN: Two establishments tied on the low rate and one far above
	// THEN: The detail names the lexically first of the tied RBDs, stable
	//       across runs

	mkShare := func(rbd string, amount int64) brp.Share {
		return brp.Share{
			Teacher: "123456785", Establishment: brp.EstablishmentID(rbd),
			Category: brp.CategorySEP, Hours: hours("10"),
			Concepts:           []brp.ConceptShare{{Code: brp.ConceptRecognition, Amount: brp.NewMoney(amount)}},
			MultiEstablishment: true,
		}
	}
	shares := []brp.Share{mkShare("3003", 1000), mkShare("1001", 3000), mkShare("2002", 1000)}

	log := brp.NewLog()
	brp.CheckConsistency(nil, nil, nil, shares, nil, brp.DefaultThresholds(), log)

	warns := log.ByCategory(brp.CategoryEstablishmentSpread)
	if len(warns) != 1 {
		t.Fatalf("expected 1 divergence warning, got %d", len(warns))
	}
	if warns[0].Detail["min_rate_rbd"] != "2002" || warns[0].Detail["max_rate_rbd"] != "1001" {
		t.Errorf("tied low rate not broken by RBD order: %+v", warns[0].Detail)
	}
}

func TestCheckConsistency_MonthOverMonth(t *testing.T) {
	// GIVEN: A teacher whose BRP was 100,000 last month and 100,000 now,
	//        and another who jumped from 50,000 to 100,000
	// THEN: Only the jumper is flagged, with prior, current and delta

	roster := []brp.RosterRow{
		rosterRow("12345678-5", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 100000}),
		rosterRow("98765432-1", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 100000}),
	}
	records := []brp.LiquidationRecord{
		liq("12345678-5", "1001", brp.CategorySEP, "30"),
		liq("98765432-1", "1001", brp.CategorySEP, "30"),
	}
	prior := &brp.PriorMonth{
		Month: "2026-07",
		Totals: map[brp.TeacherKey]brp.Money{
			"123456785": brp.NewMoney(100000),
			"987654321": brp.NewMoney(50000),
		},
	}

	_, log := runChecks(t, roster, records, nil, prior)

	warns := log.ByCategory(brp.CategoryMonthOverMonth)
	if len(warns) != 1 {
		t.Fatalf("expected 1 MONTH_OVER_MONTH, got %d", len(warns))
	}
	w := warns[0]
	if w.Teacher != "987654321" {
		t.Errorf("flagged teacher = %s, want 987654321", w.Teacher)
	}
	if w.Detail["prior_total"] != "50000" || w.Detail["current_total"] != "100000" {
		t.Errorf("detail missing totals: %+v", w.Detail)
	}
	if w.Detail["delta_pct"] != "100" {
		t.Errorf("delta_pct = %s, want 100", w.Detail["delta_pct"])
	}
}

func TestCheckConsistency_NewTeacherNotFlagged(t *testing.T) {
	// GIVEN: A teacher absent from the prior month
	// THEN: No month-over-month warning; the comparator reports arrivals

	roster := []brp.RosterRow{
		rosterRow("12345678-5", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 100000}),
	}
	records := []brp.LiquidationRecord{liq("12345678-5", "1001", brp.CategorySEP, "30")}
	prior := &brp.PriorMonth{Month: "2026-07", Totals: map[brp.TeacherKey]brp.Money{}}

	_, log := runChecks(t, roster, records, nil, prior)
	if got := len(log.ByCategory(brp.CategoryMonthOverMonth)); got != 0 {
		t.Errorf("new teacher raised %d month warnings, want 0", got)
	}
}
