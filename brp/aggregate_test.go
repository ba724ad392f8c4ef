package brp_test

import (
	"testing"

	"github.com/leftra123/remupro-v3/brp"
)

func TestSummarize_TotalsAndCounts(t *testing.T) {
	// GIVEN: Two teachers across two establishments, one orphan
	roster := []brp.RosterRow{
		rosterRow("12345678-5", "1001", map[brp.ConceptCode]int64{
			brp.ConceptRecognition: 100000,
			brp.ConceptTier:        50000,
		}),
		rosterRow("98765432-1", "2002", map[brp.ConceptCode]int64{brp.ConceptRecognition: 80000}),
		rosterRow("11111111-1", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 70000}),
	}
	records := []brp.LiquidationRecord{
		liq("12345678-5", "1001", brp.CategorySEP, "20"),
		liq("12345678-5", "2002", brp.CategoryPIE, "10"),
		liq("98765432-1", "2002", brp.CategoryNormal, "44"),
		// 11111111-1 has no record: orphan, excluded from every total
	}

	log := brp.NewLog()
	shares := brp.Distribute(roster, records, brp.DefaultThresholds(), log)
	s := brp.Summarize(shares, log)

	if s.Teachers != 2 {
		t.Errorf("Teachers = %d, want 2", s.Teachers)
	}
	if s.Establishments != 2 {
		t.Errorf("Establishments = %d, want 2", s.Establishments)
	}
	if got := s.TotalBRP.Int64(); got != 230000 {
		t.Errorf("TotalBRP = %d, want 230000 (orphan excluded)", got)
	}
	if s.ReviewCases != 1 {
		t.Errorf("ReviewCases = %d, want 1 (the orphan)", s.ReviewCases)
	}
	if got := s.TotalSponsor.Add(s.TotalTransfer); !got.Equal(s.TotalBRP) {
		t.Errorf("sponsor %s + transfer %s != total %s", s.TotalSponsor, s.TotalTransfer, s.TotalBRP)
	}

	// categories appear in fixed reporting order
	var seen []brp.SubsidyCategory
	for _, ct := range s.ByCategory {
		seen = append(seen, ct.Category)
	}
	want := []brp.SubsidyCategory{brp.CategorySEP, brp.CategoryPIE, brp.CategoryNormal}
	for i := range want {
		if i >= len(seen) || seen[i] != want[i] {
			t.Fatalf("category order = %v, want %v", seen, want)
		}
	}
}

func TestSummarizeSchools_OrderedByRBD(t *testing.T) {
	roster := []brp.RosterRow{
		rosterRow("12345678-5", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 100000}),
	}
	records := []brp.LiquidationRecord{
		liq("12345678-5", "2002", brp.CategorySEP, "10"),
		liq("12345678-5", "1001", brp.CategoryPIE, "30"),
	}

	log := brp.NewLog()
	shares := brp.Distribute(roster, records, brp.DefaultThresholds(), log)
	schools := brp.SummarizeSchools(shares)

	if len(schools) != 2 {
		t.Fatalf("expected 2 school rows, got %d", len(schools))
	}
	if schools[0].Establishment != "1001" || schools[1].Establishment != "2002" {
		t.Errorf("schools out of RBD order: %s, %s", schools[0].Establishment, schools[1].Establishment)
	}
	if got := schools[0].Amount.Add(schools[1].Amount); got.Int64() != 100000 {
		t.Errorf("school totals sum to %d, want 100000", got.Int64())
	}
}

func TestBuildReviewList_Ordering(t *testing.T) {
	// GIVEN: Three review cases: an orphan, an excess-hours teacher with
	//        50h and another with 60h
	// THEN: Excess-hours first by descending hours, then the orphan

	roster := []brp.RosterRow{
		rosterRow("11111111-1", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 70000}),
		rosterRow("12345678-5", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 100000}),
		rosterRow("98765432-1", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 80000}),
	}
	records := []brp.LiquidationRecord{
		liq("12345678-5", "1001", brp.CategorySEP, "50"),
		liq("98765432-1", "1001", brp.CategorySEP, "30"),
		liq("98765432-1", "2002", brp.CategoryPIE, "30"),
	}

	log := brp.NewLog()
	shares := brp.Distribute(roster, records, brp.DefaultThresholds(), log)
	review := brp.BuildReviewList(shares, log)

	if len(review) != 3 {
		t.Fatalf("expected 3 review cases, got %d", len(review))
	}
	if review[0].Teacher != "987654321" { // 60h excess
		t.Errorf("review[0] = %s, want the 60h excess case", review[0].Teacher)
	}
	if review[1].Teacher != "123456785" { // 50h excess
		t.Errorf("review[1] = %s, want the 50h excess case", review[1].Teacher)
	}
	if review[2].Teacher != "111111111" { // orphan
		t.Errorf("review[2] = %s, want the orphan", review[2].Teacher)
	}
	if review[2].Level != brp.LevelError {
		t.Errorf("orphan level = %s, want ERROR", review[2].Level)
	}
	if len(review[0].Reasons) == 0 {
		t.Error("review case carries no reasons")
	}
}

func TestBuildSurfacedReviewList_PreferencesFilterAndElevate(t *testing.T) {
	// GIVEN: The ordering fixture: an orphan and two excess-hours teachers
	// WHEN: EXCEEDS_LEGAL_HOURS is ignored and the orphan category marked
	//       important
	// THEN: Ignored reasons drop their teachers from the list entirely and
	//       important ones jump to the front

	roster := []brp.RosterRow{
		rosterRow("11111111-1", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 70000}),
		rosterRow("12345678-5", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 100000}),
	}
	records := []brp.LiquidationRecord{
		liq("12345678-5", "1001", brp.CategorySEP, "50"),
	}

	log := brp.NewLog()
	shares := brp.Distribute(roster, records, brp.DefaultThresholds(), log)

	ignored := brp.BuildSurfacedReviewList(shares, log, brp.SurfacePlan{
		Ignore: map[brp.Category]bool{brp.CategoryExceedsLegalHours: true},
	})
	if len(ignored) != 1 || ignored[0].Teacher != "111111111" {
		t.Fatalf("ignoring the excess category left %+v, want only the orphan", ignored)
	}

	elevated := brp.BuildSurfacedReviewList(shares, log, brp.SurfacePlan{
		Important: map[brp.Category]bool{brp.CategoryWithoutLiquidation: true},
	})
	if len(elevated) != 2 {
		t.Fatalf("expected 2 review cases, got %d", len(elevated))
	}
	if elevated[0].Teacher != "111111111" {
		t.Errorf("important orphan listed at %s, want the top", elevated[0].Teacher)
	}

	// the zero-value plan reproduces the unfiltered list
	plain := brp.BuildReviewList(shares, log)
	if len(plain) != 2 || plain[0].Teacher != "123456785" {
		t.Errorf("default surfacing changed the list: %+v", plain)
	}
}

func TestBuildMultiEstablishment_TotalRows(t *testing.T) {
	roster := []brp.RosterRow{
		rosterRow("12345678-5", "1001", map[brp.ConceptCode]int64{brp.ConceptRecognition: 100000}),
	}
	records := []brp.LiquidationRecord{
		liq("12345678-5", "1001", brp.CategorySEP, "10"),
		liq("12345678-5", "2002", brp.CategoryPIE, "30"),
	}

	log := brp.NewLog()
	shares := brp.Distribute(roster, records, brp.DefaultThresholds(), log)
	rows := brp.BuildMultiEstablishment(shares)

	if len(rows) != 3 {
		t.Fatalf("expected 2 detail rows + 1 total, got %d", len(rows))
	}
	total := rows[2]
	if !total.IsTotal {
		t.Fatal("last row is not the TOTAL row")
	}
	if total.Amount.Int64() != 100000 {
		t.Errorf("TOTAL amount = %d, want 100000", total.Amount.Int64())
	}
	if total.Hours.String() != "40" {
		t.Errorf("TOTAL hours = %s, want 40", total.Hours)
	}
}

func TestFlagEIBTeachers(t *testing.T) {
	// GIVEN: An EIB-classified teacher whose allocation is zero and a
	//        regular teacher with money
	// THEN: Only the EIB teacher gets the informational entry

	shares := []brp.Share{
		{
			Teacher: "123456785", Establishment: "1001", Category: brp.CategorySEP,
			Hours:    hours("30"),
			Concepts: []brp.ConceptShare{{Code: brp.ConceptRecognition, Amount: brp.NewMoney(0)}},
		},
		{
			Teacher: "987654321", Establishment: "1001", Category: brp.CategorySEP,
			Hours:    hours("30"),
			Concepts: []brp.ConceptShare{{Code: brp.ConceptRecognition, Amount: brp.NewMoney(50000)}},
		},
	}
	rem := []brp.REMRecord{
		{Teacher: "123456785", Category: brp.CategoryEIB, Hours: hours("30"), Name: "EDUCADORA EIB"},
		{Teacher: "987654321", Category: brp.CategorySEP, Hours: hours("30")},
	}

	log := brp.NewLog()
	brp.FlagEIBTeachers(shares, rem, log)

	infos := log.ByCategory(brp.CategoryEIBTeacher)
	if len(infos) != 1 {
		t.Fatalf("expected 1 EIB entry, got %d", len(infos))
	}
	if infos[0].Teacher != "123456785" || infos[0].Level != brp.LevelInfo {
		t.Errorf("wrong EIB entry: %+v", infos[0])
	}
}
