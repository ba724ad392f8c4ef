package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leftra123/remupro-v3/brp"
	"github.com/leftra123/remupro-v3/history"
	"github.com/leftra123/remupro-v3/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func share(teacher, name, rbd string, cat brp.SubsidyCategory, hours float64, amount int64) brp.Share {
	return brp.Share{
		Teacher:       brp.TeacherKey(teacher),
		Name:          name,
		Establishment: brp.EstablishmentID(rbd),
		Category:      cat,
		Hours:         decimal.NewFromFloat(hours),
		Concepts: []brp.ConceptShare{{
			Code:     brp.ConceptRecognition,
			Amount:   brp.NewMoney(amount),
			Sponsor:  brp.NewMoney(amount * 6 / 10),
			Transfer: brp.NewMoney(amount - amount*6/10),
		}},
	}
}

func snapshot(month string, shares ...brp.Share) history.Snapshot {
	return history.Snapshot{
		Month:     month,
		CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Records:   shares,
		Summary:   brp.Summarize(shares, brp.NewLog()),
	}
}

// =============================================================================
// RUN LIFECYCLE
// =============================================================================

func TestStore_SaveAndGetRun(t *testing.T) {
	// GIVEN: A saved month with two share rows
	s := newTestStore(t)
	ctx := context.Background()

	snap := snapshot("2026-07",
		share("123456785", "ANA SILVA", "1001", brp.CategorySEP, 30, 100000),
		share("987654321", "LUIS ROJAS", "2002", brp.CategoryNormal, 44, 250000))
	snap.Notes = "julio"

	if err := s.SaveRun(ctx, snap); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	// WHEN: Loading it back
	got, err := s.GetRun(ctx, "2026-07")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}

	// THEN: Every field round-trips
	if got.Month != "2026-07" || got.Notes != "julio" {
		t.Errorf("run metadata = %q/%q", got.Month, got.Notes)
	}
	if !got.CreatedAt.Equal(snap.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, snap.CreatedAt)
	}
	if len(got.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(got.Records))
	}
	first := got.Records[0]
	if first.Teacher != "123456785" || first.Establishment != "1001" || first.Category != brp.CategorySEP {
		t.Errorf("record key = %+v", first)
	}
	if !first.Hours.Equal(decimal.NewFromInt(30)) {
		t.Errorf("hours = %s, want 30", first.Hours)
	}
	if !first.Total().Equal(brp.NewMoney(100000)) {
		t.Errorf("total = %s, want 100000", first.Total())
	}
	if got.Summary.Teachers != 2 {
		t.Errorf("summary teachers = %d, want 2", got.Summary.Teachers)
	}
}

func TestStore_SaveRunReplacesMonth(t *testing.T) {
	// GIVEN: A month already stored with one record
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, snapshot("2026-07",
		share("123456785", "ANA SILVA", "1001", brp.CategorySEP, 30, 100000))); err != nil {
		t.Fatalf("first SaveRun: %v", err)
	}

	// WHEN: Saving the same month again with a different record set
	if err := s.SaveRun(ctx, snapshot("2026-07",
		share("111111111", "PEDRO LARA", "2002", brp.CategoryPIE, 20, 50000))); err != nil {
		t.Fatalf("second SaveRun: %v", err)
	}

	// THEN: Only the new records remain
	got, err := s.GetRun(ctx, "2026-07")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if len(got.Records) != 1 || got.Records[0].Teacher != "111111111" {
		t.Errorf("records after replace = %+v", got.Records)
	}
}

func TestStore_GetRunNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "1999-01")
	if !errors.Is(err, brp.ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestStore_ListMonthsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, m := range []string{"2026-05", "2026-07", "2026-06"} {
		if err := s.SaveRun(ctx, snapshot(m,
			share("123456785", "ANA SILVA", "1001", brp.CategorySEP, 30, 100000))); err != nil {
			t.Fatalf("SaveRun(%s): %v", m, err)
		}
	}

	months, err := s.ListMonths(ctx)
	if err != nil {
		t.Fatalf("ListMonths: %v", err)
	}
	want := []string{"2026-07", "2026-06", "2026-05"}
	if len(months) != len(want) {
		t.Fatalf("months = %v", months)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Errorf("months[%d] = %s, want %s", i, months[i], want[i])
		}
	}
}

func TestStore_DeleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, snapshot("2026-07",
		share("123456785", "ANA SILVA", "1001", brp.CategorySEP, 30, 100000))); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	if err := s.DeleteRun(ctx, "2026-07"); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if _, err := s.GetRun(ctx, "2026-07"); !errors.Is(err, brp.ErrRunNotFound) {
		t.Errorf("GetRun after delete = %v, want ErrRunNotFound", err)
	}
	if err := s.DeleteRun(ctx, "2026-07"); !errors.Is(err, brp.ErrRunNotFound) {
		t.Errorf("second DeleteRun = %v, want ErrRunNotFound", err)
	}
}

// =============================================================================
// SEARCH
// =============================================================================

func TestStore_SearchTeachers(t *testing.T) {
	// GIVEN: Two months with overlapping teachers
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, snapshot("2026-06",
		share("123456785", "ANA SILVA", "1001", brp.CategorySEP, 30, 100000),
		share("987654321", "LUIS ROJAS", "2002", brp.CategoryNormal, 44, 250000))); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.SaveRun(ctx, snapshot("2026-07",
		share("123456785", "ANA SILVA", "1001", brp.CategorySEP, 30, 110000))); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	// WHEN: Searching by name fragment across all months
	res, err := s.SearchTeachers(ctx, history.SearchQuery{Text: "silva"})
	if err != nil {
		t.Fatalf("SearchTeachers: %v", err)
	}

	// THEN: Both of ANA's rows match, newest month first
	if res.Total != 2 || len(res.Rows) != 2 {
		t.Fatalf("total = %d, rows = %d, want 2/2", res.Total, len(res.Rows))
	}
	if res.Rows[0].Month != "2026-07" {
		t.Errorf("first row month = %s, want 2026-07", res.Rows[0].Month)
	}
	if !res.Rows[0].Total.Equal(brp.NewMoney(110000)) {
		t.Errorf("first row total = %s", res.Rows[0].Total)
	}

	// Month filter narrows to one
	res, err = s.SearchTeachers(ctx, history.SearchQuery{Text: "silva", Month: "2026-06"})
	if err != nil {
		t.Fatalf("SearchTeachers with month: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("total with month filter = %d, want 1", res.Total)
	}

	// RBD filter matches by establishment
	res, err = s.SearchTeachers(ctx, history.SearchQuery{Establishment: "2002"})
	if err != nil {
		t.Fatalf("SearchTeachers with rbd: %v", err)
	}
	if res.Total != 1 || res.Rows[0].Teacher != "987654321" {
		t.Errorf("rbd filter rows = %+v", res.Rows)
	}
}

func TestStore_SearchTeachersPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, snapshot("2026-07",
		share("111111111", "A UNO", "1001", brp.CategorySEP, 10, 10000),
		share("222222222", "B DOS", "1001", brp.CategorySEP, 10, 10000),
		share("333333333", "C TRES", "1001", brp.CategorySEP, 10, 10000))); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	res, err := s.SearchTeachers(ctx, history.SearchQuery{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("SearchTeachers: %v", err)
	}
	if res.Total != 3 || len(res.Rows) != 1 {
		t.Errorf("page 2 of 2-per-page: total = %d, rows = %d, want 3/1", res.Total, len(res.Rows))
	}
	if res.Page != 2 || res.PerPage != 2 {
		t.Errorf("echo paging = %d/%d", res.Page, res.PerPage)
	}
}

// =============================================================================
// TRENDS
// =============================================================================

func TestStore_Trends(t *testing.T) {
	// GIVEN: Two stored months
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRun(ctx, snapshot("2026-06",
		share("123456785", "ANA SILVA", "1001", brp.CategorySEP, 30, 100000),
		share("987654321", "LUIS ROJAS", "2002", brp.CategoryNormal, 44, 300000))); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.SaveRun(ctx, snapshot("2026-07",
		share("123456785", "ANA SILVA", "1001", brp.CategorySEP, 30, 150000))); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	// WHEN: Computing the trend series over all months
	points, err := s.Trends(ctx, nil)
	if err != nil {
		t.Fatalf("Trends: %v", err)
	}

	// THEN: Points are oldest first with per-month aggregates
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}
	if points[0].Month != "2026-06" || points[1].Month != "2026-07" {
		t.Errorf("order = %s, %s", points[0].Month, points[1].Month)
	}
	if points[0].Teachers != 2 {
		t.Errorf("june teachers = %d, want 2", points[0].Teachers)
	}
	if !points[0].Total.Equal(brp.NewMoney(400000)) {
		t.Errorf("june total = %s, want 400000", points[0].Total)
	}
	if !points[1].Total.Equal(brp.NewMoney(150000)) {
		t.Errorf("july total = %s, want 150000", points[1].Total)
	}

	// Restricting to one month filters the series
	points, err = s.Trends(ctx, []string{"2026-07"})
	if err != nil {
		t.Fatalf("Trends filtered: %v", err)
	}
	if len(points) != 1 || points[0].Month != "2026-07" {
		t.Errorf("filtered points = %+v", points)
	}
}

// =============================================================================
// COLUMN PREFERENCES
// =============================================================================

func TestStore_Preferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SetPreference(ctx, "total_tramo", history.PreferenceIgnore); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}
	if err := s.SetPreference(ctx, "horas_sep", history.PreferenceImportant); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}
	// upsert changes the status in place
	if err := s.SetPreference(ctx, "total_tramo", history.PreferenceImportant); err != nil {
		t.Fatalf("SetPreference upsert: %v", err)
	}

	prefs, err := s.Preferences(ctx)
	if err != nil {
		t.Fatalf("Preferences: %v", err)
	}
	if len(prefs) != 2 {
		t.Fatalf("prefs = %d, want 2", len(prefs))
	}
	for _, p := range prefs {
		if p.Status != history.PreferenceImportant {
			t.Errorf("%s status = %s, want important", p.ColumnKey, p.Status)
		}
		if p.UpdatedAt.IsZero() {
			t.Errorf("%s has zero UpdatedAt", p.ColumnKey)
		}
	}

	if err := s.DeletePreference(ctx, "total_tramo"); err != nil {
		t.Fatalf("DeletePreference: %v", err)
	}
	prefs, err = s.Preferences(ctx)
	if err != nil {
		t.Fatalf("Preferences after delete: %v", err)
	}
	if len(prefs) != 1 || prefs[0].ColumnKey != "horas_sep" {
		t.Errorf("prefs after delete = %+v", prefs)
	}

	if err := s.SetPreference(ctx, "x", history.PreferenceStatus("bogus")); err == nil {
		t.Error("SetPreference accepted an unknown status")
	}
}
