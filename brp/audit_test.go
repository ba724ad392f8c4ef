package brp_test

import (
	"testing"
	"time"

	"github.com/leftra123/remupro-v3/brp"
)

func fixedClock() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func TestLog_AppendAndQuery(t *testing.T) {
	log := brp.NewLogAt(fixedClock)

	log.Info(brp.CategoryProcess, "started")
	log.Warning(brp.CategoryZeroHours, "zero hours",
		brp.ForTeacher("123456785"),
		brp.AtEstablishment("1001"),
		brp.WithDetail("name", "DOCENTE"))
	log.Error(brp.CategoryWithoutLiquidation, "orphan", brp.ForTeacher("987654321"))

	if log.Len() != 3 {
		t.Fatalf("Len = %d, want 3", log.Len())
	}
	if !log.HasErrors() {
		t.Error("HasErrors = false, want true")
	}
	if got := len(log.ByLevel(brp.LevelWarning)); got != 1 {
		t.Errorf("ByLevel(WARNING) = %d entries, want 1", got)
	}

	w := log.ByCategory(brp.CategoryZeroHours)[0]
	if w.Teacher != "123456785" || w.Establishment != "1001" || w.Detail["name"] != "DOCENTE" {
		t.Errorf("options not applied: %+v", w)
	}
	if !w.At.Equal(fixedClock()) {
		t.Errorf("timestamp = %v, want fixed clock", w.At)
	}
}

func TestLog_EntriesReturnsCopy(t *testing.T) {
	log := brp.NewLog()
	log.Info(brp.CategoryProcess, "one")

	entries := log.Entries()
	entries[0].Message = "mutated"

	if log.Entries()[0].Message != "one" {
		t.Error("mutating the returned slice changed the log")
	}
}

func TestLog_SortedReordersWithinCategory(t *testing.T) {
	// GIVEN: Mixed levels inside one category, interleaved with another
	// WHEN: Sorted
	// THEN: Within each category ERROR precedes WARNING precedes INFO,
	//       while the categories keep their slot positions

	log := brp.NewLogAt(fixedClock)
	log.Info(brp.CategoryHoursMismatch, "hm-info")
	log.Warning(brp.CategoryZeroHours, "zh-warn")
	log.Error(brp.CategoryHoursMismatch, "hm-error")

	sorted := log.Sorted()
	if len(sorted) != 3 {
		t.Fatalf("Sorted returned %d entries", len(sorted))
	}
	// HOURS_MISMATCH holds slots 0 and 2; the ERROR moves to the first slot.
	if sorted[0].Message != "hm-error" {
		t.Errorf("slot 0 = %q, want hm-error", sorted[0].Message)
	}
	if sorted[1].Message != "zh-warn" {
		t.Errorf("slot 1 = %q, want zh-warn (untouched)", sorted[1].Message)
	}
	if sorted[2].Message != "hm-info" {
		t.Errorf("slot 2 = %q, want hm-info", sorted[2].Message)
	}

	// insertion order unchanged on the log itself
	if log.Entries()[0].Message != "hm-info" {
		t.Error("Sorted mutated the underlying log")
	}
}

func TestLog_Merge(t *testing.T) {
	a := brp.NewLogAt(fixedClock)
	a.Info(brp.CategoryProcess, "first")
	b := brp.NewLogAt(fixedClock)
	b.Warning(brp.CategoryZeroHours, "second")

	a.Merge(b)
	if a.Len() != 2 {
		t.Fatalf("merged Len = %d, want 2", a.Len())
	}
	if a.Entries()[1].Message != "second" {
		t.Errorf("merge order broken: %+v", a.Entries())
	}
}
