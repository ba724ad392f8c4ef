/*
audit.go - Append-only audit trail for a processing run

PURPOSE:
  The domain's central "must review, not must fix" signals (excess hours,
  orphan teachers, divergent establishments, month-over-month jumps) are
  data, not exceptions. Every parser, the distributor and the alert engine
  append entries here; nothing is ever mutated or dropped.

ORDERING:
  Insertion order is preserved. For reporting, Sorted() reorders entries
  that share a category so ERROR precedes WARNING precedes INFO, leaving
  every other relative position untouched.
*/
package brp

import (
	"time"
)

// =============================================================================
// LEVELS AND CATEGORIES
// =============================================================================

type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

func severityRank(l Level) int {
	switch l {
	case LevelError:
		return 0
	case LevelWarning:
		return 1
	default:
		return 2
	}
}

// Category tags an audit entry with the check that produced it.
type Category string

const (
	CategoryExceedsLegalHours    Category = "EXCEEDS_LEGAL_HOURS"
	CategoryWithoutLiquidation   Category = "TEACHER_WITHOUT_LIQUIDATION"
	CategoryZeroHours            Category = "ZERO_HOURS"
	CategoryRowSkipped           Category = "ROW_SKIPPED"
	CategoryDuplicateRecord      Category = "DUPLICATE_RECORD"
	CategoryMissingColumn        Category = "MISSING_COLUMN"
	CategoryUnrecognizedColumn   Category = "UNRECOGNIZED_COLUMN"
	CategoryHoursMismatch        Category = "HOURS_MISMATCH"
	CategoryEstablishmentSpread  Category = "ESTABLISHMENT_DIVERGENCE"
	CategoryMonthOverMonth       Category = "MONTH_OVER_MONTH"
	CategoryUnknownContractType  Category = "UNKNOWN_CONTRACT_TYPE"
	CategoryEIBTeacher           Category = "EIB_TEACHER"
	CategoryProcess              Category = "PROCESS"
)

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one audit record. Append-only; never mutated after creation.
type Entry struct {
	Level         Level             `json:"level"`
	Category      Category          `json:"category"`
	Message       string            `json:"message"`
	Teacher       TeacherKey        `json:"teacher,omitempty"`
	Establishment EstablishmentID   `json:"establishment,omitempty"`
	Detail        map[string]string `json:"detail,omitempty"`
	At            time.Time         `json:"at"`
}

// =============================================================================
// LOG
// =============================================================================

// Log is the append-only audit trail of one processing run. Not safe for
// concurrent use; a run is single-threaded and each run owns its log.
type Log struct {
	entries []Entry
	clock   func() time.Time
}

// NewLog returns an empty audit log using the wall clock.
func NewLog() *Log {
	return &Log{clock: time.Now}
}

// NewLogAt returns a log with a fixed clock. Deterministic output for tests.
func NewLogAt(clock func() time.Time) *Log {
	return &Log{clock: clock}
}

func (l *Log) append(level Level, cat Category, msg string, opts ...EntryOption) {
	e := Entry{Level: level, Category: cat, Message: msg, At: l.clock()}
	for _, opt := range opts {
		opt(&e)
	}
	l.entries = append(l.entries, e)
}

func (l *Log) Info(cat Category, msg string, opts ...EntryOption)    { l.append(LevelInfo, cat, msg, opts...) }
func (l *Log) Warning(cat Category, msg string, opts ...EntryOption) { l.append(LevelWarning, cat, msg, opts...) }
func (l *Log) Error(cat Category, msg string, opts ...EntryOption)   { l.append(LevelError, cat, msg, opts...) }

// EntryOption attaches optional context to an entry at append time.
type EntryOption func(*Entry)

func ForTeacher(key TeacherKey) EntryOption {
	return func(e *Entry) { e.Teacher = key }
}

func AtEstablishment(id EstablishmentID) EntryOption {
	return func(e *Entry) { e.Establishment = id }
}

func WithDetail(kv ...string) EntryOption {
	return func(e *Entry) {
		if e.Detail == nil {
			e.Detail = make(map[string]string, len(kv)/2)
		}
		for i := 0; i+1 < len(kv); i += 2 {
			e.Detail[kv[i]] = kv[i+1]
		}
	}
}

// Entries returns a copy of the log in insertion order.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int { return len(l.entries) }

// ByLevel returns entries of one level, insertion order.
func (l *Log) ByLevel(level Level) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// ByCategory returns entries of one category, insertion order.
func (l *Log) ByCategory(cat Category) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}

// HasErrors reports whether any ERROR entry was appended.
func (l *Log) HasErrors() bool {
	for _, e := range l.entries {
		if e.Level == LevelError {
			return true
		}
	}
	return false
}

// Merge appends another log's entries, preserving both insertion orders.
func (l *Log) Merge(other *Log) {
	l.entries = append(l.entries, other.entries...)
}

// Sorted returns the reporting order: within each category, entries are
// reordered so ERROR comes before WARNING before INFO (stable); entries of
// different categories keep their insertion positions relative to the
// category's slots.
func (l *Log) Sorted() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)

	slots := make(map[Category][]int)
	for i, e := range out {
		slots[e.Category] = append(slots[e.Category], i)
	}
	for _, idxs := range slots {
		group := make([]Entry, len(idxs))
		for j, i := range idxs {
			group[j] = out[i]
		}
		// stable insertion sort by severity; groups are small
		for a := 1; a < len(group); a++ {
			for b := a; b > 0 && severityRank(group[b].Level) < severityRank(group[b-1].Level); b-- {
				group[b], group[b-1] = group[b-1], group[b]
			}
		}
		for j, i := range idxs {
			out[i] = group[j]
		}
	}
	return out
}
