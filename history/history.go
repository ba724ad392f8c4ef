/*
Package history defines the persistence contract for monthly distribution
runs and the month-over-month comparison built on top of it.

A stored run is a snapshot, never a source of truth: results are always
recomputed from the source sheets, and the snapshot exists only so a later
month can be compared against it and trends charted. The storage
technology hides behind the Store interface; the engine and the API layer
know nothing about SQL.
*/
package history

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leftra123/remupro-v3/brp"
)

// Snapshot is one persisted month.
type Snapshot struct {
	Month     string        `json:"month"` // "YYYY-MM"
	CreatedAt time.Time     `json:"created_at"`
	Notes     string        `json:"notes,omitempty"`
	Summary   brp.Summary   `json:"summary"`
	Records   []brp.Share   `json:"records"`
	Audit     []brp.Entry   `json:"audit,omitempty"`
}

// TeacherRow is one row of a teacher search result.
type TeacherRow struct {
	Month         string              `json:"month"`
	Teacher       brp.TeacherKey      `json:"teacher"`
	Name          string              `json:"name,omitempty"`
	Establishment brp.EstablishmentID `json:"rbd"`
	Category      brp.SubsidyCategory `json:"category"`
	Hours         decimal.Decimal     `json:"hours"`
	Total         brp.Money           `json:"total"`
}

// SearchQuery filters and pages a teacher search across stored months.
type SearchQuery struct {
	// Text matches against RUT and name, case-insensitive substring.
	Text string
	// Month restricts to one stored month when set.
	Month string
	// Establishment restricts to one RBD when set.
	Establishment brp.EstablishmentID
	// Page is 1-based; Page 0 means 1.
	Page    int
	PerPage int
}

// SearchResult is one page of teacher rows.
type SearchResult struct {
	Rows    []TeacherRow `json:"rows"`
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
}

// TrendPoint is one month of the aggregate time series.
type TrendPoint struct {
	Month    string    `json:"month"`
	Teachers int       `json:"teachers"`
	Total    brp.Money `json:"total"`
	Sponsor  brp.Money `json:"sponsor"`
	Transfer brp.Money `json:"transfer"`
}

// Store persists and retrieves monthly snapshots. Implementations must be
// safe for concurrent use; a run may be saved while trend reads are in
// flight.
type Store interface {
	// SaveRun stores a snapshot, replacing any earlier snapshot of the
	// same month.
	SaveRun(ctx context.Context, snap Snapshot) error
	// ListMonths returns stored months, newest first.
	ListMonths(ctx context.Context) ([]string, error)
	// GetRun loads one month. brp.ErrRunNotFound when absent.
	GetRun(ctx context.Context, month string) (*Snapshot, error)
	// DeleteRun removes one month. brp.ErrRunNotFound when absent.
	DeleteRun(ctx context.Context, month string) error
	// SearchTeachers pages through stored share rows.
	SearchTeachers(ctx context.Context, q SearchQuery) (*SearchResult, error)
	// Trends returns the aggregate series for the given months, oldest
	// first; empty months means all stored months.
	Trends(ctx context.Context, months []string) ([]TrendPoint, error)
}

// PreferenceStatus controls how a column alert is surfaced.
type PreferenceStatus string

const (
	PreferenceDefault   PreferenceStatus = "default"
	PreferenceIgnore    PreferenceStatus = "ignore"
	PreferenceImportant PreferenceStatus = "important"
)

// ValidStatus reports whether s is one of the three known statuses.
func ValidStatus(s PreferenceStatus) bool {
	switch s {
	case PreferenceDefault, PreferenceIgnore, PreferenceImportant:
		return true
	}
	return false
}

// ColumnPreference is a reviewer's standing decision about one column
// alert. Presentation only; preferences never alter computed results.
type ColumnPreference struct {
	ColumnKey string           `json:"column_key"`
	Status    PreferenceStatus `json:"status"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// PreferenceStore persists column alert preferences.
type PreferenceStore interface {
	Preferences(ctx context.Context) ([]ColumnPreference, error)
	SetPreference(ctx context.Context, columnKey string, status PreferenceStatus) error
	DeletePreference(ctx context.Context, columnKey string) error
}

// SurfacePlanFrom translates stored preferences into the review builder's
// plan. Column keys are audit categories; default entries change nothing.
func SurfacePlanFrom(prefs []ColumnPreference) brp.SurfacePlan {
	plan := brp.SurfacePlan{}
	for _, p := range prefs {
		switch p.Status {
		case PreferenceIgnore:
			if plan.Ignore == nil {
				plan.Ignore = make(map[brp.Category]bool)
			}
			plan.Ignore[brp.Category(p.ColumnKey)] = true
		case PreferenceImportant:
			if plan.Important == nil {
				plan.Important = make(map[brp.Category]bool)
			}
			plan.Important[brp.Category(p.ColumnKey)] = true
		}
	}
	return plan
}

// PriorFromSnapshot builds the distributor's prior-month input from a
// stored snapshot.
func PriorFromSnapshot(snap *Snapshot) *brp.PriorMonth {
	if snap == nil {
		return nil
	}
	prior := &brp.PriorMonth{
		Month:  snap.Month,
		Totals: make(map[brp.TeacherKey]brp.Money),
	}
	for _, sh := range snap.Records {
		t, ok := prior.Totals[sh.Teacher]
		if !ok {
			t = brp.NewMoney(0)
		}
		prior.Totals[sh.Teacher] = t.Add(sh.Total())
	}
	return prior
}
