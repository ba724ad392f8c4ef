/*
Package sqlite provides the SQLite-backed implementation of the history
storage interfaces.

INTERFACES IMPLEMENTED:
  history.Store:           Monthly run snapshots
  history.PreferenceStore: Column alert preferences

KEY TABLES:
  runs:               One row per stored month (summary and audit as JSON)
  run_records:        Per-share detail rows of a stored month
  column_preferences: Reviewer decisions about column alerts

SNAPSHOT SEMANTICS:
  Saving a month replaces that month atomically (delete + insert inside
  one transaction). Snapshots are caches of a deterministic computation;
  replacement is safe by construction.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so trend and search
  reads do not block a save in progress.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

USAGE:
  store, err := sqlite.New("./data/remupro.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/leftra123/remupro-v3/brp"
	"github.com/leftra123/remupro-v3/history"
)

// Store implements history.Store and history.PreferenceStore on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open database")
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate schema")
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- One row per stored month
	CREATE TABLE IF NOT EXISTS runs (
		month TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		notes TEXT,
		summary_json TEXT NOT NULL,
		audit_json TEXT
	);

	-- Per-share detail of a stored month
	CREATE TABLE IF NOT EXISTS run_records (
		month TEXT NOT NULL,
		teacher TEXT NOT NULL,
		name TEXT,
		rbd TEXT NOT NULL,
		category TEXT NOT NULL,
		hours TEXT NOT NULL,
		total TEXT NOT NULL,
		sponsor TEXT NOT NULL,
		transfer TEXT NOT NULL,
		multi_establishment INTEGER NOT NULL DEFAULT 0,
		concepts_json TEXT NOT NULL,
		FOREIGN KEY (month) REFERENCES runs(month) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_run_records_month
		ON run_records(month);
	CREATE INDEX IF NOT EXISTS idx_run_records_teacher
		ON run_records(teacher);
	CREATE INDEX IF NOT EXISTS idx_run_records_rbd
		ON run_records(rbd);

	-- Column alert preferences (presentation only)
	CREATE TABLE IF NOT EXISTS column_preferences (
		column_key TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// history.Store
// =============================================================================

// SaveRun stores a snapshot, replacing any earlier snapshot of the month.
func (s *Store) SaveRun(ctx context.Context, snap history.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaryJSON, err := json.Marshal(snap.Summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	auditJSON, err := json.Marshal(snap.Audit)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal audit")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_records WHERE month = ?`, snap.Month); err != nil {
		return eris.Wrap(err, "sqlite: clear old records")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE month = ?`, snap.Month); err != nil {
		return eris.Wrap(err, "sqlite: clear old run")
	}

	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (month, created_at, notes, summary_json, audit_json)
		VALUES (?, ?, ?, ?, ?)`,
		snap.Month, createdAt.UTC().Format(time.RFC3339), snap.Notes,
		string(summaryJSON), string(auditJSON))
	if err != nil {
		return eris.Wrap(err, "sqlite: insert run")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_records
			(month, teacher, name, rbd, category, hours, total, sponsor,
			 transfer, multi_establishment, concepts_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare record insert")
	}
	defer stmt.Close()

	for _, sh := range snap.Records {
		conceptsJSON, err := json.Marshal(sh.Concepts)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal concepts")
		}
		_, err = stmt.ExecContext(ctx,
			snap.Month, string(sh.Teacher), sh.Name, string(sh.Establishment),
			string(sh.Category), sh.Hours.String(),
			sh.Total().String(), sh.SponsorTotal().String(), sh.TransferTotal().String(),
			boolToInt(sh.MultiEstablishment), string(conceptsJSON))
		if err != nil {
			return eris.Wrap(err, "sqlite: insert record")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save")
}

// ListMonths returns the stored months, newest first.
func (s *Store) ListMonths(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT month FROM runs ORDER BY month DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list months")
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan month")
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

// GetRun loads one stored month.
func (s *Store) GetRun(ctx context.Context, month string) (*history.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		snap        history.Snapshot
		createdAt   string
		notes       sql.NullString
		summaryJSON string
		auditJSON   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT month, created_at, notes, summary_json, audit_json
		FROM runs WHERE month = ?`, month).
		Scan(&snap.Month, &createdAt, &notes, &summaryJSON, &auditJSON)
	if err == sql.ErrNoRows {
		return nil, brp.ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load run")
	}

	snap.Notes = notes.String
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		snap.CreatedAt = t
	}
	if err := json.Unmarshal([]byte(summaryJSON), &snap.Summary); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal summary")
	}
	if auditJSON.Valid && auditJSON.String != "" {
		if err := json.Unmarshal([]byte(auditJSON.String), &snap.Audit); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal audit")
		}
	}

	snap.Records, err = s.loadRecords(ctx, month)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) loadRecords(ctx context.Context, month string) ([]brp.Share, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT teacher, name, rbd, category, hours, multi_establishment, concepts_json
		FROM run_records WHERE month = ?
		ORDER BY teacher, rbd, category`, month)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load records")
	}
	defer rows.Close()

	var shares []brp.Share
	for rows.Next() {
		var (
			sh           brp.Share
			hours        string
			multi        int
			conceptsJSON string
		)
		if err := rows.Scan(&sh.Teacher, &sh.Name, &sh.Establishment, &sh.Category,
			&hours, &multi, &conceptsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		if sh.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse stored hours")
		}
		sh.MultiEstablishment = multi != 0
		if err := json.Unmarshal([]byte(conceptsJSON), &sh.Concepts); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal concepts")
		}
		shares = append(shares, sh)
	}
	return shares, rows.Err()
}

// DeleteRun removes one stored month.
func (s *Store) DeleteRun(ctx context.Context, month string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE month = ?`, month)
	if err != nil {
		return eris.Wrap(err, "sqlite: delete run")
	}
	// cascade may be off on old deployments; clear detail rows explicitly
	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_records WHERE month = ?`, month); err != nil {
		return eris.Wrap(err, "sqlite: delete run records")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: delete run")
	}
	if n == 0 {
		return brp.ErrRunNotFound
	}
	return nil
}

// SearchTeachers pages through stored share rows.
func (s *Store) SearchTeachers(ctx context.Context, q history.SearchQuery) (*history.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := []string{"1=1"}
	var args []any
	if q.Text != "" {
		where = append(where, "(teacher LIKE ? OR UPPER(name) LIKE ?)")
		pattern := "%" + strings.ToUpper(strings.TrimSpace(q.Text)) + "%"
		args = append(args, pattern, pattern)
	}
	if q.Month != "" {
		where = append(where, "month = ?")
		args = append(args, q.Month)
	}
	if q.Establishment != "" {
		where = append(where, "rbd = ?")
		args = append(args, string(q.Establishment))
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM run_records WHERE `+cond, args...).Scan(&total)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count search")
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT month, teacher, name, rbd, category, hours, total
		FROM run_records WHERE `+cond+`
		ORDER BY month DESC, teacher, rbd, category
		LIMIT ? OFFSET ?`,
		append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search")
	}
	defer rows.Close()

	result := &history.SearchResult{Total: total, Page: page, PerPage: perPage}
	for rows.Next() {
		var (
			r          history.TeacherRow
			hours, amt string
		)
		if err := rows.Scan(&r.Month, &r.Teacher, &r.Name, &r.Establishment,
			&r.Category, &hours, &amt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search row")
		}
		if r.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse stored hours")
		}
		d, err := decimal.NewFromString(amt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: parse stored total")
		}
		r.Total = brp.MoneyFromDecimal(d)
		result.Rows = append(result.Rows, r)
	}
	return result, rows.Err()
}

// Trends returns the aggregate series, oldest first.
func (s *Store) Trends(ctx context.Context, months []string) ([]history.TrendPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Amounts are stored as exact decimal strings; summing happens here
	// rather than in SQL so the series stays lossless.
	query := `SELECT month, teacher, total, sponsor, transfer FROM run_records`
	var args []any
	if len(months) > 0 {
		query += ` WHERE month IN (?` + strings.Repeat(",?", len(months)-1) + `)`
		for _, m := range months {
			args = append(args, m)
		}
	}
	query += ` ORDER BY month ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: trends")
	}
	defer rows.Close()

	type agg struct {
		teachers                 map[string]struct{}
		total, sponsor, transfer decimal.Decimal
	}
	var order []string
	byMonth := make(map[string]*agg)
	for rows.Next() {
		var month, teacher, total, sponsor, transfer string
		if err := rows.Scan(&month, &teacher, &total, &sponsor, &transfer); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan trend row")
		}
		a, ok := byMonth[month]
		if !ok {
			a = &agg{teachers: make(map[string]struct{})}
			byMonth[month] = a
			order = append(order, month)
		}
		a.teachers[teacher] = struct{}{}
		for _, col := range []struct {
			raw  string
			into *decimal.Decimal
		}{{total, &a.total}, {sponsor, &a.sponsor}, {transfer, &a.transfer}} {
			d, err := decimal.NewFromString(col.raw)
			if err != nil {
				return nil, eris.Wrapf(err, "sqlite: corrupt amount in month %s", month)
			}
			*col.into = col.into.Add(d)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: trends")
	}

	points := make([]history.TrendPoint, 0, len(order))
	for _, month := range order {
		a := byMonth[month]
		points = append(points, history.TrendPoint{
			Month:    month,
			Teachers: len(a.teachers),
			Total:    brp.MoneyFromDecimal(a.total),
			Sponsor:  brp.MoneyFromDecimal(a.sponsor),
			Transfer: brp.MoneyFromDecimal(a.transfer),
		})
	}
	return points, nil
}

// =============================================================================
// history.PreferenceStore
// =============================================================================

// Preferences returns every stored column preference.
func (s *Store) Preferences(ctx context.Context) ([]history.ColumnPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT column_key, status, updated_at
		FROM column_preferences ORDER BY column_key`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load preferences")
	}
	defer rows.Close()

	var prefs []history.ColumnPreference
	for rows.Next() {
		var (
			p         history.ColumnPreference
			updatedAt string
		)
		if err := rows.Scan(&p.ColumnKey, &p.Status, &updatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan preference")
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			p.UpdatedAt = t
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// SetPreference stores or replaces a preference.
func (s *Store) SetPreference(ctx context.Context, columnKey string, status history.PreferenceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !history.ValidStatus(status) {
		return eris.Errorf("sqlite: unknown preference status %q", status)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO column_preferences (column_key, status, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(column_key) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at`,
		columnKey, string(status), time.Now().UTC().Format(time.RFC3339))
	return eris.Wrap(err, "sqlite: set preference")
}

// DeletePreference removes a preference, restoring the default.
func (s *Store) DeletePreference(ctx context.Context, columnKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM column_preferences WHERE column_key = ?`, columnKey)
	return eris.Wrap(err, "sqlite: delete preference")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
