/*
handlers.go - HTTP API handlers for the distribution service

PURPOSE:
  Exposes the distribution engine and the run history via REST. Handles
  HTTP request/response, JSON serialization, and delegates to domain
  logic.

ENDPOINTS:
  Processing:
    POST   /api/process                    Run a distribution (?save=true persists)
    GET    /api/demo                       Synthetic datasets for a dry run

  History:
    GET    /api/history/months             Stored months, newest first
    GET    /api/history/{month}            One stored snapshot
    DELETE /api/history/{month}            Remove a snapshot
    GET    /api/history/{month}/export     Snapshot as an Excel workbook
    GET    /api/history/compare            Month-over-month diff (?from=&to=)
    GET    /api/history/trends             Aggregate series (?months=a,b)
    GET    /api/history/search             Teacher search across months

  Preferences:
    GET    /api/preferences/columns        Column alert preferences
    PUT    /api/preferences/columns/{key}  Set one preference
    DELETE /api/preferences/columns/{key}  Restore the default

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unparseable sheets
  - 404: Unknown month or resource
  - 422: Structurally broken input (missing required columns)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - demo.go: Synthetic dataset generator
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/leftra123/remupro-v3/brp"
	"github.com/leftra123/remupro-v3/history"
	"github.com/leftra123/remupro-v3/parse"
	"github.com/leftra123/remupro-v3/report"
	"github.com/leftra123/remupro-v3/schools"
	"github.com/leftra123/remupro-v3/tabular"
)

// maxUploadBytes bounds a multipart process request.
const maxUploadBytes = 64 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine     *brp.Engine
	Store      history.Store
	Prefs      history.PreferenceStore
	Schools    *schools.Directory
	Thresholds brp.Thresholds
	Logger     *zap.Logger

	report *report.Builder
}

// NewHandler creates a handler. store must also implement the preference
// store when the preference endpoints are routed; dir and logger may be nil.
func NewHandler(engine *brp.Engine, store history.Store, prefs history.PreferenceStore,
	dir *schools.Directory, th brp.Thresholds, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Engine:     engine,
		Store:      store,
		Prefs:      prefs,
		Schools:    dir,
		Thresholds: th,
		Logger:     logger,
		report:     report.NewBuilder(dir),
	}
}

// =============================================================================
// PROCESSING
// =============================================================================

// ProcessRun executes a distribution over the uploaded sheets.
// POST /api/process
func (h *Handler) ProcessRun(w http.ResponseWriter, r *http.Request) {
	var (
		req ProcessRequest
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		req, err = readMultipart(r)
	} else {
		err = json.NewDecoder(r.Body).Decode(&req)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Month == "" {
		writeError(w, http.StatusBadRequest, "month is required (YYYY-MM)", nil)
		return
	}

	parseLog := brp.NewLog()
	roster, err := parse.ParseRoster(req.Roster.dataset("roster"), parseLog)
	if err != nil {
		writeParseError(w, "roster", err)
		return
	}
	sep, err := parse.ParseSEP(req.SEP.dataset("sep"), parseLog)
	if err != nil {
		writeParseError(w, "sep", err)
		return
	}
	pie, err := parse.ParsePIENormal(req.PIENormal.dataset("pie"), parseLog)
	if err != nil {
		writeParseError(w, "pie_normal", err)
		return
	}
	var rem []brp.REMRecord
	if req.REM != nil {
		if rem, err = parse.ParseREM(req.REM.dataset("rem"), parseLog); err != nil {
			writeParseError(w, "rem", err)
			return
		}
	}

	prior := h.priorSnapshot(r, req.Month)
	result := h.Engine.Run(brp.RunInput{
		Month:        req.Month,
		Roster:       roster,
		Liquidations: append(sep, pie...),
		REM:          rem,
		Prior:        history.PriorFromSnapshot(prior),
		ParseLog:     parseLog,
		Surface:      h.surfacePlan(r),
	})

	if r.URL.Query().Get("save") == "true" {
		snap := history.Snapshot{
			Month:     result.Month,
			CreatedAt: result.GeneratedAt,
			Notes:     req.Notes,
			Summary:   result.Summary,
			Records:   result.Shares,
			Audit:     result.Audit,
		}
		if err := h.Store.SaveRun(r.Context(), snap); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save run", err)
			return
		}
		h.Logger.Info("run saved", zap.String("month", result.Month))
	}

	writeJSON(w, http.StatusOK, result)
}

// surfacePlan loads the stored column preferences into the review
// builder's plan. A failed load never blocks a run.
func (h *Handler) surfacePlan(r *http.Request) brp.SurfacePlan {
	prefs, err := h.Prefs.Preferences(r.Context())
	if err != nil {
		h.Logger.Warn("preference lookup failed", zap.Error(err))
		return brp.SurfacePlan{}
	}
	return history.SurfacePlanFrom(prefs)
}

// priorSnapshot loads the newest stored month before the one being
// processed, enabling the month-over-month check.
func (h *Handler) priorSnapshot(r *http.Request, month string) *history.Snapshot {
	months, err := h.Store.ListMonths(r.Context())
	if err != nil {
		h.Logger.Warn("prior month lookup failed", zap.Error(err))
		return nil
	}
	for _, m := range months {
		if m < month {
			snap, err := h.Store.GetRun(r.Context(), m)
			if err != nil {
				h.Logger.Warn("prior month load failed",
					zap.String("month", m), zap.Error(err))
				return nil
			}
			return snap
		}
	}
	return nil
}

func readMultipart(r *http.Request) (ProcessRequest, error) {
	var req ProcessRequest
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return req, err
	}
	req.Month = r.FormValue("month")
	req.Notes = r.FormValue("notes")

	var err error
	if req.Roster, err = readFormSheet(r, "roster"); err != nil {
		return req, err
	}
	if req.SEP, err = readFormSheet(r, "sep"); err != nil {
		return req, err
	}
	if req.PIENormal, err = readFormSheet(r, "pie_normal"); err != nil {
		return req, err
	}
	if _, _, remErr := r.FormFile("rem"); remErr == nil {
		rem, err := readFormSheet(r, "rem")
		if err != nil {
			return req, err
		}
		req.REM = &rem
	}
	return req, nil
}

func readFormSheet(r *http.Request, field string) (DatasetDTO, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return DatasetDTO{}, fmt.Errorf("missing file %q: %w", field, err)
	}
	defer file.Close()
	ds, err := readUpload(file, header, field)
	if err != nil {
		return DatasetDTO{}, err
	}
	return DatasetDTO{Headers: ds.Headers, Rows: ds.Rows}, nil
}

func readUpload(file multipart.File, header *multipart.FileHeader, kind string) (tabular.Dataset, error) {
	if strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		raw, err := io.ReadAll(file)
		if err != nil {
			return tabular.Dataset{}, err
		}
		return tabular.ReadXLSXBytes(raw, kind, tabular.SheetOptions{})
	}
	return tabular.ReadCSV(file, kind)
}

// =============================================================================
// HISTORY
// =============================================================================

// ListMonths returns the stored months.
// GET /api/history/months
func (h *Handler) ListMonths(w http.ResponseWriter, r *http.Request) {
	months, err := h.Store.ListMonths(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list months", err)
		return
	}
	if months == nil {
		months = []string{}
	}
	writeJSON(w, http.StatusOK, MonthsResponse{Months: months})
}

// GetRun returns one stored snapshot.
// GET /api/history/{month}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	snap, err := h.Store.GetRun(r.Context(), month)
	if errors.Is(err, brp.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Month not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load run", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DeleteRun removes one stored snapshot.
// DELETE /api/history/{month}
func (h *Handler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	err := h.Store.DeleteRun(r.Context(), month)
	if errors.Is(err, brp.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Month not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete run", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted", Month: month})
}

// ExportRun streams a stored snapshot as an Excel workbook.
// GET /api/history/{month}/export
func (h *Handler) ExportRun(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	snap, err := h.Store.GetRun(r.Context(), month)
	if errors.Is(err, brp.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Month not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load run", err)
		return
	}

	// Rebuild the report views from the stored shares and audit
	res := brp.RunResult{
		Month:       snap.Month,
		GeneratedAt: snap.CreatedAt,
		Shares:      snap.Records,
		Audit:       snap.Audit,
		Summary:     snap.Summary,
		Schools:     brp.SummarizeSchools(snap.Records),
		Review:      reviewFromAudit(snap, h.surfacePlan(r)),
		Multi:       brp.BuildMultiEstablishment(snap.Records),
	}

	var buf bytes.Buffer
	if err := h.report.Write(&buf, res); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}

	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="brp_%s.xlsx"`, month))
	w.Write(buf.Bytes())
}

// reviewFromAudit rebuilds the review list by replaying the stored audit
// entries into a fresh log, with the current column preferences applied.
func reviewFromAudit(snap *history.Snapshot, plan brp.SurfacePlan) []brp.ReviewCase {
	log := brp.NewLog()
	for _, e := range snap.Audit {
		opts := []brp.EntryOption{brp.ForTeacher(e.Teacher), brp.AtEstablishment(e.Establishment)}
		for k, v := range e.Detail {
			opts = append(opts, brp.WithDetail(k, v))
		}
		switch e.Level {
		case brp.LevelError:
			log.Error(e.Category, e.Message, opts...)
		case brp.LevelWarning:
			log.Warning(e.Category, e.Message, opts...)
		default:
			log.Info(e.Category, e.Message, opts...)
		}
	}
	return brp.BuildSurfacedReviewList(snap.Records, log, plan)
}

// CompareMonths diffs two stored months teacher by teacher.
// GET /api/history/compare?from=2026-06&to=2026-07
func (h *Handler) CompareMonths(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to months are required", nil)
		return
	}

	fromSnap, err := h.Store.GetRun(r.Context(), from)
	if err != nil {
		writeMonthError(w, from, err)
		return
	}
	toSnap, err := h.Store.GetRun(r.Context(), to)
	if err != nil {
		writeMonthError(w, to, err)
		return
	}

	writeJSON(w, http.StatusOK, history.Compare(fromSnap, toSnap, h.Thresholds.MonthDeltaPct))
}

// Trends returns the aggregate series over stored months.
// GET /api/history/trends?months=2026-05,2026-06
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	var months []string
	if raw := r.URL.Query().Get("months"); raw != "" {
		months = strings.Split(raw, ",")
	}
	points, err := h.Store.Trends(r.Context(), months)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute trends", err)
		return
	}
	if points == nil {
		points = []history.TrendPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

// SearchTeachers pages through stored share rows.
// GET /api/history/search?q=silva&month=2026-07&rbd=1001&page=1&per_page=50
func (h *Handler) SearchTeachers(w http.ResponseWriter, r *http.Request) {
	q := history.SearchQuery{
		Text:          r.URL.Query().Get("q"),
		Month:         r.URL.Query().Get("month"),
		Establishment: brp.EstablishmentID(r.URL.Query().Get("rbd")),
	}
	q.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	q.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))

	res, err := h.Store.SearchTeachers(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Search failed", err)
		return
	}
	if res.Rows == nil {
		res.Rows = []history.TeacherRow{}
	}
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// COLUMN PREFERENCES
// =============================================================================

// ListPreferences returns the stored column preferences.
// GET /api/preferences/columns
func (h *Handler) ListPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.Prefs.Preferences(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load preferences", err)
		return
	}
	if prefs == nil {
		prefs = []history.ColumnPreference{}
	}
	writeJSON(w, http.StatusOK, prefs)
}

// SetPreference stores one column preference.
// PUT /api/preferences/columns/{key}
func (h *Handler) SetPreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req SetPreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !history.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest,
			"status must be default, ignore or important", nil)
		return
	}
	if err := h.Prefs.SetPreference(r.Context(), key, req.Status); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to set preference", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "saved"})
}

// DeletePreference restores a column's default handling.
// DELETE /api/preferences/columns/{key}
func (h *Handler) DeletePreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.Prefs.DeletePreference(r.Context(), key); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete preference", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// =============================================================================
// MISC
// =============================================================================

// Health is the liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeParseError maps sheet parse failures: structural problems (missing
// required columns, nothing parseable) come back 422, everything else 400.
func writeParseError(w http.ResponseWriter, sheet string, err error) {
	status := http.StatusBadRequest
	if brp.IsStructural(err) {
		status = http.StatusUnprocessableEntity
	}
	writeError(w, status, fmt.Sprintf("Cannot process %s sheet", sheet), err)
}

func writeMonthError(w http.ResponseWriter, month string, err error) {
	if errors.Is(err, brp.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Month %s not found", month), nil)
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to load run", err)
}
