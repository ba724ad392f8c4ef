/*
engine.go - Run orchestration

A run is a pure pipeline over already-parsed inputs:

  distribute -> EIB flags -> consistency checks -> rollups

The engine owns no state between runs and never touches storage or the
filesystem; persistence and parsing live in their own packages so the
pipeline stays trivially testable.
*/
package brp

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunInput is everything a processing run consumes.
type RunInput struct {
	// Month labels the run, "YYYY-MM".
	Month string
	// Roster is the MINEDUC roster (authoritative amounts).
	Roster []RosterRow
	// Liquidations are the hour records from the SEP and PIE/Normal sheets.
	Liquidations []LiquidationRecord
	// REM is the optional advisory contract classification.
	REM []REMRecord
	// Prior enables the month-over-month check when non-nil.
	Prior *PriorMonth
	// ParseLog carries the alerts raised while parsing the inputs. Merged
	// into the run's audit ahead of the distribution entries.
	ParseLog *Log
	// Surface applies the reviewer's stored column preferences to the
	// review list. Shares, totals and the audit are never affected.
	Surface SurfacePlan
}

// RunResult is the self-contained outcome of one run.
type RunResult struct {
	// RunID uniquely identifies this execution in logs and exports.
	RunID       string                  `json:"run_id"`
	Month       string                  `json:"month"`
	GeneratedAt time.Time               `json:"generated_at"`
	Shares      []Share                 `json:"shares"`
	Audit       []Entry                 `json:"audit"`
	Summary     Summary                 `json:"summary"`
	Schools     []SchoolSummary         `json:"schools"`
	Review      []ReviewCase            `json:"review"`
	Multi       []MultiEstablishmentRow `json:"multi_establishment"`
}

// Engine runs the distribution pipeline. Stateless and safe for concurrent
// use; each Run owns its audit log.
type Engine struct {
	thresholds Thresholds
	logger     *zap.Logger
	clock      func() time.Time
}

// NewEngine builds an engine. A nil logger disables operational logging.
func NewEngine(th Thresholds, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{thresholds: th, logger: logger, clock: time.Now}
}

// Run executes the full pipeline over in. The audit log the caller receives
// via RunResult.Audit is already in reporting order.
func (e *Engine) Run(in RunInput) RunResult {
	start := e.clock()
	log := NewLog()
	if in.ParseLog != nil {
		log.Merge(in.ParseLog)
	}

	shares := Distribute(in.Roster, in.Liquidations, e.thresholds, log)
	FlagEIBTeachers(shares, in.REM, log)
	CheckConsistency(in.Roster, in.Liquidations, in.REM, shares, in.Prior, e.thresholds, log)

	result := RunResult{
		RunID:       uuid.NewString(),
		Month:       in.Month,
		GeneratedAt: start,
		Shares:      shares,
		Audit:       log.Sorted(),
		Summary:     Summarize(shares, log),
		Schools:     SummarizeSchools(shares),
		Review:      BuildSurfacedReviewList(shares, log, in.Surface),
		Multi:       BuildMultiEstablishment(shares),
	}

	e.logger.Info("distribution run complete",
		zap.String("run_id", result.RunID),
		zap.String("month", in.Month),
		zap.Int("roster_rows", len(in.Roster)),
		zap.Int("liquidation_records", len(in.Liquidations)),
		zap.Int("shares", len(shares)),
		zap.Int("review_cases", result.Summary.ReviewCases),
		zap.Duration("elapsed", e.clock().Sub(start)),
	)
	return result
}
