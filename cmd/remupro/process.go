/*
process.go - One-shot distribution from files

Runs the full pipeline over exported sheets and writes the review
workbook, without starting the server. The month-over-month check uses
the newest stored month older than --month when the store has one.
*/
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leftra123/remupro-v3/brp"
	"github.com/leftra123/remupro-v3/history"
	"github.com/leftra123/remupro-v3/parse"
	"github.com/leftra123/remupro-v3/report"
	"github.com/leftra123/remupro-v3/schools"
	"github.com/leftra123/remupro-v3/store/sqlite"
	"github.com/leftra123/remupro-v3/tabular"
)

var processFlags struct {
	month  string
	roster string
	sep    string
	pie    string
	rem    string
	out    string
	notes  string
	save   bool
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run a distribution over exported sheets",
	Example: `  remupro process --month 2026-07 \
    --roster planilla.xlsx --sep sep.csv --pie pie.csv --rem rem.xlsx \
    --out brp_2026-07.xlsx --save`,
	RunE: runProcess,
}

func init() {
	f := processCmd.Flags()
	f.StringVar(&processFlags.month, "month", "", "month being processed, YYYY-MM (required)")
	f.StringVar(&processFlags.roster, "roster", "", "MINEDUC roster file (required)")
	f.StringVar(&processFlags.sep, "sep", "", "SEP liquidation file (required)")
	f.StringVar(&processFlags.pie, "pie", "", "PIE/Normal liquidation file (required)")
	f.StringVar(&processFlags.rem, "rem", "", "REM contract file (optional)")
	f.StringVar(&processFlags.out, "out", "", "output workbook path (default brp_<month>.xlsx)")
	f.StringVar(&processFlags.notes, "notes", "", "notes stored with the snapshot")
	f.BoolVar(&processFlags.save, "save", false, "persist the run to the history store")
	for _, name := range []string{"month", "roster", "sep", "pie"} {
		_ = processCmd.MarkFlagRequired(name)
	}
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	parseLog := brp.NewLog()
	roster, err := loadSheet(processFlags.roster, "roster", parse.ParseRoster, parseLog)
	if err != nil {
		return err
	}
	sep, err := loadSheet(processFlags.sep, "sep", parse.ParseSEP, parseLog)
	if err != nil {
		return err
	}
	pie, err := loadSheet(processFlags.pie, "pie", parse.ParsePIENormal, parseLog)
	if err != nil {
		return err
	}
	var rem []brp.REMRecord
	if processFlags.rem != "" {
		if rem, err = loadSheet(processFlags.rem, "rem", parse.ParseREM, parseLog); err != nil {
			return err
		}
	}

	store, err := sqlite.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	prior, err := priorMonth(ctx, store, processFlags.month)
	if err != nil {
		return err
	}
	prefs, err := store.Preferences(ctx)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}

	engine := brp.NewEngine(cfg.Thresholds.Thresholds(), logger)
	result := engine.Run(brp.RunInput{
		Month:        processFlags.month,
		Roster:       roster,
		Liquidations: append(sep, pie...),
		REM:          rem,
		Prior:        prior,
		ParseLog:     parseLog,
		Surface:      history.SurfacePlanFrom(prefs),
	})

	dir, err := schools.Load(cfg.Schools.Path)
	if err != nil {
		return fmt.Errorf("load school directory: %w", err)
	}
	out := processFlags.out
	if out == "" {
		out = fmt.Sprintf("brp_%s.xlsx", processFlags.month)
	}
	if err := report.NewBuilder(dir).WriteFile(out, result); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	if processFlags.save {
		snap := history.Snapshot{
			Month:     result.Month,
			CreatedAt: result.GeneratedAt,
			Notes:     processFlags.notes,
			Summary:   result.Summary,
			Records:   result.Shares,
			Audit:     result.Audit,
		}
		if err := store.SaveRun(ctx, snap); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}

	logger.Info("distribution written",
		zap.String("month", result.Month),
		zap.String("workbook", out),
		zap.Int("teachers", result.Summary.Teachers),
		zap.Int("review_cases", result.Summary.ReviewCases),
		zap.String("total_brp", result.Summary.TotalBRP.String()),
		zap.Bool("saved", processFlags.save))

	fmt.Printf("Month %s: %d teachers, %d establishments, total BRP %s\n",
		result.Month, result.Summary.Teachers, result.Summary.Establishments,
		result.Summary.TotalBRP)
	fmt.Printf("Workbook: %s (%d review cases)\n", out, result.Summary.ReviewCases)
	return nil
}

// loadSheet reads one file into a dataset and runs the given parser.
func loadSheet[T any](path, kind string, parser func(tabular.Dataset, *brp.Log) ([]T, error), log *brp.Log) ([]T, error) {
	ds, err := tabular.ReadFile(path, kind)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	rows, err := parser(ds, log)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

// priorMonth loads the newest stored month older than month, nil when the
// store has none.
func priorMonth(ctx context.Context, store history.Store, month string) (*brp.PriorMonth, error) {
	months, err := store.ListMonths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	for _, m := range months {
		if m >= month {
			continue
		}
		snap, err := store.GetRun(ctx, m)
		if errors.Is(err, brp.ErrRunNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load prior month %s: %w", m, err)
		}
		return history.PriorFromSnapshot(snap), nil
	}
	return nil, nil
}
