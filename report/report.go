/*
Package report renders a distribution run as the Excel workbook the
payroll office circulates.

SHEETS:
  BRP_DISTRIBUIDO:      One row per (teacher, establishment, category) share
  RESUMEN_POR_RBD:      Per-establishment rollup
  REVISAR:              Teachers needing manual review, triage order
  RESUMEN_GENERAL:      Run-wide totals, by category and by concept
  MULTI_ESTABLECIMIENTO: Multi-school teachers with per-teacher TOTAL rows
  AUDITORIA:            The full audit trail

The workbook is a pure view over brp.RunResult; nothing here recomputes
amounts. Establishment names come from the school directory when one is
provided.
*/
package report

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"

	"github.com/leftra123/remupro-v3/brp"
	"github.com/leftra123/remupro-v3/schools"
)

// Sheet names, fixed because downstream spreadsheets reference them.
const (
	SheetShares  = "BRP_DISTRIBUIDO"
	SheetSchools = "RESUMEN_POR_RBD"
	SheetReview  = "REVISAR"
	SheetSummary = "RESUMEN_GENERAL"
	SheetMulti   = "MULTI_ESTABLECIMIENTO"
	SheetAudit   = "AUDITORIA"
)

// Builder renders run results into workbooks.
type Builder struct {
	dir *schools.Directory
}

// NewBuilder returns a builder. dir may be nil; establishment names then
// fall back to the raw RBD code.
func NewBuilder(dir *schools.Directory) *Builder {
	if dir == nil {
		dir = schools.NewDirectory(nil)
	}
	return &Builder{dir: dir}
}

// Write renders the workbook for res to w.
func (b *Builder) Write(w io.Writer, res brp.RunResult) error {
	f, err := b.build(res)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "report: write workbook")
}

// WriteFile renders the workbook for res to path.
func (b *Builder) WriteFile(path string, res brp.RunResult) error {
	f, err := b.build(res)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "report: create file")
	}
	defer out.Close()
	return eris.Wrapf(f.Write(out), "report: write %s", path)
}

func (b *Builder) build(res brp.RunResult) (*xlsx.File, error) {
	f := xlsx.NewFile()
	steps := []func(*xlsx.File, brp.RunResult) error{
		b.sharesSheet,
		b.schoolsSheet,
		b.reviewSheet,
		b.summarySheet,
		b.multiSheet,
		b.auditSheet,
	}
	for _, step := range steps {
		if err := step(f, res); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// =============================================================================
// SHEETS
// =============================================================================

func (b *Builder) sharesSheet(f *xlsx.File, res brp.RunResult) error {
	sheet, err := f.AddSheet(SheetShares)
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %s", SheetShares)
	}
	header(sheet, "RUT", "Nombre", "RBD", "Establecimiento", "Categoría",
		"Horas", "Reconocimiento", "Tramo", "Alumnos Prioritarios",
		"Total BRP", "Sostenedor", "Transferencia", "Multi RBD")

	for _, sh := range res.Shares {
		row := sheet.AddRow()
		text(row, string(sh.Teacher), sh.Name, string(sh.Establishment),
			b.dir.Name(sh.Establishment), string(sh.Category))
		number(row, sh.Hours)
		money(row, sh.Concept(brp.ConceptRecognition).Amount)
		money(row, sh.Concept(brp.ConceptTier).Amount)
		money(row, sh.Concept(brp.ConceptPriority).Amount)
		money(row, sh.Total())
		money(row, sh.SponsorTotal())
		money(row, sh.TransferTotal())
		text(row, yesNo(sh.MultiEstablishment))
	}
	return nil
}

func (b *Builder) schoolsSheet(f *xlsx.File, res brp.RunResult) error {
	sheet, err := f.AddSheet(SheetSchools)
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %s", SheetSchools)
	}
	header(sheet, "RBD", "Establecimiento", "Docentes", "Horas",
		"SEP", "PIE", "NORMAL", "Total", "Sostenedor", "Transferencia")

	for _, ss := range res.Schools {
		row := sheet.AddRow()
		text(row, string(ss.Establishment), b.dir.Name(ss.Establishment))
		integer(row, ss.Teachers)
		number(row, ss.Hours)
		for _, cat := range brp.DistributionCategories {
			money(row, ss.ByCategory[cat])
		}
		money(row, ss.Amount)
		money(row, ss.Sponsor)
		money(row, ss.Transfer)
	}
	return nil
}

func (b *Builder) reviewSheet(f *xlsx.File, res brp.RunResult) error {
	sheet, err := f.AddSheet(SheetReview)
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %s", SheetReview)
	}
	header(sheet, "RUT", "Nombre", "Nivel", "Horas", "Monto", "Motivos")

	for _, rc := range res.Review {
		row := sheet.AddRow()
		text(row, string(rc.Teacher), rc.Name, string(rc.Level))
		number(row, rc.Hours)
		money(row, rc.Amount)
		text(row, strings.Join(rc.Reasons, "; "))
	}
	return nil
}

func (b *Builder) summarySheet(f *xlsx.File, res brp.RunResult) error {
	sheet, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %s", SheetSummary)
	}
	s := res.Summary

	kv := func(label string, write func(*xlsx.Row)) {
		row := sheet.AddRow()
		text(row, label)
		write(row)
	}
	kv("Mes", func(r *xlsx.Row) { text(r, res.Month) })
	kv("Generado", func(r *xlsx.Row) { text(r, res.GeneratedAt.Format("2006-01-02 15:04:05")) })
	kv("Docentes", func(r *xlsx.Row) { integer(r, s.Teachers) })
	kv("Establecimientos", func(r *xlsx.Row) { integer(r, s.Establishments) })
	kv("Casos a revisar", func(r *xlsx.Row) { integer(r, s.ReviewCases) })
	kv("Docentes EIB", func(r *xlsx.Row) { integer(r, s.EIBTeachers) })
	kv("Total BRP", func(r *xlsx.Row) { money(r, s.TotalBRP) })
	kv("Total sostenedor", func(r *xlsx.Row) { money(r, s.TotalSponsor) })
	kv("Total transferencia", func(r *xlsx.Row) { money(r, s.TotalTransfer) })

	sheet.AddRow()
	header(sheet, "Categoría", "Docentes", "Horas", "Monto", "Sostenedor", "Transferencia")
	for _, ct := range s.ByCategory {
		row := sheet.AddRow()
		text(row, string(ct.Category))
		integer(row, ct.Teachers)
		number(row, ct.Hours)
		money(row, ct.Amount)
		money(row, ct.Sponsor)
		money(row, ct.Transfer)
	}

	sheet.AddRow()
	header(sheet, "Concepto", "Monto", "Sostenedor", "Transferencia")
	for _, cc := range s.ByConcept {
		row := sheet.AddRow()
		text(row, conceptLabel(cc.Code))
		money(row, cc.Amount)
		money(row, cc.Sponsor)
		money(row, cc.Transfer)
	}
	return nil
}

func (b *Builder) multiSheet(f *xlsx.File, res brp.RunResult) error {
	sheet, err := f.AddSheet(SheetMulti)
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %s", SheetMulti)
	}
	header(sheet, "RUT", "Nombre", "RBD", "Establecimiento", "Categoría", "Horas", "Monto")

	for _, mr := range res.Multi {
		row := sheet.AddRow()
		if mr.IsTotal {
			text(row, string(mr.Teacher), mr.Name, "", "TOTAL", "")
		} else {
			text(row, string(mr.Teacher), mr.Name, string(mr.Establishment),
				b.dir.Name(mr.Establishment), string(mr.Category))
		}
		number(row, mr.Hours)
		money(row, mr.Amount)
	}
	return nil
}

func (b *Builder) auditSheet(f *xlsx.File, res brp.RunResult) error {
	sheet, err := f.AddSheet(SheetAudit)
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %s", SheetAudit)
	}
	header(sheet, "Nivel", "Categoría", "RUT", "RBD", "Mensaje", "Detalle")

	for _, e := range res.Audit {
		row := sheet.AddRow()
		text(row, string(e.Level), string(e.Category), string(e.Teacher),
			string(e.Establishment), e.Message, formatDetail(e.Detail))
	}
	return nil
}

// =============================================================================
// CELL HELPERS
// =============================================================================

func header(sheet *xlsx.Sheet, titles ...string) {
	row := sheet.AddRow()
	for _, title := range titles {
		row.AddCell().SetString(title)
	}
}

func text(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func money(row *xlsx.Row, m brp.Money) {
	row.AddCell().SetInt64(m.Int64())
}

func integer(row *xlsx.Row, n int) {
	row.AddCell().SetInt(n)
}

func number(row *xlsx.Row, d decimal.Decimal) {
	f, _ := d.Float64()
	row.AddCell().SetFloat(f)
}

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}

func conceptLabel(code brp.ConceptCode) string {
	switch code {
	case brp.ConceptRecognition:
		return "Reconocimiento profesional"
	case brp.ConceptTier:
		return "Tramo"
	case brp.ConceptPriority:
		return "Alumnos prioritarios"
	default:
		return string(code)
	}
}

// formatDetail renders the detail map as "k=v" pairs in key order for a
// stable cell value.
func formatDetail(detail map[string]string) string {
	if len(detail) == 0 {
		return ""
	}
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+detail[k])
	}
	return strings.Join(parts, ", ")
}
