package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"

	"github.com/leftra123/remupro-v3/brp"
	"github.com/leftra123/remupro-v3/report"
	"github.com/leftra123/remupro-v3/schools"
)

func testResult() brp.RunResult {
	roster := []brp.RosterRow{
		{
			Teacher:       "123456785",
			Establishment: "1001",
			Name:          "ANA SILVA",
			ContractHours: decimal.NewFromInt(30),
			Concepts: []brp.ConceptAmount{
				{Code: brp.ConceptRecognition, Total: brp.NewMoney(100000)},
			},
		},
	}
	records := []brp.LiquidationRecord{
		{Teacher: "123456785", Establishment: "1001", Category: brp.CategorySEP,
			Hours: decimal.NewFromInt(20), Source: "SEP"},
		{Teacher: "123456785", Establishment: "2002", Category: brp.CategoryNormal,
			Hours: decimal.NewFromInt(10), Source: "PIE_SN"},
	}

	engine := brp.NewEngine(brp.DefaultThresholds(), nil)
	res := engine.Run(brp.RunInput{
		Month:        "2026-07",
		Roster:       roster,
		Liquidations: records,
	})
	res.GeneratedAt = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return res
}

func sheetRows(t *testing.T, f *xlsx.File, name string) [][]string {
	t.Helper()
	sheet, ok := f.Sheet[name]
	if !ok {
		t.Fatalf("sheet %s missing", name)
	}
	var rows [][]string
	for _, row := range sheet.Rows {
		var cells []string
		for _, cell := range row.Cells {
			cells = append(cells, cell.String())
		}
		rows = append(rows, cells)
	}
	return rows
}

func TestBuilder_WorkbookStructure(t *testing.T) {
	// GIVEN: A run with one multi-establishment teacher
	dir := schools.NewDirectory([]schools.Entry{
		{RBD: "1001", Name: "ESCUELA LOS AROMOS"},
		{RBD: "2002", Name: "LICEO REPUBLICA"},
	})
	var buf bytes.Buffer

	// WHEN: Writing the workbook
	if err := report.NewBuilder(dir).Write(&buf, testResult()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// THEN: Every sheet is present
	f, err := xlsx.OpenBinary(buf.Bytes())
	if err != nil {
		t.Fatalf("OpenBinary: %v", err)
	}
	for _, name := range []string{
		report.SheetShares, report.SheetSchools, report.SheetReview,
		report.SheetSummary, report.SheetMulti, report.SheetAudit,
	} {
		if _, ok := f.Sheet[name]; !ok {
			t.Errorf("sheet %s missing", name)
		}
	}

	// Shares sheet: header plus one row per share, with the directory name
	shares := sheetRows(t, f, report.SheetShares)
	if len(shares) != 3 {
		t.Fatalf("share rows = %d, want header + 2", len(shares))
	}
	if shares[0][0] != "RUT" || shares[0][4] != "Categoría" {
		t.Errorf("share header = %v", shares[0])
	}
	if shares[1][0] != "123456785" || shares[1][3] != "ESCUELA LOS AROMOS" {
		t.Errorf("share row = %v", shares[1])
	}
	if shares[1][12] != "SI" {
		t.Errorf("multi flag = %q, want SI", shares[1][12])
	}

	// School rollup is ordered by RBD
	schoolRows := sheetRows(t, f, report.SheetSchools)
	if len(schoolRows) != 3 {
		t.Fatalf("school rows = %d, want header + 2", len(schoolRows))
	}
	if schoolRows[1][0] != "1001" || schoolRows[2][0] != "2002" {
		t.Errorf("school order = %v / %v", schoolRows[1], schoolRows[2])
	}

	// Multi sheet closes the teacher with a TOTAL row
	multi := sheetRows(t, f, report.SheetMulti)
	last := multi[len(multi)-1]
	if last[3] != "TOTAL" {
		t.Errorf("last multi row = %v, want TOTAL marker", last)
	}
}

func TestBuilder_ShareAmountsConserved(t *testing.T) {
	// GIVEN: The reference run written and read back
	var buf bytes.Buffer
	if err := report.NewBuilder(nil).Write(&buf, testResult()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := xlsx.OpenBinary(buf.Bytes())
	if err != nil {
		t.Fatalf("OpenBinary: %v", err)
	}

	// WHEN: Summing the Total BRP column over the detail rows
	rows := sheetRows(t, f, report.SheetShares)
	var sum int64
	for _, row := range rows[1:] {
		n, err := row2Int(row[9])
		if err != nil {
			t.Fatalf("total cell %q: %v", row[9], err)
		}
		sum += n
	}

	// THEN: The sheet re-adds to the roster amount
	if sum != 100000 {
		t.Errorf("sheet total = %d, want 100000", sum)
	}
}

func TestBuilder_NilDirectoryFallsBackToRBD(t *testing.T) {
	var buf bytes.Buffer
	if err := report.NewBuilder(nil).Write(&buf, testResult()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := xlsx.OpenBinary(buf.Bytes())
	if err != nil {
		t.Fatalf("OpenBinary: %v", err)
	}

	rows := sheetRows(t, f, report.SheetShares)
	if rows[1][3] != "1001" {
		t.Errorf("name fallback = %q, want raw RBD", rows[1][3])
	}
}

func row2Int(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.IntPart(), nil
}
