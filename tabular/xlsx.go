package tabular

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SheetOptions selects which worksheet of a workbook to load.
type SheetOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // extra banner rows above the header
}

// ReadXLSXFile loads one worksheet of an XLSX workbook.
func ReadXLSXFile(path, kind string, opts SheetOptions) (Dataset, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return Dataset{}, eris.Wrapf(err, "tabular: open %s workbook", kind)
	}
	return fromWorkbook(f, kind, opts)
}

// ReadXLSXBytes loads one worksheet from an in-memory workbook, as received
// by the upload endpoint.
func ReadXLSXBytes(raw []byte, kind string, opts SheetOptions) (Dataset, error) {
	f, err := xlsx.OpenBinary(raw)
	if err != nil {
		return Dataset{}, eris.Wrapf(err, "tabular: open %s workbook", kind)
	}
	return fromWorkbook(f, kind, opts)
}

func fromWorkbook(f *xlsx.File, kind string, opts SheetOptions) (Dataset, error) {
	sheet, err := pickSheet(f, opts)
	if err != nil {
		return Dataset{}, eris.Wrapf(err, "tabular: %s workbook", kind)
	}

	var rows [][]string
	for i, row := range sheet.Rows {
		if i < opts.SkipRows {
			continue
		}
		rows = append(rows, rowToStrings(row))
	}
	if len(rows) == 0 {
		return Dataset{}, headerError(kind)
	}

	return Dataset{Kind: kind, Headers: rows[0], Rows: rows[1:]}, nil
}

func pickSheet(f *xlsx.File, opts SheetOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("sheet index %d out of range (workbook has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
