/*
Package tabular loads the spreadsheet exports the authority works with into
a uniform in-memory table.

The sources arrive as whatever the last person saved: XLSX workbooks,
comma or semicolon CSV, UTF-8 or Latin-1. This package absorbs all of
that and hands the parsers a Dataset of plain strings; every domain
interpretation (column roles, numeric coercion) happens upstream in the
parse package.
*/
package tabular

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Dataset is one loaded sheet: a header row plus data rows, all strings.
type Dataset struct {
	// Kind labels the source ("roster", "sep", "pie", "rem"). Informational;
	// set by the caller, carried into error messages and audit entries.
	Kind    string
	Headers []string
	Rows    [][]string
}

// Column returns the index of the first header equal to name after
// normalization, or -1.
func (d Dataset) Column(name string) int {
	want := NormalizeHeader(name)
	for i, h := range d.Headers {
		if NormalizeHeader(h) == want {
			return i
		}
	}
	return -1
}

// FindColumn returns the index of the first header containing any of the
// given fragments after normalization, or -1. Fragment matching is how the
// parsers survive the authority renaming "Horas SEP" to "HORAS  SEP." between
// months.
func (d Dataset) FindColumn(fragments ...string) int {
	for i, h := range d.Headers {
		n := NormalizeHeader(h)
		for _, frag := range fragments {
			if strings.Contains(n, NormalizeHeader(frag)) {
				return i
			}
		}
	}
	return -1
}

// Cell returns the trimmed cell at (row, col), "" when the row is ragged
// or col is -1.
func (d Dataset) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// Empty reports whether the dataset has no data rows.
func (d Dataset) Empty() bool { return len(d.Rows) == 0 }

var stripAccents = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeHeader canonicalizes a header cell for matching: uppercase,
// accents folded, interior whitespace collapsed, punctuation and symbol
// runes (º, °, dots) dropped. "Nº  Horas  Contrato" and "N HORAS CONTRATO"
// compare equal.
func NormalizeHeader(s string) string {
	folded, _, err := transform.String(stripAccents, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToUpper(folded) {
		switch {
		// only ASCII survives: folding reduced accented letters already,
		// and leftovers like º are ordinal markers, not content
		case r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// ReadFile loads a sheet by extension: .xlsx through the workbook reader,
// anything else as CSV.
func ReadFile(path, kind string) (Dataset, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSXFile(path, kind, SheetOptions{})
	}
	return ReadCSVFile(path, kind)
}

func headerError(kind string) error {
	return eris.Errorf("tabular: %s sheet has no header row", kind)
}
