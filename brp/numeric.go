/*
numeric.go - Coercion of numeric cells from the spreadsheet exports

The exports are hand-touched files: money cells arrive as "1.234.567",
"$1,234,567", "1234567.0" or plain integers depending on who saved the
file last. Coercion is deliberately forgiving about separators and strict
about everything else; a cell that is not recognizably a number is a
row-level coercion failure, never a guess.
*/
package brp

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// parseNumericCell coerces a raw cell into a decimal.
// Empty and "-" cells coerce to zero, matching how the source spreadsheets
// mark "no amount".
func parseNumericCell(s string) (decimal.Decimal, error) {
	t := strings.TrimSpace(s)
	if t == "" || t == "-" {
		return decimal.Zero, nil
	}

	t = strings.TrimPrefix(t, "$")
	t = strings.TrimSpace(t)

	neg := false
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		neg = true
		t = t[1 : len(t)-1]
	}

	// "1.234.567" and "1,234,567" are thousands-separated integers;
	// "1234.5" and "1234,5" are decimal fractions. Disambiguate by the
	// number of separator occurrences and trailing group width.
	t = normalizeSeparators(t)

	d, err := decimal.NewFromString(t)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %q", s)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

func normalizeSeparators(t string) string {
	dots := strings.Count(t, ".")
	commas := strings.Count(t, ",")

	switch {
	case dots > 0 && commas > 0:
		// Both present: the rightmost separator is the decimal mark.
		if strings.LastIndex(t, ".") > strings.LastIndex(t, ",") {
			t = strings.ReplaceAll(t, ",", "")
		} else {
			t = strings.ReplaceAll(t, ".", "")
			t = strings.Replace(t, ",", ".", 1)
		}
	case dots > 1:
		t = strings.ReplaceAll(t, ".", "")
	case commas > 1:
		t = strings.ReplaceAll(t, ",", "")
	case dots == 1:
		// "1.234" is a thousands group, "12.5" a fraction.
		if frac := t[strings.Index(t, ".")+1:]; len(frac) == 3 {
			t = strings.ReplaceAll(t, ".", "")
		}
	case commas == 1:
		if frac := t[strings.Index(t, ",")+1:]; len(frac) == 3 {
			t = strings.ReplaceAll(t, ",", "")
		} else {
			t = strings.Replace(t, ",", ".", 1)
		}
	}
	return t
}

// ParseHours coerces an hours cell. Same rules as money cells; hours may
// legitimately carry fractions.
func ParseHours(s string) (decimal.Decimal, error) {
	return parseNumericCell(s)
}
