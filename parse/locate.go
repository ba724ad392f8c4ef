package parse

import (
	"github.com/leftra123/remupro-v3/brp"
	"github.com/leftra123/remupro-v3/tabular"
)

// columnMap is the resolved header index per role for one loaded sheet.
type columnMap map[ColumnRole]int

// locate resolves every declared column. Exact normalized equality wins
// over fragment containment so "Tramo" is never shadowed by "Total tramo".
func locate(ds tabular.Dataset, specs []columnSpec) columnMap {
	m := make(columnMap, len(specs))
	taken := make(map[int]bool)

	for _, spec := range specs {
		idx := -1
		for _, frag := range spec.Fragments {
			if i := ds.Column(frag); i >= 0 && !taken[i] {
				idx = i
				break
			}
		}
		if idx < 0 {
			for _, frag := range spec.Fragments {
				if i := ds.FindColumn(frag); i >= 0 && !taken[i] {
					idx = i
					break
				}
			}
		}
		m[spec.Role] = idx
		if idx >= 0 {
			taken[idx] = true
		}
	}
	return m
}

// requireColumns returns the structural error for the first missing
// required role, if any.
func requireColumns(ds tabular.Dataset, cols columnMap, specs []columnSpec, required []ColumnRole) error {
	for _, role := range required {
		if cols[role] >= 0 {
			continue
		}
		return &brp.MissingColumnError{
			Column:    friendlyName(specs, role),
			SheetKind: ds.Kind,
		}
	}
	return nil
}

// alertColumns emits the non-fatal column findings: missing critical
// columns (the concept pays 0), missing informative columns, and headers
// no spec recognizes.
func alertColumns(ds tabular.Dataset, cols columnMap, specs []columnSpec, critical, info []ColumnRole, log *brp.Log) {
	for _, role := range critical {
		if cols[role] >= 0 {
			continue
		}
		log.Error(brp.CategoryMissingColumn,
			"column not found, amounts for this concept will be 0",
			brp.WithDetail(
				"sheet", ds.Kind,
				"column_key", string(role),
				"column", friendlyName(specs, role),
			))
	}
	for _, role := range info {
		if cols[role] >= 0 {
			continue
		}
		log.Warning(brp.CategoryMissingColumn,
			"informative column not found, does not affect amounts",
			brp.WithDetail(
				"sheet", ds.Kind,
				"column_key", string(role),
				"column", friendlyName(specs, role),
			))
	}

	recognized := make(map[int]bool, len(cols))
	for _, idx := range cols {
		if idx >= 0 {
			recognized[idx] = true
		}
	}
	for i, h := range ds.Headers {
		if recognized[i] || tabular.NormalizeHeader(h) == "" {
			continue
		}
		log.Info(brp.CategoryUnrecognizedColumn,
			"unrecognized column ignored",
			brp.WithDetail("sheet", ds.Kind, "column", h))
	}
}

func friendlyName(specs []columnSpec, role ColumnRole) string {
	for _, s := range specs {
		if s.Role == role {
			return s.Friendly
		}
	}
	return string(role)
}
