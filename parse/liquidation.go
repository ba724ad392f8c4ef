/*
liquidation.go - SEP and PIE/Normal liquidation parsers

Both liquidation sheets carry worked hours per teacher and establishment.
The SEP sheet has one hour column and always tags SEP; the combined
PIE/Normal sheet has two hour columns ("PIE" and "SN") and the nonzero
column itself discriminates the category per row, so one input row can
legitimately produce two records.

Rows with an establishment the sheet does not name are booked under the
central administration ("DEM"), matching how the payroll office files
unassigned contracts.
*/
package parse

import (
	"github.com/leftra123/remupro-v3/brp"
	"github.com/leftra123/remupro-v3/tabular"
)

// CentralAdministration is the pseudo-RBD for rows without an
// establishment of their own.
const CentralAdministration brp.EstablishmentID = "DEM"

// ParseSEP extracts SEP liquidation records. Every record is tagged SEP.
func ParseSEP(ds tabular.Dataset, log *brp.Log) ([]brp.LiquidationRecord, error) {
	return parseLiquidation(ds, sepColumns, []hourColumn{
		{Role: RoleHoursSEP, Category: brp.CategorySEP},
	}, log)
}

// ParsePIENormal extracts records from the combined PIE/Normal sheet.
func ParsePIENormal(ds tabular.Dataset, log *brp.Log) ([]brp.LiquidationRecord, error) {
	return parseLiquidation(ds, pieColumns, []hourColumn{
		{Role: RoleHoursPIE, Category: brp.CategoryPIE},
		{Role: RoleHoursNormal, Category: brp.CategoryNormal},
	}, log)
}

// hourColumn binds one hour column of a sheet to the category its hours
// are booked under.
type hourColumn struct {
	Role     ColumnRole
	Category brp.SubsidyCategory
}

func parseLiquidation(ds tabular.Dataset, specs []columnSpec, hourCols []hourColumn, log *brp.Log) ([]brp.LiquidationRecord, error) {
	if ds.Empty() {
		return nil, brp.ErrEmptySheet
	}

	cols := locate(ds, specs)
	if err := requireColumns(ds, cols, specs, []ColumnRole{RoleRUT}); err != nil {
		return nil, err
	}
	for _, hc := range hourCols {
		if cols[hc.Role] < 0 {
			return nil, &brp.MissingColumnError{
				Column:    friendlyName(specs, hc.Role),
				SheetKind: ds.Kind,
			}
		}
	}

	type pairKey struct {
		teacher  brp.TeacherKey
		rbd      brp.EstablishmentID
		category brp.SubsidyCategory
	}
	index := make(map[pairKey]int)
	var records []brp.LiquidationRecord
	parsedAny := false

	for i, raw := range ds.Rows {
		rut := ds.Cell(raw, cols[RoleRUT])
		if rut == "" {
			continue
		}
		key, err := brp.NormalizeRUT(rut)
		if err != nil {
			log.Warning(brp.CategoryRowSkipped,
				"liquidation row skipped, unparseable RUT",
				brp.WithDetail("sheet", ds.Kind, "row", rowLabel(i), "rut", rut))
			continue
		}

		rbd := brp.EstablishmentID(ds.Cell(raw, cols[RoleRBD]))
		if rbd == "" {
			rbd = CentralAdministration
		}
		name := ds.Cell(raw, cols[RoleName])

		rowOK := true
		emitted := false
		for _, hc := range hourCols {
			hours, err := brp.ParseHours(ds.Cell(raw, cols[hc.Role]))
			if err != nil {
				log.Warning(brp.CategoryRowSkipped,
					"liquidation row skipped, unparseable hours",
					brp.ForTeacher(key),
					brp.AtEstablishment(rbd),
					brp.WithDetail("sheet", ds.Kind, "row", rowLabel(i), "column", friendlyName(specs, hc.Role)))
				rowOK = false
				break
			}
			parsedAny = true
			if hours.IsZero() {
				continue
			}
			emitted = true

			pk := pairKey{key, rbd, hc.Category}
			if at, dup := index[pk]; dup {
				// same teacher+establishment+category twice: sum, flag
				records[at].Hours = records[at].Hours.Add(hours)
				log.Warning(brp.CategoryDuplicateRecord,
					"duplicate teacher and establishment pair, hours summed",
					brp.ForTeacher(key),
					brp.AtEstablishment(rbd),
					brp.WithDetail("sheet", ds.Kind, "row", rowLabel(i), "category", string(hc.Category)))
				continue
			}
			index[pk] = len(records)
			records = append(records, brp.LiquidationRecord{
				Teacher:       key,
				Name:          name,
				Establishment: rbd,
				Category:      hc.Category,
				Hours:         hours,
				Source:        ds.Kind,
			})
		}

		if rowOK && !emitted {
			// A liquidated teacher whose hours are all zero is a review
			// case, not an orphan: keep one zero-hour record so the
			// distributor classifies them instead of reporting no
			// liquidation at all.
			pk := pairKey{key, rbd, hourCols[0].Category}
			if _, dup := index[pk]; !dup {
				index[pk] = len(records)
				records = append(records, brp.LiquidationRecord{
					Teacher:       key,
					Name:          name,
					Establishment: rbd,
					Category:      hourCols[0].Category,
					Source:        ds.Kind,
				})
			}
		}
	}

	if !parsedAny {
		return nil, brp.ErrUnparseableSheet
	}
	return records, nil
}
