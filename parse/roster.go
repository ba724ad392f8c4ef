/*
roster.go - MINEDUC roster parser

The roster ("web sostenedor" export) is the authoritative list of teachers
and concept amounts for the month. A teacher paid at several schools
appears once per RBD; the distributor sums the rows per teacher.
*/
package parse

import (
	"strconv"
	"strings"

	"github.com/leftra123/remupro-v3/brp"
	"github.com/leftra123/remupro-v3/tabular"
)

// ParseRoster extracts the roster rows. Structural failures (missing
// required column, empty sheet) return an error; every row-level problem
// becomes an audit entry and the row is skipped.
func ParseRoster(ds tabular.Dataset, log *brp.Log) ([]brp.RosterRow, error) {
	if ds.Empty() {
		return nil, brp.ErrEmptyRoster
	}

	cols := locate(ds, rosterColumns)
	if err := requireColumns(ds, cols, rosterColumns, rosterRequired); err != nil {
		return nil, err
	}
	alertColumns(ds, cols, rosterColumns, rosterCritical, rosterInfo, log)

	var rows []brp.RosterRow
	for i, raw := range ds.Rows {
		rut := ds.Cell(raw, cols[RoleRUT])
		if rut == "" {
			continue // filler row
		}
		key, err := brp.NormalizeRUT(rut)
		if err != nil {
			log.Warning(brp.CategoryRowSkipped,
				"roster row skipped, unparseable RUT",
				brp.WithDetail("sheet", ds.Kind, "row", rowLabel(i), "rut", rut))
			continue
		}

		hours, err := brp.ParseHours(ds.Cell(raw, cols[RoleContractHours]))
		if err != nil {
			log.Warning(brp.CategoryRowSkipped,
				"roster row skipped, unparseable contract hours",
				brp.ForTeacher(key),
				brp.WithDetail("sheet", ds.Kind, "row", rowLabel(i)))
			continue
		}

		row := brp.RosterRow{
			Teacher:       key,
			Establishment: brp.EstablishmentID(ds.Cell(raw, cols[RoleRBD])),
			Name:          fullName(ds, raw, cols),
			PaymentType:   ds.Cell(raw, cols[RolePaymentType]),
			Tier:          ds.Cell(raw, cols[RoleTier]),
			ContractHours: hours,
		}

		recognition, ok := conceptCells(ds, raw, cols, log, key, i,
			brp.ConceptRecognition, RoleRecognitionTotal, RoleRecognitionSponsor, RoleRecognitionTransfer)
		if !ok {
			continue
		}
		tier, ok := conceptCells(ds, raw, cols, log, key, i,
			brp.ConceptTier, RoleTierTotal, RoleTierSponsor, RoleTierTransfer)
		if !ok {
			continue
		}
		priority, err := brp.ParseMoney(ds.Cell(raw, cols[RolePriorityStudents]))
		if err != nil {
			log.Warning(brp.CategoryRowSkipped,
				"roster row skipped, unparseable amount",
				brp.ForTeacher(key),
				brp.WithDetail("sheet", ds.Kind, "row", rowLabel(i), "concept", string(brp.ConceptPriority)))
			continue
		}

		row.Concepts = []brp.ConceptAmount{
			recognition,
			tier,
			// priority students money is all central transfer; the roster
			// carries no sponsor sub-amount for it
			{Code: brp.ConceptPriority, Total: priority, Transfer: priority},
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, brp.ErrEmptyRoster
	}
	return rows, nil
}

// conceptCells parses a concept's total and optional sub-amounts from one
// roster row.
func conceptCells(ds tabular.Dataset, raw []string, cols columnMap, log *brp.Log, key brp.TeacherKey, rowIdx int, code brp.ConceptCode, total, sponsor, transfer ColumnRole) (brp.ConceptAmount, bool) {
	c := brp.ConceptAmount{Code: code}
	var err error

	if c.Total, err = brp.ParseMoney(ds.Cell(raw, cols[total])); err != nil {
		log.Warning(brp.CategoryRowSkipped,
			"roster row skipped, unparseable amount",
			brp.ForTeacher(key),
			brp.WithDetail("sheet", ds.Kind, "row", rowLabel(rowIdx), "concept", string(code)))
		return c, false
	}
	// sub-amounts are informative: a bad cell degrades to the nominal
	// split instead of dropping the row
	if c.Sponsor, err = brp.ParseMoney(ds.Cell(raw, cols[sponsor])); err != nil {
		c.Sponsor = brp.NewMoney(0)
	}
	if c.Transfer, err = brp.ParseMoney(ds.Cell(raw, cols[transfer])); err != nil {
		c.Transfer = brp.NewMoney(0)
	}
	return c, true
}

func fullName(ds tabular.Dataset, raw []string, cols columnMap) string {
	parts := []string{
		ds.Cell(raw, cols[RoleName]),
		ds.Cell(raw, cols[RoleSurname1]),
		ds.Cell(raw, cols[RoleSurname2]),
	}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// rowLabel renders the 1-based spreadsheet row number (header is row 1).
func rowLabel(i int) string {
	return strconv.Itoa(i + 2)
}
