/*
rem.go - REM contract classifier

The REM payroll export lists one row per contract line, with a free-text
contract type ("Titular SEP", "Contrata P.I.E.", "Educadora Intercultural
Bilingüe"...). Classification maps that text onto the subsidy taxonomy so
the alert engine can corroborate liquidation hour totals. Advisory only:
nothing here ever reaches the distributor's proportion base.
*/
package parse

import (
	"regexp"
	"strings"

	"github.com/leftra123/remupro-v3/brp"
	"github.com/leftra123/remupro-v3/tabular"
)

// ParseREM extracts classified contract lines from the optional REM sheet.
func ParseREM(ds tabular.Dataset, log *brp.Log) ([]brp.REMRecord, error) {
	if ds.Empty() {
		return nil, brp.ErrEmptySheet
	}

	cols := locate(ds, remColumns)
	if err := requireColumns(ds, cols, remColumns, []ColumnRole{RoleRUT, RoleContractType, RoleWorkday}); err != nil {
		return nil, err
	}

	var records []brp.REMRecord
	for i, raw := range ds.Rows {
		rut := ds.Cell(raw, cols[RoleRUT])
		if rut == "" {
			continue
		}
		key, err := brp.NormalizeRUT(rut)
		if err != nil {
			log.Warning(brp.CategoryRowSkipped,
				"REM row skipped, unparseable RUT",
				brp.WithDetail("sheet", ds.Kind, "row", rowLabel(i), "rut", rut))
			continue
		}

		hours, err := brp.ParseHours(ds.Cell(raw, cols[RoleWorkday]))
		if err != nil {
			log.Warning(brp.CategoryRowSkipped,
				"REM row skipped, unparseable workday hours",
				brp.ForTeacher(key),
				brp.WithDetail("sheet", ds.Kind, "row", rowLabel(i)))
			continue
		}

		contract := ds.Cell(raw, cols[RoleContractType])
		category := ClassifyContract(contract)
		if category == brp.CategoryUnknown {
			log.Warning(brp.CategoryUnknownContractType,
				"contract type not recognized, classified UNKNOWN",
				brp.ForTeacher(key),
				brp.WithDetail("sheet", ds.Kind, "row", rowLabel(i), "contract_type", contract))
		}

		records = append(records, brp.REMRecord{
			Teacher:       key,
			Name:          ds.Cell(raw, cols[RoleName]),
			Establishment: ExtractRBD(ds.Cell(raw, cols[RoleDepartment])),
			Category:      category,
			Hours:         hours,
			RawContract:   contract,
		})
	}
	return records, nil
}

// ClassifyContract maps free-text contract types onto the subsidy taxonomy.
// Matching happens on accent-folded uppercase text; an unmatched value is
// UNKNOWN, never an error.
func ClassifyContract(raw string) brp.SubsidyCategory {
	t := tabular.NormalizeHeader(raw)
	// the acronyms arrive dotted ("P.I.E.") as often as not; fold the
	// spaces the dot-stripping left behind before matching them
	compact := strings.ReplaceAll(t, " ", "")
	switch {
	case t == "":
		return brp.CategoryUnknown
	case strings.Contains(compact, "SEP"):
		return brp.CategorySEP
	case strings.Contains(compact, "PIE") || strings.Contains(t, "INTEGRACION"):
		return brp.CategoryPIE
	case strings.Contains(compact, "EIB") || strings.Contains(t, "INTERCULTURAL") || strings.Contains(t, "BILINGUE"):
		return brp.CategoryEIB
	case strings.Contains(t, "PLANTA") || strings.Contains(t, "CONTRATA") || strings.Contains(t, "TITULAR"):
		return brp.CategoryNormal
	default:
		return brp.CategoryUnknown
	}
}

var (
	rbdPattern     = regexp.MustCompile(`(?i)RBD\s*(\d+)`)
	ordinalPattern = regexp.MustCompile(`(?:Nº|N°|Nro\.?)\s*(\d+)`)
	trailingF      = regexp.MustCompile(`\bF\s+(\d+)\s*$`)
)

// ExtractRBD pulls an establishment code out of the REM department text,
// e.g. "ESCUELA DAME LA MANO RBD 6710-5" yields "6710". Department lines
// of the education directorate itself map to the central administration.
func ExtractRBD(department string) brp.EstablishmentID {
	dep := strings.TrimSpace(department)
	if dep == "" {
		return ""
	}
	if m := rbdPattern.FindStringSubmatch(dep); m != nil {
		return brp.EstablishmentID(m[1])
	}
	if m := ordinalPattern.FindStringSubmatch(dep); m != nil {
		return brp.EstablishmentID(m[1])
	}
	if m := trailingF.FindStringSubmatch(dep); m != nil {
		return brp.EstablishmentID(m[1])
	}
	if strings.Contains(tabular.NormalizeHeader(dep), "EDUCACION") {
		return CentralAdministration
	}
	return ""
}
