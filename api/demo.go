/*
demo.go - Synthetic datasets for a dry run

Generates a small but representative month: a multi-establishment
teacher, a central-administration record, an orphan roster row, a
zero-hour contract and an excess-hours contract, so every alert path
shows up in the demo output without real payroll data.
*/
package api

import (
	"net/http"
)

// DemoDatasets returns a ready-to-post process request body.
// GET /api/demo
func (h *Handler) DemoDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DemoRequest())
}

// DemoRequest builds the synthetic month. Deterministic; the same body
// every call.
func DemoRequest() ProcessRequest {
	roster := DatasetDTO{
		Headers: []string{
			"Rbd (Establecimiento)", "RUT (Docente)", "Nombres (Docente)",
			"Primer Apellido (Docente)", "Segundo Apellido (Docente)",
			"Tramo", "Horas de contrato",
			"Total reconocimiento profesional",
			"Total subvención reconocimiento profesional",
			"Total transferencia directa reconocimiento",
			"Total tramo", "Subvención tramo", "Transferencia directa tramo",
			"Asignación directa alumnos prioritarios",
		},
		Rows: [][]string{
			// multi-establishment, SEP plus regular hours
			{"1001", "12.345.678-5", "MARIA", "PEREZ", "SOTO", "TRAMO II", "44",
				"320.000", "192.000", "128.000", "150.000", "90.000", "60.000", "45.000"},
			// single school, clean case
			{"2002", "9.876.543-5", "JUAN", "ROJAS", "VERA", "TRAMO I", "30",
				"210.000", "126.000", "84.000", "95.000", "57.000", "38.000", "0"},
			// roster row with no liquidation hours: review case
			{"1001", "11.111.111-1", "CARLA", "MUNOZ", "DIAZ", "TRAMO III", "38",
				"280.000", "168.000", "112.000", "120.000", "72.000", "48.000", "30.000"},
			// over the legal ceiling
			{"3003", "22.222.222-2", "PEDRO", "LARA", "FUENTES", "TRAMO II", "52",
				"360.000", "216.000", "144.000", "160.000", "96.000", "64.000", "0"},
		},
	}

	sep := DatasetDTO{
		Headers: []string{"Rut", "Nombre", "RBD", "SEP"},
		Rows: [][]string{
			{"12.345.678-5", "MARIA PEREZ SOTO", "1001", "26"},
			{"9.876.543-5", "JUAN ROJAS VERA", "2002", "30"},
		},
	}

	pie := DatasetDTO{
		Headers: []string{"Rut", "Nombre", "RBD", "PIE", "SN"},
		Rows: [][]string{
			// MARIA's remaining hours sit in a second school
			{"12.345.678-5", "MARIA PEREZ SOTO", "2002", "8", "10"},
			// central administration: no RBD on the row
			{"22.222.222-2", "PEDRO LARA FUENTES", "", "0", "52"},
		},
	}

	rem := DatasetDTO{
		Headers: []string{"Rut", "Nombre", "TipoContrato", "Jornada", "Departamento"},
		Rows: [][]string{
			{"12.345.678-5", "MARIA PEREZ SOTO", "Titular SEP", "44", "ESCUELA RBD 1001"},
			{"9.876.543-5", "JUAN ROJAS VERA", "Contrata", "30", "LICEO RBD 2002"},
			{"33.333.333-3", "ROSA HUENCHUMIL PAINE", "Educadora Intercultural Bilingüe", "20",
				"DIR. DE EDUCACION"},
		},
	}

	return ProcessRequest{
		Month:     "2026-07",
		Notes:     "demo",
		Roster:    roster,
		SEP:       sep,
		PIENormal: pie,
		REM:       &rem,
	}
}
