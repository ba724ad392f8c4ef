/*
Package parse turns the loaded tabular datasets into domain records.

Each source kind declares its columns as header fragments mapped to a
semantic role. Fragment matching (after accent/case folding, see the
tabular package) is what keeps the parsers working when the authority
renames "Horas SEP" to "HORAS  SEP." between months.

Column roles come in three grades, mirroring how much a missing column
hurts:

  required - the parser cannot proceed at all; structural failure
  critical - amounts computed from it become 0; ERROR audit entry
  info     - display-only; WARNING audit entry

Row-level problems never abort: a bad row is skipped with a WARNING, a
duplicate pair is summed with a WARNING.
*/
package parse

// ColumnRole names the semantic slot a source column fills.
type ColumnRole string

const (
	RoleRBD           ColumnRole = "rbd"
	RoleRUT           ColumnRole = "rut"
	RoleName          ColumnRole = "nombres"
	RoleSurname1      ColumnRole = "apellido1"
	RoleSurname2      ColumnRole = "apellido2"
	RolePaymentType   ColumnRole = "tipo_pago"
	RoleTier          ColumnRole = "tramo"
	RoleContractHours ColumnRole = "horas_contrato"

	RoleRecognitionTotal    ColumnRole = "total_reconocimiento"
	RoleRecognitionSponsor  ColumnRole = "subv_reconocimiento"
	RoleRecognitionTransfer ColumnRole = "transf_reconocimiento"
	RoleTierTotal           ColumnRole = "total_tramo"
	RoleTierSponsor         ColumnRole = "subv_tramo"
	RoleTierTransfer        ColumnRole = "transf_tramo"
	RolePriorityStudents    ColumnRole = "asig_prioritarios"

	RoleHoursSEP    ColumnRole = "horas_sep"
	RoleHoursPIE    ColumnRole = "horas_pie"
	RoleHoursNormal ColumnRole = "horas_sn"

	RoleContractType ColumnRole = "tipo_contrato"
	RoleWorkday      ColumnRole = "jornada"
	RoleDepartment   ColumnRole = "departamento"
)

// columnSpec declares how one role is located in a sheet.
type columnSpec struct {
	Role ColumnRole
	// Fragments are tried in order against normalized headers.
	Fragments []string
	// Friendly is the name shown in column alerts.
	Friendly string
}

// rosterColumns is the column contract of the MINEDUC roster export
// ("web sostenedor"), the authoritative source of concept amounts.
var rosterColumns = []columnSpec{
	{RoleRBD, []string{"rbd"}, "Rbd (Establecimiento)"},
	{RoleRUT, []string{"rut"}, "RUT (Docente)"},
	{RoleName, []string{"nombres"}, "Nombres (Docente)"},
	{RoleSurname1, []string{"primer apellido", "apellido"}, "Primer Apellido (Docente)"},
	{RoleSurname2, []string{"segundo apellido"}, "Segundo Apellido (Docente)"},
	{RolePaymentType, []string{"tipo de pago"}, "Tipo de pago"},
	{RoleTier, []string{"tramo"}, "Tramo"},
	{RoleContractHours, []string{"horas de contrato", "horas contrato"}, "Horas de contrato"},
	{RoleRecognitionTotal, []string{"total reconocimiento profesional"}, "Total reconocimiento profesional"},
	{RoleRecognitionSponsor, []string{"total subvencion reconocimiento"}, "Total subvención reconocimiento profesional"},
	{RoleRecognitionTransfer, []string{"total transferencia directa reconocimiento"}, "Total transferencia directa reconocimiento"},
	{RoleTierTotal, []string{"total tramo"}, "Total tramo"},
	{RoleTierSponsor, []string{"subvencion tramo"}, "Subvención tramo"},
	{RoleTierTransfer, []string{"transferencia directa tramo"}, "Transferencia directa tramo"},
	{RolePriorityStudents, []string{"asignacion directa alumnos prioritarios", "alumnos prioritarios"}, "Asignación directa alumnos prioritarios"},
}

// rosterRequired cannot be missing; the run aborts.
var rosterRequired = []ColumnRole{RoleRBD, RoleRUT, RoleContractHours}

// rosterCritical feed the concept amounts; missing means that concept pays 0.
var rosterCritical = []ColumnRole{
	RoleRecognitionTotal,
	RoleTierTotal,
	RolePriorityStudents,
}

// rosterInfo are display-only.
var rosterInfo = []ColumnRole{
	RoleName, RoleSurname1, RoleSurname2,
	RolePaymentType, RoleTier,
	RoleRecognitionSponsor, RoleRecognitionTransfer,
	RoleTierSponsor, RoleTierTransfer,
}

// sepColumns is the column contract of the SEP liquidation hours sheet.
var sepColumns = []columnSpec{
	{RoleRUT, []string{"rut"}, "Rut"},
	{RoleName, []string{"nombre"}, "Nombre"},
	{RoleRBD, []string{"rbd", "establecimiento"}, "RBD"},
	{RoleHoursSEP, []string{"sep"}, "SEP"},
}

// pieColumns covers the combined PIE/Normal liquidation sheet; the two hour
// columns themselves discriminate the subsidy category per row.
var pieColumns = []columnSpec{
	{RoleRUT, []string{"rut"}, "Rut"},
	{RoleName, []string{"nombre"}, "Nombre"},
	{RoleRBD, []string{"rbd", "establecimiento"}, "RBD"},
	{RoleHoursPIE, []string{"pie"}, "PIE"},
	{RoleHoursNormal, []string{"sn"}, "SN"},
}

// remColumns is the column contract of the optional REM payroll export.
var remColumns = []columnSpec{
	{RoleRUT, []string{"rut"}, "rut"},
	{RoleName, []string{"nombre"}, "nombre"},
	{RoleContractType, []string{"tipocontrato", "tipo contrato"}, "TipoContrato"},
	{RoleWorkday, []string{"jornada"}, "Jornada"},
	{RoleDepartment, []string{"departamento"}, "Departamento"},
}
