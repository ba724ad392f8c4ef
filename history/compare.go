/*
compare.go - Month-over-month comparison of two stored runs

The comparator answers the payroll office's first question every month:
who appeared, who left, and whose money moved. It works purely on two
snapshots; the engine's own month-over-month audit check covers the live
run, this covers any two stored months after the fact.
*/
package history

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/leftra123/remupro-v3/brp"
)

// ChangeKind classifies one comparison finding.
type ChangeKind string

const (
	ChangeNew      ChangeKind = "NEW"
	ChangeDeparted ChangeKind = "DEPARTED"
	ChangeAmount   ChangeKind = "AMOUNT"
	ChangeSchools  ChangeKind = "SCHOOLS"
	ChangeHours    ChangeKind = "HOURS"
)

// TeacherChange is one finding of the comparison.
type TeacherChange struct {
	Kind    ChangeKind      `json:"kind"`
	Teacher brp.TeacherKey  `json:"teacher"`
	Name    string          `json:"name,omitempty"`
	Before  brp.Money       `json:"before"`
	After   brp.Money       `json:"after"`
	// DeltaPct is the relative change in percent; zero for NEW/DEPARTED.
	DeltaPct decimal.Decimal `json:"delta_pct"`
	Detail   string          `json:"detail,omitempty"`
}

// Comparison is the full diff between two stored months.
type Comparison struct {
	FromMonth string          `json:"from_month"`
	ToMonth   string          `json:"to_month"`
	Changes   []TeacherChange `json:"changes"`
	// TotalBefore and TotalAfter are the run-wide BRP totals.
	TotalBefore brp.Money `json:"total_before"`
	TotalAfter  brp.Money `json:"total_after"`
}

type teacherState struct {
	name    string
	total   brp.Money
	hours   decimal.Decimal
	schools map[brp.EstablishmentID]struct{}
}

// Compare diffs two snapshots. deltaPct is the relative threshold (percent)
// below which an amount change is noise, normally Thresholds.MonthDeltaPct.
func Compare(from, to *Snapshot, deltaPct decimal.Decimal) Comparison {
	cmp := Comparison{
		FromMonth:   from.Month,
		ToMonth:     to.Month,
		TotalBefore: from.Summary.TotalBRP,
		TotalAfter:  to.Summary.TotalBRP,
	}

	before := collectStates(from)
	after := collectStates(to)

	for _, key := range sortedKeys(after) {
		b, existed := before[key]
		a := after[key]
		if !existed {
			cmp.Changes = append(cmp.Changes, TeacherChange{
				Kind: ChangeNew, Teacher: key, Name: a.name,
				Before: brp.NewMoney(0), After: a.total,
			})
			continue
		}

		if b.total.IsPositive() {
			delta := a.total.Sub(b.total).Value.Div(b.total.Value).Mul(decimal.NewFromInt(100))
			if delta.Abs().GreaterThan(deltaPct) {
				cmp.Changes = append(cmp.Changes, TeacherChange{
					Kind: ChangeAmount, Teacher: key, Name: a.name,
					Before: b.total, After: a.total, DeltaPct: delta.Round(1),
				})
			}
		}

		if !sameSchools(b.schools, a.schools) {
			cmp.Changes = append(cmp.Changes, TeacherChange{
				Kind: ChangeSchools, Teacher: key, Name: a.name,
				Before: b.total, After: a.total,
				Detail: schoolsDetail(b.schools, a.schools),
			})
		}

		if !b.hours.Equal(a.hours) {
			cmp.Changes = append(cmp.Changes, TeacherChange{
				Kind: ChangeHours, Teacher: key, Name: a.name,
				Before: b.total, After: a.total,
				Detail: b.hours.String() + "h -> " + a.hours.String() + "h",
			})
		}
	}

	for _, key := range sortedKeys(before) {
		if _, still := after[key]; still {
			continue
		}
		b := before[key]
		cmp.Changes = append(cmp.Changes, TeacherChange{
			Kind: ChangeDeparted, Teacher: key, Name: b.name,
			Before: b.total, After: brp.NewMoney(0),
		})
	}

	return cmp
}

func collectStates(snap *Snapshot) map[brp.TeacherKey]*teacherState {
	m := make(map[brp.TeacherKey]*teacherState)
	for _, sh := range snap.Records {
		st, ok := m[sh.Teacher]
		if !ok {
			st = &teacherState{
				name:    sh.Name,
				total:   brp.NewMoney(0),
				schools: make(map[brp.EstablishmentID]struct{}),
			}
			m[sh.Teacher] = st
		}
		st.total = st.total.Add(sh.Total())
		st.hours = st.hours.Add(sh.Hours)
		st.schools[sh.Establishment] = struct{}{}
	}
	return m
}

func sortedKeys(m map[brp.TeacherKey]*teacherState) []brp.TeacherKey {
	keys := make([]brp.TeacherKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sameSchools(a, b map[brp.EstablishmentID]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func schoolsDetail(before, after map[brp.EstablishmentID]struct{}) string {
	return joinSchools(before) + " -> " + joinSchools(after)
}

func joinSchools(m map[brp.EstablishmentID]struct{}) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += ","
		}
		s += k
	}
	return s
}
