/*
aggregate.go - Rollups over a distribution result

Everything here is derived, deterministic and cheap: the report sheets and
the API responses are views over []Share plus the audit log. Nothing in
this file mutates its inputs.
*/
package brp

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// GLOBAL SUMMARY
// =============================================================================

// CategoryTotals is the money booked under one subsidy category.
type CategoryTotals struct {
	Category SubsidyCategory `json:"category"`
	Teachers int             `json:"teachers"`
	Hours    decimal.Decimal `json:"hours"`
	Amount   Money           `json:"amount"`
	Sponsor  Money           `json:"sponsor"`
	Transfer Money           `json:"transfer"`
}

// ConceptTotal is the run-wide total of one roster concept.
type ConceptTotal struct {
	Code     ConceptCode `json:"code"`
	Amount   Money       `json:"amount"`
	Sponsor  Money       `json:"sponsor"`
	Transfer Money       `json:"transfer"`
}

// Summary is the run-wide rollup shown on the RESUMEN_GENERAL sheet and
// returned by the API.
type Summary struct {
	Teachers       int              `json:"teachers"`
	Establishments int              `json:"establishments"`
	ReviewCases    int              `json:"review_cases"`
	EIBTeachers    int              `json:"eib_teachers"`
	TotalBRP       Money            `json:"total_brp"`
	TotalSponsor   Money            `json:"total_sponsor"`
	TotalTransfer  Money            `json:"total_transfer"`
	ByCategory     []CategoryTotals `json:"by_category"`
	ByConcept      []ConceptTotal   `json:"by_concept"`
}

// Summarize builds the global summary from the shares and the audit log.
func Summarize(shares []Share, log *Log) Summary {
	s := Summary{
		TotalBRP:      NewMoney(0),
		TotalSponsor:  NewMoney(0),
		TotalTransfer: NewMoney(0),
	}

	teachers := make(map[TeacherKey]struct{})
	ests := make(map[EstablishmentID]struct{})
	catTeachers := make(map[SubsidyCategory]map[TeacherKey]struct{})
	cats := make(map[SubsidyCategory]*CategoryTotals)
	concepts := make(map[ConceptCode]*ConceptTotal)

	for _, sh := range shares {
		teachers[sh.Teacher] = struct{}{}
		ests[sh.Establishment] = struct{}{}

		ct, ok := cats[sh.Category]
		if !ok {
			ct = &CategoryTotals{Category: sh.Category, Amount: NewMoney(0), Sponsor: NewMoney(0), Transfer: NewMoney(0)}
			cats[sh.Category] = ct
			catTeachers[sh.Category] = make(map[TeacherKey]struct{})
		}
		catTeachers[sh.Category][sh.Teacher] = struct{}{}
		ct.Hours = ct.Hours.Add(sh.Hours)
		ct.Amount = ct.Amount.Add(sh.Total())
		ct.Sponsor = ct.Sponsor.Add(sh.SponsorTotal())
		ct.Transfer = ct.Transfer.Add(sh.TransferTotal())

		for _, c := range sh.Concepts {
			cc, ok := concepts[c.Code]
			if !ok {
				cc = &ConceptTotal{Code: c.Code, Amount: NewMoney(0), Sponsor: NewMoney(0), Transfer: NewMoney(0)}
				concepts[c.Code] = cc
			}
			cc.Amount = cc.Amount.Add(c.Amount)
			cc.Sponsor = cc.Sponsor.Add(c.Sponsor)
			cc.Transfer = cc.Transfer.Add(c.Transfer)
		}

		s.TotalBRP = s.TotalBRP.Add(sh.Total())
		s.TotalSponsor = s.TotalSponsor.Add(sh.SponsorTotal())
		s.TotalTransfer = s.TotalTransfer.Add(sh.TransferTotal())
	}

	s.Teachers = len(teachers)
	s.Establishments = len(ests)
	for _, cat := range DistributionCategories {
		if ct, ok := cats[cat]; ok {
			ct.Teachers = len(catTeachers[cat])
			s.ByCategory = append(s.ByCategory, *ct)
		}
	}
	for _, code := range ConceptOrder {
		if cc, ok := concepts[code]; ok {
			s.ByConcept = append(s.ByConcept, *cc)
		}
	}

	s.ReviewCases = len(reviewTeachers(log))
	s.EIBTeachers = len(log.ByCategory(CategoryEIBTeacher))
	return s
}

// =============================================================================
// PER-ESTABLISHMENT SUMMARY
// =============================================================================

// SchoolSummary is one row of the RESUMEN_POR_RBD sheet.
type SchoolSummary struct {
	Establishment EstablishmentID `json:"rbd"`
	Name          string          `json:"name,omitempty"`
	Teachers      int             `json:"teachers"`
	Hours         decimal.Decimal `json:"hours"`
	Amount        Money           `json:"amount"`
	Sponsor       Money           `json:"sponsor"`
	Transfer      Money           `json:"transfer"`
	ByCategory    map[SubsidyCategory]Money `json:"by_category"`
}

// SummarizeSchools rolls shares up per establishment, ordered by RBD.
func SummarizeSchools(shares []Share) []SchoolSummary {
	perEst := make(map[EstablishmentID]*SchoolSummary)
	teachers := make(map[EstablishmentID]map[TeacherKey]struct{})

	for _, sh := range shares {
		ss, ok := perEst[sh.Establishment]
		if !ok {
			ss = &SchoolSummary{
				Establishment: sh.Establishment,
				Amount:        NewMoney(0),
				Sponsor:       NewMoney(0),
				Transfer:      NewMoney(0),
				ByCategory:    make(map[SubsidyCategory]Money),
			}
			perEst[sh.Establishment] = ss
			teachers[sh.Establishment] = make(map[TeacherKey]struct{})
		}
		teachers[sh.Establishment][sh.Teacher] = struct{}{}
		ss.Hours = ss.Hours.Add(sh.Hours)
		ss.Amount = ss.Amount.Add(sh.Total())
		ss.Sponsor = ss.Sponsor.Add(sh.SponsorTotal())
		ss.Transfer = ss.Transfer.Add(sh.TransferTotal())
		prev, ok := ss.ByCategory[sh.Category]
		if !ok {
			prev = NewMoney(0)
		}
		ss.ByCategory[sh.Category] = prev.Add(sh.Total())
	}

	out := make([]SchoolSummary, 0, len(perEst))
	for est, ss := range perEst {
		ss.Teachers = len(teachers[est])
		out = append(out, *ss)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Establishment < out[j].Establishment })
	return out
}

// =============================================================================
// REVIEW LIST
// =============================================================================

// ReviewCase is one teacher on the REVISAR sheet: every WARNING and ERROR
// reason collected, plus the numbers a reviewer starts from.
type ReviewCase struct {
	Teacher TeacherKey      `json:"teacher"`
	Name    string          `json:"name,omitempty"`
	Level   Level           `json:"level"`
	Hours   decimal.Decimal `json:"hours"`
	Amount  Money           `json:"amount"`
	Reasons []string        `json:"reasons"`
}

// reviewTeachers collects the distinct teachers referenced by WARNING and
// ERROR entries, in first-appearance order.
func reviewTeachers(log *Log) []TeacherKey {
	seen := make(map[TeacherKey]struct{})
	var keys []TeacherKey
	for _, e := range log.Entries() {
		if e.Level == LevelInfo || e.Teacher == "" {
			continue
		}
		if _, ok := seen[e.Teacher]; ok {
			continue
		}
		seen[e.Teacher] = struct{}{}
		keys = append(keys, e.Teacher)
	}
	return keys
}

// SurfacePlan carries a reviewer's standing decisions about audit
// categories: suppress some from the review list, pull others to the top.
// Presentation only; shares, totals and the stored audit never change.
type SurfacePlan struct {
	Ignore    map[Category]bool
	Important map[Category]bool
}

// Empty reports whether the plan changes nothing.
func (p SurfacePlan) Empty() bool {
	return len(p.Ignore) == 0 && len(p.Important) == 0
}

// BuildReviewList assembles the review sheet with no preferences applied.
func BuildReviewList(shares []Share, log *Log) []ReviewCase {
	return BuildSurfacedReviewList(shares, log, SurfacePlan{})
}

// BuildSurfacedReviewList assembles the review sheet. Ordering mirrors the
// authority's triage practice: categories the reviewer marked important
// first, then excess-hours cases, then teachers without liquidation, then
// everything else, each block by descending hours. Entries of ignored
// categories are dropped; a teacher with no surviving reason drops out.
func BuildSurfacedReviewList(shares []Share, log *Log, plan SurfacePlan) []ReviewCase {
	totals := make(map[TeacherKey]*ReviewCase)
	for _, sh := range shares {
		rc, ok := totals[sh.Teacher]
		if !ok {
			rc = &ReviewCase{Teacher: sh.Teacher, Name: sh.Name, Amount: NewMoney(0)}
			totals[sh.Teacher] = rc
		}
		rc.Hours = rc.Hours.Add(sh.Hours)
		rc.Amount = rc.Amount.Add(sh.Total())
	}

	type rank struct {
		important bool
		excess    bool
		orphan    bool
	}
	ranks := make(map[TeacherKey]rank)
	var cases []*ReviewCase
	for _, e := range log.Entries() {
		if e.Level == LevelInfo || e.Teacher == "" {
			continue
		}
		if plan.Ignore[e.Category] {
			continue
		}
		rc, ok := totals[e.Teacher]
		if !ok {
			rc = &ReviewCase{Teacher: e.Teacher, Name: e.Detail["name"], Amount: NewMoney(0)}
			totals[e.Teacher] = rc
		}
		if len(rc.Reasons) == 0 {
			cases = append(cases, rc)
		}
		rc.Reasons = append(rc.Reasons, string(e.Category)+": "+e.Message)
		if rc.Level == "" || severityRank(e.Level) < severityRank(rc.Level) {
			rc.Level = e.Level
		}
		r := ranks[e.Teacher]
		if plan.Important[e.Category] {
			r.important = true
		}
		switch e.Category {
		case CategoryExceedsLegalHours:
			r.excess = true
		case CategoryWithoutLiquidation:
			r.orphan = true
		}
		ranks[e.Teacher] = r
	}

	block := func(k TeacherKey) int {
		switch r := ranks[k]; {
		case r.important:
			return 0
		case r.excess:
			return 1
		case r.orphan:
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(cases, func(i, j int) bool {
		bi, bj := block(cases[i].Teacher), block(cases[j].Teacher)
		if bi != bj {
			return bi < bj
		}
		return cases[i].Hours.GreaterThan(cases[j].Hours)
	})

	out := make([]ReviewCase, len(cases))
	for i, rc := range cases {
		out[i] = *rc
	}
	return out
}

// =============================================================================
// MULTI-ESTABLISHMENT DETAIL
// =============================================================================

// MultiEstablishmentRow is one line of the MULTI_ESTABLECIMIENTO sheet.
// Detail rows carry the establishment; each teacher closes with a TOTAL row.
type MultiEstablishmentRow struct {
	Teacher       TeacherKey      `json:"teacher"`
	Name          string          `json:"name,omitempty"`
	Establishment EstablishmentID `json:"rbd,omitempty"`
	Category      SubsidyCategory `json:"category,omitempty"`
	Hours         decimal.Decimal `json:"hours"`
	Amount        Money           `json:"amount"`
	IsTotal       bool            `json:"is_total,omitempty"`
}

// BuildMultiEstablishment lists the shares of multi-establishment teachers
// with a trailing per-teacher TOTAL row. Share order is preserved.
func BuildMultiEstablishment(shares []Share) []MultiEstablishmentRow {
	var out []MultiEstablishmentRow
	var order []TeacherKey
	grouped := make(map[TeacherKey][]Share)
	for _, sh := range shares {
		if !sh.MultiEstablishment {
			continue
		}
		if _, seen := grouped[sh.Teacher]; !seen {
			order = append(order, sh.Teacher)
		}
		grouped[sh.Teacher] = append(grouped[sh.Teacher], sh)
	}

	for _, key := range order {
		total := MultiEstablishmentRow{Teacher: key, IsTotal: true, Amount: NewMoney(0)}
		for _, sh := range grouped[key] {
			out = append(out, MultiEstablishmentRow{
				Teacher:       key,
				Name:          sh.Name,
				Establishment: sh.Establishment,
				Category:      sh.Category,
				Hours:         sh.Hours,
				Amount:        sh.Total(),
			})
			total.Name = sh.Name
			total.Hours = total.Hours.Add(sh.Hours)
			total.Amount = total.Amount.Add(sh.Total())
		}
		out = append(out, total)
	}
	return out
}

// =============================================================================
// EIB DETECTION
// =============================================================================

// FlagEIBTeachers marks roster teachers whose whole allocation came out to
// zero while their REM contract classifies them as intercultural bilingual
// educators. Their BRP is paid through a separate program; a zero here is
// expected and informational.
func FlagEIBTeachers(shares []Share, rem []REMRecord, log *Log) {
	eib := make(map[TeacherKey]string)
	for _, r := range rem {
		if r.Category == CategoryEIB {
			eib[r.Teacher] = r.Name
		}
	}
	if len(eib) == 0 {
		return
	}

	totals := make(map[TeacherKey]Money)
	var order []TeacherKey
	for _, sh := range shares {
		if _, seen := totals[sh.Teacher]; !seen {
			order = append(order, sh.Teacher)
			totals[sh.Teacher] = NewMoney(0)
		}
		totals[sh.Teacher] = totals[sh.Teacher].Add(sh.Total())
	}

	for _, key := range order {
		name, isEIB := eib[key]
		if !isEIB || !totals[key].IsZero() {
			continue
		}
		log.Info(CategoryEIBTeacher,
			"intercultural bilingual educator, BRP paid through a separate program",
			ForTeacher(key),
			WithDetail("name", strings.TrimSpace(name)))
	}
}
