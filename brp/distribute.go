/*
distribute.go - The proportional BRP allocation algorithm

ALGORITHM (per teacher):
  1. Gather the teacher's liquidation records from both subsidy parsers.
     No records -> ERROR audit entry, teacher excluded (no distribution
     without hour evidence). Review case, not a run failure.
  2. total_hours = sum of record hours. Zero -> WARNING, skip (division
     guard); the roster amount stays undistributed and flagged.
  3. total_hours above the legal ceiling -> WARNING EXCEEDS_LEGAL_HOURS.
     Distribution still proceeds on the actual total: over-limit hours
     count toward the proportion base, the alert exists for human review.
  4. For each roster concept amount A and each record r:
       share(r) = A * r.hours / total_hours, rounded to whole pesos.
     The rounding residue A - sum(rounded shares) is assigned to the
     record with the largest hours (tie: first record in (RBD, category)
     lexical order), so shares always sum exactly to A.
  5. Sponsor/transfer sub-amounts with real roster breakdowns are split by
     the same rule; concepts without a breakdown get the nominal
     sponsor-share split, display only.

CONSERVATION:
  For every (teacher, concept): sum of allocated shares == roster amount,
  exactly, after remainder assignment. This is the invariant the whole
  repository exists to uphold; see distribute_test.go.
*/
package brp

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// Distribute allocates every roster concept across the teacher's
// liquidation records. Returns one Share per surviving
// (teacher, establishment, category) combination, ordered by
// (teacher, establishment, category).
//
// Pure with respect to its inputs; all findings go to log.
func Distribute(roster []RosterRow, records []LiquidationRecord, th Thresholds, log *Log) []Share {
	byTeacher := groupRecords(records)
	teachers := rosterTeachers(roster)

	var shares []Share
	for _, key := range teachers.order {
		rows := teachers.rows[key]
		recs := byTeacher[key]

		if len(recs) == 0 {
			log.Error(CategoryWithoutLiquidation,
				"teacher in roster but no liquidation record found",
				ForTeacher(key),
				WithDetail("name", rosterName(rows)))
			continue
		}

		totalHours := decimal.Zero
		for _, r := range recs {
			totalHours = totalHours.Add(r.Hours)
		}

		if totalHours.IsZero() {
			log.Warning(CategoryZeroHours,
				"all liquidation hours are zero; amounts left undistributed",
				ForTeacher(key),
				WithDetail("name", rosterName(rows)))
			continue
		}

		if totalHours.GreaterThan(th.MaxWeeklyHours) {
			log.Warning(CategoryExceedsLegalHours,
				fmt.Sprintf("total liquidation hours %s exceed the legal ceiling %s",
					totalHours.String(), th.MaxWeeklyHours.String()),
				ForTeacher(key),
				WithDetail(
					"name", rosterName(rows),
					"total_hours", totalHours.String(),
					"excess", totalHours.Sub(th.MaxWeeklyHours).String(),
					"detail", hoursBreakdown(recs),
				))
		}

		shares = append(shares, distributeTeacher(key, rows, nonZeroHours(recs), totalHours, th)...)
	}
	return shares
}

// distributeTeacher builds the teacher's Share rows. recs must be non-empty
// with a positive hour total.
func distributeTeacher(key TeacherKey, rows []RosterRow, recs []LiquidationRecord, totalHours decimal.Decimal, th Thresholds) []Share {
	sortRecords(recs)
	multi := distinctEstablishments(recs) >= 2

	shares := make([]Share, len(recs))
	for i, r := range recs {
		shares[i] = Share{
			Teacher:            key,
			Name:               firstNonEmpty(rosterName(rows), r.Name),
			Establishment:      r.Establishment,
			Category:           r.Category,
			Hours:              r.Hours,
			MultiEstablishment: multi,
		}
	}

	sponsorRatio := th.SponsorSharePct.Div(oneHundred)
	for _, code := range ConceptOrder {
		total, sponsor, transfer := conceptTotals(rows, code)
		if total.IsZero() && sponsor.IsZero() && transfer.IsZero() {
			continue
		}

		amounts := splitProportional(total, recs, totalHours)

		var sponsors, transfers []Money
		if sponsor.IsZero() && transfer.IsZero() {
			// No real breakdown on the roster: nominal split, derived from
			// the already-conserved share so the two halves re-add exactly.
			sponsors = make([]Money, len(recs))
			transfers = make([]Money, len(recs))
			for i := range recs {
				sponsors[i] = amounts[i].Mul(sponsorRatio).Round()
				transfers[i] = amounts[i].Sub(sponsors[i])
			}
		} else {
			sponsors = splitProportional(sponsor, recs, totalHours)
			transfers = splitProportional(transfer, recs, totalHours)
		}

		for i := range shares {
			shares[i].Concepts = append(shares[i].Concepts, ConceptShare{
				Code:     code,
				Amount:   amounts[i],
				Sponsor:  sponsors[i],
				Transfer: transfers[i],
			})
		}
	}
	return shares
}

// splitProportional divides amount across records in proportion to hours,
// rounding each slice to whole pesos and assigning the residue to the
// record with the largest hours (first in sort order on ties). The returned
// slices always sum exactly to amount.Round().
func splitProportional(amount Money, recs []LiquidationRecord, totalHours decimal.Decimal) []Money {
	target := amount.Round()
	out := make([]Money, len(recs))

	allocated := NewMoney(0)
	largest := 0
	for i, r := range recs {
		out[i] = target.Mul(r.Hours).Div(totalHours).Round()
		allocated = allocated.Add(out[i])
		if r.Hours.GreaterThan(recs[largest].Hours) {
			largest = i
		}
	}

	if residue := target.Sub(allocated); !residue.IsZero() {
		out[largest] = out[largest].Add(residue)
	}
	return out
}

// conceptTotals sums a concept across the teacher's roster rows.
func conceptTotals(rows []RosterRow, code ConceptCode) (total, sponsor, transfer Money) {
	total, sponsor, transfer = NewMoney(0), NewMoney(0), NewMoney(0)
	for _, row := range rows {
		c := row.Concept(code)
		total = total.Add(c.Total)
		sponsor = sponsor.Add(c.Sponsor)
		transfer = transfer.Add(c.Transfer)
	}
	return total.Round(), sponsor.Round(), transfer.Round()
}

// =============================================================================
// GROUPING HELPERS
// =============================================================================

type rosterIndex struct {
	order []TeacherKey
	rows  map[TeacherKey][]RosterRow
}

// rosterTeachers indexes roster rows by teacher, preserving first-seen order
// so output and audit ordering are deterministic for identical input.
func rosterTeachers(roster []RosterRow) rosterIndex {
	idx := rosterIndex{rows: make(map[TeacherKey][]RosterRow)}
	for _, row := range roster {
		if _, seen := idx.rows[row.Teacher]; !seen {
			idx.order = append(idx.order, row.Teacher)
		}
		idx.rows[row.Teacher] = append(idx.rows[row.Teacher], row)
	}
	return idx
}

// nonZeroHours drops the zero-hour records the parsers keep for the
// zero-hours guard; they carry no proportion and must not become shares.
func nonZeroHours(recs []LiquidationRecord) []LiquidationRecord {
	out := make([]LiquidationRecord, 0, len(recs))
	for _, r := range recs {
		if !r.Hours.IsZero() {
			out = append(out, r)
		}
	}
	return out
}

func groupRecords(records []LiquidationRecord) map[TeacherKey][]LiquidationRecord {
	m := make(map[TeacherKey][]LiquidationRecord)
	for _, r := range records {
		m[r.Teacher] = append(m[r.Teacher], r)
	}
	return m
}

func sortRecords(recs []LiquidationRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Establishment != recs[j].Establishment {
			return recs[i].Establishment < recs[j].Establishment
		}
		return recs[i].Category < recs[j].Category
	})
}

func distinctEstablishments(recs []LiquidationRecord) int {
	seen := make(map[EstablishmentID]struct{}, len(recs))
	for _, r := range recs {
		seen[r.Establishment] = struct{}{}
	}
	return len(seen)
}

func rosterName(rows []RosterRow) string {
	for _, r := range rows {
		if r.Name != "" {
			return r.Name
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func hoursBreakdown(recs []LiquidationRecord) string {
	byCat := make(map[SubsidyCategory]decimal.Decimal)
	for _, r := range recs {
		byCat[r.Category] = byCat[r.Category].Add(r.Hours)
	}
	s := ""
	for _, cat := range DistributionCategories {
		if h, ok := byCat[cat]; ok {
			if s != "" {
				s += " + "
			}
			s += fmt.Sprintf("%s:%s", cat, h.String())
		}
	}
	return s
}
