/*
Package brp implements the BRP (Bonificación de Reconocimiento Profesional)
distribution engine.

PURPOSE:
  This package contains the domain types and algorithms that reconcile the
  three payroll sources of a municipal education authority (MINEDUC roster,
  SEP liquidation, PIE/Normal liquidation) and distribute every monetary
  concept of the roster across funding categories and establishments in
  proportion to worked hours.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A whole-peso amount backed by decimal.Decimal
  - TeacherKey / EstablishmentID: Type-safe identifiers (normalized RUT, RBD)
  - SubsidyCategory: The funding category a contract hour is booked under
  - RosterRow: One MINEDUC roster row (teacher at an establishment)
  - LiquidationRecord: Worked hours per (teacher, establishment, category)
  - Share: One distribution result row per (teacher, establishment, category)

DESIGN PRINCIPLES:
  1. Statelessness: A run takes all inputs as arguments and returns a
     self-contained result; two runs never share mutable state.
  2. Precision: decimal.Decimal avoids floating-point drift in money math.
  3. Conservation: For every teacher and concept, the allocated shares sum
     exactly to the roster amount after remainder assignment.
  4. Auditability: Anything worth a human's attention becomes an audit
     entry, never a panic and never a dropped row.

SEE ALSO:
  - rut.go: identity normalization (the join key across sources)
  - distribute.go: the proportional allocation algorithm
  - alerts.go: cross-source consistency checks
  - aggregate.go: per-establishment and global rollups
*/
package brp

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Whole-peso amount
// =============================================================================

// Money is an amount of Chilean pesos. The domain has no decimal sub-unit;
// rounding to whole pesos happens only inside the distributor's remainder
// logic, everywhere else Money is carried as-is.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(v int64) Money {
	return Money{Value: decimal.NewFromInt(v)}
}

func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Value: d}
}

// ParseMoney parses a money cell. Thousands separators and a leading "$"
// are tolerated because the liquidation exports carry them inconsistently.
func ParseMoney(s string) (Money, error) {
	d, err := parseNumericCell(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: d}, nil
}

func (m Money) Add(o Money) Money          { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money          { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(d decimal.Decimal) Money { return Money{Value: m.Value.Mul(d)} }
func (m Money) Div(d decimal.Decimal) Money { return Money{Value: m.Value.Div(d)} }
func (m Money) Round() Money               { return Money{Value: m.Value.Round(0)} }
func (m Money) Neg() Money                 { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) IsPositive() bool           { return m.Value.IsPositive() }
func (m Money) GreaterThan(o Money) bool   { return m.Value.GreaterThan(o.Value) }
func (m Money) Equal(o Money) bool         { return m.Value.Equal(o.Value) }
func (m Money) Int64() int64               { return m.Value.Round(0).IntPart() }
func (m Money) String() string             { return m.Value.String() }

// Money serializes as the bare decimal, not as a struct.

func (m Money) MarshalJSON() ([]byte, error) { return m.Value.MarshalJSON() }

func (m *Money) UnmarshalJSON(data []byte) error { return m.Value.UnmarshalJSON(data) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

// TeacherKey is a normalized RUT: digit body plus verifier character,
// uppercase, no dots, no hyphen. Produced only by NormalizeRUT.
type TeacherKey string

// EstablishmentID is an RBD school code. Opaque to the engine; display
// names are resolved externally (see the schools package).
type EstablishmentID string

// =============================================================================
// SUBSIDY CATEGORIES
// =============================================================================

// SubsidyCategory is the funding source a block of contract hours is booked
// under. SEP, PIE and Normal participate in distribution; EIB and Unknown
// only occur in the advisory REM classification.
type SubsidyCategory string

const (
	CategorySEP     SubsidyCategory = "SEP"
	CategoryPIE     SubsidyCategory = "PIE"
	CategoryNormal  SubsidyCategory = "NORMAL"
	CategoryEIB     SubsidyCategory = "EIB"
	CategoryUnknown SubsidyCategory = "UNKNOWN"
)

// DistributionCategories are the categories that may carry allocated money,
// in reporting order.
var DistributionCategories = []SubsidyCategory{CategorySEP, CategoryPIE, CategoryNormal}

// =============================================================================
// ROSTER - MINEDUC source (authoritative concept amounts)
// =============================================================================

// ConceptCode names a monetary concept of the roster.
type ConceptCode string

const (
	// ConceptRecognition is "Total reconocimiento profesional".
	ConceptRecognition ConceptCode = "recognition"
	// ConceptTier is "Total tramo" (career-tier assignment).
	ConceptTier ConceptCode = "tier"
	// ConceptPriority is "Asignación directa alumnos prioritarios".
	// Funded entirely by central transfer; it has no sponsor sub-amount.
	ConceptPriority ConceptCode = "priority_students"
)

// ConceptOrder is the fixed reporting order of concepts.
var ConceptOrder = []ConceptCode{ConceptRecognition, ConceptTier, ConceptPriority}

// ConceptAmount is one roster concept on one roster row: the total plus the
// sponsor (DAEM subvención) and central-transfer (CPEIP) sub-amounts when
// the export carries them. Sponsor+Transfer may not add up to Total on dirty
// data; Total is authoritative, the sub-amounts are display detail.
type ConceptAmount struct {
	Code     ConceptCode
	Total    Money
	Sponsor  Money
	Transfer Money
}

// RosterRow is one row of the MINEDUC roster: a teacher registered at one
// establishment for the processing month. A multi-establishment teacher
// appears once per RBD. Immutable once parsed.
type RosterRow struct {
	Teacher       TeacherKey
	Establishment EstablishmentID
	Name          string
	PaymentType   string
	Tier          string
	ContractHours decimal.Decimal
	Concepts      []ConceptAmount
}

// Concept returns the row's amount for a code, zero-valued if absent.
func (r RosterRow) Concept(code ConceptCode) ConceptAmount {
	for _, c := range r.Concepts {
		if c.Code == code {
			return c
		}
	}
	return ConceptAmount{Code: code}
}

// =============================================================================
// LIQUIDATION - SEP / PIE-Normal sources (worked hours)
// =============================================================================

// LiquidationRecord is worked hours for a teacher at one establishment under
// one subsidy category, as extracted by a subsidy parser. Several records
// per teacher are normal (multiple schools, multiple categories).
type LiquidationRecord struct {
	Teacher       TeacherKey
	Name          string
	Establishment EstablishmentID
	Category      SubsidyCategory
	Hours         decimal.Decimal
	// Source is the sheet kind that produced the record ("SEP", "PIE").
	Source string
}

// =============================================================================
// REM - advisory contract classification
// =============================================================================

// REMRecord is one classified contract line from the optional REM source.
// Advisory only: used by the alert engine to corroborate hour totals, never
// by the distributor.
type REMRecord struct {
	Teacher       TeacherKey
	Name          string
	Establishment EstablishmentID
	Category      SubsidyCategory
	Hours         decimal.Decimal
	RawContract   string
}

// =============================================================================
// DISTRIBUTION RESULT
// =============================================================================

// ConceptShare is the allocated slice of one roster concept on one Share.
type ConceptShare struct {
	Code     ConceptCode
	Amount   Money
	Sponsor  Money
	Transfer Money
}

// Share is one distribution result row: the money allocated to a
// (teacher, establishment, category) combination. Derived, recomputed every
// run; persisted only as a snapshot for month comparison.
type Share struct {
	Teacher       TeacherKey
	Name          string
	Establishment EstablishmentID
	Category      SubsidyCategory
	Hours         decimal.Decimal
	Concepts      []ConceptShare
	// MultiEstablishment marks teachers whose liquidation spans >=2 RBDs.
	MultiEstablishment bool
}

// Concept returns the share's slice for a concept code, zero-valued if absent.
func (s Share) Concept(code ConceptCode) ConceptShare {
	for _, c := range s.Concepts {
		if c.Code == code {
			return c
		}
	}
	return ConceptShare{Code: code}
}

// Total is the full BRP allocated to this share across all concepts.
func (s Share) Total() Money {
	t := NewMoney(0)
	for _, c := range s.Concepts {
		t = t.Add(c.Amount)
	}
	return t
}

// SponsorTotal sums the sponsor-funded slices across concepts.
func (s Share) SponsorTotal() Money {
	t := NewMoney(0)
	for _, c := range s.Concepts {
		t = t.Add(c.Sponsor)
	}
	return t
}

// TransferTotal sums the central-transfer slices across concepts.
func (s Share) TransferTotal() Money {
	t := NewMoney(0)
	for _, c := range s.Concepts {
		t = t.Add(c.Transfer)
	}
	return t
}

// =============================================================================
// PRIOR MONTH - input to the month-over-month check
// =============================================================================

// PriorMonth carries the per-teacher BRP totals of an earlier stored run.
// Built from a history snapshot by the caller; the engine itself never
// touches storage.
type PriorMonth struct {
	Month  string
	Totals map[TeacherKey]Money
}
