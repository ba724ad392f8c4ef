/*
rut.go - Identity normalization for the RUT join key

PURPOSE:
  Every input source spells the national identifier differently:
  "12.345.678-5", "12345678-5", "123456785", lowercase "k" verifiers.
  All of them must collapse to one canonical TeacherKey or the three
  sources cannot be joined.

CANONICAL FORM:
  digit body + verifier character (0-9 or K), uppercase, no dots,
  no hyphen, no spaces. "12.345.678-k" -> "12345678K".

NO VERIFIER ARITHMETIC:
  The check digit is carried, not validated. The liquidation exports
  contain legacy identifiers whose verifier would not recompute; rejecting
  them would drop real people from a payroll run. Shape is validated,
  arithmetic is not.
*/
package brp

import (
	"strings"
	"unicode"
)

// NormalizeRUT canonicalizes a raw identifier into a TeacherKey.
// Pure function; fails with *InvalidIdentifierError when the input cannot
// be reduced to digit-body + check-character shape.
func NormalizeRUT(raw string) (TeacherKey, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", &InvalidIdentifierError{Raw: raw, Reason: "empty"}
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r) || r == 'K':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == ' ':
			// separators, dropped
		default:
			return "", &InvalidIdentifierError{Raw: raw, Reason: "unexpected character"}
		}
	}

	key := b.String()
	if len(key) < 2 {
		return "", &InvalidIdentifierError{Raw: raw, Reason: "too short"}
	}

	body, verifier := key[:len(key)-1], key[len(key)-1]
	if verifier != 'K' && !isDigitByte(verifier) {
		return "", &InvalidIdentifierError{Raw: raw, Reason: "invalid check character"}
	}
	for i := 0; i < len(body); i++ {
		if !isDigitByte(body[i]) {
			// "K" may only appear as the verifier
			return "", &InvalidIdentifierError{Raw: raw, Reason: "check character inside body"}
		}
	}

	return TeacherKey(key), nil
}

func isDigitByte(c byte) bool { return c >= '0' && c <= '9' }

// FormatRUT renders a TeacherKey back to the familiar "body-verifier" form
// for display. Inverse of NormalizeRUT up to separators.
func FormatRUT(key TeacherKey) string {
	s := string(key)
	if len(s) < 2 {
		return s
	}
	return s[:len(s)-1] + "-" + s[len(s)-1:]
}
