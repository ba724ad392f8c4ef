package brp_test

import (
	"errors"
	"testing"

	"github.com/leftra123/remupro-v3/brp"
)

func TestNormalizeRUT_CanonicalForms(t *testing.T) {
	// GIVEN: The same identifier spelled the way each source spells it
	// WHEN: Normalized
	// THEN: All collapse to the same TeacherKey

	cases := []struct {
		raw  string
		want brp.TeacherKey
	}{
		{"12.345.678-5", "123456785"},
		{"12345678-5", "123456785"},
		{"123456785", "123456785"},
		{" 12345678-5 ", "123456785"},
		{"9.876.543-k", "9876543K"},
		{"9876543-K", "9876543K"},
	}
	for _, c := range cases {
		got, err := brp.NormalizeRUT(c.raw)
		if err != nil {
			t.Fatalf("NormalizeRUT(%q): unexpected error %v", c.raw, err)
		}
		if got != c.want {
			t.Errorf("NormalizeRUT(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestNormalizeRUT_Rejections(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"5",           // too short, no verifier
		"12a45678-5",  // letter inside body
		"12K45678-5",  // K inside body
		"12345678-*",  // junk verifier
		"12/345/678",  // unexpected separator
	}
	for _, raw := range cases {
		_, err := brp.NormalizeRUT(raw)
		if err == nil {
			t.Errorf("NormalizeRUT(%q): expected error, got none", raw)
			continue
		}
		if !errors.Is(err, brp.ErrInvalidIdentifier) {
			t.Errorf("NormalizeRUT(%q): error does not unwrap to ErrInvalidIdentifier: %v", raw, err)
		}
		var ie *brp.InvalidIdentifierError
		if !errors.As(err, &ie) {
			t.Errorf("NormalizeRUT(%q): error is not *InvalidIdentifierError: %v", raw, err)
		}
	}
}

func TestNormalizeRUT_CarriesVerifierWithoutArithmetic(t *testing.T) {
	// GIVEN: An identifier whose check digit would not recompute
	// WHEN: Normalized
	// THEN: Accepted anyway; shape is validated, arithmetic is not
	got, err := brp.NormalizeRUT("11.111.111-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "111111119" {
		t.Errorf("got %q", got)
	}
}

func TestFormatRUT_RoundTrip(t *testing.T) {
	key, err := brp.NormalizeRUT("12.345.678-K")
	if err != nil {
		t.Fatal(err)
	}
	if got := brp.FormatRUT(key); got != "12345678-K" {
		t.Errorf("FormatRUT = %q, want %q", got, "12345678-K")
	}
}
