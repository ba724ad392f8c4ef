package schools_test

import (
	"testing"

	"github.com/leftra123/remupro-v3/schools"
)

func testDirectory() *schools.Directory {
	return schools.NewDirectory([]schools.Entry{
		{RBD: "6710", RBDDV: "6710-5", Name: "ESCUELA DAME LA MANO"},
		{RBD: "6711", RBDDV: "6711-3", Name: "LICEO SANTA ROSA"},
		{RBD: "6712", RBDDV: "6712-1", Name: "ESCUELA LOS AROMOS"},
	})
}

func TestDirectory_Name(t *testing.T) {
	d := testDirectory()

	if got := d.Name("6710"); got != "ESCUELA DAME LA MANO" {
		t.Errorf("Name(6710) = %q", got)
	}
	if got := d.Name("9999"); got != "9999" {
		t.Errorf("unknown RBD must fall back to the code, got %q", got)
	}
	if got := d.Name(schools.CentralRBD); got != "DAEM" {
		t.Errorf("Name(DEM) = %q", got)
	}
}

func TestDirectory_Match(t *testing.T) {
	d := testDirectory()

	cases := []struct {
		location string
		wantRBD  string
	}{
		{"ESCUELA DAME LA MANO", "6710"},
		{"Escuela Dame La Mano RBD 6710-5", "6710"},   // suffix stripped
		{"LICEO STA. ROSA", "6711"},                   // abbreviation expanded
		{"ESCUELA AROMOS", "6712"},                    // article dropped, compact match
		{"ESCUELA DAME LA MANO F 838", "6710"},        // F suffix stripped
	}
	for _, c := range cases {
		e, ok := d.Match(c.location)
		if !ok {
			t.Errorf("Match(%q): no match", c.location)
			continue
		}
		if e.RBD != c.wantRBD {
			t.Errorf("Match(%q) = RBD %s, want %s", c.location, e.RBD, c.wantRBD)
		}
	}

	if e, ok := d.Match("DIR. DE EDUCACION"); !ok || e.Name != "DAEM" {
		t.Errorf("education directorate must resolve to DAEM, got %+v ok=%v", e, ok)
	}
	if _, ok := d.Match("ESCUELA INEXISTENTE"); ok {
		t.Error("unknown location must not match")
	}
	if _, ok := d.Match(""); ok {
		t.Error("empty location must not match")
	}
}
