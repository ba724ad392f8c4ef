/*
Package schools resolves establishment codes (RBD) to display names and
matches free-text school names back to known establishments.

The directory itself is configuration, not code: it is loaded from a JSON
file maintained by the payroll office, because the commune opens, merges
and renames schools more often than this software ships. An empty
directory is valid; every lookup then falls back to the raw RBD.
*/
package schools

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/leftra123/remupro-v3/brp"
	"github.com/leftra123/remupro-v3/tabular"
)

// Entry is one known establishment.
type Entry struct {
	// RBD is the bare establishment code, without the check digit.
	RBD string `json:"rbd"`
	// RBDDV is the code with check digit, "6710-5", as MINEDUC prints it.
	RBDDV string `json:"rbd_dv"`
	Name  string `json:"establecimiento"`
}

// Directory is an immutable establishment lookup. Safe for concurrent use.
type Directory struct {
	entries []Entry
	byRBD   map[string]Entry
}

// DAEM is the entry every education-directorate location resolves to.
var DAEM = Entry{RBD: string(CentralRBD), Name: "DAEM"}

// CentralRBD is the pseudo-code for the central administration.
const CentralRBD brp.EstablishmentID = "DEM"

// NewDirectory builds a directory from entries.
func NewDirectory(entries []Entry) *Directory {
	d := &Directory{entries: entries, byRBD: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.RBD != "" {
			d.byRBD[e.RBD] = e
		}
	}
	return d
}

// Load reads the establishment directory from a JSON file. A missing file
// yields an empty directory, not an error; the file is optional deployment
// configuration.
func Load(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewDirectory(nil), nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "schools: read directory file")
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, eris.Wrap(err, "schools: parse directory file")
	}
	return NewDirectory(entries), nil
}

// Name returns the display name for an establishment code, or the code
// itself when the directory does not know it.
func (d *Directory) Name(rbd brp.EstablishmentID) string {
	if rbd == CentralRBD {
		return DAEM.Name
	}
	if e, ok := d.byRBD[string(rbd)]; ok {
		return e.Name
	}
	return string(rbd)
}

// Match resolves a free-text location (as printed on a liquidation) to a
// known establishment. Returns false when nothing matches.
func (d *Directory) Match(location string) (Entry, bool) {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return Entry{}, false
	}

	up := strings.ToUpper(loc)
	if strings.Contains(up, "EDUCACION") || strings.Contains(up, "EDUCACIÓN") || strings.Contains(up, "DAEM") {
		return DAEM, true
	}

	norm := normalizeName(loc)
	for _, e := range d.entries {
		if normalizeName(e.Name) == norm {
			return e, true
		}
	}

	// second pass without spaces and articles, absorbing typos
	compact := compactName(loc)
	for _, e := range d.entries {
		if compactName(e.Name) == compact {
			return e, true
		}
	}

	// containment: the directory name inside the longer location text
	for _, e := range d.entries {
		if n := normalizeName(e.Name); n != "" && strings.Contains(norm, n) {
			return e, true
		}
	}
	return Entry{}, false
}

var (
	staAbbrev     = regexp.MustCompile(`\bSTA\b`)
	// the check digit may be dash- or space-separated after folding
	rbdSuffix     = regexp.MustCompile(`\s*RBD\s*\d+(?:[ -]\d+)?\s*$`)
	ordinalSuffix = regexp.MustCompile(`\s*(?:G\s*)?(?:N|NRO)\s*\d+\s*$`)
	fSuffix       = regexp.MustCompile(`\s*F\s+\d+\s*$`)
	articles      = regexp.MustCompile(`\b(EL|LA|LOS|LAS)\b`)
	looseLetters  = regexp.MustCompile(`\b[A-Z]\b`)
)

// normalizeName folds a school name for comparison: accents and
// punctuation dropped, STA expanded, RBD/ordinal/F suffixes stripped.
func normalizeName(name string) string {
	n := tabular.NormalizeHeader(name)
	n = staAbbrev.ReplaceAllString(n, "SANTA")
	n = strings.ReplaceAll(n, "ESPECIAL ", "")
	n = rbdSuffix.ReplaceAllString(n, "")
	n = ordinalSuffix.ReplaceAllString(n, "")
	n = fSuffix.ReplaceAllString(n, "")
	return strings.TrimSpace(n)
}

func compactName(name string) string {
	n := normalizeName(name)
	n = articles.ReplaceAllString(n, "")
	n = looseLetters.ReplaceAllString(n, "")
	return strings.ReplaceAll(n, " ", "")
}
