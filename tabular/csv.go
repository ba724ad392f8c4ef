package tabular

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ReadCSVFile loads a CSV export. Delimiter (comma or semicolon) and
// encoding (UTF-8 or Latin-1) are detected; the municipal exports use all
// four combinations depending on which machine produced them.
func ReadCSVFile(path, kind string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, eris.Wrapf(err, "tabular: open %s csv", kind)
	}
	defer f.Close()
	return ReadCSV(f, kind)
}

// ReadCSV loads a CSV stream into a Dataset.
func ReadCSV(r io.Reader, kind string) (Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Dataset{}, eris.Wrapf(err, "tabular: read %s csv", kind)
	}
	raw = decodeToUTF8(raw)
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}) // UTF-8 BOM

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = detectDelimiter(raw)
	reader.FieldsPerRecord = -1 // ragged rows are the parser's problem
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return Dataset{}, eris.Wrapf(err, "tabular: parse %s csv", kind)
	}
	if len(records) == 0 {
		return Dataset{}, headerError(kind)
	}

	return Dataset{Kind: kind, Headers: records[0], Rows: records[1:]}, nil
}

// decodeToUTF8 passes valid UTF-8 through and re-decodes everything else
// as Windows-1252, the encoding the authority's older Excel installs emit.
func decodeToUTF8(raw []byte) []byte {
	if utf8.Valid(raw) {
		return raw
	}
	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
	if err != nil {
		return raw
	}
	return decoded
}

// detectDelimiter picks comma or semicolon by whichever dominates the
// first line. Chilean locales export semicolon CSV because the comma is
// the decimal mark.
func detectDelimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	if strings.Count(string(line), ";") > strings.Count(string(line), ",") {
		return ';'
	}
	return ','
}
