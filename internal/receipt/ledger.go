package receipt

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LedgerFilename is the name of the ledger file inside the source
// directory.
const LedgerFilename = "records.csv"

// ledgerHeader is the exact first line of every ledger file. Field
// order is fixed; rows are comma-joined with no quoting or escaping.
// Merchant names are normalized before they are ever embedded, so a
// raw comma cannot appear in a well-formed ledger.
const ledgerHeader = "date,name,total,tax,confidence,filename"

const ledgerFieldCount = 6

// FormatError marks a ledger file that cannot be trusted: a header
// mismatch or a malformed row. It is fatal for the run.
type FormatError struct {
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("ledger format error at line %d: %s", e.Line, e.Msg)
}

// ParseLedger parses ledger text into a mapping from filename to
// record. The first line must equal the expected header exactly and
// every non-blank row must carry exactly the header's field count, each
// field parsing at its fixed type. Blank trailing lines are ignored.
func ParseLedger(text string) (map[string]*Record, error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != ledgerHeader {
		got := ""
		if len(lines) > 0 {
			got = lines[0]
		}
		return nil, &FormatError{Line: 1, Msg: fmt.Sprintf("expected header %q, got %q", ledgerHeader, got)}
	}

	records := make(map[string]*Record)
	for i, line := range lines[1:] {
		lineNo := i + 2
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != ledgerFieldCount {
			return nil, &FormatError{Line: lineNo, Msg: fmt.Sprintf("expected %d fields, got %d", ledgerFieldCount, len(fields))}
		}

		date, err := time.Parse("2006-01-02", fields[0])
		if err != nil {
			return nil, &FormatError{Line: lineNo, Msg: fmt.Sprintf("bad date %q", fields[0])}
		}

		total, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, &FormatError{Line: lineNo, Msg: fmt.Sprintf("bad total %q", fields[2])}
		}
		tax, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, &FormatError{Line: lineNo, Msg: fmt.Sprintf("bad tax %q", fields[3])}
		}
		confidence, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, &FormatError{Line: lineNo, Msg: fmt.Sprintf("bad confidence %q", fields[4])}
		}

		filename := fields[5]
		records[filename] = &Record{
			Filename:   filename,
			Filetype:   ParseFileType(filepath.Ext(filename)),
			Date:       date,
			Name:       fields[1],
			Total:      total,
			Tax:        tax,
			Confidence: confidence,
		}
	}

	return records, nil
}

// SerializeLedger renders records as ledger text, header first, one row
// per record in the order given.
func SerializeLedger(records []*Record) string {
	var b strings.Builder
	b.WriteString(ledgerHeader)
	b.WriteByte('\n')
	for _, r := range records {
		b.WriteString(strings.Join([]string{
			r.Date.Format("2006-01-02"),
			r.Name,
			strconv.FormatFloat(r.Total, 'f', -1, 64),
			strconv.FormatFloat(r.Tax, 'f', -1, 64),
			strconv.FormatFloat(r.Confidence, 'f', -1, 64),
			r.Filename,
		}, ","))
		b.WriteByte('\n')
	}
	return b.String()
}
