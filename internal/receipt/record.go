package receipt

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-scanner/internal/scanning"
)

// Record represents one receipt: its current on-disk filename plus the
// fields extracted from it. The filename is the record's identity
// within a ledger. A zero Date means the date was never extracted (or
// the service could not parse one); Total and Tax are NaN until
// extraction fills them in.
type Record struct {
	Filename   string
	Filetype   FileType
	Date       time.Time
	Name       string
	Total      float64
	Tax        float64
	Confidence float64
}

// NewRecord creates a fresh record for a directory entry that has no
// ledger history. Extracted fields stay at their sentinels until the
// extraction service reports back.
func NewRecord(filename string, filetype FileType) *Record {
	return &Record{
		Filename: filename,
		Filetype: filetype,
		Total:    math.NaN(),
		Tax:      math.NaN(),
	}
}

// Apply returns a copy of the record with the extraction result merged
// in. The receiver is left untouched so a failed or partial batch never
// aliases into the ledger baseline.
func (r Record) Apply(res scanning.Result) *Record {
	r.Date = res.Date
	r.Name = res.Name
	r.Total = res.Total
	r.Tax = res.Tax
	r.Confidence = res.Confidence
	return &r
}

// ShortDate formats the record's date as MMDDYYYY for use in filenames.
func (r *Record) ShortDate() (string, error) {
	if r.Date.IsZero() {
		return "", fmt.Errorf("record %s has no date", r.Filename)
	}
	return r.Date.Format("01022006"), nil
}

// ShortName returns the merchant name normalized for filenames:
// trimmed, internal spaces removed, lowercased.
func (r *Record) ShortName() string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(r.Name), " ", ""))
}

// NeedsNewFilename reports whether the record should be renamed.
// Renaming is confidence-gated: below the threshold the answer is
// always false, so low-confidence extractions never clobber a filename.
// Above it, the current name is kept only when it is already canonical
// for the record's date and merchant, which makes repeated runs
// idempotent.
func (r *Record) NeedsNewFilename(threshold float64) bool {
	if r.Confidence < threshold {
		return false
	}

	shortDate, err := r.ShortDate()
	if err != nil {
		// No usable date, nothing canonical to rename to.
		return false
	}

	stem := strings.TrimSuffix(r.Filename, r.Filetype.Suffix())
	parts := strings.Split(stem, "_")
	if len(parts) != 3 {
		return true
	}
	return parts[0] != shortDate || parts[1] != r.ShortName()
}

// NewFilename derives the canonical filename for the record:
// {MMDDYYYY}_{normalized merchant}_{8 hex chars}{suffix}. The nonce
// makes collisions within a directory practically impossible; there is
// no collision check against the ledger.
func (r *Record) NewFilename() (string, error) {
	shortDate, err := r.ShortDate()
	if err != nil {
		return "", err
	}
	id := uuid.New()
	nonce := hex.EncodeToString(id[:4])
	return fmt.Sprintf("%s_%s_%s%s", shortDate, r.ShortName(), nonce, r.Filetype.Suffix()), nil
}
