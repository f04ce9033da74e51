package receipt

import (
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
)

// Scanner walks a source directory and decides, against the persisted
// ledger, which files need to be submitted for extraction.
type Scanner struct {
	dir       string
	threshold float64

	known  map[string]*Record
	loaded bool

	skipped int
}

// NewScanner creates a Scanner over dir. Records already in the ledger
// at or above threshold confidence are considered done and skipped.
func NewScanner(dir string, threshold float64) *Scanner {
	return &Scanner{
		dir:       dir,
		threshold: threshold,
	}
}

// Load reads the ledger from the source directory. It runs at most once
// per Scanner; later calls are no-ops. A missing ledger file is an
// empty baseline, but a malformed one is fatal: the run must not
// proceed on a partially-trusted ledger.
func (s *Scanner) Load() error {
	if s.loaded {
		return nil
	}

	path := filepath.Join(s.dir, LedgerFilename)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.known = make(map[string]*Record)
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading ledger %s: %w", path, err)
	}

	records, err := ParseLedger(string(data))
	if err != nil {
		return fmt.Errorf("loading ledger %s: %w", path, err)
	}

	s.known = records
	s.loaded = true
	return nil
}

// Known returns the ledger baseline. Load must have succeeded first.
func (s *Scanner) Known() map[string]*Record {
	return s.known
}

// Skipped returns how many directory entries the most recent Scan
// passed over (non-files, unknown types, and known-confident records).
func (s *Scanner) Skipped() int {
	return s.skipped
}

// Scan yields the records that need (re)submission to the extraction
// service: a fresh Record for every file the ledger has never seen, and
// the existing Record for every known entry whose confidence sits below
// the threshold. Known-confident entries, the ledger file itself,
// non-regular files, and files of unknown type are skipped.
//
// The sequence is lazy and single-pass; call Scan again for a fresh
// directory listing.
func (s *Scanner) Scan() (iter.Seq[*Record], error) {
	if err := s.Load(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.dir, err)
	}

	s.skipped = 0
	return func(yield func(*Record) bool) {
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				slog.Info("Skipping non-regular entry", "name", entry.Name())
				s.skipped++
				continue
			}

			filetype := SniffType(filepath.Join(s.dir, entry.Name()))
			if filetype == TypeCSV {
				// The ledger itself is never a receipt.
				continue
			}
			if filetype == TypeUnknown {
				slog.Info("Skipping file of unknown type", "name", entry.Name())
				s.skipped++
				continue
			}

			if known, ok := s.known[entry.Name()]; ok {
				if known.Confidence >= s.threshold {
					slog.Info("Skipping known record", "name", entry.Name(), "confidence", known.Confidence)
					s.skipped++
					continue
				}
				slog.Info("Reprocessing low-confidence record", "name", entry.Name(), "confidence", known.Confidence)
				if !yield(known) {
					return
				}
				continue
			}

			if !yield(NewRecord(entry.Name(), filetype)) {
				return
			}
		}
	}, nil
}

// Merge overlays completed results onto the ledger baseline. Results
// are keyed by the filename the record had when it was scanned, so a
// renamed record supersedes its old ledger entry rather than
// duplicating it. Last write wins per filename.
func (s *Scanner) Merge(results map[string]*Record) map[string]*Record {
	merged := make(map[string]*Record, len(s.known)+len(results))
	for name, rec := range s.known {
		merged[name] = rec
	}
	for scannedName, rec := range results {
		delete(merged, scannedName)
		merged[rec.Filename] = rec
	}
	return merged
}
