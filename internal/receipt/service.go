package receipt

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/zombor/receipt-scanner/internal/scanning"
)

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Options control a run's behavior.
type Options struct {
	// Threshold is the confidence below which records are reprocessed
	// and above which files may be renamed
	Threshold float64

	// Rename physically renames files to their canonical names
	Rename bool

	// Write rewrites the ledger file; otherwise the merged ledger is
	// printed
	Write bool
}

// Service runs one scan-extract-merge cycle over a source directory.
type Service struct {
	scanner    *Scanner
	storage    Storage
	extractor  scanning.Extractor
	history    History // optional
	opts       Options
	out        io.Writer
	timeSource TimeSource
}

// NewService creates a Service that prints to stdout when not writing.
func NewService(scanner *Scanner, storage Storage, extractor scanning.Extractor, opts Options) *Service {
	return &Service{
		scanner:    scanner,
		storage:    storage,
		extractor:  extractor,
		opts:       opts,
		out:        os.Stdout,
		timeSource: &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a Service with custom dependencies for
// testing.
func NewServiceWithDeps(scanner *Scanner, storage Storage, extractor scanning.Extractor, history History, opts Options, out io.Writer, timeSrc TimeSource) *Service {
	return &Service{
		scanner:    scanner,
		storage:    storage,
		extractor:  extractor,
		history:    history,
		opts:       opts,
		out:        out,
		timeSource: timeSrc,
	}
}

// WithHistory attaches a run journal.
func (s *Service) WithHistory(history History) *Service {
	s.history = history
	return s
}

// Run executes one cycle: scan the directory against the ledger, submit
// the work items, rename confidently-extracted files, merge the results
// over the baseline, and write (or print) the new ledger. A malformed
// ledger aborts before any extraction call; every per-file failure is
// logged, counted, and contained to that file.
func (s *Service) Run(ctx context.Context) (*RunSummary, error) {
	start := s.timeSource.Now()

	work, err := s.scanner.Scan()
	if err != nil {
		return nil, err
	}

	var failed, duplicates int
	seen := make(map[[sha256.Size]byte]string)
	results := make(map[string]*Record) // keyed by filename at scan time

	for rec := range work {
		data, err := s.storage.ReadFile(rec.Filename)
		if err != nil {
			slog.Error("Failed to read file", "filename", rec.Filename, "error", err)
			failed++
			continue
		}

		hash := sha256.Sum256(data)
		if first, ok := seen[hash]; ok {
			slog.Warn("Skipping duplicate file", "filename", rec.Filename, "duplicate_of", first)
			duplicates++
			continue
		}
		seen[hash] = rec.Filename

		result, err := s.extractor.Extract(ctx, rec.Filename, data, rec.Filetype.MIME())
		if err != nil {
			slog.Error("Failed to process file", "filename", rec.Filename, "error", err)
			failed++
			continue
		}

		results[rec.Filename] = rec.Apply(*result)
	}

	var renamed int
	if s.opts.Rename {
		renamed = s.renameAll(results)
	}

	merged := s.scanner.Merge(results)
	ordered := make([]*Record, 0, len(merged))
	for _, rec := range merged {
		ordered = append(ordered, rec)
	}
	// Sorted output keeps reruns byte-identical.
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Filename < ordered[j].Filename })

	text := SerializeLedger(ordered)
	if s.opts.Write {
		if err := s.storage.WriteLedger(text); err != nil {
			return nil, fmt.Errorf("writing ledger: %w", err)
		}
		slog.Info("Wrote ledger", "records", len(ordered))
	} else {
		fmt.Fprint(s.out, text)
	}

	summary := &RunSummary{
		StartedAt: start,
		Processed: len(results),
		Skipped:   s.scanner.Skipped() + duplicates,
		Failed:    failed,
		Renamed:   renamed,
	}

	if s.history != nil {
		if err := s.history.SaveRun(summary); err != nil {
			slog.Warn("Failed to record run summary", "error", err)
		}
	}

	slog.Info("Run complete",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"renamed", summary.Renamed,
	)
	return summary, nil
}

// renameAll renames every completed record that needs it. Results are
// keyed by their scan-time filename, which Merge later uses to drop
// superseded ledger entries.
func (s *Service) renameAll(results map[string]*Record) int {
	var renamed int
	for scannedName, rec := range results {
		if !rec.NeedsNewFilename(s.opts.Threshold) {
			slog.Info("Skipped renaming", "filename", scannedName)
			continue
		}

		newName, err := rec.NewFilename()
		if err != nil {
			slog.Warn("Cannot derive filename", "filename", scannedName, "error", err)
			continue
		}
		if err := s.storage.Rename(scannedName, newName); err != nil {
			slog.Error("Failed to rename file", "filename", scannedName, "to", newName, "error", err)
			continue
		}

		rec.Filename = newName
		renamed++
		slog.Info("Renamed file", "from", scannedName, "to", newName)
	}
	return renamed
}
