package receipt

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const runBucketName = "runs"

// RunSummary records the outcome of one scan-and-extract run.
type RunSummary struct {
	StartedAt time.Time `json:"started_at"`
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Renamed   int       `json:"renamed"`
}

// History defines the interface for the run journal.
type History interface {
	// SaveRun appends a run summary to the journal
	SaveRun(summary *RunSummary) error

	// ListRuns returns all recorded runs, oldest first
	ListRuns() ([]*RunSummary, error)

	// Close closes the journal
	Close() error
}

// BoltHistory implements History using BoltDB.
type BoltHistory struct {
	db *bbolt.DB
}

// NewBoltHistory opens (or creates) a run journal at path.
func NewBoltHistory(path string) (*BoltHistory, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs bucket: %w", err)
	}

	return &BoltHistory{db: db}, nil
}

// SaveRun appends a run summary to the journal, keyed by start time so
// iteration order is chronological.
func (b *BoltHistory) SaveRun(summary *RunSummary) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucketName))
		data, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("marshaling run summary: %w", err)
		}
		key := fmt.Sprintf("%d", summary.StartedAt.UnixNano())
		return bucket.Put([]byte(key), data)
	})
}

// ListRuns returns all recorded runs, oldest first.
func (b *BoltHistory) ListRuns() ([]*RunSummary, error) {
	runs := make([]*RunSummary, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var run RunSummary
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("unmarshaling run summary: %w", err)
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Close closes the journal.
func (b *BoltHistory) Close() error {
	return b.db.Close()
}
