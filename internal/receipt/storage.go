package receipt

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage defines the file operations the service performs against the
// source directory.
type Storage interface {
	// ReadFile returns the bytes of a file in the source directory
	ReadFile(filename string) ([]byte, error)

	// Rename moves a file within the source directory
	Rename(oldName, newName string) error

	// WriteLedger rewrites the ledger file in full
	WriteLedger(data string) error
}

// SourceDir implements Storage over a local directory.
type SourceDir struct {
	path string
}

// NewSourceDir creates a SourceDir. The directory must already exist:
// it is the user's receipt folder, not managed storage.
func NewSourceDir(path string) (*SourceDir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("source directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source directory %s is not a directory", path)
	}
	return &SourceDir{path: path}, nil
}

// ReadFile returns the bytes of a file in the source directory.
func (d *SourceDir) ReadFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(d.path, filename))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Rename moves a file within the source directory.
func (d *SourceDir) Rename(oldName, newName string) error {
	if err := os.Rename(filepath.Join(d.path, oldName), filepath.Join(d.path, newName)); err != nil {
		return fmt.Errorf("renaming file: %w", err)
	}
	return nil
}

// WriteLedger rewrites the ledger file in full.
func (d *SourceDir) WriteLedger(data string) error {
	path := filepath.Join(d.path, LedgerFilename)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}
