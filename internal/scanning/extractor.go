package scanning

import (
	"context"
	"math"
	"time"
)

// UnknownMerchant is the merchant sentinel used when the extraction
// service cannot name one.
const UnknownMerchant = "Unknown"

// Result contains the fields extracted from one receipt. Absent fields
// carry sentinels: a zero Date, UnknownMerchant, NaN amounts, and zero
// confidence.
type Result struct {
	Date       time.Time
	Name       string
	Total      float64
	Tax        float64
	Confidence float64
}

// emptyResult returns a Result with every field at its sentinel.
func emptyResult() *Result {
	return &Result{
		Name:  UnknownMerchant,
		Total: math.NaN(),
		Tax:   math.NaN(),
	}
}

// Extractor defines the boundary to the remote data-extraction service.
type Extractor interface {
	// Extract turns raw receipt bytes into structured fields. A
	// non-success response is an error for that file only, never for
	// the batch.
	Extract(ctx context.Context, filename string, data []byte, contentType string) (*Result, error)

	// Close releases any resources held by the extractor
	Close() error
}
