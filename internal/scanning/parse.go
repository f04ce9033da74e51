package scanning

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// dateFormats are tried in order when a service reports a date outside
// ISO 8601.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// parseLenientDate parses the date strings extraction services actually
// return. Failure leaves the caller with the zero-date sentinel.
func parseLenientDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, format := range dateFormats {
		if d, err := time.Parse(format, s); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// modelReceipt is the JSON shape the vision-model prompt asks for.
// Pointer fields distinguish "absent" from zero.
type modelReceipt struct {
	Merchant   string   `json:"merchant"`
	Date       string   `json:"date"`
	Total      *float64 `json:"total"`
	Tax        *float64 `json:"tax"`
	Confidence *float64 `json:"confidence"`
}

// parseModelJSON parses a vision model's response into a Result. Models
// wrap JSON in markdown fences and chatter around it, so the first
// balanced object is cut out before unmarshaling.
func parseModelJSON(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var raw modelReceipt
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	result := emptyResult()
	if name := strings.TrimSpace(raw.Merchant); name != "" {
		result.Name = name
	}
	if raw.Total != nil {
		result.Total = *raw.Total
	}
	if raw.Tax != nil {
		result.Tax = *raw.Tax
	}
	if raw.Confidence != nil {
		result.Confidence = math.Min(math.Max(*raw.Confidence, 0), 1)
	}
	if date, err := parseLenientDate(raw.Date); err == nil {
		result.Date = date
	}

	return result, nil
}
