package scanning

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const defaultTaggunURL = "https://api.taggun.io/api/receipt/v1/verbose/file"

// taggunPayload is the fixed set of form fields sent with every
// submission.
var taggunPayload = map[string]string{
	"refresh":          "true",
	"incognito":        "true",
	"extractTime":      "false",
	"extractLineItems": "false",
	"language":         "en",
}

// Taggun implements the Extractor interface against Taggun's verbose
// receipt API.
type Taggun struct {
	url    string
	apiKey string
	client *http.Client
}

// NewTaggun creates a Taggun extractor.
func NewTaggun(apiKey string) (*Taggun, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("taggun api key is required")
	}
	return &Taggun{
		url:    defaultTaggunURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// NewTaggunWithURL creates a Taggun extractor against a custom endpoint
// for testing.
func NewTaggunWithURL(apiKey, url string) (*Taggun, error) {
	t, err := NewTaggun(apiKey)
	if err != nil {
		return nil, err
	}
	t.url = url
	return t, nil
}

// Extract submits the file and pulls the receipt fields out of the
// verbose response. Each field falls back to its sentinel
// independently: one unreadable field never fails the file.
func (t *Taggun) Extract(ctx context.Context, filename string, data []byte, contentType string) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	for key, value := range taggunPayload {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("building upload: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("accept", "application/json")
	req.Header.Set("apikey", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling taggun API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("taggun API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return parseTaggunResponse(respBody), nil
}

// parseTaggunResponse maps the verbose payload onto a Result. gjson
// lookups return non-existent values for missing paths, which keeps
// every fallback a one-liner.
func parseTaggunResponse(body []byte) *Result {
	result := emptyResult()

	if v := gjson.GetBytes(body, "totalAmount.data"); v.Exists() {
		result.Total = v.Float()
	}
	if v := gjson.GetBytes(body, "taxAmount.data"); v.Exists() {
		result.Tax = v.Float()
	}
	if v := gjson.GetBytes(body, "merchantName.data"); v.Exists() && v.String() != "" {
		result.Name = v.String()
	}
	if v := gjson.GetBytes(body, "confidenceLevel"); v.Exists() {
		result.Confidence = v.Float()
	}
	if v := gjson.GetBytes(body, "date.data"); v.Exists() {
		if date, err := parseLenientDate(v.String()); err == nil {
			result.Date = date
		}
	}

	return result
}

// Close closes the Taggun extractor (no-op for an HTTP client).
func (t *Taggun) Close() error {
	return nil
}
