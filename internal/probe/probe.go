// Package probe sends the authenticated plant search and classifies the reply.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hazz-dev/pacprobe/internal/config"
)

const (
	// DefaultTimeout bounds the whole round trip, body included.
	DefaultTimeout = 10 * time.Second

	// SearchPath and SearchPlant make up the fixed request the probe sends.
	SearchPath  = "/Plant/FindByName"
	SearchPlant = "milkweed"
)

// Checker performs a single probe.
type Checker interface {
	Run(ctx context.Context) Result
}

// Prober probes one PAC deployment with one set of credentials.
type Prober struct {
	creds  config.Credentials
	client *http.Client
}

// New returns a Prober. A non-positive timeout means DefaultTimeout.
func New(creds config.Credentials, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		creds:  creds,
		client: &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the search URL without its query string.
func Endpoint(creds config.Credentials) string {
	return creds.BaseURL + SearchPath
}

// Run sends exactly one request. It never retries and never returns an
// error: every failure is reported through the Result.
func (p *Prober) Run(ctx context.Context) Result {
	start := time.Now()
	result := Result{
		Endpoint:  Endpoint(p.creds),
		CheckedAt: start,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.Endpoint, nil)
	if err != nil {
		result.Outcome = OutcomeNetworkError
		result.Error = fmt.Sprintf("creating request: %v", err)
		result.ResponseTime = time.Since(start)
		return result
	}
	req.URL.RawQuery = url.Values{"plantName": {SearchPlant}}.Encode()
	// The API expects the bare key, not "Bearer <key>".
	req.Header.Set("Authorization", p.creds.APIKey)
	req.Header.Set("Accept", "text/plain")

	resp, err := p.client.Do(req)
	if err != nil {
		result.Outcome = OutcomeNetworkError
		result.Error = err.Error()
		result.ResponseTime = time.Since(start)
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.Outcome = OutcomeNetworkError
		result.Error = fmt.Sprintf("reading response body: %v", err)
		return result
	}
	result.StatusCode = resp.StatusCode
	result.Body = string(body)

	switch resp.StatusCode {
	case http.StatusOK:
		result.Outcome = OutcomeSuccess
		result.Plants, result.ParseErr = parsePlants(body)
	case http.StatusUnauthorized:
		result.Outcome = OutcomeUnauthorized
		result.Error = "unauthorized"
	default:
		result.Outcome = OutcomeUnexpectedStatus
		result.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return result
}

type plantJSON struct {
	Symbol *string `json:"symbol"`
	Blurb  *string `json:"blurb"`
}

// parsePlants counts the array elements and decodes only the first one.
// When the first element is not a plant object the count is still
// returned alongside the error.
func parsePlants(body []byte) (*PlantSummary, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decoding plant list: %w", err)
	}
	// A literal null decodes without error.
	if items == nil {
		return nil, fmt.Errorf("decoding plant list: body is not a JSON array")
	}
	summary := &PlantSummary{Count: len(items)}
	if len(items) == 0 {
		return summary, nil
	}
	var first plantJSON
	if err := json.Unmarshal(items[0], &first); err != nil {
		return summary, fmt.Errorf("decoding first plant: %w", err)
	}
	summary.First = &Plant{
		Symbol: orNA(first.Symbol),
		Blurb:  orNA(first.Blurb),
	}
	return summary, nil
}

func orNA(s *string) string {
	if s == nil {
		return "N/A"
	}
	return *s
}
