// Package extractor is the client for the external document extraction
// service. The service is a black box: it accepts a document reference and a
// quality tier and returns typed entities with a confidence score, or fails.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ridgeline-eng/docqc/internal/resilience"
)

// Client defines the extraction service operations.
type Client interface {
	Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error)
}

// ExtractRequest is the body for POST /extract.
type ExtractRequest struct {
	DocumentRef string `json:"document_ref"`
	Category    string `json:"category,omitempty"`
	Tier        int    `json:"tier"`
}

// Entity is one typed record returned by the service. The attribute mapping
// is open: values may be strings, numbers, bools, or nested structures, and
// new entity types appear over time without any schema change here.
type Entity struct {
	Type       string         `json:"type"`
	NaturalKey string         `json:"natural_key"`
	Attributes map[string]any `json:"attributes"`
}

// ExtractResult is the response from POST /extract.
type ExtractResult struct {
	Entities   []Entity `json:"entities"`
	Confidence float64  `json:"confidence"`
}

// APIError is returned when the service responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("extractor: HTTP %d: %s", e.StatusCode, e.Body)
}

// MalformedResultError is returned when a 2xx response violates the entity
// contract. It carries the raw payload for diagnosis and is never retried:
// the same request would produce the same malformed answer.
type MalformedResultError struct {
	Reason  string
	Payload string
}

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("extractor: malformed result: %s", e.Reason)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout overrides the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an extraction service client.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "extractor: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "extractor: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Network-level failures (timeouts, resets) are transient.
		return nil, resilience.NewTransientError(eris.Wrap(err, "extractor: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "extractor: read response"), resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}

	var result ExtractResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &MalformedResultError{
			Reason:  eris.Wrap(err, "decode").Error(),
			Payload: truncate(string(raw), 2048),
		}
	}
	if err := validate(&result); err != nil {
		return nil, &MalformedResultError{
			Reason:  err.Error(),
			Payload: truncate(string(raw), 2048),
		}
	}
	return &result, nil
}

// validate enforces the entity contract on a decoded result.
func validate(result *ExtractResult) error {
	if result.Confidence < 0 || result.Confidence > 1 {
		return eris.Errorf("confidence %v outside [0,1]", result.Confidence)
	}
	for i, e := range result.Entities {
		if e.Type == "" {
			return eris.Errorf("entity %d: missing type", i)
		}
		if e.NaturalKey == "" {
			return eris.Errorf("entity %d (%s): missing natural key", i, e.Type)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
