package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-eng/docqc/internal/resilience"
)

func TestExtractSuccess(t *testing.T) {
	var gotReq ExtractRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(ExtractResult{ //nolint:errcheck
			Confidence: 0.87,
			Entities: []Entity{
				{Type: "line", NaturalKey: "LINE-100", Attributes: map[string]any{"size": "4"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key")
	result, err := c.Extract(context.Background(), ExtractRequest{
		DocumentRef: "abc123",
		Category:    "pid",
		Tier:        2,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.87, result.Confidence, 1e-9)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "LINE-100", result.Entities[0].NaturalKey)

	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "abc123", gotReq.DocumentRef)
	assert.Equal(t, 2, gotReq.Tier)
}

func TestExtractServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Extract(context.Background(), ExtractRequest{DocumentRef: "abc"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))

	var apiErr *APIError
	require.True(t, eris.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestExtractClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown document_ref", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Extract(context.Background(), ExtractRequest{DocumentRef: "abc"})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestExtractMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entities": [`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Extract(context.Background(), ExtractRequest{DocumentRef: "abc"})
	require.Error(t, err)

	var malformed *MalformedResultError
	require.True(t, eris.As(err, &malformed))
	assert.Contains(t, malformed.Payload, "entities")
	assert.False(t, resilience.IsTransient(err))
}

func TestExtractContractViolations(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		reason string
	}{
		{"confidence above one", `{"entities":[],"confidence":1.5}`, "outside [0,1]"},
		{"negative confidence", `{"entities":[],"confidence":-0.1}`, "outside [0,1]"},
		{"missing type", `{"entities":[{"natural_key":"LINE-1"}],"confidence":0.9}`, "missing type"},
		{"missing natural key", `{"entities":[{"type":"line"}],"confidence":0.9}`, "missing natural key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "")
			_, err := c.Extract(context.Background(), ExtractRequest{DocumentRef: "abc"})
			require.Error(t, err)

			var malformed *MalformedResultError
			require.True(t, eris.As(err, &malformed))
			assert.Contains(t, malformed.Reason, tt.reason)
		})
	}
}

func TestExtractNoAuthHeaderWithoutKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(ExtractResult{Confidence: 0.5}) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Extract(context.Background(), ExtractRequest{DocumentRef: "abc"})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestExtractNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c := NewClient(srv.URL, "")
	_, err := c.Extract(context.Background(), ExtractRequest{DocumentRef: "abc"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "abcde...", truncate("abcdefgh", 5))
}
