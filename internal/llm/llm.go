// Package llm holds the text-generation clients for each AI platform.
//
// Every client satisfies Provider for plain prompts. Clients whose platform
// has a native search capability expose an extra method returning an Answer
// with citations.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TobiSchelling/AIVisibility/internal/models"
)

// DefaultTimeout bounds a single HTTP exchange when no timeout is configured.
const DefaultTimeout = 120 * time.Second

var (
	// ErrNotConfigured is returned when a client has no credential.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrEmptyResponse is returned when a call succeeds but yields no text.
	ErrEmptyResponse = errors.New("empty response")
)

// Provider is the interface for LLM providers.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
}

// Answer is a search-backed response with the sources it cites.
type Answer struct {
	Text    string
	Sources []models.SearchSource
}

// UserLocation is an approximate location hint for search-enabled calls.
// Country is an ISO 3166-1 alpha-2 code.
type UserLocation struct {
	City    string
	Country string
	Region  string
}

// IsZero reports whether no location field is set.
func (l *UserLocation) IsZero() bool {
	return l == nil || (l.City == "" && l.Country == "" && l.Region == "")
}

// APIError is a non-200 reply from a provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// postJSON marshals body, POSTs it to url and decodes a 200 reply into out.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", provider, err)
	}
	return nil
}

func trimBaseURL(u, def string) string {
	if u == "" {
		u = def
	}
	return strings.TrimRight(u, "/")
}
