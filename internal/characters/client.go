// Package characters is the client for the public character API.
package characters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/giannis84/character-browser/internal/logging"
	"github.com/giannis84/character-browser/internal/models"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://rickandmortyapi.com/api"
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 512
)

// Source returns one page of characters for a filter.
type Source interface {
	FetchCharacters(ctx context.Context, filter models.Filter) (*models.Page, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("character api returned status %d: %s", e.StatusCode, e.Body)
}

// ClientConfig configures a Client. Zero values select defaults; a zero
// RequestsPerSecond disables pacing.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
}

// Client fetches characters over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{baseURL: baseURL, httpClient: httpClient, limiter: limiter}
}

// BuildURL returns the character endpoint URL for filter. page is always set;
// status is omitted for "all" and name is omitted when blank.
func BuildURL(baseURL string, filter models.Filter) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteString("/character?page=")
	b.WriteString(strconv.Itoa(filter.Page))

	if filter.HasStatus() {
		b.WriteString("&status=")
		b.WriteString(url.QueryEscape(string(filter.Status)))
	}
	if filter.HasName() {
		b.WriteString("&name=")
		b.WriteString(url.QueryEscape(filter.Name))
	}
	return b.String()
}

// FetchCharacters issues exactly one GET for filter.
func (c *Client) FetchCharacters(ctx context.Context, filter models.Filter) (*models.Page, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	endpoint := BuildURL(c.baseURL, filter)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting characters: %w", err)
	}
	defer resp.Body.Close()

	logging.Log(ctx).Layer("characters").Op("FetchCharacters").
		Str("url", endpoint).Int("status_code", resp.StatusCode).
		Int("duration_ms", int(time.Since(start).Milliseconds())).
		Debug("character api responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var page models.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding characters response: %w", err)
	}
	return &page, nil
}
