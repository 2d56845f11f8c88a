// Package decision is the HTTP client for the remote allocation/decision
// service that owns scenarios and executes ticks.
package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4 << 10
)

// ErrUnauthorized means the service rejected the credentials (401/403).
// Callers treat it as a session-invalidation signal.
var ErrUnauthorized = errors.New("decision service: re-authentication required")

// APIError is any other non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("decision service returned status %d", e.Status)
	}
	return fmt.Sprintf("decision service returned status %d: %s", e.Status, e.Body)
}

// Config configures the client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RPS limits outbound requests; <= 0 disables limiting.
	RPS float64
}

// Client talks to the decision service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewClient creates a decision-service client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	limit := rate.Inf
	burst := 1
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
		burst = int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		log:        log.With().Str("client", "decision").Logger(),
	}
}

// do sends one request. in (if non-nil) is JSON-encoded; out (if non-nil)
// receives the decoded response body.
func (c *Client) do(ctx context.Context, operation, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", operation, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		requestsTotal.WithLabelValues(operation, "transport_error").Inc()
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Dur("duration", elapsed).Msg("Decision request failed")
		return fmt.Errorf("failed to call decision service (%s): %w", operation, err)
	}
	defer resp.Body.Close()

	requestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	requestsTotal.WithLabelValues(operation, statusClass(resp.StatusCode)).Inc()
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", elapsed).
		Msg("Decision request")

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse %s response: %w", operation, err)
	}
	return nil
}

func scenarioPath(id string, parts ...string) string {
	p := "/scenarios/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// unwrap returns raw[key] when raw is an object carrying key, raw otherwise.
// The service wraps some responses ({"scenario": {...}}) and not others.
func unwrap(raw json.RawMessage, key string) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return raw
	}
	if inner, ok := envelope[key]; ok && len(inner) > 0 && string(inner) != "null" {
		return inner
	}
	return raw
}
