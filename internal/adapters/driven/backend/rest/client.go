package rest

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

	"golang.org/x/oauth2"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
	"github.com/custodia-labs/marginalia/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.Backend = (*Client)(nil)

// DefaultTimeout bounds each request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 4 << 10

// Config holds configuration for the backend client.
type Config struct {
	// BaseURL is the API root, e.g. https://api.example.com/v1 (required).
	BaseURL string

	// Timeout bounds each request (default: 30s).
	Timeout time.Duration

	// RateLimit is the sustained requests per second (default: 10).
	RateLimit float64

	// Burst is the token bucket size (default: 20).
	Burst int

	// Transport is the base round tripper (default: http.DefaultTransport).
	Transport http.RoundTripper
}

// Client talks to the backend JSON API.
type Client struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
	limiter *RateLimiter
}

// NewClient creates a backend client. A nil token source sends no
// Authorization header.
func NewClient(cfg Config, tokens oauth2.TokenSource) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: backend base URL %q", domain.ErrInvalidInput, cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if tokens != nil {
		transport = &oauth2.Transport{Source: tokens, Base: transport}
	}

	return &Client{
		http:    &http.Client{Transport: transport},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		limiter: NewRateLimiter(cfg.RateLimit, cfg.Burst),
	}, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends one JSON request and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debug("backend %s %s", method, path)
	resp, err := c.http.Do(req)
	if err != nil {
		if isAuthError(err) {
			return err
		}
		return fmt.Errorf("%w: %s %s: %v", domain.ErrBackendUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode == http.StatusTooManyRequests {
			c.limiter.RecordRateLimit(resp)
		}
		return statusError(method, path, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError maps an error response to a domain error.
func statusError(method, path string, resp *http.Response) error {
	var sentinel error
	switch {
	case resp.StatusCode == http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		sentinel = domain.ErrAuthInvalid
	case resp.StatusCode == http.StatusConflict:
		sentinel = domain.ErrAlreadyExists
	case resp.StatusCode == http.StatusTooManyRequests:
		sentinel = domain.ErrRateLimited
	case resp.StatusCode >= http.StatusInternalServerError:
		sentinel = domain.ErrBackendUnavailable
	default:
		sentinel = domain.ErrInvalidInput
	}

	msg := errorMessage(resp.Body)
	if msg == "" {
		return fmt.Errorf("%w: %s %s returned %d", sentinel, method, path, resp.StatusCode)
	}
	return fmt.Errorf("%w: %s %s returned %d: %s", sentinel, method, path, resp.StatusCode, msg)
}

// errorMessage extracts a readable message from an error body.
func errorMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(body) == 0 {
		return ""
	}
	var e errorJSON
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(body))
}

func isAuthError(err error) bool {
	return errors.Is(err, domain.ErrAuthRequired) ||
		errors.Is(err, domain.ErrAuthExpired) ||
		errors.Is(err, domain.ErrAuthInvalid)
}

func documentPath(documentID string, parts ...string) string {
	var b strings.Builder
	b.WriteString("/documents/")
	b.WriteString(url.PathEscape(documentID))
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}
