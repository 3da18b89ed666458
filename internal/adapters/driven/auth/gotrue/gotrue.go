// Package gotrue implements driven.Authenticator against a GoTrue-compatible
// auth service (the API behind Supabase Auth).
package gotrue

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

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
)

// Ensure Authenticator implements the interfaces.
var (
	_ driven.Authenticator         = (*Authenticator)(nil)
	_ driven.ProviderAuthenticator = (*Authenticator)(nil)
)

// DefaultTimeout bounds each auth request.
const DefaultTimeout = 30 * time.Second

// Config holds configuration for the GoTrue authenticator.
type Config struct {
	// URL is the auth root, e.g. https://project.supabase.co/auth/v1 (required).
	URL string

	// APIKey is the project's public key sent in the apikey header.
	APIKey string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Authenticator signs users in with email and password.
type Authenticator struct {
	client  *http.Client
	baseURL string
	apiKey  string
	now     func() time.Time
}

// sessionResponse is the GoTrue session format.
type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// errorResponse covers the error shapes GoTrue versions return.
type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Msg         string `json:"msg"`
	Message     string `json:"message"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.Description, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// New creates a GoTrue authenticator.
func New(cfg Config) (*Authenticator, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: auth URL %q", domain.ErrInvalidInput, cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Authenticator{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		now:     time.Now,
	}, nil
}

// SignIn exchanges an email and password for credentials.
func (a *Authenticator) SignIn(ctx context.Context, email, password string) (*domain.Credentials, error) {
	creds, err := a.post(ctx, "/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	}, domain.ErrAuthInvalid)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return creds, nil
}

// SignUp registers a new account and returns its first session.
// Projects that require email confirmation return no access token.
func (a *Authenticator) SignUp(ctx context.Context, email, password string) (*domain.Credentials, error) {
	creds, err := a.post(ctx, "/signup", map[string]string{
		"email":    email,
		"password": password,
	}, domain.ErrInvalidInput)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return creds, nil
}

// Refresh exchanges a refresh token for new credentials.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error) {
	creds, err := a.post(ctx, "/token?grant_type=refresh_token", map[string]string{
		"refresh_token": refreshToken,
	}, domain.ErrAuthExpired)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return creds, nil
}

// AuthorizeURL returns the page that starts sign-in with an external
// provider. The service redirects to redirectTo with a code for ExchangeCode.
func (a *Authenticator) AuthorizeURL(provider, redirectTo, challenge string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "s256")
	return a.baseURL + "/authorize?" + q.Encode()
}

// ExchangeCode trades a PKCE authorization code for credentials.
func (a *Authenticator) ExchangeCode(ctx context.Context, code, verifier string) (*domain.Credentials, error) {
	creds, err := a.post(ctx, "/token?grant_type=pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	}, domain.ErrAuthInvalid)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return creds, nil
}

// post sends a JSON request. rejected is returned for 400/401 answers.
func (a *Authenticator) post(ctx context.Context, path string, body any, rejected error) (*domain.Credentials, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set("apikey", a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, statusError(resp.StatusCode, data, rejected)
	}

	var session sessionResponse
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return a.credentials(session), nil
}

func (a *Authenticator) credentials(s sessionResponse) *domain.Credentials {
	creds := &domain.Credentials{
		UserID:       s.User.ID,
		Email:        s.User.Email,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
	switch {
	case s.ExpiresAt > 0:
		creds.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		creds.ExpiresAt = a.now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return creds
}

func statusError(status int, body []byte, rejected error) error {
	var e errorResponse
	_ = json.Unmarshal(body, &e)
	msg := e.text()
	if msg == "" {
		msg = http.StatusText(status)
	}

	var sentinel error
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnauthorized, status == http.StatusForbidden:
		sentinel = rejected
	case status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "already"):
		sentinel = domain.ErrAlreadyExists
	case status == http.StatusUnprocessableEntity:
		sentinel = domain.ErrInvalidInput
	case status == http.StatusTooManyRequests:
		sentinel = domain.ErrRateLimited
	case status >= http.StatusInternalServerError:
		sentinel = domain.ErrBackendUnavailable
	default:
		sentinel = errors.New("unexpected auth response")
	}
	return fmt.Errorf("%w: %s (status %d)", sentinel, msg, status)
}
