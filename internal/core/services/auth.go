package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driven"
	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
	"github.com/custodia-labs/marginalia/internal/logger"
)

// Ensure AuthService implements the interfaces.
var (
	_ driving.AuthService  = (*AuthService)(nil)
	_ driven.TokenProvider = (*AuthService)(nil)
)

// refreshSkew refreshes tokens slightly before they expire.
const refreshSkew = time.Minute

// AuthService signs users in and hands out access tokens for backend calls.
type AuthService struct {
	auth  driven.Authenticator
	store driven.CredentialsStore

	// mu serialises refreshes so one expired token triggers one refresh.
	mu  sync.Mutex
	now func() time.Time
}

// NewAuthService creates an auth service.
func NewAuthService(auth driven.Authenticator, store driven.CredentialsStore) *AuthService {
	return &AuthService{
		auth:  auth,
		store: store,
		now:   time.Now,
	}
}

// SignIn authenticates with email and password and stores the session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (domain.Identity, error) {
	if err := validateLogin(email, password); err != nil {
		return domain.Identity{}, err
	}
	creds, err := s.auth.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return domain.Identity{}, err
	}
	return s.save(ctx, creds)
}

// SignUp creates an account and stores its session.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (domain.Identity, error) {
	if err := validateLogin(email, password); err != nil {
		return domain.Identity{}, err
	}
	creds, err := s.auth.SignUp(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return domain.Identity{}, err
	}
	return s.save(ctx, creds)
}

// ProviderURL returns the page that starts sign-in with an external provider.
func (s *AuthService) ProviderURL(provider, redirectTo, challenge string) (string, error) {
	pa, ok := s.auth.(driven.ProviderAuthenticator)
	if !ok {
		return "", fmt.Errorf("%w: provider sign-in is not supported", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(provider) == "" {
		return "", fmt.Errorf("%w: provider is required", domain.ErrInvalidInput)
	}
	return pa.AuthorizeURL(strings.TrimSpace(provider), redirectTo, challenge), nil
}

// ExchangeCode completes provider sign-in and stores the session.
func (s *AuthService) ExchangeCode(ctx context.Context, code, verifier string) (domain.Identity, error) {
	pa, ok := s.auth.(driven.ProviderAuthenticator)
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: provider sign-in is not supported", domain.ErrInvalidInput)
	}
	creds, err := pa.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return domain.Identity{}, err
	}
	return s.save(ctx, creds)
}

// SignOut forgets the stored session.
func (s *AuthService) SignOut(ctx context.Context) error {
	return s.store.Delete(ctx)
}

// Identity returns the signed-in user.
func (s *AuthService) Identity(ctx context.Context) (domain.Identity, error) {
	creds, err := s.current(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	return creds.Identity(), nil
}

// GetToken returns a valid access token, refreshing it if it is about to expire.
func (s *AuthService) GetToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.current(ctx)
	if err != nil {
		return "", err
	}
	if creds.ExpiresAt.IsZero() || s.now().Add(refreshSkew).Before(creds.ExpiresAt) {
		return creds.AccessToken, nil
	}
	if creds.RefreshToken == "" {
		return "", domain.ErrAuthExpired
	}

	logger.Debug("refreshing access token for %s", creds.Email)
	fresh, err := s.auth.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refreshing session: %w", err)
	}
	if fresh.UserID == "" {
		fresh.UserID = creds.UserID
	}
	if fresh.Email == "" {
		fresh.Email = creds.Email
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = creds.RefreshToken
	}
	if _, err := s.save(ctx, fresh); err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

func (s *AuthService) current(ctx context.Context) (*domain.Credentials, error) {
	creds, err := s.store.Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrAuthRequired
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	return creds, nil
}

func (s *AuthService) save(ctx context.Context, creds *domain.Credentials) (domain.Identity, error) {
	if creds == nil || creds.AccessToken == "" {
		return domain.Identity{}, fmt.Errorf("%w: no access token issued", domain.ErrAuthInvalid)
	}
	creds.UpdatedAt = s.now()
	if err := s.store.Save(ctx, *creds); err != nil {
		return domain.Identity{}, fmt.Errorf("storing session: %w", err)
	}
	return creds.Identity(), nil
}

func validateLogin(email, password string) error {
	if !strings.Contains(strings.TrimSpace(email), "@") {
		return fmt.Errorf("%w: email address is required", domain.ErrInvalidInput)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}
	return nil
}
