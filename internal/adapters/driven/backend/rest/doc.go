// Package rest implements driven.Backend over the reader's JSON HTTP API.
//
// Every request carries a bearer token from an oauth2.TokenSource and is
// paced by a token-bucket RateLimiter. A 429 response backs the limiter off
// for the Retry-After period.
//
// # Error Mapping
//
//   - 404 Not Found: domain.ErrNotFound
//   - 401/403: domain.ErrAuthInvalid
//   - 409 Conflict: domain.ErrAlreadyExists
//   - 429 Too Many Requests: domain.ErrRateLimited
//   - other 4xx: domain.ErrInvalidInput
//   - 5xx and transport failures: domain.ErrBackendUnavailable
package rest
