package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoGeometry indicates a selection without a usable position.
	// Such selections are dropped without creating a highlight.
	ErrNoGeometry = errors.New("selection has no usable geometry")

	// ErrUnknownTool indicates a selection made with an unrecognised tool.
	ErrUnknownTool = errors.New("unknown selection tool")

	// ErrEmptyContent indicates a note or message with no text.
	ErrEmptyContent = errors.New("empty content")

	// ErrSessionClosed indicates a mutation on a closed document session.
	ErrSessionClosed = errors.New("document session closed")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Backend Errors.

	// ErrBackendUnavailable indicates the backend could not be reached
	// or answered with a server error.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Authentication Errors.

	// ErrAuthRequired indicates no signed-in session is available.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates the session has expired and refresh failed.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrAuthInvalid indicates the credentials were rejected.
	ErrAuthInvalid = errors.New("authentication invalid")
)
