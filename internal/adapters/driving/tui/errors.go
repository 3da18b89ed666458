package tui

import "errors"

// ErrMissingReaderService is returned when the reader service is not provided.
var ErrMissingReaderService = errors.New("tui: reader service is required")

// ErrMissingDocument is returned when no document ID is given.
var ErrMissingDocument = errors.New("tui: document id is required")
