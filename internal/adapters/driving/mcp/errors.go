// Package mcp serves a reader's highlights, notes and chat over the
// Model Context Protocol so AI assistants can work with a paper.
package mcp

import "errors"

// ErrMissingReaderService is returned when the reader service is not provided.
var ErrMissingReaderService = errors.New("mcp: reader service is required")
