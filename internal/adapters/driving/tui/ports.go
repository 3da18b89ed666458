// Package tui provides the interactive terminal reader for marginalia.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"context"

	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
)

// Ports aggregates the driving ports and hooks the reader uses.
type Ports struct {
	// Reader opens the document being read.
	Reader driving.ReaderService

	// Settings supplies the palette and replay interval. Optional.
	Settings driving.SettingsService

	// Watch blocks until ctx ends, calling onChange when settings change on disk. Optional.
	Watch func(ctx context.Context, onChange func()) error
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Reader == nil {
		return ErrMissingReaderService
	}
	return nil
}
