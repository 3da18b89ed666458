package mcp

import (
	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server needs.
type Ports struct {
	// Reader opens document sessions, one per tool call.
	Reader driving.ReaderService

	// Outbox lists queued calls. Optional.
	Outbox driving.OutboxService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Reader == nil {
		return ErrMissingReaderService
	}
	return nil
}
