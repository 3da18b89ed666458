package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
	"github.com/custodia-labs/marginalia/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// closeTimeout bounds how long a tool call waits for background saves.
const closeTimeout = 30 * time.Second

// Server is the MCP server for marginalia.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "marginalia",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, nil),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// withSession opens a document, runs fn and waits for its background saves.
// It returns a warning for each save that did not reach the backend.
func (s *Server) withSession(
	ctx context.Context,
	documentID string,
	fn func(session driving.DocumentSession) error,
) ([]string, error) {
	session, err := s.ports.Reader.Open(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("opening document %s: %w", documentID, err)
	}

	fnErr := fn(session)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := session.Close(closeCtx); err != nil {
		logger.Warn("mcp: closing %s: %v", documentID, err)
	}

	var warnings []string
	for result := range session.Events() {
		if result.Err == nil || result.Op == domain.OpSendChatMessage {
			continue
		}
		if result.Queued {
			warnings = append(warnings, fmt.Sprintf("%s %s queued for retry: %v", result.Op, result.EntityID, result.Err))
			continue
		}
		warnings = append(warnings, fmt.Sprintf("%s %s failed: %v", result.Op, result.EntityID, result.Err))
	}
	return warnings, fnErr
}
