package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
)

const (
	// uriScheme is the custom URI scheme for marginalia resources.
	uriScheme = "marginalia://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "outbox",
		Name:        "outbox",
		Description: "Changes waiting to be saved to the backend",
		MIMEType:    "application/json",
	}, s.handleOutboxResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}/notes",
		Name:        "document-notes",
		Description: "A paper's highlights with the notes written on them, as Markdown",
		MIMEType:    "text/markdown",
	}, s.handleNotesResource)
}

// handleOutboxResource lists queued calls across all documents.
func (s *Server) handleOutboxResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Outbox == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	entries, err := s.ports.Outbox.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing outbox: %w", err)
	}

	type entryInfo struct {
		ID         string `json:"id"`
		DocumentID string `json:"document_id"`
		Op         string `json:"op"`
		EntityID   string `json:"entity_id"`
		Attempts   int    `json:"attempts"`
		LastError  string `json:"last_error,omitempty"`
	}

	infos := make([]entryInfo, len(entries))
	for i := range entries {
		infos[i] = entryInfo{
			ID:         entries[i].ID,
			DocumentID: entries[i].DocumentID,
			Op:         string(entries[i].Op),
			EntityID:   entries[i].EntityID,
			Attempts:   entries[i].Attempts,
			LastError:  entries[i].LastError,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling outbox: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleNotesResource renders a document's highlights and notes as Markdown.
func (s *Server) handleNotesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	var text string
	_, err := s.withSession(ctx, docID, func(session driving.DocumentSession) error {
		text = renderNotes(session)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading notes: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     text,
		}},
	}, nil
}

func renderNotes(session driving.DocumentSession) string {
	var b strings.Builder
	doc := session.Document()
	title := doc.Title
	if title == "" {
		title = doc.ID
	}
	fmt.Fprintf(&b, "# %s\n", title)

	notesFor := make(map[string][]string)
	var loose []string
	for _, a := range session.Annotations() {
		if _, ok := session.ResolveAnnotation(a); ok {
			notesFor[a.HighlightID] = append(notesFor[a.HighlightID], a.Content)
			continue
		}
		line := fmt.Sprintf("- p.%d: %s", a.Page, a.Content)
		if a.HighlightText != "" {
			line += fmt.Sprintf(" (on deleted highlight %q)", a.HighlightText)
		}
		loose = append(loose, line)
	}

	highlights := session.Highlights()
	if len(highlights) > 0 {
		b.WriteString("\n## Highlights\n")
	}
	for i := range highlights {
		h := &highlights[i]
		quote := h.Content.Text
		if quote == "" {
			quote = "[area] " + h.Content.Image
		}
		fmt.Fprintf(&b, "\n> %s\n\n(p.%d, %s)\n", strings.TrimSpace(quote), h.Page(), h.ID)
		if h.Comment != "" {
			fmt.Fprintf(&b, "\nComment: %s\n", h.Comment)
		}
		for _, note := range notesFor[h.ID] {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}

	if len(loose) > 0 {
		b.WriteString("\n## Notes\n\n")
		b.WriteString(strings.Join(loose, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// extractDocumentID extracts the document ID from a URI like
// marginalia://documents/{documentId}/notes.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"
	const suffix = "/notes"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
