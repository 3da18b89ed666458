package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// CreateHighlight persists a new highlight under the client-generated ID.
func (c *Client) CreateHighlight(ctx context.Context, documentID string, in domain.HighlightInput) (*domain.Highlight, error) {
	var out highlightJSON
	if err := c.do(ctx, http.MethodPost, documentPath(documentID, "highlights"), toHighlightInputJSON(in), &out); err != nil {
		return nil, fmt.Errorf("create highlight %s: %w", in.ID, err)
	}
	if out.ID == "" {
		out = toHighlightInputJSON(in)
	}
	h := out.toDomain()
	return &h, nil
}

// UpdateHighlight applies a partial update.
func (c *Client) UpdateHighlight(ctx context.Context, documentID, highlightID string, patch domain.HighlightPatch) error {
	body := highlightPatchJSON{Comment: patch.Comment, Color: patch.Color}
	if err := c.do(ctx, http.MethodPatch, documentPath(documentID, "highlights", highlightID), body, nil); err != nil {
		return fmt.Errorf("update highlight %s: %w", highlightID, err)
	}
	return nil
}

// DeleteHighlight removes a highlight.
func (c *Client) DeleteHighlight(ctx context.Context, documentID, highlightID string) error {
	if err := c.do(ctx, http.MethodDelete, documentPath(documentID, "highlights", highlightID), nil, nil); err != nil {
		return fmt.Errorf("delete highlight %s: %w", highlightID, err)
	}
	return nil
}

// SaveAnnotation persists a note.
func (c *Client) SaveAnnotation(ctx context.Context, documentID string, in domain.AnnotationInput) error {
	if err := c.do(ctx, http.MethodPost, documentPath(documentID, "annotations"), toAnnotationJSON(in), nil); err != nil {
		return fmt.Errorf("save annotation %s: %w", in.ID, err)
	}
	return nil
}

// SendChatMessage asks the assistant about the document.
func (c *Client) SendChatMessage(ctx context.Context, documentID, text string, highlightIDs []string) (*domain.ChatReply, error) {
	ids := highlightIDs
	if ids == nil {
		ids = []string{}
	}
	var out chatResponseJSON
	if err := c.do(ctx, http.MethodPost, documentPath(documentID, "chat"), chatRequestJSON{Message: text, HighlightIDs: ids}, &out); err != nil {
		return nil, fmt.Errorf("send chat message: %w", err)
	}
	return &domain.ChatReply{Text: out.Reply}, nil
}

// GetDocumentAnnotations loads the document with its highlights and annotations.
func (c *Client) GetDocumentAnnotations(ctx context.Context, documentID string) (*domain.DocumentSnapshot, error) {
	var out snapshotJSON
	if err := c.do(ctx, http.MethodGet, documentPath(documentID, "annotations"), nil, &out); err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}
	snap := out.toDomain()
	if snap.Document.ID == "" {
		snap.Document.ID = documentID
	}
	return snap, nil
}
