package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
)

// US Letter in PDF points.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

// DocumentInput names the document a tool works on.
type DocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document (paper) identifier"`
}

// HighlightOutput represents a single highlight.
type HighlightOutput struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Page    int    `json:"page"`
	Text    string `json:"text,omitempty"`
	Image   string `json:"image,omitempty"`
	Color   string `json:"color,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// ListHighlightsOutput is the output schema for the list_highlights tool.
type ListHighlightsOutput struct {
	Highlights []HighlightOutput `json:"highlights"`
	Count      int               `json:"count"`
}

// AddHighlightInput is the input schema for the add_highlight tool.
type AddHighlightInput struct {
	DocumentID string    `json:"document_id" jsonschema:"the document (paper) identifier"`
	Page       int       `json:"page" jsonschema:"1-based page number"`
	Rect       []float64 `json:"rect" jsonschema:"region in page coordinates as [x1, y1, x2, y2]"`
	PageWidth  float64   `json:"page_width,omitempty" jsonschema:"page width in points (default 612)"`
	PageHeight float64   `json:"page_height,omitempty" jsonschema:"page height in points (default 792)"`
	Text       string    `json:"text,omitempty" jsonschema:"the selected text"`
	Image      string    `json:"image,omitempty" jsonschema:"image reference for area highlights"`
	Tool       string    `json:"tool,omitempty" jsonschema:"select, text or area (default text)"`
}

// AddHighlightOutput is the output schema for the add_highlight tool.
type AddHighlightOutput struct {
	Created   bool             `json:"created"`
	Highlight *HighlightOutput `json:"highlight,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
}

// AnnotationOutput represents a single note.
type AnnotationOutput struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Content       string `json:"content"`
	Page          int    `json:"page"`
	HighlightID   string `json:"highlight_id,omitempty"`
	HighlightText string `json:"highlight_text,omitempty"`
	Detached      bool   `json:"detached,omitempty"`
}

// ListAnnotationsOutput is the output schema for the list_annotations tool.
type ListAnnotationsOutput struct {
	Annotations []AnnotationOutput `json:"annotations"`
	Count       int                `json:"count"`
}

// AnnotateInput is the input schema for the annotate tool.
type AnnotateInput struct {
	DocumentID  string `json:"document_id" jsonschema:"the document (paper) identifier"`
	Content     string `json:"content" jsonschema:"the note text"`
	Page        int    `json:"page,omitempty" jsonschema:"page the note belongs to"`
	HighlightID string `json:"highlight_id,omitempty" jsonschema:"highlight the note is about"`
}

// AnnotateOutput is the output schema for the annotate tool.
type AnnotateOutput struct {
	Saved      bool              `json:"saved"`
	Annotation *AnnotationOutput `json:"annotation,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// ChatInput is the input schema for the chat tool.
type ChatInput struct {
	DocumentID string   `json:"document_id" jsonschema:"the document (paper) identifier"`
	Message    string   `json:"message" jsonschema:"the question to ask about the paper"`
	Context    []string `json:"context,omitempty" jsonschema:"highlight IDs to discuss"`
}

// ChatOutput is the output schema for the chat tool.
type ChatOutput struct {
	Reply    string `json:"reply"`
	Degraded bool   `json:"degraded,omitempty"`
}

// FlushOutboxOutput is the output schema for the flush_outbox tool.
type FlushOutboxOutput struct {
	Replayed  int `json:"replayed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Remaining int `json:"remaining"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_highlights",
		Description: "List the highlights on a paper",
	}, s.handleListHighlights)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_highlight",
		Description: "Highlight a region of a page",
	}, s.handleAddHighlight)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_annotations",
		Description: "List the notes written on a paper",
	}, s.handleListAnnotations)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "annotate",
		Description: "Write a note on a page or on a highlight",
	}, s.handleAnnotate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat",
		Description: "Ask a question about a paper, optionally about specific highlights",
	}, s.handleChat)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "flush_outbox",
		Description: "Retry a paper's changes that could not be saved",
	}, s.handleFlushOutbox)
}

func (s *Server) handleListHighlights(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, ListHighlightsOutput, error) {
	var output ListHighlightsOutput
	_, err := s.withSession(ctx, input.DocumentID, func(session driving.DocumentSession) error {
		highlights := session.Highlights()
		output.Highlights = make([]HighlightOutput, len(highlights))
		for i := range highlights {
			output.Highlights[i] = toHighlightOutput(&highlights[i])
		}
		output.Count = len(highlights)
		return nil
	})
	if err != nil {
		return nil, ListHighlightsOutput{}, err
	}
	return nil, output, nil
}

func (s *Server) handleAddHighlight(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddHighlightInput,
) (*mcp.CallToolResult, AddHighlightOutput, error) {
	if len(input.Rect) != 4 {
		return nil, AddHighlightOutput{}, fmt.Errorf("%w: rect must have 4 values", domain.ErrInvalidInput)
	}
	rect := domain.Rect{
		X1: input.Rect[0], Y1: input.Rect[1], X2: input.Rect[2], Y2: input.Rect[3],
		Width: input.PageWidth, Height: input.PageHeight,
	}
	if rect.Width <= 0 {
		rect.Width = defaultPageWidth
	}
	if rect.Height <= 0 {
		rect.Height = defaultPageHeight
	}
	tool := domain.Tool(input.Tool)
	if tool == "" {
		tool = domain.ToolText
	}

	var output AddHighlightOutput
	warnings, err := s.withSession(ctx, input.DocumentID, func(session driving.DocumentSession) error {
		session.SetPage(input.Page)
		h, err := session.Select(ctx, domain.Selection{
			Position: &domain.Position{
				BoundingRect: rect,
				Rects:        []domain.Rect{rect},
				PageNumber:   input.Page,
			},
			Text:  input.Text,
			Image: input.Image,
			Tool:  tool,
		})
		if err != nil || h == nil {
			return err
		}
		out := toHighlightOutput(h)
		output.Created = true
		output.Highlight = &out
		return nil
	})
	if err != nil {
		return nil, AddHighlightOutput{}, err
	}
	output.Warnings = warnings
	return nil, output, nil
}

func (s *Server) handleListAnnotations(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, ListAnnotationsOutput, error) {
	var output ListAnnotationsOutput
	_, err := s.withSession(ctx, input.DocumentID, func(session driving.DocumentSession) error {
		annotations := session.Annotations()
		output.Annotations = make([]AnnotationOutput, len(annotations))
		for i := range annotations {
			out := toAnnotationOutput(&annotations[i])
			if h, ok := session.ResolveAnnotation(annotations[i]); ok {
				out.HighlightText = h.Content.Text
			}
			output.Annotations[i] = out
		}
		output.Count = len(annotations)
		return nil
	})
	if err != nil {
		return nil, ListAnnotationsOutput{}, err
	}
	return nil, output, nil
}

func (s *Server) handleAnnotate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnnotateInput,
) (*mcp.CallToolResult, AnnotateOutput, error) {
	var output AnnotateOutput
	warnings, err := s.withSession(ctx, input.DocumentID, func(session driving.DocumentSession) error {
		if input.HighlightID != "" {
			h, err := session.Highlight(input.HighlightID)
			if err != nil {
				return err
			}
			state, err := session.ClickHighlight(h.ID)
			if err != nil {
				return err
			}
			if state.SelectedHighlightID != h.ID {
				return fmt.Errorf("%w: highlight %s already has a note", domain.ErrInvalidInput, h.ID)
			}
			session.SetPage(h.Page())
		}

		draft := domain.AnnotationDraft{Content: input.Content}
		if input.Page > 0 {
			draft.Page = &input.Page
		}
		a, err := session.SaveAnnotation(ctx, draft)
		if err != nil || a == nil {
			return err
		}
		out := toAnnotationOutput(a)
		output.Saved = true
		output.Annotation = &out
		return nil
	})
	if err != nil {
		return nil, AnnotateOutput{}, err
	}
	output.Warnings = warnings
	return nil, output, nil
}

func (s *Server) handleChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	var output ChatOutput
	_, err := s.withSession(ctx, input.DocumentID, func(session driving.DocumentSession) error {
		for _, id := range input.Context {
			if err := session.AddToContext(id); err != nil {
				return err
			}
		}
		sent, err := session.SendMessage(ctx, input.Message)
		if err != nil {
			return err
		}
		if sent == nil {
			return fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
		}

		session.Wait()
		messages := session.Messages()
		reply := messages[len(messages)-1]
		if reply.ID == sent.ID {
			return errors.New("no reply received")
		}
		output.Reply = reply.Content
		output.Degraded = reply.Degraded
		return nil
	})
	if err != nil {
		return nil, ChatOutput{}, err
	}
	return nil, output, nil
}

func (s *Server) handleFlushOutbox(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, FlushOutboxOutput, error) {
	var output FlushOutboxOutput
	_, err := s.withSession(ctx, input.DocumentID, func(session driving.DocumentSession) error {
		report, err := session.Flush(ctx)
		if err != nil {
			return err
		}
		output = FlushOutboxOutput{
			Replayed:  report.Replayed,
			Failed:    report.Failed,
			Skipped:   report.Skipped,
			Remaining: len(report.Remaining),
		}
		return nil
	})
	if err != nil {
		return nil, FlushOutboxOutput{}, err
	}
	return nil, output, nil
}

func toHighlightOutput(h *domain.Highlight) HighlightOutput {
	return HighlightOutput{
		ID:      h.ID,
		Kind:    string(h.Kind),
		Page:    h.Page(),
		Text:    h.Content.Text,
		Image:   h.Content.Image,
		Color:   h.Color,
		Comment: h.Comment,
	}
}

func toAnnotationOutput(a *domain.Annotation) AnnotationOutput {
	return AnnotationOutput{
		ID:            a.ID,
		Kind:          string(a.Kind),
		Content:       a.Content,
		Page:          a.Page,
		HighlightID:   a.HighlightID,
		HighlightText: a.HighlightText,
		Detached:      a.Orphaned,
	}
}
