package rest

import (
	"time"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// Wire formats for the backend JSON API. Positions use the page viewer's
// coordinate shape so they round-trip untouched.

type rectJSON struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PageNumber int     `json:"pageNumber,omitempty"`
}

type positionJSON struct {
	BoundingRect rectJSON   `json:"boundingRect"`
	Rects        []rectJSON `json:"rects"`
	PageNumber   int        `json:"pageNumber"`
}

type contentJSON struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

type highlightJSON struct {
	ID        string       `json:"id"`
	Kind      string       `json:"kind"`
	Position  positionJSON `json:"position"`
	Content   contentJSON  `json:"content"`
	Color     string       `json:"color,omitempty"`
	Comment   string       `json:"comment,omitempty"`
	CreatedAt *time.Time   `json:"created_at,omitempty"`
}

type highlightPatchJSON struct {
	Comment *string `json:"comment,omitempty"`
	Color   *string `json:"color,omitempty"`
}

type annotationJSON struct {
	ID            string        `json:"id"`
	Type          string        `json:"type"`
	Content       string        `json:"content"`
	Page          int           `json:"page"`
	HighlightID   string        `json:"highlight_id,omitempty"`
	HighlightText string        `json:"highlight_text,omitempty"`
	Position      *positionJSON `json:"position,omitempty"`
	CreatedAt     *time.Time    `json:"created_at,omitempty"`
}

type documentJSON struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
}

type snapshotJSON struct {
	Document    documentJSON     `json:"document"`
	Highlights  []highlightJSON  `json:"highlights"`
	Annotations []annotationJSON `json:"annotations"`
}

type chatRequestJSON struct {
	Message      string   `json:"message"`
	HighlightIDs []string `json:"highlight_ids"`
}

type chatResponseJSON struct {
	Reply string `json:"reply"`
}

type errorJSON struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toRectJSON(r domain.Rect) rectJSON {
	return rectJSON{X1: r.X1, Y1: r.Y1, X2: r.X2, Y2: r.Y2, Width: r.Width, Height: r.Height, PageNumber: r.PageNumber}
}

func (r rectJSON) toDomain() domain.Rect {
	return domain.Rect{X1: r.X1, Y1: r.Y1, X2: r.X2, Y2: r.Y2, Width: r.Width, Height: r.Height, PageNumber: r.PageNumber}
}

func toPositionJSON(p domain.Position) positionJSON {
	out := positionJSON{
		BoundingRect: toRectJSON(p.BoundingRect),
		Rects:        make([]rectJSON, len(p.Rects)),
		PageNumber:   p.PageNumber,
	}
	for i, r := range p.Rects {
		out.Rects[i] = toRectJSON(r)
	}
	return out
}

func (p positionJSON) toDomain() domain.Position {
	out := domain.Position{
		BoundingRect: p.BoundingRect.toDomain(),
		PageNumber:   p.PageNumber,
	}
	if len(p.Rects) > 0 {
		out.Rects = make([]domain.Rect, len(p.Rects))
		for i, r := range p.Rects {
			out.Rects[i] = r.toDomain()
		}
	}
	return out
}

func toHighlightInputJSON(in domain.HighlightInput) highlightJSON {
	return highlightJSON{
		ID:       in.ID,
		Kind:     string(in.Kind),
		Position: toPositionJSON(in.Position),
		Content:  contentJSON{Text: in.Content.Text, Image: in.Content.Image},
		Color:    in.Color,
	}
}

func (h highlightJSON) toDomain() domain.Highlight {
	out := domain.Highlight{
		ID:       h.ID,
		Kind:     domain.HighlightKind(h.Kind),
		Position: h.Position.toDomain(),
		Content:  domain.HighlightContent{Text: h.Content.Text, Image: h.Content.Image},
		Color:    h.Color,
		Comment:  h.Comment,
	}
	if !out.Kind.IsValid() {
		out.Kind = domain.HighlightText
	}
	if h.CreatedAt != nil {
		out.CreatedAt = *h.CreatedAt
	}
	return out
}

func toAnnotationJSON(in domain.AnnotationInput) annotationJSON {
	out := annotationJSON{
		ID:          in.ID,
		Type:        string(in.Kind),
		Content:     in.Content,
		Page:        in.Page,
		HighlightID: in.HighlightID,
	}
	if in.Position != nil {
		p := toPositionJSON(*in.Position)
		out.Position = &p
	}
	return out
}

func (a annotationJSON) toDomain() domain.Annotation {
	out := domain.Annotation{
		ID:            a.ID,
		Kind:          domain.AnnotationKind(a.Type),
		Content:       a.Content,
		Page:          a.Page,
		HighlightID:   a.HighlightID,
		HighlightText: a.HighlightText,
	}
	if !out.Kind.IsValid() {
		out.Kind = domain.AnnotationFree
		if out.HighlightID != "" {
			out.Kind = domain.AnnotationNote
		}
	}
	if a.Position != nil {
		p := a.Position.toDomain()
		out.Position = &p
	}
	if a.CreatedAt != nil {
		out.CreatedAt = *a.CreatedAt
	}
	return out
}

func (s snapshotJSON) toDomain() *domain.DocumentSnapshot {
	snap := &domain.DocumentSnapshot{
		Document: domain.Document{
			ID:        s.Document.ID,
			Title:     s.Document.Title,
			URL:       s.Document.URL,
			PageCount: s.Document.PageCount,
		},
		Highlights:  make([]domain.Highlight, 0, len(s.Highlights)),
		Annotations: make([]domain.Annotation, 0, len(s.Annotations)),
	}
	for _, h := range s.Highlights {
		snap.Highlights = append(snap.Highlights, h.toDomain())
	}
	for _, a := range s.Annotations {
		snap.Annotations = append(snap.Annotations, a.toDomain())
	}
	return snap
}
