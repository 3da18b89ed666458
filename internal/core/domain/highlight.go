package domain

import "time"

// HighlightKind distinguishes text highlights from rectangular area captures.
type HighlightKind string

// Available highlight kinds.
const (
	// HighlightText marks a run of selected text.
	HighlightText HighlightKind = "text"

	// HighlightArea marks a rectangular region, usually a figure or table.
	HighlightArea HighlightKind = "area"
)

// IsValid returns true if the kind is recognised.
func (k HighlightKind) IsValid() bool {
	return k == HighlightText || k == HighlightArea
}

// String returns the string representation.
func (k HighlightKind) String() string {
	return string(k)
}

// Tool is the drawing tool active on the reading surface when a selection is made.
type Tool string

// Available tools.
const (
	// ToolSelect is the default pointer. Selections made with it become text highlights.
	ToolSelect Tool = "select"

	// ToolText is the explicit text highlighter.
	ToolText Tool = "text"

	// ToolArea is the rectangle capture tool.
	ToolArea Tool = "area"
)

// IsValid returns true if the tool is recognised.
func (t Tool) IsValid() bool {
	switch t {
	case ToolSelect, ToolText, ToolArea:
		return true
	default:
		return false
	}
}

// Kind returns the highlight kind produced by the tool.
// The select tool captures text.
func (t Tool) Kind() HighlightKind {
	if t == ToolArea {
		return HighlightArea
	}
	return HighlightText
}

// Rect is an axis-aligned rectangle in page coordinates.
type Rect struct {
	X1     float64
	Y1     float64
	X2     float64
	Y2     float64
	Width  float64
	Height float64

	// PageNumber is set on sub-rectangles of multi-page selections.
	PageNumber int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.X2 <= r.X1 || r.Y2 <= r.Y1
}

// Position anchors a highlight to a page.
// The core only validates and round-trips it.
type Position struct {
	// BoundingRect encloses every sub-rectangle.
	BoundingRect Rect

	// Rects are the per-line rectangles of a text selection.
	Rects []Rect

	// PageNumber is 1-based.
	PageNumber int
}

// Usable reports whether the position can anchor a highlight.
func (p *Position) Usable() bool {
	return p != nil && p.PageNumber >= 1 && !p.BoundingRect.Empty()
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	c := *p
	if p.Rects != nil {
		c.Rects = make([]Rect, len(p.Rects))
		copy(c.Rects, p.Rects)
	}
	return &c
}

// HighlightContent is what the selection captured.
type HighlightContent struct {
	// Text is the extracted text, empty for most area highlights.
	Text string

	// Image is a reference to a rendered snapshot of an area highlight.
	Image string
}

// Highlight is a persisted selection on a document.
type Highlight struct {
	// ID is generated client-side and never changes once persisted.
	ID string

	// Kind is text or area.
	Kind HighlightKind

	// Position anchors the highlight on its page.
	Position Position

	// Content holds the captured text and/or image.
	Content HighlightContent

	// Color is the display colour tag chosen from the active tool.
	Color string

	// Comment is optional free text attached after creation.
	Comment string

	// CreatedAt is when the selection was made.
	CreatedAt time.Time
}

// Page returns the page the highlight sits on.
func (h *Highlight) Page() int {
	return h.Position.PageNumber
}

// Clone returns a deep copy of the highlight.
func (h Highlight) Clone() Highlight {
	h.Position = *h.Position.Clone()
	return h
}

// HighlightPatch is a partial update. Nil fields are left unchanged.
type HighlightPatch struct {
	Comment *string
	Color   *string
}

// IsEmpty reports whether the patch changes nothing.
func (p HighlightPatch) IsEmpty() bool {
	return p.Comment == nil && p.Color == nil
}

// Apply merges the patch into h.
func (p HighlightPatch) Apply(h *Highlight) {
	if p.Comment != nil {
		h.Comment = *p.Comment
	}
	if p.Color != nil {
		h.Color = *p.Color
	}
}

// HighlightInput is the payload sent to the backend when a highlight is created.
type HighlightInput struct {
	ID       string
	Content  HighlightContent
	Position Position
	Color    string
	Kind     HighlightKind
}

// InputFor builds the creation payload for h.
func InputFor(h Highlight) HighlightInput {
	return HighlightInput{
		ID:       h.ID,
		Content:  h.Content,
		Position: *h.Position.Clone(),
		Color:    h.Color,
		Kind:     h.Kind,
	}
}

// Selection is a raw selection event from the reading surface.
type Selection struct {
	// Position is nil when the surface could not resolve geometry.
	Position *Position

	Text  string
	Image string
	Tool  Tool
}
