// Package list provides the reader's highlight list.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// linesPerItem is the height of one rendered highlight.
const linesPerItem = 2

// HighlightList displays a document's highlights in a navigable list.
type HighlightList struct {
	highlights []domain.Highlight
	inContext  map[string]bool
	target     string
	selected   int
	styles     *styles.Styles
	width      int
	height     int
}

// NewHighlightList creates an empty highlight list.
func NewHighlightList(s *styles.Styles) *HighlightList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &HighlightList{
		inContext: make(map[string]bool),
		styles:    s,
		width:     40,
		height:    10,
	}
}

// Init initialises the list.
func (l *HighlightList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (l *HighlightList) Update(msg tea.Msg) (*HighlightList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		}
	}
	return l, nil
}

// View renders the list.
func (l *HighlightList) View() string {
	header := l.styles.Subtitle.Render(fmt.Sprintf("Highlights (%d)", len(l.highlights)))
	if len(l.highlights) == 0 {
		return header + "\n\n" + l.styles.Muted.Render("No highlights yet")
	}

	visible := (l.height - 2) / linesPerItem
	if visible < 1 {
		visible = 1
	}
	start := 0
	if l.selected >= visible {
		start = l.selected - visible + 1
	}
	end := start + visible
	if end > len(l.highlights) {
		end = len(l.highlights)
	}

	lines := make([]string, 0, (end-start)*linesPerItem+2)
	lines = append(lines, header, "")
	for i := start; i < end; i++ {
		lines = append(lines, l.renderHighlight(i, &l.highlights[i]))
	}
	return strings.Join(lines, "\n")
}

func (l *HighlightList) renderHighlight(index int, h *domain.Highlight) string {
	marker := " "
	switch {
	case h.ID == l.target:
		marker = "✎"
	case l.inContext[h.ID]:
		marker = "◆"
	}

	label := Label(h)
	maxLen := l.width - 12
	if maxLen < 10 {
		maxLen = 10
	}
	label = truncate(label, maxLen)

	title := fmt.Sprintf("%s p.%-3d %s", marker, h.Page(), label)
	if index == l.selected {
		title = l.styles.Selected.Render(title)
	} else {
		title = l.styles.Normal.Render(title)
	}

	detail := ""
	if h.Comment != "" {
		detail = truncate(h.Comment, maxLen)
	}
	return l.styles.Swatch(h) + " " + title + "\n" + l.styles.Muted.Render("     "+detail)
}

// Label returns the text shown for a highlight.
func Label(h *domain.Highlight) string {
	switch {
	case h.Content.Text != "":
		return strings.Join(strings.Fields(h.Content.Text), " ")
	case h.Content.Image != "":
		return "[area] " + h.Content.Image
	case h.Kind == domain.HighlightArea:
		return "[area]"
	default:
		return "(no text)"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// SetHighlights replaces the list, keeping the cursor on the same highlight when possible.
func (l *HighlightList) SetHighlights(highlights []domain.Highlight) {
	current := ""
	if h := l.SelectedHighlight(); h != nil {
		current = h.ID
	}
	l.highlights = highlights
	l.selected = 0
	for i := range highlights {
		if highlights[i].ID == current {
			l.selected = i
			break
		}
	}
}

// SetContext marks the highlights that are in the chat context.
func (l *HighlightList) SetContext(ids []string) {
	l.inContext = make(map[string]bool, len(ids))
	for _, id := range ids {
		l.inContext[id] = true
	}
}

// SetTarget marks the highlight new notes attach to.
func (l *HighlightList) SetTarget(id string) {
	l.target = id
}

// Highlights returns the listed highlights.
func (l *HighlightList) Highlights() []domain.Highlight {
	return l.highlights
}

// Selected returns the cursor index.
func (l *HighlightList) Selected() int {
	return l.selected
}

// SetSelected moves the cursor.
func (l *HighlightList) SetSelected(index int) {
	if index >= 0 && index < len(l.highlights) {
		l.selected = index
	}
}

// Select moves the cursor to a highlight by ID.
func (l *HighlightList) Select(id string) bool {
	for i := range l.highlights {
		if l.highlights[i].ID == id {
			l.selected = i
			return true
		}
	}
	return false
}

// SelectedHighlight returns the highlight under the cursor, or nil.
func (l *HighlightList) SelectedHighlight() *domain.Highlight {
	if l.selected < 0 || l.selected >= len(l.highlights) {
		return nil
	}
	return &l.highlights[l.selected]
}

// MoveUp moves the cursor up.
func (l *HighlightList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves the cursor down.
func (l *HighlightList) MoveDown() {
	if l.selected < len(l.highlights)-1 {
		l.selected++
	}
}

// SetDimensions sets the component dimensions.
func (l *HighlightList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Count returns the number of highlights.
func (l *HighlightList) Count() int {
	return len(l.highlights)
}

// IsEmpty returns whether the list is empty.
func (l *HighlightList) IsEmpty() bool {
	return len(l.highlights) == 0
}
