// Package sidebar renders the reader's notes and chat panels.
package sidebar

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// Note is an annotation with the highlight it currently resolves to.
type Note struct {
	Annotation domain.Annotation

	// Highlight is nil when the annotation is unlinked or orphaned.
	Highlight *domain.Highlight
}

// Content is everything the sidebar shows.
type Content struct {
	State domain.SidebarState
	Page  int

	// Target is the highlight new notes attach to, if any.
	Target *domain.Highlight

	Notes    []Note
	Context  []domain.Highlight
	Messages []domain.ChatMessage

	// Waiting is set while a reply is outstanding.
	Waiting bool
}

// View is the sidebar.
type View struct {
	styles  *styles.Styles
	content Content
	width   int
	height  int
}

// NewView creates a sidebar showing the notes panel.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:  s,
		content: Content{State: domain.SidebarState{Panel: domain.PanelAnnotations}, Page: 1},
		width:   40,
		height:  20,
	}
}

// SetContent replaces what the sidebar shows.
func (v *View) SetContent(c Content) {
	if c.State.Panel == "" {
		c.State.Panel = domain.PanelAnnotations
	}
	v.content = c
}

// Content returns what the sidebar shows.
func (v *View) Content() Content {
	return v.content
}

// Panel returns the panel being shown.
func (v *View) Panel() domain.SidebarPanel {
	return v.content.State.Panel
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// View renders the active panel.
func (v *View) View() string {
	var body []string
	if v.content.State.Panel == domain.PanelChat {
		body = v.chatLines()
	} else {
		body = v.noteLines()
	}

	// Keep the newest lines when the panel overflows.
	room := v.height - 2
	if room < 1 {
		room = 1
	}
	if len(body) > room {
		body = body[len(body)-room:]
	}
	return v.tabs() + "\n\n" + strings.Join(body, "\n")
}

func (v *View) tabs() string {
	notes := fmt.Sprintf(" Notes (%d) ", len(v.content.Notes))
	chat := fmt.Sprintf(" Chat (%d) ", len(v.content.Messages))
	if v.content.State.Panel == domain.PanelChat {
		return v.styles.Muted.Render(notes) + " " + v.styles.Selected.Render(chat)
	}
	return v.styles.Selected.Render(notes) + " " + v.styles.Muted.Render(chat)
}

func (v *View) noteLines() []string {
	var lines []string
	if t := v.content.Target; t != nil {
		lines = append(lines, v.styles.Subtitle.Render("Attach to: ")+v.clip(list.Label(t), 11), "")
	} else {
		lines = append(lines, v.styles.Muted.Render(fmt.Sprintf("New notes go on page %d", v.content.Page)), "")
	}

	if len(v.content.Notes) == 0 {
		return append(lines, v.styles.Muted.Render("No notes yet"))
	}

	for i := range v.content.Notes {
		n := &v.content.Notes[i]
		lines = append(lines, v.styles.Normal.Render(fmt.Sprintf("p.%-3d ", n.Annotation.Page)+v.clip(n.Annotation.Content, 6)))
		switch {
		case n.Highlight != nil:
			lines = append(lines, v.styles.Muted.Render("      On: "+v.clip(list.Label(n.Highlight), 10)))
		case n.Annotation.HighlightID != "":
			lines = append(lines, v.styles.Warning.Render("      (highlight deleted)"))
		}
	}
	return lines
}

func (v *View) chatLines() []string {
	var lines []string
	if len(v.content.Context) == 0 {
		lines = append(lines, v.styles.Muted.Render("No passages in context"), "")
	} else {
		lines = append(lines, v.styles.Subtitle.Render(fmt.Sprintf("Context (%d)", len(v.content.Context))))
		for i := range v.content.Context {
			h := &v.content.Context[i]
			lines = append(lines, " "+v.styles.Swatch(h)+" "+v.clip(list.Label(h), 5))
		}
		lines = append(lines, "")
	}

	if len(v.content.Messages) == 0 && !v.content.Waiting {
		return append(lines, v.styles.Muted.Render("Ask a question about the paper"))
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-2, 10))
	for i := range v.content.Messages {
		m := &v.content.Messages[i]
		if m.Role == domain.ChatRoleUser {
			lines = append(lines, v.styles.User.Render("You: ")+wrap.Render(m.Content))
			continue
		}
		if m.Degraded {
			lines = append(lines, v.styles.Warning.Render("(assistant unavailable, answered locally)"))
		}
		lines = append(lines, v.styles.Assistant.Render(wrap.Render(m.Content)), "")
	}
	if v.content.Waiting {
		lines = append(lines, v.styles.Muted.Render("Thinking..."))
	}
	return lines
}

// clip shortens s so it fits beside a prefix of the given width.
func (v *View) clip(s string, prefix int) string {
	s = strings.Join(strings.Fields(s), " ")
	n := v.width - prefix
	if n < 8 {
		n = 8
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
