// Package styles provides the reader's colours and lipgloss styles.
package styles

import (
	"regexp"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Theme is the reader's colour palette.
type Theme struct {
	Accent     lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color

	// TextHighlight and AreaHighlight are the swatches used when a highlight
	// carries no colour of its own.
	TextHighlight lipgloss.Color
	AreaHighlight lipgloss.Color

	// Assistant colours replies in the chat panel.
	Assistant lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:        lipgloss.Color("#D97706"),
		Foreground:    lipgloss.Color("#E7E5E4"),
		Muted:         lipgloss.Color("#78716C"),
		Border:        lipgloss.Color("#44403C"),
		Success:       lipgloss.Color("#86EFAC"),
		Warning:       lipgloss.Color("#FDE68A"),
		Error:         lipgloss.Color("#FCA5A5"),
		TextHighlight: lipgloss.Color(domain.DefaultTextColor),
		AreaHighlight: lipgloss.Color(domain.DefaultAreaColor),
		Assistant:     lipgloss.Color("#93C5FD"),
	}
}

// WithPalette returns a copy of the theme using the configured highlight colours.
// Invalid colours keep the current swatch.
func (t *Theme) WithPalette(palette domain.HighlightSettings) *Theme {
	out := *t
	if hexColor.MatchString(palette.TextColor) {
		out.TextHighlight = lipgloss.Color(palette.TextColor)
	}
	if hexColor.MatchString(palette.AreaColor) {
		out.AreaHighlight = lipgloss.Color(palette.AreaColor)
	}
	return &out
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style

	// User and Assistant style chat turns.
	User      lipgloss.Style
	Assistant lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style

	// Pane frames the highlight list and the sidebar.
	Pane       lipgloss.Style
	ActivePane lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Accent),

		Subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Foreground),

		Normal: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1C1917")).
			Background(theme.Accent),

		Error: lipgloss.NewStyle().
			Foreground(theme.Error),

		Success: lipgloss.NewStyle().
			Foreground(theme.Success),

		Warning: lipgloss.NewStyle().
			Foreground(theme.Warning),

		User: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Foreground),

		Assistant: lipgloss.NewStyle().
			Foreground(theme.Assistant),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(lipgloss.Color("#1C1917")).
			Padding(0, 1),

		Help: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Pane: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		ActivePane: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Accent).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Swatch returns a small block painted in the highlight's colour.
// Highlights without a valid colour use the palette colour for their kind.
func (s *Styles) Swatch(h *domain.Highlight) string {
	c := s.theme.TextHighlight
	if h.Kind == domain.HighlightArea {
		c = s.theme.AreaHighlight
	}
	if hexColor.MatchString(h.Color) {
		c = lipgloss.Color(h.Color)
	}
	return lipgloss.NewStyle().Background(c).Render("  ")
}
