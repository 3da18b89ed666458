package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	require.NotNil(t, theme)
	assert.NotEmpty(t, string(theme.Accent))
	assert.NotEmpty(t, string(theme.Foreground))
	assert.NotEmpty(t, string(theme.Muted))
	assert.NotEmpty(t, string(theme.Border))
	assert.Equal(t, lipgloss.Color(domain.DefaultTextColor), theme.TextHighlight)
	assert.Equal(t, lipgloss.Color(domain.DefaultAreaColor), theme.AreaHighlight)
}

func TestDefaultTheme_StatusColoursAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	seen := make(map[lipgloss.Color]bool)
	for _, c := range []lipgloss.Color{theme.Accent, theme.Success, theme.Warning, theme.Error} {
		assert.False(t, seen[c], "duplicate colour: %s", c)
		seen[c] = true
	}
}

func TestTheme_WithPalette(t *testing.T) {
	theme := DefaultTheme()

	out := theme.WithPalette(domain.HighlightSettings{TextColor: "#112233", AreaColor: "not-a-colour"})

	assert.Equal(t, lipgloss.Color("#112233"), out.TextHighlight)
	assert.Equal(t, theme.AreaHighlight, out.AreaHighlight)
	assert.Equal(t, lipgloss.Color(domain.DefaultTextColor), theme.TextHighlight, "original theme is unchanged")
}

func TestNewStyles_WithTheme(t *testing.T) {
	theme := DefaultTheme()
	s := NewStyles(theme)

	require.NotNil(t, s)
	assert.Equal(t, theme, s.Theme())
}

func TestNewStyles_NilTheme(t *testing.T) {
	s := NewStyles(nil)

	require.NotNil(t, s)
	assert.NotNil(t, s.Theme())
}

func TestDefaultStyles_Render(t *testing.T) {
	s := DefaultStyles()

	for name, style := range map[string]lipgloss.Style{
		"title":     s.Title,
		"normal":    s.Normal,
		"muted":     s.Muted,
		"selected":  s.Selected,
		"assistant": s.Assistant,
	} {
		assert.Contains(t, style.Render("page 3"), "page 3", name)
	}
}

func TestStyles_Swatch(t *testing.T) {
	s := DefaultStyles()

	for _, h := range []*domain.Highlight{
		{Kind: domain.HighlightText},
		{Kind: domain.HighlightArea},
		{Kind: domain.HighlightText, Color: "#FF0000"},
	} {
		out := s.Swatch(h)
		assert.Equal(t, 2, lipgloss.Width(out))
		assert.Equal(t, "  ", stripANSI(out))
	}
}

// stripANSI removes escape sequences so rendered output can be compared.
func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEscape = false
		case !inEscape:
			b.WriteRune(r)
		}
	}
	return b.String()
}
