// Package input provides the reader's single-line composer.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/styles"
)

// charLimit bounds a single note or question.
const charLimit = 2000

// Composer wraps a bubbles textinput with a label for notes, questions and comments.
type Composer struct {
	textinput textinput.Model
	styles    *styles.Styles
	label     string
	width     int
}

// NewComposer creates a closed composer.
func NewComposer(s *styles.Styles) *Composer {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.CharLimit = charLimit
	ti.Width = 50

	return &Composer{
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Init initialises the composer.
func (c *Composer) Init() tea.Cmd {
	return textinput.Blink
}

// Open focuses the composer with a label, placeholder and initial text.
func (c *Composer) Open(label, placeholder, value string) tea.Cmd {
	c.label = label
	c.textinput.Placeholder = placeholder
	c.textinput.SetValue(value)
	c.textinput.CursorEnd()
	return c.textinput.Focus()
}

// Close blurs and clears the composer.
func (c *Composer) Close() {
	c.textinput.Blur()
	c.textinput.Reset()
	c.label = ""
}

// Update handles input messages.
func (c *Composer) Update(msg tea.Msg) (*Composer, tea.Cmd) {
	var cmd tea.Cmd
	c.textinput, cmd = c.textinput.Update(msg)
	return c, cmd
}

// View renders the composer, or nothing when it is closed.
func (c *Composer) View() string {
	if !c.textinput.Focused() {
		return ""
	}
	label := c.styles.Title.Render(c.label + ": ")
	field := c.styles.InputField.Render(c.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the current text.
func (c *Composer) Value() string {
	return c.textinput.Value()
}

// SetValue replaces the current text.
func (c *Composer) SetValue(value string) {
	c.textinput.SetValue(value)
}

// Label returns the label shown before the field.
func (c *Composer) Label() string {
	return c.label
}

// Focused returns whether the composer is open.
func (c *Composer) Focused() bool {
	return c.textinput.Focused()
}

// SetWidth sets the width of the composer.
func (c *Composer) SetWidth(width int) {
	c.width = width
	inputWidth := width - len(c.label) - 8
	if inputWidth < 20 {
		inputWidth = 20
	}
	c.textinput.Width = inputWidth
}

// Width returns the current width.
func (c *Composer) Width() int {
	return c.width
}
