// Package status provides the reader's status bar.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/styles"
)

// State represents what the reader is doing, for display.
type State string

const (
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StateComposing State = "composing"
	StateError     State = "error"
	StateHelp      State = "help"
)

// Bar displays the page, unsaved changes and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	page    int
	unsaved int
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateLoading,
		page:   1,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(_ tea.Msg) (*Bar, tea.Cmd) {
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	// StatusBar pads one cell on each side.
	padding := s.width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	parts := []string{s.styles.Normal.Render(fmt.Sprintf("p.%d", s.page))}
	if s.unsaved > 0 {
		parts = append(parts, s.styles.Warning.Render(fmt.Sprintf("%d unsaved", s.unsaved)))
	}

	switch s.state {
	case StateLoading:
		parts = append(parts, s.styles.Muted.Render("Loading..."))
	case StateError:
		msg := "Error"
		if s.message != "" {
			msg = "Error: " + s.message
		}
		parts = append(parts, s.styles.Error.Render(msg))
	case StateHelp:
		parts = append(parts, s.styles.Normal.Render("Help"))
	case StateReady, StateComposing:
		if s.message != "" {
			parts = append(parts, s.styles.Muted.Render(s.message))
		}
	}
	return strings.Join(parts, "  ")
}

func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()
	if s.state == StateComposing {
		bindings = s.keymap.ComposeHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		hints = append(hints, hint(b))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

func hint(b key.Binding) string {
	h := b.Help()
	return fmt.Sprintf("%s: %s", h.Key, h.Desc)
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets a transient message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetPage sets the page shown.
func (s *Bar) SetPage(page int) {
	s.page = page
}

// Page returns the page shown.
func (s *Bar) Page() int {
	return s.page
}

// SetUnsaved sets the number of changes waiting in the outbox.
func (s *Bar) SetUnsaved(n int) {
	s.unsaved = n
}

// Unsaved returns the number of changes waiting in the outbox.
func (s *Bar) Unsaved() int {
	return s.unsaved
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear returns the bar to the ready state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
}
