// Package keymap defines keybindings for the reader.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the reader.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding

	// Back closes the composer or clears the note target.
	Back key.Binding

	Up   key.Binding
	Down key.Binding

	// Open routes the sidebar to the highlight under the cursor.
	Open key.Binding

	// Submit saves the note or sends the question being composed.
	Submit key.Binding

	// Panel switches between the notes and chat panels.
	Panel key.Binding

	Note    key.Binding
	Ask     key.Binding
	Comment key.Binding

	// AddContext and RemoveContext edit the chat context.
	AddContext    key.Binding
	RemoveContext key.Binding

	Delete key.Binding

	PrevPage key.Binding
	NextPage key.Binding

	// Flush replays unsaved changes.
	Flush key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Panel: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "notes/chat"),
		),
		Note: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "note"),
		),
		Ask: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "chat"),
		),
		Comment: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "comment"),
		),
		AddContext: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add to context"),
		),
		RemoveContext: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "remove from context"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next page"),
		),
		Flush: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "retry unsaved"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Note, k.Ask, k.Panel, k.Help, k.Quit}
}

// ComposeHelp returns the bindings shown while typing.
func (k *KeyMap) ComposeHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Back}
}

// FullHelp returns the full list of keybindings for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.PrevPage, k.NextPage},
		{k.Note, k.Comment, k.Delete, k.Back},
		{k.Ask, k.AddContext, k.RemoveContext, k.Panel},
		{k.Flush, k.Help, k.Quit},
	}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
