package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/styles"
)

func TestNewComposer(t *testing.T) {
	c := NewComposer(styles.DefaultStyles())

	require.NotNil(t, c)
	assert.Equal(t, "", c.Value())
	assert.False(t, c.Focused())
	assert.Equal(t, 50, c.Width())
}

func TestNewComposer_NilStyles(t *testing.T) {
	c := NewComposer(nil)

	require.NotNil(t, c)
	assert.NotNil(t, c.styles)
}

func TestComposer_Init(t *testing.T) {
	assert.NotNil(t, NewComposer(nil).Init())
}

func TestComposer_Open(t *testing.T) {
	c := NewComposer(nil)

	c.Open("Note", "Write a note...", "draft")

	assert.True(t, c.Focused())
	assert.Equal(t, "Note", c.Label())
	assert.Equal(t, "draft", c.Value())
	assert.Contains(t, c.View(), "Note")
}

func TestComposer_Close(t *testing.T) {
	c := NewComposer(nil)
	c.Open("Ask", "", "what is attention?")

	c.Close()

	assert.False(t, c.Focused())
	assert.Equal(t, "", c.Value())
	assert.Equal(t, "", c.Label())
	assert.Empty(t, c.View())
}

func TestComposer_Update_Typing(t *testing.T) {
	c := NewComposer(nil)
	c.Open("Note", "", "")

	for _, r := range "hello" {
		c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	assert.Equal(t, "hello", c.Value())
}

func TestComposer_Update_Backspace(t *testing.T) {
	c := NewComposer(nil)
	c.Open("Comment", "", "test")

	c.Update(tea.KeyMsg{Type: tea.KeyBackspace})

	assert.Equal(t, "tes", c.Value())
}

func TestComposer_Update_IgnoredWhenClosed(t *testing.T) {
	c := NewComposer(nil)

	c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})

	assert.Equal(t, "", c.Value())
}

func TestComposer_SetValue(t *testing.T) {
	c := NewComposer(nil)

	c.SetValue("hello world")

	assert.Equal(t, "hello world", c.Value())
}

func TestComposer_SetWidth(t *testing.T) {
	c := NewComposer(nil)

	c.SetWidth(100)
	assert.Equal(t, 100, c.Width())

	c.SetWidth(10)
	assert.Equal(t, 10, c.Width())
}
