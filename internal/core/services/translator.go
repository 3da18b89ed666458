package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// Translator turns raw selections from the reading surface into highlights.
// The palette can be swapped at runtime when settings change.
type Translator struct {
	mu      sync.RWMutex
	palette domain.HighlightSettings

	newID func() string
	now   func() time.Time
}

// NewTranslator creates a translator using the given tool palette.
// Empty colours fall back to the defaults.
func NewTranslator(palette domain.HighlightSettings) *Translator {
	t := &Translator{
		newID: uuid.NewString,
		now:   time.Now,
	}
	t.SetPalette(palette)
	return t
}

// SetPalette replaces the tool palette.
func (t *Translator) SetPalette(palette domain.HighlightSettings) {
	if palette.TextColor == "" {
		palette.TextColor = domain.DefaultTextColor
	}
	if palette.AreaColor == "" {
		palette.AreaColor = domain.DefaultAreaColor
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.palette = palette
}

// Palette returns the current tool palette.
func (t *Translator) Palette() domain.HighlightSettings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.palette
}

// ColorFor returns the colour a tool paints with.
func (t *Translator) ColorFor(tool domain.Tool) string {
	p := t.Palette()
	if tool.Kind() == domain.HighlightArea {
		return p.AreaColor
	}
	return p.TextColor
}

// Translate builds a highlight from a selection.
// Returns domain.ErrNoGeometry if the selection cannot be anchored and
// domain.ErrUnknownTool if the tool is not recognised.
func (t *Translator) Translate(sel domain.Selection) (domain.Highlight, error) {
	if !sel.Position.Usable() {
		return domain.Highlight{}, domain.ErrNoGeometry
	}
	tool := sel.Tool
	if tool == "" {
		tool = domain.ToolSelect
	}
	if !tool.IsValid() {
		return domain.Highlight{}, fmt.Errorf("%w: %q", domain.ErrUnknownTool, sel.Tool)
	}

	return domain.Highlight{
		ID:       t.newID(),
		Kind:     tool.Kind(),
		Position: *sel.Position.Clone(),
		Content: domain.HighlightContent{
			Text:  sel.Text,
			Image: sel.Image,
		},
		Color:     t.ColorFor(tool),
		CreatedAt: t.now(),
	}, nil
}
