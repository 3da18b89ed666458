package services

import "github.com/custodia-labs/marginalia/internal/core/domain"

// SidebarRouter decides which sidebar panel is focused and which highlight
// new notes attach to.
type SidebarRouter struct {
	state domain.SidebarState
}

// NewSidebarRouter starts on the annotations panel with nothing selected.
func NewSidebarRouter() *SidebarRouter {
	return &SidebarRouter{state: domain.SidebarState{Panel: domain.PanelAnnotations}}
}

// State returns the current focus.
func (r *SidebarRouter) State() domain.SidebarState {
	return r.state
}

// Click routes a click on an existing highlight.
//
// A highlight already in the chat context shows the chat. A highlight with
// a note shows the notes without selecting anything. Otherwise the highlight
// is selected so a note can be written for it.
func (r *SidebarRouter) Click(highlightID string, inContext, hasNote bool) domain.SidebarState {
	switch {
	case inContext:
		r.state.Panel = domain.PanelChat
	case hasNote:
		r.state = domain.SidebarState{Panel: domain.PanelAnnotations}
	default:
		r.state = domain.SidebarState{Panel: domain.PanelAnnotations, SelectedHighlightID: highlightID}
	}
	return r.state
}

// FocusChat switches to the chat panel.
func (r *SidebarRouter) FocusChat() {
	r.state.Panel = domain.PanelChat
}

// SetPanel switches panels and keeps the selection.
func (r *SidebarRouter) SetPanel(panel domain.SidebarPanel) {
	r.state.Panel = panel
}

// ClearSelection deselects the annotation target.
func (r *SidebarRouter) ClearSelection() {
	r.state.SelectedHighlightID = ""
}

// Forget clears the selection if it points at highlightID.
func (r *SidebarRouter) Forget(highlightID string) {
	if r.state.SelectedHighlightID == highlightID {
		r.state.SelectedHighlightID = ""
	}
}
