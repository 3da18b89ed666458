package domain

// SidebarPanel selects which panel the reader's sidebar shows.
type SidebarPanel string

// Available panels.
const (
	PanelAnnotations SidebarPanel = "annotations"
	PanelChat        SidebarPanel = "chat"
)

// String returns the string representation.
func (p SidebarPanel) String() string {
	return string(p)
}

// SidebarState is the sidebar's current focus.
type SidebarState struct {
	Panel SidebarPanel

	// SelectedHighlightID is the highlight a new note will be attached to.
	// Empty when nothing is selected.
	SelectedHighlightID string
}
