package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui/views/sidebar"
	"github.com/custodia-labs/marginalia/internal/core/domain"
	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
)

// App is the reader following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports      *Ports
	documentID string
	ctx        context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	list     *list.HighlightList
	sidebar  *sidebar.View
	composer *input.Composer
	status   *status.Bar

	// session is nil until the document has loaded.
	session  driving.DocumentSession
	settings domain.AppSettings

	mode messages.Mode

	// editing is the highlight whose comment is being edited.
	editing string

	// waiting counts chat replies not yet received.
	waiting int

	// unsaved counts changes waiting in the outbox.
	unsaved int

	configChanged chan struct{}

	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a reader for one document.
func NewApp(ports *Ports, documentID string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("creating app: %w", ErrMissingDocument)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:         ports,
		documentID:    documentID,
		ctx:           context.Background(),
		styles:        s,
		keymap:        km,
		list:          list.NewHighlightList(s),
		sidebar:       sidebar.NewView(s),
		composer:      input.NewComposer(s),
		status:        status.NewBar(s, km),
		settings:      domain.DefaultAppSettings(),
		mode:          messages.ModeBrowse,
		configChanged: make(chan struct{}, 1),
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("marginalia - "+a.documentID),
		a.openDocument(),
		a.loadSettings(),
		a.watchConfig(),
	)
}

func (a *App) openDocument() tea.Cmd {
	reader, ctx, id := a.ports.Reader, a.ctx, a.documentID
	return func() tea.Msg {
		session, err := reader.Open(ctx, id)
		return messages.DocumentOpened{Session: session, Err: err}
	}
}

func (a *App) loadSettings() tea.Cmd {
	svc := a.ports.Settings
	if svc == nil {
		return nil
	}
	return func() tea.Msg {
		s, err := svc.Get()
		return messages.SettingsLoaded{Settings: s, Err: err}
	}
}

// watchConfig starts the watcher and waits for its first change.
func (a *App) watchConfig() tea.Cmd {
	if a.ports.Watch == nil {
		return nil
	}
	watch, ctx, ch := a.ports.Watch, a.ctx, a.configChanged
	go func() {
		_ = watch(ctx, func() {
			select {
			case ch <- struct{}{}:
			default:
			}
		})
	}()
	return a.waitForConfig()
}

func (a *App) waitForConfig() tea.Cmd {
	ctx, ch := a.ctx, a.configChanged
	return func() tea.Msg {
		select {
		case <-ch:
			return messages.ConfigChanged{}
		case <-ctx.Done():
			return nil
		}
	}
}

func waitForEvent(events <-chan driving.PersistResult) tea.Cmd {
	return func() tea.Msg {
		result, ok := <-events
		if !ok {
			return messages.EventsClosed{}
		}
		return messages.PersistCompleted{Result: result}
	}
}

func (a *App) scheduleReplay() tea.Cmd {
	interval := a.settings.Outbox.ReplayInterval
	if interval <= 0 {
		interval = domain.DefaultAppSettings().Outbox.ReplayInterval
	}
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return messages.ReplayTick{}
	})
}

func (a *App) flush() tea.Cmd {
	session, ctx := a.session, a.ctx
	return func() tea.Msg {
		report, err := session.Flush(ctx)
		return messages.OutboxReplayed{Report: report, Err: err}
	}
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.DocumentOpened:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.session = msg.Session
		a.status.Clear()
		a.status.SetMessage(fmt.Sprintf("Opened %s", documentTitle(a.session.Document())))
		a.refresh()
		return a, tea.Batch(waitForEvent(a.session.Events()), a.scheduleReplay())

	case messages.PersistCompleted:
		a.handleResult(msg.Result)
		a.refresh()
		return a, waitForEvent(a.session.Events())

	case messages.EventsClosed:
		return a, nil

	case messages.ReplayTick:
		if a.session == nil {
			return a, a.scheduleReplay()
		}
		if a.unsaved == 0 {
			return a, a.scheduleReplay()
		}
		return a, tea.Batch(a.flush(), a.scheduleReplay())

	case messages.OutboxReplayed:
		if msg.Err != nil {
			a.setError(fmt.Errorf("retrying unsaved changes: %w", msg.Err))
			return a, nil
		}
		a.unsaved = len(msg.Report.Remaining)
		a.status.SetUnsaved(a.unsaved)
		if msg.Report.Replayed > 0 {
			a.status.SetMessage(fmt.Sprintf("Saved %d change(s)", msg.Report.Replayed))
		}
		return a, nil

	case messages.SettingsLoaded:
		if msg.Err != nil {
			a.setError(fmt.Errorf("loading settings: %w", msg.Err))
			return a, nil
		}
		a.applySettings(msg.Settings)
		return a, nil

	case messages.ConfigChanged:
		a.status.SetMessage("Settings reloaded")
		return a, tea.Batch(a.loadSettings(), a.waitForConfig())

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	if a.mode.Composing() {
		var cmd tea.Cmd
		a.composer, cmd = a.composer.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	if a.mode.Composing() {
		return a.handleComposeKey(msg)
	}

	if a.mode == messages.ModeHelp {
		if keymap.Matches(key, a.keymap.Quit) {
			return a, tea.Quit
		}
		a.setMode(messages.ModeBrowse)
		return a, nil
	}

	if keymap.Matches(key, a.keymap.Quit) {
		return a, tea.Quit
	}
	if keymap.Matches(key, a.keymap.Help) {
		a.setMode(messages.ModeHelp)
		return a, nil
	}
	if a.session == nil {
		return a, nil
	}

	km := a.keymap
	switch {
	case keymap.Matches(key, km.Up), keymap.Matches(key, km.Down):
		a.list, _ = a.list.Update(msg)
	case keymap.Matches(key, km.Open):
		a.withSelected(func(h *domain.Highlight) error {
			_, err := a.session.ClickHighlight(h.ID)
			return err
		})
	case keymap.Matches(key, km.Panel):
		next := domain.PanelChat
		if a.session.Sidebar().Panel == domain.PanelChat {
			next = domain.PanelAnnotations
		}
		a.session.SetSidebarPanel(next)
	case keymap.Matches(key, km.Back):
		a.session.ClearAnnotationTarget()
	case keymap.Matches(key, km.Note):
		return a, a.openComposer(messages.ModeNote)
	case keymap.Matches(key, km.Ask):
		a.session.SetSidebarPanel(domain.PanelChat)
		return a, a.openComposer(messages.ModeChat)
	case keymap.Matches(key, km.Comment):
		if h := a.list.SelectedHighlight(); h != nil {
			a.editing = h.ID
			return a, a.openComposer(messages.ModeComment)
		}
	case keymap.Matches(key, km.AddContext):
		a.withSelected(func(h *domain.Highlight) error {
			return a.session.AddToContext(h.ID)
		})
	case keymap.Matches(key, km.RemoveContext):
		a.withSelected(func(h *domain.Highlight) error {
			if !a.session.RemoveFromContext(h.ID) {
				a.status.SetMessage("Not in context")
			}
			return nil
		})
	case keymap.Matches(key, km.Delete):
		a.withSelected(func(h *domain.Highlight) error {
			return a.session.DeleteHighlight(a.ctx, h.ID)
		})
	case keymap.Matches(key, km.PrevPage):
		a.session.SetPage(a.session.Page() - 1)
	case keymap.Matches(key, km.NextPage):
		a.nextPage()
	case keymap.Matches(key, km.Flush):
		a.status.SetMessage("Retrying unsaved changes...")
		return a, a.flush()
	}

	a.refresh()
	return a, nil
}

func (a *App) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), a.keymap.Back):
		a.closeComposer()
		return a, nil
	case keymap.Matches(msg.String(), a.keymap.Submit):
		a.submit(a.composer.Value())
		a.closeComposer()
		a.refresh()
		return a, nil
	}

	var cmd tea.Cmd
	a.composer, cmd = a.composer.Update(msg)
	return a, cmd
}

func (a *App) openComposer(mode messages.Mode) tea.Cmd {
	a.setMode(mode)
	switch mode {
	case messages.ModeNote:
		placeholder := fmt.Sprintf("Note on page %d", a.session.Page())
		if id := a.session.Sidebar().SelectedHighlightID; id != "" {
			if h, err := a.session.Highlight(id); err == nil {
				placeholder = "Note on " + list.Label(h)
			}
		}
		return a.composer.Open("Note", placeholder, "")
	case messages.ModeChat:
		return a.composer.Open("Ask", "Ask about the passages in context", "")
	case messages.ModeComment:
		current := ""
		if h, err := a.session.Highlight(a.editing); err == nil {
			current = h.Comment
		}
		return a.composer.Open("Comment", "Comment on this highlight", current)
	default:
		return nil
	}
}

func (a *App) closeComposer() {
	a.composer.Close()
	a.editing = ""
	a.setMode(messages.ModeBrowse)
}

// submit applies the composed text according to the current mode.
func (a *App) submit(text string) {
	switch a.mode {
	case messages.ModeNote:
		note, err := a.session.SaveAnnotation(a.ctx, domain.AnnotationDraft{Content: text})
		switch {
		case err != nil:
			a.setError(err)
		case note == nil:
			a.status.SetMessage("Note is empty; nothing saved")
		default:
			a.status.SetMessage(fmt.Sprintf("Note saved on page %d", note.Page))
		}

	case messages.ModeChat:
		sent, err := a.session.SendMessage(a.ctx, text)
		switch {
		case err != nil:
			a.setError(err)
		case sent != nil:
			a.waiting++
		}

	case messages.ModeComment:
		comment := strings.TrimSpace(text)
		if err := a.session.UpdateHighlight(a.ctx, a.editing, domain.HighlightPatch{Comment: &comment}); err != nil {
			a.setError(err)
		}

	case messages.ModeBrowse, messages.ModeHelp:
	}
}

func (a *App) handleResult(r driving.PersistResult) {
	if r.Op == domain.OpSendChatMessage {
		if a.waiting > 0 {
			a.waiting--
		}
		if r.Err != nil {
			a.status.SetMessage("Assistant unavailable; answered locally")
		}
		return
	}
	if r.Err == nil {
		return
	}
	if r.Queued {
		a.unsaved++
		a.status.SetUnsaved(a.unsaved)
		a.status.SetMessage(fmt.Sprintf("%s not saved; will retry", describeOp(r.Op)))
		return
	}
	a.setError(fmt.Errorf("%s failed: %w", describeOp(r.Op), r.Err))
}

// withSelected runs fn on the highlight under the cursor and reports its error.
func (a *App) withSelected(fn func(h *domain.Highlight) error) {
	h := a.list.SelectedHighlight()
	if h == nil {
		return
	}
	if err := fn(h); err != nil {
		a.setError(err)
	}
}

func (a *App) nextPage() {
	page := a.session.Page() + 1
	if count := a.session.Document().PageCount; count > 0 && page > count {
		return
	}
	a.session.SetPage(page)
}

// refresh copies the session state into the components.
func (a *App) refresh() {
	if a.session == nil {
		return
	}
	s := a.session

	highlights := s.Highlights()
	contextIDs := s.Context()
	state := s.Sidebar()

	a.list.SetHighlights(highlights)
	a.list.SetContext(contextIDs)
	a.list.SetTarget(state.SelectedHighlightID)
	if state.SelectedHighlightID != "" {
		a.list.Select(state.SelectedHighlightID)
	}

	content := sidebar.Content{
		State:    state,
		Page:     s.Page(),
		Messages: s.Messages(),
		Waiting:  a.waiting > 0,
	}
	if state.SelectedHighlightID != "" {
		if h, err := s.Highlight(state.SelectedHighlightID); err == nil {
			content.Target = h
		}
	}
	for _, id := range contextIDs {
		if h, err := s.Highlight(id); err == nil {
			content.Context = append(content.Context, *h)
		}
	}
	for _, an := range s.Annotations() {
		note := sidebar.Note{Annotation: an}
		if h, ok := s.ResolveAnnotation(an); ok {
			note.Highlight = h
		}
		content.Notes = append(content.Notes, note)
	}
	a.sidebar.SetContent(content)
	a.status.SetPage(s.Page())
}

func (a *App) applySettings(s *domain.AppSettings) {
	if s == nil {
		return
	}
	a.settings = *s
	*a.styles = *styles.NewStyles(a.styles.Theme().WithPalette(s.Highlight))
}

func (a *App) setMode(mode messages.Mode) {
	a.mode = mode
	switch {
	case mode.Composing():
		a.status.SetState(status.StateComposing)
	case mode == messages.ModeHelp:
		a.status.SetState(status.StateHelp)
	case a.session == nil && a.err == nil:
		a.status.SetState(status.StateLoading)
	default:
		a.status.SetState(status.StateReady)
	}
}

func (a *App) setError(err error) {
	a.err = err
	a.status.SetState(status.StateError)
	switch {
	case errors.Is(err, domain.ErrNotFound) && a.session == nil:
		a.status.SetMessage(fmt.Sprintf("document %s not found", a.documentID))
	case errors.Is(err, domain.ErrAuthRequired):
		a.status.SetMessage("not signed in; run 'marginalia login'")
	default:
		a.status.SetMessage(err.Error())
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	if a.mode == messages.ModeHelp {
		return a.viewHelp() + "\n" + a.status.View()
	}
	if a.session == nil {
		body := a.styles.Muted.Render("Loading " + a.documentID + "...")
		if a.err != nil {
			body = a.styles.Error.Render(a.status.Message())
		}
		return lipgloss.Place(a.width, a.height-1, lipgloss.Center, lipgloss.Center, body) + "\n" + a.status.View()
	}

	header := a.styles.Title.Render(documentTitle(a.session.Document()))
	if who := a.session.Identity(); !who.IsZero() {
		header += a.styles.Muted.Render("  " + who.Email)
	}

	listPane := a.styles.ActivePane
	sidePane := a.styles.Pane
	if a.mode == messages.ModeChat || a.mode == messages.ModeNote {
		listPane, sidePane = sidePane, listPane
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		listPane.Render(a.list.View()),
		sidePane.Render(a.sidebar.View()),
	)

	parts := []string{header, body}
	if a.composer.Focused() {
		parts = append(parts, a.composer.View())
	}
	parts = append(parts, a.status.View())
	return strings.Join(parts, "\n")
}

func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Keys"))
	b.WriteString("\n\n")
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-8s %s\n", h.Key, h.Desc))
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Help.Render("Any key to go back"))
	return b.String()
}

// SetDimensions lays out the panes for the terminal size.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	listWidth := width * 55 / 100
	sideWidth := width - listWidth - 8
	if sideWidth < 20 {
		sideWidth = 20
	}
	paneHeight := height - 6
	if paneHeight < 4 {
		paneHeight = 4
	}
	a.list.SetDimensions(listWidth, paneHeight)
	a.sidebar.SetDimensions(sideWidth, paneHeight)
	a.composer.SetWidth(width)
	a.status.SetWidth(width)
}

// Session returns the open session, or nil before the document loads.
func (a *App) Session() driving.DocumentSession {
	return a.session
}

// Mode returns what the keyboard is driving.
func (a *App) Mode() messages.Mode {
	return a.mode
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has a terminal size.
func (a *App) Ready() bool {
	return a.ready
}

// Unsaved returns the number of changes waiting in the outbox.
func (a *App) Unsaved() int {
	return a.unsaved
}

// Settings returns the settings in effect.
func (a *App) Settings() domain.AppSettings {
	return a.settings
}

func documentTitle(doc domain.Document) string {
	if doc.Title != "" {
		return doc.Title
	}
	return doc.ID
}

func describeOp(op domain.PersistOp) string {
	switch op {
	case domain.OpCreateHighlight:
		return "highlight"
	case domain.OpUpdateHighlight:
		return "highlight change"
	case domain.OpDeleteHighlight:
		return "highlight deletion"
	case domain.OpSaveAnnotation:
		return "note"
	default:
		return string(op)
	}
}
