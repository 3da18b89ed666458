package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/marginalia/internal/adapters/driving/tui"
)

// readCmd opens a document in the interactive reader.
var readCmd = &cobra.Command{
	Use:   "read [doc-id]",
	Short: "Open a document in the interactive reader",
	Long: `Open a document in the interactive terminal reader.

The reader lists the document's highlights next to a sidebar holding your
notes and the chat about the paper.

Controls:
  ↑/k, ↓/j - Move between highlights
  Enter    - Open the highlight in the sidebar
  Tab      - Switch between notes and chat
  n / c    - Write a note / ask a question
  a / x    - Add to / remove from the chat context
  [ / ]    - Previous / next page
  ?        - Toggle help
  q        - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in reader: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ports := &tui.Ports{
		Reader:   readerService,
		Settings: settingsService,
		Watch:    watchConfig,
	}

	app, err := tui.NewApp(ports, args[0])
	if err != nil {
		return fmt.Errorf("failed to start reader: %w", err)
	}
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, runErr := p.Run()

	if session := app.Session(); session != nil {
		closeSession(cmd, session)
	}
	if runErr != nil {
		return fmt.Errorf("reader error: %w", runErr)
	}
	return app.Err()
}
