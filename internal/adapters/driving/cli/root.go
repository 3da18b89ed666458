// Package cli implements the marginalia command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/marginalia/internal/core/ports/driving"
	"github.com/custodia-labs/marginalia/internal/logger"
)

// version is set at build time.
var version = "dev"

// closeTimeout bounds how long a command waits for background calls.
const closeTimeout = 30 * time.Second

// Services are the core services the commands drive.
type Services struct {
	Reader   driving.ReaderService
	Outbox   driving.OutboxService
	Auth     driving.AuthService
	Settings driving.SettingsService

	// WatchConfig reloads settings when the config file changes. Optional.
	WatchConfig func(ctx context.Context, onChange func()) error

	// Warnings are non-fatal setup problems shown before the command runs.
	Warnings []string
}

// Options are the global flags handed to the bootstrap function.
type Options struct {
	ConfigDir string
	DataDir   string
	Ephemeral bool
}

// Bootstrap builds services for a command run. The cleanup function
// releases them and may be nil.
type Bootstrap func(ctx context.Context, opts Options) (*Services, func(), error)

var (
	readerService   driving.ReaderService
	outboxService   driving.OutboxService
	authService     driving.AuthService
	settingsService driving.SettingsService
	watchConfig     func(ctx context.Context, onChange func()) error

	bootstrap Bootstrap
	cleanup   func()

	verbose bool
	opts    Options
)

var rootCmd = &cobra.Command{
	Use:   "marginalia",
	Short: "Highlight, annotate and discuss research papers",
	Long: `Marginalia keeps your highlights, notes and questions about a paper in sync
with the reader backend.

Local changes apply immediately. Calls that fail are kept in an outbox and
can be replayed with 'marginalia outbox flush'.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print diagnostic output to stderr")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "Configuration directory (default ~/.marginalia)")
	rootCmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "Data directory (default ~/.marginalia/data)")
	rootCmd.PersistentFlags().BoolVar(&opts.Ephemeral, "ephemeral", false, "Keep the outbox and session in memory only")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer func() {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version printed by 'marginalia version'.
func SetVersion(v string) {
	version = v
}

// SetBootstrap sets the function that builds services once flags are parsed.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs services directly.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	readerService = s.Reader
	outboxService = s.Outbox
	authService = s.Auth
	settingsService = s.Settings
	watchConfig = s.WatchConfig
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if bootstrap == nil {
		return nil
	}

	services, release, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("starting up: %w", err)
	}
	SetServices(services)
	cleanup = release
	for _, w := range services.Warnings {
		cmd.PrintErrf("warning: %s\n", w)
	}
	return nil
}

// openSession opens a document for a single command.
func openSession(cmd *cobra.Command, documentID string) (driving.DocumentSession, error) {
	if readerService == nil {
		return nil, errors.New("reader service not configured")
	}
	session, err := readerService.Open(cmd.Context(), documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return session, nil
}

// closeSession waits for background calls and reports the ones that failed.
func closeSession(cmd *cobra.Command, session driving.DocumentSession) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := session.Close(ctx); err != nil {
		cmd.PrintErrf("warning: %v\n", err)
	}
	docID := session.Document().ID
	for result := range session.Events() {
		if result.Err == nil {
			continue
		}
		if result.Queued {
			cmd.PrintErrf("warning: %s %s not saved (%v); run 'marginalia outbox flush %s' to retry\n",
				result.Op, result.EntityID, result.Err, docID)
			continue
		}
		cmd.PrintErrf("warning: %s %s failed: %v\n", result.Op, result.EntityID, result.Err)
	}
}
