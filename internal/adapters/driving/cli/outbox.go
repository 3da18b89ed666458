package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and replay unsaved changes",
	Long: `Changes that could not be saved to the backend are kept in the outbox.
Replaying sends them again, oldest first.`,
}

var outboxListCmd = &cobra.Command{
	Use:   "list [doc-id]",
	Short: "List unsaved changes",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runOutboxList,
}

var outboxFlushCmd = &cobra.Command{
	Use:   "flush [doc-id]",
	Short: "Replay a document's unsaved changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runOutboxFlush,
}

func init() {
	outboxCmd.AddCommand(outboxListCmd)
	outboxCmd.AddCommand(outboxFlushCmd)
	rootCmd.AddCommand(outboxCmd)
}

func runOutboxList(cmd *cobra.Command, args []string) error {
	if outboxService == nil {
		return errors.New("outbox service not configured")
	}

	docID := ""
	if len(args) > 0 {
		docID = args[0]
	}

	entries, err := outboxService.List(cmd.Context(), docID)
	if err != nil {
		return fmt.Errorf("failed to list outbox: %w", err)
	}
	if len(entries) == 0 {
		cmd.Println("Outbox is empty.")
		return nil
	}

	for i := range entries {
		e := &entries[i]
		cmd.Printf("  %s  %s  %s  %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.DocumentID, e.Op, e.EntityID)
		if e.Attempts > 0 || e.LastError != "" {
			cmd.Printf("    Attempts: %d  Last error: %s\n", e.Attempts, e.LastError)
		}
	}
	cmd.Printf("\nTotal: %d unsaved changes\n", len(entries))
	return nil
}

func runOutboxFlush(cmd *cobra.Command, args []string) error {
	if outboxService == nil {
		return errors.New("outbox service not configured")
	}

	report, err := outboxService.Replay(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to replay outbox: %w", err)
	}

	cmd.Printf("Replayed: %d  Failed: %d  Skipped: %d  Remaining: %d\n",
		report.Replayed, report.Failed, report.Skipped, len(report.Remaining))
	if report.Skipped > 0 {
		cmd.Println("Skipped changes have used up their attempts; inspect them with 'marginalia outbox list'.")
	}
	return nil
}
