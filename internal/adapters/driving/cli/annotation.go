package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

var annotationsCmd = &cobra.Command{
	Use:   "annotations [doc-id]",
	Short: "List a document's notes",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnnotations,
}

var annotateCmd = &cobra.Command{
	Use:   "annotate [doc-id] [text]",
	Short: "Write a note",
	Long: `Write a note on a page, or against a highlight with --highlight.

A highlight that already has a note cannot take another; the note would be
saved against the page instead, so the command refuses.`,
	Args: cobra.ExactArgs(2),
	RunE: runAnnotate,
}

// Flags for annotate.
var (
	annotatePage      int
	annotateHighlight string
)

func init() {
	annotateCmd.Flags().IntVar(&annotatePage, "page", 0, "Page number (default: the highlight's page, else 1)")
	annotateCmd.Flags().StringVar(&annotateHighlight, "highlight", "", "Highlight the note is about")

	rootCmd.AddCommand(annotationsCmd)
	rootCmd.AddCommand(annotateCmd)
}

func runAnnotations(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer closeSession(cmd, session)

	doc := session.Document()
	annotations := session.Annotations()
	if len(annotations) == 0 {
		cmd.Printf("No notes in %s\n", documentLabel(doc))
		return nil
	}

	cmd.Printf("Notes in %s:\n\n", documentLabel(doc))
	for _, a := range annotations {
		cmd.Printf("  %s  p.%d  %s\n", a.ID, a.Page, a.Kind)
		cmd.Printf("    %s\n", a.Content)
		switch h, ok := session.ResolveAnnotation(a); {
		case ok:
			cmd.Printf("    On: %s %q\n", h.ID, truncate(h.Content.Text, 80))
		case a.HighlightID != "":
			cmd.Printf("    On: %q (highlight deleted)\n", truncate(a.HighlightText, 80))
		}
		cmd.Println()
	}
	cmd.Printf("Total: %d notes\n", len(annotations))
	return nil
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer closeSession(cmd, session)

	if annotateHighlight != "" {
		h, err := session.Highlight(annotateHighlight)
		if err != nil {
			return fmt.Errorf("failed to find highlight: %w", err)
		}
		state, err := session.ClickHighlight(h.ID)
		if err != nil {
			return err
		}
		if state.SelectedHighlightID != h.ID {
			return fmt.Errorf("%w: highlight %s already has a note", domain.ErrInvalidInput, h.ID)
		}
		session.SetPage(h.Page())
	}

	draft := domain.AnnotationDraft{Content: args[1]}
	if annotatePage > 0 {
		draft.Page = &annotatePage
	}

	a, err := session.SaveAnnotation(cmd.Context(), draft)
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	if a == nil {
		cmd.Println("Note is empty; nothing saved.")
		return nil
	}

	if a.HighlightID != "" {
		cmd.Printf("Note %s saved on highlight %s (page %d).\n", a.ID, a.HighlightID, a.Page)
	} else {
		cmd.Printf("Note %s saved on page %d.\n", a.ID, a.Page)
	}
	return nil
}
