package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/marginalia/internal/core/domain"
)

// US Letter in PDF points.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

var highlightsCmd = &cobra.Command{
	Use:   "highlights [doc-id]",
	Short: "List a document's highlights",
	Args:  cobra.ExactArgs(1),
	RunE:  runHighlights,
}

var highlightCmd = &cobra.Command{
	Use:   "highlight",
	Short: "Create and edit highlights",
	Long:  `Add, comment on, recolour or delete highlights on a document.`,
}

var highlightAddCmd = &cobra.Command{
	Use:   "add [doc-id]",
	Short: "Highlight a region of a page",
	Long: `Highlight a region of a page.

The region is given in page coordinates as x1,y1,x2,y2. Selections without
a usable region are dropped.

Examples:
  marginalia highlight add 1706.03762 --page 3 --rect 72,120,540,160 --text "Scaled Dot-Product Attention"
  marginalia highlight add 1706.03762 --page 4 --rect 100,100,500,400 --tool area --image fig1.png`,
	Args: cobra.ExactArgs(1),
	RunE: runHighlightAdd,
}

var highlightCommentCmd = &cobra.Command{
	Use:   "comment [doc-id] [highlight-id] [text]",
	Short: "Set a highlight's comment",
	Args:  cobra.ExactArgs(3),
	RunE:  runHighlightComment,
}

var highlightColorCmd = &cobra.Command{
	Use:   "color [doc-id] [highlight-id] [color]",
	Short: "Recolour a highlight",
	Args:  cobra.ExactArgs(3),
	RunE:  runHighlightColor,
}

var highlightDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id] [highlight-id]",
	Short: "Delete a highlight",
	Long:  `Delete a highlight. Notes written against it are kept and shown as detached.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runHighlightDelete,
}

// Flags for highlight add.
var (
	addPage       int
	addRect       string
	addText       string
	addImage      string
	addTool       string
	addPageWidth  float64
	addPageHeight float64
)

func init() {
	highlightAddCmd.Flags().IntVar(&addPage, "page", 1, "Page number (1-based)")
	highlightAddCmd.Flags().StringVar(&addRect, "rect", "", "Region as x1,y1,x2,y2")
	highlightAddCmd.Flags().StringVar(&addText, "text", "", "Selected text")
	highlightAddCmd.Flags().StringVar(&addImage, "image", "", "Image reference for area highlights")
	highlightAddCmd.Flags().StringVar(&addTool, "tool", string(domain.ToolText), "Tool: select, text or area")
	highlightAddCmd.Flags().Float64Var(&addPageWidth, "page-width", defaultPageWidth, "Page width in points")
	highlightAddCmd.Flags().Float64Var(&addPageHeight, "page-height", defaultPageHeight, "Page height in points")

	highlightCmd.AddCommand(highlightAddCmd)
	highlightCmd.AddCommand(highlightCommentCmd)
	highlightCmd.AddCommand(highlightColorCmd)
	highlightCmd.AddCommand(highlightDeleteCmd)
	rootCmd.AddCommand(highlightsCmd)
	rootCmd.AddCommand(highlightCmd)
}

func runHighlights(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer closeSession(cmd, session)

	doc := session.Document()
	highlights := session.Highlights()
	if len(highlights) == 0 {
		cmd.Printf("No highlights in %s\n", documentLabel(doc))
		return nil
	}

	cmd.Printf("Highlights in %s:\n\n", documentLabel(doc))
	for i := range highlights {
		printHighlight(cmd, &highlights[i])
	}
	cmd.Printf("Total: %d highlights\n", len(highlights))
	return nil
}

func runHighlightAdd(cmd *cobra.Command, args []string) error {
	rect, err := parseRect(addRect)
	if err != nil {
		return err
	}
	rect.Width = addPageWidth
	rect.Height = addPageHeight

	session, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer closeSession(cmd, session)

	session.SetPage(addPage)
	h, err := session.Select(cmd.Context(), domain.Selection{
		Position: &domain.Position{
			BoundingRect: rect,
			Rects:        []domain.Rect{rect},
			PageNumber:   addPage,
		},
		Text:  addText,
		Image: addImage,
		Tool:  domain.Tool(addTool),
	})
	if err != nil {
		return fmt.Errorf("failed to highlight: %w", err)
	}
	if h == nil {
		cmd.Println("Selection has no usable region; nothing highlighted.")
		return nil
	}

	cmd.Printf("Highlight created: %s\n", h.ID)
	return nil
}

func runHighlightComment(cmd *cobra.Command, args []string) error {
	comment := args[2]
	return updateHighlight(cmd, args[0], args[1], domain.HighlightPatch{Comment: &comment})
}

func runHighlightColor(cmd *cobra.Command, args []string) error {
	color := strings.ToUpper(strings.TrimSpace(args[2]))
	if !strings.HasPrefix(color, "#") {
		return fmt.Errorf("%w: colour must be a hex value such as #FFE28F", domain.ErrInvalidInput)
	}
	return updateHighlight(cmd, args[0], args[1], domain.HighlightPatch{Color: &color})
}

func updateHighlight(cmd *cobra.Command, docID, highlightID string, patch domain.HighlightPatch) error {
	session, err := openSession(cmd, docID)
	if err != nil {
		return err
	}
	defer closeSession(cmd, session)

	if err := session.UpdateHighlight(cmd.Context(), highlightID, patch); err != nil {
		return fmt.Errorf("failed to update highlight: %w", err)
	}
	cmd.Printf("Highlight %s updated.\n", highlightID)
	return nil
}

func runHighlightDelete(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer closeSession(cmd, session)

	highlightID := args[1]
	if err := session.DeleteHighlight(cmd.Context(), highlightID); err != nil {
		return fmt.Errorf("failed to delete highlight: %w", err)
	}
	cmd.Printf("Highlight %s deleted.\n", highlightID)
	return nil
}

func printHighlight(cmd *cobra.Command, h *domain.Highlight) {
	cmd.Printf("  %s  p.%d  %s  %s\n", h.ID, h.Page(), h.Kind, h.Color)
	if h.Content.Text != "" {
		cmd.Printf("    %q\n", truncate(h.Content.Text, 120))
	}
	if h.Content.Image != "" {
		cmd.Printf("    Image: %s\n", h.Content.Image)
	}
	if h.Comment != "" {
		cmd.Printf("    Comment: %s\n", h.Comment)
	}
	cmd.Println()
}

// parseRect parses "x1,y1,x2,y2".
func parseRect(s string) (domain.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.Rect{}, fmt.Errorf("%w: --rect must be x1,y1,x2,y2", domain.ErrInvalidInput)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.Rect{}, fmt.Errorf("%w: --rect value %q is not a number", domain.ErrInvalidInput, p)
		}
		v[i] = f
	}
	return domain.Rect{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}

func documentLabel(doc domain.Document) string {
	if doc.Title == "" || doc.Title == doc.ID {
		return doc.ID
	}
	return fmt.Sprintf("%s (%s)", doc.Title, doc.ID)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
