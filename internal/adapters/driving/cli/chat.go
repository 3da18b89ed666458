package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [doc-id] [message]",
	Short: "Ask the assistant about a document",
	Long: `Ask the assistant about a document.

Pass --context once per highlight the question is about. If the assistant
cannot be reached, a locally produced reply is shown and marked as such.

Examples:
  marginalia chat 1706.03762 "Why scale by the square root of d_k?" --context 3f2c...`,
	Args: cobra.ExactArgs(2),
	RunE: runChat,
}

var chatContext []string

func init() {
	chatCmd.Flags().StringArrayVar(&chatContext, "context", nil, "Highlight ID to discuss (repeatable)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	session, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer closeSession(cmd, session)

	for _, id := range chatContext {
		if err := session.AddToContext(id); err != nil {
			return fmt.Errorf("failed to add context: %w", err)
		}
	}

	msg, err := session.SendMessage(cmd.Context(), args[1])
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	if msg == nil {
		cmd.Println("Message is empty; nothing sent.")
		return nil
	}

	session.Wait()

	messages := session.Messages()
	reply := messages[len(messages)-1]
	if reply.ID == msg.ID {
		return fmt.Errorf("no reply received")
	}
	if reply.Degraded {
		cmd.Println("(assistant unavailable, answered locally)")
	}
	cmd.Println(reply.Content)
	return nil
}
