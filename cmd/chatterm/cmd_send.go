package main

import (
	"fmt"
	"strings"

	"chatterm/cmd/chatterm/ui"
	"chatterm/internal/logging"
	"chatterm/internal/message"
	"chatterm/internal/transport"

	"github.com/spf13/cobra"
)

var sendConversation string

// sendCmd sends one message over the HTTP endpoint
var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send one message and print the reply",
	Long: `Sends a single message over the HTTP chat endpoint and prints the
rendered reply followed by the conversation id.

Example:
  chatterm send "What is a goroutine?"
  chatterm send --conversation 3f2a... "And a channel?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message is empty")
	}

	ep, err := cfg.Endpoints()
	if err != nil {
		return err
	}

	reqID := message.NewID()
	resp, err := newBackend(cfg, ep).Chat(cmd.Context(), transport.NewOutboundFrame(text, sendConversation, reqID))
	if err != nil {
		logging.AuditWithConversation(sendConversation).Failed("fallback", reqID, err)
		return fmt.Errorf("failed to send message: %w", err)
	}
	logging.AuditWithConversation(resp.ConversationID).Reply("fallback", reqID, 0)

	out := cmd.OutOrStdout()
	style, width := outputFormat(out)
	styles := ui.NewStyles(ui.ThemeFor(cfg.UI.Theme))
	reply := message.New(message.RoleAssistant, resp.Response)

	fmt.Fprintln(out, ui.RenderMessage(reply, applyWordWrap(width), styles, ui.NewMarkdownRenderer(style)))
	fmt.Fprintf(out, "\nconversation: %s\n", resp.ConversationID)
	return nil
}
