package main

import (
	"fmt"

	"chatterm/cmd/chatterm/ui"
	"chatterm/internal/message"

	"github.com/spf13/cobra"
)

// historyCmd prints a stored conversation
var historyCmd = &cobra.Command{
	Use:   "history [conversation-id]",
	Short: "Print the stored messages of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	ep, err := cfg.Endpoints()
	if err != nil {
		return err
	}

	msgs, err := newBackend(cfg, ep).History(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load conversation history: %w", err)
	}
	msgs = message.FillIDs(msgs)

	out := cmd.OutOrStdout()
	style, width := outputFormat(out)
	list := ui.MessageList{Messages: msgs, Width: applyWordWrap(width)}
	fmt.Fprintln(out, list.Render(ui.NewStyles(ui.ThemeFor(cfg.UI.Theme)), ui.NewMarkdownRenderer(style)))
	return nil
}
