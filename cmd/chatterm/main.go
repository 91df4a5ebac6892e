// Package main provides the chatterm CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chatterm/internal/config"
	"chatterm/internal/logging"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	apiURL     string
	wsURL      string
	debug      bool

	// cfg is the effective configuration, resolved before any command runs.
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "chatterm",
	Short: "chatterm - terminal chat client",
	Long: `chatterm is a terminal chat client for a conversational backend.

Replies are pushed over a WebSocket channel when it is connected and fetched
over HTTP otherwise. Assistant replies are rendered as markdown.

Run without arguments to start the interactive chat interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveConfig()
		if err != nil {
			return err
		}
		cfg = c

		if err := logging.Initialize(loggingConfig(c)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		}
		logging.Boot("chatterm %s starting (config=%s base=%s)", cmd.Name(), effectiveConfigPath(), c.API.BaseURL)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch interactive chat
		return runInteractiveChat(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.chatterm/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (or set CHATTERM_API_URL)")
	rootCmd.PersistentFlags().StringVar(&wsURL, "ws-url", "", "WebSocket URL override (default: derived from --api-url)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Write debug logs to ~/.chatterm/logs")

	sendCmd.Flags().StringVar(&sendConversation, "conversation", "", "Continue an existing conversation")
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")

	rootCmd.AddCommand(sendCmd, historyCmd, configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func effectiveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// resolveConfig layers file, .env and environment, then command-line flags.
func resolveConfig() (*config.Config, error) {
	c, err := config.Load(effectiveConfigPath())
	if err != nil {
		return nil, err
	}

	if apiURL != "" {
		c.API.BaseURL = apiURL
	}
	if wsURL != "" {
		c.API.RealtimeURL = wsURL
	}
	if debug {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func loggingConfig(c *config.Config) logging.Config {
	return logging.Config{
		DebugMode:  c.Logging.DebugMode,
		Level:      c.Logging.Level,
		JSONFormat: c.Logging.JSONFormat,
		Dir:        c.Logging.Dir,
		Categories: c.Logging.Categories,
	}
}
