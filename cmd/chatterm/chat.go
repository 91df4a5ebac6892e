package main

import (
	"context"
	"fmt"

	"chatterm/cmd/chatterm/chat"
	"chatterm/internal/config"
	"chatterm/internal/logging"
	"chatterm/internal/transport"

	tea "github.com/charmbracelet/bubbletea"
)

// newBackend builds the HTTP client for the fallback and history endpoints.
func newBackend(c *config.Config, ep config.Endpoints) *transport.Client {
	return transport.NewClient(ep, transport.WithTimeout(c.GetTimeout()))
}

// newRealtime builds the WebSocket channel with the configured reconnect policy.
func newRealtime(c *config.Config, ep config.Endpoints) *transport.Realtime {
	return transport.NewRealtime(ep.Realtime,
		transport.WithReconnect(transport.ReconnectPolicy{
			MaxAttempts:     c.Realtime.MaxAttempts,
			InitialInterval: c.GetInitialInterval(),
			MaxInterval:     c.GetMaxInterval(),
		}),
		transport.WithWriteTimeout(c.GetWriteTimeout()),
	)
}

// runInteractiveChat runs the full-screen chat view until the user quits.
func runInteractiveChat(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ep, err := cfg.Endpoints()
	if err != nil {
		return err
	}
	logging.Boot("endpoints: chat=%s realtime=%s", ep.Chat, ep.Realtime)

	model := chat.New(chat.Options{
		Channel:   newRealtime(cfg, ep),
		Backend:   newBackend(cfg, ep),
		Endpoints: ep,
		Theme:     cfg.UI.Theme,
		WordWrap:  cfg.UI.WordWrap,
	})
	defer model.Shutdown()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	watcher, err := config.NewWatcher(effectiveConfigPath(), func(c *config.Config) {
		p.Send(chat.ConfigReloadedMsg{Config: c})
	})
	if err != nil {
		logging.BootWarn("config hot reload unavailable: %v", err)
	} else {
		if err := watcher.Start(ctx); err != nil {
			logging.BootWarn("config hot reload unavailable: %v", err)
		}
		defer watcher.Stop()
	}

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("chat view failed: %w", err)
	}
	return nil
}
