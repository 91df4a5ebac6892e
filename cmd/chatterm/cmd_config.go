package main

import (
	"errors"
	"fmt"
	"os"

	"chatterm/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configInitForce bool

// configCmd prints the effective configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration and endpoints",
	RunE:  runConfig,
}

// configInitCmd writes the default configuration file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE:  runConfigInit,
}

func runConfig(cmd *cobra.Command, args []string) error {
	ep, err := cfg.Endpoints()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n%s\n", effectiveConfigPath(), data)
	fmt.Fprintln(out, "# endpoints")
	fmt.Fprintf(out, "#   chat:     %s\n", ep.Chat)
	fmt.Fprintf(out, "#   history:  %s\n", ep.Base+"/api/conversations/<id>")
	fmt.Fprintf(out, "#   realtime: %s\n", ep.Realtime)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := effectiveConfigPath()
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
