package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"repolens/internal/config"
)

var forceInit bool

// configCmd groups configuration helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage repolens configuration",
}

// configInitCmd writes the default configuration
var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default .repolens/config.yaml",
	Long: `Writes the default configuration for the repository at path (default: the
current directory). API keys are best left to the environment:
ANTHROPIC_API_KEY, GEMINI_API_KEY or GOOGLE_API_KEY.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	path := configPath
	if path == "" {
		path = config.DefaultPath(root)
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓")+" wrote "+path)
	return nil
}
