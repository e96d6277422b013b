package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gilda/internal/app"
	"gilda/internal/config"
)

var ownerID string

var rootCmd = &cobra.Command{
	Use:   "gilda",
	Short: "Ask questions about your PDF documents",
	Long: `Gilda indexes PDF documents into a vector store and answers questions
grounded in their content.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openApp loads configuration and wires the components a command needs.
func openApp(ctx context.Context, opts app.Options) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	app.SetupLogging(cfg)

	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func requireOwner(cmd *cobra.Command, _ []string) error {
	if ownerID == "" {
		return fmt.Errorf("--owner is required")
	}
	return nil
}
