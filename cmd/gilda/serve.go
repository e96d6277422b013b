package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gilda/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, app.Options{Shares: true})
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		if err := a.Migrate(ctx); err != nil {
			return err
		}
		if err := a.ValidateEmbeddings(ctx); err != nil {
			return err
		}
		return a.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
