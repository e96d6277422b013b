package main

import (
	"github.com/spf13/cobra"

	"gilda/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create database tables and the vector index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer func() {
			_ = a.Close()
		}()

		if err := a.Migrate(cmd.Context()); err != nil {
			return err
		}
		cmd.Println("Migrations applied.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
