package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"gilda/internal/app"
	"gilda/internal/indexer"
	"gilda/internal/service"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed an owner's documents from their stored text",
	Long: `Runs every active document of the owner through the indexing pipeline
again, for example after changing the embedding model. Progress is printed
as newline-delimited JSON.`,
	Args:    cobra.NoArgs,
	PreRunE: requireOwner,
	RunE:    runReindex,
}

func init() {
	reindexCmd.Flags().StringVar(&ownerID, "owner", "", "owner whose documents are reindexed")
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()
	if err := a.Migrate(ctx); err != nil {
		return err
	}

	documents := service.NewDocumentService(a.Documents, a.Vectors, a.Pipeline, a.Extractor, a.Config.EmbeddingModel)
	enc := json.NewEncoder(cmd.OutOrStdout())
	return documents.Reindex(ctx, ownerID, func(ev indexer.ProgressEvent) error {
		return enc.Encode(ev)
	})
}
