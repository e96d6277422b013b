package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"gilda/internal/app"
	"gilda/internal/extract"
	"gilda/internal/indexer"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.pdf|dir]...",
	Short: "Index PDF files for an owner",
	Long: `Extracts the text of each PDF (directories are scanned recursively),
indexes it for the owner and prints progress as newline-delimited JSON.`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: requireOwner,
	RunE:    runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ownerID, "owner", "", "owner the documents belong to")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var files []extract.ScannedFile
	for _, arg := range args {
		found, err := extract.ScanDir(ctx, arg)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no PDF files found")
	}

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

	uploads := make([]indexer.Upload, 0, len(files))
	for _, f := range files {
		uploads = append(uploads, indexer.Upload{
			OwnerID:   ownerID,
			Filename:  f.RelPath,
			Text:      a.Extractor.ExtractFile(ctx, f.AbsPath),
			SizeBytes: f.Size,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	return a.Pipeline.IngestAll(ctx, uploads, func(ev indexer.ProgressEvent) error {
		return enc.Encode(ev)
	})
}
