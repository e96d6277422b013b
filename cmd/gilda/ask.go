package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"gilda/internal/app"
	"gilda/internal/rag"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:     "ask [question]",
	Short:   "Ask a question about an owner's documents",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: requireOwner,
	RunE:    runAsk,
}

func init() {
	askCmd.Flags().StringVar(&ownerID, "owner", "", "owner whose documents answer the question")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	resp, err := a.Engine.Ask(ctx, rag.AskRequest{
		OwnerID: ownerID,
		Message: strings.Join(args, " "),
	})
	if err != nil {
		return err
	}

	if askJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, m := range resp.Sources {
			cmd.Printf("  [%d] %s (%.3f)\n", i+1, m.Filename, m.Similarity)
		}
	}
	if len(resp.DeepLinks) > 0 {
		cmd.Println()
		cmd.Println("Ask about:")
		for _, link := range resp.DeepLinks {
			cmd.Printf("  - %s\n", link.Query)
		}
	}
	return nil
}
