package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var indexFlushCache bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index from the corpus directory",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexFlushCache, "flush-cache", false,
		"drop cached embeddings before indexing (use after switching embedding models)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	if indexFlushCache && a.cache != nil {
		if err := a.cache.Flush(ctx); err != nil {
			return err
		}
		cmd.Println("Embedding cache flushed")
	}

	result, err := a.indexer.Rebuild(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Indexed %d documents into %d chunks\n", result.Documents, result.Chunks)
	return nil
}
