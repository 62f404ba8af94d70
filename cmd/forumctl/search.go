package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/tinyforum/backend/internal/database"
	"github.com/zfogg/tinyforum/backend/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Manage the Elasticsearch indices",
}

var searchReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Index every visible thread and post",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.ElasticsearchURL == "" {
			return fmt.Errorf("ELASTICSEARCH_URL is not set")
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		client, err := search.NewClient(cfg.ElasticsearchURL)
		if err != nil {
			return err
		}
		if err := client.EnsureIndex(cmd.Context()); err != nil {
			return err
		}

		threads, posts, err := search.Reindex(cmd.Context(), db, client)
		if err != nil {
			return fmt.Errorf("reindex failed after %d threads and %d posts: %w", threads, posts, err)
		}
		fmt.Printf("✓ Indexed %d threads and %d posts\n", threads, posts)
		return nil
	},
}

func init() {
	searchCmd.AddCommand(searchReindexCmd)
}
