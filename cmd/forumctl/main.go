package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zfogg/tinyforum/backend/internal/config"
	"github.com/zfogg/tinyforum/backend/internal/database"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"gorm.io/gorm"
)

var (
	output   string = "text" // "text" or "json"
	logLevel string = "warn"
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "forumctl",
	Short: "forumctl - Administer a tinyforum installation",
	Long: `forumctl runs maintenance tasks against the forum database: schema
migrations, demo data, moderator grants and the report queue.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(logLevel, os.Getenv("LOG_FILE")); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load()
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level: debug, info, warn or error")

	// Add command groups
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(moderatorCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(searchCmd)
}

// openDB connects with the loaded configuration. Callers close it with
// database.Close.
func openDB() (*gorm.DB, error) {
	if err := database.Initialize(cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database.DB, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
