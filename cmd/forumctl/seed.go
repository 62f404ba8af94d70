package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/tinyforum/backend/internal/database"
	"github.com/zfogg/tinyforum/backend/internal/seed"
)

var seedOpts = seed.DefaultOptions()

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake users, threads, posts and reports",
	Long: fmt.Sprintf(`Creates demo content. The first user is the moderator %s;
every account shares the --password value.`, seed.ModeratorEmail),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(); err != nil {
			return err
		}

		result, err := seed.NewSeeder(db, nil).SeedDev(cmd.Context(), seedOpts)
		if err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}

		if output == "json" {
			return printJSON(result)
		}
		fmt.Printf("✓ Seeded %d users, %d threads, %d posts, %d reports\n",
			result.Users, result.Threads, result.Posts, result.Reports)
		return nil
	},
}

var seedCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete all forum data (use with caution)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := seed.NewSeeder(db, nil).Clean(cmd.Context()); err != nil {
			return fmt.Errorf("clean failed: %w", err)
		}
		fmt.Println("✓ Forum data removed")
		return nil
	},
}

func init() {
	f := seedCmd.Flags()
	f.IntVar(&seedOpts.Users, "users", seedOpts.Users, "Number of users, including the moderator")
	f.IntVar(&seedOpts.Threads, "threads", seedOpts.Threads, "Number of threads")
	f.IntVar(&seedOpts.PostsPerThread, "posts", seedOpts.PostsPerThread, "Maximum replies per thread")
	f.IntVar(&seedOpts.Reports, "reports", seedOpts.Reports, "Number of open reports")
	f.StringVar(&seedOpts.Password, "password", seedOpts.Password, "Password for every seeded account")
	f.Int64Var(&seedOpts.Seed, "seed", 0, "Random seed for reproducible data (0 = random)")

	seedCmd.AddCommand(seedCleanCmd)
}
