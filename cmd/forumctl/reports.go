package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zfogg/tinyforum/backend/internal/database"
	"github.com/zfogg/tinyforum/backend/internal/forum"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect the moderation queue",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open reports, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		// An operator with no account sees every open report.
		operator := forum.Actor{IsModerator: true}
		reports, err := forum.NewService(db).ListOpenReports(cmd.Context(), operator)
		if err != nil {
			return err
		}

		if output == "json" {
			return printJSON(reports)
		}
		if len(reports) == 0 {
			fmt.Println("No open reports")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tREASON\tREPORTER\tPOST")
		for _, r := range reports {
			reporter, summary := "", ""
			if r.AuthoredBy != nil {
				reporter = r.AuthoredBy.Username
			}
			if r.Post != nil {
				summary = r.Post.Summary()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Reason, reporter, summary)
		}
		return w.Flush()
	},
}

func init() {
	reportsCmd.AddCommand(reportsListCmd)
}
