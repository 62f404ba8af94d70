package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/tinyforum/backend/internal/auth"
	"github.com/zfogg/tinyforum/backend/internal/database"
)

var moderatorEmail string

var moderatorCmd = &cobra.Command{
	Use:   "moderator",
	Short: "Grant or revoke moderation powers",
}

var moderatorGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Make a user a moderator",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setModerator(cmd, true)
	},
}

var moderatorRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Remove a user's moderation powers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setModerator(cmd, false)
	},
}

func setModerator(cmd *cobra.Command, moderator bool) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	user, err := auth.NewService(db, cfg.JWTSecret).SetModerator(cmd.Context(), moderatorEmail, moderator)
	if errors.Is(err, auth.ErrUserNotFound) {
		return fmt.Errorf("user not found: %s", moderatorEmail)
	}
	if err != nil {
		return err
	}

	if output == "json" {
		return printJSON(user)
	}
	if moderator {
		fmt.Printf("✓ Moderation powers granted to %s (%s)\n", user.Username, user.Email)
	} else {
		fmt.Printf("✓ Moderation powers revoked for %s (%s)\n", user.Username, user.Email)
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{moderatorGrantCmd, moderatorRevokeCmd} {
		c.Flags().StringVar(&moderatorEmail, "email", "", "Email address of the user")
		_ = c.MarkFlagRequired("email")
		moderatorCmd.AddCommand(c)
	}
}
