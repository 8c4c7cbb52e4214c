package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID = strings.TrimSpace(userID)
			if userID == "" {
				return errors.New("--user is required")
			}

			cfg, err := ctx.validConfig("llm.", "youtube.", "upload.", "live.", "database.")
			if err != nil {
				return err
			}

			sessions, err := newSessions(cfg)
			if err != nil {
				return err
			}

			token, err := sessions.Issue(userID, email)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User ID the token is issued for")
	cmd.Flags().StringVar(&email, "email", "", "Email recorded in the token")
	return cmd
}
