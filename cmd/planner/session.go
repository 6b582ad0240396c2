package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/digkill/ContentPlanner/internal/auth"
	"github.com/digkill/ContentPlanner/internal/config"
)

func sessionCmd() *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "session [open-id]",
		Short: "Mint a session token for local development",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := cfg.Require("SESSION_SECRET"); err != nil {
				return err
			}

			token, claims, err := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL).Issue(args[0], name, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "cookie %s, token id %s, expires at unix %d\n", auth.CookieName, claims.Id, claims.ExpiresAt)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name stored on first sign-in")
	cmd.Flags().StringVar(&email, "email", "", "Email stored on first sign-in")

	return cmd
}
