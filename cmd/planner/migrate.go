package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/digkill/ContentPlanner/internal/config"
	"github.com/digkill/ContentPlanner/internal/database"
	"github.com/digkill/ContentPlanner/pkg/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables in the configured MySQL database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := cfg.Require("MYSQL_DSN"); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db := database.NewHandle(cfg.MySQLDSN)
			defer db.Close()

			if err := database.Migrate(ctx, db); err != nil {
				return fmt.Errorf("database migrate: %w", err)
			}
			logger.New(cfg.LogLevel).Info("database migrated")
			return nil
		},
	}
}
