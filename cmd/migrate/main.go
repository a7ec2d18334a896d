package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/portfolios-backend/pkg/config"
	"github.com/angelmondragon/portfolios-backend/pkg/db"
	"github.com/angelmondragon/portfolios-backend/pkg/logger"
	"github.com/angelmondragon/portfolios-backend/pkg/migrate"
)

const serviceName = "migrate"

func main() {
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var dir string

	root := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the portfolios database schema",
		Long: `Run goose migrations against PORTFOLIOS_DB_DSN.

Without --dir the migrations compiled into this binary are used. create
writes to ` + migrate.DefaultDir + ` unless --dir is given.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", "", "migrations directory (default: embedded)")

	root.AddCommand(
		dbCmd("up", "Apply every pending migration", func(ctx context.Context, sqlDB *sql.DB, args []string) error {
			return migrate.Run(ctx, sqlDB, dir, "up")
		}, cobra.NoArgs),
		dbCmd("down", "Roll back the latest migration", func(ctx context.Context, sqlDB *sql.DB, args []string) error {
			return migrate.Run(ctx, sqlDB, dir, "down")
		}, cobra.NoArgs),
		dbCmd("status", "Print the applied state of each migration", func(ctx context.Context, sqlDB *sql.DB, args []string) error {
			return migrate.Run(ctx, sqlDB, dir, "status")
		}, cobra.NoArgs),
		dbCmd("version <YYYYMMDDHHMMSS>", "Migrate up or down to a version", func(ctx context.Context, sqlDB *sql.DB, args []string) error {
			return migrate.MigrateToVersion(ctx, sqlDB, dir, args[0])
		}, cobra.ExactArgs(1)),
		&cobra.Command{
			Use:   "create <name>",
			Short: "Write a new SQL migration skeleton",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := migrate.CreateSQLMigration(localDir(dir), args[0])
				if err != nil {
					return fmt.Errorf("create migration: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check migration names and goose annotations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := migrate.ValidateDir(dir); err != nil {
					return fmt.Errorf("migration validation failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
				return nil
			},
		},
	)
	return root
}

type dbRunFunc func(ctx context.Context, sqlDB *sql.DB, args []string) error

// dbCmd wraps commands that need config and a live database.
func dbCmd(use, short string, run dbRunFunc, args cobra.PositionalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logg := logger.New(logger.Options{
				ServiceName: serviceName,
				Level:       logger.ParseLevel(cfg.App.LogLevel),
				WarnStack:   cfg.App.LogWarnStack,
				Format:      cfg.App.LogFormat,
			})
			ctx := logg.WithFields(cmd.Context(), map[string]any{
				"env": cfg.App.Env,
				"cmd": cmd.Name(),
			})

			dbClient, err := db.New(ctx, cfg.DB, logg)
			if err != nil {
				return fmt.Errorf("bootstrap database: %w", err)
			}
			defer func() {
				if err := dbClient.Close(); err != nil {
					logg.Error(ctx, "error closing database", err)
				}
			}()

			sqlDB, err := dbClient.SQL()
			if err != nil {
				return fmt.Errorf("sql database: %w", err)
			}

			logg.Info(ctx, "migrate ready")
			if err := run(ctx, sqlDB, args); err != nil {
				logg.Error(ctx, "migrate failed", err)
				return err
			}
			logg.Info(ctx, "migrate complete")
			return nil
		},
	}
}

func localDir(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}
