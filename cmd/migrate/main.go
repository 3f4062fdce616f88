package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/watchlist-backend/pkg/config"
	"github.com/angelmondragon/watchlist-backend/pkg/db"
	"github.com/angelmondragon/watchlist-backend/pkg/logger"
	"github.com/angelmondragon/watchlist-backend/pkg/migrate"
)

var migrationsDir string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the watchlist database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&migrationsDir, "dir", migrate.DefaultDir, "goose migrations directory")

	root.AddCommand(
		gooseCommand("up", "Apply all pending migrations"),
		gooseCommand("down", "Roll back the latest migration"),
		gooseCommand("status", "Show migration status"),
		toCommand(),
		createCommand(),
		validateCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func gooseCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), name, func(ctx context.Context, cfg *config.Config, client *db.Client, sqlDB *sql.DB) error {
				// goose files target postgres; sqlite schemas come from the models.
				if cfg.DB.IsSQLite() {
					if name != "up" {
						return fmt.Errorf("%s is not supported for sqlite databases", name)
					}
					return migrate.AutoMigrate(client.DB().WithContext(ctx))
				}
				return migrate.Run(ctx, sqlDB, migrationsDir, name)
			})
		},
	}
}

func toCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "to VERSION",
		Short: "Migrate up or down to VERSION (YYYYMMDDHHMMSS)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), "to", func(ctx context.Context, cfg *config.Config, _ *db.Client, sqlDB *sql.DB) error {
				if cfg.DB.IsSQLite() {
					return fmt.Errorf("to is not supported for sqlite databases")
				}
				return migrate.MigrateToVersion(ctx, sqlDB, migrationsDir, args[0])
			})
		},
	}
}

func createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(migrationsDir, args[0])
			if err != nil {
				return fmt.Errorf("create migration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
			return nil
		},
	}
}

func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check migration file names and annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrate.ValidateDir(migrationsDir); err != nil {
				return fmt.Errorf("migration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
			return nil
		},
	}
}

type dbAction func(ctx context.Context, cfg *config.Config, client *db.Client, sqlDB *sql.DB) error

func withDatabase(ctx context.Context, command string, fn dbAction) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": command,
		"dir": migrationsDir,
	})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "resource not working: database", err)
		return err
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "migrate ready")
	if err := fn(ctx, cfg, client, sqlDB); err != nil {
		logg.Error(ctx, "migration failed", err)
		return err
	}
	logg.Info(ctx, "migration finished")
	return nil
}
