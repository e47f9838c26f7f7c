package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/victornm/quizplay/internal/result/migrations"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply result store migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), *configPath)
		},
	}
}

func runMigrate(ctx context.Context, configPath string) error {
	c, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	dsn := c.Postgres.Result.DSN()
	if dsn == "" {
		return fmt.Errorf("postgres.result.addr is not configured")
	}

	if err := migrations.Up(ctx, dsn); err != nil {
		return err
	}

	slog.InfoContext(ctx, "cli: migrations applied")
	return nil
}
