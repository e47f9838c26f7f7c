package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/victornm/quizplay/internal/config"
	"github.com/victornm/quizplay/internal/server"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "quizplay",
		Short:         "Timed quiz and puzzle sessions with scoring and leaderboards",
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to YAML config, defaults to $CONFIG_PATH")
	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newMigrateCmd(&configPath))
	cmd.AddCommand(newPlayCmd(&configPath))
	return cmd
}

// loadConfig reads the server config and sets the default slog level from it.
func loadConfig(path string) (server.Config, error) {
	c := server.DefaultConfig()
	if err := config.Load(path, &c); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return c, fmt.Errorf("log level %q: %w", c.Log.Level, err)
	}
	slog.SetLogLoggerLevel(level)

	return c, nil
}
