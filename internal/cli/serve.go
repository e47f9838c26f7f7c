package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/victornm/quizplay/internal/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	c, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, os.Interrupt)
	defer stop()

	s, err := server.Init(ctx, c)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- s.Start(ctx) }()

	select {
	case <-ctx.Done():
		slog.Info("cli: shutting down")
		s.Shutdown()
		return nil
	case err := <-errc:
		s.Shutdown()
		return err
	}
}
