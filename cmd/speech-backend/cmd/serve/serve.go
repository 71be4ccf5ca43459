package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"speech-backend/internal/app"
	"speech-backend/internal/config"
)

var port string

// NewCmd returns the serve command. configPath is bound to the root flag.
func NewCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP transcription server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides config and PORT)")
	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, cleanup, err := app.InitializeApplication(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer cleanup()

	errCh, err := application.Server.Start()
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", cfg.Server.Port, err)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	application.Logger.Info("Received shutdown signal", zap.String("reason", context.Cause(ctx).Error()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), application.Server.ShutdownTimeout())
	defer cancel()
	return application.Server.Shutdown(shutdownCtx)
}
