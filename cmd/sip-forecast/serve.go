package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/sip-forecast/internal/logging"
	"github.com/iwvelando/sip-forecast/internal/metrics"
	"github.com/iwvelando/sip-forecast/internal/server"
	"github.com/iwvelando/sip-forecast/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(global *globalOptions) *cobra.Command {
	var (
		serverConfigPath string
		address          string
		maxUploadSize    string
		publicURL        string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculator web UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Address = address
			}
			if publicURL != "" {
				cfg.PublicURL = publicURL
			}
			if global.grouping != "" {
				cfg.Grouping = global.grouping
			}
			if maxUploadSize != "" {
				size, err := server.ParseSize(maxUploadSize)
				if err != nil {
					return err
				}
				cfg.SetUploadSizeBytes(size)
			}

			logger, err := logging.New(cfg.Logging, global.logLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() {
				_ = logger.Sync()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, logger, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	flags.StringVar(&address, "address", "", "listen address override, e.g. :8080")
	flags.StringVar(&maxUploadSize, "max-upload-size", "", "scenario upload limit override, e.g. 512K")
	flags.StringVar(&publicURL, "public-url", "", "public origin used in share links")
	return cmd
}

func serve(ctx context.Context, logger *zap.Logger, cfg *server.Config) error {
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.NewHandler(logger, cfg, version, server.WithMetrics(metrics.New())),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("op", "main.serve"),
			zap.String("address", cfg.Address),
			zap.Int64("maxUploadSize", cfg.UploadSizeBytes()),
			zap.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server", zap.String("op", "main.serve"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
