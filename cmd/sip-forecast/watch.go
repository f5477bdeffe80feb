package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/sip-forecast/internal/config"
	"github.com/iwvelando/sip-forecast/internal/pipeline"
	"github.com/iwvelando/sip-forecast/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(global *globalOptions) *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the scenarios every time the configuration file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := loadScenarios(global)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			stdout := cmd.OutOrStdout()
			rerun := func() {
				if err := rerunScenarios(stdout, global, logger); err != nil {
					logger.Error("scenario run failed",
						zap.String("op", "main.watch"),
						zap.Error(err),
					)
				}
			}
			rerun()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return pipeline.WatchFile(ctx, logger, global.configPath, delay, rerun)
		},
	}
	cmd.Flags().DurationVar(&delay, "debounce", constants.DefaultDebounce, "quiet period before re-running after a change")
	return cmd
}

// rerunScenarios reloads the configuration from disk; the logger built at
// start-up is kept.
func rerunScenarios(stdout io.Writer, global *globalOptions, logger *zap.Logger) error {
	conf, err := config.LoadConfiguration(global.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration at %s: %w", global.configPath, err)
	}
	fmt.Fprintf(stdout, "=== %s ===\n", time.Now().Format(time.RFC3339))
	return forecastAndWrite(stdout, global, conf, logger)
}
