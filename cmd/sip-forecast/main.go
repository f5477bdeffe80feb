// Command sip-forecast projects systematic investment plans, solves goal
// questions and serves the calculator web UI.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/iwvelando/sip-forecast/internal/config"
	"github.com/iwvelando/sip-forecast/internal/forecast"
	"github.com/iwvelando/sip-forecast/internal/logging"
	"github.com/iwvelando/sip-forecast/pkg/constants"
	"github.com/iwvelando/sip-forecast/pkg/format"
	"github.com/iwvelando/sip-forecast/pkg/output"
	"github.com/iwvelando/sip-forecast/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const appName = "sip-forecast"

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath   string
	logLevel     string
	outputFormat string
	outputPath   string
	grouping     string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "SIP calculator with step-up, inflation and goal planning",
		Long: `sip-forecast projects monthly investment plans (SIPs) with optional lump sum,
annual step-up and inflation adjustment.

Without a subcommand it runs every active scenario of the configuration file
and prints the results.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", constants.DefaultConfigFile, "path to scenarios file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVarP(&opts.outputFormat, "output-format", "f", "", "output format override: pretty, csv, json, pdf")
	flags.StringVarP(&opts.outputPath, "output", "o", "", "write results to this file instead of stdout")
	flags.StringVar(&opts.grouping, "grouping", "", "digit grouping: indian or international")

	cmd.AddCommand(
		newCalcCmd(opts),
		newGoalCmd(opts),
		newServeCmd(opts),
		newWatchCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, version)
			},
		},
	)
	return cmd
}

// loadScenarios loads the configuration and builds the logger it describes.
func loadScenarios(opts *globalOptions) (*config.Configuration, *zap.Logger, error) {
	conf, err := config.LoadConfiguration(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration at %s: %w", opts.configPath, err)
	}
	logger, err := logging.New(conf.Logging, opts.logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return conf, logger, nil
}

func runScenarios(stdout io.Writer, opts *globalOptions) error {
	conf, logger, err := loadScenarios(opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	return forecastAndWrite(stdout, opts, conf, logger)
}

// forecastAndWrite validates conf, runs its active scenarios and writes them
// in the selected format.
func forecastAndWrite(stdout io.Writer, opts *globalOptions, conf *config.Configuration, logger *zap.Logger) error {
	outputFormat := firstNonEmpty(opts.outputFormat, conf.Output.Format, constants.OutputFormatPretty)
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	results, err := forecast.GetForecast(logger, *conf)
	if err != nil {
		return fmt.Errorf("failed to compute forecast: %w", err)
	}

	grouping := format.ParseGrouping(firstNonEmpty(opts.grouping, conf.Output.Grouping))
	return writeResults(stdout, outputFormat, firstNonEmpty(opts.outputPath, conf.Output.File), results, grouping)
}

// writeResults writes to path when set, otherwise to stdout.
func writeResults(stdout io.Writer, outputFormat, path string, results []forecast.Forecast, grouping string) (err error) {
	if path == "" {
		return output.Write(stdout, outputFormat, results, grouping)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", closeErr)
		}
	}()
	return output.Write(file, outputFormat, results, grouping)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
