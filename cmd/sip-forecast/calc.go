package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/iwvelando/sip-forecast/internal/config"
	"github.com/iwvelando/sip-forecast/internal/forecast"
	"github.com/iwvelando/sip-forecast/internal/logging"
	"github.com/iwvelando/sip-forecast/internal/optimizer"
	"github.com/iwvelando/sip-forecast/internal/pipeline"
	"github.com/iwvelando/sip-forecast/pkg/chart"
	"github.com/iwvelando/sip-forecast/pkg/constants"
	"github.com/iwvelando/sip-forecast/pkg/controls"
	"github.com/iwvelando/sip-forecast/pkg/finance"
	"github.com/iwvelando/sip-forecast/pkg/format"
	"github.com/iwvelando/sip-forecast/pkg/urlstate"
	"github.com/iwvelando/sip-forecast/pkg/validation"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// calcOptions are the calculator inputs accepted as flags. Each flag maps to
// the URL parameter of the same meaning so that flags and --query share the
// decoding and clamping rules of the web page.
type calcOptions struct {
	query         string
	name          string
	sip           float64
	lumpsum       float64
	returns       float64
	period        float64
	stepUpMode    string
	stepUp        float64
	inflationRate float64
	noInflation   bool
	target        float64
	chart         bool
}

func (o *calcOptions) register(flags *pflag.FlagSet) {
	flags.StringVarP(&o.query, "query", "q", "", "calculator URL or query string to start from")
	flags.StringVar(&o.name, "name", "Calculator", "scenario name used in the output")
	flags.Float64Var(&o.sip, "sip", 0, "monthly investment in rupees")
	flags.Float64Var(&o.lumpsum, "lumpsum", 0, "initial lump sum in rupees")
	flags.Float64Var(&o.returns, "returns", 0, "expected annual return in percent")
	flags.Float64Var(&o.period, "period", 0, "investment period in years")
	flags.StringVar(&o.stepUpMode, "step-up-mode", "", "annual step-up mode: amount or rate")
	flags.Float64Var(&o.stepUp, "step-up", 0, "annual step-up in rupees (amount) or percent (rate)")
	flags.Float64Var(&o.inflationRate, "inflation", 0, "inflation rate in percent; enables the real-value column")
	flags.BoolVar(&o.noInflation, "no-inflation", false, "disable inflation adjustment")
	flags.BoolVar(&o.chart, "chart", false, "draw text charts after the results")
}

// values merges the query string and the changed flags into one set of URL
// parameters. Flag values are snapped to their control's step.
func (o *calcOptions) values(flags *pflag.FlagSet, set controls.Set) (url.Values, error) {
	state := urlstate.Default(set)
	if o.query != "" {
		parsed, err := parseQuery(o.query)
		if err != nil {
			return nil, err
		}
		state = urlstate.Decode(parsed, set, state)
	}
	values := urlstate.Encode(state, set)

	// Flags are committed input, so they snap to the control's step the way a
	// text field does on blur. The query keeps the codec's clamp-only rule.
	snapped := func(c controls.Control, v float64) string {
		return c.Format(c.Snap(v))
	}
	if flags.Changed("sip") {
		values.Set(urlstate.ParamSIP, snapped(set.SIP, o.sip))
	}
	if flags.Changed("lumpsum") {
		values.Set(urlstate.ParamLumpsumOn, strconv.FormatBool(o.lumpsum > 0))
		values.Set(urlstate.ParamLumpsum, snapped(set.Lumpsum, o.lumpsum))
	}
	if flags.Changed("returns") {
		values.Set(urlstate.ParamReturns, snapped(set.Returns, o.returns))
	}
	if flags.Changed("period") {
		values.Set(urlstate.ParamPeriod, snapped(set.Period, o.period))
	}
	if flags.Changed("step-up-mode") {
		values.Set(urlstate.ParamStepUpMode, o.stepUpMode)
		if !flags.Changed("step-up") {
			// The other mode's value is not carried over.
			values.Del(urlstate.ParamStepUp)
		}
	}
	if flags.Changed("step-up") {
		stepUp := set.StepUpAmount
		if urlstate.Decode(values, set, state).StepUpMode == finance.StepUpPercentage {
			stepUp = set.StepUpRate
		}
		values.Set(urlstate.ParamStepUp, snapped(stepUp, o.stepUp))
	}
	if flags.Changed("inflation") {
		values.Set(urlstate.ParamInflation, "true")
		values.Set(urlstate.ParamInflationRate, snapped(set.InflationRate, o.inflationRate))
	}
	if o.noInflation {
		values.Set(urlstate.ParamInflation, "false")
	}
	if flags.Changed("target") {
		values.Set(urlstate.ParamTarget, snapped(set.Target, o.target))
	}
	return values, nil
}

// parseQuery accepts a full calculator URL, "?a=b" or "a=b".
func parseQuery(raw string) (url.Values, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid calculator URL: %w", err)
		}
		return u.Query(), nil
	}
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return nil, fmt.Errorf("invalid query string: %w", err)
	}
	return values, nil
}

func newCalcCmd(global *globalOptions) *cobra.Command {
	opts := &calcOptions{}
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Project one plan from flags or a calculator link",
		Example: `  sip-forecast calc --sip 10000 --returns 12 --period 10
  sip-forecast calc --query "https://example.com/?sip=5000&period=20" --inflation 6 --chart`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := opts.values(cmd.Flags(), controls.Defaults())
			if err != nil {
				return err
			}
			values.Set(urlstate.ParamMode, string(urlstate.ModeWealth))
			return runCalculation(cmd.Context(), cmd.OutOrStdout(), global, opts, values)
		},
	}
	opts.register(cmd.Flags())
	return cmd
}

func newGoalCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Solve for the monthly SIP or the time needed to reach a target",
	}

	sub := func(mode urlstate.GoalSubMode, use, short string) *cobra.Command {
		opts := &calcOptions{}
		c := &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				values, err := opts.values(cmd.Flags(), controls.Defaults())
				if err != nil {
					return err
				}
				values.Set(urlstate.ParamMode, string(urlstate.ModeGoal))
				values.Set(urlstate.ParamGoalSubMode, string(mode))
				return runCalculation(cmd.Context(), cmd.OutOrStdout(), global, opts, values)
			},
		}
		opts.register(c.Flags())
		c.Flags().Float64Var(&opts.target, "target", 0, "goal amount in today's money")
		_ = c.MarkFlagRequired("target")
		return c
	}

	cmd.AddCommand(
		sub(urlstate.GoalSIP, "sip", "Find the monthly SIP needed within --period years"),
		sub(urlstate.GoalTime, "time", "Find the years needed with a --sip monthly investment"),
	)
	return cmd
}

// runCalculation pushes values through the recalculation pipeline and writes
// the snapshot as a single forecast. The persist stage prints the shareable
// query string.
func runCalculation(ctx context.Context, stdout io.Writer, global *globalOptions, opts *calcOptions, values url.Values) error {
	if ctx == nil {
		ctx = context.Background()
	}
	outputFormat := firstNonEmpty(global.outputFormat, constants.OutputFormatPretty)
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}
	grouping := format.ParseGrouping(global.grouping)

	logger, err := logging.New(config.LoggingConfig{Format: "console"}, global.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	set := controls.Defaults()
	pipelineOpts := []pipeline.Option{}
	var donut, line *chart.Holder
	if opts.chart && outputFormat == constants.OutputFormatPretty && global.outputPath == "" {
		donut = chart.NewHolder(chart.NewTextRenderer(stdout))
		line = chart.NewHolder(chart.NewTextRenderer(stdout))
		defer donut.Close()
		defer line.Close()
		pipelineOpts = append(pipelineOpts, pipeline.WithCharts(donut, line))
	}
	pipelineOpts = append(pipelineOpts, pipeline.WithPersister(pipeline.PersistFunc(
		func(ctx context.Context, snap pipeline.Snapshot) error {
			logger.Info("shareable calculator query",
				zap.String("op", "main.runCalculation"),
				zap.String("query", "?"+snap.Query),
			)
			return nil
		},
	)))

	p := pipeline.New(logger, set, optimizer.NewSolver(logger), pipelineOpts...)
	state := urlstate.Decode(values, set, urlstate.Default(set))

	// Results are written before the charts are drawn.
	snap := p.Compute(state)
	result := forecast.Forecast{
		Name:   opts.name,
		Params: snap.Params,
		Result: snap.Result,
		Goal:   snap.Goal,
		Notes:  snap.Warnings,
	}
	if snap.Goal != nil {
		result.Notes = append(result.Notes, snap.Goal.Notes...)
	}
	if err := writeResults(stdout, outputFormat, global.outputPath, []forecast.Forecast{result}, grouping); err != nil {
		return err
	}

	if err := p.Render(snap); err != nil {
		logger.Warn("chart render skipped",
			zap.String("op", "main.runCalculation"),
			zap.Error(err),
		)
	}
	return p.Persist(ctx, snap)
}
