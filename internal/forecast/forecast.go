// Package forecast runs every active scenario of a configuration through the
// projection engine and, where a goal is configured, the goal solver.
package forecast

import (
	"fmt"

	"github.com/iwvelando/sip-forecast/internal/config"
	"github.com/iwvelando/sip-forecast/internal/optimizer"
	"github.com/iwvelando/sip-forecast/pkg/finance"
	"github.com/iwvelando/sip-forecast/pkg/optimization"
	"go.uber.org/zap"
)

// Forecast holds all information related to a specific forecast.
type Forecast struct {
	Name   string                   `json:"name"`
	Params finance.ProjectionParams `json:"params"`
	Result finance.ProjectionResult `json:"result"`
	Goal   *optimization.Summary    `json:"goal,omitempty"`
	Notes  []string                 `json:"notes,omitempty"`
}

// GetForecast processes the Forecasts for all Scenarios.
func GetForecast(logger *zap.Logger, conf config.Configuration) ([]Forecast, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	solver := optimizer.NewSolver(logger,
		optimizer.WithTolerance(conf.Solver.Tolerance),
		optimizer.WithMaxIterations(conf.Solver.MaxIterations),
	)

	var results []Forecast
	for _, scenario := range conf.Scenarios {
		if !scenario.Active {
			logger.Debug(fmt.Sprintf("skipping scenario %s because it is inactive", scenario.Name),
				zap.String("op", "forecast.GetForecast"),
			)
			continue
		}

		result, err := Run(solver, scenario)
		if err != nil {
			return results, err
		}
		logger.Debug("computed scenario",
			zap.String("op", "forecast.GetForecast"),
			zap.String("scenario", scenario.Name),
			zap.Float64("finalValue", result.Result.FinalValue),
		)
		results = append(results, result)
	}

	return results, nil
}

// Run computes a single scenario regardless of its active flag.
func Run(solver *optimizer.Solver, scenario config.Scenario) (Forecast, error) {
	params, err := scenario.ToParams()
	if err != nil {
		return Forecast{}, err
	}

	result := Forecast{Name: scenario.Name}
	if scenario.Goal != nil {
		goal := *scenario.Goal
		if err := goal.Validate(); err != nil {
			return Forecast{}, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}
		solved, summary := solver.SolveGoal(params, optimizer.Goal{
			Name:   scenario.Name,
			Mode:   goal.Mode,
			Target: goal.Target,
		})
		params = solved
		result.Goal = &summary
		result.Notes = append(result.Notes, summary.Notes...)
	}

	result.Params = params
	result.Result = finance.Project(params)
	return result, nil
}
