package config

import (
	"fmt"

	"github.com/iwvelando/sip-forecast/pkg/controls"
	"github.com/iwvelando/sip-forecast/pkg/finance"
	"github.com/iwvelando/sip-forecast/pkg/validation"
)

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			warnings = append(warnings, err.Error())
		}
	}
	if err := validation.ValidateGrouping(c.Output.Grouping); err != nil {
		warnings = append(warnings, err.Error())
	}
	if err := c.Solver.Validate(); err != nil {
		warnings = append(warnings, err.Error())
	}

	var scenarios []validation.ScenarioConfig
	for _, scenario := range c.Scenarios {
		params, err := scenario.ToParams()
		view := validation.ScenarioConfig{
			Name:      scenario.Name,
			Active:    scenario.Active,
			Params:    params,
			ParamsErr: err,
			Display:   scenario.displayValues(params),
		}
		scenarios = append(scenarios, view)

		if scenario.Active && scenario.Goal != nil {
			goal := *scenario.Goal
			if err := goal.Validate(); err != nil {
				warnings = append(warnings, fmt.Sprintf("Scenario '%s': %v", scenario.Name, err))
			}
		}
	}

	validator := validation.ConfigValidator{Controls: c.Controls, Scenarios: scenarios}
	return append(warnings, validator.ValidateAll()...)
}

func (s Scenario) displayValues(params finance.ProjectionParams) map[string]float64 {
	values := map[string]float64{
		controls.SIP:     s.MonthlyContribution,
		controls.Returns: s.AnnualReturnRate,
		controls.Period:  float64(s.Years),
	}
	if s.LumpSum > 0 {
		values[controls.Lumpsum] = s.LumpSum
	}
	if s.StepUp.Value != 0 {
		if params.StepUp.Mode == finance.StepUpPercentage {
			values[controls.StepUpRate] = s.StepUp.Value
		} else {
			values[controls.StepUpAmount] = s.StepUp.Value
		}
	}
	if s.Inflation.Enabled {
		values[controls.InflationRate] = s.Inflation.Rate
	}
	if s.Goal != nil {
		values[controls.Target] = s.Goal.Target
	}
	return values
}
