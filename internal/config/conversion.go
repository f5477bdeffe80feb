package config

import (
	"fmt"

	"github.com/iwvelando/sip-forecast/pkg/finance"
	"github.com/iwvelando/sip-forecast/pkg/mathutil"
)

// ToParams converts a scenario to engine params, turning percentages into
// fractions.
func (s Scenario) ToParams() (finance.ProjectionParams, error) {
	mode, err := finance.ParseStepUpMode(s.StepUp.Mode)
	if err != nil {
		return finance.ProjectionParams{}, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	stepUpValue := s.StepUp.Value
	if mode == finance.StepUpPercentage {
		stepUpValue = mathutil.PercentToFraction(stepUpValue)
	}

	return finance.ProjectionParams{
		MonthlyContribution: s.MonthlyContribution,
		InitialLumpSum:      s.LumpSum,
		AnnualReturnRate:    mathutil.PercentToFraction(s.AnnualReturnRate),
		HorizonYears:        s.Years,
		StepUp:              finance.StepUp{Mode: mode, Value: stepUpValue},
		Inflation: finance.Inflation{
			Enabled:    s.Inflation.Enabled,
			AnnualRate: mathutil.PercentToFraction(s.Inflation.Rate),
		},
	}, nil
}

// FromParams builds a scenario from engine params, the inverse of ToParams.
func FromParams(name string, params finance.ProjectionParams) Scenario {
	stepUpValue := params.StepUp.Value
	if params.StepUp.Mode == finance.StepUpPercentage {
		stepUpValue = mathutil.FractionToPercent(stepUpValue)
	}
	return Scenario{
		Name:                name,
		Active:              true,
		MonthlyContribution: params.MonthlyContribution,
		LumpSum:             params.InitialLumpSum,
		AnnualReturnRate:    mathutil.FractionToPercent(params.AnnualReturnRate),
		Years:               params.HorizonYears,
		StepUp:              StepUpConfig{Mode: params.StepUp.Mode.String(), Value: stepUpValue},
		Inflation: InflationConfig{
			Enabled: params.Inflation.Enabled,
			Rate:    mathutil.FractionToPercent(params.Inflation.AnnualRate),
		},
	}
}
