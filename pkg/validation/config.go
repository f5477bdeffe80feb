package validation

import (
	"errors"
	"fmt"

	"github.com/iwvelando/sip-forecast/pkg/controls"
	"github.com/iwvelando/sip-forecast/pkg/finance"
)

// ScenarioConfig is the validation view of one configured scenario.
type ScenarioConfig struct {
	Name   string
	Active bool
	Params finance.ProjectionParams
	// ParamsErr is set when the scenario could not be converted to params.
	ParamsErr error
	// Display values as entered, used for range checks against the controls.
	Display map[string]float64
}

// ConfigValidator performs whole-configuration validation.
type ConfigValidator struct {
	Controls  controls.Set
	Scenarios []ScenarioConfig
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	if err := cv.Controls.Validate(); err != nil {
		warnings = append(warnings, fmt.Sprintf("Controls are invalid: %v", err))
	}

	if len(cv.Scenarios) == 0 {
		return append(warnings, "No scenarios configured")
	}

	seen := make(map[string]bool)
	active := 0
	for _, scenario := range cv.Scenarios {
		if seen[scenario.Name] {
			warnings = append(warnings, fmt.Sprintf("Scenario name '%s' is used more than once", scenario.Name))
		}
		seen[scenario.Name] = true

		if !scenario.Active {
			continue
		}
		active++
		warnings = append(warnings, ValidateScenario(scenario, cv.Controls)...)
	}

	if active == 0 {
		warnings = append(warnings, "No active scenarios - nothing will be calculated")
	}
	return warnings
}

// ValidateScenario reports invalid params and values the calculator page
// would clamp.
func ValidateScenario(scenario ScenarioConfig, set controls.Set) []string {
	var warnings []string
	if scenario.ParamsErr != nil {
		return append(warnings, fmt.Sprintf("Scenario '%s': %v", scenario.Name, scenario.ParamsErr))
	}

	if err := scenario.Params.Validate(); err != nil {
		for _, e := range unwrap(err) {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s': %v - value will be treated as 0 or clamped", scenario.Name, e))
		}
	}

	for _, name := range []string{controls.SIP, controls.Returns, controls.Period, controls.StepUpRate, controls.StepUpAmount, controls.InflationRate, controls.Lumpsum, controls.Target} {
		value, ok := scenario.Display[name]
		if !ok {
			continue
		}
		control, _ := set.Lookup(name)
		if value < control.Min || value > control.Max {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s': %s %g is outside the calculator range [%g, %g]",
				scenario.Name, name, value, control.Min, control.Max))
		}
	}
	return warnings
}

func unwrap(err error) []error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return joined.Unwrap()
	}
	return []error{err}
}
