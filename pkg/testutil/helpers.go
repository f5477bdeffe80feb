// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/sip-forecast/internal/forecast"
	"github.com/iwvelando/sip-forecast/pkg/finance"
)

// FindScenario finds a scenario by name in the results slice.
// Returns a pointer to the forecast if found, nil otherwise.
func FindScenario(results []forecast.Forecast, name string) *forecast.Forecast {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// ReferenceParams is the ₹10,000 a month, 12%, 10 year plan used across tests.
func ReferenceParams() finance.ProjectionParams {
	return finance.ProjectionParams{
		MonthlyContribution: 10000,
		AnnualReturnRate:    0.12,
		HorizonYears:        10,
	}
}

// ReferenceFinalValue is the projected value of ReferenceParams.
const ReferenceFinalValue = 2300386.89
