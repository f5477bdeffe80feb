// Package finance implements the SIP projection engine: a monthly-compounding
// simulation of periodic contributions plus an optional lump sum, with an
// annual step-up of the contribution and inflation discounting of the result.
package finance

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/sip-forecast/pkg/constants"
	"github.com/iwvelando/sip-forecast/pkg/mathutil"
)

// StepUpMode selects how the monthly contribution grows at each year boundary.
type StepUpMode int

const (
	// StepUpAmount adds a fixed amount to the monthly contribution every year.
	StepUpAmount StepUpMode = iota
	// StepUpPercentage multiplies the monthly contribution by (1+value) every year.
	StepUpPercentage
)

// String returns the identifier used in configuration files and URLs.
func (m StepUpMode) String() string {
	switch m {
	case StepUpPercentage:
		return "percentage"
	default:
		return "amount"
	}
}

// ParseStepUpMode accepts "amount" or "percentage" (and the URL alias "rate").
func ParseStepUpMode(value string) (StepUpMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "amount":
		return StepUpAmount, nil
	case "percentage", "percent", "rate":
		return StepUpPercentage, nil
	default:
		return StepUpAmount, fmt.Errorf("unsupported step-up mode %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m StepUpMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *StepUpMode) UnmarshalText(text []byte) error {
	parsed, err := ParseStepUpMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// StepUp describes the annual increase of the monthly contribution. Value is a
// currency amount in StepUpAmount mode and a fraction in StepUpPercentage mode.
type StepUp struct {
	Mode  StepUpMode `json:"mode"`
	Value float64    `json:"value"`
}

// Inflation controls the real-value discount. It never affects compounding.
type Inflation struct {
	Enabled    bool    `json:"enabled"`
	AnnualRate float64 `json:"annualRate"`
}

// ProjectionParams is the immutable input of one calculation. Rates are fractions.
type ProjectionParams struct {
	MonthlyContribution float64   `json:"monthlyContribution"`
	InitialLumpSum      float64   `json:"initialLumpSum"`
	AnnualReturnRate    float64   `json:"annualReturnRate"`
	HorizonYears        int       `json:"horizonYears"`
	StepUp              StepUp    `json:"stepUp"`
	Inflation           Inflation `json:"inflation"`
}

// YearlyGrowthRow is the state of the corpus at the end of one simulated year.
type YearlyGrowthRow struct {
	Year               int     `json:"year"`
	CumulativeInvested float64 `json:"cumulativeInvested"`
	CumulativeReturns  float64 `json:"cumulativeReturns"`
	TotalValue         float64 `json:"totalValue"`
	RealValue          float64 `json:"realValue"`
}

// ProjectionResult holds the totals of a projection and its yearly series.
type ProjectionResult struct {
	TotalInvested     float64           `json:"totalInvested"`
	TotalReturns      float64           `json:"totalReturns"`
	FinalValue        float64           `json:"finalValue"`
	RealValue         float64           `json:"realValue"`
	InflationAdjusted bool              `json:"inflationAdjusted"`
	Series            []YearlyGrowthRow `json:"series"`
}

// InflationRate returns the discount rate in effect, zero when inflation is disabled.
func (p ProjectionParams) InflationRate() float64 {
	if !p.Inflation.Enabled {
		return 0
	}
	return mathutil.NonNegative(p.Inflation.AnnualRate)
}

// Sanitize returns a copy with every numeric field coerced the way the
// calculator treats user input: NaN, infinite and negative values become 0 and
// the horizon is clamped to [0, MaxHorizonYears].
func (p ProjectionParams) Sanitize() ProjectionParams {
	p.MonthlyContribution = mathutil.NonNegative(p.MonthlyContribution)
	p.InitialLumpSum = mathutil.NonNegative(p.InitialLumpSum)
	p.AnnualReturnRate = mathutil.NonNegative(p.AnnualReturnRate)
	p.StepUp.Value = mathutil.NonNegative(p.StepUp.Value)
	if p.StepUp.Mode != StepUpPercentage {
		p.StepUp.Mode = StepUpAmount
	}
	p.Inflation.AnnualRate = mathutil.NonNegative(p.Inflation.AnnualRate)
	if p.HorizonYears < 0 {
		p.HorizonYears = 0
	}
	if p.HorizonYears > constants.MaxHorizonYears {
		p.HorizonYears = constants.MaxHorizonYears
	}
	return p
}

// Validate reports every field Sanitize would have to change. Project itself
// never fails; Validate exists for callers that prefer to surface bad input.
func (p ProjectionParams) Validate() error {
	var errs []error
	check := func(name string, value float64) {
		switch {
		case math.IsNaN(value) || math.IsInf(value, 0):
			errs = append(errs, fmt.Errorf("%s must be a finite number", name))
		case value < 0:
			errs = append(errs, fmt.Errorf("%s must not be negative, got %g", name, value))
		}
	}
	check("monthly contribution", p.MonthlyContribution)
	check("lump sum", p.InitialLumpSum)
	check("annual return rate", p.AnnualReturnRate)
	check("step-up value", p.StepUp.Value)
	if p.Inflation.Enabled {
		check("inflation rate", p.Inflation.AnnualRate)
	}
	if p.HorizonYears < 1 || p.HorizonYears > constants.MaxHorizonYears {
		errs = append(errs, fmt.Errorf("horizon must be between 1 and %d years, got %d", constants.MaxHorizonYears, p.HorizonYears))
	}
	return errors.Join(errs...)
}

// Project runs the monthly simulation for the sanitized params.
//
// Periodic contributions and the lump sum are tracked as separate balances:
// each month the SIP balance grows and then receives the contribution, while
// the lump sum only grows. The monthly rate is the nominal annual rate divided
// by 12. Step-up is applied after a year's row has been emitted, so it only
// affects the following year.
func Project(params ProjectionParams) ProjectionResult {
	p := params.Sanitize()

	monthlyRate := p.AnnualReturnRate / constants.MonthsPerYear
	inflationRate := p.InflationRate()

	sipValue := 0.0
	lumpsumValue := p.InitialLumpSum
	totalInvested := p.InitialLumpSum
	currentMonthly := p.MonthlyContribution

	series := make([]YearlyGrowthRow, 0, p.HorizonYears)
	for year := 1; year <= p.HorizonYears; year++ {
		yearlyInvested := 0.0
		for month := 0; month < constants.MonthsPerYear; month++ {
			sipValue = sipValue*(1+monthlyRate) + currentMonthly
			lumpsumValue = lumpsumValue * (1 + monthlyRate)
			yearlyInvested += currentMonthly
		}
		totalInvested += yearlyInvested

		totalValue := sipValue + lumpsumValue
		series = append(series, YearlyGrowthRow{
			Year:               year,
			CumulativeInvested: totalInvested,
			CumulativeReturns:  totalValue - totalInvested,
			TotalValue:         totalValue,
			RealValue:          Deflate(totalValue, inflationRate, year),
		})

		switch p.StepUp.Mode {
		case StepUpPercentage:
			currentMonthly *= 1 + p.StepUp.Value
		default:
			currentMonthly += p.StepUp.Value
		}
	}

	finalValue := sipValue + lumpsumValue
	return ProjectionResult{
		TotalInvested:     totalInvested,
		TotalReturns:      finalValue - totalInvested,
		FinalValue:        finalValue,
		RealValue:         Deflate(finalValue, inflationRate, p.HorizonYears),
		InflationAdjusted: p.Inflation.Enabled,
		Series:            series,
	}
}

// Deflate discounts a nominal value by years of compound inflation.
func Deflate(value, inflationRate float64, years int) float64 {
	if inflationRate == 0 || years == 0 {
		return value
	}
	return value / math.Pow(1+inflationRate, float64(years))
}

// Inflate is the inverse of Deflate: what a present-day amount costs after years.
func Inflate(value, inflationRate float64, years int) float64 {
	if inflationRate == 0 || years == 0 {
		return value
	}
	return value * math.Pow(1+inflationRate, float64(years))
}
