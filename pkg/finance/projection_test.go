package finance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseParams() ProjectionParams {
	return ProjectionParams{
		MonthlyContribution: 10000,
		AnnualReturnRate:    0.12,
		HorizonYears:        10,
	}
}

func TestProjectReferenceScenario(t *testing.T) {
	result := Project(baseParams())

	require.Len(t, result.Series, 10)
	assert.InDelta(t, 1200000.0, result.TotalInvested, 1e-6)

	// Contribution lands after the month's growth: 10000 * ((1.01^120 - 1) / 0.01).
	expected := 10000 * (math.Pow(1.01, 120) - 1) / 0.01
	assert.InDelta(t, expected, result.FinalValue, 1e-4)
	assert.InDelta(t, 2300386.89, result.FinalValue, 0.01)
	assert.InDelta(t, result.FinalValue-result.TotalInvested, result.TotalReturns, 1e-9)
	assert.Equal(t, result.FinalValue, result.RealValue)
	assert.False(t, result.InflationAdjusted)
}

func TestProjectZeroContribution(t *testing.T) {
	params := baseParams()
	params.MonthlyContribution = 0
	params.InitialLumpSum = 0
	params.StepUp = StepUp{Mode: StepUpPercentage, Value: 0.1}
	params.Inflation = Inflation{Enabled: true, AnnualRate: 0.06}

	result := Project(params)
	assert.Zero(t, result.TotalInvested)
	assert.Zero(t, result.FinalValue)
	for _, row := range result.Series {
		assert.Zero(t, row.TotalValue, "year %d", row.Year)
		assert.Zero(t, row.CumulativeInvested, "year %d", row.Year)
	}
}

func TestProjectLumpSumOnlyCompounding(t *testing.T) {
	tests := []struct {
		name  string
		lump  float64
		rate  float64
		years int
	}{
		{"one year", 100000, 0.12, 1},
		{"decade", 250000, 0.08, 10},
		{"long horizon", 50000, 0.15, 40},
		{"zero rate", 75000, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Project(ProjectionParams{
				InitialLumpSum:   tt.lump,
				AnnualReturnRate: tt.rate,
				HorizonYears:     tt.years,
			})
			expected := tt.lump * math.Pow(1+tt.rate/12, float64(12*tt.years))
			assert.InEpsilon(t, expected, result.FinalValue, 1e-10)
			assert.Equal(t, tt.lump, result.TotalInvested)
		})
	}
}

func TestProjectMonotonicInvested(t *testing.T) {
	cases := []ProjectionParams{
		{MonthlyContribution: 5000, AnnualReturnRate: 0.1, HorizonYears: 30, StepUp: StepUp{Mode: StepUpAmount, Value: 500}},
		{MonthlyContribution: 5000, InitialLumpSum: 100000, AnnualReturnRate: 0.14, HorizonYears: 25, StepUp: StepUp{Mode: StepUpPercentage, Value: 0.1}},
		{MonthlyContribution: 0, InitialLumpSum: 100000, AnnualReturnRate: 0.07, HorizonYears: 15},
	}

	for i, params := range cases {
		result := Project(params)
		for j := 1; j < len(result.Series); j++ {
			assert.LessOrEqual(t, result.Series[j-1].CumulativeInvested, result.Series[j].CumulativeInvested, "case %d year %d", i, j+1)
			assert.GreaterOrEqual(t, result.Series[j].TotalValue, 0.0)
		}
		last := result.Series[len(result.Series)-1]
		assert.Equal(t, result.FinalValue, last.TotalValue, "case %d", i)
		assert.Equal(t, result.RealValue, last.RealValue, "case %d", i)
	}
}

func TestProjectInflationRoundTrip(t *testing.T) {
	params := baseParams()
	params.InitialLumpSum = 50000
	params.Inflation = Inflation{Enabled: true, AnnualRate: 0.06}

	result := Project(params)
	require.True(t, result.InflationAdjusted)
	for _, row := range result.Series {
		restored := row.RealValue * math.Pow(1.06, float64(row.Year))
		assert.InEpsilon(t, row.TotalValue, restored, 1e-10, "year %d", row.Year)
		assert.Less(t, row.RealValue, row.TotalValue)
	}
	assert.InEpsilon(t, result.FinalValue/math.Pow(1.06, 10), result.RealValue, 1e-10)
}

func TestProjectDisabledInflationIgnoresRate(t *testing.T) {
	params := baseParams()
	params.Inflation = Inflation{Enabled: false, AnnualRate: 0.2}

	result := Project(params)
	for _, row := range result.Series {
		assert.Equal(t, row.TotalValue, row.RealValue)
	}
}

func TestProjectPercentageStepUpLinearity(t *testing.T) {
	for _, k := range []float64{0.5, 2, 3.7, 10} {
		base := ProjectionParams{
			MonthlyContribution: 2500,
			AnnualReturnRate:    0.11,
			HorizonYears:        20,
			StepUp:              StepUp{Mode: StepUpPercentage, Value: 0.08},
			Inflation:           Inflation{Enabled: true, AnnualRate: 0.05},
		}
		scaled := base
		scaled.MonthlyContribution = k * base.MonthlyContribution

		assert.InEpsilon(t, k*Project(base).FinalValue, Project(scaled).FinalValue, 1e-10, "k=%v", k)
	}
}

func TestProjectStepUpAppliesFromSecondYear(t *testing.T) {
	params := ProjectionParams{
		MonthlyContribution: 1000,
		HorizonYears:        3,
		StepUp:              StepUp{Mode: StepUpAmount, Value: 500},
	}

	result := Project(params)
	require.Len(t, result.Series, 3)
	assert.Equal(t, 12000.0, result.Series[0].CumulativeInvested)
	assert.Equal(t, 12000.0+18000.0, result.Series[1].CumulativeInvested)
	assert.Equal(t, 12000.0+18000.0+24000.0, result.Series[2].CumulativeInvested)

	params.StepUp = StepUp{Mode: StepUpPercentage, Value: 0.1}
	result = Project(params)
	assert.InDelta(t, 12000.0+13200.0+14520.0, result.TotalInvested, 1e-9)
}

func TestProjectSanitizesInput(t *testing.T) {
	result := Project(ProjectionParams{
		MonthlyContribution: math.NaN(),
		InitialLumpSum:      -5000,
		AnnualReturnRate:    -0.1,
		HorizonYears:        250,
		StepUp:              StepUp{Mode: StepUpMode(42), Value: math.Inf(1)},
	})

	assert.Len(t, result.Series, 100)
	assert.Zero(t, result.FinalValue)
	assert.Zero(t, result.TotalInvested)

	result = Project(ProjectionParams{MonthlyContribution: 1000, AnnualReturnRate: 0.1, HorizonYears: -3})
	assert.Empty(t, result.Series)
	assert.Zero(t, result.FinalValue)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, baseParams().Validate())

	bad := ProjectionParams{
		MonthlyContribution: -1,
		AnnualReturnRate:    math.NaN(),
		HorizonYears:        0,
		Inflation:           Inflation{Enabled: true, AnnualRate: -0.02},
	}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monthly contribution")
	assert.Contains(t, err.Error(), "annual return rate")
	assert.Contains(t, err.Error(), "inflation rate")
	assert.Contains(t, err.Error(), "horizon")
}

func TestParseStepUpMode(t *testing.T) {
	tests := map[string]StepUpMode{
		"":           StepUpAmount,
		"amount":     StepUpAmount,
		"Percentage": StepUpPercentage,
		"rate":       StepUpPercentage,
	}
	for input, expected := range tests {
		got, err := ParseStepUpMode(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got, input)
	}

	_, err := ParseStepUpMode("yearly")
	assert.Error(t, err)
}

func TestInflateDeflateInverse(t *testing.T) {
	assert.InEpsilon(t, 1000.0, Deflate(Inflate(1000, 0.07, 12), 0.07, 12), 1e-10)
	assert.Equal(t, 1000.0, Inflate(1000, 0, 12))
}
