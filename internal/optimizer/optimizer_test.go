package optimizer

import (
	"math"
	"testing"

	"github.com/iwvelando/sip-forecast/pkg/finance"
	"github.com/iwvelando/sip-forecast/pkg/mathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func baseParams() finance.ProjectionParams {
	return finance.ProjectionParams{
		AnnualReturnRate: 0.12,
		HorizonYears:     10,
	}
}

func TestRequiredContributionReachesTarget(t *testing.T) {
	tests := []struct {
		name   string
		params func() finance.ProjectionParams
		target float64
		method Method
	}{
		{
			name:   "no step-up",
			params: baseParams,
			target: 10_000_000,
			method: MethodBisection,
		},
		{
			name: "amount step-up",
			params: func() finance.ProjectionParams {
				p := baseParams()
				p.StepUp = finance.StepUp{Mode: finance.StepUpAmount, Value: 1000}
				return p
			},
			target: 10_000_000,
			method: MethodBisection,
		},
		{
			name: "percentage step-up",
			params: func() finance.ProjectionParams {
				p := baseParams()
				p.StepUp = finance.StepUp{Mode: finance.StepUpPercentage, Value: 0.10}
				return p
			},
			target: 10_000_000,
			method: MethodRatio,
		},
		{
			name: "percentage step-up with lump sum",
			params: func() finance.ProjectionParams {
				p := baseParams()
				p.InitialLumpSum = 500_000
				p.StepUp = finance.StepUp{Mode: finance.StepUpPercentage, Value: 0.05}
				return p
			},
			target: 25_000_000,
			method: MethodRatio,
		},
		{
			name: "inflation raises the target",
			params: func() finance.ProjectionParams {
				p := baseParams()
				p.HorizonYears = 20
				p.Inflation = finance.Inflation{Enabled: true, AnnualRate: 0.06}
				return p
			},
			target: 10_000_000,
			method: MethodBisection,
		},
	}

	solver := NewSolver(zaptest.NewLogger(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := tt.params()
			result := solver.RequiredContribution(params, tt.target)
			require.Equal(t, StatusSolved, result.Status)
			assert.Equal(t, tt.method, result.Method)
			assert.True(t, result.Converged)
			assert.Greater(t, result.Contribution, 0.0)

			future := FutureTarget(params, tt.target, params.HorizonYears)
			assert.InDelta(t, future, result.FutureTarget, 1e-6)

			params.MonthlyContribution = result.Contribution
			got := finance.Project(params).FinalValue
			assert.LessOrEqual(t, mathutil.RelativeError(got, future), 1e-6,
				"projection with solved contribution %.4f gave %.2f, want %.2f", result.Contribution, got, future)
			assert.InDelta(t, got, result.Projection.FinalValue, 1e-6*future)
		})
	}
}

func TestRequiredContributionInflationTarget(t *testing.T) {
	params := baseParams()
	params.Inflation = finance.Inflation{Enabled: true, AnnualRate: 0.06}

	result := NewSolver(nil).RequiredContribution(params, 10_000_000)
	require.Equal(t, StatusSolved, result.Status)
	assert.InEpsilon(t, 10_000_000*math.Pow(1.06, 10), result.FutureTarget, 1e-12)
}

func TestRequiredContributionLumpSumAlreadyEnough(t *testing.T) {
	for _, mode := range []finance.StepUpMode{finance.StepUpAmount, finance.StepUpPercentage} {
		t.Run(mode.String(), func(t *testing.T) {
			params := baseParams()
			params.InitialLumpSum = 10_000_000
			params.StepUp.Mode = mode

			result := NewSolver(nil).RequiredContribution(params, 1_000_000)
			assert.Equal(t, StatusSolved, result.Status)
			assert.Equal(t, 0.0, result.Contribution)
			assert.Equal(t, "₹0", result.Display())
			assert.Greater(t, result.Projection.FinalValue, 1_000_000.0)
		})
	}
}

func TestRequiredContributionNotApplicable(t *testing.T) {
	solver := NewSolver(nil)

	zeroHorizon := baseParams()
	zeroHorizon.HorizonYears = 0
	result := solver.RequiredContribution(zeroHorizon, 1_000_000)
	assert.Equal(t, StatusNotApplicable, result.Status)
	assert.Equal(t, "Not applicable", result.Display())

	result = solver.RequiredContribution(baseParams(), 0)
	assert.Equal(t, StatusNotApplicable, result.Status)

	result = solver.RequiredContribution(baseParams(), math.NaN())
	assert.Equal(t, StatusNotApplicable, result.Status)
}

func TestRequiredContributionZeroReturn(t *testing.T) {
	params := baseParams()
	params.AnnualReturnRate = 0

	result := NewSolver(nil).RequiredContribution(params, 1_200_000)
	require.Equal(t, StatusSolved, result.Status)
	assert.InEpsilon(t, 10_000, result.Contribution, 1e-6)
}

func TestRequiredContributionIterationCap(t *testing.T) {
	solver := NewSolver(nil, WithMaxIterations(3))
	result := solver.RequiredContribution(baseParams(), 10_000_000)

	assert.Equal(t, StatusSolved, result.Status)
	assert.Equal(t, 3, result.Iterations)
	assert.False(t, result.Converged)

	summary := SummarizeContribution(Goal{Name: "capped", Target: 10_000_000}, result)
	require.Len(t, summary.Notes, 1)
	assert.Contains(t, summary.Notes[0], "3 iterations")
}

func TestRequiredContributionLooseTolerance(t *testing.T) {
	strict := NewSolver(nil).RequiredContribution(baseParams(), 10_000_000)
	loose := NewSolver(nil, WithTolerance(1e-3)).RequiredContribution(baseParams(), 10_000_000)

	assert.True(t, loose.Converged)
	assert.Less(t, loose.Iterations, strict.Iterations)
}

func TestRequiredHorizon(t *testing.T) {
	solver := NewSolver(zaptest.NewLogger(t))

	params := baseParams()
	params.MonthlyContribution = 10_000

	result := solver.RequiredHorizon(params, 2_300_000)
	require.Equal(t, StatusSolved, result.Status)
	assert.Equal(t, 10, result.Years)
	assert.Equal(t, "10 Years", result.Display())
	assert.GreaterOrEqual(t, result.Projection.FinalValue, 2_300_000.0)

	result = solver.RequiredHorizon(params, 1)
	assert.Equal(t, 1, result.Years)
	assert.Equal(t, "1 Year", result.Display())
}

func TestRequiredHorizonIsMinimal(t *testing.T) {
	params := baseParams()
	params.MonthlyContribution = 10_000
	params.StepUp = finance.StepUp{Mode: finance.StepUpPercentage, Value: 0.10}
	params.Inflation = finance.Inflation{Enabled: true, AnnualRate: 0.06}
	target := 10_000_000.0

	result := NewSolver(nil).RequiredHorizon(params, target)
	require.Equal(t, StatusSolved, result.Status)
	require.Greater(t, result.Years, 1)

	params.HorizonYears = result.Years
	assert.GreaterOrEqual(t, finance.Project(params).FinalValue, FutureTarget(params, target, result.Years))

	params.HorizonYears = result.Years - 1
	assert.Less(t, finance.Project(params).FinalValue, FutureTarget(params, target, result.Years-1))
}

func TestRequiredHorizonExceeded(t *testing.T) {
	params := finance.ProjectionParams{MonthlyContribution: 1}

	result := NewSolver(nil).RequiredHorizon(params, 1_000_000_000)
	assert.Equal(t, StatusExceeded, result.Status)
	assert.Equal(t, 100, result.Years)
	assert.Equal(t, "100+ Years", result.Display())

	summary := SummarizeHorizon(Goal{Name: "far", Target: 1_000_000_000}, result)
	assert.Equal(t, "exceeded", summary.Status)
	assert.False(t, summary.Converged)
	assert.Equal(t, "100+ Years", summary.ValueDisplay)
}

func TestRequiredHorizonNotApplicable(t *testing.T) {
	for _, contribution := range []float64{0, -500, math.NaN()} {
		params := baseParams()
		params.MonthlyContribution = contribution

		result := NewSolver(nil).RequiredHorizon(params, 1_000_000)
		assert.Equal(t, StatusNotApplicable, result.Status)
		assert.Equal(t, "Not applicable", result.Display())
	}
}

func TestSummarizeContribution(t *testing.T) {
	params := baseParams()
	result := NewSolver(nil).RequiredContribution(params, 10_000_000)

	summary := SummarizeContribution(Goal{Name: "retirement", Target: 10_000_000}, result)
	assert.Equal(t, "goal", summary.Scope)
	assert.Equal(t, "retirement", summary.TargetName)
	assert.Equal(t, "monthlyContribution", summary.Field)
	assert.Equal(t, "bisection", summary.Method)
	assert.Equal(t, "solved", summary.Status)
	assert.Equal(t, result.Display(), summary.ValueDisplay)
	assert.Empty(t, summary.Notes)
}

func TestSolveGoal(t *testing.T) {
	solver := NewSolver(nil)
	params := baseParams()
	params.MonthlyContribution = 10_000

	solved, summary := solver.SolveGoal(params, Goal{Name: "sip", Mode: GoalContribution, Target: 10_000_000})
	assert.Equal(t, "monthlyContribution", summary.Field)
	assert.Equal(t, summary.Value, solved.MonthlyContribution)
	assert.Equal(t, 10, solved.HorizonYears)

	solved, summary = solver.SolveGoal(params, Goal{Name: "time", Mode: GoalHorizon, Target: 2_300_000})
	assert.Equal(t, "horizonYears", summary.Field)
	assert.Equal(t, 10, solved.HorizonYears)
	assert.Equal(t, 10_000.0, solved.MonthlyContribution)

	params.MonthlyContribution = 0
	solved, summary = solver.SolveGoal(params, Goal{Mode: GoalHorizon, Target: 2_300_000})
	assert.Equal(t, "not_applicable", summary.Status)
	assert.Equal(t, params, solved)
}
