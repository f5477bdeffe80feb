// Package optimizer solves the inverse problems of the projection engine: the
// monthly contribution needed to reach a target corpus, and the number of
// years needed to reach it with a fixed contribution. The engine is used as a
// black-box oracle.
package optimizer

import (
	"fmt"
	"math"

	"github.com/iwvelando/sip-forecast/pkg/constants"
	"github.com/iwvelando/sip-forecast/pkg/finance"
	"github.com/iwvelando/sip-forecast/pkg/format"
	"github.com/iwvelando/sip-forecast/pkg/mathutil"
	"github.com/iwvelando/sip-forecast/pkg/optimization"
	"go.uber.org/zap"
)

// Status describes how a goal-seeking run ended.
type Status string

const (
	// StatusSolved means a value meeting the target was found.
	StatusSolved Status = "solved"
	// StatusExceeded means the horizon solver hit the year cap ("100+ Years").
	StatusExceeded Status = "exceeded"
	// StatusNotApplicable means the question has no answer for these inputs.
	StatusNotApplicable Status = "not_applicable"
)

// Method names the search strategy that produced a result.
type Method string

const (
	MethodRatio     Method = "ratio"
	MethodBisection Method = "bisection"
	MethodScan      Method = "scan"
)

// Goal modes.
const (
	GoalContribution = "sip"
	GoalHorizon      = "time"
)

// Goal is a target corpus expressed in today's money. When inflation is
// enabled on the params, the amount to reach grows with the horizon. Mode
// selects what is solved for.
type Goal struct {
	Name   string
	Mode   string
	Target float64
}

// FutureTarget returns the nominal amount the goal requires after years.
func FutureTarget(params finance.ProjectionParams, target float64, years int) float64 {
	return finance.Inflate(target, params.InflationRate(), years)
}

// ContributionResult is the answer to "how much per month?".
type ContributionResult struct {
	Status       Status
	Method       Method
	Contribution float64
	FutureTarget float64
	Iterations   int
	Converged    bool
	Projection   finance.ProjectionResult
}

// HorizonResult is the answer to "how many years?".
type HorizonResult struct {
	Status       Status
	Years        int
	FutureTarget float64
	Iterations   int
	Projection   finance.ProjectionResult
}

// notApplicable is shown when a goal has no answer, e.g. a contribution of 0.
const notApplicable = "Not applicable"

// Display renders the horizon the way the calculator shows it.
func (r HorizonResult) Display() string {
	switch r.Status {
	case StatusExceeded:
		return fmt.Sprintf("%d+ Years", constants.MaxHorizonYears)
	case StatusNotApplicable:
		return notApplicable
	}
	if r.Years == 1 {
		return "1 Year"
	}
	return fmt.Sprintf("%d Years", r.Years)
}

// Display renders the contribution as a rupee amount, or "Not applicable".
func (r ContributionResult) Display() string {
	if r.Status == StatusNotApplicable {
		return notApplicable
	}
	return format.Rupees(r.Contribution)
}

// Solver runs goal-seeking searches.
type Solver struct {
	logger        *zap.Logger
	tolerance     float64
	maxIterations int
}

// Option customises a Solver.
type Option func(*Solver)

// WithTolerance sets the relative tolerance on the projected value.
func WithTolerance(tolerance float64) Option {
	return func(s *Solver) {
		if tolerance > 0 {
			s.tolerance = tolerance
		}
	}
}

// WithMaxIterations bounds the bisection search.
func WithMaxIterations(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

// NewSolver constructs a Solver.
func NewSolver(logger *zap.Logger, opts ...Option) *Solver {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Solver{
		logger:        logger,
		tolerance:     constants.DefaultSolverTolerance,
		maxIterations: constants.DefaultSolverMaxIterations,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequiredContribution finds the starting monthly contribution that makes the
// projection reach the goal at params.HorizonYears. The MonthlyContribution of
// params is ignored.
//
// With percentage step-up the final value is affine in the starting
// contribution, so the answer is computed directly from two projections.
// Amount step-up is searched by bisection over [0, futureTarget].
func (s *Solver) RequiredContribution(params finance.ProjectionParams, target float64) ContributionResult {
	p := params.Sanitize()
	target = mathutil.NonNegative(target)
	future := FutureTarget(p, target, p.HorizonYears)

	if p.HorizonYears == 0 || future <= 0 {
		return ContributionResult{Status: StatusNotApplicable, FutureTarget: future}
	}

	var result ContributionResult
	if p.StepUp.Mode == finance.StepUpPercentage {
		result = s.solveRatio(p, future)
	} else {
		result = s.solveBisection(p, future)
	}
	result.FutureTarget = future

	s.logger.Debug("solved required contribution",
		zap.String("op", "optimizer.RequiredContribution"),
		zap.String("method", string(result.Method)),
		zap.String("status", string(result.Status)),
		zap.Float64("futureTarget", future),
		zap.Float64("contribution", result.Contribution),
		zap.Int("iterations", result.Iterations),
		zap.Bool("converged", result.Converged),
	)
	return result
}

func (s *Solver) solveRatio(p finance.ProjectionParams, future float64) ContributionResult {
	p.MonthlyContribution = 0
	base := finance.Project(p)
	if base.FinalValue >= future {
		return ContributionResult{Status: StatusSolved, Method: MethodRatio, Converged: true, Projection: base}
	}

	p.MonthlyContribution = 1
	perUnit := finance.Project(p).FinalValue - base.FinalValue
	if perUnit <= 0 || math.IsInf(perUnit, 0) || math.IsNaN(perUnit) {
		return ContributionResult{Status: StatusNotApplicable, Method: MethodRatio}
	}

	p.MonthlyContribution = (future - base.FinalValue) / perUnit
	return ContributionResult{
		Status:       StatusSolved,
		Method:       MethodRatio,
		Contribution: p.MonthlyContribution,
		Converged:    true,
		Projection:   finance.Project(p),
	}
}

func (s *Solver) solveBisection(p finance.ProjectionParams, future float64) ContributionResult {
	evaluate := func(contribution float64) finance.ProjectionResult {
		p.MonthlyContribution = contribution
		return finance.Project(p)
	}

	low, high := 0.0, future
	if lowResult := evaluate(low); lowResult.FinalValue >= future {
		return ContributionResult{Status: StatusSolved, Method: MethodBisection, Converged: true, Projection: lowResult}
	}
	if evaluate(high).FinalValue < future {
		return ContributionResult{Status: StatusNotApplicable, Method: MethodBisection}
	}

	iterations := 0
	converged := false
	best, bestResult := high, evaluate(high)
	for iterations < s.maxIterations {
		mid := low + (high-low)/2
		if mid <= low || mid >= high {
			// No representable midpoint left.
			break
		}
		midResult := evaluate(mid)
		iterations++
		best, bestResult = mid, midResult

		if math.Abs(midResult.FinalValue-future) <= s.tolerance*future {
			converged = true
			break
		}
		if midResult.FinalValue > future {
			high = mid
		} else {
			low = mid
		}
	}

	return ContributionResult{
		Status:       StatusSolved,
		Method:       MethodBisection,
		Contribution: best,
		Iterations:   iterations,
		Converged:    converged,
		Projection:   bestResult,
	}
}

// RequiredHorizon finds the smallest whole number of years after which the
// projection reaches the goal. Each candidate year re-runs the projection from
// year one and re-derives the (possibly inflating) target. The search stops
// at the year cap and reports StatusExceeded.
func (s *Solver) RequiredHorizon(params finance.ProjectionParams, target float64) HorizonResult {
	p := params.Sanitize()
	if p.MonthlyContribution <= 0 {
		return HorizonResult{Status: StatusNotApplicable}
	}
	target = mathutil.NonNegative(target)

	var result HorizonResult
	for years := 1; years <= constants.MaxHorizonYears; years++ {
		p.HorizonYears = years
		projection := finance.Project(p)
		future := FutureTarget(p, target, years)
		result = HorizonResult{
			Status:       StatusExceeded,
			Years:        years,
			FutureTarget: future,
			Iterations:   years,
			Projection:   projection,
		}
		if projection.FinalValue >= future {
			result.Status = StatusSolved
			break
		}
	}

	s.logger.Debug("solved required horizon",
		zap.String("op", "optimizer.RequiredHorizon"),
		zap.String("status", string(result.Status)),
		zap.Int("years", result.Years),
		zap.Float64("futureTarget", result.FutureTarget),
	)
	return result
}

// SolveGoal answers goal and returns params updated with the solved value,
// ready to be projected, together with a report of the search. Params are
// returned unchanged when the goal has no answer.
func (s *Solver) SolveGoal(params finance.ProjectionParams, goal Goal) (finance.ProjectionParams, optimization.Summary) {
	if goal.Mode == GoalHorizon {
		solved := s.RequiredHorizon(params, goal.Target)
		if solved.Status != StatusNotApplicable {
			params.HorizonYears = solved.Years
		}
		return params, SummarizeHorizon(goal, solved)
	}

	solved := s.RequiredContribution(params, goal.Target)
	if solved.Status == StatusSolved {
		params.MonthlyContribution = solved.Contribution
	}
	return params, SummarizeContribution(goal, solved)
}

// SummarizeContribution converts a contribution result for reporting.
func SummarizeContribution(goal Goal, r ContributionResult) optimization.Summary {
	summary := optimization.Summary{
		Scope:        "goal",
		TargetName:   goal.Name,
		Field:        "monthlyContribution",
		Method:       string(r.Method),
		Status:       string(r.Status),
		Target:       goal.Target,
		FutureTarget: r.FutureTarget,
		Value:        r.Contribution,
		ValueDisplay: r.Display(),
		Achieved:     r.Projection.FinalValue,
		Iterations:   r.Iterations,
		Converged:    r.Converged,
	}
	switch {
	case r.Status == StatusNotApplicable:
		summary.Notes = append(summary.Notes, "target cannot be reached within the selected horizon")
	case r.Status == StatusSolved && !r.Converged:
		summary.Notes = append(summary.Notes, fmt.Sprintf("search stopped after %d iterations without meeting tolerance", r.Iterations))
	}
	return summary
}

// SummarizeHorizon converts a horizon result for reporting.
func SummarizeHorizon(goal Goal, r HorizonResult) optimization.Summary {
	summary := optimization.Summary{
		Scope:        "goal",
		TargetName:   goal.Name,
		Field:        "horizonYears",
		Method:       string(MethodScan),
		Status:       string(r.Status),
		Target:       goal.Target,
		FutureTarget: r.FutureTarget,
		Value:        float64(r.Years),
		ValueDisplay: r.Display(),
		Achieved:     r.Projection.FinalValue,
		Iterations:   r.Iterations,
		Converged:    r.Status == StatusSolved,
	}
	switch r.Status {
	case StatusNotApplicable:
		summary.Notes = append(summary.Notes, "a positive monthly contribution is required")
	case StatusExceeded:
		summary.Notes = append(summary.Notes, fmt.Sprintf("target not reached within %d years", constants.MaxHorizonYears))
	}
	return summary
}
