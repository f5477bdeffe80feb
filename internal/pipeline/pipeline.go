// Package pipeline runs one recalculation of the calculator as three named
// stages: compute (projection and goal solving), render (charts) and persist
// (the canonical query string). Each stage can be called on its own.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/sip-forecast/internal/optimizer"
	"github.com/iwvelando/sip-forecast/pkg/chart"
	"github.com/iwvelando/sip-forecast/pkg/controls"
	"github.com/iwvelando/sip-forecast/pkg/finance"
	"github.com/iwvelando/sip-forecast/pkg/optimization"
	"github.com/iwvelando/sip-forecast/pkg/urlstate"
	"go.uber.org/zap"
)

// Stage names a pipeline step.
type Stage string

const (
	StageCompute Stage = "compute"
	StageRender  Stage = "render"
	StagePersist Stage = "persist"
)

// Snapshot is the output of the compute stage.
type Snapshot struct {
	State    urlstate.State           `json:"state"`
	Params   finance.ProjectionParams `json:"params"`
	Result   finance.ProjectionResult `json:"result"`
	Goal     *optimization.Summary    `json:"goal,omitempty"`
	Donut    chart.Config             `json:"donut"`
	Line     chart.Config             `json:"line"`
	Query    string                   `json:"query"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// Persister stores the canonical state of a snapshot, e.g. in an address bar
// or a file.
type Persister interface {
	Persist(ctx context.Context, snap Snapshot) error
}

// PersistFunc adapts a function to Persister.
type PersistFunc func(ctx context.Context, snap Snapshot) error

// Persist calls f.
func (f PersistFunc) Persist(ctx context.Context, snap Snapshot) error {
	return f(ctx, snap)
}

// Observer is notified of every stage run; metrics hook in here.
type Observer func(stage Stage, elapsed time.Duration, err error)

// Pipeline wires the stages together.
type Pipeline struct {
	logger    *zap.Logger
	controls  controls.Set
	solver    *optimizer.Solver
	donut     *chart.Holder
	line      *chart.Holder
	persister Persister
	observer  Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCharts sets the renderer holders used by the render stage. Either may
// be nil, in which case that chart is skipped.
func WithCharts(donut, line *chart.Holder) Option {
	return func(p *Pipeline) {
		p.donut = donut
		p.line = line
	}
}

// WithPersister sets the persist stage sink.
func WithPersister(persister Persister) Option {
	return func(p *Pipeline) { p.persister = persister }
}

// WithObserver registers a stage observer.
func WithObserver(observer Observer) Option {
	return func(p *Pipeline) { p.observer = observer }
}

// New creates a pipeline.
func New(logger *zap.Logger, set controls.Set, solver *optimizer.Solver, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if solver == nil {
		solver = optimizer.NewSolver(logger)
	}
	p := &Pipeline{logger: logger, controls: set, solver: solver}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Controls returns the control set used to encode state.
func (p *Pipeline) Controls() controls.Set {
	return p.controls
}

// Compute projects the state and, in goal mode, solves for the missing input.
// The returned projection reflects the solved value.
func (p *Pipeline) Compute(state urlstate.State) Snapshot {
	start := time.Now()
	params := state.Params()
	snap := Snapshot{State: state}

	if err := params.Validate(); err != nil {
		for _, e := range unwrapJoined(err) {
			snap.Warnings = append(snap.Warnings, e.Error())
		}
	}

	if state.IsGoal() {
		goal := optimizer.Goal{Name: string(state.GoalSubMode), Mode: string(state.GoalSubMode), Target: state.Target}
		solved, summary := p.solver.SolveGoal(params, goal)
		params = solved
		snap.Goal = &summary
	}

	snap.Params = params
	snap.Result = finance.Project(params)
	snap.Donut = chart.Donut(snap.Result)
	snap.Line = chart.Line(snap.Result)
	snap.Query = urlstate.Encode(state, p.controls).Encode()

	p.observe(StageCompute, start, nil)
	p.logger.Debug("computed projection",
		zap.String("op", "pipeline.Compute"),
		zap.String("query", snap.Query),
		zap.Float64("finalValue", snap.Result.FinalValue),
	)
	return snap
}

// Render pushes the snapshot's charts to the configured renderers.
func (p *Pipeline) Render(snap Snapshot) error {
	start := time.Now()
	var errs []error
	if p.donut != nil {
		if err := p.donut.Show(snap.Donut); err != nil {
			errs = append(errs, fmt.Errorf("donut: %w", err))
		}
	}
	if p.line != nil {
		if err := p.line.Show(snap.Line); err != nil {
			errs = append(errs, fmt.Errorf("line: %w", err))
		}
	}
	err := errors.Join(errs...)
	p.observe(StageRender, start, err)
	return err
}

// Persist hands the snapshot to the persister, if any.
func (p *Pipeline) Persist(ctx context.Context, snap Snapshot) error {
	if p.persister == nil {
		return nil
	}
	start := time.Now()
	err := p.persister.Persist(ctx, snap)
	if err != nil {
		err = fmt.Errorf("persist: %w", err)
	}
	p.observe(StagePersist, start, err)
	return err
}

// Run executes compute, render and persist in order. Render failures are
// logged and do not stop persistence.
func (p *Pipeline) Run(ctx context.Context, state urlstate.State) (Snapshot, error) {
	snap := p.Compute(state)
	if err := p.Render(snap); err != nil {
		p.logger.Warn("chart render skipped",
			zap.String("op", "pipeline.Run"),
			zap.Error(err),
		)
	}
	if err := ctx.Err(); err != nil {
		return snap, err
	}
	return snap, p.Persist(ctx, snap)
}

func (p *Pipeline) observe(stage Stage, start time.Time, err error) {
	if p.observer != nil {
		p.observer(stage, time.Since(start), err)
	}
}

func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
