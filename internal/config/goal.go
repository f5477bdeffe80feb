package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/sip-forecast/pkg/constants"
)

const (
	GoalModeSIP  = "sip"
	GoalModeTime = "time"
)

// GoalConfig asks the solver for the monthly contribution (mode sip) or the
// number of years (mode time) needed to reach Target in today's money.
type GoalConfig struct {
	Mode   string  `yaml:"mode,omitempty" mapstructure:"mode"`
	Target float64 `yaml:"target" mapstructure:"target"`
}

// SolverConfig tunes the contribution bisection.
type SolverConfig struct {
	Tolerance     float64 `yaml:"tolerance,omitempty" mapstructure:"tolerance"`
	MaxIterations int     `yaml:"maxIterations,omitempty" mapstructure:"maxIterations"`
}

// CanonicalGoalMode returns the canonical identifier for a goal mode.
func CanonicalGoalMode(value string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch trimmed {
	case "", "sip", "contribution", "monthly":
		return GoalModeSIP
	case "time", "years", "horizon":
		return GoalModeTime
	default:
		return trimmed
	}
}

// Normalize applies defaults and canonical values before validation.
func (g *GoalConfig) Normalize() {
	if g == nil {
		return
	}
	g.Mode = CanonicalGoalMode(g.Mode)
}

// Validate returns an error when the goal cannot be solved.
func (g *GoalConfig) Validate() error {
	if g == nil {
		return fmt.Errorf("goal configuration cannot be nil")
	}

	g.Normalize()

	switch g.Mode {
	case GoalModeSIP, GoalModeTime:
		// supported modes
	default:
		return fmt.Errorf("goal mode %q is not supported", g.Mode)
	}
	if math.IsNaN(g.Target) || math.IsInf(g.Target, 0) || g.Target <= 0 {
		return fmt.Errorf("goal target must be a positive amount, got %g", g.Target)
	}
	return nil
}

// Normalize fills unset solver settings with the defaults.
func (s *SolverConfig) Normalize() {
	if s.Tolerance <= 0 || math.IsNaN(s.Tolerance) {
		s.Tolerance = constants.DefaultSolverTolerance
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = constants.DefaultSolverMaxIterations
	}
}

// Validate rejects settings that would make the search meaningless.
func (s SolverConfig) Validate() error {
	if s.Tolerance >= 1 {
		return fmt.Errorf("solver tolerance %g must be below 1", s.Tolerance)
	}
	if s.MaxIterations > 10000 {
		return fmt.Errorf("solver maxIterations %d is unreasonably large", s.MaxIterations)
	}
	return nil
}
