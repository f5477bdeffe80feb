// Package urlstate round-trips calculator state through URL query parameters.
//
// Decoding is forgiving: missing parameters keep the current value, numeric
// values are clamped to their control's range and malformed numbers are
// ignored field by field.
package urlstate

import (
	"net/url"
	"strings"

	"github.com/iwvelando/sip-forecast/pkg/controls"
	"github.com/iwvelando/sip-forecast/pkg/finance"
	"github.com/iwvelando/sip-forecast/pkg/mathutil"
)

// Query parameter names.
const (
	ParamSIP           = "sip"
	ParamLumpsum       = "lumpsum"
	ParamLumpsumOn     = "lumpsumOn"
	ParamStepUpMode    = "stepUpMode"
	ParamStepUp        = "stepUp"
	ParamReturns       = "returns"
	ParamPeriod        = "period"
	ParamInflation     = "inflation"
	ParamInflationRate = "inflationRate"
	ParamMode          = "mode"
	ParamGoalSubMode   = "goalSubMode"
	ParamTarget        = "target"
	// ParamNudge carries a stepper press such as "sip:up" or "returns:down".
	ParamNudge = "nudge"
)

// Mode selects between projecting wealth and solving for a goal.
type Mode string

const (
	ModeWealth Mode = "wealth"
	ModeGoal   Mode = "goal"
)

// GoalSubMode selects which quantity the goal solver looks for.
type GoalSubMode string

const (
	GoalSIP  GoalSubMode = "sip"
	GoalTime GoalSubMode = "time"
)

const (
	stepUpModeAmount = "amount"
	stepUpModeRate   = "rate"
)

// State is the calculator's complete input state in display units: amounts in
// rupees, rates in percent, period in years.
type State struct {
	SIP           float64            `json:"sip"`
	Lumpsum       float64            `json:"lumpsum"`
	LumpsumOn     bool               `json:"lumpsumOn"`
	StepUpMode    finance.StepUpMode `json:"stepUpMode"`
	StepUpAmount  float64            `json:"stepUpAmount"`
	StepUpRate    float64            `json:"stepUpRate"`
	Returns       float64            `json:"returns"`
	Period        float64            `json:"period"`
	Inflation     bool               `json:"inflation"`
	InflationRate float64            `json:"inflationRate"`
	Mode          Mode               `json:"mode"`
	GoalSubMode   GoalSubMode        `json:"goalSubMode"`
	Target        float64            `json:"target"`
}

// Default returns the state of a freshly loaded page.
func Default(set controls.Set) State {
	return State{
		SIP:           set.SIP.Default,
		Lumpsum:       set.Lumpsum.Default,
		StepUpMode:    finance.StepUpAmount,
		StepUpAmount:  set.StepUpAmount.Default,
		StepUpRate:    set.StepUpRate.Default,
		Returns:       set.Returns.Default,
		Period:        set.Period.Default,
		Inflation:     false,
		InflationRate: set.InflationRate.Default,
		Mode:          ModeWealth,
		GoalSubMode:   GoalSIP,
		Target:        set.Target.Default,
	}
}

// StepUpValue returns the value of the active step-up control.
func (s State) StepUpValue() float64 {
	if s.StepUpMode == finance.StepUpPercentage {
		return s.StepUpRate
	}
	return s.StepUpAmount
}

// Params converts display units into engine params.
func (s State) Params() finance.ProjectionParams {
	params := finance.ProjectionParams{
		MonthlyContribution: s.SIP,
		AnnualReturnRate:    mathutil.PercentToFraction(s.Returns),
		HorizonYears:        int(s.Period),
		StepUp:              finance.StepUp{Mode: s.StepUpMode, Value: s.StepUpAmount},
		Inflation: finance.Inflation{
			Enabled: s.Inflation,
		},
	}
	if s.LumpsumOn {
		params.InitialLumpSum = s.Lumpsum
	}
	if s.StepUpMode == finance.StepUpPercentage {
		params.StepUp.Value = mathutil.PercentToFraction(s.StepUpRate)
	}
	if s.Inflation {
		params.Inflation.AnnualRate = mathutil.PercentToFraction(s.InflationRate)
	}
	return params
}

// IsGoal reports whether the state asks for goal solving.
func (s State) IsGoal() bool {
	return s.Mode == ModeGoal
}

// Decode applies query parameters on top of base.
func Decode(values url.Values, set controls.Set, base State) State {
	state := base
	load := func(param string, control controls.Control, dst *float64) {
		if !values.Has(param) {
			return
		}
		value, ok := control.Parse(values.Get(param))
		if !ok {
			return
		}
		*dst = control.Load(value)
	}

	load(ParamSIP, set.SIP, &state.SIP)
	load(ParamReturns, set.Returns, &state.Returns)
	load(ParamPeriod, set.Period, &state.Period)

	if values.Get(ParamLumpsumOn) == "true" {
		state.LumpsumOn = true
		load(ParamLumpsum, set.Lumpsum, &state.Lumpsum)
	} else {
		state.LumpsumOn = false
	}

	switch values.Get(ParamStepUpMode) {
	case stepUpModeRate:
		state.StepUpMode = finance.StepUpPercentage
		load(ParamStepUp, set.StepUpRate, &state.StepUpRate)
	case stepUpModeAmount:
		state.StepUpMode = finance.StepUpAmount
		load(ParamStepUp, set.StepUpAmount, &state.StepUpAmount)
	}

	switch values.Get(ParamInflation) {
	case "true":
		state.Inflation = true
		load(ParamInflationRate, set.InflationRate, &state.InflationRate)
	case "false":
		state.Inflation = false
	}

	switch Mode(values.Get(ParamMode)) {
	case ModeGoal:
		state.Mode = ModeGoal
	case ModeWealth:
		state.Mode = ModeWealth
	}
	switch GoalSubMode(values.Get(ParamGoalSubMode)) {
	case GoalSIP:
		state.GoalSubMode = GoalSIP
	case GoalTime:
		state.GoalSubMode = GoalTime
	}
	load(ParamTarget, set.Target, &state.Target)

	return state
}

// Encode renders the state the way the page writes it to the address bar.
func Encode(state State, set controls.Set) url.Values {
	values := url.Values{}
	values.Set(ParamSIP, set.SIP.Format(state.SIP))
	values.Set(ParamPeriod, set.Period.Format(state.Period))

	if state.LumpsumOn {
		values.Set(ParamLumpsumOn, "true")
		values.Set(ParamLumpsum, set.Lumpsum.Format(state.Lumpsum))
	} else {
		values.Set(ParamLumpsumOn, "false")
	}

	if state.StepUpMode == finance.StepUpPercentage {
		values.Set(ParamStepUpMode, stepUpModeRate)
		values.Set(ParamStepUp, set.StepUpRate.Format(state.StepUpRate))
	} else {
		values.Set(ParamStepUpMode, stepUpModeAmount)
		values.Set(ParamStepUp, set.StepUpAmount.Format(state.StepUpAmount))
	}

	values.Set(ParamReturns, set.Returns.Format(state.Returns))

	if state.Inflation {
		values.Set(ParamInflation, "true")
		values.Set(ParamInflationRate, set.InflationRate.Format(state.InflationRate))
	} else {
		values.Set(ParamInflation, "false")
	}

	if state.IsGoal() {
		values.Set(ParamMode, string(ModeGoal))
		values.Set(ParamGoalSubMode, string(state.GoalSubMode))
		values.Set(ParamTarget, set.Target.Format(state.Target))
	}
	return values
}

// FromParams builds a state from engine params, e.g. a configured scenario.
// Values are kept as given; callers that need range enforcement decode the
// encoded query instead.
func FromParams(params finance.ProjectionParams, base State) State {
	state := base
	state.SIP = params.MonthlyContribution
	state.LumpsumOn = params.InitialLumpSum > 0
	if state.LumpsumOn {
		state.Lumpsum = params.InitialLumpSum
	}
	state.Returns = mathutil.FractionToPercent(params.AnnualReturnRate)
	state.Period = float64(params.HorizonYears)
	state.StepUpMode = params.StepUp.Mode
	if params.StepUp.Mode == finance.StepUpPercentage {
		state.StepUpRate = mathutil.FractionToPercent(params.StepUp.Value)
	} else {
		state.StepUpAmount = params.StepUp.Value
	}
	state.Inflation = params.Inflation.Enabled
	if params.Inflation.Enabled {
		state.InflationRate = mathutil.FractionToPercent(params.Inflation.AnnualRate)
	}
	return state
}


// field returns the control and value a numeric parameter is bound to. The
// step-up parameter follows the active step-up mode.
func (s *State) field(param string, set controls.Set) (controls.Control, *float64, bool) {
	switch param {
	case ParamSIP:
		return set.SIP, &s.SIP, true
	case ParamLumpsum:
		return set.Lumpsum, &s.Lumpsum, true
	case ParamStepUp:
		if s.StepUpMode == finance.StepUpPercentage {
			return set.StepUpRate, &s.StepUpRate, true
		}
		return set.StepUpAmount, &s.StepUpAmount, true
	case ParamReturns:
		return set.Returns, &s.Returns, true
	case ParamPeriod:
		return set.Period, &s.Period, true
	case ParamInflationRate:
		return set.InflationRate, &s.InflationRate, true
	case ParamTarget:
		return set.Target, &s.Target, true
	}
	return controls.Control{}, nil, false
}

// Nudge applies a stepper press of the form "<param>:up" or "<param>:down",
// moving the field one step within its range. ok is false for anything else.
func Nudge(state State, set controls.Set, press string) (State, bool) {
	param, dir, found := strings.Cut(press, ":")
	if !found {
		return state, false
	}
	var direction int
	switch dir {
	case "up":
		direction = 1
	case "down":
		direction = -1
	default:
		return state, false
	}
	control, value, ok := state.field(param, set)
	if !ok {
		return state, false
	}
	*value = control.Nudge(*value, direction)
	return state, true
}
