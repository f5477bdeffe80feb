// Package controls describes the bounded numeric inputs of the calculator and
// the rules applied when a value is typed, stepped or loaded from a URL.
package controls

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/sip-forecast/pkg/mathutil"
)

// Control names as used in configuration files.
const (
	SIP           = "sip"
	Lumpsum       = "lumpsum"
	StepUpRate    = "stepUpRate"
	StepUpAmount  = "stepUpAmount"
	Returns       = "returns"
	Period        = "period"
	InflationRate = "inflationRate"
	Target        = "target"
)

// Control is a numeric input with a range, a step and a default.
type Control struct {
	Min     float64 `yaml:"min" mapstructure:"min" json:"min"`
	Max     float64 `yaml:"max" mapstructure:"max" json:"max"`
	Step    float64 `yaml:"step" mapstructure:"step" json:"step"`
	Default float64 `yaml:"default" mapstructure:"default" json:"default"`
}

// Validate checks that the control describes a usable range.
func (c Control) Validate() error {
	if math.IsNaN(c.Min) || math.IsNaN(c.Max) || c.Min > c.Max {
		return fmt.Errorf("invalid range [%g, %g]", c.Min, c.Max)
	}
	if !(c.Step > 0) {
		return fmt.Errorf("step must be positive, got %g", c.Step)
	}
	if c.Default < c.Min || c.Default > c.Max {
		return fmt.Errorf("default %g outside [%g, %g]", c.Default, c.Min, c.Max)
	}
	return nil
}

// Clamp bounds value to [Min, Max].
func (c Control) Clamp(value float64) float64 {
	return mathutil.Clamp(value, c.Min, c.Max)
}

// Precision is the number of decimals implied by the step (0.1 -> 1, 500 -> 0).
func (c Control) Precision() int {
	if c.Step == math.Trunc(c.Step) {
		return 0
	}
	s := strconv.FormatFloat(c.Step, 'f', -1, 64)
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		return len(s) - idx - 1
	}
	return 0
}

// Snap applies the commit rule of a text field: round to the nearest multiple
// of the step, then clamp to the range. NaN snaps from 0.
func (c Control) Snap(value float64) float64 {
	if math.IsNaN(value) {
		value = 0
	}
	snapped := math.Round(value/c.Step) * c.Step
	return c.round(c.Clamp(snapped))
}

// Nudge moves value one step up (direction > 0) or down, clamped to the range.
func (c Control) Nudge(value float64, direction int) float64 {
	if math.IsNaN(value) {
		value = 0
	}
	if direction > 0 {
		value = math.Min(c.Max, value+c.Step)
	} else {
		value = math.Max(c.Min, value-c.Step)
	}
	return c.round(value)
}

// Format renders value at the control's precision.
func (c Control) Format(value float64) string {
	return strconv.FormatFloat(value, 'f', c.Precision(), 64)
}

// Parse reads a text value. ok is false for empty or malformed input.
func (c Control) Parse(text string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(value) {
		return 0, false
	}
	return value, true
}

// Load clamps a value coming from outside (URL, config) and rounds it to the
// control precision, without snapping to the step.
func (c Control) Load(value float64) float64 {
	return c.round(c.Clamp(value))
}

func (c Control) round(value float64) float64 {
	rounded, err := strconv.ParseFloat(c.Format(value), 64)
	if err != nil {
		return value
	}
	return rounded
}

// Set holds every control of the calculator.
type Set struct {
	SIP           Control `yaml:"sip" mapstructure:"sip" json:"sip"`
	Lumpsum       Control `yaml:"lumpsum" mapstructure:"lumpsum" json:"lumpsum"`
	StepUpRate    Control `yaml:"stepUpRate" mapstructure:"stepUpRate" json:"stepUpRate"`
	StepUpAmount  Control `yaml:"stepUpAmount" mapstructure:"stepUpAmount" json:"stepUpAmount"`
	Returns       Control `yaml:"returns" mapstructure:"returns" json:"returns"`
	Period        Control `yaml:"period" mapstructure:"period" json:"period"`
	InflationRate Control `yaml:"inflationRate" mapstructure:"inflationRate" json:"inflationRate"`
	Target        Control `yaml:"target" mapstructure:"target" json:"target"`
}

// Defaults returns the control ranges of the calculator page.
func Defaults() Set {
	return Set{
		SIP:           Control{Min: 500, Max: 1000000, Step: 500, Default: 10000},
		Lumpsum:       Control{Min: 1000, Max: 10000000, Step: 1000, Default: 100000},
		StepUpRate:    Control{Min: 0, Max: 50, Step: 1, Default: 10},
		StepUpAmount:  Control{Min: 0, Max: 50000, Step: 500, Default: 1000},
		Returns:       Control{Min: 1, Max: 30, Step: 0.1, Default: 12},
		Period:        Control{Min: 1, Max: 50, Step: 1, Default: 10},
		InflationRate: Control{Min: 0, Max: 15, Step: 0.1, Default: 6},
		Target:        Control{Min: 100000, Max: 1000000000, Step: 10000, Default: 10000000},
	}
}

// Merge overlays every non-zero control of override onto s.
func (s Set) Merge(override Set) Set {
	pick := func(base, o Control) Control {
		if o == (Control{}) {
			return base
		}
		return o
	}
	s.SIP = pick(s.SIP, override.SIP)
	s.Lumpsum = pick(s.Lumpsum, override.Lumpsum)
	s.StepUpRate = pick(s.StepUpRate, override.StepUpRate)
	s.StepUpAmount = pick(s.StepUpAmount, override.StepUpAmount)
	s.Returns = pick(s.Returns, override.Returns)
	s.Period = pick(s.Period, override.Period)
	s.InflationRate = pick(s.InflationRate, override.InflationRate)
	s.Target = pick(s.Target, override.Target)
	return s
}

// Lookup returns a control by its configuration name.
func (s Set) Lookup(name string) (Control, bool) {
	switch name {
	case SIP:
		return s.SIP, true
	case Lumpsum:
		return s.Lumpsum, true
	case StepUpRate:
		return s.StepUpRate, true
	case StepUpAmount:
		return s.StepUpAmount, true
	case Returns:
		return s.Returns, true
	case Period:
		return s.Period, true
	case InflationRate:
		return s.InflationRate, true
	case Target:
		return s.Target, true
	}
	return Control{}, false
}

// Validate checks every control and names the first broken one.
func (s Set) Validate() error {
	for _, name := range []string{SIP, Lumpsum, StepUpRate, StepUpAmount, Returns, Period, InflationRate, Target} {
		c, _ := s.Lookup(name)
		if err := c.Validate(); err != nil {
			return fmt.Errorf("control %s: %w", name, err)
		}
	}
	return nil
}
