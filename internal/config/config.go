// Package config defines the data structures of a scenarios file and the
// functions that load it.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/sip-forecast/pkg/constants"
	"github.com/iwvelando/sip-forecast/pkg/controls"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for sip-forecast.
type Configuration struct {
	Logging   LoggingConfig `yaml:"logging,omitempty" mapstructure:"logging"`
	Output    OutputConfig  `yaml:"output,omitempty" mapstructure:"output"`
	Controls  controls.Set  `yaml:"controls,omitempty" mapstructure:"controls"`
	Solver    SolverConfig  `yaml:"solver,omitempty" mapstructure:"solver"`
	Scenarios []Scenario    `yaml:"scenarios" mapstructure:"scenarios"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format   string `yaml:"format,omitempty" mapstructure:"format"`     // pretty, csv, json, pdf
	Grouping string `yaml:"grouping,omitempty" mapstructure:"grouping"` // indian, international
	File     string `yaml:"file,omitempty" mapstructure:"file"`         // optional destination, required for pdf
}

// Scenario is one set of calculator inputs. Rates are percentages.
type Scenario struct {
	Name                string          `yaml:"name" mapstructure:"name"`
	Active              bool            `yaml:"active" mapstructure:"active"`
	MonthlyContribution float64         `yaml:"monthlyContribution" mapstructure:"monthlyContribution"`
	LumpSum             float64         `yaml:"lumpSum,omitempty" mapstructure:"lumpSum"`
	AnnualReturnRate    float64         `yaml:"annualReturnRate" mapstructure:"annualReturnRate"`
	Years               int             `yaml:"years" mapstructure:"years"`
	StepUp              StepUpConfig    `yaml:"stepUp,omitempty" mapstructure:"stepUp"`
	Inflation           InflationConfig `yaml:"inflation,omitempty" mapstructure:"inflation"`
	Goal                *GoalConfig     `yaml:"goal,omitempty" mapstructure:"goal"`
}

// StepUpConfig describes the yearly contribution increase. Value is rupees in
// amount mode and a percentage in percentage mode.
type StepUpConfig struct {
	Mode  string  `yaml:"mode,omitempty" mapstructure:"mode"`
	Value float64 `yaml:"value,omitempty" mapstructure:"value"`
}

// InflationConfig enables the real-value discount at Rate percent a year.
type InflationConfig struct {
	Enabled bool    `yaml:"enabled" mapstructure:"enabled"`
	Rate    float64 `yaml:"rate,omitempty" mapstructure:"rate"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Environment variables prefixed with SIP_FORECAST_
// override scalar settings (e.g. SIP_FORECAST_OUTPUT_FORMAT=csv).
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML configuration from r, e.g. an
// uploaded file.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %w", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper knows about.
	for key, value := range map[string]any{
		"logging.level":        "",
		"logging.format":       "",
		"logging.outputFile":   "",
		"output.format":        "",
		"output.grouping":      "",
		"output.file":          "",
		"solver.tolerance":     0.0,
		"solver.maxIterations": 0,
	} {
		v.SetDefault(key, value)
	}
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	configuration.Controls = controls.Defaults().Merge(configuration.Controls)
	configuration.Solver.Normalize()
	return &configuration, nil
}

// ActiveScenarios returns the scenarios marked active, in file order.
func (c *Configuration) ActiveScenarios() []Scenario {
	var active []Scenario
	for _, scenario := range c.Scenarios {
		if scenario.Active {
			active = append(active, scenario)
		}
	}
	return active
}
