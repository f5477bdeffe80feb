// Package constants provides shared constants for the sip-forecast application.
package constants

import "time"

// Projection constants
const (
	// MonthsPerYear is the number of compounding periods simulated per year
	MonthsPerYear = 12

	// MaxHorizonYears caps every projection and the horizon solver
	MaxHorizonYears = 100

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for currency comparisons (1 paisa)
	CurrencyTolerance = 0.01
)

// Goal solver defaults
const (
	// DefaultSolverTolerance is the relative tolerance on the projected value
	DefaultSolverTolerance = 1e-9

	// DefaultSolverMaxIterations bounds the bisection search
	DefaultSolverMaxIterations = 200
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputFormatPDF is the PDF report format
	OutputFormatPDF = "pdf"
)

// Number grouping styles for currency output
const (
	// GroupingIndian groups digits in lakhs and crores (12,34,567)
	GroupingIndian = "indian"

	// GroupingInternational groups digits in thousands (1,234,567)
	GroupingInternational = "international"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "SIP_FORECAST"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the web UI
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultDebounce is the trailing window used to collapse bursts of recalculations
	DefaultDebounce = 200 * time.Millisecond
)

// ShareTitle is the promotional text attached to social share links.
const ShareTitle = "Check out this awesome SIP Calculator with Inflation!"
