// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/sip-forecast/pkg/constants"
)

// SupportedOutputFormats lists the accepted output formats.
var SupportedOutputFormats = []string{
	constants.OutputFormatPretty,
	constants.OutputFormatCSV,
	constants.OutputFormatJSON,
	constants.OutputFormatPDF,
}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	for _, supported := range SupportedOutputFormats {
		if format == supported {
			return nil
		}
	}
	return fmt.Errorf("expected output format of %s, got %s",
		strings.Join(SupportedOutputFormats, ", "), format)
}

// ValidateGrouping checks a digit grouping style. Empty selects the default.
func ValidateGrouping(grouping string) error {
	switch grouping {
	case "", constants.GroupingIndian, constants.GroupingInternational:
		return nil
	}
	return fmt.Errorf("expected grouping of %s or %s, got %s",
		constants.GroupingIndian, constants.GroupingInternational, grouping)
}
