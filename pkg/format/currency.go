// Package format renders money for people. Values reaching this package are
// clamped for display: NaN and infinities print as zero.
package format

import (
	"math"
	"strings"

	"github.com/iwvelando/sip-forecast/pkg/constants"
	"github.com/iwvelando/sip-forecast/pkg/mathutil"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const rupeeSymbol = "₹"

// Rupees returns a whole-rupee string with Indian digit grouping (e.g., "₹23,00,387").
func Rupees(amount float64) string {
	return withSymbol(rupeeSymbol, amount, constants.GroupingIndian)
}

// RupeesWith formats using the named grouping style (indian or international).
func RupeesWith(amount float64, grouping string) string {
	return withSymbol(rupeeSymbol, amount, grouping)
}

// Amount is Rupees without the currency symbol, for CSV and PDF output.
func Amount(amount float64, grouping string) string {
	return withSymbol("", amount, grouping)
}

func withSymbol(symbol string, amount float64, grouping string) string {
	whole := wholeUnits(amount)
	sign := ""
	if whole.IsNegative() {
		sign = "-"
		whole = whole.Abs()
	}

	var digits string
	if grouping == constants.GroupingInternational {
		digits = groupInternational(whole)
	} else {
		digits = groupIndian(whole.String())
	}
	return sign + symbol + digits
}

// wholeUnits rounds half away from zero to whole rupees.
func wholeUnits(amount float64) decimal.Decimal {
	rounded := decimal.NewFromFloat(mathutil.Finite(amount)).Round(0)
	if rounded.IsZero() {
		return decimal.Zero
	}
	return rounded
}

// groupIndian groups the last three digits, then pairs: 1,23,45,678.
func groupIndian(intPart string) string {
	if len(intPart) <= 3 {
		return intPart
	}
	head := intPart[:len(intPart)-3]
	tail := intPart[len(intPart)-3:]

	var builder strings.Builder
	for i, digit := range head {
		if i > 0 && (len(head)-i)%2 == 0 {
			builder.WriteByte(',')
		}
		builder.WriteRune(digit)
	}
	return builder.String() + "," + tail
}

var internationalPrinter = message.NewPrinter(language.English)

func groupInternational(whole decimal.Decimal) string {
	if whole.LessThan(decimal.NewFromInt(math.MaxInt64)) {
		return internationalPrinter.Sprintf("%d", whole.IntPart())
	}
	// Beyond int64 fall back to manual thousands grouping.
	digits := whole.String()
	var builder strings.Builder
	for i, digit := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			builder.WriteByte(',')
		}
		builder.WriteRune(digit)
	}
	return builder.String()
}

// Compact abbreviates large amounts for chart axes: ₹950, ₹12K, ₹4.5L, ₹2.3Cr.
func Compact(amount float64) string {
	value := mathutil.Finite(amount)
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}

	var scaled decimal.Decimal
	var suffix string
	switch {
	case value >= 1e7:
		scaled, suffix = decimal.NewFromFloat(value/1e7), "Cr"
	case value >= 1e5:
		scaled, suffix = decimal.NewFromFloat(value/1e5), "L"
	case value >= 1e3:
		scaled, suffix = decimal.NewFromFloat(value/1e3), "K"
	default:
		return sign + rupeeSymbol + decimal.NewFromFloat(value).Round(0).String()
	}
	return sign + rupeeSymbol + scaled.Round(1).String() + suffix
}

// Percent renders a percentage value such as 12 or 6.5 as "12%" / "6.5%".
func Percent(value float64) string {
	return decimal.NewFromFloat(mathutil.Finite(value)).Round(2).String() + "%"
}

// ParseGrouping maps an Accept-Language style tag or explicit style name to a
// grouping style. Unknown values use Indian grouping.
func ParseGrouping(value string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch trimmed {
	case constants.GroupingInternational, constants.GroupingIndian:
		return trimmed
	case "":
		return constants.GroupingIndian
	}

	tags, _, err := language.ParseAcceptLanguage(value)
	if err != nil || len(tags) == 0 {
		return constants.GroupingIndian
	}
	matcher := language.NewMatcher([]language.Tag{language.MustParse("en-IN"), language.English})
	_, index, _ := matcher.Match(tags...)
	if index == 1 {
		return constants.GroupingInternational
	}
	return constants.GroupingIndian
}
