// Package output provides utilities for formatting and displaying forecast results.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/iwvelando/sip-forecast/internal/forecast"
	"github.com/iwvelando/sip-forecast/pkg/constants"
	"github.com/iwvelando/sip-forecast/pkg/finance"
	"github.com/iwvelando/sip-forecast/pkg/format"
	"github.com/iwvelando/sip-forecast/pkg/mathutil"
)

// Write renders results in the named output format.
func Write(w io.Writer, outputFormat string, results []forecast.Forecast, grouping string) error {
	switch outputFormat {
	case constants.OutputFormatPretty, "":
		return PrettyFormat(w, results, grouping)
	case constants.OutputFormatCSV:
		return CsvFormat(w, results)
	case constants.OutputFormatJSON:
		return JSONFormat(w, results)
	case constants.OutputFormatPDF:
		data, err := PDFReport(results, grouping)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, results []forecast.Forecast, grouping string) error {
	for i, result := range results {
		fmt.Fprintf(w, "--- Results for scenario %s ---\n", result.Name)
		fmt.Fprintln(w, Describe(result.Params, grouping))
		if result.Goal != nil {
			fmt.Fprintf(w, "Goal: %s for %s -> %s (%s)\n",
				result.Goal.Field, format.RupeesWith(result.Goal.Target, grouping), result.Goal.ValueDisplay, result.Goal.Status)
		}
		for _, note := range result.Notes {
			fmt.Fprintf(w, "Note: %s\n", note)
		}

		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
		header := "Year\t Invested\t Returns\t Total Value\t"
		if result.Result.InflationAdjusted {
			header += " Real Value\t"
		}
		fmt.Fprintln(tw, header)
		for _, row := range result.Result.Series {
			line := fmt.Sprintf("%d\t %s\t %s\t %s\t", row.Year,
				format.RupeesWith(row.CumulativeInvested, grouping),
				format.RupeesWith(row.CumulativeReturns, grouping),
				format.RupeesWith(row.TotalValue, grouping))
			if result.Result.InflationAdjusted {
				line += " " + format.RupeesWith(row.RealValue, grouping) + "\t"
			}
			fmt.Fprintln(tw, line)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(w, "Invested %s, returns %s, final value %s",
			format.RupeesWith(result.Result.TotalInvested, grouping),
			format.RupeesWith(result.Result.TotalReturns, grouping),
			format.RupeesWith(result.Result.FinalValue, grouping))
		if result.Result.InflationAdjusted {
			fmt.Fprintf(w, " (%s in today's money)", format.RupeesWith(result.Result.RealValue, grouping))
		}
		fmt.Fprintln(w)
		if i < len(results)-1 {
			fmt.Fprintln(w)
		}
	}
	return nil
}

// Describe summarises the inputs of a projection on one line.
func Describe(params finance.ProjectionParams, grouping string) string {
	parts := []string{
		"Monthly SIP: " + format.RupeesWith(params.MonthlyContribution, grouping),
		"Return: " + format.Percent(mathutil.FractionToPercent(params.AnnualReturnRate)),
		"Years: " + strconv.Itoa(params.HorizonYears),
	}
	if params.InitialLumpSum > 0 {
		parts = append(parts, "Lump sum: "+format.RupeesWith(params.InitialLumpSum, grouping))
	}
	switch {
	case params.StepUp.Value <= 0:
		parts = append(parts, "Step-up: none")
	case params.StepUp.Mode == finance.StepUpPercentage:
		parts = append(parts, "Step-up: "+format.Percent(mathutil.FractionToPercent(params.StepUp.Value))+" a year")
	default:
		parts = append(parts, "Step-up: "+format.RupeesWith(params.StepUp.Value, grouping)+" a year")
	}
	if params.Inflation.Enabled {
		parts = append(parts, "Inflation: "+format.Percent(mathutil.FractionToPercent(params.Inflation.AnnualRate)))
	} else {
		parts = append(parts, "Inflation: off")
	}
	return strings.Join(parts, " | ")
}

// CsvFormat outputs in comma-separated value format, one row per scenario year.
func CsvFormat(w io.Writer, results []forecast.Forecast) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"scenario", "year", "invested", "returns", "total", "real"}); err != nil {
		return err
	}
	for _, result := range results {
		for _, row := range result.Result.Series {
			record := []string{
				result.Name,
				strconv.Itoa(row.Year),
				money(row.CumulativeInvested),
				money(row.CumulativeReturns),
				money(row.TotalValue),
				money(row.RealValue),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// CsvString renders CsvFormat into a string.
func CsvString(results []forecast.Forecast) (string, error) {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, results); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// JSONFormat writes results as indented JSON.
func JSONFormat(w io.Writer, results []forecast.Forecast) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if results == nil {
		results = []forecast.Forecast{}
	}
	return encoder.Encode(results)
}

func formatRupees(value float64, grouping string) string {
	return format.RupeesWith(value, grouping)
}

func money(value float64) string {
	return strconv.FormatFloat(mathutil.Round(value), 'f', 2, 64)
}
