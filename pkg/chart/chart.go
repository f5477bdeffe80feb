// Package chart maps projection results onto the {labels, datasets} shape a
// Chart.js style renderer consumes, and manages renderer instances.
package chart

import (
	"math"

	"github.com/iwvelando/sip-forecast/pkg/finance"
)

// Chart types.
const (
	TypeDoughnut = "doughnut"
	TypeLine     = "line"
)

// Series colours.
const (
	ColorInvested = "#DC2626"
	ColorReturns  = "#16A34A"
	ColorNominal  = "#2563EB"
	ColorReal     = "#16A34A"
)

// Dataset labels.
const (
	LabelInvested = "Total Invested"
	LabelReturns  = "Total Returns"
	LabelNominal  = "Future Value (Nominal)"
	LabelReal     = "Real Value (Today's Worth)"
)

// Dataset is one series. Donut datasets colour each slice through
// BackgroundColors, line datasets use BorderColor.
type Dataset struct {
	Label            string    `json:"label,omitempty"`
	Data             []float64 `json:"data"`
	BackgroundColors []string  `json:"backgroundColor,omitempty"`
	BorderColor      string    `json:"borderColor,omitempty"`
	Fill             bool      `json:"fill"`
	Tension          float64   `json:"tension,omitempty"`
	Hidden           bool      `json:"hidden,omitempty"`
}

// Data is the renderer input.
type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Config is a complete chart description.
type Config struct {
	Type string `json:"type"`
	Data Data   `json:"data"`
}

// Donut splits the final value into invested capital and returns. Negative
// returns are shown as an empty slice.
func Donut(result finance.ProjectionResult) Config {
	return Config{
		Type: TypeDoughnut,
		Data: Data{
			Labels: []string{LabelInvested, LabelReturns},
			Datasets: []Dataset{{
				Data:             []float64{result.TotalInvested, math.Max(0, result.FinalValue-result.TotalInvested)},
				BackgroundColors: []string{ColorInvested, ColorReturns},
			}},
		},
	}
}

// Line plots invested, nominal and real value per year. The real value series
// is hidden when the projection was not inflation adjusted.
func Line(result finance.ProjectionResult) Config {
	n := len(result.Series)
	labels := make([]string, n)
	invested := make([]float64, n)
	nominal := make([]float64, n)
	realValues := make([]float64, n)
	for i, row := range result.Series {
		labels[i] = yearLabel(row.Year)
		invested[i] = row.CumulativeInvested
		nominal[i] = row.TotalValue
		realValues[i] = row.RealValue
	}

	return Config{
		Type: TypeLine,
		Data: Data{
			Labels: labels,
			Datasets: []Dataset{
				{Label: LabelInvested, Data: invested, BorderColor: ColorInvested, Tension: 0.1},
				{Label: LabelNominal, Data: nominal, BorderColor: ColorNominal, Tension: 0.1},
				{Label: LabelReal, Data: realValues, BorderColor: ColorReal, Tension: 0.1, Hidden: !result.InflationAdjusted},
			},
		},
	}
}
