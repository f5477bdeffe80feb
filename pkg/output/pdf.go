package output

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/iwvelando/sip-forecast/internal/forecast"
)

const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - marginLeft - marginRight
)

// The core PDF fonts have no rupee glyph.
func pdfText(s string) string {
	return strings.ReplaceAll(s, "₹", "Rs. ")
}

// PDFReport renders one page section per scenario with its growth table.
func PDFReport(results []forecast.Forecast, grouping string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.SetTitle("SIP Forecast", false)

	if len(results) == 0 {
		pdf.AddPage()
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(contentWidth, 8, "No active scenarios.", "", 1, "L", false, 0, "")
	}
	for _, result := range results {
		addScenario(pdf, result, grouping)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func addScenario(pdf *fpdf.Fpdf, result forecast.Forecast, grouping string) {
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(contentWidth, 10, pdfText(result.Name), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(60, 60, 60)
	pdf.MultiCell(contentWidth, 5, pdfText(Describe(result.Params, grouping)), "", "L", false)
	if result.Goal != nil {
		pdf.MultiCell(contentWidth, 5, pdfText(fmt.Sprintf("Goal %s: %s (%s)",
			result.Goal.Field, result.Goal.ValueDisplay, result.Goal.Status)), "", "L", false)
	}
	for _, note := range result.Notes {
		pdf.MultiCell(contentWidth, 5, pdfText("Note: "+note), "", "L", false)
	}
	pdf.Ln(3)

	headers := []string{"Year", "Invested", "Returns", "Total Value"}
	if result.Result.InflationAdjusted {
		headers = append(headers, "Real Value")
	}
	widths := columnWidths(len(headers))

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(0, 51, 102)
	pdf.SetTextColor(255, 255, 255)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 7, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(30, 30, 30)
	for i, row := range result.Result.Series {
		if i%2 == 0 {
			pdf.SetFillColor(245, 248, 252)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		cells := []string{
			strconv.Itoa(row.Year),
			pdfAmount(row.CumulativeInvested, grouping),
			pdfAmount(row.CumulativeReturns, grouping),
			pdfAmount(row.TotalValue, grouping),
		}
		if result.Result.InflationAdjusted {
			cells = append(cells, pdfAmount(row.RealValue, grouping))
		}
		for j, cell := range cells {
			align := "R"
			if j == 0 {
				align = "C"
			}
			pdf.CellFormat(widths[j], 6, cell, "1", 0, align, true, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(contentWidth, 6, "Final value: "+pdfAmount(result.Result.FinalValue, grouping), "", 1, "L", false, 0, "")
}

func pdfAmount(value float64, grouping string) string {
	return pdfText(formatRupees(value, grouping))
}

func columnWidths(n int) []float64 {
	widths := make([]float64, n)
	widths[0] = 16
	rest := (contentWidth - widths[0]) / float64(n-1)
	for i := 1; i < n; i++ {
		widths[i] = rest
	}
	return widths
}
