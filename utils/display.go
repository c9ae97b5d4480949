package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/shopspring/decimal"

	"stock-evaluation/models"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// Printer renders evaluation reports to a writer
type Printer struct {
	w          io.Writer
	showColors bool
}

// NewPrinter creates a printer; colors are only emitted when showColors is set
func NewPrinter(w io.Writer, showColors bool) *Printer {
	return &Printer{w: w, showColors: showColors}
}

// FormatMoney renders a value as dollars with two decimals
func FormatMoney(value float64) string {
	return "$" + fixed2(value)
}

// FormatPercent renders a percentage with two decimals
func FormatPercent(value float64) string {
	return fixed2(value) + "%"
}

// fixed2 rounds half away from zero; decimal cannot represent NaN or Inf
func fixed2(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Sprintf("%.2f", value)
	}
	return decimal.NewFromFloat(value).StringFixed(2)
}

// DisplayReport prints the price header and both cadence sections
func (p *Printer) DisplayReport(report *models.Report) {
	fmt.Fprintf(p.w, "\nTicker: %s\n", p.paint(ColorBold, report.Symbol))
	fmt.Fprintf(p.w, "Current Price: %s\n", FormatMoney(report.CurrentPrice))
	fmt.Fprintf(p.w, "EPS (Trailing): %s\n", FormatMoney(report.TrailingEPS))

	p.displaySection(models.CadenceAnnual, report.Annual, nil)
	p.displaySection(models.CadenceQuarterly, report.Quarterly, report.QuarterlyErr)
}

// displaySection prints one cadence, or its diagnostic when the branch failed
func (p *Printer) displaySection(cadence models.Cadence, result *models.ValuationResult, branchErr error) {
	fmt.Fprintf(p.w, "\n%s\n", p.paint(ColorCyan, fmt.Sprintf("--- Based on %s Data ---", cadence)))

	if result == nil {
		if branchErr != nil {
			p.DisplayDiagnostic(branchErr)
		}
		return
	}

	fmt.Fprintf(p.w, "Calculated %s EPS Growth Rate: %s\n", cadence, FormatPercent(result.GrowthRatePercent))
	fmt.Fprintf(p.w, "Calculated Fair Value (%s): %s\n", cadence, FormatMoney(result.FairValue))
	fmt.Fprintf(p.w, "The stock is considered **%s** compared to its fair value (%s).\n",
		p.paint(classificationColor(result.Classification), result.Classification.Label()), cadence)
}

// DisplayDiagnostic prints the user-facing message of an evaluation failure
func (p *Printer) DisplayDiagnostic(err error) {
	msg := err.Error()
	var diagnostic interface{ Message() string }
	if errors.As(err, &diagnostic) {
		msg = diagnostic.Message()
	}
	fmt.Fprintln(p.w, p.paint(ColorYellow, msg))
}

// DisplayJSON prints the report as indented JSON
func (p *Printer) DisplayJSON(report *models.Report) error {
	encoder := json.NewEncoder(p.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (p *Printer) paint(color, text string) string {
	if !p.showColors {
		return text
	}
	return color + text + ColorReset
}

func classificationColor(c models.Classification) string {
	switch c {
	case models.ClassificationCheap:
		return ColorGreen
	case models.ClassificationExpensive:
		return ColorRed
	default:
		return ColorYellow
	}
}

// IsTerminal checks if stdout is a terminal
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
