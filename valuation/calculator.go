package valuation

import (
	"errors"
	"fmt"
	"math"

	"stock-evaluation/models"
)

// ErrInsufficientHistory is returned when fewer positive EPS points remain than
// a growth rate needs.
var ErrInsufficientHistory = errors.New("insufficient EPS history")

// Calculator handles growth-adjusted fair value calculations
type Calculator struct {
	params models.GrahamParameters
}

// NewCalculator creates a new valuation calculator with default parameters
func NewCalculator() *Calculator {
	return &Calculator{
		params: models.GrahamParameters{
			BaseMultiple:       7.0, // P/E of a no-growth company
			GrowthMultiplier:   1.5,
			CheapThreshold:     0.8,
			ExpensiveThreshold: 1.2,
			MinEPSPoints:       2,
			QuartersPerYear:    4,
		},
	}
}

// EPSHistory divides each net income value by shares outstanding and keeps
// only strictly positive results, preserving order. Loss-making periods are
// excluded from growth computation.
func EPSHistory(netIncome []models.PeriodValue, sharesOutstanding float64) (models.EPSSeries, error) {
	if sharesOutstanding == 0 || math.IsNaN(sharesOutstanding) {
		return nil, fmt.Errorf("invalid shares outstanding: %v", sharesOutstanding)
	}

	series := make(models.EPSSeries, 0, len(netIncome))
	for _, pv := range netIncome {
		eps := pv.Value / sharesOutstanding
		if eps > 0 && !math.IsInf(eps, 0) {
			series = append(series, eps)
		}
	}
	return series, nil
}

// Periods returns the number of years the series spans for a cadence.
// Annual series span len-1 years. Quarterly series use len/4 without
// subtracting one, which overstates the span by a quarter.
func (c *Calculator) Periods(series models.EPSSeries, cadence models.Cadence) float64 {
	if cadence == models.CadenceQuarterly {
		return float64(len(series)) / c.params.QuartersPerYear
	}
	return float64(len(series) - 1)
}

// CAGR calculates the compound growth rate between the first and last points
func CAGR(start, end, periods float64) (float64, error) {
	if start <= 0 || end <= 0 {
		return 0, fmt.Errorf("CAGR requires positive endpoints, got %v and %v", start, end)
	}
	if periods <= 0 {
		return 0, fmt.Errorf("CAGR requires a positive span, got %v", periods)
	}
	return math.Pow(end/start, 1/periods) - 1, nil
}

// FairValue applies the adjusted Graham formula: EPS * (7 + 1.5 * g)
// where g is the growth rate in percent.
func (c *Calculator) FairValue(trailingEPS, growthRatePercent float64) float64 {
	return trailingEPS * (c.params.BaseMultiple + c.params.GrowthMultiplier*growthRatePercent)
}

// Classify compares the price to the fair value band. Both bounds are strict,
// so a price exactly on a bound is fair.
func (c *Calculator) Classify(price, fairValue float64) models.Classification {
	switch {
	case price < fairValue*c.params.CheapThreshold:
		return models.ClassificationCheap
	case price > fairValue*c.params.ExpensiveThreshold:
		return models.ClassificationExpensive
	default:
		return models.ClassificationFair
	}
}

// Evaluate computes the valuation result for one cadence from a net income line
func (c *Calculator) Evaluate(cadence models.Cadence, netIncome []models.PeriodValue, sharesOutstanding, trailingEPS, price float64) (*models.ValuationResult, error) {
	series, err := EPSHistory(netIncome, sharesOutstanding)
	if err != nil {
		return nil, err
	}

	if len(series) < c.params.MinEPSPoints {
		return nil, fmt.Errorf("%w: %d positive %s points", ErrInsufficientHistory, len(series), cadence)
	}

	periods := c.Periods(series, cadence)
	growth, err := CAGR(series.Start(), series.End(), periods)
	if err != nil {
		return nil, err
	}

	growthPercent := growth * 100
	fairValue := c.FairValue(trailingEPS, growthPercent)

	return &models.ValuationResult{
		Cadence:           cadence,
		GrowthRatePercent: growthPercent,
		FairValue:         fairValue,
		Classification:    c.Classify(price, fairValue),
		Points:            len(series),
		Periods:           periods,
	}, nil
}

// SetParameters allows customization of the formula parameters
func (c *Calculator) SetParameters(params models.GrahamParameters) {
	c.params = params
}

// GetParameters returns current formula parameters
func (c *Calculator) GetParameters() models.GrahamParameters {
	return c.params
}
