package models

import (
	"sort"
	"time"
)

// Quote represents one daily trading session for a ticker
type Quote struct {
	Symbol string    `json:"symbol"`
	Close  float64   `json:"close"`
	Time   time.Time `json:"time"`
}

// Profile holds the company profile figures the valuation needs.
// A nil field means the provider did not report it.
type Profile struct {
	TrailingEPS       *float64 `json:"trailing_eps,omitempty"`
	SharesOutstanding *float64 `json:"shares_outstanding,omitempty"`
}

// Cadence is the reporting period of a financial statement
type Cadence string

const (
	CadenceAnnual    Cadence = "Annual"
	CadenceQuarterly Cadence = "Quarterly"
)

// LineNetIncome is the statement line item used for EPS history
const LineNetIncome = "Net Income"

// PeriodValue is a single reported value of a line item
type PeriodValue struct {
	PeriodEnd time.Time `json:"period_end"`
	Value     float64   `json:"value"`
}

// FinancialStatement represents statement line items indexed by reporting period
type FinancialStatement struct {
	Cadence Cadence                  `json:"cadence"`
	Items   map[string][]PeriodValue `json:"items"`
}

// NewFinancialStatement creates an empty statement for the given cadence
func NewFinancialStatement(cadence Cadence) *FinancialStatement {
	return &FinancialStatement{
		Cadence: cadence,
		Items:   make(map[string][]PeriodValue),
	}
}

// Add appends a value for a line item
func (fs *FinancialStatement) Add(item string, periodEnd time.Time, value float64) {
	fs.Items[item] = append(fs.Items[item], PeriodValue{PeriodEnd: periodEnd, Value: value})
}

// Empty reports whether the statement has no values at all
func (fs *FinancialStatement) Empty() bool {
	if fs == nil {
		return true
	}
	for _, values := range fs.Items {
		if len(values) > 0 {
			return false
		}
	}
	return true
}

// Line returns the values of a line item, oldest first
func (fs *FinancialStatement) Line(item string) ([]PeriodValue, bool) {
	values, ok := fs.Items[item]
	if !ok || len(values) == 0 {
		return nil, false
	}
	sorted := make([]PeriodValue, len(values))
	copy(sorted, values)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PeriodEnd.Before(sorted[j].PeriodEnd)
	})
	return sorted, true
}

// EPSSeries is a chronological sequence of strictly positive per-period EPS values
type EPSSeries []float64

// Start returns the oldest value
func (s EPSSeries) Start() float64 { return s[0] }

// End returns the newest value
func (s EPSSeries) End() float64 { return s[len(s)-1] }

// Classification is the outcome of comparing price to fair value
type Classification string

const (
	ClassificationCheap     Classification = "CHEAP"
	ClassificationExpensive Classification = "EXPENSIVE"
	ClassificationFair      Classification = "FAIR"
)

// Label returns the wording used in console reports
func (c Classification) Label() string {
	if c == ClassificationFair {
		return "FAIRLY VALUED"
	}
	return string(c)
}

// ValuationResult represents the growth-adjusted valuation for one cadence
type ValuationResult struct {
	Cadence           Cadence        `json:"cadence"`
	GrowthRatePercent float64        `json:"growth_rate_percent"`
	FairValue         float64        `json:"fair_value"`
	Classification    Classification `json:"classification"`
	Points            int            `json:"points"`
	Periods           float64        `json:"periods"`
}

// Report represents a full evaluation of one ticker. QuarterlyErr is set when
// the quarterly branch failed after the annual one succeeded.
type Report struct {
	ID           string           `json:"id"`
	Symbol       string           `json:"symbol"`
	CurrentPrice float64          `json:"current_price"`
	TrailingEPS  float64          `json:"trailing_eps"`
	Annual       *ValuationResult `json:"annual"`
	Quarterly    *ValuationResult `json:"quarterly,omitempty"`
	QuarterlyErr error            `json:"-"`
	EvaluatedAt  time.Time        `json:"evaluated_at"`
}

// GrahamParameters represents parameters for the adjusted Graham formula
type GrahamParameters struct {
	BaseMultiple       float64 `json:"base_multiple"`
	GrowthMultiplier   float64 `json:"growth_multiplier"`
	CheapThreshold     float64 `json:"cheap_threshold"`
	ExpensiveThreshold float64 `json:"expensive_threshold"`
	MinEPSPoints       int     `json:"min_eps_points"`
	QuartersPerYear    float64 `json:"quarters_per_year"`
}
