package valuation

import (
	"errors"
	"math"
	"testing"
	"time"

	"stock-evaluation/models"
)

const tolerance = 1e-9

func netIncome(values ...float64) []models.PeriodValue {
	points := make([]models.PeriodValue, len(values))
	start := time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		points[i] = models.PeriodValue{PeriodEnd: start.AddDate(i, 0, 0), Value: v}
	}
	return points
}

func TestEPSHistoryDropsNonPositive(t *testing.T) {
	series, err := EPSHistory(netIncome(100, -50, 0, 200, 300), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := models.EPSSeries{10, 20, 30}
	if len(series) != len(want) {
		t.Fatalf("Expected %d points, got %d (%v)", len(want), len(series), series)
	}
	for i := range want {
		if math.Abs(series[i]-want[i]) > tolerance {
			t.Errorf("point %d: expected %f, got %f", i, want[i], series[i])
		}
	}
}

func TestEPSHistoryZeroShares(t *testing.T) {
	if _, err := EPSHistory(netIncome(100, 200), 0); err == nil {
		t.Error("Expected error for zero shares outstanding")
	}
}

func TestCAGRTwoPointsIsSimpleReturn(t *testing.T) {
	calc := NewCalculator()
	series := models.EPSSeries{2.0, 2.5}

	periods := calc.Periods(series, models.CadenceAnnual)
	if periods != 1 {
		t.Fatalf("Expected 1 period, got %f", periods)
	}

	growth, err := CAGR(series.Start(), series.End(), periods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(growth-(2.5/2.0-1)) > tolerance {
		t.Errorf("Expected growth %f, got %f", 2.5/2.0-1, growth)
	}
}

func TestPeriodsAnnualVersusQuarterly(t *testing.T) {
	calc := NewCalculator()

	annual := calc.Periods(make(models.EPSSeries, 5), models.CadenceAnnual)
	if annual != 4 {
		t.Errorf("Expected annual divisor 4 for 5 points, got %f", annual)
	}

	quarterly := calc.Periods(make(models.EPSSeries, 8), models.CadenceQuarterly)
	if quarterly != 2 {
		t.Errorf("Expected quarterly divisor 2 for 8 points, got %f", quarterly)
	}

	// 5 quarters is 1.25 years, not 1
	odd := calc.Periods(make(models.EPSSeries, 5), models.CadenceQuarterly)
	if odd != 1.25 {
		t.Errorf("Expected quarterly divisor 1.25 for 5 points, got %f", odd)
	}
}

func TestCAGRRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name              string
		start, end, years float64
	}{
		{"zero start", 0, 1, 1},
		{"negative end", 1, -1, 1},
		{"zero span", 1, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CAGR(tt.start, tt.end, tt.years); err == nil {
				t.Errorf("Expected error for start=%v end=%v years=%v", tt.start, tt.end, tt.years)
			}
		})
	}
}

func TestFairValueGrahamExample(t *testing.T) {
	calc := NewCalculator()

	// 5.00 * (7 + 1.5*10) = 110
	fairValue := calc.FairValue(5.0, 10.0)
	if math.Abs(fairValue-110.0) > tolerance {
		t.Fatalf("Expected fair value 110, got %f", fairValue)
	}

	if got := calc.Classify(90, fairValue); got != models.ClassificationFair {
		t.Errorf("Expected FAIR for price 90, got %s", got)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		price, fairValue float64
		want             models.Classification
	}{
		{100, 100, models.ClassificationFair},
		{79.99, 100, models.ClassificationCheap},
		{80, 100, models.ClassificationFair},
		{120, 100, models.ClassificationFair},
		{120.01, 100, models.ClassificationExpensive},
		// negative fair value makes any positive price expensive
		{10, -5, models.ClassificationExpensive},
	}

	for _, tt := range tests {
		if got := calc.Classify(tt.price, tt.fairValue); got != tt.want {
			t.Errorf("Classify(%v, %v) = %s, expected %s", tt.price, tt.fairValue, got, tt.want)
		}
	}
}

func TestEvaluateAnnual(t *testing.T) {
	calc := NewCalculator()

	// EPS 1.00 -> 1.21 over 2 years = 10% CAGR
	result, err := calc.Evaluate(models.CadenceAnnual, netIncome(100, -20, 110, 121), 100, 5.0, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Points != 3 {
		t.Errorf("Expected 3 points, got %d", result.Points)
	}
	if result.Periods != 2 {
		t.Errorf("Expected 2 periods, got %f", result.Periods)
	}
	if math.Abs(result.GrowthRatePercent-10) > 1e-6 {
		t.Errorf("Expected growth 10%%, got %f", result.GrowthRatePercent)
	}
	if math.Abs(result.FairValue-110) > 1e-6 {
		t.Errorf("Expected fair value 110, got %f", result.FairValue)
	}
	if result.Classification != models.ClassificationFair {
		t.Errorf("Expected FAIR, got %s", result.Classification)
	}
}

func TestEvaluateQuarterlyUsesQuarterDivisor(t *testing.T) {
	calc := NewCalculator()

	// 8 quarters from 1.00 to 1.21 EPS: divisor 2, CAGR 10%
	values := []float64{100, 102, 104, 106, 108, 110, 115, 121}
	result, err := calc.Evaluate(models.CadenceQuarterly, netIncome(values...), 100, 5.0, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Periods != 2 {
		t.Errorf("Expected 2 periods, got %f", result.Periods)
	}
	if math.Abs(result.GrowthRatePercent-10) > 1e-6 {
		t.Errorf("Expected growth 10%%, got %f", result.GrowthRatePercent)
	}
	if result.Classification != models.ClassificationExpensive {
		t.Errorf("Expected EXPENSIVE, got %s", result.Classification)
	}
}

func TestEvaluateInsufficientHistory(t *testing.T) {
	calc := NewCalculator()

	_, err := calc.Evaluate(models.CadenceAnnual, netIncome(-100, 50, -10), 10, 1.0, 10)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("Expected ErrInsufficientHistory, got %v", err)
	}
}

func TestSetParameters(t *testing.T) {
	calc := NewCalculator()
	params := calc.GetParameters()
	params.BaseMultiple = 8.5
	params.GrowthMultiplier = 2
	calc.SetParameters(params)

	if got := calc.FairValue(2, 5); math.Abs(got-37) > tolerance {
		t.Errorf("Expected fair value 37 with custom parameters, got %f", got)
	}
}
