package evaluation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"stock-evaluation/models"
	"stock-evaluation/services"
)

type fakeProvider struct {
	history      []models.Quote
	historyErr   error
	profile      *models.Profile
	profileErr   error
	annual       *models.FinancialStatement
	annualErr    error
	quarterly    *models.FinancialStatement
	quarterlyErr error

	panicOnQuarterly bool
	calls            []string
}

func (f *fakeProvider) DailyHistory(ctx context.Context, symbol string) ([]models.Quote, error) {
	f.calls = append(f.calls, "history")
	return f.history, f.historyErr
}

func (f *fakeProvider) Profile(ctx context.Context, symbol string) (*models.Profile, error) {
	f.calls = append(f.calls, "profile")
	return f.profile, f.profileErr
}

func (f *fakeProvider) AnnualFinancials(ctx context.Context, symbol string) (*models.FinancialStatement, error) {
	f.calls = append(f.calls, "annual")
	return f.annual, f.annualErr
}

func (f *fakeProvider) QuarterlyFinancials(ctx context.Context, symbol string) (*models.FinancialStatement, error) {
	f.calls = append(f.calls, "quarterly")
	if f.panicOnQuarterly {
		panic("boom")
	}
	return f.quarterly, f.quarterlyErr
}

func floatPtr(v float64) *float64 { return &v }

// statement builds a statement with values listed newest first, the way providers report them
func statement(cadence models.Cadence, newestFirst ...float64) *models.FinancialStatement {
	stmt := models.NewFinancialStatement(cadence)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	step := -12
	if cadence == models.CadenceQuarterly {
		step = -3
	}
	for i, v := range newestFirst {
		stmt.Add(models.LineNetIncome, end.AddDate(0, i*step, 0), v)
	}
	return stmt
}

func healthyProvider() *fakeProvider {
	return &fakeProvider{
		history: []models.Quote{
			{Symbol: "TEST", Close: 80, Time: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)},
			{Symbol: "TEST", Close: 90, Time: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
		},
		profile: &models.Profile{
			TrailingEPS:       floatPtr(5),
			SharesOutstanding: floatPtr(100),
		},
		// EPS 1.00, 1.10, 1.21 oldest first
		annual:    statement(models.CadenceAnnual, 121, 110, 100),
		quarterly: statement(models.CadenceQuarterly, 121, 115, 110, 108, 106, 104, 102, 100),
	}
}

func newTestEvaluator(p services.MarketDataProvider) *Evaluator {
	e := NewEvaluator(p, nil, nil)
	e.newID = func() string { return "test-id" }
	return e
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	var evalErr *Error
	if !errors.As(err, &evalErr) {
		t.Fatalf("Expected *Error of kind %s, got %v", want, err)
	}
	if evalErr.Kind != want {
		t.Fatalf("Expected kind %s, got %s (%v)", want, evalErr.Kind, err)
	}
}

func TestEvaluateHealthy(t *testing.T) {
	report, err := newTestEvaluator(healthyProvider()).Evaluate(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.ID != "test-id" || report.Symbol != "TEST" {
		t.Errorf("unexpected report identity: %+v", report)
	}
	if report.CurrentPrice != 90 {
		t.Errorf("Expected latest close 90, got %f", report.CurrentPrice)
	}
	if math.Abs(report.Annual.GrowthRatePercent-10) > 1e-6 {
		t.Errorf("Expected annual growth 10%%, got %f", report.Annual.GrowthRatePercent)
	}
	if math.Abs(report.Annual.FairValue-110) > 1e-6 {
		t.Errorf("Expected annual fair value 110, got %f", report.Annual.FairValue)
	}
	if report.Annual.Classification != models.ClassificationFair {
		t.Errorf("Expected annual FAIR, got %s", report.Annual.Classification)
	}
	if report.Quarterly == nil {
		t.Fatalf("Expected quarterly result, got error %v", report.QuarterlyErr)
	}
	if report.Quarterly.Periods != 2 {
		t.Errorf("Expected quarterly divisor 2, got %f", report.Quarterly.Periods)
	}
}

func TestEvaluateNoPriceData(t *testing.T) {
	p := healthyProvider()
	p.history = nil
	p.historyErr = services.ErrNotAvailable

	_, err := newTestEvaluator(p).Evaluate(context.Background(), "TEST")
	assertKind(t, err, NoPriceData)
	if len(p.calls) != 1 {
		t.Errorf("Expected evaluation to stop after history, calls: %v", p.calls)
	}
}

func TestEvaluateTransportFailureIsUnexpected(t *testing.T) {
	p := healthyProvider()
	p.history = nil
	p.historyErr = errors.New("connection reset")

	_, err := newTestEvaluator(p).Evaluate(context.Background(), "TEST")
	assertKind(t, err, UnexpectedError)

	var evalErr *Error
	errors.As(err, &evalErr)
	if evalErr.Message() != "An error occurred: connection reset" {
		t.Errorf("unexpected message %q", evalErr.Message())
	}
}

func TestEvaluateMissingSharesStopsEverything(t *testing.T) {
	p := healthyProvider()
	p.profile.SharesOutstanding = nil

	_, err := newTestEvaluator(p).Evaluate(context.Background(), "TEST")
	assertKind(t, err, NoSharesOutstanding)

	for _, call := range p.calls {
		if call == "annual" || call == "quarterly" {
			t.Errorf("financials fetched despite missing shares: %v", p.calls)
		}
	}
}

func TestEvaluateMissingTrailingEPS(t *testing.T) {
	p := healthyProvider()
	p.profile.TrailingEPS = nil

	_, err := newTestEvaluator(p).Evaluate(context.Background(), "TEST")
	assertKind(t, err, NoAnnualData)
}

func TestEvaluateEmptyAnnual(t *testing.T) {
	p := healthyProvider()
	p.annual = models.NewFinancialStatement(models.CadenceAnnual)

	_, err := newTestEvaluator(p).Evaluate(context.Background(), "TEST")
	assertKind(t, err, NoAnnualData)
}

func TestEvaluateMissingNetIncomeLine(t *testing.T) {
	p := healthyProvider()
	p.annual = models.NewFinancialStatement(models.CadenceAnnual)
	p.annual.Add("Total Revenue", time.Now(), 1000)

	_, err := newTestEvaluator(p).Evaluate(context.Background(), "TEST")
	assertKind(t, err, UnexpectedError)
}

func TestEvaluateInsufficientAnnualSkipsQuarterly(t *testing.T) {
	p := healthyProvider()
	p.annual = statement(models.CadenceAnnual, 100, -50, -10)

	_, err := newTestEvaluator(p).Evaluate(context.Background(), "TEST")
	assertKind(t, err, InsufficientAnnualHistory)

	for _, call := range p.calls {
		if call == "quarterly" {
			t.Errorf("quarterly attempted after annual failure: %v", p.calls)
		}
	}
}

func TestEvaluateQuarterlyFailureKeepsAnnual(t *testing.T) {
	p := healthyProvider()
	p.quarterly = statement(models.CadenceQuarterly, 50, -10, -20, -30)

	report, err := newTestEvaluator(p).Evaluate(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Annual == nil {
		t.Fatal("Expected annual result to survive quarterly failure")
	}
	if report.Quarterly != nil {
		t.Errorf("Expected no quarterly result, got %+v", report.Quarterly)
	}
	assertKind(t, report.QuarterlyErr, InsufficientQuarterlyHistory)
}

func TestEvaluateNoQuarterlyData(t *testing.T) {
	p := healthyProvider()
	p.quarterly = nil
	p.quarterlyErr = services.ErrNotAvailable

	report, err := newTestEvaluator(p).Evaluate(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKind(t, report.QuarterlyErr, NoQuarterlyData)
}

func TestEvaluateRecoversPanic(t *testing.T) {
	p := healthyProvider()
	p.panicOnQuarterly = true

	report, err := newTestEvaluator(p).Evaluate(context.Background(), "TEST")
	if report != nil {
		t.Errorf("Expected no report after panic, got %+v", report)
	}
	assertKind(t, err, UnexpectedError)
}

func TestErrorMessages(t *testing.T) {
	tests := map[Kind]string{
		NoPriceData:                  "Failed to retrieve stock price data.",
		NoSharesOutstanding:          "Not enough financial data to calculate EPS.",
		NoAnnualData:                 "Not enough annual financial data to calculate the fair value.",
		InsufficientAnnualHistory:    "Not enough historical annual EPS data to calculate growth rate.",
		NoQuarterlyData:              "Not enough quarterly financial data to calculate the fair value.",
		InsufficientQuarterlyHistory: "Not enough historical quarterly EPS data to calculate growth rate.",
	}

	for kind, want := range tests {
		if got := newError(kind, nil).Message(); got != want {
			t.Errorf("%s: expected %q, got %q", kind, want, got)
		}
	}
}
