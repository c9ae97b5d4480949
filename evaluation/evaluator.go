package evaluation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"stock-evaluation/models"
	"stock-evaluation/services"
	"stock-evaluation/valuation"
)

// Evaluator runs the valuation pipeline for one ticker at a time
type Evaluator struct {
	provider   services.MarketDataProvider
	calculator *valuation.Calculator
	logger     *log.Logger
	now        func() time.Time
	newID      func() string
}

// NewEvaluator creates an evaluator backed by the given provider
func NewEvaluator(provider services.MarketDataProvider, calculator *valuation.Calculator, logger *log.Logger) *Evaluator {
	if calculator == nil {
		calculator = valuation.NewCalculator()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Evaluator{
		provider:   provider,
		calculator: calculator,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Evaluate fetches data for symbol and computes the annual and quarterly
// valuations. Every failure is returned as an *Error; a quarterly failure
// after a successful annual branch is recorded on the report instead.
func (e *Evaluator) Evaluate(ctx context.Context, symbol string) (report *models.Report, err error) {
	id := e.newID()
	start := e.now()

	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = newError(UnexpectedError, fmt.Errorf("%v", r))
		}
		if err != nil {
			e.logger.Printf("[%s] %s: %v", id, symbol, err)
			return
		}
		e.logger.Printf("[%s] %s evaluated in %s", id, symbol, e.now().Sub(start).Round(time.Millisecond))
	}()

	price, err := e.currentPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	profile, err := e.provider.Profile(ctx, symbol)
	if err != nil && !errors.Is(err, services.ErrNotAvailable) {
		return nil, newError(UnexpectedError, err)
	}
	if profile == nil || profile.SharesOutstanding == nil {
		return nil, newError(NoSharesOutstanding, err)
	}
	shares := *profile.SharesOutstanding

	annualStmt, err := e.provider.AnnualFinancials(ctx, symbol)
	if err != nil && !errors.Is(err, services.ErrNotAvailable) {
		return nil, newError(UnexpectedError, err)
	}
	if annualStmt.Empty() || profile.TrailingEPS == nil {
		return nil, newError(NoAnnualData, err)
	}
	trailingEPS := *profile.TrailingEPS

	annual, err := e.evaluateCadence(annualStmt, models.CadenceAnnual, shares, trailingEPS, price)
	if err != nil {
		return nil, err
	}

	report = &models.Report{
		ID:           id,
		Symbol:       symbol,
		CurrentPrice: price,
		TrailingEPS:  trailingEPS,
		Annual:       annual,
		EvaluatedAt:  start,
	}

	quarterly, err := e.quarterly(ctx, symbol, shares, trailingEPS, price)
	if err != nil {
		report.QuarterlyErr = err
		e.logger.Printf("[%s] %s quarterly branch: %v", id, symbol, err)
		return report, nil
	}
	report.Quarterly = quarterly

	return report, nil
}

// currentPrice returns the close of the most recent session
func (e *Evaluator) currentPrice(ctx context.Context, symbol string) (float64, error) {
	history, err := e.provider.DailyHistory(ctx, symbol)
	if err != nil && !errors.Is(err, services.ErrNotAvailable) {
		return 0, newError(UnexpectedError, err)
	}
	if len(history) == 0 {
		return 0, newError(NoPriceData, err)
	}
	return history[len(history)-1].Close, nil
}

func (e *Evaluator) quarterly(ctx context.Context, symbol string, shares, trailingEPS, price float64) (*models.ValuationResult, error) {
	stmt, err := e.provider.QuarterlyFinancials(ctx, symbol)
	if err != nil && !errors.Is(err, services.ErrNotAvailable) {
		return nil, newError(UnexpectedError, err)
	}
	if stmt.Empty() {
		return nil, newError(NoQuarterlyData, err)
	}
	return e.evaluateCadence(stmt, models.CadenceQuarterly, shares, trailingEPS, price)
}

// evaluateCadence runs the EPS, growth and classification steps on one statement
func (e *Evaluator) evaluateCadence(stmt *models.FinancialStatement, cadence models.Cadence, shares, trailingEPS, price float64) (*models.ValuationResult, error) {
	netIncome, ok := stmt.Line(models.LineNetIncome)
	if !ok {
		return nil, newError(UnexpectedError, fmt.Errorf("%s statement has no %q line", cadence, models.LineNetIncome))
	}

	result, err := e.calculator.Evaluate(cadence, netIncome, shares, trailingEPS, price)
	if errors.Is(err, valuation.ErrInsufficientHistory) {
		kind := InsufficientAnnualHistory
		if cadence == models.CadenceQuarterly {
			kind = InsufficientQuarterlyHistory
		}
		return nil, newError(kind, err)
	}
	if err != nil {
		return nil, newError(UnexpectedError, err)
	}
	return result, nil
}
