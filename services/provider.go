package services

import (
	"context"
	"errors"

	"stock-evaluation/models"
)

// ErrNotAvailable signals that the provider has no data of the requested kind
// for a symbol. Transport and decoding failures are reported as other errors.
var ErrNotAvailable = errors.New("data not available")

// MarketDataProvider is the fetch-by-symbol capability the valuation pipeline
// depends on.
type MarketDataProvider interface {
	// DailyHistory returns recent daily sessions, oldest first.
	DailyHistory(ctx context.Context, symbol string) ([]models.Quote, error)
	Profile(ctx context.Context, symbol string) (*models.Profile, error)
	AnnualFinancials(ctx context.Context, symbol string) (*models.FinancialStatement, error)
	QuarterlyFinancials(ctx context.Context, symbol string) (*models.FinancialStatement, error)
}
