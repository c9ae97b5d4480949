package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stock-evaluation/config"
	"stock-evaluation/models"
)

// YahooChartResponse represents the response from Yahoo Finance Chart API
type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				ExchangeName       string  `json:"exchangeName"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				DataGranularity    string  `json:"dataGranularity"`
				Range              string  `json:"range"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// YahooQuoteSummaryResponse represents the defaultKeyStatistics module of the quote summary API
type YahooQuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			DefaultKeyStatistics struct {
				TrailingEps       yahooRawValue `json:"trailingEps"`
				SharesOutstanding yahooRawValue `json:"sharesOutstanding"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

// YahooTimeseriesResponse represents the fundamentals time-series API response.
// Each result is keyed by the requested series type, so results are kept raw.
type YahooTimeseriesResponse struct {
	Timeseries struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *yahooError                  `json:"error"`
	} `json:"timeseries"`
}

type yahooTimeseriesPoint struct {
	AsOfDate      string        `json:"asOfDate"`
	PeriodType    string        `json:"periodType"`
	CurrencyCode  string        `json:"currencyCode"`
	ReportedValue yahooRawValue `json:"reportedValue"`
}

type yahooRawValue struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *yahooError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// timeseriesStart is the period1 lower bound used for fundamentals queries
var timeseriesStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// DataFetcher fetches market data from Yahoo Finance and implements MarketDataProvider
type DataFetcher struct {
	httpClient *http.Client
	cfg        config.ProviderConfig
	logger     *log.Logger
	now        func() time.Time
}

// NewDataFetcher creates a new instance of DataFetcher
func NewDataFetcher(cfg config.ProviderConfig, logger *log.Logger) *DataFetcher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &DataFetcher{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// DailyHistory fetches the most recent daily session from the chart API
func (df *DataFetcher) DailyHistory(ctx context.Context, symbol string) ([]models.Quote, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s", strings.TrimRight(df.cfg.ChartBaseURL, "/"), url.PathEscape(symbol))
	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "1d")

	var chartResp YahooChartResponse
	if err := df.getJSON(ctx, endpoint+"?"+params.Encode(), &chartResp); err != nil {
		return nil, fmt.Errorf("failed to fetch daily history for %s: %w", symbol, err)
	}

	if chartResp.Chart.Error != nil {
		return nil, fmt.Errorf("chart API for %s: %v: %w", symbol, chartResp.Chart.Error, ErrNotAvailable)
	}
	if len(chartResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s: %w", symbol, ErrNotAvailable)
	}

	result := chartResp.Chart.Result[0]
	var closes []*float64
	if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}

	quotes := make([]models.Quote, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Sessions without a close (halted or not yet traded) are null
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		quotes = append(quotes, models.Quote{
			Symbol: symbol,
			Close:  *closes[i],
			Time:   time.Unix(ts, 0).UTC(),
		})
	}

	if len(quotes) == 0 {
		return nil, fmt.Errorf("no trading sessions for %s: %w", symbol, ErrNotAvailable)
	}

	return quotes, nil
}

// Profile fetches trailing EPS and shares outstanding, falling back to the
// key-statistics page when the quote summary API fails.
func (df *DataFetcher) Profile(ctx context.Context, symbol string) (*models.Profile, error) {
	profile, err := df.fetchQuoteSummary(ctx, symbol)
	if err == nil {
		return profile, nil
	}

	if !df.cfg.ScrapeFallback {
		return nil, err
	}

	df.logger.Printf("quote summary failed for %s: %v, trying key-statistics page", symbol, err)
	scraped, scrapeErr := df.scrapeKeyStatistics(ctx, symbol)
	if scrapeErr != nil {
		return nil, errors.Join(err, scrapeErr)
	}
	return scraped, nil
}

// fetchQuoteSummary fetches the defaultKeyStatistics module
func (df *DataFetcher) fetchQuoteSummary(ctx context.Context, symbol string) (*models.Profile, error) {
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s", strings.TrimRight(df.cfg.SummaryBaseURL, "/"), url.PathEscape(symbol))
	params := url.Values{}
	params.Set("modules", "defaultKeyStatistics")

	var summaryResp YahooQuoteSummaryResponse
	if err := df.getJSON(ctx, endpoint+"?"+params.Encode(), &summaryResp); err != nil {
		return nil, fmt.Errorf("failed to fetch profile for %s: %w", symbol, err)
	}

	if summaryResp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("quote summary for %s: %v: %w", symbol, summaryResp.QuoteSummary.Error, ErrNotAvailable)
	}
	if len(summaryResp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("no profile for %s: %w", symbol, ErrNotAvailable)
	}

	stats := summaryResp.QuoteSummary.Result[0].DefaultKeyStatistics
	return &models.Profile{
		TrailingEPS:       stats.TrailingEps.Raw,
		SharesOutstanding: stats.SharesOutstanding.Raw,
	}, nil
}

// AnnualFinancials fetches the annual net income series, falling back to the
// financials page when the time-series API fails.
func (df *DataFetcher) AnnualFinancials(ctx context.Context, symbol string) (*models.FinancialStatement, error) {
	statement, err := df.fetchNetIncomeSeries(ctx, symbol, models.CadenceAnnual)
	if err == nil {
		return statement, nil
	}

	if !df.cfg.ScrapeFallback {
		return nil, err
	}

	df.logger.Printf("annual time series failed for %s: %v, trying financials page", symbol, err)
	scraped, scrapeErr := df.scrapeFinancials(ctx, symbol)
	if scrapeErr != nil {
		return nil, errors.Join(err, scrapeErr)
	}
	return scraped, nil
}

// QuarterlyFinancials fetches the quarterly net income series
func (df *DataFetcher) QuarterlyFinancials(ctx context.Context, symbol string) (*models.FinancialStatement, error) {
	return df.fetchNetIncomeSeries(ctx, symbol, models.CadenceQuarterly)
}

// fetchNetIncomeSeries queries the fundamentals time-series API for one cadence
func (df *DataFetcher) fetchNetIncomeSeries(ctx context.Context, symbol string, cadence models.Cadence) (*models.FinancialStatement, error) {
	seriesType := "annualNetIncome"
	if cadence == models.CadenceQuarterly {
		seriesType = "quarterlyNetIncome"
	}

	endpoint := fmt.Sprintf("%s/ws/fundamentals-timeseries/v1/finance/timeseries/%s",
		strings.TrimRight(df.cfg.SummaryBaseURL, "/"), url.PathEscape(symbol))
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("type", seriesType)
	params.Set("period1", fmt.Sprintf("%d", timeseriesStart.Unix()))
	params.Set("period2", fmt.Sprintf("%d", df.now().Unix()))

	var tsResp YahooTimeseriesResponse
	if err := df.getJSON(ctx, endpoint+"?"+params.Encode(), &tsResp); err != nil {
		return nil, fmt.Errorf("failed to fetch %s financials for %s: %w", strings.ToLower(string(cadence)), symbol, err)
	}

	if tsResp.Timeseries.Error != nil {
		return nil, fmt.Errorf("time series for %s: %v: %w", symbol, tsResp.Timeseries.Error, ErrNotAvailable)
	}

	statement := models.NewFinancialStatement(cadence)
	for _, result := range tsResp.Timeseries.Result {
		raw, ok := result[seriesType]
		if !ok {
			continue
		}

		var points []*yahooTimeseriesPoint
		if err := json.Unmarshal(raw, &points); err != nil {
			return nil, fmt.Errorf("failed to parse %s for %s: %w", seriesType, symbol, err)
		}

		for _, point := range points {
			// Missing periods are reported as null entries
			if point == nil || point.ReportedValue.Raw == nil {
				continue
			}
			periodEnd, err := time.Parse("2006-01-02", point.AsOfDate)
			if err != nil {
				return nil, fmt.Errorf("invalid period date %q for %s: %w", point.AsOfDate, symbol, err)
			}
			statement.Add(models.LineNetIncome, periodEnd, *point.ReportedValue.Raw)
		}
	}

	if statement.Empty() {
		return nil, fmt.Errorf("no %s financials for %s: %w", strings.ToLower(string(cadence)), symbol, ErrNotAvailable)
	}

	return statement, nil
}

// getJSON performs a GET request and decodes the JSON body into target.
// A 404 is reported as ErrNotAvailable.
func (df *DataFetcher) getJSON(ctx context.Context, rawURL string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	df.setRequestHeaders(req, "application/json")

	start := time.Now()
	resp, err := df.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	df.logger.Printf("GET %s -> %d (%s)", req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Yahoo answers unknown symbols with 404 and a JSON error body
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("status %d: %w", resp.StatusCode, ErrNotAvailable)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Yahoo Finance returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return nil
}

// setRequestHeaders sets browser-like headers
func (df *DataFetcher) setRequestHeaders(req *http.Request, accept string) {
	req.Header.Set("User-Agent", df.cfg.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Cache-Control", "max-age=0")
}
