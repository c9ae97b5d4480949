package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"stock-evaluation/models"
)

var (
	appMainPattern  = regexp.MustCompile(`root\.App\.main\s*=\s*({.*?});`)
	scaledPattern   = regexp.MustCompile(`^([0-9.]+)([KMBT]?)$`)
	scaleMultiplier = map[string]float64{
		"":  1,
		"K": 1e3,
		"M": 1e6,
		"B": 1e9,
		"T": 1e12,
	}
)

// financialsUnit is the scale of values on the Yahoo financials page ("All numbers in thousands")
const financialsUnit = 1000.0

// financialsLayout pairs the row and cell selectors of one page layout
type financialsLayout struct {
	header string
	row    string
	cell   string
}

var financialsLayouts = []financialsLayout{
	{header: "div[data-test='fin-hdr']", row: "div[data-test='fin-row']", cell: "div[data-test='fin-col']"},
	{header: "div.tableHeader div.row", row: "div.tableBody div.row", cell: "div.column"},
}

// fetchDocument downloads and parses an HTML page
func (df *DataFetcher) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	df.setRequestHeaders(req, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := df.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("page returned status %d: %w", resp.StatusCode, ErrNotAvailable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// scrapeKeyStatistics reads trailing EPS and shares outstanding from the key-statistics page
func (df *DataFetcher) scrapeKeyStatistics(ctx context.Context, symbol string) (*models.Profile, error) {
	pageURL := fmt.Sprintf("%s/quote/%s/key-statistics/", strings.TrimRight(df.cfg.WebBaseURL, "/"), url.PathEscape(symbol))
	doc, err := df.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("key-statistics page for %s: %w", symbol, err)
	}

	profile := extractKeyStatistics(doc)
	if profile.TrailingEPS == nil && profile.SharesOutstanding == nil {
		return nil, fmt.Errorf("no key statistics on page for %s: %w", symbol, ErrNotAvailable)
	}
	return profile, nil
}

// extractKeyStatistics extracts profile figures from the embedded page state
// first and fills the gaps from the statistics tables.
func extractKeyStatistics(doc *goquery.Document) *models.Profile {
	profile := &models.Profile{}

	doc.Find("script").Each(func(i int, script *goquery.Selection) {
		content := script.Text()
		if !strings.Contains(content, "root.App.main") {
			return
		}
		if jsonData, err := extractJSONData(content); err == nil {
			parseJSONKeyStatistics(jsonData, profile)
		}
	})

	doc.Find("table tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(cells.First().Text()))
		value := strings.TrimSpace(cells.Last().Text())

		switch {
		case profile.TrailingEPS == nil && strings.Contains(label, "diluted eps"):
			if eps, err := parseFloatValue(value); err == nil {
				profile.TrailingEPS = &eps
			}
		case profile.SharesOutstanding == nil && strings.HasPrefix(label, "shares outstanding"):
			if shares, err := parseScaledValue(value); err == nil && shares > 0 {
				profile.SharesOutstanding = &shares
			}
		}
	})

	return profile
}

// extractJSONData extracts the root.App.main state object from script content
func extractJSONData(content string) (map[string]interface{}, error) {
	matches := appMainPattern.FindStringSubmatch(content)
	if len(matches) < 2 {
		return nil, fmt.Errorf("no JSON data found")
	}

	var jsonData map[string]interface{}
	if err := json.Unmarshal([]byte(matches[1]), &jsonData); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return jsonData, nil
}

// parseJSONKeyStatistics reads QuoteSummaryStore.defaultKeyStatistics
func parseJSONKeyStatistics(jsonData map[string]interface{}, profile *models.Profile) {
	stats := nestedMap(jsonData, "context", "dispatcher", "stores", "QuoteSummaryStore", "defaultKeyStatistics")
	if stats == nil {
		return
	}
	if eps, ok := rawNumber(stats, "trailingEps"); ok {
		profile.TrailingEPS = &eps
	}
	if shares, ok := rawNumber(stats, "sharesOutstanding"); ok && shares > 0 {
		profile.SharesOutstanding = &shares
	}
}

func nestedMap(data map[string]interface{}, path ...string) map[string]interface{} {
	current := data
	for _, key := range path {
		next, ok := current[key].(map[string]interface{})
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func rawNumber(data map[string]interface{}, key string) (float64, bool) {
	field, ok := data[key].(map[string]interface{})
	if !ok {
		return 0, false
	}
	raw, ok := field["raw"].(float64)
	return raw, ok
}

// scrapeFinancials reads the annual "Net Income" row from the financials page
func (df *DataFetcher) scrapeFinancials(ctx context.Context, symbol string) (*models.FinancialStatement, error) {
	pageURL := fmt.Sprintf("%s/quote/%s/financials/", strings.TrimRight(df.cfg.WebBaseURL, "/"), url.PathEscape(symbol))
	doc, err := df.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("financials page for %s: %w", symbol, err)
	}

	statement := extractFinancials(doc)
	if statement.Empty() {
		return nil, fmt.Errorf("no financials on page for %s: %w", symbol, ErrNotAvailable)
	}
	return statement, nil
}

// extractFinancials extracts the net income row keyed by the header's period dates.
// The TTM column is not a reporting period and is skipped.
func extractFinancials(doc *goquery.Document) *models.FinancialStatement {
	statement := models.NewFinancialStatement(models.CadenceAnnual)

	for _, layout := range financialsLayouts {
		var periods []time.Time
		var valid []bool
		doc.Find(layout.header).First().Find(layout.cell).Each(func(j int, col *goquery.Selection) {
			if j == 0 {
				return
			}
			periodEnd, err := time.Parse("1/2/2006", strings.TrimSpace(col.Text()))
			periods = append(periods, periodEnd)
			valid = append(valid, err == nil)
		})
		if len(periods) == 0 {
			continue
		}

		doc.Find(layout.row).EachWithBreak(func(i int, row *goquery.Selection) bool {
			cols := row.Find(layout.cell)
			label := strings.TrimSpace(cols.First().Text())
			if !strings.EqualFold(label, models.LineNetIncome) && !strings.EqualFold(label, "Net Income Common Stockholders") {
				return true
			}

			cols.Each(func(j int, col *goquery.Selection) {
				if j == 0 || j > len(periods) || !valid[j-1] {
					return
				}
				if value, err := parseFinancialValue(strings.TrimSpace(col.Text())); err == nil {
					statement.Add(models.LineNetIncome, periods[j-1], value*financialsUnit)
				}
			})
			return false
		})

		if !statement.Empty() {
			break
		}
	}

	return statement
}

// parseFloatValue parses a string value to float64, handling common formats
func parseFloatValue(value string) (float64, error) {
	cleaned := strings.ReplaceAll(value, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, "%", "")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" || cleaned == "N/A" || cleaned == "--" {
		return 0, fmt.Errorf("no valid value")
	}

	return strconv.ParseFloat(cleaned, 64)
}

// parseScaledValue parses values with a magnitude suffix (e.g. "15.2B", "850M")
func parseScaledValue(value string) (float64, error) {
	cleaned := strings.ReplaceAll(value, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" || cleaned == "N/A" || cleaned == "--" {
		return 0, fmt.Errorf("no valid value")
	}

	matches := scaledPattern.FindStringSubmatch(strings.ToUpper(cleaned))
	if len(matches) < 3 {
		return 0, fmt.Errorf("invalid scaled value: %s", value)
	}

	base, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid scaled number: %s", matches[1])
	}

	return base * scaleMultiplier[matches[2]], nil
}

// parseFinancialValue parses statement cells, where losses are shown as "(123)" or "-123"
func parseFinancialValue(value string) (float64, error) {
	cleaned := strings.ReplaceAll(value, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, "(", "-")
	cleaned = strings.ReplaceAll(cleaned, ")", "")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" || cleaned == "N/A" || cleaned == "--" {
		return 0, fmt.Errorf("no valid value")
	}

	multiplier := 1.0
	if strings.HasPrefix(cleaned, "-") {
		multiplier = -1.0
		cleaned = strings.TrimPrefix(cleaned, "-")
	}

	if val, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return val * multiplier, nil
	}

	return 0, fmt.Errorf("invalid financial value: %s", value)
}
