package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Valuation ValuationConfig `yaml:"valuation"`
	Provider  ProviderConfig  `yaml:"provider"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ValuationConfig holds the adjusted Graham formula constants
type ValuationConfig struct {
	BaseMultiple       float64 `yaml:"base_multiple"`
	GrowthMultiplier   float64 `yaml:"growth_multiplier"`
	CheapThreshold     float64 `yaml:"cheap_threshold"`
	ExpensiveThreshold float64 `yaml:"expensive_threshold"`
	MinEPSPoints       int     `yaml:"min_eps_points"`
	QuartersPerYear    float64 `yaml:"quarters_per_year"`
}

// ProviderConfig holds configuration for the market data provider
type ProviderConfig struct {
	ChartBaseURL   string `yaml:"chart_base_url"`
	SummaryBaseURL string `yaml:"summary_base_url"`
	WebBaseURL     string `yaml:"web_base_url"`
	RequestTimeout int    `yaml:"request_timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`
	ScrapeFallback bool   `yaml:"scrape_fallback"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	ShowColors bool `yaml:"show_colors"`
	JSON       bool `yaml:"json"`
}

// LoggingConfig holds configuration for operational logs
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// NewDefaultConfig creates a new configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Valuation: ValuationConfig{
			BaseMultiple:       7.0,
			GrowthMultiplier:   1.5,
			CheapThreshold:     0.8,
			ExpensiveThreshold: 1.2,
			MinEPSPoints:       2,
			QuartersPerYear:    4,
		},
		Provider: ProviderConfig{
			ChartBaseURL:   "https://query1.finance.yahoo.com",
			SummaryBaseURL: "https://query2.finance.yahoo.com",
			WebBaseURL:     "https://finance.yahoo.com",
			RequestTimeout: 10,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			ScrapeFallback: true,
		},
		Output: OutputConfig{
			ShowColors: false,
			JSON:       false,
		},
	}
}

// Load reads a YAML configuration file on top of the defaults and applies
// environment overrides. An empty path skips the file.
func Load(configPath string) (*Config, error) {
	config := NewDefaultConfig()

	if configPath != "" {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides replaces file values with STOCK_EVAL_* variables when set
func applyEnvOverrides(config *Config) error {
	if v := os.Getenv("STOCK_EVAL_CHART_URL"); v != "" {
		config.Provider.ChartBaseURL = v
	}
	if v := os.Getenv("STOCK_EVAL_SUMMARY_URL"); v != "" {
		config.Provider.SummaryBaseURL = v
	}
	if v := os.Getenv("STOCK_EVAL_WEB_URL"); v != "" {
		config.Provider.WebBaseURL = v
	}
	if v := os.Getenv("STOCK_EVAL_TIMEOUT_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STOCK_EVAL_TIMEOUT_SECONDS: %w", err)
		}
		config.Provider.RequestTimeout = seconds
	}
	if v := os.Getenv("STOCK_EVAL_COLORS"); v != "" {
		colors, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STOCK_EVAL_COLORS: %w", err)
		}
		config.Output.ShowColors = colors
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Valuation.BaseMultiple < 0 {
		return fmt.Errorf("base multiple cannot be negative")
	}

	if c.Valuation.GrowthMultiplier <= 0 {
		return fmt.Errorf("growth multiplier must be positive")
	}

	if c.Valuation.CheapThreshold <= 0 || c.Valuation.CheapThreshold > 1 {
		return fmt.Errorf("cheap threshold must be between 0 and 1")
	}

	if c.Valuation.ExpensiveThreshold < 1 {
		return fmt.Errorf("expensive threshold must be at least 1")
	}

	// CAGR needs a start and an end point
	if c.Valuation.MinEPSPoints < 2 {
		return fmt.Errorf("min EPS points must be at least 2")
	}

	if c.Valuation.QuartersPerYear <= 0 {
		return fmt.Errorf("quarters per year must be positive")
	}

	if c.Provider.ChartBaseURL == "" || c.Provider.SummaryBaseURL == "" {
		return fmt.Errorf("provider base URLs are required")
	}

	if c.Provider.ScrapeFallback && c.Provider.WebBaseURL == "" {
		return fmt.Errorf("web base URL is required when scrape fallback is enabled")
	}

	if c.Provider.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}

	return nil
}
