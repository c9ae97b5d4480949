package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"stock-evaluation/config"
	"stock-evaluation/evaluation"
	"stock-evaluation/models"
	"stock-evaluation/services"
	"stock-evaluation/utils"
	"stock-evaluation/valuation"
)

const (
	prompt       = "Enter the ticker symbol of the company (or 'exit' to quit): "
	exitSentinel = "EXIT"
)

func init() {
	// A missing .env is normal; the defaults and the environment still apply
	_ = godotenv.Load()
}

func main() {
	// Command line flags
	var (
		configFile = flag.String("config", "", "Path to YAML configuration file")
		showColors = flag.Bool("colors", false, "Enable colored output")
		jsonOutput = flag.Bool("json", false, "Print reports as JSON")
		timeout    = flag.Int("timeout", 0, "Request timeout in seconds (0 = config value)")
		verbose    = flag.Bool("verbose", false, "Log provider requests to stderr")
		help       = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	// Flags only override when given explicitly
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "colors":
			cfg.Output.ShowColors = *showColors
		case "json":
			cfg.Output.JSON = *jsonOutput
		case "verbose":
			cfg.Logging.Verbose = *verbose
		}
	})
	if *timeout > 0 {
		cfg.Provider.RequestTimeout = *timeout
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	app := NewApplication(cfg, os.Stdout)
	app.Run(context.Background(), os.Stdin)
}

// Application represents the interactive evaluation loop
type Application struct {
	config    *config.Config
	evaluator *evaluation.Evaluator
	printer   *utils.Printer
	out       io.Writer
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config, out io.Writer) *Application {
	logOutput := io.Discard
	if cfg.Logging.Verbose {
		logOutput = os.Stderr
	}
	logger := log.New(logOutput, "stock-evaluation: ", log.LstdFlags)

	calculator := valuation.NewCalculator()
	calculator.SetParameters(models.GrahamParameters{
		BaseMultiple:       cfg.Valuation.BaseMultiple,
		GrowthMultiplier:   cfg.Valuation.GrowthMultiplier,
		CheapThreshold:     cfg.Valuation.CheapThreshold,
		ExpensiveThreshold: cfg.Valuation.ExpensiveThreshold,
		MinEPSPoints:       cfg.Valuation.MinEPSPoints,
		QuartersPerYear:    cfg.Valuation.QuartersPerYear,
	})

	return newApplication(cfg, services.NewDataFetcher(cfg.Provider, logger), calculator, logger, out)
}

func newApplication(cfg *config.Config, provider services.MarketDataProvider, calculator *valuation.Calculator, logger *log.Logger, out io.Writer) *Application {
	return &Application{
		config:    cfg,
		evaluator: evaluation.NewEvaluator(provider, calculator, logger),
		printer:   utils.NewPrinter(out, cfg.Output.ShowColors),
		out:       out,
	}
}

// Run prompts for ticker symbols until EXIT or end of input
func (app *Application) Run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(app.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(app.out)
			return
		}

		symbol := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if symbol == exitSentinel {
			return
		}
		if symbol == "" {
			continue
		}

		app.evaluate(ctx, symbol)
	}
}

// evaluate runs one evaluation and prints the report or its diagnostic
func (app *Application) evaluate(ctx context.Context, symbol string) {
	// One deadline covers all provider calls for this symbol
	ctx, cancel := context.WithTimeout(ctx, 4*time.Duration(app.config.Provider.RequestTimeout)*time.Second)
	defer cancel()

	report, err := app.evaluator.Evaluate(ctx, symbol)
	if err != nil {
		app.printer.DisplayDiagnostic(err)
		return
	}

	if app.config.Output.JSON {
		if err := app.printer.DisplayJSON(report); err != nil {
			app.printer.DisplayDiagnostic(err)
		}
		return
	}

	app.printer.DisplayReport(report)
}

// showHelp displays help information
func showHelp() {
	fmt.Println("Stock Evaluation Tool")
	fmt.Println("=====================")
	fmt.Println()
	fmt.Println("Estimates fair value from historical EPS growth using an adjusted Graham")
	fmt.Println("formula, EPS * (7 + 1.5 * growth%), for annual and quarterly data.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  stock-evaluation [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config string     Path to YAML configuration file")
	fmt.Println("  -colors            Enable colored output")
	fmt.Println("  -json              Print reports as JSON")
	fmt.Println("  -timeout int       Request timeout in seconds")
	fmt.Println("  -verbose           Log provider requests to stderr")
	fmt.Println("  -help              Show this help message")
	fmt.Println()
	fmt.Println("Type a ticker symbol at the prompt, or 'exit' to quit.")
}
