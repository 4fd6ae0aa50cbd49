// etfdj extracts ETF reports from MoneyDJ.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seenimoa/etfdj/api"
	"github.com/seenimoa/etfdj/internal/config"
	"github.com/seenimoa/etfdj/internal/datasource"
	"github.com/seenimoa/etfdj/internal/infra"
	"github.com/seenimoa/etfdj/internal/report"
	"github.com/seenimoa/etfdj/pkg/models"
	"github.com/seenimoa/etfdj/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set up in PersistentPreRunE.
var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "etfdj",
	Short: "etfdj: MoneyDJ ETF report extractor",
	Long: `etfdj fetches the MoneyDJ ETF report pages for a ticker and turns
them into structured data: basic info, holdings, risk analysis, return
comparison and return trends.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is fine.
		_ = godotenv.Load()

		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger, err = infra.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(sectionCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Wiring ---

func newClient() *datasource.Client {
	return datasource.NewClient(
		datasource.WithBaseURL(cfg.Source.BaseURL),
		datasource.WithUserAgent(cfg.Source.UserAgent),
		datasource.WithTimeout(time.Duration(cfg.Source.TimeoutSec)*time.Second),
		datasource.WithRateLimit(cfg.Source.RateLimit, cfg.Source.Burst),
	)
}

func newAggregator(client *datasource.Client, failFast bool) *datasource.Aggregator {
	return datasource.NewAggregator(client,
		datasource.WithLogger(logger),
		datasource.WithFailFast(failFast),
		datasource.WithConcurrency(cfg.Aggregate.Concurrency),
	)
}

// signalContext is cancelled on Ctrl-C so in-flight requests stop early.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openOutput returns stdout, or the named file created for writing.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("etfdj %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch [ticker...]",
	Short: "Fetch the full report for one or more ETFs",
	Long: `Fetch all five report sections for each ticker.

Examples:
  etfdj fetch VTI
  etfdj fetch 0050 VOO --format csv --output etfs.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatName, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		color, _ := cmd.Flags().GetBool("color")
		failFast := cfg.Aggregate.FailFast
		if cmd.Flags().Changed("fail-fast") {
			failFast, _ = cmd.Flags().GetBool("fail-fast")
		}

		format, err := report.ParseFormat(formatName)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		reports, err := newAggregator(newClient(), failFast).FetchMany(ctx, args)
		if err != nil {
			return err
		}

		out, err := openOutput(output)
		if err != nil {
			return err
		}
		defer out.Close()

		opts := report.Options{Color: color && output == ""}
		if err := report.WriteAll(out, reports, format, opts); err != nil {
			return err
		}

		for _, rep := range reports {
			for section, msg := range rep.Errors {
				fmt.Fprintf(os.Stderr, "warning: %s %s: %s\n", rep.Ticker, section, msg)
			}
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringP("format", "f", "json", "output format ("+formatList()+")")
	fetchCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	fetchCmd.Flags().Bool("fail-fast", false, "stop at the first failing section")
	fetchCmd.Flags().Bool("color", false, "colorize JSON output")
}

func formatList() string {
	names := make([]string, 0, len(report.AllFormats()))
	for _, f := range report.AllFormats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

// --- Section Command ---

var sectionCmd = &cobra.Command{
	Use:   "section [ticker] [section]",
	Short: "Fetch a single report section",
	Long: `Fetch one report section as JSON.

Sections: basic, holdings, risk, comparison, trends
(or the full names basic_info, risk_analysis, return_comparison, return_trends).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := args[0]
		section, ok := models.ParseSection(args[1])
		if !ok {
			return fmt.Errorf("unknown section %q", args[1])
		}
		color, _ := cmd.Flags().GetBool("color")

		ctx, cancel := signalContext()
		defer cancel()

		data, err := newAggregator(newClient(), true).FetchSection(ctx, ticker, section)
		if data != nil {
			if werr := report.WriteValue(os.Stdout, data, report.Options{Color: color}); werr != nil {
				return werr
			}
		}
		return err
	},
}

func init() {
	sectionCmd.Flags().Bool("color", false, "colorize JSON output")
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news [ticker]",
	Short: "Show feed headlines that mention an ETF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.News.Limit
		}

		ctx, cancel := signalContext()
		defer cancel()

		news := datasource.NewNews(newClient(), cfg.News.FeedURL)
		items, err := news.GetNews(ctx, args[0], limit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Printf("No news for %s\n", utils.NormalizeTicker(args[0]))
			return nil
		}
		for _, it := range items {
			fmt.Printf("%s  %s\n", utils.FormatTimestamp(it.PublishedAt), it.Title)
			fmt.Printf("    %s\n", it.URL)
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().IntP("limit", "n", 0, "maximum number of items (default from config)")
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := cfg.API.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		client := newClient()
		srv := api.NewServer(cfg,
			newAggregator(client, cfg.Aggregate.FailFast),
			datasource.NewNews(client, cfg.News.FeedURL),
			logger,
		)
		srv.SetVersion(version)

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, port)
		fmt.Printf("Starting etfdj API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "listen port (default from config)")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  etfdj: Configuration")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:   %s\n", version)
		fmt.Printf("  Time:      %s\n", utils.FormatTimestamp(utils.NowTaipei()))
		fmt.Println()

		for _, s := range config.Describe(cfg) {
			fmt.Printf("  %-22s %-30s [%s]\n", s.Key, s.Value, s.Source)
		}
		fmt.Println()
		fmt.Println("  Override any setting with its environment variable, e.g.")
		fmt.Printf("  %s=debug\n", config.EnvPrefix+"_LOGGING_LEVEL")
		return nil
	},
}
