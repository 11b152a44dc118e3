package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"nhs-gp-scraper/config"
	"nhs-gp-scraper/fetcher"
	"nhs-gp-scraper/models"
	"nhs-gp-scraper/scraper/nhs"
	"nhs-gp-scraper/services"
	"nhs-gp-scraper/storage"
	"nhs-gp-scraper/utils"
)

func crawlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the GP directory around a postcode and rank the practices",
		RunE:  runCrawl,
	}

	scoring := models.DefaultScoringConfig()
	flags := cmd.Flags()

	flags.String("postcode", "", "postcode to search around (required)")
	flags.Int("crawl-limit", 50, "maximum number of practices to visit")
	flags.String("start-url", nhs.DefaultStartURL, "GP search landing page")

	flags.Float64("score-max-distance", scoring.MaxDistance, "distance at which the distance score reaches 0")
	flags.Float64("score-max-distance-points", scoring.MaxDistancePoints, "points for distance")
	flags.Float64("score-max-ppd", scoring.MaxPPD, "patients per doctor at which the ratio score reaches 0")
	flags.Float64("score-max-ppd-points", scoring.MaxPPDPoints, "points for patients per doctor")
	flags.Float64("score-min-doctors", scoring.MinDoctors, "doctor count that earns full doctor points")
	flags.Float64("score-min-doctors-points", scoring.MinDoctorsPoints, "points for doctors")
	flags.Float64("score-perf-overall-points", scoring.PerfOverallPoints, "points for overall experience")
	flags.Float64("score-perf-recommend-points", scoring.PerfRecommendPoints, "points for would recommend")
	flags.Float64("score-perf-opening-hours-points", scoring.PerfOpeningHoursPoints, "points for opening hours")
	flags.Float64("score-perf-phone-points", scoring.PerfPhonePoints, "points for getting through by phone")
	flags.Float64("score-perf-appointment-points", scoring.PerfAppointmentPoints, "points for appointment experience")

	flags.String("fetcher", config.FetcherHTTP, "fetch engine (http or browser)")
	flags.String("user-agent", "", "User-Agent header")
	flags.Duration("request-timeout", 30*time.Second, "per-request timeout")
	flags.Int("max-concurrency", 4, "concurrent fetches")
	flags.Int("rate-limit-ms", 500, "minimum delay between fetch starts")
	flags.Int("max-retries", 3, "attempts per fetch")
	flags.String("chrome-bin", "", "Chrome binary for the browser fetcher")

	flags.String("csv-output-path", "./output/gp_practices.csv", "CSV output file (empty disables)")
	flags.String("json-output-path", "", "JSON lines output file (empty disables)")
	flags.Bool("postgres-enabled", false, "store results in PostgreSQL")
	flags.Int("top-n", 10, "practices shown in the ranking")

	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(flagKey(f.Name), f)
	})

	return cmd
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := utils.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger.Info("=== NHS GP crawl %s starting ===", runID)
	logger.Info("Config: postcode %s | limit %d | fetcher %s | concurrency %d | rate %dms",
		cfg.Postcode, cfg.CrawlLimit, cfg.Fetcher, cfg.MaxConcurrency, cfg.RateLimitMs)

	f, err := newFetcher(cfg, logger)
	if err != nil {
		return err
	}
	defer f.Close()

	sink, pg, err := newSink(ctx, cfg, runID, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("Closing outputs: %v", err)
		}
	}()

	res, err := nhs.New(cfg, runID, f, sink, logger).Run(ctx)
	if err != nil {
		logger.Warn("%v, reporting partial results", err)
	}
	if len(res.Records) == 0 {
		logger.Warn("No practices were scored")
	}

	records := res.Records
	if pg != nil {
		stored, err := pg.FetchRun(context.WithoutCancel(ctx), runID)
		if err != nil {
			logger.Error("Failed to read run %s back from PostgreSQL: %v", runID, err)
		} else {
			records = stored
		}
	}

	ranking := services.NewRankingService(logger)
	report := ranking.Generate(records, cfg.TopN)
	report.RunID = runID
	report.Postcode = cfg.Postcode
	ranking.Print(report)

	if cfg.CSVOutputPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  Done. CSV -> %s\n\n", cfg.CSVOutputPath)
	}
	return nil
}

func newFetcher(cfg *config.Config, logger *utils.Logger) (fetcher.Fetcher, error) {
	switch cfg.Fetcher {
	case config.FetcherBrowser:
		return fetcher.NewBrowserFetcher(fetcher.BrowserConfig{
			ChromeBin:  cfg.ChromeBin,
			UserAgent:  cfg.UserAgent,
			Timeout:    cfg.RequestTimeout,
			MaxRetries: cfg.MaxRetries,
		}, logger)
	default:
		return fetcher.NewCollyFetcher(fetcher.CollyConfig{
			UserAgent:   cfg.UserAgent,
			Timeout:     cfg.RequestTimeout,
			Parallelism: cfg.MaxConcurrency,
			MaxRetries:  cfg.MaxRetries,
		}, logger)
	}
}

// newSink opens every configured output. The PostgreSQL writer is also
// returned on its own so the report can be read back from it.
func newSink(ctx context.Context, cfg *config.Config, runID string, logger *utils.Logger) (*storage.MultiWriter, *storage.PostgresWriter, error) {
	var (
		writers []storage.RecordWriter
		pg      *storage.PostgresWriter
	)
	closeAll := func() {
		_ = storage.NewMultiWriter(writers...).Close()
	}

	if cfg.CSVOutputPath != "" {
		w, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, w)
		logger.Info("Writing CSV to %s", cfg.CSVOutputPath)
	}

	if cfg.JSONOutputPath != "" {
		w, err := storage.NewJSONLinesWriter(cfg.JSONOutputPath)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		writers = append(writers, w)
		logger.Info("Writing JSON lines to %s", cfg.JSONOutputPath)
	}

	if cfg.PostgresEnabled {
		w, err := storage.NewPostgresWriter(ctx, cfg.DSN(), runID)
		if err != nil {
			closeAll()
			logger.Error("Make sure PostgreSQL is running: docker compose up -d")
			return nil, nil, err
		}
		writers = append(writers, w)
		pg = w
		logger.Info("Writing to PostgreSQL (table: gp_practices, run %s)", runID)
	}

	return storage.NewMultiWriter(writers...), pg, nil
}
