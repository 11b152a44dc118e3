package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"nhs-gp-scraper/models"
)

// Fetcher backends.
const (
	FetcherHTTP    = "http"
	FetcherBrowser = "browser"
)

// Config holds all application configuration.
type Config struct {
	Postcode   string `mapstructure:"postcode"`
	CrawlLimit int    `mapstructure:"crawl_limit"`
	StartURL   string `mapstructure:"start_url"`

	ScoreMaxDistance            float64 `mapstructure:"score_max_distance"`
	ScoreMaxDistancePoints      float64 `mapstructure:"score_max_distance_points"`
	ScoreMaxPPD                 float64 `mapstructure:"score_max_ppd"`
	ScoreMaxPPDPoints           float64 `mapstructure:"score_max_ppd_points"`
	ScoreMinDoctors             float64 `mapstructure:"score_min_doctors"`
	ScoreMinDoctorsPoints       float64 `mapstructure:"score_min_doctors_points"`
	ScorePerfOverallPoints      float64 `mapstructure:"score_perf_overall_points"`
	ScorePerfRecommendPoints    float64 `mapstructure:"score_perf_recommend_points"`
	ScorePerfOpeningHoursPoints float64 `mapstructure:"score_perf_opening_hours_points"`
	ScorePerfPhonePoints        float64 `mapstructure:"score_perf_phone_points"`
	ScorePerfAppointmentPoints  float64 `mapstructure:"score_perf_appointment_points"`

	Fetcher        string        `mapstructure:"fetcher"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	RateLimitMs    int           `mapstructure:"rate_limit_ms"`
	MaxRetries     int           `mapstructure:"max_retries"`
	ChromeBin      string        `mapstructure:"chrome_bin"`

	CSVOutputPath  string `mapstructure:"csv_output_path"`
	JSONOutputPath string `mapstructure:"json_output_path"`

	PostgresEnabled  bool   `mapstructure:"postgres_enabled"`
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     string `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`

	LogLevel string `mapstructure:"log_level"`
	TopN     int    `mapstructure:"top_n"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	scoring := models.DefaultScoringConfig()

	v.SetDefault("postcode", "")
	v.SetDefault("crawl_limit", 50)
	v.SetDefault("start_url", "")

	v.SetDefault("score_max_distance", scoring.MaxDistance)
	v.SetDefault("score_max_distance_points", scoring.MaxDistancePoints)
	v.SetDefault("score_max_ppd", scoring.MaxPPD)
	v.SetDefault("score_max_ppd_points", scoring.MaxPPDPoints)
	v.SetDefault("score_min_doctors", scoring.MinDoctors)
	v.SetDefault("score_min_doctors_points", scoring.MinDoctorsPoints)
	v.SetDefault("score_perf_overall_points", scoring.PerfOverallPoints)
	v.SetDefault("score_perf_recommend_points", scoring.PerfRecommendPoints)
	v.SetDefault("score_perf_opening_hours_points", scoring.PerfOpeningHoursPoints)
	v.SetDefault("score_perf_phone_points", scoring.PerfPhonePoints)
	v.SetDefault("score_perf_appointment_points", scoring.PerfAppointmentPoints)

	v.SetDefault("fetcher", FetcherHTTP)
	v.SetDefault("user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("max_concurrency", 4)
	v.SetDefault("rate_limit_ms", 500)
	v.SetDefault("max_retries", 3)
	v.SetDefault("chrome_bin", "")

	v.SetDefault("csv_output_path", "./output/gp_practices.csv")
	v.SetDefault("json_output_path", "")

	v.SetDefault("postgres_enabled", false)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", "5432")
	v.SetDefault("postgres_user", "scraper")
	v.SetDefault("postgres_password", "scraper123")
	v.SetDefault("postgres_db", "gp_db")
	v.SetDefault("postgres_sslmode", "disable")

	v.SetDefault("log_level", "info")
	v.SetDefault("top_n", 10)
}

// Load reads every key from v (defaults, config file, environment and bound
// flags, in viper's precedence order) and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Postcode = strings.TrimSpace(cfg.Postcode)
	cfg.Fetcher = strings.ToLower(strings.TrimSpace(cfg.Fetcher))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the crawl cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Postcode == "" {
		errs = append(errs, errors.New("postcode is required"))
	}
	if c.CrawlLimit < 0 {
		errs = append(errs, fmt.Errorf("crawl_limit must be >= 0, got %d", c.CrawlLimit))
	}
	for key, v := range map[string]float64{
		"score_max_distance": c.ScoreMaxDistance,
		"score_max_ppd":      c.ScoreMaxPPD,
		"score_min_doctors":  c.ScoreMinDoctors,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %g", key, v))
		}
	}
	if c.Fetcher != FetcherHTTP && c.Fetcher != FetcherBrowser {
		errs = append(errs, fmt.Errorf("unknown fetcher %q (want %s or %s)", c.Fetcher, FetcherHTTP, FetcherBrowser))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("max_concurrency must be >= 1, got %d", c.MaxConcurrency))
	}
	if c.RateLimitMs < 0 {
		errs = append(errs, fmt.Errorf("rate_limit_ms must be >= 0, got %d", c.RateLimitMs))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("max_retries must be >= 1, got %d", c.MaxRetries))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Query returns the search parameters of the run.
func (c *Config) Query() models.SearchQuery {
	return models.SearchQuery{
		Postcode:   c.Postcode,
		CrawlLimit: c.CrawlLimit,
	}
}

// Scoring returns the scoring weights and thresholds of the run.
func (c *Config) Scoring() models.ScoringConfig {
	return models.ScoringConfig{
		MaxDistance:            c.ScoreMaxDistance,
		MaxDistancePoints:      c.ScoreMaxDistancePoints,
		MaxPPD:                 c.ScoreMaxPPD,
		MaxPPDPoints:           c.ScoreMaxPPDPoints,
		MinDoctors:             c.ScoreMinDoctors,
		MinDoctorsPoints:       c.ScoreMinDoctorsPoints,
		PerfOverallPoints:      c.ScorePerfOverallPoints,
		PerfRecommendPoints:    c.ScorePerfRecommendPoints,
		PerfOpeningHoursPoints: c.ScorePerfOpeningHoursPoints,
		PerfPhonePoints:        c.ScorePerfPhonePoints,
		PerfAppointmentPoints:  c.ScorePerfAppointmentPoints,
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}
