package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	colly "github.com/gocolly/colly/v2"

	"nhs-gp-scraper/utils"
)

// Colly fetcher defaults
const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultRequestTimeout = 30 * time.Second
	defaultRetryDelay     = 2 * time.Second
)

// CollyConfig configures the plain-HTTP fetcher.
type CollyConfig struct {
	UserAgent   string
	Timeout     time.Duration
	Parallelism int
	MaxRetries  int
	RetryDelay  time.Duration
}

// CollyFetcher fetches pages over HTTP with a colly collector. Every fetch
// runs on a clone of one base collector so that concurrent fetches share the
// transport and limits but not their callbacks.
type CollyFetcher struct {
	base   *colly.Collector
	retry  *utils.RetryConfig
	logger *utils.Logger
}

// NewCollyFetcher builds a synchronous collector from cfg.
func NewCollyFetcher(cfg CollyConfig, logger *utils.Logger) (*CollyFetcher, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}

	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
	)
	c.SetRequestTimeout(cfg.Timeout)

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("colly: set limit: %w", err)
	}

	return &CollyFetcher{
		base: c,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryDelay,
			Logger:      logger,
		},
		logger: logger,
	}, nil
}

func (f *CollyFetcher) Name() string { return "colly" }

func (f *CollyFetcher) Close() error { return nil }

// Fetch retrieves the page, retrying transient failures. 4xx responses other
// than 429 are not retried.
func (f *CollyFetcher) Fetch(ctx context.Context, req *Request) (*Response, error) {
	var resp *Response
	err := f.retry.Do(ctx, req.String(), func() error {
		r, err := f.fetchOnce(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *CollyFetcher) fetchOnce(ctx context.Context, req *Request) (*Response, error) {
	c := f.base.Clone()
	c.Context = ctx

	var captured *colly.Response
	c.OnResponse(func(r *colly.Response) {
		captured = r
	})

	var body io.Reader
	hdr := http.Header{}
	if req.method() == http.MethodPost {
		body = strings.NewReader(req.Form.Encode())
		hdr.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	f.logger.Debug("[fetch] %s", req)
	if err := c.Request(req.method(), req.URL, body, nil, hdr); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, req, err)
	}
	if captured == nil {
		return nil, fmt.Errorf("%w: %s: no response", ErrFetch, req)
	}

	if !isSuccess(captured.StatusCode) {
		statusErr := &StatusError{URL: req.URL, StatusCode: captured.StatusCode}
		if isPermanent(captured.StatusCode) {
			return nil, fmt.Errorf("%w (%w)", statusErr, utils.ErrPermanent)
		}
		return nil, statusErr
	}

	return &Response{
		URL:        captured.Request.URL,
		StatusCode: captured.StatusCode,
		Body:       captured.Body,
	}, nil
}
