package nhs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"nhs-gp-scraper/config"
	"nhs-gp-scraper/fetcher"
	"nhs-gp-scraper/models"
	"nhs-gp-scraper/storage"
	"nhs-gp-scraper/utils"
)

// Stats summarises one crawl.
type Stats struct {
	PagesFetched       int
	FetchFailures      int
	StageFailures      int
	ListingsDispatched int
	RecordsEmitted     int
	Duration           time.Duration
}

// Result is what a finished crawl returns.
type Result struct {
	RunID   string
	Records []*models.ScoredRecord
	Stats   Stats
}

// Crawler drives the pipeline: it fetches every request the stages emit on a
// worker pool and hands finished records to the sink. A Crawler runs once.
type Crawler struct {
	runID    string
	fetcher  fetcher.Fetcher
	sink     storage.RecordWriter
	pipeline *Pipeline
	budget   *utils.CrawlBudget
	pool     *utils.WorkerPool
	seen     *utils.URLSet
	logger   *utils.Logger

	pagesFetched   atomic.Int64
	fetchFailures  atomic.Int64
	stageFailures  atomic.Int64
	recordsEmitted atomic.Int64

	mu      sync.Mutex
	records []*models.ScoredRecord
}

// New creates a ready-to-use Crawler for one run.
func New(cfg *config.Config, runID string, f fetcher.Fetcher, sink storage.RecordWriter, logger *utils.Logger) *Crawler {
	budget := utils.NewCrawlBudget(cfg.CrawlLimit)
	return &Crawler{
		runID:    runID,
		fetcher:  f,
		sink:     sink,
		pipeline: NewPipeline(cfg.Query(), cfg.Scoring(), budget, cfg.StartURL, logger),
		budget:   budget,
		pool:     utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		seen:     utils.NewURLSet(),
		logger:   logger,
		records:  make([]*models.ScoredRecord, 0),
	}
}

// Run crawls until every dispatched chain has finished or ctx is cancelled.
// Chain failures are counted and logged; they never fail the run. On
// cancellation the records gathered so far are returned with ctx's error.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	c.logger.Info("[nhs] Starting crawl %s (fetcher: %s, limit: %d)",
		c.runID, c.fetcher.Name(), c.budget.Limit())

	c.schedule(ctx, c.pipeline.Start())
	c.pool.Wait()

	res := c.result(time.Since(start))
	c.logger.Info("[nhs] Crawl %s done: %d pages, %d listings, %d records, %d fetch failures, %d stage failures in %s",
		c.runID, res.Stats.PagesFetched, res.Stats.ListingsDispatched, res.Stats.RecordsEmitted,
		res.Stats.FetchFailures, res.Stats.StageFailures, res.Stats.Duration.Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("crawl interrupted: %w", err)
	}
	return res, nil
}

func (c *Crawler) schedule(ctx context.Context, req *Request) {
	if key, ok := req.dedupeKey(); ok && !c.seen.Add(key) {
		c.logger.Debug("[nhs] Already fetched %s, skipping", key)
		return
	}
	c.pool.Submit(ctx, func() {
		c.process(ctx, req)
	})
}

// process performs one state transition: fetch, handle, then schedule the
// follow-ups and emit the record, if any.
func (c *Crawler) process(ctx context.Context, req *Request) {
	resp, err := c.fetcher.Fetch(ctx, req.fetchRequest())
	if err != nil {
		if ctx.Err() == nil {
			c.fetchFailures.Add(1)
			c.logger.Error("[nhs] %s fetch %s failed: %v", req.State, req.URL, err)
		}
		return
	}
	c.pagesFetched.Add(1)

	page, err := NewPage(resp)
	if err != nil {
		c.stageFailures.Add(1)
		c.logger.Error("[nhs] %s parse %s failed: %v", req.State, req.URL, err)
		return
	}

	out, err := c.pipeline.Handle(page, req)
	if err != nil {
		c.stageFailures.Add(1)
		if errors.Is(err, ErrMissingPerformanceLink) {
			c.logger.Warn("[nhs] Dropping practice: %v", err)
		} else {
			c.logger.Error("[nhs] %v", err)
		}
		return
	}

	if out.Record != nil {
		c.emit(ctx, out.Record)
	}
	for _, next := range out.Requests {
		c.schedule(ctx, next)
	}
}

func (c *Crawler) emit(ctx context.Context, rec *models.ScoredRecord) {
	c.recordsEmitted.Add(1)

	c.mu.Lock()
	c.records = append(c.records, rec)
	c.mu.Unlock()

	if c.sink == nil {
		return
	}
	if err := c.sink.Write(ctx, rec); err != nil {
		c.logger.Error("[nhs] Writing %s: %v", rec.URL, err)
	}
}

func (c *Crawler) result(elapsed time.Duration) *Result {
	c.mu.Lock()
	records := make([]*models.ScoredRecord, len(c.records))
	copy(records, c.records)
	c.mu.Unlock()

	return &Result{
		RunID:   c.runID,
		Records: records,
		Stats: Stats{
			PagesFetched:       int(c.pagesFetched.Load()),
			FetchFailures:      int(c.fetchFailures.Load()),
			StageFailures:      int(c.stageFailures.Load()),
			ListingsDispatched: c.budget.Used(),
			RecordsEmitted:     int(c.recordsEmitted.Load()),
			Duration:           elapsed,
		},
	}
}
