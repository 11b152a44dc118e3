// Package nhs crawls the NHS GP directory: it submits the practice search,
// walks the paginated results, and follows each practice to its overview and
// Performance pages before scoring it.
package nhs

import (
	"net/http"

	"nhs-gp-scraper/models"
	"nhs-gp-scraper/utils"
)

// Budget hands out listing dispatch slots. Reserve must claim a slot in one
// atomic step; exhausted reports that no slot remains after this call.
type Budget interface {
	Reserve() (granted, exhausted bool)
	Spent() bool
}

// Pipeline is the crawl state machine. Handle runs the stage matching a
// request's state against its fetched page and returns the follow-up
// requests and, from the last stage, the finished record. It never blocks on
// other fetches.
type Pipeline struct {
	query    models.SearchQuery
	scoring  models.ScoringConfig
	budget   Budget
	startURL string
	logger   *utils.Logger
}

// NewPipeline creates a Pipeline. An empty startURL selects DefaultStartURL.
func NewPipeline(query models.SearchQuery, scoring models.ScoringConfig, budget Budget,
	startURL string, logger *utils.Logger) *Pipeline {
	if startURL == "" {
		startURL = DefaultStartURL
	}
	return &Pipeline{
		query:    query,
		scoring:  scoring,
		budget:   budget,
		startURL: startURL,
		logger:   logger,
	}
}

// Start returns the first request of the crawl.
func (p *Pipeline) Start() *Request {
	return &Request{
		Method: http.MethodGet,
		URL:    p.startURL,
		State:  StateSearch,
	}
}

// Handle dispatches page to the stage named by req.State. Errors are
// *StageError values and only concern req's own chain.
func (p *Pipeline) Handle(page *Page, req *Request) (*Outcome, error) {
	var (
		out *Outcome
		err error
	)
	switch req.State {
	case StateSearch:
		out, err = p.handleSearch(page)
	case StateListing:
		out, err = p.handleListing(page)
	case StateDetail:
		out, err = p.handleDetail(page, req.Record)
	case StatePerformance:
		out, err = p.handlePerformance(page, req.Record)
	default:
		err = ErrUnknownState
	}
	if err != nil {
		return nil, &StageError{State: req.State, URL: page.URL(), Err: err}
	}
	return out, nil
}
