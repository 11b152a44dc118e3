package nhs

import (
	"net/http"
	"net/url"

	"nhs-gp-scraper/fetcher"
	"nhs-gp-scraper/models"
)

// State tags a request with the stage that will handle its response.
type State int

const (
	// StateSearch handles the search landing page.
	StateSearch State = iota
	// StateListing handles a page of search results.
	StateListing
	// StateDetail handles a practice overview page.
	StateDetail
	// StatePerformance handles a practice's Performance tab.
	StatePerformance
	// StateDone marks a finished chain.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateSearch:
		return "search"
	case StateListing:
		return "listing"
	case StateDetail:
		return "detail"
	case StatePerformance:
		return "performance"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Request is a follow-up fetch emitted by a stage. Record is the partial
// practice record owned by this chain; it travels with the request and comes
// back with the response.
type Request struct {
	Method string
	URL    string
	Form   url.Values
	State  State
	Record *models.PartialRecord
}

// Outcome is what one stage transition produces.
type Outcome struct {
	Requests []*Request
	Record   *models.ScoredRecord
}

func (r *Request) fetchRequest() *fetcher.Request {
	return &fetcher.Request{
		Method: r.method(),
		URL:    r.URL,
		Form:   r.Form,
	}
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// dedupeKey identifies GET requests that should only be fetched once per
// run. Form submissions are never de-duplicated.
func (r *Request) dedupeKey() (string, bool) {
	if r.method() != http.MethodGet {
		return "", false
	}
	return r.URL, true
}
