package utils

import "sync/atomic"

// CrawlBudget counts listings dispatched during a run and refuses new ones
// once the limit is reached. It is safe for concurrent use.
type CrawlBudget struct {
	limit int64
	used  atomic.Int64
}

// NewCrawlBudget creates a budget allowing at most limit dispatches.
func NewCrawlBudget(limit int) *CrawlBudget {
	if limit < 0 {
		limit = 0
	}
	return &CrawlBudget{limit: int64(limit)}
}

// Reserve claims one dispatch slot in a single atomic step. granted reports
// whether the slot was obtained; exhausted reports whether the budget is now
// spent, so the caller must stop dispatching.
func (b *CrawlBudget) Reserve() (granted, exhausted bool) {
	for {
		n := b.used.Load()
		if n >= b.limit {
			return false, true
		}
		if b.used.CompareAndSwap(n, n+1) {
			return true, n+1 >= b.limit
		}
	}
}

// Used returns the number of dispatches granted so far.
func (b *CrawlBudget) Used() int {
	return int(b.used.Load())
}

// Limit returns the configured cap.
func (b *CrawlBudget) Limit() int {
	return int(b.limit)
}

// Spent reports whether no further dispatches will be granted.
func (b *CrawlBudget) Spent() bool {
	return b.used.Load() >= b.limit
}
