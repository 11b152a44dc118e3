package nhs

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction is returned when an expected element is absent from a page.
	ErrExtraction = errors.New("extraction failure")

	// ErrMissingPerformanceLink is returned when a practice page has no
	// Performance tab, so its chain cannot continue.
	ErrMissingPerformanceLink = fmt.Errorf("%w: performance tab link not found", ErrExtraction)

	// ErrNoRecord is returned when a detail or performance response arrives
	// without the record of its chain.
	ErrNoRecord = errors.New("request carries no record")

	// ErrUnknownState is returned for requests tagged with a state that has
	// no handler.
	ErrUnknownState = errors.New("unknown stage")
)

// StageError wraps a failure in one stage for one page.
type StageError struct {
	State State
	URL   string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage %s: %v", e.State, e.URL, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
