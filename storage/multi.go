package storage

import (
	"context"
	"errors"

	"nhs-gp-scraper/models"
)

// MultiWriter fans each record out to every writer. A failing writer does
// not stop the others; all errors are joined.
type MultiWriter struct {
	writers []RecordWriter
}

// NewMultiWriter combines writers. Nil entries are ignored.
func NewMultiWriter(writers ...RecordWriter) *MultiWriter {
	m := &MultiWriter{}
	for _, w := range writers {
		if w != nil {
			m.writers = append(m.writers, w)
		}
	}
	return m
}

// Len returns the number of wrapped writers.
func (m *MultiWriter) Len() int {
	return len(m.writers)
}

func (m *MultiWriter) Write(ctx context.Context, rec *models.ScoredRecord) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
