package storage

import (
	"context"

	"nhs-gp-scraper/models"
)

// RecordWriter is the interface any output sink must satisfy. Write is
// called once per finished record, possibly from several goroutines.
type RecordWriter interface {
	Write(ctx context.Context, rec *models.ScoredRecord) error
	Close() error
}
