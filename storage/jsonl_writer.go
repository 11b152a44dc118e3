package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"nhs-gp-scraper/models"
)

// JSONLinesWriter writes one JSON object per scored practice per line.
// It is safe for concurrent use.
type JSONLinesWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// NewJSONLinesWriter creates (or truncates) the file at path.
func NewJSONLinesWriter(path string) (*JSONLinesWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("jsonl: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("jsonl: create file %q: %w", path, err)
	}
	return &JSONLinesWriter{file: f, buf: bufio.NewWriter(f)}, nil
}

// Write encodes rec on its own line and flushes it.
func (j *JSONLinesWriter) Write(_ context.Context, rec *models.ScoredRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("jsonl: encode %s: %w", rec.URL, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.buf.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("jsonl: write: %w", err)
	}
	return j.buf.Flush()
}

// Close flushes and closes the underlying file.
func (j *JSONLinesWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.buf.Flush(); err != nil {
		_ = j.file.Close()
		return fmt.Errorf("jsonl: flush: %w", err)
	}
	return j.file.Close()
}
