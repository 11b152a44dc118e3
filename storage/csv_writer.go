package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"nhs-gp-scraper/models"
)

// csvColumns is the header row: Fields() order with every metric present.
var csvColumns = []string{
	"distance",
	"doctor_count",
	"doctors",
	"name",
	"patients",
	"patients_per_doctor",
	string(models.MetricAppointment),
	string(models.MetricOpeningHours),
	string(models.MetricOverall),
	string(models.MetricPhone),
	string(models.MetricRecommend),
	"url",
	"score",
}

// CSVWriter streams scored practices to a CSV file, one row per record.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row and flushes it.
func (c *CSVWriter) Write(_ context.Context, rec *models.ScoredRecord) error {
	row := csvRow(rec)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write(row); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}
	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	return c.file.Close()
}

func csvRow(rec *models.ScoredRecord) []string {
	metric := func(m models.Metric) string {
		v, ok := rec.Metric(m)
		if !ok {
			return ""
		}
		return formatFloat(v)
	}

	return []string{
		formatFloat(rec.Distance),
		strconv.Itoa(rec.DoctorCount),
		strings.Join(rec.Doctors, "; "),
		rec.Name,
		strconv.Itoa(rec.Patients),
		formatFloat(rec.PatientsPerDoctor),
		metric(models.MetricAppointment),
		metric(models.MetricOpeningHours),
		metric(models.MetricOverall),
		metric(models.MetricPhone),
		metric(models.MetricRecommend),
		rec.URL,
		formatFloat(rec.Score),
	}
}

func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
