package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"nhs-gp-scraper/models"
)

const (
	pingAttempts = 10
	pingDelay    = 2 * time.Second
)

// PostgresWriter persists scored practices to PostgreSQL, one row per
// practice per run.
type PostgresWriter struct {
	db    *sqlx.DB
	runID string
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a writer that tags every row with runID.
func NewPostgresWriter(ctx context.Context, dsn, runID string) (*PostgresWriter, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < pingAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(pingDelay):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw, err := NewPostgresWriterFromDB(ctx, db, runID)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return pw, nil
}

// NewPostgresWriterFromDB wraps an open connection and runs migrations.
func NewPostgresWriterFromDB(ctx context.Context, db *sqlx.DB, runID string) (*PostgresWriter, error) {
	pw := &PostgresWriter{db: db, runID: runID}
	if err := pw.migrate(ctx); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS gp_practices (
			id                  SERIAL PRIMARY KEY,
			run_id              TEXT             NOT NULL,
			url                 TEXT             NOT NULL,
			name                TEXT             NOT NULL DEFAULT '',
			distance            DOUBLE PRECISION NOT NULL,
			doctors             TEXT[]           NOT NULL DEFAULT '{}',
			doctor_count        INTEGER          NOT NULL,
			patients            INTEGER          NOT NULL,
			patients_per_doctor DOUBLE PRECISION,
			perf_appointment    DOUBLE PRECISION,
			perf_opening_hours  DOUBLE PRECISION,
			perf_overall        DOUBLE PRECISION,
			perf_phone          DOUBLE PRECISION,
			perf_recommend      DOUBLE PRECISION,
			score               DOUBLE PRECISION NOT NULL,
			created_at          TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
			UNIQUE (run_id, url)
		);

		CREATE INDEX IF NOT EXISTS idx_gp_practices_run   ON gp_practices(run_id);
		CREATE INDEX IF NOT EXISTS idx_gp_practices_score ON gp_practices(score);
	`)
	return err
}

// Write inserts rec under the writer's run. A practice already stored for
// this run is left untouched.
func (pw *PostgresWriter) Write(ctx context.Context, rec *models.ScoredRecord) error {
	doctors := rec.Doctors
	if doctors == nil {
		doctors = []string{}
	}

	_, err := pw.db.ExecContext(ctx, `
		INSERT INTO gp_practices (
			run_id, url, name, distance, doctors, doctor_count, patients,
			patients_per_doctor, perf_appointment, perf_opening_hours,
			perf_overall, perf_phone, perf_recommend, score
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id, url) DO NOTHING
	`,
		pw.runID, rec.URL, rec.Name, rec.Distance, pq.Array(doctors), rec.DoctorCount, rec.Patients,
		finiteOrNull(rec.PatientsPerDoctor),
		metricOrNull(rec, models.MetricAppointment),
		metricOrNull(rec, models.MetricOpeningHours),
		metricOrNull(rec, models.MetricOverall),
		metricOrNull(rec, models.MetricPhone),
		metricOrNull(rec, models.MetricRecommend),
		rec.Score,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert %s: %w", rec.URL, err)
	}
	return nil
}

// practiceRow mirrors one gp_practices row.
type practiceRow struct {
	URL               string          `db:"url"`
	Name              string          `db:"name"`
	Distance          float64         `db:"distance"`
	Doctors           pq.StringArray  `db:"doctors"`
	DoctorCount       int             `db:"doctor_count"`
	Patients          int             `db:"patients"`
	PatientsPerDoctor sql.NullFloat64 `db:"patients_per_doctor"`
	PerfAppointment   sql.NullFloat64 `db:"perf_appointment"`
	PerfOpeningHours  sql.NullFloat64 `db:"perf_opening_hours"`
	PerfOverall       sql.NullFloat64 `db:"perf_overall"`
	PerfPhone         sql.NullFloat64 `db:"perf_phone"`
	PerfRecommend     sql.NullFloat64 `db:"perf_recommend"`
	Score             float64         `db:"score"`
}

// FetchRun retrieves the practices stored for runID, best score first.
func (pw *PostgresWriter) FetchRun(ctx context.Context, runID string) ([]*models.ScoredRecord, error) {
	var rows []practiceRow
	err := pw.db.SelectContext(ctx, &rows, `
		SELECT url, name, distance, doctors, doctor_count, patients,
		       patients_per_doctor, perf_appointment, perf_opening_hours,
		       perf_overall, perf_phone, perf_recommend, score
		FROM gp_practices
		WHERE run_id = $1
		ORDER BY score DESC, name ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch run %s: %w", runID, err)
	}

	records := make([]*models.ScoredRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].record())
	}
	return records, nil
}

func (r *practiceRow) record() *models.ScoredRecord {
	partial := models.NewPartialRecord(models.ListingReference{DetailURL: r.URL, Distance: r.Distance})
	partial.SetDetail(r.Name, r.URL, []string(r.Doctors), r.Patients)

	for m, v := range map[models.Metric]sql.NullFloat64{
		models.MetricAppointment:  r.PerfAppointment,
		models.MetricOpeningHours: r.PerfOpeningHours,
		models.MetricOverall:      r.PerfOverall,
		models.MetricPhone:        r.PerfPhone,
		models.MetricRecommend:    r.PerfRecommend,
	} {
		if v.Valid {
			partial.SetMetric(m, v.Float64)
		}
	}

	ppd := math.Inf(1)
	if r.PatientsPerDoctor.Valid {
		ppd = r.PatientsPerDoctor.Float64
	}
	return &models.ScoredRecord{
		PartialRecord:     *partial,
		DoctorCount:       r.DoctorCount,
		PatientsPerDoctor: ppd,
		Score:             r.Score,
	}
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// finiteOrNull stores +Inf patients-per-doctor as NULL.
func finiteOrNull(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func metricOrNull(rec *models.ScoredRecord, m models.Metric) sql.NullFloat64 {
	v, ok := rec.Metric(m)
	return sql.NullFloat64{Float64: v, Valid: ok}
}
