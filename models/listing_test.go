package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartialRecordSetOnce(t *testing.T) {
	r := NewPartialRecord(ListingReference{DetailURL: "http://gp.test/1", Distance: 0.8})
	assert.False(t, r.HasDetail())

	assert.True(t, r.SetDetail("Abbey", "http://gp.test/1", []string{"Dr A"}, 100))
	assert.False(t, r.SetDetail("Other", "http://gp.test/x", nil, 5))
	assert.Equal(t, "Abbey", r.Name)
	assert.Equal(t, 100, r.Patients)

	assert.True(t, r.SetMetric(MetricPhone, 60))
	assert.False(t, r.SetMetric(MetricPhone, 10))
	v, ok := r.Metric(MetricPhone)
	assert.True(t, ok)
	assert.InDelta(t, 60, v, 1e-9)

	_, ok = r.Metric(MetricOverall)
	assert.False(t, ok)
	assert.Zero(t, r.MetricOrZero(MetricOverall))
	assert.Equal(t, 1, r.MetricCount())
}

func TestScoredRecordFields(t *testing.T) {
	p := NewPartialRecord(ListingReference{Distance: 1})
	p.SetDetail("Abbey", "http://gp.test/1", []string{"Dr A"}, 100)
	p.SetMetric(MetricRecommend, 90)
	p.SetMetric(MetricAppointment, 70)
	rec := &ScoredRecord{PartialRecord: *p, DoctorCount: 1, PatientsPerDoctor: 100, Score: 42}

	var names []string
	for _, f := range rec.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"distance", "doctor_count", "doctors", "name", "patients", "patients_per_doctor",
		"perf_appointment", "perf_recommend", "url", "score",
	}, names)
}

func TestScoredRecordMarshalJSON(t *testing.T) {
	p := NewPartialRecord(ListingReference{Distance: 2.5})
	p.SetDetail("No Doctors", "http://gp.test/2", nil, 120)
	rec := &ScoredRecord{PartialRecord: *p, PatientsPerDoctor: math.Inf(1), Score: 0}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"distance": 2.5,
		"doctor_count": 0,
		"doctors": [],
		"name": "No Doctors",
		"patients": 120,
		"patients_per_doctor": "Infinity",
		"url": "http://gp.test/2",
		"score": 0
	}`, string(data))
}

func TestScoringConfigMetricPoints(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.PerfRecommendPoints = 30
	cfg.PerfOverallPoints = 10

	assert.InDelta(t, 30, cfg.MetricPoints(MetricRecommend), 1e-9)
	assert.InDelta(t, 10, cfg.MetricPoints(MetricOverall), 1e-9)
	assert.InDelta(t, 100, cfg.MetricPoints(MetricPhone), 1e-9)
	assert.Zero(t, cfg.MetricPoints(Metric("perf_unknown")))
}
