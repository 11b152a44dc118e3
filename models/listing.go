package models

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
)

// Metric is one of the canonical performance fields published on a
// practice's Performance tab.
type Metric string

const (
	MetricRecommend    Metric = "perf_recommend"
	MetricOpeningHours Metric = "perf_opening_hours"
	MetricPhone        Metric = "perf_phone"
	MetricAppointment  Metric = "perf_appointment"
	MetricOverall      Metric = "perf_overall"
)

// Metrics lists every canonical metric in field-name order.
var Metrics = []Metric{
	MetricAppointment,
	MetricOpeningHours,
	MetricOverall,
	MetricPhone,
	MetricRecommend,
}

// SearchQuery is fixed for the whole run.
type SearchQuery struct {
	Postcode   string
	CrawlLimit int
}

// ListingReference is one row of a search results page.
type ListingReference struct {
	DetailURL string
	Distance  float64
}

// PartialRecord accumulates the fields of one practice while its request
// chain moves from the listing page to the detail and performance pages.
// Each stage owns its own fields; once set they are not overwritten.
type PartialRecord struct {
	Distance float64
	Name     string
	URL      string
	Doctors  []string
	Patients int

	detailSet bool
	metrics   map[Metric]float64
}

// NewPartialRecord seeds a record from a listing row.
func NewPartialRecord(ref ListingReference) *PartialRecord {
	return &PartialRecord{Distance: ref.Distance}
}

// SetDetail merges the detail-page fields. It reports false if the detail
// fields were already present.
func (r *PartialRecord) SetDetail(name, url string, doctors []string, patients int) bool {
	if r.detailSet {
		return false
	}
	r.Name = name
	r.URL = url
	r.Doctors = doctors
	r.Patients = patients
	r.detailSet = true
	return true
}

// HasDetail reports whether the detail stage has run for this record.
func (r *PartialRecord) HasDetail() bool {
	return r.detailSet
}

// SetMetric records a published performance value. The first value for a
// metric wins; later attempts return false.
func (r *PartialRecord) SetMetric(m Metric, value float64) bool {
	if r.metrics == nil {
		r.metrics = make(map[Metric]float64, len(Metrics))
	}
	if _, ok := r.metrics[m]; ok {
		return false
	}
	r.metrics[m] = value
	return true
}

// Metric returns the published value for m, if any.
func (r *PartialRecord) Metric(m Metric) (float64, bool) {
	v, ok := r.metrics[m]
	return v, ok
}

// MetricOrZero returns the published value for m, or 0 when absent.
func (r *PartialRecord) MetricOrZero(m Metric) float64 {
	return r.metrics[m]
}

// MetricCount returns how many performance metrics were published.
func (r *PartialRecord) MetricCount() int {
	return len(r.metrics)
}

// ScoredRecord is a finished practice record. It is emitted once and not
// modified afterwards.
type ScoredRecord struct {
	PartialRecord

	DoctorCount       int
	PatientsPerDoctor float64
	Score             float64
}

// Field is a single named value of a ScoredRecord.
type Field struct {
	Name  string
	Value any
}

// Fields returns the record's fields sorted by name, with score last.
// Performance metrics that were not published are omitted.
func (r *ScoredRecord) Fields() []Field {
	fields := []Field{
		{Name: "distance", Value: r.Distance},
		{Name: "doctor_count", Value: r.DoctorCount},
		{Name: "doctors", Value: r.Doctors},
		{Name: "name", Value: r.Name},
		{Name: "patients", Value: r.Patients},
		{Name: "patients_per_doctor", Value: r.PatientsPerDoctor},
		{Name: "url", Value: r.URL},
	}
	for m, v := range r.metrics {
		fields = append(fields, Field{Name: string(m), Value: v})
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})
	return append(fields, Field{Name: "score", Value: r.Score})
}

// MarshalJSON encodes the record as an object whose keys follow Fields().
// Infinite floats, which JSON cannot represent, are written as "Infinity".
func (r *ScoredRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val := f.Value
		if fv, ok := val.(float64); ok && math.IsInf(fv, 1) {
			val = "Infinity"
		}
		if ds, ok := val.([]string); ok && ds == nil {
			val = []string{}
		}
		enc, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		buf.Write(enc)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
