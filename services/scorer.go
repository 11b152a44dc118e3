package services

import (
	"math"

	"nhs-gp-scraper/models"
)

// Finalize derives doctor_count and patients_per_doctor from a completed
// PartialRecord and scores it. A practice with no listed doctors gets an
// infinite patients-per-doctor ratio, which zeroes its ppd component.
func Finalize(rec *models.PartialRecord, cfg models.ScoringConfig) *models.ScoredRecord {
	scored := &models.ScoredRecord{
		PartialRecord: *rec,
		DoctorCount:   len(rec.Doctors),
	}
	if scored.DoctorCount > 0 {
		scored.PatientsPerDoctor = float64(rec.Patients) / float64(scored.DoctorCount)
	} else {
		scored.PatientsPerDoctor = math.Inf(1)
	}
	scored.Score = Score(scored, cfg)
	return scored
}

// Score returns the suitability score of a record. It depends only on the
// record's values, never on field order.
func Score(rec *models.ScoredRecord, cfg models.ScoringConfig) float64 {
	return Breakdown(rec, cfg).Total()
}

// Breakdown computes the eight score components.
//
// The patients-per-doctor component subtracts from the distance point budget
// rather than MaxPPDPoints; MaxPPDPoints only scales the ratio. Existing
// rankings depend on this.
func Breakdown(rec *models.ScoredRecord, cfg models.ScoringConfig) models.ScoreBreakdown {
	var b models.ScoreBreakdown

	b.Distance = math.Max(cfg.MaxDistancePoints-rec.Distance/cfg.MaxDistance*cfg.MaxDistancePoints, 0)

	b.Doctors = math.Min(float64(rec.DoctorCount)/cfg.MinDoctors*cfg.MinDoctorsPoints, cfg.MinDoctorsPoints)

	ppd := rec.PatientsPerDoctor / cfg.MaxPPD * cfg.MaxPPDPoints
	b.PatientsPerDoc = math.Max(cfg.MaxDistancePoints-ppd, 0)

	b.PerfRecommend = perfScore(rec, cfg, models.MetricRecommend)
	b.PerfOpeningHours = perfScore(rec, cfg, models.MetricOpeningHours)
	b.PerfPhone = perfScore(rec, cfg, models.MetricPhone)
	b.PerfAppointment = perfScore(rec, cfg, models.MetricAppointment)
	b.PerfOverall = perfScore(rec, cfg, models.MetricOverall)

	return b
}

// perfScore is zero for metrics the practice does not publish.
func perfScore(rec *models.ScoredRecord, cfg models.ScoringConfig, m models.Metric) float64 {
	return cfg.MetricPoints(m) * rec.MetricOrZero(m) / 100
}
