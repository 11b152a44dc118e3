package models

// ScoringConfig holds the weights and thresholds of the suitability score.
// It is supplied once per run and never changes while the crawl is running.
type ScoringConfig struct {
	MaxDistance       float64
	MaxDistancePoints float64

	MaxPPD       float64
	MaxPPDPoints float64

	MinDoctors       float64
	MinDoctorsPoints float64

	PerfOverallPoints      float64
	PerfRecommendPoints    float64
	PerfOpeningHoursPoints float64
	PerfPhonePoints        float64
	PerfAppointmentPoints  float64
}

// DefaultScoringConfig returns the stock weights: 2 miles, 5000 patients per
// doctor, 4 doctors and 100 points for every component.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		MaxDistance:            2,
		MaxDistancePoints:      100,
		MaxPPD:                 5000,
		MaxPPDPoints:           100,
		MinDoctors:             4,
		MinDoctorsPoints:       100,
		PerfOverallPoints:      100,
		PerfRecommendPoints:    100,
		PerfOpeningHoursPoints: 100,
		PerfPhonePoints:        100,
		PerfAppointmentPoints:  100,
	}
}

// MetricPoints returns the point budget for a performance metric.
func (c ScoringConfig) MetricPoints(m Metric) float64 {
	switch m {
	case MetricRecommend:
		return c.PerfRecommendPoints
	case MetricOpeningHours:
		return c.PerfOpeningHoursPoints
	case MetricPhone:
		return c.PerfPhonePoints
	case MetricAppointment:
		return c.PerfAppointmentPoints
	case MetricOverall:
		return c.PerfOverallPoints
	}
	return 0
}

// ScoreBreakdown holds the eight components of a score.
type ScoreBreakdown struct {
	Distance         float64
	Doctors          float64
	PatientsPerDoc   float64
	PerfRecommend    float64
	PerfOpeningHours float64
	PerfPhone        float64
	PerfAppointment  float64
	PerfOverall      float64
}

// Total sums every component. No clamping is applied.
func (b ScoreBreakdown) Total() float64 {
	return b.Distance + b.Doctors + b.PatientsPerDoc +
		b.PerfRecommend + b.PerfOpeningHours + b.PerfPhone +
		b.PerfAppointment + b.PerfOverall
}
