package models

// RankingReport summarises the scored practices of one run.
type RankingReport struct {
	RunID             string
	Postcode          string
	TotalPractices    int
	WithoutPerfData   int
	WithoutDoctors    int
	AverageScore      float64
	MinScore          float64
	MaxScore          float64
	Best              *ScoredRecord
	Top               []*ScoredRecord
	PracticesByRadius map[string]int
}
