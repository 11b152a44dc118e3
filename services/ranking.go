package services

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"nhs-gp-scraper/models"
	"nhs-gp-scraper/utils"
)

// radiusBands groups practices by distance for the report.
var radiusBands = []struct {
	label string
	max   float64
}{
	{"< 0.5", 0.5},
	{"0.5 - 1", 1},
	{"1 - 2", 2},
	{"2 - 5", 5},
	{"5+", math.Inf(1)},
}

type RankingService struct {
	logger *utils.Logger
}

func NewRankingService(logger *utils.Logger) *RankingService {
	return &RankingService{logger: logger}
}

// Generate ranks the records by score, highest first, ties broken by name,
// and keeps the first topN in the report.
func (s *RankingService) Generate(records []*models.ScoredRecord, topN int) *models.RankingReport {
	report := &models.RankingReport{
		PracticesByRadius: make(map[string]int),
	}

	if len(records) == 0 {
		return report
	}

	ranked := make([]*models.ScoredRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Name < ranked[j].Name
	})

	report.TotalPractices = len(ranked)
	report.Best = ranked[0]
	report.MaxScore = round2(ranked[0].Score)
	report.MinScore = round2(ranked[len(ranked)-1].Score)

	var total float64
	for _, r := range ranked {
		total += r.Score
		if r.MetricCount() == 0 {
			report.WithoutPerfData++
		}
		if r.DoctorCount == 0 {
			report.WithoutDoctors++
		}
		report.PracticesByRadius[radiusBand(r.Distance)]++
	}
	report.AverageScore = round2(total / float64(len(ranked)))

	if topN > 0 && len(ranked) > topN {
		report.Top = ranked[:topN]
	} else {
		report.Top = ranked
	}

	s.logger.Debug("[ranking] Ranked %d practices, best %q (%.2f)",
		report.TotalPractices, report.Best.Name, report.Best.Score)
	return report
}

func (s *RankingService) Print(r *models.RankingReport) {
	fmt.Println()
	if r.TotalPractices == 0 {
		fmt.Println("  No practices were scored")
		fmt.Println()
		return
	}

	title := "GP PRACTICE RANKING"
	if r.Postcode != "" {
		title += " near " + strings.ToUpper(r.Postcode)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"#", "Practice", "Distance", "Doctors", "Patients/Doctor", "Perf", "Score"})
	for i, p := range r.Top {
		t.AppendRow(table.Row{
			i + 1,
			truncate(p.Name, 40),
			fmt.Sprintf("%.1f", p.Distance),
			p.DoctorCount,
			formatRatio(p.PatientsPerDoctor),
			fmt.Sprintf("%d/%d", p.MetricCount(), len(models.Metrics)),
			fmt.Sprintf("%.2f", p.Score),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.Render()

	s2 := table.NewWriter()
	s2.SetOutputMirror(os.Stdout)
	s2.SetStyle(table.StyleLight)
	s2.SetTitle("Summary")
	s2.AppendRows([]table.Row{
		{"Practices scored", r.TotalPractices},
		{"Average score", fmt.Sprintf("%.2f", r.AverageScore)},
		{"Score range", fmt.Sprintf("%.2f - %.2f", r.MinScore, r.MaxScore)},
		{"No performance data", r.WithoutPerfData},
		{"No doctors listed", r.WithoutDoctors},
	})
	for _, band := range radiusBands {
		if n := r.PracticesByRadius[band.label]; n > 0 {
			s2.AppendRow(table.Row{"Distance " + band.label, n})
		}
	}
	s2.Render()
	fmt.Println()
}

func radiusBand(d float64) string {
	for _, band := range radiusBands {
		if d < band.max {
			return band.label
		}
	}
	return radiusBands[len(radiusBands)-1].label
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "n/a"
	}
	return fmt.Sprintf("%.0f", v)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
