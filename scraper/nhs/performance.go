package nhs

import (
	"github.com/PuerkitoBio/goquery"

	"nhs-gp-scraper/models"
	"nhs-gp-scraper/services"
)

// handlePerformance reads the recognised metric blocks into rec and scores
// it. This is the last stage: it never requests another page.
func (p *Pipeline) handlePerformance(page *Page, rec *models.PartialRecord) (*Outcome, error) {
	if rec == nil {
		return nil, ErrNoRecord
	}

	page.Doc.Find(metricItemSelector).Each(func(_ int, block *goquery.Selection) {
		label := text(block.Find(metricLabelSelector).First())
		metric, ok := services.ClassifyMetric(label)
		if !ok {
			return
		}

		value, err := services.ParseNumber(text(block.Find(metricValueSelector).First()))
		if err != nil {
			p.logger.Warn("[nhs] %s on %s: %v", metric, page.URL(), err)
			return
		}
		if !rec.SetMetric(metric, value) {
			p.logger.Debug("[nhs] Duplicate %s on %s ignored", metric, page.URL())
		}
	})

	scored := services.Finalize(rec, p.scoring)
	p.logger.Info("[nhs] Scored %q: %.2f (%d metrics)", scored.Name, scored.Score, rec.MetricCount())
	return &Outcome{Record: scored}, nil
}
