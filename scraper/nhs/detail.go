package nhs

import (
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"nhs-gp-scraper/models"
	"nhs-gp-scraper/services"
)

// handleDetail reads the practice overview into rec and requests its
// Performance tab. A missing title or patient count falls back to a neutral
// value; a missing Performance link ends the chain.
func (p *Pipeline) handleDetail(page *Page, rec *models.PartialRecord) (*Outcome, error) {
	if rec == nil {
		return nil, ErrNoRecord
	}

	name := text(page.Doc.Find(nameSelector).First())
	if name == "" {
		p.logger.Debug("[nhs] No practice title on %s", page.URL())
	}

	var doctors []string
	page.Doc.Find(doctorsSelector).Each(func(_ int, li *goquery.Selection) {
		if d := text(li); d != "" {
			doctors = append(doctors, d)
		}
	})

	patients, err := p.extractPatients(page)
	if err != nil {
		return nil, err
	}

	if !rec.SetDetail(name, page.URL(), doctors, patients) {
		p.logger.Warn("[nhs] Detail fields already set for %s, keeping first values", page.URL())
	}

	href, ok, err := page.xpathAttr(performanceLinkXPath, "href")
	if err != nil {
		return nil, fmt.Errorf("performance link query: %w", err)
	}
	if !ok {
		return nil, ErrMissingPerformanceLink
	}
	perfURL, err := page.Resolve(href)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingPerformanceLink, err)
	}

	return &Outcome{
		Requests: []*Request{{
			Method: http.MethodGet,
			URL:    perfURL,
			State:  StatePerformance,
			Record: rec,
		}},
	}, nil
}

// extractPatients finds the value shown under the "Registered patients"
// heading. An absent or unreadable value counts as 0.
func (p *Pipeline) extractPatients(page *Page) (int, error) {
	label, ok, err := page.xpathText(patientsXPath)
	if err != nil {
		return 0, fmt.Errorf("patients query: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := services.ParseCount(label)
	if err != nil {
		p.logger.Warn("[nhs] Patients on %s: %v", page.URL(), err)
		return 0, nil
	}
	return n, nil
}
