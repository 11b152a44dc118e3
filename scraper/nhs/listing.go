package nhs

import (
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"nhs-gp-scraper/models"
	"nhs-gp-scraper/services"
)

// handleListing emits one detail request per result row until the crawl
// budget runs out, then follows the next results page if the budget allows.
func (p *Pipeline) handleListing(page *Page) (*Outcome, error) {
	refs := p.extractListings(page)
	out := &Outcome{}

	for _, ref := range refs {
		granted, exhausted := p.budget.Reserve()
		if !granted {
			p.logger.Info("[nhs] Crawl limit reached, dropping remaining listings on %s", page.URL())
			return out, nil
		}
		out.Requests = append(out.Requests, &Request{
			Method: http.MethodGet,
			URL:    ref.DetailURL,
			State:  StateDetail,
			Record: models.NewPartialRecord(ref),
		})
		if exhausted {
			p.logger.Info("[nhs] Crawl limit reached after %s", ref.DetailURL)
			return out, nil
		}
	}

	if p.budget.Spent() {
		return out, nil
	}

	next := page.Doc.Find(nextPageSelector).First()
	href, ok := next.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		p.logger.Debug("[nhs] No next page after %s", page.URL())
		return out, nil
	}
	nextURL, err := page.Resolve(href)
	if err != nil {
		p.logger.Warn("[nhs] Bad next page link %q on %s: %v", href, page.URL(), err)
		return out, nil
	}
	out.Requests = append(out.Requests, &Request{
		Method: http.MethodGet,
		URL:    nextURL,
		State:  StateListing,
	})
	return out, nil
}

// extractListings reads one ListingReference per result row. Link and
// distance are taken from the same row, so a row missing either is skipped
// instead of shifting the pairing of the rows after it.
func (p *Pipeline) extractListings(page *Page) []models.ListingReference {
	var refs []models.ListingReference

	page.Doc.Find(listingRowSelector).Each(func(i int, row *goquery.Selection) {
		link := row.Find(detailLinkSelector).First()
		if link.Length() == 0 {
			return
		}

		href, _ := link.Attr("href")
		label := firstOwnText(row.Find(distanceSelector))
		if strings.TrimSpace(href) == "" || label == "" {
			p.logger.Warn("[nhs] Row %d on %s has no link or distance, skipping", i, page.URL())
			return
		}

		distance, err := services.ParseNumber(label)
		if err != nil {
			p.logger.Warn("[nhs] Row %d on %s: distance %v, skipping", i, page.URL(), err)
			return
		}

		detailURL, err := page.Resolve(href)
		if err != nil {
			p.logger.Warn("[nhs] Row %d on %s: %v, skipping", i, page.URL(), err)
			return
		}

		refs = append(refs, models.ListingReference{
			DetailURL: detailURL,
			Distance:  distance,
		})
	})

	p.logger.Debug("[nhs] %d listings on %s", len(refs), page.URL())
	return refs
}
