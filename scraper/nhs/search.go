package nhs

import (
	"net/http"
	"net/url"
)

// SearchForm builds the practice search submission for a postcode.
func SearchForm(postcode string) url.Values {
	return url.Values{
		"Location.Name":       {postcode},
		"Location.Id":         {searchLocationID},
		"Service.Name":        {searchServiceName},
		"Service.Id":          {searchServiceID},
		"distance":            {searchRadiusMiles},
		"filters.services":    {searchFilterWildcard},
		"filters.metrics":     {searchFilterWildcard},
		"filters.metriclist":  {searchFilterWildcard},
		"filters.servicelist": {searchFilterWildcard},
	}
}

// handleSearch posts the search form back to the landing page's own address.
func (p *Pipeline) handleSearch(page *Page) (*Outcome, error) {
	p.logger.Info("[nhs] Searching for GP practices near %s", p.query.Postcode)
	return &Outcome{
		Requests: []*Request{{
			Method: http.MethodPost,
			URL:    page.URL(),
			Form:   SearchForm(p.query.Postcode),
			State:  StateListing,
		}},
	}, nil
}
