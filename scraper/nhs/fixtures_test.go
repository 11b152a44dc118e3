package nhs

import (
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"nhs-gp-scraper/fetcher"
)

type listingRow struct {
	href     string
	name     string
	distance string
}

func resultsHTML(rows []listingRow, next string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="results"><thead><tr><th>Practice</th></tr></thead><tbody>`)
	for _, r := range rows {
		b.WriteString(`<tr>`)
		if r.href != "" {
			fmt.Fprintf(&b, `<th class="fctitle"><a href="%s">%s</a></th>`, r.href, r.name)
		}
		b.WriteString(`<td>`)
		if r.distance != "" {
			fmt.Fprintf(&b, `<p class="fcdirections">%s <a href="#map">Directions</a></p>`, r.distance)
		}
		b.WriteString(`</td></tr>`)
	}
	b.WriteString(`</tbody></table>`)
	if next != "" {
		fmt.Fprintf(&b, `<div class="pagination"><ul><li class="prev"><a href="#">Previous</a></li>`+
			`<li class="next"><a href="%s">Next</a></li></ul></div>`, next)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func detailHTML(name string, doctors []string, patients, perfHref string) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	if name != "" {
		fmt.Fprintf(&b, `<h1 id="org-title">  %s </h1>`, name)
	}
	b.WriteString(`<div class="tabs-nav"><ul><li><a href="overview">Overview</a></li>`)
	if perfHref != "" {
		fmt.Fprintf(&b, `<li><a href="%s"> Performance </a></li>`, perfHref)
	}
	b.WriteString(`</ul></div><ul class="staff-list">`)
	for _, d := range doctors {
		fmt.Fprintf(&b, `<li>%s</li>`, d)
	}
	b.WriteString(`</ul>`)
	if patients != "" {
		fmt.Fprintf(&b, `<div class="panel"><div class="panel-header"><h4>Registered patients</h4></div>`+
			`<div class="panel-body"><span class="indicator indicator-value">%s</span></div></div>`, patients)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

type metricBlock struct {
	label string
	value string
}

func performanceHTML(blocks []metricBlock) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="metrics-wrap"><div class="row">`)
	for _, m := range blocks {
		fmt.Fprintf(&b, `<div class="metric-item"><h4>%s</h4><p class="metric"><span class="metric-data">%s</span></p></div>`,
			m.label, m.value)
	}
	b.WriteString(`</div></div></body></html>`)
	return b.String()
}

var fullMetrics = []metricBlock{
	{"Would recommend this surgery", "87%"},
	{"Satisfied with opening hours", "70%"},
	{"Positive experience of getting through by phone", "60%"},
	{"Good experience of making an appointment", "80%"},
	{"Confidence and trust in the GP", "95%"},
	{"Good overall experience", "75%"},
}

func newTestPage(t *testing.T, rawURL, html string) *Page {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	page, err := NewPage(&fetcher.Response{URL: u, StatusCode: 200, Body: []byte(html)})
	require.NoError(t, err)
	return page
}
