package nhs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nhs-gp-scraper/models"
	"nhs-gp-scraper/utils"
)

const (
	searchURL  = "http://gp.test/Service-Search/GP/LocationSearch/4"
	resultsURL = "http://gp.test/Service-Search/GP/Results?page=1"
)

func newTestPipeline(limit int) *Pipeline {
	return NewPipeline(
		models.SearchQuery{Postcode: "SW1A 1AA", CrawlLimit: limit},
		models.DefaultScoringConfig(),
		utils.NewCrawlBudget(limit),
		searchURL,
		utils.NewNopLogger(),
	)
}

var threeRows = []listingRow{
	{"/practice/1", "Abbey Surgery", "0.5 miles"},
	{"/practice/2", "Bridge Medical Centre", "1.2 miles"},
	{"/practice/3", "Castle Practice", "3 miles"},
}

func requestsIn(out *Outcome, state State) []*Request {
	var reqs []*Request
	for _, r := range out.Requests {
		if r.State == state {
			reqs = append(reqs, r)
		}
	}
	return reqs
}

func TestPipelineStart(t *testing.T) {
	req := newTestPipeline(5).Start()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, searchURL, req.URL)
	assert.Equal(t, StateSearch, req.State)
}

func TestSearchStagePostsForm(t *testing.T) {
	p := newTestPipeline(5)
	page := newTestPage(t, searchURL, `<html><body><form id="search"></form></body></html>`)

	out, err := p.Handle(page, p.Start())
	require.NoError(t, err)
	require.Len(t, out.Requests, 1)
	assert.Nil(t, out.Record)

	req := out.Requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, searchURL, req.URL)
	assert.Equal(t, StateListing, req.State)
	assert.Equal(t, "SW1A 1AA", req.Form.Get("Location.Name"))
	assert.Equal(t, "0", req.Form.Get("Location.Id"))
	assert.Equal(t, "GP", req.Form.Get("Service.Name"))
	assert.Equal(t, "4", req.Form.Get("Service.Id"))
	assert.Equal(t, "25", req.Form.Get("distance"))
	for _, key := range []string{"filters.services", "filters.metrics", "filters.metriclist", "filters.servicelist"} {
		assert.Equal(t, "-1", req.Form.Get(key), key)
	}

	_, dedupe := req.dedupeKey()
	assert.False(t, dedupe, "form submissions are never de-duplicated")
}

func TestListingStageDispatchesRowsAndNextPage(t *testing.T) {
	p := newTestPipeline(10)
	page := newTestPage(t, resultsURL, resultsHTML(threeRows, "/Service-Search/GP/Results?page=2"))

	out, err := p.Handle(page, &Request{URL: resultsURL, State: StateListing})
	require.NoError(t, err)

	details := requestsIn(out, StateDetail)
	require.Len(t, details, 3)
	wantDistances := []float64{0.5, 1.2, 3}
	for i, req := range details {
		assert.Equal(t, fmt.Sprintf("http://gp.test/practice/%d", i+1), req.URL)
		require.NotNil(t, req.Record)
		assert.InDelta(t, wantDistances[i], req.Record.Distance, 1e-9)
		assert.False(t, req.Record.HasDetail())
	}

	next := requestsIn(out, StateListing)
	require.Len(t, next, 1)
	assert.Equal(t, "http://gp.test/Service-Search/GP/Results?page=2", next[0].URL)
	assert.Equal(t, http.MethodGet, next[0].Method)
}

func TestListingStageStopsAtCrawlLimit(t *testing.T) {
	p := newTestPipeline(2)
	page := newTestPage(t, resultsURL, resultsHTML(threeRows, "/Service-Search/GP/Results?page=2"))

	out, err := p.Handle(page, &Request{URL: resultsURL, State: StateListing})
	require.NoError(t, err)

	details := requestsIn(out, StateDetail)
	require.Len(t, details, 2)
	assert.Equal(t, "http://gp.test/practice/1", details[0].URL)
	assert.Equal(t, "http://gp.test/practice/2", details[1].URL)
	assert.Empty(t, requestsIn(out, StateListing), "no next page once the limit is reached")
}

func TestListingStageLimitEqualToRows(t *testing.T) {
	p := newTestPipeline(3)
	page := newTestPage(t, resultsURL, resultsHTML(threeRows, "/Service-Search/GP/Results?page=2"))

	out, err := p.Handle(page, &Request{URL: resultsURL, State: StateListing})
	require.NoError(t, err)
	assert.Len(t, requestsIn(out, StateDetail), 3)
	assert.Empty(t, requestsIn(out, StateListing))
}

func TestListingStageZeroLimit(t *testing.T) {
	p := newTestPipeline(0)
	page := newTestPage(t, resultsURL, resultsHTML(threeRows, "/Service-Search/GP/Results?page=2"))

	out, err := p.Handle(page, &Request{URL: resultsURL, State: StateListing})
	require.NoError(t, err)
	assert.Empty(t, out.Requests)
}

func TestListingStageLimitSharedAcrossPages(t *testing.T) {
	p := newTestPipeline(4)

	first := newTestPage(t, resultsURL, resultsHTML(threeRows, "/Service-Search/GP/Results?page=2"))
	out, err := p.Handle(first, &Request{URL: resultsURL, State: StateListing})
	require.NoError(t, err)
	assert.Len(t, requestsIn(out, StateDetail), 3)
	require.Len(t, requestsIn(out, StateListing), 1)

	second := newTestPage(t, "http://gp.test/Service-Search/GP/Results?page=2", resultsHTML([]listingRow{
		{"/practice/4", "Dale Surgery", "4.1 miles"},
		{"/practice/5", "Elm Tree Practice", "4.4 miles"},
	}, "/Service-Search/GP/Results?page=3"))
	out, err = p.Handle(second, &Request{URL: second.URL(), State: StateListing})
	require.NoError(t, err)

	details := requestsIn(out, StateDetail)
	require.Len(t, details, 1)
	assert.Equal(t, "http://gp.test/practice/4", details[0].URL)
	assert.Empty(t, requestsIn(out, StateListing))
}

func TestListingStageSkipsIncompleteRows(t *testing.T) {
	p := newTestPipeline(10)
	rows := []listingRow{
		{"/practice/1", "Abbey Surgery", "0.5 miles"},
		{"/practice/2", "Bridge Medical Centre", ""},
		{"", "", "9 miles"},
		{"/practice/3", "Castle Practice", "3 miles"},
	}
	page := newTestPage(t, resultsURL, resultsHTML(rows, ""))

	out, err := p.Handle(page, &Request{URL: resultsURL, State: StateListing})
	require.NoError(t, err)

	details := requestsIn(out, StateDetail)
	require.Len(t, details, 2)
	assert.Equal(t, "http://gp.test/practice/1", details[0].URL)
	assert.InDelta(t, 0.5, details[0].Record.Distance, 1e-9)
	assert.Equal(t, "http://gp.test/practice/3", details[1].URL)
	assert.InDelta(t, 3.0, details[1].Record.Distance, 1e-9)
	assert.Empty(t, requestsIn(out, StateListing))
}

func TestDetailStage(t *testing.T) {
	p := newTestPipeline(10)
	rec := models.NewPartialRecord(models.ListingReference{DetailURL: "http://gp.test/practice/1", Distance: 0.5})
	page := newTestPage(t, "http://gp.test/practice/1",
		detailHTML("Abbey Surgery", []string{" Dr A Khan ", "Dr B Jones", "  "}, "8,000", "/practice/1/performance"))

	out, err := p.Handle(page, &Request{URL: page.URL(), State: StateDetail, Record: rec})
	require.NoError(t, err)
	assert.Nil(t, out.Record)
	require.Len(t, out.Requests, 1)

	next := out.Requests[0]
	assert.Equal(t, StatePerformance, next.State)
	assert.Equal(t, "http://gp.test/practice/1/performance", next.URL)
	assert.Same(t, rec, next.Record)

	assert.Equal(t, "Abbey Surgery", rec.Name)
	assert.Equal(t, "http://gp.test/practice/1", rec.URL)
	assert.Equal(t, []string{"Dr A Khan", "Dr B Jones"}, rec.Doctors)
	assert.Equal(t, 8000, rec.Patients)
	assert.InDelta(t, 0.5, rec.Distance, 1e-9)
}

func TestDetailStageDefaults(t *testing.T) {
	p := newTestPipeline(10)
	rec := models.NewPartialRecord(models.ListingReference{Distance: 1})
	page := newTestPage(t, "http://gp.test/practice/9", detailHTML("", nil, "", "perf"))

	out, err := p.Handle(page, &Request{URL: page.URL(), State: StateDetail, Record: rec})
	require.NoError(t, err)
	require.Len(t, out.Requests, 1)
	assert.Equal(t, "http://gp.test/practice/perf", out.Requests[0].URL)

	assert.Empty(t, rec.Name)
	assert.Empty(t, rec.Doctors)
	assert.Zero(t, rec.Patients)
	assert.True(t, rec.HasDetail())
}

func TestDetailStageMissingPerformanceLink(t *testing.T) {
	p := newTestPipeline(10)
	rec := models.NewPartialRecord(models.ListingReference{Distance: 1})
	page := newTestPage(t, "http://gp.test/practice/2", detailHTML("Bridge Medical Centre", []string{"Dr C"}, "1200", ""))

	out, err := p.Handle(page, &Request{URL: page.URL(), State: StateDetail, Record: rec})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrMissingPerformanceLink)
	assert.ErrorIs(t, err, ErrExtraction)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StateDetail, stageErr.State)
	assert.Equal(t, "http://gp.test/practice/2", stageErr.URL)
}

func TestPerformanceStage(t *testing.T) {
	p := newTestPipeline(10)
	rec := models.NewPartialRecord(models.ListingReference{Distance: 0.5})
	rec.SetDetail("Abbey Surgery", "http://gp.test/practice/1", []string{"Dr A", "Dr B"}, 8000)

	blocks := append([]metricBlock{}, fullMetrics...)
	blocks = append(blocks, metricBlock{"Would recommend this surgery (last year)", "10%"})
	page := newTestPage(t, "http://gp.test/practice/1/performance", performanceHTML(blocks))

	out, err := p.Handle(page, &Request{URL: page.URL(), State: StatePerformance, Record: rec})
	require.NoError(t, err)
	assert.Empty(t, out.Requests, "performance is the last stage")
	require.NotNil(t, out.Record)

	got := out.Record
	assert.Equal(t, 5, got.MetricCount())
	for m, want := range map[models.Metric]float64{
		models.MetricRecommend:    87,
		models.MetricOpeningHours: 70,
		models.MetricPhone:        60,
		models.MetricAppointment:  80,
		models.MetricOverall:      75,
	} {
		v, ok := got.Metric(m)
		require.True(t, ok, m)
		assert.InDelta(t, want, v, 1e-9, m)
	}

	assert.Equal(t, 2, got.DoctorCount)
	assert.InDelta(t, 4000, got.PatientsPerDoctor, 1e-9)
	// distance 75 + doctors 50 + ratio 20 + metrics 372
	assert.InDelta(t, 517, got.Score, 1e-9)
}

func TestPerformanceStageWithoutMetrics(t *testing.T) {
	p := newTestPipeline(10)
	rec := models.NewPartialRecord(models.ListingReference{Distance: 1})
	rec.SetDetail("Quiet Surgery", "http://gp.test/practice/7", nil, 120)
	page := newTestPage(t, "http://gp.test/practice/7/performance", `<html><body><p>No data</p></body></html>`)

	out, err := p.Handle(page, &Request{URL: page.URL(), State: StatePerformance, Record: rec})
	require.NoError(t, err)
	require.NotNil(t, out.Record)
	assert.Zero(t, out.Record.MetricCount())
	assert.Zero(t, out.Record.DoctorCount)
	// distance 50, nothing else
	assert.InDelta(t, 50, out.Record.Score, 1e-9)
}

func TestHandleRejectsBadRequests(t *testing.T) {
	p := newTestPipeline(10)
	page := newTestPage(t, "http://gp.test/practice/1", detailHTML("A", nil, "", "perf"))

	_, err := p.Handle(page, &Request{URL: page.URL(), State: StateDetail})
	assert.ErrorIs(t, err, ErrNoRecord)

	_, err = p.Handle(page, &Request{URL: page.URL(), State: StatePerformance})
	assert.ErrorIs(t, err, ErrNoRecord)

	_, err = p.Handle(page, &Request{URL: page.URL(), State: StateDone})
	assert.ErrorIs(t, err, ErrUnknownState)
}

func TestRequestDedupeKey(t *testing.T) {
	key, ok := (&Request{URL: "http://gp.test/a"}).dedupeKey()
	assert.True(t, ok)
	assert.Equal(t, "http://gp.test/a", key)

	_, ok = (&Request{Method: http.MethodPost, URL: "http://gp.test/a"}).dedupeKey()
	assert.False(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "search", StateSearch.String())
	assert.Equal(t, "performance", StatePerformance.String())
	assert.Equal(t, "unknown", State(42).String())
}
