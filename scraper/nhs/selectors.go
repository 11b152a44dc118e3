package nhs

// DefaultStartURL is the GP search landing page.
const DefaultStartURL = "http://www.nhs.uk/Service-Search/GP/LocationSearch/4"

// Search results
const (
	listingRowSelector = "table > tbody > tr"
	detailLinkSelector = "th.fctitle > a"
	distanceSelector   = "p.fcdirections"
	nextPageSelector   = "div.pagination * li.next a"
)

// Search form
const (
	searchRadiusMiles    = "25"
	searchServiceName    = "GP"
	searchServiceID      = "4"
	searchLocationID     = "0"
	searchFilterWildcard = "-1"
)

// Practice overview
const (
	nameSelector    = "h1#org-title"
	doctorsSelector = "ul.staff-list > li"

	patientsXPath = `//h4[normalize-space(text())="Registered patients"]/../..` +
		`//span[contains(concat(" ", normalize-space(@class), " "), " indicator-value ")]`

	performanceLinkXPath = `//div[contains(concat(" ", normalize-space(@class), " "), " tabs-nav ")]` +
		`//a[normalize-space(.)="Performance"]`
)

// Performance tab
const (
	metricItemSelector  = "div.metrics-wrap * div.metric-item"
	metricLabelSelector = "h4"
	metricValueSelector = "p.metric span.metric-data"
)
