package nhs

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"nhs-gp-scraper/fetcher"
	"nhs-gp-scraper/services"
)

// Page is a fetched page ready for extraction: CSS selection through
// goquery, XPath landmarks through htmlquery.
type Page struct {
	resp *fetcher.Response
	Doc  *goquery.Document
}

// NewPage parses a fetched response.
func NewPage(resp *fetcher.Response) (*Page, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	return &Page{resp: resp, Doc: doc}, nil
}

// URL is the page's own absolute address.
func (p *Page) URL() string {
	return p.resp.URL.String()
}

// Resolve makes href absolute against the page address.
func (p *Page) Resolve(href string) (string, error) {
	return p.resp.Resolve(href)
}

// xpathText returns the normalised text of the first node matching expr.
func (p *Page) xpathText(expr string) (string, bool, error) {
	if len(p.Doc.Nodes) == 0 {
		return "", false, nil
	}
	node, err := htmlquery.Query(p.Doc.Nodes[0], expr)
	if err != nil {
		return "", false, err
	}
	if node == nil {
		return "", false, nil
	}
	return services.NormaliseText(htmlquery.InnerText(node)), true, nil
}

// xpathAttr returns attribute attr of the first node matching expr.
func (p *Page) xpathAttr(expr, attr string) (string, bool, error) {
	if len(p.Doc.Nodes) == 0 {
		return "", false, nil
	}
	node, err := htmlquery.Query(p.Doc.Nodes[0], expr)
	if err != nil {
		return "", false, err
	}
	if node == nil {
		return "", false, nil
	}
	v := strings.TrimSpace(htmlquery.SelectAttr(node, attr))
	return v, v != "", nil
}

// text returns the normalised text content of the selection.
func text(s *goquery.Selection) string {
	return services.NormaliseText(s.Text())
}

// firstOwnText returns the first non-blank text node directly inside the
// selection, ignoring text of child elements.
func firstOwnText(s *goquery.Selection) string {
	var found string
	s.Contents().EachWithBreak(func(_ int, c *goquery.Selection) bool {
		if goquery.NodeName(c) != "#text" {
			return true
		}
		if t := services.NormaliseText(c.Text()); t != "" {
			found = t
			return false
		}
		return true
	})
	return found
}
