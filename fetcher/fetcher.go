// Package fetcher adapts page-fetching engines (plain HTTP via colly, or a
// headless browser via chromedp) to the narrow interface the crawler needs.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrFetch wraps every network or HTTP-level failure.
var ErrFetch = errors.New("fetch failure")

// Request describes one page fetch.
type Request struct {
	Method string
	URL    string
	Form   url.Values
}

// Response is a fetched page.
type Response struct {
	// URL is the final address of the page, after redirects.
	URL        *url.URL
	StatusCode int
	Body       []byte
}

// Fetcher retrieves pages.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
	Name() string
	Close() error
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Unwrap() error {
	return ErrFetch
}

// Document parses the body as HTML.
func (r *Response) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.URL, err)
	}
	doc.Url = r.URL
	return doc, nil
}

// Resolve turns a possibly relative link into an absolute URL against the
// page address.
func (r *Response) Resolve(href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("resolve: empty link on %s", r.URL)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", href, err)
	}
	return r.URL.ResolveReference(ref).String(), nil
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// String identifies the request in logs.
func (r *Request) String() string {
	return r.method() + " " + r.URL
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// isPermanent reports whether a status will not change on retry.
func isPermanent(status int) bool {
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}
