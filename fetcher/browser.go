package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"nhs-gp-scraper/utils"
)

const (
	defaultPageTimeout = 60 * time.Second
	defaultSettleDelay = 500 * time.Millisecond
)

// BrowserConfig configures the headless Chrome fetcher.
type BrowserConfig struct {
	ChromeBin   string
	UserAgent   string
	Timeout     time.Duration
	SettleDelay time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// BrowserFetcher renders pages in headless Chrome. Use it when the directory
// only serves its results to a real browser.
type BrowserFetcher struct {
	cfg        BrowserConfig
	browserCtx context.Context
	cancel     func()
	retry      *utils.RetryConfig
	logger     *utils.Logger
}

// NewBrowserFetcher starts a headless browser.
func NewBrowserFetcher(cfg BrowserConfig, logger *utils.Logger) (*BrowserFetcher, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPageTimeout
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	chromeBin := cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[fetch] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("chromedp: start browser: %w", err)
	}

	return &BrowserFetcher{
		cfg:        cfg,
		browserCtx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryDelay,
			Logger:      logger,
		},
		logger: logger,
	}, nil
}

func (f *BrowserFetcher) Name() string { return "chromedp" }

// Close shuts the browser down.
func (f *BrowserFetcher) Close() error {
	f.cancel()
	return nil
}

// Fetch loads the page in a fresh tab. POST requests are replayed by
// submitting a synthesised form from the target page.
func (f *BrowserFetcher) Fetch(ctx context.Context, req *Request) (*Response, error) {
	var resp *Response
	err := f.retry.Do(ctx, req.String(), func() error {
		r, err := f.fetchOnce(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *BrowserFetcher) fetchOnce(ctx context.Context, req *Request) (*Response, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.cfg.Timeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	f.logger.Debug("[fetch] %s (browser)", req)

	var status int64
	switch req.method() {
	case http.MethodGet:
		nav, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(req.URL))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFetch, req, err)
		}
		if nav != nil {
			status = nav.Status
		}
	case http.MethodPost:
		if err := chromedp.Run(tabCtx, chromedp.Navigate(req.URL)); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFetch, req, err)
		}
		script, err := submitFormScript(req.URL, req.Form)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFetch, req, err)
		}
		nav, err := chromedp.RunResponse(tabCtx, chromedp.Evaluate(script, nil))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: submit form: %v", ErrFetch, req, err)
		}
		if nav != nil {
			status = nav.Status
		}
	default:
		return nil, fmt.Errorf("%w: %s: unsupported method (%w)", ErrFetch, req, utils.ErrPermanent)
	}

	if status != 0 && !isSuccess(int(status)) {
		statusErr := &StatusError{URL: req.URL, StatusCode: int(status)}
		if isPermanent(int(status)) {
			return nil, fmt.Errorf("%w (%w)", statusErr, utils.ErrPermanent)
		}
		return nil, statusErr
	}

	var location, html string
	err := chromedp.Run(tabCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.cfg.SettleDelay),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read page: %v", ErrFetch, req, err)
	}

	finalURL, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: bad location %q: %v", ErrFetch, req, location, err)
	}

	if status == 0 {
		status = http.StatusOK
	}
	return &Response{
		URL:        finalURL,
		StatusCode: int(status),
		Body:       []byte(html),
	}, nil
}

// submitFormScript builds a script that posts form to action as a regular
// browser form submission.
func submitFormScript(action string, form url.Values) (string, error) {
	actionJSON, err := json.Marshal(action)
	if err != nil {
		return "", err
	}
	fieldsJSON, err := json.Marshal(map[string][]string(form))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		(function(action, fields) {
			var form = document.createElement('form');
			form.method = 'POST';
			form.action = action;
			Object.keys(fields).forEach(function(name) {
				fields[name].forEach(function(value) {
					var input = document.createElement('input');
					input.type = 'hidden';
					input.name = name;
					input.value = value;
					form.appendChild(input);
				});
			});
			document.body.appendChild(form);
			form.submit();
		})(%s, %s)
	`, actionJSON, fieldsJSON), nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
