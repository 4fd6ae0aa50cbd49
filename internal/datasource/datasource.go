// Package datasource fetches MoneyDJ ETF report pages and extracts their
// tables. Each report page has one extractor on Client; Aggregator combines
// the five into a single models.ETFReport.
package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"github.com/seenimoa/etfdj/internal/infra"
	"github.com/seenimoa/etfdj/pkg/models"
)

const (
	// DefaultBaseURL is the MoneyDJ site root.
	DefaultBaseURL = "https://www.moneydj.com"

	// DefaultUserAgent is sent with every request; the site rejects bare clients.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is requests per second against the site.
	DefaultRateLimit = 1.0

	// DefaultBurst is the limiter burst size.
	DefaultBurst = 2

	// maxBodySize caps how much of a response is read.
	maxBodySize = 8 << 20
)

// reportPaths holds the page for each report. Paths keep the site's casing.
var reportPaths = map[models.Section]string{
	models.SectionBasicInfo:        "/etf/x/basic/basic0004.xdjhtm",
	models.SectionHoldings:         "/ETF/X/Basic/Basic0007.xdjhtm",
	models.SectionRiskAnalysis:     "/etf/x/Basic/Basic0013.xdjhtm",
	models.SectionReturnComparison: "/etf/x/Basic/Basic0010.xdjhtm",
	models.SectionReturnTrends:     "/etf/x/Basic/Basic0009.xdjhtm",
}

// reportNews labels errors from the news feed.
const reportNews models.Section = "news"

// --- Errors ---

// ErrTableNotFound is wrapped by ScrapeError when a required table is missing.
var ErrTableNotFound = errors.New("table not found")

// ErrBadDate is wrapped by ScrapeError when a date cell is not YYYY/MM/DD.
var ErrBadDate = errors.New("malformed date")

// FetchError reports a transport failure or an HTTP error status.
type FetchError struct {
	Report     models.Section
	Ticker     string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s for %s: HTTP %d: %v", e.Report, e.Ticker, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s for %s: %v", e.Report, e.Ticker, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the same request may succeed later.
func (e *FetchError) Retryable() bool {
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// ScrapeError reports a page that loaded but whose layout could not be read.
// It is not retryable without a change to the extractor.
type ScrapeError struct {
	Report models.Section
	Ticker string
	Reason string
	Err    error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s for %s: %s", e.Report, e.Ticker, e.Reason)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

func tableNotFound(report models.Section, ticker, locator string) *ScrapeError {
	return &ScrapeError{
		Report: report,
		Ticker: ticker,
		Reason: fmt.Sprintf("%s: %v", locator, ErrTableNotFound),
		Err:    ErrTableNotFound,
	}
}

// --- Client ---

// Client fetches MoneyDJ report pages. It is safe for concurrent use; all
// callers share one rate limiter.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the per-request timeout. Combined with WithHTTPClient, in
// either order, it applies to a copy of that client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit sets requests per second and burst. A non-positive rate
// disables limiting.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) {
		c.limiter = infra.NewLimiter(requestsPerSecond, burst)
	}
}

// NewClient creates a MoneyDJ client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		limiter:   infra.NewLimiter(DefaultRateLimit, DefaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.httpClient == nil:
		timeout := c.timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = infra.NewHTTPClient(timeout)
	case c.timeout > 0:
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// BaseURL returns the site root the client fetches from.
func (c *Client) BaseURL() string { return c.baseURL }

// ReportURL builds the page URL of a report for ticker.
func (c *Client) ReportURL(report models.Section, ticker string) string {
	q := url.Values{}
	q.Set("etfid", ticker)
	return c.baseURL + reportPaths[report] + "?" + q.Encode()
}

// fetchDocument downloads and parses a report page.
func (c *Client) fetchDocument(ctx context.Context, report models.Section, ticker string) (*goquery.Document, error) {
	body, err := c.fetch(ctx, report, ticker, c.ReportURL(report, ticker))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ScrapeError{Report: report, Ticker: ticker, Reason: "parse HTML", Err: err}
	}
	return doc, nil
}

// fetch performs a rate-limited GET and returns the body decoded as UTF-8,
// whatever charset the server declares.
func (c *Client) fetch(ctx context.Context, report models.Section, ticker, rawURL string) ([]byte, error) {
	fail := func(status int, err error) error {
		return &FetchError{Report: report, Ticker: ticker, URL: rawURL, StatusCode: status, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fail(0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fail(0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html, application/xhtml+xml, application/xml, */*")
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fail(resp.StatusCode, fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(snippet)))
	}

	decoded := transform.NewReader(io.LimitReader(resp.Body, maxBodySize), unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	body, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}
