package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/etfdj/pkg/models"
	"github.com/seenimoa/etfdj/pkg/utils"
)

// ErrNewsDisabled is returned by GetNews when no feed URL is configured.
var ErrNewsDisabled = errors.New("news feed not configured")

// DefaultNewsLimit caps GetNews when the caller passes a non-positive limit.
const DefaultNewsLimit = 10

// News reads an RSS or Atom feed and keeps the items that mention an ETF.
// Requests go through the shared Client, so they carry its User-Agent and
// rate limit. A News is safe for concurrent use.
type News struct {
	client  *Client
	feedURL string
}

// NewNews creates a news source for feedURL. An empty URL disables it.
func NewNews(client *Client, feedURL string) *News {
	return &News{
		client:  client,
		feedURL: feedURL,
	}
}

// Enabled reports whether a feed URL is configured.
func (n *News) Enabled() bool { return n.feedURL != "" }

// GetNews returns up to limit feed items mentioning ticker, newest first.
func (n *News) GetNews(ctx context.Context, ticker string, limit int) ([]models.NewsItem, error) {
	if !n.Enabled() {
		return nil, ErrNewsDisabled
	}
	if limit <= 0 {
		limit = DefaultNewsLimit
	}
	symbol := utils.NormalizeTicker(ticker)

	items, err := n.fetchFeed(ctx, symbol)
	if err != nil {
		return nil, err
	}

	keywords := tickerKeywords(symbol)
	matched := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		if matchesAny(item.Title+" "+item.Summary, keywords) {
			matched = append(matched, item)
		}
	}

	sortItemsByDate(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// --- Internal helpers ---

// fetchFeed downloads and parses the feed.
func (n *News) fetchFeed(ctx context.Context, symbol string) ([]models.NewsItem, error) {
	body, err := n.client.fetch(ctx, reportNews, symbol, n.feedURL)
	if err != nil {
		return nil, err
	}

	// gofeed.Parser keeps per-parse state, so each fetch gets its own.
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &ScrapeError{Report: reportNews, Ticker: symbol, Reason: fmt.Sprintf("parse feed: %v", err), Err: err}
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		item := models.NewsItem{
			Title:   strings.TrimSpace(it.Title),
			URL:     it.Link,
			Summary: cleanHTML(it.Description),
		}
		if it.PublishedParsed != nil {
			item.PublishedAt = utils.ToTaipei(*it.PublishedParsed)
		} else if it.UpdatedParsed != nil {
			item.PublishedAt = utils.ToTaipei(*it.UpdatedParsed)
		}
		items = append(items, item)
	}
	return items, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// tickerKeywords returns whole-word patterns for a ticker. "0050.TW" also
// matches the bare code "0050".
func tickerKeywords(symbol string) []*regexp.Regexp {
	terms := []string{symbol}
	if bare := utils.BareSymbol(symbol); bare != symbol {
		terms = append(terms, bare)
	}
	keywords := make([]*regexp.Regexp, 0, len(terms))
	for _, t := range terms {
		keywords = append(keywords, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(t)+`\b`))
	}
	return keywords
}

// matchesAny checks if text mentions any keyword.
func matchesAny(text string, keywords []*regexp.Regexp) bool {
	for _, kw := range keywords {
		if kw.MatchString(text) {
			return true
		}
	}
	return false
}

// sortItemsByDate sorts items by published date, newest first. Items with
// equal dates keep feed order.
func sortItemsByDate(items []models.NewsItem) {
	slices.SortStableFunc(items, func(a, b models.NewsItem) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
}
