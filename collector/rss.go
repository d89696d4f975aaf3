package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

// RSSCollector pulls the day's crypto news from a list of RSS feeds and
// returns them as plain-text posts for the summarizer. A dead feed is logged
// and skipped; a single reachable feed is enough for a run.
type RSSCollector struct {
	parser   *gofeed.Parser
	feedURLs []string
}

func NewRSSCollector(feedURLs []string) *RSSCollector {
	return &RSSCollector{parser: gofeed.NewParser(), feedURLs: feedURLs}
}

// Run returns one post per feed item published on the calendar date of now.
func (c *RSSCollector) Run(ctx context.Context, now time.Time) ([]string, error) {
	posts := []string{}

	for _, url := range c.feedURLs {
		feed, err := c.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			Logger.Log.Errorf("feed %s unreachable, skipped: %v", url, err)
			continue
		}

		taken := 0
		for _, item := range feed.Items {
			if !publishedOn(item, now) {
				continue
			}
			posts = append(posts, formatFeedItem(item))
			taken++
		}
		Logger.Log.Infof("feed %s contributed %d items", url, taken)
	}

	return posts, nil
}

// publishedOn matches the item's publication date against the target day.
// Feeds disagree wildly on date formats, dateparse handles the long tail.
func publishedOn(item *gofeed.Item, day time.Time) bool {
	published := item.PublishedParsed
	if published == nil && item.Published != "" {
		if parsed, err := dateparse.ParseAny(item.Published); err == nil {
			published = &parsed
		}
	}
	if published == nil {
		return false
	}
	y1, m1, d1 := published.UTC().Date()
	y2, m2, d2 := day.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func formatFeedItem(item *gofeed.Item) string {
	body := item.Description
	if item.Content != "" {
		body = item.Content
	}
	return fmt.Sprintf("%s\n\n%s", strings.TrimSpace(item.Title), StripHTML(body))
}

// StripHTML reduces a feed body to readable plain text.
func StripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(doc.Text())
}
