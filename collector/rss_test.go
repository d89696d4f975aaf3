package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rssFeed(items string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Crypto Wire</title>%s</channel></rss>`, items)
}

func TestRSSCollectorKeepsOnlyTheTargetDay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed(`
			<item>
				<title>ETF inflows surge</title>
				<description>&lt;p&gt;Spot ETFs saw &lt;b&gt;record&lt;/b&gt; inflows.&lt;/p&gt;</description>
				<pubDate>Wed, 15 Dec 2021 08:00:00 +0000</pubDate>
			</item>
			<item>
				<title>Old news</title>
				<description>yesterday</description>
				<pubDate>Tue, 14 Dec 2021 08:00:00 +0000</pubDate>
			</item>`))
	}))
	defer server.Close()

	c := NewRSSCollector([]string{server.URL})
	day := time.Date(2021, 12, 15, 10, 0, 0, 0, time.UTC)

	posts, err := c.Run(context.Background(), day)

	require.Nil(t, err)
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0], "ETF inflows surge")
	// HTML markup is stripped from the body.
	assert.Contains(t, posts[0], "Spot ETFs saw record inflows.")
	assert.NotContains(t, posts[0], "<p>")
}

func TestRSSCollectorSkipsDeadFeeds(t *testing.T) {
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed(`
			<item>
				<title>Live item</title>
				<description>body</description>
				<pubDate>Wed, 15 Dec 2021 08:00:00 +0000</pubDate>
			</item>`))
	}))
	defer live.Close()
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer dead.Close()

	c := NewRSSCollector([]string{dead.URL, live.URL})
	day := time.Date(2021, 12, 15, 10, 0, 0, 0, time.UTC)

	posts, err := c.Run(context.Background(), day)

	require.Nil(t, err)
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0], "Live item")
}

func TestRSSCollectorItemWithoutDateIsDropped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed(`
			<item><title>No date</title><description>x</description></item>`))
	}))
	defer server.Close()

	c := NewRSSCollector([]string{server.URL})
	posts, err := c.Run(context.Background(), time.Date(2021, 12, 15, 0, 0, 0, 0, time.UTC))

	require.Nil(t, err)
	assert.Empty(t, posts)
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "plain already", StripHTML("plain already"))
	assert.Equal(t, "bold and linked", StripHTML(`<b>bold</b> and <a href="x">linked</a>`))
}
