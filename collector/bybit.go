// Package collector gathers raw material from the outside world: the Bybit
// learn portal ledger, RSS news feeds and the spot token universe.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/neurocrypto/newsforge/model"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

const (
	bybitArticleListURL = "https://api2.bybit.com/fht/kratu-api/community/usercontent/get-article-list"

	bybitPageSize  = 10
	bybitPageDelay = time.Second
)

// LedgerStore is the persistence slice the Bybit collector depends on.
type LedgerStore interface {
	ExistingSourceArticleIDs() (map[string]bool, error)
	SaveSourceArticles(articles []model.SourceArticle) (int, error)
}

// BybitCollector walks the Bybit learn portal's article list newest-first
// and appends unseen items to the source article ledger. Paging stops at the
// first page that brings nothing new; the portal serves newest first, so an
// all-known page means everything older is known too.
type BybitCollector struct {
	store   LedgerStore
	client  *http.Client
	baseURL string
	delay   time.Duration
}

func NewBybitCollector(s LedgerStore) *BybitCollector {
	return &BybitCollector{
		store:   s,
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: bybitArticleListURL,
		delay:   bybitPageDelay,
	}
}

// NewBybitCollectorForURL is the test constructor.
func NewBybitCollectorForURL(s LedgerStore, baseURL string) *BybitCollector {
	return &BybitCollector{store: s, client: &http.Client{}, baseURL: baseURL}
}

type bybitListResponse struct {
	RetCode int    `json:"ret_code"`
	RetMsg  string `json:"ret_msg"`
	Result  struct {
		Data []bybitArticle `json:"data"`
	} `json:"result"`
}

type bybitArticle struct {
	Id       json.Number `json:"id"`
	Title    string      `json:"title"`
	Category struct {
		Id json.Number `json:"id"`
	} `json:"category"`
}

// Run collects until the portal runs out of unseen articles. Returns the
// number of newly ingested articles.
func (c *BybitCollector) Run(ctx context.Context) (int, error) {
	existing, err := c.store.ExistingSourceArticleIDs()
	if err != nil {
		return 0, errors.Wrap(err, "fail to load existing article ids")
	}
	Logger.Log.Infof("source article ledger holds %d ids", len(existing))

	fresh := []model.SourceArticle{}
	today := time.Now().Format("2006-01-02")

	for page := 1; ; page++ {
		articles, err := c.fetchPage(ctx, page)
		if err != nil {
			return 0, err
		}
		if len(articles) == 0 {
			break
		}

		newOnPage := 0
		for _, a := range articles {
			id := a.Id.String()
			if existing[id] {
				continue
			}
			existing[id] = true
			newOnPage++
			fresh = append(fresh, model.SourceArticle{
				ExternalId:  id,
				Title:       a.Title,
				CategoryId:  a.Category.Id.String(),
				PublishedAt: today,
			})
		}
		if newOnPage == 0 {
			break
		}

		if c.delay > 0 {
			select {
			case <-time.After(c.delay):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
	}

	if len(fresh) == 0 {
		Logger.Log.Info("no new source articles found")
		return 0, nil
	}

	saved, err := c.store.SaveSourceArticles(fresh)
	if err != nil {
		return 0, errors.Wrap(err, "fail to save source articles")
	}
	Logger.Log.Infof("ingested %d new source articles", saved)
	return saved, nil
}

func (c *BybitCollector) fetchPage(ctx context.Context, page int) ([]bybitArticle, error) {
	uri := fmt.Sprintf("%s?sceneType=SCENE_LEARN&language=en&pageSize=%d&pageNum=%d", c.baseURL, bybitPageSize, page)
	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fail to request bybit article list")
	}
	defer res.Body.Close()

	data, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		return nil, errors.Errorf("bybit non-200 http code: %d", res.StatusCode)
	}

	parsed := bybitListResponse{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, errors.Wrap(err, "fail to decode bybit article list")
	}
	if parsed.RetCode != 0 {
		return nil, errors.Errorf("bybit api error: %s", parsed.RetMsg)
	}
	return parsed.Result.Data, nil
}
