package generator

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/neurocrypto/newsforge/ai"
	"github.com/neurocrypto/newsforge/store"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

// TokenStore is the persistence slice the token matcher depends on.
type TokenStore interface {
	TokenTasks() ([]store.TokenTask, error)
	UpdateArticleTokens(articleID string, tokensJSON string) error
}

// TokenMatcher tags every finished article with the crypto tokens it talks
// about, picked by the model from the known token list. Matching is
// best-effort: any failure falls back to ["BTC"] so downstream consumers
// always see a non-empty list.
type TokenMatcher struct {
	store     TokenStore
	workers   *Pool
	newClient func(cred ai.Credential) ai.TextClient
	prompt    string
	tokenList string
}

func NewTokenMatcher(
	s TokenStore,
	workers *Pool,
	newClient func(cred ai.Credential) ai.TextClient,
	prompt string,
	tokenList string,
) *TokenMatcher {
	return &TokenMatcher{store: s, workers: workers, newClient: newClient, prompt: prompt, tokenList: tokenList}
}

var fallbackTokens = []string{"BTC"}

// Run matches tokens for every untagged article. Returns the number of
// articles tagged.
func (m *TokenMatcher) Run(ctx context.Context) (int, error) {
	tasks, err := m.store.TokenTasks()
	if err != nil {
		return 0, errors.Wrap(err, "fail to load token tasks")
	}
	if len(tasks) == 0 {
		Logger.Log.Info("no articles to match tokens for")
		return 0, nil
	}

	var mu sync.Mutex
	tagged := 0

	queue := []Task{}
	for _, task := range tasks {
		task := task
		queue = append(queue, func(ctx context.Context, cred ai.Credential) {
			tokens := m.matchOne(ctx, cred, task)
			tokensJSON, err := json.Marshal(tokens)
			if err != nil {
				Logger.Log.Errorf("fail to encode tokens for article %s: %v", task.ArticleID, err)
				return
			}
			if err := m.store.UpdateArticleTokens(task.ArticleID, string(tokensJSON)); err != nil {
				Logger.Log.Errorf("fail to save tokens for article %s: %v", task.ArticleID, err)
				return
			}
			mu.Lock()
			tagged++
			mu.Unlock()
		})
	}

	m.workers.Run(ctx, queue)
	Logger.Log.Infof("token matching done: %d/%d articles tagged", tagged, len(tasks))
	return tagged, nil
}

// matchOne never fails, a broken model answer degrades to the fallback list.
func (m *TokenMatcher) matchOne(ctx context.Context, cred ai.Credential, task store.TokenTask) []string {
	prompt := strings.NewReplacer(
		"{token_list}", m.tokenList,
		"{article_content}", task.Content,
	).Replace(m.prompt)

	raw, err := m.newClient(cred).Generate(ctx, ai.GenerateRequest{Prompt: prompt, WantJSON: true})
	if err != nil {
		Logger.Log.Errorf("token matching for article %s failed: %v, falling back to %v", task.ArticleID, err, fallbackTokens)
		return fallbackTokens
	}

	tokens := []string{}
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil || len(tokens) == 0 {
		Logger.Log.Errorf("token payload for article %s malformed, falling back to %v", task.ArticleID, fallbackTokens)
		return fallbackTokens
	}
	return tokens
}
