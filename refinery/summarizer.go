// Package refinery turns the day's raw scraped material into categorized,
// balanced topic candidates: summarize and dedupe, pre-categorize by
// embedding similarity, then rebalance editorially against the target ratio.
package refinery

import (
	"context"
	"strings"

	"github.com/neurocrypto/newsforge/ai"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

// Summarizer merges the day's raw posts into one deduplicated master
// summary. The model is asked for one paragraph per unique event; the
// paragraphs become the topic candidates for the rest of the refinery.
type Summarizer struct {
	pool      *ai.CredentialPool
	newClient func(cred ai.Credential) ai.TextClient
	prompt    string
}

func NewSummarizer(pool *ai.CredentialPool, newClient func(cred ai.Credential) ai.TextClient, prompt string) *Summarizer {
	return &Summarizer{pool: pool, newClient: newClient, prompt: prompt}
}

// Run returns the deduplicated news items, one per unique event. An empty
// input is an empty output, no model call is made.
func (s *Summarizer) Run(ctx context.Context, posts []string) ([]string, error) {
	combined := CombinePosts(posts)
	if combined == "" {
		Logger.Log.Info("no posts to summarize")
		return nil, nil
	}

	prompt := strings.Replace(s.prompt, "{news_text}", combined, 1)

	var summary string
	err := s.pool.Do(ctx, func(ctx context.Context, cred ai.Credential) error {
		out, err := s.newClient(cred).Generate(ctx, ai.GenerateRequest{Prompt: prompt})
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return errors.New("model returned an empty summary")
		}
		summary = out
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "fail to create master summary")
	}

	items := SplitSummary(summary)
	Logger.Log.Infof("master summary produced %d unique news items", len(items))
	return items, nil
}

// CombinePosts joins non-empty posts with a visible separator so the model
// can tell them apart.
func CombinePosts(posts []string) string {
	cleaned := []string{}
	for _, post := range posts {
		if trimmed := strings.TrimSpace(post); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "\n\n---\n\n")
}

// SplitSummary breaks a master summary into its per-event paragraphs.
func SplitSummary(summary string) []string {
	items := []string{}
	for _, block := range strings.Split(strings.TrimSpace(summary), "\n\n") {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
