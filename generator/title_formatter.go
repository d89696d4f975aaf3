package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/neurocrypto/newsforge/ai"
	"github.com/neurocrypto/newsforge/model"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

// TitleStore is the persistence slice the title formatter depends on.
type TitleStore interface {
	TopicsByStatus(status string) ([]model.Topic, error)
	RecentSourceTitles(categoryID string, limit int) ([]string, error)
	UpdateTopicTitle(topicID string, title string) error
	UpdateTopicStatus(topicID string, status string) error
}

// TitleFormatter is the editor stage: it picks up needs_title topics,
// asks the model for a headline using recent upstream titles of the same
// category as few-shot examples, and advances each topic to
// ready_for_planning. A per-topic failure marks that topic
// title_generation_failed and never blocks its siblings.
type TitleFormatter struct {
	store        TitleStore
	workers      *Pool
	newClient    func(cred ai.Credential) ai.TextClient
	prompt       string
	fewShotLimit int
}

func NewTitleFormatter(
	s TitleStore,
	workers *Pool,
	newClient func(cred ai.Credential) ai.TextClient,
	prompt string,
	fewShotLimit int,
) *TitleFormatter {
	return &TitleFormatter{
		store:        s,
		workers:      workers,
		newClient:    newClient,
		prompt:       prompt,
		fewShotLimit: fewShotLimit,
	}
}

type titlePayload struct {
	Title string `json:"title"`
}

// Run formats titles for every needs_title topic. Returns the number of
// topics that got a title.
func (f *TitleFormatter) Run(ctx context.Context) (int, error) {
	topics, err := f.store.TopicsByStatus(model.TopicStatusNeedsTitle)
	if err != nil {
		return 0, errors.Wrap(err, "fail to load topics needing a title")
	}
	if len(topics) == 0 {
		Logger.Log.Info("no topics need a title")
		return 0, nil
	}

	var mu sync.Mutex
	formatted := 0

	tasks := []Task{}
	for _, topic := range topics {
		topic := topic
		tasks = append(tasks, func(ctx context.Context, cred ai.Credential) {
			if err := f.formatOne(ctx, cred, topic); err != nil {
				Logger.Log.Errorf("title generation for topic %s failed: %v", topic.Id, err)
				if err := f.store.UpdateTopicStatus(topic.Id, model.TopicStatusTitleFailed); err != nil {
					Logger.Log.Error("fail to mark topic title_generation_failed: ", err)
				}
				return
			}
			mu.Lock()
			formatted++
			mu.Unlock()
		})
	}

	f.workers.Run(ctx, tasks)
	Logger.Log.Infof("title formatting done: %d/%d topics titled", formatted, len(topics))
	return formatted, nil
}

func (f *TitleFormatter) formatOne(ctx context.Context, cred ai.Credential, topic model.Topic) error {
	examples, err := f.store.RecentSourceTitles(topic.Category, f.fewShotLimit)
	if err != nil {
		return errors.Wrap(err, "fail to load few-shot titles")
	}

	prompt := strings.NewReplacer(
		"{news_text}", topic.SourceText,
		"{category}", topic.Category,
		"{example_titles}", formatExampleTitles(examples),
	).Replace(f.prompt)

	raw, err := f.newClient(cred).Generate(ctx, ai.GenerateRequest{Prompt: prompt, WantJSON: true})
	if err != nil {
		return err
	}

	payload := titlePayload{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return errors.Wrap(err, "fail to parse title payload")
	}
	if strings.TrimSpace(payload.Title) == "" {
		return errors.New("model returned no title")
	}

	return f.store.UpdateTopicTitle(topic.Id, payload.Title)
}

func formatExampleTitles(titles []string) string {
	if len(titles) == 0 {
		return "No published examples for this category yet."
	}
	lines := make([]string, 0, len(titles))
	for i, title := range titles {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, title))
	}
	return strings.Join(lines, "\n")
}
