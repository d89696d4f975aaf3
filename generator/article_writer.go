package generator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/neurocrypto/newsforge/ai"
	"github.com/neurocrypto/newsforge/model"
	"github.com/neurocrypto/newsforge/store"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

// WriterStore is the persistence slice the article writer depends on.
type WriterStore interface {
	GenerationTasks() ([]store.GenerationTask, error)
	SaveGeneratedArticle(article *model.GeneratedArticle) error
	UpdateTopicStatus(topicID string, status string) error
}

// Provider bundles everything needed to drive one AI backend: its
// credentials and a factory binding a credential to a ready client.
type Provider struct {
	Workers   *Pool
	NewClient func(cred ai.Credential) ai.TextClient
}

// ArticleWriter turns planned_for_generation topics into full articles. Each
// task is routed to the provider its persona is configured for; providers run
// their queues concurrently and independently. Success stores the article and
// advances the topic to article_generated, failure marks it
// article_generation_failed.
type ArticleWriter struct {
	store     WriterStore
	providers map[string]Provider
	prompt    string
}

func NewArticleWriter(s WriterStore, providers map[string]Provider, prompt string) *ArticleWriter {
	return &ArticleWriter{store: s, providers: providers, prompt: prompt}
}

// Run drains all pending generation tasks. Returns the number of articles
// written.
func (w *ArticleWriter) Run(ctx context.Context) (int, error) {
	tasks, err := w.store.GenerationTasks()
	if err != nil {
		return 0, errors.Wrap(err, "fail to load generation tasks")
	}
	if len(tasks) == 0 {
		Logger.Log.Info("no articles to generate")
		return 0, nil
	}

	byProvider := map[string][]store.GenerationTask{}
	for _, task := range tasks {
		byProvider[task.ProviderName] = append(byProvider[task.ProviderName], task)
	}

	var mu sync.Mutex
	written := 0

	var wg sync.WaitGroup
	for name, providerTasks := range byProvider {
		provider, known := w.providers[name]
		if !known {
			Logger.Log.Errorf("no provider %q configured, %d tasks skipped", name, len(providerTasks))
			continue
		}

		queue := []Task{}
		for _, task := range providerTasks {
			task := task
			newClient := provider.NewClient
			queue = append(queue, func(ctx context.Context, cred ai.Credential) {
				if err := w.writeOne(ctx, newClient(cred), task); err != nil {
					Logger.Log.Errorf("article generation for topic %s failed: %v", task.TopicID, err)
					if err := w.store.UpdateTopicStatus(task.TopicID, model.TopicStatusArticleFailed); err != nil {
						Logger.Log.Error("fail to mark topic article_generation_failed: ", err)
					}
					return
				}
				mu.Lock()
				written++
				mu.Unlock()
			})
		}

		wg.Add(1)
		go func(workers *Pool, queue []Task) {
			defer wg.Done()
			workers.Run(ctx, queue)
		}(provider.Workers, queue)
	}
	wg.Wait()

	Logger.Log.Infof("article generation done: %d/%d articles written", written, len(tasks))
	return written, nil
}

func (w *ArticleWriter) writeOne(ctx context.Context, client ai.TextClient, task store.GenerationTask) error {
	prompt := fmt.Sprintf(
		"%s\n\nWrite an in-depth, 700-1000 word article on a topic: '%s'\n\nBase your article on the following news summary:\n%s",
		w.prompt, task.Title, task.SourceText,
	)

	content, err := client.Generate(ctx, ai.GenerateRequest{Prompt: prompt})
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return errors.New("model returned an empty article")
	}

	article := model.GeneratedArticle{
		TopicID:   task.TopicID,
		UserID:    task.UserID,
		PersonaID: task.PersonaID,
		Title:     task.Title,
		Content:   content,
	}
	if err := w.store.SaveGeneratedArticle(&article); err != nil {
		return errors.Wrap(err, "fail to save generated article")
	}
	return w.store.UpdateTopicStatus(task.TopicID, model.TopicStatusArticleGenerated)
}
