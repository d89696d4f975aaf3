package generator

import (
	"context"
	"sync"
	"testing"

	"github.com/neurocrypto/newsforge/ai"
	"github.com/neurocrypto/newsforge/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTitleStore struct {
	mu     sync.Mutex
	topics []model.Topic
	recent map[string][]string

	titles   map[string]string
	statuses map[string]string
}

func newFakeTitleStore(topics []model.Topic) *fakeTitleStore {
	return &fakeTitleStore{
		topics:   topics,
		recent:   map[string][]string{},
		titles:   map[string]string{},
		statuses: map[string]string{},
	}
}

func (f *fakeTitleStore) TopicsByStatus(status string) ([]model.Topic, error) {
	out := []model.Topic{}
	for _, t := range f.topics {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTitleStore) RecentSourceTitles(categoryID string, limit int) ([]string, error) {
	return f.recent[categoryID], nil
}

func (f *fakeTitleStore) UpdateTopicTitle(topicID string, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles[topicID] = title
	return nil
}

func (f *fakeTitleStore) UpdateTopicStatus(topicID string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[topicID] = status
	return nil
}

func singleWorkerPool() *Pool {
	return NewPool([]ai.Credential{{Name: "KEY_1", Key: "k1"}}, 0)
}

func clientFactory(client ai.TextClient) func(ai.Credential) ai.TextClient {
	return func(ai.Credential) ai.TextClient { return client }
}

func TestTitleFormatterTitlesPendingTopics(t *testing.T) {
	s := newFakeTitleStore([]model.Topic{
		{Id: "t1", Category: "defi", Status: model.TopicStatusNeedsTitle, SourceText: "lending news"},
	})
	s.recent["defi"] = []string{"Aave hits new high"}
	client := &ai.FakeTextClient{Responses: []string{`{"title": "DeFi Lending Heats Up"}`}}

	formatter := NewTitleFormatter(s, singleWorkerPool(), clientFactory(client), "{category} | {example_titles} | {news_text}", 10)
	formatted, err := formatter.Run(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 1, formatted)
	assert.Equal(t, "DeFi Lending Heats Up", s.titles["t1"])
	assert.Empty(t, s.statuses)

	// The prompt carries the few-shot examples and the source text.
	require.Len(t, client.Prompts, 1)
	assert.Contains(t, client.Prompts[0], "1. Aave hits new high")
	assert.Contains(t, client.Prompts[0], "lending news")
}

func TestTitleFormatterMarksFailuresAndContinues(t *testing.T) {
	s := newFakeTitleStore([]model.Topic{
		{Id: "t1", Category: "defi", Status: model.TopicStatusNeedsTitle},
		{Id: "t2", Category: "defi", Status: model.TopicStatusNeedsTitle},
	})
	// First answer is unusable, second is fine.
	client := &ai.FakeTextClient{Responses: []string{`{"nope": 1}`, `{"title": "Good One"}`}}

	formatter := NewTitleFormatter(s, singleWorkerPool(), clientFactory(client), "{news_text}", 10)
	formatted, err := formatter.Run(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 1, formatted)
	assert.Equal(t, model.TopicStatusTitleFailed, s.statuses["t1"])
	assert.Equal(t, "Good One", s.titles["t2"])
}

func TestTitleFormatterNoPendingTopicsIsANoOp(t *testing.T) {
	s := newFakeTitleStore([]model.Topic{
		{Id: "t1", Status: model.TopicStatusReadyForPlanning},
	})
	client := &ai.FakeTextClient{Responses: []string{`{"title": "x"}`}}

	formatter := NewTitleFormatter(s, singleWorkerPool(), clientFactory(client), "{news_text}", 10)
	formatted, err := formatter.Run(context.Background())

	require.Nil(t, err)
	assert.Equal(t, 0, formatted)
	assert.Empty(t, client.Prompts)
}

func TestTitleFormatterWithoutExamplesStillPrompts(t *testing.T) {
	s := newFakeTitleStore([]model.Topic{
		{Id: "t1", Category: "nft", Status: model.TopicStatusNeedsTitle},
	})
	client := &ai.FakeTextClient{Responses: []string{`{"title": "Fresh NFT Angle"}`}}

	formatter := NewTitleFormatter(s, singleWorkerPool(), clientFactory(client), "{example_titles}", 10)
	_, err := formatter.Run(context.Background())

	require.Nil(t, err)
	require.Len(t, client.Prompts, 1)
	assert.Contains(t, client.Prompts[0], "No published examples")
}
