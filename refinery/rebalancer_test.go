package refinery

import (
	"context"
	"testing"

	"github.com/neurocrypto/newsforge/ai"
	"github.com/neurocrypto/newsforge/generator"
	"github.com/neurocrypto/newsforge/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRebalancerStore struct {
	saved []model.Topic
}

func (f *fakeRebalancerStore) SaveTopics(topics []model.Topic) error {
	f.saved = topics
	return nil
}

func newTestRebalancer(s RebalancerStore, client ai.TextClient, ratio map[string]float64) *Rebalancer {
	workers := generator.NewPool([]ai.Credential{{Name: "KEY_1", Key: "k1"}}, 0)
	return NewRebalancer(s, workers, func(ai.Credential) ai.TextClient { return client }, "{news_text} {initial_category}", ratio)
}

func TestDailyTargetsScalesRatio(t *testing.T) {
	targets := DailyTargets(map[string]float64{"defi": 3, "nft": 1}, 8)
	assert.Equal(t, map[string]int{"defi": 6, "nft": 2}, targets)
}

func TestDailyTargetsEmptyRatio(t *testing.T) {
	assert.Empty(t, DailyTargets(map[string]float64{}, 10))
}

func TestRebalancerAppliesModelVerdicts(t *testing.T) {
	s := &fakeRebalancerStore{}
	client := &ai.FakeTextClient{Responses: []string{
		`{"final_category": "nft"}`,
		`{"final_category": "defi"}`,
	}}
	r := newTestRebalancer(s, client, map[string]float64{"defi": 1, "nft": 1})

	created, err := r.Run(context.Background(), []CategorizedNews{
		{Text: "first", InitialCategory: "defi"},
		{Text: "second", InitialCategory: "defi"},
	})

	require.Nil(t, err)
	assert.Equal(t, 2, created)
	require.Len(t, s.saved, 2)

	// Input order is preserved and every topic starts needing a title.
	assert.Equal(t, "first", s.saved[0].SourceText)
	assert.Equal(t, "nft", s.saved[0].Category)
	assert.Equal(t, "second", s.saved[1].SourceText)
	assert.Equal(t, "defi", s.saved[1].Category)
	for _, topic := range s.saved {
		assert.Equal(t, model.TopicStatusNeedsTitle, topic.Status)
	}
}

func TestRebalancerRejectsCategoriesOutsideTheRatio(t *testing.T) {
	s := &fakeRebalancerStore{}
	client := &ai.FakeTextClient{Responses: []string{`{"final_category": "memecoins"}`}}
	r := newTestRebalancer(s, client, map[string]float64{"defi": 1})

	_, err := r.Run(context.Background(), []CategorizedNews{
		{Text: "item", InitialCategory: "defi"},
	})

	require.Nil(t, err)
	require.Len(t, s.saved, 1)
	assert.Equal(t, "defi", s.saved[0].Category)
}

func TestRebalancerModelFailureKeepsInitialCategory(t *testing.T) {
	s := &fakeRebalancerStore{}
	client := &ai.FakeTextClient{Err: assert.AnError}
	r := newTestRebalancer(s, client, map[string]float64{"defi": 1, "nft": 1})

	created, err := r.Run(context.Background(), []CategorizedNews{
		{Text: "item", InitialCategory: "nft"},
	})

	require.Nil(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, "nft", s.saved[0].Category)
}

func TestRebalancerEmptyInputIsANoOp(t *testing.T) {
	s := &fakeRebalancerStore{}
	r := newTestRebalancer(s, &ai.FakeTextClient{Responses: []string{"{}"}}, map[string]float64{"defi": 1})

	created, err := r.Run(context.Background(), nil)
	require.Nil(t, err)
	assert.Equal(t, 0, created)
	assert.Nil(t, s.saved)
}

func TestRebalancerWithoutRatioIsAnError(t *testing.T) {
	s := &fakeRebalancerStore{}
	r := newTestRebalancer(s, &ai.FakeTextClient{Responses: []string{"{}"}}, nil)

	_, err := r.Run(context.Background(), []CategorizedNews{{Text: "x", InitialCategory: "defi"}})
	assert.NotNil(t, err)
}
