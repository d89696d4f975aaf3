package refinery

import (
	"context"

	"github.com/neurocrypto/newsforge/ai"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CategorizedNews is one news item with its embedding-based technical
// category, the input of the editorial rebalancer.
type CategorizedNews struct {
	Text            string
	InitialCategory string
}

// Categorizer assigns each news item the technical category whose embedding
// it is closest to. This is a cheap first pass; the rebalancer makes the
// editorial call afterwards.
type Categorizer struct {
	embedder   ai.EmbeddingClient
	categories []string
}

func NewCategorizer(embedder ai.EmbeddingClient, categories []string) *Categorizer {
	return &Categorizer{embedder: embedder, categories: categories}
}

// Run embeds the items and the category labels in two batches and matches by
// cosine similarity, preserving input order.
func (c *Categorizer) Run(ctx context.Context, items []string) ([]CategorizedNews, error) {
	if len(items) == 0 {
		Logger.Log.Info("no news items to categorize")
		return nil, nil
	}
	if len(c.categories) == 0 {
		return nil, errors.New("no categories configured")
	}

	itemVectors, err := c.embedder.Embed(ctx, items)
	if err != nil {
		return nil, errors.Wrap(err, "fail to embed news items")
	}
	categoryVectors, err := c.embedder.Embed(ctx, c.categories)
	if err != nil {
		return nil, errors.Wrap(err, "fail to embed categories")
	}

	results := make([]CategorizedNews, 0, len(items))
	for i, item := range items {
		best := NearestCategory(itemVectors[i], categoryVectors)
		results = append(results, CategorizedNews{Text: item, InitialCategory: c.categories[best]})
	}
	Logger.Log.Infof("categorized %d news items", len(results))
	return results, nil
}

// NearestCategory returns the index of the candidate vector with the highest
// cosine similarity to v.
func NearestCategory(v []float64, candidates [][]float64) int {
	best := 0
	bestScore := -2.0
	for i, candidate := range candidates {
		score := cosineSimilarity(v, candidate)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

func cosineSimilarity(a, b []float64) float64 {
	va := mat.NewVecDense(len(a), a)
	vb := mat.NewVecDense(len(b), b)
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return mat.Dot(va, vb) / (na * nb)
}
