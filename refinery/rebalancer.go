package refinery

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/neurocrypto/newsforge/ai"
	"github.com/neurocrypto/newsforge/generator"
	"github.com/neurocrypto/newsforge/model"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
)

// RebalancerStore is the persistence slice the rebalancer depends on.
type RebalancerStore interface {
	SaveTopics(topics []model.Topic) error
}

// Rebalancer makes the final editorial categorization pass. Each news item
// is shown to the model together with the day's target category distribution
// and the worker's running tally, nudging the mix toward the target ratio.
// The model may only confirm or move an item to a category from the ratio;
// anything else keeps the embedding-based initial category. Survivors are
// stored as needs_title topics.
type Rebalancer struct {
	store     RebalancerStore
	workers   *generator.Pool
	newClient func(cred ai.Credential) ai.TextClient
	prompt    string
	ratio     map[string]float64
}

func NewRebalancer(
	s RebalancerStore,
	workers *generator.Pool,
	newClient func(cred ai.Credential) ai.TextClient,
	prompt string,
	ratio map[string]float64,
) *Rebalancer {
	return &Rebalancer{store: s, workers: workers, newClient: newClient, prompt: prompt, ratio: ratio}
}

type rebalanceAnswer struct {
	FinalCategory string `json:"final_category"`
}

// DailyTargets scales the abstract ratio to today's item count, rounding
// half away from zero per category.
func DailyTargets(ratio map[string]float64, totalItems int) map[string]int {
	totalPoints := 0.0
	for _, points := range ratio {
		totalPoints += points
	}
	if totalPoints == 0 {
		return map[string]int{}
	}

	targets := map[string]int{}
	for category, points := range ratio {
		targets[category] = int(math.Round(points / totalPoints * float64(totalItems)))
	}
	return targets
}

// Run rebalances all items and stores the result as fresh topics, input
// order preserved. Returns the number of topics created.
func (r *Rebalancer) Run(ctx context.Context, items []CategorizedNews) (int, error) {
	if len(items) == 0 {
		Logger.Log.Info("no news items to rebalance")
		return 0, nil
	}
	if len(r.ratio) == 0 {
		return 0, errors.New("no target topic ratio configured")
	}

	targets := DailyTargets(r.ratio, len(items))
	Logger.Log.Infof("daily category targets: %v", targets)

	finals := make([]string, len(items))
	var tally tally

	tasks := []generator.Task{}
	for i, item := range items {
		i, item := i, item
		tasks = append(tasks, func(ctx context.Context, cred ai.Credential) {
			finals[i] = r.rebalanceOne(ctx, cred, item, targets, &tally)
		})
	}
	r.workers.Run(ctx, tasks)

	topics := make([]model.Topic, 0, len(items))
	for i, item := range items {
		category := finals[i]
		if category == "" {
			category = item.InitialCategory
		}
		topics = append(topics, model.Topic{
			Category:   category,
			Status:     model.TopicStatusNeedsTitle,
			SourceText: item.Text,
		})
	}

	if err := r.store.SaveTopics(topics); err != nil {
		return 0, errors.Wrap(err, "fail to save rebalanced topics")
	}
	Logger.Log.Infof("rebalancing done: %d topics created", len(topics))
	return len(topics), nil
}

// rebalanceOne never fails, any model trouble keeps the initial category.
func (r *Rebalancer) rebalanceOne(ctx context.Context, cred ai.Credential, item CategorizedNews, targets map[string]int, t *tally) string {
	prompt := strings.NewReplacer(
		"{target_dist_string}", formatCounts(targets),
		"{session_tally_string}", t.String(),
		"{news_text}", item.Text,
		"{initial_category}", item.InitialCategory,
		"{category_list}", fmt.Sprintf("%v", sortedRatioKeys(r.ratio)),
	).Replace(r.prompt)

	final := item.InitialCategory
	raw, err := r.newClient(cred).Generate(ctx, ai.GenerateRequest{Prompt: prompt, WantJSON: true})
	if err != nil {
		Logger.Log.Errorf("rebalance call failed, keeping category %s: %v", final, err)
	} else {
		answer := rebalanceAnswer{}
		if err := json.Unmarshal([]byte(raw), &answer); err == nil {
			if _, allowed := r.ratio[answer.FinalCategory]; allowed {
				final = answer.FinalCategory
			}
		}
	}

	t.add(final)
	return final
}

// tally is the shared per-run category counter fed back into the prompts.
type tally struct {
	mu     sync.Mutex
	counts map[string]int
}

func (t *tally) add(category string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counts == nil {
		t.counts = map[string]int{}
	}
	t.counts[category]++
}

func (t *tally) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return formatCounts(t.counts)
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "- none yet"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %d", k, counts[k]))
	}
	return strings.Join(lines, "\n")
}

func sortedRatioKeys(ratio map[string]float64) []string {
	keys := make([]string, 0, len(ratio))
	for k := range ratio {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
