package pipeline

import (
	"context"
	"time"

	"github.com/neurocrypto/newsforge/planner"
	"github.com/neurocrypto/newsforge/refinery"
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

// The stage dependencies, one narrow interface per step so tests can fake
// any of them.
type (
	TokenUpdater interface {
		Run(ctx context.Context) (int, error)
	}
	PortalCollector interface {
		Run(ctx context.Context) (int, error)
	}
	PostCollector interface {
		Run(ctx context.Context, now time.Time) ([]string, error)
	}
	NewsSummarizer interface {
		Run(ctx context.Context, posts []string) ([]string, error)
	}
	NewsCategorizer interface {
		Run(ctx context.Context, items []string) ([]refinery.CategorizedNews, error)
	}
	TopicRebalancer interface {
		Run(ctx context.Context, items []refinery.CategorizedNews) (int, error)
	}
	TitleFormatter interface {
		Run(ctx context.Context) (int, error)
	}
	StyleRefresher interface {
		Run(ctx context.Context) (int, error)
	}
	Allocator interface {
		Run(ctx context.Context, now time.Time) (planner.DailyStats, error)
	}
	ArticleWriter interface {
		Run(ctx context.Context) (int, error)
	}
	Illustrator interface {
		Run(ctx context.Context) (int, error)
	}
	TokenTagger interface {
		Run(ctx context.Context) (int, error)
	}
	DigestPackager interface {
		Run(since time.Time) (int, error)
	}
)

// DailyDeps wires every component of the daily cycle. NewRebalancer and
// NewTokenTagger are factories because both read files the earlier stages of
// the same run may have refreshed.
type DailyDeps struct {
	Now func() time.Time

	Tokens     TokenUpdater
	Portal     PortalCollector
	Posts      PostCollector
	Summarizer NewsSummarizer
	Categorize NewsCategorizer

	NewRebalancer func() (TopicRebalancer, error)
	Titles        TitleFormatter
	Styles        StyleRefresher
	Allocator     Allocator
	// OnAllocated, when set, observes the allocation stats of the run.
	OnAllocated func(planner.DailyStats)
	Writer        ArticleWriter
	Illustrator   Illustrator
	NewTagger     func() (TokenTagger, error)
	Packager      DigestPackager
}

// BuildDaily assembles the daily cycle in its fixed order. Intermediate
// results flow between stages through the shared run state; a stage that
// cannot produce them aborts, preparatory and cosmetic stages merely warn.
func BuildDaily(deps DailyDeps) []Stage {
	var (
		posts       []string
		items       []string
		categorized []refinery.CategorizedNews
	)

	return []Stage{
		{Name: "refresh_tokens", Run: func(ctx context.Context) (StageResult, error) {
			if _, err := deps.Tokens.Run(ctx); err != nil {
				return Warn, err
			}
			return Continue, nil
		}},
		{Name: "collect_portal", Run: func(ctx context.Context) (StageResult, error) {
			if _, err := deps.Portal.Run(ctx); err != nil {
				return Warn, err
			}
			return Continue, nil
		}},
		{Name: "collect_news", Run: func(ctx context.Context) (StageResult, error) {
			collected, err := deps.Posts.Run(ctx, deps.Now())
			if err != nil {
				return Abort, err
			}
			posts = collected
			return Continue, nil
		}},
		{Name: "summarize", Run: func(ctx context.Context) (StageResult, error) {
			summarized, err := deps.Summarizer.Run(ctx, posts)
			if err != nil {
				return Abort, err
			}
			items = summarized
			return Continue, nil
		}},
		{Name: "categorize", Run: func(ctx context.Context) (StageResult, error) {
			results, err := deps.Categorize.Run(ctx, items)
			if err != nil {
				return Abort, err
			}
			categorized = results
			return Continue, nil
		}},
		{Name: "rebalance", Run: func(ctx context.Context) (StageResult, error) {
			rebalancer, err := deps.NewRebalancer()
			if err != nil {
				return Abort, err
			}
			if _, err := rebalancer.Run(ctx, categorized); err != nil {
				return Abort, err
			}
			return Continue, nil
		}},
		{Name: "format_titles", Run: func(ctx context.Context) (StageResult, error) {
			if _, err := deps.Titles.Run(ctx); err != nil {
				return Abort, err
			}
			return Continue, nil
		}},
		{Name: "refresh_styles", Run: func(ctx context.Context) (StageResult, error) {
			if _, err := deps.Styles.Run(ctx); err != nil {
				return Warn, err
			}
			return Continue, nil
		}},
		{Name: "allocate", Run: func(ctx context.Context) (StageResult, error) {
			stats, err := deps.Allocator.Run(ctx, deps.Now())
			if err != nil {
				return Abort, err
			}
			if deps.OnAllocated != nil {
				deps.OnAllocated(stats)
			}
			Logger.Log.Infof("allocation: %d assigned, %d shortages", stats.Assigned, len(stats.Shortages))
			return Continue, nil
		}},
		{Name: "write_articles", Run: func(ctx context.Context) (StageResult, error) {
			if _, err := deps.Writer.Run(ctx); err != nil {
				return Abort, err
			}
			return Continue, nil
		}},
		{Name: "render_images", Run: func(ctx context.Context) (StageResult, error) {
			if _, err := deps.Illustrator.Run(ctx); err != nil {
				return Abort, err
			}
			return Continue, nil
		}},
		{Name: "match_tokens", Run: func(ctx context.Context) (StageResult, error) {
			tagger, err := deps.NewTagger()
			if err != nil {
				return Warn, err
			}
			if _, err := tagger.Run(ctx); err != nil {
				return Warn, err
			}
			return Continue, nil
		}},
		{Name: "deliver", Run: func(ctx context.Context) (StageResult, error) {
			since := startOfDay(deps.Now())
			if _, err := deps.Packager.Run(since); err != nil {
				return Warn, err
			}
			return Continue, nil
		}},
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
