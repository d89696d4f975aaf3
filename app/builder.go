// Package app assembles the production object graph out of the deployment
// config. Binaries under cmd/ stay thin: they parse flags, open the shared
// resources and hand everything to the builders here.
package app

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/neurocrypto/newsforge/ai"
	"github.com/neurocrypto/newsforge/app_config"
	"github.com/neurocrypto/newsforge/collector"
	"github.com/neurocrypto/newsforge/delivery"
	"github.com/neurocrypto/newsforge/generator"
	"github.com/neurocrypto/newsforge/notify"
	"github.com/neurocrypto/newsforge/pipeline"
	"github.com/neurocrypto/newsforge/planner"
	"github.com/neurocrypto/newsforge/refinery"
	"github.com/neurocrypto/newsforge/store"
	Logger "github.com/neurocrypto/newsforge/utils/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Prompt template files expected under PROMPT_DIR.
const (
	PromptStrategicPlanner = "strategic_planner_prompt.txt"
	PromptNewsSummarizer   = "news_summarizer_prompt.txt"
	PromptTopicRebalancer  = "topic_rebalancer_prompt.txt"
	PromptTitleFormatter   = "title_formatter_prompt.txt"
	PromptArticleWriter    = "article_writer_prompt.txt"
	PromptImageStyler      = "image_styler_prompt.txt"
	PromptTokenMatcher     = "token_matcher_prompt.txt"
)

// Pause between consecutive provider calls of one worker, keeps the free
// tier rate limits happy.
const providerCallPause = 2 * time.Second

// Few-shot examples fed into the title formatter.
const titleExampleLimit = 5

func LoadPrompt(dir string, name string) (string, error) {
	raw, err := ioutil.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", errors.Wrapf(err, "fail to load prompt %s", name)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (b *Builder) prompt(name string) (string, error) {
	return LoadPrompt(b.config.PROMPT_DIR, name)
}

// Builder caches the cross-cutting pieces every component shares.
type Builder struct {
	config   app_config.AppConfig
	store    *store.Store
	notifier notify.Notifier

	geminiPool *ai.CredentialPool
	grokPool   *ai.CredentialPool
	hfPool     *ai.CredentialPool
}

func NewBuilder(config app_config.AppConfig, db *gorm.DB, n notify.Notifier) *Builder {
	timeout := time.Duration(config.AI_CALL_TIMEOUT_SECOND) * time.Second
	return &Builder{
		config:     config,
		store:      store.NewStore(db),
		notifier:   n,
		geminiPool: ai.PoolFromEnv(config.GEMINI_API_KEY_ENVS, timeout),
		grokPool:   ai.PoolFromEnv(config.GROK_API_KEY_ENVS, timeout),
		hfPool:     ai.PoolFromEnv(config.HF_API_KEY_ENVS, timeout),
	}
}

func (b *Builder) Store() *store.Store {
	return b.store
}

func (b *Builder) newGemini(cred ai.Credential) ai.TextClient {
	return ai.NewGeminiClient(b.config.GEMINI_MODEL, cred.Key)
}

func (b *Builder) newGrok(cred ai.Credential) ai.TextClient {
	return ai.NewOpenAIClient(b.config.GROK_BASE_URL, b.config.GROK_MODEL, cred.Key)
}

// targetRatio prefers the strategist's latest ratio file and falls back to
// the configured default before the first successful weekly run.
func (b *Builder) targetRatio() map[string]float64 {
	ratio, err := planner.LoadTargetRatio(b.config.TARGET_RATIO_PATH)
	if err != nil {
		Logger.Log.Info("target ratio file not usable, using configured default: ", err)
		return b.config.DEFAULT_TARGET_TOPIC_RATIO
	}
	return ratio
}

// BuildWeeklyPlanner wires the Monday strategic run.
func (b *Builder) BuildWeeklyPlanner() (*planner.StrategicPlanner, error) {
	prompt, err := b.prompt(PromptStrategicPlanner)
	if err != nil {
		return nil, err
	}
	return planner.NewStrategicPlanner(
		b.store, b.geminiPool, b.newGemini, b.notifier, prompt, b.config.TARGET_RATIO_PATH,
	), nil
}

// DailyCycle couples the pipeline with the allocation stats of its latest
// run so the job report can carry them.
type DailyCycle struct {
	pipeline *pipeline.Pipeline

	mu    sync.Mutex
	stats planner.DailyStats
}

func (d *DailyCycle) setStats(stats planner.DailyStats) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats = stats
}

func (d *DailyCycle) Run(ctx context.Context) pipeline.Report {
	d.setStats(planner.DailyStats{})
	report := d.pipeline.Run(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	report.Assigned = d.stats.Assigned
	report.Shortages = len(d.stats.Shortages)
	return report
}

// BuildDailyPipeline wires the full daily cycle. The courier delivers the
// finished digests, in production that is the Telegram bot.
func (b *Builder) BuildDailyPipeline(courier delivery.Courier) (*DailyCycle, error) {
	if b.geminiPool.Size() == 0 {
		return nil, errors.New("no gemini credentials configured")
	}
	cycle := &DailyCycle{}

	prompts := map[string]string{}
	for _, name := range []string{
		PromptNewsSummarizer, PromptTopicRebalancer, PromptTitleFormatter,
		PromptArticleWriter, PromptImageStyler, PromptTokenMatcher,
	} {
		text, err := b.prompt(name)
		if err != nil {
			return nil, err
		}
		prompts[name] = text
	}

	// The embedder does not rotate; classification is cheap and one key
	// suffices.
	embedder := ai.NewGeminiClient(b.config.GEMINI_EMBEDDING_MODEL, b.geminiPool.Credentials()[0].Key)

	geminiWorkers := generator.NewPool(b.geminiPool.Credentials(), providerCallPause)
	providers := map[string]generator.Provider{
		"gemini": {Workers: geminiWorkers, NewClient: b.newGemini},
	}
	if b.grokPool.Size() > 0 {
		providers["grok"] = generator.Provider{
			Workers:   generator.NewPool(b.grokPool.Credentials(), providerCallPause),
			NewClient: b.newGrok,
		}
	}

	var renderer generator.ImageRenderer = ai.NewHFImageClient(b.config.HF_IMAGE_MODELS, "")
	if b.hfPool.Size() > 0 {
		renderer = ai.NewHFImageClient(b.config.HF_IMAGE_MODELS, b.hfPool.Credentials()[0].Key)
	}

	deps := pipeline.DailyDeps{
		Now: time.Now,

		Tokens:     collector.NewTokenListUpdater(b.config.TOKEN_LIST_PATH),
		Portal:     collector.NewBybitCollector(b.store),
		Posts:      collector.NewRSSCollector(b.config.RSS_FEED_URLS),
		Summarizer: refinery.NewSummarizer(b.geminiPool, b.newGemini, prompts[PromptNewsSummarizer]),
		Categorize: refinery.NewCategorizer(embedder, b.config.CATEGORIES),

		// The ratio file is refreshed by the weekly run, re-read per cycle.
		NewRebalancer: func() (pipeline.TopicRebalancer, error) {
			return refinery.NewRebalancer(
				b.store, geminiWorkers, b.newGemini, prompts[PromptTopicRebalancer], b.targetRatio(),
			), nil
		},
		Titles: generator.NewTitleFormatter(
			b.store, geminiWorkers, b.newGemini, prompts[PromptTitleFormatter], titleExampleLimit,
		),
		Styles: generator.NewImageStyler(
			b.store, b.geminiPool, b.newGemini, b.notifier, prompts[PromptImageStyler],
		),
		Allocator:   planner.NewDailyAllocator(b.store, b.notifier),
		OnAllocated: cycle.setStats,
		Writer:      generator.NewArticleWriter(b.store, providers, prompts[PromptArticleWriter]),
		Illustrator: generator.NewPictureGenerator(b.store, renderer, b.config.IMAGE_OUTPUT_DIR),

		// The token list file is refreshed by the first pipeline stage of the
		// same run.
		NewTagger: func() (pipeline.TokenTagger, error) {
			tokenList, err := ioutil.ReadFile(b.config.TOKEN_LIST_PATH)
			if err != nil {
				return nil, errors.Wrap(err, "fail to load token list")
			}
			return generator.NewTokenMatcher(
				b.store, geminiWorkers, b.newGemini, prompts[PromptTokenMatcher], string(tokenList),
			), nil
		},
		Packager: delivery.NewPackager(b.store, courier, b.config.DIGEST_OUTPUT_DIR),
	}

	cycle.pipeline = pipeline.New(pipeline.BuildDaily(deps), b.notifier)
	return cycle, nil
}
