package engine

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

// Event bus topics.
const (
	// A job the scheduler decided should run now.
	TopicPendingJob = "job.pending"
	// A finished run's report.
	TopicExecutedJob = "job.executed"
)

// Job names carried in the bus messages.
const (
	JobDaily  = "daily_pipeline"
	JobWeekly = "weekly_planner"
)

// JobRequest is the payload of a pending-job message.
type JobRequest struct {
	Job      string `json:"job"`
	FireTime string `json:"fire_time"`
}

// JobReport is the payload of an executed-job message.
type JobReport struct {
	Job       string   `json:"job"`
	Date      string   `json:"date"`
	Succeeded bool     `json:"succeeded"`
	Skipped   bool     `json:"skipped"`
	Assigned  int      `json:"assigned"`
	Shortages int      `json:"shortages"`
	Warnings  []string `json:"warnings"`
	Duration  string   `json:"duration"`
}

// Engine manages the shared event bus and the lifecycle of its modules,
// each running in its own goroutine.
type Engine struct {
	Modules  []Module
	EventBus *gochannel.GoChannel

	ctx    context.Context
	cancel context.CancelFunc
}

func NewEngine(ms []Module, ctx context.Context, cancel context.CancelFunc, e *gochannel.GoChannel) *Engine {
	return &Engine{
		Modules:  ms,
		EventBus: e,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run executes all modules and blocks until every one of them has finished.
func (e *Engine) Run() {
	var wg sync.WaitGroup
	for _, m := range e.Modules {
		wg.Add(1)
		go func(m Module) {
			defer wg.Done()
			Logger.Log.Infof("start engine module %s", m.Name())
			RunModuleWithGracefulRestart(e.ctx, m)
			Logger.Log.Infof("module %s finished execution", m.Name())
		}(m)
	}
	wg.Wait()
}

// Shutdown cancels the root context; modules drain and exit on their own.
func (e *Engine) Shutdown() {
	Logger.Log.Infoln("starting graceful shutdown process, goodbye")
	e.cancel()
}
