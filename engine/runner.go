package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/neurocrypto/newsforge/pipeline"
	"github.com/neurocrypto/newsforge/utils"
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

// DailyJob is the runner's view of the daily pipeline.
type DailyJob interface {
	Run(ctx context.Context) pipeline.Report
}

// WeeklyJob is the runner's view of the strategic planner.
type WeeklyJob interface {
	Run(ctx context.Context, now time.Time) error
}

// JobLocker is the per-job-per-date claim. The Redis-backed
// utils.RunLock is the production implementation.
type JobLocker interface {
	Acquire(ctx context.Context, job string, date string) (bool, error)
	Release(ctx context.Context, job string, date string) error
}

// RunnerConfig names the module.
type RunnerConfig struct {
	Name string
}

// Runner consumes pending jobs from the bus, claims the day's run lock so a
// restarted service never executes the same job twice on one date, runs the
// job and publishes its report.
type Runner struct {
	config   RunnerConfig
	eventBus *gochannel.GoChannel
	lock     JobLocker
	daily    DailyJob
	weekly   WeeklyJob
	now      func() time.Time

	mu         sync.Mutex
	lastReport *JobReport
}

func NewRunner(config RunnerConfig, e *gochannel.GoChannel, lock JobLocker, daily DailyJob, weekly WeeklyJob) *Runner {
	return &Runner{
		config:   config,
		eventBus: e,
		lock:     lock,
		daily:    daily,
		weekly:   weekly,
		now:      time.Now,
	}
}

func (r *Runner) RunModule(ctx context.Context) error {
	messages, err := r.eventBus.Subscribe(ctx, TopicPendingJob)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		request := JobRequest{}
		if err := json.Unmarshal(msg.Payload, &request); err != nil {
			Logger.Log.Error("fail to decode job request: ", err)
			continue
		}

		report := r.execute(ctx, request.Job)
		r.setLastReport(report)
		if err := r.publishReport(report); err != nil {
			Logger.Log.Error("fail to publish job report: ", err)
		}
	}
	return nil
}

// execute claims the date and runs one job. A lost claim is a skip, not a
// failure.
func (r *Runner) execute(ctx context.Context, job string) JobReport {
	start := r.now()
	date := utils.DateKey(start)
	report := JobReport{Job: job, Date: date}

	acquired, err := r.lock.Acquire(ctx, job, date)
	if err != nil {
		Logger.Log.Error("fail to acquire run lock: ", err)
		return report
	}
	if !acquired {
		Logger.Log.Infof("job %s already ran on %s, skipped", job, date)
		report.Skipped = true
		report.Succeeded = true
		return report
	}

	switch job {
	case JobDaily:
		result := r.daily.Run(ctx)
		report.Succeeded = !result.Aborted
		report.Warnings = result.Warnings()
		report.Assigned = result.Assigned
		report.Shortages = result.Shortages
		report.Duration = result.Duration.String()
	case JobWeekly:
		err := r.weekly.Run(ctx, start)
		report.Succeeded = err == nil
		report.Duration = r.now().Sub(start).String()
	default:
		Logger.Log.Errorf("unknown job %q", job)
	}

	// A failed run frees the date so a manual retry can still happen today.
	if !report.Succeeded {
		if err := r.lock.Release(ctx, job, date); err != nil {
			Logger.Log.Error("fail to release run lock: ", err)
		}
	}
	return report
}

func (r *Runner) publishReport(report JobReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return r.eventBus.Publish(TopicExecutedJob, message.NewMessage(watermill.NewUUID(), payload))
}

func (r *Runner) setLastReport(report JobReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastReport = &report
}

// LastReport returns the most recent job report, nil before the first run.
func (r *Runner) LastReport() *JobReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReport
}

func (r *Runner) Name() string {
	return r.config.Name
}
