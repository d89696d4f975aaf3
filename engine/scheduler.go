package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

// SchedulerConfig fixes the two fire points: the daily cycle at DailyHour
// and the weekly planning run on Monday at WeeklyHour, both in Location.
type SchedulerConfig struct {
	Name       string
	DailyHour  int
	WeeklyHour int
	Location   *time.Location
}

// Scheduler publishes a pending-job message whenever a fire point is
// reached. It owns no execution; the runner picks the messages up.
type Scheduler struct {
	config   SchedulerConfig
	eventBus *gochannel.GoChannel
	now      func() time.Time
}

func NewScheduler(config SchedulerConfig, e *gochannel.GoChannel) *Scheduler {
	return &Scheduler{config: config, eventBus: e, now: time.Now}
}

// NextDailyFire returns the next occurrence of hour o'clock after now.
func NextDailyFire(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	fire := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !fire.After(local) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

// NextWeeklyFire returns the next Monday at hour o'clock after now.
func NextWeeklyFire(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	daysUntilMonday := (int(time.Monday) - int(local.Weekday()) + 7) % 7
	fire := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc).AddDate(0, 0, daysUntilMonday)
	if !fire.After(local) {
		fire = fire.AddDate(0, 0, 7)
	}
	return fire
}

func (s *Scheduler) RunModule(ctx context.Context) error {
	for {
		now := s.now()
		nextDaily := NextDailyFire(now, s.config.DailyHour, s.config.Location)
		nextWeekly := NextWeeklyFire(now, s.config.WeeklyHour, s.config.Location)

		job := JobDaily
		next := nextDaily
		if nextWeekly.Before(nextDaily) {
			job = JobWeekly
			next = nextWeekly
		}
		Logger.Log.Infof("next scheduled job: %s at %v", job, next)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(next.Sub(now)):
		}

		if err := s.publish(job, next); err != nil {
			return err
		}
	}
}

func (s *Scheduler) publish(job string, fireTime time.Time) error {
	payload, err := json.Marshal(JobRequest{Job: job, FireTime: fireTime.Format(time.RFC3339)})
	if err != nil {
		return err
	}
	return s.eventBus.Publish(TopicPendingJob, message.NewMessage(watermill.NewUUID(), payload))
}

func (s *Scheduler) Name() string {
	return s.config.Name
}
