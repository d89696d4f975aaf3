package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

type ReporterConfig struct {
	Name string
}

// Reporter listens for executed-job reports and forwards run metrics to
// statsd for dashboards and alerting.
type Reporter struct {
	config   ReporterConfig
	statsd   statsd.ClientInterface
	eventBus *gochannel.GoChannel
}

func NewReporter(config ReporterConfig, s statsd.ClientInterface, e *gochannel.GoChannel) *Reporter {
	return &Reporter{config: config, statsd: s, eventBus: e}
}

func (r *Reporter) RunModule(ctx context.Context) error {
	messages, err := r.eventBus.Subscribe(ctx, TopicExecutedJob)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		report := JobReport{}
		if err := json.Unmarshal(msg.Payload, &report); err != nil {
			Logger.Log.Error("fail to decode job report: ", err)
			continue
		}
		r.emit(report)
	}
	return nil
}

func (r *Reporter) emit(report JobReport) {
	tags := []string{
		fmt.Sprintf("job:%s", report.Job),
		fmt.Sprintf("succeeded:%t", report.Succeeded),
		fmt.Sprintf("skipped:%t", report.Skipped),
	}
	if err := r.statsd.Incr("newsforge.job.finished", tags, 1); err != nil {
		Logger.Log.Error("cannot report job counter: ", err)
	}
	if err := r.statsd.Gauge("newsforge.job.assigned_topics", float64(report.Assigned), tags, 1); err != nil {
		Logger.Log.Error("cannot report assigned topics: ", err)
	}
	if err := r.statsd.Gauge("newsforge.job.shortages", float64(report.Shortages), tags, 1); err != nil {
		Logger.Log.Error("cannot report shortages: ", err)
	}
	if duration, err := time.ParseDuration(report.Duration); err == nil {
		if err := r.statsd.Gauge("newsforge.job.duration_seconds", duration.Seconds(), tags, 1); err != nil {
			Logger.Log.Error("cannot report run duration: ", err)
		}
	}
}

func (r *Reporter) Name() string {
	return r.config.Name
}
