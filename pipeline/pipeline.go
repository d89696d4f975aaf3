package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/neurocrypto/newsforge/notify"
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

// StageReport records how one stage ended.
type StageReport struct {
	Name     string
	Result   StageResult
	Err      error
	Duration time.Duration
}

// Report summarizes one pipeline run. Assigned and Shortages are filled in
// by the daily cycle wrapper that observes the allocation stage.
type Report struct {
	StartedAt time.Time
	Duration  time.Duration
	Stages    []StageReport
	Aborted   bool
	Assigned  int
	Shortages int
}

// Warnings returns the names of stages that warned.
func (r Report) Warnings() []string {
	names := []string{}
	for _, s := range r.Stages {
		if s.Result == Warn {
			names = append(names, s.Name)
		}
	}
	return names
}

// Pipeline runs its stages strictly in order. A Warn is alerted and the run
// continues; an Abort alerts and stops the cycle, everything after the
// aborting stage stays untouched.
type Pipeline struct {
	stages   []Stage
	notifier notify.Notifier
}

func New(stages []Stage, n notify.Notifier) *Pipeline {
	return &Pipeline{stages: stages, notifier: n}
}

// Run executes the cycle once.
func (p *Pipeline) Run(ctx context.Context) Report {
	report := Report{StartedAt: time.Now()}

	for _, stage := range p.stages {
		start := time.Now()
		result, err := stage.Run(ctx)
		sr := StageReport{Name: stage.Name, Result: result, Err: err, Duration: time.Since(start)}
		report.Stages = append(report.Stages, sr)

		switch result {
		case Continue:
			Logger.Log.Infof("stage %s finished in %v", stage.Name, sr.Duration)
		case Warn:
			Logger.Log.Errorf("stage %s warned: %v", stage.Name, err)
			p.alert(fmt.Sprintf("Stage %s failed, the daily cycle continues without it: %v", stage.Name, err))
		case Abort:
			Logger.Log.Errorf("stage %s aborted the cycle: %v", stage.Name, err)
			p.alert(fmt.Sprintf("Stage %s failed, the daily cycle is stopped: %v", stage.Name, err))
			report.Aborted = true
			report.Duration = time.Since(report.StartedAt)
			return report
		}

		if ctx.Err() != nil {
			Logger.Log.Error("daily cycle canceled")
			report.Aborted = true
			break
		}
	}

	report.Duration = time.Since(report.StartedAt)
	return report
}

func (p *Pipeline) alert(message string) {
	if err := p.notifier.Notify(message); err != nil {
		Logger.Log.Error("fail to deliver pipeline alert: ", err)
	}
}
