// Package pipeline orchestrates the daily content cycle as an ordered list
// of named stages.
package pipeline

import "context"

// StageResult tells the pipeline how to proceed after a stage.
type StageResult int

const (
	// Continue: the stage did its job.
	Continue StageResult = iota
	// Warn: the stage failed but the cycle can limp on without it.
	Warn
	// Abort: the rest of the cycle cannot produce anything useful.
	Abort
)

func (r StageResult) String() string {
	switch r {
	case Continue:
		return "ok"
	case Warn:
		return "warned"
	case Abort:
		return "aborted"
	}
	return "unknown"
}

// Stage is one step of the daily cycle. The returned error carries the
// detail, the StageResult decides what happens next.
type Stage struct {
	Name string
	Run  func(ctx context.Context) (StageResult, error)
}
