package pipeline

import (
	"context"
	"testing"

	"github.com/neurocrypto/newsforge/notify"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stage(name string, result StageResult, err error, trace *[]string) Stage {
	return Stage{
		Name: name,
		Run: func(ctx context.Context) (StageResult, error) {
			*trace = append(*trace, name)
			return result, err
		},
	}
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	trace := []string{}
	p := New([]Stage{
		stage("collect", Continue, nil, &trace),
		stage("summarize", Continue, nil, &trace),
		stage("deliver", Continue, nil, &trace),
	}, notify.NewFakeNotifier())

	report := p.Run(context.Background())

	assert.Equal(t, []string{"collect", "summarize", "deliver"}, trace)
	assert.False(t, report.Aborted)
	assert.Len(t, report.Stages, 3)
	assert.Empty(t, report.Warnings())
}

func TestPipelineWarnContinuesAndAlerts(t *testing.T) {
	trace := []string{}
	n := notify.NewFakeNotifier()
	p := New([]Stage{
		stage("tokens", Warn, errors.New("exchange down"), &trace),
		stage("collect", Continue, nil, &trace),
	}, n)

	report := p.Run(context.Background())

	assert.Equal(t, []string{"tokens", "collect"}, trace)
	assert.False(t, report.Aborted)
	assert.Equal(t, []string{"tokens"}, report.Warnings())
	require.Len(t, n.Messages, 1)
	assert.Contains(t, n.Messages[0], "tokens")
	assert.Contains(t, n.Messages[0], "continues")
}

func TestPipelineAbortStopsTheCycle(t *testing.T) {
	trace := []string{}
	n := notify.NewFakeNotifier()
	p := New([]Stage{
		stage("collect", Continue, nil, &trace),
		stage("summarize", Abort, errors.New("model dead"), &trace),
		stage("deliver", Continue, nil, &trace),
	}, n)

	report := p.Run(context.Background())

	// The stage after the abort never runs.
	assert.Equal(t, []string{"collect", "summarize"}, trace)
	assert.True(t, report.Aborted)
	assert.Len(t, report.Stages, 2)
	require.Len(t, n.Messages, 1)
	assert.Contains(t, n.Messages[0], "stopped")
}

func TestPipelineNotifierFailureDoesNotChangeControlFlow(t *testing.T) {
	trace := []string{}
	n := notify.NewFakeNotifier()
	n.Err = errors.New("telegram down")
	p := New([]Stage{
		stage("tokens", Warn, errors.New("boom"), &trace),
		stage("collect", Continue, nil, &trace),
	}, n)

	report := p.Run(context.Background())
	assert.False(t, report.Aborted)
	assert.Equal(t, []string{"tokens", "collect"}, trace)
}

func TestPipelineCanceledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	trace := []string{}
	p := New([]Stage{
		{Name: "first", Run: func(ctx context.Context) (StageResult, error) {
			trace = append(trace, "first")
			cancel()
			return Continue, nil
		}},
		stage("second", Continue, nil, &trace),
	}, notify.NewFakeNotifier())

	report := p.Run(ctx)

	assert.Equal(t, []string{"first"}, trace)
	assert.True(t, report.Aborted)
}
