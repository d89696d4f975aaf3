// Package generator holds the AI-driven content workers that advance topics
// through their state machine: title formatting, article writing, image
// styling, picture generation and token matching.
package generator

import (
	"context"
	"sync"
	"time"

	"github.com/neurocrypto/newsforge/ai"
	Logger "github.com/neurocrypto/newsforge/utils/log"
)

// Task is one unit of AI work bound to the credential of the worker that
// picked it up.
type Task func(ctx context.Context, cred ai.Credential)

// Pool drains a task list with exactly one worker goroutine per credential.
// A worker is pinned to its credential for its whole life; there is no work
// stealing and no retry, a failed task is that task's problem alone. The
// pause between tasks keeps each key under the provider's rate limit.
type Pool struct {
	creds []ai.Credential
	pause time.Duration
}

func NewPool(creds []ai.Credential, pause time.Duration) *Pool {
	return &Pool{creds: creds, pause: pause}
}

// Run blocks until every task has been executed or the context is canceled.
// With no credentials available it logs and returns without touching any
// task.
func (p *Pool) Run(ctx context.Context, tasks []Task) {
	if len(tasks) == 0 {
		return
	}
	if len(p.creds) == 0 {
		Logger.Log.Errorf("no credentials available, %d tasks skipped", len(tasks))
		return
	}

	queue := make(chan Task, len(tasks))
	for _, task := range tasks {
		queue <- task
	}
	close(queue)

	var wg sync.WaitGroup
	for _, cred := range p.creds {
		wg.Add(1)
		go func(cred ai.Credential) {
			defer wg.Done()
			for task := range queue {
				if ctx.Err() != nil {
					return
				}
				p.execute(ctx, cred, task)
				if p.pause > 0 {
					select {
					case <-time.After(p.pause):
					case <-ctx.Done():
						return
					}
				}
			}
		}(cred)
	}
	wg.Wait()
}

// execute isolates a single task: a panic inside one task must not take the
// worker, and the rest of the queue, down with it.
func (p *Pool) execute(ctx context.Context, cred ai.Credential, task Task) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Log.Errorf("worker on credential %s panicked: %v", cred.Name, r)
		}
	}()
	task(ctx, cred)
}
