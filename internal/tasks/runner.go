// Package tasks provides a small fire-and-forget runner for work that must
// outlive the request that scheduled it, such as post-turn memory extraction.
// Submitted tasks receive their own context (detached from the request), and
// their failures are logged, never propagated: a background task is
// structurally incapable of failing the response that was already sent.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Runner executes named tasks on their own goroutines with a per-task
// timeout and panic recovery. The zero value is not usable; call NewRunner.
type Runner struct {
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner constructs a Runner whose tasks are bounded by timeout.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Runner{timeout: timeout}
}

// Submit schedules fn to run detached from the caller. The task gets a fresh
// context bounded by the runner's timeout; errors and panics are logged under
// the task name and then dropped.
func (r *Runner) Submit(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("task", name).Msg("background task panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			log.Warn().Err(err).Str("task", name).Dur("elapsed", time.Since(start)).Msg("background task failed")
			return
		}
		log.Debug().Str("task", name).Dur("elapsed", time.Since(start)).Msg("background task done")
	}()
}

// Wait blocks until all submitted tasks finish. Intended for graceful
// shutdown and tests; requests never call it.
func (r *Runner) Wait() {
	r.wg.Wait()
}
