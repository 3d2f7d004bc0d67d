package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/aletheia-ng/pidginforge/internal/dataset"
	"github.com/aletheia-ng/pidginforge/internal/provider"
	"github.com/aletheia-ng/pidginforge/internal/schema"
)

// Task is one unit of work: a rendered request plus the combination it came
// from. Immutable once created; consumed exactly once by Run.
type Task struct {
	// Index is the task's position in the expanded combination list, used
	// for progress tracking across resumed runs.
	Index       int
	Combination dataset.Combination
	Request     *provider.Request
}

// Result is the terminal outcome of one task. Either Record is set (success)
// or Err and Reason are (failure).
type Result struct {
	Task     Task
	Record   schema.Record
	Err      error
	Reason   provider.ErrorKind
	Attempts int
}

// Succeeded reports whether the task produced a record.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Options configures a batch run.
type Options struct {
	// Workers bounds the number of simultaneously in-flight tasks.
	Workers int
	// RateLimit is the minimum spacing between outbound calls across the
	// whole pool, not per worker. Zero disables rate limiting.
	RateLimit time.Duration
	// Retry bounds reattempts on rate-limit errors.
	Retry RetryConfig
}

// Summary reports the outcome of a completed run.
type Summary struct {
	RunID     string        `json:"run_id"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Runner dispatches generation tasks through a provider under a bounded
// worker pool and a global rate limit.
type Runner struct {
	provider  provider.Provider
	opts      Options
	limiter   *rate.Limiter
	completed atomic.Int64
}

// New creates a runner for the given provider.
func New(p provider.Provider, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	opts.Retry = opts.Retry.withDefaults()

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Every(opts.RateLimit)
	}

	return &Runner{
		provider: p,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Completed returns the number of tasks that have reached a terminal state.
// It only ever increases during a run.
func (r *Runner) Completed() int {
	return int(r.completed.Load())
}

// Run processes every task and reports each terminal result through
// onResult. Results arrive in completion order, not submission order, and
// onResult may be called concurrently from multiple workers.
//
// When ctx is cancelled, dispatching stops promptly: in-flight tasks are
// abandoned and reported as interrupted failures, undispatched tasks are
// never attempted, and everything already reported stays valid.
func (r *Runner) Run(ctx context.Context, tasks []Task, onResult func(Result)) Summary {
	start := time.Now()
	summary := Summary{RunID: uuid.New().String()}

	var attempted, succeeded, failed atomic.Int64

	taskCh := make(chan Task)
	var wg sync.WaitGroup
	for i := 0; i < r.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				attempted.Add(1)
				result := r.execute(ctx, task)
				if result.Succeeded() {
					succeeded.Add(1)
				} else {
					failed.Add(1)
				}
				r.completed.Add(1)
				if onResult != nil {
					onResult(result)
				}
			}
		}()
	}

dispatch:
	for _, task := range tasks {
		select {
		case taskCh <- task:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(taskCh)
	wg.Wait()

	summary.Attempted = int(attempted.Load())
	summary.Succeeded = int(succeeded.Load())
	summary.Failed = int(failed.Load())
	summary.Duration = time.Since(start)

	log.Info().
		Str("run_id", summary.RunID).
		Int("attempted", summary.Attempted).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("Batch run finished")

	return summary
}

// execute drives one task to a terminal state, retrying only on rate-limit
// errors within the configured budget.
func (r *Runner) execute(ctx context.Context, task Task) Result {
	retry := r.opts.Retry
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		attempts = attempt
		if err := r.limiter.Wait(ctx); err != nil {
			return Result{Task: task, Err: err, Reason: provider.KindInterrupted, Attempts: attempt}
		}

		record, err := r.provider.Generate(ctx, task.Request)
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("task", task.Index).
					Int("attempt", attempt).
					Msg("Task succeeded after retries")
			}
			return Result{Task: task, Record: record, Attempts: attempt}
		}
		lastErr = err

		if ctx.Err() != nil {
			return Result{Task: task, Err: err, Reason: provider.KindInterrupted, Attempts: attempt}
		}
		if !provider.IsRateLimit(err) || attempt == retry.MaxAttempts {
			break
		}

		delay := retry.NextDelay(attempt)
		log.Warn().
			Err(err).
			Int("task", task.Index).
			Int("attempt", attempt).
			Int("max_attempts", retry.MaxAttempts).
			Dur("delay", delay).
			Msg("Rate limited, backing off")

		select {
		case <-ctx.Done():
			return Result{Task: task, Err: err, Reason: provider.KindInterrupted, Attempts: attempt}
		case <-time.After(delay):
		}
	}

	reason := provider.KindOf(lastErr)
	log.Debug().
		Err(lastErr).
		Int("task", task.Index).
		Str("reason", string(reason)).
		Msg("Task failed")

	return Result{Task: task, Err: lastErr, Reason: reason, Attempts: attempts}
}
