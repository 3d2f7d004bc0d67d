package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aletheia-ng/pidginforge/internal/dataset"
	"github.com/aletheia-ng/pidginforge/internal/provider"
	"github.com/aletheia-ng/pidginforge/internal/schema"
)

func makeTasks(n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{
			Index:       i,
			Combination: dataset.Combination{"topic": "banking_sector", "genre": "news_report"},
			Request: &provider.Request{
				Model:  "test-model",
				Prompt: "Write a news_report about banking_sector.",
				Schema: schema.PidginText(),
			},
		}
	}
	return tasks
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func collectResults() (func(Result), *[]Result, *sync.Mutex) {
	var mu sync.Mutex
	results := &[]Result{}
	return func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		*results = append(*results, r)
	}, results, &mu
}

func TestRunAllSucceed(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	run := New(mock, Options{Workers: 2, Retry: fastRetry(3)})

	onResult, results, _ := collectResults()
	summary := run.Run(context.Background(), makeTasks(4), onResult)

	assert.Equal(t, 4, summary.Attempted)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 4, run.Completed())

	require.Len(t, *results, 4)
	for _, r := range *results {
		assert.True(t, r.Succeeded())
		assert.Equal(t, 1, r.Attempts)
	}
}

func TestRunRetriesRateLimitThenSucceeds(t *testing.T) {
	mock := provider.NewMockProvider("mock").
		Fail(provider.NewRateLimitError(errors.New("429")))
	run := New(mock, Options{Workers: 1, Retry: fastRetry(3)})

	onResult, results, _ := collectResults()
	summary := run.Run(context.Background(), makeTasks(1), onResult)

	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, *results, 1)
	assert.True(t, (*results)[0].Succeeded())
	assert.Equal(t, 2, (*results)[0].Attempts, "one rate-limited attempt plus one retry")
	assert.Equal(t, 2, mock.Calls())
}

func TestRunExhaustsRetryBudget(t *testing.T) {
	mock := provider.NewMockProvider("mock").
		Fail(provider.NewRateLimitError(errors.New("429"))).
		Fail(provider.NewRateLimitError(errors.New("429"))).
		Fail(provider.NewRateLimitError(errors.New("429")))
	run := New(mock, Options{Workers: 1, Retry: fastRetry(3)})

	onResult, results, _ := collectResults()
	summary := run.Run(context.Background(), makeTasks(1), onResult)

	assert.Equal(t, 1, summary.Failed)
	require.Len(t, *results, 1)
	result := (*results)[0]
	assert.False(t, result.Succeeded())
	assert.Equal(t, provider.KindRateLimit, result.Reason)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, mock.Calls(), "budget is bounded")
}

func TestRunDoesNotRetryProviderErrors(t *testing.T) {
	mock := provider.NewMockProvider("mock").
		Fail(provider.NewProviderError(errors.New("boom")))
	run := New(mock, Options{Workers: 1, Retry: fastRetry(3)})

	onResult, results, _ := collectResults()
	run.Run(context.Background(), makeTasks(1), onResult)

	require.Len(t, *results, 1)
	result := (*results)[0]
	assert.Equal(t, provider.KindProvider, result.Reason)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, mock.Calls())
}

func TestRunDoesNotRetrySchemaValidationErrors(t *testing.T) {
	mock := provider.NewMockProvider("mock").
		Fail(provider.NewSchemaValidationError(errors.New("not json")))
	run := New(mock, Options{Workers: 1, Retry: fastRetry(3)})

	onResult, results, _ := collectResults()
	run.Run(context.Background(), makeTasks(1), onResult)

	require.Len(t, *results, 1)
	assert.Equal(t, provider.KindSchemaValidation, (*results)[0].Reason)
	assert.Equal(t, 1, mock.Calls())
}

// overlapProvider records the maximum number of simultaneously in-flight
// Generate calls it has observed.
type overlapProvider struct {
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func (p *overlapProvider) Generate(ctx context.Context, req *provider.Request) (schema.Record, error) {
	n := p.inFlight.Add(1)
	for {
		max := p.maxInFlight.Load()
		if n <= max || p.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	p.inFlight.Add(-1)
	return schema.Record{"title": "t", "content": "c"}, nil
}

func (p *overlapProvider) Name() string { return "overlap" }
func (p *overlapProvider) Close() error { return nil }

func TestRunSingleWorkerSerializesCalls(t *testing.T) {
	p := &overlapProvider{}
	run := New(p, Options{Workers: 1, Retry: fastRetry(1)})

	run.Run(context.Background(), makeTasks(6), nil)

	assert.Equal(t, int64(1), p.maxInFlight.Load(), "no overlapping in-flight windows with one worker")
}

func TestRunWorkerPoolBoundsConcurrency(t *testing.T) {
	p := &overlapProvider{}
	run := New(p, Options{Workers: 3, Retry: fastRetry(1)})

	summary := run.Run(context.Background(), makeTasks(12), nil)

	assert.Equal(t, 12, summary.Succeeded)
	assert.LessOrEqual(t, p.maxInFlight.Load(), int64(3))
}

func TestRunRateLimitSpacesCalls(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	spacing := 20 * time.Millisecond
	run := New(mock, Options{Workers: 4, RateLimit: spacing, Retry: fastRetry(1)})

	start := time.Now()
	run.Run(context.Background(), makeTasks(5), nil)
	elapsed := time.Since(start)

	// Five calls under a global 20ms spacing need at least 80ms regardless
	// of worker count.
	assert.GreaterOrEqual(t, elapsed, 4*spacing)
}

// blockingProvider parks every Generate call until its context is cancelled.
type blockingProvider struct {
	started atomic.Int64
}

func (p *blockingProvider) Generate(ctx context.Context, req *provider.Request) (schema.Record, error) {
	p.started.Add(1)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *blockingProvider) Name() string { return "blocking" }
func (p *blockingProvider) Close() error { return nil }

func TestRunCancellation(t *testing.T) {
	p := &blockingProvider{}
	run := New(p, Options{Workers: 2, Retry: fastRetry(3)})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	onResult, results, _ := collectResults()
	summary := run.Run(ctx, makeTasks(100), onResult)

	assert.Less(t, summary.Attempted, 100, "dispatch must stop promptly on cancellation")
	assert.Equal(t, summary.Attempted, summary.Failed)
	assert.Equal(t, 0, summary.Succeeded)

	for _, r := range *results {
		assert.Equal(t, provider.KindInterrupted, r.Reason)
	}
}

func TestRunCompletenessInvariant(t *testing.T) {
	mock := provider.NewMockProvider("mock").
		Fail(provider.NewProviderError(errors.New("boom"))).
		Fail(provider.NewSchemaValidationError(errors.New("bad")))
	run := New(mock, Options{Workers: 3, Retry: fastRetry(1)})

	onResult, results, _ := collectResults()
	summary := run.Run(context.Background(), makeTasks(9), onResult)

	assert.Equal(t, 9, summary.Attempted)
	assert.Equal(t, 9, summary.Succeeded+summary.Failed)
	assert.Len(t, *results, 9, "one result per submitted task")
}

func TestRetryConfigBackoff(t *testing.T) {
	config := RetryConfig{
		MaxAttempts:   5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}

	assert.Equal(t, 100*time.Millisecond, config.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, config.NextDelay(2))
	assert.Equal(t, 400*time.Millisecond, config.NextDelay(3))
	assert.Equal(t, time.Second, config.NextDelay(10), "delay is capped")
}

func TestRetryConfigJitterStaysBounded(t *testing.T) {
	config := RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}

	for i := 0; i < 50; i++ {
		delay := config.NextDelay(1)
		assert.GreaterOrEqual(t, delay, 100*time.Millisecond)
		assert.Less(t, delay, 111*time.Millisecond)
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()
	assert.Equal(t, 3, config.MaxAttempts)
	assert.True(t, config.Jitter)
}
