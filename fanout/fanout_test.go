package fanout_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/fanout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noRetry() *fanout.RetryPolicy {
	return &fanout.RetryPolicy{MaxRetries: 0, BaseDelay: time.Millisecond}
}

func drain(r *fanout.Run) []sweep.URLRecord {
	var out []sweep.URLRecord
	for rec := range r.Records {
		out = append(out, rec)
	}
	return out
}

func TestRunner_MergesSources(t *testing.T) {
	t.Parallel()

	emitN := func(src string, n int) fanout.Task {
		return fanout.Task{Source: src, Run: func(ctx context.Context, emit sweep.EmitFunc) error {
			for i := 0; i < n; i++ {
				if err := emit(sweep.URLRecord{URL: fmt.Sprintf("https://%s.example.com/%d", src, i), Source: src}); err != nil {
					return err
				}
			}
			return nil
		}}
	}

	r := &fanout.Runner{Default: fanout.SourceConfig{RPS: 1000, Retry: noRetry()}}
	run := r.Start(context.Background(), []fanout.Task{emitN("sitemap", 3), emitN("wayback", 2)})
	records := drain(run)
	summary := run.Wait()

	assert.Len(t, records, 5)
	assert.Equal(t, 5, summary.Total)
	assert.ElementsMatch(t, []string{"sitemap", "wayback"}, summary.SourcesUsed)
	assert.Empty(t, summary.Errors)
}

func TestRunner_TaskFailureDoesNotTerminatePlan(t *testing.T) {
	t.Parallel()

	ok := fanout.Task{Source: "good", Run: func(ctx context.Context, emit sweep.EmitFunc) error {
		return emit(sweep.URLRecord{URL: "https://example.com/ok", Source: "good"})
	}}
	bad := fanout.Task{Source: "bad", Run: func(ctx context.Context, emit sweep.EmitFunc) error {
		return sweep.Errorf(sweep.EINTERNAL, "boom")
	}}

	r := &fanout.Runner{Default: fanout.SourceConfig{RPS: 1000, Retry: noRetry()}}
	run := r.Start(context.Background(), []fanout.Task{bad, ok})
	records := drain(run)
	summary := run.Wait()

	require.Len(t, records, 1)
	assert.Equal(t, "https://example.com/ok", records[0].URL)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "bad")
	assert.False(t, summary.Failed())
}

func TestRunner_PermissionErrorDisablesSource(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	tasks := make([]fanout.Task, 5)
	for i := range tasks {
		tasks[i] = fanout.Task{Source: "quota", Run: func(ctx context.Context, emit sweep.EmitFunc) error {
			calls.Add(1)
			return sweep.Errorf(sweep.EPERMISSION, "HTTP 403")
		}}
	}

	r := &fanout.Runner{
		Configs: map[string]fanout.SourceConfig{
			"quota": {Workers: 1, RPS: 1000, Retry: noRetry()},
		},
	}
	run := r.Start(context.Background(), tasks)
	drain(run)
	summary := run.Wait()

	assert.Less(t, calls.Load(), int32(5), "remaining work shed after permission failure")
	require.Len(t, summary.Stats, 1)
	assert.True(t, summary.Stats[0].Disabled)
}

func TestRunner_Cancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	blocked := fanout.Task{Source: "slow", Run: func(ctx context.Context, emit sweep.EmitFunc) error {
		<-ctx.Done()
		return sweep.WrapError(sweep.ECANCELED, ctx.Err(), "interrupted")
	}}
	fast := fanout.Task{Source: "fast", Run: func(ctx context.Context, emit sweep.EmitFunc) error {
		return emit(sweep.URLRecord{URL: "https://example.com/a", Source: "fast"})
	}}

	r := &fanout.Runner{Default: fanout.SourceConfig{RPS: 1000, Retry: noRetry()}}
	run := r.Start(ctx, []fanout.Task{blocked, fast})

	var records []sweep.URLRecord
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	for rec := range run.Records {
		records = append(records, rec)
	}
	summary := run.Wait()

	// Whatever arrived before cancel is kept; the interrupted adapter is in
	// the errors array.
	assert.Len(t, records, 1)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "slow")
}

func TestRunner_PerSourcePoolBound(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	task := func() fanout.Task {
		return fanout.Task{Source: "bounded", Run: func(ctx context.Context, emit sweep.EmitFunc) error {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		}}
	}

	tasks := make([]fanout.Task, 10)
	for i := range tasks {
		tasks[i] = task()
	}

	r := &fanout.Runner{
		Configs: map[string]fanout.SourceConfig{
			"bounded": {Workers: 2, RPS: 1000, Retry: noRetry()},
		},
	}
	run := r.Start(context.Background(), tasks)
	drain(run)
	run.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunner_PoliteDelaySpacesTasks(t *testing.T) {
	t.Parallel()

	noop := func() fanout.Task {
		return fanout.Task{Source: "scrape", Run: func(ctx context.Context, emit sweep.EmitFunc) error {
			return nil
		}}
	}

	r := &fanout.Runner{
		Configs: map[string]fanout.SourceConfig{
			"scrape": {Workers: 1, RPS: 1000, PoliteDelay: 40 * time.Millisecond, Retry: noRetry()},
		},
	}

	start := time.Now()
	run := r.Start(context.Background(), []fanout.Task{noop(), noop(), noop()})
	drain(run)
	run.Wait()

	// Jitter bottoms out at half the base delay, so three serialized tasks
	// take at least 3 x 20ms.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestRetry_BacksOffThenSucceeds(t *testing.T) {
	t.Parallel()

	var attempts int
	err := fanout.Retry(context.Background(), fanout.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return sweep.Errorf(sweep.EUNAVAILABLE, "HTTP 503")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	t.Parallel()

	var attempts int
	err := fanout.Retry(context.Background(), fanout.DefaultRetryPolicy(), func(ctx context.Context) error {
		attempts++
		return sweep.Errorf(sweep.EPERMISSION, "HTTP 401")
	})

	assert.Equal(t, sweep.EPERMISSION, sweep.ErrorCode(err))
	assert.Equal(t, 1, attempts)
}

func TestAntiBot(t *testing.T) {
	t.Parallel()

	assert.True(t, fanout.AntiBot(sweep.Errorf(sweep.ERATELIMITED, "captcha page returned")))
	assert.True(t, fanout.AntiBot(sweep.Errorf(sweep.ERATELIMITED, "request Blocked by upstream")))
	assert.False(t, fanout.AntiBot(sweep.Errorf(sweep.EUNAVAILABLE, "connection reset")))
}
