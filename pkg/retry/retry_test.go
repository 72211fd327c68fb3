package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "followscope/pkg/errors"
	"followscope/pkg/logger"
	"followscope/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{9, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestJitterBackoff(t *testing.T) {
	jb := &JitterBackoff{Min: 60 * time.Second, Max: 90 * time.Second}
	for i := 1; i <= 200; i++ {
		d := jb.NextDelay(i)
		require.GreaterOrEqual(t, d, 60*time.Second)
		require.LessOrEqual(t, d, 90*time.Second)
	}

	fixed := &JitterBackoff{Min: 60 * time.Second, Max: 90 * time.Second, Int64N: func(n int64) int64 { return n - 1 }}
	assert.Equal(t, 90*time.Second, fixed.NextDelay(1))
	assert.Equal(t, time.Duration(0), fixed.NextDelay(0))
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	rec := &ratelimit.SleepRecorder{}
	attempts := 0

	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return errs.RateLimited("/1.1/friends/ids.json")
		}
		return nil
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 5 * time.Minute},
		RetryIf:     errs.IsRateLimited,
		Sleep:       rec.Sleep,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{5 * time.Minute, 5 * time.Minute}, rec.Sleeps())
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	rec := &ratelimit.SleepRecorder{}
	attempts := 0
	failure := errs.RequestFailed("/1.1/friendships/destroy.json", 403)

	err := Do(func() error {
		attempts++
		return failure
	}, &Config{MaxAttempts: 5, RetryIf: errs.IsRateLimited, Sleep: rec.Sleep})

	assert.Same(t, failure, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.Sleeps())
}

func TestDoExhausts(t *testing.T) {
	rec := &ratelimit.SleepRecorder{}
	tl := logger.NewTestLogger()
	attempts := 0

	err := Do(func() error {
		attempts++
		return errs.RateLimited("/1.1/friendships/destroy.json")
	}, &Config{
		MaxAttempts: 4,
		Backoff:     &ConstantBackoff{Delay: time.Minute},
		RetryIf:     errs.IsRateLimited,
		Sleep:       rec.Sleep,
		Logger:      tl,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.True(t, errs.IsRateLimited(err), "last error stays inspectable")
	assert.Equal(t, 4, attempts)
	assert.Len(t, rec.Sleeps(), 3, "no wait after the final attempt")
	assert.True(t, tl.HasMessage("max retry attempts exceeded"))
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 3)
}

func TestDoCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(func() error {
		attempts++
		cancel()
		return errs.RateLimited("/1.1/followers/ids.json")
	}, RateLimitConfig(ctx, 0, &ConstantBackoff{Delay: time.Hour}))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDoOnRetryCallback(t *testing.T) {
	rec := &ratelimit.SleepRecorder{}
	var seen []int

	_ = Do(func() error {
		return errs.Network("/x", errors.New("reset"))
	}, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Second},
		Sleep:       rec.Sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			seen = append(seen, attempt)
			assert.Equal(t, time.Second, delay)
		},
	})

	assert.Equal(t, []int{1, 2}, seen)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(errors.New("plain")))
	assert.True(t, DefaultRetryIf(errs.Network("/x", errors.New("eof"))))
	assert.True(t, DefaultRetryIf(errs.RateLimited("/x")))
	assert.False(t, DefaultRetryIf(errs.MalformedResponse("/x", "bad json")))
}

func TestDoWithResult(t *testing.T) {
	rec := &ratelimit.SleepRecorder{}
	calls := 0

	got, err := DoWithResult(func() (string, error) {
		calls++
		if calls == 1 {
			return "", errs.RateLimited("/x")
		}
		return "page", nil
	}, &Config{MaxAttempts: 2, RetryIf: errs.IsRateLimited, Sleep: rec.Sleep})

	require.NoError(t, err)
	assert.Equal(t, "page", got)
}
