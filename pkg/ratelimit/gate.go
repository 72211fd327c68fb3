package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Gate imposes a uniformly random pause between requests
type Gate struct {
	// Sleep performs the wait. Defaults to a timer honouring ctx.
	Sleep Sleeper
	// Int64N returns a value in [0, n). Defaults to math/rand/v2.
	Int64N func(n int64) int64
}

// NewGate returns a Gate using real time and randomness
func NewGate() *Gate {
	return &Gate{Sleep: Sleep, Int64N: rand.Int64N}
}

// Jitter picks a duration uniformly from [min, max]
func (g *Gate) Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	intn := g.Int64N
	if intn == nil {
		intn = rand.Int64N
	}
	return min + time.Duration(intn(int64(max-min)+1))
}

// Wait suspends the caller for a random duration in [min, max]. It returns
// ctx.Err() if ctx is done first.
func (g *Gate) Wait(ctx context.Context, min, max time.Duration) error {
	sleep := g.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	return sleep(ctx, g.Jitter(min, max))
}

// Sleep waits for the specified duration or until ctx is cancelled
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SleepRecorder is a Sleeper for tests. It returns immediately and keeps
// the requested durations.
type SleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

// Sleep records d and returns ctx.Err()
func (r *SleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	return ctx.Err()
}

// Sleeps returns a copy of the recorded durations
func (r *SleepRecorder) Sleeps() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

// Total returns the sum of the recorded durations
func (r *SleepRecorder) Total() time.Duration {
	var total time.Duration
	for _, d := range r.Sleeps() {
		total += d
	}
	return total
}
