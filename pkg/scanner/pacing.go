package scanner

import (
	"context"
	"time"

	"followscope/pkg/config"
	"followscope/pkg/logger"
	"followscope/pkg/metrics"
	"followscope/pkg/ratelimit"
	"followscope/pkg/retry"
	"followscope/pkg/run"
)

// Pacing controls the waits between and around harvest requests
type Pacing struct {
	PageDelayMin time.Duration
	PageDelayMax time.Duration
	BackoffMin   time.Duration
	BackoffMax   time.Duration
	// MaxRateLimitRetries bounds consecutive 429 retries of a single page
	MaxRateLimitRetries int
}

// DefaultPacing waits 2-4s between pages and 60-90s after a 429
func DefaultPacing() Pacing {
	return Pacing{
		PageDelayMin:        2 * time.Second,
		PageDelayMax:        4 * time.Second,
		BackoffMin:          60 * time.Second,
		BackoffMax:          90 * time.Second,
		MaxRateLimitRetries: 30,
	}
}

// PacingFromConfig maps the rate_limit config section
func PacingFromConfig(cfg config.RateLimitConfig) Pacing {
	return Pacing{
		PageDelayMin:        cfg.PageDelayMin,
		PageDelayMax:        cfg.PageDelayMax,
		BackoffMin:          cfg.BackoffMin,
		BackoffMax:          cfg.BackoffMax,
		MaxRateLimitRetries: cfg.MaxRateLimitRetries,
	}
}

type pacer struct {
	gate   *ratelimit.Gate
	pacing Pacing
	logger logger.Logger
}

func newPacer(gate *ratelimit.Gate, pacing Pacing, log logger.Logger) pacer {
	if gate == nil {
		gate = ratelimit.NewGate()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if pacing == (Pacing{}) {
		pacing = DefaultPacing()
	}
	if pacing.MaxRateLimitRetries <= 0 {
		pacing.MaxRateLimitRetries = DefaultPacing().MaxRateLimitRetries
	}
	return pacer{gate: gate, pacing: pacing, logger: log}
}

// betweenPages applies the page gate. It fails only when tok is cancelled.
func (p *pacer) betweenPages(tok *run.Token) error {
	return p.gate.Wait(tok.Context(), p.pacing.PageDelayMin, p.pacing.PageDelayMax)
}

// fetchPage runs op, retrying the same request after every 429. Any other
// error is returned as is.
func fetchPage[T any](p *pacer, tok *run.Token, endpoint string, op func(ctx context.Context) (T, error)) (T, error) {
	cfg := retry.RateLimitConfig(tok.Context(), p.pacing.MaxRateLimitRetries+1, &retry.JitterBackoff{
		Min:    p.pacing.BackoffMin,
		Max:    p.pacing.BackoffMax,
		Int64N: p.gate.Int64N,
	})
	cfg.Sleep = p.gate.Sleep
	cfg.Logger = p.logger
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		metrics.IncRateLimitWait(endpoint)
		logger.LogRateLimit(p.logger, endpoint, delay, attempt)
	}

	return retry.DoWithResult(func() (T, error) {
		return op(tok.Context())
	}, cfg)
}
