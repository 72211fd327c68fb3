// Package unfollower runs quota-governed bulk unfollows, one account at a
// time, dry-run unless told otherwise.
package unfollower

import (
	"context"
	"fmt"
	"time"

	"followscope/pkg/config"
	"followscope/pkg/logger"
	"followscope/pkg/metrics"
	"followscope/pkg/ratelimit"
	"followscope/pkg/retry"
	"followscope/pkg/run"
	"followscope/pkg/scanner"
	"followscope/pkg/twitter"
)

const (
	DefaultDailyLimit          = 200
	DefaultDelayMin            = 30 * time.Second
	DefaultDelayMax            = 60 * time.Second
	DefaultRateLimitWait       = 5 * time.Minute
	DefaultMaxRateLimitRetries = 6
)

// Client performs the mutation call
type Client interface {
	Unfollow(ctx context.Context, userID string) error
}

// ResultLogger receives every recorded result
type ResultLogger interface {
	LogUnfollow(ctx context.Context, runID string, r Result) error
}

// Account is one unfollow target
type Account struct {
	UserID string `json:"user_id"`
	Handle string `json:"handle"`
}

// FromProfiles converts scanned profiles into targets, keeping order
func FromProfiles(profiles []scanner.AccountProfile) []Account {
	out := make([]Account, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, Account{UserID: p.ID, Handle: p.Handle})
	}
	return out
}

// Result is the outcome for one account
type Result struct {
	UserID  string    `json:"user_id"`
	Handle  string    `json:"handle"`
	Success bool      `json:"success"`
	DryRun  bool      `json:"dry_run"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Config for one BulkUnfollow call. The zero value is a dry run with
// default limits.
type Config struct {
	// DailyLimit defaults to 200 and is capped at 400
	DailyLimit int
	DelayMin   time.Duration
	DelayMax   time.Duration
	// Live performs real unfollows. Without it nothing is sent.
	Live                bool
	RateLimitWait       time.Duration
	MaxRateLimitRetries int
}

// DefaultConfig returns the dry-run defaults
func DefaultConfig() Config {
	return Config{
		DailyLimit:          DefaultDailyLimit,
		DelayMin:            DefaultDelayMin,
		DelayMax:            DefaultDelayMax,
		RateLimitWait:       DefaultRateLimitWait,
		MaxRateLimitRetries: DefaultMaxRateLimitRetries,
	}
}

// ConfigFrom maps the unfollow config section
func ConfigFrom(c config.UnfollowConfig) Config {
	return Config{
		DailyLimit:          c.DailyLimit,
		DelayMin:            c.DelayMin,
		DelayMax:            c.DelayMax,
		Live:                !c.DryRun,
		RateLimitWait:       c.RateLimitWait,
		MaxRateLimitRetries: c.MaxRateLimitRetries,
	}
}

// DryRun reports whether no network call will be made
func (c Config) DryRun() bool {
	return !c.Live
}

func (c Config) normalized() Config {
	if c.DailyLimit <= 0 {
		c.DailyLimit = DefaultDailyLimit
	}
	if c.DailyLimit > config.HardDailyLimit {
		c.DailyLimit = config.HardDailyLimit
	}
	if c.DelayMin <= 0 && c.DelayMax <= 0 {
		c.DelayMin, c.DelayMax = DefaultDelayMin, DefaultDelayMax
	}
	if c.DelayMax < c.DelayMin {
		c.DelayMax = c.DelayMin
	}
	if c.RateLimitWait <= 0 {
		c.RateLimitWait = DefaultRateLimitWait
	}
	if c.MaxRateLimitRetries <= 0 {
		c.MaxRateLimitRetries = DefaultMaxRateLimitRetries
	}
	return c
}

// ProgressFunc is called before each account with its 0-based index, and
// once more with (total, total, "done") when the batch finishes
type ProgressFunc func(index, total int, handle string)

// Options wires an Engine
type Options struct {
	Gate    *ratelimit.Gate
	Guard   *run.Guard
	Results ResultLogger
	Logger  logger.Logger
	Now     func() time.Time
}

// Engine runs bulk unfollows
type Engine struct {
	client  Client
	quota   QuotaStore
	gate    *ratelimit.Gate
	guard   *run.Guard
	results ResultLogger
	logger  logger.Logger
	now     func() time.Time
}

// NewEngine creates an engine over client and quota
func NewEngine(client Client, quota QuotaStore, opts Options) *Engine {
	if opts.Gate == nil {
		opts.Gate = ratelimit.NewGate()
	}
	if opts.Guard == nil {
		opts.Guard = run.NewGuard()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		client:  client,
		quota:   quota,
		gate:    opts.Gate,
		guard:   opts.Guard,
		results: opts.Results,
		logger:  opts.Logger,
		now:     opts.Now,
	}
}

// Remaining reports today's used count and what is left under limit
func (e *Engine) Remaining(ctx context.Context, limit int) (used, remaining int, err error) {
	limit = Config{DailyLimit: limit}.normalized().DailyLimit
	used, err = e.quota.Count(ctx, DateKey(e.now()))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read quota: %w", err)
	}
	return used, max(limit-used, 0), nil
}

// BulkUnfollow unfollows accounts in order, at most as many as today's
// quota allows. Per-account failures are recorded and the batch continues.
// Cancelling tok stops at once and returns what was processed. The only
// errors returned are a held lease or a quota store failure.
func (e *Engine) BulkUnfollow(tok *run.Token, accounts []Account, cfg Config, onProgress ProgressFunc) ([]Result, error) {
	lease, err := e.guard.Acquire(run.KindMutation, tok)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	cfg = cfg.normalized()
	log := e.logger.WithFields(map[string]interface{}{
		"run_id":  lease.ID,
		"dry_run": cfg.DryRun(),
	})
	// quota writes must land even when the token is cancelled mid-write
	storeCtx := context.WithoutCancel(tok.Context())

	used, err := e.quota.Count(storeCtx, DateKey(e.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to read quota: %w", err)
	}
	remaining := cfg.DailyLimit - used
	if remaining <= 0 {
		log.WarnWithFields("daily unfollow limit reached", map[string]interface{}{
			"used":  used,
			"limit": cfg.DailyLimit,
		})
		return []Result{}, nil
	}

	batch := accounts
	if len(batch) > remaining {
		log.InfoWithFields("batch truncated to remaining quota", map[string]interface{}{
			"requested": len(accounts),
			"remaining": remaining,
		})
		batch = batch[:remaining]
	}

	total := len(batch)
	results := make([]Result, 0, total)
	progress := func(i int, handle string) {
		if onProgress != nil {
			onProgress(i, total, handle)
		}
	}

	for i, acct := range batch {
		if tok.Cancelled() {
			log.InfoWithFields("unfollow run cancelled", map[string]interface{}{"processed": len(results)})
			return results, nil
		}
		progress(i, acct.Handle)

		result := Result{UserID: acct.UserID, Handle: acct.Handle, DryRun: cfg.DryRun()}

		if cfg.DryRun() {
			result.Success = true
			result.At = e.now()
			results = append(results, result)
			metrics.IncUnfollow("dry_run")
			logger.LogUnfollow(log, acct.UserID, acct.Handle, true, nil)
			e.logResult(storeCtx, lease.ID, result, log)
			continue
		}

		err := e.unfollow(tok, acct, cfg, log)
		result.At = e.now()
		if err != nil && tok.Cancelled() {
			log.InfoWithFields("unfollow run cancelled", map[string]interface{}{"processed": len(results)})
			return results, nil
		}

		if err != nil {
			result.Error = err.Error()
			metrics.IncUnfollow("failed")
		} else {
			result.Success = true
			metrics.IncUnfollow("success")
			if err := e.increment(storeCtx); err != nil {
				results = append(results, result)
				e.logResult(storeCtx, lease.ID, result, log)
				return results, err
			}
		}
		logger.LogUnfollow(log, acct.UserID, acct.Handle, false, err)

		results = append(results, result)
		e.logResult(storeCtx, lease.ID, result, log)

		if i < total-1 {
			if err := e.gate.Wait(tok.Context(), cfg.DelayMin, cfg.DelayMax); err != nil {
				log.InfoWithFields("unfollow run cancelled", map[string]interface{}{"processed": len(results)})
				return results, nil
			}
		}
	}

	if onProgress != nil {
		onProgress(total, total, "done")
	}
	log.InfoWithFields("unfollow run complete", map[string]interface{}{
		"processed": len(results),
		"succeeded": countSuccess(results),
	})
	return results, nil
}

// unfollow calls the client, waiting RateLimitWait and retrying the same
// account after every 429, at most MaxRateLimitRetries times
func (e *Engine) unfollow(tok *run.Token, acct Account, cfg Config, log logger.Logger) error {
	rc := retry.RateLimitConfig(tok.Context(), cfg.MaxRateLimitRetries+1, &retry.ConstantBackoff{Delay: cfg.RateLimitWait})
	rc.Sleep = e.gate.Sleep
	rc.Logger = log
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		metrics.IncRateLimitWait(twitter.FriendshipDestroyEndpoint)
		logger.LogRateLimit(log, twitter.FriendshipDestroyEndpoint, delay, attempt)
	}

	return retry.Do(func() error {
		return e.client.Unfollow(tok.Context(), acct.UserID)
	}, rc)
}

// increment re-reads today's counter and stores it plus one
func (e *Engine) increment(ctx context.Context) error {
	date := DateKey(e.now())
	n, err := e.quota.Count(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to read quota: %w", err)
	}
	if err := e.quota.Set(ctx, date, n+1); err != nil {
		return fmt.Errorf("failed to persist quota: %w", err)
	}
	return nil
}

func (e *Engine) logResult(ctx context.Context, runID string, r Result, log logger.Logger) {
	if e.results == nil {
		return
	}
	if err := e.results.LogUnfollow(ctx, runID, r); err != nil {
		log.WithError(err).Warn("failed to record unfollow result")
	}
}

func countSuccess(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}
