package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"followscope/pkg/checkpoint"
	"followscope/pkg/config"
	"followscope/pkg/logger"
	"followscope/pkg/metrics"
	"followscope/pkg/ratelimit"
	"followscope/pkg/run"
	"followscope/pkg/twitter"
)

// ErrScanCancelled is returned by FullScan when its token is cancelled
var ErrScanCancelled = errors.New("scan cancelled")

// API is the upstream surface a scan needs
type API interface {
	IDFetcher
	ProfileFetcher
}

// Identity resolves the logged-in account
type Identity interface {
	CurrentUserID() (string, error)
}

// CheckpointStore persists collected id sets between runs
type CheckpointStore interface {
	Load() (*checkpoint.Checkpoint, error)
	Create(userID, runID string) (*checkpoint.Checkpoint, error)
	RecordIDs(cp *checkpoint.Checkpoint, following, followers []string) error
	Delete() error
}

// Config wires a Scanner
type Config struct {
	Pacing  Pacing
	Hydrate HydrateOptions
	Gate    *ratelimit.Gate
	Guard   *run.Guard
	// Identity supplies the user id when Options.UserID is empty
	Identity Identity
	// Checkpoints opens the checkpoint store for a user. Nil disables resume.
	Checkpoints func(userID string) (CheckpointStore, error)
	Logger      logger.Logger
}

// ConfigFrom maps the rate_limit and scan config sections
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Pacing: PacingFromConfig(cfg.RateLimit),
		Hydrate: HydrateOptions{
			MaxPages:           cfg.Scan.MaxPages,
			DuplicatePageLimit: cfg.Scan.DuplicatePageLimit,
			Classifier:         Classifier{InactiveAfterDays: cfg.Scan.InactiveAfterDays},
		},
	}
}

// Options for a single FullScan
type Options struct {
	UserID     string
	Resume     bool
	OnBatch    BatchFunc
	OnProgress ProgressFunc
}

// Result is a completed scan
type Result struct {
	RunID        string
	UserID       string
	FollowingIDs []string
	FollowerIDs  []string
	// Profiles lists followed and mutual accounts first, then follower-only
	// accounts. A placeholder is replaced when a later page returns the account.
	Profiles      []AccountProfile
	FollowingStop StopReason
	FollowerStop  StopReason
	Resumed       bool
	Duration      time.Duration
}

// Scanner runs the full harvest pipeline
type Scanner struct {
	collector   *Collector
	hydrator    *Hydrator
	guard       *run.Guard
	identity    Identity
	checkpoints func(userID string) (CheckpointStore, error)
	logger      logger.Logger
}

// New creates a Scanner over api
func New(api API, cfg Config) *Scanner {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	if cfg.Guard == nil {
		cfg.Guard = run.NewGuard()
	}
	if cfg.Gate == nil {
		cfg.Gate = ratelimit.NewGate()
	}
	return &Scanner{
		collector:   NewCollector(api, cfg.Gate, cfg.Pacing, cfg.Logger),
		hydrator:    NewHydrator(api, cfg.Gate, cfg.Pacing, cfg.Hydrate, cfg.Logger),
		guard:       cfg.Guard,
		identity:    cfg.Identity,
		checkpoints: cfg.Checkpoints,
		logger:      cfg.Logger,
	}
}

// FullScan collects both id sets, hydrates following profiles, hydrates
// follower-only profiles, and stamps relationship flags on every profile.
// Only one scan may hold the guard at a time. On failure the error phase is
// reported and no result is returned; profiles already flushed through
// OnBatch stay with the caller.
func (s *Scanner) FullScan(tok *run.Token, opts Options) (*Result, error) {
	lease, err := s.guard.Acquire(run.KindHarvest, tok)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	start := time.Now()
	log := s.logger.WithField("run_id", lease.ID)

	res, err := s.scan(tok, lease.ID, opts, log)
	switch {
	case err == nil:
		res.Duration = time.Since(start)
		metrics.ObserveScan("complete", start)
		log.InfoWithFields("scan complete", map[string]interface{}{
			"following": len(res.FollowingIDs),
			"followers": len(res.FollowerIDs),
			"profiles":  len(res.Profiles),
			"duration":  res.Duration.String(),
		})
		return res, nil
	case errors.Is(err, ErrScanCancelled):
		metrics.ObserveScan("cancelled", start)
		log.Info("scan cancelled")
	default:
		metrics.ObserveScan("error", start)
		log.WithError(err).Error("scan failed")
	}

	opts.OnProgress.emit(Progress{Phase: PhaseError, Message: err.Error(), Err: err})
	return nil, err
}

func (s *Scanner) scan(tok *run.Token, runID string, opts Options, log logger.Logger) (*Result, error) {
	userID := opts.UserID
	if userID == "" {
		if s.identity == nil {
			return nil, fmt.Errorf("no user id given and no identity configured")
		}
		id, err := s.identity.CurrentUserID()
		if err != nil {
			return nil, err
		}
		userID = id
	}

	res := &Result{RunID: runID, UserID: userID}

	cps, cp := s.openCheckpoint(userID, runID, opts.Resume, log)
	if cp != nil && cp.Phase == checkpoint.PhaseIDsCollected {
		res.FollowingIDs = cp.FollowingIDs
		res.FollowerIDs = cp.FollowerIDs
		res.Resumed = true
		log.InfoWithFields("resuming from checkpoint", map[string]interface{}{
			"following": len(res.FollowingIDs),
			"followers": len(res.FollowerIDs),
		})
	} else {
		opts.OnProgress.emit(Progress{Phase: PhaseCollectingIDs})

		following, err := s.collector.Collect(tok, twitter.Following.IDsEndpoint(), userID, opts.OnProgress)
		if err != nil {
			return nil, fmt.Errorf("failed to collect following ids: %w", err)
		}
		if tok.Cancelled() {
			return nil, ErrScanCancelled
		}

		followers, err := s.collector.Collect(tok, twitter.Followers.IDsEndpoint(), userID, opts.OnProgress)
		if err != nil {
			return nil, fmt.Errorf("failed to collect follower ids: %w", err)
		}
		if tok.Cancelled() {
			return nil, ErrScanCancelled
		}

		res.FollowingIDs, res.FollowerIDs = following, followers
		if cps != nil && cp != nil {
			if err := cps.RecordIDs(cp, following, followers); err != nil {
				log.WithError(err).Warn("failed to save checkpoint")
			}
		}
	}

	followingSet := toSet(res.FollowingIDs)
	followerSet := toSet(res.FollowerIDs)
	total := len(union(followingSet, followerSet))

	stamp := func(batch []AccountProfile) {
		for i := range batch {
			_, following := followingSet[batch[i].ID]
			_, follower := followerSet[batch[i].ID]
			batch[i].SetRelationship(following, follower)
		}
	}
	scanned := 0
	onBatch := func(ctx context.Context, batch []AccountProfile) error {
		stamp(batch)
		metrics.AddProfiles(len(batch))
		if opts.OnBatch == nil {
			return nil
		}
		return opts.OnBatch(ctx, batch)
	}
	onProgress := func(p Progress) {
		p.Scanned += scanned
		p.Total = total
		opts.OnProgress.emit(p)
	}

	opts.OnProgress.emit(Progress{Phase: PhaseScanningUsers, Total: total})

	hydrated, err := s.hydrator.Hydrate(tok, twitter.Following.ListEndpoint(), userID, res.FollowingIDs, onBatch, onProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate following: %w", err)
	}
	if hydrated.StopReason == StopCancelled {
		return nil, ErrScanCancelled
	}
	res.FollowingStop = hydrated.StopReason
	res.Profiles = hydrated.Profiles
	scanned = len(res.Profiles)

	present := make(map[string]int, len(res.Profiles))
	for i, p := range res.Profiles {
		present[p.ID] = i
	}
	var followerOnly []string
	for _, id := range res.FollowerIDs {
		if _, ok := present[id]; !ok {
			followerOnly = append(followerOnly, id)
		}
	}

	if len(followerOnly) > 0 {
		if err := s.collector.betweenPages(tok); err != nil {
			return nil, ErrScanCancelled
		}

		hydrated, err := s.hydrator.Hydrate(tok, twitter.Followers.ListEndpoint(), userID, followerOnly, onBatch, onProgress)
		if err != nil {
			return nil, fmt.Errorf("failed to hydrate followers: %w", err)
		}
		if hydrated.StopReason == StopCancelled {
			return nil, ErrScanCancelled
		}
		res.FollowerStop = hydrated.StopReason

		for _, p := range hydrated.Profiles {
			if i, ok := present[p.ID]; ok {
				// the follower list can return an account the following list skipped
				if res.Profiles[i].IsPlaceholder() && !p.IsPlaceholder() {
					res.Profiles[i] = p
				}
				continue
			}
			present[p.ID] = len(res.Profiles)
			res.Profiles = append(res.Profiles, p)
		}
	}

	opts.OnProgress.emit(Progress{
		Phase:   PhaseComputingRelationships,
		Scanned: len(res.Profiles),
		Total:   total,
	})
	stamp(res.Profiles)

	if cps != nil {
		if err := cps.Delete(); err != nil {
			log.WithError(err).Warn("failed to delete checkpoint")
		}
	}

	opts.OnProgress.emit(Progress{
		Phase:     PhaseComplete,
		Collected: len(res.FollowingIDs) + len(res.FollowerIDs),
		Scanned:   len(res.Profiles),
		Total:     total,
	})
	return res, nil
}

// openCheckpoint returns the store and either a resumable checkpoint or a
// fresh one. Checkpoint failures only disable resume.
func (s *Scanner) openCheckpoint(userID, runID string, resume bool, log logger.Logger) (CheckpointStore, *checkpoint.Checkpoint) {
	if s.checkpoints == nil {
		return nil, nil
	}
	cps, err := s.checkpoints(userID)
	if err != nil {
		log.WithError(err).Warn("checkpoints unavailable")
		return nil, nil
	}

	if resume {
		cp, err := cps.Load()
		if err != nil {
			log.WithError(err).Warn("failed to load checkpoint, starting over")
		} else if cp != nil && cp.UserID == userID {
			return cps, cp
		}
	}

	cp, err := cps.Create(userID, runID)
	if err != nil {
		log.WithError(err).Warn("failed to create checkpoint")
		return cps, nil
	}
	return cps, cp
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func union(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}
